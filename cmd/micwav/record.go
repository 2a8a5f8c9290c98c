package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/petems/micwav/internal/app"
	"github.com/petems/micwav/internal/capture"
	"github.com/petems/micwav/internal/config"
	"github.com/petems/micwav/internal/permissions"
	"github.com/petems/micwav/internal/route"
	"github.com/petems/micwav/internal/stream"
	"github.com/petems/micwav/internal/wav"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	argSampleRate int
	argChannels   int
	argBits       int
	argSource     string
	argDevice     string
	argOutput     string
	argRoute      string
	argDuration   time.Duration
	argStreamAddr string

	recordCmd = &cobra.Command{
		Use:   "record",
		Short: "Record until Ctrl+C (type p + Enter to pause or resume)",
		Args:  cobra.NoArgs,
		RunE:  runRecord,
	}
)

func init() {
	recordCmd.Flags().IntVar(&argSampleRate, "sample-rate", 0, "Sample rate in Hz (default from config)")
	recordCmd.Flags().IntVar(&argChannels, "channels", 0, "1 for mono, 2 for stereo")
	recordCmd.Flags().IntVar(&argBits, "bits", 0, "Bits per sample: 8 or 16")
	recordCmd.Flags().StringVar(&argSource, "source", "", "Audio source: default, mic, voice-recognition, voice-communication, unprocessed")
	recordCmd.Flags().StringVar(&argDevice, "device", "", "Input device name")
	recordCmd.Flags().StringVarP(&argOutput, "output", "o", "", "Output file name inside the recordings dir")
	recordCmd.Flags().StringVar(&argRoute, "route", "", "Prefer a wireless input whose name contains this")
	recordCmd.Flags().DurationVarP(&argDuration, "duration", "d", 0, "Stop after this long")
	recordCmd.Flags().StringVar(&argStreamAddr, "stream-addr", "", "Serve a websocket audio stream on this address, e.g. 127.0.0.1:8765")

	rootCmd.AddCommand(recordCmd)
}

// applyRecordFlags lays explicitly set flags over the loaded config
func applyRecordFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("sample-rate") {
		cfg.Audio.SampleRate = argSampleRate
	}
	if flags.Changed("channels") {
		cfg.Audio.Channels = argChannels
	}
	if flags.Changed("bits") {
		cfg.Audio.BitsPerSample = argBits
	}
	if flags.Changed("source") {
		cfg.Audio.AudioSource = argSource
	}
	if flags.Changed("device") {
		cfg.Audio.DeviceID = argDevice
	}
	if flags.Changed("output") {
		cfg.Audio.OutputFileName = argOutput
	}
	if flags.Changed("route") {
		cfg.Audio.PreferredRoute = argRoute
	}
	if flags.Changed("stream-addr") {
		cfg.Stream.Enabled = argStreamAddr != ""
		cfg.Stream.Addr = argStreamAddr
	}
}

func runRecord(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.close()

	cfg, log := e.cfg, e.log
	applyRecordFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := permissions.EnsureMicrophone(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if argDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, argDuration)
		defer cancel()
	}

	deps := capture.Deps{
		Device:    e.device,
		Route:     route.NewDeviceRouter(e.device, cfg.Audio.PreferredRoute, log),
		Logger:    log,
		DataDir:   config.RecordingsPath(),
		QueueSize: cfg.Stream.QueueSize,
	}
	var hub *stream.Hub
	if cfg.Stream.Enabled {
		hub = stream.NewHub(cfg.Stream.QueueSize, log)
		deps.Listener = hub
	}

	session := capture.New(deps)
	if err := session.Init(app.CaptureOptions(cfg)); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	if hub != nil {
		g.Go(func() error {
			return hub.ListenAndServe(gctx, cfg.Stream.Addr)
		})
	}
	g.Go(func() error {
		return record(gctx, session, cmd.InOrStdin(), cmd.OutOrStdout())
	})
	return g.Wait()
}

// record runs one recording until ctx ends or the capture fails, then
// prints a summary of the WAV file.
func record(ctx context.Context, session *capture.Session, in io.Reader, out io.Writer) error {
	if err := session.Start(); err != nil {
		return err
	}
	fmt.Fprintln(out, "Recording, press Ctrl+C to stop or p + Enter to pause")

	go watchPauseKey(in, out, session)

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
wait:
	for {
		select {
		case <-ctx.Done():
			break wait
		case <-ticker.C:
			// capture died on its own
			if session.State() == capture.Stopped {
				break wait
			}
		}
	}

	p, err := session.Stop()
	if err != nil {
		return err
	}
	res, err := p.Result()
	if err != nil {
		return err
	}

	printSummary(out, res)
	return nil
}

func watchPauseKey(in io.Reader, out io.Writer, session *capture.Session) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if !strings.EqualFold(strings.TrimSpace(scanner.Text()), "p") {
			continue
		}
		switch session.State() {
		case capture.Recording:
			session.Pause(true)
			fmt.Fprintln(out, "Paused, p + Enter to resume")
		case capture.Paused:
			session.Pause(false)
			fmt.Fprintln(out, "Recording")
		default:
			return
		}
	}
}

func printSummary(out io.Writer, res capture.Result) {
	fmt.Fprintf(out, "Saved %s\n", res.Path)

	info, err := wav.Probe(res.Path)
	if err != nil {
		fmt.Fprintf(out, "  (could not inspect: %v)\n", err)
		return
	}
	fmt.Fprintf(out, "  %s, %d Hz, %d ch, %d bit, %d bytes\n",
		info.Duration.Round(time.Millisecond), info.SampleRate, info.Channels, info.BitsPerSample, info.DataSize)
	if !math.IsInf(info.PeakDBFS, -1) {
		fmt.Fprintf(out, "  peak %.1f dBFS\n", info.PeakDBFS)
	}
	fmt.Fprintf(out, "  frames: %d kept, %d skipped, %d paused\n",
		res.Stats.FramesAccepted, res.Stats.FramesSkipped, res.Stats.FramesPaused)
}
