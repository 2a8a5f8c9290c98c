package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/petems/micwav/internal/app"
	"github.com/petems/micwav/internal/capture"
	"github.com/petems/micwav/internal/config"
	"github.com/petems/micwav/internal/hotkey"
	"github.com/petems/micwav/internal/permissions"
	"github.com/petems/micwav/internal/route"
	"github.com/petems/micwav/internal/stream"
	"github.com/petems/micwav/internal/tray"
	"github.com/spf13/cobra"
)

var trayCmd = &cobra.Command{
	Use:   "tray",
	Short: "Run the system tray app (the default)",
	Args:  cobra.NoArgs,
	RunE:  runTray,
}

func init() {
	rootCmd.AddCommand(trayCmd)
}

func runTray(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.close()

	cfg, log := e.cfg, e.log

	// macOS requires explicit microphone + accessibility approval before capture or hotkeys work
	if err := permissions.EnsurePermissions(true); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	deps := capture.Deps{
		Device:    e.device,
		Route:     route.NewDeviceRouter(e.device, cfg.Audio.PreferredRoute, log),
		Logger:    log,
		DataDir:   config.RecordingsPath(),
		QueueSize: cfg.Stream.QueueSize,
	}
	if cfg.Stream.Enabled {
		hub := stream.NewHub(cfg.Stream.QueueSize, log)
		deps.Listener = hub
		go func() {
			if err := hub.ListenAndServe(ctx, cfg.Stream.Addr); err != nil {
				log.Error().Err(err).Msg("Stream server stopped")
			}
		}()
	}
	session := capture.New(deps)

	// Create tray UI first (we'll pass it to app)
	trayUI := tray.New(nil, cfg, Version, Commit, log)

	// Create app with tray as status updater
	application := app.New(app.Config{
		Session:       session,
		Devices:       e.device,
		Config:        cfg,
		Logger:        log,
		StatusUpdater: trayUI,
		OnFinalized: func(res capture.Result) {
			log.Info().Str("path", res.Path).
				Uint64("frames", res.Stats.FramesAccepted).
				Int64("bytes", res.Stats.BytesWritten).
				Msg("Recording saved")
		},
	})

	// Set app reference in tray
	trayUI.SetApp(application)

	// Hotkeys are optional; the tray menu still drives recording without them
	hkManager, err := hotkey.New()
	switch {
	case errors.Is(err, hotkey.ErrUnsupported):
		log.Warn().Msg("Global hotkeys are not supported on this platform")
	case err != nil:
		log.Warn().Err(err).Msg("Failed to initialize hotkeys")
	default:
		defer hkManager.Close()
		if err := hkManager.Register(cfg.PlatformHotkey(), application.OnHotkey); err != nil {
			log.Warn().Err(err).Str("hotkey", cfg.PlatformHotkey()).Msg("Failed to register hotkey")
		}
	}

	log.Info().Str("version", Version).Msg("micwav starting...")

	// Setup shutdown signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
		case <-ctx.Done():
			return
		}
		log.Info().Msg("Shutting down...")
		if err := application.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("Shutdown error")
		}
		cancel()
	}()

	// Start tray UI - MUST run on main thread
	return trayUI.Run(ctx)
}
