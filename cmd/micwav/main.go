package main

import (
	"os"

	"github.com/petems/micwav/internal/audio"
	"github.com/petems/micwav/internal/config"
	"github.com/petems/micwav/internal/logging"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	// Version is set via ldflags at build time
	Version = "dev"
	// Commit is set via ldflags at build time
	Commit = "unknown"
)

var (
	argConfig   string
	argLogLevel string
	argBackend  string

	rootCmd = &cobra.Command{
		Use:   "micwav",
		Short: "Record the microphone to WAV files",
		Long: "micwav captures PCM audio from an input device, optionally streams it over a\n" +
			"websocket and writes it to a WAV file when recording stops.\n\n" +
			"Run without a subcommand to start the tray app.",
		SilenceUsage: true,
		RunE:         runTray,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&argConfig, "config", "", "Config file (default is the platform config dir)")
	rootCmd.PersistentFlags().StringVar(&argLogLevel, "log-level", "", "Override the configured log level")
	rootCmd.PersistentFlags().StringVar(&argBackend, "backend", "", "Capture backend: portaudio or malgo")
}

// env is what every command needs: config, logger and the capture device
type env struct {
	cfg    *config.Config
	log    zerolog.Logger
	device audio.Device
}

func loadConfig() (*config.Config, error) {
	if argConfig != "" {
		return config.LoadFile(argConfig)
	}
	return config.Load()
}

func setup() (*env, error) {
	// Load config from XDG/Library/AppData
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if argLogLevel != "" {
		cfg.LogLevel = argLogLevel
	}
	if argBackend != "" {
		cfg.Audio.Backend = argBackend
	}

	// Initialize logger with configured level
	log := logging.NewWithLevel(cfg.LogLevel)

	device, err := audio.New(cfg.Audio, log)
	if err != nil {
		return nil, err
	}

	return &env{cfg: cfg, log: log, device: device}, nil
}

func (e *env) close() {
	if err := e.device.Close(); err != nil {
		e.log.Warn().Err(err).Msg("Failed to close audio backend")
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
