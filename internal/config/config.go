package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const appName = "micwav"

// Modes for the global hotkey
const (
	ModePushToTalk = "PushToTalk"
	ModeToggle     = "Toggle"
)

// Capture backends
const (
	BackendPortAudio = "portaudio"
	BackendMalgo     = "malgo"
)

type Config struct {
	Hotkey         string       `json:"hotkey" mapstructure:"hotkey"`
	HotkeyDarwin   string       `json:"hotkey_darwin" mapstructure:"hotkey_darwin"`
	Mode           string       `json:"mode" mapstructure:"mode" validate:"oneof=PushToTalk Toggle"`
	LogLevel       string       `json:"log_level" mapstructure:"log_level" validate:"oneof=trace debug info warn error"`
	CopyPathOnStop bool         `json:"copy_path_on_stop" mapstructure:"copy_path_on_stop"`
	Audio          AudioConfig  `json:"audio" mapstructure:"audio"`
	Stream         StreamConfig `json:"stream" mapstructure:"stream"`

	path string
}

type AudioConfig struct {
	Backend        string `json:"backend" mapstructure:"backend" validate:"oneof=portaudio malgo"`
	DeviceID       string `json:"device_id" mapstructure:"device_id"`
	PreferredRoute string `json:"preferred_route" mapstructure:"preferred_route"` // substring of a wireless input's name
	SampleRate     int    `json:"sample_rate" mapstructure:"sample_rate" validate:"min=4000,max=192000"`
	Channels       int    `json:"channels" mapstructure:"channels" validate:"oneof=1 2"`
	BitsPerSample  int    `json:"bits_per_sample" mapstructure:"bits_per_sample" validate:"oneof=8 16"`
	AudioSource    string `json:"audio_source" mapstructure:"audio_source" validate:"oneof=default mic voice-recognition voice-communication unprocessed"`
	OutputFileName string `json:"output_file_name" mapstructure:"output_file_name" validate:"required"`
}

type StreamConfig struct {
	Enabled   bool   `json:"enabled" mapstructure:"enabled"`
	Addr      string `json:"addr" mapstructure:"addr" validate:"required_if=Enabled true"`
	QueueSize int    `json:"queue_size" mapstructure:"queue_size" validate:"min=1"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("hotkey", "Alt+Space")
	v.SetDefault("hotkey_darwin", "Ctrl+Space")
	v.SetDefault("mode", ModeToggle)
	v.SetDefault("log_level", "info")
	v.SetDefault("copy_path_on_stop", false)

	v.SetDefault("audio.backend", BackendPortAudio)
	v.SetDefault("audio.device_id", "")
	v.SetDefault("audio.preferred_route", "")
	v.SetDefault("audio.sample_rate", 44100)
	v.SetDefault("audio.channels", 1)
	v.SetDefault("audio.bits_per_sample", 16)
	v.SetDefault("audio.audio_source", "voice-recognition")
	v.SetDefault("audio.output_file_name", "audio.wav")

	v.SetDefault("stream.enabled", false)
	v.SetDefault("stream.addr", "127.0.0.1:8765")
	v.SetDefault("stream.queue_size", 64)
}

// Load reads the config from disk or returns defaults
func Load() (*Config, error) {
	return LoadFile(configPath())
}

// LoadFile reads the config at path, layering it over the defaults and
// MICWAV_* environment variables (e.g. MICWAV_AUDIO_SAMPLE_RATE).
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(strings.ToUpper(appName))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.path = path

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	path := c.path
	if path == "" {
		path = configPath()
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Path is where Save writes
func (c *Config) Path() string {
	if c.path == "" {
		return configPath()
	}
	return c.path
}

// PlatformHotkey returns the appropriate hotkey for the current platform
func (c *Config) PlatformHotkey() string {
	if runtime.GOOS == "darwin" && c.HotkeyDarwin != "" {
		return c.HotkeyDarwin
	}
	return c.Hotkey
}

// configPath returns the platform-specific config file path
func configPath() string {
	var base string

	switch runtime.GOOS {
	case "darwin":
		base = os.Getenv("HOME") + "/Library/Application Support"
	case "windows":
		base = os.Getenv("APPDATA")
	default: // linux
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = xdg
		} else {
			base = os.Getenv("HOME") + "/.config"
		}
	}

	return filepath.Join(base, appName, "config.json")
}

// RecordingsPath returns the application-private directory where finished
// recordings and the in-progress PCM file live
func RecordingsPath() string {
	var base string

	switch runtime.GOOS {
	case "darwin":
		base = os.Getenv("HOME") + "/Library/Application Support"
	case "windows":
		base = os.Getenv("LOCALAPPDATA")
	default:
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			base = xdg
		} else {
			base = os.Getenv("HOME") + "/.local/share"
		}
	}

	return filepath.Join(base, appName, "recordings")
}
