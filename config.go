package audioremoted

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/audioremote/audioremoted/internal/audio"
)

// Config is the top-level YAML configuration for the daemon. The config file
// is the primary configuration surface; flags only select the file. Settings
// are read at server start — changing them takes effect by restarting the
// endpoint, not by live reconfiguration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Audio   AudioConfig   `yaml:"audio"`
	Bridge  BridgeConfig  `yaml:"bridge"`
	Update  UpdateConfig  `yaml:"update"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig controls the local HTTP control endpoint.
type ServerConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
	// AllInterfaces binds 0.0.0.0 instead of loopback. Off by default: the
	// endpoint is meant for Shortcuts and browsers on the same machine or LAN.
	AllInterfaces bool `yaml:"all_interfaces"`
}

// AudioConfig controls the audio adapter.
type AudioConfig struct {
	MuteMode   string  `yaml:"mute_mode"`
	VolumeStep float64 `yaml:"volume_step"`
	// NullInputDevice is the input device the device-switch mute mode swaps to.
	NullInputDevice string `yaml:"null_input_device"`
}

// BridgeConfig controls the browser-extension bridge.
type BridgeConfig struct {
	Enabled          bool `yaml:"enabled"`
	ConfirmTimeoutMS int  `yaml:"confirm_timeout_ms"`
}

// UpdateConfig controls the release update check.
type UpdateConfig struct {
	Enabled         bool   `yaml:"enabled"`
	ManifestURL     string `yaml:"manifest_url"`
	IntervalMinutes int    `yaml:"interval_minutes"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultPort is the control endpoint's default listen port.
const DefaultPort = 8765

// DefaultConfig returns a fully-populated Config with defaults.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Enabled: true,
			Port:    DefaultPort,
		},
		Audio: AudioConfig{
			MuteMode:        string(audio.MuteModeHardware),
			VolumeStep:      audio.DefaultVolumeStep,
			NullInputDevice: "Null Audio Device",
		},
		Bridge: BridgeConfig{
			Enabled:          true,
			ConfirmTimeoutMS: 5000,
		},
		Update: UpdateConfig{
			Enabled:         false,
			IntervalMinutes: 60,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig reads a YAML config file on top of the defaults. Unknown fields
// are rejected to catch typos. An empty path returns the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks config invariants and returns a user-friendly error.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if err := audio.ValidateMuteMode(audio.MuteMode(c.Audio.MuteMode)); err != nil {
		return fmt.Errorf("audio.mute_mode %q: %w", c.Audio.MuteMode, err)
	}
	if err := audio.ValidateVolumeStep(c.Audio.VolumeStep); err != nil {
		return fmt.Errorf("audio.volume_step %v: %w", c.Audio.VolumeStep, err)
	}
	if c.Audio.MuteMode == string(audio.MuteModeDeviceSwitch) && c.Audio.NullInputDevice == "" {
		return errors.New("audio.null_input_device must be set for the device-switch mute mode")
	}
	if c.Bridge.ConfirmTimeoutMS <= 0 {
		return errors.New("bridge.confirm_timeout_ms must be > 0")
	}
	if c.Update.Enabled {
		if c.Update.ManifestURL == "" {
			return errors.New("update.enabled is true but update.manifest_url is empty")
		}
		if c.Update.IntervalMinutes <= 0 {
			return errors.New("update.interval_minutes must be > 0")
		}
	}
	if c.Logging.Level == "" {
		return errors.New("logging.level must not be empty")
	}
	return nil
}

// ListenAddr returns the endpoint bind address derived from the settings.
func (c *ServerConfig) ListenAddr() string {
	host := "127.0.0.1"
	if c.AllInterfaces {
		host = "0.0.0.0"
	}
	return fmt.Sprintf("%s:%d", host, c.Port)
}

// ConfirmWindow returns the bridge confirmation window as a duration.
func (c *BridgeConfig) ConfirmWindow() time.Duration {
	return time.Duration(c.ConfirmTimeoutMS) * time.Millisecond
}
