package audioremoted

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/audioremote/audioremoted/internal/audio"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.True(t, cfg.Server.Enabled)
	assert.Equal(t, DefaultPort, cfg.Server.Port)
	assert.False(t, cfg.Server.AllInterfaces)
	assert.Equal(t, string(audio.MuteModeHardware), cfg.Audio.MuteMode)
	assert.Equal(t, audio.DefaultVolumeStep, cfg.Audio.VolumeStep)
	assert.True(t, cfg.Bridge.Enabled)
	assert.Equal(t, 5000, cfg.Bridge.ConfirmTimeoutMS)
	assert.False(t, cfg.Update.Enabled)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadConfigFile(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: 9000
  all_interfaces: true
audio:
  mute_mode: volume-zero
bridge:
  confirm_timeout_ms: 2500
logging:
  level: debug
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:9000", cfg.Server.ListenAddr())
	assert.Equal(t, "volume-zero", cfg.Audio.MuteMode)
	assert.Equal(t, 2500, cfg.Bridge.ConfirmTimeoutMS)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// Untouched sections keep their defaults.
	assert.Equal(t, audio.DefaultVolumeStep, cfg.Audio.VolumeStep)
}

func TestLoadConfigRejectsUnknownFields(t *testing.T) {
	path := writeConfigFile(t, `
server:
  prot: 9000
`)
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port too low", func(c *Config) { c.Server.Port = 0 }},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }},
		{"bad mute mode", func(c *Config) { c.Audio.MuteMode = "loud" }},
		{"bad volume step", func(c *Config) { c.Audio.VolumeStep = 2.0 }},
		{"device-switch without null device", func(c *Config) {
			c.Audio.MuteMode = "device-switch"
			c.Audio.NullInputDevice = ""
		}},
		{"zero confirm timeout", func(c *Config) { c.Bridge.ConfirmTimeoutMS = 0 }},
		{"update without manifest url", func(c *Config) { c.Update.Enabled = true; c.Update.ManifestURL = "" }},
		{"empty log level", func(c *Config) { c.Logging.Level = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestListenAddrDefaultsToLoopback(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "127.0.0.1:8765", cfg.Server.ListenAddr())
}
