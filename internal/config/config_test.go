package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("REMOPAD_CONFIG", "")
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	c, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, ":8080", c.Listen)
	assert.Equal(t, InputConfig{Driver: "sdl", Index: -1}, c.Input)
	assert.Equal(t, "http", c.Actuator.Driver)
	assert.Equal(t, 5*time.Second, c.Actuator.Timeout)
	assert.Equal(t, "sqlite", c.Settings.Backend)
	assert.True(t, c.Tray)
	assert.True(t, c.WakeLock)
	assert.Empty(t, c.Game)

	_, err = c.Logger()
	require.NoError(t, err)
}

func TestLoadPrecedence(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "remopad.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen = ":9000"

[actuator]
driver = "serial"
port = "/dev/ttyACM0"

[game]
ruleset = "stay"
buttons = "2"
reaction_ms = 1000
`), 0o644))

	t.Setenv("REMOPAD_ACTUATOR_BAUD", "9600")
	t.Setenv("REMOPAD_LISTEN", ":9100")

	_, err := Load([]string{"--config", path, "--no-tray"})
	require.Error(t, err, "unknown flag")

	c, err := Load([]string{"--config", path, "--listen", ":9200", "--tray=false"})
	require.NoError(t, err)
	assert.Equal(t, ":9200", c.Listen)
	assert.Equal(t, "serial", c.Actuator.Driver)
	assert.Equal(t, "/dev/ttyACM0", c.Actuator.Port)
	assert.Equal(t, 9600, c.Actuator.Baud)
	assert.False(t, c.Tray)
	assert.Equal(t, map[string]string{
		"ruleset":     "stay",
		"buttons":     "2",
		"reaction_ms": "1000",
	}, c.Game)
}

func TestLoadRejectsUnknownDrivers(t *testing.T) {
	isolate(t)

	_, err := Load([]string{"--input", "hid", "--actuator", "serial"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `input.driver: "hid" is not one of sdl, joystick`)
	assert.Contains(t, err.Error(), "actuator.port is required")
}

func TestLoadMissingExplicitConfig(t *testing.T) {
	isolate(t)

	_, err := Load([]string{"--config", filepath.Join(t.TempDir(), "missing.toml")})
	assert.ErrorContains(t, err, "read config")
}

func TestLoggerRejectsBadLevel(t *testing.T) {
	c := Config{Log: LogConfig{Level: "loud"}}
	_, err := c.Logger()
	assert.ErrorContains(t, err, "log.level")
}
