// Package config loads process configuration from flags, the environment
// and an optional config file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config holds application configuration.
type Config struct {
	Listen   string
	Input    InputConfig
	Actuator ActuatorConfig
	Settings SettingsConfig
	// Game is the flat ruleset configuration.
	Game     map[string]string
	Tray     bool
	WakeLock bool
	Log      LogConfig
}

// InputConfig selects the controller reader.
type InputConfig struct {
	Driver string
	Index  int
}

// ActuatorConfig selects where punishments go.
type ActuatorConfig struct {
	Driver  string
	URL     string
	Token   string
	Port    string
	Baud    int
	Timeout time.Duration
}

// SettingsConfig selects where mappings are stored.
type SettingsConfig struct {
	Backend string
	Path    string
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level       string
	Development bool
}

const envPrefix = "REMOPAD"

var (
	inputDrivers    = []string{"sdl", "joystick"}
	actuatorDrivers = []string{"http", "serial", "log"}
	settingBackends = []string{"sqlite", "remote"}
)

func defaultDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(dir, "remopad")
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("remopad", pflag.ContinueOnError)
	fs.String("config", "", "config file (default remopad.{toml,yaml} in the user config dir)")
	fs.StringP("listen", "l", ":8080", "HTTP listen address")
	fs.String("input", "sdl", "controller input driver: sdl or joystick")
	fs.Int("input-index", -1, "joystick device index, -1 picks the first")
	fs.String("actuator", "http", "actuator driver: http, serial or log")
	fs.String("actuator-url", "http://localhost:8000", "actuator service base URL")
	fs.String("actuator-token", "", "actuator service bearer token")
	fs.String("serial-port", "", "serial actuator port")
	fs.Int("serial-baud", 115200, "serial actuator baud rate")
	fs.Duration("actuator-timeout", 5*time.Second, "actuator request timeout")
	fs.String("settings", "sqlite", "settings backend: sqlite or remote")
	fs.String("settings-path", filepath.Join(defaultDir(), "settings.db"), "sqlite settings database")
	fs.Bool("tray", true, "show the system tray icon")
	fs.Bool("wakelock", true, "keep the display awake while a game runs")
	fs.String("log-level", "info", "log level")
	fs.Bool("dev", false, "development logging")
	return fs
}

var flagKeys = map[string]string{
	"listen":           "listen",
	"input":            "input.driver",
	"input-index":      "input.index",
	"actuator":         "actuator.driver",
	"actuator-url":     "actuator.url",
	"actuator-token":   "actuator.token",
	"serial-port":      "actuator.port",
	"serial-baud":      "actuator.baud",
	"actuator-timeout": "actuator.timeout",
	"settings":         "settings.backend",
	"settings-path":    "settings.path",
	"tray":             "tray",
	"wakelock":         "wakelock",
	"log-level":        "log.level",
	"dev":              "log.development",
}

// Load parses args (without the program name). Precedence is flags, then
// REMOPAD_* environment variables, then the config file, then defaults.
func Load(args []string) (Config, error) {
	fs := newFlagSet()
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	v := viper.New()
	for name, key := range flagKeys {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			return Config{}, err
		}
	}

	cfgPath, _ := fs.GetString("config")
	if cfgPath == "" {
		cfgPath = os.Getenv(envPrefix + "_CONFIG")
	}
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(defaultDir())
		v.SetConfigName("remopad")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgPath != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	c := Config{
		Listen: v.GetString("listen"),
		Input: InputConfig{
			Driver: v.GetString("input.driver"),
			Index:  v.GetInt("input.index"),
		},
		Actuator: ActuatorConfig{
			Driver:  v.GetString("actuator.driver"),
			URL:     v.GetString("actuator.url"),
			Token:   v.GetString("actuator.token"),
			Port:    v.GetString("actuator.port"),
			Baud:    v.GetInt("actuator.baud"),
			Timeout: v.GetDuration("actuator.timeout"),
		},
		Settings: SettingsConfig{
			Backend: v.GetString("settings.backend"),
			Path:    v.GetString("settings.path"),
		},
		Game:     v.GetStringMapString("game"),
		Tray:     v.GetBool("tray"),
		WakeLock: v.GetBool("wakelock"),
		Log: LogConfig{
			Level:       v.GetString("log.level"),
			Development: v.GetBool("log.development"),
		},
	}
	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func oneOf(key, value string, allowed []string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("%s: %q is not one of %s", key, value, strings.Join(allowed, ", "))
}

func (c Config) validate() error {
	return errors.Join(
		oneOf("input.driver", c.Input.Driver, inputDrivers),
		oneOf("actuator.driver", c.Actuator.Driver, actuatorDrivers),
		oneOf("settings.backend", c.Settings.Backend, settingBackends),
		c.serialPort(),
	)
}

func (c Config) serialPort() error {
	if c.Actuator.Driver == "serial" && c.Actuator.Port == "" {
		return errors.New("actuator.port is required for the serial actuator")
	}
	return nil
}

// Logger builds the zap logger described by the log section.
func (c Config) Logger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if c.Log.Development {
		cfg = zap.NewDevelopmentConfig()
	}
	level, err := zap.ParseAtomicLevel(c.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("log.level: %w", err)
	}
	cfg.Level = level
	return cfg.Build()
}
