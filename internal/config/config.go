// Package config loads the colorpages server configuration.
//
// Values are resolved in three layers: built-in defaults, an optional TOML file, and
// environment variables (COLORPAGES_*). A .env file in the working directory is loaded into
// the environment first, without overriding variables that are already set.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// DefaultFile is read when no config file is given explicitly. It is optional.
const DefaultFile = "colorpages.toml"

// envPrefix is the prefix of all environment variables read by Load.
const envPrefix = "COLORPAGES_"

// Config holds all server configuration values.
type Config struct {
	// Listen is the address of the page server.
	Listen string `toml:"listen"`

	// MetricsListen is the address of the Prometheus metrics server. Empty disables it.
	MetricsListen string `toml:"metrics_listen"`

	// Title is the page title. Empty keeps the layout default.
	Title string `toml:"title"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `toml:"log_level"`

	// Live enables live navigation over WebSocket.
	Live bool `toml:"live"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Listen:        ":8080",
		MetricsListen: ":9090",
		LogLevel:      "info",
		Live:          true,
	}
}

// Load resolves the configuration. An explicit path must exist; DefaultFile is read only if
// present. An empty path means DefaultFile.
func Load(path string) (*Config, error) {
	_ = godotenv.Load() // .env is optional

	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnv overrides the values set in the environment.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(envPrefix + key); ok {
			*dst = v
		}
	}

	str("LISTEN", &c.Listen)
	str("METRICS_LISTEN", &c.MetricsListen)
	str("TITLE", &c.Title)
	str("LOG_LEVEL", &c.LogLevel)

	if v, ok := lookup(envPrefix + "LIVE"); ok {
		switch strings.ToLower(v) {
		case "1", "true", "yes", "on":
			c.Live = true
		case "0", "false", "no", "off":
			c.Live = false
		default:
			return fmt.Errorf("%sLIVE: invalid boolean %q", envPrefix, v)
		}
	}

	c.LogLevel = strings.ToLower(c.LogLevel)

	return nil
}

// Validate checks the configuration and reports all problems at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Listen == "" {
		errs = append(errs, errors.New("listen address is required"))
	} else if _, _, err := net.SplitHostPort(c.Listen); err != nil {
		errs = append(errs, fmt.Errorf("listen address %q: %w", c.Listen, err))
	}

	if c.MetricsListen != "" {
		if _, _, err := net.SplitHostPort(c.MetricsListen); err != nil {
			errs = append(errs, fmt.Errorf("metrics listen address %q: %w", c.MetricsListen, err))
		} else if c.MetricsListen == c.Listen {
			errs = append(errs, errors.New("metrics must listen on a different address"))
		}
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown log level %q", c.LogLevel))
	}

	return errors.Join(errs...)
}
