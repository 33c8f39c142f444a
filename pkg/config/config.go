// Package config holds the timing and transport knobs of botlink. Values come
// from struct defaults, optionally overlaid by a YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"
	"github.com/srg/botlink/internal/session"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	LogLevel     string `yaml:"log_level" default:"info"`
	OutputFormat string `yaml:"output_format" default:"table"` // table, json

	PollInterval         time.Duration `yaml:"poll_interval" default:"25ms"`
	WatchdogTimeout      time.Duration `yaml:"watchdog_timeout" default:"4500ms"`
	ScanTimeout          time.Duration `yaml:"scan_timeout" default:"10s"`
	ConnectTimeout       time.Duration `yaml:"connect_timeout" default:"10s"`
	WriteTimeout         time.Duration `yaml:"write_timeout" default:"1s"`
	WriteWithoutResponse bool          `yaml:"write_without_response"`
	TelemetryBuffer      int           `yaml:"telemetry_buffer" default:"64"`
}

// DefaultConfig returns default configuration values
func DefaultConfig() *Config {
	cfg := &Config{}
	defaults.SetDefaults(cfg)
	return cfg
}

// Load reads a YAML file over the defaults. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	// fields the file set to empty fall back to defaults again
	defaults.SetDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects values no session could run with.
func (c *Config) Validate() error {
	var errs []error
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.OutputFormat != "table" && c.OutputFormat != "json" {
		errs = append(errs, fmt.Errorf("unsupported output_format %q", c.OutputFormat))
	}
	if c.PollInterval < time.Millisecond {
		errs = append(errs, fmt.Errorf("poll_interval %s is below 1ms", c.PollInterval))
	}
	if c.WatchdogTimeout <= c.PollInterval {
		errs = append(errs, fmt.Errorf("watchdog_timeout %s must exceed poll_interval %s", c.WatchdogTimeout, c.PollInterval))
	}
	if c.TelemetryBuffer < 1 {
		errs = append(errs, fmt.Errorf("telemetry_buffer must be positive"))
	}
	return errors.Join(errs...)
}

// Level parses LogLevel, falling back to info.
func (c *Config) Level() logrus.Level {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// SessionOptions maps the config onto device session options.
func (c *Config) SessionOptions() session.Options {
	return session.Options{
		PollInterval:         c.PollInterval,
		WatchdogTimeout:      c.WatchdogTimeout,
		ConnectTimeout:       c.ConnectTimeout,
		WriteTimeout:         c.WriteTimeout,
		WriteWithoutResponse: c.WriteWithoutResponse,
		TelemetryBuffer:      c.TelemetryBuffer,
	}
}

// NewLogger creates a configured logger instance
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(c.Level())
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})
	return logger
}
