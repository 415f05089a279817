// Package config loads profiler settings: defaults, then an optional YAML
// file, then CYCLEPROF_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"

	"cycleprof/internal/clock"
)

// Environment variables that override file values.
const (
	EnvCalibrateMS = "CYCLEPROF_CALIBRATE_MS"
	EnvTopN        = "CYCLEPROF_TOP_N"
	EnvWorkers     = "CYCLEPROF_WORKERS"
	EnvLogLevel    = "CYCLEPROF_LOG_LEVEL"
	EnvMaxSessions = "CYCLEPROF_MAX_SESSIONS"
)

// maxCalibrateMS bounds the calibration busy-wait.
const maxCalibrateMS = 60_000

// Config holds profiler settings
type Config struct {
	// CalibrateMS is the frequency estimation window. 0 derives the
	// frequency from the profiled run itself.
	CalibrateMS uint64 `yaml:"calibrate_ms"`
	// TopN limits reported regions; 0 reports all.
	TopN     int    `yaml:"top_n"`
	Workers  int    `yaml:"workers"`
	LogLevel string `yaml:"log_level"`
	// MaxSessions caps how many profiled sessions the MCP server keeps.
	MaxSessions int `yaml:"max_sessions"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		CalibrateMS: clock.DefaultCalibrationMS,
		TopN:        0,
		Workers:     1,
		LogLevel:    "info",
		MaxSessions: 16,
	}
}

// Load returns the settings with priority env > file > defaults. An empty
// path or a missing file leaves the defaults in place.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := loadEnv(&cfg); err != nil {
		return cfg, fmt.Errorf("load config from environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func loadEnv(cfg *Config) error {
	if v := os.Getenv(EnvCalibrateMS); v != "" {
		ms, err := cast.ToUint64E(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvCalibrateMS, err)
		}
		cfg.CalibrateMS = ms
	}
	if v := os.Getenv(EnvTopN); v != "" {
		n, err := cast.ToIntE(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTopN, err)
		}
		cfg.TopN = n
	}
	if v := os.Getenv(EnvWorkers); v != "" {
		n, err := cast.ToIntE(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvWorkers, err)
		}
		cfg.Workers = n
	}
	if v := os.Getenv(EnvMaxSessions); v != "" {
		n, err := cast.ToIntE(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMaxSessions, err)
		}
		cfg.MaxSessions = n
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
	return nil
}

// Validate checks the settings for consistency.
func (c Config) Validate() error {
	var errs []error

	if c.CalibrateMS > maxCalibrateMS {
		errs = append(errs, fmt.Errorf("calibrate_ms %d exceeds %d", c.CalibrateMS, maxCalibrateMS))
	}
	if c.TopN < 0 {
		errs = append(errs, fmt.Errorf("top_n must be >= 0, got %d", c.TopN))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be >= 1, got %d", c.Workers))
	}
	if c.MaxSessions < 1 {
		errs = append(errs, fmt.Errorf("max_sessions must be >= 1, got %d", c.MaxSessions))
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}

	return errors.Join(errs...)
}
