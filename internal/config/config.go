// Package config provides configuration loading and validation for the commlink service.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Mode selects the backing data source for the whole process. It is
// resolved exactly once at startup; nothing downstream branches on it
// again.
type Mode string

const (
	// ModeLive serves reads and writes from PostgreSQL.
	ModeLive Mode = "live"
	// ModeSynthetic serves a deterministic in-memory fixture set.
	ModeSynthetic Mode = "synthetic"
)

// Config represents the service configuration. Values are resolved in
// order: defaults, then an optional JSON file, then environment
// variables. All fields are optional in the file.
type Config struct {
	Port        int    `json:"port,omitempty"`         // HTTP listen port
	Mode        Mode   `json:"mode,omitempty"`         // live or synthetic
	DatabaseURL string `json:"database_url,omitempty"` // PostgreSQL connection URL (live mode)

	// FeedBuffer is the per-subscriber event buffer capacity. When a
	// subscriber falls this far behind, oldest events are dropped and
	// the subscription is marked resync-required.
	FeedBuffer int `json:"feed_buffer,omitempty"`

	// SyntheticSeed seeds the fixture generator in synthetic mode.
	// Fixtures are generated once per process, so repeated reads are
	// stable for a given seed.
	SyntheticSeed int64 `json:"synthetic_seed,omitempty"`

	Verbose bool `json:"verbose,omitempty"` // Print detailed debug information
}

// Defaults returns the built-in configuration defaults.
func Defaults() Config {
	return Config{
		Port:          8080,
		Mode:          ModeLive,
		FeedBuffer:    64,
		SyntheticSeed: 42,
	}
}

// Load resolves the effective configuration: defaults, overridden by
// the JSON file at path (if path is non-empty), overridden by
// environment variables.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if !filepath.IsAbs(path) {
			cwd, err := os.Getwd()
			if err != nil {
				return nil, fmt.Errorf("failed to get current directory: %w", err)
			}
			path = filepath.Join(cwd, path)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv overrides config fields from environment variables.
func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Port = port
		}
	}
	if v := os.Getenv("COMMLINK_MODE"); v != "" {
		c.Mode = Mode(v)
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv("COMMLINK_FEED_BUFFER"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.FeedBuffer = n
		}
	}
	if v := os.Getenv("COMMLINK_SYNTHETIC_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.SyntheticSeed = n
		}
	}
}

// Validate checks that the configuration has usable values.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config error: invalid port %d", c.Port)
	}

	switch c.Mode {
	case ModeLive:
		if c.DatabaseURL == "" {
			return fmt.Errorf("config error: live mode requires a database URL (set DATABASE_URL)")
		}
	case ModeSynthetic:
		// No database needed.
	default:
		return fmt.Errorf("config error: unknown mode %q (want %q or %q)", c.Mode, ModeLive, ModeSynthetic)
	}

	if c.FeedBuffer <= 0 {
		return fmt.Errorf("config error: feed_buffer must be positive")
	}

	return nil
}
