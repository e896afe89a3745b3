// Package config provides environment-driven configuration for vizsync.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration values.
type Config struct {
	LogLevel      string        `yaml:"log_level"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	StorePath     string        `yaml:"store_path"`
	DefaultStyle  string        `yaml:"default_style"`
	WatchDebounce time.Duration `yaml:"watch_debounce"`
}

// Load reads configuration from environment variables with sensible
// defaults. A non-empty path names a YAML file whose values override the
// environment.
func Load(path string) (*Config, error) {
	cfg := &Config{
		LogLevel:     envOrDefault("VIZSYNC_LOG_LEVEL", "info"),
		StorePath:    envOrDefault("VIZSYNC_STORE_PATH", ".vizsync"),
		DefaultStyle: envOrDefault("VIZSYNC_DEFAULT_STYLE", "default"),
	}

	var err error
	cfg.FlushInterval, err = time.ParseDuration(envOrDefault("VIZSYNC_FLUSH_INTERVAL", "50ms"))
	if err != nil {
		return nil, fmt.Errorf("VIZSYNC_FLUSH_INTERVAL must be a duration: %w", err)
	}
	cfg.WatchDebounce, err = time.ParseDuration(envOrDefault("VIZSYNC_WATCH_DEBOUNCE", "2s"))
	if err != nil {
		return nil, fmt.Errorf("VIZSYNC_WATCH_DEBOUNCE must be a duration: %w", err)
	}

	if path != "" {
		if err := cfg.overlay(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// overlay replaces every value set in the YAML file at path.
func (c *Config) overlay(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
