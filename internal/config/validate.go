package config

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

func (c *Config) validate() error {
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("VIZSYNC_LOG_LEVEL: %w", err)
	}

	if c.FlushInterval < time.Millisecond || c.FlushInterval > time.Minute {
		return fmt.Errorf("VIZSYNC_FLUSH_INTERVAL must be between 1ms and 1m, got %s", c.FlushInterval)
	}

	if c.WatchDebounce < 10*time.Millisecond || c.WatchDebounce > time.Minute {
		return fmt.Errorf("VIZSYNC_WATCH_DEBOUNCE must be between 10ms and 1m, got %s", c.WatchDebounce)
	}

	if c.DefaultStyle == "" {
		return fmt.Errorf("VIZSYNC_DEFAULT_STYLE must not be empty")
	}

	return nil
}
