package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/vizsync/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")

	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 50*time.Millisecond, cfg.FlushInterval)
	assert.Equal(t, ".vizsync", cfg.StorePath)
	assert.Equal(t, "default", cfg.DefaultStyle)
	assert.Equal(t, 2*time.Second, cfg.WatchDebounce)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("VIZSYNC_LOG_LEVEL", "debug")
	t.Setenv("VIZSYNC_FLUSH_INTERVAL", "10ms")
	t.Setenv("VIZSYNC_STORE_PATH", "/tmp/store")
	t.Setenv("VIZSYNC_DEFAULT_STYLE", "Base")
	t.Setenv("VIZSYNC_WATCH_DEBOUNCE", "500ms")

	cfg, err := config.Load("")

	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 10*time.Millisecond, cfg.FlushInterval)
	assert.Equal(t, "/tmp/store", cfg.StorePath)
	assert.Equal(t, "Base", cfg.DefaultStyle)
	assert.Equal(t, 500*time.Millisecond, cfg.WatchDebounce)
	assert.Equal(t, logrus.DebugLevel, cfg.NewLogger().GetLevel())
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string][2]string{
		"BadLevel":         {"VIZSYNC_LOG_LEVEL", "loud"},
		"BadDuration":      {"VIZSYNC_FLUSH_INTERVAL", "soon"},
		"FlushTooLong":     {"VIZSYNC_FLUSH_INTERVAL", "2m"},
		"DebounceTooShort": {"VIZSYNC_WATCH_DEBOUNCE", "1ms"},
	}
	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			t.Setenv(env[0], env[1])
			_, err := config.Load("")
			assert.Error(t, err)
		})
	}
}

func TestLoad_File(t *testing.T) {
	t.Setenv("VIZSYNC_STORE_PATH", "/from/env")
	path := filepath.Join(t.TempDir(), "vizsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte("default_style: Publication\nwatch_debounce: 1s\n"), 0o644))

	cfg, err := config.Load(path)

	require.NoError(t, err)
	assert.Equal(t, "Publication", cfg.DefaultStyle)
	assert.Equal(t, time.Second, cfg.WatchDebounce)
	assert.Equal(t, "/from/env", cfg.StorePath)

	_, err = config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("log_level: [\n"), 0o644))
	_, err = config.Load(path)
	assert.Error(t, err)
}
