package config

import (
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	// Point at a config file that does not exist so defaults apply
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")

	cfg, v, err := Load(cfgPath)
	require.NoError(t, err)
	require.NotNil(t, v)

	assert.Equal(t, 3, cfg.Downloads.Concurrent)
	assert.Equal(t, "best", cfg.Downloads.Quality)
	assert.Equal(t, "mkv", cfg.Downloads.Container)
	assert.Equal(t, 0, cfg.Downloads.PlaylistLimit)
	assert.Equal(t, []string{"en"}, cfg.Downloads.SubtitleLanguages)
	assert.Equal(t, 15*time.Minute, cfg.Channels.PollInterval)
	assert.True(t, cfg.Channels.AutoDownload)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Database.WALMode)
	assert.Empty(t, cfg.Network.Proxy)
}

func TestLoadClampsConcurrency(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, SaveDefaultConfig(cfgPath))

	cfg, _, err := Load(cfgPath)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, cfg.Downloads.Concurrent, 1)
}

func TestSaveDefaultConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "nested", "config.yaml")

	err := SaveDefaultConfig(cfgPath)
	require.NoError(t, err)

	cfg, _, err := Load(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "best", cfg.Downloads.Quality)
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"INFO", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLogLevel(tt.input))
		})
	}
}
