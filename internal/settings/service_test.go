package settings

import (
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/hoistdl/hoist/internal/config"
	"github.com/hoistdl/hoist/internal/database"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	svc, err := NewService(db)
	require.NoError(t, err)
	return svc
}

func TestLoadDownloadsWithoutOverrides(t *testing.T) {
	svc := newTestService(t)

	base := config.DownloadsConfig{Quality: "1080p", Concurrent: 3}
	loaded, err := svc.LoadDownloads(base)
	require.NoError(t, err)
	assert.Equal(t, base, loaded)
}

func TestSaveAndLoadDownloads(t *testing.T) {
	svc := newTestService(t)

	edited := config.DownloadsConfig{
		Quality:           "720p",
		Container:         "mp4",
		Concurrent:        2,
		AudioOnly:         true,
		SubtitleLanguages: []string{"en", "de"},
	}
	require.NoError(t, svc.SaveDownloads(edited))

	loaded, err := svc.LoadDownloads(config.DownloadsConfig{Quality: "1080p"})
	require.NoError(t, err)
	assert.Equal(t, "720p", loaded.Quality)
	assert.Equal(t, []string{"en", "de"}, loaded.SubtitleLanguages)
	assert.True(t, loaded.AudioOnly)
}

func TestSaveDownloadsOverwrites(t *testing.T) {
	svc := newTestService(t)

	require.NoError(t, svc.SaveDownloads(config.DownloadsConfig{Quality: "720p"}))
	require.NoError(t, svc.SaveDownloads(config.DownloadsConfig{Quality: "480p"}))

	loaded, err := svc.LoadDownloads(config.DownloadsConfig{})
	require.NoError(t, err)
	assert.Equal(t, "480p", loaded.Quality)
}

func TestReset(t *testing.T) {
	svc := newTestService(t)

	require.NoError(t, svc.SaveDownloads(config.DownloadsConfig{Quality: "720p"}))
	require.NoError(t, svc.Reset())

	base := config.DownloadsConfig{Quality: "1080p"}
	loaded, err := svc.LoadDownloads(base)
	require.NoError(t, err)
	assert.Equal(t, base, loaded)
}
