package history

import (
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/hoistdl/hoist/internal/database"
	"github.com/hoistdl/hoist/internal/engine"
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

func completedJob(id, title string, size int64, at time.Time) engine.Job {
	return engine.Job{
		ID:          id,
		URL:         "https://example.com/v/" + id,
		Title:       title,
		Status:      engine.StatusCompleted,
		FileSize:    size,
		Resolution:  "1920x1080",
		Container:   "mkv",
		CreatedAt:   at.Add(-time.Minute),
		CompletedAt: &at,
	}
}

func TestServiceRecordAndGet(t *testing.T) {
	svc := newTestService(t)

	job := completedJob("job-1", "Some Video", 1024, time.Now())
	require.NoError(t, svc.Record(job))

	record, err := svc.GetByID("job-1")
	require.NoError(t, err)
	assert.Equal(t, "Some Video", record.Title)
	assert.Equal(t, int64(1024), record.FileSize)
	assert.Equal(t, "mkv", record.Container)
	require.NotNil(t, record.CompletedAt)
}

func TestServiceRecordFallsBackToURL(t *testing.T) {
	svc := newTestService(t)

	job := completedJob("job-1", "", 0, time.Now())
	require.NoError(t, svc.Record(job))

	record, err := svc.GetByID("job-1")
	require.NoError(t, err)
	assert.Equal(t, job.URL, record.Title)
}

func TestServiceListSorting(t *testing.T) {
	svc := newTestService(t)

	base := time.Now()
	require.NoError(t, svc.Record(completedJob("job-1", "Alpha", 100, base.Add(-2*time.Hour))))
	require.NoError(t, svc.Record(completedJob("job-2", "Charlie", 300, base.Add(-1*time.Hour))))
	require.NoError(t, svc.Record(completedJob("job-3", "Bravo", 200, base)))

	records, err := svc.List(FilterOptions{})
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "Bravo", records[0].Title) // recent first

	records, err = svc.List(FilterOptions{SortBy: SortOldestFirst})
	require.NoError(t, err)
	assert.Equal(t, "Alpha", records[0].Title)

	records, err = svc.List(FilterOptions{SortBy: SortTitleAsc})
	require.NoError(t, err)
	assert.Equal(t, "Alpha", records[0].Title)
	assert.Equal(t, "Charlie", records[2].Title)

	records, err = svc.List(FilterOptions{SortBy: SortSizeDesc})
	require.NoError(t, err)
	assert.Equal(t, int64(300), records[0].FileSize)
}

func TestServiceListFuzzySearch(t *testing.T) {
	svc := newTestService(t)

	now := time.Now()
	require.NoError(t, svc.Record(completedJob("job-1", "Conference Talk on Go Concurrency", 1, now)))
	require.NoError(t, svc.Record(completedJob("job-2", "Cooking Pasta at Home", 1, now)))
	require.NoError(t, svc.Record(completedJob("job-3", "Go Generics Deep Dive", 1, now)))

	records, err := svc.List(FilterOptions{SearchQuery: "go conc"})
	require.NoError(t, err)
	require.NotEmpty(t, records)
	assert.Equal(t, "Conference Talk on Go Concurrency", records[0].Title)
}

func TestServiceListPagination(t *testing.T) {
	svc := newTestService(t)

	base := time.Now()
	for i, title := range []string{"One", "Two", "Three", "Four"} {
		job := completedJob(title, title, 1, base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, svc.Record(job))
	}

	records, err := svc.List(FilterOptions{SortBy: SortOldestFirst, Limit: 2})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "One", records[0].Title)

	records, err = svc.List(FilterOptions{SortBy: SortOldestFirst, Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Three", records[0].Title)

	records, err = svc.List(FilterOptions{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestServiceDeleteAndClear(t *testing.T) {
	svc := newTestService(t)

	now := time.Now()
	require.NoError(t, svc.Record(completedJob("job-1", "One", 1, now)))
	require.NoError(t, svc.Record(completedJob("job-2", "Two", 1, now)))

	require.NoError(t, svc.DeleteByID("job-1"))
	_, err := svc.GetByID("job-1")
	assert.Error(t, err)

	require.NoError(t, svc.Clear())
	records, err := svc.List(FilterOptions{})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestServiceStats(t *testing.T) {
	svc := newTestService(t)

	stats, err := svc.GetStats()
	require.NoError(t, err)
	assert.Zero(t, stats.TotalItems)
	assert.Zero(t, stats.TotalBytes)

	now := time.Now()
	require.NoError(t, svc.Record(completedJob("job-1", "One", 100, now)))
	require.NoError(t, svc.Record(completedJob("job-2", "Two", 250, now)))

	stats, err = svc.GetStats()
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalItems)
	assert.Equal(t, int64(350), stats.TotalBytes)
}
