// Package history records completed downloads and serves filtered lookups
// over them.
package history

import (
	"fmt"
	"strings"
	"time"

	"github.com/sahilm/fuzzy"
	"gorm.io/gorm"

	"github.com/hoistdl/hoist/internal/database"
	"github.com/hoistdl/hoist/internal/engine"
)

// Service provides download history management
type Service struct {
	db *gorm.DB
}

// SortOrder defines the sorting order for history listings
type SortOrder string

const (
	SortRecentFirst SortOrder = "recent_first"
	SortOldestFirst SortOrder = "oldest_first"
	SortTitleAsc    SortOrder = "title_asc"
	SortTitleDesc   SortOrder = "title_desc"
	SortSizeDesc    SortOrder = "size_desc"
)

// FilterOptions defines filtering options for history queries
type FilterOptions struct {
	SearchQuery string    // fuzzy match against the title
	StartDate   time.Time // filter by completion date range
	EndDate     time.Time
	Limit       int // 0 = no limit
	Offset      int
	SortBy      SortOrder
}

// Stats summarizes the recorded downloads
type Stats struct {
	TotalItems int64
	TotalBytes int64
}

// NewService creates a new history service
func NewService(db *gorm.DB) (*Service, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return &Service{db: db}, nil
}

// Record persists a completed job. Called from the scheduler's completion
// callback, never for failed or cancelled jobs.
func (s *Service) Record(job engine.Job) error {
	title := job.Title
	if title == "" {
		title = job.URL
	}

	record := database.Download{
		ID:          job.ID,
		URL:         job.URL,
		Title:       title,
		FileSize:    job.FileSize,
		Resolution:  job.Resolution,
		Container:   job.Container,
		CreatedAt:   job.CreatedAt,
		CompletedAt: job.CompletedAt,
	}
	if err := s.db.Create(&record).Error; err != nil {
		return fmt.Errorf("failed to record download %s: %w", job.ID, err)
	}
	return nil
}

// List retrieves downloads with filtering and sorting. The fuzzy search runs
// in memory after the database filters, the data set is a personal download
// log and stays small.
func (s *Service) List(filter FilterOptions) ([]database.Download, error) {
	query := s.db.Model(&database.Download{})

	if !filter.StartDate.IsZero() {
		query = query.Where("completed_at >= ?", filter.StartDate)
	}
	if !filter.EndDate.IsZero() {
		query = query.Where("completed_at <= ?", filter.EndDate)
	}

	switch filter.SortBy {
	case SortOldestFirst:
		query = query.Order("completed_at ASC")
	case SortTitleAsc:
		query = query.Order("title ASC")
	case SortTitleDesc:
		query = query.Order("title DESC")
	case SortSizeDesc:
		query = query.Order("file_size DESC")
	default: // SortRecentFirst
		query = query.Order("completed_at DESC")
	}

	var records []database.Download
	if err := query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch history: %w", err)
	}

	if filter.SearchQuery != "" {
		records = fuzzyFilter(records, filter.SearchQuery)
	}

	if filter.Offset > 0 {
		if filter.Offset >= len(records) {
			return nil, nil
		}
		records = records[filter.Offset:]
	}
	if filter.Limit > 0 && len(records) > filter.Limit {
		records = records[:filter.Limit]
	}

	return records, nil
}

// GetByID retrieves a specific download record
func (s *Service) GetByID(id string) (*database.Download, error) {
	var record database.Download
	if err := s.db.First(&record, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch download %s: %w", id, err)
	}
	return &record, nil
}

// DeleteByID removes one download record
func (s *Service) DeleteByID(id string) error {
	return s.db.Delete(&database.Download{}, "id = ?", id).Error
}

// Clear removes the whole download history
func (s *Service) Clear() error {
	return s.db.Where("1 = 1").Delete(&database.Download{}).Error
}

// GetStats summarizes the recorded downloads
func (s *Service) GetStats() (*Stats, error) {
	var stats Stats

	if err := s.db.Model(&database.Download{}).Count(&stats.TotalItems).Error; err != nil {
		return nil, err
	}

	var totalBytes *int64
	if err := s.db.Model(&database.Download{}).Select("SUM(file_size)").Scan(&totalBytes).Error; err != nil {
		return nil, err
	}
	if totalBytes != nil {
		stats.TotalBytes = *totalBytes
	}

	return &stats, nil
}

// fuzzyFilter narrows records to the ones whose title fuzzy-matches the
// query, best matches first
func fuzzyFilter(records []database.Download, query string) []database.Download {
	titles := make([]string, len(records))
	for i, r := range records {
		titles[i] = strings.ToLower(r.Title)
	}

	// fuzzy.Find returns matches ordered best-first
	matches := fuzzy.Find(strings.ToLower(query), titles)

	filtered := make([]database.Download, 0, len(matches))
	for _, m := range matches {
		filtered = append(filtered, records[m.Index])
	}
	return filtered
}
