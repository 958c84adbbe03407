// Package settings persists user-edited download preferences in the
// database, layered over the file configuration.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/hoistdl/hoist/internal/config"
	"github.com/hoistdl/hoist/internal/database"
)

const downloadsKey = "downloads"

// Service stores configuration overrides as JSON blobs in the settings table
type Service struct {
	db *gorm.DB
}

// NewService creates a settings service
func NewService(db *gorm.DB) (*Service, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return &Service{db: db}, nil
}

// LoadDownloads applies any stored download overrides on top of the given
// base configuration. Returns the base unchanged when nothing is stored.
func (s *Service) LoadDownloads(base config.DownloadsConfig) (config.DownloadsConfig, error) {
	var setting database.Setting
	err := s.db.First(&setting, "key = ?", downloadsKey).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return base, nil
	}
	if err != nil {
		return base, fmt.Errorf("failed to load download settings: %w", err)
	}

	if err := json.Unmarshal([]byte(setting.Value), &base); err != nil {
		return base, fmt.Errorf("failed to decode download settings: %w", err)
	}
	return base, nil
}

// SaveDownloads stores the download configuration as the new override blob
func (s *Service) SaveDownloads(cfg config.DownloadsConfig) error {
	value, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode download settings: %w", err)
	}

	setting := database.Setting{
		Key:       downloadsKey,
		Value:     string(value),
		UpdatedAt: time.Now(),
	}
	if err := s.db.Save(&setting).Error; err != nil {
		return fmt.Errorf("failed to save download settings: %w", err)
	}
	return nil
}

// Reset removes the stored overrides so the file configuration applies again
func (s *Service) Reset() error {
	return s.db.Delete(&database.Setting{}, "key = ?", downloadsKey).Error
}
