// Package channels implements tracked-channel polling: durable seen-state
// for remote videos, feed fetching, and automatic handoff to the download
// scheduler.
package channels

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hoistdl/hoist/internal/database"
)

// Seen-state of a channel video. The state is durable so a restart never
// re-downloads what an earlier run already handled.
const (
	VideoStatusNew         = "new"
	VideoStatusDownloading = "downloading"
	VideoStatusDownloaded  = "downloaded"
)

var ErrChannelNotFound = errors.New("channel not found")

// Store persists tracked channels and their video seen-state
type Store struct {
	db *gorm.DB
}

// NewStore creates a channel store backed by the given database
func NewStore(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database cannot be nil")
	}
	return &Store{db: db}, nil
}

// AddChannel registers a channel for polling
func (s *Store) AddChannel(channelID, name string, autoDownload bool) (*database.Channel, error) {
	channel := &database.Channel{
		ChannelID:    channelID,
		Name:         name,
		FeedURL:      FeedURL(channelID),
		AutoDownload: autoDownload,
		CreatedAt:    time.Now(),
	}
	if err := s.db.Create(channel).Error; err != nil {
		return nil, fmt.Errorf("failed to add channel %s: %w", channelID, err)
	}
	return channel, nil
}

// ListChannels returns all tracked channels
func (s *Store) ListChannels() ([]database.Channel, error) {
	var channels []database.Channel
	if err := s.db.Order("created_at ASC").Find(&channels).Error; err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}
	return channels, nil
}

// RemoveChannel deletes a channel and its video seen-state
func (s *Store) RemoveChannel(channelID string) error {
	result := s.db.Where("channel_id = ?", channelID).Delete(&database.Channel{})
	if result.Error != nil {
		return fmt.Errorf("failed to remove channel %s: %w", channelID, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrChannelNotFound
	}
	if err := s.db.Where("channel_id = ?", channelID).Delete(&database.ChannelVideo{}).Error; err != nil {
		return fmt.Errorf("failed to remove videos for channel %s: %w", channelID, err)
	}
	return nil
}

// RecordVideos inserts newly observed videos with status new. Videos already
// known keep their existing state untouched.
func (s *Store) RecordVideos(channelID string, videos []FeedVideo) error {
	if len(videos) == 0 {
		return nil
	}

	rows := make([]database.ChannelVideo, 0, len(videos))
	now := time.Now()
	for _, v := range videos {
		rows = append(rows, database.ChannelVideo{
			VideoID:     v.VideoID,
			ChannelID:   channelID,
			Title:       v.Title,
			URL:         v.URL,
			Status:      VideoStatusNew,
			PublishedAt: v.PublishedAt,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}

	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "video_id"}},
		DoNothing: true,
	}).Create(&rows).Error
	if err != nil {
		return fmt.Errorf("failed to record videos for channel %s: %w", channelID, err)
	}
	return nil
}

// PendingVideos returns the videos of a channel still waiting for a download
func (s *Store) PendingVideos(channelID string) ([]database.ChannelVideo, error) {
	var videos []database.ChannelVideo
	err := s.db.
		Where("channel_id = ? AND status = ?", channelID, VideoStatusNew).
		Order("published_at ASC").
		Find(&videos).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list pending videos: %w", err)
	}
	return videos, nil
}

// MarkDownloading flags a video as handed to the scheduler
func (s *Store) MarkDownloading(videoID string) error {
	return s.setStatus(videoID, VideoStatusDownloading, nil)
}

// MarkDownloaded flags a video as successfully transferred
func (s *Store) MarkDownloaded(videoID string) error {
	now := time.Now()
	return s.setStatus(videoID, VideoStatusDownloaded, &now)
}

// MarkNew returns a video to the new state so the next poll retries it
func (s *Store) MarkNew(videoID string) error {
	return s.setStatus(videoID, VideoStatusNew, nil)
}

func (s *Store) setStatus(videoID, status string, downloadedAt *time.Time) error {
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	}
	if downloadedAt != nil {
		updates["downloaded_at"] = downloadedAt
	}

	result := s.db.Model(&database.ChannelVideo{}).
		Where("video_id = ?", videoID).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update video %s: %w", videoID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("video %s not tracked", videoID)
	}
	return nil
}

// VideoStatus returns the current seen-state of a video
func (s *Store) VideoStatus(videoID string) (string, error) {
	var video database.ChannelVideo
	if err := s.db.Where("video_id = ?", videoID).First(&video).Error; err != nil {
		return "", fmt.Errorf("failed to look up video %s: %w", videoID, err)
	}
	return video.Status, nil
}
