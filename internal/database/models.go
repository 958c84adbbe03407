package database

import (
	"time"

	"gorm.io/gorm"
)

// Setting represents a key-value store for application settings
type Setting struct {
	Key       string    `gorm:"primaryKey"`
	Value     string    `gorm:"not null"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP"`
}

// TableName overrides the table name
func (Setting) TableName() string {
	return "settings"
}

// Channel represents a tracked remote channel
type Channel struct {
	ID           uint      `gorm:"primaryKey"`
	ChannelID    string    `gorm:"not null;uniqueIndex"`
	Name         string    `gorm:"not null"`
	FeedURL      string    `gorm:"not null"`
	AutoDownload bool      `gorm:"not null"`
	CreatedAt    time.Time `gorm:"default:CURRENT_TIMESTAMP"`
}

// TableName overrides the table name
func (Channel) TableName() string {
	return "channels"
}

// ChannelVideo is the durable record of a remote video observed on a tracked
// channel. Its status drives poller dedup and must survive restarts.
type ChannelVideo struct {
	ID           uint       `gorm:"primaryKey"`
	VideoID      string     `gorm:"not null;uniqueIndex"`
	ChannelID    string     `gorm:"not null;index"`
	Title        string     `gorm:"not null"`
	URL          string     `gorm:"not null"`
	Status       string     `gorm:"not null;index"` // new, downloading, downloaded
	PublishedAt  time.Time  `gorm:""`
	CreatedAt    time.Time  `gorm:"default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time  `gorm:"default:CURRENT_TIMESTAMP"`
	DownloadedAt *time.Time `gorm:""`
}

// TableName overrides the table name
func (ChannelVideo) TableName() string {
	return "channel_videos"
}

// Download represents a finished download recorded for history
type Download struct {
	ID          string     `gorm:"primaryKey"`
	URL         string     `gorm:"not null;index"`
	Title       string     `gorm:"not null"`
	FileSize    int64      `gorm:"default:0"`
	Resolution  string     `gorm:""`
	Container   string     `gorm:""`
	CreatedAt   time.Time  `gorm:"default:CURRENT_TIMESTAMP"`
	CompletedAt *time.Time `gorm:""`
}

// TableName overrides the table name
func (Download) TableName() string {
	return "downloads"
}

// Migrate runs database migrations
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Setting{},
		&Channel{},
		&ChannelVideo{},
		&Download{},
	)
}
