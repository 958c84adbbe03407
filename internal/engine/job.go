package engine

import (
	"time"
)

// Status represents the lifecycle state of a Job
type Status string

const (
	StatusPending     Status = "pending"
	StatusDownloading Status = "downloading"
	StatusCompleted   Status = "completed"
	StatusError       Status = "error"
)

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// IsActive returns true if the job is currently being transferred
func (s Status) IsActive() bool {
	return s == StatusDownloading
}

// IsTerminal returns true once a run is done with the job. Error jobs are
// terminal for run accounting but remain retry-eligible.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusError
}

// ChannelTarget links a job back to the durable channel-video record it was
// created for, so terminal events can update seen-state that outlives the job.
type ChannelTarget struct {
	VideoID   string
	ChannelID string
}

// Job is one queued unit of work representing a single transfer
type Job struct {
	ID        string
	URL       string
	Title     string
	Thumbnail string
	Duration  time.Duration

	// Position within an expanded collection, 1-based. Zero means the job
	// did not come from a collection.
	Ordinal      int
	OrdinalTotal int

	Status          Status
	Progress        float64 // 0.0 - 100.0
	Speed           int64   // bytes per second
	ETA             time.Duration
	DownloadedBytes int64
	ElapsedTime     time.Duration
	Error           string

	// Snapshot is fixed at enqueue time and never re-derived afterward
	Snapshot SettingsSnapshot

	Channel *ChannelTarget

	// Populated once on completion, never overwritten
	FileSize   int64
	Resolution string
	Container  string

	CreatedAt   time.Time
	CompletedAt *time.Time
}

// Descriptor describes a job to be enqueued
type Descriptor struct {
	URL          string
	Title        string
	Thumbnail    string
	Duration     time.Duration
	Ordinal      int
	OrdinalTotal int
	Snapshot     SettingsSnapshot
	Channel      *ChannelTarget
}
