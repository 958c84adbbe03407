package engine

import (
	"context"
	"time"
)

// EventStatus is the state reported by a progress event
type EventStatus string

const (
	EventDownloading EventStatus = "downloading"
	EventFinished    EventStatus = "finished"
	EventError       EventStatus = "error"
)

// ProgressEvent is one notification from the external executor, keyed by the
// correlation id the job was dispatched with. Optional fields are pointers so
// partial events merge without clobbering fields they do not carry.
type ProgressEvent struct {
	ID     string
	Status EventStatus

	Percent         *float64
	Speed           *int64
	ETA             *time.Duration
	DownloadedBytes *int64
	ElapsedTime     *time.Duration

	ErrorMessage string

	// Final-file metadata, present on finished events
	FileSize   *int64
	Resolution string
	FormatExt  string

	PlaylistIndex *int
	PlaylistCount *int
}

// Executor is the boundary to the external download process. Start blocks
// until the transfer resolves; progress arrives out-of-band on Events.
type Executor interface {
	// Start runs one transfer, using correlationID to key progress events.
	// Network configuration is passed live, not from the snapshot.
	Start(ctx context.Context, correlationID, url string, snap SettingsSnapshot, network NetworkConfig) error

	// CancelAll requests cancellation of every in-flight transfer.
	// Best-effort, no per-job granularity.
	CancelAll(ctx context.Context) error

	// Events returns the shared progress stream. Subscribed to exactly once
	// for the process lifetime.
	Events() <-chan ProgressEvent
}

// RemoteItem is one entry of an expanded collection
type RemoteItem struct {
	URL       string
	Title     string
	Thumbnail string
	Duration  time.Duration
}

// Resolver expands a collection URL into its individual items
type Resolver interface {
	// Expand returns the collection's items in native remote order.
	// limit caps the number of items, 0 means unlimited.
	Expand(ctx context.Context, url string, limit int) ([]RemoteItem, error)
}
