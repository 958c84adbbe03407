package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Correlator consumes the executor's shared progress stream and merges each
// event into the matching job. It only patches fields; terminal status is
// owned by the scheduler's own await-based transition. For channel-originated
// jobs it additionally resolves the durable target and fires the seen-state
// hooks exactly once per transfer.
type Correlator struct {
	mu sync.Mutex

	queue  *Queue
	table  *CorrelationTable
	events <-chan ProgressEvent
	logger *slog.Logger

	onChannelDownloaded func(target ChannelTarget)
	onChannelFailed     func(target ChannelTarget)
}

// NewCorrelator creates a correlator over the executor's event stream
func NewCorrelator(queue *Queue, table *CorrelationTable, events <-chan ProgressEvent, logger *slog.Logger) (*Correlator, error) {
	if queue == nil {
		return nil, fmt.Errorf("queue cannot be nil")
	}
	if table == nil {
		return nil, fmt.Errorf("correlation table cannot be nil")
	}
	if events == nil {
		return nil, fmt.Errorf("event stream cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Correlator{
		queue:  queue,
		table:  table,
		events: events,
		logger: logger,
	}, nil
}

// SetChannelHooks wires the durable seen-state updates fired on terminal
// events for jobs carrying a channel target
func (c *Correlator) SetChannelHooks(downloaded, failed func(target ChannelTarget)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChannelDownloaded = downloaded
	c.onChannelFailed = failed
}

// Run consumes the event stream until the context is cancelled or the stream
// closes. Called once per process, typically in its own goroutine.
func (c *Correlator) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-c.events:
			if !ok {
				return
			}
			c.handle(ev)
		}
	}
}

func (c *Correlator) handle(ev ProgressEvent) {
	known := c.queue.Update(ev.ID, func(j *Job) {
		mergeEvent(j, ev)
	})
	if !known {
		// Job already removed or the dispatch belongs to another subsystem
		c.logger.Debug("dropping event for untracked job", "id", ev.ID, "status", ev.Status)
	}

	if ev.Status != EventFinished && ev.Status != EventError {
		return
	}

	// Single delete point: a duplicate terminal event finds no entry and
	// cannot double-fire the durable update
	entry, ok := c.table.Remove(ev.ID)
	if !ok || entry.Channel == nil {
		return
	}

	downloaded, failed := c.channelHooks()
	switch ev.Status {
	case EventFinished:
		if downloaded != nil {
			downloaded(*entry.Channel)
		}
	case EventError:
		if failed != nil {
			failed(*entry.Channel)
		}
	}
}

// mergeEvent patches the fields the event carries into the job. Status is
// never flipped away from downloading here, and completed-only fields are
// populated once.
func mergeEvent(j *Job, ev ProgressEvent) {
	if ev.Percent != nil {
		j.Progress = *ev.Percent
	}
	if ev.Speed != nil {
		j.Speed = *ev.Speed
	}
	if ev.ETA != nil {
		j.ETA = *ev.ETA
	}
	if ev.DownloadedBytes != nil {
		j.DownloadedBytes = *ev.DownloadedBytes
	}
	if ev.ElapsedTime != nil {
		j.ElapsedTime = *ev.ElapsedTime
	}
	if ev.PlaylistIndex != nil && j.Ordinal == 0 {
		j.Ordinal = *ev.PlaylistIndex
	}
	if ev.PlaylistCount != nil && j.OrdinalTotal == 0 {
		j.OrdinalTotal = *ev.PlaylistCount
	}

	if ev.Status == EventFinished {
		if ev.FileSize != nil && j.FileSize == 0 {
			j.FileSize = *ev.FileSize
		}
		if ev.Resolution != "" && j.Resolution == "" {
			j.Resolution = ev.Resolution
		}
		if ev.FormatExt != "" && j.Container == "" {
			j.Container = ev.FormatExt
		}
	}
}

func (c *Correlator) channelHooks() (func(ChannelTarget), func(ChannelTarget)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.onChannelDownloaded, c.onChannelFailed
}
