package channels

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hoistdl/hoist/internal/engine"
)

// FeedSource abstracts feed retrieval so the poller can be tested without
// the network
type FeedSource interface {
	Fetch(ctx context.Context, channelID string) (*Feed, error)
}

// PollSettings are the live polling knobs, re-read on every cycle so config
// edits apply without a restart
type PollSettings struct {
	Interval     time.Duration
	FetchRetries int
	AutoDownload bool
}

// Poller periodically diffs tracked channel feeds against the durable
// seen-state and hands fresh videos to the shared scheduler. It never owns
// its own worker pool, concurrency limits apply to manual and polled
// downloads alike.
type Poller struct {
	store    *Store
	feeds    FeedSource
	queue    *engine.Queue
	sched    *engine.Scheduler
	settings func() PollSettings
	snapshot func() engine.SettingsSnapshot
	logger   *slog.Logger

	stop chan struct{}
}

// NewPoller creates a poller bound to the shared queue and scheduler
func NewPoller(store *Store, feeds FeedSource, queue *engine.Queue, sched *engine.Scheduler, settings func() PollSettings, snapshot func() engine.SettingsSnapshot, logger *slog.Logger) (*Poller, error) {
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if feeds == nil {
		return nil, fmt.Errorf("feed source cannot be nil")
	}
	if queue == nil {
		return nil, fmt.Errorf("queue cannot be nil")
	}
	if sched == nil {
		return nil, fmt.Errorf("scheduler cannot be nil")
	}
	if settings == nil {
		return nil, fmt.Errorf("settings accessor cannot be nil")
	}
	if snapshot == nil {
		return nil, fmt.Errorf("snapshot accessor cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Poller{
		store:    store,
		feeds:    feeds,
		queue:    queue,
		sched:    sched,
		settings: settings,
		snapshot: snapshot,
		logger:   logger,
		stop:     make(chan struct{}),
	}, nil
}

// Run polls immediately and then on every interval until the context is
// cancelled or Stop is called. Blocks, run it in its own goroutine.
func (p *Poller) Run(ctx context.Context) {
	p.PollOnce(ctx)

	for {
		interval := p.settings().Interval
		if interval <= 0 {
			interval = 15 * time.Minute
		}

		select {
		case <-ctx.Done():
			return
		case <-p.stop:
			return
		case <-time.After(interval):
			p.PollOnce(ctx)
		}
	}
}

// Stop ends the polling loop. Safe to call once.
func (p *Poller) Stop() {
	close(p.stop)
}

// PollOnce runs a single polling cycle over all tracked channels. One
// channel failing never blocks the rest.
func (p *Poller) PollOnce(ctx context.Context) {
	tracked, err := p.store.ListChannels()
	if err != nil {
		p.logger.Error("failed to list channels for polling", "error", err)
		return
	}
	if len(tracked) == 0 {
		return
	}

	settings := p.settings()
	submitted := 0
	for _, channel := range tracked {
		if ctx.Err() != nil || p.stopped() {
			return
		}

		feed, err := p.fetchWithBackoff(ctx, channel.ChannelID, settings.FetchRetries)
		if err != nil {
			p.logger.Warn("channel poll failed", "channel_id", channel.ChannelID, "error", err)
			continue
		}

		if err := p.store.RecordVideos(channel.ChannelID, feed.Videos); err != nil {
			p.logger.Error("failed to record channel videos", "channel_id", channel.ChannelID, "error", err)
			continue
		}

		if settings.AutoDownload && channel.AutoDownload {
			submitted += p.submitPending(channel.ChannelID)
		}
	}

	if submitted > 0 {
		p.logger.Info("auto-enqueued channel videos", "count", submitted)
		if err := p.sched.Start(ctx); err != nil {
			p.logger.Error("failed to start scheduler after poll", "error", err)
		}
	}
}

// fetchWithBackoff retries a feed fetch with exponential backoff. The sleep
// is interruptible so shutdown never waits out a backoff window.
func (p *Poller) fetchWithBackoff(ctx context.Context, channelID string, retries int) (*Feed, error) {
	if retries < 0 {
		retries = 0
	}

	var lastErr error
	delay := time.Second
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			p.logger.Debug("retrying channel feed", "channel_id", channelID, "attempt", attempt, "delay", delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-p.stop:
				return nil, fmt.Errorf("poller stopped")
			}
			delay *= 2
			if delay > 30*time.Second {
				delay = 30 * time.Second
			}
		}

		feed, err := p.feeds.Fetch(ctx, channelID)
		if err == nil {
			return feed, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// submitPending moves a channel's new videos into the queue. The durable
// state flips to downloading before the enqueue so a concurrent poll cannot
// double-submit, and rolls back if the queue rejects the job.
func (p *Poller) submitPending(channelID string) int {
	pending, err := p.store.PendingVideos(channelID)
	if err != nil {
		p.logger.Error("failed to list pending videos", "channel_id", channelID, "error", err)
		return 0
	}

	snap := p.snapshot()
	submitted := 0
	for _, video := range pending {
		if err := p.store.MarkDownloading(video.VideoID); err != nil {
			p.logger.Error("failed to mark video downloading", "video_id", video.VideoID, "error", err)
			continue
		}

		_, err := p.queue.Enqueue(engine.Descriptor{
			URL:      video.URL,
			Title:    video.Title,
			Snapshot: snap,
			Channel: &engine.ChannelTarget{
				VideoID:   video.VideoID,
				ChannelID: channelID,
			},
		})
		if err != nil {
			p.logger.Warn("queue rejected channel video", "video_id", video.VideoID, "error", err)
			if rollbackErr := p.store.MarkNew(video.VideoID); rollbackErr != nil {
				p.logger.Error("failed to roll back video state", "video_id", video.VideoID, "error", rollbackErr)
			}
			continue
		}
		submitted++
	}
	return submitted
}

func (p *Poller) stopped() bool {
	select {
	case <-p.stop:
		return true
	default:
		return false
	}
}
