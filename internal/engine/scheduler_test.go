package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeExecutor blocks each Start call until released, tracking the peak
// number of concurrent transfers
type fakeExecutor struct {
	mu            sync.Mutex
	events        chan ProgressEvent
	release       chan struct{}
	started       []string
	concurrent    int
	maxConcurrent int
	failWith      map[string]error // url -> error
	cancelled     bool
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{
		events:   make(chan ProgressEvent, 64),
		release:  make(chan struct{}),
		failWith: make(map[string]error),
	}
}

func (f *fakeExecutor) Start(ctx context.Context, correlationID, url string, snap SettingsSnapshot, network NetworkConfig) error {
	f.mu.Lock()
	f.started = append(f.started, url)
	f.concurrent++
	if f.concurrent > f.maxConcurrent {
		f.maxConcurrent = f.concurrent
	}
	release := f.release
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.concurrent--
		f.mu.Unlock()
	}()

	select {
	case <-release:
	case <-ctx.Done():
		return ctx.Err()
	}

	f.mu.Lock()
	cancelled := f.cancelled
	err := f.failWith[url]
	f.mu.Unlock()

	if cancelled {
		return errors.New("cancelled")
	}
	return err
}

func (f *fakeExecutor) CancelAll(ctx context.Context) error {
	f.mu.Lock()
	f.cancelled = true
	f.mu.Unlock()
	return nil
}

func (f *fakeExecutor) Events() <-chan ProgressEvent {
	return f.events
}

func (f *fakeExecutor) startedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.started)
}

func (f *fakeExecutor) peak() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxConcurrent
}

func newTestScheduler(t *testing.T, q *Queue, exec Executor, limit int) *Scheduler {
	t.Helper()
	s, err := NewScheduler(q, exec, NewCorrelationTable(),
		func() int { return limit },
		func() NetworkConfig { return NetworkConfig{} },
		slog.Default())
	require.NoError(t, err)
	return s
}

func countByStatus(q *Queue, status Status) int {
	n := 0
	for _, j := range q.Jobs() {
		if j.Status == status {
			n++
		}
	}
	return n
}

func TestSchedulerConcurrencyBound(t *testing.T) {
	q := NewQueue()
	for i := 1; i <= 5; i++ {
		_, err := q.Enqueue(Descriptor{URL: fmt.Sprintf("https://example.com/v/%d", i)})
		require.NoError(t, err)
	}

	exec := newFakeExecutor()
	s := newTestScheduler(t, q, exec, 2)

	require.NoError(t, s.Start(context.Background()))

	// Exactly two jobs reach downloading before any completes
	require.Eventually(t, func() bool {
		return countByStatus(q, StatusDownloading) == 2
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, countByStatus(q, StatusCompleted))

	close(exec.release)
	s.Wait()

	assert.LessOrEqual(t, exec.peak(), 2)
	assert.Equal(t, 5, countByStatus(q, StatusCompleted)+countByStatus(q, StatusError))
	assert.Equal(t, 5, exec.startedCount())
}

func TestSchedulerWorkerCountCappedByWorkList(t *testing.T) {
	q := NewQueue()
	_, err := q.Enqueue(Descriptor{URL: "https://example.com/v/1"})
	require.NoError(t, err)

	exec := newFakeExecutor()
	s := newTestScheduler(t, q, exec, 8)

	require.NoError(t, s.Start(context.Background()))
	close(exec.release)
	s.Wait()

	assert.Equal(t, 1, exec.peak())
	assert.Equal(t, 1, countByStatus(q, StatusCompleted))
}

func TestSchedulerStartIdempotentWhileRunning(t *testing.T) {
	q := NewQueue()
	_, err := q.Enqueue(Descriptor{URL: "https://example.com/v/1"})
	require.NoError(t, err)

	exec := newFakeExecutor()
	s := newTestScheduler(t, q, exec, 2)

	require.NoError(t, s.Start(context.Background()))
	require.Eventually(t, func() bool { return exec.startedCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	// A second Start during an active run must not fan out more workers
	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, 1, exec.startedCount())

	close(exec.release)
	s.Wait()
}

func TestSchedulerPerJobFailureIsolated(t *testing.T) {
	q := NewQueue()
	_, err := q.Enqueue(Descriptor{URL: "https://example.com/v/good"})
	require.NoError(t, err)
	_, err = q.Enqueue(Descriptor{URL: "https://example.com/v/bad"})
	require.NoError(t, err)

	exec := newFakeExecutor()
	exec.failWith["https://example.com/v/bad"] = errors.New("transfer exploded")
	s := newTestScheduler(t, q, exec, 2)

	require.NoError(t, s.Start(context.Background()))
	close(exec.release)
	s.Wait()

	assert.Equal(t, 1, countByStatus(q, StatusCompleted))
	assert.Equal(t, 1, countByStatus(q, StatusError))

	for _, j := range q.Jobs() {
		if j.Status == StatusError {
			assert.Equal(t, "transfer exploded", j.Error)
		}
	}
}

func TestSchedulerStopReturnsJobsToPending(t *testing.T) {
	q := NewQueue()
	for i := 1; i <= 4; i++ {
		_, err := q.Enqueue(Descriptor{URL: fmt.Sprintf("https://example.com/v/%d", i)})
		require.NoError(t, err)
	}

	exec := newFakeExecutor()
	s := newTestScheduler(t, q, exec, 2)

	require.NoError(t, s.Start(context.Background()))
	require.Eventually(t, func() bool {
		return countByStatus(q, StatusDownloading) == 2
	}, 2*time.Second, 10*time.Millisecond)

	startedBefore := exec.startedCount()
	require.NoError(t, s.Stop(context.Background()))
	close(exec.release)
	s.Wait()

	// In-flight jobs came back to pending, not error, and nothing new started
	assert.Equal(t, 0, countByStatus(q, StatusDownloading))
	assert.Equal(t, 0, countByStatus(q, StatusError))
	assert.Equal(t, 4, countByStatus(q, StatusPending))
	assert.Equal(t, startedBefore, exec.startedCount())
}

func TestSchedulerRetryPreservesSnapshot(t *testing.T) {
	q := NewQueue()
	snap := SettingsSnapshot{Quality: "720p", Container: "mkv", SubtitleLanguages: []string{"en", "de"}}
	id, err := q.Enqueue(Descriptor{URL: "https://example.com/v/1", Snapshot: snap})
	require.NoError(t, err)

	exec := newFakeExecutor()
	exec.failWith["https://example.com/v/1"] = errors.New("flaky network")
	s := newTestScheduler(t, q, exec, 1)

	require.NoError(t, s.Start(context.Background()))
	close(exec.release)
	s.Wait()

	job, _ := q.Get(id)
	require.Equal(t, StatusError, job.Status)

	// Fix the executor and retry; the snapshot must survive unchanged even
	// though live settings could have drifted since enqueue
	exec.mu.Lock()
	delete(exec.failWith, "https://example.com/v/1")
	exec.release = make(chan struct{})
	close(exec.release)
	exec.mu.Unlock()

	require.NoError(t, s.Retry(context.Background(), id))
	s.Wait()

	job, _ = q.Get(id)
	assert.Equal(t, StatusCompleted, job.Status)
	assert.Equal(t, snap, job.Snapshot)
}

func TestSchedulerRetryRejectsNonErroredJobs(t *testing.T) {
	q := NewQueue()
	id, err := q.Enqueue(Descriptor{URL: "https://example.com/v/1"})
	require.NoError(t, err)

	exec := newFakeExecutor()
	s := newTestScheduler(t, q, exec, 1)

	err = s.Retry(context.Background(), id)
	assert.Error(t, err)

	assert.ErrorIs(t, s.Retry(context.Background(), "missing"), ErrJobNotFound)
}

func TestSchedulerAuthCallback(t *testing.T) {
	q := NewQueue()
	id, err := q.Enqueue(Descriptor{URL: "https://example.com/v/1"})
	require.NoError(t, err)

	exec := newFakeExecutor()
	exec.failWith["https://example.com/v/1"] = errors.New("ERROR: Sign in to confirm you're not a bot")
	s := newTestScheduler(t, q, exec, 1)

	var mu sync.Mutex
	var authJobs []string
	s.OnAuthRequired(func(jobID string) {
		mu.Lock()
		authJobs = append(authJobs, jobID)
		mu.Unlock()
	})

	require.NoError(t, s.Start(context.Background()))
	close(exec.release)
	s.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{id}, authJobs)

	job, _ := q.Get(id)
	assert.Equal(t, StatusError, job.Status)
}

func TestSchedulerCompletedCallback(t *testing.T) {
	q := NewQueue()
	_, err := q.Enqueue(Descriptor{URL: "https://example.com/v/1", Title: "Some Video"})
	require.NoError(t, err)

	exec := newFakeExecutor()
	s := newTestScheduler(t, q, exec, 1)

	var mu sync.Mutex
	var completed []Job
	s.OnJobCompleted(func(job Job) {
		mu.Lock()
		completed = append(completed, job)
		mu.Unlock()
	})

	require.NoError(t, s.Start(context.Background()))
	close(exec.release)
	s.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, completed, 1)
	assert.Equal(t, "Some Video", completed[0].Title)
	assert.Equal(t, StatusCompleted, completed[0].Status)
	require.NotNil(t, completed[0].CompletedAt)
}
