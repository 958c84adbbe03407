package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Scheduler drains pending and errored jobs from the queue with bounded
// concurrency, dispatching each to the external executor. User submissions
// and channel auto-downloads share one Scheduler instance, so the
// concurrency limit holds globally rather than per surface.
type Scheduler struct {
	mu      sync.Mutex
	running bool
	stopped atomic.Bool
	wg      sync.WaitGroup

	queue *Queue
	exec  Executor
	table *CorrelationTable

	// limit and network are read at start/dispatch time so config hot
	// reloads apply to the next run without restarting the process
	limit   func() int
	network func() NetworkConfig

	logger *slog.Logger

	onAuthRequired func(jobID string)
	onCompleted    func(job Job)
}

// NewScheduler creates a scheduler over the given queue and executor
func NewScheduler(queue *Queue, exec Executor, table *CorrelationTable, limit func() int, network func() NetworkConfig, logger *slog.Logger) (*Scheduler, error) {
	if queue == nil {
		return nil, fmt.Errorf("queue cannot be nil")
	}
	if exec == nil {
		return nil, fmt.Errorf("executor cannot be nil")
	}
	if table == nil {
		return nil, fmt.Errorf("correlation table cannot be nil")
	}
	if limit == nil {
		return nil, fmt.Errorf("concurrency limit accessor cannot be nil")
	}
	if network == nil {
		return nil, fmt.Errorf("network config accessor cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		queue:   queue,
		exec:    exec,
		table:   table,
		limit:   limit,
		network: network,
		logger:  logger,
	}, nil
}

// OnAuthRequired sets the callback raised when a job fails with an
// authentication-class error. The affected job still lands in error status;
// siblings keep running.
func (s *Scheduler) OnAuthRequired(fn func(jobID string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onAuthRequired = fn
}

// OnJobCompleted sets the callback invoked with a copy of each job that
// reaches completed status
func (s *Scheduler) OnJobCompleted(fn func(job Job)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onCompleted = fn
}

// Running reports whether a run is in progress
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Start launches a run over the current pending/errored jobs. Idempotent
// while a run is already active. Returns immediately; workers run in the
// background until the work list drains or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	ids := s.queue.resetForRun()
	if len(ids) == 0 {
		return nil
	}

	// Worker count is fixed before any item is popped; sizing lazily off a
	// shrinking list would under-provision workers.
	workers := s.limit()
	if workers < 1 {
		workers = 1
	}
	if workers > len(ids) {
		workers = len(ids)
	}

	work := make(chan string, len(ids))
	for _, id := range ids {
		work <- id
	}
	close(work)

	s.stopped.Store(false)
	s.running = true

	s.logger.Info("starting run", "jobs", len(ids), "workers", workers)

	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go func(workerID int) {
			defer s.wg.Done()
			s.runWorker(ctx, workerID, work)
		}(i)
	}

	go func() {
		s.wg.Wait()
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		s.logger.Info("run finished")
	}()

	return nil
}

// Stop sets the global stop flag and requests executor-side cancellation.
// Best-effort and non-blocking: jobs already in flight land in a terminal
// state through their own completion path or return to pending if the
// cancellation interrupts them.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.stopped.Store(true)
	return s.exec.CancelAll(ctx)
}

// Wait blocks until the current run's workers have exited
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) runWorker(ctx context.Context, workerID int, work <-chan string) {
	logger := s.logger.With("worker_id", workerID)

	for jobID := range work {
		if s.stopped.Load() || ctx.Err() != nil {
			return
		}

		job, ok := s.queue.Get(jobID)
		if !ok {
			// Removed while waiting in the work list
			continue
		}

		s.queue.Update(jobID, func(j *Job) {
			j.Status = StatusDownloading
		})
		s.table.Insert(jobID, CorrelationEntry{JobID: jobID, Channel: job.Channel})

		logger.Info("dispatching job", "job_id", jobID, "url", job.URL)

		err := s.exec.Start(ctx, jobID, job.URL, job.Snapshot, s.network())
		if err != nil {
			s.handleFailure(logger, jobID, err)
			continue
		}

		now := time.Now()
		var done Job
		s.queue.Update(jobID, func(j *Job) {
			j.Status = StatusCompleted
			j.Progress = 100
			j.Speed = 0
			j.ETA = 0
			j.CompletedAt = &now
			done = *j
		})
		logger.Info("job completed", "job_id", jobID)

		if fn := s.completedCallback(); fn != nil && done.ID != "" {
			fn(done)
		}
	}
}

func (s *Scheduler) handleFailure(logger *slog.Logger, jobID string, err error) {
	if s.stopped.Load() {
		// Interrupted by an explicit stop: back to pending so a stopped run
		// is distinguishable from a failed one
		s.queue.Update(jobID, func(j *Job) {
			j.Status = StatusPending
			j.Progress = 0
			j.Speed = 0
			j.ETA = 0
			j.Error = ""
		})
		logger.Info("job returned to pending after stop", "job_id", jobID)
		return
	}

	msg := err.Error()
	class := Classify(msg)

	s.queue.Update(jobID, func(j *Job) {
		j.Status = StatusError
		j.Error = msg
		j.Speed = 0
		j.ETA = 0
	})
	logger.Warn("job failed", "job_id", jobID, "class", class, "error", msg)

	if class == ClassFatalAuth {
		if fn := s.authCallback(); fn != nil {
			fn(jobID)
		}
	}
}

// Retry resets an errored job back to pending, preserving its settings
// snapshot, and kicks a run if none is active
func (s *Scheduler) Retry(ctx context.Context, jobID string) error {
	job, ok := s.queue.Get(jobID)
	if !ok {
		return ErrJobNotFound
	}
	if job.Status != StatusError {
		return fmt.Errorf("can only retry errored jobs, job is %s", job.Status)
	}

	s.queue.Update(jobID, func(j *Job) {
		j.Status = StatusPending
		j.Error = ""
		j.Progress = 0
	})

	return s.Start(ctx)
}

func (s *Scheduler) completedCallback() func(Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.onCompleted
}

func (s *Scheduler) authCallback() func(string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.onAuthRequired
}
