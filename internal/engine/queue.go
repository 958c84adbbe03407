package engine

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrDuplicateURL is returned when a URL is already queued in a
	// non-terminal state
	ErrDuplicateURL = errors.New("url already in queue")

	// ErrJobNotFound is returned when no job matches the given id
	ErrJobNotFound = errors.New("job not found")
)

// Queue is the ordered, in-memory collection of jobs. Only the Scheduler and
// the Correlator mutate job status; everything else reads copies or removes.
type Queue struct {
	mu   sync.Mutex
	jobs []*Job
	byID map[string]*Job
}

// NewQueue creates an empty job queue
func NewQueue() *Queue {
	return &Queue{
		byID: make(map[string]*Job),
	}
}

// Enqueue accepts a descriptor and returns the new job's id. Submission is
// idempotent: a URL already present on a non-completed job is rejected.
func (q *Queue) Enqueue(d Descriptor) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, j := range q.jobs {
		if j.URL == d.URL && j.Status != StatusCompleted {
			return "", ErrDuplicateURL
		}
	}

	job := &Job{
		ID:           uuid.New().String(),
		URL:          d.URL,
		Title:        d.Title,
		Thumbnail:    d.Thumbnail,
		Duration:     d.Duration,
		Ordinal:      d.Ordinal,
		OrdinalTotal: d.OrdinalTotal,
		Status:       StatusPending,
		Snapshot:     d.Snapshot,
		Channel:      d.Channel,
		CreatedAt:    time.Now(),
	}

	q.jobs = append(q.jobs, job)
	q.byID[job.ID] = job

	return job.ID, nil
}

// Remove deletes a job from the queue by id
func (q *Queue) Remove(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.byID[id]; !ok {
		return ErrJobNotFound
	}

	delete(q.byID, id)
	for i, j := range q.jobs {
		if j.ID == id {
			q.jobs = append(q.jobs[:i], q.jobs[i+1:]...)
			break
		}
	}

	return nil
}

// ClearAll removes every job from the queue
func (q *Queue) ClearAll() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.jobs = nil
	q.byID = make(map[string]*Job)
}

// ClearCompleted removes completed jobs, leaving everything else in place
func (q *Queue) ClearCompleted() {
	q.mu.Lock()
	defer q.mu.Unlock()

	kept := q.jobs[:0]
	for _, j := range q.jobs {
		if j.Status == StatusCompleted {
			delete(q.byID, j.ID)
			continue
		}
		kept = append(kept, j)
	}
	q.jobs = kept
}

// Get returns a copy of the job with the given id
func (q *Queue) Get(id string) (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	j, ok := q.byID[id]
	if !ok {
		return Job{}, false
	}
	return *j, true
}

// Jobs returns copies of all jobs in queue order
func (q *Queue) Jobs() []Job {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Job, 0, len(q.jobs))
	for _, j := range q.jobs {
		out = append(out, *j)
	}
	return out
}

// ListPending returns copies of jobs eligible for scheduling
// (pending or errored, retry-eligible)
func (q *Queue) ListPending() []Job {
	q.mu.Lock()
	defer q.mu.Unlock()

	var out []Job
	for _, j := range q.jobs {
		if j.Status == StatusPending || j.Status == StatusError {
			out = append(out, *j)
		}
	}
	return out
}

// Len returns the number of jobs in the queue
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

// Update applies fn to the job with the given id while holding the queue
// lock. Returns false if the job is no longer tracked.
func (q *Queue) Update(id string, fn func(*Job)) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	j, ok := q.byID[id]
	if !ok {
		return false
	}
	fn(j)
	return true
}

// resetForRun snapshots pending and errored jobs into a work list, resetting
// their transient fields while preserving snapshot and ordinal metadata.
// Jobs already downloading or completed are left untouched.
func (q *Queue) resetForRun() []string {
	q.mu.Lock()
	defer q.mu.Unlock()

	var ids []string
	for _, j := range q.jobs {
		if j.Status != StatusPending && j.Status != StatusError {
			continue
		}
		j.Status = StatusPending
		j.Progress = 0
		j.Speed = 0
		j.ETA = 0
		j.DownloadedBytes = 0
		j.ElapsedTime = 0
		j.Error = ""
		ids = append(ids, j.ID)
	}
	return ids
}
