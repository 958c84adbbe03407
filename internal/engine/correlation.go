package engine

import (
	"sync"
)

// CorrelationEntry links a dispatch id to the job it was issued for and,
// for channel-originated jobs, to the durable remote-entity target.
type CorrelationEntry struct {
	JobID   string
	Channel *ChannelTarget
}

// CorrelationTable maps dispatch ids to correlation entries for the lifetime
// of a transfer. It has exactly one insert point (scheduler dispatch) and one
// delete point (terminal event delivery); no caller iterates it.
type CorrelationTable struct {
	mu      sync.Mutex
	entries map[string]CorrelationEntry
}

// NewCorrelationTable creates an empty correlation table
func NewCorrelationTable() *CorrelationTable {
	return &CorrelationTable{
		entries: make(map[string]CorrelationEntry),
	}
}

// Insert registers a dispatch. Called only by the scheduler worker that
// hands the job to the executor.
func (t *CorrelationTable) Insert(dispatchID string, e CorrelationEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[dispatchID] = e
}

// Lookup returns the entry for a dispatch id without removing it
func (t *CorrelationTable) Lookup(dispatchID string) (CorrelationEntry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[dispatchID]
	return e, ok
}

// Remove deletes and returns the entry for a dispatch id. A second Remove
// for the same id reports false, so duplicate terminal events cannot be
// processed twice.
func (t *CorrelationTable) Remove(dispatchID string) (CorrelationEntry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[dispatchID]
	if ok {
		delete(t.entries, dispatchID)
	}
	return e, ok
}

// Len returns the number of live entries
func (t *CorrelationTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
