// Package tracker maintains the supervisor's concurrent map of tracked OS
// processes, one per running instance name, and their lifecycle transitions.
package tracker

import (
	"sync"
	"time"

	"github.com/saba-chan/saba-core/internal/domain"
)

// Tracker is a concurrent map {instance name -> TrackedProcess}. All
// operations are atomic over an internal exclusive lock; the map's
// operations are short-lived so a single mutex (rather than a
// reader-writer lock) is used, per the supervisor's concurrency model.
type Tracker struct {
	mu        sync.Mutex
	processes map[string]domain.TrackedProcess
}

// New creates an empty Tracker.
func New() *Tracker {
	return &Tracker{processes: make(map[string]domain.TrackedProcess)}
}

// Track records pid as the process for name, replacing any prior entry
// (used when an instance restarts).
func (t *Tracker) Track(name string, pid int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now().Unix()
	t.processes[name] = domain.TrackedProcess{
		PID:       pid,
		Status:    domain.StatusRunning,
		StartTime: now,
		LastCheck: now,
	}
}

// Untrack removes name's entry, if any.
func (t *Tracker) Untrack(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.processes, name)
}

// GetPID returns the tracked PID for name, if any.
func (t *Tracker) GetPID(name string) (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.processes[name]
	if !ok {
		return 0, false
	}
	return p.PID, true
}

// GetStatus returns the tracked status for name, if any.
func (t *Tracker) GetStatus(name string) (domain.ProcessStatus, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.processes[name]
	if !ok {
		return "", false
	}
	return p.Status, true
}

// GetStartTime returns the tracked start time for name, if any.
func (t *Tracker) GetStartTime(name string) (int64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.processes[name]
	if !ok {
		return 0, false
	}
	return p.StartTime, true
}

// MarkCrashed transitions name's entry to Crashed, touching LastCheck.
// It is a no-op (not an error) if name isn't tracked — the monitor loop
// calls this opportunistically after process liveness checks.
func (t *Tracker) MarkCrashed(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.processes[name]
	if !ok {
		return
	}
	p.Status = domain.StatusCrashed
	p.LastCheck = time.Now().Unix()
	t.processes[name] = p
}

// Touch updates LastCheck for name without altering status. Used by the
// monitor loop on a successful liveness probe.
func (t *Tracker) Touch(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.processes[name]
	if !ok {
		return
	}
	p.LastCheck = time.Now().Unix()
	t.processes[name] = p
}

// Get returns a copy of name's TrackedProcess, if any.
func (t *Tracker) Get(name string) (domain.TrackedProcess, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.processes[name]
	return p, ok
}

// Names returns every currently tracked instance name.
func (t *Tracker) Names() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.processes))
	for n := range t.processes {
		out = append(out, n)
	}
	return out
}

// Snapshot returns a copy of the full tracked-process map.
func (t *Tracker) Snapshot() map[string]domain.TrackedProcess {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]domain.TrackedProcess, len(t.processes))
	for k, v := range t.processes {
		out[k] = v
	}
	return out
}
