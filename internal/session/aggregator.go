// Package session owns the single mutable Session aggregate shared
// between the control plane's command consumer and the worker pool. It
// is the only component both sides touch directly; everything else
// reaches Session's data only through the accessors here.
package session

import (
	"sync"
	"time"

	"github.com/duskvault/backupd/internal/model"
)

// Aggregator guards a *model.Session behind a read/write lock. Long
// operations (a worker awaiting subprocess I/O) never hold the lock —
// they acquire it briefly per line update through UpdateDirectory.
type Aggregator struct {
	mu  sync.RWMutex
	sv  *model.Session
	bus *bus
}

// New wraps sv for guarded access. sv must not be touched directly by any
// caller after this call.
func New(sv *model.Session) *Aggregator {
	return &Aggregator{sv: sv, bus: newBus()}
}

// Directory returns a snapshot copy of the directory at index, safe to
// read without holding any lock afterward.
func (a *Aggregator) Directory(index int) model.Directory {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.sv.Directories[index]
}

// UpdateDirectory applies fn to the directory at index under the write
// lock, then re-derives completed_size from the authoritative per-
// directory fields and publishes a ProgressUpdate event. Re-deriving
// rather than accumulating keeps the result correct even when worker
// updates arrive out of order or are replayed.
func (a *Aggregator) UpdateDirectory(index int, fn func(d *model.Directory)) {
	a.mu.Lock()
	fn(&a.sv.Directories[index])
	d := a.sv.Directories[index]
	a.recomputeCompletedSizeLocked()
	completed := d.Status == model.EDirectoryStatus.Completed()
	failed := d.Status == model.EDirectoryStatus.Error()
	a.mu.Unlock()

	a.bus.Publish(Event{Type: EventProgressUpdate, DirectoryIndex: index, Progress: d.Progress})
	if completed {
		a.bus.Publish(Event{Type: EventDirectoryCompleted, DirectoryIndex: index})
	}
	if failed {
		a.bus.Publish(Event{Type: EventError, DirectoryIndex: index, Message: "directory sync failed"})
	}
}

// recomputeCompletedSizeLocked must be called with the write lock held.
func (a *Aggregator) recomputeCompletedSizeLocked() {
	var sum int64
	for i := range a.sv.Directories {
		sum += a.sv.Directories[i].SizeCopied()
	}
	a.sv.CompletedSize = sum
}

// AppendError records a log entry in the session's error list and
// publishes an Error event.
func (a *Aggregator) AppendError(entry model.LogEntry) {
	a.mu.Lock()
	a.sv.Errors = append(a.sv.Errors, entry)
	a.mu.Unlock()
	a.bus.Publish(Event{Type: EventError, Message: entry.Message})
}

// TransitionState applies a SessionState change if legal, publishing
// StateChanged on success.
func (a *Aggregator) TransitionState(next model.SessionState) bool {
	a.mu.Lock()
	ok := a.sv.State == next || a.sv.State.CanTransitionTo(next)
	if ok {
		a.sv.State = next
	}
	a.mu.Unlock()
	if ok {
		a.bus.Publish(Event{Type: EventStateChanged})
	}
	return ok
}

// State returns the current SessionState.
func (a *Aggregator) State() model.SessionState {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.sv.State
}

// Directories returns a copy of the full directory list, for classifier
// input and Snapshot rendering.
func (a *Aggregator) Directories() []model.Directory {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]model.Directory, len(a.sv.Directories))
	copy(out, a.sv.Directories)
	return out
}

// SetDirectories replaces the directory list wholesale — used by
// ScanDirectories before a run starts.
func (a *Aggregator) SetDirectories(dirs []model.Directory) {
	a.mu.Lock()
	a.sv.Directories = dirs
	var total int64
	for _, d := range dirs {
		if d.Selected {
			total += d.EstimatedBytes
		}
	}
	a.sv.TotalSize = total
	a.mu.Unlock()
}

// Raw returns a deep-enough copy of the Session for persistence or
// Snapshot rendering. Callers must not mutate the Directories slice in
// place.
func (a *Aggregator) Raw() model.Session {
	a.mu.RLock()
	defer a.mu.RUnlock()
	cp := *a.sv
	cp.Directories = make([]model.Directory, len(a.sv.Directories))
	copy(cp.Directories, a.sv.Directories)
	cp.Errors = append([]model.LogEntry(nil), a.sv.Errors...)
	return cp
}

// Subscribe returns a channel of events and an unsubscribe function, per
// the best-effort lossy broadcast contract: a slow subscriber misses
// events rather than blocking publication.
func (a *Aggregator) Subscribe() (<-chan Event, func()) {
	return a.bus.Subscribe()
}

// StartTime records when the run began, for elapsed-time rendering.
func (a *Aggregator) StartTime() time.Time {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.sv.StartTime
}

// SetStartTime is called once by the control plane when a run begins.
func (a *Aggregator) SetStartTime(t time.Time) {
	a.mu.Lock()
	a.sv.StartTime = t
	a.mu.Unlock()
}
