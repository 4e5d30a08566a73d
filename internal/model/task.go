package model

import "time"

// Task is the queued handle to a Directory. A directory index appears in
// the queue at most once per session run.
type Task struct {
	ID             uint64
	DirectoryIndex int
	Priority       uint8
	EstimatedSize  int64
	CreatedAt      time.Time
}

// TaskStatus is the outcome a worker reports back for a dispatched Task.
type TaskStatus struct {
	Completed bool
	Duration  time.Duration
	Bytes     int64
	Err       error
}

// TaskResult is what a worker publishes on the result channel once a Task
// finishes, for the single collector goroutine to apply to Session rather
// than have every worker mutate shared state directly.
type TaskResult struct {
	DirectoryIndex int
	Status         TaskStatus
	FilesProcessed int64
}

// ShutdownTask is the zero-value sentinel a worker recognizes as a request
// to exit rather than real work, folded into the same channel so dispatch
// stays a single priority-ordered stream (see internal/pool).
var ShutdownTask = Task{ID: 0, DirectoryIndex: -1}

// IsShutdown reports whether t is the Shutdown marker.
func (t Task) IsShutdown() bool {
	return t.DirectoryIndex < 0
}

// ResourceSample is one tick of the resource sampler's live system
// snapshot.
type ResourceSample struct {
	CPUUsagePercent float64
	MemoryUsedMB    float64
	MemoryTotalMB   float64
	LoadAverage1M   float64
	CPUCount        int
	OptimalWorkers  int
}

// WorkloadProfile is the one-shot classification result produced before
// any task is enqueued.
type WorkloadProfile struct {
	Tag             WorkloadTag
	TotalSize       int64
	EstimatedFiles  int64
	DirectoryCount  int
	BaseWorkers     int
	MemoryPerWorker int
	Hint            string // "high" | "cpu-bound" | "io-bound" | "normal"
}
