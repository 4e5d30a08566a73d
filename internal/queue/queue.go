// Package queue implements the priority-ordered task queue that feeds the
// worker pool's dispatch channel. It keeps a pending heap and a bounded
// channel as two separate structures, on purpose: the heap preserves
// priority ordering and the channel provides bounded, non-blocking
// hand-off. Collapsing them into one structure would lose either priority
// (a plain FIFO channel) or backpressure (an unbounded priority channel).
package queue

import (
	"container/heap"
	"sync"

	"github.com/duskvault/backupd/internal/model"
)

// Queue is a priority-ordered deque of Tasks with a bounded dispatch
// channel and a bounded result channel for completion notices.
type Queue struct {
	mu      sync.Mutex
	pending taskHeap
	seq     uint64 // insertion sequence, breaks priority ties FIFO

	dispatch chan model.Task
	results  chan model.TaskResult

	fullTicks int // consecutive sampling ticks the dispatch channel was observed full
}

// New creates a Queue sized for workerCount workers: dispatch capacity is
// 2×workerCount, result capacity is 4×workerCount.
func New(workerCount int) *Queue {
	if workerCount < 1 {
		workerCount = 1
	}
	return &Queue{
		dispatch: make(chan model.Task, 2*workerCount),
		results:  make(chan model.TaskResult, 4*workerCount),
	}
}

// Dispatch returns the channel workers receive Tasks (and Shutdown
// markers) from.
func (q *Queue) Dispatch() <-chan model.Task { return q.dispatch }

// Results returns the channel workers publish TaskResults on.
func (q *Queue) Results() chan<- model.TaskResult { return q.results }

// ResultsForCollector returns the results channel for the single
// collector goroutine to range over.
func (q *Queue) ResultsForCollector() <-chan model.TaskResult { return q.results }

// Push inserts a task, preserving stable FIFO order among equal
// priorities. A directory index must not already be pending; callers
// (the control plane) are responsible for enforcing the
// at-most-once invariant before calling Push.
func (q *Queue) Push(t model.Task) {
	q.mu.Lock()
	q.seq++
	entry := &heapEntry{task: t, seq: q.seq}
	heap.Push(&q.pending, entry)
	q.mu.Unlock()
}

// TryDispatchOne pops the highest-priority pending task and attempts a
// non-blocking send on the dispatch channel. If the channel is full, the
// task is pushed back onto the head of the pending heap (via its original
// sequence number, so FIFO order among equal priorities is preserved) and
// false is returned. Returns false with no pop if nothing is pending.
func (q *Queue) TryDispatchOne() bool {
	q.mu.Lock()
	if q.pending.Len() == 0 {
		q.mu.Unlock()
		return false
	}
	entry := heap.Pop(&q.pending).(*heapEntry)
	q.mu.Unlock()

	select {
	case q.dispatch <- entry.task:
		q.mu.Lock()
		q.fullTicks = 0
		q.mu.Unlock()
		return true
	default:
		q.mu.Lock()
		heap.Push(&q.pending, entry)
		q.mu.Unlock()
		return false
	}
}

// DrainDispatchable repeatedly calls TryDispatchOne until it returns
// false (either the channel is full or the heap is empty), returning the
// count of tasks actually dispatched.
func (q *Queue) DrainDispatchable() int {
	n := 0
	for q.TryDispatchOne() {
		n++
	}
	return n
}

// PendingLen reports how many tasks are waiting in the heap (not yet
// handed to the dispatch channel).
func (q *Queue) PendingLen() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending.Len()
}

// ObserveTick is called once per sampler tick by the scheduler. It tracks
// consecutive ticks where the dispatch channel was full with pending work
// still waiting, and reports whether that run has now exceeded one tick —
// the starvation signal that suppresses further task generation rather
// than retrying forever.
func (q *Queue) ObserveTick() (starved bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	full := len(q.dispatch) == cap(q.dispatch) && q.pending.Len() > 0
	if full {
		q.fullTicks++
	} else {
		q.fullTicks = 0
	}
	return q.fullTicks > 1
}

// PushShutdown enqueues a Shutdown marker directly onto the dispatch
// channel, bypassing the priority heap — shutdown markers carry no
// priority and must reach a worker even when real tasks are backed up.
// Blocks if the dispatch channel is full; callers issuing shutdown during
// drain are expected to tolerate this.
func (q *Queue) PushShutdown(t model.Task) {
	q.dispatch <- t
}

// CloseDispatch closes the dispatch channel once every shutdown marker
// has been sent and no further tasks will ever be pushed.
func (q *Queue) CloseDispatch() {
	close(q.dispatch)
}

type heapEntry struct {
	task model.Task
	seq  uint64
}

// taskHeap orders by descending priority, then ascending sequence number
// (stable FIFO within a priority band).
type taskHeap []*heapEntry

func (h taskHeap) Len() int { return len(h) }
func (h taskHeap) Less(i, j int) bool {
	if h[i].task.Priority != h[j].task.Priority {
		return h[i].task.Priority > h[j].task.Priority
	}
	return h[i].seq < h[j].seq
}
func (h taskHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *taskHeap) Push(x interface{}) {
	*h = append(*h, x.(*heapEntry))
}

func (h *taskHeap) Pop() interface{} {
	old := *h
	n := len(old)
	entry := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return entry
}
