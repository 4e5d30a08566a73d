// Package pool implements the bounded set of long-lived workers that
// consume tasks from the queue and drive the subprocess monitor. The
// scaling controller grows and shrinks it through the narrow GetCount/
// Add/Remove surface; the pool never reaches back into the controller —
// only the sampler's tick loop talks to both.
package pool

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/duskvault/backupd/internal/logging"
	"github.com/duskvault/backupd/internal/model"
	"github.com/duskvault/backupd/internal/monitor"
	"github.com/duskvault/backupd/internal/queue"
)

// DirectorySource resolves a directory index to its current snapshot so a
// worker can hand the monitor a consistent view without holding the
// session lock for the whole subprocess lifetime.
type DirectorySource interface {
	Directory(index int) model.Directory
}

// SessionView is everything a worker needs from the session aggregate: a
// read of the current directory snapshot, and the sink the monitor
// publishes progress through.
type SessionView interface {
	DirectorySource
	monitor.ProgressSink
}

// Pool runs workers against a shared queue. Worker ids are dense 0..N-1
// with holes after a shrink — a removed id is never reissued to a new
// worker in the same pool lifetime, so logs stay unambiguous.
type Pool struct {
	mu      sync.Mutex
	workers map[int]*worker
	nextID  int
	active  int32 // shared "currently running a task" counter

	q    *queue.Queue
	mon  *monitor.Monitor
	dirs SessionView
	log  *logging.Logger
	ctx  context.Context

	// cap is a hard ceiling on live workers, independent of whatever count
	// the Scaling Controller asks for; Add refuses to grow past it rather
	// than overshoot.
	cap *semaphore.Weighted
}

type worker struct {
	id   int
	done chan struct{}
}

// New creates an empty Pool capped at maxWorkers live workers. Call Add to
// bring it up to its initial size.
func New(ctx context.Context, q *queue.Queue, mon *monitor.Monitor, dirs SessionView, log *logging.Logger, maxWorkers int) *Pool {
	if log == nil {
		log = logging.NewNop()
	}
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &Pool{
		workers: make(map[int]*worker),
		q:       q,
		mon:     mon,
		dirs:    dirs,
		log:     log,
		ctx:     ctx,
		cap:     semaphore.NewWeighted(int64(maxWorkers)),
	}
}

// GetCount reports the live worker count, satisfying the controller's
// abstract collaborator interface.
func (p *Pool) GetCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.workers)
}

// ActiveCount reports how many workers are currently running a task
// rather than idly waiting on the dispatch channel.
func (p *Pool) ActiveCount() int {
	return int(atomic.LoadInt32(&p.active))
}

// Add brings up to n additional workers, refusing to exceed the pool's
// hard cap; callers asking for more than there is room for get fewer than
// requested rather than blocking.
func (p *Pool) Add(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := 0; i < n; i++ {
		if !p.cap.TryAcquire(1) {
			p.log.Logf(logging.LevelWarning, "worker pool at capacity, refusing to grow further")
			return
		}
		id := p.nextID
		p.nextID++
		w := &worker{id: id, done: make(chan struct{})}
		p.workers[id] = w
		go p.runWorker(w)
	}
}

// Remove submits n Shutdown markers onto the dispatch channel. It does
// not block on workers actually exiting — they leave at their next loop
// iteration, and reap below removes their map entries as they exit.
func (p *Pool) Remove(n int) {
	for i := 0; i < n; i++ {
		p.q.PushShutdown(model.ShutdownTask)
	}
}

// Shutdown submits exactly one marker per live worker and waits (up to
// grace) for all of them to exit, for a clean Stop.
func (p *Pool) Shutdown(grace time.Duration) {
	p.mu.Lock()
	handles := make([]*worker, 0, len(p.workers))
	for _, w := range p.workers {
		handles = append(handles, w)
	}
	p.mu.Unlock()

	p.Remove(len(handles))

	ctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	for _, w := range handles {
		w := w
		g.Go(func() error {
			select {
			case <-w.done:
				return nil
			case <-ctx.Done():
				p.log.Logf(logging.LevelWarning, "worker %d did not exit within grace period", w.id)
				return ctx.Err()
			}
		})
	}
	_ = g.Wait()
}

func (p *Pool) runWorker(w *worker) {
	defer close(w.done)
	defer p.reap(w.id)

	for {
		select {
		case <-p.ctx.Done():
			return
		case task, ok := <-p.q.Dispatch():
			if !ok {
				return
			}
			if task.IsShutdown() {
				return
			}
			p.runTask(w, task)
		}
	}
}

func (p *Pool) runTask(w *worker, task model.Task) {
	atomic.AddInt32(&p.active, 1)
	defer atomic.AddInt32(&p.active, -1)

	p.dirs.UpdateDirectory(task.DirectoryIndex, func(d *model.Directory) {
		d.TransitionTo(model.EDirectoryStatus.Active())
		d.StartTime = time.Now()
	})
	dir := p.dirs.Directory(task.DirectoryIndex)
	status, filesProcessed, err := p.mon.Run(p.ctx, task.DirectoryIndex, dir, p.dirs)
	if err != nil {
		p.log.Logf(logging.LevelWarning, "worker %d: directory %q failed: %v", w.id, dir.Name, err)
	}

	p.q.Results() <- model.TaskResult{
		DirectoryIndex: task.DirectoryIndex,
		Status:         status,
		FilesProcessed: filesProcessed,
	}
}

func (p *Pool) reap(id int) {
	p.mu.Lock()
	delete(p.workers, id)
	p.mu.Unlock()
	p.cap.Release(1)
}
