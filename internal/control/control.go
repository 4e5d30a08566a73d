// Package control implements the control plane: it owns the Stopped/
// Running/Paused lifecycle, accepts Start/Pause/Stop/RestoreSession/
// ScanDirectories, and exposes Snapshot and event subscription to
// whatever adapter sits in front of it (HTTP, CLI, or an in-process
// caller). Commands are serialized through a single-consumer goroutine so
// the state diagram never sees two transitions race.
package control

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/duskvault/backupd/internal/classifier"
	"github.com/duskvault/backupd/internal/config"
	"github.com/duskvault/backupd/internal/fsutil"
	"github.com/duskvault/backupd/internal/logging"
	"github.com/duskvault/backupd/internal/model"
	"github.com/duskvault/backupd/internal/monitor"
	"github.com/duskvault/backupd/internal/pool"
	"github.com/duskvault/backupd/internal/queue"
	"github.com/duskvault/backupd/internal/sampler"
	"github.com/duskvault/backupd/internal/scaler"
	"github.com/duskvault/backupd/internal/session"
	"github.com/duskvault/backupd/internal/store"
)

const mountVerifyTimeout = 10 * time.Second
const stopGracePeriod = 5 * time.Second

// Controller is the control plane.
type Controller struct {
	cfg *config.Config
	log *logging.Logger
	st  store.Store

	verifyMount func(string) error
	spawner     monitor.Spawner

	agg *session.Aggregator

	mu         sync.Mutex // guards the run-scoped collaborators below
	q          *queue.Queue
	workerPool *pool.Pool
	samp       *sampler.Sampler
	scale      *scaler.Controller
	runCancel  context.CancelFunc
	collectorDone chan struct{}
}

// New wires a Controller around an empty session, ready for
// ScanDirectories and Start.
func New(cfg *config.Config, log *logging.Logger, st store.Store) *Controller {
	agg := session.New(model.NewSession())
	return &Controller{cfg: cfg, log: log, st: st, agg: agg, verifyMount: fsutil.VerifyMount}
}

// WithMountVerifier overrides the mount-verification precondition check,
// for tests that can't construct a real mount point.
func (c *Controller) WithMountVerifier(fn func(string) error) *Controller {
	c.verifyMount = fn
	return c
}

// WithSpawner overrides how the sync subprocess is spawned, for tests
// that substitute a script in place of the real sync tool.
func (c *Controller) WithSpawner(s monitor.Spawner) *Controller {
	c.spawner = s
	return c
}

// ScanDirectories populates the session's directory list from the
// configured home-directory root, estimating size per directory.
func (c *Controller) ScanDirectories(root string) error {
	dirs, err := fsutil.ScanDirectories(root, monitor.DefaultExcludes)
	if err != nil {
		return errors.Wrap(err, "scan directories")
	}
	c.agg.SetDirectories(dirs)
	return nil
}

// RestoreSession replaces the current session's directory list with sv's,
// resetting Error directories to Pending and leaving Completed ones as they
// are, so a re-run only re-queues Pending and Error directories rather
// than starting over. sv's ID, state, errors and start time are not
// carried over.
func (c *Controller) RestoreSession(sv model.Session) {
	dirs := make([]model.Directory, len(sv.Directories))
	for i, d := range sv.Directories {
		if d.Status == model.EDirectoryStatus.Error() {
			d.Status = model.EDirectoryStatus.Pending()
			d.Progress = 0
		}
		dirs[i] = d
	}
	c.agg.SetDirectories(dirs)
}

// Start begins a run. parallel selects whether the initial pool size
// comes from the classifier's advisory base_workers (true) or a single
// worker (false, useful for debugging one directory at a time). dryRun
// runs classification and enqueues nothing — directories stay Pending
// with their estimated sizes visible for review.
func (c *Controller) Start(parallel, dryRun bool) error {
	if err := c.verifyMount(c.cfg.BackupDest); err != nil {
		c.agg.AppendError(model.LogEntry{Timestamp: time.Now(), Level: model.LogError, Message: err.Error()})
		return errors.Wrap(model.ErrPreconditionFailed, err.Error())
	}
	if !c.agg.TransitionState(model.ESessionState.Running()) {
		return model.ErrInvalidTransition
	}
	c.agg.SetStartTime(time.Now())

	if dryRun {
		c.runDryRun()
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	c.runCancel = cancel

	dirs := c.agg.Directories()
	profile := classifier.Classify(dirs, c.initialOptimalGuess())

	initialWorkers := profile.BaseWorkers
	if !parallel {
		initialWorkers = 1
	}
	if initialWorkers < c.cfg.MinWorkers {
		initialWorkers = c.cfg.MinWorkers
	}
	if initialWorkers > c.cfg.MaxWorkers {
		initialWorkers = c.cfg.MaxWorkers
	}

	c.q = queue.New(initialWorkers)
	mon := monitor.New("rsync", c.cfg.BackupDest, c.log)
	if c.spawner != nil {
		mon = mon.WithSpawner(c.spawner)
	}
	c.workerPool = pool.New(ctx, c.q, mon, c.agg, c.log, c.cfg.MaxWorkers)
	c.workerPool.Add(initialWorkers)

	enqueued := c.enqueuePendingLocked(dirs)

	c.scale = scaler.New(scaler.Params{
		MinWorkers:        c.cfg.MinWorkers,
		MaxWorkers:        c.cfg.MaxWorkers,
		TargetCPUPercent:  c.cfg.TargetCPUPercent,
		MinFreeMemoryMB:   float64(c.cfg.MinFreeMemoryMB),
		MemoryPerWorkerMB: float64(profile.MemoryPerWorker),
		LoadAvgPerCore:    c.cfg.LoadAvgPerCore,
	}, c.workerPool)

	c.samp = sampler.New(sampler.Params{
		MinWorkers:        c.cfg.MinWorkers,
		MaxWorkers:        c.cfg.MaxWorkers,
		TargetCPUPercent:  c.cfg.TargetCPUPercent,
		MemoryPerWorkerMB: profile.MemoryPerWorker,
		LoadAvgPerCore:    c.cfg.LoadAvgPerCore,
		Interval:          time.Duration(c.cfg.SamplerInterval) * time.Second,
	})

	c.collectorDone = make(chan struct{})
	go c.collectResults(ctx, c.q, enqueued)

	if c.cfg.DynamicScaling {
		go c.samp.Run(ctx, func(sample model.ResourceSample, err error) {
			if err != nil {
				c.log.Logf(logging.LevelWarning, "resource sample failed: %v", err)
				return
			}
			c.mu.Lock()
			sc := c.scale
			c.mu.Unlock()
			if sc != nil {
				sc.Evaluate(sample)
			}
			c.q.ObserveTick()
		})
	}

	return nil
}

// runDryRun classifies and estimates without spawning any subprocess or
// transitioning any directory past Pending.
func (c *Controller) runDryRun() {
	dirs := c.agg.Directories()
	_ = classifier.Classify(dirs, c.initialOptimalGuess())
	c.agg.TransitionState(model.ESessionState.Stopped())
}

func (c *Controller) initialOptimalGuess() int {
	if c.cfg.MaxWorkers > 0 {
		return c.cfg.MaxWorkers
	}
	return c.cfg.MinWorkers
}

// enqueuePendingLocked pushes one task per selected, Pending directory and
// returns how many it enqueued. Caller holds c.mu.
func (c *Controller) enqueuePendingLocked(dirs []model.Directory) int {
	var id uint64
	enqueued := 0
	for i, d := range dirs {
		if !d.Selected || d.Status != model.EDirectoryStatus.Pending() {
			continue
		}
		id++
		enqueued++
		c.q.Push(model.Task{
			ID:             id,
			DirectoryIndex: i,
			Priority:       d.Priority(),
			EstimatedSize:  d.EstimatedBytes,
			CreatedAt:      time.Now(),
		})
	}
	c.q.DrainDispatchable()
	return enqueued
}

// collectResults is the single collector goroutine that applies
// TaskResults, keeping concurrent mutation of shared counters out of
// worker fast paths.
func (c *Controller) collectResults(ctx context.Context, q *queue.Queue, pendingCount int) {
	defer close(c.collectorDone)

	if pendingCount == 0 {
		c.agg.TransitionState(model.ESessionState.Stopped())
		_ = c.st.SaveSession(c.agg.Raw())
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case res, ok := <-q.ResultsForCollector():
			if !ok {
				return
			}
			if res.Status.Err != nil {
				c.agg.AppendError(model.LogEntry{
					Timestamp: time.Now(),
					Level:     model.LogError,
					Message:   res.Status.Err.Error(),
					Directory: c.agg.Directory(res.DirectoryIndex).Name,
				})
			}
			pendingCount--
			if pendingCount <= 0 {
				c.agg.TransitionState(model.ESessionState.Stopped())
				_ = c.st.SaveSession(c.agg.Raw())
				return
			}
		}
	}
}

// Pause moves the session to Paused. Running children are not killed.
// Dispatch is not gated on the session state: workers keep taking tasks
// already queued for the run, including after their current task ends.
func (c *Controller) Pause() error {
	if !c.agg.TransitionState(model.ESessionState.Paused()) {
		return model.ErrInvalidTransition
	}
	return nil
}

// Stop initiates a full drain: new work is rejected, every live worker
// receives a Shutdown marker, and Stop waits up to the grace period for
// sync children to exit before returning.
func (c *Controller) Stop() error {
	c.mu.Lock()
	wp := c.workerPool
	cancel := c.runCancel
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if wp != nil {
		wp.Shutdown(stopGracePeriod)
	}
	if !c.agg.TransitionState(model.ESessionState.Stopped()) {
		return model.ErrInvalidTransition
	}
	return c.st.SaveSession(c.agg.Raw())
}

// Snapshot returns the full session view plus derived disk-space info and
// a current-operation struct, the shape the HTTP adapter and CLI render.
func (c *Controller) Snapshot() model.SnapshotView {
	sv := c.agg.Raw()
	disk, _ := fsutil.DiskSpace(c.cfg.BackupDest)

	var op model.CurrentOperation
	active := 0
	for _, d := range sv.Directories {
		if d.Status == model.EDirectoryStatus.Active() {
			active++
			if op.Name == "" {
				op.Name = d.Name
				op.Progress = d.Progress
				op.Elapsed = time.Since(d.StartTime)
				op.SmoothedSpeed = humanizeRate(d.AverageSpeed)
			}
		}
	}

	c.mu.Lock()
	workers := 0
	if c.workerPool != nil {
		workers = c.workerPool.GetCount()
	}
	c.mu.Unlock()

	return model.SnapshotView{Session: sv, DiskSpace: disk, CurrentOp: op, ActiveWorkers: workers}
}

// SubscribeEvents exposes the session aggregate's event bus.
func (c *Controller) SubscribeEvents() (<-chan session.Event, func()) {
	return c.agg.Subscribe()
}
