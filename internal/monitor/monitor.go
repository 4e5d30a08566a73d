// Package monitor spawns the external sync tool for one directory,
// streams its stdout through internal/parser, and derives per-directory
// transfer state: smoothed speed, current file, progress, and the final
// completion outcome a worker reports back to the queue.
package monitor

import (
	"bufio"
	"context"
	"io"
	"math"
	"os/exec"
	"time"

	"github.com/pkg/errors"

	"github.com/duskvault/backupd/internal/logging"
	"github.com/duskvault/backupd/internal/model"
	"github.com/duskvault/backupd/internal/parser"
)

// ProgressSink is how a Monitor publishes incremental and final state
// without importing the session package directly, keeping the dependency
// direction one-way (session owns Directory, monitor only mutates
// through the sink the caller supplies).
type ProgressSink interface {
	UpdateDirectory(index int, fn func(d *model.Directory))
}

// Spawner abstracts process creation so tests can substitute a fake sync
// tool without touching the filesystem.
type Spawner func(ctx context.Context, name string, args []string) (*exec.Cmd, error)

// DefaultSpawner runs the real external binary named by tool. It does not
// use exec.CommandContext's built-in hard-kill-on-cancel: Run manages
// cancellation itself so it can send SIGTERM first and escalate to
// SIGKILL only after the grace period, per the termination contract.
func DefaultSpawner(tool string) Spawner {
	return func(ctx context.Context, name string, args []string) (*exec.Cmd, error) {
		return exec.Command(tool, args...), nil
	}
}

// Monitor runs one sync subprocess per Run call.
type Monitor struct {
	spawn      Spawner
	log        *logging.Logger
	destRoot   string
	gracePeriod time.Duration
}

// New creates a Monitor that invokes tool (e.g. "rsync") against destRoot.
func New(tool, destRoot string, log *logging.Logger) *Monitor {
	if log == nil {
		log = logging.NewNop()
	}
	return &Monitor{spawn: DefaultSpawner(tool), log: log, destRoot: destRoot, gracePeriod: 5 * time.Second}
}

// WithSpawner overrides the process spawner, for tests.
func (m *Monitor) WithSpawner(s Spawner) *Monitor {
	m.spawn = s
	return m
}

// accumulator is the per-directory state the monitor keeps while a run is
// in flight. It is a plain struct with explicit fields rather than shared
// package-level state, so each Run call owns an independent instance.
type accumulator struct {
	window             speedWindow
	totalFileCount     int64
	plannedTransfers   int64
	totalBytesPlanned  int64
	xfrCount           int64
	itemizedTransfers  int64
	currentBytes       int64
	currentFile        string
	sawAnyFileActivity bool
}

func (a *accumulator) apply(ev parser.Event, now time.Time) {
	switch ev.Kind {
	case parser.KindTotalFiles:
		a.totalFileCount = ev.Count
	case parser.KindPlannedTransfers:
		a.plannedTransfers = ev.Count
	case parser.KindTotalBytesPlanned:
		a.totalBytesPlanned = ev.Bytes
	case parser.KindTransferredCount:
		if ev.Count > a.xfrCount {
			a.xfrCount = ev.Count
		}
		a.sawAnyFileActivity = true
	case parser.KindItemTransferred:
		a.itemizedTransfers++
		a.currentFile = ev.FileName
		a.sawAnyFileActivity = true
	case parser.KindByteRateSample:
		a.currentBytes = ev.Bytes
		a.window.add(now, ev.Bytes)
		a.sawAnyFileActivity = true
	}
}

// progressFloor implements the initial-scan heuristic: before any file
// activity is observed, if a total file count is already known, report
// 5% so observers see motion during the scan phase rather than a frozen
// 0%.
func (a *accumulator) progressFloor() (int, bool) {
	if !a.sawAnyFileActivity && a.totalFileCount > 0 {
		return 5, true
	}
	return 0, false
}

// Run spawns the sync tool for dir, streams its output, and returns the
// final TaskStatus plus the files-processed count. It mutates dir's
// published state through sink as lines arrive. ctx cancellation
// terminates the child with SIGTERM, escalating to SIGKILL after the
// monitor's grace period, without the caller needing to manage the
// process directly.
func (m *Monitor) Run(ctx context.Context, index int, dir model.Directory, sink ProgressSink) (model.TaskStatus, int64, error) {
	args := BuildArgs(dir.SourcePath, m.destRoot, dir.Name, dir.ExtraExcludes)
	cmd, err := m.spawn(ctx, "rsync", args)
	if err != nil {
		return model.TaskStatus{}, 0, errors.Wrap(err, "spawn sync tool")
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return model.TaskStatus{}, 0, errors.Wrap(err, "attach stdout pipe")
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return model.TaskStatus{}, 0, errors.Wrap(err, "attach stderr pipe")
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return model.TaskStatus{}, 0, errors.Wrap(err, "start sync tool")
	}

	cancelWatch := make(chan struct{})
	go m.watchCancellation(ctx, cmd, cancelWatch)

	acc := &accumulator{}
	stderrBuf := newCappedBuffer(64 * 1024)

	done := make(chan struct{})
	go func() {
		defer close(done)
		drainStderr(stderr, stderrBuf)
	}()

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		ev := parser.ParseLine(line)
		if ev.Kind == parser.KindNone {
			m.log.Logf(logging.LevelDebug, "unparsed sync line for %s: %q", dir.Name, line)
			continue
		}
		now := time.Now()
		acc.apply(ev, now)
		m.publishProgress(index, dir, acc, sink)
	}
	<-done

	waitErr := cmd.Wait()
	elapsed := time.Since(start)
	close(cancelWatch)

	return m.finalize(index, dir, acc, stderrBuf.String(), waitErr, elapsed, sink)
}

// watchCancellation sends SIGTERM to cmd's process when ctx is canceled,
// then SIGKILL after the grace period if it hasn't exited. stop lets Run
// tear this goroutine down once the child has already been waited on.
func (m *Monitor) watchCancellation(ctx context.Context, cmd *exec.Cmd, stop chan struct{}) {
	select {
	case <-stop:
		return
	case <-ctx.Done():
	}
	if cmd.Process == nil {
		return
	}
	_ = cmd.Process.Signal(syscallSIGTERM)
	timer := time.NewTimer(m.gracePeriod)
	defer timer.Stop()
	select {
	case <-stop:
	case <-timer.C:
		_ = cmd.Process.Kill()
	}
}

func (m *Monitor) publishProgress(index int, dir model.Directory, acc *accumulator, sink ProgressSink) {
	speed := acc.window.rate()
	pct := 0
	if dir.EstimatedBytes > 0 && acc.currentBytes > 0 {
		pct = int(math.Min(100, math.Floor(100*float64(acc.currentBytes)/float64(dir.EstimatedBytes))))
	}
	if floor, ok := acc.progressFloor(); ok && pct < floor {
		pct = floor
	}

	sink.UpdateDirectory(index, func(d *model.Directory) {
		if pct > d.Progress {
			d.Progress = pct
		}
		d.BytesProcessed = acc.currentBytes
		d.FilesProcessed = acc.itemizedTransfers
		d.AverageSpeed = speed
		d.CurrentFile = acc.currentFile
		if acc.totalFileCount > 0 {
			d.FileCount = acc.totalFileCount
		}
	})
}

// finalize applies the completion policy: already-synced, normal, and
// empty-directory outcomes each set a distinct progress/speed shape.
func (m *Monitor) finalize(index int, dir model.Directory, acc *accumulator, stderrText string, waitErr error, elapsed time.Duration, sink ProgressSink) (model.TaskStatus, int64, error) {
	if waitErr != nil {
		sink.UpdateDirectory(index, func(d *model.Directory) {
			d.TransitionTo(model.EDirectoryStatus.Error())
			d.EndTime = time.Now()
		})
		status := model.TaskStatus{Completed: false, Duration: elapsed, Err: errors.Wrapf(model.ErrDirectoryFailed, "%s: %s", dir.Name, stderrText)}
		return status, acc.itemizedTransfers, status.Err
	}

	bytesTransferred := acc.totalBytesPlanned

	var finalSpeed float64
	var finalProgress int
	filesProcessed := acc.itemizedTransfers

	switch {
	case bytesTransferred == 0 && acc.totalFileCount > 0:
		// already synced: destination matched source, nothing to copy.
		// Progress returns to its value from before this run, dropping the
		// synthetic scan-phase floor.
		filesProcessed = 0
		if elapsed > 0 {
			finalSpeed = float64(acc.totalFileCount) / elapsed.Seconds()
		}
		finalProgress = dir.Progress
	case bytesTransferred > 0:
		if dir.EstimatedBytes > 0 {
			finalProgress = int(math.Min(100, math.Floor(100*float64(bytesTransferred)/float64(dir.EstimatedBytes))))
		} else {
			finalProgress = 100
		}
		if elapsed > 0 {
			finalSpeed = float64(bytesTransferred) / elapsed.Seconds()
		}
	case bytesTransferred == 0 && dir.EstimatedBytes == 0:
		finalProgress = 100
	default:
		finalProgress = 0
	}

	sink.UpdateDirectory(index, func(d *model.Directory) {
		if finalProgress >= 0 {
			d.Progress = finalProgress
		}
		d.BytesProcessed = bytesTransferred
		d.FilesProcessed = filesProcessed
		if finalSpeed > 0 {
			d.AverageSpeed = finalSpeed
		}
		if acc.totalFileCount > 0 {
			d.FileCount = acc.totalFileCount
		}
		d.CurrentFile = ""
		d.TransitionTo(model.EDirectoryStatus.Completed())
		d.EndTime = time.Now()
	})

	return model.TaskStatus{Completed: true, Duration: elapsed, Bytes: bytesTransferred}, filesProcessed, nil
}

func drainStderr(r io.Reader, buf *cappedBuffer) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		buf.WriteLine(scanner.Text())
	}
}
