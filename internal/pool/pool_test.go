package pool_test

import (
	"context"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duskvault/backupd/internal/logging"
	"github.com/duskvault/backupd/internal/model"
	"github.com/duskvault/backupd/internal/monitor"
	"github.com/duskvault/backupd/internal/pool"
	"github.com/duskvault/backupd/internal/queue"
)

type fakeSession struct {
	mu   sync.Mutex
	dirs []model.Directory
}

func (s *fakeSession) Directory(index int) model.Directory {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirs[index]
}

func (s *fakeSession) UpdateDirectory(index int, fn func(d *model.Directory)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.dirs[index])
}

func quickSpawner() monitor.Spawner {
	return func(ctx context.Context, name string, args []string) (*exec.Cmd, error) {
		return exec.Command("/bin/sh", "-c", "echo 'Total transferred file size: 10 bytes'; exit 0"), nil
	}
}

func TestPoolDispatchesAndCollectsResults(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	session := &fakeSession{dirs: []model.Directory{
		{Name: "a", EstimatedBytes: 10},
		{Name: "b", EstimatedBytes: 10},
	}}
	q := queue.New(2)
	mon := monitor.New("rsync", "/mnt/backup", logging.NewNop()).WithSpawner(quickSpawner())
	p := pool.New(ctx, q, mon, session, logging.NewNop(), 2)
	p.Add(2)

	q.Push(model.Task{ID: 1, DirectoryIndex: 0, Priority: 50})
	q.Push(model.Task{ID: 2, DirectoryIndex: 1, Priority: 50})
	q.DrainDispatchable()

	received := 0
	timeout := time.After(2 * time.Second)
	for received < 2 {
		select {
		case <-q.ResultsForCollector():
			received++
		case <-timeout:
			t.Fatal("timed out waiting for task results")
		}
	}
	assert.Equal(t, 2, received)
}

func TestPoolShutdownStopsAllWorkers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	session := &fakeSession{dirs: []model.Directory{}}
	q := queue.New(3)
	mon := monitor.New("rsync", "/mnt/backup", logging.NewNop()).WithSpawner(quickSpawner())
	p := pool.New(ctx, q, mon, session, logging.NewNop(), 3)
	p.Add(3)
	require.Equal(t, 3, p.GetCount())

	p.Shutdown(2 * time.Second)
	assert.Eventually(t, func() bool { return p.GetCount() == 0 }, 3*time.Second, 50*time.Millisecond)
}
