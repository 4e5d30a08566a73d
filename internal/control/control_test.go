package control_test

import (
	"context"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duskvault/backupd/internal/config"
	"github.com/duskvault/backupd/internal/control"
	"github.com/duskvault/backupd/internal/logging"
	"github.com/duskvault/backupd/internal/model"
	"github.com/duskvault/backupd/internal/monitor"
	"github.com/duskvault/backupd/internal/store"
)

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		BackupDest:        t.TempDir(),
		MaxWorkers:        2,
		MinWorkers:        1,
		DynamicScaling:    false,
		TargetCPUPercent:  75,
		MemoryPerWorkerMB: 256,
		MinFreeMemoryMB:   512,
		LoadAvgPerCore:    1.0,
		SamplerInterval:   5,
	}
}

func quickSpawner() monitor.Spawner {
	return func(ctx context.Context, name string, args []string) (*exec.Cmd, error) {
		return exec.Command("/bin/sh", "-c", "echo 'Total transferred file size: 10 bytes'; exit 0"), nil
	}
}

func newTestController(t *testing.T) *control.Controller {
	cfg := testConfig(t)
	c := control.New(cfg, logging.NewNop(), store.NewMemoryStore()).
		WithMountVerifier(func(string) error { return nil }).
		WithSpawner(quickSpawner())
	return c
}

func TestStartRefusedWithoutVerifiedMount(t *testing.T) {
	cfg := testConfig(t)
	c := control.New(cfg, logging.NewNop(), store.NewMemoryStore()).
		WithMountVerifier(func(string) error { return model.ErrMountNotVerified })

	err := c.Start(true, false)
	require.Error(t, err)
}

func TestScanThenStartRunsToCompletion(t *testing.T) {
	c := newTestController(t)
	srcRoot := t.TempDir()
	require.NoError(t, writeDir(srcRoot, "docs"))

	require.NoError(t, c.ScanDirectories(srcRoot))
	require.NoError(t, c.Start(true, false))

	require.Eventually(t, func() bool {
		return c.Snapshot().Session.State == model.ESessionState.Stopped()
	}, 3*time.Second, 20*time.Millisecond)

	snap := c.Snapshot()
	assert.Equal(t, model.EDirectoryStatus.Completed(), snap.Session.Directories[0].Status)
}

func TestDryRunDoesNotAdvancePastPending(t *testing.T) {
	c := newTestController(t)
	srcRoot := t.TempDir()
	require.NoError(t, writeDir(srcRoot, "docs"))
	require.NoError(t, c.ScanDirectories(srcRoot))

	require.NoError(t, c.Start(true, true))
	snap := c.Snapshot()
	assert.Equal(t, model.EDirectoryStatus.Pending(), snap.Session.Directories[0].Status)
}

func TestPauseThenStop(t *testing.T) {
	c := newTestController(t)
	srcRoot := t.TempDir()
	require.NoError(t, writeDir(srcRoot, "docs"))
	require.NoError(t, c.ScanDirectories(srcRoot))
	require.NoError(t, c.Start(true, false))
	require.NoError(t, c.Pause())
	require.NoError(t, c.Stop())
	assert.Equal(t, model.ESessionState.Stopped(), c.Snapshot().Session.State)
}

func TestRestoreSessionSkipsCompletedAndRequeuesErrors(t *testing.T) {
	c := newTestController(t)
	sv := *model.NewSession()
	sv.Directories = []model.Directory{
		{Name: "done", Selected: true, Status: model.EDirectoryStatus.Completed(), Progress: 100},
		{Name: "failed", Selected: true, Status: model.EDirectoryStatus.Error(), Progress: 40},
	}
	c.RestoreSession(sv)

	snap := c.Snapshot()
	assert.Equal(t, model.EDirectoryStatus.Completed(), snap.Session.Directories[0].Status)
	assert.Equal(t, model.EDirectoryStatus.Pending(), snap.Session.Directories[1].Status)
	assert.Equal(t, 0, snap.Session.Directories[1].Progress)
}

func writeDir(root, name string) error {
	return os.MkdirAll(root+"/"+name, 0o755)
}
