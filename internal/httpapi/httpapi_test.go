package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duskvault/backupd/internal/config"
	"github.com/duskvault/backupd/internal/control"
	"github.com/duskvault/backupd/internal/httpapi"
	"github.com/duskvault/backupd/internal/logging"
	"github.com/duskvault/backupd/internal/store"
)

func testServer(t *testing.T) *httptest.Server {
	cfg := &config.Config{BackupDest: t.TempDir(), MaxWorkers: 2, MinWorkers: 1}
	ctrl := control.New(cfg, logging.NewNop(), store.NewMemoryStore()).
		WithMountVerifier(func(string) error { return nil }).
		WithSpawner(func(ctx context.Context, name string, args []string) (*exec.Cmd, error) {
			return exec.Command("/bin/sh", "-c", "echo 'Total transferred file size: 1 bytes'; exit 0"), nil
		})
	srv := httpapi.New(ctrl, logging.NewNop())
	return httptest.NewServer(srv.Router())
}

func TestScanAndSnapshot(t *testing.T) {
	ts := testServer(t)
	defer ts.Close()

	srcRoot := t.TempDir()
	require.NoError(t, os.MkdirAll(srcRoot+"/photos", 0o755))

	body, _ := json.Marshal(map[string]string{"root": srcRoot})
	resp, err := http.Post(ts.URL+"/api/scan", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp2, err := http.Get(ts.URL + "/api/snapshot")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusOK, resp2.StatusCode)
}

func TestStartRejectedWhenMountUnverified(t *testing.T) {
	cfg := &config.Config{BackupDest: t.TempDir(), MaxWorkers: 2, MinWorkers: 1}
	ctrl := control.New(cfg, logging.NewNop(), store.NewMemoryStore()).
		WithMountVerifier(func(string) error { return assertErr })
	srv := httpapi.New(ctrl, logging.NewNop())
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/start", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusPreconditionFailed, resp.StatusCode)
}

func TestPauseWithoutRunningSessionIsConflict(t *testing.T) {
	ts := testServer(t)
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/pause", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

var assertErr = &mountErr{}

type mountErr struct{}

func (e *mountErr) Error() string { return "mount not verified" }
