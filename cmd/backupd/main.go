// Command backupd is the orchestrator daemon: it resolves configuration
// from the environment, opens the session store, wires the control
// plane, restores the last session if one was persisted, and serves the
// HTTP/WebSocket control surface until signaled to shut down.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/duskvault/backupd/internal/config"
	"github.com/duskvault/backupd/internal/control"
	"github.com/duskvault/backupd/internal/httpapi"
	"github.com/duskvault/backupd/internal/logging"
	"github.com/duskvault/backupd/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logging.New(logging.LevelInfo, "")
	if err != nil {
		return err
	}
	defer log.Close()

	st, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer st.Close()

	ctrl := control.New(cfg, log, st)

	if prior, err := st.LoadLatestSession(); err != nil {
		log.Logf(logging.LevelWarning, "failed to load prior session: %v", err)
	} else if prior != nil {
		ctrl.RestoreSession(*prior)
		log.Logf(logging.LevelInfo, "restored session %s", prior.ID)
	}

	api := httpapi.New(ctrl, log)
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: api.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Logf(logging.LevelInfo, "listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case <-ctx.Done():
		log.Logf(logging.LevelInfo, "shutdown signal received")
	case err := <-errCh:
		return err
	}

	if err := ctrl.Stop(); err != nil {
		log.Logf(logging.LevelWarning, "controller stop: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
