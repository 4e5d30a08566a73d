// Package store implements the opaque session/log persistence contract:
// SaveSession, LoadLatestSession, AppendLog. A Postgres-backed store is
// used when DATABASE_URL is set; otherwise an in-memory store keeps the
// daemon usable without a database for local development.
package store

import (
	"github.com/duskvault/backupd/internal/model"
)

// Store is the persistence contract the control plane depends on.
type Store interface {
	SaveSession(s model.Session) error
	LoadLatestSession() (*model.Session, error)
	AppendLog(entry model.LogEntry) error
	Close() error
}

// Open returns a Postgres-backed Store when databaseURL is non-empty, or
// an in-memory Store otherwise.
func Open(databaseURL string) (Store, error) {
	if databaseURL == "" {
		return NewMemoryStore(), nil
	}
	return NewPostgresStore(databaseURL)
}
