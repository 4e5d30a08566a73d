package store

import (
	"sync"

	"github.com/duskvault/backupd/internal/model"
)

// MemoryStore is a process-local Store, used when no DATABASE_URL is
// configured. State does not survive a restart.
type MemoryStore struct {
	mu      sync.Mutex
	latest  *model.Session
	logs    []model.LogEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) SaveSession(s model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := s
	cp.Directories = append([]model.Directory(nil), s.Directories...)
	cp.Errors = append([]model.LogEntry(nil), s.Errors...)
	m.latest = &cp
	return nil
}

func (m *MemoryStore) LoadLatestSession() (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.latest == nil {
		return nil, nil
	}
	cp := *m.latest
	cp.Directories = append([]model.Directory(nil), m.latest.Directories...)
	cp.Errors = append([]model.LogEntry(nil), m.latest.Errors...)
	return &cp, nil
}

func (m *MemoryStore) AppendLog(entry model.LogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, entry)
	return nil
}

func (m *MemoryStore) Close() error { return nil }
