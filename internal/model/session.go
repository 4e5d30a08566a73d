package model

import (
	"time"

	"github.com/google/uuid"
)

// LogLevel is the severity of one persisted log entry.
type LogLevel string

const (
	LogInfo    LogLevel = "info"
	LogWarning LogLevel = "warning"
	LogError   LogLevel = "error"
	LogSuccess LogLevel = "success"
)

// LogEntry is one append-only record handed to the Session Store.
type LogEntry struct {
	Timestamp time.Time
	Level     LogLevel
	Message   string
	Directory string // empty when not directory-scoped
}

// Session is the root aggregate for one backup run. It is the only mutable
// state shared between the control plane's command consumer and the
// worker pool; see internal/session for the guarded accessor that owns it.
type Session struct {
	ID            uuid.UUID
	Directories   []Directory
	TotalSize     int64 // sum of EstimatedBytes over Selected directories
	CompletedSize int64 // re-derived each update, see internal/session
	StartTime     time.Time
	State         SessionState
	Errors        []LogEntry
	DryRun        bool
}

// NewSession creates an empty, Stopped session ready to be populated by
// ScanDirectories and started by the control plane.
func NewSession() *Session {
	return &Session{
		ID:    uuid.New(),
		State: ESessionState.Stopped(),
	}
}

// CurrentOperation is the derived view the control plane's Snapshot
// exposes for whichever directory is most representative of current
// activity (the first Active one found, in directory order).
type CurrentOperation struct {
	Name          string
	Progress      int
	Elapsed       time.Duration
	SmoothedSpeed string // e.g. "42.3 MB/s", rendered with go-humanize
}

// DiskSpaceInfo is returned alongside Snapshot, sourced from
// internal/fsutil's disk-space probe.
type DiskSpaceInfo struct {
	Path           string
	AvailableBytes uint64
	TotalBytes     uint64
}

// SnapshotView is what Control Plane.Snapshot() returns to callers (the
// HTTP adapter, the CLI, or an in-process caller): the full session plus
// disk space and current-operation fields derived for display.
type SnapshotView struct {
	Session       Session
	DiskSpace     DiskSpaceInfo
	CurrentOp     CurrentOperation
	ActiveWorkers int
}
