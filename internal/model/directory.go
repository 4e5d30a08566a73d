package model

import "time"

// Directory is a single unit of backup work rooted at one source path.
//
// Status transitions are monotone: Pending -> Active -> {Completed, Error};
// Skipped is reachable only from Pending. progress == 100 implies
// Status == Completed, but Completed does not require progress == 100 —
// an already-synced directory can complete with its prior progress intact.
type Directory struct {
	Name           string
	SourcePath     string
	EstimatedBytes int64
	Status         DirectoryStatus
	Progress       int // 0-100
	Selected       bool
	StartTime      time.Time
	EndTime        time.Time

	FilesProcessed int64
	BytesProcessed int64

	// FileCount is the total file count reported by the sync tool, once known.
	FileCount int64
	// AverageSpeed is the smoothed transfer rate in bytes/sec, once known.
	AverageSpeed float64
	// CurrentFile is the path of the file currently being transferred, if any.
	CurrentFile string

	// ExtraExcludes supplements the default exclude list for this
	// directory only, letting one path exclude patterns the rest of the
	// run does not.
	ExtraExcludes []string
}

// SizeCopied returns how much of the directory actually got copied. Some
// completion paths (the already-synced case) only ever populate
// BytesProcessed via the monitor, never Progress, so this accessor exists
// for readability at call sites that talk about "how much actually got
// copied".
func (d *Directory) SizeCopied() int64 {
	return d.BytesProcessed
}

// TransitionTo applies a status change, enforcing the monotone-progression
// invariant. Callers hold the Session write lock while calling this.
func (d *Directory) TransitionTo(next DirectoryStatus) bool {
	if d.Status == next {
		return true
	}
	if !d.Status.CanTransitionTo(next) {
		return false
	}
	d.Status = next
	return true
}

// Priority derives a dispatch priority from estimated size: smaller
// directories are scheduled first so the queue drains quickly-won progress
// before the few large, slow ones.
func (d *Directory) Priority() uint8 {
	switch {
	case d.EstimatedBytes < 1<<20: // < 1 MiB
		return 100
	case d.EstimatedBytes < 100<<20: // < 100 MiB
		return 80
	case d.EstimatedBytes < 1<<30: // < 1 GiB
		return 60
	default:
		return 40
	}
}
