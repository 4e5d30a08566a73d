package model

import "errors"

// Sentinel errors for the orchestrator's error kinds. Component
// boundaries wrap these with github.com/pkg/errors.Wrap to attach context;
// callers compare with errors.Is against these sentinels.
var (
	// ErrPreconditionFailed covers a missing mount or unwritable
	// destination; surfaced synchronously to Start's caller.
	ErrPreconditionFailed = errors.New("precondition failed")

	// ErrDirectoryFailed marks a per-directory sync failure (non-zero
	// exit, spawn error). The run continues with remaining directories.
	ErrDirectoryFailed = errors.New("directory sync failed")

	// ErrQueueClosed is observed by command senders only during shutdown.
	ErrQueueClosed = errors.New("command queue closed")

	// ErrStorageWrite marks a Session Store failure; logged, never blocks
	// in-memory state updates.
	ErrStorageWrite = errors.New("session store write failed")

	// ErrInvalidTransition is returned when a caller requests a command
	// that the current SessionState does not allow (e.g. Pause while
	// Stopped).
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrMountNotVerified is the specific PreconditionFailed cause for a
	// Start refused because the destination is not a verified mount.
	ErrMountNotVerified = errors.New("backup destination is not a verified mount")
)
