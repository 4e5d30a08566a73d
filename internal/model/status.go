// Package model defines the shared data model for the backup orchestrator:
// directories, sessions, tasks, worker handles, resource samples and
// workload profiles, plus the status enums that gate their transitions.
package model

import (
	"encoding/json"
	"reflect"

	"github.com/JeffreyRichter/enum/enum"
)

// EDirectoryStatus is the enum-of-methods accessor for DirectoryStatus.
var EDirectoryStatus = DirectoryStatus(0)

// DirectoryStatus is the lifecycle state of a single backup Directory.
// Valid transitions: Pending -> Active -> {Completed, Error}; Pending -> Skipped.
type DirectoryStatus uint8

func (DirectoryStatus) Pending() DirectoryStatus   { return DirectoryStatus(0) }
func (DirectoryStatus) Active() DirectoryStatus    { return DirectoryStatus(1) }
func (DirectoryStatus) Completed() DirectoryStatus { return DirectoryStatus(2) }
func (DirectoryStatus) Error() DirectoryStatus     { return DirectoryStatus(3) }
func (DirectoryStatus) Skipped() DirectoryStatus   { return DirectoryStatus(4) }

func (d DirectoryStatus) String() string {
	return enum.StringInt(d, reflect.TypeOf(d))
}

func (d *DirectoryStatus) Parse(s string) error {
	val, err := enum.ParseInt(reflect.TypeOf(d), s, true, true)
	if err == nil {
		*d = val.(DirectoryStatus)
	}
	return err
}

func (d DirectoryStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *DirectoryStatus) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	return d.Parse(s)
}

// CanTransitionTo enforces the monotone-progression invariant from the
// Directory data model: Pending -> Active -> {Completed, Error}, and
// Skipped is reachable only from Pending.
func (d DirectoryStatus) CanTransitionTo(next DirectoryStatus) bool {
	switch d {
	case EDirectoryStatus.Pending():
		return next == EDirectoryStatus.Active() || next == EDirectoryStatus.Skipped()
	case EDirectoryStatus.Active():
		return next == EDirectoryStatus.Completed() || next == EDirectoryStatus.Error()
	default:
		return false
	}
}

// ESessionState is the enum-of-methods accessor for SessionState.
var ESessionState = SessionState(0)

// SessionState drives the Control Plane's state machine:
//
//	Stopped --Start--> Running --Pause--> Paused --Start--> Running
//	   ^                  |                   |
//	   +------Stop--------+-------Stop--------+
type SessionState uint8

func (SessionState) Stopped() SessionState { return SessionState(0) }
func (SessionState) Running() SessionState { return SessionState(1) }
func (SessionState) Paused() SessionState  { return SessionState(2) }

func (s SessionState) String() string {
	return enum.StringInt(s, reflect.TypeOf(s))
}

func (s *SessionState) Parse(str string) error {
	val, err := enum.ParseInt(reflect.TypeOf(s), str, true, true)
	if err == nil {
		*s = val.(SessionState)
	}
	return err
}

func (s SessionState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *SessionState) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return err
	}
	return s.Parse(str)
}

// CanTransitionTo enforces the Control Plane's state diagram.
func (s SessionState) CanTransitionTo(next SessionState) bool {
	switch s {
	case ESessionState.Stopped():
		return next == ESessionState.Running()
	case ESessionState.Running():
		return next == ESessionState.Paused() || next == ESessionState.Stopped()
	case ESessionState.Paused():
		return next == ESessionState.Running() || next == ESessionState.Stopped()
	default:
		return false
	}
}

// EWorkloadTag is the enum-of-methods accessor for WorkloadTag.
var EWorkloadTag = WorkloadTag(0)

// WorkloadTag classifies a pending directory set (Workload Classifier, C7).
type WorkloadTag uint8

func (WorkloadTag) Incremental() WorkloadTag { return WorkloadTag(0) }
func (WorkloadTag) FullBackup() WorkloadTag  { return WorkloadTag(1) }
func (WorkloadTag) SmallFiles() WorkloadTag  { return WorkloadTag(2) }
func (WorkloadTag) LargeFiles() WorkloadTag  { return WorkloadTag(3) }

func (t WorkloadTag) String() string {
	return enum.StringInt(t, reflect.TypeOf(t))
}
