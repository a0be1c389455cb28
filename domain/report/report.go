// Package report defines the outcome record of a scenario run.
package report

import (
	"errors"
	"time"
)

// ErrReportNotFound is returned when a report ID is unknown.
var ErrReportNotFound = errors.New("report not found")

// Status is the outcome of a run.
type Status string

const (
	StatusPassed    Status = "passed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// ErrorKind classifies the error that ended a failed run.
type ErrorKind string

const (
	KindNone            ErrorKind = ""
	KindTimeout         ErrorKind = "timeout"
	KindNoFocusedWindow ErrorKind = "no_focused_window"
	KindUnknownWindow   ErrorKind = "unknown_window"
	KindNoSuchElement   ErrorKind = "no_such_element"
	KindNotInteractable ErrorKind = "not_interactable"
	KindNoSuchWindow    ErrorKind = "no_such_window"
	KindSessionClosed   ErrorKind = "session_closed"
	KindInvalidScenario ErrorKind = "invalid_scenario"
	KindAssertion       ErrorKind = "assertion"
	KindCancelled       ErrorKind = "cancelled"
	KindDriver          ErrorKind = "driver"
)

// WindowRecord is the final state of one window of the run.
type WindowRecord struct {
	Handle string
	State  string
}

// Report is the outcome of one scenario run.
type Report struct {
	// ID is the unique identifier (UUID)
	ID string

	// Scenario is the scenario name
	Scenario string

	// SessionID identifies the session that ran the scenario
	SessionID string

	// Driver is the backend kind
	Driver string

	Status     Status
	StartedAt  time.Time
	FinishedAt time.Time

	// StepsRun counts executed commands, nested ones included
	StepsRun int

	// FailedStep is the index of the failing top-level step, -1 if none
	FailedStep int

	// FailedCommand is the name of the failing command
	FailedCommand string

	ErrorKind ErrorKind
	Error     string

	// WaitElapsed is the total time spent blocked in waits
	WaitElapsed time.Duration

	Windows     []WindowRecord
	Screenshots []string
}

// Duration returns the wall time of the run.
func (r *Report) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Passed returns true if the run passed.
func (r *Report) Passed() bool {
	return r.Status == StatusPassed
}

// Clone creates a deep copy of the report.
func (r *Report) Clone() *Report {
	clone := *r
	if len(r.Windows) > 0 {
		clone.Windows = make([]WindowRecord, len(r.Windows))
		copy(clone.Windows, r.Windows)
	}
	if len(r.Screenshots) > 0 {
		clone.Screenshots = make([]string, len(r.Screenshots))
		copy(clone.Screenshots, r.Screenshots)
	}
	return &clone
}
