// Package event defines what sessions report while they run: lifecycle
// changes, windows observed, focused and closed, waits satisfied or failed,
// and scenario progress. The run journal and the CLI consume them.
package event

import "multiwindow-go/core/state"

// Event names, as returned by EventName. Bus filters select on them.
const (
	NameSessionStarted      = "SessionStarted"
	NameSessionStopped      = "SessionStopped"
	NameSessionStateChanged = "SessionStateChanged"
	NameOperationFailed     = "OperationFailed"

	NameWindowObserved = "WindowObserved"
	NameWindowFocused  = "WindowFocused"
	NameWindowClosed   = "WindowClosed"
	NameHandlesListed  = "HandlesListed"

	NameWaitSatisfied = "WaitSatisfied"
	NameWaitFailed    = "WaitFailed"

	NameScenarioStarted = "ScenarioStarted"
	NameScenarioStopped = "ScenarioStopped"
	NameStepExecuted    = "StepExecuted"
	NameScreenCaptured  = "ScreenCaptured"
)

// WindowEvents names every event about a window's lifecycle.
var WindowEvents = []string{NameWindowObserved, NameWindowFocused, NameWindowClosed, NameHandlesListed}

// Event is anything published on the event bus.
type Event interface {
	EventName() string
}

// SessionEvent is an event raised by one session.
type SessionEvent interface {
	Event
	SessionID() string
}

// origin is embedded by every session event.
type origin struct {
	sessionID string
}

func (o *origin) SessionID() string {
	return o.sessionID
}

// SessionStarted is published when a session's driver is up and its first
// window observed.
type SessionStarted struct {
	origin
	Driver string
	Handle string
}

func NewSessionStarted(sessionID, driver, handle string) *SessionStarted {
	return &SessionStarted{
		origin: origin{sessionID: sessionID},
		Driver: driver,
		Handle: handle,
	}
}

func (e *SessionStarted) EventName() string {
	return NameSessionStarted
}

// SessionStopped is published when a session stops.
type SessionStopped struct {
	origin
	Error error // nil if stopped normally
}

func NewSessionStopped(sessionID string, err error) *SessionStopped {
	return &SessionStopped{
		origin: origin{sessionID: sessionID},
		Error:  err,
	}
}

func (e *SessionStopped) EventName() string {
	return NameSessionStopped
}

// SessionStateChanged is published when a session's state changes.
type SessionStateChanged struct {
	origin
	OldState state.SessionState
	NewState state.SessionState
}

func NewSessionStateChanged(sessionID string, oldState, newState state.SessionState) *SessionStateChanged {
	return &SessionStateChanged{
		origin:   origin{sessionID: sessionID},
		OldState: oldState,
		NewState: newState,
	}
}

func (e *SessionStateChanged) EventName() string {
	return NameSessionStateChanged
}

// OperationFailed is published when a driver command fails.
type OperationFailed struct {
	origin
	Operation string
	Error     error
}

func NewOperationFailed(sessionID, operation string, err error) *OperationFailed {
	return &OperationFailed{
		origin:    origin{sessionID: sessionID},
		Operation: operation,
		Error:     err,
	}
}

func (e *OperationFailed) EventName() string {
	return NameOperationFailed
}
