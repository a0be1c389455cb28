package state

import "fmt"

// SessionState represents the state of a browser session.
type SessionState int

const (
	// StateIdle is the initial state before the driver is launched.
	StateIdle SessionState = iota
	// StateStarting: the driver is launching and the first window is being
	// observed.
	StateStarting
	// StateReady accepts window and element commands.
	StateReady
	// StateRunning: a scenario owns the session.
	StateRunning
	// StateStopping: windows are being closed and the driver released.
	StateStopping
	// StateStopped is terminal.
	StateStopped
)

var sessionStateNames = [...]string{"Idle", "Starting", "Ready", "Running", "Stopping", "Stopped"}

func (s SessionState) String() string {
	if s >= 0 && int(s) < len(sessionStateNames) {
		return sessionStateNames[s]
	}
	return fmt.Sprintf("Unknown(%d)", int(s))
}

// SessionTransitions is the session lifecycle. A session that failed to
// start, or was never started, may stop without passing through Stopping.
var SessionTransitions = Table[SessionState]{
	StateIdle:     {StateStarting, StateStopped},
	StateStarting: {StateReady, StateStopping, StateStopped},
	StateReady:    {StateRunning, StateStopping},
	StateRunning:  {StateReady, StateStopping},
	StateStopping: {StateStopped},
}

// CanTransitionTo reports whether s may move to target.
func (s SessionState) CanTransitionTo(target SessionState) bool {
	return SessionTransitions.Allows(s, target)
}

// IsTerminal returns true if no transition leaves s.
func (s SessionState) IsTerminal() bool {
	return SessionTransitions.Terminal(s)
}

// IsActive returns true if the session holds a driver.
func (s SessionState) IsActive() bool {
	return s != StateIdle && s != StateStopped
}

// CanAcceptCommands returns true if window and element commands may be issued.
func (s SessionState) CanAcceptCommands() bool {
	return s == StateReady || s == StateRunning
}

// CanRunScenario returns true if a scenario can take over the session.
func (s SessionState) CanRunScenario() bool {
	return s == StateReady
}
