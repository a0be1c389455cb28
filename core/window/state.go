package window

import (
	"fmt"

	"multiwindow-go/core/state"
)

// State is the lifecycle state of a window.
type State int

const (
	// StateUnknown is a handle the session has never observed.
	StateUnknown State = iota
	// StateOpen is an observed window that can receive focus.
	StateOpen
	// StateClosed is terminal; a closed handle is never reopened.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnknown:
		return "Unknown"
	case StateOpen:
		return "Open"
	case StateClosed:
		return "Closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Transitions is the window lifecycle: Unknown -> Open -> Closed.
var Transitions = state.Table[State]{
	StateUnknown: {StateOpen},
	StateOpen:    {StateClosed},
}

// CanTransitionTo reports whether s may move to target.
func (s State) CanTransitionTo(target State) bool {
	return Transitions.Allows(s, target)
}

// IsTerminal reports whether no transition leaves s.
func (s State) IsTerminal() bool {
	return Transitions.Terminal(s)
}
