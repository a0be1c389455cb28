// Package state holds the lifecycle state machines of sessions and the
// transition tables they, and window lifecycles, are checked against.
package state

import (
	"fmt"
	"slices"
)

// Table lists, for each state, the states it may move to. A state with no
// entry, or an empty one, is terminal.
type Table[S comparable] map[S][]S

// Allows reports whether from may move to to.
func (t Table[S]) Allows(from, to S) bool {
	return slices.Contains(t[from], to)
}

// Terminal reports whether no transition leaves s.
func (t Table[S]) Terminal(s S) bool {
	return len(t[s]) == 0
}

// Check returns a *TransitionError naming machine when from may not move to to.
func (t Table[S]) Check(machine string, from, to S) error {
	if t.Allows(from, to) {
		return nil
	}
	reason := ""
	if t.Terminal(from) {
		reason = fmt.Sprintf("%v is terminal", from)
	}
	return &TransitionError{
		Machine: machine,
		From:    fmt.Sprint(from),
		To:      fmt.Sprint(to),
		Reason:  reason,
	}
}

// TransitionError represents an invalid state transition attempt.
type TransitionError struct {
	// Machine names what changes state, e.g. "session" or "window".
	Machine string
	From    string
	To      string
	Reason  string
}

func (e *TransitionError) Error() string {
	msg := fmt.Sprintf("invalid %s state transition from %s to %s", e.Machine, e.From, e.To)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}
