package wait

import (
	"errors"
	"fmt"
	"time"
)

// ErrTimeout matches every *TimeoutError via errors.Is.
var ErrTimeout = errors.New("wait timed out")

// TimeoutError reports a condition that never held within its budget.
type TimeoutError struct {
	// Description names what was being waited for, if known.
	Description string
	// Timeout is the configured budget.
	Timeout time.Duration
	// Elapsed is the time spent polling, measured on the coordinator clock.
	Elapsed time.Duration
	// Polls is the number of times the condition was evaluated.
	Polls int
	// Last is the last ignored failure seen, or nil.
	Last error
}

func (e *TimeoutError) Error() string {
	msg := fmt.Sprintf("timed out after %s", e.Elapsed)
	if e.Description != "" {
		msg += " waiting for " + e.Description
	}
	msg += fmt.Sprintf(" (timeout %s, %d polls)", e.Timeout, e.Polls)
	if e.Last != nil {
		msg += ": last error: " + e.Last.Error()
	}
	return msg
}

// Is reports whether target is ErrTimeout.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// Unwrap returns the last ignored failure.
func (e *TimeoutError) Unwrap() error {
	return e.Last
}
