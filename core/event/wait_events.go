package event

import "time"

// WaitSatisfied is published when a wait condition holds.
type WaitSatisfied struct {
	origin
	Description string
	Polls       int
	Elapsed     time.Duration
}

func NewWaitSatisfied(sessionID, description string, polls int, elapsed time.Duration) *WaitSatisfied {
	return &WaitSatisfied{
		origin:      origin{sessionID: sessionID},
		Description: description,
		Polls:       polls,
		Elapsed:     elapsed,
	}
}

func (e *WaitSatisfied) EventName() string {
	return NameWaitSatisfied
}

// WaitFailed is published when a wait times out or a condition fails with
// an error it does not ignore.
type WaitFailed struct {
	origin
	Description string
	Elapsed     time.Duration
	Error       error
}

func NewWaitFailed(sessionID, description string, elapsed time.Duration, err error) *WaitFailed {
	return &WaitFailed{
		origin:      origin{sessionID: sessionID},
		Description: description,
		Elapsed:     elapsed,
		Error:       err,
	}
}

func (e *WaitFailed) EventName() string {
	return NameWaitFailed
}
