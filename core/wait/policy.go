package wait

import (
	"errors"
	"time"
)

// DefaultInterval is used when a Policy has no polling interval.
const DefaultInterval = 500 * time.Millisecond

// Policy is an explicit retry policy: how long to wait, how often to check,
// and which failures mean "not ready yet".
type Policy struct {
	// Timeout is the total budget. Negative values are treated as zero.
	Timeout time.Duration
	// Interval is the polling cadence. Zero selects DefaultInterval.
	Interval time.Duration
	// Ignored lists failure kinds swallowed while polling, matched with errors.Is.
	Ignored []error
	// Description is used in timeout messages.
	Description string
}

// NewPolicy returns a policy with the given timeout and the default interval.
func NewPolicy(timeout time.Duration) Policy {
	return Policy{Timeout: timeout, Interval: DefaultInterval}
}

// Every returns a copy of p polling at interval d.
func (p Policy) Every(d time.Duration) Policy {
	p.Interval = d
	return p
}

// Ignoring returns a copy of p that also swallows the given failure kinds.
func (p Policy) Ignoring(kinds ...error) Policy {
	ignored := make([]error, 0, len(p.Ignored)+len(kinds))
	ignored = append(ignored, p.Ignored...)
	ignored = append(ignored, kinds...)
	p.Ignored = ignored
	return p
}

// Describe returns a copy of p with a description for timeout messages.
func (p Policy) Describe(description string) Policy {
	p.Description = description
	return p
}

// Ignores reports whether err matches one of the ignored kinds.
func (p Policy) Ignores(err error) bool {
	if err == nil {
		return false
	}
	for _, kind := range p.Ignored {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

func (p Policy) normalized() Policy {
	if p.Timeout < 0 {
		p.Timeout = 0
	}
	if p.Interval <= 0 {
		p.Interval = DefaultInterval
	}
	return p
}
