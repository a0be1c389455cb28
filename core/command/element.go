package command

import "time"

// Click clicks an element Times times, pausing between clicks. With
// TrackWindows set, windows opened by the clicks are observed.
type Click struct {
	Target       string
	Times        int
	Pause        time.Duration
	TrackWindows bool
}

func (c *Click) CommandName() string {
	return "Click"
}

func (c *Click) Validate() error {
	if c.Target == "" {
		return invalid(c, "target is required")
	}
	if c.Times < 0 {
		return invalid(c, "times must not be negative")
	}
	if c.Pause < 0 {
		return invalid(c, "pause must not be negative")
	}
	return nil
}

// Type sends keystrokes to an element.
type Type struct {
	Target string
	Text   string
}

func (c *Type) CommandName() string {
	return "Type"
}

func (c *Type) Validate() error {
	if c.Target == "" {
		return invalid(c, "target is required")
	}
	return nil
}

// Condition names what a Wait blocks on.
type Condition string

const (
	ConditionPresent     Condition = "present"
	ConditionVisible     Condition = "visible"
	ConditionClickable   Condition = "clickable"
	ConditionPageLoaded  Condition = "page_loaded"
	ConditionWindowCount Condition = "window_count"
)

// NeedsTarget reports whether the condition is about an element.
func (c Condition) NeedsTarget() bool {
	switch c {
	case ConditionPresent, ConditionVisible, ConditionClickable:
		return true
	default:
		return false
	}
}

// Wait blocks until a condition holds. Ignore lists the failure kinds
// that count as "not yet", by name: "no_such_element", "not_interactable".
// A nil Timeout takes the runner default; zero checks the condition once.
type Wait struct {
	Condition Condition
	Target    string
	Count     int
	Timeout   *time.Duration
	Interval  time.Duration
	Ignore    []string
}

func (c *Wait) CommandName() string {
	return "Wait"
}

func (c *Wait) Validate() error {
	switch c.Condition {
	case ConditionPresent, ConditionVisible, ConditionClickable, ConditionPageLoaded:
	case ConditionWindowCount:
		if c.Count < 1 {
			return invalid(c, "window_count needs count >= 1")
		}
	default:
		return invalid(c, "unknown condition %q", c.Condition)
	}
	if c.Condition.NeedsTarget() && c.Target == "" {
		return invalid(c, "%s needs a target", c.Condition)
	}
	if c.Timeout != nil && *c.Timeout < 0 {
		return invalid(c, "timeout must not be negative")
	}
	if c.Interval < 0 {
		return invalid(c, "interval must not be negative")
	}
	return nil
}
