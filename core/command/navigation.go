package command

import "time"

// Navigate loads a URL in the focused window.
type Navigate struct {
	URL string
}

func (c *Navigate) CommandName() string {
	return "Navigate"
}

func (c *Navigate) Validate() error {
	if c.URL == "" {
		return invalid(c, "url is required")
	}
	return nil
}

// Reload refreshes the focused window.
type Reload struct{}

func (c *Reload) CommandName() string {
	return "Reload"
}

// SetTimeouts changes session timeouts. Nil fields are left unchanged;
// negative page-load and script values mean unbounded.
type SetTimeouts struct {
	PageLoad *time.Duration
	Script   *time.Duration
	Implicit *time.Duration
}

func (c *SetTimeouts) CommandName() string {
	return "SetTimeouts"
}

func (c *SetTimeouts) Validate() error {
	if c.PageLoad == nil && c.Script == nil && c.Implicit == nil {
		return invalid(c, "no timeout given")
	}
	if c.Implicit != nil && *c.Implicit < 0 {
		return invalid(c, "implicit wait must not be negative")
	}
	return nil
}

// Execute runs a script in the focused window. When Expect is set the
// JSON result must equal it.
type Execute struct {
	Script string
	Async  bool
	Expect string
}

func (c *Execute) CommandName() string {
	return "Execute"
}

func (c *Execute) Validate() error {
	if c.Script == "" {
		return invalid(c, "script is required")
	}
	return nil
}

// Screenshot saves the focused window to the artifacts directory.
type Screenshot struct {
	Name string
}

func (c *Screenshot) CommandName() string {
	return "Screenshot"
}

// Sleep pauses the scenario.
type Sleep struct {
	Duration time.Duration
}

func (c *Sleep) CommandName() string {
	return "Sleep"
}

func (c *Sleep) Validate() error {
	if c.Duration <= 0 {
		return invalid(c, "duration must be positive")
	}
	return nil
}
