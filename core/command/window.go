package command

// RememberWindow stores the focused handle in a scenario variable.
type RememberWindow struct {
	As string
}

func (c *RememberWindow) CommandName() string {
	return "RememberWindow"
}

func (c *RememberWindow) Validate() error {
	if c.As == "" {
		return invalid(c, "variable name is required")
	}
	return nil
}

// SwitchWindow focuses a window, either the one stored in variable To or
// the one at Index in opening order (-1 is the newest).
type SwitchWindow struct {
	To    string
	Index *int
}

func (c *SwitchWindow) CommandName() string {
	return "SwitchWindow"
}

func (c *SwitchWindow) Validate() error {
	if (c.To == "") == (c.Index == nil) {
		return invalid(c, "exactly one of to and index is required")
	}
	return nil
}

// ForEachWindow focuses every open window in turn and runs Steps in it.
// Windows stored in the Except variable are skipped. The last window
// visited is stored in variable Last, when set.
type ForEachWindow struct {
	Except string
	Last   string
	Steps  []Command
}

func (c *ForEachWindow) CommandName() string {
	return "ForEachWindow"
}

func (c *ForEachWindow) Validate() error {
	if len(c.Steps) == 0 {
		return invalid(c, "steps are required")
	}
	for _, step := range c.Steps {
		if err := Validate(step); err != nil {
			return err
		}
	}
	return nil
}

// CloseWindow closes the focused window. Nothing is focused afterwards.
type CloseWindow struct{}

func (c *CloseWindow) CommandName() string {
	return "CloseWindow"
}

// ExpectWindows asserts the number of open windows.
type ExpectWindows struct {
	Count int
}

func (c *ExpectWindows) CommandName() string {
	return "ExpectWindows"
}

func (c *ExpectWindows) Validate() error {
	if c.Count < 0 {
		return invalid(c, "count must not be negative")
	}
	return nil
}

// LogHandles publishes the focused handle and every open handle.
type LogHandles struct{}

func (c *LogHandles) CommandName() string {
	return "LogHandles"
}
