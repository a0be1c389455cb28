package event

// WindowObserved is published when a session learns a new window handle.
type WindowObserved struct {
	origin
	Handle string
}

func NewWindowObserved(sessionID, handle string) *WindowObserved {
	return &WindowObserved{
		origin: origin{sessionID: sessionID},
		Handle: handle,
	}
}

func (e *WindowObserved) EventName() string {
	return NameWindowObserved
}

// WindowFocused is published when commands are routed to a new window.
type WindowFocused struct {
	origin
	Handle string
}

func NewWindowFocused(sessionID, handle string) *WindowFocused {
	return &WindowFocused{
		origin: origin{sessionID: sessionID},
		Handle: handle,
	}
}

func (e *WindowFocused) EventName() string {
	return NameWindowFocused
}

// WindowClosed is published when a window reaches the Closed state.
// External is true when the window vanished without a close command.
type WindowClosed struct {
	origin
	Handle   string
	External bool
}

func NewWindowClosed(sessionID, handle string, external bool) *WindowClosed {
	return &WindowClosed{
		origin:   origin{sessionID: sessionID},
		Handle:   handle,
		External: external,
	}
}

func (e *WindowClosed) EventName() string {
	return NameWindowClosed
}

// HandlesListed is published when a scenario asks for the known handles.
type HandlesListed struct {
	origin
	Current string // empty when nothing is focused
	Handles []string
}

func NewHandlesListed(sessionID, current string, handles []string) *HandlesListed {
	return &HandlesListed{
		origin:  origin{sessionID: sessionID},
		Current: current,
		Handles: handles,
	}
}

func (e *HandlesListed) EventName() string {
	return NameHandlesListed
}
