package window

import (
	"errors"
	"fmt"
)

var (
	// ErrNoFocusedWindow is returned by window-scoped commands issued while
	// no window has focus, typically right after the focused window closed.
	ErrNoFocusedWindow = errors.New("no focused window")

	// ErrUnknownWindow matches every *UnknownWindowError via errors.Is.
	ErrUnknownWindow = errors.New("unknown window")
)

// UnknownWindowError is returned when focus is requested on a handle that
// was never observed or is already closed.
type UnknownWindowError struct {
	Handle Handle
	State  State
}

func (e *UnknownWindowError) Error() string {
	if e.State == StateClosed {
		return fmt.Sprintf("unknown window %q: window is closed", e.Handle)
	}
	return fmt.Sprintf("unknown window %q: never observed in this session", e.Handle)
}

// Is reports whether target is ErrUnknownWindow.
func (e *UnknownWindowError) Is(target error) bool {
	return target == ErrUnknownWindow
}
