package browser

import (
	"errors"
	"fmt"
)

var (
	// ErrNotRunning is returned by commands issued before Start or after Stop.
	ErrNotRunning = errors.New("browser not running")

	// ErrNoSuchElement is the transient lookup failure: the element is not
	// (yet) in the document.
	ErrNoSuchElement = errors.New("no such element")

	// ErrNotInteractable means the element exists but is hidden or disabled.
	ErrNotInteractable = errors.New("element not interactable")

	// ErrNoSuchWindow means the target window is closed or was never known,
	// or no window is current.
	ErrNoSuchWindow = errors.New("no such window")

	// ErrInvalidLocator is returned for malformed locators.
	ErrInvalidLocator = errors.New("invalid locator")

	// ErrTimeout means the browser gave up on a page load or script under
	// its own timeout.
	ErrTimeout = errors.New("browser timeout")
)

// LookupError ties an element failure to the locator that caused it.
type LookupError struct {
	Locator Locator
	Err     error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("%s: %v", e.Locator, e.Err)
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

// UnsupportedKindError is returned by New for unknown driver kinds.
type UnsupportedKindError struct {
	Kind Kind
}

func (e *UnsupportedKindError) Error() string {
	return fmt.Sprintf("unsupported driver kind %q", e.Kind)
}
