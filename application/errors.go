package application

import (
	"context"
	"errors"
	"fmt"

	"multiwindow-go/application/session"
	"multiwindow-go/core/command"
	"multiwindow-go/core/wait"
	"multiwindow-go/core/window"
	"multiwindow-go/domain/report"
	"multiwindow-go/domain/scenario"
	"multiwindow-go/infrastructure/browser"
)

// ErrUnknownVariable is returned when a step refers to a window variable
// that no earlier step set.
var ErrUnknownVariable = errors.New("unknown window variable")

// AssertionError reports a step whose observed outcome differs from the
// expected one.
type AssertionError struct {
	What string
	Want string
	Got  string
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("%s: want %s, got %s", e.What, e.Want, e.Got)
}

// StepError identifies the top-level step a scenario failed in.
type StepError struct {
	Index   int
	Command string
	Err     error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s): %v", e.Index, e.Command, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// ignoreKinds maps the failure names scenarios use to the errors a wait
// policy matches.
var ignoreKinds = map[string]error{
	"no_such_element":  browser.ErrNoSuchElement,
	"not_interactable": browser.ErrNotInteractable,
	"no_such_window":   browser.ErrNoSuchWindow,
}

func resolveIgnored(names []string) ([]error, error) {
	out := make([]error, 0, len(names))
	for _, name := range names {
		kind, ok := ignoreKinds[name]
		if !ok {
			return nil, fmt.Errorf("%w: unknown failure kind %q", command.ErrInvalidCommand, name)
		}
		out = append(out, kind)
	}
	return out, nil
}

// ErrorKind classifies err for run reports. Timeouts are checked first: a
// TimeoutError unwraps to its last failure, which is an ignored lookup
// error for polled waits and context.DeadlineExceeded for Within.
func ErrorKind(err error) report.ErrorKind {
	var (
		assertion *AssertionError
		count     *session.WindowCountError
	)

	switch {
	case err == nil:
		return report.KindNone
	case errors.Is(err, wait.ErrTimeout), errors.Is(err, browser.ErrTimeout):
		return report.KindTimeout
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return report.KindCancelled
	case errors.Is(err, session.ErrClosed):
		return report.KindSessionClosed
	case errors.Is(err, window.ErrNoFocusedWindow):
		return report.KindNoFocusedWindow
	case errors.Is(err, window.ErrUnknownWindow):
		return report.KindUnknownWindow
	case errors.Is(err, browser.ErrNoSuchElement):
		return report.KindNoSuchElement
	case errors.Is(err, browser.ErrNotInteractable):
		return report.KindNotInteractable
	case errors.Is(err, browser.ErrNoSuchWindow):
		return report.KindNoSuchWindow
	case errors.Is(err, command.ErrInvalidCommand),
		errors.Is(err, browser.ErrInvalidLocator),
		errors.Is(err, scenario.ErrNotFound),
		errors.Is(err, ErrUnknownVariable):
		return report.KindInvalidScenario
	case errors.As(err, &assertion), errors.As(err, &count):
		return report.KindAssertion
	default:
		return report.KindDriver
	}
}
