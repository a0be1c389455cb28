package session

import (
	"context"
	"fmt"

	"multiwindow-go/core/event"
	"multiwindow-go/core/wait"
	"multiwindow-go/core/window"
	"multiwindow-go/infrastructure/browser"
)

// Await blocks until cond holds under p, using the session's coordinator.
// Time spent is added to WaitElapsed and the outcome is published.
func Await[T any](ctx context.Context, s *Session, cond wait.Condition[T], p wait.Policy) (T, error) {
	polls := 0
	counted := func(ctx context.Context) (T, bool, error) {
		polls++
		return cond(ctx)
	}

	clock := s.waits.Clock()
	start := clock.Now()
	value, err := wait.Until(ctx, s.waits, counted, p)
	elapsed := clock.Now().Sub(start)
	s.addWaitElapsed(elapsed)

	if err != nil {
		s.publishEvent(event.NewWaitFailed(s.id, p.Description, elapsed, err))
		return value, err
	}
	s.publishEvent(event.NewWaitSatisfied(s.id, p.Description, polls, elapsed))
	return value, nil
}

// ElementPresent holds once loc exists in the focused window. A missing
// element is reported as browser.ErrNoSuchElement, which the policy must
// ignore for the wait to keep polling.
func (s *Session) ElementPresent(loc browser.Locator) wait.Condition[*browser.Element] {
	return func(ctx context.Context) (*browser.Element, bool, error) {
		if _, err := s.focused(); err != nil {
			return nil, false, err
		}
		el, err := s.driver.FindElement(ctx, loc)
		if err != nil {
			return nil, false, err
		}
		return el, true, nil
	}
}

// ElementVisible holds once loc exists and is displayed.
func (s *Session) ElementVisible(loc browser.Locator) wait.Condition[*browser.Element] {
	present := s.ElementPresent(loc)
	return func(ctx context.Context) (*browser.Element, bool, error) {
		el, ok, err := present(ctx)
		if !ok || err != nil {
			return nil, false, err
		}
		return el, el.Visible, nil
	}
}

// ElementClickable holds once loc is displayed and enabled.
func (s *Session) ElementClickable(loc browser.Locator) wait.Condition[*browser.Element] {
	present := s.ElementPresent(loc)
	return func(ctx context.Context) (*browser.Element, bool, error) {
		el, ok, err := present(ctx)
		if !ok || err != nil {
			return nil, false, err
		}
		return el, el.Clickable(), nil
	}
}

// PageLoaded holds once the focused document reports readyState complete.
func (s *Session) PageLoaded() wait.Condition[string] {
	return func(ctx context.Context) (string, bool, error) {
		state, err := s.ReadyState(ctx)
		if err != nil {
			return "", false, err
		}
		return state, state == "complete", nil
	}
}

// WindowCount holds once exactly n windows are open.
func (s *Session) WindowCount(n int) wait.Condition[window.HandleSet] {
	return func(ctx context.Context) (window.HandleSet, bool, error) {
		handles, err := s.AllHandles(ctx)
		if err != nil {
			return nil, false, err
		}
		return handles, handles.Len() == n, nil
	}
}

// ExpectWindows fails unless exactly n windows are open right now.
func (s *Session) ExpectWindows(ctx context.Context, n int) error {
	handles, err := s.AllHandles(ctx)
	if err != nil {
		return err
	}
	if handles.Len() != n {
		return &WindowCountError{Want: n, Got: handles.Len()}
	}
	return nil
}

// WindowCountError reports an unexpected number of open windows.
type WindowCountError struct {
	Want int
	Got  int
}

func (e *WindowCountError) Error() string {
	return fmt.Sprintf("expected %d open windows, found %d", e.Want, e.Got)
}
