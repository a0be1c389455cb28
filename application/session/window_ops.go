package session

import (
	"context"
	"errors"
	"fmt"

	"multiwindow-go/core/event"
	"multiwindow-go/core/window"
	"multiwindow-go/infrastructure/browser"
)

// CurrentHandle returns the focused window.
func (s *Session) CurrentHandle() (window.Handle, error) {
	return s.focused()
}

// Refresh asks the driver for its live windows and brings the registry in
// line: unseen handles are observed, vanished ones are marked closed.
func (s *Session) Refresh(ctx context.Context) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	raw, err := s.driver.WindowHandles(ctx)
	if err != nil {
		return s.failed("window_handles", fmt.Errorf("failed to list windows: %w", err))
	}
	live := window.HandleSetOf(raw)

	handles := make([]window.Handle, len(raw))
	for i, h := range raw {
		handles[i] = window.Handle(h)
	}
	for _, h := range s.registry.Observe(handles...) {
		s.publishEvent(event.NewWindowObserved(s.id, string(h)))
	}
	for _, h := range s.registry.Reconcile(live) {
		s.logger.Info("Window closed outside the session", "handle", h)
		s.publishEvent(event.NewWindowClosed(s.id, string(h), true))
	}
	return nil
}

// AllHandles refreshes and returns every open window of the session.
func (s *Session) AllHandles(ctx context.Context) (window.HandleSet, error) {
	if err := s.Refresh(ctx); err != nil {
		return nil, err
	}
	return s.registry.AllHandles(), nil
}

// Handles refreshes and returns the open windows in the order the session
// observed them. The first is the window the session started with.
func (s *Session) Handles(ctx context.Context) ([]window.Handle, error) {
	if err := s.Refresh(ctx); err != nil {
		return nil, err
	}

	var open []window.Handle
	for _, rec := range s.registry.Snapshot() {
		if rec.State == window.StateOpen {
			open = append(open, rec.Handle)
		}
	}
	return open, nil
}

// OpenWindows runs fn and returns the windows that appeared while it ran,
// in observation order. Focus does not move.
func (s *Session) OpenWindows(ctx context.Context, fn func(ctx context.Context) error) ([]window.Handle, error) {
	before, err := s.AllHandles(ctx)
	if err != nil {
		return nil, err
	}

	if err := fn(ctx); err != nil {
		return nil, err
	}

	after, err := s.AllHandles(ctx)
	if err != nil {
		return nil, err
	}

	opened := window.ObserveNewWindows(before, after)
	var out []window.Handle
	for _, rec := range s.registry.Snapshot() {
		if opened.Contains(rec.Handle) {
			out = append(out, rec.Handle)
		}
	}
	s.logger.Debug("Windows opened", "count", len(out))
	return out, nil
}

// Focus routes subsequent window-scoped commands to h. The handle must have
// been observed by this session and still be open.
func (s *Session) Focus(ctx context.Context, h window.Handle) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if st := s.registry.State(h); st != window.StateOpen {
		return s.failed("focus", &window.UnknownWindowError{Handle: h, State: st})
	}

	if err := s.driver.SwitchToWindow(ctx, string(h)); err != nil {
		if !errors.Is(err, browser.ErrNoSuchWindow) {
			return s.failed("focus", fmt.Errorf("failed to switch to window %s: %w", h, err))
		}
		// Closed behind our back.
		if refreshErr := s.Refresh(ctx); refreshErr != nil {
			return refreshErr
		}
		return s.failed("focus", &window.UnknownWindowError{Handle: h, State: s.registry.State(h)})
	}

	if err := s.registry.Focus(h); err != nil {
		return s.failed("focus", err)
	}
	s.publishEvent(event.NewWindowFocused(s.id, string(h)))
	s.logger.Debug("Window focused", "handle", h)
	return nil
}

// CloseCurrent closes the focused window. Nothing is focused afterwards;
// call Focus before issuing more window-scoped commands.
func (s *Session) CloseCurrent(ctx context.Context) (window.Handle, error) {
	h, err := s.focused()
	if err != nil {
		return "", err
	}

	if err := s.driver.CloseWindow(ctx); err != nil && !errors.Is(err, browser.ErrNoSuchWindow) {
		return "", s.failed("close_window", fmt.Errorf("failed to close window %s: %w", h, err))
	}

	if _, err := s.registry.CloseCurrent(); err != nil {
		return "", err
	}
	s.publishEvent(event.NewWindowClosed(s.id, string(h), false))
	s.logger.Info("Window closed", "handle", h)
	return h, nil
}

// LogHandles publishes the focused handle, empty when none, and every open
// handle in observation order.
func (s *Session) LogHandles(ctx context.Context) ([]window.Handle, error) {
	handles, err := s.Handles(ctx)
	if err != nil {
		return nil, err
	}

	current, _ := s.registry.CurrentHandle()
	raw := make([]string, len(handles))
	for i, h := range handles {
		raw[i] = string(h)
	}
	s.publishEvent(event.NewHandlesListed(s.id, string(current), raw))
	s.logger.Info("Window handles", "current", current, "handles", raw)
	return handles, nil
}
