// Package session binds one browser driver to the window registry and wait
// coordinator that track it. A Session is used by a single goroutine at a
// time; parallel scenarios each open their own.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"multiwindow-go/core/event"
	"multiwindow-go/core/eventbus"
	"multiwindow-go/core/state"
	"multiwindow-go/core/wait"
	"multiwindow-go/core/window"
	"multiwindow-go/infrastructure/browser"
)

// ErrClosed is returned by every operation on a closed session.
var ErrClosed = errors.New("session closed")

// Config holds configuration for opening a Session.
type Config struct {
	// ID identifies the session; a UUID is generated when empty.
	ID string
	// Driver is the browser backend. The session starts and stops it.
	Driver browser.Driver
	// DriverName labels the backend in events and reports.
	DriverName string
	// Timeouts are applied once the browser is up.
	Timeouts browser.Timeouts
	// Clock drives waits; wall time when nil.
	Clock wait.Clock
	// EventBus receives session, window and wait events; may be nil.
	EventBus eventbus.EventBus
	// ArtifactsDir is where screenshots are written.
	ArtifactsDir string
	Logger       *slog.Logger
}

// Session is one exclusively owned browser connection.
type Session struct {
	id         string
	driverName string

	state   state.SessionState
	stateMu sync.RWMutex

	driver   browser.Driver
	registry *window.Registry
	waits    *wait.Coordinator
	screens  *ScreenCapture
	eventBus eventbus.EventBus
	logger   *slog.Logger

	timeouts    browser.Timeouts
	waitElapsed time.Duration
}

// New creates an idle session. Most callers want Open or With.
func New(cfg *Config) *Session {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}

	logger := cfg.Logger.With("session_id", cfg.ID)
	opts := []wait.Option{wait.WithLogger(logger)}
	if cfg.Clock != nil {
		opts = append(opts, wait.WithClock(cfg.Clock))
	}

	return &Session{
		id:         cfg.ID,
		driverName: cfg.DriverName,
		state:      state.StateIdle,
		driver:     cfg.Driver,
		registry:   window.NewRegistry(logger),
		waits:      wait.NewCoordinator(opts...),
		screens:    NewScreenCapture(cfg.Driver, cfg.ArtifactsDir, logger),
		eventBus:   cfg.EventBus,
		logger:     logger,
		timeouts:   cfg.Timeouts,
	}
}

// Open creates a session, starts its browser and focuses the first window.
func Open(ctx context.Context, cfg *Config) (*Session, error) {
	s := New(cfg)
	if err := s.start(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// With opens a session, passes it to fn and always closes it. The error
// from fn takes precedence over the error from Close.
func With(ctx context.Context, cfg *Config, fn func(s *Session) error) (err error) {
	s, err := Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := s.Close(); err == nil {
			err = closeErr
		}
	}()
	return fn(s)
}

func (s *Session) start(ctx context.Context) error {
	if err := s.transitionTo(state.StateStarting); err != nil {
		return err
	}

	if err := s.driver.Start(ctx); err != nil {
		s.transitionTo(state.StateStopped)
		return fmt.Errorf("failed to start browser: %w", err)
	}

	first, err := s.driver.WindowHandle(ctx)
	if err == nil {
		err = s.driver.SetTimeouts(ctx, s.driverTimeouts())
	}
	if err != nil {
		_ = s.driver.Stop()
		s.transitionTo(state.StateStopped)
		return fmt.Errorf("failed to initialise browser: %w", err)
	}

	h := window.Handle(first)
	s.registry.Observe(h)
	if err := s.registry.Focus(h); err != nil {
		return err
	}

	if err := s.transitionTo(state.StateReady); err != nil {
		return err
	}
	s.publishEvent(event.NewSessionStarted(s.id, s.driverName, first))
	s.logger.Info("Session started", "driver", s.driverName, "handle", first)
	return nil
}

// Close closes every window and stops the browser. Closing twice is a no-op.
func (s *Session) Close() error {
	current := s.State()
	if current == state.StateStopping || current.IsTerminal() {
		return nil
	}
	if current == state.StateIdle {
		return s.transitionTo(state.StateStopped)
	}
	if current == state.StateRunning {
		s.transitionTo(state.StateReady)
	}
	if err := s.transitionTo(state.StateStopping); err != nil {
		return err
	}

	for _, h := range s.registry.CloseAll() {
		s.publishEvent(event.NewWindowClosed(s.id, string(h), false))
	}

	var stopErr error
	if s.driver.IsRunning() {
		if err := s.driver.Stop(); err != nil {
			s.logger.Error("Failed to stop browser", "error", err)
			stopErr = fmt.Errorf("failed to stop browser: %w", err)
		}
	}

	s.transitionTo(state.StateStopped)
	s.publishEvent(event.NewSessionStopped(s.id, stopErr))
	s.logger.Info("Session stopped")
	return stopErr
}

// Run marks the session busy while fn executes a scenario.
func (s *Session) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	if !s.State().CanRunScenario() {
		if s.isClosed() {
			return ErrClosed
		}
		return fmt.Errorf("cannot run scenario in state %s", s.State())
	}
	if err := s.transitionTo(state.StateRunning); err != nil {
		return err
	}
	defer func() {
		if s.State() == state.StateRunning {
			s.transitionTo(state.StateReady)
		}
	}()
	return fn(ctx)
}

// ID returns the session ID.
func (s *Session) ID() string {
	return s.id
}

// DriverName returns the backend label.
func (s *Session) DriverName() string {
	return s.driverName
}

// State returns the current session state.
func (s *Session) State() state.SessionState {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

// Registry returns the window registry.
func (s *Session) Registry() *window.Registry {
	return s.registry
}

// Waits returns the wait coordinator.
func (s *Session) Waits() *wait.Coordinator {
	return s.waits
}

// WaitElapsed returns the total time spent in explicit and implicit waits.
func (s *Session) WaitElapsed() time.Duration {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.waitElapsed
}

func (s *Session) addWaitElapsed(d time.Duration) {
	s.stateMu.Lock()
	s.waitElapsed += d
	s.stateMu.Unlock()
}

// Sleep pauses on the session clock.
func (s *Session) Sleep(ctx context.Context, d time.Duration) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.waits.Clock().Sleep(ctx, d)
}

func (s *Session) isClosed() bool {
	st := s.State()
	return st == state.StateStopping || st.IsTerminal()
}

// checkOpen fails once the session has started closing.
func (s *Session) checkOpen() error {
	if s.isClosed() {
		return ErrClosed
	}
	if !s.State().CanAcceptCommands() {
		return fmt.Errorf("session not ready: %s", s.State())
	}
	return nil
}

// focused returns the focused window, failing when the session is closed
// or nothing has focus.
func (s *Session) focused() (window.Handle, error) {
	if err := s.checkOpen(); err != nil {
		return "", err
	}
	return s.registry.CurrentHandle()
}

func (s *Session) transitionTo(newState state.SessionState) error {
	s.stateMu.Lock()
	oldState := s.state

	if err := state.SessionTransitions.Check("session", oldState, newState); err != nil {
		s.stateMu.Unlock()
		return err
	}

	s.state = newState
	s.stateMu.Unlock()

	s.publishEvent(event.NewSessionStateChanged(s.id, oldState, newState))
	s.logger.Debug("State changed", "from", oldState, "to", newState)
	return nil
}

func (s *Session) publishEvent(e event.Event) {
	if s.eventBus != nil {
		s.eventBus.Publish(e)
	}
}

// failed publishes an OperationFailed event and returns err unchanged.
func (s *Session) failed(operation string, err error) error {
	if err != nil {
		s.publishEvent(event.NewOperationFailed(s.id, operation, err))
	}
	return err
}
