package application

import (
	"log/slog"
	"sync"

	"multiwindow-go/core/event"
	"multiwindow-go/core/eventbus"
)

// Journal logs the events of every session on a bus and keeps per-session
// counters of window activity.
type Journal struct {
	bus    eventbus.EventBus
	subIDs []string
	logger *slog.Logger

	mu    sync.Mutex
	stats map[string]*WindowStats
}

// WindowStats counts window activity of one session.
type WindowStats struct {
	Observed int
	Focused  int
	Closed   int
	// External counts windows that closed outside the session.
	External int
	// LastHandles is the most recent handle listing.
	LastHandles []string
}

// NewJournal subscribes to every event on bus.
func NewJournal(bus eventbus.EventBus, logger *slog.Logger) *Journal {
	if logger == nil {
		logger = slog.Default()
	}
	j := &Journal{
		bus:    bus,
		logger: logger,
		stats:  make(map[string]*WindowStats),
	}
	j.subIDs = []string{
		bus.Subscribe(j.handleEvent),
		bus.Subscribe(j.countWindows, eventbus.ForEvents(event.WindowEvents...)),
	}
	return j
}

// Stop unsubscribes from the bus.
func (j *Journal) Stop() {
	for _, id := range j.subIDs {
		j.bus.Unsubscribe(id)
	}
}

// Stats returns a copy of the counters for sessionID.
func (j *Journal) Stats(sessionID string) WindowStats {
	j.mu.Lock()
	defer j.mu.Unlock()

	st, ok := j.stats[sessionID]
	if !ok {
		return WindowStats{}
	}
	out := *st
	out.LastHandles = append([]string(nil), st.LastHandles...)
	return out
}

func (j *Journal) statsFor(sessionID string) *WindowStats {
	st, ok := j.stats[sessionID]
	if !ok {
		st = &WindowStats{}
		j.stats[sessionID] = st
	}
	return st
}

// countWindows updates the window counters of the event's session.
func (j *Journal) countWindows(e event.Event) {
	se, ok := e.(event.SessionEvent)
	if !ok {
		return
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	st := j.statsFor(se.SessionID())
	switch evt := e.(type) {
	case *event.WindowObserved:
		st.Observed++
	case *event.WindowFocused:
		st.Focused++
	case *event.WindowClosed:
		st.Closed++
		if evt.External {
			st.External++
		}
	case *event.HandlesListed:
		st.LastHandles = append([]string(nil), evt.Handles...)
	}
}

// handleEvent logs events from the event bus.
func (j *Journal) handleEvent(e event.Event) {
	se, ok := e.(event.SessionEvent)
	if !ok {
		return
	}
	logger := j.logger.With("session_id", se.SessionID())

	switch evt := e.(type) {
	case *event.SessionStarted:
		logger.Info("Session started", "driver", evt.Driver, "handle", evt.Handle)
	case *event.SessionStopped:
		if evt.Error != nil {
			logger.Warn("Session stopped", "error", evt.Error)
		} else {
			logger.Info("Session stopped")
		}
	case *event.SessionStateChanged:
		logger.Debug("Session state changed", "from", evt.OldState, "to", evt.NewState)

	case *event.WindowObserved:
		logger.Info("Window observed", "handle", evt.Handle)
	case *event.WindowFocused:
		logger.Debug("Window focused", "handle", evt.Handle)
	case *event.WindowClosed:
		logger.Info("Window closed", "handle", evt.Handle, "external", evt.External)
	case *event.HandlesListed:
		logger.Info("Current window", "handle", evt.Current)
		for _, h := range evt.Handles {
			logger.Info("Window", "handle", h)
		}

	case *event.WaitSatisfied:
		logger.Debug("Wait satisfied", "condition", evt.Description, "polls", evt.Polls, "elapsed", evt.Elapsed)
	case *event.WaitFailed:
		logger.Warn("Wait failed", "condition", evt.Description, "elapsed", evt.Elapsed, "error", evt.Error)

	case *event.ScenarioStarted:
		logger.Info("Scenario started", "scenario", evt.Scenario)
	case *event.ScenarioStopped:
		logger.Info("Scenario stopped", "scenario", evt.Scenario, "reason", evt.Reason, "error", evt.Error)
	case *event.StepExecuted:
		logger.Debug("Step executed", "step", evt.StepIndex, "command", evt.StepName, "elapsed", evt.Elapsed, "error", evt.Error)
	case *event.ScreenCaptured:
		logger.Info("Screenshot saved", "handle", evt.Handle, "path", evt.Path)
	case *event.OperationFailed:
		logger.Debug("Operation failed", "operation", evt.Operation, "error", evt.Error)
	}
}
