package window

import (
	"log/slog"
	"sync"
)

// Registry records the windows known to one session and which one has
// focus. A session owns exactly one Registry.
type Registry struct {
	windows map[Handle]State
	// seq remembers observation order for Observe's return value only.
	seq     []Handle
	focused Handle
	mu      sync.RWMutex
	logger  *slog.Logger
}

// NewRegistry creates an empty registry with no focused window.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		windows: make(map[Handle]State),
		logger:  logger,
	}
}

// Observe records handles reported by the driver. Handles not seen before
// become Open; closed handles stay closed. It returns the newly learned
// handles in the order given.
func (r *Registry) Observe(handles ...Handle) []Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	var added []Handle
	for _, h := range handles {
		if h == "" {
			continue
		}
		if !r.windows[h].CanTransitionTo(StateOpen) {
			continue
		}
		r.windows[h] = StateOpen
		r.seq = append(r.seq, h)
		added = append(added, h)
		r.logger.Debug("Window observed", "handle", h)
	}
	return added
}

// Reconcile marks every open window absent from live as closed, e.g. after
// a page closed itself. Focus is cleared if the focused window vanished.
// It returns the handles that were closed.
func (r *Registry) Reconcile(live HandleSet) []Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	var closed []Handle
	for _, h := range r.seq {
		if r.windows[h] == StateOpen && !live.Contains(h) {
			r.closeLocked(h)
			closed = append(closed, h)
		}
	}
	return closed
}

// CurrentHandle returns the focused window.
func (r *Registry) CurrentHandle() (Handle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.focused == "" {
		return "", ErrNoFocusedWindow
	}
	return r.focused, nil
}

// HasFocus reports whether some window is focused.
func (r *Registry) HasFocus() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.focused != ""
}

// AllHandles returns every open window known to the session.
func (r *Registry) AllHandles() HandleSet {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(HandleSet, len(r.windows))
	for h, s := range r.windows {
		if s == StateOpen {
			out[h] = struct{}{}
		}
	}
	return out
}

// State returns the lifecycle state of h.
func (r *Registry) State(h Handle) State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.windows[h]
}

// Focus routes subsequent commands to h.
func (r *Registry) Focus(h Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s := r.windows[h]; s != StateOpen {
		return &UnknownWindowError{Handle: h, State: s}
	}
	r.focused = h
	return nil
}

// CloseCurrent marks the focused window closed. Afterwards nothing is
// focused and the caller must Focus another window before issuing more
// window-scoped commands.
func (r *Registry) CloseCurrent() (Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	h := r.focused
	if h == "" {
		return "", ErrNoFocusedWindow
	}
	r.closeLocked(h)
	return h, nil
}

// CloseAll marks every window closed, as when the session ends.
func (r *Registry) CloseAll() []Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	var closed []Handle
	for _, h := range r.seq {
		if r.windows[h] == StateOpen {
			r.closeLocked(h)
			closed = append(closed, h)
		}
	}
	return closed
}

// Snapshot returns every handle ever observed with its state, in
// observation order.
func (r *Registry) Snapshot() []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Record, len(r.seq))
	for i, h := range r.seq {
		out[i] = Record{Handle: h, State: r.windows[h]}
	}
	return out
}

// Record pairs a handle with its state.
type Record struct {
	Handle Handle
	State  State
}

// closeLocked must be called with mu held.
func (r *Registry) closeLocked(h Handle) {
	r.windows[h] = StateClosed
	if r.focused == h {
		r.focused = ""
	}
	r.logger.Debug("Window closed", "handle", h)
}
