package window

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOpenRegistry(t *testing.T, focus Handle, handles ...Handle) *Registry {
	t.Helper()
	r := NewRegistry(nil)
	r.Observe(handles...)
	if focus != "" {
		require.NoError(t, r.Focus(focus))
	}
	return r
}

func TestRegistry_CurrentHandle_NoFocus(t *testing.T) {
	r := NewRegistry(nil)

	_, err := r.CurrentHandle()
	if !errors.Is(err, ErrNoFocusedWindow) {
		t.Errorf("CurrentHandle() error = %v, want ErrNoFocusedWindow", err)
	}
}

func TestRegistry_Observe(t *testing.T) {
	r := NewRegistry(nil)

	added := r.Observe("a", "b", "")
	assert.Equal(t, []Handle{"a", "b"}, added)

	added = r.Observe("b", "c")
	assert.Equal(t, []Handle{"c"}, added)

	assert.Equal(t, NewHandleSet("a", "b", "c"), r.AllHandles())
	assert.Equal(t, StateOpen, r.State("a"))
	assert.Equal(t, StateUnknown, r.State("zzz"))
}

func TestRegistry_FocusUnknownAlwaysFails(t *testing.T) {
	registries := map[string]*Registry{
		"empty":     NewRegistry(nil),
		"populated": newOpenRegistry(t, "a", "a", "b"),
		"no focus":  newOpenRegistry(t, "", "a"),
	}

	for name, r := range registries {
		t.Run(name, func(t *testing.T) {
			err := r.Focus("never-seen")

			var uwe *UnknownWindowError
			require.ErrorAs(t, err, &uwe)
			assert.ErrorIs(t, err, ErrUnknownWindow)
			assert.Equal(t, Handle("never-seen"), uwe.Handle)
		})
	}
}

func TestRegistry_CloseCurrentRequiresRefocus(t *testing.T) {
	r := newOpenRegistry(t, "parent", "parent", "child")

	closed, err := r.CloseCurrent()
	require.NoError(t, err)
	assert.Equal(t, Handle("parent"), closed)

	for i := 0; i < 3; i++ {
		_, err := r.CurrentHandle()
		assert.ErrorIs(t, err, ErrNoFocusedWindow)
	}
	assert.False(t, r.HasFocus())

	_, err = r.CloseCurrent()
	assert.ErrorIs(t, err, ErrNoFocusedWindow)

	require.NoError(t, r.Focus("child"))
	current, err := r.CurrentHandle()
	require.NoError(t, err)
	assert.Equal(t, Handle("child"), current)
}

func TestRegistry_ClosedHandleNeverReopens(t *testing.T) {
	r := newOpenRegistry(t, "a", "a", "b")
	_, err := r.CloseCurrent()
	require.NoError(t, err)

	assert.Empty(t, r.Observe("a"))
	assert.Equal(t, StateClosed, r.State("a"))
	assert.False(t, r.AllHandles().Contains("a"))

	err = r.Focus("a")
	var uwe *UnknownWindowError
	require.ErrorAs(t, err, &uwe)
	assert.Equal(t, StateClosed, uwe.State)
	assert.Contains(t, err.Error(), "closed")
}

func TestRegistry_Reconcile(t *testing.T) {
	r := newOpenRegistry(t, "b", "a", "b", "c")

	closed := r.Reconcile(NewHandleSet("a", "c"))
	assert.Equal(t, []Handle{"b"}, closed)
	assert.False(t, r.HasFocus())
	assert.Equal(t, NewHandleSet("a", "c"), r.AllHandles())
}

func TestRegistry_CloseAll(t *testing.T) {
	r := newOpenRegistry(t, "a", "a", "b")

	closed := r.CloseAll()
	assert.ElementsMatch(t, []Handle{"a", "b"}, closed)
	assert.Zero(t, r.AllHandles().Len())

	snap := r.Snapshot()
	require.Len(t, snap, 2)
	for _, rec := range snap {
		assert.Equal(t, StateClosed, rec.State)
	}
}

func TestState_Transitions(t *testing.T) {
	tests := []struct {
		from, to State
		want     bool
	}{
		{StateUnknown, StateOpen, true},
		{StateOpen, StateClosed, true},
		{StateUnknown, StateClosed, false},
		{StateClosed, StateOpen, false},
		{StateOpen, StateOpen, false},
	}

	for _, tt := range tests {
		t.Run(tt.from.String()+"->"+tt.to.String(), func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
				t.Errorf("CanTransitionTo() = %v, want %v", got, tt.want)
			}
		})
	}

	if !StateClosed.IsTerminal() {
		t.Error("Closed should be terminal")
	}
	if StateOpen.IsTerminal() {
		t.Error("Open should not be terminal")
	}
}
