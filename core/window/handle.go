// Package window tracks the browser windows known to an automation session
// and which one currently receives commands.
package window

import "sort"

// Handle is the opaque identifier of a top-level browser window, unique
// within a session.
type Handle string

// HandleSet is an unordered set of handles. Enumeration order carries no
// meaning; use Sorted when a stable order is needed.
type HandleSet map[Handle]struct{}

// NewHandleSet builds a set from the given handles.
func NewHandleSet(handles ...Handle) HandleSet {
	s := make(HandleSet, len(handles))
	for _, h := range handles {
		s[h] = struct{}{}
	}
	return s
}

// HandleSetOf builds a set from raw driver handles.
func HandleSetOf(raw []string) HandleSet {
	s := make(HandleSet, len(raw))
	for _, h := range raw {
		s[Handle(h)] = struct{}{}
	}
	return s
}

// Contains reports whether h is in the set.
func (s HandleSet) Contains(h Handle) bool {
	_, ok := s[h]
	return ok
}

// Len returns the number of handles.
func (s HandleSet) Len() int {
	return len(s)
}

// Difference returns the handles in s that are not in other.
func (s HandleSet) Difference(other HandleSet) HandleSet {
	out := make(HandleSet)
	for h := range s {
		if !other.Contains(h) {
			out[h] = struct{}{}
		}
	}
	return out
}

// Sorted returns the handles in lexical order.
func (s HandleSet) Sorted() []Handle {
	out := make([]Handle, 0, len(s))
	for h := range s {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Strings returns the handles as sorted strings, for logging.
func (s HandleSet) Strings() []string {
	sorted := s.Sorted()
	out := make([]string, len(sorted))
	for i, h := range sorted {
		out[i] = string(h)
	}
	return out
}

// ObserveNewWindows returns the handles present after a triggering action
// that were not present before it.
func ObserveNewWindows(before, after HandleSet) HandleSet {
	return after.Difference(before)
}
