package scenario

import (
	"sort"
	"sync"
)

// Registry manages scenario definitions and provides lookup functionality.
type Registry struct {
	scenarios map[string]*Scenario
	mu        sync.RWMutex
}

// NewRegistry creates a new empty scenario registry.
func NewRegistry() *Registry {
	return &Registry{
		scenarios: make(map[string]*Scenario),
	}
}

// Register adds a scenario to the registry.
// If a scenario with the same name exists, it will be replaced.
func (r *Registry) Register(s *Scenario) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scenarios[s.Name] = s
}

// Get retrieves a scenario by name.
// Returns nil if not found.
func (r *Registry) Get(name string) *Scenario {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.scenarios[name]
}

// Lookup resolves names to scenarios, failing on the first unknown name.
func (r *Registry) Lookup(names ...string) ([]*Scenario, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Scenario, 0, len(names))
	for _, name := range names {
		s, ok := r.scenarios[name]
		if !ok {
			return nil, &NotFoundError{Name: name}
		}
		out = append(out, s)
	}
	return out, nil
}

// List returns all registered scenario names, sorted alphabetically.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.scenarios))
	for name := range r.scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns all registered scenarios, sorted by name.
func (r *Registry) All() []*Scenario {
	r.mu.RLock()
	defer r.mu.RUnlock()

	scenarios := make([]*Scenario, 0, len(r.scenarios))
	for _, s := range r.scenarios {
		scenarios = append(scenarios, s)
	}
	sort.Slice(scenarios, func(i, j int) bool {
		return scenarios[i].Name < scenarios[j].Name
	})
	return scenarios
}

// Count returns the number of registered scenarios.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.scenarios)
}

// Exists checks if a scenario with the given name exists.
func (r *Registry) Exists(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.scenarios[name]
	return ok
}

// NotFoundError names the missing scenario.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return "scenario not found: " + e.Name
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}
