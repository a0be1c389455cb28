// Package scenario defines browser scenarios: named, ordered lists of
// window and wait commands.
package scenario

import (
	"errors"
	"fmt"

	"multiwindow-go/core/command"
)

// ErrNotFound is returned when a scenario name is not registered.
var ErrNotFound = errors.New("scenario not found")

// Scenario represents a browser automation scenario with metadata and steps.
type Scenario struct {
	// Name is the unique identifier for this scenario
	Name string

	// Description provides a human-readable explanation of what the scenario does
	Description string

	// Version is the scenario version for compatibility tracking
	Version string

	// Author is the scenario creator
	Author string

	// Steps are the ordered commands
	Steps []command.Command
}

// Validate checks the scenario and every step.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("scenario name is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("scenario %s has no steps", s.Name)
	}
	for i, step := range s.Steps {
		if err := command.Validate(step); err != nil {
			return fmt.Errorf("scenario %s step %d: %w", s.Name, i, err)
		}
	}
	return nil
}

// CountSteps returns the number of commands including nested ones.
func (s *Scenario) CountSteps() int {
	return countSteps(s.Steps)
}

func countSteps(steps []command.Command) int {
	n := 0
	for _, step := range steps {
		n++
		if fe, ok := step.(*command.ForEachWindow); ok {
			n += countSteps(fe.Steps)
		}
	}
	return n
}
