// Package command defines the steps a scenario is made of.
// Commands are plain data; the application layer executes them against a
// session.
package command

import (
	"errors"
	"fmt"
)

// Command is the base interface for all commands.
type Command interface {
	// CommandName returns the name of the command for logging/debugging
	CommandName() string
}

// Validator is implemented by commands that can check their own fields.
type Validator interface {
	Validate() error
}

// ErrInvalidCommand is wrapped by every validation failure.
var ErrInvalidCommand = errors.New("invalid command")

func invalid(c Command, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidCommand, c.CommandName(), fmt.Sprintf(format, args...))
}

// Validate validates c and, recursively, any nested commands.
func Validate(c Command) error {
	if c == nil {
		return fmt.Errorf("%w: nil", ErrInvalidCommand)
	}
	if v, ok := c.(Validator); ok {
		return v.Validate()
	}
	return nil
}
