//go:build !prod

package logging

import (
	"log/slog"
	"os"
)

// Setup initializes logging for development builds: records go to stderr
// so command output on stdout stays clean. The returned close function is
// a no-op.
func Setup(cfg *Config) (*slog.Logger, func() error, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	handler, err := newHandler(os.Stderr, cfg)
	if err != nil {
		return nil, nil, err
	}
	return install(handler), func() error { return nil }, nil
}
