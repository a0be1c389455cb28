// Package logging configures log/slog for the harness. Builds tagged prod
// log to a rotating file; every other build logs to stderr.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Log formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Config selects level, format and, for prod builds, file rotation.
type Config struct {
	Level     slog.Level
	Format    string // FormatText or FormatJSON
	AddSource bool

	// Dir holds the log file in prod builds. Empty means DefaultLogDir().
	Dir string
	// Rotation limits handed to lumberjack.
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// DefaultConfig returns info-level text logging with a 50MB rotation size.
func DefaultConfig() *Config {
	return &Config{
		Level:      slog.LevelInfo,
		Format:     FormatText,
		MaxSizeMB:  50,
		MaxBackups: 10,
		MaxAgeDays: 14,
		Compress:   true,
	}
}

// DefaultLogDir is <user config dir>/multiwindow/logs, falling back to the
// cache dir and then the temp dir.
func DefaultLogDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		if base, err = os.UserCacheDir(); err != nil {
			base = os.TempDir()
		}
	}
	return filepath.Join(base, "multiwindow", "logs")
}

// ParseLevel parses debug, info, warn or error, case-insensitively.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

func newHandler(w io.Writer, cfg *Config) (slog.Handler, error) {
	opts := &slog.HandlerOptions{
		Level:     cfg.Level,
		AddSource: cfg.AddSource,
	}
	switch cfg.Format {
	case FormatText, "":
		return slog.NewTextHandler(w, opts), nil
	case FormatJSON:
		return slog.NewJSONHandler(w, opts), nil
	default:
		return nil, fmt.Errorf("invalid log format %q", cfg.Format)
	}
}
