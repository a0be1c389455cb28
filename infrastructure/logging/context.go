package logging

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// installed is the logger built by Setup. Parallel scenario runs read it
// concurrently.
var installed atomic.Pointer[slog.Logger]

// L returns the logger installed by Setup, or slog.Default() before Setup.
func L() *slog.Logger {
	if logger := installed.Load(); logger != nil {
		return logger
	}
	return slog.Default()
}

func install(handler slog.Handler) *slog.Logger {
	logger := slog.New(handler)
	installed.Store(logger)
	slog.SetDefault(logger)
	return logger
}

type loggerKey struct{}

// With attaches logger to ctx.
func With(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// From returns the logger attached to ctx, or L().
func From(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if logger, _ := ctx.Value(loggerKey{}).(*slog.Logger); logger != nil {
			return logger
		}
	}
	return L()
}

// WithAttrs attaches From(ctx) extended with args, so scenario, session
// and window attributes accumulate as a run descends.
func WithAttrs(ctx context.Context, args ...any) context.Context {
	return With(ctx, From(ctx).With(args...))
}
