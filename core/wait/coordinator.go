// Package wait implements polling and deadline waits for conditions that may
// not hold yet: elements appearing, becoming clickable, pages loading.
package wait

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Condition is evaluated repeatedly by Until. It returns the value produced
// once satisfied, whether it is satisfied, and any failure.
type Condition[T any] func(ctx context.Context) (T, bool, error)

// Coordinator owns the clock and logger used by waits of one session.
type Coordinator struct {
	clock  Clock
	logger *slog.Logger
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithClock sets the time source.
func WithClock(c Clock) Option {
	return func(co *Coordinator) {
		co.clock = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(co *Coordinator) {
		co.logger = logger
	}
}

// NewCoordinator creates a coordinator using wall time unless overridden.
func NewCoordinator(opts ...Option) *Coordinator {
	c := &Coordinator{}
	for _, opt := range opts {
		opt(c)
	}
	if c.clock == nil {
		c.clock = SystemClock()
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Clock returns the coordinator's time source.
func (c *Coordinator) Clock() Clock {
	return c.clock
}

// Until evaluates cond at p.Interval cadence until it is satisfied or
// p.Timeout elapses. Failures listed in p.Ignored count as "not yet";
// any other failure is returned immediately. The condition is always
// evaluated at least once, so a zero timeout performs a single check.
func Until[T any](ctx context.Context, c *Coordinator, cond Condition[T], p Policy) (T, error) {
	var zero T
	p = p.normalized()

	start := c.clock.Now()
	var last error
	polls := 0

	for {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		polls++
		value, ok, err := cond(ctx)
		switch {
		case err == nil && ok:
			if polls > 1 {
				c.logger.Debug("Wait satisfied",
					"condition", p.Description,
					"polls", polls,
					"elapsed", c.clock.Now().Sub(start))
			}
			return value, nil
		case err != nil && !p.Ignores(err):
			return zero, err
		case err != nil:
			last = err
		}

		elapsed := c.clock.Now().Sub(start)
		if elapsed >= p.Timeout {
			c.logger.Debug("Wait timed out",
				"condition", p.Description,
				"polls", polls,
				"elapsed", elapsed)
			return zero, &TimeoutError{
				Description: p.Description,
				Timeout:     p.Timeout,
				Elapsed:     elapsed,
				Polls:       polls,
				Last:        last,
			}
		}

		if err := c.clock.Sleep(ctx, p.Interval); err != nil {
			return zero, err
		}
	}
}

// Poll is Until for conditions that produce no value.
func Poll(ctx context.Context, c *Coordinator, check func(ctx context.Context) (bool, error), p Policy) error {
	_, err := Until(ctx, c, func(ctx context.Context) (struct{}, bool, error) {
		ok, err := check(ctx)
		return struct{}{}, ok, err
	}, p)
	return err
}

// Within runs fn once under a deadline of timeout. It is the single-shot
// form of waiting used for page-load and script timeouts, where only a
// latency bound is needed. A timeout <= 0 leaves fn unbounded.
func (c *Coordinator) Within(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}

	start := c.clock.Now()
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := fn(runCtx)
	if err == nil {
		return nil
	}
	if ctx.Err() == nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return &TimeoutError{
			Timeout: timeout,
			Elapsed: c.clock.Now().Sub(start),
			Polls:   1,
			Last:    err,
		}
	}
	return err
}
