package wait

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
)

// Clock is the time source a Coordinator polls against.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is done.
	Sleep(ctx context.Context, d time.Duration) error
}

type timerClock struct {
	c clock.Clock
}

// SystemClock returns a Clock backed by wall time.
func SystemClock() Clock {
	return &timerClock{c: clock.New()}
}

func (t *timerClock) Now() time.Time {
	return t.c.Now()
}

func (t *timerClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := t.c.Timer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// mockClock advances a clock.Mock instead of blocking.
type mockClock struct {
	m *clock.Mock
}

// MockClock returns a Clock whose Sleep advances m by the requested duration
// and returns immediately. Useful for deterministic tests.
func MockClock(m *clock.Mock) Clock {
	return &mockClock{m: m}
}

func (c *mockClock) Now() time.Time {
	return c.m.Now()
}

func (c *mockClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.m.Add(d)
	return nil
}
