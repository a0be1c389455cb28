package eventbus

import (
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"multiwindow-go/core/event"
)

// DefaultBufferSize is the queue length used when New is given none.
const DefaultBufferSize = 256

type subscription struct {
	id      string
	handler EventHandler
	filters []Filter
}

func (s *subscription) accepts(e event.Event) bool {
	for _, f := range s.filters {
		if !f(e) {
			return false
		}
	}
	return true
}

// queueBus delivers events from a buffered channel on one goroutine, so
// every subscriber sees events in publish order.
type queueBus struct {
	queue   chan event.Event
	dropped atomic.Uint64

	// subs is kept in subscription order.
	subs []*subscription
	mu   sync.RWMutex

	// closeMu orders Publish against Close so nothing is sent on a
	// closed channel.
	closeMu sync.RWMutex
	closed  bool
	wg      sync.WaitGroup
	logger  *slog.Logger
}

// Option configures the bus.
type Option func(*queueBus)

// WithLogger sets the logger used for dropped events and handler panics.
func WithLogger(logger *slog.Logger) Option {
	return func(b *queueBus) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// New starts a bus whose queue holds bufferSize events.
func New(bufferSize int, opts ...Option) EventBus {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}

	b := &queueBus{
		queue:  make(chan event.Event, bufferSize),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With("component", "eventbus")

	b.wg.Add(1)
	go b.dispatch()

	return b
}

func (b *queueBus) Publish(e event.Event) {
	b.closeMu.RLock()
	defer b.closeMu.RUnlock()

	if b.closed {
		return
	}

	select {
	case b.queue <- e:
	default:
		b.dropped.Add(1)
		b.logger.Warn("Event dropped, queue full", "event", e.EventName())
	}
}

func (b *queueBus) Subscribe(handler EventHandler, filters ...Filter) string {
	sub := &subscription{
		id:      uuid.NewString(),
		handler: handler,
		filters: filters,
	}

	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	return sub.id
}

func (b *queueBus) Unsubscribe(subscriptionID string) {
	b.mu.Lock()
	b.subs = slices.DeleteFunc(b.subs, func(s *subscription) bool {
		return s.id == subscriptionID
	})
	b.mu.Unlock()
}

func (b *queueBus) Dropped() uint64 {
	return b.dropped.Load()
}

func (b *queueBus) Close() {
	b.closeMu.Lock()
	if b.closed {
		b.closeMu.Unlock()
		return
	}
	b.closed = true
	close(b.queue)
	b.closeMu.Unlock()

	b.wg.Wait()
	if n := b.dropped.Load(); n > 0 {
		b.logger.Warn("Event bus closed with dropped events", "dropped", n)
	}
}

func (b *queueBus) dispatch() {
	defer b.wg.Done()

	for e := range b.queue {
		b.deliver(e)
	}
}

func (b *queueBus) deliver(e event.Event) {
	// Handlers may subscribe or unsubscribe; run them on a snapshot.
	b.mu.RLock()
	subs := slices.Clone(b.subs)
	b.mu.RUnlock()

	for _, sub := range subs {
		if !sub.accepts(e) {
			continue
		}

		// One bad handler must not starve the others.
		func() {
			defer func() {
				if r := recover(); r != nil {
					b.logger.Error("Event handler panicked",
						"event", e.EventName(),
						"subscription", sub.id,
						"panic", r)
				}
			}()
			sub.handler(e)
		}()
	}
}
