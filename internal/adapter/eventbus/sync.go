// Package eventbus provides the in-process event bus used between services and presenters.
package eventbus

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/fspecii/ace-step-ui/internal/domain"
	"github.com/fspecii/ace-step-ui/internal/ports"
)

// ErrClosed is returned by Close when the bus was already closed.
var ErrClosed = errors.New("event bus already closed")

// SyncEventBus delivers events synchronously on the publishing goroutine.
//
// Typed subscribers run first, in subscription order, followed by wildcard
// subscribers. A panicking handler is logged and skipped. Export progress is
// published from the export goroutine, so handlers must not block.
type SyncEventBus struct {
	logger *slog.Logger

	mu       sync.RWMutex
	typed    map[domain.EventType][]subscription
	wildcard []subscription
	nextID   uint64
	closed   bool
}

type subscription struct {
	id      domain.SubscriptionID
	handler domain.EventHandler
}

// NewSyncEventBus creates a new synchronous event bus. A nil logger discards
// handler panics silently.
func NewSyncEventBus(logger *slog.Logger) *SyncEventBus {
	if logger != nil {
		logger = logger.With(slog.String("component", "eventbus"))
	}
	return &SyncEventBus{
		logger: logger,
		typed:  make(map[domain.EventType][]subscription),
	}
}

// Publish delivers event to its subscribers. Publishing on a closed bus is a no-op.
func (bus *SyncEventBus) Publish(event domain.Event) {
	if event == nil {
		return
	}

	bus.mu.RLock()
	if bus.closed {
		bus.mu.RUnlock()
		return
	}
	targets := make([]subscription, 0, len(bus.typed[event.Type()])+len(bus.wildcard))
	targets = append(targets, bus.typed[event.Type()]...)
	targets = append(targets, bus.wildcard...)
	bus.mu.RUnlock()

	for _, sub := range targets {
		bus.deliver(sub, event)
	}
}

func (bus *SyncEventBus) deliver(sub subscription, event domain.Event) {
	defer func() {
		if r := recover(); r != nil && bus.logger != nil {
			bus.logger.Error("event handler panicked",
				slog.Any("panic", r),
				slog.String("event_type", string(event.Type())),
				slog.String("subscription", string(sub.id)))
		}
	}()
	sub.handler(event)
}

// Subscribe registers handler for eventType.
func (bus *SyncEventBus) Subscribe(eventType domain.EventType, handler domain.EventHandler) domain.SubscriptionID {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	sub := bus.newSubscription("sub", handler)
	bus.typed[eventType] = append(bus.typed[eventType], sub)
	return sub.id
}

// SubscribeAll registers handler for every event type.
func (bus *SyncEventBus) SubscribeAll(handler domain.EventHandler) domain.SubscriptionID {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	sub := bus.newSubscription("sub-all", handler)
	bus.wildcard = append(bus.wildcard, sub)
	return sub.id
}

// newSubscription must be called with mu held.
func (bus *SyncEventBus) newSubscription(prefix string, handler domain.EventHandler) subscription {
	if handler == nil {
		panic("event handler cannot be nil")
	}
	if bus.closed {
		panic("cannot subscribe to closed event bus")
	}
	bus.nextID++
	return subscription{
		id:      domain.SubscriptionID(fmt.Sprintf("%s-%d", prefix, bus.nextID)),
		handler: handler,
	}
}

// Unsubscribe removes a subscription, keeping the order of the others.
func (bus *SyncEventBus) Unsubscribe(id domain.SubscriptionID) {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	match := func(s subscription) bool { return s.id == id }
	for eventType, subs := range bus.typed {
		if slices.ContainsFunc(subs, match) {
			bus.typed[eventType] = slices.DeleteFunc(subs, match)
			return
		}
	}
	bus.wildcard = slices.DeleteFunc(bus.wildcard, match)
}

// HasSubscribers reports whether publishing eventType would reach any handler.
func (bus *SyncEventBus) HasSubscribers(eventType domain.EventType) bool {
	bus.mu.RLock()
	defer bus.mu.RUnlock()
	return len(bus.typed[eventType]) > 0 || len(bus.wildcard) > 0
}

// SubscriberCount returns the number of typed and wildcard subscriptions.
func (bus *SyncEventBus) SubscriberCount() int {
	bus.mu.RLock()
	defer bus.mu.RUnlock()

	n := len(bus.wildcard)
	for _, subs := range bus.typed {
		n += len(subs)
	}
	return n
}

// Close drops every subscription. Later publishes are ignored.
func (bus *SyncEventBus) Close() error {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	if bus.closed {
		return ErrClosed
	}
	bus.closed = true
	bus.typed = make(map[domain.EventType][]subscription)
	bus.wildcard = nil
	return nil
}

var _ ports.EventBus = (*SyncEventBus)(nil)
