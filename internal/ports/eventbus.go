package ports

import (
	"github.com/fspecii/ace-step-ui/internal/domain"
)

// EventBus is the interface for publishing and subscribing to events.
//
// Services publish export, scene and media events; presenters such as the CLI
// progress bar or the preview window subscribe to them.
//
// Thread-safety: Implementations must be thread-safe as events may be published from
// the export goroutine and the live loop while presenters subscribe.
//
// Example usage:
//
//	subID := bus.Subscribe(domain.EventExportProgress, func(event domain.Event) {
//	    e := event.(domain.ExportProgressEvent)
//	    bar.Set(int(e.Progress))
//	})
//	defer bus.Unsubscribe(subID)
type EventBus interface {
	// Publish delivers an event to all subscribers of its type, then to wildcard
	// subscribers. Handlers should return quickly.
	Publish(event domain.Event)

	// Subscribe registers a handler for events of the specified type and returns an
	// ID for Unsubscribe. The same handler may be registered more than once.
	Subscribe(eventType domain.EventType, handler domain.EventHandler) domain.SubscriptionID

	// Unsubscribe removes a subscription. Unknown IDs are ignored.
	Unsubscribe(id domain.SubscriptionID)

	// SubscribeAll registers a handler that receives every event.
	SubscribeAll(handler domain.EventHandler) domain.SubscriptionID

	// HasSubscribers reports whether publishing eventType would reach anyone.
	HasSubscribers(eventType domain.EventType) bool

	// Close shuts down the event bus and drops all subscriptions.
	Close() error
}
