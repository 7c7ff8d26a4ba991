package bus

import "github.com/zeusync/racer/internal/core/events"

// Wildcard subscribes a handler to every event type.
const Wildcard = "*"

// EventBus is a thread-safe, in-process pub/sub bus.
//
// Key characteristics:
// - Type-based fan-out: handlers subscribe by event type, or Wildcard for all.
// - Synchronous delivery: Publish calls handlers in the caller goroutine, in subscription order.
// - Error aggregation: handler errors are joined and returned from Publish.
// - Optional observability: metrics are produced only when observers are registered.
type EventBus interface {
	events.Publisher

	// Subscribe registers a handler for an event type and returns a handle to cancel it.
	Subscribe(eventType string, handler EventHandler) (Subscription, error)
	// Unsubscribe cancels the given Subscription. It is safe to call with nil.
	Unsubscribe(Subscription) error
	// PublishWithFilters drops the event silently if any filter rejects it.
	PublishWithFilters(event events.Event, filters ...EventFilter) error

	AddObserver(obs Observer)
	RemoveObserver(obs Observer)
	// GetMetrics returns a snapshot of counters collected while observers are registered.
	GetMetrics() Metrics
}

type (
	// EventHandler is invoked per delivered event.
	EventHandler func(event events.Event) error
	// EventFilter decides whether an event should be delivered.
	EventFilter func(event events.Event) bool
)

// Subscription is a registered handler bound to an event type.
type Subscription interface {
	ID() string
	EventType() string
	IsActive() bool
	// Cancel de-registers the handler. Multiple calls are safe.
	Cancel() error
}

// Observer is notified about deliveries. Observers should return quickly.
type Observer interface {
	OnDelivered(eventType string, handlers int, err error, durationMicros int64)
}

// Metrics is a minimal set of delivery counters.
type Metrics struct {
	Published         uint64
	DeliveredHandlers uint64
	Errors            uint64
	DroppedByFilters  uint64
	SubscribersActive uint64
}
