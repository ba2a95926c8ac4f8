package events

import (
	"github.com/kelindar/event"
)

// Bus wraps kelindar/event dispatcher for event broadcasting
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers
// Usage: bus.Publish(PinToggledEvent{...})
func (b *Bus) Publish(ev Event) {
	switch e := ev.(type) {
	case PinToggledEvent:
		event.Publish(b.dispatcher, e)
	case CommandFailedEvent:
		event.Publish(b.dispatcher, e)
	case ComponentReconfiguredEvent:
		event.Publish(b.dispatcher, e)
	case ComponentRemovedEvent:
		event.Publish(b.dispatcher, e)
	case ConfigReloadFailedEvent:
		event.Publish(b.dispatcher, e)
	case ComponentStatsEvent:
		event.Publish(b.dispatcher, e)
	case LogEntryEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe subscribes to events with a handler function.
// The handler type determines which events it receives.
// Returns an unsubscribe function; unknown handler types get a no-op.
// Usage: unsub := bus.Subscribe(func(e PinToggledEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(PinToggledEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(CommandFailedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ComponentReconfiguredEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ComponentRemovedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ConfigReloadFailedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ComponentStatsEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(LogEntryEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}

// SubscribeToChannel bridges kelindar/event callback-based subscriptions to channels
// This is needed for SSE integration where Huma expects a channel-based select loop.
func SubscribeToChannel[T Event](bus *Bus, ch chan<- any) func() {
	return event.Subscribe(bus.dispatcher, func(e T) {
		select {
		case ch <- e:
		default:
			// Drop event if channel is full (non-blocking)
		}
	})
}
