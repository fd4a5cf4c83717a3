package events

import (
	"github.com/kelindar/event"
)

// Bus wraps a kelindar/event dispatcher.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers of its concrete type.
// Usage: bus.Publish(DeviceInspectedEvent{...})
func (b *Bus) Publish(ev Event) {
	switch e := ev.(type) {
	case DeviceInspectedEvent:
		event.Publish(b.dispatcher, e)
	case DiagnosticEvent:
		event.Publish(b.dispatcher, e)
	case CatalogReloadedEvent:
		event.Publish(b.dispatcher, e)
	case LogEntryEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe registers a handler; the handler's parameter type selects the events it
// receives. It returns an unsubscribe function, a no-op for unknown handler types.
// Usage: unsub := bus.Subscribe(func(e DiagnosticEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(DeviceInspectedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(DiagnosticEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(CatalogReloadedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(LogEntryEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}
