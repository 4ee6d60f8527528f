// Package bus provides in-process pub/sub for storefront business events.
package bus

import (
	"context"
	"encoding/json"
	"time"
)

// EventType represents the type of a storefront event.
type EventType string

// Event represents a business event occurring in one store. Data carries the
// event-specific payload exactly as produced at the trigger site.
type Event struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	StoreID   string          `json:"store_id"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// Subscriber is the interface that must be implemented by event subscribers.
type Subscriber interface {
	// Handle processes an event. It should return an error if the event
	// could not be processed successfully.
	Handle(ctx context.Context, event Event) error
}

// SubscriberFunc is a function type that implements the Subscriber interface.
type SubscriberFunc func(ctx context.Context, event Event) error

// Handle calls the function.
func (f SubscriberFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Logger is the interface for logging within the event bus.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}
