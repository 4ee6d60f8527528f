// Package subscriber bridges storefront business events to webhook dispatch.
package subscriber

import (
	"context"

	"github.com/shopcore/shopcore/internal/event"
	"github.com/shopcore/shopcore/internal/event/bus"
	"github.com/shopcore/shopcore/internal/webhook/dispatcher"
)

// Logger defines the logging interface for the subscriber.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// WebhookSubscriber listens to business events on the bus and triggers
// webhook dispatch for them. It runs alongside the notification subscriber;
// the bus isolates failures between them.
type WebhookSubscriber struct {
	dispatcher *dispatcher.Dispatcher
	eventTypes []bus.EventType
	logger     Logger
}

// Option configures the WebhookSubscriber.
type Option func(*WebhookSubscriber)

// WithLogger sets the logger for the subscriber.
func WithLogger(logger Logger) Option {
	return func(s *WebhookSubscriber) {
		s.logger = logger
	}
}

// WithEventTypes overrides the event types to subscribe to.
func WithEventTypes(types []bus.EventType) Option {
	return func(s *WebhookSubscriber) {
		s.eventTypes = types
	}
}

// NewWebhookSubscriber creates a subscriber covering all storefront events.
func NewWebhookSubscriber(d *dispatcher.Dispatcher, opts ...Option) *WebhookSubscriber {
	s := &WebhookSubscriber{
		dispatcher: d,
		eventTypes: []bus.EventType{
			event.OrderCreated,
			event.OrderCompleted,
			event.StockLow,
			event.PaymentReceived,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handle dispatches the event to the store's webhook subscriptions.
func (s *WebhookSubscriber) Handle(ctx context.Context, evt bus.Event) error {
	if s.logger != nil {
		s.logger.Debug("dispatching event to webhooks",
			"eventType", string(evt.Type),
			"eventID", evt.ID,
			"storeID", evt.StoreID,
		)
	}

	if _, err := s.dispatcher.Trigger(ctx, evt.StoreID, string(evt.Type), evt.Data); err != nil {
		if s.logger != nil {
			s.logger.Error("webhook dispatch failed",
				"eventType", string(evt.Type),
				"eventID", evt.ID,
				"storeID", evt.StoreID,
				"error", err.Error(),
			)
		}
		return err
	}
	return nil
}

// SubscribedEvents returns the event types this subscriber handles.
func (s *WebhookSubscriber) SubscribedEvents() []bus.EventType {
	return s.eventTypes
}

// RegisterWithBus subscribes this handler to all its event types on the bus.
func (s *WebhookSubscriber) RegisterWithBus(eventBus *bus.EventBus) {
	for _, eventType := range s.eventTypes {
		eventBus.Subscribe(eventType, s)
	}

	if s.logger != nil {
		s.logger.Info("webhook subscriber registered",
			"eventTypes", len(s.eventTypes),
		)
	}
}
