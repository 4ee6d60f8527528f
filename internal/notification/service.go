package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/shopcore/shopcore/internal/event"
	"github.com/shopcore/shopcore/internal/event/bus"
)

// Logger defines the logging interface for the notification service.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Service turns storefront events into in-app notifications. It subscribes to
// the same bus events as the webhook subscriber but fails independently.
type Service struct {
	store  Store
	logger Logger
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets the logger for the service.
func WithLogger(logger Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService creates a notification service over the given store.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{store: store}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handle converts a bus event into a notification record.
func (s *Service) Handle(ctx context.Context, evt bus.Event) error {
	title, message, ok := render(evt)
	if !ok {
		return nil
	}

	n := &Notification{
		ID:        uuid.New().String(),
		StoreID:   evt.StoreID,
		Type:      string(evt.Type),
		Title:     title,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.store.Save(ctx, n); err != nil {
		if s.logger != nil {
			s.logger.Error("failed to save notification",
				"storeID", evt.StoreID,
				"eventType", string(evt.Type),
				"error", err.Error(),
			)
		}
		return fmt.Errorf("saving notification: %w", err)
	}

	if s.logger != nil {
		s.logger.Debug("notification saved",
			"notificationID", n.ID,
			"storeID", evt.StoreID,
			"eventType", string(evt.Type),
		)
	}
	return nil
}

// SubscribedEvents returns the event types that produce notifications.
func (s *Service) SubscribedEvents() []bus.EventType {
	return []bus.EventType{
		event.OrderCreated,
		event.OrderCompleted,
		event.StockLow,
		event.PaymentReceived,
	}
}

// RegisterWithBus subscribes the service to its event types.
func (s *Service) RegisterWithBus(eventBus *bus.EventBus) {
	for _, eventType := range s.SubscribedEvents() {
		eventBus.Subscribe(eventType, s)
	}
}

// List returns recent notifications for a store.
func (s *Service) List(ctx context.Context, storeID string, limit int) ([]Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.store.List(ctx, storeID, limit)
}

// MarkRead marks a notification as read.
func (s *Service) MarkRead(ctx context.Context, storeID, id string) error {
	return s.store.MarkRead(ctx, storeID, id)
}

func render(evt bus.Event) (title, message string, ok bool) {
	switch evt.Type {
	case event.OrderCreated:
		var p event.OrderCreatedPayload
		_ = json.Unmarshal(evt.Data, &p)
		return "New order", fmt.Sprintf("Order %s was placed.", p.OrderID), true
	case event.OrderCompleted:
		var p event.OrderCompletedPayload
		_ = json.Unmarshal(evt.Data, &p)
		return "Order completed", fmt.Sprintf("Order %s was completed.", p.OrderID), true
	case event.StockLow:
		var p event.StockLowPayload
		_ = json.Unmarshal(evt.Data, &p)
		return "Stock running low", fmt.Sprintf("Product %s is down to %d units.", p.ProductID, p.Quantity), true
	case event.PaymentReceived:
		var p event.PaymentReceivedPayload
		_ = json.Unmarshal(evt.Data, &p)
		return "Payment received", fmt.Sprintf("Payment for order %s was received.", p.OrderID), true
	default:
		return "", "", false
	}
}
