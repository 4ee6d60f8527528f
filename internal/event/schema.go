// Package event defines the recognized storefront event names and the typed
// payload schema enforced for each at trigger time.
package event

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/shopcore/shopcore/internal/event/bus"
)

// Recognized event names. Test is synthetic and only used by the
// send-test management operation.
const (
	OrderCreated    bus.EventType = "order.created"
	OrderCompleted  bus.EventType = "order.completed"
	StockLow        bus.EventType = "stock.low"
	PaymentReceived bus.EventType = "payment.received"
	Test            bus.EventType = "test"
)

// DefaultSubscriptionEvents are assigned to a subscription created without an
// explicit event set.
var DefaultSubscriptionEvents = []string{string(OrderCreated), string(StockLow)}

// OrderCreatedPayload is the data schema for order.created.
type OrderCreatedPayload struct {
	OrderID       string  `json:"order_id" validate:"required"`
	Total         float64 `json:"total,omitempty" validate:"omitempty,gte=0"`
	Currency      string  `json:"currency,omitempty" validate:"omitempty,len=3"`
	CustomerEmail string  `json:"customer_email,omitempty" validate:"omitempty,email"`
}

// OrderCompletedPayload is the data schema for order.completed.
type OrderCompletedPayload struct {
	OrderID string `json:"order_id" validate:"required"`
}

// StockLowPayload is the data schema for stock.low.
type StockLowPayload struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gte=0"`
	Threshold int    `json:"threshold,omitempty" validate:"omitempty,gte=0"`
}

// PaymentReceivedPayload is the data schema for payment.received.
type PaymentReceivedPayload struct {
	OrderID string  `json:"order_id" validate:"required"`
	Amount  float64 `json:"amount,omitempty" validate:"omitempty,gte=0"`
	Method  string  `json:"method,omitempty"`
}

// TestPayload is the data schema for the synthetic test event.
type TestPayload struct {
	Message string `json:"message,omitempty"`
}

// UnknownEventError reports a trigger for an event name outside the
// recognized set.
type UnknownEventError struct {
	Name string
}

func (e *UnknownEventError) Error() string {
	return fmt.Sprintf("unknown event %q", e.Name)
}

// InvalidPayloadError reports a trigger whose data does not satisfy the
// event's schema.
type InvalidPayloadError struct {
	Name   string
	Reason string
}

func (e *InvalidPayloadError) Error() string {
	return fmt.Sprintf("invalid payload for event %q: %s", e.Name, e.Reason)
}

var validate = validator.New()

// schemas maps each recognized event to a factory for its payload struct.
var schemas = map[bus.EventType]func() any{
	OrderCreated:    func() any { return &OrderCreatedPayload{} },
	OrderCompleted:  func() any { return &OrderCompletedPayload{} },
	StockLow:        func() any { return &StockLowPayload{} },
	PaymentReceived: func() any { return &PaymentReceivedPayload{} },
	Test:            func() any { return &TestPayload{} },
}

// IsRecognized reports whether name is a recognized event name.
func IsRecognized(name string) bool {
	_, ok := schemas[bus.EventType(name)]
	return ok
}

// ValidatePayload checks data against the schema for the named event. A
// malformed trigger fails here, at the call site, rather than at the
// subscriber's parser.
func ValidatePayload(name string, data json.RawMessage) error {
	factory, ok := schemas[bus.EventType(name)]
	if !ok {
		return &UnknownEventError{Name: name}
	}

	payload := factory()
	if len(data) == 0 {
		data = json.RawMessage(`{}`)
	}
	if err := json.Unmarshal(data, payload); err != nil {
		return &InvalidPayloadError{Name: name, Reason: err.Error()}
	}
	if err := validate.Struct(payload); err != nil {
		return &InvalidPayloadError{Name: name, Reason: err.Error()}
	}
	return nil
}
