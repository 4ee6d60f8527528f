// Package repository provides data access for webhook subscriptions and
// delivery logs. All subscription operations are scoped by the owning store:
// a subscription ID alone is never sufficient to read or mutate data
// belonging to another tenant.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned when a subscription does not exist or belongs to a
// different store. Cross-tenant lookups must not be distinguishable from
// missing rows.
var ErrNotFound = errors.New("webhook subscription not found")

// Subscription represents a registered webhook endpoint for one store.
type Subscription struct {
	ID        string    `json:"id"`
	StoreID   string    `json:"store_id"`
	URL       string    `json:"url"`
	Secret    string    `json:"-"`
	Events    []string  `json:"events"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SubscribesTo reports whether the subscription wants the named event.
func (s *Subscription) SubscribesTo(event string) bool {
	for _, e := range s.Events {
		if e == event {
			return true
		}
	}
	return false
}

// SubscriptionUpdate represents fields to update on a subscription. Nil
// fields are left unchanged.
type SubscriptionUpdate struct {
	URL      *string
	Events   []string
	IsActive *bool
}

// DeliveryLog records one delivery attempt to one subscription. StatusCode is
// nil for transport-level failures (timeout, DNS, connection refused); in that
// case Response carries the error text. Entries are append-only.
type DeliveryLog struct {
	ID             string          `json:"id"`
	SubscriptionID string          `json:"subscription_id"`
	Event          string          `json:"event"`
	Payload        json.RawMessage `json:"payload"`
	StatusCode     *int            `json:"status_code"`
	Response       string          `json:"response,omitempty"`
	Attempt        int             `json:"attempt"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Repository defines the interface for webhook persistence.
type Repository interface {
	// CreateSubscription inserts a new subscription.
	CreateSubscription(ctx context.Context, sub *Subscription) error

	// GetSubscription retrieves a subscription by ID within one store.
	// Returns ErrNotFound if it does not exist or belongs to another store.
	GetSubscription(ctx context.Context, storeID, id string) (*Subscription, error)

	// ListSubscriptions retrieves all subscriptions for a store.
	ListSubscriptions(ctx context.Context, storeID string) ([]Subscription, error)

	// ListActiveByEvent retrieves active subscriptions for a store that are
	// subscribed to the named event.
	ListActiveByEvent(ctx context.Context, storeID, event string) ([]Subscription, error)

	// UpdateSubscription applies the update and returns the updated row.
	UpdateSubscription(ctx context.Context, storeID, id string, update SubscriptionUpdate) (*Subscription, error)

	// UpdateSecret replaces the signing secret. The previous secret is gone
	// for good; there is no dual-secret grace window.
	UpdateSecret(ctx context.Context, storeID, id, secret string) error

	// DeleteSubscription removes a subscription. Log entries of a deleted
	// subscription are left behind and collected separately.
	DeleteSubscription(ctx context.Context, storeID, id string) error

	// AppendDeliveryLog persists one delivery attempt. Rows referencing a
	// deleted subscription are tolerated.
	AppendDeliveryLog(ctx context.Context, entry *DeliveryLog) error

	// ListDeliveryLogs retrieves up to limit entries for a subscription,
	// most recent first.
	ListDeliveryLogs(ctx context.Context, subscriptionID string, limit int) ([]DeliveryLog, error)
}
