package repository

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepository is an in-memory implementation of Repository. Useful for
// testing and development.
type MemoryRepository struct {
	mu            sync.RWMutex
	subscriptions map[string]*Subscription
	logs          []*DeliveryLog
}

// NewMemoryRepository creates a new in-memory webhook repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		subscriptions: make(map[string]*Subscription),
	}
}

// CreateSubscription inserts a new subscription.
func (r *MemoryRepository) CreateSubscription(ctx context.Context, sub *Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	subCopy := *sub
	subCopy.Events = append([]string(nil), sub.Events...)
	r.subscriptions[sub.ID] = &subCopy
	return nil
}

// GetSubscription retrieves a subscription by ID within one store.
func (r *MemoryRepository) GetSubscription(ctx context.Context, storeID, id string) (*Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sub, exists := r.subscriptions[id]
	if !exists || sub.StoreID != storeID {
		return nil, ErrNotFound
	}

	subCopy := *sub
	subCopy.Events = append([]string(nil), sub.Events...)
	return &subCopy, nil
}

// ListSubscriptions retrieves all subscriptions for a store.
func (r *MemoryRepository) ListSubscriptions(ctx context.Context, storeID string) ([]Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var subs []Subscription
	for _, sub := range r.subscriptions {
		if sub.StoreID != storeID {
			continue
		}
		subCopy := *sub
		subCopy.Events = append([]string(nil), sub.Events...)
		subs = append(subs, subCopy)
	}

	sort.Slice(subs, func(i, j int) bool {
		return subs[i].CreatedAt.Before(subs[j].CreatedAt)
	})
	return subs, nil
}

// ListActiveByEvent retrieves active subscriptions subscribed to the event.
func (r *MemoryRepository) ListActiveByEvent(ctx context.Context, storeID, event string) ([]Subscription, error) {
	subs, err := r.ListSubscriptions(ctx, storeID)
	if err != nil {
		return nil, err
	}

	var matched []Subscription
	for _, sub := range subs {
		if sub.IsActive && sub.SubscribesTo(event) {
			matched = append(matched, sub)
		}
	}
	return matched, nil
}

// UpdateSubscription applies the update and returns the updated row.
func (r *MemoryRepository) UpdateSubscription(ctx context.Context, storeID, id string, update SubscriptionUpdate) (*Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, exists := r.subscriptions[id]
	if !exists || sub.StoreID != storeID {
		return nil, ErrNotFound
	}

	if update.URL != nil {
		sub.URL = *update.URL
	}
	if update.Events != nil {
		sub.Events = append([]string(nil), update.Events...)
	}
	if update.IsActive != nil {
		sub.IsActive = *update.IsActive
	}
	sub.UpdatedAt = time.Now().UTC()

	subCopy := *sub
	subCopy.Events = append([]string(nil), sub.Events...)
	return &subCopy, nil
}

// UpdateSecret replaces the signing secret.
func (r *MemoryRepository) UpdateSecret(ctx context.Context, storeID, id, secret string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, exists := r.subscriptions[id]
	if !exists || sub.StoreID != storeID {
		return ErrNotFound
	}

	sub.Secret = secret
	sub.UpdatedAt = time.Now().UTC()
	return nil
}

// DeleteSubscription removes a subscription. Its log entries remain.
func (r *MemoryRepository) DeleteSubscription(ctx context.Context, storeID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, exists := r.subscriptions[id]
	if !exists || sub.StoreID != storeID {
		return ErrNotFound
	}

	delete(r.subscriptions, id)
	return nil
}

// AppendDeliveryLog persists one delivery attempt.
func (r *MemoryRepository) AppendDeliveryLog(ctx context.Context, entry *DeliveryLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entryCopy := *entry
	if entry.StatusCode != nil {
		code := *entry.StatusCode
		entryCopy.StatusCode = &code
	}
	r.logs = append(r.logs, &entryCopy)
	return nil
}

// ListDeliveryLogs retrieves up to limit entries, most recent first.
func (r *MemoryRepository) ListDeliveryLogs(ctx context.Context, subscriptionID string, limit int) ([]DeliveryLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var entries []DeliveryLog
	// Logs are appended in order; walk backwards for most-recent-first.
	for i := len(r.logs) - 1; i >= 0; i-- {
		if r.logs[i].SubscriptionID != subscriptionID {
			continue
		}
		entries = append(entries, *r.logs[i])
		if limit > 0 && len(entries) >= limit {
			break
		}
	}
	return entries, nil
}
