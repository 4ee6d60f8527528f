package repository

import (
	"context"
	"time"

	"github.com/shopcore/shopcore/internal/cache"
)

// CachedRepository decorates a Repository with a per-store cache of active
// subscriptions, serving the dispatch hot path without a database round trip.
// Any mutation for a store invalidates that store's entry.
type CachedRepository struct {
	Repository
	cache cache.Cache
	ttl   time.Duration
}

// NewCachedRepository wraps inner with a subscription cache.
func NewCachedRepository(inner Repository, c cache.Cache, ttl time.Duration) *CachedRepository {
	return &CachedRepository{Repository: inner, cache: c, ttl: ttl}
}

func subscriptionsKey(storeID string) string {
	return "webhook:subs:" + storeID
}

// cacheEntry carries the secret explicitly; Subscription's own Secret field
// is excluded from JSON to keep it out of API responses.
type cacheEntry struct {
	Sub    Subscription `json:"sub"`
	Secret string       `json:"secret"`
}

// ListActiveByEvent serves from the cache when possible. The cache holds all
// active subscriptions for the store; event filtering happens here.
func (r *CachedRepository) ListActiveByEvent(ctx context.Context, storeID, event string) ([]Subscription, error) {
	var cached []cacheEntry
	if err := cache.GetJSON(ctx, r.cache, subscriptionsKey(storeID), &cached); err == nil {
		subs := make([]Subscription, len(cached))
		for i, entry := range cached {
			subs[i] = entry.Sub
			subs[i].Secret = entry.Secret
		}
		return filterByEvent(subs, event), nil
	}

	subs, err := r.Repository.ListSubscriptions(ctx, storeID)
	if err != nil {
		return nil, err
	}

	var active []Subscription
	for _, sub := range subs {
		if sub.IsActive {
			active = append(active, sub)
		}
	}

	entries := make([]cacheEntry, len(active))
	for i, sub := range active {
		entries[i] = cacheEntry{Sub: sub, Secret: sub.Secret}
	}
	// Best-effort population; a cache failure never fails dispatch.
	_ = cache.SetJSON(ctx, r.cache, subscriptionsKey(storeID), entries, r.ttl)

	return filterByEvent(active, event), nil
}

func filterByEvent(subs []Subscription, event string) []Subscription {
	var matched []Subscription
	for _, sub := range subs {
		if sub.SubscribesTo(event) {
			matched = append(matched, sub)
		}
	}
	return matched
}

func (r *CachedRepository) invalidate(ctx context.Context, storeID string) {
	_ = r.cache.Delete(ctx, subscriptionsKey(storeID))
}

// CreateSubscription inserts and invalidates the store's cache entry.
func (r *CachedRepository) CreateSubscription(ctx context.Context, sub *Subscription) error {
	if err := r.Repository.CreateSubscription(ctx, sub); err != nil {
		return err
	}
	r.invalidate(ctx, sub.StoreID)
	return nil
}

// UpdateSubscription updates and invalidates the store's cache entry.
func (r *CachedRepository) UpdateSubscription(ctx context.Context, storeID, id string, update SubscriptionUpdate) (*Subscription, error) {
	sub, err := r.Repository.UpdateSubscription(ctx, storeID, id, update)
	if err != nil {
		return nil, err
	}
	r.invalidate(ctx, storeID)
	return sub, nil
}

// UpdateSecret updates and invalidates the store's cache entry.
func (r *CachedRepository) UpdateSecret(ctx context.Context, storeID, id, secret string) error {
	if err := r.Repository.UpdateSecret(ctx, storeID, id, secret); err != nil {
		return err
	}
	r.invalidate(ctx, storeID)
	return nil
}

// DeleteSubscription deletes and invalidates the store's cache entry.
func (r *CachedRepository) DeleteSubscription(ctx context.Context, storeID, id string) error {
	if err := r.Repository.DeleteSubscription(ctx, storeID, id); err != nil {
		return err
	}
	r.invalidate(ctx, storeID)
	return nil
}
