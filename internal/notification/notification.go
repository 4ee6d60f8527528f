// Package notification persists in-app notifications derived from storefront
// events, independently of webhook delivery.
package notification

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned when a notification does not exist.
var ErrNotFound = errors.New("notification not found")

// Notification is one in-app notification for a store's dashboard.
type Notification struct {
	ID        string    `json:"id"`
	StoreID   string    `json:"store_id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists notifications per tenant.
type Store interface {
	Save(ctx context.Context, n *Notification) error
	List(ctx context.Context, storeID string, limit int) ([]Notification, error)
	MarkRead(ctx context.Context, storeID, id string) error
}

// MemoryStore is an in-memory Store implementation.
type MemoryStore struct {
	mu            sync.RWMutex
	notifications []Notification
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Save appends a notification.
func (s *MemoryStore) Save(_ context.Context, n *Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = append(s.notifications, *n)
	return nil
}

// List returns up to limit notifications for the store, most recent first.
func (s *MemoryStore) List(_ context.Context, storeID string, limit int) ([]Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []Notification
	for i := len(s.notifications) - 1; i >= 0 && len(result) < limit; i-- {
		if s.notifications[i].StoreID == storeID {
			result = append(result, s.notifications[i])
		}
	}
	return result, nil
}

// MarkRead marks one notification as read within the store's scope.
func (s *MemoryStore) MarkRead(_ context.Context, storeID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.notifications {
		if s.notifications[i].ID == id && s.notifications[i].StoreID == storeID {
			s.notifications[i].Read = true
			return nil
		}
	}
	return ErrNotFound
}
