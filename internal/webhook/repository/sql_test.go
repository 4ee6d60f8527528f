package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func newSQLRepository(t *testing.T) *SQLRepository {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	// The in-memory database lives per connection.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	repo := NewSQLRepository(db, "sqlite")
	require.NoError(t, repo.Migrate(context.Background()))
	return repo
}

func TestSQLRepository_CreateAndGet(t *testing.T) {
	repo := newSQLRepository(t)
	ctx := context.Background()

	sub := newSubscription("store-1")
	require.NoError(t, repo.CreateSubscription(ctx, sub))

	got, err := repo.GetSubscription(ctx, "store-1", sub.ID)
	require.NoError(t, err)
	assert.Equal(t, sub.URL, got.URL)
	assert.Equal(t, sub.Secret, got.Secret)
	assert.Equal(t, sub.Events, got.Events)
	assert.True(t, got.IsActive)
	assert.WithinDuration(t, sub.CreatedAt, got.CreatedAt, time.Millisecond)
}

func TestSQLRepository_TenantIsolation(t *testing.T) {
	repo := newSQLRepository(t)
	ctx := context.Background()

	sub := newSubscription("store-a")
	require.NoError(t, repo.CreateSubscription(ctx, sub))

	_, err := repo.GetSubscription(ctx, "store-b", sub.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, repo.UpdateSecret(ctx, "store-b", sub.ID, "new"), ErrNotFound)
	assert.ErrorIs(t, repo.DeleteSubscription(ctx, "store-b", sub.ID), ErrNotFound)
}

func TestSQLRepository_ListActiveByEvent(t *testing.T) {
	repo := newSQLRepository(t)
	ctx := context.Background()

	matching := newSubscription("store-1", "order.created")
	inactive := newSubscription("store-1", "order.created")
	inactive.IsActive = false
	wrongEvent := newSubscription("store-1", "stock.low")

	for _, sub := range []*Subscription{matching, inactive, wrongEvent} {
		require.NoError(t, repo.CreateSubscription(ctx, sub))
	}

	subs, err := repo.ListActiveByEvent(ctx, "store-1", "order.created")
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, matching.ID, subs[0].ID)
}

func TestSQLRepository_Update(t *testing.T) {
	repo := newSQLRepository(t)
	ctx := context.Background()

	sub := newSubscription("store-1")
	require.NoError(t, repo.CreateSubscription(ctx, sub))

	active := false
	got, err := repo.UpdateSubscription(ctx, "store-1", sub.ID, SubscriptionUpdate{
		Events:   []string{"payment.received"},
		IsActive: &active,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"payment.received"}, got.Events)
	assert.False(t, got.IsActive)

	reloaded, err := repo.GetSubscription(ctx, "store-1", sub.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"payment.received"}, reloaded.Events)
	assert.False(t, reloaded.IsActive)
}

func TestSQLRepository_DeliveryLogs(t *testing.T) {
	repo := newSQLRepository(t)
	ctx := context.Background()

	base := time.Now().UTC()
	for i := 1; i <= 3; i++ {
		entry := &DeliveryLog{
			ID:             uuid.New().String(),
			SubscriptionID: "sub-1",
			Event:          "order.created",
			Payload:        json.RawMessage(`{"event":"order.created"}`),
			Attempt:        i,
			CreatedAt:      base.Add(time.Duration(i) * time.Second),
		}
		if i < 3 {
			code := 503
			entry.StatusCode = &code
			entry.Response = "service unavailable"
		} else {
			entry.Response = "dial tcp: connection refused"
		}
		require.NoError(t, repo.AppendDeliveryLog(ctx, entry))
	}

	entries, err := repo.ListDeliveryLogs(ctx, "sub-1", 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	// Most recent first; the transport failure has no status code.
	assert.Equal(t, 3, entries[0].Attempt)
	assert.Nil(t, entries[0].StatusCode)
	assert.Equal(t, "dial tcp: connection refused", entries[0].Response)

	require.NotNil(t, entries[1].StatusCode)
	assert.Equal(t, 503, *entries[1].StatusCode)

	// Limit is honored.
	limited, err := repo.ListDeliveryLogs(ctx, "sub-1", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
