package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SQLRepository is a database/sql implementation of Repository. It works
// against PostgreSQL (lib/pq) and SQLite (modernc.org/sqlite); queries are
// written with ? placeholders and rebound to $n for postgres.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// NewSQLRepository creates a repository over an open database handle.
// driver is the database/sql driver name ("postgres" or "sqlite").
func NewSQLRepository(db *sql.DB, driver string) *SQLRepository {
	return &SQLRepository{db: db, driver: driver}
}

// Migrate creates the webhook tables if they do not exist.
func (r *SQLRepository) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS webhook_subscriptions (
			id TEXT PRIMARY KEY,
			store_id TEXT NOT NULL,
			url TEXT NOT NULL,
			secret TEXT NOT NULL,
			events TEXT NOT NULL,
			is_active INTEGER NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_webhook_subscriptions_store
			ON webhook_subscriptions (store_id)`,
		`CREATE TABLE IF NOT EXISTS webhook_delivery_logs (
			id TEXT PRIMARY KEY,
			subscription_id TEXT NOT NULL,
			event TEXT NOT NULL,
			payload TEXT NOT NULL,
			status_code INTEGER,
			response TEXT NOT NULL,
			attempt INTEGER NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_webhook_delivery_logs_subscription
			ON webhook_delivery_logs (subscription_id, created_at)`,
	}

	for _, stmt := range statements {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrating webhook tables: %w", err)
		}
	}
	return nil
}

// rebind converts ? placeholders to $n for the postgres driver.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	var b strings.Builder
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}

// CreateSubscription inserts a new subscription.
func (r *SQLRepository) CreateSubscription(ctx context.Context, sub *Subscription) error {
	events, err := json.Marshal(sub.Events)
	if err != nil {
		return fmt.Errorf("encoding events: %w", err)
	}

	query := r.rebind(`
		INSERT INTO webhook_subscriptions (id, store_id, url, secret, events, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err = r.db.ExecContext(ctx, query,
		sub.ID, sub.StoreID, sub.URL, sub.Secret, string(events),
		boolToInt(sub.IsActive), formatTime(sub.CreatedAt), formatTime(sub.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting subscription: %w", err)
	}
	return nil
}

// GetSubscription retrieves a subscription by ID within one store.
func (r *SQLRepository) GetSubscription(ctx context.Context, storeID, id string) (*Subscription, error) {
	query := r.rebind(`
		SELECT id, store_id, url, secret, events, is_active, created_at, updated_at
		FROM webhook_subscriptions
		WHERE id = ? AND store_id = ?
	`)
	row := r.db.QueryRowContext(ctx, query, id, storeID)
	return scanSubscription(row)
}

// ListSubscriptions retrieves all subscriptions for a store.
func (r *SQLRepository) ListSubscriptions(ctx context.Context, storeID string) ([]Subscription, error) {
	query := r.rebind(`
		SELECT id, store_id, url, secret, events, is_active, created_at, updated_at
		FROM webhook_subscriptions
		WHERE store_id = ?
		ORDER BY created_at
	`)
	rows, err := r.db.QueryContext(ctx, query, storeID)
	if err != nil {
		return nil, fmt.Errorf("listing subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []Subscription
	for rows.Next() {
		sub, err := scanSubscriptionRows(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

// ListActiveByEvent retrieves active subscriptions subscribed to the event.
// Event membership is checked in Go; the events column is a JSON array.
func (r *SQLRepository) ListActiveByEvent(ctx context.Context, storeID, event string) ([]Subscription, error) {
	query := r.rebind(`
		SELECT id, store_id, url, secret, events, is_active, created_at, updated_at
		FROM webhook_subscriptions
		WHERE store_id = ? AND is_active = 1
		ORDER BY created_at
	`)
	rows, err := r.db.QueryContext(ctx, query, storeID)
	if err != nil {
		return nil, fmt.Errorf("listing active subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []Subscription
	for rows.Next() {
		sub, err := scanSubscriptionRows(rows)
		if err != nil {
			return nil, err
		}
		if sub.SubscribesTo(event) {
			subs = append(subs, *sub)
		}
	}
	return subs, rows.Err()
}

// UpdateSubscription applies the update and returns the updated row.
func (r *SQLRepository) UpdateSubscription(ctx context.Context, storeID, id string, update SubscriptionUpdate) (*Subscription, error) {
	sub, err := r.GetSubscription(ctx, storeID, id)
	if err != nil {
		return nil, err
	}

	if update.URL != nil {
		sub.URL = *update.URL
	}
	if update.Events != nil {
		sub.Events = update.Events
	}
	if update.IsActive != nil {
		sub.IsActive = *update.IsActive
	}
	sub.UpdatedAt = time.Now().UTC()

	events, err := json.Marshal(sub.Events)
	if err != nil {
		return nil, fmt.Errorf("encoding events: %w", err)
	}

	query := r.rebind(`
		UPDATE webhook_subscriptions
		SET url = ?, events = ?, is_active = ?, updated_at = ?
		WHERE id = ? AND store_id = ?
	`)
	if _, err := r.db.ExecContext(ctx, query,
		sub.URL, string(events), boolToInt(sub.IsActive), formatTime(sub.UpdatedAt), id, storeID,
	); err != nil {
		return nil, fmt.Errorf("updating subscription: %w", err)
	}
	return sub, nil
}

// UpdateSecret replaces the signing secret.
func (r *SQLRepository) UpdateSecret(ctx context.Context, storeID, id, secret string) error {
	query := r.rebind(`
		UPDATE webhook_subscriptions
		SET secret = ?, updated_at = ?
		WHERE id = ? AND store_id = ?
	`)
	res, err := r.db.ExecContext(ctx, query, secret, formatTime(time.Now().UTC()), id, storeID)
	if err != nil {
		return fmt.Errorf("updating secret: %w", err)
	}
	return requireRowAffected(res)
}

// DeleteSubscription removes a subscription. Its log entries remain.
func (r *SQLRepository) DeleteSubscription(ctx context.Context, storeID, id string) error {
	query := r.rebind(`DELETE FROM webhook_subscriptions WHERE id = ? AND store_id = ?`)
	res, err := r.db.ExecContext(ctx, query, id, storeID)
	if err != nil {
		return fmt.Errorf("deleting subscription: %w", err)
	}
	return requireRowAffected(res)
}

// AppendDeliveryLog persists one delivery attempt.
func (r *SQLRepository) AppendDeliveryLog(ctx context.Context, entry *DeliveryLog) error {
	var statusCode sql.NullInt64
	if entry.StatusCode != nil {
		statusCode = sql.NullInt64{Int64: int64(*entry.StatusCode), Valid: true}
	}

	query := r.rebind(`
		INSERT INTO webhook_delivery_logs (id, subscription_id, event, payload, status_code, response, attempt, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := r.db.ExecContext(ctx, query,
		entry.ID, entry.SubscriptionID, entry.Event, string(entry.Payload),
		statusCode, entry.Response, entry.Attempt, formatTime(entry.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting delivery log: %w", err)
	}
	return nil
}

// ListDeliveryLogs retrieves up to limit entries, most recent first.
func (r *SQLRepository) ListDeliveryLogs(ctx context.Context, subscriptionID string, limit int) ([]DeliveryLog, error) {
	query := r.rebind(`
		SELECT id, subscription_id, event, payload, status_code, response, attempt, created_at
		FROM webhook_delivery_logs
		WHERE subscription_id = ?
		ORDER BY created_at DESC, attempt DESC
		LIMIT ?
	`)
	rows, err := r.db.QueryContext(ctx, query, subscriptionID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing delivery logs: %w", err)
	}
	defer rows.Close()

	var entries []DeliveryLog
	for rows.Next() {
		var (
			entry      DeliveryLog
			payload    string
			statusCode sql.NullInt64
			createdAt  string
		)
		if err := rows.Scan(&entry.ID, &entry.SubscriptionID, &entry.Event, &payload,
			&statusCode, &entry.Response, &entry.Attempt, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning delivery log: %w", err)
		}
		entry.Payload = json.RawMessage(payload)
		if statusCode.Valid {
			code := int(statusCode.Int64)
			entry.StatusCode = &code
		}
		entry.CreatedAt, err = parseTime(createdAt)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscription(row *sql.Row) (*Subscription, error) {
	sub, err := scanSubscriptionFrom(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return sub, err
}

func scanSubscriptionRows(rows *sql.Rows) (*Subscription, error) {
	return scanSubscriptionFrom(rows)
}

func scanSubscriptionFrom(s rowScanner) (*Subscription, error) {
	var (
		sub       Subscription
		events    string
		isActive  int
		createdAt string
		updatedAt string
	)
	if err := s.Scan(&sub.ID, &sub.StoreID, &sub.URL, &sub.Secret, &events,
		&isActive, &createdAt, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scanning subscription: %w", err)
	}

	if err := json.Unmarshal([]byte(events), &sub.Events); err != nil {
		return nil, fmt.Errorf("decoding events: %w", err)
	}
	sub.IsActive = isActive != 0

	var err error
	if sub.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if sub.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &sub, nil
}

func requireRowAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// timeLayout is RFC3339 with fixed-width nanoseconds so that lexical ordering
// of stored values is chronological across both drivers.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}
