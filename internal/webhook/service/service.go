// Package service provides the webhook subscription management layer.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/shopcore/shopcore/internal/event"
	"github.com/shopcore/shopcore/internal/webhook/delivery"
	"github.com/shopcore/shopcore/internal/webhook/repository"
	"github.com/shopcore/shopcore/internal/webhook/security"
)

const (
	// DefaultLogLimit applies when no limit is requested.
	DefaultLogLimit = 50

	// MaxLogLimit caps requested log page sizes.
	MaxLogLimit = 200
)

// ValidationError reports a rejected request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Logger defines the logging interface for the service.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Service orchestrates subscription management. All operations are scoped to
// the calling store; lookups outside it fail with repository.ErrNotFound.
type Service struct {
	repo   repository.Repository
	engine *delivery.Engine
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

// NewService creates a webhook management service.
func NewService(repo repository.Repository, engine *delivery.Engine, opts ...Option) *Service {
	s := &Service{repo: repo, engine: engine}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateRequest holds the fields for registering a subscription.
type CreateRequest struct {
	URL    string   `json:"url"`
	Events []string `json:"events,omitempty"`
}

// Create registers a subscription. The returned Subscription carries the
// generated secret; this is the only read path that exposes it besides
// RegenerateSecret.
func (s *Service) Create(ctx context.Context, storeID string, req CreateRequest) (*repository.Subscription, error) {
	if err := validateURL(req.URL); err != nil {
		return nil, err
	}

	events := req.Events
	if len(events) == 0 {
		events = append([]string(nil), event.DefaultSubscriptionEvents...)
	}
	if err := validateEvents(events); err != nil {
		return nil, err
	}

	secret, err := security.GenerateSecret()
	if err != nil {
		return nil, fmt.Errorf("generating secret: %w", err)
	}

	now := time.Now().UTC()
	sub := &repository.Subscription{
		ID:        uuid.New().String(),
		StoreID:   storeID,
		URL:       req.URL,
		Secret:    secret,
		Events:    events,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.CreateSubscription(ctx, sub); err != nil {
		return nil, fmt.Errorf("creating subscription: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("subscription created",
			"subscriptionID", sub.ID,
			"storeID", storeID,
			"url", sub.URL,
			"events", sub.Events,
		)
	}
	return sub, nil
}

// List returns the store's subscriptions with secrets blanked.
func (s *Service) List(ctx context.Context, storeID string) ([]repository.Subscription, error) {
	subs, err := s.repo.ListSubscriptions(ctx, storeID)
	if err != nil {
		return nil, fmt.Errorf("listing subscriptions: %w", err)
	}
	for i := range subs {
		subs[i].Secret = ""
	}
	return subs, nil
}

// Get returns one subscription with the secret blanked.
func (s *Service) Get(ctx context.Context, storeID, id string) (*repository.Subscription, error) {
	sub, err := s.repo.GetSubscription(ctx, storeID, id)
	if err != nil {
		return nil, err
	}
	sub.Secret = ""
	return sub, nil
}

// UpdateRequest holds the mutable subscription fields. Nil pointers leave the
// current value untouched; a nil Events slice does too.
type UpdateRequest struct {
	URL      *string  `json:"url,omitempty"`
	Events   []string `json:"events,omitempty"`
	IsActive *bool    `json:"is_active,omitempty"`
}

// Update applies the requested changes and returns the updated subscription
// with the secret blanked.
func (s *Service) Update(ctx context.Context, storeID, id string, req UpdateRequest) (*repository.Subscription, error) {
	if req.URL != nil {
		if err := validateURL(*req.URL); err != nil {
			return nil, err
		}
	}
	if req.Events != nil {
		if len(req.Events) == 0 {
			return nil, &ValidationError{Field: "events", Message: "must not be empty"}
		}
		if err := validateEvents(req.Events); err != nil {
			return nil, err
		}
	}

	sub, err := s.repo.UpdateSubscription(ctx, storeID, id, repository.SubscriptionUpdate{
		URL:      req.URL,
		Events:   req.Events,
		IsActive: req.IsActive,
	})
	if err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("subscription updated",
			"subscriptionID", id,
			"storeID", storeID,
		)
	}
	sub.Secret = ""
	return sub, nil
}

// Delete removes a subscription. Its delivery logs remain.
func (s *Service) Delete(ctx context.Context, storeID, id string) error {
	if err := s.repo.DeleteSubscription(ctx, storeID, id); err != nil {
		return err
	}
	if s.logger != nil {
		s.logger.Info("subscription deleted",
			"subscriptionID", id,
			"storeID", storeID,
		)
	}
	return nil
}

// RegenerateSecret replaces the signing secret and returns the new value.
// The old secret stops working immediately.
func (s *Service) RegenerateSecret(ctx context.Context, storeID, id string) (string, error) {
	secret, err := security.GenerateSecret()
	if err != nil {
		return "", fmt.Errorf("generating secret: %w", err)
	}
	if err := s.repo.UpdateSecret(ctx, storeID, id, secret); err != nil {
		return "", err
	}
	if s.logger != nil {
		s.logger.Info("subscription secret regenerated",
			"subscriptionID", id,
			"storeID", storeID,
		)
	}
	return secret, nil
}

// SendTest delivers a synthetic test event to the subscription's endpoint,
// regardless of its active flag or event filter.
func (s *Service) SendTest(ctx context.Context, storeID, id string) (delivery.Outcome, error) {
	if _, err := s.repo.GetSubscription(ctx, storeID, id); err != nil {
		return delivery.Outcome{}, err
	}

	outcome := s.engine.Deliver(ctx, delivery.Task{
		StoreID:        storeID,
		SubscriptionID: id,
		Event:          string(event.Test),
		Data:           json.RawMessage(`{"message":"Test delivery from Shopcore"}`),
		Attempt:        1,
	})
	return outcome, nil
}

// GetLogs returns up to limit delivery log entries, most recent first. A
// non-positive limit falls back to DefaultLogLimit; MaxLogLimit caps it.
func (s *Service) GetLogs(ctx context.Context, storeID, id string, limit int) ([]repository.DeliveryLog, error) {
	if _, err := s.repo.GetSubscription(ctx, storeID, id); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = DefaultLogLimit
	}
	if limit > MaxLogLimit {
		limit = MaxLogLimit
	}

	logs, err := s.repo.ListDeliveryLogs(ctx, id, limit)
	if err != nil {
		return nil, fmt.Errorf("listing delivery logs: %w", err)
	}
	return logs, nil
}

func validateURL(raw string) error {
	if raw == "" {
		return &ValidationError{Field: "url", Message: "is required"}
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return &ValidationError{Field: "url", Message: "must be a valid URL"}
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return &ValidationError{Field: "url", Message: "scheme must be http or https"}
	}
	return nil
}

func validateEvents(events []string) error {
	for _, name := range events {
		if !event.IsRecognized(name) {
			return &ValidationError{Field: "events", Message: fmt.Sprintf("unknown event %q", name)}
		}
	}
	return nil
}
