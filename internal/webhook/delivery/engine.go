// Package delivery performs webhook HTTP delivery attempts with retry
// scheduling and per-attempt logging.
package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/shopcore/shopcore/internal/webhook/repository"
	"github.com/shopcore/shopcore/internal/webhook/security"
)

const (
	// MaxAttempts is the total number of delivery attempts per event,
	// including the first.
	MaxAttempts = 3

	// AttemptTimeout bounds a single HTTP attempt.
	AttemptTimeout = 10 * time.Second

	// maxResponseBytes caps the response body captured into delivery logs.
	maxResponseBytes = 4096
)

// backoffSchedule maps the failing attempt number (1-based) to the delay
// before the next attempt.
var backoffSchedule = []time.Duration{
	1 * time.Second,
	5 * time.Second,
	30 * time.Second,
}

// BackoffFor returns the delay after the given failed attempt. Attempts past
// the end of the schedule reuse the last value.
func BackoffFor(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > len(backoffSchedule) {
		attempt = len(backoffSchedule)
	}
	return backoffSchedule[attempt-1]
}

// State is the terminal state of a delivery attempt.
type State string

const (
	StateDelivered     State = "delivered"
	StateAwaitingRetry State = "awaiting_retry"
	StateExhausted     State = "exhausted"
	StateDropped       State = "dropped"
)

// Task identifies one delivery of one event to one subscription. Tasks are
// serializable so the retry scheduler can persist them.
type Task struct {
	StoreID        string          `json:"store_id"`
	SubscriptionID string          `json:"subscription_id"`
	Event          string          `json:"event"`
	Data           json.RawMessage `json:"data"`
	Attempt        int             `json:"attempt"`
}

// Outcome reports the result of one attempt.
type Outcome struct {
	SubscriptionID string
	Event          string
	Attempt        int
	State          State
	Delivered      bool
	StatusCode     *int
	Error          string
}

// wirePayload is the request body sent to subscriber endpoints. The signature
// covers these exact marshaled bytes.
type wirePayload struct {
	Event     string          `json:"event"`
	Timestamp int64           `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// Logger defines the logging interface for the engine.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Metrics receives delivery instrumentation. Implementations must be safe for
// concurrent use.
type Metrics interface {
	DeliveryCompleted(event, outcome string, duration time.Duration)
	RetryScheduled(event string)
	DeliveryExhausted(event string)
}

// Engine executes delivery attempts. It re-reads the subscription before
// every retry so retries pick up URL and secret changes, and drops work for
// subscriptions that were deleted or deactivated in the meantime.
type Engine struct {
	repo      repository.Repository
	scheduler Scheduler
	client    *http.Client
	logger    Logger
	metrics   Metrics
	now       func() time.Time
}

// Option configures the Engine.
type Option func(*Engine)

// WithLogger sets the logger for the engine.
func WithLogger(logger Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithHTTPClient overrides the HTTP client used for attempts.
func WithHTTPClient(client *http.Client) Option {
	return func(e *Engine) {
		e.client = client
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates a delivery engine.
func NewEngine(repo repository.Repository, scheduler Scheduler, opts ...Option) *Engine {
	e := &Engine{
		repo:      repo,
		scheduler: scheduler,
		client:    &http.Client{Timeout: AttemptTimeout},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Deliver resolves the subscription and runs one attempt. This is the entry
// point for retries and test sends; first attempts from the dispatcher use
// DeliverTo with the subscription it already loaded.
func (e *Engine) Deliver(ctx context.Context, task Task) Outcome {
	sub, err := e.repo.GetSubscription(ctx, task.StoreID, task.SubscriptionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			if e.logger != nil {
				e.logger.Info("dropping delivery for missing subscription",
					"subscriptionID", task.SubscriptionID,
					"event", task.Event,
					"attempt", task.Attempt,
				)
			}
			return e.dropped(task, "subscription no longer exists")
		}
		if e.logger != nil {
			e.logger.Error("failed to load subscription for delivery",
				"subscriptionID", task.SubscriptionID,
				"error", err.Error(),
			)
		}
		return e.dropped(task, fmt.Sprintf("loading subscription: %v", err))
	}

	// Test sends go through regardless of the active flag.
	if !sub.IsActive && task.Event != "test" {
		if e.logger != nil {
			e.logger.Info("dropping delivery for inactive subscription",
				"subscriptionID", task.SubscriptionID,
				"event", task.Event,
				"attempt", task.Attempt,
			)
		}
		return e.dropped(task, "subscription is inactive")
	}

	return e.DeliverTo(ctx, sub, task)
}

// DeliverTo runs one attempt against an already-resolved subscription.
func (e *Engine) DeliverTo(ctx context.Context, sub *repository.Subscription, task Task) Outcome {
	if task.Attempt < 1 {
		task.Attempt = 1
	}

	start := e.now()
	body, statusCode, response, attemptErr := e.attempt(ctx, sub, task)
	duration := e.now().Sub(start)

	e.appendLog(ctx, task, body, statusCode, response)

	outcome := Outcome{
		SubscriptionID: sub.ID,
		Event:          task.Event,
		Attempt:        task.Attempt,
		StatusCode:     statusCode,
	}

	if attemptErr == nil {
		outcome.State = StateDelivered
		outcome.Delivered = true
		if e.metrics != nil {
			e.metrics.DeliveryCompleted(task.Event, "delivered", duration)
		}
		if e.logger != nil {
			e.logger.Info("webhook delivered",
				"subscriptionID", sub.ID,
				"event", task.Event,
				"attempt", task.Attempt,
				"statusCode", derefStatus(statusCode),
				"duration", duration,
			)
		}
		return outcome
	}

	outcome.Error = attemptErr.Error()
	if e.metrics != nil {
		e.metrics.DeliveryCompleted(task.Event, "failed", duration)
	}

	if task.Attempt >= MaxAttempts {
		outcome.State = StateExhausted
		if e.metrics != nil {
			e.metrics.DeliveryExhausted(task.Event)
		}
		if e.logger != nil {
			e.logger.Warn("webhook delivery exhausted",
				"subscriptionID", sub.ID,
				"event", task.Event,
				"attempt", task.Attempt,
				"error", attemptErr.Error(),
			)
		}
		return outcome
	}

	outcome.State = StateAwaitingRetry
	next := task
	next.Attempt++
	delay := BackoffFor(task.Attempt)

	if err := e.scheduler.Schedule(ctx, next, delay); err != nil {
		outcome.Error = fmt.Sprintf("%s (retry scheduling failed: %v)", attemptErr.Error(), err)
		if e.logger != nil {
			e.logger.Error("failed to schedule retry",
				"subscriptionID", sub.ID,
				"event", task.Event,
				"attempt", next.Attempt,
				"error", err.Error(),
			)
		}
		return outcome
	}

	if e.metrics != nil {
		e.metrics.RetryScheduled(task.Event)
	}
	if e.logger != nil {
		e.logger.Warn("webhook delivery failed, retry scheduled",
			"subscriptionID", sub.ID,
			"event", task.Event,
			"attempt", task.Attempt,
			"delay", delay,
			"error", attemptErr.Error(),
		)
	}
	return outcome
}

// attempt performs one signed HTTP POST. It returns the wire body it sent,
// the response status code if a response came back, the captured response
// body, and an error for anything other than a 2xx response.
func (e *Engine) attempt(ctx context.Context, sub *repository.Subscription, task Task) ([]byte, *int, string, error) {
	data := task.Data
	if data == nil {
		data = json.RawMessage(`{}`)
	}

	sentAt := e.now()
	body, err := json.Marshal(wirePayload{
		Event:     task.Event,
		Timestamp: sentAt.UnixMilli(),
		Data:      data,
	})
	if err != nil {
		return nil, nil, "", fmt.Errorf("encoding payload: %w", err)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, AttemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, sub.URL, bytes.NewReader(body))
	if err != nil {
		return body, nil, err.Error(), fmt.Errorf("building request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(security.SignatureHeader, security.SignPayload(sub.Secret, body))
	req.Header.Set(security.TimestampHeader, strconv.FormatInt(sentAt.UnixMilli(), 10))
	req.Header.Set(security.EventHeader, task.Event)

	resp, err := e.client.Do(req)
	if err != nil {
		return body, nil, err.Error(), fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	captured, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	statusCode := resp.StatusCode

	if statusCode < 200 || statusCode > 299 {
		return body, &statusCode, string(captured), fmt.Errorf("endpoint returned status %d", statusCode)
	}
	return body, &statusCode, string(captured), nil
}

// appendLog writes one log row for the attempt. Log failures are logged and
// swallowed; they never change the delivery outcome.
func (e *Engine) appendLog(ctx context.Context, task Task, body []byte, statusCode *int, response string) {
	entry := &repository.DeliveryLog{
		ID:             uuid.New().String(),
		SubscriptionID: task.SubscriptionID,
		Event:          task.Event,
		Payload:        body,
		StatusCode:     statusCode,
		Response:       response,
		Attempt:        task.Attempt,
		CreatedAt:      e.now(),
	}
	if err := e.repo.AppendDeliveryLog(ctx, entry); err != nil {
		if e.logger != nil {
			e.logger.Error("failed to write delivery log",
				"subscriptionID", task.SubscriptionID,
				"event", task.Event,
				"attempt", task.Attempt,
				"error", err.Error(),
			)
		}
	}
}

func (e *Engine) dropped(task Task, reason string) Outcome {
	return Outcome{
		SubscriptionID: task.SubscriptionID,
		Event:          task.Event,
		Attempt:        task.Attempt,
		State:          StateDropped,
		Error:          reason,
	}
}

func derefStatus(code *int) int {
	if code == nil {
		return 0
	}
	return *code
}
