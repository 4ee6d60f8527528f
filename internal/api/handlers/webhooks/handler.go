// Package webhooks provides HTTP handlers for webhook subscription
// management. Every operation runs against the store resolved from the
// request token; a subscription belonging to another store is a 404.
package webhooks

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shopcore/shopcore/internal/auth"
	"github.com/shopcore/shopcore/internal/webhook/delivery"
	"github.com/shopcore/shopcore/internal/webhook/repository"
	"github.com/shopcore/shopcore/internal/webhook/service"
)

// Handler provides HTTP handlers for webhook subscription operations.
type Handler struct {
	service *service.Service
}

// NewHandler creates a webhook handler over the management service.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{service: svc}
}

// ErrorResponse is the API error envelope.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

// SubscriptionResponse represents a subscription in API responses. Secret is
// populated only by Create and RegenerateSecret.
type SubscriptionResponse struct {
	ID        string   `json:"id"`
	URL       string   `json:"url"`
	Events    []string `json:"events"`
	IsActive  bool     `json:"is_active"`
	Secret    string   `json:"secret,omitempty"`
	CreatedAt string   `json:"created_at"`
	UpdatedAt string   `json:"updated_at"`
}

// ListSubscriptionsResponse wraps the store's subscriptions.
type ListSubscriptionsResponse struct {
	Webhooks []SubscriptionResponse `json:"webhooks"`
	Total    int                    `json:"total"`
}

// DeliveryLogResponse represents one delivery attempt in API responses.
type DeliveryLogResponse struct {
	ID         string          `json:"id"`
	Event      string          `json:"event"`
	Payload    json.RawMessage `json:"payload"`
	StatusCode *int            `json:"status_code"`
	Response   string          `json:"response,omitempty"`
	Attempt    int             `json:"attempt"`
	CreatedAt  string          `json:"created_at"`
}

// ListLogsResponse wraps a page of delivery log entries.
type ListLogsResponse struct {
	Logs  []DeliveryLogResponse `json:"logs"`
	Total int                   `json:"total"`
}

// TestDeliveryResponse reports the outcome of a test send.
type TestDeliveryResponse struct {
	Delivered  bool   `json:"delivered"`
	State      string `json:"state"`
	StatusCode *int   `json:"status_code"`
	Error      string `json:"error,omitempty"`
}

// Create handles POST /webhooks. The response is the only place the secret
// appears besides regeneration.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	store, ok := h.requireStore(w, r)
	if !ok {
		return
	}

	var req service.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sub, err := h.service.Create(r.Context(), store.ID, req)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	resp := toSubscriptionResponse(sub)
	resp.Secret = sub.Secret
	respondJSON(w, http.StatusCreated, resp)
}

// List handles GET /webhooks.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	store, ok := h.requireStore(w, r)
	if !ok {
		return
	}

	subs, err := h.service.List(r.Context(), store.ID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	responses := make([]SubscriptionResponse, len(subs))
	for i := range subs {
		responses[i] = toSubscriptionResponse(&subs[i])
	}
	respondJSON(w, http.StatusOK, ListSubscriptionsResponse{
		Webhooks: responses,
		Total:    len(responses),
	})
}

// Get handles GET /webhooks/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	store, ok := h.requireStore(w, r)
	if !ok {
		return
	}

	sub, err := h.service.Get(r.Context(), store.ID, chi.URLParam(r, "id"))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toSubscriptionResponse(sub))
}

// Update handles PUT /webhooks/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	store, ok := h.requireStore(w, r)
	if !ok {
		return
	}

	var req service.UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sub, err := h.service.Update(r.Context(), store.ID, chi.URLParam(r, "id"), req)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toSubscriptionResponse(sub))
}

// Delete handles DELETE /webhooks/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	store, ok := h.requireStore(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), store.ID, chi.URLParam(r, "id")); err != nil {
		h.respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RegenerateSecret handles POST /webhooks/{id}/regenerate-secret.
func (h *Handler) RegenerateSecret(w http.ResponseWriter, r *http.Request) {
	store, ok := h.requireStore(w, r)
	if !ok {
		return
	}

	secret, err := h.service.RegenerateSecret(r.Context(), store.ID, chi.URLParam(r, "id"))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"secret": secret})
}

// SendTest handles POST /webhooks/{id}/test.
func (h *Handler) SendTest(w http.ResponseWriter, r *http.Request) {
	store, ok := h.requireStore(w, r)
	if !ok {
		return
	}

	outcome, err := h.service.SendTest(r.Context(), store.ID, chi.URLParam(r, "id"))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toTestDeliveryResponse(outcome))
}

// ListLogs handles GET /webhooks/{id}/logs.
func (h *Handler) ListLogs(w http.ResponseWriter, r *http.Request) {
	store, ok := h.requireStore(w, r)
	if !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	logs, err := h.service.GetLogs(r.Context(), store.ID, chi.URLParam(r, "id"), limit)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	responses := make([]DeliveryLogResponse, len(logs))
	for i := range logs {
		responses[i] = toDeliveryLogResponse(&logs[i])
	}
	respondJSON(w, http.StatusOK, ListLogsResponse{
		Logs:  responses,
		Total: len(responses),
	})
}

func (h *Handler) requireStore(w http.ResponseWriter, r *http.Request) (*auth.Store, bool) {
	store := auth.StoreFromContext(r.Context())
	if store == nil {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return nil, false
	}
	return store, true
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	var invalid *service.ValidationError
	if errors.As(err, &invalid) {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation failed",
			Details: map[string]string{invalid.Field: invalid.Message},
		})
		return
	}
	if errors.Is(err, repository.ErrNotFound) {
		respondError(w, http.StatusNotFound, "webhook not found")
		return
	}
	respondError(w, http.StatusInternalServerError, "internal error")
}

func toSubscriptionResponse(sub *repository.Subscription) SubscriptionResponse {
	return SubscriptionResponse{
		ID:        sub.ID,
		URL:       sub.URL,
		Events:    sub.Events,
		IsActive:  sub.IsActive,
		CreatedAt: sub.CreatedAt.Format(time.RFC3339),
		UpdatedAt: sub.UpdatedAt.Format(time.RFC3339),
	}
}

func toDeliveryLogResponse(entry *repository.DeliveryLog) DeliveryLogResponse {
	return DeliveryLogResponse{
		ID:         entry.ID,
		Event:      entry.Event,
		Payload:    entry.Payload,
		StatusCode: entry.StatusCode,
		Response:   entry.Response,
		Attempt:    entry.Attempt,
		CreatedAt:  entry.CreatedAt.Format(time.RFC3339),
	}
}

func toTestDeliveryResponse(outcome delivery.Outcome) TestDeliveryResponse {
	return TestDeliveryResponse{
		Delivered:  outcome.Delivered,
		State:      string(outcome.State),
		StatusCode: outcome.StatusCode,
		Error:      outcome.Error,
	}
}

func respondJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func respondError(w http.ResponseWriter, code int, message string) {
	respondJSON(w, code, ErrorResponse{Error: message})
}
