package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopcore/shopcore/internal/auth"
	"github.com/shopcore/shopcore/internal/webhook/delivery"
	"github.com/shopcore/shopcore/internal/webhook/repository"
	"github.com/shopcore/shopcore/internal/webhook/service"
)

type noopScheduler struct{}

func (noopScheduler) Schedule(context.Context, delivery.Task, time.Duration) error {
	return nil
}

// newTestRouter mounts the handler behind middleware that injects the given
// store, standing in for the token middleware.
func newTestRouter(repo repository.Repository, storeID string) chi.Router {
	engine := delivery.NewEngine(repo, noopScheduler{})
	handler := NewHandler(service.NewService(repo, engine))

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if storeID != "" {
				ctx := auth.ContextWithStore(req.Context(), &auth.Store{ID: storeID})
				req = req.WithContext(ctx)
			}
			next.ServeHTTP(w, req)
		})
	})
	handler.RegisterRoutes(r)
	return r
}

func doJSON(t *testing.T, router chi.Router, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func createSubscription(t *testing.T, router chi.Router, url string) SubscriptionResponse {
	t.Helper()

	rec := doJSON(t, router, http.MethodPost, "/webhooks", map[string]any{"url": url})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp SubscriptionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHandler_Create(t *testing.T) {
	router := newTestRouter(repository.NewMemoryRepository(), "store-1")

	resp := createSubscription(t, router, "https://example.test/hook")

	assert.NotEmpty(t, resp.ID)
	assert.Len(t, resp.Secret, 64)
	assert.True(t, resp.IsActive)
	assert.Equal(t, []string{"order.created", "stock.low"}, resp.Events)
}

func TestHandler_Create_ValidationError(t *testing.T) {
	router := newTestRouter(repository.NewMemoryRepository(), "store-1")

	rec := doJSON(t, router, http.MethodPost, "/webhooks", map[string]any{"url": "not a url"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "validation failed", resp.Error)
	assert.Contains(t, resp.Details, "url")
}

func TestHandler_Create_MalformedBody(t *testing.T) {
	router := newTestRouter(repository.NewMemoryRepository(), "store-1")

	req := httptest.NewRequest(http.MethodPost, "/webhooks", bytes.NewReader([]byte(`{"url":`)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_GetAndList_OmitSecret(t *testing.T) {
	router := newTestRouter(repository.NewMemoryRepository(), "store-1")
	created := createSubscription(t, router, "https://example.test/hook")

	rec := doJSON(t, router, http.MethodGet, "/webhooks/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got SubscriptionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, created.ID, got.ID)
	assert.Empty(t, got.Secret)

	rec = doJSON(t, router, http.MethodGet, "/webhooks", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var list ListSubscriptionsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Equal(t, 1, list.Total)
	assert.Empty(t, list.Webhooks[0].Secret)
}

func TestHandler_Get_NotFound(t *testing.T) {
	router := newTestRouter(repository.NewMemoryRepository(), "store-1")

	rec := doJSON(t, router, http.MethodGet, "/webhooks/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_Get_CrossTenant(t *testing.T) {
	repo := repository.NewMemoryRepository()
	owner := newTestRouter(repo, "store-1")
	intruder := newTestRouter(repo, "store-2")

	created := createSubscription(t, owner, "https://example.test/hook")

	rec := doJSON(t, intruder, http.MethodGet, "/webhooks/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_Update(t *testing.T) {
	router := newTestRouter(repository.NewMemoryRepository(), "store-1")
	created := createSubscription(t, router, "https://example.test/hook")

	rec := doJSON(t, router, http.MethodPut, "/webhooks/"+created.ID, map[string]any{
		"is_active": false,
		"events":    []string{"payment.received"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var updated SubscriptionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.False(t, updated.IsActive)
	assert.Equal(t, []string{"payment.received"}, updated.Events)
	assert.Empty(t, updated.Secret)
}

func TestHandler_Delete(t *testing.T) {
	router := newTestRouter(repository.NewMemoryRepository(), "store-1")
	created := createSubscription(t, router, "https://example.test/hook")

	rec := doJSON(t, router, http.MethodDelete, "/webhooks/"+created.ID, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/webhooks/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_RegenerateSecret(t *testing.T) {
	router := newTestRouter(repository.NewMemoryRepository(), "store-1")
	created := createSubscription(t, router, "https://example.test/hook")

	rec := doJSON(t, router, http.MethodPost, "/webhooks/"+created.ID+"/regenerate-secret", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp["secret"], 64)
	assert.NotEqual(t, created.Secret, resp["secret"])
}

func TestHandler_SendTest(t *testing.T) {
	endpoint := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer endpoint.Close()

	router := newTestRouter(repository.NewMemoryRepository(), "store-1")
	created := createSubscription(t, router, endpoint.URL)

	rec := doJSON(t, router, http.MethodPost, "/webhooks/"+created.ID+"/test", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp TestDeliveryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Delivered)
	assert.Equal(t, "delivered", resp.State)
	require.NotNil(t, resp.StatusCode)
	assert.Equal(t, http.StatusOK, *resp.StatusCode)
}

func TestHandler_ListLogs(t *testing.T) {
	endpoint := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer endpoint.Close()

	router := newTestRouter(repository.NewMemoryRepository(), "store-1")
	created := createSubscription(t, router, endpoint.URL)

	rec := doJSON(t, router, http.MethodPost, "/webhooks/"+created.ID+"/test", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/webhooks/"+created.ID+"/logs", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ListLogsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Total)
	assert.Equal(t, "test", resp.Logs[0].Event)
	assert.Equal(t, 1, resp.Logs[0].Attempt)
	require.NotNil(t, resp.Logs[0].StatusCode)
	assert.Equal(t, http.StatusOK, *resp.Logs[0].StatusCode)
}

func TestHandler_ListLogs_InvalidLimit(t *testing.T) {
	router := newTestRouter(repository.NewMemoryRepository(), "store-1")
	created := createSubscription(t, router, "https://example.test/hook")

	rec := doJSON(t, router, http.MethodGet, "/webhooks/"+created.ID+"/logs?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/webhooks/"+created.ID+"/logs?limit=-5", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_Unauthenticated(t *testing.T) {
	router := newTestRouter(repository.NewMemoryRepository(), "")

	rec := doJSON(t, router, http.MethodGet, "/webhooks", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
