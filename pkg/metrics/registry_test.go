package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry() *Registry {
	return NewRegistry(Config{Namespace: "shopcore"})
}

func TestRegistry_DeliveryMetrics(t *testing.T) {
	r := newTestRegistry()

	r.DeliveryCompleted("order.created", "delivered", 120*time.Millisecond)
	r.DeliveryCompleted("order.created", "failed", 80*time.Millisecond)
	r.RetryScheduled("order.created")
	r.DeliveryExhausted("order.created")

	assert.Equal(t, float64(1), testutil.ToFloat64(
		r.deliveriesTotal.WithLabelValues("order.created", "delivered")))
	assert.Equal(t, float64(1), testutil.ToFloat64(
		r.deliveriesTotal.WithLabelValues("order.created", "failed")))
	assert.Equal(t, float64(1), testutil.ToFloat64(
		r.retriesScheduled.WithLabelValues("order.created")))
	assert.Equal(t, float64(1), testutil.ToFloat64(
		r.deliveriesExhausted.WithLabelValues("order.created")))
}

func TestHTTPMiddleware_RecordsRequests(t *testing.T) {
	r := newTestRegistry()

	handler := HTTPMiddleware(r)(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhooks", nil))

	assert.Equal(t, float64(1), testutil.ToFloat64(
		r.httpRequestsTotal.WithLabelValues("POST", "/webhooks", "201")))
}

func TestNormalizePath(t *testing.T) {
	assert.Equal(t, "/webhooks/{id}/logs",
		NormalizePath("/webhooks/0190c4a2-1111-7abc-9def-123456789abc/logs"))
	assert.Equal(t, "/webhooks", NormalizePath("/webhooks"))
}

func TestHandler_Serves(t *testing.T) {
	r := newTestRegistry()
	r.DeliveryCompleted("test", "delivered", time.Millisecond)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "shopcore_webhook_deliveries_total")
}
