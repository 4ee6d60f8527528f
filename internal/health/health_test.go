package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChecker struct {
	name     string
	severity Severity
	result   CheckResult
}

func (c stubChecker) Name() string                        { return c.name }
func (c stubChecker) Severity() Severity                  { return c.severity }
func (c stubChecker) Check(_ context.Context) CheckResult { return c.result }

func TestRegistry_AllHealthy(t *testing.T) {
	reg := NewRegistry("1.0.0")
	reg.Register(stubChecker{name: "database", severity: SeverityCritical, result: CheckResult{Status: StatusHealthy}})
	reg.Register(stubChecker{name: "cache", severity: SeverityWarning, result: CheckResult{Status: StatusHealthy}})

	resp := reg.Health(context.Background())
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Len(t, resp.Checks, 2)
	assert.Equal(t, "1.0.0", resp.Version)
}

func TestRegistry_CriticalFailureIsUnhealthy(t *testing.T) {
	reg := NewRegistry("1.0.0")
	reg.Register(stubChecker{name: "database", severity: SeverityCritical, result: CheckResult{Status: StatusUnhealthy, Message: "down"}})

	resp := reg.Readiness(context.Background())
	assert.Equal(t, StatusUnhealthy, resp.Status)
}

func TestRegistry_WarningFailureDegrades(t *testing.T) {
	reg := NewRegistry("1.0.0")
	reg.Register(stubChecker{name: "database", severity: SeverityCritical, result: CheckResult{Status: StatusHealthy}})
	reg.Register(stubChecker{name: "cache", severity: SeverityWarning, result: CheckResult{Status: StatusUnhealthy, Message: "down"}})

	resp := reg.Health(context.Background())
	assert.Equal(t, StatusDegraded, resp.Status)

	// Readiness skips warning-level checks entirely.
	ready := reg.Readiness(context.Background())
	assert.Equal(t, StatusHealthy, ready.Status)
}

func TestHandler_StatusCodes(t *testing.T) {
	reg := NewRegistry("1.0.0")
	reg.Register(stubChecker{name: "database", severity: SeverityCritical, result: CheckResult{Status: StatusUnhealthy}})
	handler := NewHandler(reg)

	rec := httptest.NewRecorder()
	handler.ReadinessHandler(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	handler.LivenessHandler(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, StatusHealthy, resp.Status)
}
