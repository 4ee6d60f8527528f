// Package health exposes liveness and readiness checks for the service's
// dependencies.
package health

import (
	"context"
	"sync"
	"time"
)

// Status represents the health status of a component.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDegraded  Status = "degraded"
)

// Severity represents the severity level of a health check.
type Severity string

const (
	// SeverityCritical affects readiness.
	SeverityCritical Severity = "critical"
	// SeverityWarning is reported but does not affect readiness.
	SeverityWarning Severity = "warning"
)

// Response represents a health check response.
type Response struct {
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version,omitempty"`
	Uptime    string                 `json:"uptime,omitempty"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// CheckResult represents the result of an individual health check.
type CheckResult struct {
	Status   Status         `json:"status"`
	Message  string         `json:"message,omitempty"`
	Duration time.Duration  `json:"duration,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
}

// Checker is the interface that health checks must implement.
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
	Severity() Severity
}

// Registry manages health checkers and executes checks.
type Registry struct {
	checkers  []Checker
	startTime time.Time
	version   string
	mu        sync.RWMutex
}

// NewRegistry creates a new health check registry.
func NewRegistry(version string) *Registry {
	return &Registry{
		startTime: time.Now(),
		version:   version,
	}
}

// Register adds a health checker to the registry.
func (r *Registry) Register(checker Checker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkers = append(r.checkers, checker)
}

// Liveness returns a liveness response. It only reflects that the process is
// running.
func (r *Registry) Liveness(ctx context.Context) Response {
	return Response{
		Status:    StatusHealthy,
		Timestamp: time.Now(),
		Version:   r.version,
		Uptime:    time.Since(r.startTime).String(),
	}
}

// Readiness runs the critical checks only.
func (r *Registry) Readiness(ctx context.Context) Response {
	return r.runChecks(ctx, true)
}

// Health runs all registered checks.
func (r *Registry) Health(ctx context.Context) Response {
	return r.runChecks(ctx, false)
}

func (r *Registry) runChecks(ctx context.Context, criticalOnly bool) Response {
	r.mu.RLock()
	checkers := r.checkers
	r.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	checks := make(map[string]CheckResult)
	overallStatus := StatusHealthy

	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, checker := range checkers {
		if criticalOnly && checker.Severity() != SeverityCritical {
			continue
		}

		wg.Add(1)
		go func(c Checker) {
			defer wg.Done()

			start := time.Now()
			result := c.Check(ctx)
			result.Duration = time.Since(start)

			mu.Lock()
			defer mu.Unlock()

			checks[c.Name()] = result

			if result.Status == StatusUnhealthy {
				if c.Severity() == SeverityCritical {
					overallStatus = StatusUnhealthy
				} else if overallStatus == StatusHealthy {
					overallStatus = StatusDegraded
				}
			} else if result.Status == StatusDegraded && overallStatus == StatusHealthy {
				overallStatus = StatusDegraded
			}
		}(checker)
	}

	wg.Wait()

	return Response{
		Status:    overallStatus,
		Timestamp: time.Now(),
		Version:   r.version,
		Uptime:    time.Since(r.startTime).String(),
		Checks:    checks,
	}
}
