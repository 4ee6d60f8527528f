package health

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// DatabaseChecker checks connectivity to the subscription database.
type DatabaseChecker struct {
	db      *sql.DB
	timeout time.Duration
}

// NewDatabaseChecker creates a database health checker.
func NewDatabaseChecker(db *sql.DB) *DatabaseChecker {
	return &DatabaseChecker{db: db, timeout: 2 * time.Second}
}

func (c *DatabaseChecker) Name() string       { return "database" }
func (c *DatabaseChecker) Severity() Severity { return SeverityCritical }

// Check pings the database.
func (c *DatabaseChecker) Check(ctx context.Context) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.db.PingContext(ctx); err != nil {
		return CheckResult{
			Status:  StatusUnhealthy,
			Message: fmt.Sprintf("database ping failed: %v", err),
		}
	}

	stats := c.db.Stats()
	return CheckResult{
		Status: StatusHealthy,
		Details: map[string]any{
			"open_connections": stats.OpenConnections,
			"in_use":           stats.InUse,
			"idle":             stats.Idle,
		},
	}
}

// HealthChecker is implemented by dependencies that can report their own
// health, such as the subscription cache.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// CacheChecker checks the subscription cache. Cache loss degrades dispatch
// latency but does not stop delivery, so it is a warning-level check.
type CacheChecker struct {
	cache   HealthChecker
	timeout time.Duration
}

// NewCacheChecker creates a cache health checker.
func NewCacheChecker(cache HealthChecker) *CacheChecker {
	return &CacheChecker{cache: cache, timeout: time.Second}
}

func (c *CacheChecker) Name() string       { return "cache" }
func (c *CacheChecker) Severity() Severity { return SeverityWarning }

// Check pings the cache.
func (c *CacheChecker) Check(ctx context.Context) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.cache.Health(ctx); err != nil {
		return CheckResult{
			Status:  StatusUnhealthy,
			Message: fmt.Sprintf("cache ping failed: %v", err),
		}
	}
	return CheckResult{Status: StatusHealthy}
}
