// Package api provides the HTTP management API for Shopcore webhooks.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/shopcore/shopcore/internal/api/handlers/webhooks"
	"github.com/shopcore/shopcore/internal/auth"
	"github.com/shopcore/shopcore/internal/health"
	"github.com/shopcore/shopcore/pkg/logging"
	"github.com/shopcore/shopcore/pkg/metrics"
)

// RouterConfig holds the handlers and middleware wired into the router.
type RouterConfig struct {
	WebhookHandler *webhooks.Handler
	HealthHandler  *health.Handler
	Auth           *auth.Middleware
	Logger         *logging.Logger
	Metrics        *metrics.Registry
}

// NewRouter creates the chi router. Health and metrics endpoints are public;
// everything under /webhooks requires a store-scoped token.
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	if cfg.Logger != nil {
		r.Use(logging.RequestLogger(cfg.Logger.Logger))
	}
	if cfg.Metrics != nil {
		r.Use(metrics.HTTPMiddleware(cfg.Metrics))
	}

	if cfg.HealthHandler != nil {
		r.Get("/health", cfg.HealthHandler.HealthHandler)
		r.Get("/health/live", cfg.HealthHandler.LivenessHandler)
		r.Get("/health/ready", cfg.HealthHandler.ReadinessHandler)
	}
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	if cfg.WebhookHandler != nil {
		r.Group(func(r chi.Router) {
			if cfg.Auth != nil {
				r.Use(cfg.Auth.RequireStore())
			}
			cfg.WebhookHandler.RegisterRoutes(r)
		})
	}

	return r
}
