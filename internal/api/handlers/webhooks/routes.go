package webhooks

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all webhook routes on the given router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/webhooks", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/", h.List)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Put("/", h.Update)
			r.Delete("/", h.Delete)
			r.Post("/regenerate-secret", h.RegenerateSecret)
			r.Post("/test", h.SendTest)
			r.Get("/logs", h.ListLogs)
		})
	})
}
