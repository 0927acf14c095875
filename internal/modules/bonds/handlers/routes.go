package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all bond routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/bonds", func(r chi.Router) {
		r.Post("/value", h.HandleValue)
		r.Get("/series", h.HandleGetSeries)
	})
}
