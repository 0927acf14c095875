package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all economic data routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/economic", func(r chi.Router) {
		r.Get("/latest", h.HandleGetLatest)
		r.Get("/history", h.HandleGetHistory)
		r.Post("/", h.HandleUpsert)
	})
}
