package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all portfolio routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/portfolio/{ownerID}", func(r chi.Router) {
		r.Get("/composition", h.HandleGetComposition)
		r.Get("/history", h.HandleGetHistory)
		r.Get("/indicators", h.HandleGetIndicators)
		r.Post("/snapshots/rebuild", h.HandleRebuildSnapshots)
	})
}
