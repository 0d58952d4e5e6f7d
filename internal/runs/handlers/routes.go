package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the run routes on an /api router
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/distributions", h.HandleDistributions)

	r.Route("/runs", func(r chi.Router) {
		r.Post("/", h.HandleCreate)
		r.Get("/", h.HandleList)
		r.Get("/{id}", h.HandleGet)
		r.Get("/{id}/samples", h.HandleSamples)
		r.Delete("/{id}", h.HandleDelete)
	})
}
