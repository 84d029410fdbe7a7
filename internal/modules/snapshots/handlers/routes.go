package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all snapshot routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/snapshots", func(r chi.Router) {
		r.Post("/", h.HandleSaveSnapshots)
		r.Get("/range/{symbol}", func(w http.ResponseWriter, r *http.Request) {
			h.HandleGetRange(w, r, chi.URLParam(r, "symbol"))
		})
		r.Get("/{date}", func(w http.ResponseWriter, r *http.Request) {
			h.HandleGetByDate(w, r, chi.URLParam(r, "date"))
		})
	})
}
