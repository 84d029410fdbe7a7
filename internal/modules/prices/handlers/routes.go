package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all price routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/price/{symbol}", func(w http.ResponseWriter, r *http.Request) {
		h.HandleGetPrice(w, r, chi.URLParam(r, "symbol"))
	})
	r.Post("/prices", h.HandleGetPrices)
	r.Post("/refresh", h.HandleRefresh)
}
