package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all profit routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/profits", func(r chi.Router) {
		r.Get("/daily", h.HandleGetDailyRange)
		r.Get("/daily/{date}", func(w http.ResponseWriter, r *http.Request) {
			h.HandleGetDaily(w, r, chi.URLParam(r, "date"))
		})
		r.Post("/calculate", h.HandleCalculate)
		r.Post("/recalculate", h.HandleRecalculate)

		r.Get("/monthly/{yearMonth}", func(w http.ResponseWriter, r *http.Request) {
			h.HandleGetMonthly(w, r, chi.URLParam(r, "yearMonth"))
		})
		r.Get("/yearly/{year}", func(w http.ResponseWriter, r *http.Request) {
			h.HandleGetYearly(w, r, chi.URLParam(r, "year"))
		})
		r.Get("/stats", h.HandleGetStats)
		r.Get("/market-value", h.HandleGetMarketValue)
	})
}
