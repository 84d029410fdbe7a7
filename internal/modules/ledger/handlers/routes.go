package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all ledger routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/transactions", func(r chi.Router) {
		r.Get("/", h.HandleGetTransactions)
		r.Post("/", h.HandleCreateTransaction)
		r.Delete("/", h.HandleDeleteAll)

		r.Get("/summary", h.HandleGetSummary)
		r.Post("/batch", h.HandleCreateBatch)

		r.Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
			h.HandleGetTransaction(w, r, chi.URLParam(r, "id"))
		})
		r.Put("/{id}", func(w http.ResponseWriter, r *http.Request) {
			h.HandleUpdateTransaction(w, r, chi.URLParam(r, "id"))
		})
		r.Delete("/{id}", func(w http.ResponseWriter, r *http.Request) {
			h.HandleDeleteTransaction(w, r, chi.URLParam(r, "id"))
		})
	})
}
