// Package handlers provides HTTP handlers for chart series.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/aristath/investlog/internal/domain"
	"github.com/aristath/investlog/internal/modules/charts"
	"github.com/rs/zerolog"
)

// PriceHistory provides snapshot price series
type PriceHistory interface {
	SymbolPriceHistory(ctx context.Context, symbol, start, end, groupBy string) ([]charts.ChartDataPoint, error)
}

// Handler handles chart HTTP requests
type Handler struct {
	service PriceHistory
	today   func() time.Time
	since   string
	log     zerolog.Logger
}

// NewHandler creates a new charts handler. since is the first date of the
// "all" range.
func NewHandler(service PriceHistory, today func() time.Time, since string, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		today:   today,
		since:   since,
		log:     log.With().Str("handler", "charts").Logger(),
	}
}

// HandleGetPriceHistory handles GET /api/charts/prices/{symbol}
// ?range=1M|3M|6M|1Y|5Y|all (default all) or ?start=&end=, plus ?group=.
func (h *Handler) HandleGetPriceHistory(w http.ResponseWriter, r *http.Request, symbol string) {
	q := r.URL.Query()
	now := h.today()

	start, end := q.Get("start"), q.Get("end")
	if end == "" {
		end = domain.FormatDate(now)
	}
	if start == "" {
		var err error
		if start, err = charts.ResolveRange(q.Get("range"), now, h.since); err != nil {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	points, err := h.service.SymbolPriceHistory(r.Context(), symbol, start, end, q.Get("group"))
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to get price history")
		h.writeError(w, http.StatusInternalServerError, "Failed to get price history")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"symbol": symbol,
			"start":  start,
			"end":    end,
			"points": points,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
