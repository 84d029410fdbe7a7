// Package handlers provides HTTP handlers for daily price snapshots.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aristath/investlog/internal/domain"
	"github.com/rs/zerolog"
)

// SnapshotStore reads and writes daily closing prices
type SnapshotStore interface {
	SetBatch(ctx context.Context, date string, prices map[string]float64) error
	GetByDate(ctx context.Context, date string) (map[string]float64, error)
	GetRange(ctx context.Context, symbol, start, end string) ([]domain.PriceSnapshot, error)
}

// Handler handles snapshot HTTP requests
type Handler struct {
	store SnapshotStore
	log   zerolog.Logger
}

// NewHandler creates a new snapshot handler
func NewHandler(store SnapshotStore, log zerolog.Logger) *Handler {
	return &Handler{
		store: store,
		log:   log.With().Str("handler", "snapshots").Logger(),
	}
}

// HandleSaveSnapshots handles POST /api/snapshots
// Body: {"date": "YYYY-MM-DD", "prices": {"AAPL": 160.5}}. All prices are
// written in one transaction.
func (h *Handler) HandleSaveSnapshots(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date   string             `json:"date"`
		Prices map[string]float64 `json:"prices"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := domain.ValidateDate(req.Date); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Prices) == 0 {
		h.writeError(w, http.StatusBadRequest, "prices are required")
		return
	}

	if err := h.store.SetBatch(r.Context(), req.Date, req.Prices); err != nil {
		h.writeDomainError(w, err, "Failed to save snapshots")
		return
	}

	h.log.Info().Str("date", req.Date).Int("count", len(req.Prices)).Msg("Snapshots saved")
	h.writeData(w, http.StatusOK, map[string]interface{}{
		"date":  req.Date,
		"saved": len(req.Prices),
	})
}

// HandleGetByDate handles GET /api/snapshots/{date}
func (h *Handler) HandleGetByDate(w http.ResponseWriter, r *http.Request, date string) {
	if err := domain.ValidateDate(date); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	prices, err := h.store.GetByDate(r.Context(), date)
	if err != nil {
		h.writeDomainError(w, err, "Failed to get snapshots")
		return
	}

	h.writeData(w, http.StatusOK, map[string]interface{}{
		"date":   date,
		"prices": prices,
		"count":  len(prices),
	})
}

// HandleGetRange handles GET /api/snapshots/range/{symbol}?start=&end=
func (h *Handler) HandleGetRange(w http.ResponseWriter, r *http.Request, symbol string) {
	start := r.URL.Query().Get("start")
	end := r.URL.Query().Get("end")
	if err := validateRange(start, end); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	snapshots, err := h.store.GetRange(r.Context(), symbol, start, end)
	if err != nil {
		h.writeDomainError(w, err, "Failed to get snapshot range")
		return
	}

	h.writeData(w, http.StatusOK, map[string]interface{}{
		"symbol":    symbol,
		"snapshots": snapshots,
		"count":     len(snapshots),
	})
}

func validateRange(start, end string) error {
	if err := domain.ValidateDate(start); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	if err := domain.ValidateDate(end); err != nil {
		return fmt.Errorf("end: %w", err)
	}
	if start > end {
		return fmt.Errorf("%w: start %s is after end %s", domain.ErrInvalidInput, start, end)
	}
	return nil
}

func (h *Handler) writeData(w http.ResponseWriter, status int, data interface{}) {
	h.writeJSON(w, status, map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

func (h *Handler) writeDomainError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	default:
		h.log.Error().Err(err).Msg(msg)
		h.writeError(w, http.StatusInternalServerError, msg)
	}
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
