// Package handlers provides HTTP handlers for price lookups and refreshes.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/aristath/investlog/internal/domain"
	"github.com/aristath/investlog/internal/modules/prices"
	"github.com/aristath/investlog/internal/scheduler"
	"github.com/rs/zerolog"
)

// PriceService looks up and refreshes prices
type PriceService interface {
	GetPrice(ctx context.Context, symbol string, force bool) (*prices.Quote, error)
	RefreshBatch(ctx context.Context, symbols []string, opts prices.RefreshOptions) (*prices.BatchResult, error)
}

// DailyRefresher runs the full daily refresh on demand
type DailyRefresher interface {
	Execute(ctx context.Context) (*scheduler.RefreshReport, error)
}

// Config holds the retry budgets and pacing used by bulk requests
type Config struct {
	BatchRetries     int
	InteractiveDelay time.Duration
}

// Handler handles price HTTP requests
type Handler struct {
	service   PriceService
	refresher DailyRefresher
	cfg       Config
	log       zerolog.Logger
}

// NewHandler creates a new price handler. refresher may be nil, in which
// case POST /refresh requires an explicit symbol list.
func NewHandler(service PriceService, refresher DailyRefresher, cfg Config, log zerolog.Logger) *Handler {
	return &Handler{
		service:   service,
		refresher: refresher,
		cfg:       cfg,
		log:       log.With().Str("handler", "prices").Logger(),
	}
}

type batchRequest struct {
	Symbols []string `json:"symbols"`
	Force   bool     `json:"force"`
}

// HandleGetPrice handles GET /api/price/{symbol}
// ?force=true bypasses the cache.
func (h *Handler) HandleGetPrice(w http.ResponseWriter, r *http.Request, symbol string) {
	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))

	quote, err := h.service.GetPrice(r.Context(), symbol, force)
	if err != nil {
		h.writeDomainError(w, err, "Failed to get price")
		return
	}

	h.writeData(w, http.StatusOK, quote)
}

// HandleGetPrices handles POST /api/prices
func (h *Handler) HandleGetPrices(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.service.RefreshBatch(r.Context(), req.Symbols, prices.RefreshOptions{
		Force:   req.Force,
		Retries: h.cfg.BatchRetries,
		Delay:   h.cfg.InteractiveDelay,
	})
	if err != nil {
		h.writeDomainError(w, err, "Failed to get prices")
		return
	}

	h.writeData(w, http.StatusOK, result)
}

// HandleRefresh handles POST /api/refresh
// With symbols it force-refreshes just those; without it runs the daily
// refresh (prices, snapshots and today's profit record).
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	if len(req.Symbols) > 0 {
		result, err := h.service.RefreshBatch(r.Context(), req.Symbols, prices.RefreshOptions{
			Force:   true,
			Retries: h.cfg.BatchRetries,
			Delay:   h.cfg.InteractiveDelay,
		})
		if err != nil {
			h.writeDomainError(w, err, "Failed to refresh prices")
			return
		}
		h.writeData(w, http.StatusOK, result)
		return
	}

	if h.refresher == nil {
		h.writeError(w, http.StatusBadRequest, "symbols are required")
		return
	}

	report, err := h.refresher.Execute(r.Context())
	if errors.Is(err, scheduler.ErrAlreadyRunning) {
		h.writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil && report == nil {
		h.writeDomainError(w, err, "Failed to run daily refresh")
		return
	}
	if err != nil {
		h.log.Warn().Err(err).Msg("Daily refresh finished with errors")
	}

	h.writeData(w, http.StatusOK, report)
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
