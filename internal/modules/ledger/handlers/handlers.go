// Package handlers provides HTTP handlers for ledger operations.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/aristath/investlog/internal/domain"
	"github.com/aristath/investlog/internal/modules/ledger"
	"github.com/aristath/investlog/internal/services"
	"github.com/rs/zerolog"
)

// PositionSummarizer groups transactions into positions
type PositionSummarizer interface {
	Summarize(ctx context.Context) ([]domain.Position, error)
}

// PositionConverter converts position figures into the display currency
type PositionConverter interface {
	ConvertPositions(ctx context.Context, positions []domain.Position) ([]domain.Position, services.Rate)
}

// Handler handles ledger HTTP requests
type Handler struct {
	repo       *ledger.Repository
	summarizer PositionSummarizer
	converter  PositionConverter
	log        zerolog.Logger
}

// NewHandler creates a new ledger handler. converter may be nil.
func NewHandler(
	repo *ledger.Repository,
	summarizer PositionSummarizer,
	converter PositionConverter,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		repo:       repo,
		summarizer: summarizer,
		converter:  converter,
		log:        log.With().Str("handler", "ledger").Logger(),
	}
}

// HandleGetTransactions handles GET /api/transactions
// Optional ?symbol= restricts the list to one instrument.
func (h *Handler) HandleGetTransactions(w http.ResponseWriter, r *http.Request) {
	var (
		transactions []domain.Transaction
		err          error
	)
	if symbol := r.URL.Query().Get("symbol"); symbol != "" {
		transactions, err = h.repo.GetBySymbol(r.Context(), symbol)
	} else {
		transactions, err = h.repo.GetAll(r.Context())
	}
	if err != nil {
		h.writeDomainError(w, err, "Failed to get transactions")
		return
	}

	h.writeData(w, http.StatusOK, map[string]interface{}{
		"transactions": transactions,
		"count":        len(transactions),
	})
}

// HandleGetTransaction handles GET /api/transactions/{id}
func (h *Handler) HandleGetTransaction(w http.ResponseWriter, r *http.Request, idStr string) {
	id, ok := h.parseID(w, idStr)
	if !ok {
		return
	}

	tx, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err, "Failed to get transaction")
		return
	}

	h.writeData(w, http.StatusOK, tx)
}

// HandleCreateTransaction handles POST /api/transactions
func (h *Handler) HandleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var in domain.TransactionInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	tx, err := h.repo.Create(r.Context(), in)
	if err != nil {
		h.writeDomainError(w, err, "Failed to create transaction")
		return
	}

	h.writeData(w, http.StatusCreated, tx)
}

// HandleCreateBatch handles POST /api/transactions/batch
// Every item gets its own result; invalid items do not fail the batch.
func (h *Handler) HandleCreateBatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Transactions []domain.TransactionInput `json:"transactions"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	results, err := h.repo.CreateBatch(r.Context(), req.Transactions)
	if err != nil {
		h.writeDomainError(w, err, "Failed to create transactions")
		return
	}

	succeeded := 0
	for _, res := range results {
		if res.Success {
			succeeded++
		}
	}

	h.writeData(w, http.StatusOK, map[string]interface{}{
		"results":   results,
		"succeeded": succeeded,
		"failed":    len(results) - succeeded,
	})
}

// HandleUpdateTransaction handles PUT /api/transactions/{id}
func (h *Handler) HandleUpdateTransaction(w http.ResponseWriter, r *http.Request, idStr string) {
	id, ok := h.parseID(w, idStr)
	if !ok {
		return
	}

	var in domain.TransactionInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	tx, err := h.repo.Update(r.Context(), id, in)
	if err != nil {
		h.writeDomainError(w, err, "Failed to update transaction")
		return
	}

	h.writeData(w, http.StatusOK, tx)
}

// HandleDeleteTransaction handles DELETE /api/transactions/{id}
func (h *Handler) HandleDeleteTransaction(w http.ResponseWriter, r *http.Request, idStr string) {
	id, ok := h.parseID(w, idStr)
	if !ok {
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		h.writeDomainError(w, err, "Failed to delete transaction")
		return
	}

	h.writeData(w, http.StatusOK, map[string]interface{}{"deleted": id})
}

// HandleDeleteAll handles DELETE /api/transactions
func (h *Handler) HandleDeleteAll(w http.ResponseWriter, r *http.Request) {
	n, err := h.repo.DeleteAll(r.Context())
	if err != nil {
		h.writeDomainError(w, err, "Failed to delete transactions")
		return
	}

	h.log.Warn().Int64("deleted", n).Msg("All transactions deleted")
	h.writeData(w, http.StatusOK, map[string]interface{}{"deleted": n})
}

// HandleGetSummary handles GET /api/transactions/summary
func (h *Handler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	positions, err := h.summarizer.Summarize(r.Context())
	if err != nil {
		h.writeDomainError(w, err, "Failed to summarize positions")
		return
	}

	var totalCost float64
	for _, p := range positions {
		totalCost += p.TotalCost
	}

	data := map[string]interface{}{
		"positions":  positions,
		"count":      len(positions),
		"total_cost": totalCost,
	}

	if h.converter != nil {
		converted, rate := h.converter.ConvertPositions(r.Context(), positions)
		data["display"] = map[string]interface{}{
			"currency":  rate.Currency,
			"rate":      rate.Rate,
			"positions": converted,
		}
	}

	h.writeData(w, http.StatusOK, data)
}

func (h *Handler) parseID(w http.ResponseWriter, idStr string) (int64, bool) {
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		h.writeError(w, http.StatusBadRequest, "Invalid transaction ID")
		return 0, false
	}
	return id, true
}

func (h *Handler) writeData(w http.ResponseWriter, status int, data interface{}) {
	h.writeJSON(w, status, map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// writeDomainError maps validation errors to 400 and missing rows to 404
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
