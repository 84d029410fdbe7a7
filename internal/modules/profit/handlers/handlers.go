// Package handlers provides HTTP handlers for daily profit records and
// their period rollups.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aristath/investlog/internal/domain"
	"github.com/aristath/investlog/internal/modules/charts"
	"github.com/aristath/investlog/internal/modules/profit"
	"github.com/aristath/investlog/internal/services"
	"github.com/rs/zerolog"
)

// RecordReader reads stored daily profit records
type RecordReader interface {
	Get(ctx context.Context, date string) (*domain.DailyProfit, error)
	GetRange(ctx context.Context, start, end string) ([]domain.DailyProfit, error)
}

// ProfitSaver computes and stores the profit record of one date
type ProfitSaver interface {
	Save(ctx context.Context, date string) (*profit.Result, error)
}

// Recalculator rebuilds the stored profit series
type Recalculator interface {
	DefaultRange() profit.DateRange
	RecalculateAll(ctx context.Context, rng profit.DateRange) (*profit.Report, error)
	RecalculateFrom(ctx context.Context, from, end string) (*profit.Report, error)
}

// PeriodRollup summarizes months and years
type PeriodRollup interface {
	Monthly(ctx context.Context, yearMonth string) (*profit.Summary, error)
	Yearly(ctx context.Context, year string) (*profit.Summary, error)
	MonthsOfYear(ctx context.Context, year string) ([]profit.Summary, error)
	DailyRecords(ctx context.Context, yearMonth string) ([]domain.DailyProfit, error)
}

// MarketValueHistory projects total portfolio value over time
type MarketValueHistory interface {
	MarketValueHistory(ctx context.Context, start, end, groupBy string) ([]charts.ChartDataPoint, error)
}

// SummaryConverter converts summaries into the display currency
type SummaryConverter interface {
	ConvertSummary(ctx context.Context, summary profit.Summary) (profit.Summary, services.Rate)
}

// Dependencies groups the collaborators of Handler. Converter may be nil.
type Dependencies struct {
	Records      RecordReader
	Calculator   ProfitSaver
	Recalculator Recalculator
	Rollup       PeriodRollup
	Charts       MarketValueHistory
	Converter    SummaryConverter
	Today        func() string
	Since        string // First date of the "all" chart range
}

// Handler handles profit HTTP requests
type Handler struct {
	deps Dependencies
	log  zerolog.Logger
}

// NewHandler creates a new profit handler
func NewHandler(deps Dependencies, log zerolog.Logger) *Handler {
	return &Handler{
		deps: deps,
		log:  log.With().Str("handler", "profit").Logger(),
	}
}

// HandleGetDaily handles GET /api/profits/daily/{date}
func (h *Handler) HandleGetDaily(w http.ResponseWriter, r *http.Request, date string) {
	if err := domain.ValidateDate(date); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	record, err := h.deps.Records.Get(r.Context(), date)
	if err != nil {
		h.writeDomainError(w, err, "Failed to get daily profit")
		return
	}
	if record == nil {
		h.writeError(w, http.StatusNotFound, fmt.Sprintf("no profit record for %s", date))
		return
	}

	h.writeData(w, http.StatusOK, record)
}

// HandleGetDailyRange handles GET /api/profits/daily?start=&end=
// end defaults to today and start to 30 days before end.
func (h *Handler) HandleGetDailyRange(w http.ResponseWriter, r *http.Request) {
	start, end, err := h.rangeParams(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	records, err := h.deps.Records.GetRange(r.Context(), start, end)
	if err != nil {
		h.writeDomainError(w, err, "Failed to get daily profits")
		return
	}

	h.writeData(w, http.StatusOK, map[string]interface{}{
		"start":   start,
		"end":     end,
		"records": records,
		"count":   len(records),
	})
}

// HandleCalculate handles POST /api/profits/calculate
// Body: {"date": "YYYY-MM-DD"}; an empty body calculates today.
func (h *Handler) HandleCalculate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date string `json:"date"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}
	if req.Date == "" {
		req.Date = h.deps.Today()
	}

	result, err := h.deps.Calculator.Save(r.Context(), req.Date)
	if err != nil {
		h.writeDomainError(w, err, "Failed to calculate daily profit")
		return
	}

	h.writeData(w, http.StatusOK, result)
}

// HandleRecalculate handles POST /api/profits/recalculate
// Without a start date every record is rebuilt over the default range;
// with one, records before start are kept.
func (h *Handler) HandleRecalculate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Start string `json:"start"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	var (
		report *profit.Report
		err    error
	)
	if req.Start == "" {
		report, err = h.deps.Recalculator.RecalculateAll(r.Context(), h.deps.Recalculator.DefaultRange())
	} else {
		report, err = h.deps.Recalculator.RecalculateFrom(r.Context(), req.Start, h.deps.Today())
	}
	if err != nil {
		if report != nil {
			h.log.Error().Err(err).Str("last_date", report.LastDate).Msg("Recalculation interrupted")
		}
		h.writeDomainError(w, err, "Failed to recalculate profits")
		return
	}

	h.writeData(w, http.StatusOK, report)
}

// HandleGetMonthly handles GET /api/profits/monthly/{yearMonth}
func (h *Handler) HandleGetMonthly(w http.ResponseWriter, r *http.Request, yearMonth string) {
	summary, err := h.deps.Rollup.Monthly(r.Context(), yearMonth)
	if err != nil {
		h.writeDomainError(w, err, "Failed to get monthly profit")
		return
	}

	records, err := h.deps.Rollup.DailyRecords(r.Context(), yearMonth)
	if err != nil {
		h.writeDomainError(w, err, "Failed to get daily profits")
		return
	}

	data := h.withDisplay(r.Context(), *summary)
	data["records"] = records
	h.writeData(w, http.StatusOK, data)
}

// HandleGetYearly handles GET /api/profits/yearly/{year}
func (h *Handler) HandleGetYearly(w http.ResponseWriter, r *http.Request, year string) {
	summary, err := h.deps.Rollup.Yearly(r.Context(), year)
	if err != nil {
		h.writeDomainError(w, err, "Failed to get yearly profit")
		return
	}

	months, err := h.deps.Rollup.MonthsOfYear(r.Context(), year)
	if err != nil {
		h.writeDomainError(w, err, "Failed to get monthly profits")
		return
	}

	data := h.withDisplay(r.Context(), *summary)
	data["months"] = months
	h.writeData(w, http.StatusOK, data)
}

// HandleGetStats handles GET /api/profits/stats?start=&end=
func (h *Handler) HandleGetStats(w http.ResponseWriter, r *http.Request) {
	start, end, err := h.rangeParams(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	records, err := h.deps.Records.GetRange(r.Context(), start, end)
	if err != nil {
		h.writeDomainError(w, err, "Failed to get daily profits")
		return
	}

	h.writeData(w, http.StatusOK, profit.ComputeStats(records))
}

// HandleGetMarketValue handles GET /api/profits/market-value
// Accepts either ?start=&end= or ?range=1M|3M|6M|1Y|5Y|all, plus
// ?group=day|week|month.
func (h *Handler) HandleGetMarketValue(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, end := q.Get("start"), q.Get("end")
	if end == "" {
		end = h.deps.Today()
	}
	if start == "" {
		today, err := domain.ParseDate(end)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		start, err = charts.ResolveRange(q.Get("range"), today, h.deps.Since)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	points, err := h.deps.Charts.MarketValueHistory(r.Context(), start, end, q.Get("group"))
	if err != nil {
		h.writeDomainError(w, err, "Failed to get market value history")
		return
	}

	h.writeData(w, http.StatusOK, map[string]interface{}{
		"start":  start,
		"end":    end,
		"points": points,
	})
}

// withDisplay renders a summary with its display-currency variant
func (h *Handler) withDisplay(ctx context.Context, summary profit.Summary) map[string]interface{} {
	data := map[string]interface{}{"summary": summary}
	if h.deps.Converter != nil {
		converted, rate := h.deps.Converter.ConvertSummary(ctx, summary)
		data["display"] = map[string]interface{}{
			"currency": rate.Currency,
			"rate":     rate.Rate,
			"summary":  converted,
		}
	}
	return data
}

func (h *Handler) rangeParams(r *http.Request) (string, string, error) {
	start := r.URL.Query().Get("start")
	end := r.URL.Query().Get("end")
	if end == "" {
		end = h.deps.Today()
	}
	if start == "" {
		var err error
		if start, err = domain.AddDays(end, -30); err != nil {
			return "", "", err
		}
	}

	rng, err := profit.NewDateRange(start, end)
	if err != nil {
		return "", "", err
	}
	return rng.Start, rng.End, nil
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
