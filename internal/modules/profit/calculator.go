package profit

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/investlog/internal/domain"
	"github.com/aristath/investlog/pkg/formulas"
	"github.com/rs/zerolog"
)

// PositionSource provides positions and capital inflows from the ledger.
type PositionSource interface {
	SummarizeAsOf(ctx context.Context, date string) ([]domain.Position, error)
	NewInvestment(ctx context.Context, date string) (float64, error)
	CostUpToDate(ctx context.Context, date string) (float64, error)
}

// SnapshotSource provides the closing prices recorded for a date.
type SnapshotSource interface {
	GetByDate(ctx context.Context, date string) (map[string]float64, error)
}

// PriceSource provides the cached price of a symbol regardless of staleness.
type PriceSource interface {
	Get(ctx context.Context, symbol string) (*domain.PriceCacheEntry, error)
}

// Valuation tells where the price used for a position came from.
type Valuation string

// Valuation sources, in order of preference.
const (
	ValuationSnapshot Valuation = "snapshot"
	ValuationCache    Valuation = "cache"
	ValuationCost     Valuation = "cost"
)

// PositionValue is the valuation of one position on a date.
type PositionValue struct {
	Symbol string    `json:"symbol"`
	Shares float64   `json:"shares"`
	Price  float64   `json:"price"`
	Value  float64   `json:"value"`
	Source Valuation `json:"source"`
}

// Result is the outcome of one day's valuation.
type Result struct {
	domain.DailyProfit
	NewInvestment   float64         `json:"new_investment"`
	PrevTotalValue  float64         `json:"prev_total_value"`
	Positions       []PositionValue `json:"positions,omitempty"`
	UnpricedSymbols []string        `json:"unpriced_symbols,omitempty"`
	Persisted       bool            `json:"persisted"`
}

// Incomplete reports whether any position fell back to its average cost.
func (r *Result) Incomplete() bool {
	return len(r.UnpricedSymbols) > 0
}

// Calculator derives the daily profit record of a date from the ledger,
// the snapshot store and the price cache. Each record only depends on the
// record stored for an earlier date, so dates must be computed ascending.
type Calculator struct {
	positions         PositionSource
	snapshots         SnapshotSource
	prices            PriceSource
	repo              *Repository
	persistIncomplete bool
	now               func() time.Time
	log               zerolog.Logger
}

// NewCalculator creates a new daily profit calculator.
// prices may be nil, in which case valuation goes straight from snapshot
// to average cost.
func NewCalculator(
	positions PositionSource,
	snapshots SnapshotSource,
	prices PriceSource,
	repo *Repository,
	persistIncomplete bool,
	log zerolog.Logger,
) *Calculator {
	return &Calculator{
		positions:         positions,
		snapshots:         snapshots,
		prices:            prices,
		repo:              repo,
		persistIncomplete: persistIncomplete,
		now:               time.Now,
		log:               log.With().Str("service", "profit_calculator").Logger(),
	}
}

// Repository returns the record store the calculator reads and writes.
func (c *Calculator) Repository() *Repository {
	return c.repo
}

// Calculate computes the record of date without persisting it.
func (c *Calculator) Calculate(ctx context.Context, date string) (*Result, error) {
	if err := domain.ValidateDate(date); err != nil {
		return nil, err
	}

	result := &Result{
		DailyProfit: domain.DailyProfit{
			Date:           date,
			IsMarketClosed: domain.IsWeekend(date),
		},
	}

	positions, err := c.positions.SummarizeAsOf(ctx, date)
	if err != nil {
		return nil, err
	}
	if len(positions) == 0 {
		return result, nil
	}

	totalValue, err := c.value(ctx, date, positions, result)
	if err != nil {
		return nil, err
	}

	newInvestment, err := c.positions.NewInvestment(ctx, date)
	if err != nil {
		return nil, err
	}

	prevTotalValue, err := c.previousTotalValue(ctx, date)
	if err != nil {
		return nil, err
	}

	profit := formulas.Sum([]float64{totalValue, -prevTotalValue, -newInvestment})

	result.TotalValue = formulas.Round2(totalValue)
	result.Profit = formulas.Round2(profit)
	result.ProfitRate = formulas.Round2(formulas.Percent(profit, prevTotalValue))
	result.NewInvestment = formulas.Round2(newInvestment)
	result.PrevTotalValue = prevTotalValue

	return result, nil
}

// value prices every position: snapshot of the date, else the cached
// price, else the position's average cost.
func (c *Calculator) value(ctx context.Context, date string, positions []domain.Position, result *Result) (float64, error) {
	snapshots, err := c.snapshots.GetByDate(ctx, date)
	if err != nil {
		return 0, err
	}

	values := make([]float64, 0, len(positions))
	for _, p := range positions {
		pv := PositionValue{Symbol: p.Symbol, Shares: p.TotalShares}

		if price, ok := snapshots[p.Symbol]; ok && price > 0 {
			pv.Price, pv.Source = price, ValuationSnapshot
		} else if entry := c.cached(ctx, p.Symbol); entry != nil {
			pv.Price, pv.Source = entry.Price, ValuationCache
		} else {
			pv.Price, pv.Source = p.AvgPrice, ValuationCost
			result.UnpricedSymbols = append(result.UnpricedSymbols, p.Symbol)
		}

		pv.Value = formulas.Product(pv.Shares, pv.Price)
		values = append(values, pv.Value)
		result.Positions = append(result.Positions, pv)
	}

	return formulas.Sum(values), nil
}

// cached treats a cache read failure like a miss; valuation degrades to
// cost instead of failing the day.
func (c *Calculator) cached(ctx context.Context, symbol string) *domain.PriceCacheEntry {
	if c.prices == nil {
		return nil
	}
	entry, err := c.prices.Get(ctx, symbol)
	if err != nil {
		c.log.Warn().Err(err).Str("symbol", symbol).Msg("Price cache lookup failed")
		return nil
	}
	if entry == nil || entry.Price <= 0 {
		return nil
	}
	return entry
}

// previousTotalValue is the total value of the latest record before date.
// Without one, the portfolio is assumed to have been worth its cost basis
// at the end of the previous day.
func (c *Calculator) previousTotalValue(ctx context.Context, date string) (float64, error) {
	prev, err := c.repo.LatestBefore(ctx, date)
	if err != nil {
		return 0, err
	}
	if prev != nil {
		return prev.TotalValue, nil
	}

	dayBefore, err := domain.AddDays(date, -1)
	if err != nil {
		return 0, err
	}
	return c.positions.CostUpToDate(ctx, dayBefore)
}

// Save calculates the record of date and stores it. A result valued
// partly at average cost is only stored when incomplete results are
// configured to persist; Persisted tells which happened.
func (c *Calculator) Save(ctx context.Context, date string) (*Result, error) {
	result, err := c.Calculate(ctx, date)
	if err != nil {
		return nil, err
	}

	if result.Incomplete() {
		c.log.Warn().
			Str("date", date).
			Strs("symbols", result.UnpricedSymbols).
			Bool("persist", c.persistIncomplete).
			Msg("No price available, valued at average cost")
		if !c.persistIncomplete {
			return result, nil
		}
	}

	result.UpdatedAt = c.now()
	if err := c.repo.Upsert(ctx, result.DailyProfit); err != nil {
		return nil, fmt.Errorf("failed to save daily profit: %w", err)
	}
	result.Persisted = true

	c.log.Info().
		Str("date", date).
		Float64("profit", result.Profit).
		Float64("profit_rate", result.ProfitRate).
		Float64("total_value", result.TotalValue).
		Msg("Saved daily profit")

	return result, nil
}
