package profit

import (
	"context"
	"fmt"

	"github.com/aristath/investlog/internal/domain"
	"github.com/aristath/investlog/pkg/formulas"
	"github.com/rs/zerolog"
)

// Summary aggregates the daily records of a month or year.
type Summary struct {
	Period     string  `json:"period"`
	Profit     float64 `json:"profit"`
	ProfitRate float64 `json:"profit_rate"`
	TotalValue float64 `json:"total_value"`
	StartValue float64 `json:"start_value"`
	Days       int     `json:"days"`
}

// Stats describes the distribution of a set of daily records.
type Stats struct {
	Days        int                 `json:"days"`
	UpDays      int                 `json:"up_days"`
	DownDays    int                 `json:"down_days"`
	MeanRate    float64             `json:"mean_rate"`
	StdDevRate  float64             `json:"stddev_rate"`
	MaxDrawdown float64             `json:"max_drawdown"`
	Best        *domain.DailyProfit `json:"best,omitempty"`
	Worst       *domain.DailyProfit `json:"worst,omitempty"`
}

// Rollup derives period summaries from stored daily records on demand.
// Nothing is cached, so summaries always reflect the latest records.
type Rollup struct {
	repo *Repository
	log  zerolog.Logger
}

// NewRollup creates a new period rollup
func NewRollup(repo *Repository, log zerolog.Logger) *Rollup {
	return &Rollup{
		repo: repo,
		log:  log.With().Str("service", "profit_rollup").Logger(),
	}
}

// Monthly summarizes a YYYY-MM month.
func (r *Rollup) Monthly(ctx context.Context, yearMonth string) (*Summary, error) {
	start, end, err := domain.MonthBounds(yearMonth)
	if err != nil {
		return nil, err
	}
	return r.summarize(ctx, yearMonth, start, end)
}

// Yearly summarizes a YYYY year.
func (r *Rollup) Yearly(ctx context.Context, year string) (*Summary, error) {
	start, end, err := domain.YearBounds(year)
	if err != nil {
		return nil, err
	}
	return r.summarize(ctx, year, start, end)
}

// MonthsOfYear returns the summary of every month of year that has records.
func (r *Rollup) MonthsOfYear(ctx context.Context, year string) ([]Summary, error) {
	start, end, err := domain.YearBounds(year)
	if err != nil {
		return nil, err
	}
	records, err := r.repo.GetRange(ctx, start, end)
	if err != nil {
		return nil, err
	}

	months := []Summary{}
	for i := 0; i < len(records); {
		month := records[i].Date[:7]
		j := i
		for j < len(records) && records[j].Date[:7] == month {
			j++
		}
		s, err := r.fromRecords(ctx, month, records[i:j])
		if err != nil {
			return nil, err
		}
		months = append(months, *s)
		i = j
	}
	return months, nil
}

// DailyRecords returns the records of a YYYY-MM month in date order.
func (r *Rollup) DailyRecords(ctx context.Context, yearMonth string) ([]domain.DailyProfit, error) {
	start, end, err := domain.MonthBounds(yearMonth)
	if err != nil {
		return nil, err
	}
	return r.repo.GetRange(ctx, start, end)
}

func (r *Rollup) summarize(ctx context.Context, period, start, end string) (*Summary, error) {
	records, err := r.repo.GetRange(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to load records for %s: %w", period, err)
	}
	return r.fromRecords(ctx, period, records)
}

// fromRecords expects records of one period in ascending date order.
func (r *Rollup) fromRecords(ctx context.Context, period string, records []domain.DailyProfit) (*Summary, error) {
	summary := &Summary{Period: period, Days: len(records)}
	if len(records) == 0 {
		return summary, nil
	}

	profits := make([]float64, len(records))
	for i, rec := range records {
		profits[i] = rec.Profit
	}
	profit := formulas.Sum(profits)
	totalValue := records[len(records)-1].TotalValue

	startValue := formulas.Sum([]float64{totalValue, -profit})
	prev, err := r.repo.LatestBefore(ctx, records[0].Date)
	if err != nil {
		return nil, err
	}
	if prev != nil {
		startValue = prev.TotalValue
	}

	summary.Profit = formulas.Round2(profit)
	summary.TotalValue = totalValue
	summary.StartValue = formulas.Round2(startValue)
	summary.ProfitRate = formulas.Round2(formulas.Percent(profit, startValue))
	return summary, nil
}

// ComputeStats derives the spread of daily profit rates and the best and
// worst day of records.
func ComputeStats(records []domain.DailyProfit) Stats {
	stats := Stats{Days: len(records)}
	if len(records) == 0 {
		return stats
	}

	rates := make([]float64, len(records))
	profits := make([]float64, len(records))
	values := make([]float64, len(records))
	for i, rec := range records {
		rates[i] = rec.ProfitRate
		profits[i] = rec.Profit
		values[i] = rec.TotalValue
		switch {
		case rec.Profit > 0:
			stats.UpDays++
		case rec.Profit < 0:
			stats.DownDays++
		}
	}

	stats.MeanRate = formulas.Round2(formulas.Mean(rates))
	stats.StdDevRate = formulas.Round2(formulas.StdDev(rates))
	stats.MaxDrawdown = formulas.Round2(formulas.MaxDrawdown(values))

	minIdx, maxIdx := formulas.Extremes(profits)
	best, worst := records[maxIdx], records[minIdx]
	stats.Best, stats.Worst = &best, &worst
	return stats
}
