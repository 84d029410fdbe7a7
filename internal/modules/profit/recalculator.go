package profit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aristath/investlog/internal/domain"
	"github.com/rs/zerolog"
)

// Report summarizes a recalculation run. After an interrupted run,
// RecalculateFrom(LastDate + 1 day) resumes where it stopped.
type Report struct {
	Range      DateRange     `json:"range"`
	Days       int           `json:"days"`
	Incomplete int           `json:"incomplete"`
	LastDate   string        `json:"last_date,omitempty"`
	Deleted    int64         `json:"deleted"`
	Duration   time.Duration `json:"duration"`
}

// Recalculator rebuilds the daily profit series one date at a time.
type Recalculator struct {
	calc      *Calculator
	startDate string
	today     func() string
	mu        sync.Mutex
	log       zerolog.Logger
}

// NewRecalculator creates a recalculator whose default range runs from
// startDate to today().
func NewRecalculator(calc *Calculator, startDate string, today func() string, log zerolog.Logger) *Recalculator {
	return &Recalculator{
		calc:      calc,
		startDate: startDate,
		today:     today,
		log:       log.With().Str("service", "profit_recalculator").Logger(),
	}
}

// DefaultRange is the configured start date through today.
func (r *Recalculator) DefaultRange() DateRange {
	return DateRange{Start: r.startDate, End: r.today()}
}

// RecalculateAll wipes every stored record and recomputes rng ascending.
func (r *Recalculator) RecalculateAll(ctx context.Context, rng DateRange) (*Report, error) {
	if _, err := NewDateRange(rng.Start, rng.End); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	deleted, err := r.calc.repo.DeleteAll(ctx)
	if err != nil {
		return nil, err
	}
	return r.run(ctx, rng, deleted)
}

// RecalculateFrom deletes the records dated from..end and recomputes them.
// Records before from are kept and seed the chain; records after end are
// left untouched.
func (r *Recalculator) RecalculateFrom(ctx context.Context, from, end string) (*Report, error) {
	rng, err := NewDateRange(from, end)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	deleted, err := r.calc.repo.DeleteRange(ctx, from, end)
	if err != nil {
		return nil, err
	}
	return r.run(ctx, rng, deleted)
}

// run never parallelizes: each date reads the record saved for the
// date before it.
func (r *Recalculator) run(ctx context.Context, rng DateRange, deleted int64) (*Report, error) {
	started := time.Now()
	report := &Report{Range: rng, Deleted: deleted}

	r.log.Info().Str("range", rng.String()).Int("days", rng.Len()).Msg("Starting profit recalculation")

	for date := range rng.Dates() {
		if err := ctx.Err(); err != nil {
			report.Duration = time.Since(started)
			return report, fmt.Errorf("recalculation interrupted after %s: %w", report.LastDate, err)
		}

		result, err := r.calc.Save(ctx, date)
		if err != nil {
			report.Duration = time.Since(started)
			return report, fmt.Errorf("failed to recalculate %s: %w", date, err)
		}

		report.Days++
		report.LastDate = date
		if result.Incomplete() {
			report.Incomplete++
		}
	}

	report.Duration = time.Since(started)
	r.log.Info().
		Int("days", report.Days).
		Int("incomplete", report.Incomplete).
		Dur("duration", report.Duration).
		Msg("Profit recalculation complete")

	return report, nil
}

// Resume continues an interrupted report up to its original end date.
// A report that already reached its end date yields an empty report.
func (r *Recalculator) Resume(ctx context.Context, prev *Report) (*Report, error) {
	if prev == nil || prev.LastDate == "" {
		return nil, fmt.Errorf("%w: nothing to resume", domain.ErrInvalidInput)
	}
	if prev.LastDate >= prev.Range.End {
		return &Report{Range: prev.Range, LastDate: prev.LastDate}, nil
	}
	next, err := domain.AddDays(prev.LastDate, 1)
	if err != nil {
		return nil, err
	}
	return r.RecalculateFrom(ctx, next, prev.Range.End)
}
