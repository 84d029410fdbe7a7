package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aristath/investlog/internal/modules/prices"
	"github.com/aristath/investlog/internal/modules/profit"
	"github.com/aristath/investlog/internal/utils"
	"github.com/rs/zerolog"
)

// ErrAlreadyRunning is returned when a refresh is requested while one is
// still in progress.
var ErrAlreadyRunning = errors.New("daily refresh already running")

// SymbolLister lists the symbols that have transactions.
type SymbolLister interface {
	Symbols(ctx context.Context) ([]string, error)
}

// PriceRefresher refreshes prices of many symbols serially.
type PriceRefresher interface {
	RefreshBatch(ctx context.Context, symbols []string, opts prices.RefreshOptions) (*prices.BatchResult, error)
}

// SnapshotWriter stores the prices of one date in one transaction.
type SnapshotWriter interface {
	SetBatch(ctx context.Context, date string, prices map[string]float64) error
}

// ProfitSaver computes and stores the profit record of a date.
type ProfitSaver interface {
	Save(ctx context.Context, date string) (*profit.Result, error)
}

// DailyRefreshConfig holds the dependencies of DailyRefreshJob.
type DailyRefreshConfig struct {
	Symbols   SymbolLister
	Prices    PriceRefresher
	Snapshots SnapshotWriter
	Profits   ProfitSaver
	Today     func() string
	Retries   int
	Delay     time.Duration
	Timeout   time.Duration
	Log       zerolog.Logger
}

// RefreshReport describes one run of the daily refresh.
type RefreshReport struct {
	Date      string                 `json:"date"`
	RunID     string                 `json:"run_id,omitempty"`
	Symbols   int                    `json:"symbols"`
	Succeeded int                    `json:"succeeded"`
	Failed    []prices.RefreshResult `json:"failed,omitempty"`
	Snapshots int                    `json:"snapshots"`
	Profit    *profit.Result         `json:"profit,omitempty"`
}

// DailyRefreshJob force-refreshes the price of every held symbol, records
// the prices as today's snapshots and saves today's profit record.
type DailyRefreshJob struct {
	cfg DailyRefreshConfig
	mu  sync.Mutex
	log zerolog.Logger
}

// NewDailyRefreshJob creates a new daily refresh job
func NewDailyRefreshJob(cfg DailyRefreshConfig) *DailyRefreshJob {
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Hour
	}
	return &DailyRefreshJob{
		cfg: cfg,
		log: cfg.Log.With().Str("job", "daily_refresh").Logger(),
	}
}

// Name returns the job name
func (j *DailyRefreshJob) Name() string {
	return "daily_refresh"
}

// Run executes the daily refresh job. A run that starts while another is in
// progress is skipped.
func (j *DailyRefreshJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.cfg.Timeout)
	defer cancel()

	_, err := j.Execute(ctx)
	if errors.Is(err, ErrAlreadyRunning) {
		j.log.Warn().Msg("Previous run still in progress, skipping")
		return nil
	}
	return err
}

// Execute runs the refresh for today and reports what happened.
func (j *DailyRefreshJob) Execute(ctx context.Context) (*RefreshReport, error) {
	if !j.mu.TryLock() {
		return nil, ErrAlreadyRunning
	}
	defer j.mu.Unlock()

	today := j.cfg.Today()
	report := &RefreshReport{Date: today}

	symbols, err := j.cfg.Symbols.Symbols(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list symbols: %w", err)
	}
	report.Symbols = len(symbols)
	if len(symbols) == 0 {
		j.log.Info().Msg("No positions, nothing to refresh")
		return report, nil
	}

	j.log.Info().Str("date", today).Int("symbols", len(symbols)).Msg("Starting daily refresh")
	defer utils.OperationTimer("daily_refresh", j.log)()

	batch, err := j.cfg.Prices.RefreshBatch(ctx, symbols, prices.RefreshOptions{
		Force:   true,
		Retries: j.cfg.Retries,
		Delay:   j.cfg.Delay,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to refresh prices: %w", err)
	}
	report.RunID = batch.RunID
	report.Succeeded = batch.Succeeded
	for _, r := range batch.Results {
		if !r.Success {
			report.Failed = append(report.Failed, r)
			j.log.Warn().Str("symbol", r.Symbol).Str("reason", r.Error).Msg("Price refresh failed")
		}
	}

	// A failed snapshot write does not stop the profit step; valuation
	// falls back to the cache for missing snapshots.
	var errs []error
	snapshot := batch.Prices()
	if err := j.cfg.Snapshots.SetBatch(ctx, today, snapshot); err != nil {
		j.log.Error().Err(err).Str("date", today).Msg("Failed to save snapshots")
		errs = append(errs, err)
	} else {
		report.Snapshots = len(snapshot)
	}

	result, err := j.cfg.Profits.Save(ctx, today)
	if err != nil {
		j.log.Error().Err(err).Str("date", today).Msg("Failed to save daily profit")
		errs = append(errs, err)
	} else {
		report.Profit = result
	}

	j.log.Info().
		Str("run_id", report.RunID).
		Int("succeeded", report.Succeeded).
		Int("failed", len(report.Failed)).
		Int("snapshots", report.Snapshots).
		Msg("Daily refresh completed")

	return report, errors.Join(errs...)
}
