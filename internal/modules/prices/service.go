package prices

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/investlog/internal/domain"
	"github.com/aristath/investlog/internal/modules/quotes"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Fetcher fetches a live price with a retry budget.
type Fetcher interface {
	Fetch(ctx context.Context, symbol string, retries int) (float64, error)
}

// Quote is a price together with where it came from.
type Quote struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	UpdatedAt time.Time `json:"updated_at"`
	Cached    bool      `json:"cached"`
}

// RefreshOptions controls a bulk refresh.
type RefreshOptions struct {
	Force   bool          // Bypass fresh cache entries
	Retries int           // Retry budget per symbol
	Delay   time.Duration // Pause between consecutive upstream fetches
}

// RefreshResult is the per-symbol outcome of a bulk refresh.
type RefreshResult struct {
	Symbol    string    `json:"symbol"`
	Success   bool      `json:"success"`
	Price     float64   `json:"price,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
	Cached    bool      `json:"cached,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// BatchResult summarizes a bulk refresh.
type BatchResult struct {
	RunID     string          `json:"run_id"`
	Results   []RefreshResult `json:"results"`
	Succeeded int             `json:"succeeded"`
	Failed    int             `json:"failed"`
}

// Prices returns the successful prices keyed by symbol.
func (b *BatchResult) Prices() map[string]float64 {
	out := make(map[string]float64, b.Succeeded)
	for _, r := range b.Results {
		if r.Success {
			out[r.Symbol] = r.Price
		}
	}
	return out
}

// Service combines the cache with the live fetcher.
type Service struct {
	cache              *Cache
	fetcher            Fetcher
	interactiveRetries int
	sleep              quotes.Sleeper
	log                zerolog.Logger
}

// NewService creates a new price service
func NewService(cache *Cache, fetcher Fetcher, interactiveRetries int, log zerolog.Logger) *Service {
	return &Service{
		cache:              cache,
		fetcher:            fetcher,
		interactiveRetries: interactiveRetries,
		sleep:              quotes.ContextSleep,
		log:                log.With().Str("service", "prices").Logger(),
	}
}

// WithSleeper replaces the wait used between bulk fetches (tests).
func (s *Service) WithSleeper(sleep quotes.Sleeper) *Service {
	s.sleep = sleep
	return s
}

// Cache exposes the underlying cache.
func (s *Service) Cache() *Cache {
	return s.cache
}

// GetPrice returns a fresh cached price, or fetches and caches a live one.
// force skips the cache lookup. When no provider yields a price the error
// wraps domain.ErrNotFound and the cache is left untouched.
func (s *Service) GetPrice(ctx context.Context, symbol string, force bool) (*Quote, error) {
	return s.getPrice(ctx, normalizeSymbol(symbol), force, s.interactiveRetries)
}

func (s *Service) getPrice(ctx context.Context, symbol string, force bool, retries int) (*Quote, error) {
	if symbol == "" {
		return nil, fmt.Errorf("%w: empty symbol", domain.ErrInvalidInput)
	}

	if !force {
		entry, err := s.cache.GetFresh(ctx, symbol)
		if err != nil {
			return nil, err
		}
		if entry != nil {
			return &Quote{Symbol: symbol, Price: entry.Price, UpdatedAt: entry.UpdatedAt, Cached: true}, nil
		}
	}

	price, err := s.fetcher.Fetch(ctx, symbol, retries)
	if err != nil {
		return nil, err
	}

	entry, err := s.cache.Set(ctx, symbol, price)
	if err != nil {
		return nil, err
	}

	s.log.Debug().Str("symbol", symbol).Float64("price", price).Msg("Fetched live price")
	return &Quote{Symbol: symbol, Price: entry.Price, UpdatedAt: entry.UpdatedAt}, nil
}

// RefreshBatch refreshes symbols one at a time, pausing opts.Delay between
// upstream fetches. A failing symbol is reported in its result and never
// aborts the batch. An empty list is invalid input.
func (s *Service) RefreshBatch(ctx context.Context, symbols []string, opts RefreshOptions) (*BatchResult, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("%w: empty symbol list", domain.ErrInvalidInput)
	}

	runID := uuid.New().String()
	log := s.log.With().Str("run_id", runID).Logger()
	log.Info().Int("symbols", len(symbols)).Bool("force", opts.Force).Msg("Starting price refresh")

	result := &BatchResult{RunID: runID, Results: make([]RefreshResult, 0, len(symbols))}
	fetched := 0

	for _, raw := range symbols {
		symbol := normalizeSymbol(raw)
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if !opts.Force {
			entry, err := s.cache.GetFresh(ctx, symbol)
			if err == nil && entry != nil {
				result.add(RefreshResult{Symbol: symbol, Success: true, Price: entry.Price, UpdatedAt: entry.UpdatedAt, Cached: true})
				continue
			}
		}

		if fetched > 0 && opts.Delay > 0 {
			if err := s.sleep(ctx, opts.Delay); err != nil {
				return result, err
			}
		}
		fetched++

		quote, err := s.getPrice(ctx, symbol, true, opts.Retries)
		if err != nil {
			log.Warn().Err(err).Str("symbol", symbol).Msg("Price refresh failed")
			result.add(RefreshResult{Symbol: symbol, Error: failureReason(err)})
			continue
		}
		result.add(RefreshResult{Symbol: symbol, Success: true, Price: quote.Price, UpdatedAt: quote.UpdatedAt})
	}

	log.Info().Int("succeeded", result.Succeeded).Int("failed", result.Failed).Msg("Price refresh finished")
	return result, nil
}

func (b *BatchResult) add(r RefreshResult) {
	b.Results = append(b.Results, r)
	if r.Success {
		b.Succeeded++
	} else {
		b.Failed++
	}
}

func failureReason(err error) string {
	if errors.Is(err, domain.ErrNotFound) {
		return "price not available"
	}
	return err.Error()
}
