// Package quotes fetches current prices through an ordered list of providers
// with linear-backoff retries.
package quotes

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/aristath/investlog/internal/domain"
	"github.com/rs/zerolog"
)

// Provider is one external quote source.
type Provider interface {
	Name() string
	FetchPrice(ctx context.Context, symbol string) (float64, error)
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// ContextSleep is the production Sleeper.
func ContextSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Fetcher tries each provider in order and retries the whole sequence.
// It has no side effects; caching is the caller's concern.
type Fetcher struct {
	providers []Provider
	baseDelay time.Duration
	sleep     Sleeper
	log       zerolog.Logger
}

// NewFetcher creates a fetcher. Attempt k (k ≥ 1) of a retry waits
// k × baseDelay before running the provider sequence again.
func NewFetcher(providers []Provider, baseDelay time.Duration, log zerolog.Logger) *Fetcher {
	return &Fetcher{
		providers: providers,
		baseDelay: baseDelay,
		sleep:     ContextSleep,
		log:       log.With().Str("component", "quote_fetcher").Logger(),
	}
}

// WithSleeper replaces the wait function (tests).
func (f *Fetcher) WithSleeper(s Sleeper) *Fetcher {
	f.sleep = s
	return f
}

// Providers returns the provider names in fallback order.
func (f *Fetcher) Providers() []string {
	names := make([]string, len(f.providers))
	for i, p := range f.providers {
		names[i] = p.Name()
	}
	return names
}

// Fetch returns the first positive price any provider yields.
// retries is the number of extra passes over the provider list; values
// below zero are treated as zero. When every pass fails the error wraps
// domain.ErrNotFound.
func (f *Fetcher) Fetch(ctx context.Context, symbol string, retries int) (float64, error) {
	if symbol == "" {
		return 0, fmt.Errorf("%w: empty symbol", domain.ErrInvalidInput)
	}
	if retries < 0 {
		retries = 0
	}

	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			wait := time.Duration(attempt) * f.baseDelay
			f.log.Debug().Str("symbol", symbol).Int("attempt", attempt).Dur("wait", wait).Msg("Retrying quote providers")
			if err := f.sleep(ctx, wait); err != nil {
				return 0, err
			}
		}

		if price, ok := f.tryProviders(ctx, symbol); ok {
			return price, nil
		}
		if err := ctx.Err(); err != nil {
			return 0, err
		}
	}

	f.log.Warn().Str("symbol", symbol).Int("retries", retries).Msg("All quote providers failed")
	return 0, fmt.Errorf("no price for %s: %w", symbol, domain.ErrNotFound)
}

func (f *Fetcher) tryProviders(ctx context.Context, symbol string) (float64, bool) {
	for _, p := range f.providers {
		price, err := p.FetchPrice(ctx, symbol)
		if err != nil {
			f.log.Warn().Err(err).Str("provider", p.Name()).Str("symbol", symbol).Msg("Provider failed")
			continue
		}
		if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
			f.log.Warn().Str("provider", p.Name()).Str("symbol", symbol).Float64("price", price).Msg("Provider returned invalid price")
			continue
		}
		return price, true
	}
	return 0, false
}
