package prices

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aristath/investlog/internal/domain"
	"github.com/rs/zerolog"
)

// SnapshotSource provides the most recent snapshot of a symbol. It is used
// to rebuild a cache entry that is missing from the cache table.
type SnapshotSource interface {
	Latest(ctx context.Context, symbol string) (*domain.PriceSnapshot, error)
}

// CacheConfig configures the daily cutover after which yesterday's prices
// count as stale.
type CacheConfig struct {
	Location      *time.Location
	CutoverHour   int
	CutoverMinute int
	Now           func() time.Time
}

// Cache decides whether a stored price is still usable.
type Cache struct {
	repo      *Repository
	snapshots SnapshotSource
	loc       *time.Location
	hour      int
	minute    int
	now       func() time.Time
	log       zerolog.Logger
}

// NewCache creates a price cache. snapshots may be nil.
func NewCache(repo *Repository, snapshots SnapshotSource, cfg CacheConfig, log zerolog.Logger) *Cache {
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Cache{
		repo:      repo,
		snapshots: snapshots,
		loc:       loc,
		hour:      cfg.CutoverHour,
		minute:    cfg.CutoverMinute,
		now:       now,
		log:       log.With().Str("component", "price_cache").Logger(),
	}
}

// Now returns the current time in the cache's location.
func (c *Cache) Now() time.Time {
	return c.now().In(c.loc)
}

// Cutover returns today's cutover instant.
func (c *Cache) Cutover() time.Time {
	now := c.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), c.hour, c.minute, 0, 0, c.loc)
}

// IsStale reports whether an entry fetched at updatedAt must be refreshed.
//
// With C the cutover instant of today, an entry is stale if it predates C
// and C has passed, or if C has not yet passed and the entry predates
// yesterday's cutover. An entry written exactly at C is fresh.
func (c *Cache) IsStale(updatedAt time.Time) bool {
	now := c.Now()
	cutover := c.Cutover()

	if !now.Before(cutover) {
		return updatedAt.Before(cutover)
	}
	return updatedAt.Before(cutover.AddDate(0, 0, -1))
}

// Get returns the cached entry of symbol regardless of staleness. When the
// cache table has no row, the latest snapshot stands in for it.
func (c *Cache) Get(ctx context.Context, symbol string) (*domain.PriceCacheEntry, error) {
	symbol = normalizeSymbol(symbol)

	entry, err := c.repo.Get(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if entry != nil || c.snapshots == nil {
		return entry, nil
	}

	snap, err := c.snapshots.Latest(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to rebuild cache entry for %s: %w", symbol, err)
	}
	if snap == nil {
		return nil, nil
	}

	c.log.Debug().Str("symbol", symbol).Str("date", snap.Date).Msg("Cache miss served from latest snapshot")
	return &domain.PriceCacheEntry{Symbol: symbol, Price: snap.Price, UpdatedAt: snap.UpdatedAt}, nil
}

// GetFresh returns the entry only when it is not stale.
func (c *Cache) GetFresh(ctx context.Context, symbol string) (*domain.PriceCacheEntry, error) {
	entry, err := c.Get(ctx, symbol)
	if err != nil || entry == nil {
		return nil, err
	}
	if c.IsStale(entry.UpdatedAt) {
		return nil, nil
	}
	return entry, nil
}

// Set stores price as fetched now and returns the written entry.
func (c *Cache) Set(ctx context.Context, symbol string, price float64) (*domain.PriceCacheEntry, error) {
	symbol = normalizeSymbol(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("%w: empty symbol", domain.ErrInvalidInput)
	}
	if price <= 0 {
		return nil, fmt.Errorf("%w: cached price must be positive", domain.ErrInvalidInput)
	}

	updatedAt := c.now().Truncate(time.Second)
	if err := c.repo.Upsert(ctx, symbol, price, updatedAt); err != nil {
		return nil, err
	}
	return &domain.PriceCacheEntry{Symbol: symbol, Price: price, UpdatedAt: updatedAt}, nil
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
