// Package prices keeps the last fetched quote of each symbol and decides
// when it has to be fetched again.
package prices

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/investlog/internal/domain"
)

// Repository persists price cache entries in cache.db.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new price cache repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Get returns the cached entry of symbol, or nil if there is none.
func (r *Repository) Get(ctx context.Context, symbol string) (*domain.PriceCacheEntry, error) {
	var entry domain.PriceCacheEntry
	var updatedAt int64
	err := r.db.QueryRowContext(ctx,
		"SELECT symbol, price, updated_at FROM price_cache WHERE symbol = ?", symbol,
	).Scan(&entry.Symbol, &entry.Price, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached price for %s: %w", symbol, err)
	}
	entry.UpdatedAt = time.Unix(updatedAt, 0)
	return &entry, nil
}

// Upsert stores price as the latest value of symbol.
func (r *Repository) Upsert(ctx context.Context, symbol string, price float64, updatedAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO price_cache (symbol, price, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(symbol) DO UPDATE SET price = excluded.price, updated_at = excluded.updated_at
	`, symbol, price, updatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to cache price for %s: %w", symbol, err)
	}
	return nil
}

// GetAll returns every cached entry ordered by symbol.
func (r *Repository) GetAll(ctx context.Context) ([]domain.PriceCacheEntry, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT symbol, price, updated_at FROM price_cache ORDER BY symbol")
	if err != nil {
		return nil, fmt.Errorf("failed to query price cache: %w", err)
	}
	defer rows.Close()

	entries := []domain.PriceCacheEntry{}
	for rows.Next() {
		var e domain.PriceCacheEntry
		var updatedAt int64
		if err := rows.Scan(&e.Symbol, &e.Price, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan cached price: %w", err)
		}
		e.UpdatedAt = time.Unix(updatedAt, 0)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating price cache: %w", err)
	}
	return entries, nil
}
