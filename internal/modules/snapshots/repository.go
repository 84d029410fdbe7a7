// Package snapshots stores the per-day closing price of each symbol.
package snapshots

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aristath/investlog/internal/database"
	"github.com/aristath/investlog/internal/domain"
	"github.com/rs/zerolog"
)

// Repository provides access to price_snapshots in history.db.
// A (symbol, date) pair holds at most one row; writes are upserts.
type Repository struct {
	db  *sql.DB
	now func() time.Time
	log zerolog.Logger
}

// NewRepository creates a new snapshot repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		now: time.Now,
		log: log.With().Str("repo", "snapshots").Logger(),
	}
}

const upsertSnapshot = `
	INSERT INTO price_snapshots (symbol, date, price, updated_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(symbol, date) DO UPDATE SET
		price = excluded.price,
		updated_at = excluded.updated_at
`

func validateSnapshot(symbol, date string, price float64) error {
	if strings.TrimSpace(symbol) == "" {
		return fmt.Errorf("%w: empty symbol", domain.ErrInvalidInput)
	}
	if err := domain.ValidateDate(date); err != nil {
		return err
	}
	if price <= 0 {
		return fmt.Errorf("%w: snapshot price for %s must be positive, got %v", domain.ErrInvalidInput, symbol, price)
	}
	return nil
}

// Set upserts the snapshot of symbol on date.
func (r *Repository) Set(ctx context.Context, symbol, date string, price float64) error {
	symbol = normalizeSymbol(symbol)
	if err := validateSnapshot(symbol, date, price); err != nil {
		return err
	}

	if _, err := r.db.ExecContext(ctx, upsertSnapshot, symbol, date, price, r.now().Unix()); err != nil {
		return fmt.Errorf("failed to save snapshot %s %s: %w", symbol, date, err)
	}
	return nil
}

// SetBatch upserts all prices for one date in a single transaction.
// Either every row is written or none is.
func (r *Repository) SetBatch(ctx context.Context, date string, prices map[string]float64) error {
	if len(prices) == 0 {
		return nil
	}
	for symbol, price := range prices {
		if err := validateSnapshot(symbol, date, price); err != nil {
			return err
		}
	}

	updatedAt := r.now().Unix()
	err := database.WithTransaction(ctx, r.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, upsertSnapshot)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for symbol, price := range prices {
			if _, err := stmt.ExecContext(ctx, normalizeSymbol(symbol), date, price, updatedAt); err != nil {
				return fmt.Errorf("failed to save snapshot %s: %w", symbol, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save snapshots for %s: %w", date, err)
	}

	r.log.Debug().Str("date", date).Int("count", len(prices)).Msg("Saved snapshot batch")
	return nil
}

// Get returns the snapshot price of symbol on exactly date.
func (r *Repository) Get(ctx context.Context, symbol, date string) (float64, bool, error) {
	var price float64
	err := r.db.QueryRowContext(ctx,
		"SELECT price FROM price_snapshots WHERE symbol = ? AND date = ?",
		normalizeSymbol(symbol), date,
	).Scan(&price)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get snapshot %s %s: %w", symbol, date, err)
	}
	return price, true, nil
}

// GetByDate returns every snapshot of exactly date keyed by symbol.
// There is no fallback to earlier dates.
func (r *Repository) GetByDate(ctx context.Context, date string) (map[string]float64, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT symbol, price FROM price_snapshots WHERE date = ?", date)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots for %s: %w", date, err)
	}
	defer rows.Close()

	prices := make(map[string]float64)
	for rows.Next() {
		var symbol string
		var price float64
		if err := rows.Scan(&symbol, &price); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		prices[symbol] = price
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshots: %w", err)
	}
	return prices, nil
}

// GetRange returns the snapshots of symbol with start ≤ date ≤ end, ascending.
func (r *Repository) GetRange(ctx context.Context, symbol, start, end string) ([]domain.PriceSnapshot, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT symbol, date, price, updated_at
		FROM price_snapshots
		WHERE symbol = ? AND date >= ? AND date <= ?
		ORDER BY date ASC
	`, normalizeSymbol(symbol), start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot range: %w", err)
	}
	defer rows.Close()

	snapshots := []domain.PriceSnapshot{}
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshots: %w", err)
	}
	return snapshots, nil
}

// Latest returns the most recent snapshot of symbol, or nil if none exists.
func (r *Repository) Latest(ctx context.Context, symbol string) (*domain.PriceSnapshot, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT symbol, date, price, updated_at
		FROM price_snapshots
		WHERE symbol = ?
		ORDER BY date DESC
		LIMIT 1
	`, normalizeSymbol(symbol))

	s, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// HasSnapshot reports whether any snapshot exists for date.
func (r *Repository) HasSnapshot(ctx context.Context, date string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM price_snapshots WHERE date = ?)", date,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check snapshot for %s: %w", date, err)
	}
	return exists, nil
}

// DeleteAll removes every snapshot.
func (r *Repository) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM price_snapshots")
	if err != nil {
		return 0, fmt.Errorf("failed to delete snapshots: %w", err)
	}
	n, _ := res.RowsAffected()
	r.log.Info().Int64("deleted", n).Msg("Deleted all snapshots")
	return n, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSnapshot(s scanner) (domain.PriceSnapshot, error) {
	var snap domain.PriceSnapshot
	var updatedAt int64
	if err := s.Scan(&snap.Symbol, &snap.Date, &snap.Price, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return snap, err
		}
		return snap, fmt.Errorf("failed to scan snapshot: %w", err)
	}
	snap.UpdatedAt = time.Unix(updatedAt, 0)
	return snap, nil
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
