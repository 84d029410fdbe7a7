// Package profit computes, stores and rolls up the daily profit series.
package profit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/investlog/internal/domain"
	"github.com/rs/zerolog"
)

// Repository provides access to daily_profits in history.db.
type Repository struct {
	db  *sql.DB
	now func() time.Time
	log zerolog.Logger
}

// NewRepository creates a new daily profit repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		now: time.Now,
		log: log.With().Str("repo", "daily_profits").Logger(),
	}
}

const selectProfit = `
	SELECT date, profit, profit_rate, total_value, is_market_closed, updated_at
	FROM daily_profits
`

// Upsert stores the record of rec.Date, replacing any earlier one.
func (r *Repository) Upsert(ctx context.Context, rec domain.DailyProfit) error {
	if err := domain.ValidateDate(rec.Date); err != nil {
		return err
	}
	updatedAt := rec.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = r.now()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO daily_profits (date, profit, profit_rate, total_value, is_market_closed, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			profit = excluded.profit,
			profit_rate = excluded.profit_rate,
			total_value = excluded.total_value,
			is_market_closed = excluded.is_market_closed,
			updated_at = excluded.updated_at
	`, rec.Date, rec.Profit, rec.ProfitRate, rec.TotalValue, rec.IsMarketClosed, updatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to upsert daily profit %s: %w", rec.Date, err)
	}
	return nil
}

// Get returns the record of date, or nil if none is stored.
func (r *Repository) Get(ctx context.Context, date string) (*domain.DailyProfit, error) {
	return r.one(ctx, selectProfit+" WHERE date = ?", date)
}

// LatestBefore returns the most recent record strictly before date, or nil.
func (r *Repository) LatestBefore(ctx context.Context, date string) (*domain.DailyProfit, error) {
	return r.one(ctx, selectProfit+" WHERE date < ? ORDER BY date DESC LIMIT 1", date)
}

// Latest returns the most recent record, or nil when the series is empty.
func (r *Repository) Latest(ctx context.Context) (*domain.DailyProfit, error) {
	return r.one(ctx, selectProfit+" ORDER BY date DESC LIMIT 1")
}

// GetRange returns records with start ≤ date ≤ end in ascending date order.
func (r *Repository) GetRange(ctx context.Context, start, end string) ([]domain.DailyProfit, error) {
	rows, err := r.db.QueryContext(ctx, selectProfit+" WHERE date >= ? AND date <= ? ORDER BY date ASC", start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily profits: %w", err)
	}
	defer rows.Close()

	records := []domain.DailyProfit{}
	for rows.Next() {
		rec, err := scanProfit(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily profits: %w", err)
	}
	return records, nil
}

// DeleteAll removes every record.
func (r *Repository) DeleteAll(ctx context.Context) (int64, error) {
	return r.delete(ctx, "DELETE FROM daily_profits")
}

// DeleteRange removes records dated start..end inclusive.
func (r *Repository) DeleteRange(ctx context.Context, start, end string) (int64, error) {
	if _, err := NewDateRange(start, end); err != nil {
		return 0, err
	}
	return r.delete(ctx, "DELETE FROM daily_profits WHERE date >= ? AND date <= ?", start, end)
}

func (r *Repository) delete(ctx context.Context, query string, args ...interface{}) (int64, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete daily profits: %w", err)
	}
	n, _ := res.RowsAffected()
	r.log.Debug().Int64("deleted", n).Msg("Deleted daily profits")
	return n, nil
}

func (r *Repository) one(ctx context.Context, query string, args ...interface{}) (*domain.DailyProfit, error) {
	rec, err := scanProfit(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanProfit(s scanner) (domain.DailyProfit, error) {
	var rec domain.DailyProfit
	var updatedAt int64
	if err := s.Scan(&rec.Date, &rec.Profit, &rec.ProfitRate, &rec.TotalValue, &rec.IsMarketClosed, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rec, err
		}
		return rec, fmt.Errorf("failed to scan daily profit: %w", err)
	}
	rec.UpdatedAt = time.Unix(updatedAt, 0)
	return rec, nil
}
