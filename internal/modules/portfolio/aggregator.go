// Package portfolio derives positions and capital inflows from the
// transaction ledger. Every figure is computed from the transactions table
// on each call so retroactive edits are always reflected.
package portfolio

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aristath/investlog/internal/domain"
	"github.com/rs/zerolog"
)

// Aggregator runs position queries against ledger.db.
type Aggregator struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewAggregator creates a new position aggregator
func NewAggregator(db *sql.DB, log zerolog.Logger) *Aggregator {
	return &Aggregator{
		db:  db,
		log: log.With().Str("component", "position_aggregator").Logger(),
	}
}

// Summarize groups all transactions by symbol, ordered by total cost
// descending. avg_price is total cost / total shares.
func (a *Aggregator) Summarize(ctx context.Context) ([]domain.Position, error) {
	return a.summarize(ctx, "", nil)
}

// SummarizeAsOf is Summarize restricted to transactions dated on or before
// date, i.e. the positions held at the end of that day.
func (a *Aggregator) SummarizeAsOf(ctx context.Context, date string) ([]domain.Position, error) {
	if err := domain.ValidateDate(date); err != nil {
		return nil, err
	}
	return a.summarize(ctx, "WHERE t.date <= ?", []interface{}{date})
}

func (a *Aggregator) summarize(ctx context.Context, where string, args []interface{}) ([]domain.Position, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT
			t.symbol,
			i.name,
			SUM(t.shares) AS total_shares,
			SUM(t.price * t.shares) AS total_cost,
			COUNT(*) AS transaction_count
		FROM transactions t
		JOIN instruments i ON i.symbol = t.symbol
		`+where+`
		GROUP BY t.symbol
		HAVING SUM(t.shares) > 0
		ORDER BY total_cost DESC, t.symbol ASC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize positions: %w", err)
	}
	defer rows.Close()

	positions := []domain.Position{}
	for rows.Next() {
		var p domain.Position
		if err := rows.Scan(&p.Symbol, &p.Name, &p.TotalShares, &p.TotalCost, &p.TransactionCount); err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		p.AvgPrice = p.TotalCost / p.TotalShares
		positions = append(positions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating positions: %w", err)
	}
	return positions, nil
}

// NewInvestment returns Σ price × shares of transactions dated exactly date.
func (a *Aggregator) NewInvestment(ctx context.Context, date string) (float64, error) {
	return a.sum(ctx, "SELECT COALESCE(SUM(price * shares), 0) FROM transactions WHERE date = ?", date)
}

// CostUpToDate returns Σ price × shares of transactions dated on or before date.
func (a *Aggregator) CostUpToDate(ctx context.Context, date string) (float64, error) {
	return a.sum(ctx, "SELECT COALESCE(SUM(price * shares), 0) FROM transactions WHERE date <= ?", date)
}

// Symbols returns the distinct symbols that have at least one transaction.
func (a *Aggregator) Symbols(ctx context.Context) ([]string, error) {
	rows, err := a.db.QueryContext(ctx, "SELECT DISTINCT symbol FROM transactions ORDER BY symbol")
	if err != nil {
		return nil, fmt.Errorf("failed to query symbols: %w", err)
	}
	defer rows.Close()

	symbols := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, s)
	}
	return symbols, rows.Err()
}

// FirstTransactionDate returns the earliest transaction date, or "" when the
// ledger is empty.
func (a *Aggregator) FirstTransactionDate(ctx context.Context) (string, error) {
	var date sql.NullString
	if err := a.db.QueryRowContext(ctx, "SELECT MIN(date) FROM transactions").Scan(&date); err != nil {
		return "", fmt.Errorf("failed to query first transaction date: %w", err)
	}
	return date.String, nil
}

func (a *Aggregator) sum(ctx context.Context, query, date string) (float64, error) {
	if err := domain.ValidateDate(date); err != nil {
		return 0, err
	}
	var total float64
	if err := a.db.QueryRowContext(ctx, query, date).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum transactions for %s: %w", date, err)
	}
	return total, nil
}
