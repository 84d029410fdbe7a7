// Package ledger stores instruments and the buy transactions made in them.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aristath/investlog/internal/database"
	"github.com/aristath/investlog/internal/domain"
	"github.com/rs/zerolog"
)

// Repository provides access to instruments and transactions in ledger.db.
type Repository struct {
	db  *sql.DB
	now func() time.Time
	log zerolog.Logger
}

// NewRepository creates a new ledger repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		now: time.Now,
		log: log.With().Str("repo", "ledger").Logger(),
	}
}

const selectTransactions = `
	SELECT t.id, t.symbol, i.name, t.date, t.price, t.shares, t.created_at
	FROM transactions t
	JOIN instruments i ON i.symbol = t.symbol
`

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// upsertInstrument creates the instrument on first use. A non-empty name
// replaces the stored one.
func upsertInstrument(ctx context.Context, ex execer, symbol, name string, now int64) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO instruments (symbol, name, created_at, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(symbol) DO UPDATE SET
			name = CASE WHEN excluded.name <> '' THEN excluded.name ELSE instruments.name END,
			updated_at = excluded.updated_at
	`, symbol, name, now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert instrument %s: %w", symbol, err)
	}
	return nil
}

func insertTransaction(ctx context.Context, ex execer, in domain.TransactionInput, now int64) (int64, error) {
	if err := upsertInstrument(ctx, ex, in.Symbol, in.Name, now); err != nil {
		return 0, err
	}

	res, err := ex.ExecContext(ctx,
		"INSERT INTO transactions (symbol, date, price, shares, created_at) VALUES (?, ?, ?, ?, ?)",
		in.Symbol, in.Date, in.Price, in.Shares, now,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert transaction: %w", err)
	}
	return res.LastInsertId()
}

// Create validates and stores one transaction.
func (r *Repository) Create(ctx context.Context, in domain.TransactionInput) (*domain.Transaction, error) {
	in, err := normalize(in)
	if err != nil {
		return nil, err
	}

	var id int64
	err = database.WithTransaction(ctx, r.db, func(tx *sql.Tx) error {
		var err error
		id, err = insertTransaction(ctx, tx, in, r.now().Unix())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	r.log.Info().Int64("id", id).Str("symbol", in.Symbol).Str("date", in.Date).Msg("Transaction created")
	return r.GetByID(ctx, id)
}

// CreateBatch validates every input and stores the valid ones in a single
// transaction. The result has one entry per input, in order.
func (r *Repository) CreateBatch(ctx context.Context, inputs []domain.TransactionInput) ([]domain.BatchItemResult, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: empty transaction list", domain.ErrInvalidInput)
	}

	results := make([]domain.BatchItemResult, len(inputs))
	valid := make([]int, 0, len(inputs))
	normalized := make([]domain.TransactionInput, len(inputs))

	for i, in := range inputs {
		n, err := normalize(in)
		results[i].Key = fmt.Sprintf("%d", i)
		if err != nil {
			results[i].Error = err.Error()
			continue
		}
		normalized[i] = n
		valid = append(valid, i)
	}

	now := r.now().Unix()
	err := database.WithTransaction(ctx, r.db, func(tx *sql.Tx) error {
		for _, i := range valid {
			id, err := insertTransaction(ctx, tx, normalized[i], now)
			if err != nil {
				return err
			}
			results[i].ID = id
			results[i].Success = true
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create transactions: %w", err)
	}

	r.log.Info().Int("requested", len(inputs)).Int("created", len(valid)).Msg("Transaction batch created")
	return results, nil
}

// Update replaces a transaction's fields.
func (r *Repository) Update(ctx context.Context, id int64, in domain.TransactionInput) (*domain.Transaction, error) {
	in, err := normalize(in)
	if err != nil {
		return nil, err
	}

	// A missing id fails inside the transaction so the instrument upsert
	// rolls back with it.
	err = database.WithTransaction(ctx, r.db, func(tx *sql.Tx) error {
		if err := upsertInstrument(ctx, tx, in.Symbol, in.Name, r.now().Unix()); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			"UPDATE transactions SET symbol = ?, date = ?, price = ?, shares = ? WHERE id = ?",
			in.Symbol, in.Date, in.Price, in.Shares, id,
		)
		if err != nil {
			return fmt.Errorf("failed to update transaction %d: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("transaction %d: %w", id, domain.ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return r.GetByID(ctx, id)
}

// Delete removes a transaction.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM transactions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("transaction %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// DeleteAll removes every transaction and the instruments they referenced.
func (r *Repository) DeleteAll(ctx context.Context) (int64, error) {
	var deleted int64
	err := database.WithTransaction(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM transactions")
		if err != nil {
			return fmt.Errorf("failed to delete transactions: %w", err)
		}
		deleted, _ = res.RowsAffected()
		if _, err := tx.ExecContext(ctx, "DELETE FROM instruments"); err != nil {
			return fmt.Errorf("failed to delete instruments: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	r.log.Warn().Int64("deleted", deleted).Msg("All transactions deleted")
	return deleted, nil
}

// GetAll returns every transaction, newest first.
func (r *Repository) GetAll(ctx context.Context) ([]domain.Transaction, error) {
	return r.query(ctx, selectTransactions+" ORDER BY t.date DESC, t.id DESC")
}

// GetBySymbol returns the transactions of one symbol, newest first.
func (r *Repository) GetBySymbol(ctx context.Context, symbol string) ([]domain.Transaction, error) {
	return r.query(ctx, selectTransactions+" WHERE t.symbol = ? ORDER BY t.date DESC, t.id DESC", normalizeSymbol(symbol))
}

// GetByID returns one transaction.
func (r *Repository) GetByID(ctx context.Context, id int64) (*domain.Transaction, error) {
	txs, err := r.query(ctx, selectTransactions+" WHERE t.id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(txs) == 0 {
		return nil, fmt.Errorf("transaction %d: %w", id, domain.ErrNotFound)
	}
	return &txs[0], nil
}

// GetInstruments returns all known instruments ordered by symbol.
func (r *Repository) GetInstruments(ctx context.Context) ([]domain.Instrument, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT symbol, name FROM instruments ORDER BY symbol")
	if err != nil {
		return nil, fmt.Errorf("failed to query instruments: %w", err)
	}
	defer rows.Close()

	instruments := []domain.Instrument{}
	for rows.Next() {
		var i domain.Instrument
		if err := rows.Scan(&i.Symbol, &i.Name); err != nil {
			return nil, fmt.Errorf("failed to scan instrument: %w", err)
		}
		instruments = append(instruments, i)
	}
	return instruments, rows.Err()
}

// Count returns the number of stored transactions.
func (r *Repository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM transactions").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return n, nil
}

func (r *Repository) query(ctx context.Context, query string, args ...interface{}) ([]domain.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	txs := []domain.Transaction{}
	for rows.Next() {
		var t domain.Transaction
		var createdAt int64
		if err := rows.Scan(&t.ID, &t.Symbol, &t.Name, &t.Date, &t.Price, &t.Shares, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		t.CreatedAt = time.Unix(createdAt, 0)
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return txs, nil
}
