// Package clientdata provides persistent caching for external API client responses.
// Data is stored as JSON blobs with expiration timestamps for cache-first behavior.
package clientdata

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// TableExchangeRate holds currency pair rates keyed by "FROM:TO".
const TableExchangeRate = "exchangerate"

// AllTables lists every client data table in cache.db for cleanup.
var AllTables = []string{
	TableExchangeRate,
}

// keyColumns maps each allowed table to its primary key column.
// Table names are interpolated into SQL, so only these are accepted.
var keyColumns = map[string]string{
	TableExchangeRate: "pair",
}

// Repository provides cache operations for client data.
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

// NewRepository creates a new client data repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// WithClock replaces the time source used for expiry checks.
func (r *Repository) WithClock(now func() time.Time) *Repository {
	r.now = now
	return r
}

func keyColumn(table string) (string, error) {
	col, ok := keyColumns[table]
	if !ok {
		return "", fmt.Errorf("invalid table name: %s", table)
	}
	return col, nil
}

// Store saves data with expiration = now + ttl.
func (r *Repository) Store(ctx context.Context, table, key string, data interface{}, ttl time.Duration) error {
	keyCol, err := keyColumn(table)
	if err != nil {
		return err
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	query := fmt.Sprintf(
		"INSERT OR REPLACE INTO %s (%s, data, expires_at) VALUES (?, ?, ?)",
		table, keyCol,
	)
	if _, err := r.db.ExecContext(ctx, query, key, string(jsonData), r.now().Add(ttl).Unix()); err != nil {
		return fmt.Errorf("failed to store data in %s: %w", table, err)
	}

	return nil
}

// GetIfFresh returns data only if it has not expired.
// Returns nil, nil if the key doesn't exist or data is expired.
func (r *Repository) GetIfFresh(ctx context.Context, table, key string) (json.RawMessage, error) {
	keyCol, err := keyColumn(table)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT data FROM %s WHERE %s = ? AND expires_at > ?", table, keyCol)
	return r.scanData(ctx, table, query, key, r.now().Unix())
}

// Get returns data regardless of expiration status, for use as a fallback
// when the upstream API fails. Returns nil, nil if the key doesn't exist.
func (r *Repository) Get(ctx context.Context, table, key string) (json.RawMessage, error) {
	keyCol, err := keyColumn(table)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT data FROM %s WHERE %s = ?", table, keyCol)
	return r.scanData(ctx, table, query, key)
}

func (r *Repository) scanData(ctx context.Context, table, query string, args ...interface{}) (json.RawMessage, error) {
	var data string
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get data from %s: %w", table, err)
	}
	return json.RawMessage(data), nil
}

// Delete removes a specific entry.
func (r *Repository) Delete(ctx context.Context, table, key string) error {
	keyCol, err := keyColumn(table)
	if err != nil {
		return err
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", table, keyCol)
	if _, err := r.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	return nil
}

// DeleteExpired removes all rows of table whose expiry has passed.
// Returns the number of rows deleted.
func (r *Repository) DeleteExpired(ctx context.Context, table string) (int64, error) {
	if _, err := keyColumn(table); err != nil {
		return 0, err
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE expires_at < ?", table)
	result, err := r.db.ExecContext(ctx, query, r.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired from %s: %w", table, err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected for %s: %w", table, err)
	}
	return deleted, nil
}

// DeleteAllExpired removes expired entries from all tables.
// Returns a map of table name to number of rows deleted.
func (r *Repository) DeleteAllExpired(ctx context.Context) (map[string]int64, error) {
	results := make(map[string]int64, len(AllTables))
	for _, table := range AllTables {
		deleted, err := r.DeleteExpired(ctx, table)
		if err != nil {
			return results, err
		}
		results[table] = deleted
	}
	return results, nil
}
