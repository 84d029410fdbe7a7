// Package database opens the SQLite files investlog keeps its data in and
// applies their embedded schemas.
package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

//go:embed schemas/*.sql
var schemas embed.FS

// Database names, also used to pick the schema file
const (
	NameLedger  = "ledger"
	NameHistory = "history"
	NameCache   = "cache"
)

var schemaFiles = map[string]string{
	NameLedger:  "ledger_schema.sql",
	NameHistory: "history_schema.sql",
	NameCache:   "cache_schema.sql",
}

// DatabaseProfile selects durability and speed trade-offs for one file
type DatabaseProfile string

const (
	// ProfileLedger fsyncs every commit and never shrinks the file.
	ProfileLedger DatabaseProfile = "ledger"
	// ProfileCache skips fsync; the contents can be rebuilt.
	ProfileCache DatabaseProfile = "cache"
	// ProfileStandard fsyncs at checkpoints.
	ProfileStandard DatabaseProfile = "standard"
)

// Per-profile PRAGMAs, applied after journal_mode(WAL).
var profilePragmas = map[DatabaseProfile][]string{
	ProfileLedger:   {"synchronous(FULL)", "auto_vacuum(NONE)"},
	ProfileCache:    {"synchronous(OFF)", "auto_vacuum(FULL)", "temp_store(MEMORY)"},
	ProfileStandard: {"synchronous(NORMAL)", "auto_vacuum(INCREMENTAL)", "temp_store(MEMORY)"},
}

var commonPragmas = []string{
	"foreign_keys(1)",
	"wal_autocheckpoint(1000)",
	"cache_size(-64000)", // 64MB
}

// DB is one opened SQLite file
type DB struct {
	conn *sql.DB
	path string
	name string
}

// Config holds database configuration
type Config struct {
	Path    string
	Profile DatabaseProfile
	Name    string // Used in logs and to select the schema
}

// New opens the database at cfg.Path and verifies the connection
func New(cfg Config) (*DB, error) {
	// file: URIs (shared in-memory databases in tests) are used as-is
	if !strings.HasPrefix(cfg.Path, "file:") {
		absPath, err := filepath.Abs(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve database path to absolute: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		cfg.Path = absPath
	}

	if cfg.Profile == "" {
		cfg.Profile = ProfileStandard
	}

	conn, err := sql.Open("sqlite", connectionString(cfg.Path, cfg.Profile))
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", cfg.Name, err)
	}
	configurePool(conn, cfg.Profile)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database %s: %w", cfg.Name, err)
	}

	return &DB{conn: conn, path: cfg.Path, name: cfg.Name}, nil
}

func connectionString(path string, profile DatabaseProfile) string {
	pragmas := append([]string{"journal_mode(WAL)"}, profilePragmas[profile]...)
	pragmas = append(pragmas, commonPragmas...)

	var b strings.Builder
	b.WriteString(path)
	for i, p := range pragmas {
		if i == 0 {
			b.WriteString("?")
		} else {
			b.WriteString("&")
		}
		b.WriteString("_pragma=")
		b.WriteString(p)
	}
	return b.String()
}

func configurePool(conn *sql.DB, profile DatabaseProfile) {
	maxOpen, maxIdle := 25, 5
	if profile == ProfileCache {
		maxOpen, maxIdle = 10, 2
	}
	conn.SetMaxOpenConns(maxOpen)
	conn.SetMaxIdleConns(maxIdle)
	conn.SetConnMaxLifetime(24 * time.Hour)
	conn.SetConnMaxIdleTime(30 * time.Minute)
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the pool repositories query through
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Name returns the database name
func (db *DB) Name() string {
	return db.name
}

// Migrate applies the embedded schema that belongs to this database.
// Schemas are written with IF NOT EXISTS so re-running is a no-op.
func (db *DB) Migrate() error {
	schemaFile, ok := schemaFiles[db.name]
	if !ok {
		return nil
	}

	content, err := schemas.ReadFile("schemas/" + schemaFile)
	if err != nil {
		return fmt.Errorf("failed to read schema %s: %w", schemaFile, err)
	}

	return WithTransaction(context.Background(), db.conn, func(tx *sql.Tx) error {
		if _, err := tx.Exec(string(content)); err != nil {
			return fmt.Errorf("failed to execute schema %s for %s: %w", schemaFile, db.name, err)
		}
		return nil
	})
}

// WithTransaction runs fn inside a transaction bound to ctx. The
// transaction commits when fn returns nil and rolls back when fn returns
// an error or panics; a panic is returned as an error.
func WithTransaction(ctx context.Context, conn *sql.DB, fn func(*sql.Tx) error) (err error) {
	if conn == nil {
		return fmt.Errorf("database connection is nil")
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			err = fmt.Errorf("panic in transaction: %v", p)
			return
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = fmt.Errorf("transaction failed: %w (rollback also failed: %v)", err, rbErr)
			} else {
				err = fmt.Errorf("transaction failed: %w", err)
			}
			return
		}
		if commitErr := tx.Commit(); commitErr != nil {
			err = fmt.Errorf("failed to commit transaction: %w", commitErr)
		}
	}()

	return fn(tx)
}

// HealthCheck pings the database and runs PRAGMA integrity_check
func (db *DB) HealthCheck(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("ping failed for %s: %w", db.name, err)
	}

	var result string
	if err := db.conn.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check query failed for %s: %w", db.name, err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed for %s: %s", db.name, result)
	}
	return nil
}

// QuickCheck only pings
func (db *DB) QuickCheck(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// WALCheckpoint runs PRAGMA wal_checkpoint in the given mode (PASSIVE,
// FULL, RESTART or TRUNCATE; empty means TRUNCATE).
func (db *DB) WALCheckpoint(mode string) error {
	if mode == "" {
		mode = "TRUNCATE"
	}
	if _, err := db.conn.Exec(fmt.Sprintf("PRAGMA wal_checkpoint(%s)", mode)); err != nil {
		return fmt.Errorf("WAL checkpoint failed for %s: %w", db.name, err)
	}
	return nil
}

// VacuumInto writes a compacted, consistent copy of the database to path.
// It is safe to run while other connections keep writing.
func (db *DB) VacuumInto(ctx context.Context, path string) error {
	if _, err := db.conn.ExecContext(ctx, "VACUUM INTO ?", path); err != nil {
		return fmt.Errorf("vacuum into failed for %s: %w", db.name, err)
	}
	return nil
}

// Stats describes the on-disk footprint of a database
type Stats struct {
	SizeBytes     int64
	WALSizeBytes  int64
	PageCount     int64
	PageSize      int64
	FreelistCount int64
}

// GetStats reads file sizes and page counters
func (db *DB) GetStats() (*Stats, error) {
	stats := &Stats{}

	if info, err := os.Stat(db.path); err == nil {
		stats.SizeBytes = info.Size()
	}
	if info, err := os.Stat(db.path + "-wal"); err == nil {
		stats.WALSizeBytes = info.Size()
	}

	pragmas := []struct {
		name string
		dest *int64
	}{
		{"page_count", &stats.PageCount},
		{"page_size", &stats.PageSize},
		{"freelist_count", &stats.FreelistCount},
	}
	for _, p := range pragmas {
		if err := db.conn.QueryRow("PRAGMA " + p.name).Scan(p.dest); err != nil {
			return nil, fmt.Errorf("failed to get %s: %w", p.name, err)
		}
	}

	return stats, nil
}
