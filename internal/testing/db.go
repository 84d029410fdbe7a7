// Package testing provides database and clock helpers shared by package tests.
package testing

import (
	"fmt"
	"os"
	"testing"

	"github.com/aristath/investlog/internal/database"
	_ "modernc.org/sqlite"
)

// NewTestDB creates a temporary file-backed SQLite database with the embedded
// schema of the named database applied ("ledger", "history", "cache").
// Unknown names produce an empty database.
// Returns the database instance and an idempotent cleanup function.
func NewTestDB(t *testing.T, name string) (*database.DB, func()) {
	t.Helper()

	tmpFile, err := os.CreateTemp("", fmt.Sprintf("test_%s_*.db", name))
	if err != nil {
		t.Fatalf("Failed to create temporary database file: %v", err)
	}
	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()

	db, err := database.New(database.Config{
		Path:    tmpPath,
		Profile: database.ProfileStandard,
		Name:    name,
	})
	if err != nil {
		_ = os.Remove(tmpPath)
		t.Fatalf("Failed to create test database %s: %v", name, err)
	}

	if err := db.Migrate(); err != nil {
		_ = db.Close()
		_ = os.Remove(tmpPath)
		t.Fatalf("Failed to migrate test database %s: %v", name, err)
	}

	closed := false
	return db, func() {
		if closed {
			return
		}
		closed = true
		if err := db.Close(); err != nil {
			t.Logf("Warning: Failed to close test database %s: %v", name, err)
		}
		for _, suffix := range []string{"", "-wal", "-shm"} {
			_ = os.Remove(tmpPath + suffix)
		}
	}
}

// Databases bundles one test database per production database.
type Databases struct {
	Ledger  *database.DB
	History *database.DB
	Cache   *database.DB
}

// NewTestDatabases opens ledger, history and cache test databases and
// registers their cleanup with t.
func NewTestDatabases(t *testing.T) *Databases {
	t.Helper()

	ledger, cleanupLedger := NewTestDB(t, database.NameLedger)
	t.Cleanup(cleanupLedger)
	history, cleanupHistory := NewTestDB(t, database.NameHistory)
	t.Cleanup(cleanupHistory)
	cache, cleanupCache := NewTestDB(t, database.NameCache)
	t.Cleanup(cleanupCache)

	return &Databases{Ledger: ledger, History: history, Cache: cache}
}
