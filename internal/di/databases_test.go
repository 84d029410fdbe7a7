package di

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aristath/investlog/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeDatabases(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := &config.Config{DataDir: tmpDir}

	container, err := InitializeDatabases(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { container.Close() })

	assert.NotNil(t, container.LedgerDB)
	assert.NotNil(t, container.HistoryDB)
	assert.NotNil(t, container.CacheDB)
	assert.Len(t, container.Databases(), 3)

	assert.FileExists(t, filepath.Join(tmpDir, "ledger.db"))
	assert.FileExists(t, filepath.Join(tmpDir, "history.db"))
	assert.FileExists(t, filepath.Join(tmpDir, "cache.db"))
}

func TestInitializeDatabases_SchemaMigration(t *testing.T) {
	cfg := &config.Config{DataDir: t.TempDir()}

	container, err := InitializeDatabases(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { container.Close() })

	_, err = container.LedgerDB.Exec("SELECT COUNT(*) FROM transactions")
	assert.NoError(t, err)
	_, err = container.HistoryDB.Exec("SELECT COUNT(*) FROM daily_profits")
	assert.NoError(t, err)
	_, err = container.HistoryDB.Exec("SELECT COUNT(*) FROM price_snapshots")
	assert.NoError(t, err)
	_, err = container.CacheDB.Exec("SELECT COUNT(*) FROM price_cache")
	assert.NoError(t, err)
}

func TestInitializeDatabases_InvalidPath(t *testing.T) {
	// A regular file where the data directory should be
	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	container, err := InitializeDatabases(&config.Config{DataDir: file}, zerolog.Nop())
	assert.Error(t, err)
	assert.Nil(t, container)
}
