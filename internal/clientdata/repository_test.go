package clientdata

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `
CREATE TABLE exchangerate (pair TEXT PRIMARY KEY, data TEXT NOT NULL, expires_at INTEGER NOT NULL);
`

type testRate struct {
	Rate float64 `json:"rate"`
}

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// One connection, otherwise every pooled connection gets its own :memory: database
	db.SetMaxOpenConns(1)

	_, err = db.Exec(testSchema)
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })
	return db
}

func TestStoreAndGetIfFresh(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 12, 3, 10, 0, 0, 0, time.UTC)
	repo := NewRepository(setupTestDB(t)).WithClock(func() time.Time { return now })

	require.NoError(t, repo.Store(ctx, TableExchangeRate, "USD:CNY", testRate{Rate: 7.1}, time.Hour))

	raw, err := repo.GetIfFresh(ctx, TableExchangeRate, "USD:CNY")
	require.NoError(t, err)
	require.NotNil(t, raw)

	var got testRate
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, 7.1, got.Rate)
}

func TestGetIfFresh_Expired(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 12, 3, 10, 0, 0, 0, time.UTC)
	repo := NewRepository(setupTestDB(t)).WithClock(func() time.Time { return now })

	require.NoError(t, repo.Store(ctx, TableExchangeRate, "USD:CNY", testRate{Rate: 7.1}, time.Hour))

	now = now.Add(2 * time.Hour)

	raw, err := repo.GetIfFresh(ctx, TableExchangeRate, "USD:CNY")
	require.NoError(t, err)
	assert.Nil(t, raw)

	// Stale data is still available as a fallback
	raw, err = repo.Get(ctx, TableExchangeRate, "USD:CNY")
	require.NoError(t, err)
	assert.NotNil(t, raw)
}

func TestGet_Missing(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	raw, err := repo.Get(context.Background(), TableExchangeRate, "EUR:CNY")
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestInvalidTable(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(setupTestDB(t))

	assert.Error(t, repo.Store(ctx, "users; DROP TABLE exchangerate", "k", 1, time.Hour))
	_, err := repo.Get(ctx, "nope", "k")
	assert.Error(t, err)
	_, err = repo.GetIfFresh(ctx, "nope", "k")
	assert.Error(t, err)
	assert.Error(t, repo.Delete(ctx, "nope", "k"))
	_, err = repo.DeleteExpired(ctx, "nope")
	assert.Error(t, err)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(setupTestDB(t))

	require.NoError(t, repo.Store(ctx, TableExchangeRate, "USD:CNY", testRate{Rate: 7.1}, time.Hour))
	require.NoError(t, repo.Delete(ctx, TableExchangeRate, "USD:CNY"))

	raw, err := repo.Get(ctx, TableExchangeRate, "USD:CNY")
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestCleanupJob(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 12, 3, 10, 0, 0, 0, time.UTC)
	repo := NewRepository(setupTestDB(t)).WithClock(func() time.Time { return now })

	require.NoError(t, repo.Store(ctx, TableExchangeRate, "USD:CNY", testRate{Rate: 7.1}, time.Hour))
	require.NoError(t, repo.Store(ctx, TableExchangeRate, "USD:EUR", testRate{Rate: 0.9}, 48*time.Hour))

	now = now.Add(3 * time.Hour)

	job := NewCleanupJob(repo, zerolog.Nop())
	assert.Equal(t, "client_data_cleanup", job.Name())
	require.NoError(t, job.Run())

	raw, err := repo.Get(ctx, TableExchangeRate, "USD:CNY")
	require.NoError(t, err)
	assert.Nil(t, raw)

	raw, err = repo.Get(ctx, TableExchangeRate, "USD:EUR")
	require.NoError(t, err)
	assert.NotNil(t, raw)
}
