package snapshots

import (
	"context"
	"testing"

	"github.com/aristath/investlog/internal/domain"
	testingpkg "github.com/aristath/investlog/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *Repository {
	db, cleanup := testingpkg.NewTestDB(t, "history")
	t.Cleanup(cleanup)
	return NewRepository(db.Conn(), zerolog.Nop())
}

func TestSet_UpsertKeepsSingleRow(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	require.NoError(t, repo.Set(ctx, "AAPL", "2025-12-03", 150))
	require.NoError(t, repo.Set(ctx, "aapl", "2025-12-03", 155))

	price, ok, err := repo.Get(ctx, "AAPL", "2025-12-03")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 155.0, price)

	snaps, err := repo.GetRange(ctx, "AAPL", "2025-01-01", "2025-12-31")
	require.NoError(t, err)
	assert.Len(t, snaps, 1)
}

func TestSet_Validation(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	assert.ErrorIs(t, repo.Set(ctx, "", "2025-12-03", 1), domain.ErrInvalidInput)
	assert.ErrorIs(t, repo.Set(ctx, "AAPL", "", 1), domain.ErrInvalidInput)
	assert.ErrorIs(t, repo.Set(ctx, "AAPL", "2025-12-03", 0), domain.ErrInvalidInput)
	assert.ErrorIs(t, repo.Set(ctx, "AAPL", "2025-12-03", -1), domain.ErrInvalidInput)
}

func TestGet_Missing(t *testing.T) {
	repo := newTestRepo(t)

	_, ok, err := repo.Get(context.Background(), "AAPL", "2025-12-03")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSetBatch(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	require.NoError(t, repo.SetBatch(ctx, "2025-12-04", map[string]float64{"AAPL": 160, "MSFT": 410}))

	prices, err := repo.GetByDate(ctx, "2025-12-04")
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"AAPL": 160, "MSFT": 410}, prices)

	// A single invalid entry rejects the whole batch
	err = repo.SetBatch(ctx, "2025-12-05", map[string]float64{"AAPL": 161, "MSFT": 0})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	has, err := repo.HasSnapshot(ctx, "2025-12-05")
	require.NoError(t, err)
	assert.False(t, has)

	assert.NoError(t, repo.SetBatch(ctx, "2025-12-05", nil))
}

func TestGetByDate_NoFallback(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	require.NoError(t, repo.Set(ctx, "AAPL", "2025-12-03", 150))

	prices, err := repo.GetByDate(ctx, "2025-12-04")
	require.NoError(t, err)
	assert.Empty(t, prices)
}

func TestGetRange_Ascending(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	require.NoError(t, repo.Set(ctx, "AAPL", "2025-12-05", 152))
	require.NoError(t, repo.Set(ctx, "AAPL", "2025-12-03", 150))
	require.NoError(t, repo.Set(ctx, "AAPL", "2025-12-04", 151))
	require.NoError(t, repo.Set(ctx, "AAPL", "2025-12-10", 160))
	require.NoError(t, repo.Set(ctx, "MSFT", "2025-12-04", 400))

	snaps, err := repo.GetRange(ctx, "AAPL", "2025-12-03", "2025-12-05")
	require.NoError(t, err)
	require.Len(t, snaps, 3)
	assert.Equal(t, "2025-12-03", snaps[0].Date)
	assert.Equal(t, "2025-12-04", snaps[1].Date)
	assert.Equal(t, "2025-12-05", snaps[2].Date)
	assert.Equal(t, 151.0, snaps[1].Price)
}

func TestLatest(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	latest, err := repo.Latest(ctx, "AAPL")
	require.NoError(t, err)
	assert.Nil(t, latest)

	require.NoError(t, repo.Set(ctx, "AAPL", "2025-12-03", 150))
	require.NoError(t, repo.Set(ctx, "AAPL", "2025-12-08", 158))

	latest, err = repo.Latest(ctx, "AAPL")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "2025-12-08", latest.Date)
	assert.Equal(t, 158.0, latest.Price)
}

func TestHasSnapshotAndDeleteAll(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	require.NoError(t, repo.Set(ctx, "AAPL", "2025-12-03", 150))
	require.NoError(t, repo.Set(ctx, "MSFT", "2025-12-03", 400))

	has, err := repo.HasSnapshot(ctx, "2025-12-03")
	require.NoError(t, err)
	assert.True(t, has)

	n, err := repo.DeleteAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	has, err = repo.HasSnapshot(ctx, "2025-12-03")
	require.NoError(t, err)
	assert.False(t, has)
}
