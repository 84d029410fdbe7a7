package profit

import (
	"context"
	"testing"

	"github.com/aristath/investlog/internal/domain"
	testingpkg "github.com/aristath/investlog/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedHistory(t *testing.T, f *fixture) {
	t.Helper()
	ctx := context.Background()

	testingpkg.SeedTransaction(t, f.dbs.Ledger, "AAPL", "2025-12-03", 150, 10)
	testingpkg.SeedTransaction(t, f.dbs.Ledger, "MSFT", "2025-12-05", 400, 2)

	require.NoError(t, f.snapshots.SetBatch(ctx, "2025-12-03", map[string]float64{"AAPL": 150}))
	require.NoError(t, f.snapshots.SetBatch(ctx, "2025-12-04", map[string]float64{"AAPL": 160}))
	require.NoError(t, f.snapshots.SetBatch(ctx, "2025-12-05", map[string]float64{"AAPL": 155, "MSFT": 410}))
	require.NoError(t, f.snapshots.SetBatch(ctx, "2025-12-06", map[string]float64{"AAPL": 155, "MSFT": 410}))
}

func newRecalculator(f *fixture, today string) *Recalculator {
	return NewRecalculator(f.calc, "2025-12-03", func() string { return today }, zerolog.Nop())
}

func TestRecalculateAll(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, true)
	seedHistory(t, f)

	// Stale record outside the range must be wiped.
	require.NoError(t, f.repo.Upsert(ctx, domain.DailyProfit{Date: "2025-11-01", TotalValue: 5}))

	r := newRecalculator(f, "2025-12-06")
	report, err := r.RecalculateAll(ctx, r.DefaultRange())
	require.NoError(t, err)

	assert.Equal(t, 4, report.Days)
	assert.Equal(t, "2025-12-06", report.LastDate)
	assert.Equal(t, int64(1), report.Deleted)
	assert.Equal(t, 0, report.Incomplete)

	records, err := f.repo.GetRange(ctx, "2025-01-01", "2025-12-31")
	require.NoError(t, err)
	require.Len(t, records, 4)

	want := []struct {
		date       string
		profit     float64
		totalValue float64
	}{
		{"2025-12-03", 0, 1500},
		{"2025-12-04", 100, 1600},
		{"2025-12-05", -30, 2370},
		{"2025-12-06", 0, 2370},
	}
	for i, w := range want {
		assert.Equal(t, w.date, records[i].Date)
		assert.Equal(t, w.profit, records[i].Profit, w.date)
		assert.Equal(t, w.totalValue, records[i].TotalValue, w.date)
	}
	assert.Equal(t, -1.88, records[2].ProfitRate)
	assert.True(t, records[3].IsMarketClosed)
}

func TestRecalculateFrom_MatchesFullRun(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, true)
	seedHistory(t, f)
	r := newRecalculator(f, "2025-12-06")

	_, err := r.RecalculateAll(ctx, r.DefaultRange())
	require.NoError(t, err)
	full, err := f.repo.GetRange(ctx, "2025-12-03", "2025-12-06")
	require.NoError(t, err)

	// A partial run followed by a resume rebuilds the same chain.
	partial, err := r.RecalculateAll(ctx, DateRange{Start: "2025-12-03", End: "2025-12-04"})
	require.NoError(t, err)
	partial.Range.End = "2025-12-06"

	resumed, err := r.Resume(ctx, partial)
	require.NoError(t, err)
	assert.Equal(t, 2, resumed.Days)
	assert.Equal(t, "2025-12-06", resumed.LastDate)

	rebuilt, err := f.repo.GetRange(ctx, "2025-12-03", "2025-12-06")
	require.NoError(t, err)
	require.Len(t, rebuilt, len(full))
	for i := range full {
		assert.Equal(t, full[i].Profit, rebuilt[i].Profit)
		assert.Equal(t, full[i].ProfitRate, rebuilt[i].ProfitRate)
		assert.Equal(t, full[i].TotalValue, rebuilt[i].TotalValue)
	}
}

func TestRecalculateFrom_KeepsEarlierRecords(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, true)
	seedHistory(t, f)
	r := newRecalculator(f, "2025-12-06")

	require.NoError(t, f.repo.Upsert(ctx, domain.DailyProfit{Date: "2025-12-03", Profit: 7, TotalValue: 1500}))
	require.NoError(t, f.repo.Upsert(ctx, domain.DailyProfit{Date: "2025-12-05", Profit: 999, TotalValue: 1}))

	report, err := r.RecalculateFrom(ctx, "2025-12-04", "2025-12-04")
	require.NoError(t, err)
	assert.Equal(t, int64(0), report.Deleted)
	assert.Equal(t, 1, report.Days)

	kept, err := f.repo.Get(ctx, "2025-12-03")
	require.NoError(t, err)
	assert.Equal(t, 7.0, kept.Profit)

	later, err := f.repo.Get(ctx, "2025-12-05")
	require.NoError(t, err)
	require.NotNil(t, later)
	assert.Equal(t, 999.0, later.Profit)
}

func TestRecalculateFrom_KeepsRecordsAfterEnd(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, true)
	seedHistory(t, f)
	r := newRecalculator(f, "2025-12-06")

	_, err := r.RecalculateAll(ctx, r.DefaultRange())
	require.NoError(t, err)

	report, err := r.RecalculateFrom(ctx, "2025-12-04", "2025-12-04")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Days)
	assert.Equal(t, int64(1), report.Deleted)

	records, err := f.repo.GetRange(ctx, "2025-12-01", "2025-12-31")
	require.NoError(t, err)
	dates := make([]string, len(records))
	for i, rec := range records {
		dates[i] = rec.Date
	}
	assert.Equal(t, []string{"2025-12-03", "2025-12-04", "2025-12-05", "2025-12-06"}, dates)
}

func TestResume_CompletedRunIsNoop(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, true)
	seedHistory(t, f)
	r := newRecalculator(f, "2025-12-06")

	full, err := r.RecalculateAll(ctx, r.DefaultRange())
	require.NoError(t, err)

	report, err := r.Resume(ctx, full)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Days)
	assert.Equal(t, int64(0), report.Deleted)
	assert.Equal(t, "2025-12-06", report.LastDate)

	records, err := f.repo.GetRange(ctx, "2025-12-01", "2025-12-31")
	require.NoError(t, err)
	assert.Len(t, records, 4)
}

func TestRecalculate_Cancelled(t *testing.T) {
	f := newFixture(t, nil, true)
	seedHistory(t, f)
	r := newRecalculator(f, "2025-12-06")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.RecalculateAll(ctx, r.DefaultRange())
	require.ErrorIs(t, err, context.Canceled)
}

func TestRecalculate_InvalidInput(t *testing.T) {
	f := newFixture(t, nil, true)
	r := newRecalculator(f, "2025-12-06")

	_, err := r.RecalculateAll(context.Background(), DateRange{Start: "bad", End: "2025-12-06"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = r.Resume(context.Background(), &Report{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
