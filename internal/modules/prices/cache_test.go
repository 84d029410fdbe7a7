package prices

import (
	"context"
	"testing"
	"time"

	"github.com/aristath/investlog/internal/domain"
	testingpkg "github.com/aristath/investlog/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var shanghai = mustLoad("Asia/Shanghai")

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

func at(day, hour, minute int) time.Time {
	return time.Date(2025, 12, day, hour, minute, 0, 0, shanghai)
}

type stubSnapshots struct {
	latest map[string]*domain.PriceSnapshot
}

func (s *stubSnapshots) Latest(ctx context.Context, symbol string) (*domain.PriceSnapshot, error) {
	return s.latest[symbol], nil
}

func newTestCache(t *testing.T, clock *testingpkg.FakeClock, snaps SnapshotSource) *Cache {
	db, cleanup := testingpkg.NewTestDB(t, "cache")
	t.Cleanup(cleanup)

	return NewCache(NewRepository(db.Conn()), snaps, CacheConfig{
		Location:    shanghai,
		CutoverHour: 8,
		Now:         clock.Now,
	}, zerolog.Nop())
}

func TestIsStale(t *testing.T) {
	tests := []struct {
		name      string
		updatedAt time.Time
		now       time.Time
		stale     bool
	}{
		{"fetched before cutover, checked after", at(4, 7, 59), at(4, 8, 1), true},
		{"fetched after cutover, checked same evening", at(4, 8, 1), at(4, 23, 0), false},
		{"fetched exactly at cutover", at(4, 8, 0), at(4, 9, 0), false},
		{"checked exactly at cutover", at(4, 7, 59), at(4, 8, 0), true},
		{"yesterday before cutover, checked early morning", at(3, 7, 0), at(4, 7, 0), true},
		{"yesterday after cutover, checked early morning", at(3, 9, 0), at(4, 7, 0), false},
		{"yesterday exactly at cutover, checked early morning", at(3, 8, 0), at(4, 7, 0), false},
		{"yesterday after cutover, checked after today's cutover", at(3, 9, 0), at(4, 8, 30), true},
		{"last week", at(1, 12, 0), at(8, 12, 0), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCache(nil, nil, CacheConfig{
				Location:    shanghai,
				CutoverHour: 8,
				Now:         func() time.Time { return tt.now },
			}, zerolog.Nop())

			assert.Equal(t, tt.stale, c.IsStale(tt.updatedAt))
		})
	}
}

func TestIsStale_UsesConfiguredZone(t *testing.T) {
	// 23:30 UTC on Dec 3 is 07:30 on Dec 4 in Shanghai, before the cutover
	now := time.Date(2025, 12, 3, 23, 30, 0, 0, time.UTC)
	c := NewCache(nil, nil, CacheConfig{Location: shanghai, CutoverHour: 8, Now: func() time.Time { return now }}, zerolog.Nop())

	assert.Equal(t, at(4, 8, 0), c.Cutover())
	assert.False(t, c.IsStale(at(3, 10, 0)))
}

func TestCache_SetAndGet(t *testing.T) {
	ctx := context.Background()
	clock := testingpkg.NewFakeClock(at(4, 9, 0))
	c := newTestCache(t, clock, nil)

	entry, err := c.Set(ctx, " aapl ", 160)
	require.NoError(t, err)
	assert.Equal(t, "AAPL", entry.Symbol)

	got, err := c.Get(ctx, "AAPL")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 160.0, got.Price)
	assert.True(t, got.UpdatedAt.Equal(at(4, 9, 0)))

	fresh, err := c.GetFresh(ctx, "AAPL")
	require.NoError(t, err)
	assert.NotNil(t, fresh)

	// The next morning after the cutover the entry is stale but still readable
	clock.Set(at(5, 8, 30))
	fresh, err = c.GetFresh(ctx, "AAPL")
	require.NoError(t, err)
	assert.Nil(t, fresh)

	got, err = c.Get(ctx, "AAPL")
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestCache_SetValidation(t *testing.T) {
	c := newTestCache(t, testingpkg.NewFakeClock(at(4, 9, 0)), nil)

	_, err := c.Set(context.Background(), "", 1)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = c.Set(context.Background(), "AAPL", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCache_MissFallsBackToLatestSnapshot(t *testing.T) {
	ctx := context.Background()
	snaps := &stubSnapshots{latest: map[string]*domain.PriceSnapshot{
		"AAPL": {Symbol: "AAPL", Date: "2025-12-03", Price: 150, UpdatedAt: at(3, 8, 5)},
	}}
	c := newTestCache(t, testingpkg.NewFakeClock(at(4, 9, 0)), snaps)

	got, err := c.Get(ctx, "AAPL")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 150.0, got.Price)

	got, err = c.Get(ctx, "MSFT")
	require.NoError(t, err)
	assert.Nil(t, got)
}
