package testing

import (
	"sync"
	"testing"
	"time"

	"github.com/aristath/investlog/internal/database"
)

// SeedTransaction inserts an instrument (if missing) and one transaction
// straight into a ledger test database.
func SeedTransaction(t *testing.T, ledger *database.DB, symbol, date string, price, shares float64) int64 {
	t.Helper()

	now := time.Now().Unix()
	if _, err := ledger.Conn().Exec(
		`INSERT OR IGNORE INTO instruments (symbol, name, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		symbol, symbol, now, now,
	); err != nil {
		t.Fatalf("Failed to seed instrument %s: %v", symbol, err)
	}

	res, err := ledger.Conn().Exec(
		`INSERT INTO transactions (symbol, date, price, shares, created_at) VALUES (?, ?, ?, ?, ?)`,
		symbol, date, price, shares, now,
	)
	if err != nil {
		t.Fatalf("Failed to seed transaction %s %s: %v", symbol, date, err)
	}
	id, _ := res.LastInsertId()
	return id
}

// SeedSnapshot inserts a price snapshot into a history test database.
func SeedSnapshot(t *testing.T, history *database.DB, symbol, date string, price float64) {
	t.Helper()

	if _, err := history.Conn().Exec(
		`INSERT OR REPLACE INTO price_snapshots (symbol, date, price, updated_at) VALUES (?, ?, ?, ?)`,
		symbol, date, price, time.Now().Unix(),
	); err != nil {
		t.Fatalf("Failed to seed snapshot %s %s: %v", symbol, date, err)
	}
}

// FakeClock is a settable clock for code that takes a func() time.Time.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFakeClock returns a clock frozen at now.
func NewFakeClock(now time.Time) *FakeClock {
	return &FakeClock{now: now}
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to t.
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Advance moves the clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// RecordingSleeper records requested sleeps instead of blocking.
type RecordingSleeper struct {
	mu     sync.Mutex
	Sleeps []time.Duration
}

// Sleep records d and returns immediately.
func (s *RecordingSleeper) Sleep(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Sleeps = append(s.Sleeps, d)
}

// Total returns the sum of all recorded sleeps.
func (s *RecordingSleeper) Total() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total time.Duration
	for _, d := range s.Sleeps {
		total += d
	}
	return total
}
