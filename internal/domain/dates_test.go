package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-12-03")
	require.NoError(t, err)
	assert.Equal(t, 2025, d.Year())

	for _, bad := range []string{"", "2025-13-01", "2025/12/03", "03-12-2025", "2025-02-30"} {
		_, err := ParseDate(bad)
		assert.True(t, errors.Is(err, ErrInvalidInput), "expected invalid input for %q", bad)
	}
}

func TestAddDays(t *testing.T) {
	tests := []struct {
		date     string
		n        int
		expected string
	}{
		{"2025-12-03", -1, "2025-12-02"},
		{"2025-12-31", 1, "2026-01-01"},
		{"2024-03-01", -1, "2024-02-29"},
		{"2025-03-01", -1, "2025-02-28"},
	}

	for _, tt := range tests {
		got, err := AddDays(tt.date, tt.n)
		require.NoError(t, err)
		assert.Equal(t, tt.expected, got)
	}

	_, err := AddDays("nope", 1)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestIsWeekend(t *testing.T) {
	assert.True(t, IsWeekend("2025-12-06"))  // Saturday
	assert.True(t, IsWeekend("2025-12-07"))  // Sunday
	assert.False(t, IsWeekend("2025-12-08")) // Monday
	assert.False(t, IsWeekend("garbage"))
}

func TestMonthBounds(t *testing.T) {
	first, last, err := MonthBounds("2024-02")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-01", first)
	assert.Equal(t, "2024-02-29", last)

	_, _, err = MonthBounds("2024-2")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestYearBounds(t *testing.T) {
	first, last, err := YearBounds("2025")
	require.NoError(t, err)
	assert.Equal(t, "2025-01-01", first)
	assert.Equal(t, "2025-12-31", last)

	_, _, err = YearBounds("25")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
