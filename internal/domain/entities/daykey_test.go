package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDayKey(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// 2025-03-01 23:30 in New York is already 2025-03-02 in UTC.
	late := time.Date(2025, 3, 1, 23, 30, 0, 0, loc)
	assert.Equal(t, DayKey("2025-03-01"), NewDayKey(late))
	assert.Equal(t, DayKey("2025-03-02"), NewDayKey(late.UTC()))
}

func TestParseDayKey(t *testing.T) {
	key, err := ParseDayKey("2025-12-31")
	require.NoError(t, err)
	assert.Equal(t, DayKey("2025-12-31"), key)

	_, err = ParseDayKey("12/31/2025")
	assert.Error(t, err)

	_, err = ParseDayKey("")
	assert.Error(t, err)
}

func TestDayKeyPrev(t *testing.T) {
	tests := []struct {
		name string
		key  DayKey
		want DayKey
	}{
		{"mid month", "2025-06-15", "2025-06-14"},
		{"month boundary", "2025-03-01", "2025-02-28"},
		{"leap year", "2024-03-01", "2024-02-29"},
		{"year boundary", "2025-01-01", "2024-12-31"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.key.Prev())
		})
	}
}

func TestDayKeyIsZero(t *testing.T) {
	assert.True(t, DayKey("").IsZero())
	assert.False(t, DayKey("2025-01-01").IsZero())
}
