package entities

import (
	"fmt"
	"time"
)

// dayKeyLayout is the single canonical calendar-day format. One
// timezone-stable representation serves the last-opened marker, the
// daily-stat keys and the archive labels.
const dayKeyLayout = "2006-01-02"

// DayKey identifies one calendar day as YYYY-MM-DD in a fixed location.
// It is used for the last-opened marker, the daily-stat keys and the
// archive-entry labels.
type DayKey string

// NewDayKey returns the day key for the calendar day containing t
func NewDayKey(t time.Time) DayKey {
	return DayKey(t.Format(dayKeyLayout))
}

// ParseDayKey validates a stored day-key string
func ParseDayKey(s string) (DayKey, error) {
	if _, err := time.Parse(dayKeyLayout, s); err != nil {
		return "", fmt.Errorf("invalid day key %q: %w", s, err)
	}
	return DayKey(s), nil
}

// IsZero reports whether the key is absent
func (k DayKey) IsZero() bool {
	return k == ""
}

// Time returns midnight of the key's day in the given location
func (k DayKey) Time(loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(dayKeyLayout, string(k), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day key %q: %w", k, err)
	}
	return t, nil
}

// Prev returns the key of the preceding calendar day
func (k DayKey) Prev() DayKey {
	t, err := k.Time(time.UTC)
	if err != nil {
		return ""
	}
	return NewDayKey(t.AddDate(0, 0, -1))
}

func (k DayKey) String() string {
	return string(k)
}
