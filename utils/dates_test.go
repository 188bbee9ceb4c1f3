package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBeginningOfDayKeepsLocation(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*3600)
	ts := time.Date(2024, 2, 4, 17, 45, 12, 0, loc)

	start := BeginningOfDay(ts)
	assert.Equal(t, time.Date(2024, 2, 4, 0, 0, 0, 0, loc), start)
	assert.Equal(t, loc, start.Location())
}

func TestDaysBetweenIgnoresTimeOfDay(t *testing.T) {
	a := time.Date(2024, 2, 4, 23, 59, 0, 0, time.UTC)
	b := time.Date(2024, 2, 5, 0, 1, 0, 0, time.UTC)
	assert.Equal(t, 1, DaysBetween(a, b))
	assert.Equal(t, 0, DaysBetween(a, a))
	assert.Equal(t, -1, DaysBetween(b, a))
}

func TestDayWindowTomorrow(t *testing.T) {
	now := time.Date(2024, 2, 4, 8, 30, 0, 0, time.UTC)
	start, end := DayWindow(now, 1)
	assert.Equal(t, time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, 2, 6, 0, 0, 0, 0, time.UTC), end)

	// Offset zero covers the current day.
	start, end = DayWindow(now, 0)
	assert.Equal(t, time.Date(2024, 2, 4, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC), end)
}

func TestDayWindowAcrossMonthEnd(t *testing.T) {
	now := time.Date(2024, 2, 29, 12, 0, 0, 0, time.UTC)
	start, end := DayWindow(now, 1)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), end)
}
