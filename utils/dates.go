// utils/dates.go
package utils

import "time"

func BeginningOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

func DaysBetween(start, end time.Time) int {
	start = BeginningOfDay(start)
	end = BeginningOfDay(end)
	return int(end.Sub(start).Hours() / 24)
}

// DayWindow returns the [start, end) bounds of the local calendar day that
// contains t, shifted by offsetDays. Used by the reminder sweep to select
// "appointments starting tomorrow".
func DayWindow(t time.Time, offsetDays int) (time.Time, time.Time) {
	start := BeginningOfDay(t).AddDate(0, 0, offsetDays)
	return start, start.AddDate(0, 0, 1)
}
