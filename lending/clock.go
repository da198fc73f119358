package lending

import (
	"time"
)

// Clock supplies the current time to the Engine. The default implementation
// uses time.Now; tests substitute a fixed clock via WithClock.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock {
	return systemClock{}
}

// DateOf truncates t to its UTC calendar date (midnight UTC).
// The whole package computes due dates and overdue days on UTC calendar dates;
// this is the single time-zone policy of the engine.
func DateOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of whole calendar days from the date of
// `from` to the date of `to`. Negative when `to` is earlier than `from`.
func DaysBetween(from time.Time, to time.Time) int {
	return int(DateOf(to).Sub(DateOf(from)) / (24 * time.Hour))
}
