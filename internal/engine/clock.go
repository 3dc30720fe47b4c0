package engine

import "time"

// Clock abstracts time.Now() to allow deterministic testing.
// It is used by the bot and the daily worker to determine "today".
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the standard time package.
type RealClock struct{}

// Now returns the current local time.
func (RealClock) Now() time.Time {
	return time.Now()
}

// Today resolves the current calendar day in loc.
// Birthdays follow the wall calendar of the configured zone, not UTC.
func Today(c Clock, loc *time.Location) MonthDay {
	if loc == nil {
		loc = time.Local
	}
	return MonthDayOf(c.Now().In(loc))
}
