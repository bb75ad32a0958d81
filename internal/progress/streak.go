package progress

import "time"

// calendarDay truncates a time to its UTC calendar date.
func calendarDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of whole calendar days (UTC) between a and b.
func DaysBetween(a, b time.Time) int {
	return int(calendarDay(b).Sub(calendarDay(a)) / (24 * time.Hour))
}

// NextStreak returns the streak after a qualifying lesson at time now, given
// the previous streak and the time of the last qualifying lesson.
//
// A repeat on the same calendar day leaves the streak unchanged; exactly one
// day later increments it; a gap of two or more days resets it to 1.
func NextStreak(current int, lastLesson, now time.Time) int {
	if lastLesson.IsZero() {
		return 1
	}
	switch days := DaysBetween(lastLesson, now); {
	case days <= 0:
		if current < 1 {
			return 1
		}
		return current
	case days == 1:
		return current + 1
	default:
		return 1
	}
}
