package rewards

import "time"

// dateOf truncates a timestamp to midnight in the given location.
func dateOf(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// daysBetween returns the number of calendar days from a to b in loc.
func daysBetween(a, b time.Time, loc *time.Location) int {
	da := dateOf(a, loc)
	db := dateOf(b, loc)
	return int(db.Sub(da).Hours() / 24)
}

// WeekStartOf returns the Monday midnight that starts t's week in loc.
func WeekStartOf(t time.Time, loc *time.Location) time.Time {
	d := dateOf(t, loc)
	offset := (int(d.Weekday()) + 6) % 7 // Monday = 0
	return d.AddDate(0, 0, -offset)
}

// dailyResult is the outcome of one daily streak evaluation.
type dailyResult struct {
	Streak         int
	Changed        bool // false when today was already counted
	FreezeConsumed bool // freeze flag should be cleared
}

// nextDailyStreak computes the daily streak transition for activity at
// `now`. The transition fires at most once per calendar day; a repeat call
// on the same day returns the unchanged streak.
//
// A gap of exactly one missed day is absorbed when a freeze is active.
// Any longer gap resets the streak to 1.
func nextDailyStreak(last *time.Time, current int, freezeActive bool, now time.Time, loc *time.Location) dailyResult {
	if current < 0 {
		current = 0
	}
	if last == nil {
		return dailyResult{Streak: 1, Changed: true}
	}

	switch diff := daysBetween(*last, now, loc); {
	case diff <= 0:
		return dailyResult{Streak: current, Changed: false}
	case diff == 1:
		s := current + 1
		return dailyResult{Streak: s, Changed: true, FreezeConsumed: freezeActive && s > 1}
	case diff == 2 && freezeActive:
		s := current + 1
		if s < 1 {
			s = 1
		}
		return dailyResult{Streak: s, Changed: true, FreezeConsumed: s > 1}
	default:
		return dailyResult{Streak: 1, Changed: true}
	}
}
