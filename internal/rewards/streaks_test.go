package rewards

import (
	"testing"
	"time"
)

var streakLoc = time.UTC

func day(d int) time.Time {
	return time.Date(2026, 3, d, 18, 30, 0, 0, streakLoc)
}

func TestNextDailyStreak(t *testing.T) {
	last := day(10)

	tests := []struct {
		name       string
		last       *time.Time
		current    int
		freeze     bool
		now        time.Time
		wantStreak int
		wantChange bool
		wantThaw   bool
	}{
		{"first ever activity", nil, 0, false, day(10), 1, true, false},
		{"same day repeat is a no-op", &last, 4, false, day(10), 4, false, false},
		{"next day increments", &last, 4, false, day(11), 5, true, false},
		{"two day gap resets", &last, 4, false, day(12), 1, true, false},
		{"two day gap absorbed by freeze", &last, 5, true, day(12), 6, true, true},
		{"three day gap resets despite freeze", &last, 5, true, day(13), 1, true, false},
		{"freeze cleared on plain next day too", &last, 5, true, day(11), 6, true, true},
		{"zero current still yields 1 minimum", &last, 0, false, day(11), 1, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := nextDailyStreak(tt.last, tt.current, tt.freeze, tt.now, streakLoc)
			if res.Streak != tt.wantStreak {
				t.Errorf("streak = %d, want %d", res.Streak, tt.wantStreak)
			}
			if res.Changed != tt.wantChange {
				t.Errorf("changed = %v, want %v", res.Changed, tt.wantChange)
			}
			if res.FreezeConsumed != tt.wantThaw {
				t.Errorf("freeze consumed = %v, want %v", res.FreezeConsumed, tt.wantThaw)
			}
		})
	}
}

func TestDaysBetweenCrossesMidnight(t *testing.T) {
	a := time.Date(2026, 3, 10, 23, 59, 0, 0, streakLoc)
	b := time.Date(2026, 3, 11, 0, 1, 0, 0, streakLoc)
	if got := daysBetween(a, b, streakLoc); got != 1 {
		t.Errorf("daysBetween = %d, want 1", got)
	}
}

func TestWeekStartOf(t *testing.T) {
	// 2026-03-11 is a Wednesday; its week starts Monday 2026-03-09.
	ws := WeekStartOf(time.Date(2026, 3, 11, 15, 0, 0, 0, streakLoc), streakLoc)
	want := time.Date(2026, 3, 9, 0, 0, 0, 0, streakLoc)
	if !ws.Equal(want) {
		t.Errorf("WeekStartOf = %v, want %v", ws, want)
	}

	// Sunday belongs to the week that started the previous Monday.
	ws = WeekStartOf(time.Date(2026, 3, 15, 8, 0, 0, 0, streakLoc), streakLoc)
	if !ws.Equal(want) {
		t.Errorf("WeekStartOf(sunday) = %v, want %v", ws, want)
	}
}
