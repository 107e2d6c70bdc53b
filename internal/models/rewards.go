package models

import (
	"time"

	"github.com/google/uuid"
)

// ExerciseRecord holds the best known performances for one exercise.
// Values only improve over time; the record is updated transactionally when
// a workout is finished and queried (never mutated) for weight suggestions.
type ExerciseRecord struct {
	ExerciseID string `json:"exercise_id"`

	// BestWeightByReps maps an exact rep count to the heaviest weight
	// ever lifted for that count.
	BestWeightByReps map[int]float64 `json:"best_weight_by_reps"`

	BestE1RM           float64 `json:"best_e1rm"`
	BestBodyweightReps int     `json:"best_bodyweight_reps"`
	BestTimedSec       float64 `json:"best_timed_sec"`

	LastWorkingWeightKg float64 `json:"last_working_weight_kg"`
	LastWorkingReps     int     `json:"last_working_reps"`

	FirstRecorded time.Time `json:"first_recorded"`
}

// RewardProgress is the single progression row: cumulative XP and coins,
// the derived level window, and the daily/weekly streak state. Mutated only
// by the rewards engine.
type RewardProgress struct {
	XP           int `json:"xp"`
	Coins        int `json:"coins"`
	Level        int `json:"level"`
	LevelFloor   int `json:"level_floor"`
	LevelCeiling int `json:"level_ceiling"`

	DailyStreak        int        `json:"daily_streak"`
	LongestDailyStreak int        `json:"longest_daily_streak"`
	LastActivityDate   *time.Time `json:"last_activity_date,omitempty"`

	FreezeActive          bool       `json:"freeze_active"`
	LastFreezeActivated   *time.Time `json:"last_freeze_activated,omitempty"`
	LastFreezeReturnBonus *time.Time `json:"last_freeze_return_bonus,omitempty"`

	WeeklyStreak          int        `json:"weekly_streak"`
	SuperWeeklyStreak     int        `json:"super_weekly_streak"`
	WeeklyFreezeActive    bool       `json:"weekly_freeze_active"`
	LastWeeklyFreezeUsed  *time.Time `json:"last_weekly_freeze_used,omitempty"`
	LastCountedWeek       *time.Time `json:"last_counted_week,omitempty"`
	LastSuperCountedWeek  *time.Time `json:"last_super_counted_week,omitempty"`
}

// LedgerEntry is one immutable row in the append-only reward ledger. The
// ledger is both the audit trail and the substrate for per-day and
// per-workout award caps.
type LedgerEntry struct {
	ID        uuid.UUID         `json:"id"`
	Event     string            `json:"event"`
	RuleID    string            `json:"rule_id"`
	XP        int               `json:"xp"`
	Coins     int               `json:"coins"`
	Meta      map[string]string `json:"meta,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// Achievement tracks progress toward one unlockable goal. Created lazily on
// the first relevant event; progress is monotonic and unlock is one-way.
type Achievement struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Progress    int        `json:"progress"`
	Target      int        `json:"target"`
	Tier        string     `json:"tier,omitempty"`
	UnlockedAt  *time.Time `json:"unlocked_at,omitempty"`
}

// Unlocked reports whether the achievement has been unlocked.
func (a *Achievement) Unlocked() bool {
	return a.UnlockedAt != nil
}
