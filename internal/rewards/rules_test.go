package rewards

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const sampleRules = `
version: 3
xp_rules:
  workout_completed:
    xp: 50
    once_per_workout: true
    per_day_max: 100
  pr_achieved:
    xp: 25
    per_exercise_daily_cap: 25
achievements:
  - id: first_workout
    title: First Workout
    trigger: workout_completed
    threshold: 1
    reward_xp: 30
  - id: century
    title: Century Club
    trigger: workout_completed
    threshold: 100
    tier: gold
    reward_xp: 500
    reward_coins: 100
streaks:
  milestones:
    3: 50
    7: 100
    14: 200
    30: 500
    100: 2000
  freeze_return_bonus_xp: 25
  daily_freeze_min_streak: 3
  daily_freeze_cooldown_days: 7
weekly_goals:
  strength_days: 3
  active_minutes: 150
level:
  base_xp: 100
  xp_increment: 50
pr:
  e1rm_threshold_pct: 2.0
  achievement_xp: 15
`

func writeRules(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing rules: %v", err)
	}
	return path
}

func TestLoadRules(t *testing.T) {
	rules := LoadRules(writeRules(t, sampleRules), testLogger())

	if rules.Version != 3 {
		t.Errorf("version = %d, want 3", rules.Version)
	}
	wc, ok := rules.XPRules["workout_completed"]
	if !ok {
		t.Fatal("workout_completed rule missing")
	}
	if wc.XP != 50 || !wc.OncePerWorkout || wc.PerDayMax != 100 {
		t.Errorf("workout_completed = %+v", wc)
	}
	if len(rules.Achievements) != 2 {
		t.Fatalf("achievements = %d, want 2", len(rules.Achievements))
	}
	if rules.Achievements[1].Tier != "gold" || rules.Achievements[1].RewardCoins != 100 {
		t.Errorf("century = %+v", rules.Achievements[1])
	}
	if rules.Streaks.Milestones[30] != 500 {
		t.Errorf("milestone[30] = %d, want 500", rules.Streaks.Milestones[30])
	}
	if rules.PR.E1RMThresholdPct != 2.0 {
		t.Errorf("e1rm threshold = %v", rules.PR.E1RMThresholdPct)
	}
}

func TestLoadRulesMissingFileDegradesToEmpty(t *testing.T) {
	rules := LoadRules(filepath.Join(t.TempDir(), "nope.yaml"), testLogger())
	if len(rules.XPRules) != 0 || len(rules.Achievements) != 0 {
		t.Errorf("expected empty rule set, got %+v", rules)
	}
}

func TestLoadRulesMalformedDegradesToEmpty(t *testing.T) {
	rules := LoadRules(writeRules(t, "xp_rules: [not: a: map"), testLogger())
	if len(rules.XPRules) != 0 {
		t.Errorf("expected empty rule set, got %+v", rules)
	}
}

func TestCurveAndFreezeDefaults(t *testing.T) {
	var empty Rules
	c := empty.curve()
	if c.BaseXP != defaultLevelBaseXP || c.Increment != defaultLevelIncrement {
		t.Errorf("curve defaults = %+v", c)
	}
	s := empty.freezeRules()
	if s.DailyFreezeMinStreak != 3 || s.DailyFreezeCooldownDays != 7 ||
		s.WeeklyFreezeMinStreak != 3 || s.WeeklyFreezeCooldownWeeks != 4 {
		t.Errorf("freeze defaults = %+v", s)
	}
}
