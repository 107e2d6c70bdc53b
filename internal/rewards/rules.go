package rewards

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// XPRule configures the award for one event type. All caps are optional;
// a zero cap means "no cap of that kind".
type XPRule struct {
	XP                  int  `yaml:"xp"`
	Coins               int  `yaml:"coins"`
	PerDayMax           int  `yaml:"per_day_max"`
	OncePerWorkout      bool `yaml:"once_per_workout"`
	PerWorkoutCap       int  `yaml:"per_workout_cap"`
	PerExerciseDailyCap int  `yaml:"per_exercise_daily_cap"`
}

// AchievementDef is a statically configured achievement.
type AchievementDef struct {
	ID          string `yaml:"id"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Trigger     string `yaml:"trigger"`
	Threshold   int    `yaml:"threshold"`
	Tier        string `yaml:"tier"`
	RewardXP    int    `yaml:"reward_xp"`
	RewardCoins int    `yaml:"reward_coins"`
}

// StreakRules holds the daily/weekly streak tuning constants.
type StreakRules struct {
	// Milestones maps a daily streak length to a one-time XP reward
	// granted when the streak lands exactly on it.
	Milestones map[int]int `yaml:"milestones"`

	FreezeReturnBonusXP       int `yaml:"freeze_return_bonus_xp"`
	DailyFreezeMinStreak      int `yaml:"daily_freeze_min_streak"`
	DailyFreezeCooldownDays   int `yaml:"daily_freeze_cooldown_days"`
	WeeklyFreezeMinStreak     int `yaml:"weekly_freeze_min_streak"`
	WeeklyFreezeCooldownWeeks int `yaml:"weekly_freeze_cooldown_weeks"`
}

// WeeklyGoals are the targets a week must meet to count toward the weekly
// streak. Regular weeks need either target; super weeks need both.
type WeeklyGoals struct {
	StrengthDays  int `yaml:"strength_days"`
	ActiveMinutes int `yaml:"active_minutes"`
}

// LevelCurve parameterizes the XP-to-level function: the XP needed for the
// first level, growing by a fixed increment each level after.
type LevelCurve struct {
	BaseXP    int `yaml:"base_xp"`
	Increment int `yaml:"xp_increment"`
}

// PRRules tune personal-record handling.
type PRRules struct {
	E1RMThresholdPct float64 `yaml:"e1rm_threshold_pct"`
	AchievementXP    int     `yaml:"achievement_xp"`
	AchievementCoins int     `yaml:"achievement_coins"`
}

// Rules is the externally loaded, versioned rule set. It is read-only after
// load; a missing or malformed file degrades to an empty (inert) rule set.
type Rules struct {
	Version      int               `yaml:"version"`
	XPRules      map[string]XPRule `yaml:"xp_rules"`
	Achievements []AchievementDef  `yaml:"achievements"`
	Streaks      StreakRules       `yaml:"streaks"`
	WeeklyGoals  WeeklyGoals       `yaml:"weekly_goals"`
	Level        LevelCurve        `yaml:"level"`
	PR           PRRules           `yaml:"pr"`
}

// defaults for the level curve; the curve must produce sane output even with
// an empty rule set so stored levels can always be reconciled.
const (
	defaultLevelBaseXP    = 100
	defaultLevelIncrement = 50
)

// curve returns the level curve with defaults applied. An entirely unset
// curve falls back to base 100 growing by 50 per level.
func (r Rules) curve() LevelCurve {
	c := r.Level
	if c.BaseXP <= 0 && c.Increment <= 0 {
		return LevelCurve{BaseXP: defaultLevelBaseXP, Increment: defaultLevelIncrement}
	}
	if c.BaseXP <= 0 {
		c.BaseXP = defaultLevelBaseXP
	}
	if c.Increment < 0 {
		c.Increment = 0
	}
	return c
}

// freezeRules returns streak rules with defaults applied.
func (r Rules) freezeRules() StreakRules {
	s := r.Streaks
	if s.DailyFreezeMinStreak <= 0 {
		s.DailyFreezeMinStreak = 3
	}
	if s.DailyFreezeCooldownDays <= 0 {
		s.DailyFreezeCooldownDays = 7
	}
	if s.WeeklyFreezeMinStreak <= 0 {
		s.WeeklyFreezeMinStreak = 3
	}
	if s.WeeklyFreezeCooldownWeeks <= 0 {
		s.WeeklyFreezeCooldownWeeks = 4
	}
	return s
}

// LoadRules reads the YAML rule set at path. Any failure (missing file,
// parse error) is logged and degrades to an empty rule set: the engine keeps
// running with zero-effect grants rather than crashing.
func LoadRules(path string, log *slog.Logger) Rules {
	rules, err := parseRulesFile(path)
	if err != nil {
		log.Warn("reward rules unavailable, using empty rule set", "path", path, "error", err)
		return Rules{}
	}
	log.Info("reward rules loaded", "path", path, "version", rules.Version,
		"xp_rules", len(rules.XPRules), "achievements", len(rules.Achievements))
	return rules
}

func parseRulesFile(path string) (Rules, error) {
	var rules Rules
	data, err := os.ReadFile(path)
	if err != nil {
		return rules, fmt.Errorf("reading rules file: %w", err)
	}
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return rules, fmt.Errorf("parsing rules file: %w", err)
	}
	return rules, nil
}
