package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/meltforce/ironlog/internal/models"
)

// SaveProgress upserts the single reward progress row.
func (db *DB) SaveProgress(ctx context.Context, p models.RewardProgress) error {
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO reward_progress (id, xp, coins, level, level_floor, level_ceiling,
		 daily_streak, longest_daily_streak, last_activity_date,
		 freeze_active, last_freeze_activated, last_freeze_return_bonus,
		 weekly_streak, super_weekly_streak, weekly_freeze_active, last_weekly_freeze_used,
		 last_counted_week, last_super_counted_week)
		 VALUES (1,$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
		 ON CONFLICT (id) DO UPDATE SET
		   xp = EXCLUDED.xp, coins = EXCLUDED.coins,
		   level = EXCLUDED.level, level_floor = EXCLUDED.level_floor, level_ceiling = EXCLUDED.level_ceiling,
		   daily_streak = EXCLUDED.daily_streak, longest_daily_streak = EXCLUDED.longest_daily_streak,
		   last_activity_date = EXCLUDED.last_activity_date,
		   freeze_active = EXCLUDED.freeze_active,
		   last_freeze_activated = EXCLUDED.last_freeze_activated,
		   last_freeze_return_bonus = EXCLUDED.last_freeze_return_bonus,
		   weekly_streak = EXCLUDED.weekly_streak, super_weekly_streak = EXCLUDED.super_weekly_streak,
		   weekly_freeze_active = EXCLUDED.weekly_freeze_active,
		   last_weekly_freeze_used = EXCLUDED.last_weekly_freeze_used,
		   last_counted_week = EXCLUDED.last_counted_week,
		   last_super_counted_week = EXCLUDED.last_super_counted_week`,
		p.XP, p.Coins, p.Level, p.LevelFloor, p.LevelCeiling,
		p.DailyStreak, p.LongestDailyStreak, p.LastActivityDate,
		p.FreezeActive, p.LastFreezeActivated, p.LastFreezeReturnBonus,
		p.WeeklyStreak, p.SuperWeeklyStreak, p.WeeklyFreezeActive, p.LastWeeklyFreezeUsed,
		p.LastCountedWeek, p.LastSuperCountedWeek)
	if err != nil {
		return fmt.Errorf("saving reward progress: %w", err)
	}
	return nil
}

// LoadProgress returns the persisted progress row, or nil for a fresh
// database.
func (db *DB) LoadProgress(ctx context.Context) (*models.RewardProgress, error) {
	var p models.RewardProgress
	err := db.Pool.QueryRow(ctx,
		`SELECT xp, coins, level, level_floor, level_ceiling,
		 daily_streak, longest_daily_streak, last_activity_date,
		 freeze_active, last_freeze_activated, last_freeze_return_bonus,
		 weekly_streak, super_weekly_streak, weekly_freeze_active, last_weekly_freeze_used,
		 last_counted_week, last_super_counted_week
		 FROM reward_progress WHERE id = 1`).Scan(
		&p.XP, &p.Coins, &p.Level, &p.LevelFloor, &p.LevelCeiling,
		&p.DailyStreak, &p.LongestDailyStreak, &p.LastActivityDate,
		&p.FreezeActive, &p.LastFreezeActivated, &p.LastFreezeReturnBonus,
		&p.WeeklyStreak, &p.SuperWeeklyStreak, &p.WeeklyFreezeActive, &p.LastWeeklyFreezeUsed,
		&p.LastCountedWeek, &p.LastSuperCountedWeek)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying reward progress: %w", err)
	}
	return &p, nil
}

// AppendLedger batch-inserts ledger entries. The ledger is append-only;
// duplicates by id are ignored so retried writes stay idempotent.
func (db *DB) AppendLedger(ctx context.Context, entries []models.LedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}

	query := `INSERT INTO reward_ledger (id, event, rule_id, xp, coins, meta, created_at) VALUES `
	args := make([]any, 0, len(entries)*7)
	valueStrings := make([]string, 0, len(entries))

	for i, e := range entries {
		meta, err := json.Marshal(e.Meta)
		if err != nil {
			return fmt.Errorf("encoding ledger meta: %w", err)
		}
		base := i * 7
		valueStrings = append(valueStrings, fmt.Sprintf(
			"($%d,$%d,$%d,$%d,$%d,$%d,$%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7,
		))
		args = append(args, e.ID, e.Event, e.RuleID, e.XP, e.Coins, meta, e.CreatedAt)
	}

	query += strings.Join(valueStrings, ",") + " ON CONFLICT DO NOTHING"

	if _, err := db.Pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("appending ledger entries: %w", err)
	}
	return nil
}

// QueryLedger returns ledger entries created at or after since, newest first.
// A non-positive limit means no limit.
func (db *DB) QueryLedger(ctx context.Context, since time.Time, limit int) ([]models.LedgerEntry, error) {
	query := `SELECT id, event, rule_id, xp, coins, meta, created_at
		 FROM reward_ledger
		 WHERE created_at >= $1
		 ORDER BY created_at DESC`
	args := []any{since}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying ledger: %w", err)
	}
	defer rows.Close()

	var result []models.LedgerEntry
	for rows.Next() {
		var e models.LedgerEntry
		var meta []byte
		if err := rows.Scan(&e.ID, &e.Event, &e.RuleID, &e.XP, &e.Coins, &meta, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning ledger entry: %w", err)
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &e.Meta); err != nil {
				return nil, fmt.Errorf("decoding ledger meta: %w", err)
			}
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// SaveAchievement upserts one achievement's progress.
func (db *DB) SaveAchievement(ctx context.Context, a models.Achievement) error {
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO achievements (id, title, description, progress, target, tier, unlocked_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)
		 ON CONFLICT (id) DO UPDATE SET
		   title = EXCLUDED.title, description = EXCLUDED.description,
		   progress = EXCLUDED.progress, target = EXCLUDED.target, tier = EXCLUDED.tier,
		   unlocked_at = COALESCE(achievements.unlocked_at, EXCLUDED.unlocked_at)`,
		a.ID, a.Title, a.Description, a.Progress, a.Target, a.Tier, a.UnlockedAt)
	if err != nil {
		return fmt.Errorf("saving achievement %s: %w", a.ID, err)
	}
	return nil
}

// LoadAchievements returns all persisted achievements.
func (db *DB) LoadAchievements(ctx context.Context) ([]models.Achievement, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, title, description, progress, target, tier, unlocked_at
		 FROM achievements ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying achievements: %w", err)
	}
	defer rows.Close()

	var result []models.Achievement
	for rows.Next() {
		var a models.Achievement
		if err := rows.Scan(&a.ID, &a.Title, &a.Description, &a.Progress, &a.Target, &a.Tier, &a.UnlockedAt); err != nil {
			return nil, fmt.Errorf("scanning achievement: %w", err)
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

// ResetRewards clears progress, ledger, and achievements. Part of the full
// data reset.
func (db *DB) ResetRewards(ctx context.Context) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, table := range []string{"reward_ledger", "achievements", "reward_progress"} {
		if _, err := tx.Exec(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("resetting %s: %w", table, err)
		}
	}
	return tx.Commit(ctx)
}
