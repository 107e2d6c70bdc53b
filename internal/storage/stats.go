package storage

import (
	"context"
	"fmt"
	"time"
)

// DataStats holds aggregate statistics about all stored data.
type DataStats struct {
	TotalWorkouts       int64      `json:"total_workouts"`
	TotalPRs            int64      `json:"total_prs"`
	TotalExercises      int64      `json:"total_exercises"`
	TotalCardioSessions int64      `json:"total_cardio_sessions"`
	EarliestWorkout     *time.Time `json:"earliest_workout"`
	LatestWorkout       *time.Time `json:"latest_workout"`
}

// GetDataStats returns aggregate statistics for the stored training data.
func (db *DB) GetDataStats(ctx context.Context) (*DataStats, error) {
	stats := &DataStats{}

	err := db.Pool.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(pr_count), 0), MIN(date), MAX(date) FROM completed_workouts`,
	).Scan(&stats.TotalWorkouts, &stats.TotalPRs, &stats.EarliestWorkout, &stats.LatestWorkout)
	if err != nil {
		return nil, fmt.Errorf("counting workouts: %w", err)
	}

	err = db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM exercise_records`,
	).Scan(&stats.TotalExercises)
	if err != nil {
		return nil, fmt.Errorf("counting exercise records: %w", err)
	}

	err = db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM cardio_sessions`,
	).Scan(&stats.TotalCardioSessions)
	if err != nil {
		return nil, fmt.Errorf("counting cardio sessions: %w", err)
	}

	return stats, nil
}

// WeeklyActivity summarizes one calendar week for weekly goal evaluation.
type WeeklyActivity struct {
	WeekStart     time.Time `json:"week_start"`
	StrengthDays  int       `json:"strength_days"`
	ActiveMinutes int       `json:"active_minutes"`
}

// GetWeeklyActivity aggregates distinct training days and active minutes for
// the week starting at weekStart. Strength days count distinct workout dates;
// active minutes sum strength workout durations and unmatched cardio, so
// matched cardio is not double counted.
func (db *DB) GetWeeklyActivity(ctx context.Context, weekStart time.Time) (*WeeklyActivity, error) {
	weekEnd := weekStart.AddDate(0, 0, 7)
	activity := &WeeklyActivity{WeekStart: weekStart}

	err := db.Pool.QueryRow(ctx,
		`SELECT COUNT(DISTINCT date::date),
		 COALESCE(SUM(EXTRACT(EPOCH FROM (date - started_at)) / 60), 0)::int
		 FROM completed_workouts
		 WHERE date >= $1 AND date < $2 AND started_at IS NOT NULL`,
		weekStart, weekEnd,
	).Scan(&activity.StrengthDays, &activity.ActiveMinutes)
	if err != nil {
		return nil, fmt.Errorf("aggregating weekly workouts: %w", err)
	}

	var cardioMinutes int
	err = db.Pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(EXTRACT(EPOCH FROM (end_time - start_time)) / 60), 0)::int
		 FROM cardio_sessions
		 WHERE start_time >= $1 AND start_time < $2 AND matched = FALSE AND suppressed = FALSE`,
		weekStart, weekEnd,
	).Scan(&cardioMinutes)
	if err != nil {
		return nil, fmt.Errorf("aggregating weekly cardio: %w", err)
	}
	activity.ActiveMinutes += cardioMinutes

	return activity, nil
}
