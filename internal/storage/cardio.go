package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/meltforce/ironlog/internal/models"
)

// InsertCardioSession inserts an externally recorded cardio session. Returns
// true if inserted, false if duplicate.
func (db *DB) InsertCardioSession(ctx context.Context, cs models.CardioSession) (bool, error) {
	tag, err := db.Pool.Exec(ctx,
		`INSERT INTO cardio_sessions (id, start_time, end_time, avg_heart_rate, max_heart_rate,
		 active_calories, source, matched, suppressed)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		 ON CONFLICT DO NOTHING`,
		cs.ID, cs.StartTime, cs.EndTime, cs.AvgHeartRate, cs.MaxHeartRate,
		cs.ActiveCalories, cs.Source, cs.Matched, cs.Suppressed)
	if err != nil {
		return false, fmt.Errorf("inserting cardio session: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// FindUnmatchedCardio returns the unmatched, unsuppressed cardio session
// whose recorded time overlaps the given workout window, or nil when none
// exists. With several candidates the one starting closest to the workout
// wins.
func (db *DB) FindUnmatchedCardio(ctx context.Context, start, end time.Time) (*models.CardioSession, error) {
	var cs models.CardioSession
	err := db.Pool.QueryRow(ctx,
		`SELECT id, start_time, end_time, avg_heart_rate, max_heart_rate,
		 active_calories, source, matched, suppressed
		 FROM cardio_sessions
		 WHERE matched = FALSE AND suppressed = FALSE
		   AND start_time <= $2 AND end_time >= $1
		 ORDER BY ABS(EXTRACT(EPOCH FROM (start_time - $1))) ASC
		 LIMIT 1`,
		start, end).Scan(
		&cs.ID, &cs.StartTime, &cs.EndTime, &cs.AvgHeartRate, &cs.MaxHeartRate,
		&cs.ActiveCalories, &cs.Source, &cs.Matched, &cs.Suppressed)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying unmatched cardio: %w", err)
	}
	return &cs, nil
}

// MarkCardioMatched flags a cardio session as consumed by a workout.
func (db *DB) MarkCardioMatched(ctx context.Context, id uuid.UUID) error {
	if _, err := db.Pool.Exec(ctx, `UPDATE cardio_sessions SET matched = TRUE WHERE id = $1`, id); err != nil {
		return fmt.Errorf("marking cardio matched: %w", err)
	}
	return nil
}

// MarkCardioSuppressed flags a cardio session as falling inside a discard
// window; it is kept for the record but never auto-imported.
func (db *DB) MarkCardioSuppressed(ctx context.Context, id uuid.UUID) error {
	if _, err := db.Pool.Exec(ctx, `UPDATE cardio_sessions SET suppressed = TRUE WHERE id = $1`, id); err != nil {
		return fmt.Errorf("marking cardio suppressed: %w", err)
	}
	return nil
}

// ListCardioSessions retrieves cardio sessions in a time range, newest first.
func (db *DB) ListCardioSessions(ctx context.Context, start, end time.Time) ([]models.CardioSession, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, start_time, end_time, avg_heart_rate, max_heart_rate,
		 active_calories, source, matched, suppressed
		 FROM cardio_sessions
		 WHERE start_time >= $1 AND start_time < $2
		 ORDER BY start_time DESC`,
		start, end)
	if err != nil {
		return nil, fmt.Errorf("querying cardio sessions: %w", err)
	}
	defer rows.Close()

	var result []models.CardioSession
	for rows.Next() {
		var cs models.CardioSession
		if err := rows.Scan(&cs.ID, &cs.StartTime, &cs.EndTime, &cs.AvgHeartRate, &cs.MaxHeartRate,
			&cs.ActiveCalories, &cs.Source, &cs.Matched, &cs.Suppressed); err != nil {
			return nil, fmt.Errorf("scanning cardio session: %w", err)
		}
		result = append(result, cs)
	}
	return result, rows.Err()
}
