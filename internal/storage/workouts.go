package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/meltforce/ironlog/internal/models"
)

// SaveCompletedWorkout upserts a finished workout. Entries are stored as one
// JSONB document; they are immutable after the finish and only read back
// whole.
func (db *DB) SaveCompletedWorkout(ctx context.Context, w models.CompletedWorkout) error {
	entries, err := json.Marshal(w.Entries)
	if err != nil {
		return fmt.Errorf("encoding workout entries: %w", err)
	}
	_, err = db.Pool.Exec(ctx,
		`INSERT INTO completed_workouts (id, date, started_at, plan_id, pr_count, entries,
		 cardio_session_id, avg_heart_rate, active_calories)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		 ON CONFLICT (id) DO UPDATE SET
		   date = EXCLUDED.date, started_at = EXCLUDED.started_at, plan_id = EXCLUDED.plan_id,
		   pr_count = EXCLUDED.pr_count, entries = EXCLUDED.entries`,
		w.ID, w.Date, w.StartedAt, w.PlanID, w.PRCount, entries,
		w.CardioSessionID, w.AvgHeartRate, w.ActiveCalories)
	if err != nil {
		return fmt.Errorf("saving completed workout: %w", err)
	}
	return nil
}

// UpdateWorkoutCardio fills in the delayed cardio enrichment columns.
func (db *DB) UpdateWorkoutCardio(ctx context.Context, workoutID, cardioID uuid.UUID, avgHR, calories *float64) error {
	_, err := db.Pool.Exec(ctx,
		`UPDATE completed_workouts
		 SET cardio_session_id = $2, avg_heart_rate = $3, active_calories = $4
		 WHERE id = $1`,
		workoutID, cardioID, avgHR, calories)
	if err != nil {
		return fmt.Errorf("updating workout cardio: %w", err)
	}
	return nil
}

// ListCompletedWorkouts returns all completed workouts, oldest first. Used to
// seed the in-memory collection on startup.
func (db *DB) ListCompletedWorkouts(ctx context.Context) ([]models.CompletedWorkout, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, date, started_at, plan_id, pr_count, entries,
		 cardio_session_id, avg_heart_rate, active_calories
		 FROM completed_workouts
		 ORDER BY date ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying completed workouts: %w", err)
	}
	defer rows.Close()

	return scanCompletedWorkouts(rows)
}

// QueryWorkouts retrieves completed workouts in a time range, newest first.
func (db *DB) QueryWorkouts(ctx context.Context, start, end time.Time) ([]models.CompletedWorkout, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, date, started_at, plan_id, pr_count, entries,
		 cardio_session_id, avg_heart_rate, active_calories
		 FROM completed_workouts
		 WHERE date >= $1 AND date < $2
		 ORDER BY date DESC`,
		start, end)
	if err != nil {
		return nil, fmt.Errorf("querying workouts: %w", err)
	}
	defer rows.Close()

	return scanCompletedWorkouts(rows)
}

// GetWorkout retrieves a single completed workout, or nil when unknown.
func (db *DB) GetWorkout(ctx context.Context, id uuid.UUID) (*models.CompletedWorkout, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT id, date, started_at, plan_id, pr_count, entries,
		 cardio_session_id, avg_heart_rate, active_calories
		 FROM completed_workouts
		 WHERE id = $1`,
		id)

	w, err := scanCompletedWorkout(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying workout: %w", err)
	}
	return &w, nil
}

type pgxRow interface {
	Scan(dest ...any) error
}

func scanCompletedWorkout(row pgxRow) (models.CompletedWorkout, error) {
	var w models.CompletedWorkout
	var entries []byte
	err := row.Scan(&w.ID, &w.Date, &w.StartedAt, &w.PlanID, &w.PRCount, &entries,
		&w.CardioSessionID, &w.AvgHeartRate, &w.ActiveCalories)
	if err != nil {
		return w, err
	}
	if err := json.Unmarshal(entries, &w.Entries); err != nil {
		return w, fmt.Errorf("decoding workout entries: %w", err)
	}
	return w, nil
}

func scanCompletedWorkouts(rows pgx.Rows) ([]models.CompletedWorkout, error) {
	var result []models.CompletedWorkout
	for rows.Next() {
		w, err := scanCompletedWorkout(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning workout: %w", err)
		}
		result = append(result, w)
	}
	return result, rows.Err()
}
