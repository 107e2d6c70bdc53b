package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/meltforce/ironlog/internal/models"
)

// SavePlannedWorkout upserts a workout template. The exercise list is stored
// as JSONB.
func (db *DB) SavePlannedWorkout(ctx context.Context, p models.PlannedWorkout) error {
	exercises, err := json.Marshal(p.Exercises)
	if err != nil {
		return fmt.Errorf("encoding planned exercises: %w", err)
	}
	_, err = db.Pool.Exec(ctx,
		`INSERT INTO planned_workouts (id, name, exercises, created_at)
		 VALUES ($1,$2,$3,$4)
		 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, exercises = EXCLUDED.exercises`,
		p.ID, p.Name, exercises, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("saving planned workout: %w", err)
	}
	return nil
}

// GetPlannedWorkout returns one template, or nil when unknown.
func (db *DB) GetPlannedWorkout(ctx context.Context, id uuid.UUID) (*models.PlannedWorkout, error) {
	var p models.PlannedWorkout
	var exercises []byte
	err := db.Pool.QueryRow(ctx,
		`SELECT id, name, exercises, created_at FROM planned_workouts WHERE id = $1`,
		id).Scan(&p.ID, &p.Name, &exercises, &p.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying planned workout: %w", err)
	}
	if err := json.Unmarshal(exercises, &p.Exercises); err != nil {
		return nil, fmt.Errorf("decoding planned exercises: %w", err)
	}
	return &p, nil
}

// ListPlannedWorkouts returns all templates, newest first.
func (db *DB) ListPlannedWorkouts(ctx context.Context) ([]models.PlannedWorkout, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, name, exercises, created_at FROM planned_workouts ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying planned workouts: %w", err)
	}
	defer rows.Close()

	var result []models.PlannedWorkout
	for rows.Next() {
		var p models.PlannedWorkout
		var exercises []byte
		if err := rows.Scan(&p.ID, &p.Name, &exercises, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning planned workout: %w", err)
		}
		if err := json.Unmarshal(exercises, &p.Exercises); err != nil {
			return nil, fmt.Errorf("decoding planned exercises: %w", err)
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// DeletePlannedWorkout removes a template. Deleting an unknown id is a no-op.
func (db *DB) DeletePlannedWorkout(ctx context.Context, id uuid.UUID) error {
	if _, err := db.Pool.Exec(ctx, `DELETE FROM planned_workouts WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deleting planned workout: %w", err)
	}
	return nil
}
