package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/meltforce/ironlog/internal/models"
)

// SaveExerciseRecords upserts the full record snapshot in one transaction.
// Records only ever improve, so a whole-snapshot write is safe.
func (db *DB) SaveExerciseRecords(ctx context.Context, recs []models.ExerciseRecord) error {
	if len(recs) == 0 {
		return nil
	}
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, r := range recs {
		byReps, err := json.Marshal(r.BestWeightByReps)
		if err != nil {
			return fmt.Errorf("encoding rep records for %s: %w", r.ExerciseID, err)
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO exercise_records (exercise_id, best_weight_by_reps, best_e1rm,
			 best_bodyweight_reps, best_timed_sec, last_working_weight_kg, last_working_reps, first_recorded)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
			 ON CONFLICT (exercise_id) DO UPDATE SET
			   best_weight_by_reps = EXCLUDED.best_weight_by_reps,
			   best_e1rm = EXCLUDED.best_e1rm,
			   best_bodyweight_reps = EXCLUDED.best_bodyweight_reps,
			   best_timed_sec = EXCLUDED.best_timed_sec,
			   last_working_weight_kg = EXCLUDED.last_working_weight_kg,
			   last_working_reps = EXCLUDED.last_working_reps`,
			r.ExerciseID, byReps, r.BestE1RM,
			r.BestBodyweightReps, r.BestTimedSec, r.LastWorkingWeightKg, r.LastWorkingReps, r.FirstRecorded)
		if err != nil {
			return fmt.Errorf("saving record for %s: %w", r.ExerciseID, err)
		}
	}
	return tx.Commit(ctx)
}

// LoadExerciseRecords returns all persisted records for seeding the index.
func (db *DB) LoadExerciseRecords(ctx context.Context) ([]models.ExerciseRecord, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT exercise_id, best_weight_by_reps, best_e1rm,
		 best_bodyweight_reps, best_timed_sec, last_working_weight_kg, last_working_reps, first_recorded
		 FROM exercise_records
		 ORDER BY exercise_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying exercise records: %w", err)
	}
	defer rows.Close()

	var result []models.ExerciseRecord
	for rows.Next() {
		var r models.ExerciseRecord
		var byReps []byte
		if err := rows.Scan(&r.ExerciseID, &byReps, &r.BestE1RM,
			&r.BestBodyweightReps, &r.BestTimedSec, &r.LastWorkingWeightKg, &r.LastWorkingReps, &r.FirstRecorded); err != nil {
			return nil, fmt.Errorf("scanning exercise record: %w", err)
		}
		if err := json.Unmarshal(byReps, &r.BestWeightByReps); err != nil {
			return nil, fmt.Errorf("decoding rep records for %s: %w", r.ExerciseID, err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// ResetExerciseRecords drops all records. Part of the full data reset; the
// only operation that may shrink the record set.
func (db *DB) ResetExerciseRecords(ctx context.Context) error {
	if _, err := db.Pool.Exec(ctx, `DELETE FROM exercise_records`); err != nil {
		return fmt.Errorf("resetting exercise records: %w", err)
	}
	return nil
}
