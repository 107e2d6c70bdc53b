package records

import (
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/meltforce/ironlog/internal/models"
)

func weightedSet(reps int, weight float64) models.SetInput {
	return models.SetInput{
		Reps:      reps,
		WeightKg:  weight,
		Tag:       models.TagWorking,
		Mode:      models.ModeWeighted,
		Completed: true,
	}
}

func workoutWith(exerciseID string, sets ...models.SetInput) *models.CompletedWorkout {
	return &models.CompletedWorkout{
		ID: uuid.New(),
		Entries: []models.WorkoutEntry{
			{ID: uuid.New(), ExerciseID: exerciseID, Name: exerciseID, Sets: sets},
		},
	}
}

func TestEpley1RM(t *testing.T) {
	tests := []struct {
		weight float64
		reps   int
		want   float64
	}{
		{100, 1, 103.333333},
		{100, 5, 116.666666},
		{40, 8, 50.666666},
		{0, 5, 0},
		{100, 0, 0},
	}
	for _, tt := range tests {
		got := Epley1RM(tt.weight, tt.reps)
		if math.Abs(got-tt.want) > 0.001 {
			t.Errorf("Epley1RM(%v, %d) = %v, want %v", tt.weight, tt.reps, got, tt.want)
		}
	}
}

func TestWeightForRepsInvertsEpley(t *testing.T) {
	e1rm := Epley1RM(80, 6)
	got := WeightForReps(e1rm, 6)
	if math.Abs(got-80) > 0.001 {
		t.Errorf("round-trip weight = %v, want 80", got)
	}
}

// TestBeatRepCountRecord covers the reference scenario: bestPerReps[8] = 40,
// a new set of 8 @ 42.5 updates the record and counts exactly one PR.
func TestBeatRepCountRecord(t *testing.T) {
	ix := NewIndex(0)
	ix.ApplyWorkout(workoutWith("bench", weightedSet(8, 40)))

	res := ix.ApplyWorkout(workoutWith("bench", weightedSet(8, 42.5)))
	if res.PRCount != 1 {
		t.Fatalf("PRCount = %d, want 1", res.PRCount)
	}

	rec, ok := ix.Record("bench")
	if !ok {
		t.Fatal("record missing")
	}
	if rec.BestWeightByReps[8] != 42.5 {
		t.Errorf("BestWeightByReps[8] = %v, want 42.5", rec.BestWeightByReps[8])
	}
}

func TestFirstEverSetIsBaselineNotPR(t *testing.T) {
	ix := NewIndex(0)
	res := ix.ApplyWorkout(workoutWith("squat", weightedSet(5, 100)))
	if res.PRCount != 0 {
		t.Errorf("PRCount = %d, want 0 for a first-ever set", res.PRCount)
	}
	if len(res.NewExercises) != 1 || res.NewExercises[0] != "squat" {
		t.Errorf("NewExercises = %v, want [squat]", res.NewExercises)
	}
}

func TestE1RMSignificanceGate(t *testing.T) {
	ix := NewIndex(2.0)
	ix.ApplyWorkout(workoutWith("press", weightedSet(5, 100)))

	// 100.5 @ 5 improves e1rm by 0.5%: below the gate, and the rep-count
	// record does get beaten, so it still counts as one PR.
	res := ix.ApplyWorkout(workoutWith("press", weightedSet(5, 100.5)))
	if res.PRCount != 1 {
		t.Errorf("PRCount = %d, want 1", res.PRCount)
	}

	// A different rep count with a big e1rm jump trips the gate even
	// though no prior record exists at 3 reps.
	res = ix.ApplyWorkout(workoutWith("press", weightedSet(3, 115)))
	if res.PRCount != 1 {
		t.Errorf("PRCount = %d, want 1 from e1rm gate", res.PRCount)
	}
}

func TestMonotonicRecords(t *testing.T) {
	ix := NewIndex(0)
	ix.ApplyWorkout(workoutWith("row", weightedSet(10, 60)))

	// A lighter set never lowers the record.
	ix.ApplyWorkout(workoutWith("row", weightedSet(10, 50)))
	rec, _ := ix.Record("row")
	if rec.BestWeightByReps[10] != 60 {
		t.Errorf("BestWeightByReps[10] = %v, want 60", rec.BestWeightByReps[10])
	}
	if rec.BestE1RM < Epley1RM(60, 10) {
		t.Errorf("BestE1RM decreased: %v", rec.BestE1RM)
	}
}

func TestWarmupAndIncompleteSetsIgnored(t *testing.T) {
	ix := NewIndex(0)
	warmup := weightedSet(8, 200)
	warmup.Tag = models.TagWarmup
	incomplete := weightedSet(8, 300)
	incomplete.Completed = false

	res := ix.ApplyWorkout(workoutWith("dl", warmup, incomplete))
	if res.PRCount != 0 {
		t.Errorf("PRCount = %d, want 0", res.PRCount)
	}
	if rec, _ := ix.Record("dl"); len(rec.BestWeightByReps) != 0 {
		t.Errorf("records recorded from ineligible sets: %v", rec.BestWeightByReps)
	}
}

func TestBodyweightAndTimedRecords(t *testing.T) {
	ix := NewIndex(0)

	pullups := models.SetInput{Reps: 10, Tag: models.TagWorking, Mode: models.ModeBodyweight, Completed: true}
	ix.ApplyWorkout(workoutWith("pullup", pullups))
	pullups.Reps = 12
	res := ix.ApplyWorkout(workoutWith("pullup", pullups))
	if res.PRCount != 1 {
		t.Errorf("bodyweight PRCount = %d, want 1", res.PRCount)
	}
	rec, _ := ix.Record("pullup")
	if rec.BestBodyweightReps != 12 {
		t.Errorf("BestBodyweightReps = %d, want 12", rec.BestBodyweightReps)
	}

	plank := models.SetInput{DurationSec: 60, Tag: models.TagWorking, Mode: models.ModeTimed, Completed: true}
	ix.ApplyWorkout(workoutWith("plank", plank))
	plank.DurationSec = 90
	res = ix.ApplyWorkout(workoutWith("plank", plank))
	if res.PRCount != 1 {
		t.Errorf("timed PRCount = %d, want 1", res.PRCount)
	}
}

func TestSuggestOrdering(t *testing.T) {
	ix := NewIndex(0)

	// No data at all.
	if _, ok := ix.Suggest("bench", 8); ok {
		t.Error("Suggest returned a value for an unknown exercise")
	}

	ix.ApplyWorkout(workoutWith("bench",
		weightedSet(5, 100),
		weightedSet(8, 80),
	))

	// Exact match.
	if w, ok := ix.Suggest("bench", 8); !ok || w != 80 {
		t.Errorf("Suggest(8) = %v, %v; want 80, true", w, ok)
	}

	// Nearby match: 7 reps has no record, 8 reps is the closest within ±2.
	// Expect the e1rm back-solve of 80 @ 8 at 7 reps.
	want := WeightForReps(Epley1RM(80, 8), 7)
	if w, ok := ix.Suggest("bench", 7); !ok || math.Abs(w-want) > 0.001 {
		t.Errorf("Suggest(7) = %v, %v; want %v, true", w, ok, want)
	}

	// Tie break at equal distance prefers the higher weight: for target 6,
	// rep counts 5 (100kg) and 8 (80kg) — 5 is closer, so it wins anyway;
	// for target 6 with equidistant 5 and 7, 5's higher weight would win.
	w, ok := ix.Suggest("bench", 6)
	if !ok {
		t.Fatal("Suggest(6) returned no value")
	}
	want = WeightForReps(Epley1RM(100, 5), 6)
	if math.Abs(w-want) > 0.001 {
		t.Errorf("Suggest(6) = %v, want %v", w, want)
	}

	// Out of window falls back to the last working set.
	if w, ok := ix.Suggest("bench", 15); !ok || w != 80 {
		t.Errorf("Suggest(15) = %v, %v; want last working 80, true", w, ok)
	}
}

func TestSuggestFallsBackToBestE1RM(t *testing.T) {
	ix := NewIndex(0)
	ix.Load([]models.ExerciseRecord{{
		ExerciseID: "ohp",
		BestE1RM:   60,
	}})

	want := WeightForReps(60, 10)
	if w, ok := ix.Suggest("ohp", 10); !ok || math.Abs(w-want) > 0.001 {
		t.Errorf("Suggest = %v, %v; want %v, true", w, ok, want)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	ix := NewIndex(0)
	ix.ApplyWorkout(workoutWith("bench", weightedSet(5, 100)))
	ix.ApplyWorkout(workoutWith("squat", weightedSet(5, 140)))

	snap := ix.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("snapshot len = %d, want 2", len(snap))
	}

	restored := NewIndex(0)
	restored.Load(snap)
	rec, ok := restored.Record("squat")
	if !ok || rec.BestWeightByReps[5] != 140 {
		t.Errorf("restored squat record = %+v, ok=%v", rec, ok)
	}
}
