package models

import (
	"time"

	"github.com/google/uuid"
)

// TrackingMode selects which numeric fields of a SetInput are meaningful.
// Modes are mutually exclusive: a weighted set ignores duration/distance
// and vice versa.
type TrackingMode string

const (
	ModeWeighted   TrackingMode = "weighted"
	ModeBodyweight TrackingMode = "bodyweight"
	ModeTimed      TrackingMode = "timed"
	ModeDistance   TrackingMode = "distance"
)

// SetTag classifies a set's role within an exercise.
type SetTag string

const (
	TagWarmup  SetTag = "warmup"
	TagWorking SetTag = "working"
	TagBackoff SetTag = "backoff"
)

// SetInput is one logged (or planned) set within a workout entry.
type SetInput struct {
	Reps        int          `json:"reps"`
	WeightKg    float64      `json:"weight_kg"`
	DurationSec float64      `json:"duration_sec,omitempty"`
	DistanceM   float64      `json:"distance_m,omitempty"`
	Tag         SetTag       `json:"tag"`
	Mode        TrackingMode `json:"mode"`
	Completed   bool         `json:"completed"`

	// Provenance flags.
	AutoWeight     bool `json:"auto_weight,omitempty"`     // weight came from a suggestion
	SeededFromLast bool `json:"seeded_from_last,omitempty"` // pre-filled from the previous session
	Placeholder    bool `json:"placeholder,omitempty"`      // auto-generated empty row
	Ghost          bool `json:"ghost,omitempty"`            // copied from a planned template
}

// CountsForPR reports whether this set is eligible for record detection.
// Only completed working/backoff sets count, and each tracking mode has its
// own validity rule.
func (s SetInput) CountsForPR() bool {
	if !s.Completed || s.Tag == TagWarmup {
		return false
	}
	switch s.Mode {
	case ModeWeighted:
		return s.Reps > 0 && s.WeightKg > 0
	case ModeBodyweight:
		return s.Reps > 0
	case ModeTimed:
		return s.DurationSec > 0
	case ModeDistance:
		// Reserved: distance records are not implemented.
		return false
	}
	return false
}

// WorkoutEntry is one exercise's sets within a live workout.
type WorkoutEntry struct {
	ID           uuid.UUID  `json:"id"`
	ExerciseID   string     `json:"exercise_id"`
	Name         string     `json:"name"`
	MuscleGroups []string   `json:"muscle_groups,omitempty"`
	Sets         []SetInput `json:"sets"`

	// Superset bookkeeping. A nil group means the entry is standalone.
	SupersetGroup *uuid.UUID `json:"superset_group,omitempty"`
	SupersetOrder int        `json:"superset_order,omitempty"`

	ActiveSetIndex int `json:"active_set_index"`
}

// CompletedSets returns the number of sets marked completed.
func (e *WorkoutEntry) CompletedSets() int {
	n := 0
	for _, s := range e.Sets {
		if s.Completed {
			n++
		}
	}
	return n
}

// AllSetsCompleted reports whether every set is completed. An entry with no
// sets is not considered complete.
func (e *WorkoutEntry) AllSetsCompleted() bool {
	return len(e.Sets) > 0 && e.CompletedSets() == len(e.Sets)
}

// CurrentWorkout is the single live workout aggregate. At most one exists
// per engine; it is mutated only through session engine operations.
type CurrentWorkout struct {
	ID            uuid.UUID       `json:"id"`
	StartedAt     time.Time       `json:"started_at"`
	Entries       []*WorkoutEntry `json:"entries"`
	PlanID        *uuid.UUID      `json:"plan_id,omitempty"`
	ActiveEntryID *uuid.UUID      `json:"active_entry_id,omitempty"`
}

// Entry returns the entry with the given id, or nil.
func (w *CurrentWorkout) Entry(id uuid.UUID) *WorkoutEntry {
	for _, e := range w.Entries {
		if e.ID == id {
			return e
		}
	}
	return nil
}

// GroupMembers returns all entries belonging to a superset group, in order.
func (w *CurrentWorkout) GroupMembers(group uuid.UUID) []*WorkoutEntry {
	var members []*WorkoutEntry
	for _, e := range w.Entries {
		if e.SupersetGroup != nil && *e.SupersetGroup == group {
			members = append(members, e)
		}
	}
	return members
}

// CompletedWorkout is the immutable snapshot produced when a live workout is
// finished. Entries are stored by value. The cardio correlation fields are
// filled in asynchronously after creation; everything else never changes.
type CompletedWorkout struct {
	ID        uuid.UUID      `json:"id"`
	Date      time.Time      `json:"date"`
	StartedAt *time.Time     `json:"started_at,omitempty"`
	Entries   []WorkoutEntry `json:"entries"`
	PlanID    *uuid.UUID     `json:"plan_id,omitempty"`
	PRCount   int            `json:"pr_count"`

	// Delayed enrichment from an externally recorded cardio session.
	CardioSessionID *uuid.UUID `json:"cardio_session_id,omitempty"`
	AvgHeartRate    *float64   `json:"avg_heart_rate,omitempty"`
	ActiveCalories  *float64   `json:"active_calories,omitempty"`
}

// PlannedWorkout is a reusable workout template. Starting a session from a
// plan copies its sets as editable ghost placeholders.
type PlannedWorkout struct {
	ID        uuid.UUID         `json:"id"`
	Name      string            `json:"name"`
	Exercises []PlannedExercise `json:"exercises"`
	CreatedAt time.Time         `json:"created_at"`
}

// PlannedExercise is one exercise slot in a template.
type PlannedExercise struct {
	ExerciseID   string       `json:"exercise_id"`
	Name         string       `json:"name"`
	MuscleGroups []string     `json:"muscle_groups,omitempty"`
	Sets         []PlannedSet `json:"sets"`
}

// PlannedSet carries the targets a ghost set is seeded from.
type PlannedSet struct {
	TargetReps     int          `json:"target_reps"`
	TargetWeightKg float64      `json:"target_weight_kg"`
	Mode           TrackingMode `json:"mode"`
	Tag            SetTag       `json:"tag"`
}

// CardioSession is an externally recorded cardio session (heart rate and
// energy data from a watch or other recorder) ingested for correlation with
// completed workouts.
type CardioSession struct {
	ID             uuid.UUID `json:"id"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	AvgHeartRate   *float64  `json:"avg_heart_rate,omitempty"`
	MaxHeartRate   *float64  `json:"max_heart_rate,omitempty"`
	ActiveCalories *float64  `json:"active_calories,omitempty"`
	Source         string    `json:"source,omitempty"`
	Matched        bool      `json:"matched"`
	Suppressed     bool      `json:"suppressed"`
}
