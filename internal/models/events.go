package models

import "github.com/google/uuid"

// Event names recognized by the rewards engine.
const (
	EventWorkoutCompleted  = "workout_completed"
	EventSetLogged         = "set_logged"
	EventPRAchieved        = "pr_achieved"
	EventExerciseNew       = "exercise_new"
	EventWarmupCompleted   = "warmup_completed"
	EventMobilityCompleted = "mobility_completed"
)

// ActivityEvent is a discrete event fed to the rewards engine. Each event
// kind is its own type carrying only the fields relevant to it, so rule
// evaluation never digs through untyped payload maps.
type ActivityEvent interface {
	EventName() string
}

// WorkoutCompletedEvent is emitted by the session engine when a workout is
// finished.
type WorkoutCompletedEvent struct {
	WorkoutID    uuid.UUID
	PRCount      int
	NewExercises []string // exercise ids seen for the first time
	SetCount     int
}

func (WorkoutCompletedEvent) EventName() string { return EventWorkoutCompleted }

// SetLoggedEvent marks one completed set.
type SetLoggedEvent struct {
	WorkoutID  uuid.UUID
	ExerciseID string
	Reps       int
	WeightKg   float64
}

func (SetLoggedEvent) EventName() string { return EventSetLogged }

// PRAchievedEvent marks a new personal record for an exercise.
type PRAchievedEvent struct {
	WorkoutID    uuid.UUID
	ExerciseID   string
	ExerciseName string
	Count        int
}

func (PRAchievedEvent) EventName() string { return EventPRAchieved }

// NewExerciseEvent marks an exercise performed for the first time ever.
type NewExerciseEvent struct {
	ExerciseID   string
	ExerciseName string
}

func (NewExerciseEvent) EventName() string { return EventExerciseNew }

// WarmupCompletedEvent marks a finished warmup routine.
type WarmupCompletedEvent struct {
	WorkoutID uuid.UUID
}

func (WarmupCompletedEvent) EventName() string { return EventWarmupCompleted }

// MobilityCompletedEvent marks a finished mobility routine.
type MobilityCompletedEvent struct{}

func (MobilityCompletedEvent) EventName() string { return EventMobilityCompleted }
