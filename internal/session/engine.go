// Package session owns the single live workout aggregate: starting,
// editing, finishing, and discarding a session, plus the personal-record
// update and the asynchronous cardio enrichment that follow a finish.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/meltforce/ironlog/internal/models"
	"github.com/meltforce/ironlog/internal/records"
)

// Engine precondition failures. Handlers map these to no-effect responses;
// repeated calls stay idempotent.
var (
	ErrNoActiveWorkout = errors.New("no active workout")
	ErrEntryNotFound   = errors.New("workout entry not found")
	ErrEmptyWorkout    = errors.New("workout has no entries")
	ErrNothingToUndo   = errors.New("no discarded workout to restore")
)

// Processor consumes activity events produced by the engine. The rewards
// engine implements it.
type Processor interface {
	Process(ctx context.Context, ev models.ActivityEvent)
}

// Store persists the engine's durable state. Writes are sequenced under the
// engine mutex per aggregate; failures are logged and non-fatal.
type Store interface {
	SaveCompletedWorkout(ctx context.Context, w models.CompletedWorkout) error
	UpdateWorkoutCardio(ctx context.Context, workoutID, cardioID uuid.UUID, avgHR, calories *float64) error
	SaveExerciseRecords(ctx context.Context, recs []models.ExerciseRecord) error
	FindUnmatchedCardio(ctx context.Context, start, end time.Time) (*models.CardioSession, error)
	MarkCardioMatched(ctx context.Context, id uuid.UUID) error
}

// defaultMatchBackoff is the retry schedule for correlating a finished
// workout with an externally recorded cardio session.
var defaultMatchBackoff = []time.Duration{10 * time.Second, 20 * time.Second, 30 * time.Second}

// Engine is the workout session engine. All mutations are serialized
// through its mutex; background enrichment never blocks a mutating call.
type Engine struct {
	mu        sync.Mutex
	current   *models.CurrentWorkout
	discarded *models.CurrentWorkout // one level of discard undo
	completed []models.CompletedWorkout

	index     *records.Index
	processor Processor
	store     Store
	snapshots *SnapshotStore // optional

	log     *slog.Logger
	now     func() time.Time
	backoff []time.Duration

	onStarted   []func(models.CurrentWorkout)
	matchCancel map[uuid.UUID]context.CancelFunc
	matchWG     sync.WaitGroup
}

// NewEngine creates a session engine. store, snapshots, and processor may be
// nil for in-memory use; the index is required.
func NewEngine(index *records.Index, processor Processor, store Store, snapshots *SnapshotStore, log *slog.Logger) *Engine {
	return &Engine{
		index:       index,
		processor:   processor,
		store:       store,
		snapshots:   snapshots,
		log:         log,
		now:         time.Now,
		backoff:     defaultMatchBackoff,
		matchCancel: make(map[uuid.UUID]context.CancelFunc),
	}
}

// SetClock overrides the engine clock.
func (e *Engine) SetClock(now func() time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = now
}

// SetMatchBackoff overrides the cardio matching retry schedule.
func (e *Engine) SetMatchBackoff(schedule []time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.backoff = append([]time.Duration(nil), schedule...)
}

// OnWorkoutStarted registers an observer fired when the first exercise of a
// session is added (or a planned session starts).
func (e *Engine) OnWorkoutStarted(fn func(models.CurrentWorkout)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onStarted = append(e.onStarted, fn)
}

// Recover restores engine state after a restart. A live workout snapshot is
// restored only when the previous run shut down cleanly; a force quit while
// a workout was active discards it. completed seeds the in-memory
// collection, kept sorted by date.
func (e *Engine) Recover(completed []models.CompletedWorkout) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.completed = append([]models.CompletedWorkout(nil), completed...)
	sort.Slice(e.completed, func(i, j int) bool { return e.completed[i].Date.Before(e.completed[j].Date) })

	if e.snapshots == nil {
		return
	}
	clean, err := e.snapshots.WasCleanShutdown()
	if err != nil {
		e.log.Warn("reading shutdown flag", "error", err)
		return
	}
	live, err := e.snapshots.LoadLive()
	if err != nil {
		e.log.Warn("loading live workout snapshot", "error", err)
		return
	}
	if live == nil {
		return
	}
	if !clean {
		e.log.Info("discarding live workout from unclean shutdown", "workout", live.ID)
		if err := e.snapshots.SaveLive(nil); err != nil {
			e.log.Warn("clearing live snapshot", "error", err)
		}
		return
	}
	e.current = live
}

// Current returns a deep copy of the live workout, or nil.
func (e *Engine) Current() *models.CurrentWorkout {
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneWorkout(e.current)
}

// Completed returns a copy of the completed-workout collection, date order.
func (e *Engine) Completed() []models.CompletedWorkout {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]models.CompletedWorkout(nil), e.completed...)
}

// Suggest proposes a weight for an exercise at a target rep count from the
// PR index.
func (e *Engine) Suggest(exerciseID string, targetReps int) (float64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.index.Suggest(exerciseID, targetReps)
}

// Record returns the PR index entry for an exercise.
func (e *Engine) Record(exerciseID string) (models.ExerciseRecord, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.index.Record(exerciseID)
}

// Records returns all PR index entries.
func (e *Engine) Records() []models.ExerciseRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.index.Snapshot()
}

// ResetRecords drops every PR index entry. Records are otherwise
// append-or-raise only; the full data reset is the one path that shrinks
// them. The caller clears the persisted rows.
func (e *Engine) ResetRecords() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.index.Reset()
}

// Start creates a live workout if none exists. Starting while a workout is
// active is a no-op returning the existing workout.
func (e *Engine) Start() models.CurrentWorkout {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		e.current = &models.CurrentWorkout{ID: uuid.New(), StartedAt: e.now()}
		e.persistLive()
	}
	return *cloneWorkout(e.current)
}

// StartPlanned starts a session from a template, copying its target sets as
// editable ghost placeholders. No-op if a workout is already active.
func (e *Engine) StartPlanned(plan models.PlannedWorkout) models.CurrentWorkout {
	e.mu.Lock()
	if e.current != nil {
		w := *cloneWorkout(e.current)
		e.mu.Unlock()
		return w
	}

	w := &models.CurrentWorkout{ID: uuid.New(), StartedAt: e.now(), PlanID: &plan.ID}
	for _, pe := range plan.Exercises {
		entry := &models.WorkoutEntry{
			ID:           uuid.New(),
			ExerciseID:   pe.ExerciseID,
			Name:         pe.Name,
			MuscleGroups: pe.MuscleGroups,
		}
		for _, ps := range pe.Sets {
			mode := ps.Mode
			if mode == "" {
				mode = models.ModeWeighted
			}
			tag := ps.Tag
			if tag == "" {
				tag = models.TagWorking
			}
			entry.Sets = append(entry.Sets, models.SetInput{
				Reps:     ps.TargetReps,
				WeightKg: ps.TargetWeightKg,
				Mode:     mode,
				Tag:      tag,
				Ghost:    true,
			})
		}
		w.Entries = append(w.Entries, entry)
	}
	if len(w.Entries) > 0 {
		id := w.Entries[0].ID
		w.ActiveEntryID = &id
	}
	e.current = w
	e.persistLive()
	started := *cloneWorkout(w)
	observers := append([]func(models.CurrentWorkout){}, e.onStarted...)
	e.mu.Unlock()

	for _, fn := range observers {
		fn(started)
	}
	return started
}

// AddExercise appends a new entry, implicitly starting a workout when none
// is active, and returns the new entry's id. Adding the first entry fires
// the workout-started observers.
func (e *Engine) AddExercise(exerciseID, name string, muscleGroups []string) uuid.UUID {
	e.mu.Lock()
	first := false
	if e.current == nil {
		e.current = &models.CurrentWorkout{ID: uuid.New(), StartedAt: e.now()}
	}
	entry := &models.WorkoutEntry{
		ID:           uuid.New(),
		ExerciseID:   exerciseID,
		Name:         name,
		MuscleGroups: muscleGroups,
	}
	e.current.Entries = append(e.current.Entries, entry)
	if len(e.current.Entries) == 1 {
		first = true
		id := entry.ID
		e.current.ActiveEntryID = &id
	}
	e.persistLive()

	var started models.CurrentWorkout
	var observers []func(models.CurrentWorkout)
	if first {
		started = *cloneWorkout(e.current)
		observers = append(observers, e.onStarted...)
	}
	e.mu.Unlock()

	for _, fn := range observers {
		fn(started)
	}
	return entry.ID
}

// UpdateEntrySets replaces an entry's set list and applies the auto-advance
// policy. Each set that transitions to completed emits a set-logged activity
// event; re-sending an already-completed set emits nothing.
func (e *Engine) UpdateEntrySets(entryID uuid.UUID, sets []models.SetInput) error {
	return e.updateSets(entryID, sets, -1)
}

// UpdateEntrySetsWithActive is UpdateEntrySets with an explicit active-set
// index override for the entry.
func (e *Engine) UpdateEntrySetsWithActive(entryID uuid.UUID, sets []models.SetInput, activeSetIndex int) error {
	return e.updateSets(entryID, sets, activeSetIndex)
}

func (e *Engine) updateSets(entryID uuid.UUID, sets []models.SetInput, activeSetIndex int) error {
	e.mu.Lock()
	if e.current == nil {
		e.mu.Unlock()
		return ErrNoActiveWorkout
	}
	entry := e.current.Entry(entryID)
	if entry == nil {
		e.mu.Unlock()
		return ErrEntryNotFound
	}

	prevSets := entry.Sets
	prevCompleted := entry.CompletedSets()
	entry.Sets = append([]models.SetInput(nil), sets...)
	if activeSetIndex >= 0 {
		entry.ActiveSetIndex = activeSetIndex
	} else if entry.ActiveSetIndex > len(entry.Sets) {
		entry.ActiveSetIndex = len(entry.Sets)
	}

	advanceActive(e.current, entry, prevCompleted)
	e.persistLive()

	var events []models.ActivityEvent
	if e.processor != nil {
		for i, s := range entry.Sets {
			if !s.Completed {
				continue
			}
			if i < len(prevSets) && prevSets[i].Completed {
				continue
			}
			events = append(events, models.SetLoggedEvent{
				WorkoutID:  e.current.ID,
				ExerciseID: entry.ExerciseID,
				Reps:       s.Reps,
				WeightKg:   s.WeightKg,
			})
		}
	}
	e.mu.Unlock()

	for _, ev := range events {
		e.processor.Process(context.Background(), ev)
	}
	return nil
}

// RemoveEntry deletes an entry. The active pointer falls back to the first
// remaining entry, and the entry's superset group dissolves if only one
// member remains.
func (e *Engine) RemoveEntry(entryID uuid.UUID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		return ErrNoActiveWorkout
	}
	entry := e.current.Entry(entryID)
	if entry == nil {
		return ErrEntryNotFound
	}
	group := entry.SupersetGroup

	kept := e.current.Entries[:0]
	for _, en := range e.current.Entries {
		if en.ID != entryID {
			kept = append(kept, en)
		}
	}
	e.current.Entries = kept

	if e.current.ActiveEntryID != nil && *e.current.ActiveEntryID == entryID {
		e.current.ActiveEntryID = nil
		if len(e.current.Entries) > 0 {
			id := e.current.Entries[0].ID
			e.current.ActiveEntryID = &id
		}
	}
	if group != nil {
		dissolveIfSingleton(e.current, *group)
	}
	e.persistLive()
	return nil
}

// ReplaceExercise swaps an entry's exercise identity in place, keeping its
// logged sets.
func (e *Engine) ReplaceExercise(entryID uuid.UUID, exerciseID, name string, muscleGroups []string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		return ErrNoActiveWorkout
	}
	entry := e.current.Entry(entryID)
	if entry == nil {
		return ErrEntryNotFound
	}
	entry.ExerciseID = exerciseID
	entry.Name = name
	entry.MuscleGroups = muscleGroups
	e.persistLive()
	return nil
}

// Finish freezes the live workout into a CompletedWorkout, updates the PR
// index, appends to the completed collection, clears the live workout, and
// emits activity events. Enrichment (cardio correlation) runs in the
// background and never blocks or fails the finish.
func (e *Engine) Finish(ctx context.Context) (models.CompletedWorkout, error) {
	e.mu.Lock()
	if e.current == nil {
		e.mu.Unlock()
		return models.CompletedWorkout{}, ErrNoActiveWorkout
	}
	if len(e.current.Entries) == 0 {
		e.mu.Unlock()
		return models.CompletedWorkout{}, ErrEmptyWorkout
	}

	now := e.now()
	started := e.current.StartedAt
	completed := models.CompletedWorkout{
		ID:        e.current.ID,
		Date:      now,
		StartedAt: &started,
		PlanID:    e.current.PlanID,
	}
	for _, entry := range e.current.Entries {
		completed.Entries = append(completed.Entries, *cloneEntry(entry))
	}

	res := e.index.ApplyWorkout(&completed)
	completed.PRCount = res.PRCount

	e.completed = append(e.completed, completed)
	sort.Slice(e.completed, func(i, j int) bool { return e.completed[i].Date.Before(e.completed[j].Date) })

	e.current = nil
	e.discarded = nil
	e.persistLive()

	setCount := 0
	for _, entry := range completed.Entries {
		for _, s := range entry.Sets {
			if s.Completed {
				setCount++
			}
		}
	}

	recs := e.index.Snapshot()
	backoff := append([]time.Duration(nil), e.backoff...)
	e.mu.Unlock()

	// Persist, sequenced for this aggregate; failures are non-fatal.
	if e.store != nil {
		if err := e.store.SaveCompletedWorkout(ctx, completed); err != nil {
			e.log.Error("saving completed workout", "workout", completed.ID, "error", err)
		}
		if err := e.store.SaveExerciseRecords(ctx, recs); err != nil {
			e.log.Error("saving exercise records", "error", err)
		}
	}

	e.emitFinishEvents(ctx, completed, res, setCount)
	e.startCardioMatch(completed, backoff)

	return completed, nil
}

// emitFinishEvents feeds the rewards engine: one event per new exercise,
// one per-exercise PR event, then the workout-completed event.
func (e *Engine) emitFinishEvents(ctx context.Context, w models.CompletedWorkout, res records.UpdateResult, setCount int) {
	if e.processor == nil {
		return
	}
	for _, exID := range res.NewExercises {
		name := exID
		for _, entry := range w.Entries {
			if entry.ExerciseID == exID {
				name = entry.Name
				break
			}
		}
		e.processor.Process(ctx, models.NewExerciseEvent{ExerciseID: exID, ExerciseName: name})
	}

	byExercise := make(map[string]int)
	names := make(map[string]string)
	for _, pr := range res.PRs {
		byExercise[pr.ExerciseID]++
		names[pr.ExerciseID] = pr.ExerciseName
	}
	for exID, count := range byExercise {
		e.processor.Process(ctx, models.PRAchievedEvent{
			WorkoutID:    w.ID,
			ExerciseID:   exID,
			ExerciseName: names[exID],
			Count:        count,
		})
	}

	e.processor.Process(ctx, models.WorkoutCompletedEvent{
		WorkoutID:    w.ID,
		PRCount:      res.PRCount,
		NewExercises: res.NewExercises,
		SetCount:     setCount,
	})
}

// Discard clears the live workout without producing a CompletedWorkout. The
// start-to-discard window is recorded so a later-arriving external cardio
// session inside it is suppressed from auto-import. One level of undo is
// retained until the next discard or finish. In-flight enrichment tied to
// the discarded workout is cancelled.
func (e *Engine) Discard() error {
	e.mu.Lock()
	if e.current == nil {
		e.mu.Unlock()
		return ErrNoActiveWorkout
	}

	now := e.now()
	w := e.current
	e.discarded = w
	e.current = nil

	if cancel, ok := e.matchCancel[w.ID]; ok {
		cancel()
		delete(e.matchCancel, w.ID)
	}
	if e.snapshots != nil {
		if err := e.snapshots.AddDiscardWindow(w.StartedAt, now); err != nil {
			e.log.Warn("recording discard window", "error", err)
		}
	}
	e.persistLive()
	e.mu.Unlock()
	return nil
}

// UndoDiscard restores the most recently discarded workout. Only one level
// of undo is kept.
func (e *Engine) UndoDiscard() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.discarded == nil {
		return ErrNothingToUndo
	}
	if e.current != nil {
		return nil // a new workout started; nothing to do
	}
	e.current = e.discarded
	e.discarded = nil
	e.persistLive()
	return nil
}

// ShouldSuppressCardio reports whether an external cardio session falls
// inside a recorded discard window and must not be auto-imported.
func (e *Engine) ShouldSuppressCardio(start, end time.Time) bool {
	if e.snapshots == nil {
		return false
	}
	in, err := e.snapshots.InDiscardWindow(start, end)
	if err != nil {
		e.log.Warn("checking discard windows", "error", err)
		return false
	}
	return in
}

// Close waits for in-flight enrichment work to settle.
func (e *Engine) Close() {
	e.mu.Lock()
	for id, cancel := range e.matchCancel {
		cancel()
		delete(e.matchCancel, id)
	}
	e.mu.Unlock()
	e.matchWG.Wait()
}

// persistLive writes the live snapshot under the engine mutex so rapid
// successive updates cannot race on the persisted state.
func (e *Engine) persistLive() {
	if e.snapshots == nil {
		return
	}
	if err := e.snapshots.SaveLive(e.current); err != nil {
		e.log.Error("saving live workout snapshot", "error", err)
	}
}

func cloneWorkout(w *models.CurrentWorkout) *models.CurrentWorkout {
	if w == nil {
		return nil
	}
	out := *w
	out.Entries = make([]*models.WorkoutEntry, len(w.Entries))
	for i, e := range w.Entries {
		out.Entries[i] = cloneEntry(e)
	}
	if w.ActiveEntryID != nil {
		id := *w.ActiveEntryID
		out.ActiveEntryID = &id
	}
	return &out
}

func cloneEntry(e *models.WorkoutEntry) *models.WorkoutEntry {
	out := *e
	out.Sets = append([]models.SetInput(nil), e.Sets...)
	out.MuscleGroups = append([]string(nil), e.MuscleGroups...)
	if e.SupersetGroup != nil {
		g := *e.SupersetGroup
		out.SupersetGroup = &g
	}
	return &out
}
