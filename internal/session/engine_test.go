package session

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/meltforce/ironlog/internal/models"
	"github.com/meltforce/ironlog/internal/records"
	"github.com/meltforce/ironlog/internal/rewards"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeProcessor struct {
	mu     sync.Mutex
	events []models.ActivityEvent
}

func (p *fakeProcessor) Process(_ context.Context, ev models.ActivityEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *fakeProcessor) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.EventName()
	}
	return out
}

type fakeSessionStore struct {
	mu      sync.Mutex
	saved   []models.CompletedWorkout
	recs    [][]models.ExerciseRecord
	cardio  *models.CardioSession
	finds   int
	updated []uuid.UUID
	matched []uuid.UUID
}

func (s *fakeSessionStore) SaveCompletedWorkout(_ context.Context, w models.CompletedWorkout) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, w)
	return nil
}

func (s *fakeSessionStore) UpdateWorkoutCardio(_ context.Context, workoutID, cardioID uuid.UUID, avgHR, calories *float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updated = append(s.updated, workoutID)
	return nil
}

func (s *fakeSessionStore) SaveExerciseRecords(_ context.Context, recs []models.ExerciseRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs = append(s.recs, recs)
	return nil
}

func (s *fakeSessionStore) FindUnmatchedCardio(_ context.Context, start, end time.Time) (*models.CardioSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finds++
	return s.cardio, nil
}

func (s *fakeSessionStore) MarkCardioMatched(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.matched = append(s.matched, id)
	return nil
}

func newTestSession(t *testing.T) (*Engine, *fakeProcessor, *fakeSessionStore) {
	t.Helper()
	proc := &fakeProcessor{}
	store := &fakeSessionStore{}
	e := NewEngine(records.NewIndex(0), proc, store, nil, testLogger())
	base := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	e.SetClock(func() time.Time { return base })
	e.SetMatchBackoff(nil) // no background matching unless a test opts in
	return e, proc, store
}

func completedSet(reps int, weight float64) models.SetInput {
	return models.SetInput{Reps: reps, WeightKg: weight, Mode: models.ModeWeighted, Tag: models.TagWorking, Completed: true}
}

func pendingSet(reps int, weight float64) models.SetInput {
	return models.SetInput{Reps: reps, WeightKg: weight, Mode: models.ModeWeighted, Tag: models.TagWorking}
}

func TestStartIsIdempotent(t *testing.T) {
	e, _, _ := newTestSession(t)

	w1 := e.Start()
	w2 := e.Start()
	if w1.ID != w2.ID {
		t.Fatalf("second Start created a new workout: %s != %s", w1.ID, w2.ID)
	}
}

func TestAddExerciseImplicitlyStartsAndFiresObserver(t *testing.T) {
	e, _, _ := newTestSession(t)

	var started int
	e.OnWorkoutStarted(func(models.CurrentWorkout) { started++ })

	id := e.AddExercise("bench-press", "Bench Press", []string{"chest"})
	e.AddExercise("squat", "Squat", nil)

	w := e.Current()
	if w == nil {
		t.Fatal("no live workout after AddExercise")
	}
	if len(w.Entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(w.Entries))
	}
	if w.ActiveEntryID == nil || *w.ActiveEntryID != id {
		t.Fatalf("active entry = %v, want first entry %s", w.ActiveEntryID, id)
	}
	if started != 1 {
		t.Fatalf("started observer fired %d times, want 1", started)
	}
}

func TestFirstCompletedSetClaimsActivePointer(t *testing.T) {
	e, _, _ := newTestSession(t)

	first := e.AddExercise("bench-press", "Bench Press", nil)
	second := e.AddExercise("squat", "Squat", nil)

	if err := e.UpdateEntrySets(second, []models.SetInput{completedSet(5, 100), pendingSet(5, 100)}); err != nil {
		t.Fatalf("UpdateEntrySets: %v", err)
	}

	w := e.Current()
	if w.ActiveEntryID == nil || *w.ActiveEntryID != second {
		t.Fatalf("active entry = %v, want %s (first completed set claims focus)", w.ActiveEntryID, second)
	}
	_ = first
}

func TestStandaloneAdvancesOnlyWhenAllSetsComplete(t *testing.T) {
	e, _, _ := newTestSession(t)

	first := e.AddExercise("bench-press", "Bench Press", nil)
	second := e.AddExercise("squat", "Squat", nil)
	if err := e.UpdateEntrySets(second, []models.SetInput{pendingSet(5, 100)}); err != nil {
		t.Fatalf("seeding second entry: %v", err)
	}

	// First completed set claims the pointer.
	if err := e.UpdateEntrySets(first, []models.SetInput{completedSet(8, 60), pendingSet(8, 60)}); err != nil {
		t.Fatalf("UpdateEntrySets: %v", err)
	}
	if w := e.Current(); *w.ActiveEntryID != first {
		t.Fatalf("active = %s, want %s", *w.ActiveEntryID, first)
	}

	// Second completed set: entry still incomplete? No, both done -> advance.
	if err := e.UpdateEntrySets(first, []models.SetInput{completedSet(8, 60), completedSet(8, 60)}); err != nil {
		t.Fatalf("UpdateEntrySets: %v", err)
	}
	if w := e.Current(); *w.ActiveEntryID != second {
		t.Fatalf("active = %s, want %s after completing all sets", *w.ActiveEntryID, second)
	}
}

func TestSupersetRoutesToMemberWithFewerCompletedSets(t *testing.T) {
	e, _, _ := newTestSession(t)

	a := e.AddExercise("bench-press", "Bench Press", nil)
	b := e.AddExercise("row", "Barbell Row", nil)
	if err := e.ToggleSuperset(b); err != nil {
		t.Fatalf("ToggleSuperset: %v", err)
	}

	if err := e.UpdateEntrySets(a, []models.SetInput{completedSet(8, 60), pendingSet(8, 60)}); err != nil {
		t.Fatalf("UpdateEntrySets: %v", err)
	}
	// a's first completed set claims the pointer outright.
	if w := e.Current(); *w.ActiveEntryID != a {
		t.Fatalf("active = %s, want %s", *w.ActiveEntryID, a)
	}

	if err := e.UpdateEntrySets(a, []models.SetInput{completedSet(8, 60), completedSet(8, 60)}); err != nil {
		t.Fatalf("UpdateEntrySets: %v", err)
	}
	// b has 0 completed < a's 2, so focus routes across the superset.
	if w := e.Current(); *w.ActiveEntryID != b {
		t.Fatalf("active = %s, want superset partner %s", *w.ActiveEntryID, b)
	}
}

func TestCompletedSupersetAdvancesOutsideGroup(t *testing.T) {
	e, _, _ := newTestSession(t)

	a := e.AddExercise("bench-press", "Bench Press", nil)
	b := e.AddExercise("row", "Barbell Row", nil)
	c := e.AddExercise("curl", "Curl", nil)
	if err := e.UpdateEntrySets(c, []models.SetInput{pendingSet(10, 20)}); err != nil {
		t.Fatalf("seeding third entry: %v", err)
	}
	if err := e.ToggleSuperset(b); err != nil {
		t.Fatalf("ToggleSuperset: %v", err)
	}

	if err := e.UpdateEntrySets(a, []models.SetInput{completedSet(8, 60)}); err != nil {
		t.Fatalf("UpdateEntrySets a: %v", err)
	}
	if err := e.UpdateEntrySets(b, []models.SetInput{completedSet(8, 40)}); err != nil {
		t.Fatalf("UpdateEntrySets b: %v", err)
	}
	// Re-updating b with the group now complete should hand off past the group.
	if err := e.UpdateEntrySets(b, []models.SetInput{completedSet(8, 40)}); err != nil {
		t.Fatalf("UpdateEntrySets b again: %v", err)
	}
	if w := e.Current(); *w.ActiveEntryID != c {
		t.Fatalf("active = %s, want %s outside the finished superset", *w.ActiveEntryID, c)
	}
}

func TestToggleSupersetPairsWithPreviousEntry(t *testing.T) {
	e, _, _ := newTestSession(t)

	a := e.AddExercise("bench-press", "Bench Press", nil)
	b := e.AddExercise("row", "Barbell Row", nil)

	if err := e.ToggleSuperset(b); err != nil {
		t.Fatalf("ToggleSuperset: %v", err)
	}
	w := e.Current()
	ea, eb := w.Entry(a), w.Entry(b)
	if ea.SupersetGroup == nil || eb.SupersetGroup == nil {
		t.Fatal("toggle did not group both entries")
	}
	if *ea.SupersetGroup != *eb.SupersetGroup {
		t.Fatal("entries ended up in different groups")
	}
	if ea.SupersetOrder != 0 || eb.SupersetOrder != 1 {
		t.Fatalf("orders = %d,%d, want 0,1", ea.SupersetOrder, eb.SupersetOrder)
	}

	// Toggling again detaches b and dissolves the now-singleton group.
	if err := e.ToggleSuperset(b); err != nil {
		t.Fatalf("second ToggleSuperset: %v", err)
	}
	w = e.Current()
	if w.Entry(a).SupersetGroup != nil || w.Entry(b).SupersetGroup != nil {
		t.Fatal("singleton group was not dissolved")
	}
}

func TestToggleSupersetOnFirstEntryIsNoop(t *testing.T) {
	e, _, _ := newTestSession(t)

	a := e.AddExercise("bench-press", "Bench Press", nil)
	if err := e.ToggleSuperset(a); err != nil {
		t.Fatalf("ToggleSuperset: %v", err)
	}
	if w := e.Current(); w.Entry(a).SupersetGroup != nil {
		t.Fatal("first entry was grouped with a nonexistent neighbor")
	}
}

func TestRemoveEntryDissolvesGroupAndFixesActivePointer(t *testing.T) {
	e, _, _ := newTestSession(t)

	a := e.AddExercise("bench-press", "Bench Press", nil)
	b := e.AddExercise("row", "Barbell Row", nil)
	if err := e.ToggleSuperset(b); err != nil {
		t.Fatalf("ToggleSuperset: %v", err)
	}

	if err := e.RemoveEntry(a); err != nil {
		t.Fatalf("RemoveEntry: %v", err)
	}
	w := e.Current()
	if len(w.Entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(w.Entries))
	}
	if w.Entry(b).SupersetGroup != nil {
		t.Fatal("group with one survivor was not dissolved")
	}
	if w.ActiveEntryID == nil || *w.ActiveEntryID != b {
		t.Fatalf("active entry = %v, want fallback to %s", w.ActiveEntryID, b)
	}
}

func TestUpdateSetsEmitsSetLoggedOnTransition(t *testing.T) {
	e, proc, _ := newTestSession(t)

	entry := e.AddExercise("bench-press", "Bench Press", nil)
	if err := e.UpdateEntrySets(entry, []models.SetInput{completedSet(8, 60), pendingSet(8, 60)}); err != nil {
		t.Fatalf("UpdateEntrySets: %v", err)
	}

	names := proc.names()
	if len(names) != 1 || names[0] != models.EventSetLogged {
		t.Fatalf("events = %v, want one set_logged", names)
	}
	ev, ok := proc.events[0].(models.SetLoggedEvent)
	if !ok {
		t.Fatalf("event is %T, want SetLoggedEvent", proc.events[0])
	}
	if ev.ExerciseID != "bench-press" || ev.Reps != 8 || ev.WeightKg != 60 {
		t.Fatalf("event = %+v", ev)
	}

	// Re-sending an already-completed set is not a new completion.
	if err := e.UpdateEntrySets(entry, []models.SetInput{completedSet(8, 60), pendingSet(8, 60)}); err != nil {
		t.Fatalf("UpdateEntrySets: %v", err)
	}
	if got := len(proc.names()); got != 1 {
		t.Fatalf("events after resend = %d, want 1", got)
	}

	// Completing the remaining set emits exactly one more.
	if err := e.UpdateEntrySets(entry, []models.SetInput{completedSet(8, 60), completedSet(8, 62.5)}); err != nil {
		t.Fatalf("UpdateEntrySets: %v", err)
	}
	if got := proc.names(); len(got) != 2 {
		t.Fatalf("events after second completion = %v, want 2", got)
	}
}

func TestCompletedSetGrantsRuleXP(t *testing.T) {
	rules := rewards.Rules{XPRules: map[string]rewards.XPRule{
		models.EventSetLogged: {XP: 2, PerDayMax: 4},
	}}
	ledger := rewards.NewEngine(rules, nil, testLogger())
	e := NewEngine(records.NewIndex(0), ledger, nil, nil, testLogger())
	e.SetMatchBackoff(nil)

	entry := e.AddExercise("bench-press", "Bench Press", nil)
	if err := e.UpdateEntrySets(entry, []models.SetInput{completedSet(8, 60)}); err != nil {
		t.Fatalf("UpdateEntrySets: %v", err)
	}
	if got := ledger.Progress().XP; got != 2 {
		t.Fatalf("XP after one set = %d, want 2", got)
	}

	// Two more completions: the second lands on the per-day cap, the third
	// clamps to zero.
	sets := []models.SetInput{completedSet(8, 60), completedSet(8, 62.5), completedSet(8, 65)}
	if err := e.UpdateEntrySets(entry, sets); err != nil {
		t.Fatalf("UpdateEntrySets: %v", err)
	}
	if got := ledger.Progress().XP; got != 4 {
		t.Fatalf("XP after cap = %d, want 4", got)
	}
}

func TestAddToSupersetRejectsUnknownGroup(t *testing.T) {
	e, _, _ := newTestSession(t)

	a := e.AddExercise("bench-press", "Bench Press", nil)
	if err := e.AddToSuperset(a, uuid.New()); err != ErrEntryNotFound {
		t.Fatalf("AddToSuperset into empty group = %v, want ErrEntryNotFound", err)
	}
	if e.Current().Entry(a).SupersetGroup != nil {
		t.Fatal("entry was grouped into a memberless superset")
	}
}

func TestAddToSupersetJoinsGroupAndDissolvesOldOne(t *testing.T) {
	e, _, _ := newTestSession(t)

	a := e.AddExercise("bench-press", "Bench Press", nil)
	b := e.AddExercise("incline-press", "Incline Press", nil)
	c := e.AddExercise("row", "Row", nil)
	d := e.AddExercise("curl", "Curl", nil)

	if err := e.ToggleSuperset(b); err != nil {
		t.Fatalf("ToggleSuperset(b): %v", err)
	}
	if err := e.ToggleSuperset(d); err != nil {
		t.Fatalf("ToggleSuperset(d): %v", err)
	}

	w := e.Current()
	group := *w.Entry(a).SupersetGroup
	if err := e.AddToSuperset(c, group); err != nil {
		t.Fatalf("AddToSuperset: %v", err)
	}

	w = e.Current()
	if got := len(w.GroupMembers(group)); got != 3 {
		t.Fatalf("group members = %d, want 3", got)
	}
	if w.Entry(d).SupersetGroup != nil {
		t.Fatal("old group left with a single member was not dissolved")
	}
}

func TestFinishRequiresEntries(t *testing.T) {
	e, _, _ := newTestSession(t)

	if _, err := e.Finish(context.Background()); err != ErrNoActiveWorkout {
		t.Fatalf("Finish without workout = %v, want ErrNoActiveWorkout", err)
	}
	e.Start()
	if _, err := e.Finish(context.Background()); err != ErrEmptyWorkout {
		t.Fatalf("Finish of empty workout = %v, want ErrEmptyWorkout", err)
	}
}

func TestFinishEmitsEventsAndPersists(t *testing.T) {
	e, proc, store := newTestSession(t)

	entry := e.AddExercise("bench-press", "Bench Press", nil)
	sets := []models.SetInput{completedSet(8, 60), completedSet(8, 60)}
	if err := e.UpdateEntrySets(entry, sets); err != nil {
		t.Fatalf("UpdateEntrySets: %v", err)
	}

	w, err := e.Finish(context.Background())
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if e.Current() != nil {
		t.Fatal("live workout survived Finish")
	}
	if got := e.Completed(); len(got) != 1 || got[0].ID != w.ID {
		t.Fatalf("completed collection = %v, want the finished workout", got)
	}

	names := proc.names()
	want := []string{models.EventSetLogged, models.EventSetLogged, models.EventExerciseNew, models.EventWorkoutCompleted}
	if len(names) != len(want) {
		t.Fatalf("events = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("event order = %v, want %v", names, want)
		}
	}
	wc, ok := proc.events[len(proc.events)-1].(models.WorkoutCompletedEvent)
	if !ok {
		t.Fatalf("last event is %T, want WorkoutCompletedEvent", proc.events[len(proc.events)-1])
	}
	if wc.SetCount != 2 {
		t.Fatalf("SetCount = %d, want 2", wc.SetCount)
	}

	if len(store.saved) != 1 || store.saved[0].ID != w.ID {
		t.Fatalf("persisted workouts = %v", store.saved)
	}
	if len(store.recs) != 1 {
		t.Fatalf("persisted record snapshots = %d, want 1", len(store.recs))
	}
}

func TestFinishEmitsPREventPerExercise(t *testing.T) {
	e, proc, _ := newTestSession(t)

	// First session establishes baselines.
	entry := e.AddExercise("bench-press", "Bench Press", nil)
	if err := e.UpdateEntrySets(entry, []models.SetInput{completedSet(8, 60)}); err != nil {
		t.Fatalf("UpdateEntrySets: %v", err)
	}
	if _, err := e.Finish(context.Background()); err != nil {
		t.Fatalf("first Finish: %v", err)
	}

	// Second session beats the rep-count record twice.
	entry = e.AddExercise("bench-press", "Bench Press", nil)
	if err := e.UpdateEntrySets(entry, []models.SetInput{completedSet(8, 62.5), completedSet(8, 65)}); err != nil {
		t.Fatalf("UpdateEntrySets: %v", err)
	}
	w, err := e.Finish(context.Background())
	if err != nil {
		t.Fatalf("second Finish: %v", err)
	}
	if w.PRCount != 2 {
		t.Fatalf("PRCount = %d, want 2", w.PRCount)
	}

	var prEvents []models.PRAchievedEvent
	for _, ev := range proc.events {
		if pr, ok := ev.(models.PRAchievedEvent); ok {
			prEvents = append(prEvents, pr)
		}
	}
	if len(prEvents) != 1 {
		t.Fatalf("pr events = %d, want 1 grouped event per exercise", len(prEvents))
	}
	if prEvents[0].Count != 2 || prEvents[0].ExerciseID != "bench-press" {
		t.Fatalf("pr event = %+v", prEvents[0])
	}
}

func TestDiscardAndUndo(t *testing.T) {
	e, _, _ := newTestSession(t)

	if err := e.Discard(); err != ErrNoActiveWorkout {
		t.Fatalf("Discard without workout = %v, want ErrNoActiveWorkout", err)
	}

	id := e.AddExercise("bench-press", "Bench Press", nil)
	if err := e.Discard(); err != nil {
		t.Fatalf("Discard: %v", err)
	}
	if e.Current() != nil {
		t.Fatal("live workout survived Discard")
	}

	if err := e.UndoDiscard(); err != nil {
		t.Fatalf("UndoDiscard: %v", err)
	}
	w := e.Current()
	if w == nil || w.Entry(id) == nil {
		t.Fatal("UndoDiscard did not restore the workout")
	}

	if err := e.Discard(); err != nil {
		t.Fatalf("second Discard: %v", err)
	}
	if err := e.UndoDiscard(); err != nil {
		t.Fatalf("second UndoDiscard: %v", err)
	}
	if err := e.Discard(); err != nil {
		t.Fatalf("third Discard: %v", err)
	}
	if err := e.UndoDiscard(); err != nil {
		t.Fatalf("third UndoDiscard: %v", err)
	}
	if err := e.UndoDiscard(); err != ErrNothingToUndo {
		t.Fatalf("UndoDiscard twice = %v, want ErrNothingToUndo", err)
	}
}

func TestUndoDiscardYieldsToNewWorkout(t *testing.T) {
	e, _, _ := newTestSession(t)

	e.AddExercise("bench-press", "Bench Press", nil)
	if err := e.Discard(); err != nil {
		t.Fatalf("Discard: %v", err)
	}
	fresh := e.Start()
	if err := e.UndoDiscard(); err != nil {
		t.Fatalf("UndoDiscard: %v", err)
	}
	if w := e.Current(); w.ID != fresh.ID {
		t.Fatalf("undo overwrote a newer workout: %s, want %s", w.ID, fresh.ID)
	}
}

func TestStartPlannedSeedsGhostSets(t *testing.T) {
	e, _, _ := newTestSession(t)

	plan := models.PlannedWorkout{
		ID:   uuid.New(),
		Name: "Push Day",
		Exercises: []models.PlannedExercise{
			{
				ExerciseID: "bench-press",
				Name:       "Bench Press",
				Sets: []models.PlannedSet{
					{TargetReps: 8, TargetWeightKg: 60},
					{TargetReps: 8, TargetWeightKg: 60},
				},
			},
			{ExerciseID: "ohp", Name: "Overhead Press", Sets: []models.PlannedSet{{TargetReps: 10, TargetWeightKg: 35}}},
		},
	}

	w := e.StartPlanned(plan)
	if len(w.Entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(w.Entries))
	}
	if w.PlanID == nil || *w.PlanID != plan.ID {
		t.Fatalf("plan id = %v, want %s", w.PlanID, plan.ID)
	}
	for _, entry := range w.Entries {
		for _, s := range entry.Sets {
			if !s.Ghost || s.Completed {
				t.Fatalf("planned set %+v should be an uncompleted ghost", s)
			}
			if s.Mode != models.ModeWeighted || s.Tag != models.TagWorking {
				t.Fatalf("planned set defaults wrong: %+v", s)
			}
		}
	}
	if w.ActiveEntryID == nil || *w.ActiveEntryID != w.Entries[0].ID {
		t.Fatal("active pointer should start at the first planned entry")
	}

	again := e.StartPlanned(plan)
	if again.ID != w.ID {
		t.Fatal("StartPlanned replaced an active workout")
	}
}

func TestRecoverDiscardsLiveWorkoutAfterForceQuit(t *testing.T) {
	dir := t.TempDir()

	snaps, err := OpenSnapshotStore(dir)
	if err != nil {
		t.Fatalf("OpenSnapshotStore: %v", err)
	}
	e := NewEngine(records.NewIndex(0), nil, nil, snaps, testLogger())
	e.AddExercise("bench-press", "Bench Press", nil)
	if err := snaps.MarkCleanShutdown(false); err != nil {
		t.Fatalf("MarkCleanShutdown: %v", err)
	}
	if err := snaps.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	snaps2, err := OpenSnapshotStore(dir)
	if err != nil {
		t.Fatalf("reopening snapshot store: %v", err)
	}
	defer snaps2.Close()
	e2 := NewEngine(records.NewIndex(0), nil, nil, snaps2, testLogger())
	e2.Recover(nil)
	if e2.Current() != nil {
		t.Fatal("live workout survived an unclean shutdown")
	}

	live, err := snaps2.LoadLive()
	if err != nil {
		t.Fatalf("LoadLive: %v", err)
	}
	if live != nil {
		t.Fatal("stale snapshot was not cleared")
	}
}

func TestRecoverRestoresLiveWorkoutAfterCleanShutdown(t *testing.T) {
	dir := t.TempDir()

	snaps, err := OpenSnapshotStore(dir)
	if err != nil {
		t.Fatalf("OpenSnapshotStore: %v", err)
	}
	e := NewEngine(records.NewIndex(0), nil, nil, snaps, testLogger())
	id := e.AddExercise("bench-press", "Bench Press", nil)
	if err := snaps.MarkCleanShutdown(true); err != nil {
		t.Fatalf("MarkCleanShutdown: %v", err)
	}
	if err := snaps.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	snaps2, err := OpenSnapshotStore(dir)
	if err != nil {
		t.Fatalf("reopening snapshot store: %v", err)
	}
	defer snaps2.Close()
	e2 := NewEngine(records.NewIndex(0), nil, nil, snaps2, testLogger())
	e2.Recover(nil)

	w := e2.Current()
	if w == nil || w.Entry(id) == nil {
		t.Fatal("live workout was not restored after a clean shutdown")
	}
}

func TestRecoverSortsCompletedByDate(t *testing.T) {
	e, _, _ := newTestSession(t)

	later := models.CompletedWorkout{ID: uuid.New(), Date: time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)}
	earlier := models.CompletedWorkout{ID: uuid.New(), Date: time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)}
	e.Recover([]models.CompletedWorkout{later, earlier})

	got := e.Completed()
	if len(got) != 2 || got[0].ID != earlier.ID {
		t.Fatalf("completed order wrong: %v", got)
	}
}

func TestUpdateSetsOnUnknownEntry(t *testing.T) {
	e, _, _ := newTestSession(t)

	if err := e.UpdateEntrySets(uuid.New(), nil); err != ErrNoActiveWorkout {
		t.Fatalf("err = %v, want ErrNoActiveWorkout", err)
	}
	e.Start()
	if err := e.UpdateEntrySets(uuid.New(), nil); err != ErrEntryNotFound {
		t.Fatalf("err = %v, want ErrEntryNotFound", err)
	}
}

func TestReplaceExerciseKeepsSets(t *testing.T) {
	e, _, _ := newTestSession(t)

	id := e.AddExercise("bench-press", "Bench Press", nil)
	if err := e.UpdateEntrySets(id, []models.SetInput{completedSet(8, 60)}); err != nil {
		t.Fatalf("UpdateEntrySets: %v", err)
	}
	if err := e.ReplaceExercise(id, "incline-press", "Incline Press", []string{"chest"}); err != nil {
		t.Fatalf("ReplaceExercise: %v", err)
	}

	entry := e.Current().Entry(id)
	if entry.ExerciseID != "incline-press" {
		t.Fatalf("exercise id = %s", entry.ExerciseID)
	}
	if len(entry.Sets) != 1 || !entry.Sets[0].Completed {
		t.Fatal("logged sets were lost on replace")
	}
}
