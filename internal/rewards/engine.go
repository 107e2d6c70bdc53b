// Package rewards translates activity events into XP, coins, achievement
// unlocks, and streak transitions, persisting an append-only ledger.
package rewards

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/meltforce/ironlog/internal/models"
)

// ErrFreezeNotEligible is returned when a streak freeze cannot be activated.
// Callers should use the companion eligibility query before offering the
// action.
var ErrFreezeNotEligible = errors.New("streak freeze not eligible")

// Store persists rewards state. All writes are treated as non-fatal: the
// in-memory state stays authoritative for the running process and failures
// are logged.
type Store interface {
	SaveProgress(ctx context.Context, p models.RewardProgress) error
	AppendLedger(ctx context.Context, entries []models.LedgerEntry) error
	SaveAchievement(ctx context.Context, a models.Achievement) error
}

// SummaryLine is one line item in a reward summary, suitable for a
// celebratory summary screen.
type SummaryLine struct {
	Source string `json:"source"`
	Icon   string `json:"icon"`
	XP     int    `json:"xp"`
	Detail string `json:"detail,omitempty"`
}

// Summary describes the total effect of one processed event.
type Summary struct {
	Event                string        `json:"event"`
	XPGained             int           `json:"xp_gained"`
	CoinsGained          int           `json:"coins_gained"`
	XPBefore             int           `json:"xp_before"`
	XPAfter              int           `json:"xp_after"`
	LevelBefore          int           `json:"level_before"`
	LevelAfter           int           `json:"level_after"`
	LevelUp              bool          `json:"level_up"`
	NextLevelAt          int           `json:"next_level_at"`
	StreakBefore         int           `json:"streak_before"`
	StreakAfter          int           `json:"streak_after"`
	MilestoneHit         bool          `json:"milestone_hit"`
	AchievementsUnlocked []string      `json:"achievements_unlocked,omitempty"`
	PRCount              int           `json:"pr_count"`
	NewExercises         int           `json:"new_exercises"`
	Lines                []SummaryLine `json:"lines,omitempty"`
}

// Engine is the progression ledger engine. All mutations are serialized
// through its mutex; a recent-ledger cache backs the per-day and per-workout
// award caps.
type Engine struct {
	mu           sync.Mutex
	rules        Rules
	progress     models.RewardProgress
	achievements map[string]*models.Achievement
	ledger       []models.LedgerEntry

	store     Store
	log       *slog.Logger
	loc       *time.Location
	now       func() time.Time
	observers []func(Summary)
}

// NewEngine creates an engine with the given rule set. store may be nil for
// a purely in-memory engine.
func NewEngine(rules Rules, store Store, log *slog.Logger) *Engine {
	return &Engine{
		rules:        rules,
		achievements: make(map[string]*models.Achievement),
		store:        store,
		log:          log,
		loc:          time.Local,
		now:          time.Now,
	}
}

// SetClock overrides the engine's clock and day-boundary location. Zero
// values keep the current settings.
func (e *Engine) SetClock(now func() time.Time, loc *time.Location) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if now != nil {
		e.now = now
	}
	if loc != nil {
		e.loc = loc
	}
}

// Restore seeds the engine from persisted state. Stored level fields are a
// cache: they are recomputed from total XP so drifted values self-heal.
// recent should contain at least today's ledger entries; they back the
// rate-limit caps.
func (e *Engine) Restore(p models.RewardProgress, achievements []models.Achievement, recent []models.LedgerEntry) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p.Level, p.LevelFloor, p.LevelCeiling = LevelForXP(p.XP, e.rules.curve())
	e.progress = p

	e.achievements = make(map[string]*models.Achievement, len(achievements))
	for i := range achievements {
		a := achievements[i]
		e.achievements[a.ID] = &a
	}
	e.ledger = append([]models.LedgerEntry(nil), recent...)
}

// Reset clears all progression state: XP, coins, streaks, achievements, and
// the ledger cache. The caller deletes the persisted rows separately.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	var p models.RewardProgress
	p.Level, p.LevelFloor, p.LevelCeiling = LevelForXP(0, e.rules.curve())
	e.progress = p
	e.achievements = make(map[string]*models.Achievement)
	e.ledger = nil
}

// Subscribe registers an observer invoked after every event with nonzero
// effect. Observers run on the processing goroutine and must not block.
func (e *Engine) Subscribe(fn func(Summary)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observers = append(e.observers, fn)
}

// Progress returns a copy of the current progression state.
func (e *Engine) Progress() models.RewardProgress {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.progress
}

// Achievements returns copies of all known achievements.
func (e *Engine) Achievements() []models.Achievement {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]models.Achievement, 0, len(e.achievements))
	for _, a := range e.achievements {
		out = append(out, *a)
	}
	return out
}

// Ledger returns a copy of the in-memory ledger cache, newest last.
func (e *Engine) Ledger() []models.LedgerEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]models.LedgerEntry(nil), e.ledger...)
}

// batch accumulates the effects of one Process call.
type batch struct {
	entries      []models.LedgerEntry
	xp           int
	coins        int
	unlocked     []string
	changed      []models.Achievement
	milestoneHit bool
}

func (b *batch) add(e *Engine, event, ruleID string, xp, coins int, meta map[string]string) {
	b.entries = append(b.entries, models.LedgerEntry{
		ID:        uuid.New(),
		Event:     event,
		RuleID:    ruleID,
		XP:        xp,
		Coins:     coins,
		Meta:      meta,
		CreatedAt: e.now(),
	})
	b.xp += xp
	b.coins += coins
}

// Process runs the full pipeline for one event: XP rule lookup with cap
// clamping, achievement evaluation, streak evaluation for activity events,
// then persist and notify. Missing rule configuration degrades to
// zero-effect grants.
func (e *Engine) Process(ctx context.Context, ev models.ActivityEvent) {
	e.mu.Lock()

	var b batch
	xpBefore := e.progress.XP
	levelBefore := e.progress.Level
	if levelBefore == 0 {
		levelBefore, _, _ = LevelForXP(xpBefore, e.rules.curve())
	}
	streakBefore := e.progress.DailyStreak

	e.applyXPRule(ev, &b)
	e.applyAchievements(ev, &b)
	if isActivityEvent(ev) {
		e.applyDailyStreak(&b)
	}

	prCount, newExercises := eventCounts(ev)
	if len(b.entries) == 0 && b.xp == 0 && b.coins == 0 && prCount == 0 && newExercises == 0 {
		e.mu.Unlock()
		return
	}

	e.progress.XP += b.xp
	e.progress.Coins += b.coins
	level, floor, ceiling := LevelForXP(e.progress.XP, e.rules.curve())
	e.progress.Level, e.progress.LevelFloor, e.progress.LevelCeiling = level, floor, ceiling
	e.ledger = append(e.ledger, b.entries...)

	summary := Summary{
		Event:                ev.EventName(),
		XPGained:             b.xp,
		CoinsGained:          b.coins,
		XPBefore:             xpBefore,
		XPAfter:              e.progress.XP,
		LevelBefore:          levelBefore,
		LevelAfter:           level,
		LevelUp:              level > levelBefore,
		NextLevelAt:          ceiling,
		StreakBefore:         streakBefore,
		StreakAfter:          e.progress.DailyStreak,
		MilestoneHit:         b.milestoneHit,
		AchievementsUnlocked: b.unlocked,
		PRCount:              prCount,
		NewExercises:         newExercises,
		Lines:                summaryLines(b.entries),
	}
	progress := e.progress
	changed := b.changed
	observers := append([]func(Summary){}, e.observers...)
	e.mu.Unlock()

	e.persist(ctx, progress, b.entries, changed)
	for _, fn := range observers {
		fn(summary)
	}
}

// persist writes the batch. Failures are logged, never propagated: the
// in-memory state remains the source of truth for this process run.
func (e *Engine) persist(ctx context.Context, p models.RewardProgress, entries []models.LedgerEntry, achievements []models.Achievement) {
	if e.store == nil {
		return
	}
	if len(entries) > 0 {
		if err := e.store.AppendLedger(ctx, entries); err != nil {
			e.log.Error("appending ledger entries", "count", len(entries), "error", err)
		}
	}
	if err := e.store.SaveProgress(ctx, p); err != nil {
		e.log.Error("saving reward progress", "error", err)
	}
	for _, a := range achievements {
		if err := e.store.SaveAchievement(ctx, a); err != nil {
			e.log.Error("saving achievement", "id", a.ID, "error", err)
		}
	}
}

// applyXPRule computes the event's base grant and clamps it by the active
// caps. The clamp order matters: a full cap reduces the grant to zero, never
// negative.
func (e *Engine) applyXPRule(ev models.ActivityEvent, b *batch) {
	name := ev.EventName()
	rule, ok := e.rules.XPRules[name]
	if !ok {
		return
	}

	grant := rule.XP
	workoutID, hasWorkout := eventWorkoutID(ev)
	exerciseID, hasExercise := eventExerciseID(ev)

	if rule.PerDayMax > 0 {
		room := rule.PerDayMax - e.awardedToday(name)
		grant = clamp(grant, room)
	}
	if rule.OncePerWorkout && hasWorkout && e.hasWorkoutGrant(name, workoutID) {
		grant = 0
	}
	if rule.PerWorkoutCap > 0 && hasWorkout {
		room := rule.PerWorkoutCap - e.awardedForWorkout(name, workoutID)
		grant = clamp(grant, room)
	}
	if rule.PerExerciseDailyCap > 0 && hasExercise {
		room := rule.PerExerciseDailyCap - e.awardedTodayForExercise(name, exerciseID)
		grant = clamp(grant, room)
	}

	if grant <= 0 && rule.XP > 0 {
		return // fully capped; no coins either
	}

	meta := make(map[string]string)
	if hasWorkout {
		meta["workout_id"] = workoutID.String()
	}
	if hasExercise {
		meta["exercise_id"] = exerciseID
	}
	b.add(e, name, name, grant, rule.Coins, meta)
}

func clamp(grant, room int) int {
	if room < 0 {
		room = 0
	}
	if grant > room {
		return room
	}
	return grant
}

// applyAchievements advances the dynamic per-exercise PR achievement and all
// static achievements triggered by the event. Unlock is a one-way
// transition; unlocked achievements make no further progress.
func (e *Engine) applyAchievements(ev models.ActivityEvent, b *batch) {
	if pr, ok := ev.(models.PRAchievedEvent); ok && pr.ExerciseID != "" {
		id := "pr_" + pr.ExerciseID
		a := e.achievements[id]
		if a == nil {
			title := pr.ExerciseName
			if title == "" {
				title = pr.ExerciseID
			}
			a = &models.Achievement{
				ID:     id,
				Title:  fmt.Sprintf("First PR: %s", title),
				Target: 1,
			}
			e.achievements[id] = a
		}
		if !a.Unlocked() {
			a.Progress = 1
			e.unlock(a, ev.EventName(), e.rules.PR.AchievementXP, e.rules.PR.AchievementCoins, b)
		}
	}

	name := ev.EventName()
	for _, def := range e.rules.Achievements {
		if def.Trigger != name {
			continue
		}
		a := e.achievements[def.ID]
		if a == nil {
			a = &models.Achievement{
				ID:          def.ID,
				Title:       def.Title,
				Description: def.Description,
				Target:      def.Threshold,
				Tier:        def.Tier,
			}
			e.achievements[def.ID] = a
		}
		if a.Unlocked() {
			continue
		}
		a.Progress += progressAmount(ev)
		if a.Target > 0 && a.Progress >= a.Target {
			a.Progress = a.Target
			e.unlock(a, name, def.RewardXP, def.RewardCoins, b)
		} else {
			b.changed = append(b.changed, *a)
		}
	}
}

func (e *Engine) unlock(a *models.Achievement, event string, xp, coins int, b *batch) {
	t := e.now()
	a.UnlockedAt = &t
	b.unlocked = append(b.unlocked, a.ID)
	b.changed = append(b.changed, *a)
	if xp > 0 || coins > 0 {
		b.add(e, event, "achievement:"+a.ID, xp, coins, map[string]string{"achievement": a.ID})
	}
}

// applyDailyStreak runs the once-per-day streak transition, milestone XP,
// and the freeze-return bonus.
func (e *Engine) applyDailyStreak(b *batch) {
	now := e.now()
	res := nextDailyStreak(e.progress.LastActivityDate, e.progress.DailyStreak, e.progress.FreezeActive, now, e.loc)
	if !res.Changed {
		return
	}

	today := dateOf(now, e.loc)
	e.progress.DailyStreak = res.Streak
	if res.Streak > e.progress.LongestDailyStreak {
		e.progress.LongestDailyStreak = res.Streak
	}
	e.progress.LastActivityDate = &today

	if xp, ok := e.rules.Streaks.Milestones[res.Streak]; ok && xp > 0 {
		b.milestoneHit = true
		b.add(e, "streak", "streak_milestone", xp, 0, map[string]string{"streak": fmt.Sprint(res.Streak)})
	}

	if res.FreezeConsumed {
		e.progress.FreezeActive = false
		bonus := e.rules.Streaks.FreezeReturnBonusXP
		grantedToday := e.progress.LastFreezeReturnBonus != nil &&
			daysBetween(*e.progress.LastFreezeReturnBonus, now, e.loc) == 0
		if bonus > 0 && !grantedToday {
			e.progress.LastFreezeReturnBonus = &today
			b.add(e, "streak", "freeze_return", bonus, 0, nil)
		}
	}
}

// ApplyWeeklyGoals counts the week containing `at` toward the weekly-goal
// streaks. A week counts toward the regular streak when either target is
// met, and toward the super streak only when both are. Each week is counted
// at most once. The weekly freeze absorbs a one-week gap for the regular
// streak only.
func (e *Engine) ApplyWeeklyGoals(ctx context.Context, at time.Time, strengthDays, activeMinutes int) {
	goals := e.rules.WeeklyGoals
	if goals.StrengthDays <= 0 && goals.ActiveMinutes <= 0 {
		return // inert rule set
	}

	e.mu.Lock()
	week := WeekStartOf(at, e.loc)
	if e.progress.LastCountedWeek != nil && week.Equal(*e.progress.LastCountedWeek) {
		e.mu.Unlock()
		return
	}

	strengthMet := goals.StrengthDays > 0 && strengthDays >= goals.StrengthDays
	minutesMet := goals.ActiveMinutes > 0 && activeMinutes >= goals.ActiveMinutes
	if !strengthMet && !minutesMet {
		e.mu.Unlock()
		return
	}

	prev := e.progress.LastCountedWeek
	switch {
	case prev == nil:
		e.progress.WeeklyStreak = 1
	case prev.AddDate(0, 0, 7).Equal(week):
		e.progress.WeeklyStreak++
	case e.progress.WeeklyFreezeActive && prev.AddDate(0, 0, 14).Equal(week):
		e.progress.WeeklyStreak++
		e.progress.WeeklyFreezeActive = false
	default:
		e.progress.WeeklyStreak = 1
	}
	e.progress.LastCountedWeek = &week

	if strengthMet && minutesMet {
		sprev := e.progress.LastSuperCountedWeek
		if sprev != nil && sprev.AddDate(0, 0, 7).Equal(week) {
			e.progress.SuperWeeklyStreak++
		} else {
			e.progress.SuperWeeklyStreak = 1
		}
		e.progress.LastSuperCountedWeek = &week
	}

	progress := e.progress
	e.mu.Unlock()

	if e.store != nil {
		if err := e.store.SaveProgress(ctx, progress); err != nil {
			e.log.Error("saving weekly streak progress", "error", err)
		}
	}
}

// CanActivateDailyFreeze reports whether a daily streak freeze may be
// activated now.
func (e *Engine) CanActivateDailyFreeze() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.canActivateDailyFreezeLocked()
}

func (e *Engine) canActivateDailyFreezeLocked() bool {
	s := e.rules.freezeRules()
	if e.progress.FreezeActive {
		return false
	}
	if e.progress.DailyStreak < s.DailyFreezeMinStreak {
		return false
	}
	if e.progress.LastFreezeActivated != nil &&
		daysBetween(*e.progress.LastFreezeActivated, e.now(), e.loc) < s.DailyFreezeCooldownDays {
		return false
	}
	return true
}

// ActivateDailyFreeze arms the daily streak freeze. Returns
// ErrFreezeNotEligible when the minimum streak, cooldown, or
// already-frozen preconditions fail.
func (e *Engine) ActivateDailyFreeze(ctx context.Context) error {
	e.mu.Lock()
	if !e.canActivateDailyFreezeLocked() {
		e.mu.Unlock()
		return ErrFreezeNotEligible
	}
	now := e.now()
	e.progress.FreezeActive = true
	e.progress.LastFreezeActivated = &now
	progress := e.progress
	e.mu.Unlock()

	if e.store != nil {
		if err := e.store.SaveProgress(ctx, progress); err != nil {
			e.log.Error("saving freeze activation", "error", err)
		}
	}
	return nil
}

// CanActivateWeeklyFreeze reports whether the weekly streak freeze may be
// activated now.
func (e *Engine) CanActivateWeeklyFreeze() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.canActivateWeeklyFreezeLocked()
}

func (e *Engine) canActivateWeeklyFreezeLocked() bool {
	s := e.rules.freezeRules()
	if e.progress.WeeklyFreezeActive {
		return false
	}
	if e.progress.WeeklyStreak < s.WeeklyFreezeMinStreak {
		return false
	}
	if e.progress.LastWeeklyFreezeUsed != nil &&
		daysBetween(*e.progress.LastWeeklyFreezeUsed, e.now(), e.loc) < s.WeeklyFreezeCooldownWeeks*7 {
		return false
	}
	return true
}

// ActivateWeeklyFreeze arms the weekly streak freeze.
func (e *Engine) ActivateWeeklyFreeze(ctx context.Context) error {
	e.mu.Lock()
	if !e.canActivateWeeklyFreezeLocked() {
		e.mu.Unlock()
		return ErrFreezeNotEligible
	}
	now := e.now()
	e.progress.WeeklyFreezeActive = true
	e.progress.LastWeeklyFreezeUsed = &now
	progress := e.progress
	e.mu.Unlock()

	if e.store != nil {
		if err := e.store.SaveProgress(ctx, progress); err != nil {
			e.log.Error("saving weekly freeze activation", "error", err)
		}
	}
	return nil
}

// --- ledger cache queries backing the caps ---

func (e *Engine) awardedToday(rule string) int {
	now := e.now()
	total := 0
	for _, le := range e.ledger {
		if le.RuleID == rule && daysBetween(le.CreatedAt, now, e.loc) == 0 {
			total += le.XP
		}
	}
	return total
}

func (e *Engine) hasWorkoutGrant(rule string, workoutID uuid.UUID) bool {
	id := workoutID.String()
	for _, le := range e.ledger {
		if le.RuleID == rule && le.Meta["workout_id"] == id {
			return true
		}
	}
	return false
}

func (e *Engine) awardedForWorkout(rule string, workoutID uuid.UUID) int {
	id := workoutID.String()
	total := 0
	for _, le := range e.ledger {
		if le.RuleID == rule && le.Meta["workout_id"] == id {
			total += le.XP
		}
	}
	return total
}

func (e *Engine) awardedTodayForExercise(rule, exerciseID string) int {
	now := e.now()
	total := 0
	for _, le := range e.ledger {
		if le.RuleID == rule && le.Meta["exercise_id"] == exerciseID &&
			daysBetween(le.CreatedAt, now, e.loc) == 0 {
			total += le.XP
		}
	}
	return total
}

// --- typed event helpers ---

func eventWorkoutID(ev models.ActivityEvent) (uuid.UUID, bool) {
	switch v := ev.(type) {
	case models.WorkoutCompletedEvent:
		return v.WorkoutID, v.WorkoutID != uuid.Nil
	case models.SetLoggedEvent:
		return v.WorkoutID, v.WorkoutID != uuid.Nil
	case models.PRAchievedEvent:
		return v.WorkoutID, v.WorkoutID != uuid.Nil
	case models.WarmupCompletedEvent:
		return v.WorkoutID, v.WorkoutID != uuid.Nil
	}
	return uuid.Nil, false
}

func eventExerciseID(ev models.ActivityEvent) (string, bool) {
	switch v := ev.(type) {
	case models.SetLoggedEvent:
		return v.ExerciseID, v.ExerciseID != ""
	case models.PRAchievedEvent:
		return v.ExerciseID, v.ExerciseID != ""
	case models.NewExerciseEvent:
		return v.ExerciseID, v.ExerciseID != ""
	}
	return "", false
}

// progressAmount is the achievement progress one event contributes: an
// explicit count where the event carries one, otherwise 1.
func progressAmount(ev models.ActivityEvent) int {
	switch v := ev.(type) {
	case models.WorkoutCompletedEvent:
		return 1
	case models.PRAchievedEvent:
		if v.Count > 0 {
			return v.Count
		}
	case models.SetLoggedEvent:
		return 1
	}
	return 1
}

// isActivityEvent reports whether the event counts toward streaks. Passive
// events (first-time exercise bookkeeping) do not.
func isActivityEvent(ev models.ActivityEvent) bool {
	switch ev.EventName() {
	case models.EventWorkoutCompleted, models.EventSetLogged, models.EventPRAchieved,
		models.EventWarmupCompleted, models.EventMobilityCompleted:
		return true
	}
	return false
}

func eventCounts(ev models.ActivityEvent) (prCount, newExercises int) {
	if v, ok := ev.(models.WorkoutCompletedEvent); ok {
		return v.PRCount, len(v.NewExercises)
	}
	if v, ok := ev.(models.PRAchievedEvent); ok {
		if v.Count > 0 {
			return v.Count, 0
		}
		return 1, 0
	}
	return 0, 0
}

// summaryLines converts ledger entries to display line items.
func summaryLines(entries []models.LedgerEntry) []SummaryLine {
	lines := make([]SummaryLine, 0, len(entries))
	for _, le := range entries {
		lines = append(lines, SummaryLine{
			Source: le.RuleID,
			Icon:   iconFor(le.RuleID),
			XP:     le.XP,
			Detail: le.Meta["detail"],
		})
	}
	return lines
}

func iconFor(ruleID string) string {
	switch {
	case ruleID == "streak_milestone" || ruleID == "freeze_return":
		return "flame"
	case len(ruleID) > 12 && ruleID[:12] == "achievement:":
		return "trophy"
	case ruleID == models.EventPRAchieved:
		return "medal"
	default:
		return "bolt"
	}
}
