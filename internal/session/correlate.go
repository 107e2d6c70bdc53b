package session

import (
	"context"
	"time"

	"github.com/meltforce/ironlog/internal/models"
)

// startCardioMatch launches the background correlation of a finished
// workout with an externally recorded cardio session. The work is
// best-effort: it retries on the backoff schedule and gives up silently
// after the last attempt. Discarding a workout cancels its in-flight match.
func (e *Engine) startCardioMatch(w models.CompletedWorkout, backoff []time.Duration) {
	if e.store == nil || w.StartedAt == nil || len(backoff) == 0 {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	e.mu.Lock()
	e.matchCancel[w.ID] = cancel
	e.mu.Unlock()

	e.matchWG.Add(1)
	go func() {
		defer e.matchWG.Done()
		defer func() {
			e.mu.Lock()
			delete(e.matchCancel, w.ID)
			e.mu.Unlock()
			cancel()
		}()
		e.matchCardio(ctx, w, backoff)
	}()
}

func (e *Engine) matchCardio(ctx context.Context, w models.CompletedWorkout, backoff []time.Duration) {
	start := *w.StartedAt
	end := w.Date

	for attempt, delay := range backoff {
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}

		cs, err := e.store.FindUnmatchedCardio(ctx, start, end)
		if err != nil {
			e.log.Warn("cardio lookup failed", "workout", w.ID, "attempt", attempt+1, "error", err)
			continue
		}
		if cs == nil {
			continue
		}

		if err := e.store.UpdateWorkoutCardio(ctx, w.ID, cs.ID, cs.AvgHeartRate, cs.ActiveCalories); err != nil {
			e.log.Warn("cardio enrichment failed", "workout", w.ID, "error", err)
			continue
		}
		if err := e.store.MarkCardioMatched(ctx, cs.ID); err != nil {
			e.log.Warn("marking cardio matched", "cardio", cs.ID, "error", err)
		}

		e.mu.Lock()
		for i := range e.completed {
			if e.completed[i].ID == w.ID {
				id := cs.ID
				e.completed[i].CardioSessionID = &id
				e.completed[i].AvgHeartRate = cs.AvgHeartRate
				e.completed[i].ActiveCalories = cs.ActiveCalories
				break
			}
		}
		e.mu.Unlock()

		e.log.Info("matched cardio session", "workout", w.ID, "cardio", cs.ID)
		return
	}
}
