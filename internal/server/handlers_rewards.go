package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/meltforce/ironlog/internal/models"
	"github.com/meltforce/ironlog/internal/rewards"
)

func (s *Server) handleRewardProgress(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.rewards.Progress())
}

func (s *Server) handleRewardLedger(w http.ResponseWriter, r *http.Request) {
	// The engine keeps a recent in-memory window; history beyond it comes
	// from the database.
	if s.db != nil && r.URL.Query().Get("start") != "" {
		start, _, err := parseTimeRange(r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		limit := 0
		if v := r.URL.Query().Get("limit"); v != "" {
			limit, _ = strconv.Atoi(v)
		}
		entries, err := s.db.QueryLedger(r.Context(), start, limit)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, entries)
		return
	}
	writeJSON(w, http.StatusOK, s.rewards.Ledger())
}

func (s *Server) handleAchievements(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.rewards.Achievements())
}

func (s *Server) handleFreezeEligibility(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{
		"daily":  s.rewards.CanActivateDailyFreeze(),
		"weekly": s.rewards.CanActivateWeeklyFreeze(),
	})
}

func (s *Server) handleActivateDailyFreeze(w http.ResponseWriter, r *http.Request) {
	if err := s.rewards.ActivateDailyFreeze(r.Context()); err != nil {
		s.writeFreezeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.rewards.Progress())
}

func (s *Server) handleActivateWeeklyFreeze(w http.ResponseWriter, r *http.Request) {
	if err := s.rewards.ActivateWeeklyFreeze(r.Context()); err != nil {
		s.writeFreezeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.rewards.Progress())
}

func (s *Server) writeFreezeError(w http.ResponseWriter, err error) {
	if errors.Is(err, rewards.ErrFreezeNotEligible) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}
	s.log.Error("freeze activation failed", "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}

type activityEventRequest struct {
	Event     string     `json:"event"`
	WorkoutID *uuid.UUID `json:"workout_id,omitempty"`
}

// handleActivityEvent accepts activity events produced outside the session
// engine (warmup and mobility routines). Session-derived events are only ever
// emitted by the engine itself.
func (s *Server) handleActivityEvent(w http.ResponseWriter, r *http.Request) {
	var req activityEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	var ev models.ActivityEvent
	switch req.Event {
	case models.EventWarmupCompleted:
		e := models.WarmupCompletedEvent{}
		if req.WorkoutID != nil {
			e.WorkoutID = *req.WorkoutID
		}
		ev = e
	case models.EventMobilityCompleted:
		ev = models.MobilityCompletedEvent{}
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unsupported event: " + req.Event})
		return
	}

	s.rewards.Process(r.Context(), ev)
	writeJSON(w, http.StatusOK, s.rewards.Progress())
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sessions.Records())
}

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	exerciseID := chi.URLParam(r, "exerciseID")
	rec, ok := s.sessions.Record(exerciseID)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no record for exercise"})
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleSuggestWeight(w http.ResponseWriter, r *http.Request) {
	exerciseID := chi.URLParam(r, "exerciseID")
	reps, err := strconv.Atoi(r.URL.Query().Get("reps"))
	if err != nil || reps <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "reps parameter must be a positive integer"})
		return
	}

	weight, ok := s.sessions.Suggest(exerciseID, reps)
	writeJSON(w, http.StatusOK, map[string]any{
		"exercise_id": exerciseID,
		"reps":        reps,
		"weight_kg":   weight,
		"known":       ok,
	})
}
