package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/meltforce/ironlog/internal/models"
	"github.com/meltforce/ironlog/internal/session"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.Pool.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	current := s.sessions.Current()
	writeJSON(w, http.StatusOK, map[string]any{
		"active":  current != nil,
		"workout": current,
	})
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	workout := s.sessions.Start()
	writeJSON(w, http.StatusOK, workout)
}

type addExerciseRequest struct {
	ExerciseID   string   `json:"exercise_id"`
	Name         string   `json:"name"`
	MuscleGroups []string `json:"muscle_groups"`
}

func (s *Server) handleAddExercise(w http.ResponseWriter, r *http.Request) {
	var req addExerciseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if req.ExerciseID == "" || req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "exercise_id and name are required"})
		return
	}

	entryID := s.sessions.AddExercise(req.ExerciseID, req.Name, req.MuscleGroups)
	writeJSON(w, http.StatusOK, map[string]any{"entry_id": entryID})
}

type updateSetsRequest struct {
	Sets           []models.SetInput `json:"sets"`
	ActiveSetIndex *int              `json:"active_set_index,omitempty"`
}

func (s *Server) handleUpdateSets(w http.ResponseWriter, r *http.Request) {
	entryID, err := uuid.Parse(chi.URLParam(r, "entryID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid entry ID"})
		return
	}
	var req updateSetsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	if req.ActiveSetIndex != nil {
		err = s.sessions.UpdateEntrySetsWithActive(entryID, req.Sets, *req.ActiveSetIndex)
	} else {
		err = s.sessions.UpdateEntrySets(entryID, req.Sets)
	}
	if err != nil {
		s.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.sessions.Current())
}

func (s *Server) handleRemoveEntry(w http.ResponseWriter, r *http.Request) {
	entryID, err := uuid.Parse(chi.URLParam(r, "entryID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid entry ID"})
		return
	}
	if err := s.sessions.RemoveEntry(entryID); err != nil {
		s.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.sessions.Current())
}

type replaceExerciseRequest struct {
	ExerciseID   string   `json:"exercise_id"`
	Name         string   `json:"name"`
	MuscleGroups []string `json:"muscle_groups"`
}

func (s *Server) handleReplaceExercise(w http.ResponseWriter, r *http.Request) {
	entryID, err := uuid.Parse(chi.URLParam(r, "entryID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid entry ID"})
		return
	}
	var req replaceExerciseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if req.ExerciseID == "" || req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "exercise_id and name are required"})
		return
	}
	if err := s.sessions.ReplaceExercise(entryID, req.ExerciseID, req.Name, req.MuscleGroups); err != nil {
		s.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.sessions.Current())
}

func (s *Server) handleToggleSuperset(w http.ResponseWriter, r *http.Request) {
	entryID, err := uuid.Parse(chi.URLParam(r, "entryID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid entry ID"})
		return
	}
	if err := s.sessions.ToggleSuperset(entryID); err != nil {
		s.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.sessions.Current())
}

func (s *Server) handleJoinSuperset(w http.ResponseWriter, r *http.Request) {
	entryID, err := uuid.Parse(chi.URLParam(r, "entryID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid entry ID"})
		return
	}
	groupID, err := uuid.Parse(chi.URLParam(r, "groupID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid group ID"})
		return
	}
	if err := s.sessions.AddToSuperset(entryID, groupID); err != nil {
		s.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.sessions.Current())
}

func (s *Server) handleLeaveSuperset(w http.ResponseWriter, r *http.Request) {
	entryID, err := uuid.Parse(chi.URLParam(r, "entryID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid entry ID"})
		return
	}
	if err := s.sessions.RemoveFromSuperset(entryID); err != nil {
		s.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.sessions.Current())
}

func (s *Server) handleFinishSession(w http.ResponseWriter, r *http.Request) {
	completed, err := s.sessions.Finish(r.Context())
	if err != nil {
		s.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, completed)
}

func (s *Server) handleDiscardSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Discard(); err != nil {
		s.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "discarded"})
}

func (s *Server) handleUndoDiscard(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.UndoDiscard(); err != nil {
		s.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.sessions.Current())
}

// writeSessionError maps engine precondition failures to conflict responses
// so repeated calls from a confused client have no effect and a clear cause.
func (s *Server) writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNoActiveWorkout),
		errors.Is(err, session.ErrEmptyWorkout),
		errors.Is(err, session.ErrNothingToUndo):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, session.ErrEntryNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	default:
		s.log.Error("session operation failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func parseTimeRange(r *http.Request) (start, end time.Time, err error) {
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")

	if startStr == "" {
		// Default: last 30 days
		end = time.Now()
		start = end.AddDate(0, 0, -30)
		return
	}

	start, err = time.Parse(time.RFC3339, startStr)
	if err != nil {
		start, err = time.Parse("2006-01-02", startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	}

	if endStr == "" {
		end = time.Now()
	} else {
		end, err = time.Parse(time.RFC3339, endStr)
		if err != nil {
			end, err = time.Parse("2006-01-02", endStr)
			if err != nil {
				return time.Time{}, time.Time{}, err
			}
			// End of day for date-only
			end = end.Add(24 * time.Hour)
		}
	}
	return
}
