package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/meltforce/ironlog/internal/rewards"
	"github.com/meltforce/ironlog/internal/session"
	"github.com/meltforce/ironlog/internal/storage"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	db       *storage.DB
	sessions *session.Engine
	rewards  *rewards.Engine
	log      *slog.Logger
	apiKey   string
	router   chi.Router
}

// New creates a new Server with all routes configured.
func New(db *storage.DB, sessions *session.Engine, rewardsEngine *rewards.Engine, apiKey string, log *slog.Logger) *Server {
	s := &Server{
		db:       db,
		sessions: sessions,
		rewards:  rewardsEngine,
		log:      log,
		apiKey:   apiKey,
		router:   chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	s.router.Get("/api/v1/health", s.handleHealth)

	// Ingest endpoints (API key required)
	s.router.Route("/api/v1/ingest", func(r chi.Router) {
		r.Use(APIKeyAuth(s.apiKey))
		r.Post("/cardio", s.handleCardioIngest)
	})

	// Live session (no auth — tsnet handles access)
	s.router.Route("/api/v1/session", func(r chi.Router) {
		r.Get("/", s.handleGetSession)
		r.Post("/start", s.handleStartSession)
		r.Post("/finish", s.handleFinishSession)
		r.Post("/discard", s.handleDiscardSession)
		r.Post("/undo-discard", s.handleUndoDiscard)
		r.Post("/exercises", s.handleAddExercise)
		r.Put("/exercises/{entryID}/sets", s.handleUpdateSets)
		r.Delete("/exercises/{entryID}", s.handleRemoveEntry)
		r.Post("/exercises/{entryID}/replace", s.handleReplaceExercise)
		r.Post("/exercises/{entryID}/superset", s.handleToggleSuperset)
		r.Post("/exercises/{entryID}/superset/{groupID}", s.handleJoinSuperset)
		r.Delete("/exercises/{entryID}/superset", s.handleLeaveSuperset)
	})

	// History and records
	s.router.Get("/api/v1/workouts", s.handleQueryWorkouts)
	s.router.Get("/api/v1/workouts/{id}", s.handleGetWorkout)
	s.router.Get("/api/v1/records", s.handleListRecords)
	s.router.Get("/api/v1/records/{exerciseID}", s.handleGetRecord)
	s.router.Get("/api/v1/records/{exerciseID}/suggest", s.handleSuggestWeight)
	s.router.Get("/api/v1/stats", s.handleStats)

	// Cardio review and the full data reset
	s.router.Get("/api/v1/cardio", s.handleListCardio)
	s.router.Post("/api/v1/cardio/{id}/suppress", s.handleSuppressCardio)
	s.router.Post("/api/v1/data/reset", s.handleDataReset)

	// Progression
	s.router.Route("/api/v1/rewards", func(r chi.Router) {
		r.Get("/progress", s.handleRewardProgress)
		r.Get("/ledger", s.handleRewardLedger)
		r.Get("/achievements", s.handleAchievements)
		r.Post("/events", s.handleActivityEvent)
		r.Get("/freeze", s.handleFreezeEligibility)
		r.Post("/freeze/daily", s.handleActivateDailyFreeze)
		r.Post("/freeze/weekly", s.handleActivateWeeklyFreeze)
	})

	// Workout templates
	s.router.Route("/api/v1/plans", func(r chi.Router) {
		r.Get("/", s.handleListPlans)
		r.Post("/", s.handleCreatePlan)
		r.Get("/{id}", s.handleGetPlan)
		r.Delete("/{id}", s.handleDeletePlan)
		r.Post("/{id}/start", s.handleStartPlan)
	})
}
