package mcp

import (
	"context"
	"time"

	"github.com/meltforce/ironlog/internal/models"
	"github.com/meltforce/ironlog/internal/storage"
)

// DataSource abstracts the data layer for MCP tools. Both *storage.DB (local)
// and HTTPClient (remote via REST API) satisfy this interface.
type DataSource interface {
	QueryWorkouts(ctx context.Context, start, end time.Time) ([]models.CompletedWorkout, error)
	LoadExerciseRecords(ctx context.Context) ([]models.ExerciseRecord, error)
	LoadProgress(ctx context.Context) (*models.RewardProgress, error)
	QueryLedger(ctx context.Context, since time.Time, limit int) ([]models.LedgerEntry, error)
	LoadAchievements(ctx context.Context) ([]models.Achievement, error)
	GetDataStats(ctx context.Context) (*storage.DataStats, error)
}

// Compile-time check: *storage.DB satisfies DataSource.
var _ DataSource = (*storage.DB)(nil)
