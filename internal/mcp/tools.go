package mcp

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/meltforce/ironlog/internal/models"
	"github.com/meltforce/ironlog/internal/records"
)

// defaultTimeRange returns start/end defaulting to the last 30 days.
func defaultTimeRange(startStr, endStr string) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error

	if endStr != "" {
		end, err = parseFlexTime(endStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		end = time.Now()
	}

	if startStr != "" {
		start, err = parseFlexTime(startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		start = end.AddDate(0, 0, -30)
	}

	return start, end, nil
}

func parseFlexTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse("2006-01-02", s)
	if err == nil {
		return t, nil
	}
	return time.Time{}, err
}

// --- Tool definitions ---

var toolGetWorkouts = mcp.NewTool("get_workouts",
	mcp.WithDescription("Query completed workouts. Returns per-exercise set data, PR counts, and cardio enrichment (heart rate, calories) when available."),
	mcp.WithString("start", mcp.Description("Start date (ISO 8601 or YYYY-MM-DD). Defaults to 30 days ago.")),
	mcp.WithString("end", mcp.Description("End date (ISO 8601 or YYYY-MM-DD). Defaults to now.")),
)

var toolGetExerciseRecords = mcp.NewTool("get_exercise_records",
	mcp.WithDescription("Get per-exercise personal records: best weight per rep count, best estimated 1RM, best bodyweight reps, best timed hold, and the last working set."),
	mcp.WithString("exercise", mcp.Description("Filter by exercise id. Returns all records when omitted.")),
)

var toolSuggestWeight = mcp.NewTool("suggest_weight",
	mcp.WithDescription("Suggest a working weight for an exercise at a target rep count, derived from recorded bests via the Epley estimated-1RM formula."),
	mcp.WithString("exercise", mcp.Required(), mcp.Description("Exercise id")),
	mcp.WithNumber("reps", mcp.Required(), mcp.Description("Target rep count")),
)

var toolGetRewardProgress = mcp.NewTool("get_reward_progress",
	mcp.WithDescription("Get the current progression state: XP, coins, level window, daily streak, and weekly streaks."),
)

var toolGetRewardLedger = mcp.NewTool("get_reward_ledger",
	mcp.WithDescription("Query the append-only reward ledger. Each entry records one XP/coin grant with its triggering event and rule."),
	mcp.WithString("start", mcp.Description("Start date. Defaults to 30 days ago.")),
	mcp.WithNumber("limit", mcp.Description("Maximum entries to return. Defaults to 100.")),
)

var toolGetAchievements = mcp.NewTool("get_achievements",
	mcp.WithDescription("List achievements with progress, targets, and unlock timestamps."),
)

var toolGetTrainingStats = mcp.NewTool("get_training_stats",
	mcp.WithDescription("Aggregate statistics: total workouts, total PRs, tracked exercises, cardio sessions, and the recorded date range."),
)

// --- Tool handlers ---

func (h *handlers) getWorkouts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := defaultTimeRange(req.GetString("start", ""), req.GetString("end", ""))
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	workouts, err := h.ds.QueryWorkouts(ctx, start, end)
	if err != nil {
		h.log.Error("mcp get_workouts", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(workouts)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getExerciseRecords(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	recs, err := h.ds.LoadExerciseRecords(ctx)
	if err != nil {
		h.log.Error("mcp get_exercise_records", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	if filter := req.GetString("exercise", ""); filter != "" {
		filtered := recs[:0]
		for _, r := range recs {
			if r.ExerciseID == filter {
				filtered = append(filtered, r)
			}
		}
		recs = filtered
	}

	result, err := mcp.NewToolResultJSON(recs)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) suggestWeight(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	exercise, err := req.RequireString("exercise")
	if err != nil {
		return mcp.NewToolResultError("exercise parameter is required"), nil
	}
	reps := req.GetInt("reps", 0)
	if reps <= 0 {
		return mcp.NewToolResultError("reps must be a positive integer"), nil
	}

	recs, err := h.ds.LoadExerciseRecords(ctx)
	if err != nil {
		h.log.Error("mcp suggest_weight", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	index := records.NewIndex(0)
	index.Load(recs)
	weight, known := index.Suggest(exercise, reps)

	result, err := mcp.NewToolResultJSON(map[string]any{
		"exercise_id": exercise,
		"reps":        reps,
		"weight_kg":   weight,
		"known":       known,
	})
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getRewardProgress(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	progress, err := h.ds.LoadProgress(ctx)
	if err != nil {
		h.log.Error("mcp get_reward_progress", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	if progress == nil {
		progress = &models.RewardProgress{}
	}

	result, err := mcp.NewToolResultJSON(progress)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getRewardLedger(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, _, err := defaultTimeRange(req.GetString("start", ""), "")
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}
	limit := req.GetInt("limit", 100)

	entries, err := h.ds.QueryLedger(ctx, start, limit)
	if err != nil {
		h.log.Error("mcp get_reward_ledger", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(entries)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getAchievements(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	achievements, err := h.ds.LoadAchievements(ctx)
	if err != nil {
		h.log.Error("mcp get_achievements", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(achievements)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getTrainingStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := h.ds.GetDataStats(ctx)
	if err != nil {
		h.log.Error("mcp get_training_stats", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(stats)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
