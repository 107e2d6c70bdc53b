package mcp

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/meltforce/ironlog/internal/models"
)

func (h *handlers) recentWorkouts(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	end := time.Now()
	start := end.AddDate(0, 0, -14)

	workouts, err := h.ds.QueryWorkouts(ctx, start, end)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(workouts)
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (h *handlers) rewardSummary(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	progress, err := h.ds.LoadProgress(ctx)
	if err != nil {
		return nil, err
	}
	if progress == nil {
		progress = &models.RewardProgress{}
	}

	achievements, err := h.ds.LoadAchievements(ctx)
	if err != nil {
		h.log.Warn("reward_summary: achievements query failed", "error", err)
	}
	var unlocked []models.Achievement
	for _, a := range achievements {
		if a.Unlocked() {
			unlocked = append(unlocked, a)
		}
	}

	entries, err := h.ds.QueryLedger(ctx, time.Now().AddDate(0, 0, -7), 50)
	if err != nil {
		h.log.Warn("reward_summary: ledger query failed", "error", err)
	}

	summary := map[string]any{
		"progress":              progress,
		"unlocked_achievements": unlocked,
		"recent_ledger":         entries,
	}

	data, err := json.Marshal(summary)
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
