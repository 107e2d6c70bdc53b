package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// New creates an MCP server with all tools and resources registered.
func New(ds DataSource, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("IronLog", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("IronLog strength training server. Query workout history, per-exercise records, weight suggestions, and reward progression (XP, streaks, achievements)."),
	)

	h := &handlers{ds: ds, log: log}

	// Tools
	s.AddTools(
		server.ServerTool{Tool: toolGetWorkouts, Handler: h.getWorkouts},
		server.ServerTool{Tool: toolGetExerciseRecords, Handler: h.getExerciseRecords},
		server.ServerTool{Tool: toolSuggestWeight, Handler: h.suggestWeight},
		server.ServerTool{Tool: toolGetRewardProgress, Handler: h.getRewardProgress},
		server.ServerTool{Tool: toolGetRewardLedger, Handler: h.getRewardLedger},
		server.ServerTool{Tool: toolGetAchievements, Handler: h.getAchievements},
		server.ServerTool{Tool: toolGetTrainingStats, Handler: h.getTrainingStats},
	)

	// Resources
	s.AddResources(
		server.ServerResource{Resource: resRecentWorkouts, Handler: h.recentWorkouts},
		server.ServerResource{Resource: resRewardSummary, Handler: h.rewardSummary},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds  DataSource
	log *slog.Logger
}

// --- Resource definitions ---

var resRecentWorkouts = mcp.NewResource(
	"ironlog://recent_workouts",
	"Recent Workouts",
	mcp.WithResourceDescription("Completed workouts from the last 14 days, including per-exercise sets and PR counts"),
	mcp.WithMIMEType("application/json"),
)

var resRewardSummary = mcp.NewResource(
	"ironlog://reward_summary",
	"Reward Summary",
	mcp.WithResourceDescription("Current XP, level, coins, streak state, and unlocked achievements"),
	mcp.WithMIMEType("application/json"),
)
