package mcp

import (
	"log/slog"

	"github.com/claude/rehabreps/internal/profile"
	"github.com/mark3labs/mcp-go/server"
)

// New creates an MCP server with all tools and resources registered.
func New(ds DataSource, profiles *profile.Registry, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("RehabReps", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("RehabReps physiotherapy session server. Query exercise profiles, completed sessions with per-repetition form scores, and progress metrics over time."),
	)

	h := &handlers{ds: ds, profiles: profiles, log: log}

	// Tools
	s.AddTools(
		server.ServerTool{Tool: toolListExerciseProfiles, Handler: h.listExerciseProfiles},
		server.ServerTool{Tool: toolGetSessions, Handler: h.getSessions},
		server.ServerTool{Tool: toolGetSessionDetail, Handler: h.getSessionDetail},
		server.ServerTool{Tool: toolGetProgressMetrics, Handler: h.getProgressMetrics},
		server.ServerTool{Tool: toolComparePeriods, Handler: h.comparePeriods},
	)

	// Resources
	s.AddResources(
		server.ServerResource{Resource: resRecentSessions, Handler: h.recentSessions},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds       DataSource
	profiles *profile.Registry
	log      *slog.Logger
}
