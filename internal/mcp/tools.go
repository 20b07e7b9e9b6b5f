package mcp

import (
	"context"
	"time"

	"github.com/claude/rehabreps/internal/analytics"
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
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

var toolListExerciseProfiles = mcp.NewTool("list_exercise_profiles",
	mcp.WithDescription("List all registered exercise profiles including joint landmarks, rest band, peak targets, and scoring tolerances."),
)

var toolGetSessions = mcp.NewTool("get_sessions",
	mcp.WithDescription("Query completed sessions. Returns per-session summaries with rep counts by quality, total points, and average form score."),
	mcp.WithString("start", mcp.Description("Start date (ISO 8601 or YYYY-MM-DD). Defaults to 30 days ago.")),
	mcp.WithString("end", mcp.Description("End date (ISO 8601 or YYYY-MM-DD). Defaults to now.")),
	mcp.WithString("exercise", mcp.Description("Filter by exercise name (e.g. 'ArmRaise')")),
)

var toolGetSessionDetail = mcp.NewTool("get_session_detail",
	mcp.WithDescription("Get one session with its full repetition breakdown: peak angle, range of motion, confidence, quality, and points per rep."),
	mcp.WithString("session_id", mcp.Required(), mcp.Description("Session UUID")),
)

var toolGetProgressMetrics = mcp.NewTool("get_progress_metrics",
	mcp.WithDescription("Progress report over a time range: totals, averages, best session, trailing-week stats, and improvement suggestions."),
	mcp.WithString("start", mcp.Description("Start date. Defaults to 30 days ago.")),
	mcp.WithString("end", mcp.Description("End date. Defaults to now.")),
	mcp.WithString("exercise", mcp.Description("Filter by exercise name")),
)

var toolComparePeriods = mcp.NewTool("compare_periods",
	mcp.WithDescription("Compare session statistics between two time periods (e.g. this week vs last week)."),
	mcp.WithString("period_a_start", mcp.Required(), mcp.Description("Period A start date")),
	mcp.WithString("period_a_end", mcp.Required(), mcp.Description("Period A end date")),
	mcp.WithString("period_b_start", mcp.Required(), mcp.Description("Period B start date")),
	mcp.WithString("period_b_end", mcp.Required(), mcp.Description("Period B end date")),
	mcp.WithString("exercise", mcp.Description("Filter by exercise name")),
)

// --- Tool handlers ---

func (h *handlers) listExerciseProfiles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(h.profiles.All())
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getSessions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := defaultTimeRange(req.GetString("start", ""), req.GetString("end", ""))
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	rows, err := h.ds.QuerySessions(ctx, start, end, req.GetString("exercise", ""))
	if err != nil {
		h.log.Error("mcp get_sessions", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(rows)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getSessionDetail(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	idStr, err := req.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("session_id parameter is required"), nil
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return mcp.NewToolResultError("invalid session_id: " + err.Error()), nil
	}

	detail, err := h.ds.GetSession(ctx, id)
	if err != nil {
		h.log.Error("mcp get_session_detail", "session_id", id, "error", err)
		return mcp.NewToolResultError("session not found"), nil
	}

	result, err := mcp.NewToolResultJSON(detail)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getProgressMetrics(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := defaultTimeRange(req.GetString("start", ""), req.GetString("end", ""))
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	rows, err := h.ds.QuerySessions(ctx, start, end, req.GetString("exercise", ""))
	if err != nil {
		h.log.Error("mcp get_progress_metrics", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	metrics := analytics.Progress(rows, time.Now())
	if metrics == nil {
		return mcp.NewToolResultText("no sessions in range"), nil
	}

	result, err := mcp.NewToolResultJSON(metrics)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) comparePeriods(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	aStart, err := requireFlexTime(req, "period_a_start")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	aEnd, err := requireFlexTime(req, "period_a_end")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	bStart, err := requireFlexTime(req, "period_b_start")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	bEnd, err := requireFlexTime(req, "period_b_end")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	exercise := req.GetString("exercise", "")

	current, err := h.ds.QuerySessions(ctx, aStart, aEnd, exercise)
	if err != nil {
		h.log.Error("mcp compare_periods", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	previous, err := h.ds.QuerySessions(ctx, bStart, bEnd, exercise)
	if err != nil {
		h.log.Error("mcp compare_periods", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(analytics.ComparePeriods(current, previous))
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func requireFlexTime(req mcp.CallToolRequest, name string) (time.Time, error) {
	s, err := req.RequireString(name)
	if err != nil {
		return time.Time{}, err
	}
	return parseFlexTime(s)
}
