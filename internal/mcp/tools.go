package mcp

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
)

// defaultDateRange returns from/to defaulting to the last 30 days.
func defaultDateRange(fromStr, toStr string) (time.Time, time.Time, error) {
	var from, to time.Time
	var err error

	if toStr != "" {
		to, err = parseFlexTime(toStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		to = time.Now().UTC()
	}

	if fromStr != "" {
		from, err = parseFlexTime(fromStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		from = to.AddDate(0, 0, -30)
	}

	return from, to, nil
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

var toolListPlans = mcp.NewTool("list_plans",
	mcp.WithDescription("List the user's workout plans with their full exercise and set prescriptions."),
)

var toolGetSchedule = mcp.NewTool("get_schedule",
	mcp.WithDescription("List scheduled workouts in a date range, including their exercise trees and planned/completed status."),
	mcp.WithString("from", mcp.Description("Start date (ISO 8601 or YYYY-MM-DD). Defaults to 30 days ago.")),
	mcp.WithString("to", mcp.Description("End date. Defaults to today.")),
)

var toolGetSession = mcp.NewTool("get_session",
	mcp.WithDescription("Retrieve one workout session with every logged set: planned vs done reps and weight, RPE, and failure flags."),
	mcp.WithString("session_id", mcp.Required(), mcp.Description("Session UUID")),
)

var toolGetOverview = mcp.NewTool("get_overview",
	mcp.WithDescription("Training overview for a date range: total volume (reps x weight tonnage), average working weight, session count, and schedule adherence."),
	mcp.WithString("from", mcp.Description("Start date. Defaults to 30 days ago.")),
	mcp.WithString("to", mcp.Description("End date. Defaults to today.")),
)

var toolGetVolume = mcp.NewTool("get_volume",
	mcp.WithDescription("Training volume grouped by day, ISO week, or exercise. Volume counts logged sets only (reps_done x weight_done)."),
	mcp.WithString("from", mcp.Description("Start date. Defaults to 30 days ago.")),
	mcp.WithString("to", mcp.Description("End date. Defaults to today.")),
	mcp.WithString("group_by", mcp.Description("Grouping. Defaults to 'day'."), mcp.Enum("day", "week", "exercise")),
	mcp.WithString("exercise", mcp.Description("Filter to one exercise by exact name")),
)

var toolGetE1RMTrend = mcp.NewTool("get_e1rm_trend",
	mcp.WithDescription("Estimated one-rep-max trend for an exercise, one point per training day (best set of the day, Epley estimate)."),
	mcp.WithString("exercise", mcp.Required(), mcp.Description("Exercise name (exact match)")),
	mcp.WithString("from", mcp.Description("Start date. Defaults to 30 days ago.")),
	mcp.WithString("to", mcp.Description("End date. Defaults to today.")),
)

var toolGetAdherence = mcp.NewTool("get_adherence",
	mcp.WithDescription("Planned vs completed scheduled workouts in a date range, with the adherence percentage."),
	mcp.WithString("from", mcp.Description("Start date. Defaults to 30 days ago.")),
	mcp.WithString("to", mcp.Description("End date. Defaults to today.")),
)

var toolGetPlanVsActual = mcp.NewTool("get_plan_vs_actual",
	mcp.WithDescription("Set-by-set comparison of planned prescription vs logged performance for one session, including extra ad-hoc work."),
	mcp.WithString("session_id", mcp.Required(), mcp.Description("Session UUID")),
)

// --- Tool handlers ---

func (h *handlers) listPlans(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uid := UserIDFromContext(ctx)

	plans, err := h.plans.List(ctx, uid)
	if err != nil {
		h.log.Error("mcp list_plans", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(plans)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getSchedule(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	from, to, err := defaultDateRange(req.GetString("from", ""), req.GetString("to", ""))
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	uid := UserIDFromContext(ctx)
	list, err := h.sched.ListRange(ctx, uid, from, to)
	if err != nil {
		h.log.Error("mcp get_schedule", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(list)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	idStr, err := req.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("session_id parameter is required"), nil
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return mcp.NewToolResultError("session_id is not a valid UUID"), nil
	}

	uid := UserIDFromContext(ctx)
	sess, err := h.sessions.Get(ctx, uid, id)
	if err != nil {
		h.log.Error("mcp get_session", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(sess)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getOverview(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	from, to, err := defaultDateRange(req.GetString("from", ""), req.GetString("to", ""))
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	uid := UserIDFromContext(ctx)
	ov, err := h.an.GetOverview(ctx, uid, from, to)
	if err != nil {
		h.log.Error("mcp get_overview", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(ov)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getVolume(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	from, to, err := defaultDateRange(req.GetString("from", ""), req.GetString("to", ""))
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	groupBy := req.GetString("group_by", "day")
	exercise := req.GetString("exercise", "")
	uid := UserIDFromContext(ctx)

	res, err := h.an.GetVolume(ctx, uid, from, to, groupBy, exercise)
	if err != nil {
		h.log.Error("mcp get_volume", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(res)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getE1RMTrend(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	exercise, err := req.RequireString("exercise")
	if err != nil {
		return mcp.NewToolResultError("exercise parameter is required"), nil
	}

	from, to, err := defaultDateRange(req.GetString("from", ""), req.GetString("to", ""))
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	uid := UserIDFromContext(ctx)
	points, err := h.an.GetE1RMTrend(ctx, uid, exercise, from, to)
	if err != nil {
		h.log.Error("mcp get_e1rm_trend", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(points)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getAdherence(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	from, to, err := defaultDateRange(req.GetString("from", ""), req.GetString("to", ""))
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	uid := UserIDFromContext(ctx)
	adh, err := h.an.GetAdherence(ctx, uid, from, to)
	if err != nil {
		h.log.Error("mcp get_adherence", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(adh)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getPlanVsActual(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	idStr, err := req.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("session_id parameter is required"), nil
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return mcp.NewToolResultError("session_id is not a valid UUID"), nil
	}

	uid := UserIDFromContext(ctx)
	items, err := h.an.GetPlanVsActual(ctx, uid, id)
	if err != nil {
		h.log.Error("mcp get_plan_vs_actual", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(items)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
