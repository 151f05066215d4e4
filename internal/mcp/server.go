package mcp

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/meltforce/liftlog/internal/analytics"
	"github.com/meltforce/liftlog/internal/planner"
	"github.com/meltforce/liftlog/internal/scheduler"
	"github.com/meltforce/liftlog/internal/session"
)

type contextKey int

const userIDKey contextKey = iota

// UserIDFromContext extracts the user ID injected by the transport layer.
func UserIDFromContext(ctx context.Context) int {
	if id, ok := ctx.Value(userIDKey).(int); ok {
		return id
	}
	return 1
}

// WithUserID returns a context with the given user ID.
func WithUserID(ctx context.Context, userID int) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// New creates an MCP server with all tools and resources registered.
func New(plans *planner.Service, sched *scheduler.Service, sessions *session.Engine,
	an *analytics.Service, version string, log *slog.Logger) *server.MCPServer {

	s := server.NewMCPServer("LiftLog", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("LiftLog training data server. Query workout plans, the schedule, logged sessions, and training analytics (volume, e1RM trends, adherence). All data is scoped to the authenticated user."),
	)

	h := &handlers{plans: plans, sched: sched, sessions: sessions, an: an, log: log}

	// Tools
	s.AddTools(
		server.ServerTool{Tool: toolListPlans, Handler: h.listPlans},
		server.ServerTool{Tool: toolGetSchedule, Handler: h.getSchedule},
		server.ServerTool{Tool: toolGetSession, Handler: h.getSession},
		server.ServerTool{Tool: toolGetOverview, Handler: h.getOverview},
		server.ServerTool{Tool: toolGetVolume, Handler: h.getVolume},
		server.ServerTool{Tool: toolGetE1RMTrend, Handler: h.getE1RMTrend},
		server.ServerTool{Tool: toolGetAdherence, Handler: h.getAdherence},
		server.ServerTool{Tool: toolGetPlanVsActual, Handler: h.getPlanVsActual},
	)

	// Resources
	s.AddResources(
		server.ServerResource{Resource: resTrainingOverview, Handler: h.trainingOverview},
		server.ServerResource{Resource: resUpcomingSchedule, Handler: h.upcomingSchedule},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	plans    *planner.Service
	sched    *scheduler.Service
	sessions *session.Engine
	an       *analytics.Service
	log      *slog.Logger
}

// --- Resource definitions ---

var resTrainingOverview = mcp.NewResource(
	"liftlog://training_overview",
	"Training Overview",
	mcp.WithResourceDescription("Volume, intensity, session count, and adherence for the last 30 days"),
	mcp.WithMIMEType("application/json"),
)

var resUpcomingSchedule = mcp.NewResource(
	"liftlog://upcoming_schedule",
	"Upcoming Schedule",
	mcp.WithResourceDescription("Scheduled workouts for the next 14 days"),
	mcp.WithMIMEType("application/json"),
)
