package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/meltforce/liftlog/internal/analytics"
	"github.com/meltforce/liftlog/internal/planner"
	"github.com/meltforce/liftlog/internal/scheduler"
	"github.com/meltforce/liftlog/internal/session"
)

// FriendStore is the social-graph surface the friends handlers need.
type FriendStore interface {
	CreateFriendRequest(ctx context.Context, fromUser, toUser int) error
	AcceptFriendRequest(ctx context.Context, userID, otherID int) error
	FriendIDs(ctx context.Context, userID int) ([]int, error)
}

// Server is the HTTP API. Identity middleware is installed by the caller so
// the same router serves both the tsnet listener and plain dev mode.
type Server struct {
	plans     *planner.Service
	scheduled *scheduler.Service
	sessions  *session.Engine
	analytics *analytics.Service
	friends   FriendStore
	log       *slog.Logger
	router    chi.Router
}

// New creates the API server and mounts all routes. mcpHandler, when non-nil,
// is mounted at /mcp behind the same identity middleware as the REST API.
func New(plans *planner.Service, scheduled *scheduler.Service, sessions *session.Engine,
	an *analytics.Service, friends FriendStore, identity func(http.Handler) http.Handler,
	mcpHandler http.Handler, log *slog.Logger) *Server {

	s := &Server{
		plans:     plans,
		scheduled: scheduled,
		sessions:  sessions,
		analytics: an,
		friends:   friends,
		log:       log,
	}

	r := chi.NewRouter()
	r.Use(RequestLogging(log))
	r.Use(CORS)
	r.Use(identity)

	r.Get("/health", s.handleHealth)

	if mcpHandler != nil {
		r.Handle("/mcp", mcpHandler)
		r.Handle("/mcp/*", mcpHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/me", s.handleMe)

		r.Route("/plans", func(r chi.Router) {
			r.Get("/", s.handleListPlans)
			r.Post("/", s.handleCreatePlan)
			r.Get("/{id}", s.handleGetPlan)
			r.Put("/{id}", s.handleUpdatePlan)
			r.Delete("/{id}", s.handleDeletePlan)
			r.Post("/{id}/duplicate", s.handleDuplicatePlan)
		})

		r.Route("/scheduled", func(r chi.Router) {
			r.Get("/", s.handleListScheduled)
			r.Post("/", s.handleCreateScheduled)
			r.Get("/{id}", s.handleGetScheduled)
			r.Put("/{id}", s.handleUpdateScheduled)
			r.Delete("/{id}", s.handleDeleteScheduled)
			r.Post("/{id}/duplicate", s.handleDuplicateScheduled)
			r.Get("/{id}/sessions", s.handleListSessions)
			r.Post("/{id}/start", s.handleStartSession)
			r.Post("/{id}/quick-complete", s.handleQuickComplete)
			r.Post("/{id}/reopen", s.handleReopen)
		})

		r.Route("/sessions", func(r chi.Router) {
			r.Get("/active", s.handleActiveSession)
			r.Get("/{id}", s.handleGetSession)
			r.Patch("/{id}/sets/{setID}", s.handlePatchSet)
			r.Post("/{id}/exercises", s.handleAddExercise)
			r.Post("/{id}/complete", s.handleCompleteSession)
			r.Post("/{id}/abort", s.handleAbortSession)
		})

		r.Route("/analytics", func(r chi.Router) {
			r.Get("/overview", s.handleOverview)
			r.Get("/volume", s.handleVolume)
			r.Get("/e1rm", s.handleE1RM)
			r.Get("/adherence", s.handleAdherence)
			r.Get("/plan-vs-actual/{sessionID}", s.handlePlanVsActual)
		})

		r.Route("/friends", func(r chi.Router) {
			r.Get("/", s.handleListFriends)
			r.Post("/", s.handleFriendRequest)
			r.Post("/{id}/accept", s.handleAcceptFriend)
			r.Get("/{id}/scheduled", s.handleFriendScheduled)
		})
	})

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	info := userInfoFromContext(r)
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":      UserID(r),
		"login":        info.Login,
		"display_name": info.DisplayName,
	})
}
