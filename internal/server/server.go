package server

import (
	"log/slog"
	"net/http"

	"github.com/claude/rehabreps/internal/profile"
	"github.com/claude/rehabreps/internal/session"
	"github.com/claude/rehabreps/internal/storage"
	"github.com/go-chi/chi/v5"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	db       *storage.DB
	manager  *session.Manager
	profiles *profile.Registry
	log      *slog.Logger
	apiKey   string
	router   chi.Router
}

// New creates a new Server with all routes configured.
func New(db *storage.DB, manager *session.Manager, profiles *profile.Registry, apiKey string, log *slog.Logger) *Server {
	s := &Server{
		db:       db,
		manager:  manager,
		profiles: profiles,
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

	// Session control and frame ingest (API key required)
	s.router.Route("/api/v1/sessions", func(r chi.Router) {
		r.Get("/", s.handleListSessions)
		r.Get("/{id}", s.handleGetSession)
		r.Get("/{id}/live", s.handleSessionLive)

		r.Group(func(r chi.Router) {
			r.Use(APIKeyAuth(s.apiKey))
			r.Post("/", s.handleStartSession)
			r.Post("/{id}/frames", s.handleFrames)
			r.Post("/{id}/finalize", s.handleFinalizeSession)
			r.Delete("/{id}", s.handleCancelSession)
		})
	})

	// Read-only endpoints (no auth, tsnet handles access)
	s.router.Get("/api/v1/profiles", s.handleProfiles)
	s.router.Get("/api/v1/profiles/{name}", s.handleProfile)
	s.router.Get("/api/v1/history", s.handleHistory)
	s.router.Get("/api/v1/history/export", s.handleHistoryExportAll)
	s.router.Get("/api/v1/history/{id}", s.handleHistoryDetail)
	s.router.Get("/api/v1/history/{id}/export", s.handleHistoryExport)
	s.router.Get("/api/v1/progress", s.handleProgress)
	s.router.Get("/api/v1/stats", s.handleStats)
}

// Handler exposes the underlying router so extra surfaces (MCP) can be
// mounted before serving.
func (s *Server) Handler() chi.Router {
	return s.router
}
