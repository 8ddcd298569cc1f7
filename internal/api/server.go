// Package api exposes the synchronization engine over HTTP: project
// CRUD, document editing, sync operations, journal history, and a
// websocket event feed.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	chi "github.com/go-chi/chi/v5"

	"github.com/alexjbarnes/docsync/internal/config"
	"github.com/alexjbarnes/docsync/internal/docerrors"
	"github.com/alexjbarnes/docsync/internal/document"
	"github.com/alexjbarnes/docsync/internal/events"
	"github.com/alexjbarnes/docsync/internal/journal"
	"github.com/alexjbarnes/docsync/internal/store"
	docsync "github.com/alexjbarnes/docsync/internal/sync"
)

// Server is the HTTP API server. It holds no request state; every
// handler goes through the store and engine directly.
type Server struct {
	router  *chi.Mux
	store   *store.Store
	journal *journal.Journal
	engine  *docsync.Engine
	hub     *events.Hub
	logger  *slog.Logger
	keys    [][]byte
}

// NewServer builds the server and its routes. keys enables the API-key
// gate when non-empty; an empty list leaves the API open, intended for
// localhost-only deployments.
func NewServer(st *store.Store, jnl *journal.Journal, engine *docsync.Engine, hub *events.Hub, logger *slog.Logger, keys []config.APIKeyEntry) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		store:   st,
		journal: jnl,
		engine:  engine,
		hub:     hub,
		logger:  logger,
		keys:    hashKeys(keys),
	}

	s.routes()

	return s
}

func (s *Server) routes() {
	s.router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Use(s.requireAPIKey)

		r.Post("/projects", s.handleCreateProject)
		r.Get("/projects", s.handleListProjects)

		r.Route("/projects/{projectID}", func(r chi.Router) {
			r.Get("/", s.handleGetProject)
			r.Delete("/", s.handleDeleteProject)
			r.Get("/sync", s.handleSyncStatusAll)
			r.Get("/sync/log", s.handleSyncLog)

			r.Route("/documents/{docType}", func(r chi.Router) {
				r.Get("/", s.handleGetDocument)
				r.Put("/", s.handleUpdateDocument)
				r.Get("/sync", s.handleSyncStatus)
				r.Post("/sync/auto", s.handleAutoSync)
				r.Post("/sync/push", s.handleForcePush)
				r.Post("/sync/import", s.handleForceImport)
				r.Post("/sync/resolve", s.handleResolveConflict)
			})
		})

		r.Get("/events", s.handleEvents)
	})
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// MountMCP mounts an MCP handler at /mcp, behind the same API-key gate
// as the /api routes.
func (s *Server) MountMCP(handler http.Handler) {
	s.router.Mount("/mcp", s.requireAPIKey(handler))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error("api: request failed", slog.Int("status", status), slog.String("error", err.Error()))
	} else {
		s.logger.Warn("api: request failed", slog.Int("status", status), slog.String("error", err.Error()))
	}

	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

// respondError maps domain sentinels to status codes.
func (s *Server) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, docerrors.ErrProjectNotFound):
		s.writeError(w, http.StatusNotFound, err)
	case errors.Is(err, docerrors.ErrConcurrentUpdate):
		s.writeError(w, http.StatusConflict, err)
	case errors.Is(err, docerrors.ErrUnknownDocType),
		errors.Is(err, docerrors.ErrUnknownResolution),
		errors.Is(err, docerrors.ErrMissingCustomContent),
		errors.Is(err, docerrors.ErrNoDocumentFile):
		s.writeError(w, http.StatusBadRequest, err)
	default:
		s.writeError(w, http.StatusInternalServerError, err)
	}
}

// docTypeParam parses the {docType} route parameter. A false return
// means the response has already been written.
func (s *Server) docTypeParam(w http.ResponseWriter, r *http.Request) (document.Type, bool) {
	dt, err := document.ParseType(chi.URLParam(r, "docType"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return "", false
	}

	return dt, true
}
