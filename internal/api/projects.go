package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	chi "github.com/go-chi/chi/v5"

	"github.com/alexjbarnes/docsync/internal/docerrors"
	"github.com/alexjbarnes/docsync/internal/store"
)

type createProjectRequest struct {
	Name      string `json:"name"`
	LocalPath string `json:"local_path"`
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, errors.New("invalid JSON body"))
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("name is required"))
		return
	}

	p, err := s.store.CreateProject(r.Context(), req.Name, req.LocalPath)
	if err != nil {
		s.respondError(w, err)
		return
	}

	s.logger.Info("api: project created",
		slog.String("project", p.ID),
		slog.String("name", p.Name),
	)
	s.writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.store.ListProjects(r.Context())
	if err != nil {
		s.respondError(w, err)
		return
	}

	if projects == nil {
		projects = []store.Project{}
	}

	s.writeJSON(w, http.StatusOK, projects)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.GetProject(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		s.respondError(w, err)
		return
	}

	if p == nil {
		s.writeError(w, http.StatusNotFound, docerrors.ErrProjectNotFound)
		return
	}

	s.writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")

	if err := s.store.DeleteProject(r.Context(), projectID); err != nil {
		s.respondError(w, err)
		return
	}

	if s.journal != nil {
		if err := s.journal.DeleteProject(projectID); err != nil {
			s.logger.Warn("api: deleting journal bucket failed",
				slog.String("project", projectID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.Info("api: project deleted", slog.String("project", projectID))
	w.WriteHeader(http.StatusNoContent)
}
