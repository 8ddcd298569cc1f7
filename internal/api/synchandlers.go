package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	chi "github.com/go-chi/chi/v5"

	"github.com/alexjbarnes/docsync/internal/journal"
	docsync "github.com/alexjbarnes/docsync/internal/sync"
)

// defaultLogLimit caps the journal listing when no limit is given.
const defaultLogLimit = 50

func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	dt, ok := s.docTypeParam(w, r)
	if !ok {
		return
	}

	status, err := s.engine.Status(r.Context(), chi.URLParam(r, "projectID"), dt)
	if err != nil {
		s.respondError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleSyncStatusAll(w http.ResponseWriter, r *http.Request) {
	statuses, err := s.engine.StatusAll(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		s.respondError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, statuses)
}

func (s *Server) handleAutoSync(w http.ResponseWriter, r *http.Request) {
	dt, ok := s.docTypeParam(w, r)
	if !ok {
		return
	}

	res, err := s.engine.AutoSync(r.Context(), chi.URLParam(r, "projectID"), dt)
	if err != nil {
		s.respondError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleForcePush(w http.ResponseWriter, r *http.Request) {
	dt, ok := s.docTypeParam(w, r)
	if !ok {
		return
	}

	res, err := s.engine.ForcePushToFile(r.Context(), chi.URLParam(r, "projectID"), dt)
	if err != nil {
		s.respondError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleForceImport(w http.ResponseWriter, r *http.Request) {
	dt, ok := s.docTypeParam(w, r)
	if !ok {
		return
	}

	res, err := s.engine.ForceImportFromFile(r.Context(), chi.URLParam(r, "projectID"), dt)
	if err != nil {
		s.respondError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, res)
}

type resolveRequest struct {
	Resolution string `json:"resolution"`
	Content    string `json:"content"`
}

func (s *Server) handleResolveConflict(w http.ResponseWriter, r *http.Request) {
	dt, ok := s.docTypeParam(w, r)
	if !ok {
		return
	}

	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, errors.New("invalid JSON body"))
		return
	}

	resolution, err := docsync.ParseResolution(req.Resolution)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	res, err := s.engine.ResolveConflict(r.Context(), chi.URLParam(r, "projectID"), dt, resolution, req.Content)
	if err != nil {
		s.respondError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleSyncLog(w http.ResponseWriter, r *http.Request) {
	limit := defaultLogLimit

	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.writeError(w, http.StatusBadRequest, errors.New("limit must be a positive integer"))
			return
		}

		limit = n
	}

	entries, err := s.journal.Recent(chi.URLParam(r, "projectID"), limit)
	if err != nil {
		s.respondError(w, err)
		return
	}

	if entries == nil {
		entries = []journal.Entry{}
	}

	s.writeJSON(w, http.StatusOK, entries)
}
