package api

import (
	"encoding/json"
	"errors"
	"net/http"

	chi "github.com/go-chi/chi/v5"

	"github.com/alexjbarnes/docsync/internal/docerrors"
)

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	dt, ok := s.docTypeParam(w, r)
	if !ok {
		return
	}

	projectID := chi.URLParam(r, "projectID")

	p, err := s.store.GetProject(r.Context(), projectID)
	if err != nil {
		s.respondError(w, err)
		return
	}

	if p == nil {
		s.writeError(w, http.StatusNotFound, docerrors.ErrProjectNotFound)
		return
	}

	doc, err := s.store.GetDocument(r.Context(), projectID, dt)
	if err != nil {
		s.respondError(w, err)
		return
	}

	if doc == nil {
		s.writeError(w, http.StatusNotFound, errors.New("document record not found"))
		return
	}

	s.writeJSON(w, http.StatusOK, doc)
}

type updateDocumentRequest struct {
	Content string `json:"content"`
}

// handleUpdateDocument is the application edit path: it writes content
// unconditionally and bumps the version, reopening the sync window
// until the next reconciliation.
func (s *Server) handleUpdateDocument(w http.ResponseWriter, r *http.Request) {
	dt, ok := s.docTypeParam(w, r)
	if !ok {
		return
	}

	projectID := chi.URLParam(r, "projectID")

	p, err := s.store.GetProject(r.Context(), projectID)
	if err != nil {
		s.respondError(w, err)
		return
	}

	if p == nil {
		s.writeError(w, http.StatusNotFound, docerrors.ErrProjectNotFound)
		return
	}

	var req updateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, errors.New("invalid JSON body"))
		return
	}

	if _, err := s.store.UpsertDocument(r.Context(), projectID, dt, req.Content); err != nil {
		s.respondError(w, err)
		return
	}

	doc, err := s.store.GetDocument(r.Context(), projectID, dt)
	if err != nil {
		s.respondError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, doc)
}
