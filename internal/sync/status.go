package sync

import (
	"context"

	"github.com/alexjbarnes/docsync/internal/document"
)

// Status is the wire projection of an Analysis for dashboard display.
// Timestamps are unix milliseconds, zero when absent; content payloads
// are deliberately omitted so the full-project listing stays cheap.
type Status struct {
	DocType      document.Type `json:"doc_type"`
	State        State         `json:"state"`
	InSync       bool          `json:"in_sync"`
	HasConflict  bool          `json:"has_conflict"`
	FilePath     string        `json:"file_path,omitempty"`
	DBVersion    int64         `json:"db_version,omitempty"`
	DBUpdatedAt  int64         `json:"db_updated_at,omitempty"`
	FileMTime    int64         `json:"file_mtime,omitempty"`
	LastSyncedAt int64         `json:"last_synced_at,omitempty"`
}

func statusOf(a Analysis) Status {
	s := Status{
		DocType:     a.DocType,
		State:       a.State,
		InSync:      a.State == StateInSync,
		HasConflict: a.State == StateConflict,
		FilePath:    a.FilePath,
		DBVersion:   a.BaseVersion,
	}

	if !a.DBUpdatedAt.IsZero() {
		s.DBUpdatedAt = a.DBUpdatedAt.UnixMilli()
	}

	if !a.FileMTime.IsZero() {
		s.FileMTime = a.FileMTime.UnixMilli()
	}

	if !a.LastSyncedAt.IsZero() {
		s.LastSyncedAt = a.LastSyncedAt.UnixMilli()
	}

	return s
}

// Status analyzes one document type and returns its projection.
func (e *Engine) Status(ctx context.Context, projectID string, dt document.Type) (Status, error) {
	p, err := e.project(ctx, projectID)
	if err != nil {
		return Status{}, err
	}

	a, err := e.Analyze(ctx, p, dt)
	if err != nil {
		return Status{}, err
	}

	return statusOf(a), nil
}

// StatusAll analyzes every document type of a project, in presentation
// order, for the overall sync dashboard.
func (e *Engine) StatusAll(ctx context.Context, projectID string) ([]Status, error) {
	p, err := e.project(ctx, projectID)
	if err != nil {
		return nil, err
	}

	statuses := make([]Status, 0, len(document.All()))

	for _, dt := range document.All() {
		a, err := e.Analyze(ctx, p, dt)
		if err != nil {
			return nil, err
		}

		statuses = append(statuses, statusOf(a))
	}

	return statuses, nil
}
