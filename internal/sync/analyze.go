// Package sync implements the document synchronization engine: it
// detects divergence between a project's canonical database record and
// its file mirror on disk, reconciles automatically where one side is
// clearly authoritative, and surfaces conflicts for manual resolution.
package sync

import (
	"context"
	"time"

	"github.com/alexjbarnes/docsync/internal/document"
	"github.com/alexjbarnes/docsync/internal/store"
	"github.com/alexjbarnes/docsync/internal/workspace"
)

// State classifies the relationship between the database record and the
// resolved file at one point in time.
type State string

const (
	// StateNoLocalPath means the project has no local directory
	// configured. Nothing to reconcile; a terminal state, not an error.
	StateNoLocalPath State = "no_local_path"

	// StateFileMissing means no candidate file exists on disk.
	StateFileMissing State = "file_missing"

	// StateInSync means both sides hold identical content.
	StateInSync State = "in_sync"

	// StateFileNewer means the file side is authoritative.
	StateFileNewer State = "file_newer"

	// StateDBNewer means the database side is authoritative.
	StateDBNewer State = "db_newer"

	// StateConflict means both sides changed since the last sync and
	// neither may silently win.
	StateConflict State = "conflict"
)

// Analysis is the ephemeral result of comparing the two sides. It is
// computed fresh on every call and never persisted; BaseVersion is the
// document version observed at read time and guards later writes.
type Analysis struct {
	State        State
	DocType      document.Type
	DBContent    string
	FileContent  string
	FilePath     string
	FileName     string
	FileExists   bool
	BaseVersion  int64
	DBUpdatedAt  time.Time
	FileMTime    time.Time
	LastSyncedAt time.Time
}

// classify is the pure decision procedure over one snapshot of both
// sides. Order matters and is deliberate: content equality first, then
// content quality, then recency. Recency alone is an unsafe signal --
// clock skew or a bulk filesystem touch can make a stale skeleton look
// "newest" -- so timestamps are only consulted once both sides are
// known to differ and to be of comparable quality.
//
// Zero times mean "absent": dbUpdatedAt when no record exists,
// lastSyncedAt when the pair was never reconciled.
func classify(dbContent, fileContent string, dbUpdatedAt, fileMTime, lastSyncedAt time.Time) State {
	// Equal content is synced by definition, whatever the clocks say.
	if dbContent == fileContent {
		return StateInSync
	}

	dbSkeleton := document.IsSkeleton(dbContent)
	fileSkeleton := document.IsSkeleton(fileContent)

	// Quality precedence: a placeholder never beats authored content.
	if dbSkeleton && !fileSkeleton {
		return StateFileNewer
	}

	if fileSkeleton && !dbSkeleton {
		return StateDBNewer
	}

	// Timestamp phase. Both sides are skeletons, or both are real.
	if lastSyncedAt.IsZero() {
		// Never synced. A record that was never even written defers to
		// the file, treated as an external edit of an untouched row.
		if dbUpdatedAt.IsZero() {
			return StateFileNewer
		}

		if fileMTime.After(dbUpdatedAt) {
			return StateFileNewer
		}

		return StateDBNewer
	}

	dbModified := dbUpdatedAt.After(lastSyncedAt)
	fileModified := fileMTime.After(lastSyncedAt)

	switch {
	case dbModified && fileModified:
		return StateConflict
	case fileModified:
		return StateFileNewer
	case dbModified:
		return StateDBNewer
	default:
		return StateInSync
	}
}

// Analyze reads one snapshot of both sides for (project, type) and
// classifies it. Absence anywhere -- no local path, no file, no record
// -- is a valid state, never an error; only unexpected I/O failures
// propagate.
func (e *Engine) Analyze(ctx context.Context, project *store.Project, dt document.Type) (Analysis, error) {
	a := Analysis{DocType: dt}

	record, err := e.store.GetDocument(ctx, project.ID, dt)
	if err != nil {
		return Analysis{}, err
	}

	if record != nil {
		a.DBContent = record.Content
		a.BaseVersion = record.Version
		a.DBUpdatedAt = record.UpdatedAt
		a.LastSyncedAt = record.LastSyncedAt
	}

	if project.LocalPath == "" {
		a.State = StateNoLocalPath
		return a, nil
	}

	ws, err := workspace.New(project.LocalPath)
	if err != nil {
		return Analysis{}, err
	}

	handle, err := ws.Resolve(dt)
	if err != nil {
		return Analysis{}, err
	}

	a.FileContent = handle.Content
	a.FilePath = handle.Path
	a.FileName = handle.Name
	a.FileExists = handle.Exists
	a.FileMTime = handle.MTime

	if !handle.Exists {
		a.State = StateFileMissing
		return a, nil
	}

	a.State = classify(a.DBContent, a.FileContent, a.DBUpdatedAt, a.FileMTime, a.LastSyncedAt)

	return a, nil
}
