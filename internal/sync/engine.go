package sync

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alexjbarnes/docsync/internal/docerrors"
	"github.com/alexjbarnes/docsync/internal/document"
	"github.com/alexjbarnes/docsync/internal/events"
	"github.com/alexjbarnes/docsync/internal/journal"
	"github.com/alexjbarnes/docsync/internal/store"
	"github.com/alexjbarnes/docsync/internal/workspace"
)

// Action is the outcome of a reconciliation call.
type Action string

const (
	// ActionNone means nothing was written.
	ActionNone Action = "none"

	// ActionImported means file content was copied into the database.
	ActionImported Action = "imported"

	// ActionSynced means database content was written to the file.
	ActionSynced Action = "synced"

	// ActionCreated means the file did not exist and was created from
	// database content at the canonical path.
	ActionCreated Action = "created"

	// ActionConflict means both sides changed; no writes were made and
	// the result carries both contents for manual resolution.
	ActionConflict Action = "conflict"
)

// Result describes what a reconciliation did.
type Result struct {
	Action     Action          `json:"action"`
	State      State           `json:"state"`
	Detail     string          `json:"detail,omitempty"`
	NewVersion int64           `json:"new_version,omitempty"`
	Conflict   *ConflictDetail `json:"conflict,omitempty"`
}

// ConflictDetail carries both sides and all three timestamps verbatim
// so a caller can present a resolution UI.
type ConflictDetail struct {
	DBContent    string    `json:"db_content"`
	FileContent  string    `json:"file_content"`
	DBUpdatedAt  time.Time `json:"db_updated_at"`
	FileMTime    time.Time `json:"file_mtime"`
	LastSyncedAt time.Time `json:"last_synced_at"`
}

// Engine is the document synchronization engine. It is request-scoped:
// every call reads one snapshot of both sides, decides, and writes.
// Writes performed on behalf of an automatic decision are conditional
// on the document version observed at analysis time, so two racing
// reconciliations cannot interleave a stale decision with a write.
type Engine struct {
	store   *store.Store
	journal *journal.Journal
	events  *events.Hub
	logger  *slog.Logger
	now     func() time.Time
}

// NewEngine creates an engine. journal and hub may be nil; the engine
// then skips history recording and event publishing respectively.
func NewEngine(st *store.Store, jnl *journal.Journal, hub *events.Hub, logger *slog.Logger) *Engine {
	return &Engine{
		store:   st,
		journal: jnl,
		events:  hub,
		logger:  logger,
		now:     time.Now,
	}
}

func (e *Engine) project(ctx context.Context, projectID string) (*store.Project, error) {
	p, err := e.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	if p == nil {
		return nil, docerrors.ErrProjectNotFound
	}

	return p, nil
}

// targetFilename returns the file to write for a document: the resolved
// file when one exists, otherwise the canonical name.
func targetFilename(a Analysis) string {
	if a.FileExists {
		return a.FileName
	}

	return a.DocType.CanonicalFilename()
}

// AutoSync analyzes (project, type) and executes the appropriate
// one-directional copy, or reports a conflict without writing.
// Idempotent: a second call on unchanged inputs lands in in_sync and
// does nothing.
func (e *Engine) AutoSync(ctx context.Context, projectID string, dt document.Type) (Result, error) {
	p, err := e.project(ctx, projectID)
	if err != nil {
		return Result{}, err
	}

	a, err := e.Analyze(ctx, p, dt)
	if err != nil {
		return Result{}, err
	}

	switch a.State {
	case StateNoLocalPath:
		return Result{Action: ActionNone, State: a.State, Detail: "no local path configured"}, nil

	case StateInSync:
		return Result{Action: ActionNone, State: a.State}, nil

	case StateFileNewer:
		return e.importFile(ctx, p, a)

	case StateDBNewer:
		return e.pushToFile(ctx, p, a)

	case StateFileMissing:
		if strings.TrimSpace(a.DBContent) == "" {
			return Result{Action: ActionNone, State: a.State, Detail: "nothing to create"}, nil
		}

		return e.createFile(ctx, p, a)

	case StateConflict:
		e.publish(p.ID, dt, ActionConflict, a.State, "")

		return Result{
			Action: ActionConflict,
			State:  a.State,
			Conflict: &ConflictDetail{
				DBContent:    a.DBContent,
				FileContent:  a.FileContent,
				DBUpdatedAt:  a.DBUpdatedAt,
				FileMTime:    a.FileMTime,
				LastSyncedAt: a.LastSyncedAt,
			},
		}, nil

	default:
		return Result{}, fmt.Errorf("unknown sync state %q", a.State)
	}
}

// importFile copies file content into the database record, guarded by
// the version observed at analysis time.
func (e *Engine) importFile(ctx context.Context, p *store.Project, a Analysis) (Result, error) {
	version, err := e.store.UpdateContentIf(ctx, p.ID, a.DocType, a.FileContent, a.BaseVersion)
	if err != nil {
		return Result{}, fmt.Errorf("importing %s from %s: %w", a.DocType, a.FileName, err)
	}

	if err := e.store.TouchWatermark(ctx, p.ID, a.DocType, e.now()); err != nil {
		return Result{}, err
	}

	detail := "imported from " + a.FileName
	e.record(p.ID, a.DocType, ActionImported, a.State, detail)
	e.logger.Info("sync: imported file into database",
		slog.String("project", p.ID),
		slog.String("doc_type", string(a.DocType)),
		slog.String("file", a.FileName),
		slog.Int64("version", version),
	)

	return Result{Action: ActionImported, State: a.State, Detail: detail, NewVersion: version}, nil
}

// pushToFile writes database content to the resolved (or canonical)
// file. The watermark stamp is conditional on the version observed at
// analysis time; if a concurrent edit bumped it, the reconciliation
// fails and the caller retries. The file write itself is not rolled
// back -- there is no multi-step transaction.
func (e *Engine) pushToFile(ctx context.Context, p *store.Project, a Analysis) (Result, error) {
	ws, err := workspace.New(p.LocalPath)
	if err != nil {
		return Result{}, err
	}

	name := targetFilename(a)
	if err := ws.Write(name, a.DBContent); err != nil {
		return Result{}, fmt.Errorf("syncing %s to file: %w", a.DocType, err)
	}

	if err := e.store.TouchWatermarkIf(ctx, p.ID, a.DocType, e.now(), a.BaseVersion); err != nil {
		return Result{}, fmt.Errorf("stamping watermark for %s: %w", a.DocType, err)
	}

	detail := "wrote " + name
	e.record(p.ID, a.DocType, ActionSynced, a.State, detail)
	e.logger.Info("sync: pushed database content to file",
		slog.String("project", p.ID),
		slog.String("doc_type", string(a.DocType)),
		slog.String("file", name),
	)

	return Result{Action: ActionSynced, State: a.State, Detail: detail}, nil
}

// createFile materializes a missing file from database content at the
// canonical path.
func (e *Engine) createFile(ctx context.Context, p *store.Project, a Analysis) (Result, error) {
	ws, err := workspace.New(p.LocalPath)
	if err != nil {
		return Result{}, err
	}

	name := a.DocType.CanonicalFilename()
	if err := ws.Write(name, a.DBContent); err != nil {
		return Result{}, fmt.Errorf("creating %s: %w", name, err)
	}

	if err := e.store.TouchWatermarkIf(ctx, p.ID, a.DocType, e.now(), a.BaseVersion); err != nil {
		return Result{}, fmt.Errorf("stamping watermark for %s: %w", a.DocType, err)
	}

	detail := "created " + name
	e.record(p.ID, a.DocType, ActionCreated, a.State, detail)
	e.logger.Info("sync: created file from database content",
		slog.String("project", p.ID),
		slog.String("doc_type", string(a.DocType)),
		slog.String("file", name),
	)

	return Result{Action: ActionCreated, State: a.State, Detail: detail}, nil
}

// ForcePushToFile writes current database content to the file
// unconditionally, bypassing the decision procedure, and stamps the
// watermark. Explicit user intent overrides the optimistic guard.
func (e *Engine) ForcePushToFile(ctx context.Context, projectID string, dt document.Type) (Result, error) {
	p, err := e.project(ctx, projectID)
	if err != nil {
		return Result{}, err
	}

	a, err := e.Analyze(ctx, p, dt)
	if err != nil {
		return Result{}, err
	}

	if a.State == StateNoLocalPath {
		return Result{Action: ActionNone, State: a.State, Detail: "no local path configured"}, nil
	}

	ws, err := workspace.New(p.LocalPath)
	if err != nil {
		return Result{}, err
	}

	name := targetFilename(a)
	if err := ws.Write(name, a.DBContent); err != nil {
		return Result{}, fmt.Errorf("force-pushing %s: %w", dt, err)
	}

	if err := e.store.TouchWatermark(ctx, p.ID, dt, e.now()); err != nil {
		return Result{}, err
	}

	detail := "force-pushed to " + name
	e.record(p.ID, dt, ActionSynced, a.State, detail)
	e.logger.Info("sync: force push",
		slog.String("project", p.ID),
		slog.String("doc_type", string(dt)),
		slog.String("file", name),
	)

	return Result{Action: ActionSynced, State: a.State, Detail: detail}, nil
}

// ForceImportFromFile copies current file content into the database
// unconditionally, bypassing the decision procedure, and stamps the
// watermark. Refused when no candidate file exists: importing nothing
// would wipe the record.
func (e *Engine) ForceImportFromFile(ctx context.Context, projectID string, dt document.Type) (Result, error) {
	p, err := e.project(ctx, projectID)
	if err != nil {
		return Result{}, err
	}

	a, err := e.Analyze(ctx, p, dt)
	if err != nil {
		return Result{}, err
	}

	if a.State == StateNoLocalPath {
		return Result{Action: ActionNone, State: a.State, Detail: "no local path configured"}, nil
	}

	if !a.FileExists {
		return Result{}, docerrors.ErrNoDocumentFile
	}

	version, err := e.store.UpsertDocument(ctx, p.ID, dt, a.FileContent)
	if err != nil {
		return Result{}, fmt.Errorf("force-importing %s: %w", dt, err)
	}

	if err := e.store.TouchWatermark(ctx, p.ID, dt, e.now()); err != nil {
		return Result{}, err
	}

	detail := "force-imported from " + a.FileName
	e.record(p.ID, dt, ActionImported, a.State, detail)
	e.logger.Info("sync: force import",
		slog.String("project", p.ID),
		slog.String("doc_type", string(dt)),
		slog.String("file", a.FileName),
		slog.Int64("version", version),
	)

	return Result{Action: ActionImported, State: a.State, Detail: detail, NewVersion: version}, nil
}

// record journals and publishes a completed write action.
func (e *Engine) record(projectID string, dt document.Type, action Action, state State, detail string) {
	if e.journal != nil {
		err := e.journal.Append(journal.Entry{
			Time:      e.now(),
			ProjectID: projectID,
			DocType:   string(dt),
			Action:    string(action),
			Detail:    detail,
		})
		if err != nil {
			e.logger.Warn("sync: journal append failed",
				slog.String("project", projectID),
				slog.String("error", err.Error()),
			)
		}
	}

	e.publish(projectID, dt, action, state, detail)
}

func (e *Engine) publish(projectID string, dt document.Type, action Action, state State, detail string) {
	if e.events == nil {
		return
	}

	e.events.Publish(events.Event{
		Time:      e.now(),
		ProjectID: projectID,
		DocType:   string(dt),
		Action:    string(action),
		State:     string(state),
		Detail:    detail,
	})
}
