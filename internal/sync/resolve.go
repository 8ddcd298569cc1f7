package sync

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alexjbarnes/docsync/internal/docerrors"
	"github.com/alexjbarnes/docsync/internal/document"
	"github.com/alexjbarnes/docsync/internal/workspace"
)

// Resolution is a caller-chosen way out of a conflict.
type Resolution string

const (
	// ResolutionKeepDB re-pushes current database content to the file.
	ResolutionKeepDB Resolution = "keep_db"

	// ResolutionKeepFile re-imports current file content into the
	// database.
	ResolutionKeepFile Resolution = "keep_file"

	// ResolutionKeepCustom writes caller-supplied merged content to
	// both sides.
	ResolutionKeepCustom Resolution = "keep_custom"
)

// ParseResolution normalizes a raw resolution string. Like document
// types, resolutions are normalized exactly once at the boundary.
func ParseResolution(raw string) (Resolution, error) {
	switch Resolution(strings.ToLower(strings.TrimSpace(raw))) {
	case ResolutionKeepDB:
		return ResolutionKeepDB, nil
	case ResolutionKeepFile:
		return ResolutionKeepFile, nil
	case ResolutionKeepCustom:
		return ResolutionKeepCustom, nil
	default:
		return "", fmt.Errorf("%w: %q", docerrors.ErrUnknownResolution, raw)
	}
}

// ResolveConflict applies the chosen resolution and stamps the
// watermark, closing the conflict window. Input validation happens
// before any write: keep_custom without content is rejected outright.
func (e *Engine) ResolveConflict(ctx context.Context, projectID string, dt document.Type, resolution Resolution, customContent string) (Result, error) {
	if resolution == ResolutionKeepCustom && customContent == "" {
		return Result{}, docerrors.ErrMissingCustomContent
	}

	switch resolution {
	case ResolutionKeepDB:
		res, err := e.ForcePushToFile(ctx, projectID, dt)
		if err != nil {
			return Result{}, err
		}

		res.Detail = "resolved conflict: kept database version"

		return res, nil

	case ResolutionKeepFile:
		res, err := e.ForceImportFromFile(ctx, projectID, dt)
		if err != nil {
			return Result{}, err
		}

		res.Detail = "resolved conflict: kept file version"

		return res, nil

	case ResolutionKeepCustom:
		return e.resolveCustom(ctx, projectID, dt, customContent)

	default:
		return Result{}, fmt.Errorf("%w: %q", docerrors.ErrUnknownResolution, resolution)
	}
}

// resolveCustom writes caller-supplied content to both the database and
// the file, then stamps the watermark.
func (e *Engine) resolveCustom(ctx context.Context, projectID string, dt document.Type, content string) (Result, error) {
	p, err := e.project(ctx, projectID)
	if err != nil {
		return Result{}, err
	}

	a, err := e.Analyze(ctx, p, dt)
	if err != nil {
		return Result{}, err
	}

	version, err := e.store.UpsertDocument(ctx, p.ID, dt, content)
	if err != nil {
		return Result{}, fmt.Errorf("writing custom content to database: %w", err)
	}

	if a.State != StateNoLocalPath {
		ws, err := workspace.New(p.LocalPath)
		if err != nil {
			return Result{}, err
		}

		name := targetFilename(a)
		if err := ws.Write(name, content); err != nil {
			return Result{}, fmt.Errorf("writing custom content to file: %w", err)
		}
	}

	if err := e.store.TouchWatermark(ctx, p.ID, dt, e.now()); err != nil {
		return Result{}, err
	}

	detail := "resolved conflict: custom content"
	e.record(p.ID, dt, ActionSynced, a.State, detail)
	e.logger.Info("sync: conflict resolved with custom content",
		slog.String("project", p.ID),
		slog.String("doc_type", string(dt)),
		slog.Int64("version", version),
	)

	return Result{Action: ActionSynced, State: a.State, Detail: detail, NewVersion: version}, nil
}
