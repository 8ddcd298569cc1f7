package sync

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	gosync "sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/text/unicode/norm"

	"github.com/alexjbarnes/docsync/internal/document"
	"github.com/alexjbarnes/docsync/internal/store"
)

// debounceDelay is how long the watcher waits after the last event for
// a document before triggering reconciliation. Editors save in bursts
// (truncate, write, chmod); one sync per burst is enough.
const debounceDelay = 500 * time.Millisecond

// Watcher triggers AutoSync when a candidate document file changes in a
// project's local directory. It is an outer-layer convenience around
// the request-scoped engine, not part of the engine itself.
//
// TODO: pick up projects created after startup; currently only the
// directories present when Run starts are watched.
type Watcher struct {
	engine *Engine
	store  *store.Store
	logger *slog.Logger

	mu       gosync.Mutex
	pending  map[string]*time.Timer
	projects map[string]string // watched dir -> project ID
}

// NewWatcher creates a watcher over all projects in the store.
func NewWatcher(engine *Engine, st *store.Store, logger *slog.Logger) *Watcher {
	return &Watcher{
		engine:   engine,
		store:    st,
		logger:   logger,
		pending:  make(map[string]*time.Timer),
		projects: make(map[string]string),
	}
}

// Run watches every project directory that exists and blocks until the
// context is cancelled. Projects without a local path, or whose path
// does not exist yet, are skipped.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	projects, err := w.store.ListProjects(ctx)
	if err != nil {
		return err
	}

	for _, p := range projects {
		if p.LocalPath == "" {
			continue
		}

		abs, err := filepath.Abs(p.LocalPath)
		if err != nil {
			continue
		}

		if err := fw.Add(abs); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				w.logger.Debug("watch: directory not present yet, skipping",
					slog.String("project", p.ID),
					slog.String("path", abs),
				)

				continue
			}

			w.logger.Warn("watch: cannot watch directory",
				slog.String("project", p.ID),
				slog.String("path", abs),
				slog.String("error", err.Error()),
			)

			continue
		}

		w.projects[abs] = p.ID
	}

	w.logger.Info("watch: started", slog.Int("directories", len(w.projects)))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fw.Events:
			if !ok {
				return errors.New("fsnotify events channel closed")
			}

			w.handleEvent(ctx, event)

		case err, ok := <-fw.Errors:
			if !ok {
				return errors.New("fsnotify errors channel closed")
			}

			w.logger.Warn("watch: fsnotify error", slog.String("error", err.Error()))
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
		return
	}

	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") {
		// Hidden files, including our own atomic-write temp files.
		return
	}

	projectID, ok := w.projects[filepath.Dir(event.Name)]
	if !ok {
		return
	}

	dt, ok := matchDocType(name)
	if !ok {
		return
	}

	w.schedule(ctx, projectID, dt)
}

// matchDocType maps a filename to the document type that lists it as a
// candidate, comparing NFC-normalized.
func matchDocType(name string) (document.Type, bool) {
	normalized := norm.NFC.String(name)

	for _, dt := range document.All() {
		for _, candidate := range dt.Candidates() {
			if norm.NFC.String(candidate) == normalized {
				return dt, true
			}
		}
	}

	return "", false
}

// schedule arms (or re-arms) the debounce timer for one document.
func (w *Watcher) schedule(ctx context.Context, projectID string, dt document.Type) {
	key := projectID + "/" + string(dt)

	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.pending[key]; ok {
		timer.Stop()
	}

	w.pending[key] = time.AfterFunc(debounceDelay, func() {
		w.mu.Lock()
		delete(w.pending, key)
		w.mu.Unlock()

		w.autoSync(ctx, projectID, dt)
	})
}

func (w *Watcher) autoSync(ctx context.Context, projectID string, dt document.Type) {
	res, err := w.engine.AutoSync(ctx, projectID, dt)
	if err != nil {
		w.logger.Warn("watch: auto sync failed",
			slog.String("project", projectID),
			slog.String("doc_type", string(dt)),
			slog.String("error", err.Error()),
		)

		return
	}

	if res.Action == ActionNone {
		return
	}

	w.logger.Info("watch: auto sync",
		slog.String("project", projectID),
		slog.String("doc_type", string(dt)),
		slog.String("action", string(res.Action)),
	)
}
