// Package store persists projects and their canonical document records
// in SQLite. The sync engine treats it as a local synchronous
// dependency; all content writes bump the document version, and the
// sync watermark is only ever stamped by the engine.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/alexjbarnes/docsync/internal/docerrors"
	"github.com/alexjbarnes/docsync/internal/document"
)

// Project is one tenant workspace. LocalPath is the directory holding
// the file mirrors of its documents; empty means no mirror configured.
type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	LocalPath string    `json:"local_path"`
	CreatedAt time.Time `json:"created_at"`
}

// Document is the canonical database side of a synced document.
// LastSyncedAt is the zero time when the document has never been
// reconciled with its file mirror.
type Document struct {
	ProjectID    string        `json:"project_id"`
	Type         document.Type `json:"doc_type"`
	Content      string        `json:"content"`
	Version      int64         `json:"version"`
	UpdatedAt    time.Time     `json:"updated_at"`
	LastSyncedAt time.Time     `json:"last_synced_at"`
}

// Store wraps the SQLite database holding projects and documents.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and runs
// migrations. The parent directory is created first.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating store: %w", err)
	}

	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS projects (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			local_path TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS documents (
			project_id     TEXT    NOT NULL,
			doc_type       TEXT    NOT NULL,
			content        TEXT    NOT NULL DEFAULT '',
			version        INTEGER NOT NULL DEFAULT 1,
			updated_at     INTEGER NOT NULL,
			last_synced_at INTEGER,
			PRIMARY KEY (project_id, doc_type),
			FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE
		);

		CREATE INDEX IF NOT EXISTS idx_documents_project ON documents(project_id);
	`

	_, err := s.db.Exec(schema)

	return err
}

// CreateProject inserts a project and seeds one skeleton document per
// document type, matching the record lifecycle: rows exist from project
// creation onward and carry placeholder content until edited or synced.
func (s *Store) CreateProject(ctx context.Context, name, localPath string) (*Project, error) {
	p := &Project{
		ID:        uuid.NewString(),
		Name:      name,
		LocalPath: localPath,
		CreatedAt: time.Now(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO projects (id, name, local_path, created_at) VALUES (?, ?, ?, ?)`,
		p.ID, p.Name, p.LocalPath, p.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting project: %w", err)
	}

	now := time.Now().UnixMilli()
	for _, dt := range document.All() {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO documents (project_id, doc_type, content, version, updated_at) VALUES (?, ?, ?, 1, ?)`,
			p.ID, string(dt), dt.SkeletonContent(), now,
		)
		if err != nil {
			return nil, fmt.Errorf("seeding %s document: %w", dt, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing project: %w", err)
	}

	return p, nil
}

// GetProject returns a project by ID, or nil if it does not exist.
func (s *Store) GetProject(ctx context.Context, id string) (*Project, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, local_path, created_at FROM projects WHERE id = ?`, id)

	var (
		p       Project
		created int64
	)

	err := row.Scan(&p.ID, &p.Name, &p.LocalPath, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying project: %w", err)
	}

	p.CreatedAt = time.UnixMilli(created)

	return &p, nil
}

// ListProjects returns all projects, newest first.
func (s *Store) ListProjects(ctx context.Context) ([]Project, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, local_path, created_at FROM projects ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	defer rows.Close()

	var projects []Project

	for rows.Next() {
		var (
			p       Project
			created int64
		)

		if err := rows.Scan(&p.ID, &p.Name, &p.LocalPath, &created); err != nil {
			return nil, fmt.Errorf("scanning project: %w", err)
		}

		p.CreatedAt = time.UnixMilli(created)
		projects = append(projects, p)
	}

	return projects, rows.Err()
}

// DeleteProject removes a project and, via cascade, its document rows.
// Files on disk are left untouched.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting project: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}

	if n == 0 {
		return docerrors.ErrProjectNotFound
	}

	return nil
}

// GetDocument returns the document record for (project, type), or nil
// if no row exists. Absence is not an error; the analyzer treats a
// missing record as empty content.
func (s *Store) GetDocument(ctx context.Context, projectID string, dt document.Type) (*Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT content, version, updated_at, last_synced_at
		 FROM documents WHERE project_id = ? AND doc_type = ?`,
		projectID, string(dt))

	var (
		doc     Document
		updated int64
		synced  sql.NullInt64
	)

	err := row.Scan(&doc.Content, &doc.Version, &updated, &synced)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying document: %w", err)
	}

	doc.ProjectID = projectID
	doc.Type = dt
	doc.UpdatedAt = time.UnixMilli(updated)

	if synced.Valid {
		doc.LastSyncedAt = time.UnixMilli(synced.Int64)
	}

	return &doc, nil
}

// UpsertDocument writes content unconditionally, creating the row if
// absent and bumping the version otherwise. Returns the new version.
// Used by the document editing surface and by forced sync operations.
func (s *Store) UpsertDocument(ctx context.Context, projectID string, dt document.Type, content string) (int64, error) {
	now := time.Now().UnixMilli()

	row := s.db.QueryRowContext(ctx,
		`INSERT INTO documents (project_id, doc_type, content, version, updated_at)
		 VALUES (?, ?, ?, 1, ?)
		 ON CONFLICT(project_id, doc_type) DO UPDATE SET
			content = excluded.content,
			version = documents.version + 1,
			updated_at = excluded.updated_at
		 RETURNING version`,
		projectID, string(dt), content, now)

	var version int64
	if err := row.Scan(&version); err != nil {
		return 0, fmt.Errorf("upserting document: %w", err)
	}

	return version, nil
}

// UpdateContentIf writes content only if the document version is still
// baseVersion, the optimistic-concurrency guard for automatic
// reconciliation. baseVersion 0 means no row existed at analysis time;
// the row is inserted and a concurrently-appeared row is a conflict.
// Returns the new version, or docerrors.ErrConcurrentUpdate.
func (s *Store) UpdateContentIf(ctx context.Context, projectID string, dt document.Type, content string, baseVersion int64) (int64, error) {
	now := time.Now().UnixMilli()

	if baseVersion == 0 {
		res, err := s.db.ExecContext(ctx,
			`INSERT INTO documents (project_id, doc_type, content, version, updated_at)
			 VALUES (?, ?, ?, 1, ?)
			 ON CONFLICT(project_id, doc_type) DO NOTHING`,
			projectID, string(dt), content, now)
		if err != nil {
			return 0, fmt.Errorf("inserting document: %w", err)
		}

		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("checking insert result: %w", err)
		}

		if n == 0 {
			return 0, docerrors.ErrConcurrentUpdate
		}

		return 1, nil
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE documents
		 SET content = ?, version = version + 1, updated_at = ?
		 WHERE project_id = ? AND doc_type = ? AND version = ?`,
		content, now, projectID, string(dt), baseVersion)
	if err != nil {
		return 0, fmt.Errorf("updating document: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking update result: %w", err)
	}

	if n == 0 {
		return 0, docerrors.ErrConcurrentUpdate
	}

	return baseVersion + 1, nil
}

// TouchWatermark stamps last_synced_at unconditionally.
func (s *Store) TouchWatermark(ctx context.Context, projectID string, dt document.Type, ts time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE documents SET last_synced_at = ? WHERE project_id = ? AND doc_type = ?`,
		ts.UnixMilli(), projectID, string(dt))
	if err != nil {
		return fmt.Errorf("touching watermark: %w", err)
	}

	return nil
}

// TouchWatermarkIf stamps last_synced_at only if the document version
// is still baseVersion. Guards the database-to-file direction, where
// the content write goes to disk but the watermark must not close a
// window that a concurrent edit reopened.
func (s *Store) TouchWatermarkIf(ctx context.Context, projectID string, dt document.Type, ts time.Time, baseVersion int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET last_synced_at = ?
		 WHERE project_id = ? AND doc_type = ? AND version = ?`,
		ts.UnixMilli(), projectID, string(dt), baseVersion)
	if err != nil {
		return fmt.Errorf("touching watermark: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking watermark result: %w", err)
	}

	if n == 0 {
		return docerrors.ErrConcurrentUpdate
	}

	return nil
}
