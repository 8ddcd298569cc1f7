// Package journal records reconciliation outcomes in an append-only
// bbolt database, one bucket per project. It exists for the sync
// dashboard's history view and for debugging "who overwrote what";
// nothing in the engine reads it back to make decisions.
package journal

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	// journalDirPerm is the permission mode for the journal directory.
	journalDirPerm = fs.FileMode(0o700)

	// journalFilePerm is the permission mode for the journal database file.
	journalFilePerm = fs.FileMode(0o600)

	// journalOpenTimeout is the maximum time to wait for the bolt lock.
	journalOpenTimeout = 5 * time.Second
)

func projectBucket(projectID string) []byte {
	return []byte("project:" + projectID)
}

// Entry is one recorded reconciliation outcome.
type Entry struct {
	Time      time.Time `json:"time"`
	ProjectID string    `json:"project_id"`
	DocType   string    `json:"doc_type"`
	Action    string    `json:"action"`
	Detail    string    `json:"detail,omitempty"`
}

// Journal wraps a bbolt database of reconciliation entries.
type Journal struct {
	db *bolt.DB
}

// Open opens the journal database at the given path, creating it and
// its parent directory if needed.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), journalDirPerm); err != nil {
		return nil, fmt.Errorf("creating journal directory: %w", err)
	}

	db, err := bolt.Open(path, journalFilePerm, &bolt.Options{Timeout: journalOpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("opening journal db: %w", err)
	}

	return &Journal{db: db}, nil
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Append records an entry under the project's bucket, keyed by a
// monotonically increasing sequence so iteration order is append order.
func (j *Journal) Append(e Entry) error {
	return j.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(projectBucket(e.ProjectID))
		if err != nil {
			return err
		}

		seq, err := b.NextSequence()
		if err != nil {
			return err
		}

		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)

		data, err := json.Marshal(e)
		if err != nil {
			return err
		}

		return b.Put(key, data)
	})
}

// Recent returns up to limit entries for a project, newest first.
// A limit of 0 or less returns every entry.
func (j *Journal) Recent(projectID string, limit int) ([]Entry, error) {
	var entries []Entry

	err := j.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(projectBucket(projectID))
		if b == nil {
			return nil
		}

		c := b.Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return err
			}

			entries = append(entries, e)
			if limit > 0 && len(entries) >= limit {
				return nil
			}
		}

		return nil
	})

	return entries, err
}

// DeleteProject removes a project's journal bucket. Called when the
// owning project is deleted.
func (j *Journal) DeleteProject(projectID string) error {
	return j.db.Update(func(tx *bolt.Tx) error {
		err := tx.DeleteBucket(projectBucket(projectID))
		if err == bolt.ErrBucketNotFound {
			return nil
		}

		return err
	})
}
