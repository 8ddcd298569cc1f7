package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/alexjbarnes/docsync/internal/document"
)

// FileHandle is the resolved on-disk side of a document. Exists is
// false (and Path/MTime zero) when no candidate file is on disk.
type FileHandle struct {
	Path    string
	Name    string
	Content string
	MTime   time.Time
	Exists  bool
}

// Resolve finds the best file for a document type among its candidate
// filenames. Two passes, in candidate preference order: first the
// earliest existing candidate whose content is not a skeleton, then, if
// every existing candidate is a skeleton, the earliest candidate that
// exists at all. A stray placeholder file therefore never masks a real
// document written under a later accepted name. Returns an empty handle
// when no candidate exists; that is a valid state, not an error.
//
// Directory entries are compared NFC-normalized so files written by
// macOS tooling (which stores NFD names) still match the candidate
// table.
func (w *Workspace) Resolve(dt document.Type) (FileHandle, error) {
	entries, err := os.ReadDir(w.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return FileHandle{}, nil
		}

		return FileHandle{}, fmt.Errorf("reading workspace directory: %w", err)
	}

	onDisk := make(map[string]string, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}

		onDisk[norm.NFC.String(e.Name())] = e.Name()
	}

	var fallback *FileHandle

	for _, candidate := range dt.Candidates() {
		name, ok := onDisk[norm.NFC.String(candidate)]
		if !ok {
			continue
		}

		handle, err := w.readHandle(name)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				// Deleted between ReadDir and the read. Treat as absent.
				continue
			}

			return FileHandle{}, err
		}

		if !document.IsSkeleton(handle.Content) {
			return handle, nil
		}

		if fallback == nil {
			fallback = &handle
		}
	}

	if fallback != nil {
		return *fallback, nil
	}

	return FileHandle{}, nil
}

func (w *Workspace) readHandle(name string) (FileHandle, error) {
	content, err := w.Read(name)
	if err != nil {
		return FileHandle{}, err
	}

	mtime, err := w.Stat(name)
	if err != nil {
		return FileHandle{}, err
	}

	abs, err := w.resolve(name)
	if err != nil {
		return FileHandle{}, err
	}

	return FileHandle{
		Path:    abs,
		Name:    name,
		Content: content,
		MTime:   mtime,
		Exists:  true,
	}, nil
}
