// Package workspace provides filesystem access to a project's local
// directory: safe path resolution, atomic writes, and resolution of a
// document type to the best candidate file on disk.
package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Workspace operates on files inside one project's local directory.
// The directory does not have to exist yet; writes create it.
type Workspace struct {
	root string
}

// New creates a Workspace rooted at the given directory, resolved to an
// absolute path. The path traversal checks below rely on string prefix
// comparison, which only works reliably with absolute paths.
func New(root string) (*Workspace, error) {
	if root == "" {
		return nil, fmt.Errorf("workspace path must not be empty")
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving workspace path: %w", err)
	}

	return &Workspace{root: abs}, nil
}

// Root returns the absolute path to the workspace root.
func (w *Workspace) Root() string {
	return w.root
}

// resolve converts a workspace-relative name to an absolute path,
// validating that it stays within the root.
func (w *Workspace) resolve(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("file name must not be empty")
	}

	if strings.Contains(name, "..") {
		return "", fmt.Errorf("file name must not contain '..': %s", name)
	}

	abs := filepath.Join(w.root, filepath.FromSlash(name))
	if !strings.HasPrefix(abs, w.root+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes workspace root: %s", name)
	}

	return abs, nil
}

// Read returns the content of a file. A missing file reports
// fs.ErrNotExist, which callers treat as a valid state, not a failure.
func (w *Workspace) Read(name string) (string, error) {
	abs, err := w.resolve(name)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", err
		}

		return "", fmt.Errorf("reading %s: %w", name, err)
	}

	return string(data), nil
}

// Stat returns the modification time of a file. A missing file reports
// fs.ErrNotExist.
func (w *Workspace) Stat(name string) (time.Time, error) {
	abs, err := w.resolve(name)
	if err != nil {
		return time.Time{}, err
	}

	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return time.Time{}, err
		}

		return time.Time{}, fmt.Errorf("stating %s: %w", name, err)
	}

	return info.ModTime(), nil
}

// Write creates or replaces a file, creating parent directories
// (including the root itself) as needed. It uses atomic write (temp
// file + rename) so a concurrent reader never sees a torn file.
func (w *Workspace) Write(name, content string) error {
	abs, err := w.resolve(name)
	if err != nil {
		return err
	}

	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directories: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".docsync-write-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)

		return fmt.Errorf("writing temp file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}

	// Preserve permissions of an existing file, or use the default.
	perm := fs.FileMode(0o644)
	if info, statErr := os.Stat(abs); statErr == nil {
		perm = info.Mode()
	}

	if err := os.Chmod(tmpName, perm); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("setting file permissions: %w", err)
	}

	if err := os.Rename(tmpName, abs); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}

	return nil
}
