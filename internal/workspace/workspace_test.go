package workspace

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_EmptyPath(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)
}

func TestNew_ResolvesAbsolute(t *testing.T) {
	w, err := New(t.TempDir())
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(w.Root()))
}

func TestReadWrite_RoundTrip(t *testing.T) {
	w, err := New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, w.Write("PRD.md", "# PRD\n\nBody."))

	got, err := w.Read("PRD.md")
	require.NoError(t, err)
	assert.Equal(t, "# PRD\n\nBody.", got)

	mtime, err := w.Stat("PRD.md")
	require.NoError(t, err)
	assert.False(t, mtime.IsZero())
}

func TestWrite_CreatesRootDirectory(t *testing.T) {
	root := filepath.Join(t.TempDir(), "not", "yet", "there")

	w, err := New(root)
	require.NoError(t, err)

	require.NoError(t, w.Write("PLAN.md", "# Plan"))

	_, err = os.Stat(filepath.Join(root, "PLAN.md"))
	assert.NoError(t, err)
}

func TestWrite_ReplacesExisting(t *testing.T) {
	w, err := New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, w.Write("MVP.md", "first"))
	require.NoError(t, w.Write("MVP.md", "second"))

	got, err := w.Read("MVP.md")
	require.NoError(t, err)
	assert.Equal(t, "second", got)
}

func TestRead_Missing(t *testing.T) {
	w, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = w.Read("ABSENT.md")
	assert.ErrorIs(t, err, fs.ErrNotExist)

	_, err = w.Stat("ABSENT.md")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestResolve_PathTraversalRejected(t *testing.T) {
	w, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = w.Read("../outside.md")
	assert.Error(t, err)

	err = w.Write("../../etc/passwd", "nope")
	assert.Error(t, err)

	_, err = w.Read("")
	assert.Error(t, err)
}
