package journal

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testJournal(t *testing.T) *Journal {
	t.Helper()

	j, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })

	return j
}

func TestAppendAndRecent(t *testing.T) {
	j := testJournal(t)

	for i := range 5 {
		require.NoError(t, j.Append(Entry{
			Time:      time.Now(),
			ProjectID: "p1",
			DocType:   "prd",
			Action:    "imported",
			Detail:    fmt.Sprintf("entry %d", i),
		}))
	}

	entries, err := j.Recent("p1", 3)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	// Newest first.
	assert.Equal(t, "entry 4", entries[0].Detail)
	assert.Equal(t, "entry 2", entries[2].Detail)
}

func TestRecent_NoLimit(t *testing.T) {
	j := testJournal(t)

	require.NoError(t, j.Append(Entry{ProjectID: "p1", Action: "synced"}))
	require.NoError(t, j.Append(Entry{ProjectID: "p1", Action: "created"}))

	entries, err := j.Recent("p1", 0)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestRecent_UnknownProject(t *testing.T) {
	j := testJournal(t)

	entries, err := j.Recent("nope", 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestProjectsAreIsolated(t *testing.T) {
	j := testJournal(t)

	require.NoError(t, j.Append(Entry{ProjectID: "p1", Action: "imported"}))
	require.NoError(t, j.Append(Entry{ProjectID: "p2", Action: "synced"}))

	entries, err := j.Recent("p1", 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "imported", entries[0].Action)
}

func TestDeleteProject(t *testing.T) {
	j := testJournal(t)

	require.NoError(t, j.Append(Entry{ProjectID: "p1", Action: "imported"}))
	require.NoError(t, j.DeleteProject("p1"))

	entries, err := j.Recent("p1", 0)
	require.NoError(t, err)
	assert.Empty(t, entries)

	// Deleting an absent bucket is a no-op.
	assert.NoError(t, j.DeleteProject("p1"))
}
