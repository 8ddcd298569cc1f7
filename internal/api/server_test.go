package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexjbarnes/docsync/internal/config"
	"github.com/alexjbarnes/docsync/internal/events"
	"github.com/alexjbarnes/docsync/internal/journal"
	"github.com/alexjbarnes/docsync/internal/store"
	docsync "github.com/alexjbarnes/docsync/internal/sync"
)

func newTestServer(t *testing.T, keys []config.APIKeyEntry) *Server {
	t.Helper()

	dataDir := t.TempDir()

	st, err := store.Open(filepath.Join(dataDir, "docsync.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	jnl, err := journal.Open(filepath.Join(dataDir, "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { jnl.Close() })

	hub := events.NewHub()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := docsync.NewEngine(st, jnl, hub, logger)

	return NewServer(st, jnl, engine, hub, logger, keys)
}

func doJSON(t *testing.T, srv http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))

	return out
}

func createProject(t *testing.T, srv *Server, localPath string) store.Project {
	t.Helper()

	rec := doJSON(t, srv, http.MethodPost, "/api/projects",
		map[string]string{"name": "demo", "local_path": localPath})
	require.Equal(t, http.StatusCreated, rec.Code)

	return decodeBody[store.Project](t, rec)
}

func TestProjectLifecycle(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, nil)
	p := createProject(t, srv, t.TempDir())
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "demo", p.Name)

	rec := doJSON(t, srv, http.MethodGet, "/api/projects", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]store.Project](t, rec), 1)

	rec = doJSON(t, srv, http.MethodGet, "/api/projects/"+p.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodDelete, "/api/projects/"+p.ID, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/projects/"+p.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateProject_RequiresName(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, nil)

	rec := doJSON(t, srv, http.MethodPost, "/api/projects", map[string]string{"name": "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDocumentEndpoints(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, nil)
	p := createProject(t, srv, t.TempDir())

	rec := doJSON(t, srv, http.MethodGet, "/api/projects/"+p.ID+"/documents/blueprint", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	doc := decodeBody[store.Document](t, rec)
	assert.Equal(t, int64(1), doc.Version)
	assert.Equal(t, "# Blueprint\n", doc.Content)

	content := "# Blueprint\n\nAn authored architecture description with detail.\n"
	rec = doJSON(t, srv, http.MethodPut, "/api/projects/"+p.ID+"/documents/blueprint",
		map[string]string{"content": content})
	require.Equal(t, http.StatusOK, rec.Code)

	doc = decodeBody[store.Document](t, rec)
	assert.Equal(t, int64(2), doc.Version)
	assert.Equal(t, content, doc.Content)
}

func TestDocumentEndpoints_UnknownType(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, nil)
	p := createProject(t, srv, t.TempDir())

	rec := doJSON(t, srv, http.MethodGet, "/api/projects/"+p.ID+"/documents/readme", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDocumentEndpoints_UnknownProject(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, nil)

	rec := doJSON(t, srv, http.MethodGet, "/api/projects/nope/documents/blueprint", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSyncEndpoints(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, nil)
	dir := t.TempDir()
	p := createProject(t, srv, dir)

	authored := "# Blueprint\n\nThe system consists of three services and a queue.\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "BLUEPRINT.md"), []byte(authored), 0o644))

	rec := doJSON(t, srv, http.MethodPost, "/api/projects/"+p.ID+"/documents/blueprint/sync/auto", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	res := decodeBody[docsync.Result](t, rec)
	assert.Equal(t, docsync.ActionImported, res.Action)

	rec = doJSON(t, srv, http.MethodGet, "/api/projects/"+p.ID+"/documents/blueprint/sync", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	status := decodeBody[docsync.Status](t, rec)
	assert.True(t, status.InSync)

	rec = doJSON(t, srv, http.MethodGet, "/api/projects/"+p.ID+"/sync", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]docsync.Status](t, rec), 5)

	rec = doJSON(t, srv, http.MethodGet, "/api/projects/"+p.ID+"/sync/log?limit=10", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	entries := decodeBody[[]journal.Entry](t, rec)
	require.Len(t, entries, 1)
	assert.Equal(t, "imported", entries[0].Action)
}

func TestSyncLog_InvalidLimit(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, nil)
	p := createProject(t, srv, t.TempDir())

	rec := doJSON(t, srv, http.MethodGet, "/api/projects/"+p.ID+"/sync/log?limit=zero", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResolveEndpoint_UnknownResolution(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, nil)
	p := createProject(t, srv, t.TempDir())

	rec := doJSON(t, srv, http.MethodPost, "/api/projects/"+p.ID+"/documents/blueprint/sync/resolve",
		map[string]string{"resolution": "merge"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestForceImport_NoFile(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, nil)
	p := createProject(t, srv, t.TempDir())

	rec := doJSON(t, srv, http.MethodPost, "/api/projects/"+p.ID+"/documents/blueprint/sync/import", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPIKeyGate(t *testing.T) {
	t.Parallel()

	key := "ds_" + strings.Repeat("ab", 16)
	srv := newTestServer(t, []config.APIKeyEntry{{UserID: "alex", Key: key}})

	// Health endpoint stays open.
	rec := doJSON(t, srv, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/projects", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/projects", nil)
	req.Header.Set("Authorization", "Bearer wrong-key")
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/projects", nil)
	req.Header.Set("Authorization", "Bearer "+key)
	rr = httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestEventStream(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, nil)
	dir := t.TempDir()
	p := createProject(t, srv, dir)

	ts := httptest.NewServer(srv)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/events"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	authored := "# Blueprint\n\nThe system consists of three services and a queue.\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "BLUEPRINT.md"), []byte(authored), 0o644))

	rec := doJSON(t, srv, http.MethodPost, "/api/projects/"+p.ID+"/documents/blueprint/sync/auto", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	typ, payload, err := conn.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, websocket.MessageText, typ)

	var ev events.Event
	require.NoError(t, json.Unmarshal(payload, &ev))
	assert.Equal(t, p.ID, ev.ProjectID)
	assert.Equal(t, "imported", ev.Action)

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, "done"))
}
