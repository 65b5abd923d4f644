package handler

import (
	"archive/tar"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"appforge/internal/gateway/entity"
	"appforge/internal/gateway/repository/apps"
	"appforge/internal/gateway/run"
	"appforge/internal/generator"
	"appforge/internal/llm"
	"appforge/internal/types"
)

const recipePrompt = "A recipe sharing platform where users can submit recipes and vote on their favorites"

type env struct {
	store  apps.Store
	router http.Handler
}

func newEnv(t *testing.T, client *llm.FakeClient, store apps.Store, configured bool) env {
	t.Helper()
	if store == nil {
		store = apps.NewMemoryStore()
	}
	pipeline := generator.NewPipeline(generator.Deps{Client: client, Logger: zerolog.Nop()})
	h := New(Deps{
		Streamer:   run.NewBridge(pipeline, store, zerolog.Nop()),
		Store:      store,
		Configured: func() bool { return configured },
		Logger:     zerolog.Nop(),
	})
	r := chi.NewRouter()
	r.Post("/api/generate", h.Generate)
	r.Get("/api/generate/ws", h.GenerateWS)
	r.Get("/api/apps", h.ListApps)
	r.Get("/api/apps/{id}", h.GetApp)
	r.Delete("/api/apps/{id}", h.DeleteApp)
	r.Get("/api/apps/{id}/archive", h.ArchiveApp)
	return env{store: store, router: r}
}

func (e env) do(method, target, body string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func promptBody(p string) string {
	raw, _ := json.Marshal(map[string]string{"prompt": p})
	return string(raw)
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func readFrames(t *testing.T, r io.Reader) []run.Frame {
	t.Helper()
	d := run.NewDecoder(r)
	var frames []run.Frame
	for {
		f, err := d.Next()
		if errors.Is(err, io.EOF) {
			return frames
		}
		require.NoError(t, err)
		frames = append(frames, f)
	}
}

func TestGenerate_RejectsBeforeStreaming(t *testing.T) {
	cases := []struct {
		name       string
		body       string
		configured bool
		status     int
		msg        string
	}{
		{"short prompt", promptBody("short"), true, http.StatusBadRequest, "Please provide a detailed app description (at least 10 characters)"},
		{"long prompt", promptBody(strings.Repeat("a", 5001)), true, http.StatusBadRequest, "Prompt too long (max 5000 characters)"},
		{"invalid json", "{", true, http.StatusBadRequest, "Invalid request"},
		{"missing prompt", `{"text":"A recipe sharing platform"}`, true, http.StatusBadRequest, "Invalid request"},
		{"prompt not a string", `{"prompt":42}`, true, http.StatusBadRequest, "Invalid request"},
		{"not configured", promptBody(recipePrompt), false, http.StatusInternalServerError, "AI integration not configured. Please check your environment setup."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := llm.NewFakeClient()
			e := newEnv(t, client, nil, tc.configured)
			rec := e.do(http.MethodPost, "/api/generate", tc.body)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.msg, errorBody(t, rec))
			assert.Empty(t, client.Calls())

			list, err := e.store.List(context.Background())
			require.NoError(t, err)
			assert.Empty(t, list)
		})
	}
}

func TestGenerate_StreamsRecipeRun(t *testing.T) {
	e := newEnv(t, llm.NewFakeClient(), nil, true)
	rec := e.do(http.MethodPost, "/api/generate", promptBody(recipePrompt))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	frames := readFrames(t, rec.Body)
	var steps, completed []string
	counts := map[run.FrameType]int{}
	for _, f := range frames {
		counts[f.Type]++
		if f.Type == run.FrameStatus {
			steps = append(steps, f.Step)
			completed = append(completed, f.Completed)
		}
	}
	assert.Equal(t, []string{"analyzing", "schema", "frontend", "backend", "payments", "finalizing"}, steps)
	assert.Equal(t, []string{"", "analyzing", "schema", "frontend", "backend", "payments"}, completed)
	for _, ft := range []run.FrameType{run.FrameAppInfo, run.FrameFiles, run.FrameEnvVars, run.FrameDeploymentInstructions, run.FrameComplete} {
		assert.Equal(t, 1, counts[ft], ft)
	}

	last := frames[len(frames)-1]
	require.Equal(t, run.FrameComplete, last.Type)
	require.NotNil(t, last.App)
	assert.Equal(t, entity.StatusCompleted, last.App.Status)
	paths := map[string]bool{}
	for _, f := range last.App.Files {
		paths[f.Path] = true
	}
	for _, p := range generator.ConfigPaths {
		assert.True(t, paths[p], p)
	}

	got := e.do(http.MethodGet, "/api/apps/1", "")
	require.Equal(t, http.StatusOK, got.Code)
	var stored entity.GenerationRecord
	require.NoError(t, json.Unmarshal(got.Body.Bytes(), &stored))
	assert.Equal(t, entity.StatusCompleted, stored.Status)
	assert.Equal(t, len(last.App.Files), len(stored.Files))
}

func TestGenerate_CompletionOutage(t *testing.T) {
	outage := errors.New("upstream unavailable")
	client := llm.NewFakeClient().
		Fail(llm.PhaseAnalyze, outage).
		Fail(llm.PhaseFrontend, outage).
		Fail(llm.PhaseBackend, outage)
	e := newEnv(t, client, nil, true)

	rec := e.do(http.MethodPost, "/api/generate", promptBody(recipePrompt))
	frames := readFrames(t, rec.Body)
	last := frames[len(frames)-1]
	require.Equal(t, run.FrameComplete, last.Type)
	assert.Equal(t, types.DefaultAppName, last.App.AppName)
	assert.Len(t, client.Calls(), 3)
}

type brokenStore struct {
	apps.Store
}

var errDB = errors.New("db down")

func (brokenStore) Create(context.Context, entity.GenerationRecord) (entity.GenerationRecord, error) {
	return entity.GenerationRecord{}, errDB
}
func (brokenStore) Get(context.Context, int64) (entity.GenerationRecord, error) {
	return entity.GenerationRecord{}, errDB
}
func (brokenStore) List(context.Context) ([]entity.GenerationRecord, error) { return nil, errDB }
func (brokenStore) Delete(context.Context, int64) error                     { return errDB }

func TestGenerate_PersistenceFailureEndsWithErrorFrame(t *testing.T) {
	e := newEnv(t, llm.NewFakeClient(), brokenStore{}, true)
	rec := e.do(http.MethodPost, "/api/generate", promptBody(recipePrompt))
	require.Equal(t, http.StatusOK, rec.Code)

	frames := readFrames(t, rec.Body)
	last := frames[len(frames)-1]
	assert.Equal(t, run.FrameError, last.Type)
	assert.Contains(t, last.Message, "db down")
	for _, f := range frames {
		assert.NotEqual(t, run.FrameComplete, f.Type)
	}
}

func seed(t *testing.T, store apps.Store, names ...string) []entity.GenerationRecord {
	t.Helper()
	out := make([]entity.GenerationRecord, 0, len(names))
	for _, name := range names {
		rec := entity.NewDraft("prompt for " + name)
		rec.AppName = name
		rec.Status = entity.StatusCompleted
		rec.Files = []types.FileBundle{{Path: "client/src/App.tsx", Content: "export default function App() {}", Language: "typescript"}}
		created, err := store.Create(context.Background(), rec)
		require.NoError(t, err)
		out = append(out, created)
	}
	return out
}

func TestApps_ReadAndDelete(t *testing.T) {
	e := newEnv(t, llm.NewFakeClient(), nil, true)
	seeded := seed(t, e.store, "First App", "Second App")

	rec := e.do(http.MethodGet, "/api/apps", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []entity.GenerationRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 2)
	assert.Equal(t, seeded[1].ID, list[0].ID)

	rec = e.do(http.MethodGet, "/api/apps/999", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "App not found", errorBody(t, rec))

	rec = e.do(http.MethodGet, "/api/apps/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(http.MethodDelete, "/api/apps/1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = e.do(http.MethodDelete, "/api/apps/1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = e.do(http.MethodGet, "/api/apps/1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = e.do(http.MethodGet, "/api/apps", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Second App", list[0].AppName)
}

func TestApps_EmptyListIsArray(t *testing.T) {
	e := newEnv(t, llm.NewFakeClient(), nil, true)
	rec := e.do(http.MethodGet, "/api/apps", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestApps_StoreFailures(t *testing.T) {
	e := newEnv(t, llm.NewFakeClient(), brokenStore{}, true)

	rec := e.do(http.MethodGet, "/api/apps", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to fetch apps", errorBody(t, rec))

	rec = e.do(http.MethodGet, "/api/apps/1", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to fetch app", errorBody(t, rec))

	rec = e.do(http.MethodDelete, "/api/apps/1", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to delete app", errorBody(t, rec))
}

func TestApps_Archive(t *testing.T) {
	e := newEnv(t, llm.NewFakeClient(), nil, true)
	seed(t, e.store, "Recipe Box")

	rec := e.do(http.MethodGet, "/api/apps/1/archive", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/gzip", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="recipe-box.tar.gz"`, rec.Header().Get("Content-Disposition"))

	gz, err := gzip.NewReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	tr := tar.NewReader(gz)
	hdr, err := tr.Next()
	require.NoError(t, err)
	assert.Equal(t, "recipe-box/client/src/App.tsx", hdr.Name)
	_, err = tr.Next()
	assert.ErrorIs(t, err, io.EOF)

	rec = e.do(http.MethodGet, "/api/apps/7/archive", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/generate/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readWSFrames(t *testing.T, conn *websocket.Conn) []run.Frame {
	t.Helper()
	var frames []run.Frame
	for {
		var f run.Frame
		if err := conn.ReadJSON(&f); err != nil {
			return frames
		}
		frames = append(frames, f)
		if f.Terminal() {
			return frames
		}
	}
}

func TestGenerateWS_Run(t *testing.T) {
	e := newEnv(t, llm.NewFakeClient(), nil, true)
	srv := httptest.NewServer(e.router)
	defer srv.Close()

	conn := dialWS(t, srv)
	require.NoError(t, conn.WriteJSON(map[string]string{"prompt": recipePrompt}))
	frames := readWSFrames(t, conn)
	require.NotEmpty(t, frames)
	assert.Equal(t, run.FrameStatus, frames[0].Type)
	assert.Equal(t, "analyzing", frames[0].Step)
	last := frames[len(frames)-1]
	require.Equal(t, run.FrameComplete, last.Type)
	assert.Equal(t, "Demo App", last.App.AppName)
}

func TestGenerateWS_InvalidPrompt(t *testing.T) {
	e := newEnv(t, llm.NewFakeClient(), nil, true)
	srv := httptest.NewServer(e.router)
	defer srv.Close()

	conn := dialWS(t, srv)
	require.NoError(t, conn.WriteJSON(map[string]string{"prompt": "short"}))
	frames := readWSFrames(t, conn)
	require.Len(t, frames, 1)
	assert.Equal(t, run.Frame{Type: run.FrameError, Message: "Please provide a detailed app description (at least 10 characters)"}, frames[0])
}
