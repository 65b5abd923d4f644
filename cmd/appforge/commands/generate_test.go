package commands

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"appforge/internal/gateway/app"
	"appforge/internal/gateway/config"
	"appforge/internal/gateway/entity"
	"appforge/internal/gateway/run"
	"appforge/internal/types"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg, err := config.FromEnv(func(k string) string {
		return map[string]string{"APP_ENV": "test", "COMPLETION_PROVIDER": "fake"}[k]
	})
	require.NoError(t, err)
	a, err := app.New(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	srv := httptest.NewServer(a.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func TestGenerateClient_Complete(t *testing.T) {
	srv := newServer(t)
	c := &generateClient{http: srv.Client(), server: srv.URL + "/", log: zerolog.Nop()}

	rec, err := c.generate(context.Background(), "A habit tracker with streaks and reminders")
	require.NoError(t, err)
	assert.Equal(t, "Demo App", rec.AppName)
	assert.Equal(t, entity.StatusCompleted, rec.Status)
	assert.NotEmpty(t, rec.Files)
}

func TestGenerateClient_RejectedPrompt(t *testing.T) {
	srv := newServer(t)
	c := &generateClient{http: srv.Client(), server: srv.URL, log: zerolog.Nop()}

	_, err := c.generate(context.Background(), "short")
	assert.EqualError(t, err, "server returned 400: Please provide a detailed app description (at least 10 characters)")
}

func TestGenerateClient_ErrorFrame(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		out := run.NewSSEWriter(w)
		_ = out.WriteFrame(run.Frame{Type: run.FrameStatus, Step: "analyzing"})
		_ = out.WriteFrame(run.Frame{Type: run.FrameAppInfo, AppName: "X", AppID: 3})
		out.Abort(assert.AnError)
	}))
	defer srv.Close()
	c := &generateClient{http: srv.Client(), server: srv.URL, log: zerolog.Nop()}

	_, err := c.generate(context.Background(), "A habit tracker with streaks")
	assert.ErrorContains(t, err, "generation failed: "+assert.AnError.Error())
}

func TestGenerateClient_StreamCutShort(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		out := run.NewSSEWriter(w)
		_ = out.WriteFrame(run.Frame{Type: run.FrameAppInfo, AppName: "X", AppID: 9})
	}))
	defer srv.Close()
	c := &generateClient{http: srv.Client(), server: srv.URL, log: zerolog.Nop()}

	_, err := c.generate(context.Background(), "A habit tracker with streaks")
	assert.ErrorContains(t, err, "/api/apps/9")
}

func TestReport_WritesFiles(t *testing.T) {
	dir := t.TempDir()
	rec := entity.GenerationRecord{
		ID:                     2,
		AppName:                "Habit Tracker",
		Description:            "Track habits",
		Files:                  []types.FileBundle{{Path: "client/src/App.tsx", Content: "app"}},
		DeploymentInstructions: "## Deploy",
	}
	var out bytes.Buffer
	require.NoError(t, report(&out, rec, dir))
	assert.Contains(t, out.String(), "Habit Tracker (#2): Track habits")
	assert.Contains(t, out.String(), "wrote 2 files")

	raw, err := os.ReadFile(filepath.Join(dir, "habit-tracker", "client", "src", "App.tsx"))
	require.NoError(t, err)
	assert.Equal(t, "app", string(raw))
	raw, err = os.ReadFile(filepath.Join(dir, "habit-tracker", "DEPLOYMENT.md"))
	require.NoError(t, err)
	assert.Equal(t, "## Deploy", string(raw))
}

func TestRoot_GenerateRequiresPrompt(t *testing.T) {
	a := New()
	a.SetArgs("generate")
	assert.Error(t, a.Run())
}
