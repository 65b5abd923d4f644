// Package handler serves the generation and record endpoints.
package handler

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"appforge/internal/gateway/entity"
	"appforge/internal/gateway/repository/apps"
	"appforge/internal/gateway/run"
	"appforge/internal/util/jsonutil"
)

// Messages returned in {"error": ...} bodies.
const (
	msgInvalidRequest = "Invalid request"
	msgNotConfigured  = "AI integration not configured. Please check your environment setup."
	msgInvalidID      = "Invalid app id"
	msgNotFound       = "App not found"
	msgFetchApps      = "Failed to fetch apps"
	msgFetchApp       = "Failed to fetch app"
	msgDeleteApp      = "Failed to delete app"
	msgArchiveApp     = "Failed to build archive"
)

// Streamer runs one generation against a frame writer.
type Streamer interface {
	Serve(ctx context.Context, prompt string, out run.FrameWriter) (entity.GenerationRecord, error)
}

// MirrorRemover drops mirrored files of a deleted record.
type MirrorRemover interface {
	Remove(ctx context.Context, id int64) error
}

type Deps struct {
	Streamer Streamer
	Store    apps.Store
	// Configured reports whether the completion service can be used.
	Configured func() bool
	Mirror     MirrorRemover
	Logger     zerolog.Logger
}

type Handler struct {
	streamer   Streamer
	store      apps.Store
	configured func() bool
	mirror     MirrorRemover
	log        zerolog.Logger
}

func New(d Deps) *Handler {
	configured := d.Configured
	if configured == nil {
		configured = func() bool { return true }
	}
	return &Handler{
		streamer:   d.Streamer,
		store:      d.Store,
		configured: configured,
		mirror:     d.Mirror,
		log:        d.Logger,
	}
}

// logger prefers the request-scoped logger installed by hlog.
func (h *Handler) logger(r *http.Request) *zerolog.Logger {
	l := hlog.FromRequest(r)
	if l.GetLevel() == zerolog.Disabled {
		return &h.log
	}
	return l
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	raw, err := jsonutil.MarshalNoEscape(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(raw)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
