package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"appforge/internal/gateway/handler"
	"appforge/internal/gateway/metrics"
	"appforge/internal/gateway/middleware"
)

// NewRouter mounts the API, health and metrics endpoints.
func NewRouter(h *handler.Handler, m *metrics.Collector, gatherer prometheus.Gatherer, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(hlog.NewHandler(logger))
	r.Use(hlog.RequestIDHandler("req_id", "X-Request-Id"))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, elapsed time.Duration) {
		hlog.FromRequest(r).Debug().
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Int("size", size).
			Dur("elapsed", elapsed).
			Msg("request")
	}))
	r.Use(middleware.CORS)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", metrics.Handler(gatherer))

	r.Route("/api", func(r chi.Router) {
		r.Post("/generate", m.Monitor("generate", http.HandlerFunc(h.Generate)))
		r.Get("/generate/ws", h.GenerateWS)
		r.Get("/apps", m.Monitor("list_apps", http.HandlerFunc(h.ListApps)))
		r.Get("/apps/{id}", m.Monitor("get_app", http.HandlerFunc(h.GetApp)))
		r.Delete("/apps/{id}", m.Monitor("delete_app", http.HandlerFunc(h.DeleteApp)))
		r.Get("/apps/{id}/archive", m.Monitor("archive_app", http.HandlerFunc(h.ArchiveApp)))
	})
	return r
}
