// Package metrics exposes generation and HTTP telemetry to Prometheus.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"appforge/internal/gateway/repository/apps"
	"appforge/internal/generator"
	llmclient "appforge/internal/llm/client"
)

// Run outcomes.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
)

// Collector implements generator.Observer and llm.Observer.
type Collector struct {
	registry prometheus.Registerer
	buckets  []float64

	runs               *prometheus.CounterVec
	stageDuration      *prometheus.HistogramVec
	completions        *prometheus.CounterVec
	completionDuration *prometheus.HistogramVec
	fallbacks          *prometheus.CounterVec
}

// New registers the generation collectors on reg.
func New(reg prometheus.Registerer) *Collector {
	// Completion calls take seconds, not milliseconds. Max of 163.84.
	slow := prometheus.ExponentialBuckets(0.01, 2, 15)
	f := promauto.With(reg)
	return &Collector{
		registry: reg,
		buckets:  prometheus.ExponentialBuckets(0.005, 2, 12),
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "appforge_runs_total",
			Help: "Generation runs by outcome.",
		}, []string{"outcome"}),
		stageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "appforge_stage_duration_seconds",
			Help:    "Time spent in each generation stage.",
			Buckets: slow,
		}, []string{"stage"}),
		completions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "appforge_completion_calls_total",
			Help: "Completion service calls by phase and outcome.",
		}, []string{"phase", "outcome"}),
		completionDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "appforge_completion_duration_seconds",
			Help:    "Latency of completion service calls.",
			Buckets: slow,
		}, []string{"phase"}),
		fallbacks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "appforge_fallbacks_total",
			Help: "Sections that used fallback content.",
		}, []string{"section"}),
	}
}

func (c *Collector) ObserveStage(stage generator.Stage, elapsed time.Duration) {
	c.stageDuration.WithLabelValues(string(stage)).Observe(elapsed.Seconds())
}

func (c *Collector) ObserveFallback(section string) {
	c.fallbacks.WithLabelValues(section).Inc()
}

func (c *Collector) ObserveCompletion(phase string, elapsed time.Duration, err error) {
	c.completions.WithLabelValues(phase, completionOutcome(err)).Inc()
	c.completionDuration.WithLabelValues(phase).Observe(elapsed.Seconds())
}

// ObserveRun counts a finished stream by outcome.
func (c *Collector) ObserveRun(outcome string) {
	c.runs.WithLabelValues(outcome).Inc()
}

func completionOutcome(err error) string {
	var se *llmclient.StatusError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, llmclient.ErrEmptyCompletion):
		return "empty"
	case errors.As(err, &se):
		return "status"
	default:
		return "error"
	}
}

// StatsSource is satisfied by apps.CachedStore.
type StatsSource interface {
	Stats() apps.CacheStats
}

// RegisterCache exports record cache hits and misses.
func (c *Collector) RegisterCache(src StatsSource) {
	f := promauto.With(c.registry)
	f.NewCounterFunc(prometheus.CounterOpts{
		Name: "appforge_record_cache_hits_total",
		Help: "Record cache hits.",
	}, func() float64 { return float64(src.Stats().Hits) })
	f.NewCounterFunc(prometheus.CounterOpts{
		Name: "appforge_record_cache_misses_total",
		Help: "Record cache misses.",
	}, func() float64 { return float64(src.Stats().Misses) })
}

// Monitor wraps handler with request count and latency collectors labeled
// by handlerName.
func (c *Collector) Monitor(handlerName string, handler http.Handler) http.HandlerFunc {
	reg := prometheus.WrapRegistererWith(prometheus.Labels{"handler": handlerName}, c.registry)
	labels := []string{"method", "code"}

	requestsTotal := promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Tracks the number of HTTP requests.",
	}, labels)
	requestDuration := promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Tracks the latencies for HTTP requests.",
		Buckets: c.buckets,
	}, labels)

	return promhttp.InstrumentHandlerCounter(requestsTotal,
		promhttp.InstrumentHandlerDuration(requestDuration, handler))
}

// Handler serves the registry in the Prometheus text format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
