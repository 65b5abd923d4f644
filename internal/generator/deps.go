package generator

import (
	"time"

	"github.com/rs/zerolog"

	llmclient "appforge/internal/llm/client"
)

// Section names used in fallback logs and metrics.
const (
	SectionAnalyze  = "analyze"
	SectionSchema   = "schema"
	SectionFrontend = "frontend"
	SectionBackend  = "backend"
)

// Observer receives run telemetry. The metrics package implements it.
type Observer interface {
	ObserveStage(stage Stage, elapsed time.Duration)
	ObserveFallback(section string)
}

type nopObserver struct{}

func (nopObserver) ObserveStage(Stage, time.Duration) {}
func (nopObserver) ObserveFallback(string)            {}

// Deps are the collaborators shared by the analyzer, generators and pipeline.
type Deps struct {
	Client   llmclient.CompletionClient
	Logger   zerolog.Logger
	Observer Observer
}

func (d Deps) withDefaults() Deps {
	if d.Observer == nil {
		d.Observer = nopObserver{}
	}
	return d
}
