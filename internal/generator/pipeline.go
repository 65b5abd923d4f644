package generator

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"appforge/internal/types"
)

// Stage is one step of the fixed generation sequence.
type Stage string

const (
	StageAnalyzing  Stage = "analyzing"
	StageSchema     Stage = "schema"
	StageFrontend   Stage = "frontend"
	StageBackend    Stage = "backend"
	StagePayments   Stage = "payments"
	StageFinalizing Stage = "finalizing"
)

// Stages lists every stage in execution order.
var Stages = []Stage{StageAnalyzing, StageSchema, StageFrontend, StageBackend, StagePayments, StageFinalizing}

type EventType string

const (
	EventStatus                 EventType = "status"
	EventAppInfo                EventType = "appInfo"
	EventFiles                  EventType = "files"
	EventEnvVars                EventType = "envVars"
	EventDeploymentInstructions EventType = "deploymentInstructions"
	EventComplete               EventType = "complete"
)

// Event is one item of a run's progress sequence. Only the fields relevant
// to Type are set.
type Event struct {
	Type EventType

	Step      Stage
	Completed Stage

	AppName     string
	Description string

	Files        []types.FileBundle
	EnvVars      []types.EnvVarSpec
	Instructions string

	Result *Result
}

// Result is the final output of a run.
type Result struct {
	AppName                string             `json:"appName"`
	Description            string             `json:"description"`
	Files                  []types.FileBundle `json:"files"`
	EnvVars                []types.EnvVarSpec `json:"envVars"`
	DeploymentInstructions string             `json:"deploymentInstructions"`
}

// Emitter receives events synchronously. An error stops the run.
type Emitter interface {
	Emit(ctx context.Context, ev Event) error
}

type EmitterFunc func(ctx context.Context, ev Event) error

func (f EmitterFunc) Emit(ctx context.Context, ev Event) error { return f(ctx, ev) }

// AppAnalyzer is implemented by *Analyzer.
type AppAnalyzer interface {
	Analyze(ctx context.Context, prompt string) types.AppStructure
}

// Pipeline sequences the analyzer, the section generators and config assembly.
type Pipeline struct {
	analyzer AppAnalyzer
	schema   SectionGenerator
	frontend SectionGenerator
	backend  SectionGenerator
	log      zerolog.Logger
	obs      Observer
}

type PipelineOption func(*Pipeline)

// WithAnalyzer replaces the default analyzer.
func WithAnalyzer(a AppAnalyzer) PipelineOption {
	return func(p *Pipeline) { p.analyzer = a }
}

// WithSections replaces the default section generators. Nil keeps the default.
func WithSections(schema, frontend, backend SectionGenerator) PipelineOption {
	return func(p *Pipeline) {
		if schema != nil {
			p.schema = schema
		}
		if frontend != nil {
			p.frontend = frontend
		}
		if backend != nil {
			p.backend = backend
		}
	}
}

func NewPipeline(d Deps, opts ...PipelineOption) *Pipeline {
	d = d.withDefaults()
	p := &Pipeline{
		analyzer: NewAnalyzer(d),
		schema:   NewSchemaGenerator(),
		frontend: NewFrontendGenerator(d),
		backend:  NewBackendGenerator(d),
		log:      d.Logger,
		obs:      d.Observer,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

type runState struct {
	p       *Pipeline
	emit    Emitter
	current Stage
	started time.Time
}

// enter reports the transition into next, marking the current stage completed.
func (s *runState) enter(ctx context.Context, next Stage) error {
	ev := Event{Type: EventStatus, Step: next}
	if s.current != "" {
		ev.Completed = s.current
		s.p.obs.ObserveStage(s.current, time.Since(s.started))
		s.p.log.Debug().Str("stage", string(s.current)).Dur("elapsed", time.Since(s.started)).Msg("stage completed")
	}
	s.current, s.started = next, time.Now()
	return s.send(ctx, ev)
}

func (s *runState) finish() {
	if s.current != "" {
		s.p.obs.ObserveStage(s.current, time.Since(s.started))
	}
}

func (s *runState) send(ctx context.Context, ev Event) error {
	if err := s.emit.Emit(ctx, ev); err != nil {
		return fmt.Errorf("emit %s: %w", ev.Type, err)
	}
	return nil
}

// Run executes one generation and reports it through emit. Upstream
// completion failures are absorbed by fallbacks; only emit errors abort.
func (p *Pipeline) Run(ctx context.Context, prompt string, emit Emitter) error {
	s := &runState{p: p, emit: emit}

	if err := s.enter(ctx, StageAnalyzing); err != nil {
		return err
	}
	app := p.analyzer.Analyze(ctx, prompt)

	if err := s.enter(ctx, StageSchema); err != nil {
		return err
	}
	if err := s.send(ctx, Event{Type: EventAppInfo, AppName: app.AppName, Description: app.Description}); err != nil {
		return err
	}
	schemaFiles := p.schema.Generate(ctx, app, prompt)

	if err := s.enter(ctx, StageFrontend); err != nil {
		return err
	}
	frontendFiles := p.frontend.Generate(ctx, app, prompt)

	if err := s.enter(ctx, StageBackend); err != nil {
		return err
	}
	backendFiles := p.backend.Generate(ctx, app, prompt)

	if err := s.enter(ctx, StagePayments); err != nil {
		return err
	}
	envVars := BaseEnvVars()
	configFiles := ConfigFiles(app, envVars)

	if err := s.enter(ctx, StageFinalizing); err != nil {
		return err
	}
	files := p.mergeBundles(configFiles, schemaFiles, frontendFiles, backendFiles)
	instructions := DeploymentInstructions(app.AppName)

	for _, ev := range []Event{
		{Type: EventFiles, Files: files},
		{Type: EventEnvVars, EnvVars: envVars},
		{Type: EventDeploymentInstructions, Instructions: instructions},
	} {
		if err := s.send(ctx, ev); err != nil {
			return err
		}
	}
	s.finish()
	return s.send(ctx, Event{Type: EventComplete, Result: &Result{
		AppName:                app.AppName,
		Description:            app.Description,
		Files:                  files,
		EnvVars:                envVars,
		DeploymentInstructions: instructions,
	}})
}

// mergeBundles concatenates groups in order and drops any later bundle whose
// path is already taken.
func (p *Pipeline) mergeBundles(groups ...[]types.FileBundle) []types.FileBundle {
	n := 0
	for _, g := range groups {
		n += len(g)
	}
	out := make([]types.FileBundle, 0, n)
	seen := make(map[string]bool, n)
	for _, g := range groups {
		for _, f := range g {
			if seen[f.Path] {
				p.log.Warn().Str("path", f.Path).Msg("dropping duplicate file path")
				continue
			}
			seen[f.Path] = true
			out = append(out, f)
		}
	}
	return out
}
