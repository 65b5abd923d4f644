package run

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"appforge/internal/gateway/entity"
	"appforge/internal/gateway/metrics"
	"appforge/internal/gateway/repository/apps"
	"appforge/internal/generator"
	"appforge/internal/types"
)

// Runner produces the event sequence of one run.
type Runner interface {
	Run(ctx context.Context, prompt string, emit generator.Emitter) error
}

// Mirror copies a completed record's files elsewhere. Failures are logged only.
type Mirror interface {
	Save(ctx context.Context, id int64, files []types.FileBundle) error
}

// Observer is told how each run ended.
type Observer interface {
	ObserveRun(outcome string)
}

type Bridge struct {
	runner Runner
	store  apps.Store
	mirror Mirror
	obs    Observer
	log    zerolog.Logger
}

type BridgeOption func(*Bridge)

func WithMirror(m Mirror) BridgeOption {
	return func(b *Bridge) { b.mirror = m }
}

func WithObserver(o Observer) BridgeOption {
	return func(b *Bridge) { b.obs = o }
}

func NewBridge(runner Runner, store apps.Store, logger zerolog.Logger, opts ...BridgeOption) *Bridge {
	b := &Bridge{
		runner: runner,
		store:  store,
		log:    logger.With().Str("component", "stream_bridge").Logger(),
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// session is the state owned by a single run.
type session struct {
	b        *Bridge
	out      FrameWriter
	draft    entity.GenerationRecord
	saved    *entity.GenerationRecord
	detached bool
	log      zerolog.Logger
}

// Serve runs prompt to completion, forwarding frames to out and persisting
// the record. A client that stops accepting frames is detached and the run
// keeps going. On failure out is aborted and the error returned.
func (b *Bridge) Serve(ctx context.Context, prompt string, out FrameWriter) (entity.GenerationRecord, error) {
	s := &session{
		b:     b,
		out:   out,
		draft: entity.NewDraft(prompt),
		log:   b.log.With().Str("run_id", uuid.NewString()).Logger(),
	}
	err := b.runner.Run(ctx, prompt, generator.EmitterFunc(s.handle))
	if err == nil && s.saved == nil {
		err = fmt.Errorf("run ended without a complete event")
	}
	if err != nil {
		s.log.Error().Err(err).Int64("app_id", s.draft.ID).Msg("generation failed")
		b.observe(metrics.OutcomeFailed)
		if !s.detached {
			out.Abort(err)
		}
		return entity.GenerationRecord{}, err
	}
	b.observe(metrics.OutcomeCompleted)
	s.log.Info().Int64("app_id", s.saved.ID).Int("files", len(s.saved.Files)).Msg("generation completed")
	return *s.saved, nil
}

func (b *Bridge) observe(outcome string) {
	if b.obs != nil {
		b.obs.ObserveRun(outcome)
	}
}

func (s *session) send(f Frame) {
	if s.detached {
		return
	}
	if err := s.out.WriteFrame(f); err != nil {
		s.detached = true
		s.log.Warn().Err(err).Str("frame", string(f.Type)).Msg("client stream closed, continuing run")
	}
}

func (s *session) handle(ctx context.Context, ev generator.Event) error {
	switch ev.Type {
	case generator.EventStatus:
		s.send(Frame{Type: FrameStatus, Step: string(ev.Step), Completed: string(ev.Completed)})
	case generator.EventAppInfo:
		return s.appInfo(ctx, ev)
	case generator.EventFiles:
		s.draft.Files = ev.Files
		s.send(Frame{Type: FrameFiles, Files: ev.Files})
	case generator.EventEnvVars:
		s.draft.EnvVars = ev.EnvVars
		s.send(Frame{Type: FrameEnvVars, EnvVars: ev.EnvVars})
	case generator.EventDeploymentInstructions:
		s.draft.DeploymentInstructions = ev.Instructions
		s.send(Frame{Type: FrameDeploymentInstructions, Instructions: ev.Instructions})
	case generator.EventComplete:
		return s.complete(ctx)
	default:
		s.log.Warn().Str("event", string(ev.Type)).Msg("ignoring unknown event")
	}
	return nil
}

func (s *session) appInfo(ctx context.Context, ev generator.Event) error {
	s.draft.AppName = orDefault(ev.AppName, entity.FallbackAppName)
	s.draft.Description = orDefault(ev.Description, entity.FallbackAppDescr)
	if s.draft.ID == 0 {
		created, err := s.b.store.Create(ctx, s.draft)
		if err != nil {
			return fmt.Errorf("create draft app: %w", err)
		}
		s.draft.ID = created.ID
		s.draft.CreatedAt = created.CreatedAt
		s.log = s.log.With().Int64("app_id", created.ID).Logger()
		s.log.Debug().Str("app_name", s.draft.AppName).Msg("draft created")
	}
	s.send(Frame{
		Type:        FrameAppInfo,
		AppName:     s.draft.AppName,
		Description: s.draft.Description,
		AppID:       s.draft.ID,
	})
	return nil
}

func (s *session) complete(ctx context.Context) error {
	s.draft.Status = entity.StatusCompleted
	var saved entity.GenerationRecord
	if s.draft.ID != 0 {
		if err := s.b.store.Update(ctx, s.draft); err != nil {
			return fmt.Errorf("update app %d: %w", s.draft.ID, err)
		}
		got, err := s.b.store.Get(ctx, s.draft.ID)
		if err != nil {
			return fmt.Errorf("reload app %d: %w", s.draft.ID, err)
		}
		saved = got
	} else {
		created, err := s.b.store.Create(ctx, s.draft)
		if err != nil {
			return fmt.Errorf("create app: %w", err)
		}
		saved = created
	}
	s.saved = &saved
	s.send(Frame{Type: FrameComplete, App: &saved})

	if s.b.mirror != nil {
		if err := s.b.mirror.Save(ctx, saved.ID, saved.Files); err != nil {
			s.log.Warn().Err(err).Msg("mirror files failed")
		}
	}
	return nil
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
