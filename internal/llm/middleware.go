package llm

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	llmclient "appforge/internal/llm/client"
)

// Middleware decorates a CompletionClient to inject cross-cutting concerns
// (rate limiting, logging, observation).
type Middleware func(llmclient.CompletionClient) llmclient.CompletionClient

// Wrap applies middlewares in left-to-right order.
// Example: Wrap(inner, A, B) => A(B(inner))
func Wrap(inner llmclient.CompletionClient, mws ...Middleware) llmclient.CompletionClient {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] != nil {
			out = mws[i](out)
		}
	}
	return out
}

// -------- Logging --------

// WithLogging logs request size, phase, latency and errors.
func WithLogging(logger zerolog.Logger) Middleware {
	return func(next llmclient.CompletionClient) llmclient.CompletionClient {
		return &logging{next: next, log: logger}
	}
}

type logging struct {
	next llmclient.CompletionClient
	log  zerolog.Logger
}

func (l *logging) Name() string { return l.next.Name() }
func (l *logging) Close() error { return l.next.Close() }
func (l *logging) Complete(ctx context.Context, req llmclient.Request) (string, error) {
	phase := PhaseFrom(ctx)
	start := time.Now()
	l.log.Debug().
		Str("client", l.next.Name()).
		Str("phase", phase).
		Int("prompt_tokens", llmclient.RequestTokens(req)).
		Int("max_tokens", req.MaxTokens).
		Msg("completion request")
	out, err := l.next.Complete(ctx, req)
	ev := l.log.Debug()
	if err != nil {
		ev = l.log.Warn().Err(err)
	}
	ev.Str("phase", phase).
		Dur("latency", time.Since(start)).
		Int("response_bytes", len(out)).
		Msg("completion response")
	return out, err
}

// -------- Observation --------

// Observer is notified after every completion call.
type Observer interface {
	ObserveCompletion(phase string, elapsed time.Duration, err error)
}

// WithObserver reports each call to obs. A nil observer disables the middleware.
func WithObserver(obs Observer) Middleware {
	if obs == nil {
		return nil
	}
	return func(next llmclient.CompletionClient) llmclient.CompletionClient {
		return &observed{next: next, obs: obs}
	}
}

type observed struct {
	next llmclient.CompletionClient
	obs  Observer
}

func (o *observed) Name() string { return o.next.Name() }
func (o *observed) Close() error { return o.next.Close() }
func (o *observed) Complete(ctx context.Context, req llmclient.Request) (string, error) {
	start := time.Now()
	out, err := o.next.Complete(ctx, req)
	o.obs.ObserveCompletion(PhaseFrom(ctx), time.Since(start), err)
	return out, err
}

// -------- Timeout --------

// WithTimeout bounds each call to d. Zero or negative disables the middleware.
func WithTimeout(d time.Duration) Middleware {
	if d <= 0 {
		return nil
	}
	return func(next llmclient.CompletionClient) llmclient.CompletionClient {
		return &timeout{next: next, d: d}
	}
}

type timeout struct {
	next llmclient.CompletionClient
	d    time.Duration
}

func (t *timeout) Name() string { return t.next.Name() }
func (t *timeout) Close() error { return t.next.Close() }
func (t *timeout) Complete(ctx context.Context, req llmclient.Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	return t.next.Complete(ctx, req)
}
