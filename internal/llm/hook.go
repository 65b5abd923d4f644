package llm

import "context"

// Phase names tag completion calls for logs and metrics.
const (
	PhaseAnalyze  = "analyze"
	PhaseFrontend = "frontend"
	PhaseBackend  = "backend"
)

type ctxKeyPhase struct{}

func WithPhase(ctx context.Context, phase string) context.Context {
	return context.WithValue(ctx, ctxKeyPhase{}, phase)
}

// PhaseFrom returns the phase string stored in the context.
func PhaseFrom(ctx context.Context) string {
	if v := ctx.Value(ctxKeyPhase{}); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return "unknown"
}
