package llm

import (
	"context"
	"sync"

	llmclient "appforge/internal/llm/client"
)

// Factory builds the underlying completion client.
type Factory func(ctx context.Context) (llmclient.CompletionClient, error)

// Lazy defers client construction until the first call and then reuses it.
// A failed construction is remembered and returned on every call.
type Lazy struct {
	name    string
	factory Factory

	once sync.Once
	cli  llmclient.CompletionClient
	err  error
}

func NewLazy(name string, factory Factory) *Lazy {
	return &Lazy{name: name, factory: factory}
}

func (l *Lazy) get(ctx context.Context) (llmclient.CompletionClient, error) {
	l.once.Do(func() {
		l.cli, l.err = l.factory(context.WithoutCancel(ctx))
	})
	return l.cli, l.err
}

func (l *Lazy) Name() string { return l.name }

func (l *Lazy) Complete(ctx context.Context, req llmclient.Request) (string, error) {
	cli, err := l.get(ctx)
	if err != nil {
		return "", err
	}
	return cli.Complete(ctx, req)
}

// Close closes the client if it was ever built.
func (l *Lazy) Close() error {
	l.once.Do(func() { l.err = llmclient.ErrNotConfigured })
	if l.cli == nil {
		return nil
	}
	return l.cli.Close()
}
