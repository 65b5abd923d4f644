package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"appforge/internal/gateway/config"
	"appforge/internal/llm"
	llmclient "appforge/internal/llm/client"
)

// newCompletionClient returns the shared client. The provider is built on
// first use so a missing key does not stop the server from starting.
func newCompletionClient(cfg config.CompletionConfig, logger zerolog.Logger, obs llm.Observer) llmclient.CompletionClient {
	factory := func(ctx context.Context) (llmclient.CompletionClient, error) {
		switch cfg.Provider {
		case config.ProviderOpenAI:
			c, err := llmclient.NewOpenAIClient(llmclient.OpenAIConfig{
				APIKey:  cfg.OpenAIKey,
				BaseURL: cfg.OpenAIBaseURL,
				Model:   cfg.Model,
				Timeout: cfg.Timeout,
			})
			if err != nil {
				return nil, err
			}
			return c, nil
		case config.ProviderGemini:
			c, err := llmclient.NewGeminiClient(ctx, cfg.GeminiKey, cfg.Model)
			if err != nil {
				return nil, err
			}
			return c, nil
		case config.ProviderFake:
			return llm.NewFakeClient(), nil
		default:
			return nil, fmt.Errorf("unknown completion provider %q", cfg.Provider)
		}
	}
	log := logger.With().Str("component", "completion").Str("provider", cfg.Provider).Logger()
	return llm.Wrap(llm.NewLazy(cfg.Provider, factory),
		llm.RateLimit(cfg.RPS, cfg.Burst),
		llm.WithObserver(obs),
		llm.WithLogging(log),
		llm.WithTimeout(cfg.Timeout),
	)
}
