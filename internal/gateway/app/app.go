package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"appforge/internal/gateway/config"
	"appforge/internal/gateway/handler"
	"appforge/internal/gateway/metrics"
	"appforge/internal/gateway/run"
	"appforge/internal/gateway/server"
	"appforge/internal/generator"
	llmclient "appforge/internal/llm/client"
)

type App struct {
	server  *server.Server
	handler http.Handler
	stores  *gatewayStores
	client  llmclient.CompletionClient
	log     zerolog.Logger
}

func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*App, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.New(registry)

	stores, err := initStores(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to init stores: %w", err)
	}
	collector.RegisterCache(stores.cache)

	if !cfg.Completion.Configured() {
		logger.Warn().Str("provider", cfg.Completion.Provider).Msg("completion service not configured, generation requests will be rejected")
	}
	client := newCompletionClient(cfg.Completion, logger, collector)
	pipeline := generator.NewPipeline(generator.Deps{
		Client:   client,
		Logger:   logger.With().Str("component", "pipeline").Logger(),
		Observer: collector,
	})

	bridgeOpts := []run.BridgeOption{run.WithObserver(collector)}
	var remover handler.MirrorRemover
	if stores.mirror != nil {
		bridgeOpts = append(bridgeOpts, run.WithMirror(stores.mirror))
		remover = stores.mirror
	}
	bridge := run.NewBridge(pipeline, stores.apps, logger, bridgeOpts...)

	h := handler.New(handler.Deps{
		Streamer:   bridge,
		Store:      stores.apps,
		Configured: cfg.Completion.Configured,
		Mirror:     remover,
		Logger:     logger,
	})
	router := server.NewRouter(h, collector, registry, logger)

	return &App{
		server:  server.New(cfg.Port, router, logger),
		handler: router,
		stores:  stores,
		client:  client,
		log:     logger,
	}, nil
}

// Handler is the routed API without the listener.
func (a *App) Handler() http.Handler { return a.handler }

func (a *App) Start() error {
	return a.server.Start()
}

// Shutdown drains the server and releases the completion client and database.
func (a *App) Shutdown(ctx context.Context) error {
	return errors.Join(
		a.server.Shutdown(ctx),
		a.client.Close(),
		a.stores.close(),
	)
}
