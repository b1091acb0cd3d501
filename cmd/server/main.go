// Package main implements the entry point for the inkwell server, which
// orchestrates batches of long-running content-generation jobs against the
// external pipeline and persists their progress durably.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"

	"github.com/inkwell-ai/inkwell/internal/config"
	"github.com/inkwell-ai/inkwell/internal/events"
	"github.com/inkwell-ai/inkwell/internal/orchestrator"
	"github.com/inkwell-ai/inkwell/internal/pipeline"
	"github.com/inkwell-ai/inkwell/internal/platform/logger"
	"github.com/inkwell-ai/inkwell/internal/poller"
	"github.com/inkwell-ai/inkwell/internal/workstore"
)

func main() {
	app, err := initializeApp()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer app.cleanup()

	if err := app.run(context.Background()); err != nil {
		app.logger.Error("server exited with error", "error", err)
	}
}

// initializeApp loads configuration and builds the application's dependency
// graph: logging, storage backend, pipeline client, orchestrator, and the
// durable state store seeded from the persisted snapshot.
func initializeApp() (*application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(cfg.Server.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	slog.Info("Server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"storage_backend", cfg.Storage.Backend,
		"max_concurrency", cfg.Orchestrator.MaxConcurrency)

	emitter := events.NewInMemoryEmitter(appLogger)
	store := workstore.NewStore(emitter, appLogger)
	registry := workstore.NewRegistry(appLogger)

	client, err := pipeline.NewHTTPClient(cfg.Pipeline.BaseURL, cfg.Pipeline.APIKey, appLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline client: %w", err)
	}

	pollerCfg := poller.DefaultConfig()
	pollerCfg.PollInterval = cfg.Pipeline.PollInterval
	pollerCfg.JobTimeout = cfg.Pipeline.JobTimeout

	orch := orchestrator.New(store, registry, client, nil, orchestrator.Config{
		MaxConcurrency: cfg.Orchestrator.MaxConcurrency,
		Poller:         pollerCfg,
	}, appLogger)

	app := &application{
		config:   cfg,
		logger:   appLogger,
		emitter:  emitter,
		store:    store,
		registry: registry,
		orch:     orch,
	}

	if err := app.setupDurableState(); err != nil {
		return nil, err
	}

	return app, nil
}
