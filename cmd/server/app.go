package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/inkwell-ai/inkwell/internal/config"
	"github.com/inkwell-ai/inkwell/internal/durable"
	"github.com/inkwell-ai/inkwell/internal/events"
	"github.com/inkwell-ai/inkwell/internal/orchestrator"
	"github.com/inkwell-ai/inkwell/internal/platform/postgres"
	"github.com/inkwell-ai/inkwell/internal/workstore"
)

// application holds the wired dependency graph of the server.
type application struct {
	config   *config.Config
	logger   *slog.Logger
	emitter  events.Emitter
	store    *workstore.Store
	registry *workstore.Registry
	orch     *orchestrator.Orchestrator
	state    *durable.StateStore
	db       *sql.DB // nil unless the postgres backend is selected
}

// setupDurableState selects the storage backend, loads the persisted
// snapshot into the orchestrator, and arms debounced saves on every work
// item mutation.
func (app *application) setupDurableState() error {
	kv, err := app.selectStorageBackend()
	if err != nil {
		return err
	}

	app.state = durable.NewStateStore(
		kv,
		app.config.Storage.ByteBudget,
		app.orch.Snapshot,
		app.logger,
	)

	// Seed before registering the persistence handler so the load itself
	// does not arm a save.
	if snap := app.state.Load(context.Background()); snap != nil {
		app.orch.SeedFromSnapshot(snap)
	}

	app.emitter.RegisterHandler(events.HandlerFunc(
		func(ctx context.Context, _ *events.ItemChangeEvent) error {
			app.state.Arm()
			return nil
		}))

	return nil
}

// selectStorageBackend builds the configured durable.KV implementation.
func (app *application) selectStorageBackend() (durable.KV, error) {
	switch app.config.Storage.Backend {
	case "memory":
		return durable.NewMemoryKV(app.config.Storage.ByteBudget), nil

	case "file":
		kv, err := durable.NewFileKV(app.config.Storage.Path, app.config.Storage.ByteBudget)
		if err != nil {
			return nil, fmt.Errorf("failed to set up file storage: %w", err)
		}
		return kv, nil

	case "postgres":
		db, err := setupDatabase(app.config, app.logger)
		if err != nil {
			return nil, err
		}
		if err := runMigrations(db, app.logger); err != nil {
			_ = db.Close()
			return nil, err
		}
		app.db = db
		return postgres.NewSnapshotKV(db, app.config.Storage.ByteBudget), nil

	default:
		return nil, fmt.Errorf("unknown storage backend %q", app.config.Storage.Backend)
	}
}

// cleanup releases resources on shutdown.
func (app *application) cleanup() {
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("failed to close database connection", "error", err)
		}
	}
}
