package main

import (
	"context"
	"fmt"

	"github.com/rackslot/rackslot-backend/internal/placement/domain"
	"github.com/rackslot/rackslot-backend/internal/placement/events"
	"github.com/rackslot/rackslot-backend/internal/placement/ledger"
	"github.com/rackslot/rackslot-backend/internal/placement/repository"
	"github.com/rackslot/rackslot-backend/internal/placement/repository/memory"
	"github.com/rackslot/rackslot-backend/internal/placement/repository/postgres"
	"github.com/rackslot/rackslot-backend/internal/placement/selector"
	"github.com/rackslot/rackslot-backend/internal/placement/service"
	"github.com/rackslot/rackslot-backend/internal/placement/session"
	"github.com/rackslot/rackslot-backend/migrations"
	"github.com/rackslot/rackslot-backend/pkg/config"
	"github.com/rackslot/rackslot-backend/pkg/database"
	"github.com/rackslot/rackslot-backend/pkg/logger"
)

type healthFunc func(ctx context.Context) map[string]string

// runtime holds the backends shared by every subcommand.
type runtime struct {
	cfg    *config.Config
	log    *logger.Logger
	store  repository.Store
	health healthFunc
	closer func() error
}

func loadRuntime() (*runtime, error) {
	// Fails fast in production if required config is missing
	cfg, err := config.LoadWithValidation(events.ServiceName)
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return &runtime{
		cfg:    cfg,
		log:    logger.New(events.ServiceName, cfg.Server.Environment),
		closer: func() error { return nil },
	}, nil
}

// openStore connects the configured persistence backend, applying pending
// migrations first when migrate is set.
func (rt *runtime) openStore(migrate bool) error {
	if rt.cfg.Database.Driver == config.DriverMemory {
		rt.log.Warn().Msg("using in-memory store, state is lost on restart")
		rt.store = memory.New()
		rt.health = func(context.Context) map[string]string {
			return map[string]string{"status": "up", "driver": config.DriverMemory}
		}
		return nil
	}

	if migrate {
		if err := migrateUp(&rt.cfg.Database, rt.log); err != nil {
			return err
		}
	}

	db, err := database.New(&rt.cfg.Database, rt.log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	rt.store = postgres.NewStore(db)
	rt.health = db.Health
	rt.closer = db.Close
	return nil
}

func (rt *runtime) close() {
	if err := rt.closer(); err != nil {
		rt.log.Error().Err(err).Msg("failed to close store")
	}
}

// newService assembles the placement service over the opened store.
func (rt *runtime) newService(sessions session.Store, publisher service.EventPublisher) *service.PlacementService {
	return service.NewPlacementService(
		rt.store,
		ledger.New(rt.store, rt.cfg.Ledger, rt.log),
		selector.New(selector.Policy{GroundFirst: rt.cfg.Selector.GroundFirst}),
		sessions,
		domain.DefaultCategories(),
		publisher,
		rt.cfg.Workflow,
		rt.log,
	)
}

func migrateUp(cfg *config.DatabaseConfig, log *logger.Logger) error {
	mg, err := database.NewMigrator(cfg, migrations.FS, log)
	if err != nil {
		return err
	}
	defer mg.Close()
	return mg.Up()
}
