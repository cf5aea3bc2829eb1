package main

import (
	"context"
	"log"

	"go.uber.org/zap"

	"github.com/spec-kit/ops-hub/internal/config"
	"github.com/spec-kit/ops-hub/internal/observability"
	"github.com/spec-kit/ops-hub/internal/persistence"
	"github.com/spec-kit/ops-hub/internal/repository"
	"github.com/spec-kit/ops-hub/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	// NewPostgres tolerates a missing DSN for embedders that run without a
	// database; the seeder cannot.
	if cfg.Postgres.DSN == "" {
		logger.Fatal("POSTGRES_DSN is required to run the seeder")
	}

	ctx := context.Background()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	pool := pg.PoolHandle()
	seeder := service.NewSeedService(service.SeedDependencies{
		ClusterRepo: repository.NewClusterRepository(pool),
		CircleRepo:  repository.NewCircleRepository(pool),
		ZoneRepo:    repository.NewZoneRepository(pool),
		AreaRepo:    repository.NewAreaRepository(pool),
		UserRepo:    repository.NewUserRepository(pool),
		Auth:        cfg.Auth,
		Logger:      logger,
	})

	if err := seeder.Seed(ctx); err != nil {
		logger.Fatal("seeding failed", zap.Error(err))
	}
}
