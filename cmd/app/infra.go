package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"

	"course-membership/internal/config"
	"course-membership/internal/domain/ports/repository"
	"course-membership/internal/infra/db/file"
	"course-membership/internal/infra/db/memory"
	pg "course-membership/internal/infra/db/postgres"
	red "course-membership/internal/infra/redis"
	"course-membership/internal/infra/security"
)

// infra holds the optional external connections. Either field may be nil.
type infra struct {
	pool  *pgxpool.Pool
	redis *red.Client
}

func openInfra(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*infra, error) {
	inf := &infra{}
	if cfg.Database.URL != "" {
		pool, err := pg.Connect(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		if err := pg.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("postgres schema: %w", err)
		}
		inf.pool = pool
	}
	if cfg.Redis.URL != "" {
		c, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			inf.Close()
			return nil, fmt.Errorf("redis: %w", err)
		}
		inf.redis = c
	} else {
		logger.Info().Msg("redis not configured; sweeper lock, plan cache and rate limiting disabled")
	}
	return inf, nil
}

func (i *infra) Close() {
	if i.redis != nil {
		_ = i.redis.Close()
	}
	if i.pool != nil {
		i.pool.Close()
	}
}

func openBackend(cfg *config.Config, inf *infra) (repository.PersistenceBackend, error) {
	switch cfg.Persistence.Backend {
	case "file":
		var cipher *security.EncryptionService
		if cfg.Persistence.EncryptionKey != "" {
			c, err := security.NewEncryptionService(cfg.Persistence.EncryptionKey)
			if err != nil {
				return nil, err
			}
			cipher = c
		}
		return file.NewBackend(cfg.Persistence.FileDir, cipher)
	case "redis":
		return red.NewDocumentBackend(inf.redis, ""), nil
	case "postgres":
		return pg.NewDocumentBackend(inf.pool), nil
	default:
		return memory.NewBackend(), nil
	}
}

// openCatalog serves plans and companies from the config file, or from
// postgres when database.catalog is set. Postgres plan reads go through the
// redis cache when one is available.
func openCatalog(cfg *config.Config, inf *infra, logger *zerolog.Logger) (repository.PlanCatalog, repository.CompanyDirectory) {
	if !cfg.Database.Catalog || inf.pool == nil {
		return memory.NewPlanCatalog(cfg.Plans), memory.NewCompanyDirectory(cfg.Companies)
	}
	var plans repository.PlanCatalog = pg.NewPlanRepo(inf.pool)
	if inf.redis != nil {
		plans = pg.NewPlanCatalogCacheDecorator(plans, inf.redis, cfg.Redis.TTL, *logger)
	}
	return plans, pg.NewCompanyRepo(inf.pool)
}
