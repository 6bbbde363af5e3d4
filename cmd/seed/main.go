package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v4"

	"course-membership/internal/config"
	"course-membership/internal/domain/model"
	"course-membership/internal/domain/ports/repository"
	pg "course-membership/internal/infra/db/postgres"
	red "course-membership/internal/infra/redis"
)

// sample catalog used when the config file lists no plans
var defaultPlans = []model.Plan{
	{ID: 1, Name: "Starter", Kind: model.PlanKindIndividual, Price: 49_00, DurationDays: 30, ActivationWindowDays: 14},
	{ID: 2, Name: "Pro", Kind: model.PlanKindIndividual, Price: 129_00, DurationDays: 90, ActivationWindowDays: 30},
	{ID: 3, Name: "Team", Kind: model.PlanKindCorporate, Price: 99_00, DurationDays: 365, ActivationWindowDays: 30, MaxSeats: 200},
}

var defaultCompanies = []model.Company{{ID: "acme", Name: "Acme Corp"}}

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if cfg.Database.URL == "" {
		log.Fatalf("database.url is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pg.Connect(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()
	if err := pg.EnsureSchema(ctx, pool); err != nil {
		log.Fatalf("schema: %v", err)
	}

	plans := cfg.Plans
	if len(plans) == 0 {
		plans = defaultPlans
	}
	companies := cfg.Companies
	if len(companies) == 0 {
		companies = defaultCompanies
	}
	for _, p := range plans {
		if _, err := model.NewPlan(p.ID, p.Name, p.Kind, p.Price, p.DurationDays, p.ActivationWindowDays); err != nil {
			log.Fatalf("plan %d (%s): %v", p.ID, p.Name, err)
		}
	}

	planRepo := pg.NewPlanRepo(pool)
	companyRepo := pg.NewCompanyRepo(pool)
	err = pg.NewTxManager(pool).WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		for i := range plans {
			if err := planRepo.Save(ctx, tx, &plans[i]); err != nil {
				return err
			}
		}
		for _, c := range companies {
			if err := companyRepo.Save(ctx, tx, c); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatalf("seed: %v", err)
	}

	// running engines may hold stale plan entries
	if cfg.Redis.URL != "" {
		rc, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			log.Printf("redis unavailable, plan cache not invalidated: %v", err)
		} else {
			ids := make([]int64, 0, len(plans))
			for _, p := range plans {
				ids = append(ids, p.ID)
			}
			if err := pg.InvalidatePlanCache(ctx, rc, ids...); err != nil {
				log.Printf("invalidate plan cache: %v", err)
			}
			_ = rc.Close()
		}
	}

	for _, p := range plans {
		fmt.Printf("seeded plan: %s (id=%d, kind=%s, price=%d, days=%d)\n", p.Name, p.ID, p.Kind, p.Price, p.DurationDays)
	}
	fmt.Printf("seeded %d companies\n", len(companies))
}
