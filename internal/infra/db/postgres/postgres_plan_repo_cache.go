package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"course-membership/internal/domain/model"
	"course-membership/internal/domain/ports/repository"
	"course-membership/internal/infra/metrics"
	red "course-membership/internal/infra/redis"
)

var _ repository.PlanCatalog = (*planCatalogCacheDecorator)(nil)

const plansAllKey = "plans:all"

type planCatalogCacheDecorator struct {
	inner repository.PlanCatalog
	cache red.RedisClient
	ttl   time.Duration
	log   zerolog.Logger
}

// NewPlanCatalogCacheDecorator caches plan lookups in redis for ttl. Cache
// errors fall through to inner.
func NewPlanCatalogCacheDecorator(inner repository.PlanCatalog, cache red.RedisClient, ttl time.Duration, log zerolog.Logger) repository.PlanCatalog {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &planCatalogCacheDecorator{
		inner: inner,
		cache: cache,
		ttl:   ttl,
		log:   log.With().Str("component", "PlanCatalogCache").Logger(),
	}
}

func planKey(id int64) string { return fmt.Sprintf("plan:%d", id) }

func (d *planCatalogCacheDecorator) FindByID(ctx context.Context, id int64) (*model.Plan, error) {
	key := planKey(id)
	val, err := d.cache.Get(ctx, key)
	if err == nil {
		var plan model.Plan
		if json.Unmarshal([]byte(val), &plan) == nil {
			metrics.IncCacheRequest("plan", "hit")
			return &plan, nil
		}
	} else if !red.IsNil(err) {
		d.log.Warn().Err(err).Str("key", key).Msg("plan cache read failed")
	}

	metrics.IncCacheRequest("plan", "miss")
	plan, err := d.inner.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(plan); err == nil {
		_ = d.cache.Set(ctx, key, b, d.ttl)
	}
	return plan, nil
}

func (d *planCatalogCacheDecorator) ListAll(ctx context.Context) ([]*model.Plan, error) {
	val, err := d.cache.Get(ctx, plansAllKey)
	if err == nil {
		var plans []*model.Plan
		if json.Unmarshal([]byte(val), &plans) == nil {
			metrics.IncCacheRequest("plan_list", "hit")
			return plans, nil
		}
	} else if !red.IsNil(err) {
		d.log.Warn().Err(err).Str("key", plansAllKey).Msg("plan cache read failed")
	}

	metrics.IncCacheRequest("plan_list", "miss")
	plans, err := d.inner.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	if len(plans) > 0 {
		if b, err := json.Marshal(plans); err == nil {
			_ = d.cache.Set(ctx, plansAllKey, b, d.ttl)
		}
	}
	return plans, nil
}

// InvalidatePlanCache drops cached entries for ids and the plan list.
func InvalidatePlanCache(ctx context.Context, cache red.RedisClient, ids ...int64) error {
	keys := []string{plansAllKey}
	for _, id := range ids {
		keys = append(keys, planKey(id))
	}
	return cache.Del(ctx, keys...)
}
