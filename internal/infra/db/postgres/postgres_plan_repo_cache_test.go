//go:build !integration

package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"course-membership/internal/domain"
	"course-membership/internal/domain/model"
)

func TestPlanCatalogCacheDecorator(t *testing.T) {
	ctx := context.Background()
	plan := &model.Plan{ID: 7, Name: "Pro", Kind: model.PlanKindIndividual, Price: 3000, DurationDays: 30, ActivationWindowDays: 14}
	planJSON, _ := json.Marshal(plan)
	miss := errors.New("miss")

	t.Run("FindByID should return from cache on hit", func(t *testing.T) {
		// Arrange
		mockRedis := &mockRedisClient{
			GetFunc: func(ctx context.Context, key string) (string, error) {
				return string(planJSON), nil
			},
		}
		innerCalled := false
		inner := &mockInnerPlanCatalog{
			FindByIDFunc: func(ctx context.Context, id int64) (*model.Plan, error) {
				innerCalled = true
				return nil, nil
			},
		}
		decorator := NewPlanCatalogCacheDecorator(inner, mockRedis, time.Minute, zerolog.Nop())

		// Act
		result, err := decorator.FindByID(ctx, 7)

		// Assert
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if innerCalled {
			t.Error("inner catalog should not be called on a cache hit")
		}
		if result == nil || result.ID != 7 || result.Name != "Pro" {
			t.Errorf("did not return the correct plan from cache: %+v", result)
		}
	})

	t.Run("FindByID should fill the cache on miss", func(t *testing.T) {
		// Arrange
		var setKey string
		var setTTL time.Duration
		mockRedis := &mockRedisClient{
			GetFunc: func(ctx context.Context, key string) (string, error) { return "", miss },
			SetFunc: func(ctx context.Context, key string, value interface{}, exp time.Duration) error {
				setKey, setTTL = key, exp
				return nil
			},
		}
		inner := &mockInnerPlanCatalog{
			FindByIDFunc: func(ctx context.Context, id int64) (*model.Plan, error) { return plan, nil },
		}
		decorator := NewPlanCatalogCacheDecorator(inner, mockRedis, time.Minute, zerolog.Nop())

		// Act
		result, err := decorator.FindByID(ctx, 7)

		// Assert
		if err != nil || result.ID != 7 {
			t.Fatalf("expected plan 7, got %+v, %v", result, err)
		}
		if setKey != "plan:7" || setTTL != time.Minute {
			t.Errorf("expected plan:7 cached for 1m, got %q for %s", setKey, setTTL)
		}
	})

	t.Run("FindByID should not cache a NotFound", func(t *testing.T) {
		// Arrange
		setCalled := false
		mockRedis := &mockRedisClient{
			GetFunc: func(ctx context.Context, key string) (string, error) { return "", miss },
			SetFunc: func(ctx context.Context, key string, value interface{}, exp time.Duration) error {
				setCalled = true
				return nil
			},
		}
		inner := &mockInnerPlanCatalog{
			FindByIDFunc: func(ctx context.Context, id int64) (*model.Plan, error) { return nil, domain.ErrNotFound },
		}
		decorator := NewPlanCatalogCacheDecorator(inner, mockRedis, 0, zerolog.Nop())

		// Act
		_, err := decorator.FindByID(ctx, 99)

		// Assert
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if setCalled {
			t.Error("a missing plan should not be cached")
		}
	})

	t.Run("ListAll should serve the list from cache", func(t *testing.T) {
		// Arrange
		listJSON, _ := json.Marshal([]*model.Plan{plan})
		mockRedis := &mockRedisClient{
			GetFunc: func(ctx context.Context, key string) (string, error) {
				if key != "plans:all" {
					t.Errorf("unexpected key %q", key)
				}
				return string(listJSON), nil
			},
		}
		inner := &mockInnerPlanCatalog{
			ListAllFunc: func(ctx context.Context) ([]*model.Plan, error) {
				t.Error("inner catalog should not be called on a cache hit")
				return nil, nil
			},
		}
		decorator := NewPlanCatalogCacheDecorator(inner, mockRedis, time.Minute, zerolog.Nop())

		// Act
		plans, err := decorator.ListAll(ctx)

		// Assert
		if err != nil || len(plans) != 1 || plans[0].ID != 7 {
			t.Fatalf("expected cached list with plan 7, got %+v, %v", plans, err)
		}
	})

	t.Run("InvalidatePlanCache should drop the list and each plan key", func(t *testing.T) {
		// Arrange
		var deletedKeys []string
		mockRedis := &mockRedisClient{
			DelFunc: func(ctx context.Context, keys ...string) error {
				deletedKeys = append(deletedKeys, keys...)
				return nil
			},
		}

		// Act
		err := InvalidatePlanCache(ctx, mockRedis, 1, 2)

		// Assert
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(deletedKeys) != 3 || deletedKeys[0] != "plans:all" {
			t.Fatalf("expected plans:all plus two plan keys, got %v", deletedKeys)
		}
	})
}
