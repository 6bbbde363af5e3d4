//go:build !integration

package postgres

import (
	"context"
	"time"

	"course-membership/internal/domain/model"
	red "course-membership/internal/infra/redis"
)

// --- Mocks for Cache Decorator Tests ---

// mockInnerPlanCatalog mocks the database catalog that the decorator wraps.
type mockInnerPlanCatalog struct {
	FindByIDFunc func(ctx context.Context, id int64) (*model.Plan, error)
	ListAllFunc  func(ctx context.Context) ([]*model.Plan, error)
}

func (m *mockInnerPlanCatalog) FindByID(ctx context.Context, id int64) (*model.Plan, error) {
	return m.FindByIDFunc(ctx, id)
}
func (m *mockInnerPlanCatalog) ListAll(ctx context.Context) ([]*model.Plan, error) {
	return m.ListAllFunc(ctx)
}

// mockRedisClient mocks our Redis client wrapper.
type mockRedisClient struct {
	GetFunc    func(ctx context.Context, key string) (string, error)
	SetFunc    func(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	DelFunc    func(ctx context.Context, keys ...string) error
	PingFunc   func(ctx context.Context) error
	IncrFunc   func(ctx context.Context, key string) (int64, error)
	ExpireFunc func(ctx context.Context, key string, expiration time.Duration) error
	CloseFunc  func() error
}

var _ red.RedisClient = &mockRedisClient{}

func (m *mockRedisClient) Get(ctx context.Context, key string) (string, error) {
	return m.GetFunc(ctx, key)
}
func (m *mockRedisClient) GetBytes(ctx context.Context, key string) ([]byte, error) {
	s, err := m.GetFunc(ctx, key)
	return []byte(s), err
}
func (m *mockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if m.SetFunc == nil {
		return nil
	}
	return m.SetFunc(ctx, key, value, expiration)
}
func (m *mockRedisClient) Del(ctx context.Context, keys ...string) error {
	return m.DelFunc(ctx, keys...)
}
func (m *mockRedisClient) Ping(ctx context.Context) error { return m.PingFunc(ctx) }
func (m *mockRedisClient) Incr(ctx context.Context, key string) (int64, error) {
	return m.IncrFunc(ctx, key)
}
func (m *mockRedisClient) Expire(ctx context.Context, key string, expiration time.Duration) error {
	return m.ExpireFunc(ctx, key, expiration)
}
func (m *mockRedisClient) Close() error { return m.CloseFunc() }
