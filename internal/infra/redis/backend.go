package redis

import (
	"context"
	"fmt"

	"course-membership/internal/domain"
	"course-membership/internal/domain/ports/repository"
)

var _ repository.PersistenceBackend = (*DocumentBackend)(nil)

// DocumentBackend keeps one redis key per collection. Keys never expire.
type DocumentBackend struct {
	client RedisClient
	prefix string
}

func NewDocumentBackend(client RedisClient, prefix string) *DocumentBackend {
	if prefix == "" {
		prefix = "engine"
	}
	return &DocumentBackend{client: client, prefix: prefix}
}

func (b *DocumentBackend) Name() string { return "redis" }

func (b *DocumentBackend) key(collection string) string {
	return b.prefix + ":collection:" + collection
}

func (b *DocumentBackend) Load(ctx context.Context, collection string) ([]byte, error) {
	raw, err := b.client.GetBytes(ctx, b.key(collection))
	if IsNil(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: redis get %s: %v", domain.ErrPersistenceFailure, collection, err)
	}
	return raw, nil
}

func (b *DocumentBackend) Save(ctx context.Context, collection string, doc []byte) error {
	if err := b.client.Set(ctx, b.key(collection), doc, 0); err != nil {
		return fmt.Errorf("%w: redis set %s: %v", domain.ErrPersistenceFailure, collection, err)
	}
	return nil
}
