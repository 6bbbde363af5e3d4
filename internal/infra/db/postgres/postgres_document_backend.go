package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"course-membership/internal/domain"
	"course-membership/internal/domain/ports/repository"
)

var _ repository.PersistenceBackend = (*DocumentBackend)(nil)

// DocumentBackend keeps each collection as one JSONB row.
type DocumentBackend struct {
	pool *pgxpool.Pool
}

func NewDocumentBackend(pool *pgxpool.Pool) *DocumentBackend {
	return &DocumentBackend{pool: pool}
}

func (b *DocumentBackend) Name() string { return "postgres" }

func (b *DocumentBackend) Load(ctx context.Context, collection string) ([]byte, error) {
	const sql = `
SELECT body
  FROM engine_documents
 WHERE collection = $1;
`
	var body []byte
	if err := b.pool.QueryRow(ctx, sql, collection).Scan(&body); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: load %s: %v", domain.ErrPersistenceFailure, collection, err)
	}
	return body, nil
}

func (b *DocumentBackend) Save(ctx context.Context, collection string, doc []byte) error {
	const sql = `
INSERT INTO engine_documents (collection, body, updated_at)
VALUES ($1, $2::jsonb, now())
ON CONFLICT (collection) DO UPDATE
  SET body       = EXCLUDED.body,
      updated_at = EXCLUDED.updated_at;
`
	if _, err := b.pool.Exec(ctx, sql, collection, string(doc)); err != nil {
		return fmt.Errorf("%w: save %s: %v", domain.ErrPersistenceFailure, collection, err)
	}
	return nil
}
