package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"course-membership/internal/domain/model"
	"course-membership/internal/domain/ports/repository"
)

var _ repository.CompanyDirectory = (*CompanyRepo)(nil)

type CompanyRepo struct {
	pool *pgxpool.Pool
}

func NewCompanyRepo(pool *pgxpool.Pool) *CompanyRepo {
	return &CompanyRepo{pool: pool}
}

func (r *CompanyRepo) Save(ctx context.Context, tx repository.Tx, c model.Company) error {
	exec, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	const sql = `
INSERT INTO companies (id, name)
VALUES ($1, $2)
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name;
`
	if _, err := exec.Exec(ctx, sql, c.ID, c.Name); err != nil {
		return fmt.Errorf("save company: %w", err)
	}
	return nil
}

func (r *CompanyRepo) Exists(ctx context.Context, companyID string) (bool, error) {
	const sql = `SELECT EXISTS (SELECT 1 FROM companies WHERE id = $1);`
	var ok bool
	if err := r.pool.QueryRow(ctx, sql, companyID).Scan(&ok); err != nil {
		return false, fmt.Errorf("company exists: %w", err)
	}
	return ok, nil
}
