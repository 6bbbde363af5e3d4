package postgres

import (
	"context"
	"fmt"

	"course-membership/internal/domain"
	"course-membership/internal/domain/model"
	"course-membership/internal/domain/ports/repository"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// Ensure interface compliance
var _ repository.PlanCatalog = (*PlanRepo)(nil)

type PlanRepo struct {
	pool *pgxpool.Pool
}

func NewPlanRepo(pool *pgxpool.Pool) *PlanRepo {
	return &PlanRepo{pool: pool}
}

// Save upserts a plan. Used by the seed command only; the engine never writes plans.
func (r *PlanRepo) Save(ctx context.Context, tx repository.Tx, plan *model.Plan) error {
	exec, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	const sql = `
INSERT INTO plans (id, name, kind, price, duration_days, activation_window_days, max_seats)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE
  SET name                   = EXCLUDED.name,
      kind                   = EXCLUDED.kind,
      price                  = EXCLUDED.price,
      duration_days          = EXCLUDED.duration_days,
      activation_window_days = EXCLUDED.activation_window_days,
      max_seats              = EXCLUDED.max_seats;
`
	_, err = exec.Exec(ctx, sql,
		plan.ID, plan.Name, string(plan.Kind), plan.Price, plan.DurationDays, plan.ActivationWindowDays, plan.MaxSeats,
	)
	if err != nil {
		return fmt.Errorf("save plan: %w", err)
	}
	return nil
}

func (r *PlanRepo) FindByID(ctx context.Context, id int64) (*model.Plan, error) {
	const sql = `
SELECT id, name, kind, price, duration_days, activation_window_days, max_seats
  FROM plans
 WHERE id = $1;
`
	p, err := scanPlan(r.pool.QueryRow(ctx, sql, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find plan: %w", err)
	}
	return p, nil
}

func (r *PlanRepo) ListAll(ctx context.Context) ([]*model.Plan, error) {
	const sql = `
SELECT id, name, kind, price, duration_days, activation_window_days, max_seats
  FROM plans
 ORDER BY id;
`
	rows, err := r.pool.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()
	var out []*model.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPlan(row pgx.Row) (*model.Plan, error) {
	var (
		p    model.Plan
		kind string
	)
	if err := row.Scan(&p.ID, &p.Name, &kind, &p.Price, &p.DurationDays, &p.ActivationWindowDays, &p.MaxSeats); err != nil {
		return nil, err
	}
	p.Kind = model.PlanKind(kind)
	return &p, nil
}
