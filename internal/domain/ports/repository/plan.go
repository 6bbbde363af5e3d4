package repository

import (
	"context"

	"course-membership/internal/domain/model"
)

// PlanCatalog is the read-only port to plans owned outside the engine.
type PlanCatalog interface {
	FindByID(ctx context.Context, id int64) (*model.Plan, error)
	ListAll(ctx context.Context) ([]*model.Plan, error)
}

// CompanyDirectory answers whether a corporate customer exists.
type CompanyDirectory interface {
	Exists(ctx context.Context, companyID string) (bool, error)
}
