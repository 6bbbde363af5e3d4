package usecase

import (
	"context"
	"sort"

	"course-membership/internal/domain/model"
	"course-membership/internal/domain/ports/repository"
)

// PlanUseCase exposes the read-only plan catalog.
type PlanUseCase struct {
	repo repository.PlanCatalog
}

func NewPlanUseCase(repo repository.PlanCatalog) *PlanUseCase {
	return &PlanUseCase{repo: repo}
}

// Get retrieves a plan by ID.
func (uc *PlanUseCase) Get(ctx context.Context, id int64) (*model.Plan, error) {
	return uc.repo.FindByID(ctx, id)
}

// List returns all plans ordered by ID.
func (uc *PlanUseCase) List(ctx context.Context) ([]*model.Plan, error) {
	plans, err := uc.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(plans, func(i, j int) bool { return plans[i].ID < plans[j].ID })
	return plans, nil
}
