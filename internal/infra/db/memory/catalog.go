package memory

import (
	"context"
	"sort"

	"course-membership/internal/domain"
	"course-membership/internal/domain/model"
	"course-membership/internal/domain/ports/repository"
)

var (
	_ repository.PlanCatalog      = (*PlanCatalog)(nil)
	_ repository.CompanyDirectory = (*CompanyDirectory)(nil)
)

// PlanCatalog serves plans loaded from configuration.
type PlanCatalog struct {
	plans map[int64]model.Plan
}

func NewPlanCatalog(plans []model.Plan) *PlanCatalog {
	m := make(map[int64]model.Plan, len(plans))
	for _, p := range plans {
		m[p.ID] = p
	}
	return &PlanCatalog{plans: m}
}

func (c *PlanCatalog) FindByID(_ context.Context, id int64) (*model.Plan, error) {
	p, ok := c.plans[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (c *PlanCatalog) ListAll(_ context.Context) ([]*model.Plan, error) {
	out := make([]*model.Plan, 0, len(c.plans))
	for _, p := range c.plans {
		p := p
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// CompanyDirectory answers from a fixed set of company ids.
type CompanyDirectory struct {
	ids map[string]struct{}
}

func NewCompanyDirectory(companies []model.Company) *CompanyDirectory {
	ids := make(map[string]struct{}, len(companies))
	for _, c := range companies {
		ids[c.ID] = struct{}{}
	}
	return &CompanyDirectory{ids: ids}
}

func (d *CompanyDirectory) Exists(_ context.Context, companyID string) (bool, error) {
	_, ok := d.ids[companyID]
	return ok, nil
}
