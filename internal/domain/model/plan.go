package model

import (
	"time"

	"course-membership/internal/domain"
)

type PlanKind string

const (
	PlanKindIndividual PlanKind = "individual"
	PlanKindCorporate  PlanKind = "corporate"
)

// Plan is the read-only definition of a purchasable offering. It is owned
// outside the engine; corporate plans are priced per seat.
type Plan struct {
	ID                   int64    `json:"id" yaml:"id"`
	Name                 string   `json:"name" yaml:"name"`
	Kind                 PlanKind `json:"kind" yaml:"kind"`
	Price                int64    `json:"price" yaml:"price"`
	DurationDays         int      `json:"duration_days" yaml:"duration_days"`
	ActivationWindowDays int      `json:"activation_window_days" yaml:"activation_window_days"`
	MaxSeats             int      `json:"max_seats,omitempty" yaml:"max_seats"`
}

func (p *Plan) IsZero() bool { return p == nil || p.ID == 0 }

func (p *Plan) IsCorporate() bool { return p != nil && p.Kind == PlanKindCorporate }

// Duration is the entitlement length once activated.
func (p *Plan) Duration() time.Duration {
	return time.Duration(p.DurationDays) * 24 * time.Hour
}

// ActivationWindow is how long a purchase may stay unactivated.
func (p *Plan) ActivationWindow() time.Duration {
	return time.Duration(p.ActivationWindowDays) * 24 * time.Hour
}

// NewPlan validates and constructs a plan.
func NewPlan(id int64, name string, kind PlanKind, price int64, durationDays, activationWindowDays int) (*Plan, error) {
	if id <= 0 || name == "" || price <= 0 || durationDays <= 0 || activationWindowDays <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	if kind != PlanKindIndividual && kind != PlanKindCorporate {
		return nil, domain.ErrInvalidPlanType
	}
	return &Plan{
		ID:                   id,
		Name:                 name,
		Kind:                 kind,
		Price:                price,
		DurationDays:         durationDays,
		ActivationWindowDays: activationWindowDays,
	}, nil
}

// Company is a corporate customer known to the external directory.
type Company struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}
