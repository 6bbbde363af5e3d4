package model

import (
	"time"

	"course-membership/internal/domain"
)

type MembershipStatus string

const (
	MembershipStatusPurchased MembershipStatus = "PURCHASED"
	MembershipStatusActivated MembershipStatus = "ACTIVATED"
	MembershipStatusExpired   MembershipStatus = "EXPIRED"
	MembershipStatusCancelled MembershipStatus = "CANCELLED"
)

// Membership is a buyer's right to use a Plan's courses.
type Membership struct {
	ID                 int64            `json:"id"`
	UserRef            string           `json:"user_ref"`
	PlanID             int64            `json:"plan_id"`
	OrderID            int64            `json:"order_id"`
	AmountPaid         int64            `json:"amount_paid"`
	Status             MembershipStatus `json:"status"`
	PurchaseDate       time.Time        `json:"purchase_date"`
	ActivationDeadline time.Time        `json:"activation_deadline"`
	ActivationDate     *time.Time       `json:"activation_date,omitempty"`
	ExpiryDate         *time.Time       `json:"expiry_date,omitempty"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

// NewMembership creates a PURCHASED membership whose deadline derives from the plan.
func NewMembership(userRef string, plan *Plan, orderID, amountPaid int64, now time.Time) (*Membership, error) {
	if plan.IsZero() {
		return nil, domain.ErrNotFound
	}
	if plan.IsCorporate() {
		return nil, domain.ErrInvalidPlanType
	}
	if userRef == "" || orderID <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	return &Membership{
		UserRef:            userRef,
		PlanID:             plan.ID,
		OrderID:            orderID,
		AmountPaid:         amountPaid,
		Status:             MembershipStatusPurchased,
		PurchaseDate:       now,
		ActivationDeadline: now.Add(plan.ActivationWindow()),
		UpdatedAt:          now,
	}, nil
}

// Activate moves PURCHASED -> ACTIVATED. The expiry date is always derived
// from the activation instant and the plan duration.
func (m *Membership) Activate(plan *Plan, now time.Time) error {
	if m.Status != MembershipStatusPurchased {
		return domain.ErrInvalidStateTransition
	}
	if now.After(m.ActivationDeadline) {
		return domain.ErrDeadlineExpired
	}
	activated := now
	expiry := activated.Add(plan.Duration())
	m.ActivationDate = &activated
	m.ExpiryDate = &expiry
	m.Status = MembershipStatusActivated
	m.UpdatedAt = now
	return nil
}

// Cancel moves a never-activated membership to CANCELLED.
func (m *Membership) Cancel(now time.Time) error {
	if m.Status != MembershipStatusPurchased {
		return domain.ErrInvalidStateTransition
	}
	m.Status = MembershipStatusCancelled
	m.UpdatedAt = now
	return nil
}

// SweepTarget returns the status the sweep should apply at now, or "" when
// the membership is not due. neverActivated is the policy for PURCHASED
// memberships past their deadline (EXPIRED or CANCELLED).
func (m *Membership) SweepTarget(now time.Time, neverActivated MembershipStatus) MembershipStatus {
	switch m.Status {
	case MembershipStatusActivated:
		if m.ExpiryDate != nil && m.ExpiryDate.Before(now) {
			return MembershipStatusExpired
		}
	case MembershipStatusPurchased:
		if m.ActivationDeadline.Before(now) {
			return neverActivated
		}
	}
	return ""
}
