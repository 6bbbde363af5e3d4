package model

import (
	"time"

	"course-membership/internal/domain"
)

type CorporateSubscriptionStatus string

const (
	CorporateStatusInactive  CorporateSubscriptionStatus = "INACTIVE"
	CorporateStatusActivated CorporateSubscriptionStatus = "ACTIVATED"
	CorporateStatusExpired   CorporateSubscriptionStatus = "EXPIRED"
	CorporateStatusCancelled CorporateSubscriptionStatus = "CANCELLED"
)

// CorporateSubscription is a company-level seat pool.
// SeatsUsed + SeatsAvailable == SeatsTotal at all times.
type CorporateSubscription struct {
	ID                 int64                       `json:"id"`
	CompanyID          string                      `json:"company_id"`
	PlanID             int64                       `json:"plan_id"`
	OrderID            *int64                      `json:"order_id,omitempty"`
	AmountPaid         int64                       `json:"amount_paid"`
	SeatsTotal         int                         `json:"seats_total"`
	SeatsUsed          int                         `json:"seats_used"`
	SeatsAvailable     int                         `json:"seats_available"`
	Status             CorporateSubscriptionStatus `json:"status"`
	PurchaseDate       time.Time                   `json:"purchase_date"`
	ActivationDeadline time.Time                   `json:"activation_deadline"`
	ActivationDate     *time.Time                  `json:"activation_date,omitempty"`
	ExpiryDate         *time.Time                  `json:"expiry_date,omitempty"`
	UpdatedAt          time.Time                   `json:"updated_at"`
}

func NewCorporateSubscription(companyID string, plan *Plan, seatsTotal int, amountPaid int64, now time.Time) (*CorporateSubscription, error) {
	if plan.IsZero() {
		return nil, domain.ErrNotFound
	}
	if !plan.IsCorporate() {
		return nil, domain.ErrInvalidPlanType
	}
	if companyID == "" || seatsTotal <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	if plan.MaxSeats > 0 && seatsTotal > plan.MaxSeats {
		return nil, domain.ErrInvalidArgument
	}
	if amountPaid < 0 {
		return nil, domain.ErrInvalidAmount
	}
	return &CorporateSubscription{
		CompanyID:          companyID,
		PlanID:             plan.ID,
		AmountPaid:         amountPaid,
		SeatsTotal:         seatsTotal,
		SeatsAvailable:     seatsTotal,
		Status:             CorporateStatusInactive,
		PurchaseDate:       now,
		ActivationDeadline: now.Add(plan.ActivationWindow()),
		UpdatedAt:          now,
	}, nil
}

func (s *CorporateSubscription) Activate(plan *Plan, now time.Time) error {
	if s.Status != CorporateStatusInactive {
		return domain.ErrInvalidStateTransition
	}
	if now.After(s.ActivationDeadline) {
		return domain.ErrDeadlineExpired
	}
	activated := now
	expiry := activated.Add(plan.Duration())
	s.ActivationDate = &activated
	s.ExpiryDate = &expiry
	s.Status = CorporateStatusActivated
	s.UpdatedAt = now
	return nil
}

// AdjustSeats moves delta seats between available and used. A negative delta
// reserves seats, a positive one releases them.
func (s *CorporateSubscription) AdjustSeats(delta int, now time.Time) error {
	if s.SeatsAvailable+delta < 0 {
		return domain.ErrSeatExhausted
	}
	if s.SeatsUsed-delta < 0 {
		return domain.ErrInvalidArgument
	}
	s.SeatsAvailable += delta
	s.SeatsUsed -= delta
	s.UpdatedAt = now
	return nil
}

// Live reports whether seats may still be drawn from the pool.
func (s *CorporateSubscription) Live() bool {
	return s.Status == CorporateStatusInactive || s.Status == CorporateStatusActivated
}

func (s *CorporateSubscription) SeatsBalanced() bool {
	return s.SeatsUsed >= 0 && s.SeatsAvailable >= 0 && s.SeatsUsed+s.SeatsAvailable == s.SeatsTotal
}

func (s *CorporateSubscription) SweepTarget(now time.Time, neverActivated CorporateSubscriptionStatus) CorporateSubscriptionStatus {
	switch s.Status {
	case CorporateStatusActivated:
		if s.ExpiryDate != nil && s.ExpiryDate.Before(now) {
			return CorporateStatusExpired
		}
	case CorporateStatusInactive:
		if s.ActivationDeadline.Before(now) {
			return neverActivated
		}
	}
	return ""
}

type CardStatus string

const (
	CardStatusInactive  CardStatus = "inactive"
	CardStatusActivated CardStatus = "activated"
	CardStatusExpired   CardStatus = "expired"
)

// CorporateMember is one seat drawn from a CorporateSubscription.
type CorporateMember struct {
	ID                 int64      `json:"id"`
	SubscriptionID     int64      `json:"subscription_id"`
	CompanyID          string     `json:"company_id"`
	UserRef            string     `json:"user_ref"`
	OrderID            *int64     `json:"order_id,omitempty"`
	CardStatus         CardStatus `json:"card_status"`
	IssuedDate         time.Time  `json:"issued_date"`
	ActivationDeadline time.Time  `json:"activation_deadline"`
	ActivationDate     *time.Time `json:"activation_date,omitempty"`
	StartDate          *time.Time `json:"start_date,omitempty"`
	EndDate            *time.Time `json:"end_date,omitempty"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func NewCorporateMember(sub *CorporateSubscription, plan *Plan, userRef string, now time.Time) (*CorporateMember, error) {
	if sub == nil {
		return nil, domain.ErrNotFound
	}
	if userRef == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &CorporateMember{
		SubscriptionID:     sub.ID,
		CompanyID:          sub.CompanyID,
		UserRef:            userRef,
		CardStatus:         CardStatusInactive,
		IssuedDate:         now,
		ActivationDeadline: now.Add(plan.ActivationWindow()),
		UpdatedAt:          now,
	}, nil
}

// Activate issues or re-issues the card. Re-activating an expired card keeps
// the original activation date. A card that expired without ever being
// activated missed its deadline and stays expired.
func (m *CorporateMember) Activate(sub *CorporateSubscription, plan *Plan, now time.Time) error {
	if sub == nil || sub.Status != CorporateStatusActivated {
		return domain.ErrInvalidStateTransition
	}
	switch m.CardStatus {
	case CardStatusInactive:
		if now.After(m.ActivationDeadline) {
			return domain.ErrDeadlineExpired
		}
		activated := now
		m.ActivationDate = &activated
	case CardStatusExpired:
		if m.ActivationDate == nil {
			return domain.ErrDeadlineExpired
		}
	default:
		return domain.ErrInvalidStateTransition
	}
	start := now
	end := start.Add(plan.Duration())
	if sub.ExpiryDate != nil && sub.ExpiryDate.Before(end) {
		end = *sub.ExpiryDate
	}
	m.StartDate = &start
	m.EndDate = &end
	m.CardStatus = CardStatusActivated
	m.UpdatedAt = now
	return nil
}

// Due reports whether the sweep should expire this card. parentLive is false
// when the parent subscription is EXPIRED or CANCELLED.
func (m *CorporateMember) Due(now time.Time, parentLive bool) bool {
	switch m.CardStatus {
	case CardStatusActivated:
		return !parentLive || (m.EndDate != nil && m.EndDate.Before(now))
	case CardStatusInactive:
		return !parentLive || m.ActivationDeadline.Before(now)
	}
	return false
}
