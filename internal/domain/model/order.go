package model

import (
	"strings"
	"time"

	"course-membership/internal/domain"
)

type OrderStatus string

const (
	OrderStatusCreated   OrderStatus = "CREATED"
	OrderStatusCompleted OrderStatus = "COMPLETED"
	OrderStatusCanceled  OrderStatus = "CANCELED"
)

type CancelReason string

const (
	CancelReasonNone            CancelReason = ""
	CancelReasonExpired         CancelReason = "expired"
	CancelReasonPaymentFailed   CancelReason = "payment_failed"
	CancelReasonProvisionFailed CancelReason = "provision_failed"
	CancelReasonUser            CancelReason = "user"
)

// DefaultOrderTTL is how long a CREATED order waits for payment.
const DefaultOrderTTL = 15 * time.Minute

// Buyer identifies who pays: a registered user, a guest, or a company.
type Buyer struct {
	UserID     string `json:"user_id,omitempty"`
	GuestEmail string `json:"guest_email,omitempty"`
	GuestName  string `json:"guest_name,omitempty"`
	CompanyID  string `json:"company_id,omitempty"`
}

// Ref is the stable user reference stored on provisioned records.
func (b Buyer) Ref() string {
	switch {
	case b.UserID != "":
		return b.UserID
	case b.GuestEmail != "":
		return "guest:" + strings.ToLower(b.GuestEmail)
	default:
		return ""
	}
}

func (b Buyer) Valid() bool {
	return b.UserID != "" || b.GuestEmail != "" || b.CompanyID != ""
}

// Order is an attempted purchase of one Plan. Orders are never deleted.
type Order struct {
	ID             int64        `json:"id"`
	PlanID         int64        `json:"plan_id"`
	Buyer          Buyer        `json:"buyer"`
	Quantity       int          `json:"quantity"`
	SubscriptionID *int64       `json:"subscription_id,omitempty"` // seat purchase against an existing pool
	Amount         int64        `json:"amount"`
	Status         OrderStatus  `json:"status"`
	CancelReason   CancelReason `json:"cancel_reason,omitempty"`
	PaymentID      string       `json:"payment_id,omitempty"`
	PaymentPending bool         `json:"payment_pending,omitempty"` // gateway call timed out; awaiting reconciliation
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
	ExpiresAt      time.Time    `json:"expires_at"`
}

// NewOrder validates the buyer and the amount against the plan and
// constructs a CREATED order. Individual orders need a user or guest to
// hold the membership; corporate orders need the company that owns the pool.
func NewOrder(plan *Plan, buyer Buyer, quantity int, amount int64, now time.Time, ttl time.Duration) (*Order, error) {
	if plan.IsZero() {
		return nil, domain.ErrNotFound
	}
	if !buyer.Valid() {
		return nil, domain.ErrInvalidArgument
	}
	if (plan.IsCorporate() && buyer.CompanyID == "") || (!plan.IsCorporate() && buyer.Ref() == "") {
		return nil, domain.ErrInvalidArgument
	}
	if quantity <= 0 {
		quantity = 1
	}
	if !plan.IsCorporate() && quantity != 1 {
		return nil, domain.ErrInvalidArgument
	}
	if amount <= 0 || amount != plan.Price*int64(quantity) {
		return nil, domain.ErrInvalidAmount
	}
	if ttl <= 0 {
		ttl = DefaultOrderTTL
	}
	return &Order{
		PlanID:    plan.ID,
		Buyer:     buyer,
		Quantity:  quantity,
		Amount:    amount,
		Status:    OrderStatusCreated,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(ttl),
	}, nil
}

func (o *Order) IsTerminal() bool {
	return o.Status == OrderStatusCompleted || o.Status == OrderStatusCanceled
}

// Transition applies CREATED -> COMPLETED or CREATED -> CANCELED.
func (o *Order) Transition(to OrderStatus, paymentID string, reason CancelReason, now time.Time) error {
	if o.Status != OrderStatusCreated {
		return domain.ErrInvalidStateTransition
	}
	switch to {
	case OrderStatusCompleted:
		if paymentID == "" {
			return domain.ErrInvalidArgument
		}
		o.PaymentID = paymentID
	case OrderStatusCanceled:
		if reason == CancelReasonNone {
			reason = CancelReasonUser
		}
		o.CancelReason = reason
		if paymentID != "" {
			o.PaymentID = paymentID
		}
	default:
		return domain.ErrInvalidStateTransition
	}
	o.Status = to
	o.PaymentPending = false
	o.UpdatedAt = now
	return nil
}

// RevertCompletion is the compensating transition for a COMPLETED order whose
// provisioning step failed. It is the only way out of COMPLETED.
func (o *Order) RevertCompletion(now time.Time) error {
	if o.Status != OrderStatusCompleted {
		return domain.ErrInvalidStateTransition
	}
	o.Status = OrderStatusCanceled
	o.CancelReason = CancelReasonProvisionFailed
	o.UpdatedAt = now
	return nil
}

// Expired reports whether a CREATED order has outlived its TTL.
func (o *Order) Expired(now time.Time) bool {
	return o.Status == OrderStatusCreated && o.ExpiresAt.Before(now)
}
