// File: internal/usecase/order_uc.go
package usecase

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"course-membership/internal/domain"
	"course-membership/internal/domain/model"
	"course-membership/internal/domain/ports/adapter"
	"course-membership/internal/domain/ports/repository"
	"course-membership/internal/infra/logging"
	"course-membership/internal/infra/metrics"
)

// OrderFilter narrows ListOrders. Zero fields match everything.
type OrderFilter struct {
	Status   model.OrderStatus
	BuyerRef string
	Pending  bool // only orders awaiting payment reconciliation
}

// OrderStore owns Order records and their state machine.
type OrderStore struct {
	mu     sync.Mutex
	coll   *collection[model.Order]
	plans  repository.PlanCatalog
	ttl    time.Duration
	now    func() time.Time
	events adapter.EventPublisher
	log    *zerolog.Logger
}

// NewOrderStore loads the orders collection from backend.
func NewOrderStore(ctx context.Context, backend repository.PersistenceBackend, plans repository.PlanCatalog, ttl time.Duration, opts ...Option) (*OrderStore, error) {
	o := buildOptions(opts)
	s := &OrderStore{
		coll: newCollection(repository.CollectionOrders, backend, o.retry,
			func(r *model.Order) int64 { return r.ID },
			func(r *model.Order, id int64) { r.ID = id }),
		plans:  plans,
		ttl:    ttl,
		now:    o.now,
		events: o.events,
		log:    o.component("OrderStore"),
	}
	if err := s.coll.load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// CreateOrder validates amount against the plan price and stores a CREATED order.
func (s *OrderStore) CreateOrder(ctx context.Context, planID int64, buyer model.Buyer, quantity int, amount int64) (*model.Order, error) {
	defer logging.TraceDuration(s.log, "OrderStore.CreateOrder")()

	plan, err := s.plans.FindByID(ctx, planID)
	if err != nil {
		return nil, err
	}
	ord, err := model.NewOrder(plan, buyer, quantity, amount, s.now(), s.ttl)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	saved, err := s.coll.insert(ctx, *ord)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	logging.With(ctx, s.log).Info().Int64("order_id", saved.ID).Int64("plan_id", planID).Int64("amount", amount).Msg("order created")
	metrics.IncOrder(string(model.OrderStatusCreated), "")
	s.publish(ctx, model.EventOrderCreated, &saved)
	return &saved, nil
}

// CreateSeatOrder prices one seat of an existing corporate subscription.
func (s *OrderStore) CreateSeatOrder(ctx context.Context, sub *model.CorporateSubscription, buyer model.Buyer, amount int64) (*model.Order, error) {
	if sub == nil {
		return nil, domain.ErrNotFound
	}
	plan, err := s.plans.FindByID(ctx, sub.PlanID)
	if err != nil {
		return nil, err
	}
	// the seat is assigned to the buyer, not to the company
	if buyer.Ref() == "" {
		return nil, domain.ErrInvalidArgument
	}
	if buyer.CompanyID == "" {
		buyer.CompanyID = sub.CompanyID
	}
	ord, err := model.NewOrder(plan, buyer, 1, amount, s.now(), s.ttl)
	if err != nil {
		return nil, err
	}
	subID := sub.ID
	ord.SubscriptionID = &subID

	s.mu.Lock()
	saved, err := s.coll.insert(ctx, *ord)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	metrics.IncOrder(string(model.OrderStatusCreated), "")
	s.publish(ctx, model.EventOrderCreated, &saved)
	return &saved, nil
}

func (s *OrderStore) GetOrder(_ context.Context, id int64) (*model.Order, error) {
	s.mu.Lock()
	ord, ok := s.coll.get(id)
	s.mu.Unlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &ord, nil
}

func (s *OrderStore) ListOrders(_ context.Context, f OrderFilter) []model.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.coll.list(func(o *model.Order) bool {
		if f.Status != "" && o.Status != f.Status {
			return false
		}
		if f.BuyerRef != "" && o.Buyer.Ref() != f.BuyerRef {
			return false
		}
		if f.Pending && !o.PaymentPending {
			return false
		}
		return true
	})
}

// UpdateStatus applies CREATED -> COMPLETED|CANCELED. Any other transition,
// including one out of a terminal state, fails with ErrInvalidStateTransition.
func (s *OrderStore) UpdateStatus(ctx context.Context, id int64, to model.OrderStatus, paymentID string) (*model.Order, error) {
	return s.transition(ctx, id, func(o *model.Order, now time.Time) error {
		return o.Transition(to, paymentID, model.CancelReasonUser, now)
	})
}

// CancelOrder cancels a CREATED order recording why.
func (s *OrderStore) CancelOrder(ctx context.Context, id int64, reason model.CancelReason, paymentID string) (*model.Order, error) {
	return s.transition(ctx, id, func(o *model.Order, now time.Time) error {
		return o.Transition(model.OrderStatusCanceled, paymentID, reason, now)
	})
}

// Compensate reverts a COMPLETED order whose fulfilment could not be stored.
func (s *OrderStore) Compensate(ctx context.Context, id int64) (*model.Order, error) {
	return s.transition(ctx, id, func(o *model.Order, now time.Time) error {
		return o.RevertCompletion(now)
	})
}

// BeginPayment claims a payable order for one gateway call by flagging it
// PaymentPending. The sweep leaves flagged orders alone, so a charge that
// lands after the TTL is still applied. A second claim fails with
// ErrPaymentOutcomeUnknown until the first call's outcome is applied.
func (s *OrderStore) BeginPayment(ctx context.Context, id int64) (*model.Order, error) {
	return s.transition(ctx, id, func(o *model.Order, now time.Time) error {
		if o.Status != model.OrderStatusCreated || o.Expired(now) {
			return domain.ErrInvalidStateTransition
		}
		if o.PaymentPending {
			// a previous charge may have gone through
			return domain.ErrPaymentOutcomeUnknown
		}
		o.PaymentPending = true
		o.UpdatedAt = now
		return nil
	})
}

// ClearPaymentPending releases a CREATED order after a gateway call that is
// known not to have charged it.
func (s *OrderStore) ClearPaymentPending(ctx context.Context, id int64) (*model.Order, error) {
	return s.transition(ctx, id, func(o *model.Order, now time.Time) error {
		if o.Status != model.OrderStatusCreated {
			return domain.ErrInvalidStateTransition
		}
		o.PaymentPending = false
		o.UpdatedAt = now
		return nil
	})
}

// MarkPaymentPending flags a CREATED order whose gateway outcome is unknown.
func (s *OrderStore) MarkPaymentPending(ctx context.Context, id int64) (*model.Order, error) {
	return s.transition(ctx, id, func(o *model.Order, now time.Time) error {
		if o.Status != model.OrderStatusCreated {
			return domain.ErrInvalidStateTransition
		}
		o.PaymentPending = true
		o.UpdatedAt = now
		return nil
	})
}

func (s *OrderStore) transition(ctx context.Context, id int64, apply func(*model.Order, time.Time) error) (*model.Order, error) {
	s.mu.Lock()
	ord, ok := s.coll.get(id)
	if !ok {
		s.mu.Unlock()
		return nil, domain.ErrNotFound
	}
	before := ord.Status
	if err := apply(&ord, s.now()); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	err := s.coll.replace(ctx, ord)
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("order %d: %w", id, err)
	}

	if ord.Status != before {
		logging.With(ctx, s.log).Info().Int64("order_id", id).
			Str("from", string(before)).Str("to", string(ord.Status)).
			Str("reason", string(ord.CancelReason)).Msg("order transitioned")
		metrics.IncOrder(string(ord.Status), string(ord.CancelReason))
		switch ord.Status {
		case model.OrderStatusCompleted:
			s.publish(ctx, model.EventOrderCompleted, &ord)
		case model.OrderStatusCanceled:
			s.publish(ctx, model.EventOrderCanceled, &ord)
		}
	}
	return &ord, nil
}

// SweepExpired cancels CREATED orders past their TTL and returns them.
// Orders awaiting payment reconciliation are left for the reconciler.
func (s *OrderStore) SweepExpired(ctx context.Context) ([]model.Order, error) {
	defer logging.TraceDuration(s.log, "OrderStore.SweepExpired")()

	s.mu.Lock()
	now := s.now()
	due := s.coll.list(func(o *model.Order) bool { return o.Expired(now) && !o.PaymentPending })
	for i := range due {
		if err := due[i].Transition(model.OrderStatusCanceled, "", model.CancelReasonExpired, now); err != nil {
			s.mu.Unlock()
			return nil, err
		}
	}
	err := s.coll.replace(ctx, due...)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	for i := range due {
		s.publish(ctx, model.EventOrderCanceled, &due[i])
	}
	if len(due) > 0 {
		s.log.Info().Int("count", len(due)).Msg("expired orders canceled")
	}
	metrics.AddSwept("order", string(model.CancelReasonExpired), len(due))
	return due, nil
}

func (s *OrderStore) publish(ctx context.Context, t model.EventType, o *model.Order) {
	data := map[string]string{
		"plan_id": strconv.FormatInt(o.PlanID, 10),
		"status":  string(o.Status),
		"amount":  strconv.FormatInt(o.Amount, 10),
	}
	if o.CancelReason != "" {
		data["reason"] = string(o.CancelReason)
	}
	if o.PaymentID != "" {
		data["payment_id"] = o.PaymentID
	}
	s.events.Publish(ctx, model.Event{Type: t, EntityID: o.ID, OccurredAt: o.UpdatedAt, Data: data})
}
