// File: internal/usecase/sweep_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"course-membership/internal/domain/model"
	"course-membership/internal/domain/ports/adapter"
	"course-membership/internal/domain/ports/repository"
	"course-membership/internal/infra/metrics"
)

// SweepReport summarises one SweepAll pass.
type SweepReport struct {
	Orders        int         `json:"orders"`
	Memberships   int         `json:"memberships"`
	Subscriptions int         `json:"subscriptions"`
	Members       int         `json:"members"`
	Violations    []Violation `json:"violations,omitempty"`
}

// Violation is one failed consistency rule.
type Violation struct {
	Rule     string `json:"rule"`
	EntityID int64  `json:"entity_id"`
	Detail   string `json:"detail"`
}

const (
	RuleSeatSum           = "seat_sum"
	RuleSeatsMatchMembers = "seats_match_members"
	RuleOrderFulfilled    = "completed_order_fulfilled"
	RuleExpiryDerived     = "membership_expiry_derived"
)

// Sweeper applies time-based transitions across all stores.
type Sweeper struct {
	orders      *OrderStore
	memberships *MembershipStore
	subs        *CorporateSubscriptionStore
	members     *CorporateMemberStore
	plans       repository.PlanCatalog
	now         func() time.Time
	events      adapter.EventPublisher
	log         *zerolog.Logger
}

func NewSweeper(orders *OrderStore, memberships *MembershipStore, subs *CorporateSubscriptionStore, members *CorporateMemberStore, plans repository.PlanCatalog, opts ...Option) *Sweeper {
	o := buildOptions(opts)
	return &Sweeper{
		orders:      orders,
		memberships: memberships,
		subs:        subs,
		members:     members,
		plans:       plans,
		now:         o.now,
		events:      o.events,
		log:         o.component("Sweeper"),
	}
}

// SweepAll runs the sweeps parents first, so members see the pool status
// written in the same pass, then checks invariants. A failing sweep does not
// stop the ones after it.
func (s *Sweeper) SweepAll(ctx context.Context) (*SweepReport, error) {
	rep := &SweepReport{}
	var errs []error

	if got, err := s.orders.SweepExpired(ctx); err != nil {
		errs = append(errs, fmt.Errorf("orders: %w", err))
	} else {
		rep.Orders = len(got)
	}
	if got, err := s.memberships.SweepExpired(ctx); err != nil {
		errs = append(errs, fmt.Errorf("memberships: %w", err))
	} else {
		rep.Memberships = len(got)
	}
	if got, err := s.subs.SweepExpired(ctx); err != nil {
		errs = append(errs, fmt.Errorf("corporate subscriptions: %w", err))
	} else {
		rep.Subscriptions = len(got)
	}
	if got, err := s.members.SweepExpired(ctx); err != nil {
		errs = append(errs, fmt.Errorf("corporate members: %w", err))
	} else {
		rep.Members = len(got)
	}

	rep.Violations = s.CheckInvariants(ctx)

	s.log.Debug().
		Int("orders", rep.Orders).
		Int("memberships", rep.Memberships).
		Int("subscriptions", rep.Subscriptions).
		Int("members", rep.Members).
		Int("violations", len(rep.Violations)).
		Msg("sweep finished")
	return rep, errors.Join(errs...)
}

// CheckInvariants reports every record breaking a consistency rule and
// publishes an alert for each.
func (s *Sweeper) CheckInvariants(ctx context.Context) []Violation {
	var out []Violation

	snap := s.members.Snapshot(ctx)
	for _, sub := range snap.Subscriptions {
		if !sub.SeatsBalanced() {
			out = append(out, Violation{RuleSeatSum, sub.ID,
				fmt.Sprintf("used=%d available=%d total=%d", sub.SeatsUsed, sub.SeatsAvailable, sub.SeatsTotal)})
		}
		if n := snap.MembersBySub[sub.ID]; n != sub.SeatsUsed {
			out = append(out, Violation{RuleSeatsMatchMembers, sub.ID,
				fmt.Sprintf("seats_used=%d members=%d", sub.SeatsUsed, n)})
		}
	}

	for _, o := range s.orders.ListOrders(ctx, OrderFilter{Status: model.OrderStatusCompleted}) {
		if !s.fulfilled(ctx, &o) {
			out = append(out, Violation{RuleOrderFulfilled, o.ID, "no membership, subscription or seat references this order"})
		}
	}

	for _, m := range s.memberships.ListAll(ctx) {
		if m.Status != model.MembershipStatusActivated {
			continue
		}
		plan, err := s.plans.FindByID(ctx, m.PlanID)
		if err != nil {
			continue
		}
		if m.ActivationDate == nil || m.ExpiryDate == nil || !m.ExpiryDate.Equal(m.ActivationDate.Add(plan.Duration())) {
			out = append(out, Violation{RuleExpiryDerived, m.ID, "expiry_date is not activation_date + plan duration"})
		}
	}

	for _, v := range out {
		metrics.IncInvariantViolation(v.Rule)
		s.log.Error().Str("rule", v.Rule).Int64("entity_id", v.EntityID).Str("detail", v.Detail).Msg("invariant violated")
		s.events.Publish(ctx, model.Event{
			Type:       model.EventInvariantViolated,
			EntityID:   v.EntityID,
			OccurredAt: s.now(),
			Data:       map[string]string{"rule": v.Rule, "detail": v.Detail, "entity_id": strconv.FormatInt(v.EntityID, 10)},
		})
	}
	return out
}

func (s *Sweeper) fulfilled(ctx context.Context, o *model.Order) bool {
	if o.SubscriptionID != nil {
		// a paid seat may be removed later; only a seat that was never
		// created counts, and that case is compensated at checkout
		return true
	}
	if _, err := s.memberships.FindByOrder(ctx, o.ID); err == nil {
		return true
	}
	_, err := s.subs.FindByOrder(ctx, o.ID)
	return err == nil
}
