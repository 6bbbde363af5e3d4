// File: internal/usecase/corporate_member_uc.go
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

// CorporateMemberStore assigns seats drawn from a CorporateSubscriptionStore.
// Lock order is always member store, then subscription store.
type CorporateMemberStore struct {
	mu     sync.Mutex
	coll   *collection[model.CorporateMember]
	subs   *CorporateSubscriptionStore
	plans  repository.PlanCatalog
	now    func() time.Time
	events adapter.EventPublisher
	log    *zerolog.Logger
}

func NewCorporateMemberStore(ctx context.Context, backend repository.PersistenceBackend, subs *CorporateSubscriptionStore, plans repository.PlanCatalog, opts ...Option) (*CorporateMemberStore, error) {
	o := buildOptions(opts)
	s := &CorporateMemberStore{
		coll: newCollection(repository.CollectionCorporateMembers, backend, o.retry,
			func(r *model.CorporateMember) int64 { return r.ID },
			func(r *model.CorporateMember, id int64) { r.ID = id }),
		subs:   subs,
		plans:  plans,
		now:    o.now,
		events: o.events,
		log:    o.component("CorporateMemberStore"),
	}
	if err := s.coll.load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// AssignSeat reserves one seat and creates an inactive member. If the member
// cannot be stored the seat is released again.
func (s *CorporateMemberStore) AssignSeat(ctx context.Context, subscriptionID int64, userRef string) (*model.CorporateMember, error) {
	return s.assign(ctx, subscriptionID, userRef, nil)
}

// AssignSeatForOrder is AssignSeat recording the order that paid for the seat.
func (s *CorporateMemberStore) AssignSeatForOrder(ctx context.Context, subscriptionID int64, userRef string, orderID int64) (*model.CorporateMember, error) {
	return s.assign(ctx, subscriptionID, userRef, &orderID)
}

func (s *CorporateMemberStore) assign(ctx context.Context, subscriptionID int64, userRef string, orderID *int64) (*model.CorporateMember, error) {
	defer logging.TraceDuration(s.log, "CorporateMemberStore.AssignSeat")()

	if userRef == "" {
		return nil, domain.ErrInvalidArgument
	}
	sub, err := s.subs.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	plan, err := s.plans.FindByID(ctx, sub.PlanID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sub, err = s.subs.AdjustSeats(ctx, subscriptionID, -1)
	if err != nil {
		return nil, err
	}
	member, err := model.NewCorporateMember(sub, plan, userRef, s.now())
	if err == nil {
		member.OrderID = orderID
		var saved model.CorporateMember
		saved, err = s.coll.insert(ctx, *member)
		member = &saved
	}
	if err != nil {
		if _, rerr := s.subs.AdjustSeats(ctx, subscriptionID, +1); rerr != nil {
			s.log.Error().Err(rerr).Int64("subscription_id", subscriptionID).Msg("seat release after failed assignment")
			return nil, fmt.Errorf("%w: seat release: %v (cause: %v)", domain.ErrCompensationFailed, rerr, err)
		}
		return nil, err
	}

	logging.With(ctx, s.log).Info().Int64("member_id", member.ID).Int64("subscription_id", subscriptionID).Int("seats_available", sub.SeatsAvailable).Msg("seat assigned")
	metrics.IncProvisioned("corporate_member")
	s.publish(ctx, model.EventMemberAssigned, member)
	return member, nil
}

// ActivateMemberCard activates an inactive card or re-activates an expired one.
func (s *CorporateMemberStore) ActivateMemberCard(ctx context.Context, id int64) (*model.CorporateMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.coll.get(id)
	if !ok {
		return nil, domain.ErrNotFound
	}
	sub, err := s.subs.GetSubscription(ctx, m.SubscriptionID)
	if err != nil {
		return nil, err
	}
	plan, err := s.plans.FindByID(ctx, sub.PlanID)
	if err != nil {
		return nil, err
	}
	if err := m.Activate(sub, plan, s.now()); err != nil {
		return nil, err
	}
	if err := s.coll.replace(ctx, m); err != nil {
		return nil, fmt.Errorf("corporate member %d: %w", id, err)
	}
	s.publish(ctx, model.EventMemberActivated, &m)
	return &m, nil
}

// RemoveMember releases the member's seat and deletes the record. If the
// delete cannot be stored the seat is reserved again.
func (s *CorporateMemberStore) RemoveMember(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.coll.get(id)
	if !ok {
		return false, domain.ErrNotFound
	}
	if _, err := s.subs.AdjustSeats(ctx, m.SubscriptionID, +1); err != nil {
		return false, err
	}
	if err := s.coll.remove(ctx, id); err != nil {
		if _, rerr := s.subs.reserveUnchecked(ctx, m.SubscriptionID); rerr != nil {
			s.log.Error().Err(rerr).Int64("subscription_id", m.SubscriptionID).Msg("seat re-reservation after failed removal")
			return false, fmt.Errorf("%w: seat re-reservation: %v (cause: %v)", domain.ErrCompensationFailed, rerr, err)
		}
		return false, err
	}

	logging.With(ctx, s.log).Info().Int64("member_id", id).Int64("subscription_id", m.SubscriptionID).Msg("member removed")
	m.UpdatedAt = s.now()
	s.publish(ctx, model.EventMemberRemoved, &m)
	return true, nil
}

func (s *CorporateMemberStore) GetMember(_ context.Context, id int64) (*model.CorporateMember, error) {
	s.mu.Lock()
	m, ok := s.coll.get(id)
	s.mu.Unlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &m, nil
}

func (s *CorporateMemberStore) ListMembers(_ context.Context, subscriptionID int64) []model.CorporateMember {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.coll.list(func(m *model.CorporateMember) bool { return m.SubscriptionID == subscriptionID })
}

// FindByOrder returns the member whose seat was paid by orderID.
func (s *CorporateMemberStore) FindByOrder(_ context.Context, orderID int64) (*model.CorporateMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	found := s.coll.list(func(m *model.CorporateMember) bool {
		return m.OrderID != nil && *m.OrderID == orderID
	})
	if len(found) == 0 {
		return nil, domain.ErrNotFound
	}
	return &found[0], nil
}

// SeatSnapshot is a consistent view of pools and the members holding seats.
type SeatSnapshot struct {
	Subscriptions []model.CorporateSubscription
	MembersBySub  map[int64]int
}

// Snapshot reads both stores while no seat assignment is in flight.
func (s *CorporateMemberStore) Snapshot(ctx context.Context) SeatSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := SeatSnapshot{
		Subscriptions: s.subs.ListAll(ctx),
		MembersBySub:  make(map[int64]int),
	}
	for _, m := range s.coll.list(nil) {
		snap.MembersBySub[m.SubscriptionID]++
	}
	return snap
}

// SweepExpired expires cards past their end date, inactive cards past their
// deadline, and every card of a pool that is no longer live. Expired cards
// keep their seat until removed.
func (s *CorporateMemberStore) SweepExpired(ctx context.Context) ([]model.CorporateMember, error) {
	defer logging.TraceDuration(s.log, "CorporateMemberStore.SweepExpired")()

	s.mu.Lock()
	now := s.now()
	live := make(map[int64]bool)
	for _, sub := range s.subs.ListAll(ctx) {
		live[sub.ID] = sub.Live()
	}
	var due []model.CorporateMember
	for _, m := range s.coll.list(nil) {
		if !m.Due(now, live[m.SubscriptionID]) {
			continue
		}
		m.CardStatus = model.CardStatusExpired
		m.UpdatedAt = now
		due = append(due, m)
	}
	err := s.coll.replace(ctx, due...)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	for i := range due {
		s.publish(ctx, model.EventMemberExpired, &due[i])
	}
	metrics.AddSwept("corporate_member", string(model.CardStatusExpired), len(due))
	if len(due) > 0 {
		s.log.Info().Int("count", len(due)).Msg("member cards expired")
	}
	return due, nil
}

func (s *CorporateMemberStore) publish(ctx context.Context, t model.EventType, m *model.CorporateMember) {
	s.events.Publish(ctx, model.Event{
		Type:       t,
		EntityID:   m.ID,
		OccurredAt: m.UpdatedAt,
		Data: map[string]string{
			"subscription_id": strconv.FormatInt(m.SubscriptionID, 10),
			"user_ref":        m.UserRef,
			"card_status":     string(m.CardStatus),
		},
	})
}
