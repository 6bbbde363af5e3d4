// File: internal/usecase/membership_uc.go
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

// MembershipStore owns individual memberships.
type MembershipStore struct {
	mu     sync.Mutex
	coll   *collection[model.Membership]
	plans  repository.PlanCatalog
	now    func() time.Time
	events adapter.EventPublisher
	log    *zerolog.Logger

	// status given to PURCHASED memberships that miss their deadline
	neverActivated model.MembershipStatus
}

func NewMembershipStore(ctx context.Context, backend repository.PersistenceBackend, plans repository.PlanCatalog, cancelNeverActivated bool, opts ...Option) (*MembershipStore, error) {
	o := buildOptions(opts)
	s := &MembershipStore{
		coll: newCollection(repository.CollectionMemberships, backend, o.retry,
			func(r *model.Membership) int64 { return r.ID },
			func(r *model.Membership, id int64) { r.ID = id }),
		plans:          plans,
		now:            o.now,
		events:         o.events,
		log:            o.component("MembershipStore"),
		neverActivated: model.MembershipStatusExpired,
	}
	if cancelNeverActivated {
		s.neverActivated = model.MembershipStatusCancelled
	}
	if err := s.coll.load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// CreateMembership stores a PURCHASED membership for a completed order.
func (s *MembershipStore) CreateMembership(ctx context.Context, userRef string, planID, orderID, amountPaid int64) (*model.Membership, error) {
	defer logging.TraceDuration(s.log, "MembershipStore.CreateMembership")()

	plan, err := s.plans.FindByID(ctx, planID)
	if err != nil {
		return nil, err
	}
	m, err := model.NewMembership(userRef, plan, orderID, amountPaid, s.now())
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	saved, err := s.coll.insert(ctx, *m)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	logging.With(ctx, s.log).Info().Int64("membership_id", saved.ID).Int64("order_id", orderID).Msg("membership created")
	metrics.IncProvisioned("membership")
	s.publish(ctx, model.EventMembershipCreated, &saved)
	return &saved, nil
}

// ActivateMembership moves PURCHASED -> ACTIVATED before the deadline.
func (s *MembershipStore) ActivateMembership(ctx context.Context, id int64) (*model.Membership, error) {
	s.mu.Lock()
	m, ok := s.coll.get(id)
	s.mu.Unlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	plan, err := s.plans.FindByID(ctx, m.PlanID)
	if err != nil {
		return nil, err
	}

	updated, err := s.mutate(ctx, id, func(m *model.Membership, now time.Time) error {
		return m.Activate(plan, now)
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, model.EventMembershipActivated, updated)
	return updated, nil
}

// CancelMembership cancels a membership that was never activated.
func (s *MembershipStore) CancelMembership(ctx context.Context, id int64) (*model.Membership, error) {
	updated, err := s.mutate(ctx, id, func(m *model.Membership, now time.Time) error {
		return m.Cancel(now)
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, model.EventMembershipCancelled, updated)
	return updated, nil
}

// mutate re-reads the record under the lock so concurrent callers serialize
// on the current state.
func (s *MembershipStore) mutate(ctx context.Context, id int64, apply func(*model.Membership, time.Time) error) (*model.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.coll.get(id)
	if !ok {
		return nil, domain.ErrNotFound
	}
	if err := apply(&m, s.now()); err != nil {
		return nil, err
	}
	if err := s.coll.replace(ctx, m); err != nil {
		return nil, fmt.Errorf("membership %d: %w", id, err)
	}
	return &m, nil
}

func (s *MembershipStore) GetMembership(_ context.Context, id int64) (*model.Membership, error) {
	s.mu.Lock()
	m, ok := s.coll.get(id)
	s.mu.Unlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &m, nil
}

func (s *MembershipStore) ListByUser(_ context.Context, userRef string) []model.Membership {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.coll.list(func(m *model.Membership) bool { return m.UserRef == userRef })
}

// FindByOrder returns the membership fulfilling orderID.
func (s *MembershipStore) FindByOrder(_ context.Context, orderID int64) (*model.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	found := s.coll.list(func(m *model.Membership) bool { return m.OrderID == orderID })
	if len(found) == 0 {
		return nil, domain.ErrNotFound
	}
	return &found[0], nil
}

func (s *MembershipStore) ListAll(_ context.Context) []model.Membership {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.coll.list(nil)
}

// SweepExpired expires activated memberships past expiry and applies the
// never-activated policy to PURCHASED memberships past their deadline.
func (s *MembershipStore) SweepExpired(ctx context.Context) ([]model.Membership, error) {
	defer logging.TraceDuration(s.log, "MembershipStore.SweepExpired")()

	s.mu.Lock()
	now := s.now()
	var due []model.Membership
	for _, m := range s.coll.list(nil) {
		target := m.SweepTarget(now, s.neverActivated)
		if target == "" {
			continue
		}
		m.Status = target
		m.UpdatedAt = now
		due = append(due, m)
	}
	err := s.coll.replace(ctx, due...)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	for i := range due {
		t := model.EventMembershipExpired
		if due[i].Status == model.MembershipStatusCancelled {
			t = model.EventMembershipCancelled
		}
		metrics.AddSwept("membership", string(due[i].Status), 1)
		s.publish(ctx, t, &due[i])
	}
	if len(due) > 0 {
		s.log.Info().Int("count", len(due)).Msg("memberships swept")
	}
	return due, nil
}

func (s *MembershipStore) publish(ctx context.Context, t model.EventType, m *model.Membership) {
	s.events.Publish(ctx, model.Event{
		Type:       t,
		EntityID:   m.ID,
		OccurredAt: m.UpdatedAt,
		Data: map[string]string{
			"user_ref": m.UserRef,
			"order_id": strconv.FormatInt(m.OrderID, 10),
			"status":   string(m.Status),
		},
	})
}
