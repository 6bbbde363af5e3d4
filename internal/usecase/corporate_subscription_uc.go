// File: internal/usecase/corporate_subscription_uc.go
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

// CorporateSubscriptionStore owns company seat pools. Every seat count change
// happens under mu, so concurrent reservations never observe a stale count.
type CorporateSubscriptionStore struct {
	mu        sync.Mutex
	coll      *collection[model.CorporateSubscription]
	plans     repository.PlanCatalog
	companies repository.CompanyDirectory
	now       func() time.Time
	events    adapter.EventPublisher
	log       *zerolog.Logger

	neverActivated model.CorporateSubscriptionStatus
}

func NewCorporateSubscriptionStore(ctx context.Context, backend repository.PersistenceBackend, plans repository.PlanCatalog, companies repository.CompanyDirectory, cancelNeverActivated bool, opts ...Option) (*CorporateSubscriptionStore, error) {
	o := buildOptions(opts)
	s := &CorporateSubscriptionStore{
		coll: newCollection(repository.CollectionCorporateSubscriptions, backend, o.retry,
			func(r *model.CorporateSubscription) int64 { return r.ID },
			func(r *model.CorporateSubscription, id int64) { r.ID = id }),
		plans:          plans,
		companies:      companies,
		now:            o.now,
		events:         o.events,
		log:            o.component("CorporateSubscriptionStore"),
		neverActivated: model.CorporateStatusExpired,
	}
	if cancelNeverActivated {
		s.neverActivated = model.CorporateStatusCancelled
	}
	if err := s.coll.load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// CreateSubscription stores an INACTIVE pool of seatsTotal seats.
func (s *CorporateSubscriptionStore) CreateSubscription(ctx context.Context, companyID string, planID int64, seatsTotal int, amountPaid int64) (*model.CorporateSubscription, error) {
	return s.create(ctx, companyID, planID, seatsTotal, amountPaid, nil)
}

// CreateSubscriptionForOrder is CreateSubscription recording the paying order.
func (s *CorporateSubscriptionStore) CreateSubscriptionForOrder(ctx context.Context, companyID string, planID int64, seatsTotal int, amountPaid, orderID int64) (*model.CorporateSubscription, error) {
	return s.create(ctx, companyID, planID, seatsTotal, amountPaid, &orderID)
}

func (s *CorporateSubscriptionStore) create(ctx context.Context, companyID string, planID int64, seatsTotal int, amountPaid int64, orderID *int64) (*model.CorporateSubscription, error) {
	defer logging.TraceDuration(s.log, "CorporateSubscriptionStore.CreateSubscription")()

	plan, err := s.plans.FindByID(ctx, planID)
	if err != nil {
		return nil, err
	}
	ok, err := s.companies.Exists(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("company %q: %w", companyID, domain.ErrNotFound)
	}
	sub, err := model.NewCorporateSubscription(companyID, plan, seatsTotal, amountPaid, s.now())
	if err != nil {
		return nil, err
	}
	sub.OrderID = orderID

	s.mu.Lock()
	saved, err := s.coll.insert(ctx, *sub)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	logging.With(ctx, s.log).Info().Int64("subscription_id", saved.ID).Str("company_id", companyID).Int("seats", seatsTotal).Msg("corporate subscription created")
	metrics.IncProvisioned("corporate_subscription")
	s.publish(ctx, model.EventSubscriptionCreated, &saved)
	return &saved, nil
}

func (s *CorporateSubscriptionStore) ActivateSubscription(ctx context.Context, id int64) (*model.CorporateSubscription, error) {
	cur, err := s.GetSubscription(ctx, id)
	if err != nil {
		return nil, err
	}
	plan, err := s.plans.FindByID(ctx, cur.PlanID)
	if err != nil {
		return nil, err
	}
	updated, err := s.mutate(ctx, id, func(sub *model.CorporateSubscription, now time.Time) error {
		return sub.Activate(plan, now)
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, model.EventSubscriptionActivated, updated)
	return updated, nil
}

// AdjustSeats reserves (delta < 0) or releases (delta > 0) seats. Reserving
// from a pool that is no longer live fails with ErrInvalidStateTransition.
func (s *CorporateSubscriptionStore) AdjustSeats(ctx context.Context, id int64, delta int) (*model.CorporateSubscription, error) {
	updated, err := s.mutate(ctx, id, func(sub *model.CorporateSubscription, now time.Time) error {
		if delta < 0 && !sub.Live() {
			return domain.ErrInvalidStateTransition
		}
		return sub.AdjustSeats(delta, now)
	})
	if err != nil {
		return nil, err
	}
	metrics.AddSeatsInUse(-delta)
	return updated, nil
}

// reserveUnchecked takes back a seat released moments ago, regardless of the
// pool status. Only used to undo a RemoveMember that could not be stored.
func (s *CorporateSubscriptionStore) reserveUnchecked(ctx context.Context, id int64) (*model.CorporateSubscription, error) {
	updated, err := s.mutate(ctx, id, func(sub *model.CorporateSubscription, now time.Time) error {
		return sub.AdjustSeats(-1, now)
	})
	if err != nil {
		return nil, err
	}
	metrics.AddSeatsInUse(1)
	return updated, nil
}

func (s *CorporateSubscriptionStore) mutate(ctx context.Context, id int64, apply func(*model.CorporateSubscription, time.Time) error) (*model.CorporateSubscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.coll.get(id)
	if !ok {
		return nil, domain.ErrNotFound
	}
	if err := apply(&sub, s.now()); err != nil {
		return nil, err
	}
	if err := s.coll.replace(ctx, sub); err != nil {
		return nil, fmt.Errorf("corporate subscription %d: %w", id, err)
	}
	return &sub, nil
}

func (s *CorporateSubscriptionStore) GetSubscription(_ context.Context, id int64) (*model.CorporateSubscription, error) {
	s.mu.Lock()
	sub, ok := s.coll.get(id)
	s.mu.Unlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &sub, nil
}

func (s *CorporateSubscriptionStore) ListAll(_ context.Context) []model.CorporateSubscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.coll.list(nil)
}

// FindByOrder returns the subscription bought by orderID.
func (s *CorporateSubscriptionStore) FindByOrder(_ context.Context, orderID int64) (*model.CorporateSubscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	found := s.coll.list(func(sub *model.CorporateSubscription) bool {
		return sub.OrderID != nil && *sub.OrderID == orderID
	})
	if len(found) == 0 {
		return nil, domain.ErrNotFound
	}
	return &found[0], nil
}

// SweepExpired ends activated pools past expiry and applies the
// never-activated policy to INACTIVE pools past their deadline.
func (s *CorporateSubscriptionStore) SweepExpired(ctx context.Context) ([]model.CorporateSubscription, error) {
	defer logging.TraceDuration(s.log, "CorporateSubscriptionStore.SweepExpired")()

	s.mu.Lock()
	now := s.now()
	var due []model.CorporateSubscription
	for _, sub := range s.coll.list(nil) {
		target := sub.SweepTarget(now, s.neverActivated)
		if target == "" {
			continue
		}
		sub.Status = target
		sub.UpdatedAt = now
		due = append(due, sub)
	}
	err := s.coll.replace(ctx, due...)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	for i := range due {
		metrics.AddSwept("corporate_subscription", string(due[i].Status), 1)
		s.publish(ctx, model.EventSubscriptionExpired, &due[i])
	}
	if len(due) > 0 {
		s.log.Info().Int("count", len(due)).Msg("corporate subscriptions swept")
	}
	return due, nil
}

func (s *CorporateSubscriptionStore) publish(ctx context.Context, t model.EventType, sub *model.CorporateSubscription) {
	s.events.Publish(ctx, model.Event{
		Type:       t,
		EntityID:   sub.ID,
		OccurredAt: sub.UpdatedAt,
		Data: map[string]string{
			"company_id":      sub.CompanyID,
			"status":          string(sub.Status),
			"seats_total":     strconv.Itoa(sub.SeatsTotal),
			"seats_available": strconv.Itoa(sub.SeatsAvailable),
		},
	})
}
