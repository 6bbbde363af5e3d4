//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"course-membership/internal/domain"
	"course-membership/internal/domain/model"
	"course-membership/internal/domain/ports/adapter"
	"course-membership/internal/domain/ports/repository"
	"course-membership/internal/usecase"
)

// -----------------------------
// Clock
// -----------------------------

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// =============================
// Repositories
// =============================

// ---- MockBackend ----

var errBackendDown = errors.New("backend down")

type MockBackend struct {
	mu    sync.Mutex
	docs  map[string][]byte
	saves map[string]int

	// FailSaves makes the next N Save calls for a collection fail.
	FailSaves map[string]int
	SaveFunc  func(ctx context.Context, collection string, doc []byte) error
	LoadFunc  func(ctx context.Context, collection string) ([]byte, error)
}

var _ repository.PersistenceBackend = (*MockBackend)(nil)

func NewMockBackend() *MockBackend {
	return &MockBackend{
		docs:      make(map[string][]byte),
		saves:     make(map[string]int),
		FailSaves: make(map[string]int),
	}
}

func (m *MockBackend) Name() string { return "mock" }

func (m *MockBackend) Load(ctx context.Context, collection string) ([]byte, error) {
	if m.LoadFunc != nil {
		return m.LoadFunc(ctx, collection)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.docs[collection]...), nil
}

func (m *MockBackend) Save(ctx context.Context, collection string, doc []byte) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, collection, doc)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSaves[collection] > 0 {
		m.FailSaves[collection]--
		return errBackendDown
	}
	m.saves[collection]++
	m.docs[collection] = append([]byte(nil), doc...)
	return nil
}

// FailNext makes the next n saves of collection fail.
func (m *MockBackend) FailNext(collection string, n int) {
	m.mu.Lock()
	m.FailSaves[collection] = n
	m.mu.Unlock()
}

func (m *MockBackend) Saves(collection string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves[collection]
}

// ---- MockPlanCatalog ----

type MockPlanCatalog struct {
	mu    sync.RWMutex
	plans map[int64]*model.Plan

	FindByIDFunc func(ctx context.Context, id int64) (*model.Plan, error)
}

var _ repository.PlanCatalog = (*MockPlanCatalog)(nil)

func NewMockPlanCatalog(plans ...*model.Plan) *MockPlanCatalog {
	m := &MockPlanCatalog{plans: make(map[int64]*model.Plan)}
	for _, p := range plans {
		m.plans[p.ID] = p
	}
	return m
}

func (m *MockPlanCatalog) FindByID(ctx context.Context, id int64) (*model.Plan, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.plans[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MockPlanCatalog) ListAll(ctx context.Context) ([]*model.Plan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*model.Plan, 0, len(m.plans))
	for _, p := range m.plans {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

// ---- MockCompanyDirectory ----

type MockCompanyDirectory struct {
	known map[string]bool
}

func NewMockCompanyDirectory(ids ...string) *MockCompanyDirectory {
	m := &MockCompanyDirectory{known: make(map[string]bool)}
	for _, id := range ids {
		m.known[id] = true
	}
	return m
}

func (m *MockCompanyDirectory) Exists(ctx context.Context, companyID string) (bool, error) {
	return m.known[companyID], nil
}

// =============================
// Adapters
// =============================

// ---- MockPaymentGateway ----

type MockPaymentGateway struct {
	mu      sync.Mutex
	results map[int64]*model.PaymentResult
	Calls   int

	CreatePaymentFunc func(ctx context.Context, req model.PaymentRequest) (*model.PaymentResult, error)
	LookupByOrderFunc func(ctx context.Context, orderID int64) (*model.PaymentResult, error)
}

var _ adapter.PaymentGateway = (*MockPaymentGateway)(nil)

func NewMockPaymentGateway() *MockPaymentGateway {
	return &MockPaymentGateway{results: make(map[int64]*model.PaymentResult)}
}

func (m *MockPaymentGateway) Name() string { return "mock" }

func (m *MockPaymentGateway) CreatePayment(ctx context.Context, req model.PaymentRequest) (*model.PaymentResult, error) {
	m.mu.Lock()
	m.Calls++
	m.mu.Unlock()
	if m.CreatePaymentFunc != nil {
		return m.CreatePaymentFunc(ctx, req)
	}
	res := &model.PaymentResult{
		PaymentID:   "pay_" + uuid.NewString(),
		OrderID:     req.OrderID,
		Amount:      req.Amount,
		Status:      model.PaymentStatusSuccessful,
		Provider:    "mock",
		ProcessedAt: time.Now(),
	}
	m.Record(res)
	return res, nil
}

func (m *MockPaymentGateway) LookupByOrder(ctx context.Context, orderID int64) (*model.PaymentResult, error) {
	if m.LookupByOrderFunc != nil {
		return m.LookupByOrderFunc(ctx, orderID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.results[orderID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return res, nil
}

// Record stores an outcome as the processor would before answering.
func (m *MockPaymentGateway) Record(res *model.PaymentResult) {
	m.mu.Lock()
	m.results[res.OrderID] = res
	m.mu.Unlock()
}

// ---- RecordingPublisher ----

type RecordingPublisher struct {
	mu     sync.Mutex
	Events []model.Event
}

var _ adapter.EventPublisher = (*RecordingPublisher)(nil)

func (p *RecordingPublisher) Publish(ctx context.Context, ev model.Event) {
	p.mu.Lock()
	p.Events = append(p.Events, ev)
	p.mu.Unlock()
}

func (p *RecordingPublisher) Count(t model.EventType) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, ev := range p.Events {
		if ev.Type == t {
			n++
		}
	}
	return n
}

// =============================
// Engine wiring
// =============================

const (
	planBasic     int64 = 1
	planCorporate int64 = 2
	companyAcme         = "acme"
)

func testPlans() *MockPlanCatalog {
	return NewMockPlanCatalog(
		&model.Plan{ID: planBasic, Name: "Basic", Kind: model.PlanKindIndividual, Price: 3000, DurationDays: 30, ActivationWindowDays: 14},
		&model.Plan{ID: planCorporate, Name: "Team", Kind: model.PlanKindCorporate, Price: 2000, DurationDays: 90, ActivationWindowDays: 7, MaxSeats: 50},
	)
}

type testEngine struct {
	backend     *MockBackend
	plans       *MockPlanCatalog
	companies   *MockCompanyDirectory
	gateway     *MockPaymentGateway
	events      *RecordingPublisher
	clock       *testClock
	orders      *usecase.OrderStore
	memberships *usecase.MembershipStore
	subs        *usecase.CorporateSubscriptionStore
	members     *usecase.CorporateMemberStore
	checkout    *usecase.CheckoutUseCase
	sweeper     *usecase.Sweeper
}

type engineConfig struct {
	backend        *MockBackend
	cancelNeverAct bool
	clock          *testClock
}

func newTestEngine(t *testing.T, cfgs ...func(*engineConfig)) *testEngine {
	t.Helper()
	cfg := engineConfig{backend: NewMockBackend(), clock: newTestClock()}
	for _, fn := range cfgs {
		fn(&cfg)
	}

	e := &testEngine{
		backend:   cfg.backend,
		plans:     testPlans(),
		companies: NewMockCompanyDirectory(companyAcme),
		gateway:   NewMockPaymentGateway(),
		events:    &RecordingPublisher{},
		clock:     cfg.clock,
	}
	opts := []usecase.Option{
		usecase.WithClock(e.clock.Now),
		usecase.WithRetryPolicy(usecase.RetryPolicy{Attempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}),
		usecase.WithPublisher(e.events),
		usecase.WithLogger(newTestLogger()),
	}
	ctx := context.Background()

	var err error
	if e.orders, err = usecase.NewOrderStore(ctx, e.backend, e.plans, 15*time.Minute, opts...); err != nil {
		t.Fatalf("order store: %v", err)
	}
	if e.memberships, err = usecase.NewMembershipStore(ctx, e.backend, e.plans, cfg.cancelNeverAct, opts...); err != nil {
		t.Fatalf("membership store: %v", err)
	}
	if e.subs, err = usecase.NewCorporateSubscriptionStore(ctx, e.backend, e.plans, e.companies, cfg.cancelNeverAct, opts...); err != nil {
		t.Fatalf("subscription store: %v", err)
	}
	if e.members, err = usecase.NewCorporateMemberStore(ctx, e.backend, e.subs, e.plans, opts...); err != nil {
		t.Fatalf("member store: %v", err)
	}
	e.checkout = usecase.NewCheckoutUseCase(e.orders, e.memberships, e.subs, e.members, e.plans, e.gateway, time.Second, opts...)
	e.sweeper = usecase.NewSweeper(e.orders, e.memberships, e.subs, e.members, e.plans, opts...)
	return e
}

func withBackend(b *MockBackend) func(*engineConfig) {
	return func(c *engineConfig) { c.backend = b }
}

func withCancelPolicy() func(*engineConfig) {
	return func(c *engineConfig) { c.cancelNeverAct = true }
}

var guest = model.Buyer{GuestEmail: "Ada@Example.com", GuestName: "Ada"}
