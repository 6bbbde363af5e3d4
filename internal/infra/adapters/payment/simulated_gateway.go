// File: internal/infra/adapters/payment/simulated_gateway.go
package payment

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"course-membership/internal/domain"
	"course-membership/internal/domain/model"
	"course-membership/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*SimulatedGateway)(nil)

// Settings control the simulated processor.
type Settings struct {
	SuccessRate float64 // probability a reachable charge settles
	OutageRate  float64 // probability the processor is unreachable
	MinLatency  time.Duration
	MaxLatency  time.Duration
}

// SimulatedGateway stands in for a real processor. The outcome of a charge is
// decided and recorded before the simulated network delay, so a caller that
// gives up mid-call can still learn the outcome through LookupByOrder.
type SimulatedGateway struct {
	settings Settings
	now      func() time.Time

	mu      sync.Mutex
	rnd     *rand.Rand
	byOrder map[int64]*model.PaymentResult
}

type GatewayOption func(*SimulatedGateway)

// WithSeed makes the success and latency draws deterministic.
func WithSeed(seed int64) GatewayOption {
	return func(g *SimulatedGateway) { g.rnd = rand.New(rand.NewSource(seed)) }
}

func WithNow(now func() time.Time) GatewayOption {
	return func(g *SimulatedGateway) { g.now = now }
}

func NewSimulatedGateway(s Settings, opts ...GatewayOption) *SimulatedGateway {
	if s.MaxLatency < s.MinLatency {
		s.MaxLatency = s.MinLatency
	}
	g := &SimulatedGateway{
		settings: s,
		now:      time.Now,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
		byOrder:  make(map[int64]*model.PaymentResult),
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

func (g *SimulatedGateway) Name() string { return "simulated" }

func (g *SimulatedGateway) CreatePayment(ctx context.Context, req model.PaymentRequest) (*model.PaymentResult, error) {
	if req.OrderID <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	if req.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	g.mu.Lock()
	outage := g.rnd.Float64() < g.settings.OutageRate
	settled := g.rnd.Float64() < g.settings.SuccessRate
	delay := g.settings.MinLatency
	if spread := g.settings.MaxLatency - g.settings.MinLatency; spread > 0 {
		delay += time.Duration(g.rnd.Int63n(int64(spread)))
	}
	var res *model.PaymentResult
	if !outage {
		status := model.PaymentStatusFailed
		if settled {
			status = model.PaymentStatusSuccessful
		}
		res = &model.PaymentResult{
			PaymentID:   "pay_" + uuid.NewString(),
			OrderID:     req.OrderID,
			Amount:      req.Amount,
			Status:      status,
			Provider:    g.Name(),
			Description: req.Description,
			ProcessedAt: g.now(),
		}
		g.byOrder[req.OrderID] = res
	}
	g.mu.Unlock()

	if err := sleep(ctx, delay); err != nil {
		return nil, err
	}
	if outage {
		return nil, fmt.Errorf("%w: simulated outage", domain.ErrGatewayUnavailable)
	}
	out := *res
	return &out, nil
}

func (g *SimulatedGateway) LookupByOrder(_ context.Context, orderID int64) (*model.PaymentResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	res, ok := g.byOrder[orderID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := *res
	return &out, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
