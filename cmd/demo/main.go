package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"course-membership/internal/config"
	"course-membership/internal/domain/model"
	"course-membership/internal/infra/adapters/payment"
	"course-membership/internal/infra/db/memory"
	"course-membership/internal/infra/events"
	"course-membership/internal/infra/logging"
	"course-membership/internal/usecase"
)

// clock is the demo's controllable time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type engine struct {
	clk         *clock
	orders      *usecase.OrderStore
	memberships *usecase.MembershipStore
	subs        *usecase.CorporateSubscriptionStore
	members     *usecase.CorporateMemberStore
	checkout    *usecase.CheckoutUseCase
	sweeper     *usecase.Sweeper
}

func newEngine(ctx context.Context, logger *zerolog.Logger) (*engine, error) {
	clk := &clock{now: time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)}
	plans := memory.NewPlanCatalog([]model.Plan{
		{ID: 1, Name: "Annual", Kind: model.PlanKindIndividual, Price: 3000, DurationDays: 365, ActivationWindowDays: 30},
		{ID: 2, Name: "Team", Kind: model.PlanKindCorporate, Price: 2500, DurationDays: 365, ActivationWindowDays: 30, MaxSeats: 50},
	})
	companies := memory.NewCompanyDirectory([]model.Company{{ID: "acme", Name: "Acme Corp"}})
	backend := memory.NewBackend()

	bus := events.NewBus(nil, *logger)
	bus.Subscribe("stdout", nil, func(_ context.Context, ev model.Event) error {
		fmt.Printf("    event %-28s entity=%d\n", ev.Type, ev.EntityID)
		return nil
	})
	opts := []usecase.Option{usecase.WithClock(clk.Now), usecase.WithLogger(logger), usecase.WithPublisher(bus)}

	e := &engine{clk: clk}
	var err error
	if e.orders, err = usecase.NewOrderStore(ctx, backend, plans, 0, opts...); err != nil {
		return nil, err
	}
	if e.memberships, err = usecase.NewMembershipStore(ctx, backend, plans, false, opts...); err != nil {
		return nil, err
	}
	if e.subs, err = usecase.NewCorporateSubscriptionStore(ctx, backend, plans, companies, false, opts...); err != nil {
		return nil, err
	}
	if e.members, err = usecase.NewCorporateMemberStore(ctx, backend, e.subs, plans, opts...); err != nil {
		return nil, err
	}
	gw := payment.NewSimulatedGateway(payment.Settings{SuccessRate: 1}, payment.WithNow(clk.Now))
	e.checkout = usecase.NewCheckoutUseCase(e.orders, e.memberships, e.subs, e.members, plans, gw, time.Second, opts...)
	e.sweeper = usecase.NewSweeper(e.orders, e.memberships, e.subs, e.members, plans, opts...)
	return e, nil
}

func main() {
	verbose := flag.Bool("v", false, "print engine logs")
	flag.Parse()

	logger := logging.Nop()
	if *verbose {
		logger = logging.NewWithWriter(config.LogConfig{Level: "debug", Format: "console"}, true, os.Stderr)
	}
	ctx := context.Background()

	scenarios := []struct {
		name string
		run  func(context.Context, *engine) error
	}{
		{"A: order -> completion -> membership", scenarioOrderToMembership},
		{"B: corporate seat pool exhaustion", scenarioSeatPool},
		{"C: activation deadline and sweep", scenarioDeadline},
	}
	failed := false
	for _, sc := range scenarios {
		fmt.Printf("== Scenario %s\n", sc.name)
		e, err := newEngine(ctx, logger)
		if err != nil {
			log.Fatalf("engine: %v", err)
		}
		if err := sc.run(ctx, e); err != nil {
			failed = true
			fmt.Printf("   FAILED: %v\n", err)
			continue
		}
		if v := e.sweeper.CheckInvariants(ctx); len(v) > 0 {
			failed = true
			fmt.Printf("   invariant violations: %+v\n", v)
			continue
		}
		fmt.Println("   ok")
	}
	if failed {
		os.Exit(1)
	}
}

var errUnexpected = errors.New("unexpected result")
