//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"course-membership/internal/domain"
	"course-membership/internal/domain/model"
	"course-membership/internal/usecase"
)

func TestOrderStore_CreateOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("should create a CREATED order with a TTL", func(t *testing.T) {
		e := newTestEngine(t)

		ord, err := e.orders.CreateOrder(ctx, planBasic, guest, 1, 3000)

		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if ord.ID != 1 {
			t.Errorf("expected first id 1, got %d", ord.ID)
		}
		if ord.Status != model.OrderStatusCreated {
			t.Errorf("expected CREATED, got %s", ord.Status)
		}
		if want := e.clock.Now().Add(15 * time.Minute); !ord.ExpiresAt.Equal(want) {
			t.Errorf("expected expires_at %s, got %s", want, ord.ExpiresAt)
		}
		if e.events.Count(model.EventOrderCreated) != 1 {
			t.Error("expected an order.created event")
		}
	})

	t.Run("should reject amounts that do not match the plan", func(t *testing.T) {
		e := newTestEngine(t)
		for _, amount := range []int64{0, -5, 2999, 6000} {
			if _, err := e.orders.CreateOrder(ctx, planBasic, guest, 1, amount); !errors.Is(err, domain.ErrInvalidAmount) {
				t.Errorf("amount %d: expected ErrInvalidAmount, got %v", amount, err)
			}
		}
		if got := len(e.orders.ListOrders(ctx, usecase.OrderFilter{})); got != 0 {
			t.Errorf("expected no stored orders, got %d", got)
		}
	})

	t.Run("corporate orders are priced per seat", func(t *testing.T) {
		e := newTestEngine(t)
		buyer := model.Buyer{CompanyID: companyAcme, UserID: "hr-1"}
		ord, err := e.orders.CreateOrder(ctx, planCorporate, buyer, 5, 10000)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if ord.Quantity != 5 {
			t.Errorf("expected quantity 5, got %d", ord.Quantity)
		}
	})

	t.Run("should reject buyers that cannot receive the purchase", func(t *testing.T) {
		e := newTestEngine(t)
		if _, err := e.orders.CreateOrder(ctx, planBasic, model.Buyer{CompanyID: companyAcme}, 1, 3000); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("individual plan for a company only: expected ErrInvalidArgument, got %v", err)
		}
		if _, err := e.orders.CreateOrder(ctx, planCorporate, model.Buyer{UserID: "hr-1"}, 2, 4000); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("corporate plan without a company: expected ErrInvalidArgument, got %v", err)
		}

		sub := newPool(t, e, 2)
		if _, err := e.orders.CreateSeatOrder(ctx, sub, model.Buyer{CompanyID: companyAcme}, 2000); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("seat order without a seat holder: expected ErrInvalidArgument, got %v", err)
		}
		if got := len(e.orders.ListOrders(ctx, usecase.OrderFilter{})); got != 0 {
			t.Errorf("expected no stored orders, got %d", got)
		}

		seat, err := e.orders.CreateSeatOrder(ctx, sub, model.Buyer{UserID: "emp-1"}, 2000)
		if err != nil {
			t.Fatalf("expected a seat order for a user, got %v", err)
		}
		if seat.Buyer.CompanyID != companyAcme || seat.Buyer.Ref() != "emp-1" {
			t.Errorf("expected the pool's company on the order, got %+v", seat.Buyer)
		}
	})

	t.Run("should fail with NotFound for an unknown plan", func(t *testing.T) {
		e := newTestEngine(t)
		if _, err := e.orders.CreateOrder(ctx, 99, guest, 1, 3000); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestOrderStore_UpdateStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("only CREATED orders may transition", func(t *testing.T) {
		cases := []struct {
			name  string
			first model.OrderStatus
			then  model.OrderStatus
		}{
			{"completed to canceled", model.OrderStatusCompleted, model.OrderStatusCanceled},
			{"completed to completed", model.OrderStatusCompleted, model.OrderStatusCompleted},
			{"canceled to completed", model.OrderStatusCanceled, model.OrderStatusCompleted},
			{"canceled to created", model.OrderStatusCanceled, model.OrderStatusCreated},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				e := newTestEngine(t)
				ord, _ := e.orders.CreateOrder(ctx, planBasic, guest, 1, 3000)
				if _, err := e.orders.UpdateStatus(ctx, ord.ID, tc.first, "pay_1"); err != nil {
					t.Fatalf("first transition: %v", err)
				}

				_, err := e.orders.UpdateStatus(ctx, ord.ID, tc.then, "pay_2")

				if !errors.Is(err, domain.ErrInvalidStateTransition) {
					t.Fatalf("expected ErrInvalidStateTransition, got %v", err)
				}
				got, _ := e.orders.GetOrder(ctx, ord.ID)
				if got.Status != tc.first {
					t.Errorf("expected status to stay %s, got %s", tc.first, got.Status)
				}
			})
		}
	})

	t.Run("CREATED to CREATED is not a transition", func(t *testing.T) {
		e := newTestEngine(t)
		ord, _ := e.orders.CreateOrder(ctx, planBasic, guest, 1, 3000)
		if _, err := e.orders.UpdateStatus(ctx, ord.ID, model.OrderStatusCreated, ""); !errors.Is(err, domain.ErrInvalidStateTransition) {
			t.Fatalf("expected ErrInvalidStateTransition, got %v", err)
		}
	})

	t.Run("completion requires a payment id", func(t *testing.T) {
		e := newTestEngine(t)
		ord, _ := e.orders.CreateOrder(ctx, planBasic, guest, 1, 3000)
		if _, err := e.orders.UpdateStatus(ctx, ord.ID, model.OrderStatusCompleted, ""); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("should fail with NotFound for an unknown order", func(t *testing.T) {
		e := newTestEngine(t)
		if _, err := e.orders.UpdateStatus(ctx, 42, model.OrderStatusCompleted, "pay_1"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("should retry a transient persistence failure", func(t *testing.T) {
		e := newTestEngine(t)
		ord, _ := e.orders.CreateOrder(ctx, planBasic, guest, 1, 3000)
		e.backend.FailNext("orders", 2)

		got, err := e.orders.UpdateStatus(ctx, ord.ID, model.OrderStatusCompleted, "pay_1")

		if err != nil {
			t.Fatalf("expected retries to absorb the failure, got %v", err)
		}
		if got.PaymentID != "pay_1" {
			t.Errorf("expected payment id pay_1, got %q", got.PaymentID)
		}
	})

	t.Run("exhausted retries leave the order unchanged", func(t *testing.T) {
		e := newTestEngine(t)
		ord, _ := e.orders.CreateOrder(ctx, planBasic, guest, 1, 3000)
		e.backend.FailNext("orders", 10)

		_, err := e.orders.UpdateStatus(ctx, ord.ID, model.OrderStatusCompleted, "pay_1")

		if !errors.Is(err, domain.ErrPersistenceFailure) {
			t.Fatalf("expected ErrPersistenceFailure, got %v", err)
		}
		got, _ := e.orders.GetOrder(ctx, ord.ID)
		if got.Status != model.OrderStatusCreated {
			t.Errorf("expected CREATED after a failed write, got %s", got.Status)
		}
	})
}

func TestOrderStore_SweepExpired(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	stale, _ := e.orders.CreateOrder(ctx, planBasic, guest, 1, 3000)
	e.clock.Advance(10 * time.Minute)
	fresh, _ := e.orders.CreateOrder(ctx, planBasic, guest, 1, 3000)
	e.clock.Advance(6 * time.Minute)

	swept, err := e.orders.SweepExpired(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(swept) != 1 || swept[0].ID != stale.ID {
		t.Fatalf("expected only order %d swept, got %+v", stale.ID, swept)
	}
	got, _ := e.orders.GetOrder(ctx, stale.ID)
	if got.Status != model.OrderStatusCanceled || got.CancelReason != model.CancelReasonExpired {
		t.Errorf("expected CANCELED/expired, got %s/%s", got.Status, got.CancelReason)
	}
	if other, _ := e.orders.GetOrder(ctx, fresh.ID); other.Status != model.OrderStatusCreated {
		t.Errorf("expected fresh order untouched, got %s", other.Status)
	}

	again, err := e.orders.SweepExpired(ctx)
	if err != nil || len(again) != 0 {
		t.Fatalf("expected an idempotent second sweep, got %d records, err %v", len(again), err)
	}
}

func TestOrderStore_ReloadsFromBackend(t *testing.T) {
	ctx := context.Background()
	backend := NewMockBackend()
	e := newTestEngine(t, withBackend(backend))
	ord, _ := e.orders.CreateOrder(ctx, planBasic, guest, 1, 3000)
	_, _ = e.orders.UpdateStatus(ctx, ord.ID, model.OrderStatusCompleted, "pay_1")

	reloaded := newTestEngine(t, withBackend(backend))

	got, err := reloaded.orders.GetOrder(ctx, ord.ID)
	if err != nil {
		t.Fatalf("expected the order after reload, got %v", err)
	}
	if got.Status != model.OrderStatusCompleted || got.PaymentID != "pay_1" {
		t.Errorf("unexpected reloaded order: %+v", got)
	}
	next, _ := reloaded.orders.CreateOrder(ctx, planBasic, guest, 1, 3000)
	if next.ID != ord.ID+1 {
		t.Errorf("expected id sequence to continue at %d, got %d", ord.ID+1, next.ID)
	}
}

func TestOrderStore_LoadRetries(t *testing.T) {
	ctx := context.Background()
	opts := []usecase.Option{
		usecase.WithRetryPolicy(usecase.RetryPolicy{Attempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}),
		usecase.WithLogger(newTestLogger()),
	}

	t.Run("should fail at once on a document that cannot be decrypted", func(t *testing.T) {
		backend := NewMockBackend()
		calls := 0
		backend.LoadFunc = func(ctx context.Context, collection string) ([]byte, error) {
			calls++
			return nil, errors.New("file backend: decrypt orders: cipher: message authentication failed")
		}

		_, err := usecase.NewOrderStore(ctx, backend, testPlans(), time.Minute, opts...)
		if !errors.Is(err, domain.ErrPersistenceFailure) {
			t.Fatalf("expected ErrPersistenceFailure, got %v", err)
		}
		if calls != 1 {
			t.Errorf("expected a single load attempt, got %d", calls)
		}
	})

	t.Run("should retry a transient backend failure", func(t *testing.T) {
		backend := NewMockBackend()
		calls := 0
		backend.LoadFunc = func(ctx context.Context, collection string) ([]byte, error) {
			calls++
			if calls < 3 {
				return nil, fmt.Errorf("%w: read %s: connection reset", domain.ErrPersistenceFailure, collection)
			}
			return nil, nil
		}

		if _, err := usecase.NewOrderStore(ctx, backend, testPlans(), time.Minute, opts...); err != nil {
			t.Fatalf("expected the third attempt to succeed, got %v", err)
		}
		if calls != 3 {
			t.Errorf("expected 3 load attempts, got %d", calls)
		}
	})
}
