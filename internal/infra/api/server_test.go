//go:build !integration

package api

import (
	"fmt"
	"net/http"
	"testing"

	"course-membership/internal/domain/model"
	"course-membership/internal/usecase"
)

func createSoloOrder(t *testing.T, env *testEnv, user string) model.Order {
	t.Helper()
	rr := env.do(t, http.MethodPost, "/orders", map[string]any{
		"plan_id": 1,
		"buyer":   map[string]string{"user_id": user},
		"amount":  100,
	})
	expectStatus(t, rr, http.StatusCreated)
	return decode[model.Order](t, rr)
}

func TestHealthAndTraceHeader(t *testing.T) {
	env := newTestEnv(t, 1, testSecret)

	t.Run("should answer ok and mint a trace id", func(t *testing.T) {
		rr := env.do(t, http.MethodGet, "/health", nil)
		expectStatus(t, rr, http.StatusOK)
		if rr.Header().Get("X-Request-ID") == "" {
			t.Fatal("expected X-Request-ID header")
		}
	})

	t.Run("should echo an incoming trace id", func(t *testing.T) {
		rr := env.do(t, http.MethodGet, "/health", nil, "X-Request-ID", "abc-123")
		if got := rr.Header().Get("X-Request-ID"); got != "abc-123" {
			t.Fatalf("expected echoed id, got %q", got)
		}
	})
}

func TestOrderRoutes(t *testing.T) {
	t.Run("should create and fetch an order", func(t *testing.T) {
		env := newTestEnv(t, 1, testSecret)
		ord := createSoloOrder(t, env, "u1")
		if ord.Status != model.OrderStatusCreated {
			t.Fatalf("expected CREATED, got %s", ord.Status)
		}

		rr := env.do(t, http.MethodGet, fmt.Sprintf("/orders/%d", ord.ID), nil)
		expectStatus(t, rr, http.StatusOK)
		if got := decode[model.Order](t, rr); got.ID != ord.ID {
			t.Fatalf("expected order %d, got %d", ord.ID, got.ID)
		}
	})

	t.Run("should reject an amount that does not match the plan", func(t *testing.T) {
		env := newTestEnv(t, 1, testSecret)
		rr := env.do(t, http.MethodPost, "/orders", map[string]any{
			"plan_id": 1,
			"buyer":   map[string]string{"user_id": "u1"},
			"amount":  99,
		})
		expectStatus(t, rr, http.StatusBadRequest)
		body := decode[errorBody](t, rr)
		if body.Code != "INVALID_AMOUNT" {
			t.Fatalf("expected INVALID_AMOUNT, got %s", body.Code)
		}
		if body.Message == "" || body.Message == body.Code {
			t.Fatalf("expected translated message, got %q", body.Message)
		}
	})

	t.Run("should return 404 for unknown order and 400 for bad id", func(t *testing.T) {
		env := newTestEnv(t, 1, testSecret)
		expectStatus(t, env.do(t, http.MethodGet, "/orders/999", nil), http.StatusNotFound)
		expectStatus(t, env.do(t, http.MethodGet, "/orders/abc", nil), http.StatusBadRequest)
	})

	t.Run("should reject malformed json", func(t *testing.T) {
		env := newTestEnv(t, 1, testSecret)
		rr := env.do(t, http.MethodPost, "/orders", "not an object")
		expectStatus(t, rr, http.StatusBadRequest)
	})

	t.Run("should provision a membership when completed through PATCH", func(t *testing.T) {
		env := newTestEnv(t, 1, testSecret)
		ord := createSoloOrder(t, env, "u2")

		rr := env.do(t, http.MethodPatch, fmt.Sprintf("/orders/%d", ord.ID), map[string]string{
			"status": "COMPLETED", "payment_id": "pay_manual",
		})
		expectStatus(t, rr, http.StatusOK)
		if got := decode[model.Order](t, rr); got.Status != model.OrderStatusCompleted {
			t.Fatalf("expected COMPLETED, got %s", got.Status)
		}

		rr = env.do(t, http.MethodGet, "/memberships?user=u2", nil)
		expectStatus(t, rr, http.StatusOK)
		list := decode[struct {
			Memberships []model.Membership `json:"memberships"`
		}](t, rr)
		if len(list.Memberships) != 1 || list.Memberships[0].OrderID != ord.ID {
			t.Fatalf("expected one membership for order %d, got %+v", ord.ID, list.Memberships)
		}

		rr = env.do(t, http.MethodPatch, fmt.Sprintf("/orders/%d", ord.ID), map[string]string{"status": "CANCELED"})
		expectStatus(t, rr, http.StatusBadRequest)
		if body := decode[errorBody](t, rr); body.Code != "INVALID_STATE_TRANSITION" {
			t.Fatalf("expected INVALID_STATE_TRANSITION, got %s", body.Code)
		}
	})

	t.Run("should reject unknown status values", func(t *testing.T) {
		env := newTestEnv(t, 1, testSecret)
		ord := createSoloOrder(t, env, "u3")
		rr := env.do(t, http.MethodPatch, fmt.Sprintf("/orders/%d", ord.ID), map[string]string{"status": "SHIPPED"})
		expectStatus(t, rr, http.StatusBadRequest)
	})
}

func TestCheckoutRoute(t *testing.T) {
	t.Run("should complete the order and activate the membership", func(t *testing.T) {
		env := newTestEnv(t, 1, testSecret)
		ord := createSoloOrder(t, env, "u1")

		rr := env.do(t, http.MethodPost, fmt.Sprintf("/orders/%d/checkout", ord.ID), map[string]string{"description": "solo"})
		expectStatus(t, rr, http.StatusOK)
		res := decode[usecase.CheckoutResult](t, rr)
		if res.Order == nil || res.Order.Status != model.OrderStatusCompleted {
			t.Fatalf("expected completed order, got %+v", res.Order)
		}
		if res.Payment == nil || !res.Payment.Succeeded() {
			t.Fatalf("expected successful payment, got %+v", res.Payment)
		}

		list := decode[struct {
			Memberships []model.Membership `json:"memberships"`
		}](t, env.do(t, http.MethodGet, "/memberships?user=u1", nil))
		if len(list.Memberships) != 1 {
			t.Fatalf("expected 1 membership, got %d", len(list.Memberships))
		}
		id := list.Memberships[0].ID

		rr = env.do(t, http.MethodPost, fmt.Sprintf("/memberships/%d/activate", id), nil)
		expectStatus(t, rr, http.StatusOK)
		m := decode[model.Membership](t, rr)
		if m.Status != model.MembershipStatusActivated || m.ExpiryDate == nil {
			t.Fatalf("expected activated membership with expiry, got %+v", m)
		}

		rr = env.do(t, http.MethodPost, fmt.Sprintf("/memberships/%d/cancel", id), nil)
		expectStatus(t, rr, http.StatusBadRequest)
	})

	t.Run("should answer 402 and cancel the order when declined", func(t *testing.T) {
		env := newTestEnv(t, 0, testSecret)
		ord := createSoloOrder(t, env, "u1")

		rr := env.do(t, http.MethodPost, fmt.Sprintf("/orders/%d/checkout", ord.ID), nil)
		expectStatus(t, rr, http.StatusPaymentRequired)

		got := decode[model.Order](t, env.do(t, http.MethodGet, fmt.Sprintf("/orders/%d", ord.ID), nil))
		if got.Status != model.OrderStatusCanceled || got.CancelReason != model.CancelReasonPaymentFailed {
			t.Fatalf("expected canceled/payment_failed, got %s/%s", got.Status, got.CancelReason)
		}
	})

	t.Run("should create a payment without changing the order", func(t *testing.T) {
		env := newTestEnv(t, 1, testSecret)
		ord := createSoloOrder(t, env, "u1")

		rr := env.do(t, http.MethodPost, "/payments", map[string]any{"order_id": ord.ID, "amount": 100})
		expectStatus(t, rr, http.StatusCreated)
		res := decode[model.PaymentResult](t, rr)
		if res.PaymentID == "" || res.OrderID != ord.ID {
			t.Fatalf("unexpected payment %+v", res)
		}

		got := decode[model.Order](t, env.do(t, http.MethodGet, fmt.Sprintf("/orders/%d", ord.ID), nil))
		if got.Status != model.OrderStatusCreated {
			t.Fatalf("expected order to stay CREATED, got %s", got.Status)
		}

		rr = env.do(t, http.MethodPost, "/payments", map[string]any{"order_id": ord.ID, "amount": 1})
		expectStatus(t, rr, http.StatusBadRequest)
	})
}

func TestCorporateRoutes(t *testing.T) {
	env := newTestEnv(t, 1, testSecret)

	rr := env.do(t, http.MethodPost, "/corporate-subscriptions", map[string]any{
		"company_id": "acme", "plan_id": 2, "seats_total": 2, "amount_paid": 100,
	})
	expectStatus(t, rr, http.StatusCreated)
	sub := decode[model.CorporateSubscription](t, rr)

	t.Run("should reject an individual plan", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, "/corporate-subscriptions", map[string]any{
			"company_id": "acme", "plan_id": 1, "seats_total": 1, "amount_paid": 100,
		})
		expectStatus(t, rr, http.StatusBadRequest)
		if body := decode[errorBody](t, rr); body.Code != "INVALID_PLAN_TYPE" {
			t.Fatalf("expected INVALID_PLAN_TYPE, got %s", body.Code)
		}
	})

	var first model.CorporateMember
	t.Run("should assign seats until the pool is exhausted", func(t *testing.T) {
		for i, user := range []string{"alice", "bob"} {
			rr := env.do(t, http.MethodPost, "/corporate-members", map[string]any{"subscription_id": sub.ID, "user": user})
			expectStatus(t, rr, http.StatusCreated)
			if i == 0 {
				first = decode[model.CorporateMember](t, rr)
			}
		}
		rr := env.do(t, http.MethodPost, "/corporate-members", map[string]any{"subscription_id": sub.ID, "user": "carol"})
		expectStatus(t, rr, http.StatusConflict)
		if body := decode[errorBody](t, rr); body.Code != "SEAT_EXHAUSTED" {
			t.Fatalf("expected SEAT_EXHAUSTED, got %s", body.Code)
		}

		got := decode[model.CorporateSubscription](t, env.do(t, http.MethodGet, fmt.Sprintf("/corporate-subscriptions/%d", sub.ID), nil))
		if got.SeatsUsed != 2 || got.SeatsAvailable != 0 {
			t.Fatalf("expected 2 used / 0 available, got %d/%d", got.SeatsUsed, got.SeatsAvailable)
		}
	})

	t.Run("should refuse a card while the subscription is inactive", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, fmt.Sprintf("/corporate-members/%d/activate", first.ID), nil)
		expectStatus(t, rr, http.StatusBadRequest)
		if body := decode[errorBody](t, rr); body.Code != "INVALID_STATE_TRANSITION" {
			t.Fatalf("expected INVALID_STATE_TRANSITION, got %s", body.Code)
		}
	})

	t.Run("should activate a card and list members", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, fmt.Sprintf("/corporate-subscriptions/%d/activate", sub.ID), nil)
		expectStatus(t, rr, http.StatusOK)
		if got := decode[model.CorporateSubscription](t, rr); got.Status != model.CorporateStatusActivated {
			t.Fatalf("expected activated subscription, got %s", got.Status)
		}

		rr = env.do(t, http.MethodPost, fmt.Sprintf("/corporate-members/%d/activate", first.ID), nil)
		expectStatus(t, rr, http.StatusOK)
		if m := decode[model.CorporateMember](t, rr); m.CardStatus != model.CardStatusActivated {
			t.Fatalf("expected activated card, got %s", m.CardStatus)
		}

		list := decode[struct {
			Members []model.CorporateMember `json:"members"`
		}](t, env.do(t, http.MethodGet, fmt.Sprintf("/corporate-subscriptions/%d/members", sub.ID), nil))
		if len(list.Members) != 2 {
			t.Fatalf("expected 2 members, got %d", len(list.Members))
		}
	})

	t.Run("should release the seat on removal", func(t *testing.T) {
		rr := env.do(t, http.MethodDelete, fmt.Sprintf("/corporate-members/%d", first.ID), nil)
		expectStatus(t, rr, http.StatusOK)

		got := decode[model.CorporateSubscription](t, env.do(t, http.MethodGet, fmt.Sprintf("/corporate-subscriptions/%d", sub.ID), nil))
		if got.SeatsUsed != 1 || got.SeatsAvailable != 1 {
			t.Fatalf("expected 1 used / 1 available, got %d/%d", got.SeatsUsed, got.SeatsAvailable)
		}
		expectStatus(t, env.do(t, http.MethodGet, fmt.Sprintf("/corporate-members/%d", first.ID), nil), http.StatusNotFound)
	})

	t.Run("should 404 members of an unknown subscription", func(t *testing.T) {
		expectStatus(t, env.do(t, http.MethodGet, "/corporate-subscriptions/999/members", nil), http.StatusNotFound)
	})
}

func TestPlansRoute(t *testing.T) {
	env := newTestEnv(t, 1, testSecret)
	rr := env.do(t, http.MethodGet, "/plans", nil)
	expectStatus(t, rr, http.StatusOK)
	body := decode[struct {
		Plans []model.Plan `json:"plans"`
	}](t, rr)
	if len(body.Plans) != 2 || body.Plans[0].ID != 1 {
		t.Fatalf("expected two plans sorted by id, got %+v", body.Plans)
	}
}
