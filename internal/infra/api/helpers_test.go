//go:build !integration

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"course-membership/internal/config"
	"course-membership/internal/domain/model"
	"course-membership/internal/infra/adapters/payment"
	"course-membership/internal/infra/db/memory"
	"course-membership/internal/infra/i18n"
	"course-membership/internal/usecase"
)

const testSecret = "test-admin-jwt-secret-please-change"

func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

type testEnv struct {
	srv     *Server
	handler http.Handler
	auth    *AuthManager
}

// newTestEnv wires real stores over the in-memory backend and a simulated
// gateway that settles every charge when successRate is 1.
func newTestEnv(t *testing.T, successRate float64, secret string) *testEnv {
	t.Helper()
	ctx := context.Background()
	logger := newTestLogger()

	plans := memory.NewPlanCatalog([]model.Plan{
		{ID: 1, Name: "Solo", Kind: model.PlanKindIndividual, Price: 100, DurationDays: 30, ActivationWindowDays: 7},
		{ID: 2, Name: "Team", Kind: model.PlanKindCorporate, Price: 50, DurationDays: 365, ActivationWindowDays: 30, MaxSeats: 10},
	})
	companies := memory.NewCompanyDirectory([]model.Company{{ID: "acme", Name: "Acme"}})
	backend := memory.NewBackend()
	opts := []usecase.Option{usecase.WithLogger(logger)}

	orders, err := usecase.NewOrderStore(ctx, backend, plans, time.Minute, opts...)
	if err != nil {
		t.Fatalf("order store: %v", err)
	}
	memberships, err := usecase.NewMembershipStore(ctx, backend, plans, false, opts...)
	if err != nil {
		t.Fatalf("membership store: %v", err)
	}
	subs, err := usecase.NewCorporateSubscriptionStore(ctx, backend, plans, companies, false, opts...)
	if err != nil {
		t.Fatalf("subscription store: %v", err)
	}
	members, err := usecase.NewCorporateMemberStore(ctx, backend, subs, plans, opts...)
	if err != nil {
		t.Fatalf("member store: %v", err)
	}
	gw := payment.NewSimulatedGateway(payment.Settings{SuccessRate: successRate}, payment.WithSeed(1))
	checkout := usecase.NewCheckoutUseCase(orders, memberships, subs, members, plans, gw, time.Second, opts...)

	tr, err := i18n.NewTranslator(i18n.LocalesFS, "en")
	if err != nil {
		t.Fatalf("translator: %v", err)
	}
	auth := NewAuthManager(secret, time.Minute)
	srv := NewServer(config.HTTPConfig{RequestTimeout: 5 * time.Second}, Deps{
		Orders:        orders,
		Memberships:   memberships,
		Subscriptions: subs,
		Members:       members,
		Checkout:      checkout,
		Sweeper:       usecase.NewSweeper(orders, memberships, subs, members, plans, opts...),
		Plans:         usecase.NewPlanUseCase(plans),
		Translator:    tr,
		Auth:          auth,
	}, logger)
	return &testEnv{srv: srv, handler: srv.Router(), auth: auth}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rdr = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("expected status %d, got %d (body %s)", want, rr.Code, rr.Body.String())
	}
}
