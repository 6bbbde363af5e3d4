package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"course-membership/internal/config"
	"course-membership/internal/infra/i18n"
	red "course-membership/internal/infra/redis"
	"course-membership/internal/usecase"
)

// Deps is everything the HTTP surface talks to.
type Deps struct {
	Orders        *usecase.OrderStore
	Memberships   *usecase.MembershipStore
	Subscriptions *usecase.CorporateSubscriptionStore
	Members       *usecase.CorporateMemberStore
	Checkout      *usecase.CheckoutUseCase
	Sweeper       *usecase.Sweeper
	Plans         *usecase.PlanUseCase
	Translator    *i18n.Translator
	Auth          *AuthManager
	Limiter       *red.RateLimiter // optional
}

type Server struct {
	cfg  config.HTTPConfig
	d    Deps
	tr   *i18n.Translator
	auth *AuthManager
	log  *zerolog.Logger
	srv  *http.Server
}

func NewServer(cfg config.HTTPConfig, d Deps, logger *zerolog.Logger) *Server {
	if d.Auth == nil {
		d.Auth = NewAuthManager(cfg.AdminJWTSecret, 0)
	}
	return &Server{cfg: cfg, d: d, tr: d.Translator, auth: d.Auth, log: logger}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(TraceID(), Recover(s.log), RequestLog(s.log), Metrics())
	if s.cfg.RequestTimeout > 0 {
		r.Use(Timeout(s.cfg.RequestTimeout))
	}

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/plans", s.handleListPlans)

	r.Route("/orders", func(r chi.Router) {
		r.With(RateLimit(s.d.Limiter, "orders", s.cfg.OrderRateLimit, s.cfg.OrderRateWindow, s.log, s.msg)).
			Post("/", s.handleCreateOrder)
		r.Get("/{id}", s.handleGetOrder)
		r.Patch("/{id}", s.handleUpdateOrder)
		r.Post("/{id}/checkout", s.handleCheckout)
	})
	r.Post("/payments", s.handleCreatePayment)

	r.Route("/memberships", func(r chi.Router) {
		r.Get("/", s.handleListMemberships)
		r.Get("/{id}", s.handleGetMembership)
		r.Post("/{id}/activate", s.handleActivateMembership)
		r.Post("/{id}/cancel", s.handleCancelMembership)
	})

	r.Route("/corporate-subscriptions", func(r chi.Router) {
		r.Post("/", s.handleCreateSubscription)
		r.Get("/{id}", s.handleGetSubscription)
		r.Post("/{id}/activate", s.handleActivateSubscription)
		r.Get("/{id}/members", s.handleListMembers)
	})

	r.Route("/corporate-members", func(r chi.Router) {
		r.Post("/", s.handleAssignSeat)
		r.Get("/{id}", s.handleGetMember)
		r.Post("/{id}/activate", s.handleActivateMember)
		r.Delete("/{id}", s.handleRemoveMember)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(s.AdminOnly)
		r.Get("/orders", s.handleAdminListOrders)
		r.Post("/sweep", s.handleAdminSweep)
		r.Get("/invariants", s.handleAdminInvariants)
		r.Post("/reconcile", s.handleAdminReconcile)
	})
	return r
}

func (s *Server) Start() error {
	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.log.Info().Int("port", s.cfg.Port).Msg("http server listening")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
