package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"course-membership/internal/infra/metrics"
)

// Reconciler resolves orders whose payment outcome is unknown.
type Reconciler interface {
	ReconcilePending(ctx context.Context, staleAfter time.Duration) (int, error)
}

// PaymentReconciler periodically asks the gateway what happened to orders
// whose checkout timed out, and applies the answer exactly once.
type PaymentReconciler struct {
	uc         Reconciler
	interval   time.Duration // how often to scan
	staleAfter time.Duration // how long an order must have been pending
	log        zerolog.Logger
}

func NewPaymentReconciler(uc Reconciler, interval, staleAfter time.Duration, log zerolog.Logger) *PaymentReconciler {
	if interval <= 0 {
		interval = time.Minute
	}
	if staleAfter < 0 {
		staleAfter = 0
	}
	return &PaymentReconciler{
		uc:         uc,
		interval:   interval,
		staleAfter: staleAfter,
		log:        log.With().Str("component", "PaymentReconciler").Logger(),
	}
}

func (w *PaymentReconciler) Start(ctx context.Context) {
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.tick(ctx)
		}
	}
}

func (w *PaymentReconciler) tick(ctx context.Context) int {
	n, err := w.uc.ReconcilePending(ctx, w.staleAfter)
	if err != nil {
		metrics.IncJobRun("reconcile", "error")
		w.log.Error().Err(err).Int("resolved", n).Msg("reconcile pending payments")
		return n
	}
	metrics.IncJobRun("reconcile", "ok")
	if n > 0 {
		w.log.Info().Int("resolved", n).Msg("reconciled pending payments")
	}
	return n
}
