package sched

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"course-membership/internal/domain"
	"course-membership/internal/infra/metrics"
	red "course-membership/internal/infra/redis"
	"course-membership/internal/usecase"
)

const sweepLockKey = "engine:lock:sweeper"

// Sweeper is the part of usecase.Sweeper the worker drives.
type Sweeper interface {
	SweepAll(ctx context.Context) (*usecase.SweepReport, error)
}

// ExpiryWorker runs the full expiration sweep on a ticker. With a locker set,
// only the process holding the sweeper lock sweeps in a given tick.
type ExpiryWorker struct {
	interval time.Duration
	lockTTL  time.Duration
	sweeper  Sweeper
	locker   red.Locker // optional
	log      *zerolog.Logger
}

func NewExpiryWorker(interval, lockTTL time.Duration, sweeper Sweeper, locker red.Locker, logger *zerolog.Logger) *ExpiryWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	if lockTTL <= 0 {
		lockTTL = interval
	}
	exprLog := logger.With().Str("component", "ExpiryWorker").Logger()
	return &ExpiryWorker{
		interval: interval,
		lockTTL:  lockTTL,
		sweeper:  sweeper,
		locker:   locker,
		log:      &exprLog,
	}
}

func (w *ExpiryWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting expiry worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping expiry worker")
			return ctx.Err()
		case <-ticker.C:
			_, _ = w.RunOnce(ctx)
		}
	}
}

// RunOnce performs one sweep. It returns (nil, nil) when another process
// holds the lock.
func (w *ExpiryWorker) RunOnce(ctx context.Context) (*usecase.SweepReport, error) {
	if w.locker != nil {
		token, err := w.locker.TryLock(ctx, sweepLockKey, w.lockTTL)
		if errors.Is(err, domain.ErrLockNotAcquired) {
			metrics.IncJobRun("sweep", "skipped")
			w.log.Debug().Msg("sweeper lock held elsewhere")
			return nil, nil
		}
		if err != nil {
			metrics.IncJobRun("sweep", "error")
			w.log.Error().Err(err).Msg("acquire sweeper lock")
			return nil, err
		}
		defer func() {
			if err := w.locker.Unlock(context.WithoutCancel(ctx), sweepLockKey, token); err != nil {
				w.log.Warn().Err(err).Msg("release sweeper lock")
			}
		}()
	}

	rep, err := w.sweeper.SweepAll(ctx)
	if err != nil {
		metrics.IncJobRun("sweep", "error")
		w.log.Error().Err(err).Msg("expiry worker error")
		return rep, err
	}
	metrics.IncJobRun("sweep", "ok")
	if rep.Orders+rep.Memberships+rep.Subscriptions+rep.Members > 0 || len(rep.Violations) > 0 {
		w.log.Info().
			Int("orders", rep.Orders).
			Int("memberships", rep.Memberships).
			Int("subscriptions", rep.Subscriptions).
			Int("members", rep.Members).
			Int("violations", len(rep.Violations)).
			Msg("sweep finished")
	}
	return rep, nil
}
