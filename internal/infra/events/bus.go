package events

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"course-membership/internal/domain/model"
	"course-membership/internal/domain/ports/adapter"
	"course-membership/internal/infra/metrics"
	"course-membership/internal/infra/worker"
)

var _ adapter.EventPublisher = (*Bus)(nil)

// Handler consumes one event. Errors are logged by the bus.
type Handler func(ctx context.Context, ev model.Event) error

// Filter selects which events a subscriber receives. nil means all.
type Filter func(ev model.Event) bool

// OnlyAlerts passes events that need operator attention.
func OnlyAlerts(ev model.Event) bool { return ev.Alert() }

type subscription struct {
	name   string
	filter Filter
	handle Handler
}

// Bus is the in-process observer channel. Handlers run on the worker pool;
// with no pool they run inline on the publishing goroutine.
type Bus struct {
	mu   sync.RWMutex
	subs []subscription
	pool *worker.Pool
	log  zerolog.Logger
}

func NewBus(pool *worker.Pool, log zerolog.Logger) *Bus {
	return &Bus{pool: pool, log: log.With().Str("component", "EventBus").Logger()}
}

func (b *Bus) Subscribe(name string, filter Filter, h Handler) {
	b.mu.Lock()
	b.subs = append(b.subs, subscription{name: name, filter: filter, handle: h})
	b.mu.Unlock()
}

func (b *Bus) Publish(ctx context.Context, ev model.Event) {
	b.mu.RLock()
	subs := make([]subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	ctx = context.WithoutCancel(ctx)
	for _, s := range subs {
		if s.filter != nil && !s.filter(ev) {
			continue
		}
		s := s
		task := func(context.Context) error { return b.deliver(ctx, s, ev) }
		if b.pool == nil {
			_ = task(ctx)
			continue
		}
		if err := b.pool.Submit(task); err != nil {
			metrics.IncEventPublished("bus", "dropped")
			b.log.Warn().Err(err).Str("subscriber", s.name).Str("event", string(ev.Type)).Msg("event dropped")
		}
	}
}

func (b *Bus) deliver(ctx context.Context, s subscription, ev model.Event) error {
	if err := s.handle(ctx, ev); err != nil {
		metrics.IncEventPublished("bus", "error")
		b.log.Error().Err(err).Str("subscriber", s.name).Str("event", string(ev.Type)).Int64("entity_id", ev.EntityID).Msg("subscriber failed")
		return nil
	}
	metrics.IncEventPublished("bus", "ok")
	return nil
}
