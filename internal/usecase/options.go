package usecase

import (
	"time"

	"github.com/rs/zerolog"

	"course-membership/internal/domain/ports/adapter"
)

// Option configures a store.
type Option func(*options)

type options struct {
	now    func() time.Time
	retry  RetryPolicy
	events adapter.EventPublisher
	log    *zerolog.Logger
}

func buildOptions(opts []Option) options {
	nop := zerolog.Nop()
	o := options{
		now:    time.Now,
		retry:  DefaultRetryPolicy(),
		events: adapter.NopPublisher{},
		log:    &nop,
	}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// WithClock replaces time.Now; tests use it to step over deadlines.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func WithRetryPolicy(p RetryPolicy) Option {
	return func(o *options) { o.retry = p }
}

// WithPublisher routes committed changes to an event sink.
func WithPublisher(p adapter.EventPublisher) Option {
	return func(o *options) {
		if p != nil {
			o.events = p
		}
	}
}

func WithLogger(l *zerolog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

func (o options) component(name string) *zerolog.Logger {
	l := o.log.With().Str("component", name).Logger()
	return &l
}
