package adapter

import (
	"context"

	"course-membership/internal/domain/model"
)

// EventPublisher delivers committed state changes. Publish must not block
// the caller on slow consumers; delivery failures are logged, not returned
// to the business operation that already committed.
type EventPublisher interface {
	Publish(ctx context.Context, ev model.Event)
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, model.Event) {}
