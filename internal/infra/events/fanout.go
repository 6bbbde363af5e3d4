package events

import (
	"context"

	"course-membership/internal/domain/model"
	"course-membership/internal/domain/ports/adapter"
)

// Fanout delivers each event to every publisher in order.
type Fanout []adapter.EventPublisher

func (f Fanout) Publish(ctx context.Context, ev model.Event) {
	for _, p := range f {
		if p != nil {
			p.Publish(ctx, ev)
		}
	}
}
