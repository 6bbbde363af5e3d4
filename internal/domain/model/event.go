package model

import "time"

type EventType string

const (
	EventOrderCreated   EventType = "order.created"
	EventOrderCompleted EventType = "order.completed"
	EventOrderCanceled  EventType = "order.canceled"

	EventMembershipCreated   EventType = "membership.created"
	EventMembershipActivated EventType = "membership.activated"
	EventMembershipExpired   EventType = "membership.expired"
	EventMembershipCancelled EventType = "membership.cancelled"

	EventSubscriptionCreated   EventType = "corporate_subscription.created"
	EventSubscriptionActivated EventType = "corporate_subscription.activated"
	EventSubscriptionExpired   EventType = "corporate_subscription.expired"

	EventMemberAssigned  EventType = "corporate_member.assigned"
	EventMemberActivated EventType = "corporate_member.activated"
	EventMemberRemoved   EventType = "corporate_member.removed"
	EventMemberExpired   EventType = "corporate_member.expired"

	// Alerts for operators.
	EventCompensationFailed EventType = "order.compensation_failed"
	EventInvariantViolated  EventType = "engine.invariant_violated"
)

// Event notifies interested parties of a committed state change.
type Event struct {
	Type       EventType         `json:"type"`
	EntityID   int64             `json:"entity_id"`
	OccurredAt time.Time         `json:"occurred_at"`
	Data       map[string]string `json:"data,omitempty"`
}

// Alert reports whether the event needs operator attention.
func (e Event) Alert() bool {
	return e.Type == EventCompensationFailed || e.Type == EventInvariantViolated
}
