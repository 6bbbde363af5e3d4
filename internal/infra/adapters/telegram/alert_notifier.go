package telegram

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"course-membership/internal/domain/model"
	"course-membership/internal/domain/ports/adapter"
)

// AlertNotifier forwards alert events to every admin chat.
type AlertNotifier struct {
	sender  adapter.AlertSender
	chatIDs []int64
	timeout time.Duration
}

func NewAlertNotifier(sender adapter.AlertSender, chatIDs []int64) *AlertNotifier {
	return &AlertNotifier{sender: sender, chatIDs: chatIDs, timeout: 10 * time.Second}
}

// Handle matches the event bus handler signature. Non-alert events are ignored.
func (n *AlertNotifier) Handle(ctx context.Context, ev model.Event) error {
	if !ev.Alert() || len(n.chatIDs) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	text := FormatAlert(ev)
	var errs []error
	for _, id := range n.chatIDs {
		if err := n.sender.SendMessage(ctx, id, text); err != nil {
			errs = append(errs, fmt.Errorf("chat %d: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

func FormatAlert(ev model.Event) string {
	var b strings.Builder
	switch ev.Type {
	case model.EventCompensationFailed:
		fmt.Fprintf(&b, "⚠️ Compensation failed for order #%d", ev.EntityID)
	case model.EventInvariantViolated:
		fmt.Fprintf(&b, "⚠️ Invariant violated on entity #%d", ev.EntityID)
	default:
		fmt.Fprintf(&b, "%s #%d", ev.Type, ev.EntityID)
	}
	b.WriteString("\n")
	b.WriteString(ev.OccurredAt.UTC().Format(time.RFC3339))

	keys := make([]string, 0, len(ev.Data))
	for k := range ev.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "\n%s: %s", k, ev.Data[k])
	}
	return b.String()
}
