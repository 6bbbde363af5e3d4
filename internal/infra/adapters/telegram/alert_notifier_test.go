//go:build !integration

package telegram

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"course-membership/internal/domain/model"
)

type mockSender struct {
	sent     map[int64][]string
	SendFunc func(ctx context.Context, chatID int64, text string) error
}

func (m *mockSender) SendMessage(ctx context.Context, chatID int64, text string) error {
	if m.SendFunc != nil {
		if err := m.SendFunc(ctx, chatID, text); err != nil {
			return err
		}
	}
	if m.sent == nil {
		m.sent = make(map[int64][]string)
	}
	m.sent[chatID] = append(m.sent[chatID], text)
	return nil
}

func TestAlertNotifier_Handle(t *testing.T) {
	ctx := context.Background()
	alert := model.Event{
		Type:       model.EventCompensationFailed,
		EntityID:   9,
		OccurredAt: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
		Data:       map[string]string{"cause": "membership store down", "payment_id": "pay_1"},
	}

	t.Run("should send alerts to every admin chat", func(t *testing.T) {
		s := &mockSender{}
		n := NewAlertNotifier(s, []int64{1, 2})

		if err := n.Handle(ctx, alert); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(s.sent[1]) != 1 || len(s.sent[2]) != 1 {
			t.Fatalf("expected one message per chat, got %v", s.sent)
		}
		text := s.sent[1][0]
		if !strings.Contains(text, "order #9") || !strings.Contains(text, "payment_id: pay_1") {
			t.Errorf("unexpected alert text %q", text)
		}
	})

	t.Run("should ignore non-alert events", func(t *testing.T) {
		s := &mockSender{}
		n := NewAlertNotifier(s, []int64{1})

		_ = n.Handle(ctx, model.Event{Type: model.EventOrderCreated, EntityID: 1})

		if len(s.sent) != 0 {
			t.Errorf("expected nothing sent, got %v", s.sent)
		}
	})

	t.Run("should keep sending after one chat fails", func(t *testing.T) {
		s := &mockSender{SendFunc: func(_ context.Context, chatID int64, _ string) error {
			if chatID == 1 {
				return errors.New("blocked")
			}
			return nil
		}}
		n := NewAlertNotifier(s, []int64{1, 2})

		err := n.Handle(ctx, alert)

		if err == nil || !strings.Contains(err.Error(), "chat 1") {
			t.Fatalf("expected an error naming chat 1, got %v", err)
		}
		if len(s.sent[2]) != 1 {
			t.Error("expected chat 2 to receive the alert")
		}
	})
}
