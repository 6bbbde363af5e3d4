package telegram

import (
	"context"

	"github.com/rs/zerolog"

	"course-membership/internal/domain/ports/adapter"
)

var _ adapter.AlertSender = (*NoopSender)(nil)

// NoopSender logs alerts instead of sending them. Used when no bot token is set.
type NoopSender struct {
	log zerolog.Logger
}

func NewNoopSender(log zerolog.Logger) *NoopSender {
	return &NoopSender{log: log.With().Str("component", "NoopTelegram").Logger()}
}

func (s *NoopSender) SendMessage(_ context.Context, chatID int64, text string) error {
	s.log.Info().Int64("chat_id", chatID).Str("text", text).Msg("alert (not sent)")
	return nil
}
