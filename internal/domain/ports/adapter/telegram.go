// File: internal/domain/ports/adapter/telegram.go
package adapter

import "context"

// AlertSender pushes operator alerts to a chat.
type AlertSender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}
