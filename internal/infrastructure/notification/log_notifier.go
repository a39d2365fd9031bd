package notification

import (
	"context"

	"fazaachat/internal/domain/entity"
	"fazaachat/pkg/logger"
)

// LogNotifier only logs pushes. Used in development and by the CLI.
type LogNotifier struct{}

func (LogNotifier) Send(ctx context.Context, n entity.Notification) error {
	logger.Info("push to=%s title=%q body=%q", redact(n.Token), n.Title, n.Body)
	return nil
}

func redact(token string) string {
	if len(token) <= 6 {
		return "***"
	}
	return token[:6] + "..."
}
