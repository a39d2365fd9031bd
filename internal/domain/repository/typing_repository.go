package repository

import "context"

type TypingRepository interface {
	SetTyping(ctx context.Context, conversationID, userID string, typing bool) error

	// Watch delivers the current flag of userID in conversationID, then every
	// change. The channel is closed when ctx is done.
	Watch(ctx context.Context, conversationID, userID string) (<-chan bool, error)
}
