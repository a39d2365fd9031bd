package repository

import (
	"context"

	"fazaachat/internal/domain/entity"
)

type MessageRepository interface {
	// Watch delivers the full set of records under
	// messages/{conversationId}/messagesList, first as an initial snapshot
	// and then again on every change, in store key order. The channel is
	// closed when ctx is done or the backend stream terminates.
	Watch(ctx context.Context, conversationID string) (<-chan []entity.RawRecord, error)

	// Append writes the message under its id together with the
	// conversation's lastMessage/lastMessageDate in one atomic update.
	// Appending an id that already exists is not an error.
	Append(ctx context.Context, conversationID string, message entity.Message) error
}
