package repository

import (
	"context"

	"fazaachat/internal/domain/entity"
)

type ConversationRepository interface {
	Create(ctx context.Context, conversation *entity.Conversation) error
	GetByID(ctx context.Context, id string) (*entity.Conversation, error)
	ListByUserID(ctx context.Context, userID string) ([]*entity.Conversation, error)

	// SetActive adds or removes userID from the conversation's active
	// participant set.
	SetActive(ctx context.Context, conversationID, userID string, active bool) error
}
