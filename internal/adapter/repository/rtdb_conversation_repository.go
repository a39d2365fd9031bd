package repository

import (
	"context"

	"firebase.google.com/go/v4/db"

	"fazaachat/internal/domain/entity"
	"fazaachat/internal/domain/repository"
	"fazaachat/pkg/errors"
	"fazaachat/pkg/logger"
)

type rtdbConversationRepository struct {
	client *db.Client
}

func NewRTDBConversationRepository(client *db.Client) repository.ConversationRepository {
	return &rtdbConversationRepository{
		client: client,
	}
}

func (r *rtdbConversationRepository) Create(ctx context.Context, conversation *entity.Conversation) error {
	ref := r.client.NewRef(conversationPath(conversation.ID))

	err := ref.Transaction(ctx, func(node db.TransactionNode) (interface{}, error) {
		var current map[string]interface{}
		if err := node.Unmarshal(&current); err != nil {
			return nil, err
		}
		if _, exists := current["senderId"]; exists {
			return nil, errors.Conflict("Conversation already exists")
		}
		return conversation.Record(), nil
	})
	if err != nil {
		if errors.Is(err, "CONFLICT") {
			return err
		}
		return errors.Internal("Failed to create conversation", err)
	}
	return nil
}

func (r *rtdbConversationRepository) GetByID(ctx context.Context, id string) (*entity.Conversation, error) {
	var fields map[string]interface{}
	if err := r.client.NewRef(conversationPath(id)).Get(ctx, &fields); err != nil {
		return nil, errors.Internal("Failed to get conversation", err)
	}
	if fields == nil {
		return nil, errors.NotFound("Conversation", nil)
	}

	conv, ok := entity.ParseConversation(id, fields)
	if !ok {
		return nil, errors.Malformed("Conversation", nil)
	}
	return conv, nil
}

func (r *rtdbConversationRepository) ListByUserID(ctx context.Context, userID string) ([]*entity.Conversation, error) {
	seen := make(map[string]bool)
	var out []*entity.Conversation

	for _, field := range []string{"senderId", "receiverId"} {
		var nodes map[string]map[string]interface{}
		err := r.client.NewRef(conversationsCollection).OrderByChild(field).EqualTo(userID).Get(ctx, &nodes)
		if err != nil {
			logger.Error("RTDB error while listing conversations for user %s: %v", userID, err)
			return nil, errors.Internal("Failed to list conversations", err)
		}
		for id, fields := range nodes {
			if seen[id] {
				continue
			}
			conv, ok := entity.ParseConversation(id, fields)
			if !ok {
				logger.Debug("Skipping malformed conversation %s", id)
				continue
			}
			seen[id] = true
			out = append(out, conv)
		}
	}

	sortByLastMessage(out)
	return out, nil
}

// SetActive stores the active set as activeParticipants/{userId}: true.
func (r *rtdbConversationRepository) SetActive(ctx context.Context, conversationID, userID string, active bool) error {
	ref := r.client.NewRef(conversationPath(conversationID) + "/activeParticipants/" + userID)

	var err error
	if active {
		err = ref.Set(ctx, true)
	} else {
		err = ref.Delete(ctx)
	}
	if err != nil {
		return errors.Internal("Failed to update active participants", err)
	}
	return nil
}
