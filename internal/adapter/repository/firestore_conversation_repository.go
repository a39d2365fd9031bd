package repository

import (
	"context"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"fazaachat/internal/domain/entity"
	"fazaachat/internal/domain/repository"
	"fazaachat/pkg/errors"
	"fazaachat/pkg/logger"
)

type firestoreConversationRepository struct {
	client *firestore.Client
}

func NewFirestoreConversationRepository(client *firestore.Client) repository.ConversationRepository {
	return &firestoreConversationRepository{
		client: client,
	}
}

func (r *firestoreConversationRepository) Create(ctx context.Context, conversation *entity.Conversation) error {
	data := conversation.Record()
	data["activeParticipants"] = []string{}

	_, err := r.client.Collection(conversationsCollection).Doc(conversation.ID).Create(ctx, data)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return errors.Conflict("Conversation already exists")
		}
		return errors.Internal("Failed to create conversation", err)
	}
	return nil
}

func (r *firestoreConversationRepository) GetByID(ctx context.Context, id string) (*entity.Conversation, error) {
	doc, err := r.client.Collection(conversationsCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Conversation", nil)
		}
		return nil, errors.Internal("Failed to get conversation", err)
	}

	conv, ok := entity.ParseConversation(doc.Ref.ID, doc.Data())
	if !ok {
		return nil, errors.Malformed("Conversation", nil)
	}
	return conv, nil
}

// ListByUserID merges the conversations the user started with the ones
// addressed to them.
func (r *firestoreConversationRepository) ListByUserID(ctx context.Context, userID string) ([]*entity.Conversation, error) {
	seen := make(map[string]bool)
	var out []*entity.Conversation

	for _, field := range []string{"senderId", "receiverId"} {
		iter := r.client.Collection(conversationsCollection).Where(field, "==", userID).Documents(ctx)
		for {
			doc, err := iter.Next()
			if err == iterator.Done {
				break
			}
			if err != nil {
				iter.Stop()
				logger.Error("Firestore error while listing conversations for user %s: %v", userID, err)
				return nil, errors.Internal("Failed to list conversations", err)
			}
			if seen[doc.Ref.ID] {
				continue
			}
			conv, ok := entity.ParseConversation(doc.Ref.ID, doc.Data())
			if !ok {
				logger.Debug("Skipping malformed conversation %s", doc.Ref.ID)
				continue
			}
			seen[doc.Ref.ID] = true
			out = append(out, conv)
		}
		iter.Stop()
	}

	sortByLastMessage(out)
	return out, nil
}

func (r *firestoreConversationRepository) SetActive(ctx context.Context, conversationID, userID string, active bool) error {
	var value interface{} = firestore.ArrayRemove(userID)
	if active {
		value = firestore.ArrayUnion(userID)
	}

	_, err := r.client.Collection(conversationsCollection).Doc(conversationID).Update(ctx, []firestore.Update{
		{Path: "activeParticipants", Value: value},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return errors.NotFound("Conversation", err)
		}
		return errors.Internal("Failed to update active participants", err)
	}
	return nil
}
