package repository

import (
	"context"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"fazaachat/internal/domain/entity"
	"fazaachat/internal/domain/repository"
	"fazaachat/pkg/errors"
	"fazaachat/pkg/logger"
)

const (
	conversationsCollection = "messages"
	messagesSubcollection   = "messagesList"
)

type firestoreMessageRepository struct {
	client *firestore.Client
}

func NewFirestoreMessageRepository(client *firestore.Client) repository.MessageRepository {
	return &firestoreMessageRepository{
		client: client,
	}
}

func (r *firestoreMessageRepository) list(conversationID string) *firestore.CollectionRef {
	return r.client.Collection(conversationsCollection).Doc(conversationID).Collection(messagesSubcollection)
}

func (r *firestoreMessageRepository) Watch(ctx context.Context, conversationID string) (<-chan []entity.RawRecord, error) {
	it := r.list(conversationID).OrderBy(firestore.DocumentID, firestore.Asc).Snapshots(ctx)

	out := make(chan []entity.RawRecord, 1)
	go func() {
		defer close(out)
		defer it.Stop()
		for {
			snap, err := it.Next()
			if err != nil {
				if ctx.Err() == nil && status.Code(err) != codes.Canceled {
					logger.Error("Firestore message listener for conversation %s stopped: %v", conversationID, err)
				}
				return
			}
			docs, err := snap.Documents.GetAll()
			if err != nil {
				logger.Error("Firestore error while reading message snapshot for conversation %s: %v", conversationID, err)
				return
			}
			records := make([]entity.RawRecord, 0, len(docs))
			for _, doc := range docs {
				records = append(records, entity.RawRecord{Key: doc.Ref.ID, Fields: doc.Data()})
			}
			if !sendLatest(ctx, out, records) {
				return
			}
		}
	}()
	return out, nil
}

// Append writes the message and the conversation's last-message fields in
// one transaction.
func (r *firestoreMessageRepository) Append(ctx context.Context, conversationID string, message entity.Message) error {
	convRef := r.client.Collection(conversationsCollection).Doc(conversationID)
	msgRef := r.list(conversationID).Doc(message.ID)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(convRef); err != nil {
			if status.Code(err) == codes.NotFound {
				return errors.NotFound("Conversation", err)
			}
			return err
		}
		existing, err := tx.Get(msgRef)
		if err != nil && status.Code(err) != codes.NotFound {
			return err
		}
		if existing != nil && existing.Exists() {
			return nil
		}

		if err := tx.Create(msgRef, message.Record()); err != nil {
			return err
		}
		return tx.Update(convRef, []firestore.Update{
			{Path: "lastMessage", Value: message.Message},
			{Path: "lastMessageDate", Value: message.MessageDate},
		})
	})
	if err != nil {
		if _, ok := err.(*errors.AppError); ok {
			return err
		}
		logger.Error("Firestore error while appending message to conversation %s: %v", conversationID, err)
		return errors.Internal("Failed to append message", err)
	}
	return nil
}
