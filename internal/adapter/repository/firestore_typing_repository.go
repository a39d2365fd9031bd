package repository

import (
	"context"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"fazaachat/internal/domain/repository"
	"fazaachat/pkg/errors"
	"fazaachat/pkg/logger"
)

const typingCollection = "typingStatus"

// firestoreTypingRepository keeps one document per conversation with a
// boolean field per participant.
type firestoreTypingRepository struct {
	client *firestore.Client
}

func NewFirestoreTypingRepository(client *firestore.Client) repository.TypingRepository {
	return &firestoreTypingRepository{
		client: client,
	}
}

func (r *firestoreTypingRepository) SetTyping(ctx context.Context, conversationID, userID string, typing bool) error {
	_, err := r.client.Collection(typingCollection).Doc(conversationID).Set(ctx, map[string]interface{}{
		userID: typing,
	}, firestore.MergeAll)
	if err != nil {
		return errors.Internal("Failed to update typing status", err)
	}
	return nil
}

func (r *firestoreTypingRepository) Watch(ctx context.Context, conversationID, userID string) (<-chan bool, error) {
	it := r.client.Collection(typingCollection).Doc(conversationID).Snapshots(ctx)

	out := make(chan bool, 1)
	go func() {
		defer close(out)
		defer it.Stop()
		for {
			snap, err := it.Next()
			if err != nil {
				if ctx.Err() == nil && status.Code(err) != codes.Canceled {
					logger.Error("Firestore typing listener for %s/%s stopped: %v", conversationID, userID, err)
				}
				return
			}
			typing := false
			if snap.Exists() {
				typing, _ = snap.Data()[userID].(bool)
			}
			if !sendLatest(ctx, out, typing) {
				return
			}
		}
	}()
	return out, nil
}
