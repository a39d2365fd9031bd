package repository

import (
	"context"
	"time"

	"firebase.google.com/go/v4/db"

	"fazaachat/internal/domain/repository"
	"fazaachat/pkg/errors"
)

type rtdbTypingRepository struct {
	client   *db.Client
	interval time.Duration
}

func NewRTDBTypingRepository(client *db.Client, pollInterval time.Duration) repository.TypingRepository {
	return &rtdbTypingRepository{
		client:   client,
		interval: pollInterval,
	}
}

func typingPath(conversationID, userID string) string {
	return typingCollection + "/" + conversationID + "/" + userID
}

func (r *rtdbTypingRepository) SetTyping(ctx context.Context, conversationID, userID string, typing bool) error {
	if err := r.client.NewRef(typingPath(conversationID, userID)).Set(ctx, typing); err != nil {
		return errors.Internal("Failed to update typing status", err)
	}
	return nil
}

func (r *rtdbTypingRepository) Watch(ctx context.Context, conversationID, userID string) (<-chan bool, error) {
	ref := r.client.NewRef(typingPath(conversationID, userID))

	out := make(chan bool, 1)
	go func() {
		defer close(out)
		watchRef(ctx, ref, r.interval, func(value interface{}) bool {
			typing, _ := value.(bool)
			return sendLatest(ctx, out, typing)
		})
	}()
	return out, nil
}
