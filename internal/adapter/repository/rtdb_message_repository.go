package repository

import (
	"context"
	"sort"
	"time"

	"firebase.google.com/go/v4/db"

	"fazaachat/internal/domain/entity"
	"fazaachat/internal/domain/repository"
	"fazaachat/pkg/errors"
	"fazaachat/pkg/logger"
)

type rtdbMessageRepository struct {
	client   *db.Client
	interval time.Duration
}

func NewRTDBMessageRepository(client *db.Client, pollInterval time.Duration) repository.MessageRepository {
	return &rtdbMessageRepository{
		client:   client,
		interval: pollInterval,
	}
}

func conversationPath(conversationID string) string {
	return conversationsCollection + "/" + conversationID
}

func (r *rtdbMessageRepository) Watch(ctx context.Context, conversationID string) (<-chan []entity.RawRecord, error) {
	ref := r.client.NewRef(conversationPath(conversationID) + "/" + messagesSubcollection)

	out := make(chan []entity.RawRecord, 1)
	go func() {
		defer close(out)
		watchRef(ctx, ref, r.interval, func(value interface{}) bool {
			return sendLatest(ctx, out, rtdbRecords(value))
		})
	}()
	return out, nil
}

// rtdbRecords flattens a messagesList node into records in key order.
// Children that are not objects become records without fields.
func rtdbRecords(value interface{}) []entity.RawRecord {
	children, _ := value.(map[string]interface{})
	keys := make([]string, 0, len(children))
	for k := range children {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	records := make([]entity.RawRecord, 0, len(keys))
	for _, k := range keys {
		fields, _ := children[k].(map[string]interface{})
		records = append(records, entity.RawRecord{Key: k, Fields: fields})
	}
	return records
}

// Append writes the message and the last-message fields in one multi-path
// update.
func (r *rtdbMessageRepository) Append(ctx context.Context, conversationID string, message entity.Message) error {
	base := conversationPath(conversationID)

	var sender string
	if err := r.client.NewRef(base+"/senderId").Get(ctx, &sender); err != nil {
		return errors.Internal("Failed to read conversation", err)
	}
	if sender == "" {
		return errors.NotFound("Conversation", nil)
	}

	msgPath := base + "/" + messagesSubcollection + "/" + message.ID
	var existing map[string]interface{}
	if err := r.client.NewRef(msgPath).Get(ctx, &existing); err != nil {
		return errors.Internal("Failed to read message", err)
	}
	if existing != nil {
		return nil
	}

	err := r.client.NewRef("/").Update(ctx, map[string]interface{}{
		msgPath:                   message.Record(),
		base + "/lastMessage":     message.Message,
		base + "/lastMessageDate": message.MessageDate,
	})
	if err != nil {
		logger.Error("RTDB error while appending message to conversation %s: %v", conversationID, err)
		return errors.Internal("Failed to append message", err)
	}
	return nil
}
