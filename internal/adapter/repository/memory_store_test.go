package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fazaachat/internal/domain/entity"
	"fazaachat/pkg/errors"
)

func seed(t *testing.T, s *MemoryStore, id string, date int64) {
	t.Helper()
	require.NoError(t, s.Conversations().Create(context.Background(), &entity.Conversation{
		ID: id, ChatEnabled: true, SenderID: "u1", ReceiverID: "u2", LastMessageDate: date,
	}))
}

func TestMemoryAppendUpdatesMetadata(t *testing.T) {
	s := NewMemoryStore()
	seed(t, s, "c1", 0)
	ctx := context.Background()

	require.NoError(t, s.Messages().Append(ctx, "c1", entity.Message{ID: "m1", Message: "hello", SenderID: "u1", MessageDate: 100}))
	conv, err := s.Conversations().GetByID(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "hello", conv.LastMessage)
	assert.Equal(t, int64(100), conv.LastMessageDate)

	err = s.Messages().Append(ctx, "missing", entity.Message{ID: "m1", Message: "x", SenderID: "u1"})
	assert.True(t, errors.Is(err, "NOT_FOUND"))
}

func TestMemoryWatchReplaysThenStreams(t *testing.T) {
	s := NewMemoryStore()
	seed(t, s, "c1", 0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := s.Messages().Watch(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, <-ch)

	require.NoError(t, s.Messages().Append(ctx, "c1", entity.Message{ID: "b", Message: "1", SenderID: "u1", MessageDate: 1}))
	require.NoError(t, s.Messages().Append(ctx, "c1", entity.Message{ID: "a", Message: "2", SenderID: "u2", MessageDate: 2}))

	var last []entity.RawRecord
	require.Eventually(t, func() bool {
		select {
		case last = <-ch:
		default:
		}
		return len(last) == 2
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "b", last[0].Key, "records keep insertion order")
	assert.Equal(t, "a", last[1].Key)
}

func TestMemoryCreateRejectsDuplicates(t *testing.T) {
	s := NewMemoryStore()
	seed(t, s, "c1", 0)
	err := s.Conversations().Create(context.Background(), &entity.Conversation{ID: "c1", SenderID: "x", ReceiverID: "y"})
	assert.True(t, errors.Is(err, "CONFLICT"))
}

func TestMemoryListAndActive(t *testing.T) {
	s := NewMemoryStore()
	seed(t, s, "old", 10)
	seed(t, s, "new", 20)
	ctx := context.Background()

	list, err := s.Conversations().ListByUserID(ctx, "u2")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "new", list[0].ID)

	list, err = s.Conversations().ListByUserID(ctx, "u3")
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, s.Conversations().SetActive(ctx, "old", "u1", true))
	require.NoError(t, s.Conversations().SetActive(ctx, "old", "u1", true))
	conv, _ := s.Conversations().GetByID(ctx, "old")
	assert.Equal(t, []string{"u1"}, conv.ActiveParticipants)

	require.NoError(t, s.Conversations().SetActive(ctx, "old", "u1", false))
	conv, _ = s.Conversations().GetByID(ctx, "old")
	assert.Empty(t, conv.ActiveParticipants)
}

func TestMemoryDirectory(t *testing.T) {
	s := NewMemoryStore()
	s.PutUser("u2", map[string]interface{}{"fcmToken": "tok2"})
	s.PutUser("bad", map[string]interface{}{"online": "yes"})
	ctx := context.Background()

	entry, err := s.Directory().GetByID(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, "tok2", entry.FCMToken)

	_, err = s.Directory().GetByID(ctx, "nobody")
	assert.True(t, errors.Is(err, "NOT_FOUND"))
	_, err = s.Directory().GetByID(ctx, "bad")
	assert.True(t, errors.Is(err, "MALFORMED_RECORD"))
}

func TestRTDBRecordsSortsKeysAndKeepsMalformedChildren(t *testing.T) {
	records := rtdbRecords(map[string]interface{}{
		"k2": map[string]interface{}{"message": "b"},
		"k1": map[string]interface{}{"message": "a"},
		"k3": "not an object",
	})
	require.Len(t, records, 3)
	assert.Equal(t, "k1", records[0].Key)
	assert.Equal(t, "k2", records[1].Key)
	assert.Nil(t, records[2].Fields)

	assert.Empty(t, rtdbRecords(nil))
}

func TestSendLatestReplacesPending(t *testing.T) {
	out := make(chan int, 1)
	ctx := context.Background()
	assert.True(t, sendLatest(ctx, out, 1))
	assert.True(t, sendLatest(ctx, out, 2))
	assert.Equal(t, 2, <-out)
}

func TestRedisTypingKey(t *testing.T) {
	assert.Equal(t, "typingStatus:c1:u1", typingKeyRedis("c1", "u1"))
	assert.Equal(t, "1", encodeTyping(true))
	assert.Equal(t, "0", encodeTyping(false))
}
