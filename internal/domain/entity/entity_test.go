package entity

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounterpart(t *testing.T) {
	conv := &Conversation{SenderID: "u1", ReceiverID: "u2"}
	assert.Equal(t, "u2", conv.Counterpart("u1"))
	assert.Equal(t, "u1", conv.Counterpart("u2"))
}

func TestHasParticipant(t *testing.T) {
	conv := &Conversation{SenderID: "u1", ReceiverID: "u2"}
	assert.True(t, conv.HasParticipant("u1"))
	assert.True(t, conv.HasParticipant("u2"))
	assert.False(t, conv.HasParticipant("u3"))
	assert.False(t, conv.HasParticipant(""))
}

func TestCloneIsDeep(t *testing.T) {
	conv := &Conversation{ID: "c1", ActiveParticipants: []string{"u1"}}
	cp := conv.Clone()
	cp.ActiveParticipants[0] = "changed"
	assert.Equal(t, "u1", conv.ActiveParticipants[0])

	var nilConv *Conversation
	assert.Nil(t, nilConv.Clone())
}

func TestParseMessage(t *testing.T) {
	msg, ok := ParseMessage(RawRecord{Key: "k1", Fields: map[string]interface{}{
		"message":     "hello",
		"senderId":    "u1",
		"messageDate": float64(100),
	}})
	require.True(t, ok)
	assert.Equal(t, Message{ID: "k1", Message: "hello", SenderID: "u1", MessageDate: 100}, msg)

	msg, ok = ParseMessage(RawRecord{Key: "k1", Fields: Message{ID: "m1", Message: "", SenderID: "u1", MessageDate: 5}.Record()})
	require.True(t, ok, "empty text is still a message")
	assert.Equal(t, "m1", msg.ID)
}

func TestParseMessageRejectsMalformed(t *testing.T) {
	cases := map[string]map[string]interface{}{
		"nil fields":       nil,
		"missing message":  {"senderId": "u1", "messageDate": 1},
		"numeric message":  {"message": 7, "senderId": "u1", "messageDate": 1},
		"missing sender":   {"message": "x", "messageDate": 1},
		"empty sender":     {"message": "x", "senderId": "", "messageDate": 1},
		"string date":      {"message": "x", "senderId": "u1", "messageDate": "1"},
		"missing date":     {"message": "x", "senderId": "u1"},
		"no id and no key": {"message": "x", "senderId": "u1", "messageDate": 1},
	}
	for name, fields := range cases {
		t.Run(name, func(t *testing.T) {
			_, ok := ParseMessage(RawRecord{Fields: fields})
			assert.False(t, ok)
		})
	}
}

func TestAsInt64(t *testing.T) {
	for _, v := range []interface{}{int(3), int32(3), int64(3), float64(3), json.Number("3"), json.Number("3.0")} {
		n, ok := AsInt64(v)
		assert.True(t, ok, "%T", v)
		assert.Equal(t, int64(3), n)
	}
	for _, v := range []interface{}{nil, "3", true, math.NaN(), json.Number("abc")} {
		_, ok := AsInt64(v)
		assert.False(t, ok, "%v", v)
	}
}

func TestParseConversation(t *testing.T) {
	conv, ok := ParseConversation("c1", map[string]interface{}{
		"chatEnabled":        true,
		"lastMessage":        "hi",
		"lastMessageDate":    int64(9),
		"senderId":           "u1",
		"receiverId":         "u2",
		"activeParticipants": map[string]interface{}{"u1": true, "u2": false},
	})
	require.True(t, ok)
	assert.True(t, conv.ChatEnabled)
	assert.Equal(t, int64(9), conv.LastMessageDate)
	assert.Equal(t, []string{"u1"}, conv.ActiveParticipants)

	conv, ok = ParseConversation("c1", map[string]interface{}{
		"senderId":           "u1",
		"receiverId":         "u2",
		"activeParticipants": []interface{}{"u2", 4},
	})
	require.True(t, ok)
	assert.False(t, conv.ChatEnabled)
	assert.Equal(t, []string{"u2"}, conv.ActiveParticipants)

	_, ok = ParseConversation("c1", map[string]interface{}{"senderId": "u1"})
	assert.False(t, ok)
}

func TestParseDirectoryEntry(t *testing.T) {
	entry, ok := ParseDirectoryEntry("u2", map[string]interface{}{
		"fcmToken":   "tok2",
		"online":     true,
		"lastOnline": float64(50),
	})
	require.True(t, ok)
	assert.Equal(t, &DirectoryEntry{UserID: "u2", FCMToken: "tok2", Online: true, LastOnline: 50}, entry)

	entry, ok = ParseDirectoryEntry("u3", map[string]interface{}{"name": "Cy"})
	require.True(t, ok)
	assert.Empty(t, entry.FCMToken)

	_, ok = ParseDirectoryEntry("u4", map[string]interface{}{"fcmToken": 1})
	assert.False(t, ok)
	_, ok = ParseDirectoryEntry("u5", nil)
	assert.False(t, ok)
}
