package websocket

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fazaachat/internal/domain/entity"
	"fazaachat/internal/infrastructure/ratelimit"
	"fazaachat/pkg/errors"
)

type fakeSession struct {
	sent    []string
	drafts  []string
	stopped int
	closed  int
	sendErr error
}

func (f *fakeSession) Send(ctx context.Context, text string) (*entity.Message, error) {
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.sent = append(f.sent, text)
	return &entity.Message{ID: "m1", Message: text, SenderID: "u1", MessageDate: 100}, nil
}

func (f *fakeSession) SetDraft(ctx context.Context, text string) error {
	f.drafts = append(f.drafts, text)
	return nil
}

func (f *fakeSession) StopTyping(ctx context.Context) error {
	f.stopped++
	return nil
}

func (f *fakeSession) Close() error {
	f.closed++
	return nil
}

type frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func nextFrame(t *testing.T, c *Client) frame {
	t.Helper()
	select {
	case payload := <-c.send:
		var f frame
		require.NoError(t, json.Unmarshal(payload, &f))
		return f
	case <-time.After(time.Second):
		t.Fatal("no frame queued")
		return frame{}
	}
}

func TestHandleSendMessage(t *testing.T) {
	session := &fakeSession{}
	client := NewClient("u1", "c1", nil, session)
	m := NewManager(nil, nil)

	m.HandleClientMessage(client, []byte(`{"type":"send_message","data":{"message":"hello"}}`))

	assert.Equal(t, []string{"hello"}, session.sent)
	f := nextFrame(t, client)
	assert.Equal(t, MessageTypeMessageSent, f.Type)
	var msg entity.Message
	require.NoError(t, json.Unmarshal(f.Data, &msg))
	assert.Equal(t, "hello", msg.Message)
}

func TestHandleSendMessageReportsAppErrors(t *testing.T) {
	session := &fakeSession{sendErr: errors.ChatDisabled("c1")}
	client := NewClient("u1", "c1", nil, session)
	m := NewManager(nil, nil)

	m.HandleClientMessage(client, []byte(`{"type":"send_message","data":{"message":"hello"}}`))

	f := nextFrame(t, client)
	assert.Equal(t, MessageTypeError, f.Type)
	var data ErrorData
	require.NoError(t, json.Unmarshal(f.Data, &data))
	assert.Equal(t, "CHAT_DISABLED", data.Code)
}

func TestHandleDraftAndTypingStop(t *testing.T) {
	session := &fakeSession{}
	client := NewClient("u1", "c1", nil, session)
	m := NewManager(nil, nil)

	m.HandleClientMessage(client, []byte(`{"type":"draft","data":{"text":"hel"}}`))
	m.HandleClientMessage(client, []byte(`{"type":"typing_stop"}`))

	assert.Equal(t, []string{"hel"}, session.drafts)
	assert.Equal(t, 1, session.stopped)
	assert.Empty(t, client.send)
}

func TestHandlePingAndUnknown(t *testing.T) {
	client := NewClient("u1", "c1", nil, &fakeSession{})
	m := NewManager(nil, nil)

	m.HandleClientMessage(client, []byte(`{"type":"ping"}`))
	assert.Equal(t, MessageTypePong, nextFrame(t, client).Type)

	m.HandleClientMessage(client, []byte(`{"type":"join_room"}`))
	assert.Equal(t, MessageTypeError, nextFrame(t, client).Type)

	m.HandleClientMessage(client, []byte(`not json`))
	assert.Equal(t, MessageTypeError, nextFrame(t, client).Type)
}

func TestHandleSendMessageRateLimited(t *testing.T) {
	session := &fakeSession{}
	client := NewClient("u1", "c1", nil, session)
	m := NewManager(ratelimit.NewRateLimiter(0.001, 1), nil)

	m.HandleClientMessage(client, []byte(`{"type":"send_message","data":{"message":"one"}}`))
	nextFrame(t, client)
	m.HandleClientMessage(client, []byte(`{"type":"send_message","data":{"message":"two"}}`))

	f := nextFrame(t, client)
	var data ErrorData
	require.NoError(t, json.Unmarshal(f.Data, &data))
	assert.Equal(t, "TOO_MANY_REQUESTS", data.Code)
	assert.Equal(t, []string{"one"}, session.sent)
}

func TestManagerReleasesSessionOnUnregister(t *testing.T) {
	session := &fakeSession{}
	client := NewClient("u1", "c1", nil, session)
	m := NewManager(nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)

	require.True(t, m.Add(client))
	assert.Eventually(t, func() bool { return m.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	m.Unregister <- client
	select {
	case <-client.Done():
	case <-time.After(time.Second):
		t.Fatal("client not shut down")
	}
	assert.Equal(t, 0, m.ClientCount())
	assert.Equal(t, 1, session.closed)
	assert.False(t, client.Push(WSMessage{Type: MessageTypeState}))
}

func TestHandleSendMessageRejectsOverlongText(t *testing.T) {
	session := &fakeSession{}
	client := NewClient("u1", "c1", nil, session)
	m := NewManager(nil, nil)

	payload, err := json.Marshal(ClientMessage{
		Type: MessageTypeSendMessage,
		Data: json.RawMessage(`{"message":"` + strings.Repeat("a", 4001) + `"}`),
	})
	require.NoError(t, err)
	m.HandleClientMessage(client, payload)

	f := nextFrame(t, client)
	assert.Equal(t, MessageTypeError, f.Type)
	var data ErrorData
	require.NoError(t, json.Unmarshal(f.Data, &data))
	assert.Equal(t, "BAD_REQUEST", data.Code)
	assert.Empty(t, session.sent)

	m.HandleClientMessage(client, []byte(`{"type":"send_message","data":{"message":"`+strings.Repeat("é", 4000)+`"}}`))
	assert.Equal(t, MessageTypeMessageSent, nextFrame(t, client).Type)
}

func TestAddAfterStopReportsFalse(t *testing.T) {
	m := NewManager(nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	m.Start(ctx)
	cancel()
	<-m.Stopped()

	added := make(chan bool, 1)
	go func() { added <- m.Add(NewClient("u1", "c1", nil, &fakeSession{})) }()
	select {
	case ok := <-added:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Add blocked on a stopped manager")
	}
}
