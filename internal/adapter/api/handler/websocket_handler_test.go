package handler

import (
	"context"
	"errors"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fazaachat/internal/adapter/repository"
	"fazaachat/internal/domain/entity"
	"fazaachat/internal/domain/service"
	"fazaachat/internal/infrastructure/notification"
	ws "fazaachat/internal/infrastructure/websocket"
	"fazaachat/internal/usecase"
)

func newWebSocketServer(t *testing.T, manager *ws.Manager) (*httptest.Server, *repository.MemoryStore) {
	t.Helper()
	store := repository.NewMemoryStore()
	require.NoError(t, store.Conversations().Create(context.Background(), &entity.Conversation{
		ID: "c1", ChatEnabled: true, SenderID: "u1", ReceiverID: "u2",
	}))
	tracker := service.NewTypingTracker(store.Typing(), time.Second, nil)
	t.Cleanup(func() { tracker.Close(context.Background()) })

	chat := usecase.NewChatUseCase(usecase.SessionDeps{
		Messages:      service.NewMessageStore(store.Messages(), nil),
		Conversations: store.Conversations(),
		Typing:        tracker,
		Dispatcher:    service.NewNotificationDispatcher(notification.LogNotifier{}, service.NewDirectoryLookup(store.Directory()), time.Second, nil),
	}, nil)
	h := NewWebSocketHandler(manager, chat)

	e := echo.New()
	e.GET("/ws/conversations/:id", func(c echo.Context) error {
		c.Set("uid", c.QueryParam("uid"))
		return h.HandleWebSocket(c)
	})
	server := httptest.NewServer(e)
	t.Cleanup(server.Close)
	return server, store
}

func dial(t *testing.T, server *httptest.Server, uid string) *gorillaws.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/conversations/c1?uid=" + uid
	conn, _, err := gorillaws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func activeParticipants(store *repository.MemoryStore) []string {
	conv, err := store.Conversations().GetByID(context.Background(), "c1")
	if err != nil {
		return nil
	}
	return conv.ActiveParticipants
}

func TestWebSocketStreamsSessionState(t *testing.T) {
	manager := ws.NewManager(nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	manager.Start(ctx)
	server, store := newWebSocketServer(t, manager)

	conn := dial(t, server, "u1")
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var frame struct {
		Type string               `json:"type"`
		Data usecase.SessionState `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, ws.MessageTypeState, frame.Type)
	assert.Equal(t, "c1", frame.Data.ConversationID)
	assert.Equal(t, []string{"u1"}, activeParticipants(store))
}

func TestWebSocketAfterShutdownReleasesSession(t *testing.T) {
	manager := ws.NewManager(nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	manager.Start(ctx)
	cancel()
	<-manager.Stopped()
	server, store := newWebSocketServer(t, manager)

	conn := dial(t, server, "u1")
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.False(t, errors.Is(err, os.ErrDeadlineExceeded), "connection must be closed, not left open")

	assert.Eventually(t, func() bool { return len(activeParticipants(store)) == 0 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, manager.ClientCount())
}
