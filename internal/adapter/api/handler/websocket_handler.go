package handler

import (
	"net/http"

	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	ws "fazaachat/internal/infrastructure/websocket"
	"fazaachat/internal/usecase"
	"fazaachat/pkg/errors"
	"fazaachat/pkg/logger"
	"fazaachat/pkg/response"
)

type WebSocketHandler struct {
	wsManager   *ws.Manager
	chatUseCase *usecase.ChatUseCase
	upgrader    gorillaws.Upgrader
}

func NewWebSocketHandler(wsManager *ws.Manager, chatUseCase *usecase.ChatUseCase) *WebSocketHandler {
	return &WebSocketHandler{
		wsManager:   wsManager,
		chatUseCase: chatUseCase,
		upgrader: gorillaws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// HandleWebSocket opens a chat session for the caller and streams its
// state over the connection until either side goes away.
func (h *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	session, err := currentSession(c)
	if err != nil {
		return response.Error(c, err)
	}
	conversationID := c.Param("id")

	chat, err := h.chatUseCase.OpenSession(c.Request().Context(), session, conversationID)
	if err != nil {
		return response.Error(c, err)
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		chat.Close()
		logger.Warn("WebSocket: upgrade failed for user %s: %v", session.CurrentUserID, err)
		return errors.Internal("Failed to upgrade connection", err)
	}

	client := ws.NewClient(session.CurrentUserID, conversationID, conn, chat)
	if !h.wsManager.Add(client) {
		logger.Warn("WebSocket: rejecting user %s, server is shutting down", session.CurrentUserID)
		chat.Close()
		conn.Close()
		return nil
	}

	go forwardStates(chat, client)
	go client.ReadPump(h.wsManager)
	go client.WritePump()

	return nil
}

// forwardStates pushes every session snapshot to the client.
func forwardStates(chat *usecase.ChatSession, client *ws.Client) {
	states, cancel := chat.Subscribe()
	defer cancel()

	for {
		select {
		case state, ok := <-states:
			if !ok {
				return
			}
			if !client.Push(ws.WSMessage{Type: ws.MessageTypeState, Data: state}) {
				return
			}
		case <-client.Done():
			return
		}
	}
}
