package websocket

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"

	"fazaachat/internal/infrastructure/ratelimit"
	"fazaachat/pkg/errors"
	"fazaachat/pkg/logger"
)

// WebSocket Message Types
const (
	MessageTypePing        = "ping"
	MessageTypePong        = "pong"
	MessageTypeSendMessage = "send_message"
	MessageTypeMessageSent = "message_sent"
	MessageTypeDraft       = "draft"
	MessageTypeTypingStop  = "typing_stop"
	MessageTypeState       = "state"
	MessageTypeError       = "error"
)

const operationTimeout = 10 * time.Second

var validate = validator.New()

// WSMessage is a server frame.
type WSMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp string      `json:"timestamp"`
}

// ClientMessage is a frame sent by the client.
type ClientMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type SendMessageData struct {
	Message string `json:"message" validate:"max=4000"`
}

type DraftData struct {
	Text string `json:"text"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// HandleClientMessage decodes one client frame and applies it to the
// client's session.
func (m *Manager) HandleClientMessage(client *Client, messageBytes []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(messageBytes, &msg); err != nil {
		logger.Debug("WebSocket: failed to unmarshal message from client %s: %v", client.UserID, err)
		m.sendError(client, errors.BadRequest("Invalid message format", err))
		return
	}

	switch msg.Type {
	case MessageTypePing:
		client.Push(WSMessage{Type: MessageTypePong, Data: map[string]string{"status": "alive"}})

	case MessageTypeSendMessage:
		m.handleSendMessage(client, msg.Data)

	case MessageTypeDraft:
		m.handleDraft(client, msg.Data)

	case MessageTypeTypingStop:
		ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
		defer cancel()
		if err := client.Session.StopTyping(ctx); err != nil {
			m.sendError(client, err)
		}

	default:
		logger.Debug("WebSocket: unknown message type '%s' from client %s", msg.Type, client.UserID)
		m.sendError(client, errors.BadRequest("Unknown message type", nil))
	}
}

func (m *Manager) handleSendMessage(client *Client, raw json.RawMessage) {
	var data SendMessageData
	if err := json.Unmarshal(raw, &data); err != nil {
		m.sendError(client, errors.BadRequest("Invalid send message format", err))
		return
	}
	if err := validate.Struct(&data); err != nil {
		m.sendError(client, errors.BadRequest("message must be at most 4000 characters", err))
		return
	}
	if !m.allow(client, ratelimit.ActionSendMessage) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	sent, err := client.Session.Send(ctx, data.Message)
	if err != nil {
		m.sendError(client, err)
		return
	}
	if sent != nil {
		client.Push(WSMessage{Type: MessageTypeMessageSent, Data: sent})
	}
}

func (m *Manager) handleDraft(client *Client, raw json.RawMessage) {
	var data DraftData
	if err := json.Unmarshal(raw, &data); err != nil {
		m.sendError(client, errors.BadRequest("Invalid draft format", err))
		return
	}
	if !m.allow(client, ratelimit.ActionTyping) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()
	if err := client.Session.SetDraft(ctx, data.Text); err != nil {
		m.sendError(client, err)
	}
}

func (m *Manager) allow(client *Client, action string) bool {
	if m.limiter == nil {
		return true
	}
	ok, wait := m.limiter.Allow(client.UserID, action)
	if !ok {
		m.metrics.Limited(action)
		m.sendError(client, errors.TooManyRequests("Rate limit exceeded, retry in "+wait.Round(100*time.Millisecond).String()))
	}
	return ok
}

func (m *Manager) sendError(client *Client, err error) {
	data := ErrorData{Code: "INTERNAL_ERROR", Message: "Internal server error"}
	if appErr, ok := err.(*errors.AppError); ok {
		data = ErrorData{Code: appErr.Code, Message: appErr.Message}
	} else {
		logger.Error("WebSocket: request from %s failed: %v", client.UserID, err)
	}
	client.Push(WSMessage{Type: MessageTypeError, Data: data})
}
