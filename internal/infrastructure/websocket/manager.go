package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"fazaachat/internal/domain/entity"
	"fazaachat/internal/infrastructure/metrics"
	"fazaachat/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
	sendBuffer     = 16
)

// ChatSession is the live session a connection drives.
type ChatSession interface {
	Send(ctx context.Context, text string) (*entity.Message, error)
	SetDraft(ctx context.Context, text string) error
	StopTyping(ctx context.Context) error
	Close() error
}

// Limiter throttles client input per user and action.
type Limiter interface {
	Allow(userID, action string) (bool, time.Duration)
}

// Client is one websocket connection bound to one chat session.
type Client struct {
	UserID         string
	ConversationID string
	Conn           *websocket.Conn
	Session        ChatSession

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func NewClient(userID, conversationID string, conn *websocket.Conn, session ChatSession) *Client {
	return &Client{
		UserID:         userID,
		ConversationID: conversationID,
		Conn:           conn,
		Session:        session,
		send:           make(chan []byte, sendBuffer),
		done:           make(chan struct{}),
	}
}

// Done is closed once the client has been unregistered.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Push queues msg for the write pump. It blocks while the buffer is full
// and reports false once the client is gone.
func (c *Client) Push(msg WSMessage) bool {
	if msg.Timestamp == "" {
		msg.Timestamp = time.Now().Format(time.RFC3339)
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		logger.Error("WebSocket: failed to encode %s frame for %s: %v", msg.Type, c.UserID, err)
		return true
	}
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- payload:
		return true
	case <-c.done:
		return false
	}
}

func (c *Client) shutdown() {
	c.closeOnce.Do(func() { close(c.done) })
}

// Manager tracks connected clients and releases their sessions when they
// leave.
type Manager struct {
	clients    map[*Client]bool
	Register   chan *Client
	Unregister chan *Client
	limiter    Limiter
	metrics    *metrics.Metrics
	mutex      sync.RWMutex
	stopped    chan struct{}
}

func NewManager(limiter Limiter, m *metrics.Metrics) *Manager {
	return &Manager{
		clients:    make(map[*Client]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		limiter:    limiter,
		metrics:    m,
		stopped:    make(chan struct{}),
	}
}

// Start runs the registration loop until ctx is done, then disconnects
// every remaining client.
func (m *Manager) Start(ctx context.Context) {
	go func() {
		defer close(m.stopped)
		for {
			select {
			case client := <-m.Register:
				m.mutex.Lock()
				m.clients[client] = true
				m.mutex.Unlock()
				m.metrics.ClientConnected()
				logger.Info("WebSocket: client registered user=%s conversation=%s", client.UserID, client.ConversationID)

			case client := <-m.Unregister:
				m.remove(client)

			case <-ctx.Done():
				m.mutex.RLock()
				remaining := make([]*Client, 0, len(m.clients))
				for client := range m.clients {
					remaining = append(remaining, client)
				}
				m.mutex.RUnlock()
				for _, client := range remaining {
					m.remove(client)
				}
				return
			}
		}
	}()
}

func (m *Manager) remove(client *Client) {
	m.mutex.Lock()
	_, ok := m.clients[client]
	delete(m.clients, client)
	m.mutex.Unlock()
	if !ok {
		return
	}

	if client.Session != nil {
		client.Session.Close()
	}
	client.shutdown()
	m.metrics.ClientDisconnected()
	logger.Info("WebSocket: client unregistered user=%s conversation=%s", client.UserID, client.ConversationID)
}

// Stopped is closed once Start has disconnected every client after its
// context ended.
func (m *Manager) Stopped() <-chan struct{} {
	return m.stopped
}

// ClientCount returns the number of registered clients.
func (m *Manager) ClientCount() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.clients)
}

// Add registers client with the running manager. It reports false once the
// manager has stopped; the caller then owns the client's session and
// connection.
func (m *Manager) Add(client *Client) bool {
	select {
	case m.Register <- client:
		return true
	case <-m.stopped:
		return false
	}
}

func (m *Manager) unregister(client *Client) {
	select {
	case m.Unregister <- client:
	case <-m.stopped:
	}
}

// ReadPump reads client frames until the connection fails.
func (c *Client) ReadPump(m *Manager) {
	defer func() {
		m.unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("WebSocket: read error from %s: %v", c.UserID, err)
			}
			return
		}
		m.HandleClientMessage(c, message)
	}
}

// WritePump writes queued frames and keeps the connection alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Warn("WebSocket: write error to %s: %v", c.UserID, err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.Conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
