package router

import (
	"github.com/labstack/echo/v4"

	"fazaachat/internal/adapter/api/handler"
	"fazaachat/internal/adapter/api/middleware"
)

// Handlers groups everything the routes dispatch to.
type Handlers struct {
	Chat      *handler.ChatHandler
	WebSocket *handler.WebSocketHandler
	Health    *handler.HealthHandler
	Metrics   echo.HandlerFunc

	// Limiter throttles websocket handshakes; nil disables it.
	Limiter middleware.Limiter
}

func Setup(e *echo.Echo, h Handlers, authMiddleware *middleware.AuthMiddleware) {
	SetupChatRouter(e, h.Chat, authMiddleware)
	SetupWebSocketRouter(e, h.WebSocket, authMiddleware, h.Limiter)
	SetupHealthRouter(e, h.Health, h.Metrics)
}
