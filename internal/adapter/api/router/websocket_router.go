package router

import (
	"github.com/labstack/echo/v4"

	"fazaachat/internal/adapter/api/handler"
	"fazaachat/internal/adapter/api/middleware"
	"fazaachat/internal/infrastructure/ratelimit"
)

// SetupWebSocketRouter sets up the live session route
func SetupWebSocketRouter(e *echo.Echo, wsHandler *handler.WebSocketHandler, authMiddleware *middleware.AuthMiddleware, limiter middleware.Limiter) {
	mws := []echo.MiddlewareFunc{authMiddleware.AuthenticateWebSocket}
	if limiter != nil {
		mws = append(mws, middleware.RateLimit(limiter, ratelimit.ActionConnect))
	}
	e.GET("/ws/conversations/:id", wsHandler.HandleWebSocket, mws...)
}
