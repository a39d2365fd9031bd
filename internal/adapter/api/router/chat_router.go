package router

import (
	"github.com/labstack/echo/v4"

	"fazaachat/internal/adapter/api/handler"
	"fazaachat/internal/adapter/api/middleware"
)

// SetupChatRouter sets up the REST conversation routes
func SetupChatRouter(e *echo.Echo, chatHandler *handler.ChatHandler, authMiddleware *middleware.AuthMiddleware) {
	chatGroup := e.Group("/v1/conversations")
	chatGroup.Use(authMiddleware.Authenticate)

	chatGroup.POST("", chatHandler.CreateConversation)       // POST /v1/conversations - Open chat for an order
	chatGroup.GET("", chatHandler.ListConversations)         // GET /v1/conversations - Caller's conversations
	chatGroup.GET("/:id", chatHandler.GetConversation)       // GET /v1/conversations/:id - Conversation metadata
	chatGroup.GET("/:id/messages", chatHandler.GetMessages)  // GET /v1/conversations/:id/messages - Ordered messages
	chatGroup.POST("/:id/messages", chatHandler.SendMessage) // POST /v1/conversations/:id/messages - Send message
}
