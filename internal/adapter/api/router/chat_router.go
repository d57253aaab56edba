package router

import (
	"github.com/labstack/echo/v4"

	"bunkmate/internal/adapter/api/handler"
	"bunkmate/internal/adapter/api/middleware"
)

// SetupChatRouter mounts the direct chat routes.
func SetupChatRouter(e *echo.Echo, chatHandler *handler.ChatHandler, authMiddleware *middleware.AuthMiddleware) {
	chats := e.Group("/v1/chats")
	chats.Use(authMiddleware.Authenticate)

	chats.GET("", chatHandler.GetUserChats)
	chats.POST("/messages", chatHandler.SendMessage)
	chats.GET("/:id", chatHandler.GetChatByID)
	chats.PUT("/:id/read", chatHandler.MarkChatAsRead)

	chats.GET("/:id/messages", chatHandler.GetChatMessages)
	chats.PATCH("/:id/messages/:messageId", chatHandler.EditMessage)
	chats.DELETE("/:id/messages/:messageId", chatHandler.DeleteMessage)
	chats.PUT("/:id/messages/:messageId/reactions", chatHandler.React)
	chats.DELETE("/:id/messages/:messageId/reactions", chatHandler.Unreact)
}
