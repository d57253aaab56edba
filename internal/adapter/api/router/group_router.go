package router

import (
	"github.com/labstack/echo/v4"

	"bunkmate/internal/adapter/api/handler"
	"bunkmate/internal/adapter/api/middleware"
	"bunkmate/internal/infrastructure/ratelimit"
	"bunkmate/internal/usecase"
)

func SetupGroupRouter(e *echo.Echo, groupHandler *handler.GroupHandler, authMiddleware *middleware.AuthMiddleware, limiter usecase.RateLimiter) {
	groups := e.Group("/v1/groups")
	groups.Use(authMiddleware.Authenticate)

	groups.POST("", groupHandler.CreateGroup)
	groups.GET("", groupHandler.ListGroups)
	groups.GET("/:id", groupHandler.GetGroup)
	groups.PATCH("/:id", groupHandler.UpdateGroup)
	groups.PUT("/:id/icon", groupHandler.UploadIcon)
	groups.PUT("/:id/permissions", groupHandler.SetPermission)
	groups.GET("/:id/invite-link", groupHandler.GetInviteLink)

	groups.POST("/:id/members", groupHandler.AddMembers)
	groups.DELETE("/:id/members/:userId", groupHandler.RemoveMember)
	groups.PUT("/:id/admins/:userId", groupHandler.SetAdmin)
	groups.POST("/:id/leave", groupHandler.ExitGroup)

	groups.GET("/:id/messages", groupHandler.GetMessages)
	groups.POST("/:id/messages", groupHandler.SendMessage)
	groups.PATCH("/:id/messages/:messageId", groupHandler.EditMessage)
	groups.DELETE("/:id/messages/:messageId", groupHandler.DeleteMessage)
	groups.PUT("/:id/messages/:messageId/reactions", groupHandler.React)
	groups.DELETE("/:id/messages/:messageId/reactions", groupHandler.Unreact)

	invite := e.Group("/v1/group-invite")
	invite.Use(authMiddleware.Authenticate)
	invite.POST("/:id", groupHandler.JoinViaInvite, middleware.RateLimit(limiter, ratelimit.ActionJoinInvite))
}
