package router

import (
	"github.com/labstack/echo/v4"

	"bunkmate/internal/adapter/api/handler"
	"bunkmate/internal/adapter/api/middleware"
	"bunkmate/internal/infrastructure/ratelimit"
	"bunkmate/internal/usecase"
)

// SetupWebSocketRouter mounts /ws. The token may come from the query string.
func SetupWebSocketRouter(e *echo.Echo, wsHandler *handler.WebSocketHandler, authMiddleware *middleware.AuthMiddleware, limiter usecase.RateLimiter) {
	e.GET("/ws", wsHandler.HandleWebSocket,
		authMiddleware.Authenticate,
		middleware.RateLimit(limiter, ratelimit.ActionConnect),
	)
}
