package router

import (
	"github.com/labstack/echo/v4"

	"bunkmate/internal/adapter/api/handler"
	"bunkmate/internal/adapter/api/middleware"
	"bunkmate/internal/infrastructure/metrics"
	"bunkmate/internal/usecase"
)

// Options carries what the routers need besides the handlers.
type Options struct {
	Auth    *middleware.AuthMiddleware
	Limiter usecase.RateLimiter
	Metrics *metrics.Metrics
	// DevTokens mounts /_dev/token; only set for the memory store.
	DevTokens bool
}

func Setup(e *echo.Echo, h handler.Handlers, opts Options) {
	SetupChatRouter(e, h.Chat, opts.Auth)
	SetupGroupRouter(e, h.Group, opts.Auth, opts.Limiter)
	SetupUserRouter(e, h.User, h.Device, opts.Auth)
	SetupWebSocketRouter(e, h.WebSocket, opts.Auth, opts.Limiter)
	SetupHealthRouter(e, h.Health, opts.Metrics)
	if opts.DevTokens {
		SetupDevRouter(e, handler.NewDevTokenHandler())
	}
}
