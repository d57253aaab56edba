package router

import (
	"github.com/labstack/echo/v4"

	"bunkmate/internal/adapter/api/handler"
	"bunkmate/internal/adapter/api/middleware"
)

func SetupUserRouter(e *echo.Echo, userHandler *handler.UserHandler, deviceHandler *handler.DeviceHandler, authMiddleware *middleware.AuthMiddleware) {
	users := e.Group("/v1/users")
	users.Use(authMiddleware.Authenticate)

	users.GET("/me", userHandler.GetProfile)
	users.PUT("/me/nicknames/:friendId", userHandler.SetNickname)
	users.DELETE("/me/friends/:friendId", userHandler.RemoveFriend)

	devices := e.Group("/v1/devices")
	devices.Use(authMiddleware.Authenticate)

	devices.PUT("", deviceHandler.RegisterDevice)
	devices.DELETE("", deviceHandler.UnregisterDevice)
}
