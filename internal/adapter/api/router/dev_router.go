package router

import (
	"github.com/labstack/echo/v4"

	"bunkmate/internal/adapter/api/handler"
)

func SetupDevRouter(e *echo.Echo, devTokenHandler *handler.DevTokenHandler) {
	e.GET("/_dev/token", devTokenHandler.GenerateToken)
}
