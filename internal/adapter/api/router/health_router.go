package router

import (
	"github.com/labstack/echo/v4"

	"bunkmate/internal/adapter/api/handler"
	"bunkmate/internal/infrastructure/metrics"
)

func SetupHealthRouter(e *echo.Echo, healthHandler *handler.HealthHandler, m *metrics.Metrics) {
	e.GET("/health", healthHandler.CheckHealth)
	if m != nil {
		e.GET("/metrics", echo.WrapHandler(m.Handler()))
	}
}
