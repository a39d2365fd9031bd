package router

import (
	"github.com/labstack/echo/v4"

	"fazaachat/internal/adapter/api/handler"
)

func SetupHealthRouter(e *echo.Echo, healthHandler *handler.HealthHandler, metrics echo.HandlerFunc) {
	e.GET("/health", healthHandler.CheckHealth)
	if metrics != nil {
		e.GET("/metrics", metrics)
	}
}
