// Package routes wires the echo route table to the handler set.
package routes

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/tidewave/conductor/cmd/conductor/container"
	"github.com/tidewave/conductor/cmd/conductor/handlers"
	"github.com/tidewave/conductor/cmd/conductor/middleware"
)

// Register installs the middleware chain and every route group
func Register(e *echo.Echo, ct *container.Container) {
	h := handlers.New(ct)

	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(ct.Components.Logger))
	e.Use(middleware.Metrics(ct.Metrics))

	e.GET("/health", h.Health)
	e.GET("/metrics", echo.WrapHandler(ct.Metrics.Handler()))

	RegisterDeploymentRoutes(e, h)
	RegisterExecutionRoutes(e, h)
	RegisterWebhookRoutes(e, h)
}
