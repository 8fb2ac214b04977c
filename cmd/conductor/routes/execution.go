package routes

import (
	"github.com/labstack/echo/v4"
	"github.com/tidewave/conductor/cmd/conductor/handlers"
)

// RegisterExecutionRoutes registers execution control routes
func RegisterExecutionRoutes(e *echo.Echo, h *handlers.Handler) {
	e.POST("/api/v1/workflows/:id/execute", h.Execute) // POST /api/v1/workflows/{id}/execute

	executions := e.Group("/api/v1/executions")
	{
		executions.GET("/:id", h.GetExecution)            // GET /api/v1/executions/{id}
		executions.POST("/:id/cancel", h.CancelExecution) // POST /api/v1/executions/{id}/cancel
		executions.POST("/:id/resume", h.ResumeExecution) // POST /api/v1/executions/{id}/resume
		executions.GET("/:id/logs", h.ExecutionLogs)      // GET /api/v1/executions/{id}/logs
	}
}
