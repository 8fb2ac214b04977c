package routes

import (
	"github.com/labstack/echo/v4"
	"github.com/tidewave/conductor/cmd/conductor/handlers"
)

// RegisterDeploymentRoutes registers deployment lifecycle routes
func RegisterDeploymentRoutes(e *echo.Echo, h *handlers.Handler) {
	wf := e.Group("/api/v1/workflows")
	{
		wf.POST("/:id/deploy", h.Deploy)        // POST /api/v1/workflows/{id}/deploy
		wf.PUT("/:id/deploy", h.Update)         // PUT /api/v1/workflows/{id}/deploy
		wf.PATCH("/:id/deploy", h.PatchDeploy)  // PATCH /api/v1/workflows/{id}/deploy
		wf.DELETE("/:id/deploy", h.Undeploy)    // DELETE /api/v1/workflows/{id}/deploy
		wf.POST("/:id/pause", h.Pause)          // POST /api/v1/workflows/{id}/pause
		wf.POST("/:id/resume", h.Resume)        // POST /api/v1/workflows/{id}/resume
		wf.GET("/:id/deployment", h.DeploymentStatus) // GET /api/v1/workflows/{id}/deployment
	}

	deployments := e.Group("/api/v1/deployments")
	{
		deployments.GET("", h.ListDeployments)             // GET /api/v1/deployments
		deployments.GET("/statistics", h.IndexStatistics)  // GET /api/v1/deployments/statistics
	}
}
