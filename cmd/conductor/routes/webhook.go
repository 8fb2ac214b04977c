package routes

import (
	"github.com/labstack/echo/v4"
	"github.com/tidewave/conductor/cmd/conductor/handlers"
)

// RegisterWebhookRoutes registers the external ingest endpoints
func RegisterWebhookRoutes(e *echo.Echo, h *handlers.Handler) {
	e.POST("/webhook/workflow/:id", h.WorkflowWebhook) // generic per-workflow webhook

	webhooks := e.Group("/webhooks")
	{
		webhooks.POST("/github", h.GitHubWebhook)            // POST /webhooks/github
		webhooks.POST("/slack/events", h.SlackEvents)        // POST /webhooks/slack/events
		webhooks.POST("/slack/interactive", h.SlackInteractive) // POST /webhooks/slack/interactive
		webhooks.POST("/slack/commands", h.SlackCommands)    // POST /webhooks/slack/commands
	}
}
