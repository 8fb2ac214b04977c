// Package handlers implements the HTTP surface: deployment control,
// execution control, and the webhook ingest endpoints.
package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/tidewave/conductor/cmd/conductor/container"
	"github.com/tidewave/conductor/common/models"
)

// Handler bundles the wired service for the echo routes
type Handler struct {
	ct *container.Container
}

// New creates the handler set
func New(ct *container.Container) *Handler {
	return &Handler{ct: ct}
}

// Health reports liveness
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"service": h.ct.Components.Config.Service.Name,
	})
}

// ownerID identifies the deploying user; provider resolution reads
// OAuth tokens under this id
func ownerID(c echo.Context) string {
	if id := c.Request().Header.Get("X-User-ID"); id != "" {
		return id
	}
	return "default"
}

func errorJSON(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	var validationErr *models.ValidationError
	var authErr *models.AuthError
	switch {
	case errors.As(err, &validationErr):
		status = http.StatusBadRequest
	case errors.As(err, &authErr):
		status = http.StatusUnauthorized
	}
	return c.JSON(status, map[string]string{"error": err.Error()})
}
