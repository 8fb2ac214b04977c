package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/tidewave/conductor/common/models"
)

// Deploy validates and deploys a workflow spec
func (h *Handler) Deploy(c echo.Context) error {
	wf := &models.Workflow{}
	if err := c.Bind(wf); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid workflow document"})
	}
	workflowID := c.Param("id")
	if wf.ID == "" {
		wf.ID = workflowID
	}
	if wf.ID != workflowID {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": fmt.Sprintf("workflow id %s does not match path %s", wf.ID, workflowID),
		})
	}

	result, err := h.ct.Deployment.Deploy(c.Request().Context(), wf, ownerID(c))
	h.ct.Metrics.DeployFinished("deploy", err)
	if err != nil {
		if result != nil {
			return c.JSON(deployErrorStatus(err), result)
		}
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// Undeploy removes a workflow's triggers and marks it undeployed
func (h *Handler) Undeploy(c echo.Context) error {
	result, err := h.ct.Deployment.Undeploy(c.Request().Context(), c.Param("id"))
	h.ct.Metrics.DeployFinished("undeploy", err)
	if err != nil {
		if result != nil {
			return c.JSON(http.StatusConflict, result)
		}
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// Update atomically replaces a deployed workflow (undeploy + deploy
// under one lock)
func (h *Handler) Update(c echo.Context) error {
	wf := &models.Workflow{}
	if err := c.Bind(wf); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid workflow document"})
	}
	if wf.ID == "" {
		wf.ID = c.Param("id")
	}

	result, err := h.ct.Deployment.Update(c.Request().Context(), wf, ownerID(c))
	h.ct.Metrics.DeployFinished("update", err)
	if err != nil {
		if result != nil {
			return c.JSON(deployErrorStatus(err), result)
		}
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// PatchDeploy applies a JSON patch (RFC 6902) or merge patch (RFC 7386)
// to the stored workflow and redeploys it
func (h *Handler) PatchDeploy(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, 1<<20))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "failed to read patch body"})
	}
	mergePatch := !strings.Contains(c.Request().Header.Get(echo.HeaderContentType), "json-patch+json")

	result, err := h.ct.Deployment.Patch(c.Request().Context(), c.Param("id"), body, mergePatch, ownerID(c))
	h.ct.Metrics.DeployFinished("patch", err)
	if err != nil {
		if result != nil {
			return c.JSON(deployErrorStatus(err), result)
		}
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// Pause suspends a deployed workflow's triggers
func (h *Handler) Pause(c echo.Context) error {
	if err := h.ct.Deployment.Pause(c.Request().Context(), c.Param("id")); err != nil {
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "paused"})
}

// Resume reactivates a paused workflow's triggers
func (h *Handler) Resume(c echo.Context) error {
	if err := h.ct.Deployment.Resume(c.Request().Context(), c.Param("id")); err != nil {
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "resumed"})
}

// DeploymentStatus returns the deployment record, live trigger index
// rows, and recent history for one workflow
func (h *Handler) DeploymentStatus(c echo.Context) error {
	ctx := c.Request().Context()
	workflowID := c.Param("id")

	dep, triggers, err := h.ct.Deployment.Status(ctx, workflowID)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	}
	history, err := h.ct.Deployment.History(ctx, workflowID, 20)
	if err != nil {
		h.ct.Components.Logger.Warn("failed to load deployment history", "workflow_id", workflowID, "error", err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"deployment": dep,
		"triggers":   triggers,
		"history":    history,
	})
}

// ListDeployments returns every deployment record
func (h *Handler) ListDeployments(c echo.Context) error {
	deployments, err := h.ct.Deployment.List(c.Request().Context())
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"deployments": deployments,
		"total":       len(deployments),
	})
}

// IndexStatistics summarizes the trigger index
func (h *Handler) IndexStatistics(c echo.Context) error {
	stats, err := h.ct.Index.Stats(c.Request().Context())
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}

func deployErrorStatus(err error) int {
	var validationErr *models.ValidationError
	if errors.As(err, &validationErr) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
