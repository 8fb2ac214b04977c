package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/tidewave/conductor/cmd/conductor/engine/execlog"
	"github.com/tidewave/conductor/common/models"
)

// executeRequest is the body of POST /workflows/:id/execute
type executeRequest struct {
	TriggerData map[string]interface{} `json:"trigger_data"`
	Async       *bool                  `json:"async"`
}

// Execute starts a workflow run. Async (the default) returns the
// execution id immediately; sync blocks until the run is terminal.
func (h *Handler) Execute(c echo.Context) error {
	req := &executeRequest{}
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	trigger := models.TriggerInfo{
		Type:   models.TriggerTypeManual,
		Source: "api",
		Data:   req.TriggerData,
	}
	ctx := c.Request().Context()
	workflowID := c.Param("id")

	if req.Async == nil || *req.Async {
		executionID, err := h.ct.Engine.ExecuteAsync(ctx, workflowID, trigger)
		if err != nil {
			return errorJSON(c, err)
		}
		return c.JSON(http.StatusAccepted, map[string]interface{}{
			"execution_id": executionID,
			"status":       models.ExecutionStatusNew,
		})
	}

	exec, err := h.ct.Engine.ExecuteSync(ctx, workflowID, trigger)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, exec)
}

// GetExecution returns one execution record
func (h *Handler) GetExecution(c echo.Context) error {
	exec, err := h.ct.Engine.GetExecution(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, exec)
}

// CancelExecution stops an in-flight run
func (h *Handler) CancelExecution(c echo.Context) error {
	executionID := c.Param("id")
	if err := h.ct.Engine.Cancel(c.Request().Context(), executionID); err != nil {
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"execution_id": executionID,
		"status":       models.ExecutionStatusCanceled,
	})
}

// resumeRequest is the body of POST /executions/:id/resume
type resumeRequest struct {
	NodeID string                 `json:"node_id"`
	Token  string                 `json:"token"`
	Input  map[string]interface{} `json:"input"`
}

// ResumeExecution resolves a waiting human interaction and continues
// the run
func (h *Handler) ResumeExecution(c echo.Context) error {
	req := &resumeRequest{}
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.NodeID == "" || req.Token == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "node_id and token are required"})
	}

	if err := h.ct.Engine.Resume(c.Request().Context(), c.Param("id"), req.NodeID, req.Token, req.Input); err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "resumed"})
}

// ExecutionLogs returns retained log entries with limit/offset/level
// filters
func (h *Handler) ExecutionLogs(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	level := models.LogLevel(strings.ToUpper(c.QueryParam("level")))

	entries := h.ct.Engine.Logs(c.Param("id"), execlog.Filter{MinLevel: level})
	total := len(entries)
	if offset > total {
		offset = total
	}
	entries = entries[offset:]
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"logs":  entries,
		"total": total,
	})
}
