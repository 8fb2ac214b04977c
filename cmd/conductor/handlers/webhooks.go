package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
	"github.com/tidewave/conductor/cmd/conductor/router"
	"github.com/tidewave/conductor/common/models"
)

// WorkflowWebhook ingests a generic webhook aimed at one workflow. A
// registered webhook trigger path wins; otherwise the manual dispatcher
// fires the workflow's manual trigger.
func (h *Handler) WorkflowWebhook(c echo.Context) error {
	ctx := c.Request().Context()
	workflowID := c.Param("id")

	body := map[string]interface{}{}
	raw, err := io.ReadAll(io.LimitReader(c.Request().Body, 1<<20))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "failed to read body"})
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &body); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "body must be a JSON object"})
		}
	}

	path := c.Request().URL.Path
	if h.ct.Webhook.Known(path) {
		envelope := &router.WebhookEnvelope{
			Method:      c.Request().Method,
			Path:        path,
			QueryParams: flattenValues(c.QueryParams()),
			Headers:     flattenHeader(c.Request().Header),
			Body:        body,
			RemoteAddr:  c.RealIP(),
		}
		executionIDs, err := h.ct.Webhook.HandleRequest(ctx, envelope)
		if err != nil {
			return errorJSON(c, err)
		}
		h.countTriggers(models.TriggerTypeWebhook, len(executionIDs))
		return c.JSON(http.StatusOK, map[string]interface{}{"execution_ids": executionIDs})
	}

	executionID, err := h.ct.Manual.Invoke(ctx, workflowID, body)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	}
	h.countTriggers(models.TriggerTypeManual, 1)
	return c.JSON(http.StatusOK, map[string]interface{}{"execution_ids": []string{executionID}})
}

// GitHubWebhook ingests a signed GitHub event
func (h *Handler) GitHubWebhook(c echo.Context) error {
	req := c.Request()
	raw, err := io.ReadAll(io.LimitReader(req.Body, 4<<20))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "failed to read body"})
	}

	if err := h.ct.GitHub.Verify(raw, req.Header.Get("X-Hub-Signature-256")); err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "signature verification failed"})
	}

	payload := map[string]interface{}{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "malformed payload"})
	}

	executionIDs, err := h.ct.GitHub.HandleEvent(
		c.Request().Context(),
		req.Header.Get("X-GitHub-Delivery"),
		req.Header.Get("X-GitHub-Event"),
		payload,
	)
	if err != nil {
		return errorJSON(c, err)
	}
	h.countTriggers(models.TriggerTypeGitHub, len(executionIDs))
	return c.JSON(http.StatusOK, map[string]interface{}{"execution_ids": executionIDs})
}

// SlackEvents ingests the Slack Events API callback, including the
// url_verification handshake
func (h *Handler) SlackEvents(c echo.Context) error {
	raw, err := h.verifiedSlackBody(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "signature verification failed"})
	}

	envelope := map[string]interface{}{}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "malformed envelope"})
	}

	challenge, executionIDs, err := h.ct.Slack.HandleEnvelope(c.Request().Context(), envelope)
	if err != nil {
		return errorJSON(c, err)
	}
	if challenge != "" {
		return c.JSON(http.StatusOK, map[string]string{"challenge": challenge})
	}
	h.countTriggers(models.TriggerTypeSlack, len(executionIDs))
	return c.JSON(http.StatusOK, map[string]interface{}{"execution_ids": executionIDs})
}

// SlackInteractive ingests interactive component payloads (form-encoded
// with a payload field)
func (h *Handler) SlackInteractive(c echo.Context) error {
	raw, err := h.verifiedSlackBody(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "signature verification failed"})
	}

	values, err := parseForm(raw)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "malformed form body"})
	}
	payload := map[string]interface{}{}
	if err := json.Unmarshal([]byte(values.Get("payload")), &payload); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "malformed payload"})
	}

	_, executionIDs, err := h.ct.Slack.HandleEnvelope(c.Request().Context(), payload)
	if err != nil {
		return errorJSON(c, err)
	}
	h.countTriggers(models.TriggerTypeSlack, len(executionIDs))
	return c.JSON(http.StatusOK, map[string]interface{}{"execution_ids": executionIDs})
}

// SlackCommands acknowledges slash commands after verifying them
func (h *Handler) SlackCommands(c echo.Context) error {
	if _, err := h.verifiedSlackBody(c); err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "signature verification failed"})
	}
	return c.JSON(http.StatusOK, map[string]string{"response_type": "ephemeral", "text": "received"})
}

func (h *Handler) verifiedSlackBody(c echo.Context) ([]byte, error) {
	req := c.Request()
	raw, err := io.ReadAll(io.LimitReader(req.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if err := h.ct.Slack.Verify(
		req.Header.Get("X-Slack-Request-Timestamp"),
		raw,
		req.Header.Get("X-Slack-Signature"),
	); err != nil {
		return nil, err
	}
	return raw, nil
}

func (h *Handler) countTriggers(triggerType models.TriggerType, n int) {
	for i := 0; i < n; i++ {
		h.ct.Metrics.TriggerFired(triggerType)
	}
}

func parseForm(raw []byte) (url.Values, error) {
	return url.ParseQuery(string(raw))
}

func flattenValues(values map[string][]string) map[string]string {
	out := make(map[string]string, len(values))
	for k, v := range values {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}

func flattenHeader(header http.Header) map[string]string {
	out := make(map[string]string, len(header))
	for k := range header {
		out[k] = header.Get(k)
	}
	return out
}
