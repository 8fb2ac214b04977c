package router

import (
	"context"
	"time"

	"github.com/tidewave/conductor/common/models"
)

// Logger interface for logging
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
}

// IndexStore is the read side of the trigger index consumed by routing
type IndexStore interface {
	Query(ctx context.Context, triggerType models.TriggerType, indexKey string) ([]*models.TriggerIndexRow, error)
	QueryByType(ctx context.Context, triggerType models.TriggerType) ([]*models.TriggerIndexRow, error)
}

// GitHubEventSink persists GitHub ingest audit records. Best-effort:
// routing proceeds when writes fail.
type GitHubEventSink interface {
	Insert(ctx context.Context, ev *models.GitHubWebhookEvent) error
}

// Router is the stateless query layer mapping inbound events to the
// workflows that should run
type Router struct {
	index  IndexStore
	events GitHubEventSink
	logger Logger
}

// New creates a router. events may be nil when auditing is disabled.
func New(index IndexStore, events GitHubEventSink, logger Logger) *Router {
	return &Router{
		index:  index,
		events: events,
		logger: logger,
	}
}

// WebhookEnvelope is the normalized inbound HTTP request forwarded by the
// ingest layer
type WebhookEnvelope struct {
	Method      string                 `json:"method"`
	Path        string                 `json:"path"`
	QueryParams map[string]string      `json:"query_params,omitempty"`
	Headers     map[string]string      `json:"headers,omitempty"`
	Body        map[string]interface{} `json:"body,omitempty"`
	RemoteAddr  string                 `json:"remote_addr,omitempty"`
}

// RouteCron returns workflows registered for a cron expression
func (r *Router) RouteCron(ctx context.Context, expression, timezone string, firedAt time.Time) ([]*models.Match, error) {
	rows, err := r.index.Query(ctx, models.TriggerTypeCron, expression)
	if err != nil {
		return nil, err
	}

	matches := make([]*models.Match, 0, len(rows))
	for _, row := range rows {
		matches = append(matches, &models.Match{
			WorkflowID:    row.WorkflowID,
			TriggerType:   models.TriggerTypeCron,
			TriggerConfig: row.Config,
			TriggerData: map[string]interface{}{
				"cron_expression": expression,
				"timezone":        timezone,
				"execution_time":  firedAt.UTC().Format(time.RFC3339),
			},
		})
	}
	return matches, nil
}

// RouteWebhook returns workflows registered for a webhook path, filtered
// by allowed_methods
func (r *Router) RouteWebhook(ctx context.Context, envelope *WebhookEnvelope) ([]*models.Match, error) {
	rows, err := r.index.Query(ctx, models.TriggerTypeWebhook, NormalizeWebhookPath(envelope.Path))
	if err != nil {
		return nil, err
	}

	var matches []*models.Match
	for _, row := range rows {
		if allowed := asStringSlice(row.Config["allowed_methods"]); len(allowed) > 0 {
			if !containsString(allowed, envelope.Method) {
				continue
			}
		}
		matches = append(matches, &models.Match{
			WorkflowID:    row.WorkflowID,
			TriggerType:   models.TriggerTypeWebhook,
			TriggerConfig: row.Config,
			TriggerData: map[string]interface{}{
				"method":       envelope.Method,
				"path":         envelope.Path,
				"query_params": envelope.QueryParams,
				"headers":      envelope.Headers,
				"body":         envelope.Body,
				"remote_addr":  envelope.RemoteAddr,
			},
		})
	}
	return matches, nil
}

// RouteGitHub returns workflows whose GitHub triggers match the event.
// Candidates come from the repository key plus the repository-agnostic
// ("") key; each candidate goes through detailed validation. Validation
// errors fail open so events are not dropped silently.
func (r *Router) RouteGitHub(ctx context.Context, deliveryID, eventType string, payload map[string]interface{}) ([]*models.Match, error) {
	repo := githubRepoFullName(payload)

	rows, err := r.index.Query(ctx, models.TriggerTypeGitHub, repo)
	if err != nil {
		return nil, err
	}
	if repo != "" {
		agnostic, err := r.index.Query(ctx, models.TriggerTypeGitHub, "")
		if err != nil {
			return nil, err
		}
		rows = append(rows, agnostic...)
	}

	var matches []*models.Match
	for _, row := range rows {
		ok, err := validateGitHubEvent(row.Config, eventType, payload)
		if err != nil {
			// Fail open: a broken filter must not swallow events
			r.logger.Error("github trigger validation error, allowing event",
				"workflow_id", row.WorkflowID,
				"event_type", eventType,
				"error", err)
			ok = true
		}
		if !ok {
			continue
		}
		matches = append(matches, &models.Match{
			WorkflowID:    row.WorkflowID,
			TriggerType:   models.TriggerTypeGitHub,
			TriggerConfig: row.Config,
			TriggerData: map[string]interface{}{
				"event_type":  eventType,
				"delivery_id": deliveryID,
				"repository":  repo,
				"payload":     payload,
			},
		})
	}

	r.auditGitHubEvent(ctx, deliveryID, eventType, repo, payload, len(matches))

	return matches, nil
}

func (r *Router) auditGitHubEvent(ctx context.Context, deliveryID, eventType, repo string, payload map[string]interface{}, matched int) {
	if r.events == nil {
		return
	}
	sender := asMap(payload["sender"])
	ev := &models.GitHubWebhookEvent{
		DeliveryID:       deliveryID,
		EventType:        eventType,
		Repository:       repo,
		Action:           asString(payload, "action"),
		Sender:           asString(sender, "login"),
		Payload:          payload,
		MatchedWorkflows: matched,
	}
	if err := r.events.Insert(ctx, ev); err != nil {
		r.logger.Warn("failed to persist github webhook event", "delivery_id", deliveryID, "error", err)
	}
}

// RouteSlack returns workflows whose Slack triggers match the event.
// Workspace-agnostic triggers (empty workspace key) always participate.
func (r *Router) RouteSlack(ctx context.Context, workspaceID string, eventData map[string]interface{}) ([]*models.Match, error) {
	rows, err := r.index.Query(ctx, models.TriggerTypeSlack, workspaceID)
	if err != nil {
		return nil, err
	}
	if workspaceID != "" {
		agnostic, err := r.index.Query(ctx, models.TriggerTypeSlack, "")
		if err != nil {
			return nil, err
		}
		rows = append(rows, agnostic...)
	}

	var matches []*models.Match
	for _, row := range rows {
		if !validateSlackEvent(row.Config, eventData) {
			continue
		}
		matches = append(matches, &models.Match{
			WorkflowID:    row.WorkflowID,
			TriggerType:   models.TriggerTypeSlack,
			TriggerConfig: row.Config,
			TriggerData: map[string]interface{}{
				"workspace_id": workspaceID,
				"event":        eventData,
			},
		})
	}
	return matches, nil
}

// RouteEmail evaluates every email trigger's filters against the message
func (r *Router) RouteEmail(ctx context.Context, msg *EmailMessage) ([]*models.Match, error) {
	rows, err := r.index.QueryByType(ctx, models.TriggerTypeEmail)
	if err != nil {
		return nil, err
	}

	var matches []*models.Match
	for _, row := range rows {
		if !validateEmail(row.Config, msg) {
			continue
		}
		matches = append(matches, &models.Match{
			WorkflowID:    row.WorkflowID,
			TriggerType:   models.TriggerTypeEmail,
			TriggerConfig: row.Config,
			TriggerData: map[string]interface{}{
				"from":       msg.From,
				"to":         msg.To,
				"subject":    msg.Subject,
				"body":       msg.Body,
				"message_id": msg.MessageID,
			},
		})
	}
	return matches, nil
}

// RouteManual returns the manual trigger for a workflow, if deployed
func (r *Router) RouteManual(ctx context.Context, workflowID string, data map[string]interface{}) ([]*models.Match, error) {
	rows, err := r.index.Query(ctx, models.TriggerTypeManual, workflowID)
	if err != nil {
		return nil, err
	}

	var matches []*models.Match
	for _, row := range rows {
		matches = append(matches, &models.Match{
			WorkflowID:    row.WorkflowID,
			TriggerType:   models.TriggerTypeManual,
			TriggerConfig: row.Config,
			TriggerData:   data,
		})
	}
	return matches, nil
}
