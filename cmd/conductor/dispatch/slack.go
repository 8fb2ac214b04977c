package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/tidewave/conductor/cmd/conductor/router"
	"github.com/tidewave/conductor/common/models"
)

// SlackDispatcher verifies inbound Slack requests and routes event
// callbacks to executions
type SlackDispatcher struct {
	mu        sync.RWMutex
	workflows map[string]bool

	signingSecret string
	router        *router.Router
	executor      Executor
	logger        Logger
}

// NewSlackDispatcher creates a Slack dispatcher
func NewSlackDispatcher(signingSecret string, r *router.Router, executor Executor, logger Logger) *SlackDispatcher {
	return &SlackDispatcher{
		workflows:     make(map[string]bool),
		signingSecret: signingSecret,
		router:        r,
		executor:      executor,
		logger:        logger,
	}
}

// Type returns the trigger family this dispatcher owns
func (d *SlackDispatcher) Type() models.TriggerType {
	return models.TriggerTypeSlack
}

// Register marks the workflow live for Slack events
func (d *SlackDispatcher) Register(ctx context.Context, spec *models.TriggerSpec) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.workflows[spec.WorkflowID] = true
	d.logger.Info("slack trigger registered", "workflow_id", spec.WorkflowID, "workspace", spec.IndexKey)
	return nil
}

// Unregister removes the workflow
func (d *SlackDispatcher) Unregister(ctx context.Context, workflowID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.workflows, workflowID)
	return nil
}

// Verify checks the request signature and replay window
func (d *SlackDispatcher) Verify(timestamp string, body []byte, signatureHeader string) error {
	return VerifySlackSignature(d.signingSecret, timestamp, body, signatureHeader, time.Now())
}

// HandleEnvelope processes a Slack Events API envelope. url_verification
// returns the challenge for the caller to echo; event_callback routes the
// inner event and starts matched workflows.
func (d *SlackDispatcher) HandleEnvelope(ctx context.Context, envelope map[string]interface{}) (challenge string, executionIDs []string, err error) {
	envelopeType, _ := envelope["type"].(string)
	switch envelopeType {
	case "url_verification":
		challenge, _ := envelope["challenge"].(string)
		return challenge, nil, nil
	case "event_callback":
		teamID, _ := envelope["team_id"].(string)
		event, _ := envelope["event"].(map[string]interface{})
		if event == nil {
			return "", nil, models.NewValidationError("event", "event_callback without event body")
		}
		ids, err := d.HandleEvent(ctx, teamID, event)
		return "", ids, err
	default:
		d.logger.Debug("ignoring slack envelope", "type", envelopeType)
		return "", nil, nil
	}
}

// HandleEvent routes a single Slack event and starts matched workflows
func (d *SlackDispatcher) HandleEvent(ctx context.Context, workspaceID string, event map[string]interface{}) ([]string, error) {
	matches, err := d.router.RouteSlack(ctx, workspaceID, event)
	if err != nil {
		return nil, err
	}
	eventType, _ := event["type"].(string)
	return startMatches(ctx, d.executor, d.logger, "slack:"+eventType, matches), nil
}
