package dispatch

import (
	"context"
	"sync"

	"github.com/tidewave/conductor/cmd/conductor/router"
	"github.com/tidewave/conductor/common/models"
)

// GitHubDispatcher verifies inbound GitHub deliveries and fans matched
// events out to executions. Registration only tracks which workflows are
// live; all matching state lives in the trigger index.
type GitHubDispatcher struct {
	mu        sync.RWMutex
	workflows map[string]bool

	secret   string
	router   *router.Router
	executor Executor
	logger   Logger
}

// NewGitHubDispatcher creates a GitHub dispatcher. secret is the shared
// webhook secret used for delivery verification; empty disables ingest.
func NewGitHubDispatcher(secret string, r *router.Router, executor Executor, logger Logger) *GitHubDispatcher {
	return &GitHubDispatcher{
		workflows: make(map[string]bool),
		secret:    secret,
		router:    r,
		executor:  executor,
		logger:    logger,
	}
}

// Type returns the trigger family this dispatcher owns
func (d *GitHubDispatcher) Type() models.TriggerType {
	return models.TriggerTypeGitHub
}

// Register marks the workflow live for GitHub deliveries
func (d *GitHubDispatcher) Register(ctx context.Context, spec *models.TriggerSpec) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.workflows[spec.WorkflowID] = true
	d.logger.Info("github trigger registered", "workflow_id", spec.WorkflowID, "repository", spec.IndexKey)
	return nil
}

// Unregister removes the workflow
func (d *GitHubDispatcher) Unregister(ctx context.Context, workflowID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.workflows, workflowID)
	return nil
}

// Verify checks the delivery signature against the raw body
func (d *GitHubDispatcher) Verify(body []byte, signatureHeader string) error {
	return VerifyGitHubSignature(d.secret, body, signatureHeader)
}

// HandleEvent routes a verified delivery and starts matched workflows
func (d *GitHubDispatcher) HandleEvent(ctx context.Context, deliveryID, eventType string, payload map[string]interface{}) ([]string, error) {
	matches, err := d.router.RouteGitHub(ctx, deliveryID, eventType, payload)
	if err != nil {
		return nil, err
	}
	return startMatches(ctx, d.executor, d.logger, "github:"+eventType, matches), nil
}
