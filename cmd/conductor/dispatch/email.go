package dispatch

import (
	"context"
	"sync"

	"github.com/tidewave/conductor/cmd/conductor/router"
	"github.com/tidewave/conductor/common/models"
)

// EmailDispatcher routes inbound mail to matching workflows. The mail
// itself arrives through a provider webhook; this dispatcher only owns
// fan-out.
type EmailDispatcher struct {
	mu        sync.RWMutex
	workflows map[string]bool

	router   *router.Router
	executor Executor
	logger   Logger
}

// NewEmailDispatcher creates an email dispatcher
func NewEmailDispatcher(r *router.Router, executor Executor, logger Logger) *EmailDispatcher {
	return &EmailDispatcher{
		workflows: make(map[string]bool),
		router:    r,
		executor:  executor,
		logger:    logger,
	}
}

// Type returns the trigger family this dispatcher owns
func (d *EmailDispatcher) Type() models.TriggerType {
	return models.TriggerTypeEmail
}

// Register marks the workflow live for inbound mail
func (d *EmailDispatcher) Register(ctx context.Context, spec *models.TriggerSpec) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.workflows[spec.WorkflowID] = true
	d.logger.Info("email trigger registered", "workflow_id", spec.WorkflowID, "mailbox", spec.IndexKey)
	return nil
}

// Unregister removes the workflow
func (d *EmailDispatcher) Unregister(ctx context.Context, workflowID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.workflows, workflowID)
	return nil
}

// HandleMessage routes an inbound message and starts matched workflows
func (d *EmailDispatcher) HandleMessage(ctx context.Context, msg *router.EmailMessage) ([]string, error) {
	matches, err := d.router.RouteEmail(ctx, msg)
	if err != nil {
		return nil, err
	}
	return startMatches(ctx, d.executor, d.logger, "email", matches), nil
}
