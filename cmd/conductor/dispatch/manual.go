package dispatch

import (
	"context"
	"fmt"
	"sync"

	"github.com/tidewave/conductor/cmd/conductor/router"
	"github.com/tidewave/conductor/common/models"
)

// ManualDispatcher starts deployed workflows on explicit API request
type ManualDispatcher struct {
	mu        sync.RWMutex
	workflows map[string]bool

	router   *router.Router
	executor Executor
	logger   Logger
}

// NewManualDispatcher creates a manual dispatcher
func NewManualDispatcher(r *router.Router, executor Executor, logger Logger) *ManualDispatcher {
	return &ManualDispatcher{
		workflows: make(map[string]bool),
		router:    r,
		executor:  executor,
		logger:    logger,
	}
}

// Type returns the trigger family this dispatcher owns
func (d *ManualDispatcher) Type() models.TriggerType {
	return models.TriggerTypeManual
}

// Register marks the workflow invokable
func (d *ManualDispatcher) Register(ctx context.Context, spec *models.TriggerSpec) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.workflows[spec.WorkflowID] = true
	return nil
}

// Unregister removes the workflow
func (d *ManualDispatcher) Unregister(ctx context.Context, workflowID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.workflows, workflowID)
	return nil
}

// Invoke starts a deployed workflow with caller-supplied trigger data
func (d *ManualDispatcher) Invoke(ctx context.Context, workflowID string, data map[string]interface{}) (string, error) {
	matches, err := d.router.RouteManual(ctx, workflowID, data)
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("workflow %s has no deployed manual trigger", workflowID)
	}

	match := matches[0]
	executionID, err := d.executor.ExecuteAsync(ctx, match.WorkflowID, models.TriggerInfo{
		Type:   models.TriggerTypeManual,
		Source: "api",
		Data:   match.TriggerData,
	})
	if err != nil {
		return "", fmt.Errorf("failed to start execution: %w", err)
	}
	d.logger.Info("manual execution started", "workflow_id", workflowID, "execution_id", executionID)
	return executionID, nil
}
