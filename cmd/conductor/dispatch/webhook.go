package dispatch

import (
	"context"
	"sync"

	"github.com/tidewave/conductor/cmd/conductor/router"
	"github.com/tidewave/conductor/common/models"
)

// WebhookDispatcher keeps the set of live webhook paths so the ingest
// layer can 404 unknown paths without a database round trip
type WebhookDispatcher struct {
	mu    sync.RWMutex
	paths map[string]map[string]bool // normalized path -> workflow set

	router   *router.Router
	executor Executor
	logger   Logger
}

// NewWebhookDispatcher creates a webhook dispatcher
func NewWebhookDispatcher(r *router.Router, executor Executor, logger Logger) *WebhookDispatcher {
	return &WebhookDispatcher{
		paths:    make(map[string]map[string]bool),
		router:   r,
		executor: executor,
		logger:   logger,
	}
}

// Type returns the trigger family this dispatcher owns
func (d *WebhookDispatcher) Type() models.TriggerType {
	return models.TriggerTypeWebhook
}

// Register adds the workflow under its normalized path
func (d *WebhookDispatcher) Register(ctx context.Context, spec *models.TriggerSpec) error {
	path := router.NormalizeWebhookPath(spec.IndexKey)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.paths[path] == nil {
		d.paths[path] = make(map[string]bool)
	}
	d.paths[path][spec.WorkflowID] = true

	d.logger.Info("webhook trigger registered", "workflow_id", spec.WorkflowID, "path", path)
	return nil
}

// Unregister removes the workflow from every path it was registered under
func (d *WebhookDispatcher) Unregister(ctx context.Context, workflowID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for path, workflows := range d.paths {
		delete(workflows, workflowID)
		if len(workflows) == 0 {
			delete(d.paths, path)
		}
	}
	return nil
}

// Known reports whether any deployed workflow listens on the path
func (d *WebhookDispatcher) Known(path string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.paths[router.NormalizeWebhookPath(path)]) > 0
}

// HandleRequest routes an inbound request and starts matched workflows
func (d *WebhookDispatcher) HandleRequest(ctx context.Context, envelope *router.WebhookEnvelope) ([]string, error) {
	matches, err := d.router.RouteWebhook(ctx, envelope)
	if err != nil {
		return nil, err
	}
	return startMatches(ctx, d.executor, d.logger, envelope.Path, matches), nil
}
