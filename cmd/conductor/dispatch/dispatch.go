package dispatch

import (
	"context"
	"fmt"
	"sync"

	"github.com/tidewave/conductor/common/models"
)

// Logger interface for logging
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
}

// Executor starts workflow executions. Implemented by the execution
// engine; dispatchers only ever fan out through this contract.
type Executor interface {
	ExecuteAsync(ctx context.Context, workflowID string, trigger models.TriggerInfo) (string, error)
}

// Dispatcher owns the in-memory side of one trigger family
type Dispatcher interface {
	Type() models.TriggerType
	Register(ctx context.Context, spec *models.TriggerSpec) error
	Unregister(ctx context.Context, workflowID string) error
}

// Registry holds one dispatcher per trigger family. Registration across
// all families is driven by the deployment manager under its per-workflow
// lock.
type Registry struct {
	mu          sync.RWMutex
	dispatchers map[models.TriggerType]Dispatcher
}

// NewRegistry creates an empty dispatcher registry
func NewRegistry() *Registry {
	return &Registry{
		dispatchers: make(map[models.TriggerType]Dispatcher),
	}
}

// Add installs a dispatcher for its trigger family
func (r *Registry) Add(d Dispatcher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dispatchers[d.Type()] = d
}

// Get returns the dispatcher for a trigger family
func (r *Registry) Get(t models.TriggerType) (Dispatcher, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.dispatchers[t]
	return d, ok
}

// Register installs trigger specs across their family dispatchers.
// The first failure aborts and the caller rolls back via Unregister.
func (r *Registry) Register(ctx context.Context, workflowID string, specs []*models.TriggerSpec) error {
	registered := make([]Dispatcher, 0, len(specs))
	for _, spec := range specs {
		d, ok := r.Get(spec.Type)
		if !ok {
			r.rollback(ctx, workflowID, registered)
			return fmt.Errorf("no dispatcher for trigger type %s", spec.Type)
		}
		if err := d.Register(ctx, spec); err != nil {
			r.rollback(ctx, workflowID, registered)
			return fmt.Errorf("failed to register %s trigger: %w", spec.Type, err)
		}
		registered = append(registered, d)
	}
	return nil
}

// Unregister removes a workflow from every dispatcher
func (r *Registry) Unregister(ctx context.Context, workflowID string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var firstErr error
	for _, d := range r.dispatchers {
		if err := d.Unregister(ctx, workflowID); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to unregister from %s dispatcher: %w", d.Type(), err)
		}
	}
	return firstErr
}

func (r *Registry) rollback(ctx context.Context, workflowID string, dispatchers []Dispatcher) {
	for _, d := range dispatchers {
		_ = d.Unregister(ctx, workflowID)
	}
}
