package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/tidewave/conductor/cmd/conductor/router"
	"github.com/tidewave/conductor/common/models"
)

// CronDispatcher schedules one cron entry per distinct expression. When an
// entry fires it routes through the trigger index, so all workflows sharing
// an expression run off a single timer.
type CronDispatcher struct {
	mu        sync.Mutex
	scheduler *cron.Cron
	entries   map[string]cron.EntryID
	refs      map[string]int
	workflows map[string]map[string]bool

	router   *router.Router
	executor Executor
	logger   Logger
}

// NewCronDispatcher creates a cron dispatcher. Call Start before deploying
// any cron trigger.
func NewCronDispatcher(r *router.Router, executor Executor, logger Logger) *CronDispatcher {
	return &CronDispatcher{
		scheduler: cron.New(),
		entries:   make(map[string]cron.EntryID),
		refs:      make(map[string]int),
		workflows: make(map[string]map[string]bool),
		router:    r,
		executor:  executor,
		logger:    logger,
	}
}

// Type returns the trigger family this dispatcher owns
func (d *CronDispatcher) Type() models.TriggerType {
	return models.TriggerTypeCron
}

// Start begins firing scheduled entries
func (d *CronDispatcher) Start() {
	d.scheduler.Start()
}

// Stop halts the scheduler and waits for in-flight fire callbacks
func (d *CronDispatcher) Stop() {
	<-d.scheduler.Stop().Done()
}

// Register adds a workflow to the entry for its cron expression, creating
// the entry on first reference
func (d *CronDispatcher) Register(ctx context.Context, spec *models.TriggerSpec) error {
	expression := spec.IndexKey
	if _, err := cron.ParseStandard(expression); err != nil {
		return models.NewValidationError("cron_expression", "invalid expression %q: %v", expression, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.entries[expression]; !ok {
		id, err := d.scheduler.AddFunc(expression, func() { d.fire(expression) })
		if err != nil {
			return fmt.Errorf("failed to schedule cron entry: %w", err)
		}
		d.entries[expression] = id
	}

	if d.workflows[spec.WorkflowID] == nil {
		d.workflows[spec.WorkflowID] = make(map[string]bool)
	}
	if !d.workflows[spec.WorkflowID][expression] {
		d.workflows[spec.WorkflowID][expression] = true
		d.refs[expression]++
	}

	d.logger.Info("cron trigger registered",
		"workflow_id", spec.WorkflowID,
		"expression", expression,
		"shared_workflows", d.refs[expression])
	return nil
}

// Unregister drops a workflow's expressions, removing entries no workflow
// references anymore
func (d *CronDispatcher) Unregister(ctx context.Context, workflowID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for expression := range d.workflows[workflowID] {
		d.refs[expression]--
		if d.refs[expression] <= 0 {
			if id, ok := d.entries[expression]; ok {
				d.scheduler.Remove(id)
				delete(d.entries, expression)
			}
			delete(d.refs, expression)
		}
	}
	delete(d.workflows, workflowID)
	return nil
}

// EntryCount returns the number of live scheduler entries
func (d *CronDispatcher) EntryCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}

func (d *CronDispatcher) fire(expression string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	firedAt := time.Now()
	matches, err := d.router.RouteCron(ctx, expression, "UTC", firedAt)
	if err != nil {
		d.logger.Error("cron routing failed", "expression", expression, "error", err)
		return
	}

	for _, match := range matches {
		d.launch(ctx, match)
	}
}

func (d *CronDispatcher) launch(ctx context.Context, match *models.Match) {
	executionID, err := d.executor.ExecuteAsync(ctx, match.WorkflowID, models.TriggerInfo{
		Type: match.TriggerType,
		Data: match.TriggerData,
	})
	if err != nil {
		d.logger.Error("failed to start cron execution",
			"workflow_id", match.WorkflowID,
			"error", err)
		return
	}
	d.logger.Info("cron execution started",
		"workflow_id", match.WorkflowID,
		"execution_id", executionID)
}
