package deployment

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/google/uuid"
	"github.com/tidewave/conductor/common/models"
)

const (
	lockKeyPrefix = "deploy:lock:"
	lockTTL       = 30 * time.Second
)

// Opts configures the deployment manager
type Opts struct {
	Index       IndexStore
	Dispatchers Dispatchers
	Workflows   WorkflowStore
	Deployments DeploymentStore
	Tokens      TokenStore
	Channels    ChannelResolver
	Locker      Locker
	Logger      Logger
}

// Manager drives the deployment state machine. Deploy is the critical
// transaction: validate, extract, resolve, register, persist, all under a
// per-workflow lock.
type Manager struct {
	index       IndexStore
	dispatchers Dispatchers
	workflows   WorkflowStore
	deployments DeploymentStore
	tokens      TokenStore
	channels    ChannelResolver
	locker      Locker
	logger      Logger
}

// NewManager creates a deployment manager
func NewManager(opts *Opts) *Manager {
	return &Manager{
		index:       opts.Index,
		dispatchers: opts.Dispatchers,
		workflows:   opts.Workflows,
		deployments: opts.Deployments,
		tokens:      opts.Tokens,
		channels:    opts.Channels,
		locker:      opts.Locker,
		logger:      opts.Logger,
	}
}

// Deploy validates the workflow, registers its triggers, and moves it to
// DEPLOYED. Idempotent on the same spec modulo version increments.
func (m *Manager) Deploy(ctx context.Context, wf *models.Workflow, ownerID string) (*models.DeploymentResult, error) {
	if wf == nil {
		return nil, models.NewValidationError("workflow", "workflow spec is required")
	}

	release, err := m.acquireLock(ctx, wf.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	return m.deployLocked(ctx, wf, ownerID)
}

func (m *Manager) deployLocked(ctx context.Context, wf *models.Workflow, ownerID string) (*models.DeploymentResult, error) {
	current := m.currentDeployment(ctx, wf.ID)
	fromStatus := current.Status

	current.Status = models.DeploymentStatusDeploying
	if err := m.deployments.Save(ctx, current); err != nil {
		return nil, fmt.Errorf("failed to persist deploying status: %w", err)
	}

	if err := validateWorkflow(wf); err != nil {
		return m.failDeploy(ctx, current, fromStatus, err)
	}

	specs, err := ExtractTriggerSpecs(wf)
	if err != nil {
		return m.failDeploy(ctx, current, fromStatus, err)
	}
	m.resolveProviderContext(ctx, ownerID, specs)

	if err := m.registerBoth(ctx, wf.ID, specs); err != nil {
		return m.failDeploy(ctx, current, fromStatus, err)
	}

	if err := m.workflows.Save(ctx, wf); err != nil {
		m.rollbackRegistration(ctx, wf.ID)
		return m.failDeploy(ctx, current, fromStatus, fmt.Errorf("failed to persist workflow: %w", err))
	}

	now := time.Now().UTC()
	current.Status = models.DeploymentStatusDeployed
	current.Version++
	current.DeployedAt = &now
	current.Config = map[string]interface{}{
		"trigger_count": len(specs),
		"node_count":    len(wf.Nodes),
	}
	if err := m.deployments.Save(ctx, current); err != nil {
		return nil, fmt.Errorf("failed to persist deployed status: %w", err)
	}

	m.appendHistory(ctx, &models.DeploymentHistory{
		WorkflowID:     wf.ID,
		Action:         models.DeploymentActionDeploy,
		FromStatus:     fromStatus,
		ToStatus:       models.DeploymentStatusDeployed,
		Version:        current.Version,
		ConfigSnapshot: current.Config,
	})

	m.logger.Info("workflow deployed",
		"workflow_id", wf.ID,
		"version", current.Version,
		"triggers", len(specs))

	return &models.DeploymentResult{
		DeploymentID: uuid.NewString(),
		WorkflowID:   wf.ID,
		Status:       models.DeploymentStatusDeployed,
		Version:      current.Version,
	}, nil
}

// Undeploy removes all registrations and moves the workflow to UNDEPLOYED
func (m *Manager) Undeploy(ctx context.Context, workflowID string) (*models.DeploymentResult, error) {
	release, err := m.acquireLock(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	defer release()

	return m.undeployLocked(ctx, workflowID)
}

func (m *Manager) undeployLocked(ctx context.Context, workflowID string) (*models.DeploymentResult, error) {
	current := m.currentDeployment(ctx, workflowID)
	fromStatus := current.Status

	m.appendHistory(ctx, &models.DeploymentHistory{
		WorkflowID: workflowID,
		Action:     models.DeploymentActionUndeployStarted,
		FromStatus: fromStatus,
		ToStatus:   models.DeploymentStatusDeploying,
		Version:    current.Version,
	})

	if err := m.unregisterBoth(ctx, workflowID); err != nil {
		current.Status = models.DeploymentStatusFailed
		if saveErr := m.deployments.Save(ctx, current); saveErr != nil {
			m.logger.Error("failed to persist undeploy failure", "workflow_id", workflowID, "error", saveErr)
		}
		m.appendHistory(ctx, &models.DeploymentHistory{
			WorkflowID:   workflowID,
			Action:       models.DeploymentActionUndeployFailed,
			FromStatus:   fromStatus,
			ToStatus:     models.DeploymentStatusFailed,
			Version:      current.Version,
			ErrorMessage: err.Error(),
		})
		return nil, err
	}

	now := time.Now().UTC()
	current.Status = models.DeploymentStatusUndeployed
	current.UndeployedAt = &now
	if err := m.deployments.Save(ctx, current); err != nil {
		return nil, fmt.Errorf("failed to persist undeployed status: %w", err)
	}

	m.appendHistory(ctx, &models.DeploymentHistory{
		WorkflowID: workflowID,
		Action:     models.DeploymentActionUndeployCompleted,
		FromStatus: fromStatus,
		ToStatus:   models.DeploymentStatusUndeployed,
		Version:    current.Version,
	})

	m.logger.Info("workflow undeployed", "workflow_id", workflowID)

	return &models.DeploymentResult{
		WorkflowID: workflowID,
		Status:     models.DeploymentStatusUndeployed,
		Version:    current.Version,
	}, nil
}

// Update redeploys a workflow under a single lock: undeploy then deploy.
// No partial update path exists.
func (m *Manager) Update(ctx context.Context, wf *models.Workflow, ownerID string) (*models.DeploymentResult, error) {
	if wf == nil {
		return nil, models.NewValidationError("workflow", "workflow spec is required")
	}

	release, err := m.acquireLock(ctx, wf.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	if _, err := m.undeployLocked(ctx, wf.ID); err != nil {
		return nil, fmt.Errorf("failed to undeploy before update: %w", err)
	}
	return m.deployLocked(ctx, wf, ownerID)
}

// Patch applies an RFC 6902 patch (or, when mergePatch is set, an RFC 7386
// merge patch) to the stored workflow spec and redeploys the result
func (m *Manager) Patch(ctx context.Context, workflowID string, patch []byte, mergePatch bool, ownerID string) (*models.DeploymentResult, error) {
	stored, err := m.workflows.Get(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to load workflow for patch: %w", err)
	}

	doc, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize stored workflow: %w", err)
	}

	var patched []byte
	if mergePatch {
		patched, err = jsonpatch.MergePatch(doc, patch)
	} else {
		var ops jsonpatch.Patch
		ops, err = jsonpatch.DecodePatch(patch)
		if err == nil {
			patched, err = ops.Apply(doc)
		}
	}
	if err != nil {
		return nil, models.NewValidationError("patch", "failed to apply patch: %v", err)
	}

	wf := &models.Workflow{}
	if err := json.Unmarshal(patched, wf); err != nil {
		return nil, models.NewValidationError("patch", "patched document is not a workflow: %v", err)
	}
	if wf.ID != workflowID {
		return nil, models.NewValidationError("patch", "patch must not change the workflow id")
	}

	return m.Update(ctx, wf, ownerID)
}

// Pause suspends routing for a deployed workflow without unregistering it
func (m *Manager) Pause(ctx context.Context, workflowID string) error {
	return m.setTriggerStatus(ctx, workflowID, models.TriggerStatusPaused, models.DeploymentActionPause)
}

// Resume reactivates a paused workflow
func (m *Manager) Resume(ctx context.Context, workflowID string) error {
	return m.setTriggerStatus(ctx, workflowID, models.TriggerStatusActive, models.DeploymentActionResume)
}

func (m *Manager) setTriggerStatus(ctx context.Context, workflowID string, status models.TriggerStatus, action string) error {
	release, err := m.acquireLock(ctx, workflowID)
	if err != nil {
		return err
	}
	defer release()

	current := m.currentDeployment(ctx, workflowID)
	if current.Status != models.DeploymentStatusDeployed {
		return models.NewValidationError("deployment_status", "workflow %s is not deployed", workflowID)
	}

	if err := m.index.UpdateStatus(ctx, workflowID, status); err != nil {
		return err
	}

	m.appendHistory(ctx, &models.DeploymentHistory{
		WorkflowID: workflowID,
		Action:     action,
		FromStatus: current.Status,
		ToStatus:   current.Status,
		Version:    current.Version,
	})
	m.logger.Info("trigger status changed", "workflow_id", workflowID, "status", status)
	return nil
}

// Status returns the deployment record and current index rows
func (m *Manager) Status(ctx context.Context, workflowID string) (*models.Deployment, []*models.TriggerIndexRow, error) {
	d, err := m.deployments.Get(ctx, workflowID)
	if err != nil {
		return nil, nil, err
	}
	rows, err := m.index.ListByWorkflow(ctx, workflowID)
	if err != nil {
		return nil, nil, err
	}
	return d, rows, nil
}

// List returns all deployment records
func (m *Manager) List(ctx context.Context) ([]*models.Deployment, error) {
	return m.deployments.List(ctx)
}

// History returns the transition history for a workflow
func (m *Manager) History(ctx context.Context, workflowID string, limit int) ([]*models.DeploymentHistory, error) {
	if limit <= 0 {
		limit = 100
	}
	return m.deployments.History(ctx, workflowID, limit)
}

// registerBoth registers in the persistent index and the dispatchers in
// parallel; if one side fails the other is rolled back
func (m *Manager) registerBoth(ctx context.Context, workflowID string, specs []*models.TriggerSpec) error {
	var wg sync.WaitGroup
	var indexErr, dispatchErr error

	wg.Add(2)
	go func() {
		defer wg.Done()
		indexErr = m.index.Register(ctx, workflowID, specs)
	}()
	go func() {
		defer wg.Done()
		dispatchErr = m.dispatchers.Register(ctx, workflowID, specs)
	}()
	wg.Wait()

	if indexErr == nil && dispatchErr == nil {
		return nil
	}

	m.rollbackRegistration(ctx, workflowID)
	if indexErr != nil {
		return fmt.Errorf("failed to register triggers: %w", indexErr)
	}
	return fmt.Errorf("failed to register dispatchers: %w", dispatchErr)
}

func (m *Manager) unregisterBoth(ctx context.Context, workflowID string) error {
	var wg sync.WaitGroup
	var indexErr, dispatchErr error

	wg.Add(2)
	go func() {
		defer wg.Done()
		indexErr = m.index.Unregister(ctx, workflowID)
	}()
	go func() {
		defer wg.Done()
		dispatchErr = m.dispatchers.Unregister(ctx, workflowID)
	}()
	wg.Wait()

	if indexErr != nil {
		return fmt.Errorf("failed to unregister triggers: %w", indexErr)
	}
	if dispatchErr != nil {
		return fmt.Errorf("failed to unregister dispatchers: %w", dispatchErr)
	}
	return nil
}

func (m *Manager) rollbackRegistration(ctx context.Context, workflowID string) {
	if err := m.index.Unregister(ctx, workflowID); err != nil {
		m.logger.Error("rollback: failed to unregister triggers", "workflow_id", workflowID, "error", err)
	}
	if err := m.dispatchers.Unregister(ctx, workflowID); err != nil {
		m.logger.Error("rollback: failed to unregister dispatchers", "workflow_id", workflowID, "error", err)
	}
}

func (m *Manager) failDeploy(ctx context.Context, current *models.Deployment, fromStatus models.DeploymentStatus, cause error) (*models.DeploymentResult, error) {
	current.Status = models.DeploymentStatusFailed
	if err := m.deployments.Save(ctx, current); err != nil {
		m.logger.Error("failed to persist deployment failure", "workflow_id", current.WorkflowID, "error", err)
	}
	m.appendHistory(ctx, &models.DeploymentHistory{
		WorkflowID:   current.WorkflowID,
		Action:       models.DeploymentActionDeployFailed,
		FromStatus:   fromStatus,
		ToStatus:     models.DeploymentStatusFailed,
		Version:      current.Version,
		ErrorMessage: cause.Error(),
	})
	m.logger.Error("deploy failed", "workflow_id", current.WorkflowID, "error", cause)
	return nil, cause
}

func (m *Manager) currentDeployment(ctx context.Context, workflowID string) *models.Deployment {
	d, err := m.deployments.Get(ctx, workflowID)
	if err != nil {
		return &models.Deployment{
			WorkflowID: workflowID,
			Status:     models.DeploymentStatusUndeployed,
		}
	}
	return d
}

func (m *Manager) appendHistory(ctx context.Context, h *models.DeploymentHistory) {
	if err := m.deployments.AppendHistory(ctx, h); err != nil {
		m.logger.Error("failed to append deployment history",
			"workflow_id", h.WorkflowID, "action", h.Action, "error", err)
	}
}

// acquireLock takes the per-workflow deployment lock. Concurrent deploy
// and undeploy on the same workflow are serialized here.
func (m *Manager) acquireLock(ctx context.Context, workflowID string) (func(), error) {
	if m.locker == nil {
		return func() {}, nil
	}

	key := lockKeyPrefix + workflowID
	ok, err := m.locker.SetNX(ctx, key, uuid.NewString(), lockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire deployment lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("deployment already in progress for workflow %s", workflowID)
	}

	return func() {
		if err := m.locker.Delete(context.Background(), key); err != nil {
			m.logger.Warn("failed to release deployment lock", "workflow_id", workflowID, "error", err)
		}
	}, nil
}
