package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tidewave/conductor/cmd/conductor/engine/execlog"
	"github.com/tidewave/conductor/cmd/conductor/engine/runners"
	"github.com/tidewave/conductor/common/models"
)

// actionTypeDefaults fills missing external-action action_type values
var actionTypeDefaults = map[string]string{
	"SLACK":           "send_message",
	"GITHUB":          "create_issue",
	"GOOGLE_CALENDAR": "create_event",
	"NOTION":          "create_page",
}

// runNode executes one node through its phase sequence
func (e *Engine) runNode(ctx context.Context, st *execState, nodeID string) {
	node := st.graph.Node(nodeID)
	exec := st.exec

	ne := &models.NodeExecution{
		NodeID:    nodeID,
		NodeName:  node.Name,
		Phase:     models.NodePhaseQueued,
		StartTime: nowMillis(),
	}
	st.mu.Lock()
	exec.NodeExecutions[nodeID] = ne
	st.mu.Unlock()

	runner, err := e.runners.Resolve(node)
	if err != nil {
		e.failNode(st, ne, err)
		return
	}

	ne.Phase = models.NodePhaseStarting
	e.autoFillActionType(exec, node)

	ne.Phase = models.NodePhaseValidatingInputs
	inputs := st.inputsFor(nodeID)
	ne.InputParameters = inputs

	e.logMilestone(exec, nodeID, models.LogLevelInfo,
		fmt.Sprintf("▶️ %s: %s", node.Name, InputSummary(inputs)),
		map[string]interface{}{"node_type": node.Type, "subtype": node.Subtype})

	ne.Phase = models.NodePhaseProcessing
	result, err := runner.Run(ctx, node, inputs, &runners.RunContext{
		ExecutionID: exec.ExecutionID,
		WorkflowID:  exec.WorkflowID,
		Trigger:     exec.TriggerInfo,
		Logger:      e.logger,
	})
	if err != nil {
		e.failNode(st, ne, err)
		return
	}

	if result.Pending != nil {
		e.parkNode(ctx, st, node, ne, result.Pending)
		return
	}

	ne.Phase = models.NodePhaseCompleting
	outputs := normalizeOutputs(result)
	ne.OutputParameters = outputs
	if len(result.Metadata) > 0 {
		ne.PerformanceMetrics = result.Metadata
	}

	st.recordOutputs(nodeID, outputs, func(connKey string, transformErr error) {
		e.logMilestone(exec, nodeID, models.LogLevelError,
			fmt.Sprintf("transform failed on %s, passing raw value", connKey),
			map[string]interface{}{"error": transformErr.Error()})
	})

	ne.Phase = models.NodePhaseCompleted
	ne.EndTime = nowMillis()
	e.logMilestone(exec, nodeID, models.LogLevelProgress,
		execlog.NodeCompleteMessage(node.Name, ne.DurationMS()), nil)
	if e.observer != nil {
		e.observer.NodeFinished(ne.Phase, time.Duration(ne.DurationMS())*time.Millisecond)
	}
}

// autoFillActionType defaults a missing external-action action_type to
// the provider family default and logs the auto-fix
func (e *Engine) autoFillActionType(exec *models.Execution, node *models.Node) {
	if node.Type != models.NodeTypeExternalAction {
		return
	}
	if at, ok := node.Configurations["action_type"].(string); ok && at != "" {
		return
	}
	def, ok := actionTypeDefaults[node.Subtype]
	if !ok {
		def = "default_action"
	}
	if node.Configurations == nil {
		node.Configurations = make(map[string]interface{})
	}
	node.Configurations["action_type"] = def
	e.logMilestone(exec, node.ID, models.LogLevelWarning,
		fmt.Sprintf("auto-filled action_type=%s for %s node %s", def, node.Subtype, node.ID), nil)
}

// normalizeOutputs wraps a bare main value as {main: value}
func normalizeOutputs(result *runners.Result) map[string]interface{} {
	if result.Outputs != nil {
		return result.Outputs
	}
	return map[string]interface{}{"main": nil}
}

func (e *Engine) failNode(st *execState, ne *models.NodeExecution, err error) {
	ne.Phase = models.NodePhaseFailed
	ne.EndTime = nowMillis()
	ne.ErrorDetails = errorDetails(err)

	node := st.graph.Node(ne.NodeID)
	tolerated := nodeContinueOnFailure(node, st.workflow)
	st.recordFailure(ne.ErrorDetails.Type, err.Error(), tolerated)

	e.logMilestone(st.exec, ne.NodeID, models.LogLevelError,
		fmt.Sprintf("❌ %s failed: %v", ne.NodeName, err),
		map[string]interface{}{"error_type": ne.ErrorDetails.Type, "continue_on_failure": tolerated})
	if e.observer != nil {
		e.observer.NodeFinished(ne.Phase, time.Duration(ne.DurationMS())*time.Millisecond)
	}
}

// parkNode records WAITING_HUMAN, stores the pending token, and emits
// the human-interaction milestone. The run pauses; a resume call
// finalizes this node and re-enters the engine.
func (e *Engine) parkNode(ctx context.Context, st *execState, node *models.Node, ne *models.NodeExecution, pending *runners.PendingHuman) {
	ne.Phase = models.NodePhaseWaitingHuman

	if err := e.storePending(ctx, st.exec.ExecutionID, node.ID, pending); err != nil {
		e.failNode(st, ne, fmt.Errorf("failed to store pending token: %w", err))
		return
	}

	e.logMilestone(st.exec, node.ID, models.LogLevelProgress,
		execlog.HumanInteractionMessage(pending.InteractionType, pending.Message, pending.Timeout),
		map[string]interface{}{"interaction_type": pending.InteractionType})
	st.markPaused()
}

// nodeContinueOnFailure: per-node setting overrides the workflow default
func nodeContinueOnFailure(node *models.Node, wf *models.Workflow) bool {
	if node != nil {
		if v, ok := node.Configurations["continue_on_failure"].(bool); ok {
			return v
		}
	}
	return wf.Settings.ContinueOnFailure
}

func errorDetails(err error) *models.ErrorDetails {
	details := &models.ErrorDetails{
		Type:    "ExecutionError",
		Message: err.Error(),
	}

	var validationErr *models.ValidationError
	var authErr *models.AuthError
	var tempErr *models.TemporaryError
	var engineErr *models.EngineError
	switch {
	case errors.As(err, &validationErr):
		details.Type = "ValidationError"
		details.Context = map[string]interface{}{"field": validationErr.Field}
	case errors.As(err, &authErr):
		details.Type = "AuthError"
	case errors.As(err, &tempErr):
		details.Type = "TemporaryError"
	case errors.As(err, &engineErr):
		details.Type = "EngineError"
	}
	return details
}
