// Package engine drives workflow executions end to end: graph
// construction, level-parallel scheduling, input assembly, runner
// dispatch, and output propagation.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tidewave/conductor/cmd/conductor/engine/execlog"
	"github.com/tidewave/conductor/cmd/conductor/engine/graph"
	"github.com/tidewave/conductor/cmd/conductor/engine/runners"
	"github.com/tidewave/conductor/cmd/conductor/engine/transform"
	"github.com/tidewave/conductor/common/config"
	"github.com/tidewave/conductor/common/models"
	"github.com/tidewave/conductor/common/queue"
)

// ExecutionsTopic is the queue topic async executions are published to
const ExecutionsTopic = "executions"

// Logger interface for logging
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
}

// WorkflowStore loads deployed workflow documents
type WorkflowStore interface {
	Get(ctx context.Context, workflowID string) (*models.Workflow, error)
}

// ExecutionStore persists execution records
type ExecutionStore interface {
	Save(ctx context.Context, exec *models.Execution) error
	Get(ctx context.Context, executionID string) (*models.Execution, error)
}

// PendingStore holds human-in-the-loop pending tokens. Matches the
// shared Redis client.
type PendingStore interface {
	SetWithExpiry(ctx context.Context, key, value string, expiry time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, keys ...string) error
}

// Observer receives terminal outcomes for metrics
type Observer interface {
	ExecutionFinished(status models.ExecutionStatus, duration time.Duration)
	NodeFinished(phase models.NodePhase, duration time.Duration)
}

// Opts configures an Engine
type Opts struct {
	Workflows  WorkflowStore
	Executions ExecutionStore
	Queue      queue.Queue
	Pending    PendingStore
	Runners    *runners.Registry
	ExecLog    *execlog.Log
	Config     *config.Config
	Observer   Observer
	Logger     Logger
}

// Engine runs workflow executions. One engine instance owns every
// execution it starts; in-flight runs are tracked for cancellation.
type Engine struct {
	workflows  WorkflowStore
	executions ExecutionStore
	queue      queue.Queue
	pending    PendingStore
	runners    *runners.Registry
	execLog    *execlog.Log
	cfg        *config.Config
	observer   Observer
	logger     Logger

	mu      sync.Mutex
	running map[string]*runState
}

type runState struct {
	cancel   context.CancelFunc
	canceled bool
}

// NewEngine creates an execution engine
func NewEngine(opts *Opts) *Engine {
	return &Engine{
		workflows:  opts.Workflows,
		executions: opts.Executions,
		queue:      opts.Queue,
		pending:    opts.Pending,
		runners:    opts.Runners,
		execLog:    opts.ExecLog,
		cfg:        opts.Config,
		observer:   opts.Observer,
		logger:     opts.Logger,
		running:    make(map[string]*runState),
	}
}

// executionMessage is the queue payload for async executions
type executionMessage struct {
	ExecutionID string             `json:"execution_id"`
	WorkflowID  string             `json:"workflow_id"`
	TriggerInfo models.TriggerInfo `json:"trigger_info"`
}

// ExecuteAsync creates the execution in NEW state, hands it to the
// worker queue, and returns immediately
func (e *Engine) ExecuteAsync(ctx context.Context, workflowID string, trigger models.TriggerInfo) (string, error) {
	exec := e.newExecution(workflowID, trigger)
	exec.Status = models.ExecutionStatusNew
	if err := e.executions.Save(ctx, exec); err != nil {
		return "", fmt.Errorf("failed to create execution: %w", err)
	}

	msg, err := json.Marshal(&executionMessage{
		ExecutionID: exec.ExecutionID,
		WorkflowID:  workflowID,
		TriggerInfo: trigger,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode execution message: %w", err)
	}

	if e.queue != nil {
		if err := e.queue.Publish(ctx, ExecutionsTopic, exec.ExecutionID, msg); err != nil {
			return "", fmt.Errorf("failed to enqueue execution: %w", err)
		}
	} else {
		go e.runByID(context.Background(), exec.ExecutionID, workflowID, trigger)
	}
	return exec.ExecutionID, nil
}

// ExecuteSync runs the workflow to a terminal state before returning
func (e *Engine) ExecuteSync(ctx context.Context, workflowID string, trigger models.TriggerInfo) (*models.Execution, error) {
	exec := e.newExecution(workflowID, trigger)
	if err := e.executions.Save(ctx, exec); err != nil {
		return nil, fmt.Errorf("failed to create execution: %w", err)
	}
	e.run(ctx, exec)
	return exec, nil
}

// StartWorker subscribes to the executions topic and drives queued
// executions until ctx is canceled
func (e *Engine) StartWorker(ctx context.Context) error {
	if e.queue == nil {
		return nil
	}
	return e.queue.Subscribe(ctx, ExecutionsTopic, func(ctx context.Context, key string, value []byte) error {
		var msg executionMessage
		if err := json.Unmarshal(value, &msg); err != nil {
			return fmt.Errorf("failed to decode execution message: %w", err)
		}
		e.runByID(ctx, msg.ExecutionID, msg.WorkflowID, msg.TriggerInfo)
		return nil
	})
}

// GetExecution retrieves an execution record
func (e *Engine) GetExecution(ctx context.Context, executionID string) (*models.Execution, error) {
	return e.executions.Get(ctx, executionID)
}

// Logs returns retained log entries for one execution
func (e *Engine) Logs(executionID string, filter execlog.Filter) []*models.LogEntry {
	filter.ExecutionID = executionID
	return e.execLog.Query(filter)
}

// Cancel stops an in-flight execution. Already-terminal executions are
// left untouched.
func (e *Engine) Cancel(ctx context.Context, executionID string) error {
	e.mu.Lock()
	state, inFlight := e.running[executionID]
	if inFlight {
		state.canceled = true
		state.cancel()
	}
	e.mu.Unlock()
	if inFlight {
		return nil
	}

	exec, err := e.executions.Get(ctx, executionID)
	if err != nil {
		return err
	}
	if exec.Status.IsTerminal() {
		return fmt.Errorf("execution %s already %s", executionID, exec.Status)
	}
	exec.Status = models.ExecutionStatusCanceled
	exec.EndTime = nowMillis()
	return e.executions.Save(ctx, exec)
}

func (e *Engine) newExecution(workflowID string, trigger models.TriggerInfo) *models.Execution {
	return &models.Execution{
		ExecutionID:    uuid.NewString(),
		WorkflowID:     workflowID,
		Status:         models.ExecutionStatusRunning,
		StartTime:      nowMillis(),
		TriggerInfo:    trigger,
		NodeExecutions: make(map[string]*models.NodeExecution),
	}
}

func (e *Engine) runByID(ctx context.Context, executionID, workflowID string, trigger models.TriggerInfo) {
	exec, err := e.executions.Get(ctx, executionID)
	if err != nil {
		exec = &models.Execution{
			ExecutionID:    executionID,
			WorkflowID:     workflowID,
			TriggerInfo:    trigger,
			StartTime:      nowMillis(),
			NodeExecutions: make(map[string]*models.NodeExecution),
		}
	}
	if exec.Status.IsTerminal() {
		return
	}
	exec.Status = models.ExecutionStatusRunning
	if exec.NodeExecutions == nil {
		exec.NodeExecutions = make(map[string]*models.NodeExecution)
	}
	e.run(ctx, exec)
}

// run drives one execution to a terminal (or paused) state
func (e *Engine) run(ctx context.Context, exec *models.Execution) {
	wf, err := e.workflows.Get(ctx, exec.WorkflowID)
	if err != nil {
		e.finish(ctx, exec, models.ExecutionStatusError, fmt.Sprintf("failed to load workflow: %v", err))
		return
	}
	exec.WorkflowVersion = wf.Version

	g, err := graph.Build(wf)
	if err != nil {
		e.logMilestone(exec, "", models.LogLevelError, fmt.Sprintf("❌ Workflow '%s' failed: %v", wf.Name, err), nil)
		e.finish(ctx, exec, models.ExecutionStatusError, err.Error())
		return
	}

	e.logMilestone(exec, "", models.LogLevelProgress,
		execlog.WorkflowStartMessage(wf.Name, g.Size(), execlog.TriggerDescription(exec.TriggerInfo)),
		map[string]interface{}{"workflow_id": wf.ID, "node_count": g.Size()})

	runCtx, cancel := context.WithTimeout(ctx, e.clampTimeout(wf))
	defer cancel()
	e.track(exec.ExecutionID, cancel)
	defer e.untrack(exec.ExecutionID)

	state := newExecState(wf, g, exec)
	state.replayCompleted()

	paused := e.iterate(runCtx, state)

	switch {
	case paused:
		exec.Status = models.ExecutionStatusPaused
		_ = e.executions.Save(ctx, exec)
	case e.wasCanceled(exec.ExecutionID):
		e.markUnfinished(exec, models.NodePhaseFailed)
		e.finish(ctx, exec, models.ExecutionStatusCanceled, "execution canceled")
	case runCtx.Err() == context.DeadlineExceeded:
		e.markUnfinished(exec, models.NodePhaseTimeout)
		e.logMilestone(exec, "", models.LogLevelError,
			fmt.Sprintf("❌ Workflow '%s' failed (%dms)", wf.Name, nowMillis()-exec.StartTime),
			map[string]interface{}{"error": "workflow timeout"})
		e.finish(ctx, exec, models.ExecutionStatusError, "workflow timeout")
	case state.failedCount() > 0 && !state.failuresTolerated:
		e.emitComplete(exec, wf, false, state)
		e.finish(ctx, exec, models.ExecutionStatusError, state.firstError)
	default:
		// tolerated failures leave the run COMPLETED; the milestone still
		// carries the failure breakdown
		e.emitComplete(exec, wf, state.failedCount() == 0, state)
		e.finish(ctx, exec, models.ExecutionStatusCompleted, "")
	}
}

// iterate schedules nodes level by level. Returns true when the run
// parked on a human interaction.
func (e *Engine) iterate(ctx context.Context, st *execState) bool {
	maxConcurrent := e.maxConcurrent(st.workflow)

	for _, level := range st.graph.Levels() {
		if ctx.Err() != nil || st.halted {
			return false
		}

		ready := st.readyNodes(level, e.logger)
		if len(ready) == 0 {
			continue
		}

		sem := make(chan struct{}, maxConcurrent)
		var wg sync.WaitGroup
		for _, nodeID := range ready {
			if ctx.Err() != nil {
				break
			}
			wg.Add(1)
			sem <- struct{}{}
			go func(id string) {
				defer wg.Done()
				defer func() { <-sem }()
				e.runNode(ctx, st, id)
			}(nodeID)
		}
		wg.Wait()

		if st.paused {
			return true
		}
	}
	return false
}

func (e *Engine) clampTimeout(wf *models.Workflow) time.Duration {
	if e.cfg != nil {
		return e.cfg.ClampTimeout(wf.Settings.TimeoutSeconds)
	}
	if wf.Settings.TimeoutSeconds > 0 {
		return time.Duration(wf.Settings.TimeoutSeconds) * time.Second
	}
	return time.Hour
}

func (e *Engine) maxConcurrent(wf *models.Workflow) int {
	if wf.Settings.MaxConcurrentNodes > 0 {
		return wf.Settings.MaxConcurrentNodes
	}
	if e.cfg != nil && e.cfg.Engine.MaxConcurrentNodes > 0 {
		return e.cfg.Engine.MaxConcurrentNodes
	}
	return 5
}

func (e *Engine) track(executionID string, cancel context.CancelFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.running[executionID] = &runState{cancel: cancel}
}

func (e *Engine) untrack(executionID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.running, executionID)
}

func (e *Engine) wasCanceled(executionID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	state, ok := e.running[executionID]
	return ok && state.canceled
}

func (e *Engine) markUnfinished(exec *models.Execution, phase models.NodePhase) {
	for _, ne := range exec.NodeExecutions {
		if !ne.Phase.IsTerminal() && ne.Phase != models.NodePhaseWaitingHuman {
			ne.Phase = phase
			if ne.EndTime == 0 {
				ne.EndTime = nowMillis()
			}
		}
	}
}

func (e *Engine) finish(ctx context.Context, exec *models.Execution, status models.ExecutionStatus, errMsg string) {
	exec.Status = status
	exec.EndTime = nowMillis()
	if errMsg != "" && status != models.ExecutionStatusCompleted {
		exec.Error = errMsg
	}
	if err := e.executions.Save(ctx, exec); err != nil {
		e.logger.Error("failed to persist execution", "execution_id", exec.ExecutionID, "error", err)
	}
	if e.observer != nil {
		e.observer.ExecutionFinished(status, time.Duration(exec.EndTime-exec.StartTime)*time.Millisecond)
	}
}

// emitComplete writes the workflow_complete milestone. It always emits,
// carrying either a success summary or the failure breakdown.
func (e *Engine) emitComplete(exec *models.Execution, wf *models.Workflow, success bool, st *execState) {
	duration := nowMillis() - exec.StartTime
	data := map[string]interface{}{
		"successful_nodes": st.completedCount(),
		"failed_nodes":     st.failedCount(),
	}
	if !success {
		data["error"] = st.firstError
		data["error_type"] = st.firstErrorType
		data["error_summary"] = fmt.Sprintf("%d of %d nodes failed", st.failedCount(), st.graph.Size())
	}
	level := models.LogLevelProgress
	if !success {
		level = models.LogLevelError
	}
	e.logMilestone(exec, "", level, execlog.WorkflowCompleteMessage(wf.Name, success, duration), data)
}

func (e *Engine) logMilestone(exec *models.Execution, nodeID string, level models.LogLevel, msg string, data map[string]interface{}) {
	e.execLog.Append(context.Background(), &models.LogEntry{
		Timestamp:      time.Now().UTC(),
		Level:          level,
		Message:        msg,
		ExecutionID:    exec.ExecutionID,
		NodeID:         nodeID,
		StructuredData: SanitizeParams(data),
	})
	switch level {
	case models.LogLevelError, models.LogLevelCritical:
		e.logger.Error(msg, "execution_id", exec.ExecutionID)
	default:
		e.logger.Info(msg, "execution_id", exec.ExecutionID)
	}
}

// execState is the per-run scheduling state. pending inputs and node
// bookkeeping are guarded by one mutex because same-level nodes complete
// concurrently.
type execState struct {
	workflow *models.Workflow
	graph    *graph.Graph
	exec     *models.Execution

	mu             sync.Mutex
	pendingInputs  map[string]map[string]interface{}
	outputs        map[string]map[string]interface{}
	transforms     map[string]*transform.Config
	halted         bool
	paused         bool
	firstError     string
	firstErrorType string

	// failuresTolerated is true when every failure so far carried
	// continue_on_failure
	failuresTolerated bool
}

func newExecState(wf *models.Workflow, g *graph.Graph, exec *models.Execution) *execState {
	st := &execState{
		workflow:          wf,
		graph:             g,
		exec:              exec,
		pendingInputs:     make(map[string]map[string]interface{}),
		outputs:           make(map[string]map[string]interface{}),
		transforms:        make(map[string]*transform.Config),
		failuresTolerated: true,
	}
	for _, conn := range g.Connections() {
		key := connectionKey(conn)
		st.transforms[key] = transform.ParseLegacy(conn.ConversionFunction)
	}
	return st
}

func connectionKey(c *models.Connection) string {
	return c.FromNode + "/" + c.FromPort + ">" + c.ToNode + "/" + c.ToPort
}

// replayCompleted re-propagates outputs of already-terminal nodes so a
// resumed run sees the same pending inputs as the original
func (st *execState) replayCompleted() {
	for nodeID, ne := range st.exec.NodeExecutions {
		if ne.Phase != models.NodePhaseCompleted || ne.OutputParameters == nil {
			continue
		}
		st.outputs[nodeID] = ne.OutputParameters
	}
	for nodeID := range st.outputs {
		st.propagate(nodeID, nil)
	}
}

// readyNodes filters one topo level down to nodes that should run now
func (st *execState) readyNodes(level []string, log Logger) []string {
	st.mu.Lock()
	defer st.mu.Unlock()

	var ready []string
	for _, nodeID := range level {
		if ne, ok := st.exec.NodeExecutions[nodeID]; ok && ne.Phase.IsTerminal() {
			continue
		}
		if ne, ok := st.exec.NodeExecutions[nodeID]; ok && ne.Phase == models.NodePhaseWaitingHuman {
			continue
		}

		runnable := true
		sawFlowPredecessor := false
		for _, pred := range st.graph.Predecessors(nodeID) {
			predExec, ok := st.exec.NodeExecutions[pred]
			if !ok || predExec.Phase != models.NodePhaseCompleted {
				runnable = false
				break
			}
			if node := st.graph.Node(pred); node != nil && node.Type == models.NodeTypeFlow {
				sawFlowPredecessor = true
			}
		}
		if !runnable {
			log.Debug("skipping node, predecessor not completed", "node_id", nodeID)
			continue
		}

		// A flow predecessor that completed without writing our port
		// means this branch was not taken
		if sawFlowPredecessor && len(st.pendingInputs[nodeID]) == 0 {
			log.Debug("skipping node, branch not taken", "node_id", nodeID)
			continue
		}
		ready = append(ready, nodeID)
	}
	return ready
}

// propagate writes a completed node's outputs into successor pending
// inputs, applying each connection's declarative transform. log may be
// nil during replay.
func (st *execState) propagate(nodeID string, log func(connKey string, err error)) {
	outputs := st.outputs[nodeID]
	if outputs == nil {
		return
	}
	for _, conn := range st.graph.Connections() {
		if conn.FromNode != nodeID {
			continue
		}
		value, written := outputs[conn.FromPort]
		if !written {
			continue
		}

		key := connectionKey(conn)
		transformed, err := transform.Apply(st.transforms[key], value)
		if err != nil {
			// best-effort: raw value passes through
			if log != nil {
				log(key, err)
			}
			transformed = value
		}

		if st.pendingInputs[conn.ToNode] == nil {
			st.pendingInputs[conn.ToNode] = make(map[string]interface{})
		}
		st.pendingInputs[conn.ToNode][conn.ToPort] = transformed
	}
}

func (st *execState) inputsFor(nodeID string) map[string]interface{} {
	st.mu.Lock()
	defer st.mu.Unlock()
	inputs := make(map[string]interface{}, len(st.pendingInputs[nodeID]))
	for port, value := range st.pendingInputs[nodeID] {
		inputs[port] = value
	}
	return inputs
}

func (st *execState) recordOutputs(nodeID string, outputs map[string]interface{}, logTransformErr func(connKey string, err error)) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.outputs[nodeID] = outputs
	st.propagate(nodeID, logTransformErr)
}

func (st *execState) recordFailure(errType, message string, tolerated bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.firstError == "" {
		st.firstError = message
		st.firstErrorType = errType
	}
	if !tolerated {
		st.halted = true
		st.failuresTolerated = false
	}
}

func (st *execState) markPaused() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.paused = true
}

func (st *execState) completedCount() int {
	n := 0
	for _, ne := range st.exec.NodeExecutions {
		if ne.Phase == models.NodePhaseCompleted {
			n++
		}
	}
	return n
}

func (st *execState) failedCount() int {
	n := 0
	for _, ne := range st.exec.NodeExecutions {
		if ne.Phase == models.NodePhaseFailed || ne.Phase == models.NodePhaseTimeout {
			n++
		}
	}
	return n
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
