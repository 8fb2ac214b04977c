package models

// ExecutionStatus is the run-level lifecycle state
type ExecutionStatus string

const (
	ExecutionStatusNew       ExecutionStatus = "NEW"
	ExecutionStatusRunning   ExecutionStatus = "RUNNING"
	ExecutionStatusPaused    ExecutionStatus = "PAUSED"
	ExecutionStatusCompleted ExecutionStatus = "COMPLETED"
	ExecutionStatusError     ExecutionStatus = "ERROR"
	ExecutionStatusCanceled  ExecutionStatus = "CANCELED"
)

// IsTerminal reports whether the status ends the run
func (s ExecutionStatus) IsTerminal() bool {
	switch s {
	case ExecutionStatusCompleted, ExecutionStatusError, ExecutionStatusCanceled:
		return true
	}
	return false
}

// NodePhase is the lifecycle position of a single node run
type NodePhase string

const (
	NodePhaseQueued           NodePhase = "QUEUED"
	NodePhaseStarting         NodePhase = "STARTING"
	NodePhaseValidatingInputs NodePhase = "VALIDATING_INPUTS"
	NodePhaseProcessing       NodePhase = "PROCESSING"
	NodePhaseWaitingHuman     NodePhase = "WAITING_HUMAN"
	NodePhaseCompleting       NodePhase = "COMPLETING"
	NodePhaseCompleted        NodePhase = "COMPLETED"
	NodePhaseFailed           NodePhase = "FAILED"
	NodePhaseTimeout          NodePhase = "TIMEOUT"
)

// IsTerminal reports whether the phase ends the node run
func (p NodePhase) IsTerminal() bool {
	switch p {
	case NodePhaseCompleted, NodePhaseFailed, NodePhaseTimeout:
		return true
	}
	return false
}

// TriggerInfo describes what started an execution
type TriggerInfo struct {
	Type   TriggerType            `json:"trigger_type"`
	Source string                 `json:"source,omitempty"`
	Data   map[string]interface{} `json:"trigger_data,omitempty"`
}

// Execution is one workflow run
type Execution struct {
	ExecutionID     string                    `json:"execution_id"`
	WorkflowID      string                    `json:"workflow_id"`
	WorkflowVersion string                    `json:"workflow_version"`
	Status          ExecutionStatus           `json:"status"`
	StartTime       int64                     `json:"start_time"` // epoch millis
	EndTime         int64                     `json:"end_time,omitempty"`
	TriggerInfo     TriggerInfo               `json:"trigger_info"`
	NodeExecutions  map[string]*NodeExecution `json:"node_executions"`
	Error           string                    `json:"error,omitempty"`
}

// NodeExecution is one node's run within an execution
type NodeExecution struct {
	NodeID             string                 `json:"node_id"`
	NodeName           string                 `json:"node_name,omitempty"`
	Phase              NodePhase              `json:"phase"`
	StartTime          int64                  `json:"start_time,omitempty"` // epoch millis
	EndTime            int64                  `json:"end_time,omitempty"`
	InputParameters    map[string]interface{} `json:"input_parameters,omitempty"`
	OutputParameters   map[string]interface{} `json:"output_parameters,omitempty"`
	ErrorDetails       *ErrorDetails          `json:"error_details,omitempty"`
	PerformanceMetrics map[string]interface{} `json:"performance_metrics,omitempty"`
}

// DurationMS returns the node run duration in milliseconds
func (ne *NodeExecution) DurationMS() int64 {
	if ne.StartTime == 0 || ne.EndTime == 0 {
		return 0
	}
	return ne.EndTime - ne.StartTime
}

// ErrorDetails is the structured failure record attached to a node run
type ErrorDetails struct {
	Type    string                 `json:"type"`
	Message string                 `json:"message"`
	Context map[string]interface{} `json:"context,omitempty"`
}
