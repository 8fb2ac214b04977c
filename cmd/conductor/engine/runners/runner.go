package runners

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tidewave/conductor/common/models"
)

// Logger interface for logging
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
}

// RunContext carries per-execution state into a runner
type RunContext struct {
	ExecutionID string
	WorkflowID  string
	Trigger     models.TriggerInfo
	Logger      Logger
}

// PendingHuman signals a run that suspended waiting for human input
type PendingHuman struct {
	Token           string
	InteractionType string
	Message         string
	Timeout         time.Duration
}

// Result is a runner's outcome. Outputs are keyed by output port; a
// bare value under "main" is the common case. Pending set means the node
// is waiting for a human and holds no outputs yet.
type Result struct {
	Outputs  map[string]interface{}
	Metadata map[string]interface{}
	Pending  *PendingHuman
}

// Runner executes one node
type Runner interface {
	Run(ctx context.Context, node *models.Node, inputs map[string]interface{}, rc *RunContext) (*Result, error)
}

type registryKey struct {
	nodeType models.NodeType
	subtype  string
}

// Registry maps (type, subtype) pairs to runners. A registration with an
// empty subtype is the family fallback.
type Registry struct {
	mu      sync.RWMutex
	runners map[registryKey]Runner
}

// NewRegistry creates an empty runner registry
func NewRegistry() *Registry {
	return &Registry{runners: make(map[registryKey]Runner)}
}

// Add registers a runner for an exact (type, subtype) pair
func (r *Registry) Add(nodeType models.NodeType, subtype string, runner Runner) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runners[registryKey{nodeType, subtype}] = runner
}

// AddFamily registers a fallback runner for a whole node type
func (r *Registry) AddFamily(nodeType models.NodeType, runner Runner) {
	r.Add(nodeType, "", runner)
}

// Resolve finds the runner for a node, preferring the exact subtype
func (r *Registry) Resolve(node *models.Node) (Runner, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if runner, ok := r.runners[registryKey{node.Type, node.Subtype}]; ok {
		return runner, nil
	}
	if runner, ok := r.runners[registryKey{node.Type, ""}]; ok {
		return runner, nil
	}
	return nil, &models.EngineError{
		Message: fmt.Sprintf("no runner for node type %s subtype %s", node.Type, node.Subtype),
	}
}

// configMap returns a nested map from node configurations
func configMap(node *models.Node, key string) map[string]interface{} {
	m, _ := node.Configurations[key].(map[string]interface{})
	return m
}

// configString returns a string configuration value
func configString(node *models.Node, key string) string {
	s, _ := node.Configurations[key].(string)
	return s
}

// configFloat returns a numeric configuration value
func configFloat(node *models.Node, key string, def float64) float64 {
	switch v := node.Configurations[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return def
}

// configInt returns an integer configuration value
func configInt(node *models.Node, key string, def int) int {
	switch v := node.Configurations[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return def
}

// mainInput returns the primary input value for a node
func mainInput(inputs map[string]interface{}) interface{} {
	if v, ok := inputs["main"]; ok {
		return v
	}
	return inputs
}

// inputText extracts a human-readable text from the primary input
func inputText(inputs map[string]interface{}) string {
	switch v := mainInput(inputs).(type) {
	case string:
		return v
	case map[string]interface{}:
		for _, key := range []string{"message", "text", "content", "output"} {
			if s, ok := v[key].(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}
