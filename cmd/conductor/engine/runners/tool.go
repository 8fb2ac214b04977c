package runners

import (
	"context"
	"fmt"
	"sync"

	"github.com/tidewave/conductor/common/models"
)

// ToolFunc is one named callable tool
type ToolFunc func(ctx context.Context, args map[string]interface{}) (map[string]interface{}, error)

// ToolRunner executes TOOL nodes by dispatching to named tool functions
type ToolRunner struct {
	mu    sync.RWMutex
	tools map[string]ToolFunc
}

// NewToolRunner creates a tool runner with an empty catalog
func NewToolRunner() *ToolRunner {
	return &ToolRunner{tools: make(map[string]ToolFunc)}
}

// Register adds a named tool
func (r *ToolRunner) Register(name string, fn ToolFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[name] = fn
}

// Run resolves the tool by name and invokes it with merged arguments
func (r *ToolRunner) Run(ctx context.Context, node *models.Node, inputs map[string]interface{}, _ *RunContext) (*Result, error) {
	name := configString(node, "tool_name")
	if name == "" {
		name = node.Name
	}

	r.mu.RLock()
	fn, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return nil, &models.EngineError{Message: fmt.Sprintf("unknown tool %q", name)}
	}

	args := make(map[string]interface{})
	if static := configMap(node, "arguments"); static != nil {
		for k, v := range static {
			args[k] = v
		}
	}
	if main, ok := mainInput(inputs).(map[string]interface{}); ok {
		for k, v := range main {
			args[k] = v
		}
	}

	out, err := fn(ctx, args)
	if err != nil {
		return nil, err
	}
	return &Result{
		Outputs:  map[string]interface{}{"main": out},
		Metadata: map[string]interface{}{"tool": name},
	}, nil
}
