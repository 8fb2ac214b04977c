package runners

import (
	"context"

	"github.com/tidewave/conductor/cmd/conductor/providers"
	"github.com/tidewave/conductor/common/models"
)

// ExternalActionRunner dispatches EXTERNAL_ACTION nodes to provider
// adapters keyed on the node subtype and action_type
type ExternalActionRunner struct {
	adapters *providers.Registry
}

// NewExternalActionRunner creates an external action runner
func NewExternalActionRunner(adapters *providers.Registry) *ExternalActionRunner {
	return &ExternalActionRunner{adapters: adapters}
}

// Run merges node configuration with assembled inputs and calls the
// provider adapter
func (r *ExternalActionRunner) Run(ctx context.Context, node *models.Node, inputs map[string]interface{}, rc *RunContext) (*Result, error) {
	adapter, err := r.adapters.Get(node.Subtype)
	if err != nil {
		return nil, &models.EngineError{Message: err.Error()}
	}

	actionType := configString(node, "action_type")

	// Inputs win over static configuration on key collisions
	params := make(map[string]interface{}, len(node.Configurations)+len(inputs))
	for k, v := range node.Configurations {
		params[k] = v
	}
	if main, ok := mainInput(inputs).(map[string]interface{}); ok {
		for k, v := range main {
			params[k] = v
		}
		if at, ok := main["action_type"].(string); ok && at != "" {
			actionType = at
		}
	}

	out, err := adapter.Execute(ctx, actionType, params)
	if err != nil {
		return nil, err
	}

	return &Result{
		Outputs: map[string]interface{}{"main": out},
		Metadata: map[string]interface{}{
			"provider":    node.Subtype,
			"action_type": actionType,
		},
	}, nil
}
