package runners

import (
	"context"

	"github.com/tidewave/conductor/common/models"
)

// TriggerRunner emits the inbound trigger data as the node's main output
type TriggerRunner struct{}

// NewTriggerRunner creates the trigger passthrough runner
func NewTriggerRunner() *TriggerRunner {
	return &TriggerRunner{}
}

// Run passes trigger data through
func (r *TriggerRunner) Run(_ context.Context, node *models.Node, _ map[string]interface{}, rc *RunContext) (*Result, error) {
	data := rc.Trigger.Data
	if data == nil {
		data = map[string]interface{}{}
	}
	return &Result{
		Outputs: map[string]interface{}{"main": data},
		Metadata: map[string]interface{}{
			"trigger_type": rc.Trigger.Type,
			"subtype":      node.Subtype,
		},
	}, nil
}
