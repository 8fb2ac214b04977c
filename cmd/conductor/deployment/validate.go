package deployment

import (
	"github.com/tidewave/conductor/common/models"
)

// validateWorkflow enforces the structural rules a workflow must satisfy
// before any trigger is extracted
func validateWorkflow(wf *models.Workflow) error {
	if wf == nil {
		return models.NewValidationError("workflow", "workflow spec is required")
	}
	if wf.ID == "" {
		return models.NewValidationError("id", "workflow id is required")
	}
	if len(wf.Nodes) == 0 {
		return models.NewValidationError("nodes", "workflow has no nodes")
	}

	seen := make(map[string]bool, len(wf.Nodes))
	triggers := 0
	for _, node := range wf.Nodes {
		if node.ID == "" {
			return models.NewValidationError("nodes", "node without id")
		}
		if seen[node.ID] {
			return models.NewValidationError("nodes", "duplicate node id %q", node.ID)
		}
		seen[node.ID] = true

		if node.Type == models.NodeTypeTrigger {
			triggers++
			if !models.KnownTriggerType(node.Subtype) {
				return models.NewValidationError("nodes", "node %q has unrecognized trigger subtype %q", node.ID, node.Subtype)
			}
		}
	}
	if triggers == 0 {
		return models.NewValidationError("nodes", "workflow has no trigger nodes")
	}

	for _, conn := range wf.Connections {
		from := wf.NodeByID(conn.FromNode)
		to := wf.NodeByID(conn.ToNode)
		if from == nil {
			return models.NewValidationError("connections", "connection references unknown node %q", conn.FromNode)
		}
		if to == nil {
			return models.NewValidationError("connections", "connection references unknown node %q", conn.ToNode)
		}
	}

	return nil
}
