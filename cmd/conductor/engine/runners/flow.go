package runners

import (
	"context"
	"fmt"
	"strings"

	"github.com/tidewave/conductor/common/models"
)

// FlowRunner executes FLOW nodes (IF, SWITCH, WHILE, LOOP, MERGE).
// Control flow is expressed through output ports: downstream scheduling
// only follows ports that were written.
type FlowRunner struct {
	conditions *ConditionEvaluator
}

// NewFlowRunner creates a flow-control runner
func NewFlowRunner(conditions *ConditionEvaluator) *FlowRunner {
	return &FlowRunner{conditions: conditions}
}

// Run dispatches on the flow subtype
func (r *FlowRunner) Run(_ context.Context, node *models.Node, inputs map[string]interface{}, rc *RunContext) (*Result, error) {
	switch node.Subtype {
	case "IF":
		return r.runIf(node, inputs)
	case "SWITCH":
		return r.runSwitch(node, inputs)
	case "WHILE":
		return r.runWhile(node, inputs, rc)
	case "LOOP":
		return r.runLoop(node, inputs)
	case "MERGE":
		return r.runMerge(inputs)
	default:
		return nil, &models.EngineError{Message: fmt.Sprintf("unknown flow subtype %s", node.Subtype)}
	}
}

// runIf writes the input to exactly one of the true/false ports
func (r *FlowRunner) runIf(node *models.Node, inputs map[string]interface{}) (*Result, error) {
	condition := configString(node, "condition")
	if condition == "" {
		return nil, models.NewValidationError("condition", "IF node %s has no condition", node.ID)
	}

	value := mainInput(inputs)
	taken, err := r.conditions.EvaluateBool(condition, value)
	if err != nil {
		return nil, err
	}

	port := "false"
	if taken {
		port = "true"
	}
	return &Result{
		Outputs:  map[string]interface{}{port: value},
		Metadata: map[string]interface{}{"condition": condition, "result": taken},
	}, nil
}

// runSwitch routes the input to the port matching the evaluated case value
func (r *FlowRunner) runSwitch(node *models.Node, inputs map[string]interface{}) (*Result, error) {
	expression := configString(node, "expression")
	if expression == "" {
		return nil, models.NewValidationError("expression", "SWITCH node %s has no expression", node.ID)
	}

	value := mainInput(inputs)
	evaluated, err := r.conditions.EvaluateValue(expression, value)
	if err != nil {
		return nil, err
	}

	port := "default"
	key := fmt.Sprintf("%v", evaluated)
	if cases := configMap(node, "cases"); cases != nil {
		if mapped, ok := cases[key].(string); ok {
			port = mapped
		}
	}
	return &Result{
		Outputs:  map[string]interface{}{port: value},
		Metadata: map[string]interface{}{"case": key, "port": port},
	}, nil
}

// runWhile re-evaluates its condition against {value, iteration} up to
// max_iterations and reports how many passes the condition survived
func (r *FlowRunner) runWhile(node *models.Node, inputs map[string]interface{}, rc *RunContext) (*Result, error) {
	condition := configString(node, "condition")
	if condition == "" {
		return nil, models.NewValidationError("condition", "WHILE node %s has no condition", node.ID)
	}
	maxIterations := configInt(node, "max_iterations", 100)

	value := mainInput(inputs)
	iterations := 0
	for iterations < maxIterations {
		keep, err := r.conditions.EvaluateBool(condition, map[string]interface{}{
			"value":     value,
			"iteration": iterations,
		})
		if err != nil {
			return nil, err
		}
		if !keep {
			break
		}
		iterations++
	}
	if iterations == maxIterations {
		rc.Logger.Warn("while loop hit iteration cap", "node_id", node.ID, "max_iterations", maxIterations)
	}

	return &Result{
		Outputs: map[string]interface{}{
			"main": map[string]interface{}{"value": value, "iterations": iterations},
		},
	}, nil
}

// runLoop fans a list input into an indexed item collection
func (r *FlowRunner) runLoop(node *models.Node, inputs map[string]interface{}) (*Result, error) {
	value := mainInput(inputs)

	var items []interface{}
	switch v := value.(type) {
	case []interface{}:
		items = v
	case map[string]interface{}:
		if path := configString(node, "items_path"); path != "" {
			if found, ok := lookupInput(v, path); ok {
				items, _ = found.([]interface{})
			}
		} else if list, ok := v["items"].([]interface{}); ok {
			items = list
		}
	}

	return &Result{
		Outputs: map[string]interface{}{
			"main": map[string]interface{}{"items": items, "count": len(items)},
		},
	}, nil
}

// runMerge combines every written input port into a single map
func (r *FlowRunner) runMerge(inputs map[string]interface{}) (*Result, error) {
	merged := make(map[string]interface{}, len(inputs))
	for port, value := range inputs {
		if m, ok := value.(map[string]interface{}); ok && port == "main" {
			for k, v := range m {
				merged[k] = v
			}
			continue
		}
		merged[port] = value
	}
	return &Result{
		Outputs: map[string]interface{}{"main": merged},
	}, nil
}

func lookupInput(value map[string]interface{}, path string) (interface{}, bool) {
	var current interface{} = value
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}
