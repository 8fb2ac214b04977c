package runners

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"
)

// ConditionEvaluator evaluates flow-control conditions using CEL, with a
// compiled-program cache keyed by expression
type ConditionEvaluator struct {
	cache map[string]cel.Program
	mu    sync.RWMutex
}

// NewConditionEvaluator creates a condition evaluator with caching
func NewConditionEvaluator() *ConditionEvaluator {
	return &ConditionEvaluator{
		cache: make(map[string]cel.Program),
	}
}

// EvaluateBool evaluates an expression to a boolean. JSONPath-style `$.x`
// is rewritten to `input.x` for workflow compatibility.
func (e *ConditionEvaluator) EvaluateBool(expr string, input interface{}) (bool, error) {
	out, err := e.evaluate(expr, input)
	if err != nil {
		return false, err
	}
	result, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("condition did not return boolean, got %T", out)
	}
	return result, nil
}

// EvaluateValue evaluates an expression to an arbitrary value (SWITCH keys)
func (e *ConditionEvaluator) EvaluateValue(expr string, input interface{}) (interface{}, error) {
	return e.evaluate(expr, input)
}

func (e *ConditionEvaluator) evaluate(expr string, input interface{}) (interface{}, error) {
	normalized := strings.ReplaceAll(expr, "$.", "input.")

	e.mu.RLock()
	prg, exists := e.cache[normalized]
	e.mu.RUnlock()

	if !exists {
		var err error
		prg, err = e.compile(normalized)
		if err != nil {
			return nil, err
		}
		e.mu.Lock()
		e.cache[normalized] = prg
		e.mu.Unlock()
	}

	out, _, err := prg.Eval(map[string]interface{}{"input": input})
	if err != nil {
		return nil, fmt.Errorf("condition evaluation error: %w", err)
	}
	return out.Value(), nil
}

func (e *ConditionEvaluator) compile(expr string) (cel.Program, error) {
	env, err := cel.NewEnv(
		cel.Variable("input", cel.DynType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL env: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("condition compilation error: %w", issues.Err())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}
	return prg, nil
}

// CacheSize returns the number of cached expressions
func (e *ConditionEvaluator) CacheSize() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.cache)
}
