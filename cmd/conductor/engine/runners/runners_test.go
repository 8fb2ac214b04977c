package runners

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidewave/conductor/cmd/conductor/providers"
	"github.com/tidewave/conductor/common/models"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Debug(string, ...interface{}) {}

func testRC() *RunContext {
	return &RunContext{
		ExecutionID: "exec-1",
		WorkflowID:  "wf-1",
		Trigger: models.TriggerInfo{
			Type: models.TriggerTypeCron,
			Data: map[string]interface{}{"cron_expression": "*/5 * * * *"},
		},
		Logger: nopLogger{},
	}
}

func TestRegistry_Resolve(t *testing.T) {
	r := NewRegistry()
	r.Add(models.NodeTypeAIAgent, "OPENAI_CHATGPT", NewTriggerRunner())
	r.AddFamily(models.NodeTypeFlow, NewTriggerRunner())

	_, err := r.Resolve(&models.Node{Type: models.NodeTypeAIAgent, Subtype: "OPENAI_CHATGPT"})
	require.NoError(t, err)

	_, err = r.Resolve(&models.Node{Type: models.NodeTypeFlow, Subtype: "IF"})
	require.NoError(t, err, "family fallback should resolve")

	_, err = r.Resolve(&models.Node{Type: models.NodeTypeAIAgent, Subtype: "UNKNOWN_LLM"})
	require.Error(t, err)
	var engErr *models.EngineError
	assert.ErrorAs(t, err, &engErr)
}

func TestTriggerRunner_Passthrough(t *testing.T) {
	result, err := NewTriggerRunner().Run(context.Background(), &models.Node{ID: "t", Subtype: "CRON"}, nil, testRC())
	require.NoError(t, err)

	main := result.Outputs["main"].(map[string]interface{})
	assert.Equal(t, "*/5 * * * *", main["cron_expression"])
}

type scriptedCaller struct {
	failures int
	calls    int
	content  string
}

func (c *scriptedCaller) Name() string { return "scripted" }

func (c *scriptedCaller) Call(_ context.Context, req *AIRequest) (*AIResponse, error) {
	c.calls++
	if c.calls <= c.failures {
		return nil, &models.TemporaryError{Message: "rate limited"}
	}
	return &AIResponse{
		Content:    c.content,
		TokenUsage: map[string]interface{}{"total_tokens": 10},
	}, nil
}

func aiNode() *models.Node {
	return &models.Node{
		ID: "agent", Type: models.NodeTypeAIAgent, Subtype: "OPENAI_CHATGPT",
		Configurations: map[string]interface{}{
			"system_prompt": "Tell a joke",
			"model":         "gpt-4o-mini",
		},
	}
}

func TestAIRunner_RetriesTemporary(t *testing.T) {
	caller := &scriptedCaller{failures: 2, content: "a joke"}
	r := NewAIRunner(&AIRunnerOpts{Caller: caller, RetryAttempts: 3, RetryBackoff: time.Millisecond})

	result, err := r.Run(context.Background(), aiNode(), map[string]interface{}{"main": "go on"}, testRC())
	require.NoError(t, err)
	assert.Equal(t, 3, caller.calls)

	main := result.Outputs["main"].(map[string]interface{})
	assert.Equal(t, "a joke", main["content"])
	assert.Equal(t, "a joke", main["output"])
}

func TestAIRunner_ExhaustsRetries(t *testing.T) {
	caller := &scriptedCaller{failures: 10}
	r := NewAIRunner(&AIRunnerOpts{Caller: caller, RetryAttempts: 2, RetryBackoff: time.Millisecond})

	_, err := r.Run(context.Background(), aiNode(), map[string]interface{}{"main": "go"}, testRC())
	require.Error(t, err)
	assert.Equal(t, 2, caller.calls)
}

func TestAIRunner_NoPromptFails(t *testing.T) {
	r := NewAIRunner(&AIRunnerOpts{Caller: &scriptedCaller{}})
	_, err := r.Run(context.Background(), aiNode(), map[string]interface{}{}, testRC())
	require.Error(t, err)
}

func TestAIRunner_AttachedChildren(t *testing.T) {
	caller := &scriptedCaller{content: "ok"}
	r := NewAIRunner(&AIRunnerOpts{Caller: caller, RetryBackoff: time.Millisecond})

	node := aiNode()
	node.AttachedNodes = []*models.Node{
		{ID: "tool-1", Name: "search", Type: models.NodeTypeTool, Configurations: map[string]interface{}{"description": "web search"}},
		{ID: "mem-1", Type: models.NodeTypeMemory, Configurations: map[string]interface{}{"context": "prior conversation"}},
	}

	req := r.buildRequest(node, map[string]interface{}{"main": "hello"})
	require.Len(t, req.Tools, 1)
	assert.Equal(t, "search", req.Tools[0].Name)
	assert.Contains(t, req.SystemPrompt, "prior conversation")
}

func TestFlowRunner_If(t *testing.T) {
	r := NewFlowRunner(NewConditionEvaluator())
	node := &models.Node{
		ID: "gate", Type: models.NodeTypeFlow, Subtype: "IF",
		Configurations: map[string]interface{}{"condition": "input.approved == true"},
	}

	result, err := r.Run(context.Background(), node, map[string]interface{}{
		"main": map[string]interface{}{"approved": true},
	}, testRC())
	require.NoError(t, err)
	_, hasTrue := result.Outputs["true"]
	_, hasFalse := result.Outputs["false"]
	assert.True(t, hasTrue)
	assert.False(t, hasFalse, "only the taken port is written")

	result, err = r.Run(context.Background(), node, map[string]interface{}{
		"main": map[string]interface{}{"approved": false},
	}, testRC())
	require.NoError(t, err)
	_, hasFalse = result.Outputs["false"]
	assert.True(t, hasFalse)
}

func TestFlowRunner_IfJSONPathCompat(t *testing.T) {
	r := NewFlowRunner(NewConditionEvaluator())
	node := &models.Node{
		ID: "gate", Type: models.NodeTypeFlow, Subtype: "IF",
		Configurations: map[string]interface{}{"condition": "$.approved == true"},
	}

	result, err := r.Run(context.Background(), node, map[string]interface{}{
		"main": map[string]interface{}{"approved": true},
	}, testRC())
	require.NoError(t, err)
	_, hasTrue := result.Outputs["true"]
	assert.True(t, hasTrue)
}

func TestFlowRunner_Switch(t *testing.T) {
	r := NewFlowRunner(NewConditionEvaluator())
	node := &models.Node{
		ID: "route", Type: models.NodeTypeFlow, Subtype: "SWITCH",
		Configurations: map[string]interface{}{
			"expression": "input.severity",
			"cases": map[string]interface{}{
				"high": "page",
				"low":  "log",
			},
		},
	}

	result, err := r.Run(context.Background(), node, map[string]interface{}{
		"main": map[string]interface{}{"severity": "high"},
	}, testRC())
	require.NoError(t, err)
	_, ok := result.Outputs["page"]
	assert.True(t, ok)

	result, err = r.Run(context.Background(), node, map[string]interface{}{
		"main": map[string]interface{}{"severity": "unknown"},
	}, testRC())
	require.NoError(t, err)
	_, ok = result.Outputs["default"]
	assert.True(t, ok)
}

func TestFlowRunner_WhileBounded(t *testing.T) {
	r := NewFlowRunner(NewConditionEvaluator())
	node := &models.Node{
		ID: "loop", Type: models.NodeTypeFlow, Subtype: "WHILE",
		Configurations: map[string]interface{}{
			"condition":      "input.iteration < 3",
			"max_iterations": 10,
		},
	}

	result, err := r.Run(context.Background(), node, map[string]interface{}{"main": map[string]interface{}{}}, testRC())
	require.NoError(t, err)
	main := result.Outputs["main"].(map[string]interface{})
	assert.Equal(t, 3, main["iterations"])
}

func TestFlowRunner_Merge(t *testing.T) {
	r := NewFlowRunner(NewConditionEvaluator())
	node := &models.Node{ID: "join", Type: models.NodeTypeFlow, Subtype: "MERGE"}

	result, err := r.Run(context.Background(), node, map[string]interface{}{
		"left":  map[string]interface{}{"a": 1},
		"right": map[string]interface{}{"b": 2},
	}, testRC())
	require.NoError(t, err)

	main := result.Outputs["main"].(map[string]interface{})
	assert.Len(t, main, 2)
}

func TestConditionEvaluator_Cache(t *testing.T) {
	e := NewConditionEvaluator()
	for i := 0; i < 3; i++ {
		ok, err := e.EvaluateBool("input.x > 1", map[string]interface{}{"x": 5})
		require.NoError(t, err)
		assert.True(t, ok)
	}
	assert.Equal(t, 1, e.CacheSize())
}

func TestHILRunner_Pending(t *testing.T) {
	node := &models.Node{
		ID: "approve", Type: models.NodeTypeHumanInTheLoop,
		Configurations: map[string]interface{}{
			"interaction_type": "approval",
			"message_template": "Approve the deploy?",
			"timeout_seconds":  3600,
		},
	}

	result, err := NewHILRunner().Run(context.Background(), node, nil, testRC())
	require.NoError(t, err)
	require.NotNil(t, result.Pending)
	assert.NotEmpty(t, result.Pending.Token)
	assert.Equal(t, "approval", result.Pending.InteractionType)
	assert.Equal(t, time.Hour, result.Pending.Timeout)
}

func TestToolRunner(t *testing.T) {
	r := NewToolRunner()
	r.Register("adder", func(_ context.Context, args map[string]interface{}) (map[string]interface{}, error) {
		a, _ := args["a"].(float64)
		b, _ := args["b"].(float64)
		return map[string]interface{}{"sum": a + b}, nil
	})

	node := &models.Node{
		ID: "calc", Type: models.NodeTypeTool,
		Configurations: map[string]interface{}{"tool_name": "adder"},
	}
	result, err := r.Run(context.Background(), node, map[string]interface{}{
		"main": map[string]interface{}{"a": float64(2), "b": float64(3)},
	}, testRC())
	require.NoError(t, err)

	main := result.Outputs["main"].(map[string]interface{})
	assert.Equal(t, float64(5), main["sum"])

	node.Configurations["tool_name"] = "missing"
	_, err = r.Run(context.Background(), node, nil, testRC())
	require.Error(t, err)
}

type echoAdapter struct {
	lastAction string
	lastParams map[string]interface{}
}

func (a *echoAdapter) Provider() string { return "SLACK" }

func (a *echoAdapter) Execute(_ context.Context, actionType string, params map[string]interface{}) (map[string]interface{}, error) {
	a.lastAction = actionType
	a.lastParams = params
	return map[string]interface{}{"delivered": true}, nil
}

func TestExternalActionRunner(t *testing.T) {
	adapters := providers.NewRegistry()
	adapter := &echoAdapter{}
	adapters.Add(adapter)

	r := NewExternalActionRunner(adapters)
	node := &models.Node{
		ID: "notify", Type: models.NodeTypeExternalAction, Subtype: "SLACK",
		Configurations: map[string]interface{}{
			"action_type": "send_message",
			"channel":     "#general",
		},
	}

	result, err := r.Run(context.Background(), node, map[string]interface{}{
		"main": map[string]interface{}{"text": "🎭 a joke 🎭", "username": "JokeBot"},
	}, testRC())
	require.NoError(t, err)

	assert.Equal(t, "send_message", adapter.lastAction)
	assert.Equal(t, "#general", adapter.lastParams["channel"])
	assert.Equal(t, "🎭 a joke 🎭", adapter.lastParams["text"])
	main := result.Outputs["main"].(map[string]interface{})
	assert.Equal(t, true, main["delivered"])
}

func TestExternalActionRunner_UnknownProvider(t *testing.T) {
	r := NewExternalActionRunner(providers.NewRegistry())
	node := &models.Node{ID: "x", Type: models.NodeTypeExternalAction, Subtype: "FAX"}
	_, err := r.Run(context.Background(), node, nil, testRC())
	require.Error(t, err)
}

func TestActionRunner_Transform(t *testing.T) {
	r := NewActionRunner(time.Second)
	node := &models.Node{
		ID: "shape", Type: models.NodeTypeAction, Subtype: "TRANSFORM",
		Configurations: map[string]interface{}{
			"transform": map[string]interface{}{
				"type":  "extract_field",
				"field": "a.b",
			},
		},
	}

	result, err := r.Run(context.Background(), node, map[string]interface{}{
		"main": map[string]interface{}{"a": map[string]interface{}{"b": "deep"}},
	}, testRC())
	require.NoError(t, err)
	assert.Equal(t, "deep", result.Outputs["main"])
}

func TestMergeFailure(t *testing.T) {
	// WHILE without a condition is a validation error, not a crash
	r := NewFlowRunner(NewConditionEvaluator())
	node := &models.Node{ID: "w", Type: models.NodeTypeFlow, Subtype: "WHILE"}
	_, err := r.Run(context.Background(), node, nil, testRC())
	require.Error(t, err)
	var vErr *models.ValidationError
	assert.ErrorAs(t, err, &vErr)
}
