package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidewave/conductor/cmd/conductor/engine/execlog"
	"github.com/tidewave/conductor/cmd/conductor/engine/runners"
	"github.com/tidewave/conductor/cmd/conductor/providers"
	"github.com/tidewave/conductor/common/logger"
	"github.com/tidewave/conductor/common/models"
	"github.com/tidewave/conductor/common/queue"
	rediscommon "github.com/tidewave/conductor/common/redis"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Debug(string, ...interface{}) {}

type memWorkflows struct {
	m map[string]*models.Workflow
}

func (s *memWorkflows) Get(_ context.Context, id string) (*models.Workflow, error) {
	wf, ok := s.m[id]
	if !ok {
		return nil, fmt.Errorf("workflow %s not found", id)
	}
	return wf, nil
}

type memExecutions struct {
	mu sync.Mutex
	m  map[string]*models.Execution
}

func newMemExecutions() *memExecutions {
	return &memExecutions{m: make(map[string]*models.Execution)}
}

func (s *memExecutions) Save(_ context.Context, exec *models.Execution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := json.Marshal(exec)
	if err != nil {
		return err
	}
	copied := &models.Execution{}
	if err := json.Unmarshal(data, copied); err != nil {
		return err
	}
	s.m[exec.ExecutionID] = copied
	return nil
}

func (s *memExecutions) Get(_ context.Context, id string) (*models.Execution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	exec, ok := s.m[id]
	if !ok {
		return nil, fmt.Errorf("execution %s not found", id)
	}
	data, _ := json.Marshal(exec)
	copied := &models.Execution{}
	_ = json.Unmarshal(data, copied)
	return copied, nil
}

type memPending struct {
	mu sync.Mutex
	m  map[string]string
}

func newMemPending() *memPending { return &memPending{m: make(map[string]string)} }

func (p *memPending) SetWithExpiry(_ context.Context, key, value string, _ time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.m[key] = value
	return nil
}

func (p *memPending) Get(_ context.Context, key string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.m[key]
	if !ok {
		return "", rediscommon.ErrNotFound
	}
	return v, nil
}

func (p *memPending) Delete(_ context.Context, keys ...string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, k := range keys {
		delete(p.m, k)
	}
	return nil
}

type jokeCaller struct{}

func (jokeCaller) Name() string { return "openai" }

func (jokeCaller) Call(_ context.Context, _ *runners.AIRequest) (*runners.AIResponse, error) {
	return &runners.AIResponse{
		Content:    "Why do programmers prefer dark mode? Because light attracts bugs.",
		TokenUsage: map[string]interface{}{"total_tokens": 42},
	}, nil
}

type captureAdapter struct {
	mu         sync.Mutex
	lastAction string
	lastParams map[string]interface{}
}

func (a *captureAdapter) Provider() string { return "SLACK" }

func (a *captureAdapter) Execute(_ context.Context, actionType string, params map[string]interface{}) (map[string]interface{}, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastAction = actionType
	a.lastParams = params
	return map[string]interface{}{"delivered": true}, nil
}

type failRunner struct{}

func (failRunner) Run(context.Context, *models.Node, map[string]interface{}, *runners.RunContext) (*runners.Result, error) {
	return nil, &models.TemporaryError{Message: "provider down"}
}

type blockRunner struct {
	started chan struct{}
	once    sync.Once
}

func (r *blockRunner) Run(ctx context.Context, _ *models.Node, _ map[string]interface{}, _ *runners.RunContext) (*runners.Result, error) {
	r.once.Do(func() { close(r.started) })
	<-ctx.Done()
	return nil, ctx.Err()
}

type engineEnv struct {
	engine     *Engine
	workflows  *memWorkflows
	executions *memExecutions
	pending    *memPending
	slack      *captureAdapter
	runners    *runners.Registry
	log        *execlog.Log
}

func newEngineEnv(t *testing.T, workflows ...*models.Workflow) *engineEnv {
	t.Helper()

	slack := &captureAdapter{}
	adapters := providers.NewRegistry()
	adapters.Add(slack)

	reg := runners.NewRegistry()
	reg.AddFamily(models.NodeTypeTrigger, runners.NewTriggerRunner())
	reg.Add(models.NodeTypeAIAgent, "OPENAI_CHATGPT", runners.NewAIRunner(&runners.AIRunnerOpts{
		Caller:       jokeCaller{},
		RetryBackoff: time.Millisecond,
	}))
	reg.AddFamily(models.NodeTypeExternalAction, runners.NewExternalActionRunner(adapters))
	reg.AddFamily(models.NodeTypeFlow, runners.NewFlowRunner(runners.NewConditionEvaluator()))
	reg.AddFamily(models.NodeTypeHumanInTheLoop, runners.NewHILRunner())
	reg.AddFamily(models.NodeTypeAction, runners.NewActionRunner(time.Second))

	wfs := &memWorkflows{m: make(map[string]*models.Workflow)}
	for _, wf := range workflows {
		wfs.m[wf.ID] = wf
	}

	env := &engineEnv{
		workflows:  wfs,
		executions: newMemExecutions(),
		pending:    newMemPending(),
		slack:      slack,
		runners:    reg,
		log:        execlog.New(200, nil),
	}
	env.engine = NewEngine(&Opts{
		Workflows:  env.workflows,
		Executions: env.executions,
		Pending:    env.pending,
		Runners:    env.runners,
		ExecLog:    env.log,
		Logger:     nopLogger{},
	})
	return env
}

func (env *engineEnv) waitStatus(t *testing.T, executionID string, status models.ExecutionStatus) *models.Execution {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		exec, err := env.executions.Get(context.Background(), executionID)
		if err == nil && exec.Status == status {
			return exec
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("execution %s never reached %s", executionID, status)
	return nil
}

func cronTrigger() models.TriggerInfo {
	return models.TriggerInfo{
		Type:   models.TriggerTypeCron,
		Source: "cron",
		Data:   map[string]interface{}{"cron_expression": "*/5 * * * *"},
	}
}

func jokeWorkflow() *models.Workflow {
	return &models.Workflow{
		ID:      "wf-joke",
		Version: "1",
		Name:    "Joke of the hour",
		Nodes: []*models.Node{
			{ID: "cron", Name: "Every 5 minutes", Type: models.NodeTypeTrigger, Subtype: "CRON",
				Configurations: map[string]interface{}{"cron_expression": "*/5 * * * *"}},
			{ID: "ai", Name: "Joke writer", Type: models.NodeTypeAIAgent, Subtype: "OPENAI_CHATGPT",
				Configurations: map[string]interface{}{"system_prompt": "Tell a joke", "model": "gpt-4o-mini"}},
			{ID: "slack", Name: "Post to Slack", Type: models.NodeTypeExternalAction, Subtype: "SLACK",
				Configurations: map[string]interface{}{"channels": []interface{}{"general"}}},
		},
		Connections: []*models.Connection{
			{FromNode: "cron", FromPort: "main", ToNode: "ai", ToPort: "main",
				ConversionFunction: `lambda input_data: {"user_prompt": "Tell me a funny joke"}`},
			{FromNode: "ai", FromPort: "main", ToNode: "slack", ToPort: "main",
				ConversionFunction: `lambda input_data: {"text": "🎭 " + input_data.get('output') + " 🎭", "channel": "#general", "username": "JokeBot"}`},
		},
	}
}

func TestCronAISlackEndToEnd(t *testing.T) {
	env := newEngineEnv(t, jokeWorkflow())

	exec, err := env.engine.ExecuteSync(context.Background(), "wf-joke", cronTrigger())
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusCompleted, exec.Status)
	require.Len(t, exec.NodeExecutions, 3)
	for _, ne := range exec.NodeExecutions {
		assert.Equal(t, models.NodePhaseCompleted, ne.Phase, ne.NodeID)
		assert.GreaterOrEqual(t, ne.EndTime, ne.StartTime)
	}

	env.slack.mu.Lock()
	defer env.slack.mu.Unlock()
	assert.Equal(t, "send_message", env.slack.lastAction)
	assert.Equal(t, "#general", env.slack.lastParams["channel"])
	assert.Equal(t, "JokeBot", env.slack.lastParams["username"])
	text, _ := env.slack.lastParams["text"].(string)
	assert.True(t, strings.HasPrefix(text, "🎭 "), text)
	assert.True(t, strings.HasSuffix(text, " 🎭"), text)
	assert.Contains(t, text, "dark mode")
}

func TestCycleFailsBeforeAnyNodeRuns(t *testing.T) {
	wf := &models.Workflow{
		ID: "wf-cycle", Name: "cyclic", Version: "1",
		Nodes: []*models.Node{
			{ID: "a", Type: models.NodeTypeAction, Subtype: "TRANSFORM"},
			{ID: "b", Type: models.NodeTypeAction, Subtype: "TRANSFORM"},
		},
		Connections: []*models.Connection{
			{FromNode: "a", FromPort: "main", ToNode: "b", ToPort: "main"},
			{FromNode: "b", FromPort: "main", ToNode: "a", ToPort: "main"},
		},
	}
	env := newEngineEnv(t, wf)

	exec, err := env.engine.ExecuteSync(context.Background(), "wf-cycle", cronTrigger())
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusError, exec.Status)
	assert.Contains(t, exec.Error, "cycle")
	assert.Empty(t, exec.NodeExecutions)
}

func TestBranchNotTakenIsSkipped(t *testing.T) {
	wf := &models.Workflow{
		ID: "wf-branch", Name: "branching", Version: "1",
		Nodes: []*models.Node{
			{ID: "start", Type: models.NodeTypeTrigger, Subtype: "MANUAL"},
			{ID: "gate", Type: models.NodeTypeFlow, Subtype: "IF",
				Configurations: map[string]interface{}{"condition": "input.approved == true"}},
			{ID: "yes", Type: models.NodeTypeAction, Subtype: "TRANSFORM"},
			{ID: "no", Type: models.NodeTypeAction, Subtype: "TRANSFORM"},
		},
		Connections: []*models.Connection{
			{FromNode: "start", FromPort: "main", ToNode: "gate", ToPort: "main"},
			{FromNode: "gate", FromPort: "true", ToNode: "yes", ToPort: "main"},
			{FromNode: "gate", FromPort: "false", ToNode: "no", ToPort: "main"},
		},
	}
	env := newEngineEnv(t, wf)

	exec, err := env.engine.ExecuteSync(context.Background(), "wf-branch", models.TriggerInfo{
		Type: models.TriggerTypeManual,
		Data: map[string]interface{}{"approved": true},
	})
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusCompleted, exec.Status)
	assert.Contains(t, exec.NodeExecutions, "yes")
	assert.NotContains(t, exec.NodeExecutions, "no")
}

func TestContinueOnFailure(t *testing.T) {
	makeWorkflow := func(id string, tolerate bool) *models.Workflow {
		failConfig := map[string]interface{}{}
		if tolerate {
			failConfig["continue_on_failure"] = true
		}
		return &models.Workflow{
			ID: id, Name: "failing", Version: "1",
			Nodes: []*models.Node{
				{ID: "start", Type: models.NodeTypeTrigger, Subtype: "MANUAL"},
				{ID: "broken", Type: models.NodeTypeTool, Subtype: "FAIL", Configurations: failConfig},
				{ID: "after", Type: models.NodeTypeAction, Subtype: "TRANSFORM"},
			},
			Connections: []*models.Connection{
				{FromNode: "start", FromPort: "main", ToNode: "broken", ToPort: "main"},
				{FromNode: "start", FromPort: "main", ToNode: "after", ToPort: "main"},
			},
		}
	}

	t.Run("tolerated failure lets siblings run", func(t *testing.T) {
		env := newEngineEnv(t, makeWorkflow("wf-tolerant", true))
		env.runners.Add(models.NodeTypeTool, "FAIL", failRunner{})

		exec, err := env.engine.ExecuteSync(context.Background(), "wf-tolerant", cronTrigger())
		require.NoError(t, err)
		assert.Equal(t, models.ExecutionStatusCompleted, exec.Status)
		assert.Equal(t, models.NodePhaseFailed, exec.NodeExecutions["broken"].Phase)
		assert.Equal(t, models.NodePhaseCompleted, exec.NodeExecutions["after"].Phase)
	})

	t.Run("default policy halts the run", func(t *testing.T) {
		wf := makeWorkflow("wf-strict", false)
		// chain: broken must fail before after is considered
		wf.Connections = []*models.Connection{
			{FromNode: "start", FromPort: "main", ToNode: "broken", ToPort: "main"},
			{FromNode: "broken", FromPort: "main", ToNode: "after", ToPort: "main"},
		}
		env := newEngineEnv(t, wf)
		env.runners.Add(models.NodeTypeTool, "FAIL", failRunner{})

		exec, err := env.engine.ExecuteSync(context.Background(), "wf-strict", cronTrigger())
		require.NoError(t, err)
		assert.Equal(t, models.ExecutionStatusError, exec.Status)
		assert.Equal(t, "TemporaryError", exec.NodeExecutions["broken"].ErrorDetails.Type)
		assert.NotContains(t, exec.NodeExecutions, "after")
	})
}

func TestMissingRunnerFailsNode(t *testing.T) {
	wf := &models.Workflow{
		ID: "wf-norunner", Name: "no runner", Version: "1",
		Nodes: []*models.Node{
			{ID: "start", Type: models.NodeTypeTrigger, Subtype: "MANUAL"},
			{ID: "mystery", Type: models.NodeTypeTool, Subtype: "UNREGISTERED"},
		},
		Connections: []*models.Connection{
			{FromNode: "start", FromPort: "main", ToNode: "mystery", ToPort: "main"},
		},
	}
	env := newEngineEnv(t, wf)

	exec, err := env.engine.ExecuteSync(context.Background(), "wf-norunner", cronTrigger())
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusError, exec.Status)
	assert.Equal(t, "EngineError", exec.NodeExecutions["mystery"].ErrorDetails.Type)
}

func TestHumanInTheLoopParkAndResume(t *testing.T) {
	wf := &models.Workflow{
		ID: "wf-hil", Name: "approval gate", Version: "1",
		Nodes: []*models.Node{
			{ID: "start", Type: models.NodeTypeTrigger, Subtype: "MANUAL"},
			{ID: "approve", Name: "Manager approval", Type: models.NodeTypeHumanInTheLoop,
				Configurations: map[string]interface{}{"message_template": "Approve the release?"}},
			{ID: "ship", Type: models.NodeTypeAction, Subtype: "TRANSFORM"},
		},
		Connections: []*models.Connection{
			{FromNode: "start", FromPort: "main", ToNode: "approve", ToPort: "main"},
			{FromNode: "approve", FromPort: "main", ToNode: "ship", ToPort: "main"},
		},
	}
	env := newEngineEnv(t, wf)
	ctx := context.Background()

	exec, err := env.engine.ExecuteSync(ctx, "wf-hil", cronTrigger())
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusPaused, exec.Status)
	require.Equal(t, models.NodePhaseWaitingHuman, exec.NodeExecutions["approve"].Phase)

	raw, err := env.pending.Get(ctx, pendingKey(exec.ExecutionID, "approve"))
	require.NoError(t, err)
	var record pendingRecord
	require.NoError(t, json.Unmarshal([]byte(raw), &record))
	assert.Equal(t, "approval", record.InteractionType)

	err = env.engine.Resume(ctx, exec.ExecutionID, "approve", "wrong-token", nil)
	require.Error(t, err)
	var authErr *models.AuthError
	assert.ErrorAs(t, err, &authErr)

	err = env.engine.Resume(ctx, exec.ExecutionID, "approve", record.Token, map[string]interface{}{"approved": true})
	require.NoError(t, err)

	final := env.waitStatus(t, exec.ExecutionID, models.ExecutionStatusCompleted)
	assert.Equal(t, models.NodePhaseCompleted, final.NodeExecutions["approve"].Phase)
	assert.Equal(t, models.NodePhaseCompleted, final.NodeExecutions["ship"].Phase)
}

func TestCancelInFlightExecution(t *testing.T) {
	block := &blockRunner{started: make(chan struct{})}
	wf := &models.Workflow{
		ID: "wf-slow", Name: "slow", Version: "1",
		Nodes: []*models.Node{
			{ID: "start", Type: models.NodeTypeTrigger, Subtype: "MANUAL"},
			{ID: "slow", Type: models.NodeTypeTool, Subtype: "BLOCK"},
		},
		Connections: []*models.Connection{
			{FromNode: "start", FromPort: "main", ToNode: "slow", ToPort: "main"},
		},
	}
	env := newEngineEnv(t, wf)
	env.runners.Add(models.NodeTypeTool, "BLOCK", block)

	executionID, err := env.engine.ExecuteAsync(context.Background(), "wf-slow", cronTrigger())
	require.NoError(t, err)

	select {
	case <-block.started:
	case <-time.After(3 * time.Second):
		t.Fatal("runner never started")
	}

	require.NoError(t, env.engine.Cancel(context.Background(), executionID))
	final := env.waitStatus(t, executionID, models.ExecutionStatusCanceled)
	assert.NotZero(t, final.EndTime)
}

func TestAsyncExecutionThroughQueue(t *testing.T) {
	env := newEngineEnv(t, jokeWorkflow())
	q := queue.NewMemoryQueue(logger.New("error", "json"))
	env.engine.queue = q

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, env.engine.StartWorker(ctx))

	executionID, err := env.engine.ExecuteAsync(ctx, "wf-joke", cronTrigger())
	require.NoError(t, err)

	final := env.waitStatus(t, executionID, models.ExecutionStatusCompleted)
	assert.Len(t, final.NodeExecutions, 3)
}

func TestWorkflowLogsCarryMilestones(t *testing.T) {
	env := newEngineEnv(t, jokeWorkflow())

	exec, err := env.engine.ExecuteSync(context.Background(), "wf-joke", cronTrigger())
	require.NoError(t, err)

	entries := env.engine.Logs(exec.ExecutionID, execlog.Filter{})
	require.NotEmpty(t, entries)
	assert.Contains(t, entries[0].Message, "🚀 Started workflow 'Joke of the hour' (3 nodes)")
	assert.Contains(t, entries[len(entries)-1].Message, "✅ Completed workflow")
}

func TestAutoFillActionType(t *testing.T) {
	wf := jokeWorkflow()
	// drop the transform-provided action_type path by wiring slack
	// straight to the trigger with no conversion
	wf.Connections = []*models.Connection{
		{FromNode: "cron", FromPort: "main", ToNode: "slack", ToPort: "main"},
	}
	wf.Nodes = []*models.Node{wf.Nodes[0], wf.Nodes[2]}
	env := newEngineEnv(t, wf)

	exec, err := env.engine.ExecuteSync(context.Background(), "wf-joke", cronTrigger())
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, exec.Status)

	env.slack.mu.Lock()
	defer env.slack.mu.Unlock()
	assert.Equal(t, "send_message", env.slack.lastAction)
}
