// Package container assembles the service object graph from bootstrap
// components: repositories, router, dispatchers, deployment manager,
// runner registry, and the execution engine.
package container

import (
	"context"
	"fmt"

	"github.com/tidewave/conductor/cmd/conductor/deployment"
	"github.com/tidewave/conductor/cmd/conductor/dispatch"
	"github.com/tidewave/conductor/cmd/conductor/engine"
	"github.com/tidewave/conductor/cmd/conductor/engine/execlog"
	"github.com/tidewave/conductor/cmd/conductor/engine/runners"
	"github.com/tidewave/conductor/cmd/conductor/metrics"
	"github.com/tidewave/conductor/cmd/conductor/providers"
	"github.com/tidewave/conductor/cmd/conductor/router"
	"github.com/tidewave/conductor/common/bootstrap"
	"github.com/tidewave/conductor/common/config"
	"github.com/tidewave/conductor/common/logger"
	"github.com/tidewave/conductor/common/models"
	"github.com/tidewave/conductor/common/repository"
)

// Container holds the fully wired service
type Container struct {
	Components *bootstrap.Components

	Index       *repository.TriggerIndexRepository
	Workflows   *repository.WorkflowRepository
	Deployments *repository.DeploymentRepository
	Executions  *repository.ExecutionRepository
	Tokens      *repository.OAuthTokenRepository

	Router      *router.Router
	Dispatchers *dispatch.Registry
	Cron        *dispatch.CronDispatcher
	Webhook     *dispatch.WebhookDispatcher
	GitHub      *dispatch.GitHubDispatcher
	Slack       *dispatch.SlackDispatcher
	Email       *dispatch.EmailDispatcher
	Manual      *dispatch.ManualDispatcher

	Deployment *deployment.Manager
	Engine     *engine.Engine
	ExecLog    *execlog.Log
	Metrics    *metrics.Metrics
}

// New wires the service. Components must carry a database, Redis, and a
// queue.
func New(c *bootstrap.Components) (*Container, error) {
	if c.DB == nil {
		return nil, fmt.Errorf("container requires a database")
	}
	cfg := c.Config
	log := c.Logger

	ct := &Container{
		Components:  c,
		Index:       repository.NewTriggerIndexRepository(c.DB),
		Workflows:   repository.NewWorkflowRepository(c.DB),
		Deployments: repository.NewDeploymentRepository(c.DB),
		Executions:  repository.NewExecutionRepository(c.DB),
		Tokens:      repository.NewOAuthTokenRepository(c.DB),
		Metrics:     metrics.New(),
	}

	events := repository.NewGitHubEventRepository(c.DB)
	ct.Router = router.New(ct.Index, events, log)

	// a typed nil must not leak into the interface fields
	var sink execlog.Sink
	var pending engine.PendingStore
	var locker deployment.Locker
	if c.Redis != nil {
		sink = execlog.NewRedisSink(c.Redis)
		pending = c.Redis
		locker = c.Redis
	}
	ct.ExecLog = execlog.New(cfg.Engine.LogBufferSize, sink)

	ct.Engine = engine.NewEngine(&engine.Opts{
		Workflows:  ct.Workflows,
		Executions: ct.Executions,
		Queue:      c.Queue,
		Pending:    pending,
		Runners:    buildRunnerRegistry(cfg, log),
		ExecLog:    ct.ExecLog,
		Config:     cfg,
		Observer:   ct.Metrics,
		Logger:     log,
	})

	ct.Cron = dispatch.NewCronDispatcher(ct.Router, ct.Engine, log)
	ct.Webhook = dispatch.NewWebhookDispatcher(ct.Router, ct.Engine, log)
	ct.GitHub = dispatch.NewGitHubDispatcher(cfg.Providers.GitHubWebhookSecret, ct.Router, ct.Engine, log)
	ct.Slack = dispatch.NewSlackDispatcher(cfg.Providers.SlackSigningSecret, ct.Router, ct.Engine, log)
	ct.Email = dispatch.NewEmailDispatcher(ct.Router, ct.Engine, log)
	ct.Manual = dispatch.NewManualDispatcher(ct.Router, ct.Engine, log)

	ct.Dispatchers = dispatch.NewRegistry()
	ct.Dispatchers.Add(ct.Cron)
	ct.Dispatchers.Add(ct.Webhook)
	ct.Dispatchers.Add(ct.GitHub)
	ct.Dispatchers.Add(ct.Slack)
	ct.Dispatchers.Add(ct.Email)
	ct.Dispatchers.Add(ct.Manual)

	ct.Deployment = deployment.NewManager(&deployment.Opts{
		Index:       ct.Index,
		Dispatchers: ct.Dispatchers,
		Workflows:   ct.Workflows,
		Deployments: ct.Deployments,
		Tokens:      ct.Tokens,
		Channels:    providers.NewSlackChannelResolver(log),
		Locker:      locker,
		Logger:      log,
	})

	return ct, nil
}

// buildRunnerRegistry registers every runner family the engine can
// dispatch to
func buildRunnerRegistry(cfg *config.Config, log *logger.Logger) *runners.Registry {
	reg := runners.NewRegistry()
	reg.AddFamily(models.NodeTypeTrigger, runners.NewTriggerRunner())

	aiOpts := func(caller runners.ProviderCaller) *runners.AIRunnerOpts {
		return &runners.AIRunnerOpts{
			Caller:        caller,
			Timeout:       cfg.Engine.AITimeout,
			RetryAttempts: cfg.Engine.RetryAttempts,
			RetryBackoff:  cfg.Engine.RetryBackoff,
		}
	}
	reg.Add(models.NodeTypeAIAgent, "OPENAI_CHATGPT",
		runners.NewAIRunner(aiOpts(runners.NewOpenAICaller(cfg.Providers.OpenAIAPIKey))))
	reg.Add(models.NodeTypeAIAgent, "ANTHROPIC_CLAUDE",
		runners.NewAIRunner(aiOpts(runners.NewAnthropicCaller(cfg.Providers.AnthropicAPIKey))))
	reg.Add(models.NodeTypeAIAgent, "GOOGLE_GEMINI",
		runners.NewAIRunner(aiOpts(runners.NewGeminiCaller(cfg.Providers.GeminiAPIKey, cfg.Engine.AITimeout))))

	adapters := providers.NewRegistry()
	adapters.Add(providers.NewSlackAdapter(cfg.Providers.SlackBotToken, log))
	adapters.Add(providers.NewGitHubAdapter(cfg.Providers.GitHubToken, log))
	adapters.Add(providers.NewCalendarAdapter(cfg.Providers.CalendarToken, cfg.Engine.AdapterTimeout, log))
	adapters.Add(providers.NewNotionAdapter(cfg.Providers.NotionToken, cfg.Engine.AdapterTimeout, log))
	reg.AddFamily(models.NodeTypeExternalAction, runners.NewExternalActionRunner(adapters))

	reg.AddFamily(models.NodeTypeFlow, runners.NewFlowRunner(runners.NewConditionEvaluator()))
	reg.AddFamily(models.NodeTypeHumanInTheLoop, runners.NewHILRunner())
	reg.AddFamily(models.NodeTypeTool, runners.NewToolRunner())
	reg.AddFamily(models.NodeTypeAction, runners.NewActionRunner(cfg.Engine.AdapterTimeout))
	return reg
}

// Start brings up the background machinery: cron scheduler and the
// async execution worker
func (ct *Container) Start(ctx context.Context) error {
	ct.Cron.Start()
	if err := ct.Engine.StartWorker(ctx); err != nil {
		return fmt.Errorf("failed to start execution worker: %w", err)
	}
	return nil
}

// Stop halts the background machinery
func (ct *Container) Stop() {
	ct.Cron.Stop()
}
