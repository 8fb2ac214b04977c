package router

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidewave/conductor/common/models"
	"github.com/tidewave/conductor/common/repository"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Debug(string, ...interface{}) {}

type captureSink struct {
	events []*models.GitHubWebhookEvent
}

func (s *captureSink) Insert(_ context.Context, ev *models.GitHubWebhookEvent) error {
	s.events = append(s.events, ev)
	return nil
}

func registerTrigger(t *testing.T, index *repository.MemoryTriggerIndex, workflowID string, spec *models.TriggerSpec) {
	t.Helper()
	require.NoError(t, index.Register(context.Background(), workflowID, []*models.TriggerSpec{spec}))
}

func TestRouteCron_MatchesAllRegistered(t *testing.T) {
	index := repository.NewMemoryTriggerIndex()
	r := New(index, nil, nopLogger{})

	expr := "*/5 * * * *"
	registerTrigger(t, index, "wf-1", &models.TriggerSpec{Type: models.TriggerTypeCron, IndexKey: expr})
	registerTrigger(t, index, "wf-2", &models.TriggerSpec{Type: models.TriggerTypeCron, IndexKey: expr})
	registerTrigger(t, index, "wf-3", &models.TriggerSpec{Type: models.TriggerTypeCron, IndexKey: "0 0 * * *"})

	matches, err := r.RouteCron(context.Background(), expr, "UTC", time.Now())
	require.NoError(t, err)
	assert.Len(t, matches, 2)
	for _, m := range matches {
		assert.Equal(t, expr, m.TriggerData["cron_expression"])
	}
}

func TestRouteCron_PausedExcluded(t *testing.T) {
	index := repository.NewMemoryTriggerIndex()
	r := New(index, nil, nopLogger{})

	expr := "*/5 * * * *"
	registerTrigger(t, index, "wf-1", &models.TriggerSpec{Type: models.TriggerTypeCron, IndexKey: expr})
	require.NoError(t, index.UpdateStatus(context.Background(), "wf-1", models.TriggerStatusPaused))

	matches, err := r.RouteCron(context.Background(), expr, "UTC", time.Now())
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestRouteWebhook_MethodFilter(t *testing.T) {
	index := repository.NewMemoryTriggerIndex()
	r := New(index, nil, nopLogger{})

	registerTrigger(t, index, "wf-1", &models.TriggerSpec{
		Type:     models.TriggerTypeWebhook,
		IndexKey: "/hooks/build",
		Config:   map[string]interface{}{"allowed_methods": []interface{}{"POST"}},
	})

	matches, err := r.RouteWebhook(context.Background(), &WebhookEnvelope{Method: "POST", Path: "/hooks/build"})
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	matches, err = r.RouteWebhook(context.Background(), &WebhookEnvelope{Method: "GET", Path: "/hooks/build"})
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestRouteGitHub_BranchScenario(t *testing.T) {
	index := repository.NewMemoryTriggerIndex()
	sink := &captureSink{}
	r := New(index, sink, nopLogger{})

	registerTrigger(t, index, "wf-1", &models.TriggerSpec{
		Type:     models.TriggerTypeGitHub,
		IndexKey: "acme/widgets",
		Config: map[string]interface{}{
			"event_config": map[string]interface{}{"push": map[string]interface{}{}},
			"branches":     []interface{}{"main"},
		},
	})

	// push to main: one match
	matches, err := r.RouteGitHub(context.Background(), "d1", "push", pushPayload("refs/heads/main"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	// push to dev: zero
	matches, err = r.RouteGitHub(context.Background(), "d2", "push", pushPayload("refs/heads/dev"))
	require.NoError(t, err)
	assert.Empty(t, matches)

	// pull_request opened on main: zero (event type not configured)
	prPayload := map[string]interface{}{
		"action": "opened",
		"repository": map[string]interface{}{
			"full_name": "acme/widgets",
		},
		"pull_request": map[string]interface{}{
			"base": map[string]interface{}{"ref": "main"},
		},
		"sender": map[string]interface{}{"login": "octocat"},
	}
	matches, err = r.RouteGitHub(context.Background(), "d3", "pull_request", prPayload)
	require.NoError(t, err)
	assert.Empty(t, matches)

	// Every ingest is audited regardless of match count
	require.Len(t, sink.events, 3)
	assert.Equal(t, 1, sink.events[0].MatchedWorkflows)
	assert.Equal(t, "acme/widgets", sink.events[0].Repository)
}

func TestRouteGitHub_RepositoryAgnosticRows(t *testing.T) {
	index := repository.NewMemoryTriggerIndex()
	r := New(index, nil, nopLogger{})

	registerTrigger(t, index, "wf-any", &models.TriggerSpec{
		Type:     models.TriggerTypeGitHub,
		IndexKey: "",
		Config:   map[string]interface{}{"event_config": []interface{}{"push"}},
	})

	matches, err := r.RouteGitHub(context.Background(), "d1", "push", pushPayload("refs/heads/main"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestRouteSlack_WorkspaceUnion(t *testing.T) {
	index := repository.NewMemoryTriggerIndex()
	r := New(index, nil, nopLogger{})

	registerTrigger(t, index, "wf-scoped", &models.TriggerSpec{
		Type:     models.TriggerTypeSlack,
		IndexKey: "T111",
	})
	registerTrigger(t, index, "wf-agnostic", &models.TriggerSpec{
		Type:     models.TriggerTypeSlack,
		IndexKey: "",
	})

	event := map[string]interface{}{"type": "message", "text": "hi"}
	matches, err := r.RouteSlack(context.Background(), "T111", event)
	require.NoError(t, err)
	assert.Len(t, matches, 2)

	matches, err = r.RouteSlack(context.Background(), "T999", event)
	require.NoError(t, err)
	assert.Len(t, matches, 1)
	assert.Equal(t, "wf-agnostic", matches[0].WorkflowID)
}

func TestRouteEmail_Filters(t *testing.T) {
	index := repository.NewMemoryTriggerIndex()
	r := New(index, nil, nopLogger{})

	registerTrigger(t, index, "wf-1", &models.TriggerSpec{
		Type:     models.TriggerTypeEmail,
		IndexKey: "inbox@acme.dev",
		Config: map[string]interface{}{
			"sender_filter":  "*@trusted.com",
			"subject_filter": "[alert]*",
		},
	})

	matches, err := r.RouteEmail(context.Background(), &EmailMessage{
		From:    "ops@trusted.com",
		To:      "inbox@acme.dev",
		Subject: "[alert] disk full",
	})
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	matches, err = r.RouteEmail(context.Background(), &EmailMessage{
		From:    "spam@evil.com",
		To:      "inbox@acme.dev",
		Subject: "[alert] disk full",
	})
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestNormalizeWebhookPath(t *testing.T) {
	cases := map[string]string{
		"hooks/Build":        "/hooks/build",
		"/hooks/build/":      "/hooks/build",
		"/Hooks/Build?x=1":   "/hooks/build",
		"":                   "/",
		"/":                  "/",
	}
	for in, want := range cases {
		if got := NormalizeWebhookPath(in); got != want {
			t.Errorf("NormalizeWebhookPath(%q) = %q, want %q", in, got, want)
		}
	}
}
