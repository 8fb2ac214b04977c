package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-github/v68/github"
	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidewave/conductor/common/models"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Debug(string, ...interface{}) {}

type fakeSlack struct {
	channel  string
	text     string
	channels []slack.Channel
	pages    int
}

func (f *fakeSlack) PostMessageContext(_ context.Context, channelID string, options ...slack.MsgOption) (string, string, error) {
	f.channel = channelID
	return channelID, "123.456", nil
}

func (f *fakeSlack) GetConversationsContext(_ context.Context, params *slack.GetConversationsParameters) ([]slack.Channel, string, error) {
	f.pages++
	return f.channels, "", nil
}

func namedChannel(id, name string) slack.Channel {
	ch := slack.Channel{}
	ch.ID = id
	ch.Name = name
	return ch
}

func TestSlackAdapter_SendMessage(t *testing.T) {
	api := &fakeSlack{}
	a := NewSlackAdapterWithClient(api, nopLogger{})

	out, err := a.Execute(context.Background(), "send_message", map[string]interface{}{
		"channel":  "#general",
		"text":     "🎭 a joke 🎭",
		"username": "JokeBot",
	})
	require.NoError(t, err)
	assert.Equal(t, "#general", api.channel)
	assert.Equal(t, true, out["delivered"])
	assert.Equal(t, "123.456", out["ts"])
}

func TestSlackAdapter_MissingChannel(t *testing.T) {
	a := NewSlackAdapterWithClient(&fakeSlack{}, nopLogger{})
	_, err := a.Execute(context.Background(), "send_message", map[string]interface{}{"text": "hi"})
	require.Error(t, err)

	var vErr *models.ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestSlackChannelResolver(t *testing.T) {
	api := &fakeSlack{channels: []slack.Channel{
		namedChannel("C001", "random"),
		namedChannel("C09D2JW6814", "general"),
	}}
	r := NewSlackChannelResolver(nopLogger{})
	r.newClient = func(string) SlackAPI { return api }

	id, err := r.ResolveChannel(context.Background(), "xoxb-test", "general")
	require.NoError(t, err)
	assert.Equal(t, "C09D2JW6814", id)

	_, err = r.ResolveChannel(context.Background(), "xoxb-test", "missing")
	require.Error(t, err)
}

type fakeIssues struct {
	createdTitle string
	commented    int
}

func (f *fakeIssues) Create(_ context.Context, owner, repo string, issue *github.IssueRequest) (*github.Issue, *github.Response, error) {
	f.createdTitle = issue.GetTitle()
	return &github.Issue{Number: github.Ptr(7), HTMLURL: github.Ptr("https://github.com/" + owner + "/" + repo + "/issues/7")}, nil, nil
}

func (f *fakeIssues) CreateComment(_ context.Context, owner, repo string, number int, comment *github.IssueComment) (*github.IssueComment, *github.Response, error) {
	f.commented = number
	return &github.IssueComment{ID: github.Ptr(int64(11))}, nil, nil
}

func TestGitHubAdapter_CreateIssue(t *testing.T) {
	api := &fakeIssues{}
	a := NewGitHubAdapterWithClient(api, nopLogger{})

	out, err := a.Execute(context.Background(), "create_issue", map[string]interface{}{
		"repository": "acme/widgets",
		"title":      "build broken",
		"body":       "main is red",
	})
	require.NoError(t, err)
	assert.Equal(t, "build broken", api.createdTitle)
	assert.Equal(t, 7, out["number"])
}

func TestGitHubAdapter_BadRepository(t *testing.T) {
	a := NewGitHubAdapterWithClient(&fakeIssues{}, nopLogger{})
	_, err := a.Execute(context.Background(), "create_issue", map[string]interface{}{
		"repository": "not-a-full-name",
		"title":      "x",
	})
	require.Error(t, err)
}

func TestCalendarAdapter_CreateEvent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/calendars/primary/events", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "standup", body["summary"])
		json.NewEncoder(w).Encode(map[string]interface{}{"id": "ev-1", "htmlLink": "https://cal/ev-1"})
	}))
	defer server.Close()

	a := NewCalendarAdapter("tok", time.Second, nopLogger{})
	a.baseURL = server.URL

	out, err := a.Execute(context.Background(), "create_event", map[string]interface{}{"summary": "standup"})
	require.NoError(t, err)
	assert.Equal(t, "ev-1", out["event_id"])
}

func TestNotionAdapter_CreatePage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pages", r.URL.Path)
		assert.Equal(t, notionVersion, r.Header.Get("Notion-Version"))
		json.NewEncoder(w).Encode(map[string]interface{}{"id": "pg-1", "url": "https://notion/pg-1"})
	}))
	defer server.Close()

	a := NewNotionAdapter("tok", time.Second, nopLogger{})
	a.baseURL = server.URL

	out, err := a.Execute(context.Background(), "create_page", map[string]interface{}{
		"database_id": "db-1",
		"title":       "meeting notes",
	})
	require.NoError(t, err)
	assert.Equal(t, "pg-1", out["page_id"])
}

func TestRESTClient_TemporaryOn500(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := newRESTClient(time.Second)
	_, err := c.postJSON(context.Background(), server.URL, nil, map[string]interface{}{})
	require.Error(t, err)

	var tErr *models.TemporaryError
	assert.ErrorAs(t, err, &tErr)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Add(NewSlackAdapterWithClient(&fakeSlack{}, nopLogger{}))

	_, err := r.Get("SLACK")
	require.NoError(t, err)
	_, err = r.Get("FAX_MACHINE")
	require.Error(t, err)
}
