package providers

import (
	"context"
	"strings"

	"github.com/google/go-github/v68/github"
	"github.com/tidewave/conductor/common/models"
)

// GitHubIssuesAPI is the slice of the GitHub client the adapter uses
type GitHubIssuesAPI interface {
	Create(ctx context.Context, owner, repo string, issue *github.IssueRequest) (*github.Issue, *github.Response, error)
	CreateComment(ctx context.Context, owner, repo string, number int, comment *github.IssueComment) (*github.IssueComment, *github.Response, error)
}

// GitHubAdapter performs repository actions through the GitHub API
type GitHubAdapter struct {
	issues GitHubIssuesAPI
	logger Logger
}

// NewGitHubAdapter creates a GitHub adapter from a token
func NewGitHubAdapter(token string, logger Logger) *GitHubAdapter {
	client := github.NewClient(nil)
	if token != "" {
		client = client.WithAuthToken(token)
	}
	return &GitHubAdapter{issues: client.Issues, logger: logger}
}

// NewGitHubAdapterWithClient creates a GitHub adapter over an existing client
func NewGitHubAdapterWithClient(issues GitHubIssuesAPI, logger Logger) *GitHubAdapter {
	return &GitHubAdapter{issues: issues, logger: logger}
}

// Provider returns the provider name
func (a *GitHubAdapter) Provider() string {
	return "GITHUB"
}

// Execute dispatches on action_type
func (a *GitHubAdapter) Execute(ctx context.Context, actionType string, params map[string]interface{}) (map[string]interface{}, error) {
	switch actionType {
	case "create_issue", "default_action", "":
		return a.createIssue(ctx, params)
	case "create_comment":
		return a.createComment(ctx, params)
	default:
		return nil, models.NewValidationError("action_type", "unsupported github action %q", actionType)
	}
}

func (a *GitHubAdapter) createIssue(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error) {
	owner, repo, err := splitRepository(paramString(params, "repository"))
	if err != nil {
		return nil, err
	}
	title := paramString(params, "title")
	if title == "" {
		return nil, models.NewValidationError("title", "github create_issue requires a title")
	}

	request := &github.IssueRequest{Title: github.Ptr(title)}
	if body := paramString(params, "body"); body != "" {
		request.Body = github.Ptr(body)
	}
	if labels, ok := params["labels"].([]interface{}); ok && len(labels) > 0 {
		names := make([]string, 0, len(labels))
		for _, l := range labels {
			if s, ok := l.(string); ok {
				names = append(names, s)
			}
		}
		request.Labels = &names
	}

	issue, _, err := a.issues.Create(ctx, owner, repo, request)
	if err != nil {
		return nil, &models.TemporaryError{Message: "github create_issue failed", Cause: err}
	}

	a.logger.Debug("github issue created", "repository", owner+"/"+repo, "number", issue.GetNumber())
	return map[string]interface{}{
		"number":   issue.GetNumber(),
		"html_url": issue.GetHTMLURL(),
		"title":    title,
	}, nil
}

func (a *GitHubAdapter) createComment(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error) {
	owner, repo, err := splitRepository(paramString(params, "repository"))
	if err != nil {
		return nil, err
	}
	number, ok := params["issue_number"].(float64)
	if !ok {
		if n, isInt := params["issue_number"].(int); isInt {
			number, ok = float64(n), true
		}
	}
	if !ok || number <= 0 {
		return nil, models.NewValidationError("issue_number", "github create_comment requires issue_number")
	}
	body := paramString(params, "body")
	if body == "" {
		return nil, models.NewValidationError("body", "github create_comment requires body")
	}

	comment, _, err := a.issues.CreateComment(ctx, owner, repo, int(number), &github.IssueComment{Body: github.Ptr(body)})
	if err != nil {
		return nil, &models.TemporaryError{Message: "github create_comment failed", Cause: err}
	}

	return map[string]interface{}{
		"id":       comment.GetID(),
		"html_url": comment.GetHTMLURL(),
	}, nil
}

func splitRepository(full string) (string, string, error) {
	parts := strings.SplitN(full, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", models.NewValidationError("repository", "repository must be owner/name, got %q", full)
	}
	return parts[0], parts[1], nil
}
