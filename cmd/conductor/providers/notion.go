package providers

import (
	"context"
	"time"

	"github.com/tidewave/conductor/common/models"
)

const (
	notionBaseURL = "https://api.notion.com/v1"
	notionVersion = "2022-06-28"
)

// NotionAdapter creates pages through the Notion REST API
type NotionAdapter struct {
	rest    *restClient
	baseURL string
	token   string
	logger  Logger
}

// NewNotionAdapter creates a Notion adapter
func NewNotionAdapter(token string, timeout time.Duration, logger Logger) *NotionAdapter {
	return &NotionAdapter{
		rest:    newRESTClient(timeout),
		baseURL: notionBaseURL,
		token:   token,
		logger:  logger,
	}
}

// Provider returns the provider name
func (a *NotionAdapter) Provider() string {
	return "NOTION"
}

// Execute dispatches on action_type
func (a *NotionAdapter) Execute(ctx context.Context, actionType string, params map[string]interface{}) (map[string]interface{}, error) {
	switch actionType {
	case "create_page", "default_action", "":
		return a.createPage(ctx, params)
	default:
		return nil, models.NewValidationError("action_type", "unsupported notion action %q", actionType)
	}
}

func (a *NotionAdapter) createPage(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error) {
	parentID := paramString(params, "parent_id")
	if parentID == "" {
		parentID = paramString(params, "database_id")
	}
	if parentID == "" {
		return nil, models.NewValidationError("parent_id", "notion create_page requires parent_id or database_id")
	}
	title := paramString(params, "title")
	if title == "" {
		return nil, models.NewValidationError("title", "notion create_page requires a title")
	}

	page := map[string]interface{}{
		"parent": map[string]interface{}{"database_id": parentID},
		"properties": map[string]interface{}{
			"title": map[string]interface{}{
				"title": []interface{}{
					map[string]interface{}{
						"text": map[string]interface{}{"content": title},
					},
				},
			},
		},
	}

	resp, err := a.rest.postJSON(ctx, a.baseURL+"/pages", map[string]string{
		"Authorization":  "Bearer " + a.token,
		"Notion-Version": notionVersion,
	}, page)
	if err != nil {
		return nil, err
	}

	a.logger.Debug("notion page created", "page_id", resp["id"])
	return map[string]interface{}{
		"page_id": resp["id"],
		"url":     resp["url"],
		"title":   title,
	}, nil
}
