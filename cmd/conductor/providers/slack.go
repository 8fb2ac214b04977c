package providers

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"
	"github.com/tidewave/conductor/common/models"
)

// SlackAPI is the slice of the Slack client the adapter uses
type SlackAPI interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
	GetConversationsContext(ctx context.Context, params *slack.GetConversationsParameters) ([]slack.Channel, string, error)
}

// SlackAdapter sends messages through the Slack Web API
type SlackAdapter struct {
	client SlackAPI
	logger Logger
}

// NewSlackAdapter creates a Slack adapter from a bot token
func NewSlackAdapter(token string, logger Logger) *SlackAdapter {
	return &SlackAdapter{
		client: slack.New(token),
		logger: logger,
	}
}

// NewSlackAdapterWithClient creates a Slack adapter over an existing client
func NewSlackAdapterWithClient(client SlackAPI, logger Logger) *SlackAdapter {
	return &SlackAdapter{client: client, logger: logger}
}

// Provider returns the provider name
func (a *SlackAdapter) Provider() string {
	return "SLACK"
}

// Execute dispatches on action_type
func (a *SlackAdapter) Execute(ctx context.Context, actionType string, params map[string]interface{}) (map[string]interface{}, error) {
	switch actionType {
	case "send_message", "default_action", "":
		return a.sendMessage(ctx, params)
	default:
		return nil, models.NewValidationError("action_type", "unsupported slack action %q", actionType)
	}
}

func (a *SlackAdapter) sendMessage(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error) {
	channel := paramString(params, "channel")
	text := paramString(params, "text")
	if channel == "" {
		return nil, models.NewValidationError("channel", "slack send_message requires a channel")
	}
	if text == "" {
		return nil, models.NewValidationError("text", "slack send_message requires text")
	}

	options := []slack.MsgOption{slack.MsgOptionText(text, false)}
	if username := paramString(params, "username"); username != "" {
		options = append(options, slack.MsgOptionUsername(username))
	}
	if threadTS := paramString(params, "thread_ts"); threadTS != "" {
		options = append(options, slack.MsgOptionTS(threadTS))
	}

	channelID, timestamp, err := a.client.PostMessageContext(ctx, channel, options...)
	if err != nil {
		return nil, &models.TemporaryError{Message: "slack send_message failed", Cause: err}
	}

	a.logger.Debug("slack message sent", "channel", channelID, "ts", timestamp)
	return map[string]interface{}{
		"channel":   channelID,
		"ts":        timestamp,
		"text":      text,
		"delivered": true,
	}, nil
}

// SlackChannelResolver resolves channel names to ids via conversations.list
type SlackChannelResolver struct {
	logger Logger

	// newClient allows tests to substitute the API without a network
	newClient func(token string) SlackAPI
}

// NewSlackChannelResolver creates a channel resolver
func NewSlackChannelResolver(logger Logger) *SlackChannelResolver {
	return &SlackChannelResolver{
		logger: logger,
		newClient: func(token string) SlackAPI {
			return slack.New(token)
		},
	}
}

// ResolveChannel maps a channel name to its id, paging through
// conversations.list at the maximum page size
func (r *SlackChannelResolver) ResolveChannel(ctx context.Context, token, name string) (string, error) {
	client := r.newClient(token)

	cursor := ""
	for {
		channels, next, err := client.GetConversationsContext(ctx, &slack.GetConversationsParameters{
			Limit:           1000,
			Cursor:          cursor,
			ExcludeArchived: true,
			Types:           []string{"public_channel", "private_channel"},
		})
		if err != nil {
			return "", fmt.Errorf("failed to list slack channels: %w", err)
		}

		for _, ch := range channels {
			if ch.Name == name {
				return ch.ID, nil
			}
		}

		if next == "" {
			return "", fmt.Errorf("channel %q not found", name)
		}
		cursor = next
	}
}
