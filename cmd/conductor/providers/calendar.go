package providers

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/tidewave/conductor/common/models"
)

const calendarBaseURL = "https://www.googleapis.com/calendar/v3"

// CalendarAdapter creates events through the Google Calendar REST API
type CalendarAdapter struct {
	rest    *restClient
	baseURL string
	token   string
	logger  Logger
}

// NewCalendarAdapter creates a Google Calendar adapter
func NewCalendarAdapter(token string, timeout time.Duration, logger Logger) *CalendarAdapter {
	return &CalendarAdapter{
		rest:    newRESTClient(timeout),
		baseURL: calendarBaseURL,
		token:   token,
		logger:  logger,
	}
}

// Provider returns the provider name
func (a *CalendarAdapter) Provider() string {
	return "GOOGLE_CALENDAR"
}

// Execute dispatches on action_type
func (a *CalendarAdapter) Execute(ctx context.Context, actionType string, params map[string]interface{}) (map[string]interface{}, error) {
	switch actionType {
	case "create_event", "default_action", "":
		return a.createEvent(ctx, params)
	default:
		return nil, models.NewValidationError("action_type", "unsupported calendar action %q", actionType)
	}
}

func (a *CalendarAdapter) createEvent(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error) {
	summary := paramString(params, "summary")
	if summary == "" {
		summary = paramString(params, "title")
	}
	if summary == "" {
		return nil, models.NewValidationError("summary", "calendar create_event requires a summary")
	}

	calendarID := paramString(params, "calendar_id")
	if calendarID == "" {
		calendarID = "primary"
	}

	event := map[string]interface{}{"summary": summary}
	if desc := paramString(params, "description"); desc != "" {
		event["description"] = desc
	}
	if start := paramString(params, "start"); start != "" {
		event["start"] = map[string]interface{}{"dateTime": start}
	}
	if end := paramString(params, "end"); end != "" {
		event["end"] = map[string]interface{}{"dateTime": end}
	}

	endpoint := fmt.Sprintf("%s/calendars/%s/events", a.baseURL, url.PathEscape(calendarID))
	resp, err := a.rest.postJSON(ctx, endpoint, map[string]string{
		"Authorization": "Bearer " + a.token,
	}, event)
	if err != nil {
		return nil, err
	}

	a.logger.Debug("calendar event created", "calendar", calendarID, "event_id", resp["id"])
	return map[string]interface{}{
		"event_id":  resp["id"],
		"html_link": resp["htmlLink"],
		"summary":   summary,
	}, nil
}
