package models

import (
	"time"

	"github.com/google/uuid"
)

// TriggerType identifies the trigger family
type TriggerType string

const (
	TriggerTypeCron    TriggerType = "CRON"
	TriggerTypeWebhook TriggerType = "WEBHOOK"
	TriggerTypeGitHub  TriggerType = "GITHUB"
	TriggerTypeSlack   TriggerType = "SLACK"
	TriggerTypeEmail   TriggerType = "EMAIL"
	TriggerTypeManual  TriggerType = "MANUAL"
)

// KnownTriggerType reports whether subtype names a recognized trigger family
func KnownTriggerType(subtype string) bool {
	switch TriggerType(subtype) {
	case TriggerTypeCron, TriggerTypeWebhook, TriggerTypeGitHub,
		TriggerTypeSlack, TriggerTypeEmail, TriggerTypeManual:
		return true
	}
	return false
}

// TriggerStatus is the deployment status of an index row
type TriggerStatus string

const (
	TriggerStatusActive     TriggerStatus = "ACTIVE"
	TriggerStatusPaused     TriggerStatus = "PAUSED"
	TriggerStatusUndeployed TriggerStatus = "UNDEPLOYED"
)

// TriggerSpec is a normalized trigger extracted from a workflow at deploy
// time. Config values are already unwrapped from schema objects.
type TriggerSpec struct {
	WorkflowID string                 `json:"workflow_id"`
	NodeID     string                 `json:"node_id"`
	Type       TriggerType            `json:"trigger_type"`
	IndexKey   string                 `json:"index_key"`
	Config     map[string]interface{} `json:"trigger_config"`
}

// TriggerIndexRow is one persisted reverse-lookup row
type TriggerIndexRow struct {
	ID         uuid.UUID              `json:"id"`
	WorkflowID string                 `json:"workflow_id"`
	Type       TriggerType            `json:"trigger_type"`
	IndexKey   string                 `json:"index_key"`
	Config     map[string]interface{} `json:"trigger_config"`
	Status     TriggerStatus          `json:"deployment_status"`
	CreatedAt  time.Time              `json:"created_at"`
	UpdatedAt  time.Time              `json:"updated_at"`
}

// Match is one routing result: a workflow the event should start
type Match struct {
	WorkflowID    string                 `json:"workflow_id"`
	TriggerType   TriggerType            `json:"trigger_type"`
	TriggerConfig map[string]interface{} `json:"trigger_config"`
	TriggerData   map[string]interface{} `json:"trigger_data"`
}

// IndexStats summarizes the trigger index
type IndexStats struct {
	Total        int                   `json:"total"`
	ByType       map[TriggerType]int   `json:"by_type"`
	ByStatus     map[TriggerStatus]int `json:"by_status"`
	Repositories []string              `json:"repositories"`
	WebhookPaths []string              `json:"webhook_paths"`
}

// GitHubWebhookEvent is the best-effort audit record written on every
// GitHub ingest
type GitHubWebhookEvent struct {
	ID               uuid.UUID              `json:"id"`
	DeliveryID       string                 `json:"delivery_id"`
	EventType        string                 `json:"event_type"`
	Repository       string                 `json:"repository"`
	Action           string                 `json:"action,omitempty"`
	Sender           string                 `json:"sender,omitempty"`
	Payload          map[string]interface{} `json:"payload"`
	MatchedWorkflows int                    `json:"matched_workflows"`
	CreatedAt        time.Time              `json:"created_at"`
}

// OAuthToken is the read model over the external OAuth token store
type OAuthToken struct {
	UserID         string                 `json:"user_id"`
	Provider       string                 `json:"provider"`
	AccessToken    string                 `json:"access_token"`
	CredentialData map[string]interface{} `json:"credential_data"`
	IsActive       bool                   `json:"is_active"`
}
