package deployment

import (
	"context"
	"time"

	"github.com/tidewave/conductor/common/models"
)

// Logger interface for logging
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
}

// IndexStore is the write side of the trigger index used by deployment
type IndexStore interface {
	Register(ctx context.Context, workflowID string, specs []*models.TriggerSpec) error
	Unregister(ctx context.Context, workflowID string) error
	UpdateStatus(ctx context.Context, workflowID string, status models.TriggerStatus) error
	ListByWorkflow(ctx context.Context, workflowID string) ([]*models.TriggerIndexRow, error)
}

// Dispatchers is the in-memory registration side (C3)
type Dispatchers interface {
	Register(ctx context.Context, workflowID string, specs []*models.TriggerSpec) error
	Unregister(ctx context.Context, workflowID string) error
}

// WorkflowStore persists workflow documents
type WorkflowStore interface {
	Save(ctx context.Context, wf *models.Workflow) error
	Get(ctx context.Context, id string) (*models.Workflow, error)
	Delete(ctx context.Context, id string) error
}

// DeploymentStore persists deployment records and history
type DeploymentStore interface {
	Get(ctx context.Context, workflowID string) (*models.Deployment, error)
	Save(ctx context.Context, d *models.Deployment) error
	List(ctx context.Context) ([]*models.Deployment, error)
	AppendHistory(ctx context.Context, h *models.DeploymentHistory) error
	History(ctx context.Context, workflowID string, limit int) ([]*models.DeploymentHistory, error)
}

// TokenStore looks up stored OAuth credentials for provider resolution
type TokenStore interface {
	GetActive(ctx context.Context, userID, provider string) (*models.OAuthToken, error)
}

// ChannelResolver maps Slack channel names to channel ids
type ChannelResolver interface {
	ResolveChannel(ctx context.Context, token, name string) (string, error)
}

// Locker is the distributed lock primitive guarding deploy transitions
type Locker interface {
	SetNX(ctx context.Context, key, value string, expiry time.Duration) (bool, error)
	Delete(ctx context.Context, keys ...string) error
}
