package models

import (
	"time"

	"github.com/google/uuid"
)

// DeploymentStatus is the workflow-level deployment state
type DeploymentStatus string

const (
	DeploymentStatusUndeployed DeploymentStatus = "UNDEPLOYED"
	DeploymentStatusDeploying  DeploymentStatus = "DEPLOYING"
	DeploymentStatusDeployed   DeploymentStatus = "DEPLOYED"
	DeploymentStatusFailed     DeploymentStatus = "DEPLOYMENT_FAILED"
)

// Deployment history actions
const (
	DeploymentActionDeploy            = "DEPLOY"
	DeploymentActionDeployFailed      = "DEPLOY_FAILED"
	DeploymentActionUndeployStarted   = "UNDEPLOY_STARTED"
	DeploymentActionUndeployCompleted = "UNDEPLOY_COMPLETED"
	DeploymentActionUndeployFailed    = "UNDEPLOY_FAILED"
	DeploymentActionPause             = "PAUSE"
	DeploymentActionResume            = "RESUME"
)

// Deployment is the per-workflow deployment record
type Deployment struct {
	WorkflowID   string                 `json:"workflow_id"`
	Status       DeploymentStatus       `json:"deployment_status"`
	Version      int                    `json:"deployment_version"`
	DeployedAt   *time.Time             `json:"deployed_at,omitempty"`
	UndeployedAt *time.Time             `json:"undeployed_at,omitempty"`
	Config       map[string]interface{} `json:"deployment_config,omitempty"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

// DeploymentHistory is one append-only transition record
type DeploymentHistory struct {
	ID             uuid.UUID              `json:"id"`
	WorkflowID     string                 `json:"workflow_id"`
	Action         string                 `json:"action"`
	FromStatus     DeploymentStatus       `json:"from_status"`
	ToStatus       DeploymentStatus       `json:"to_status"`
	Version        int                    `json:"deployment_version"`
	ErrorMessage   string                 `json:"error_message,omitempty"`
	ConfigSnapshot map[string]interface{} `json:"config_snapshot,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
}

// DeploymentResult is returned by deploy/update operations
type DeploymentResult struct {
	DeploymentID string           `json:"deployment_id"`
	WorkflowID   string           `json:"workflow_id"`
	Status       DeploymentStatus `json:"status"`
	Version      int              `json:"deployment_version"`
	Message      string           `json:"message,omitempty"`
}
