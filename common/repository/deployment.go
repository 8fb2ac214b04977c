package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tidewave/conductor/common/db"
	"github.com/tidewave/conductor/common/models"
)

// DeploymentRepository handles deployment records and their append-only
// history
type DeploymentRepository struct {
	db *db.DB
}

// NewDeploymentRepository creates a new deployment repository
func NewDeploymentRepository(database *db.DB) *DeploymentRepository {
	return &DeploymentRepository{db: database}
}

// Get retrieves the deployment record for a workflow
func (r *DeploymentRepository) Get(ctx context.Context, workflowID string) (*models.Deployment, error) {
	query := `
		SELECT workflow_id, deployment_status, deployment_version, deployed_at, undeployed_at, deployment_config, updated_at
		FROM deployment
		WHERE workflow_id = $1
	`

	d := &models.Deployment{}
	err := r.db.QueryRow(ctx, query, workflowID).Scan(
		&d.WorkflowID,
		&d.Status,
		&d.Version,
		&d.DeployedAt,
		&d.UndeployedAt,
		&d.Config,
		&d.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get deployment: %w", err)
	}

	return d, nil
}

// Save upserts the deployment record
func (r *DeploymentRepository) Save(ctx context.Context, d *models.Deployment) error {
	query := `
		INSERT INTO deployment (workflow_id, deployment_status, deployment_version, deployed_at, undeployed_at, deployment_config, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (workflow_id)
		DO UPDATE SET deployment_status = $2, deployment_version = $3, deployed_at = $4, undeployed_at = $5, deployment_config = $6, updated_at = now()
	`

	_, err := r.db.Exec(ctx, query,
		d.WorkflowID, d.Status, d.Version, d.DeployedAt, d.UndeployedAt, d.Config)
	if err != nil {
		return fmt.Errorf("failed to save deployment: %w", err)
	}

	return nil
}

// List returns all deployment records
func (r *DeploymentRepository) List(ctx context.Context) ([]*models.Deployment, error) {
	query := `
		SELECT workflow_id, deployment_status, deployment_version, deployed_at, undeployed_at, deployment_config, updated_at
		FROM deployment
		ORDER BY updated_at DESC
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list deployments: %w", err)
	}
	defer rows.Close()

	var out []*models.Deployment
	for rows.Next() {
		d := &models.Deployment{}
		err := rows.Scan(
			&d.WorkflowID,
			&d.Status,
			&d.Version,
			&d.DeployedAt,
			&d.UndeployedAt,
			&d.Config,
			&d.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deployment: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating deployments: %w", err)
	}

	return out, nil
}

// AppendHistory inserts one history row
func (r *DeploymentRepository) AppendHistory(ctx context.Context, h *models.DeploymentHistory) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}

	query := `
		INSERT INTO deployment_history (id, workflow_id, action, from_status, to_status, deployment_version, error_message, config_snapshot)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8)
	`

	_, err := r.db.Exec(ctx, query,
		h.ID, h.WorkflowID, h.Action, h.FromStatus, h.ToStatus, h.Version, h.ErrorMessage, h.ConfigSnapshot)
	if err != nil {
		return fmt.Errorf("failed to append deployment history: %w", err)
	}

	return nil
}

// History returns history rows for a workflow, oldest first
func (r *DeploymentRepository) History(ctx context.Context, workflowID string, limit int) ([]*models.DeploymentHistory, error) {
	query := `
		SELECT id, workflow_id, action, from_status, to_status, deployment_version, COALESCE(error_message, ''), config_snapshot, created_at
		FROM deployment_history
		WHERE workflow_id = $1
		ORDER BY created_at
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, workflowID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query deployment history: %w", err)
	}
	defer rows.Close()

	var out []*models.DeploymentHistory
	for rows.Next() {
		h := &models.DeploymentHistory{}
		err := rows.Scan(
			&h.ID,
			&h.WorkflowID,
			&h.Action,
			&h.FromStatus,
			&h.ToStatus,
			&h.Version,
			&h.ErrorMessage,
			&h.ConfigSnapshot,
			&h.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history rows: %w", err)
	}

	return out, nil
}
