package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/tidewave/conductor/common/db"
	"github.com/tidewave/conductor/common/models"
)

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = errors.New("record not found")

// WorkflowRepository handles database operations for workflow documents
type WorkflowRepository struct {
	db *db.DB
}

// NewWorkflowRepository creates a new workflow repository
func NewWorkflowRepository(database *db.DB) *WorkflowRepository {
	return &WorkflowRepository{db: database}
}

// Save upserts a workflow document
func (r *WorkflowRepository) Save(ctx context.Context, wf *models.Workflow) error {
	spec, err := json.Marshal(wf)
	if err != nil {
		return fmt.Errorf("failed to marshal workflow: %w", err)
	}

	query := `
		INSERT INTO workflow (workflow_id, name, version, spec)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (workflow_id)
		DO UPDATE SET name = $2, version = $3, spec = $4, updated_at = now()
	`

	if _, err := r.db.Exec(ctx, query, wf.ID, wf.Name, wf.Version, spec); err != nil {
		return fmt.Errorf("failed to save workflow: %w", err)
	}

	return nil
}

// Get retrieves a workflow by id
func (r *WorkflowRepository) Get(ctx context.Context, workflowID string) (*models.Workflow, error) {
	var spec []byte
	err := r.db.QueryRow(ctx,
		`SELECT spec FROM workflow WHERE workflow_id = $1`, workflowID).Scan(&spec)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get workflow: %w", err)
	}

	wf := &models.Workflow{}
	if err := json.Unmarshal(spec, wf); err != nil {
		return nil, fmt.Errorf("failed to unmarshal workflow: %w", err)
	}

	return wf, nil
}

// Delete removes a workflow document
func (r *WorkflowRepository) Delete(ctx context.Context, workflowID string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM workflow WHERE workflow_id = $1`, workflowID); err != nil {
		return fmt.Errorf("failed to delete workflow: %w", err)
	}
	return nil
}
