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

// ExecutionRepository persists execution records. The full record
// (including node executions) is stored as a JSONB document; status and
// workflow id are lifted into columns for listing.
type ExecutionRepository struct {
	db *db.DB
}

// NewExecutionRepository creates a new execution repository
func NewExecutionRepository(database *db.DB) *ExecutionRepository {
	return &ExecutionRepository{db: database}
}

// Save upserts an execution record
func (r *ExecutionRepository) Save(ctx context.Context, exec *models.Execution) error {
	record, err := json.Marshal(exec)
	if err != nil {
		return fmt.Errorf("failed to marshal execution: %w", err)
	}

	query := `
		INSERT INTO execution (execution_id, workflow_id, status, record)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (execution_id)
		DO UPDATE SET status = $3, record = $4, updated_at = now()
	`

	if _, err := r.db.Exec(ctx, query, exec.ExecutionID, exec.WorkflowID, exec.Status, record); err != nil {
		return fmt.Errorf("failed to save execution: %w", err)
	}

	return nil
}

// Get retrieves an execution by id
func (r *ExecutionRepository) Get(ctx context.Context, executionID string) (*models.Execution, error) {
	var record []byte
	err := r.db.QueryRow(ctx,
		`SELECT record FROM execution WHERE execution_id = $1`, executionID).Scan(&record)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get execution: %w", err)
	}

	exec := &models.Execution{}
	if err := json.Unmarshal(record, exec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal execution: %w", err)
	}

	return exec, nil
}

// ListByWorkflow returns recent executions for a workflow
func (r *ExecutionRepository) ListByWorkflow(ctx context.Context, workflowID string, limit int) ([]*models.Execution, error) {
	query := `
		SELECT record FROM execution
		WHERE workflow_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, workflowID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}
	defer rows.Close()

	var out []*models.Execution
	for rows.Next() {
		var record []byte
		if err := rows.Scan(&record); err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}
		exec := &models.Execution{}
		if err := json.Unmarshal(record, exec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal execution: %w", err)
		}
		out = append(out, exec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating executions: %w", err)
	}

	return out, nil
}
