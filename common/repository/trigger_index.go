package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tidewave/conductor/common/db"
	"github.com/tidewave/conductor/common/models"
)

// TriggerIndexRepository handles database operations for the trigger
// reverse-lookup index
type TriggerIndexRepository struct {
	db *db.DB
}

// NewTriggerIndexRepository creates a new trigger index repository
func NewTriggerIndexRepository(database *db.DB) *TriggerIndexRepository {
	return &TriggerIndexRepository{db: database}
}

// Register replaces all rows for a workflow with one row per spec.
// All rows land or none.
func (r *TriggerIndexRepository) Register(ctx context.Context, workflowID string, specs []*models.TriggerSpec) error {
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM trigger_index WHERE workflow_id = $1`, workflowID); err != nil {
			return fmt.Errorf("failed to clear trigger index rows: %w", err)
		}

		query := `
			INSERT INTO trigger_index (id, workflow_id, trigger_type, index_key, trigger_config, deployment_status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		`
		now := time.Now().UTC()
		for _, spec := range specs {
			cfg := spec.Config
			if cfg == nil {
				cfg = map[string]interface{}{}
			}
			_, err := tx.Exec(ctx, query,
				uuid.New(),
				workflowID,
				spec.Type,
				spec.IndexKey,
				cfg,
				models.TriggerStatusActive,
				now,
			)
			if err != nil {
				return fmt.Errorf("failed to insert trigger index row: %w", err)
			}
		}
		return nil
	})
}

// Unregister deletes all rows for a workflow
func (r *TriggerIndexRepository) Unregister(ctx context.Context, workflowID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM trigger_index WHERE workflow_id = $1`, workflowID)
	if err != nil {
		return fmt.Errorf("failed to unregister triggers: %w", err)
	}
	return nil
}

// UpdateStatus bulk-changes the status of all rows for a workflow
// (pause/resume)
func (r *TriggerIndexRepository) UpdateStatus(ctx context.Context, workflowID string, status models.TriggerStatus) error {
	_, err := r.db.Exec(ctx,
		`UPDATE trigger_index SET deployment_status = $2, updated_at = now() WHERE workflow_id = $1`,
		workflowID, status)
	if err != nil {
		return fmt.Errorf("failed to update trigger status: %w", err)
	}
	return nil
}

// Query returns active rows for a (trigger_type, index_key) pair
func (r *TriggerIndexRepository) Query(ctx context.Context, triggerType models.TriggerType, indexKey string) ([]*models.TriggerIndexRow, error) {
	query := `
		SELECT id, workflow_id, trigger_type, index_key, trigger_config, deployment_status, created_at, updated_at
		FROM trigger_index
		WHERE trigger_type = $1 AND index_key = $2 AND deployment_status = $3
		ORDER BY created_at
	`

	rows, err := r.db.Query(ctx, query, triggerType, indexKey, models.TriggerStatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to query trigger index: %w", err)
	}
	defer rows.Close()

	return scanTriggerRows(rows)
}

// QueryByType returns active rows for a whole trigger family (email routing
// evaluates every row's filters)
func (r *TriggerIndexRepository) QueryByType(ctx context.Context, triggerType models.TriggerType) ([]*models.TriggerIndexRow, error) {
	query := `
		SELECT id, workflow_id, trigger_type, index_key, trigger_config, deployment_status, created_at, updated_at
		FROM trigger_index
		WHERE trigger_type = $1 AND deployment_status = $2
		ORDER BY created_at
	`

	rows, err := r.db.Query(ctx, query, triggerType, models.TriggerStatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to query trigger index by type: %w", err)
	}
	defer rows.Close()

	return scanTriggerRows(rows)
}

// ListByWorkflow returns all rows for a workflow regardless of status
func (r *TriggerIndexRepository) ListByWorkflow(ctx context.Context, workflowID string) ([]*models.TriggerIndexRow, error) {
	query := `
		SELECT id, workflow_id, trigger_type, index_key, trigger_config, deployment_status, created_at, updated_at
		FROM trigger_index
		WHERE workflow_id = $1
		ORDER BY created_at
	`

	rows, err := r.db.Query(ctx, query, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to list triggers for workflow: %w", err)
	}
	defer rows.Close()

	return scanTriggerRows(rows)
}

// Stats returns counts by type and status plus distinct repositories and
// webhook paths
func (r *TriggerIndexRepository) Stats(ctx context.Context) (*models.IndexStats, error) {
	stats := &models.IndexStats{
		ByType:   make(map[models.TriggerType]int),
		ByStatus: make(map[models.TriggerStatus]int),
	}

	rows, err := r.db.Query(ctx,
		`SELECT trigger_type, deployment_status, index_key FROM trigger_index`)
	if err != nil {
		return nil, fmt.Errorf("failed to query trigger index stats: %w", err)
	}
	defer rows.Close()

	repos := make(map[string]struct{})
	paths := make(map[string]struct{})

	for rows.Next() {
		var triggerType models.TriggerType
		var status models.TriggerStatus
		var indexKey string
		if err := rows.Scan(&triggerType, &status, &indexKey); err != nil {
			return nil, fmt.Errorf("failed to scan stats row: %w", err)
		}
		stats.Total++
		stats.ByType[triggerType]++
		stats.ByStatus[status]++
		switch triggerType {
		case models.TriggerTypeGitHub:
			if indexKey != "" {
				repos[indexKey] = struct{}{}
			}
		case models.TriggerTypeWebhook:
			paths[indexKey] = struct{}{}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stats rows: %w", err)
	}

	for repo := range repos {
		stats.Repositories = append(stats.Repositories, repo)
	}
	for path := range paths {
		stats.WebhookPaths = append(stats.WebhookPaths, path)
	}

	return stats, nil
}

func scanTriggerRows(rows pgx.Rows) ([]*models.TriggerIndexRow, error) {
	var out []*models.TriggerIndexRow
	for rows.Next() {
		row := &models.TriggerIndexRow{}
		err := rows.Scan(
			&row.ID,
			&row.WorkflowID,
			&row.Type,
			&row.IndexKey,
			&row.Config,
			&row.Status,
			&row.CreatedAt,
			&row.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trigger index row: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trigger index rows: %w", err)
	}
	return out, nil
}
