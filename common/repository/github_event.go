package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/tidewave/conductor/common/db"
	"github.com/tidewave/conductor/common/models"
)

// GitHubEventRepository persists GitHub webhook audit records
type GitHubEventRepository struct {
	db *db.DB
}

// NewGitHubEventRepository creates a new GitHub event repository
func NewGitHubEventRepository(database *db.DB) *GitHubEventRepository {
	return &GitHubEventRepository{db: database}
}

// Insert writes one audit record. Callers treat failures as best-effort.
func (r *GitHubEventRepository) Insert(ctx context.Context, ev *models.GitHubWebhookEvent) error {
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}

	query := `
		INSERT INTO github_webhook_event (id, delivery_id, event_type, repository, action, sender, payload, matched_workflows)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.Exec(ctx, query,
		ev.ID, ev.DeliveryID, ev.EventType, ev.Repository, ev.Action, ev.Sender, ev.Payload, ev.MatchedWorkflows)
	if err != nil {
		return fmt.Errorf("failed to insert github webhook event: %w", err)
	}

	return nil
}
