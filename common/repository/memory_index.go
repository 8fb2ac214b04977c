package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tidewave/conductor/common/models"
)

// MemoryTriggerIndex is an in-memory trigger index with the same contract
// as TriggerIndexRepository. Used by tests and single-node development.
type MemoryTriggerIndex struct {
	mu   sync.RWMutex
	rows map[string][]*models.TriggerIndexRow // keyed by workflow id
}

// NewMemoryTriggerIndex creates an empty in-memory index
func NewMemoryTriggerIndex() *MemoryTriggerIndex {
	return &MemoryTriggerIndex{
		rows: make(map[string][]*models.TriggerIndexRow),
	}
}

// Register replaces all rows for a workflow
func (m *MemoryTriggerIndex) Register(ctx context.Context, workflowID string, specs []*models.TriggerSpec) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	rows := make([]*models.TriggerIndexRow, 0, len(specs))
	for _, spec := range specs {
		cfg := spec.Config
		if cfg == nil {
			cfg = map[string]interface{}{}
		}
		rows = append(rows, &models.TriggerIndexRow{
			ID:         uuid.New(),
			WorkflowID: workflowID,
			Type:       spec.Type,
			IndexKey:   spec.IndexKey,
			Config:     cfg,
			Status:     models.TriggerStatusActive,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	}
	m.rows[workflowID] = rows
	return nil
}

// Unregister deletes all rows for a workflow
func (m *MemoryTriggerIndex) Unregister(ctx context.Context, workflowID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, workflowID)
	return nil
}

// UpdateStatus bulk-changes status for a workflow's rows
func (m *MemoryTriggerIndex) UpdateStatus(ctx context.Context, workflowID string, status models.TriggerStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows[workflowID] {
		row.Status = status
		row.UpdatedAt = time.Now().UTC()
	}
	return nil
}

// Query returns active rows for a (type, key) pair
func (m *MemoryTriggerIndex) Query(ctx context.Context, triggerType models.TriggerType, indexKey string) ([]*models.TriggerIndexRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*models.TriggerIndexRow
	for _, rows := range m.rows {
		for _, row := range rows {
			if row.Type == triggerType && row.IndexKey == indexKey && row.Status == models.TriggerStatusActive {
				out = append(out, row)
			}
		}
	}
	return out, nil
}

// QueryByType returns all active rows for a trigger family
func (m *MemoryTriggerIndex) QueryByType(ctx context.Context, triggerType models.TriggerType) ([]*models.TriggerIndexRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*models.TriggerIndexRow
	for _, rows := range m.rows {
		for _, row := range rows {
			if row.Type == triggerType && row.Status == models.TriggerStatusActive {
				out = append(out, row)
			}
		}
	}
	return out, nil
}

// ListByWorkflow returns all rows for a workflow
func (m *MemoryTriggerIndex) ListByWorkflow(ctx context.Context, workflowID string) ([]*models.TriggerIndexRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*models.TriggerIndexRow(nil), m.rows[workflowID]...), nil
}

// Stats summarizes the index
func (m *MemoryTriggerIndex) Stats(ctx context.Context) (*models.IndexStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := &models.IndexStats{
		ByType:   make(map[models.TriggerType]int),
		ByStatus: make(map[models.TriggerStatus]int),
	}
	repos := make(map[string]struct{})
	paths := make(map[string]struct{})

	for _, rows := range m.rows {
		for _, row := range rows {
			stats.Total++
			stats.ByType[row.Type]++
			stats.ByStatus[row.Status]++
			switch row.Type {
			case models.TriggerTypeGitHub:
				if row.IndexKey != "" {
					repos[row.IndexKey] = struct{}{}
				}
			case models.TriggerTypeWebhook:
				paths[row.IndexKey] = struct{}{}
			}
		}
	}

	for repo := range repos {
		stats.Repositories = append(stats.Repositories, repo)
	}
	for path := range paths {
		stats.WebhookPaths = append(stats.WebhookPaths, path)
	}
	return stats, nil
}
