package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tidewave/conductor/cmd/conductor/engine/runners"
	"github.com/tidewave/conductor/common/models"
	rediscommon "github.com/tidewave/conductor/common/redis"
)

const pendingKeyPrefix = "hil:pending:"

// pendingRecord is the Redis payload for a parked human interaction
type pendingRecord struct {
	Token           string `json:"token"`
	NodeID          string `json:"node_id"`
	InteractionType string `json:"interaction_type"`
	Message         string `json:"message"`
	ExpiresAt       int64  `json:"expires_at"`
}

func pendingKey(executionID, nodeID string) string {
	return pendingKeyPrefix + executionID + ":" + nodeID
}

func (e *Engine) storePending(ctx context.Context, executionID, nodeID string, pending *runners.PendingHuman) error {
	if e.pending == nil {
		return nil
	}
	record, err := json.Marshal(&pendingRecord{
		Token:           pending.Token,
		NodeID:          nodeID,
		InteractionType: pending.InteractionType,
		Message:         pending.Message,
		ExpiresAt:       time.Now().Add(pending.Timeout).UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode pending record: %w", err)
	}
	return e.pending.SetWithExpiry(ctx, pendingKey(executionID, nodeID), string(record), pending.Timeout)
}

// Resume finalizes a WAITING_HUMAN node with the human-resolved input
// and re-enters the engine to run the remainder of the workflow. The
// token must match the one issued when the node parked.
func (e *Engine) Resume(ctx context.Context, executionID, nodeID, token string, input map[string]interface{}) error {
	exec, err := e.executions.Get(ctx, executionID)
	if err != nil {
		return err
	}
	ne, ok := exec.NodeExecutions[nodeID]
	if !ok || ne.Phase != models.NodePhaseWaitingHuman {
		return fmt.Errorf("node %s is not waiting for human input", nodeID)
	}

	if e.pending != nil {
		key := pendingKey(executionID, nodeID)
		raw, err := e.pending.Get(ctx, key)
		if errors.Is(err, rediscommon.ErrNotFound) {
			return &models.ValidationError{Field: "token", Message: "pending interaction expired or already resolved"}
		}
		if err != nil {
			return err
		}
		var record pendingRecord
		if err := json.Unmarshal([]byte(raw), &record); err != nil {
			return fmt.Errorf("failed to decode pending record: %w", err)
		}
		if record.Token != token {
			return &models.AuthError{Message: "resume token mismatch"}
		}
		if err := e.pending.Delete(ctx, key); err != nil {
			e.logger.Warn("failed to delete pending key", "key", key, "error", err)
		}
	}

	ne.Phase = models.NodePhaseCompleted
	ne.EndTime = nowMillis()
	ne.OutputParameters = map[string]interface{}{"main": input}

	e.logMilestone(exec, nodeID, models.LogLevelProgress,
		fmt.Sprintf("✅ Human responded on %s", ne.NodeName), nil)

	exec.Status = models.ExecutionStatusRunning
	if err := e.executions.Save(ctx, exec); err != nil {
		return fmt.Errorf("failed to persist resumed execution: %w", err)
	}

	go e.run(context.Background(), exec)
	return nil
}
