package execlog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tidewave/conductor/common/models"
	rediscommon "github.com/tidewave/conductor/common/redis"
)

const (
	logKeyPrefix = "execlog:"
	logKeyTTL    = 24 * time.Hour
)

// RedisSink persists log entries as JSON in a per-execution list
type RedisSink struct {
	client *rediscommon.Client
}

// NewRedisSink creates a Redis-backed log sink
func NewRedisSink(client *rediscommon.Client) *RedisSink {
	return &RedisSink{client: client}
}

// Append serializes and pushes one entry, refreshing the list TTL
func (s *RedisSink) Append(ctx context.Context, entry *models.LogEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to serialize log entry: %w", err)
	}

	key := logKeyPrefix + entry.ExecutionID
	if err := s.client.RPush(ctx, key, string(data)); err != nil {
		return err
	}
	return s.client.Expire(ctx, key, logKeyTTL)
}

// Read returns persisted entries for an execution
func (s *RedisSink) Read(ctx context.Context, executionID string) ([]*models.LogEntry, error) {
	raw, err := s.client.LRange(ctx, logKeyPrefix+executionID, 0, -1)
	if err != nil {
		return nil, err
	}

	out := make([]*models.LogEntry, 0, len(raw))
	for _, item := range raw {
		entry := &models.LogEntry{}
		if err := json.Unmarshal([]byte(item), entry); err != nil {
			return nil, fmt.Errorf("failed to decode log entry: %w", err)
		}
		out = append(out, entry)
	}
	return out, nil
}
