package dispatch

import (
	"context"

	"github.com/tidewave/conductor/common/models"
)

// startMatches launches one execution per routed match and returns the
// execution ids that started. Individual launch failures are logged and
// skipped so one bad workflow cannot block its siblings.
func startMatches(ctx context.Context, executor Executor, logger Logger, source string, matches []*models.Match) []string {
	executionIDs := make([]string, 0, len(matches))
	for _, match := range matches {
		executionID, err := executor.ExecuteAsync(ctx, match.WorkflowID, models.TriggerInfo{
			Type:   match.TriggerType,
			Source: source,
			Data:   match.TriggerData,
		})
		if err != nil {
			logger.Error("failed to start execution",
				"workflow_id", match.WorkflowID,
				"trigger_type", match.TriggerType,
				"error", err)
			continue
		}
		executionIDs = append(executionIDs, executionID)
		logger.Info("execution started",
			"workflow_id", match.WorkflowID,
			"execution_id", executionID,
			"trigger_type", match.TriggerType)
	}
	return executionIDs
}
