package execlog

import (
	"context"
	"fmt"
	"testing"

	"github.com/tidewave/conductor/common/models"
)

func entry(executionID, nodeID string, level models.LogLevel, msg string) *models.LogEntry {
	return &models.LogEntry{
		ExecutionID: executionID,
		NodeID:      nodeID,
		Level:       level,
		Message:     msg,
	}
}

func TestLog_RingEviction(t *testing.T) {
	l := New(3, nil)
	for i := 0; i < 5; i++ {
		l.Append(context.Background(), entry("e1", "", models.LogLevelInfo, fmt.Sprintf("m%d", i)))
	}

	if l.Len() != 3 {
		t.Fatalf("ring should cap at 3, got %d", l.Len())
	}

	out := l.Query(Filter{})
	if out[0].Message != "m2" || out[2].Message != "m4" {
		t.Errorf("oldest entries should be evicted, got %s..%s", out[0].Message, out[2].Message)
	}
}

func TestLog_QueryFilters(t *testing.T) {
	l := New(0, nil)
	l.Append(context.Background(), entry("e1", "n1", models.LogLevelDebug, "debug"))
	l.Append(context.Background(), entry("e1", "n2", models.LogLevelError, "boom"))
	l.Append(context.Background(), entry("e2", "n1", models.LogLevelInfo, "other execution"))

	byExecution := l.Query(Filter{ExecutionID: "e1"})
	if len(byExecution) != 2 {
		t.Errorf("execution filter: got %d entries", len(byExecution))
	}

	byNode := l.Query(Filter{ExecutionID: "e1", NodeID: "n2"})
	if len(byNode) != 1 || byNode[0].Message != "boom" {
		t.Errorf("node filter: got %v", byNode)
	}

	byLevel := l.Query(Filter{MinLevel: models.LogLevelWarning})
	if len(byLevel) != 1 || byLevel[0].Level != models.LogLevelError {
		t.Errorf("level filter: got %v", byLevel)
	}

	limited := l.Query(Filter{Limit: 1})
	if len(limited) != 1 {
		t.Errorf("limit: got %d entries", len(limited))
	}
}

type recordingSink struct {
	appended int
	fail     bool
}

func (s *recordingSink) Append(context.Context, *models.LogEntry) error {
	if s.fail {
		return fmt.Errorf("sink down")
	}
	s.appended++
	return nil
}

func TestLog_SinkBestEffort(t *testing.T) {
	sink := &recordingSink{}
	l := New(0, sink)

	l.Append(context.Background(), entry("e1", "", models.LogLevelInfo, "a"))
	if sink.appended != 1 {
		t.Errorf("sink should receive entries, got %d", sink.appended)
	}

	sink.fail = true
	l.Append(context.Background(), entry("e1", "", models.LogLevelInfo, "b"))
	if l.Len() != 2 {
		t.Errorf("sink failure must not drop in-memory entries")
	}
}

func TestSummarize(t *testing.T) {
	l := New(0, nil)
	l.Append(context.Background(), entry("e1", "", models.LogLevelInfo, "start"))
	l.Append(context.Background(), entry("e1", "n1", models.LogLevelInfo, "node"))

	exec := &models.Execution{
		ExecutionID: "e1",
		NodeExecutions: map[string]*models.NodeExecution{
			"n1": {NodeID: "n1", Phase: models.NodePhaseCompleted, StartTime: 1000, EndTime: 1200},
			"n2": {NodeID: "n2", Phase: models.NodePhaseCompleted, StartTime: 1000, EndTime: 1600},
			"n3": {NodeID: "n3", Phase: models.NodePhaseFailed, StartTime: 1000, EndTime: 1100},
		},
	}

	s := l.Summarize(exec)
	if s.LogCount != 2 {
		t.Errorf("log count = %d", s.LogCount)
	}
	if s.NodesByPhase[models.NodePhaseCompleted] != 2 || s.NodesByPhase[models.NodePhaseFailed] != 1 {
		t.Errorf("phase counts = %v", s.NodesByPhase)
	}
	if s.TotalDuration != 900 || s.MinDuration != 100 || s.MaxDuration != 600 || s.AvgDuration != 300 {
		t.Errorf("durations: total=%d min=%d max=%d avg=%d", s.TotalDuration, s.MinDuration, s.MaxDuration, s.AvgDuration)
	}
}

func TestMilestoneMessages(t *testing.T) {
	start := WorkflowStartMessage("joke pipeline", 3, "cron trigger")
	if start != "🚀 Started workflow 'joke pipeline' (3 nodes) via cron trigger" {
		t.Errorf("start message = %q", start)
	}

	done := NodeCompleteMessage("Tell Joke", 250)
	if done != "✅ Completed Tell Joke (250ms)" {
		t.Errorf("node message = %q", done)
	}
}

func TestTriggerDescription(t *testing.T) {
	d := TriggerDescription(models.TriggerInfo{Type: models.TriggerTypeCron})
	if d != "cron trigger" {
		t.Errorf("description = %q", d)
	}
	d = TriggerDescription(models.TriggerInfo{Type: models.TriggerTypeSlack, Source: "slack:message"})
	if d != "slack (slack:message)" {
		t.Errorf("description = %q", d)
	}
}
