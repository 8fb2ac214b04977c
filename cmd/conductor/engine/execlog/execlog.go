package execlog

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tidewave/conductor/common/models"
)

// DefaultCapacity is the default ring buffer size
const DefaultCapacity = 1000

// Sink receives every appended entry for durable storage. Appends are
// best-effort: a failing sink never blocks the run.
type Sink interface {
	Append(ctx context.Context, entry *models.LogEntry) error
}

// Log is the per-process execution log: a bounded in-memory ring plus an
// optional persistent sink
type Log struct {
	mu       sync.Mutex
	entries  []*models.LogEntry
	start    int
	count    int
	capacity int
	sink     Sink
}

// New creates an execution log. capacity <= 0 uses DefaultCapacity;
// sink may be nil.
func New(capacity int, sink Sink) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{
		entries:  make([]*models.LogEntry, capacity),
		capacity: capacity,
		sink:     sink,
	}
}

// Append records one entry, evicting the oldest when full
func (l *Log) Append(ctx context.Context, entry *models.LogEntry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	l.mu.Lock()
	if l.count < l.capacity {
		l.entries[(l.start+l.count)%l.capacity] = entry
		l.count++
	} else {
		l.entries[l.start] = entry
		l.start = (l.start + 1) % l.capacity
	}
	l.mu.Unlock()

	if l.sink != nil {
		_ = l.sink.Append(ctx, entry)
	}
}

// Filter restricts Query results. Zero values match everything.
type Filter struct {
	ExecutionID string
	NodeID      string
	MinLevel    models.LogLevel
	Limit       int
}

// Query returns a consistent snapshot of matching entries, oldest first
func (l *Log) Query(filter Filter) []*models.LogEntry {
	l.mu.Lock()
	snapshot := make([]*models.LogEntry, 0, l.count)
	for i := 0; i < l.count; i++ {
		snapshot = append(snapshot, l.entries[(l.start+i)%l.capacity])
	}
	l.mu.Unlock()

	var out []*models.LogEntry
	for _, entry := range snapshot {
		if filter.ExecutionID != "" && entry.ExecutionID != filter.ExecutionID {
			continue
		}
		if filter.NodeID != "" && entry.NodeID != filter.NodeID {
			continue
		}
		if filter.MinLevel != "" && !entry.Level.AtLeast(filter.MinLevel) {
			continue
		}
		out = append(out, entry)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out
}

// Len returns the number of retained entries
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

// Summary aggregates one execution's log stream and node outcomes
type Summary struct {
	ExecutionID   string                   `json:"execution_id"`
	LogCount      int                      `json:"log_count"`
	NodesByPhase  map[models.NodePhase]int `json:"nodes_by_phase"`
	TotalDuration int64                    `json:"total_duration_ms"`
	AvgDuration   int64                    `json:"avg_duration_ms"`
	MinDuration   int64                    `json:"min_duration_ms"`
	MaxDuration   int64                    `json:"max_duration_ms"`
}

// Summarize builds a summary from the execution record and retained logs
func (l *Log) Summarize(exec *models.Execution) *Summary {
	s := &Summary{
		ExecutionID:  exec.ExecutionID,
		LogCount:     len(l.Query(Filter{ExecutionID: exec.ExecutionID})),
		NodesByPhase: make(map[models.NodePhase]int),
	}

	measured := 0
	for _, ne := range exec.NodeExecutions {
		s.NodesByPhase[ne.Phase]++
		d := ne.DurationMS()
		if d == 0 && !ne.Phase.IsTerminal() {
			continue
		}
		measured++
		s.TotalDuration += d
		if measured == 1 || d < s.MinDuration {
			s.MinDuration = d
		}
		if d > s.MaxDuration {
			s.MaxDuration = d
		}
	}
	if measured > 0 {
		s.AvgDuration = s.TotalDuration / int64(measured)
	}
	return s
}

// Milestone message templates. These are the user-facing progress lines;
// structured data carries the machine-readable detail.

// WorkflowStartMessage formats the run-start milestone
func WorkflowStartMessage(name string, nodeCount int, trigger string) string {
	return fmt.Sprintf("🚀 Started workflow '%s' (%d nodes) via %s", name, nodeCount, trigger)
}

// WorkflowCompleteMessage formats the run-end milestone
func WorkflowCompleteMessage(name string, success bool, durationMS int64) string {
	if success {
		return fmt.Sprintf("✅ Completed workflow '%s' (%dms)", name, durationMS)
	}
	return fmt.Sprintf("❌ Workflow '%s' failed (%dms)", name, durationMS)
}

// NodeCompleteMessage formats the per-node completion milestone
func NodeCompleteMessage(nodeName string, durationMS int64) string {
	return fmt.Sprintf("✅ Completed %s (%dms)", nodeName, durationMS)
}

// HumanInteractionMessage formats the HIL milestone. The prompt is
// truncated to 100 characters.
func HumanInteractionMessage(interactionType, prompt string, timeout time.Duration) string {
	if len(prompt) > 100 {
		prompt = prompt[:100]
	}
	return fmt.Sprintf("⏸️ Waiting for human (%s): %s [timeout %s]", interactionType, prompt, timeout)
}

// TriggerDescription renders trigger info for milestones
func TriggerDescription(info models.TriggerInfo) string {
	t := strings.ToLower(string(info.Type))
	if t == "" {
		return "unknown trigger"
	}
	if info.Source != "" {
		return fmt.Sprintf("%s (%s)", t, info.Source)
	}
	return t + " trigger"
}
