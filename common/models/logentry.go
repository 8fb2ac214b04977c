package models

import "time"

// LogLevel orders execution log entries
type LogLevel string

const (
	LogLevelTrace    LogLevel = "TRACE"
	LogLevelDebug    LogLevel = "DEBUG"
	LogLevelInfo     LogLevel = "INFO"
	LogLevelProgress LogLevel = "PROGRESS"
	LogLevelWarning  LogLevel = "WARNING"
	LogLevelError    LogLevel = "ERROR"
	LogLevelCritical LogLevel = "CRITICAL"
)

var logLevelRank = map[LogLevel]int{
	LogLevelTrace:    0,
	LogLevelDebug:    1,
	LogLevelInfo:     2,
	LogLevelProgress: 3,
	LogLevelWarning:  4,
	LogLevelError:    5,
	LogLevelCritical: 6,
}

// AtLeast reports whether l is at or above min severity
func (l LogLevel) AtLeast(min LogLevel) bool {
	return logLevelRank[l] >= logLevelRank[min]
}

// LogEntry is one structured execution log record
type LogEntry struct {
	Timestamp      time.Time              `json:"timestamp"`
	Level          LogLevel               `json:"level"`
	Message        string                 `json:"message"`
	ExecutionID    string                 `json:"execution_id"`
	NodeID         string                 `json:"node_id,omitempty"`
	NodeContext    *NodeExecution         `json:"node_context,omitempty"`
	StructuredData map[string]interface{} `json:"structured_data,omitempty"`
	TraceID        string                 `json:"trace_id,omitempty"`
}
