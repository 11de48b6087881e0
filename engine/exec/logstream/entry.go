package logstream

import "time"

// Entry is one structured log line produced during a workflow execution
// (§3 LogEntry, §4.8).
type Entry struct {
	ExecutionID string
	WorkflowID  string
	NodeID      string
	Level       string
	Message     string
	Fields      map[string]any
	Time        time.Time
}

// Filter scopes a Query (§6 get_execution_logs).
type Filter struct {
	ExecutionID string
	NodeID      string
	Level       string
	Limit       int
	Offset      int
}

// Summary aggregates one execution's entries (§4.8 "execution summaries").
type Summary struct {
	ExecutionID      string
	NodeCountByPhase map[string]int
	TotalDuration    time.Duration
	AvgDuration      time.Duration
	MinDuration      time.Duration
	MaxDuration      time.Duration
	LogCount         int
}
