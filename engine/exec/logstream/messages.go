package logstream

import (
	"context"
	"fmt"
	"time"
)

// User-facing message formatting (§4.8): fixed emoji and short templates.
// Formatters over these entries (console/JSON/HTML/Markdown) are out of
// scope here; Stream only produces the message text and structured fields.

// WorkflowStarted records the run's opening entry.
func (s *Stream) WorkflowStarted(ctx context.Context, executionID, workflowID, name string, nodeCount int, trigger string) {
	s.Append(ctx, Entry{
		ExecutionID: executionID,
		WorkflowID:  workflowID,
		Level:       "info",
		Message:     fmt.Sprintf("🚀 Started workflow '%s' (%d nodes) via %s", name, nodeCount, trigger),
		Fields: map[string]any{
			"node_count": nodeCount,
			"trigger":    trigger,
		},
	})
	if s.metrics != nil {
		s.metrics.RecordPhase(ctx, "started")
	}
}

// WorkflowComplete records the run's terminal entry; summary carries the
// §7 "workflow_complete" failure shape when status is an error status.
func (s *Stream) WorkflowComplete(ctx context.Context, executionID, workflowID, status string, d time.Duration, summary map[string]any) {
	emoji := "✅"
	if status != "COMPLETED" {
		emoji = "❌"
	}
	fields := map[string]any{"status": status, "duration_ms": d.Milliseconds()}
	for k, v := range summary {
		fields[k] = v
	}
	s.Append(ctx, Entry{
		ExecutionID: executionID,
		WorkflowID:  workflowID,
		Level:       "info",
		Message:     fmt.Sprintf("%s Finished workflow (%s, %dms)", emoji, status, d.Milliseconds()),
		Fields:      fields,
	})
}

// NodeStarted records a node about to run.
func (s *Stream) NodeStarted(ctx context.Context, executionID, workflowID, nodeID, nodeName string) {
	s.Append(ctx, Entry{
		ExecutionID: executionID,
		WorkflowID:  workflowID,
		NodeID:      nodeID,
		Level:       "info",
		Message:     fmt.Sprintf("▶ Running %s", nodeName),
	})
}

// NodeCompleted records a successful node run and feeds its timing into
// the duration histogram, keyed by node type/subtype.
func (s *Stream) NodeCompleted(
	ctx context.Context,
	executionID, workflowID, nodeID, nodeName, nodeType, nodeSubtype string,
	d time.Duration,
) {
	s.Append(ctx, Entry{
		ExecutionID: executionID,
		WorkflowID:  workflowID,
		NodeID:      nodeID,
		Level:       "info",
		Message:     fmt.Sprintf("✅ Completed %s (%dms)", nodeName, d.Milliseconds()),
		Fields:      map[string]any{"duration_ms": d.Milliseconds()},
	})
	s.metrics.RecordDuration(ctx, nodeType, nodeSubtype, d)
	s.metrics.RecordPhase(ctx, "completed")
}

// NodeFailed records a failed node run.
func (s *Stream) NodeFailed(
	ctx context.Context,
	executionID, workflowID, nodeID, nodeName, nodeType, nodeSubtype, errType, errMsg string,
	d time.Duration,
) {
	s.Append(ctx, Entry{
		ExecutionID: executionID,
		WorkflowID:  workflowID,
		NodeID:      nodeID,
		Level:       "error",
		Message:     fmt.Sprintf("❌ Failed %s: %s", nodeName, errMsg),
		Fields:      map[string]any{"error_type": errType, "duration_ms": d.Milliseconds()},
	})
	s.metrics.RecordDuration(ctx, nodeType, nodeSubtype, d)
	s.metrics.RecordPhase(ctx, "failed")
}

// HumanInteraction records a node suspending for human input.
func (s *Stream) HumanInteraction(ctx context.Context, executionID, workflowID, nodeID, nodeName, token string) {
	s.Append(ctx, Entry{
		ExecutionID: executionID,
		WorkflowID:  workflowID,
		NodeID:      nodeID,
		Level:       "info",
		Message:     fmt.Sprintf("🙋 Waiting on human review for %s", nodeName),
		Fields:      map[string]any{"token": token},
	})
	s.metrics.RecordPhase(ctx, "waiting_human")
}
