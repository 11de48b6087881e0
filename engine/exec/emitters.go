package exec

import (
	"github.com/orbitflow/orbitflow/engine/workflow"
	"github.com/orbitflow/orbitflow/pkg/logger"
)

// emitWorkflowStart logs the start of a run (§4.6.1 step 1).
func emitWorkflowStart(log logger.Logger, cfg *workflow.Config, exec *Execution) {
	log.Info("🚀 workflow started",
		"execution_id", exec.ID,
		"workflow_id", cfg.ID,
		"workflow_name", cfg.Name,
		"node_count", len(cfg.Nodes),
	)
}

// emitWorkflowComplete logs the terminal status of a run (§4.6.1 step 7).
func emitWorkflowComplete(log logger.Logger, exec *Execution) {
	log.Info("🏁 workflow complete",
		"execution_id", exec.ID,
		"status", exec.Status.String(),
		"duration_ms", exec.EndTime.Sub(exec.StartTime).Milliseconds(),
	)
}

// emitNodeStart logs a node about to run, with a redacted, truncated input
// summary (§4.6.3 step 3).
func emitNodeStart(log logger.Logger, node workflow.Node, inputs map[string]any) {
	log.Info("▶ node started",
		"node_id", node.ID,
		"node_type", string(node.Type),
		"node_subtype", node.Subtype,
		"inputs", summarizeInputs(SanitizeParams(inputs)),
	)
}

// emitNodeComplete logs a successful node run.
func emitNodeComplete(log logger.Logger, node workflow.Node, duration interface{ Milliseconds() int64 }) {
	log.Info("✅ node complete",
		"node_id", node.ID,
		"node_name", node.Name,
		"duration_ms", duration.Milliseconds(),
	)
}

// emitNodeFailed logs a failed node run with its sanitized error.
func emitNodeFailed(log logger.Logger, node workflow.Node, nerr *NodeError) {
	log.Error("❌ node failed",
		"node_id", node.ID,
		"node_type", string(node.Type),
		"error_type", nerr.Type,
		"error", nerr.Message,
	)
}

// emitHumanInteraction logs a node suspending for human input (§4.6.3): the
// message_template truncated to 100 chars, and the node's timeout.
func emitHumanInteraction(log logger.Logger, node workflow.Node, token string) {
	log.Info("🙋 human_interaction",
		"node_id", node.ID,
		"node_type", string(node.Type),
		"message", truncateMessage(node),
		"timeout", node.Configurations["timeout"],
		"token", token,
	)
}

func truncateMessage(node workflow.Node) string {
	const maxLen = 100
	msg, _ := node.Configurations["message_template"].(string)
	if msg == "" {
		msg = "Review required for " + node.Name
	}
	if len(msg) > maxLen {
		return msg[:maxLen] + "…"
	}
	return msg
}
