package httpapi

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/orbitflow/orbitflow/engine/core"
	"github.com/orbitflow/orbitflow/engine/infra/pgstore"
)

type executeRequest struct {
	TriggerInfo map[string]any `json:"trigger_info"`
	Async       bool           `json:"async"`
}

// handleExecuteWorkflow implements §6 "execute_workflow": synchronous mode
// blocks for the full run and returns its final status; async mode returns
// immediately with the execution in NEW status.
func (h *Handlers) handleExecuteWorkflow(c *gin.Context) {
	workflowID := c.Param("workflow_id")
	var req executeRequest
	if !bindJSON(c, &req) {
		return
	}
	row, err := h.svc.ExecuteWorkflow(c.Request.Context(), workflowID, req.TriggerInfo, req.Async)
	if err != nil {
		respondError(c, err)
		return
	}
	if req.Async {
		respondAccepted(c, executionView(row, nil))
		return
	}
	respondOK(c, executionView(row, nil))
}

// handleGetExecution implements §6 "get_execution".
func (h *Handlers) handleGetExecution(c *gin.Context) {
	id := c.Param("execution_id")
	row, nodes, err := h.svc.GetExecution(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, executionView(row, nodes))
}

// handleCancelExecution implements §6 "cancel_execution".
func (h *Handlers) handleCancelExecution(c *gin.Context) {
	id := c.Param("execution_id")
	if err := h.svc.CancelExecution(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"execution_id": id, "status": core.ExecCanceled})
}

// handleExecutionLogs implements §6 "get_execution_logs".
func (h *Handlers) handleExecutionLogs(c *gin.Context) {
	id := c.Param("execution_id")
	filter := pgstore.LogFilter{
		ExecutionID: id,
		NodeID:      c.Query("node_id"),
		Level:       c.Query("level"),
		Limit:       queryInt(c, "limit", 100),
		Offset:      queryInt(c, "offset", 0),
	}
	entries, err := h.svc.deps.Logs.Query(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	total, err := h.svc.deps.Logs.CountByExecution(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"logs": entries, "total": total})
}

type resumeRequest struct {
	ResolvedInput map[string]any `json:"resolved_input"`
}

// handleResumeNode implements the HIL resumption endpoint (§6 Open Question
// #4): "POST /executions/{execution_id}/nodes/{node_id}/resume".
func (h *Handlers) handleResumeNode(c *gin.Context) {
	executionID := c.Param("execution_id")
	nodeID := c.Param("node_id")
	var req resumeRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.svc.Resume(c.Request.Context(), executionID, nodeID, req.ResolvedInput)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{
		"execution_id": result.ID,
		"workflow_id":  result.WorkflowID,
		"status":       result.Status,
		"nodes":        result.Nodes,
	})
}

func queryInt(c *gin.Context, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}

// executionView renders a pgstore.Execution (plus optional node rows) as
// the §6 execution document.
func executionView(row *pgstore.Execution, nodes []pgstore.NodeExecution) gin.H {
	view := gin.H{
		"execution_id": row.ID,
		"workflow_id":  row.WorkflowID,
		"status":       row.Status,
		"start_time":   row.StartTime,
		"end_time":     row.EndTime,
		"trigger_info": row.TriggerInfo,
	}
	if nodes != nil {
		view["nodes"] = nodes
	}
	return view
}
