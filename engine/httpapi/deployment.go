package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orbitflow/orbitflow/engine/core"
	"github.com/orbitflow/orbitflow/engine/workflow"
)

// handleDeploy implements §6 "deploy".
func (h *Handlers) handleDeploy(c *gin.Context) {
	var spec workflow.Config
	if !bindJSON(c, &spec) {
		return
	}
	if spec.ID == "" {
		spec.ID = c.Param("workflow_id")
	}
	result, err := h.svc.deps.Deployer.Deploy(c.Request.Context(), &spec)
	if err != nil {
		respondProblem(c, &core.Problem{Status: http.StatusBadRequest, Detail: err.Error()})
		return
	}
	respondCreated(c, result)
}

// handleUndeploy implements §6 "undeploy".
func (h *Handlers) handleUndeploy(c *gin.Context) {
	workflowID := c.Param("workflow_id")
	result, err := h.svc.deps.Deployer.Undeploy(c.Request.Context(), workflowID)
	if err != nil {
		respondProblem(c, &core.Problem{Status: http.StatusBadRequest, Detail: err.Error()})
		return
	}
	respondOK(c, result)
}

// handleUpdate implements §6 "update".
func (h *Handlers) handleUpdate(c *gin.Context) {
	var spec workflow.Config
	if !bindJSON(c, &spec) {
		return
	}
	spec.ID = c.Param("workflow_id")
	result, err := h.svc.deps.Deployer.Update(c.Request.Context(), &spec)
	if err != nil {
		respondProblem(c, &core.Problem{Status: http.StatusBadRequest, Detail: err.Error()})
		return
	}
	respondOK(c, result)
}

// handlePause implements §6 "pause".
func (h *Handlers) handlePause(c *gin.Context) {
	workflowID := c.Param("workflow_id")
	if err := h.svc.deps.Deployer.Pause(c.Request.Context(), workflowID); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"workflow_id": workflowID, "trigger_status": core.TriggerRowPaused})
}

// handleResumeTriggers implements §6 "resume" (trigger-level resume, not to
// be confused with the HIL node-resume endpoint in execution.go).
func (h *Handlers) handleResumeTriggers(c *gin.Context) {
	workflowID := c.Param("workflow_id")
	if err := h.svc.deps.Deployer.Resume(c.Request.Context(), workflowID); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"workflow_id": workflowID, "trigger_status": core.TriggerRowActive})
}

// handleDeploymentStatus implements §6 "get_deployment_status".
func (h *Handlers) handleDeploymentStatus(c *gin.Context) {
	workflowID := c.Param("workflow_id")
	rec, err := h.svc.deps.Workflows.Get(c.Request.Context(), workflowID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{
		"workflow_id":        workflowID,
		"deployment_status":  rec.DeploymentStatus,
		"deployment_version": rec.DeploymentVersion,
		"deployed_at":        rec.DeployedAt,
		"undeployed_at":      rec.UndeployedAt,
	})
}

// handleListDeployments implements §6 "list_deployments", optionally
// narrowed by a ?status= query parameter.
func (h *Handlers) handleListDeployments(c *gin.Context) {
	status := core.DeploymentStatus(c.Query("status"))
	recs, err := h.svc.deps.Workflows.List(c.Request.Context(), status)
	if err != nil {
		respondError(c, err)
		return
	}
	items := make([]gin.H, 0, len(recs))
	for _, rec := range recs {
		items = append(items, gin.H{
			"workflow_id":        rec.Config.ID,
			"name":               rec.Config.Name,
			"deployment_status":  rec.DeploymentStatus,
			"deployment_version": rec.DeploymentVersion,
			"deployed_at":        rec.DeployedAt,
			"undeployed_at":      rec.UndeployedAt,
		})
	}
	respondOK(c, gin.H{"deployments": items})
}

// handleIndexStatistics implements §6 "get_index_statistics".
func (h *Handlers) handleIndexStatistics(c *gin.Context) {
	stats, err := h.svc.deps.Index.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, stats)
}
