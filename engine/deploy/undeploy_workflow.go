package deploy

import (
	"context"
	"fmt"

	"github.com/orbitflow/orbitflow/engine/core"
	"github.com/orbitflow/orbitflow/pkg/logger"
)

// UndeployWorkflow unregisters a workflow's triggers from C3 and C1 and
// moves it back to UNDEPLOYED (§4.4.3).
type UndeployWorkflow struct {
	deps Deps
}

// NewUndeployWorkflow builds an UndeployWorkflow use case over deps.
func NewUndeployWorkflow(deps Deps) *UndeployWorkflow {
	return &UndeployWorkflow{deps: deps}
}

func (uc *UndeployWorkflow) execute(ctx context.Context, workflowID string) (*DeploymentResult, error) {
	log := logger.FromContext(ctx)

	rec, err := uc.deps.Workflows.Get(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("undeploy: %w", err)
	}

	if err := uc.deps.Workflows.TransitionDeployment(
		ctx, workflowID, "UNDEPLOY_STARTED", core.DeploymentDeployed, core.DeploymentDeploying, "",
	); err != nil {
		return nil, fmt.Errorf("undeploy: transition to deploying: %w", err)
	}

	rows, err := uc.deps.Index.RowsFor(ctx, workflowID)
	if err != nil {
		return uc.fail(ctx, workflowID, fmt.Errorf("undeploy: read trigger index rows: %w", err))
	}

	types := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		types[r.TriggerType] = struct{}{}
	}
	for triggerType := range types {
		d, ok := uc.deps.Dispatchers[triggerType]
		if !ok {
			continue
		}
		if err := d.Unregister(ctx, workflowID); err != nil {
			return uc.fail(ctx, workflowID, fmt.Errorf("undeploy: unregister dispatcher %q: %w", triggerType, err))
		}
	}

	if err := uc.deps.Index.Unregister(ctx, workflowID); err != nil {
		return uc.fail(ctx, workflowID, fmt.Errorf("undeploy: unregister trigger index: %w", err))
	}

	if err := uc.deps.Workflows.TransitionDeployment(
		ctx, workflowID, "UNDEPLOY_COMPLETED", core.DeploymentDeploying, core.DeploymentUndeployed, "",
	); err != nil {
		return nil, fmt.Errorf("undeploy: transition to undeployed: %w", err)
	}

	log.Info("Workflow undeployed", "workflow_id", workflowID)
	return &DeploymentResult{
		WorkflowID: workflowID,
		Status:     core.DeploymentUndeployed,
		Version:    rec.DeploymentVersion + 1,
	}, nil
}

func (uc *UndeployWorkflow) fail(ctx context.Context, workflowID string, cause error) (*DeploymentResult, error) {
	_ = uc.deps.Workflows.TransitionDeployment(
		ctx, workflowID, "UNDEPLOY_FAILED", core.DeploymentDeploying, core.DeploymentFailed, cause.Error(),
	)
	return nil, cause
}
