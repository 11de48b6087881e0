package deploy

import (
	"context"
	"fmt"
	"strings"

	"github.com/orbitflow/orbitflow/engine/core"
	"github.com/orbitflow/orbitflow/engine/trigindex"
	"github.com/orbitflow/orbitflow/engine/workflow"
	"github.com/orbitflow/orbitflow/pkg/logger"
)

// DeployWorkflow validates a workflow document, extracts its triggers,
// resolves provider context, registers the triggers in C1 and C3, and
// persists the result (§4.4.2).
type DeployWorkflow struct {
	deps Deps
}

// NewDeployWorkflow builds a DeployWorkflow use case over deps.
func NewDeployWorkflow(deps Deps) *DeployWorkflow {
	return &DeployWorkflow{deps: deps}
}

func (uc *DeployWorkflow) execute(ctx context.Context, spec *workflow.Config) (*DeploymentResult, error) {
	log := logger.FromContext(ctx)

	// Step 1: validate.
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("deploy: invalid workflow spec: %w", err)
	}

	// Step 2: extract.
	triggerSpecs := workflow.ExtractTriggerSpecs(spec)
	if len(triggerSpecs) == 0 {
		return nil, fmt.Errorf("deploy: workflow %q has no TRIGGER node", spec.ID)
	}

	// Step 3: resolve provider context.
	ownerID := spec.Metadata.CreatedBy
	for i := range triggerSpecs {
		if err := uc.resolve(ctx, ownerID, &triggerSpecs[i]); err != nil {
			log.Warn("Trigger provider context resolution failed", "workflow_id", spec.ID,
				"node_id", triggerSpecs[i].NodeID, "error", err)
		}
	}

	existing, err := uc.deps.Workflows.Get(ctx, spec.ID)
	fromStatus := core.DeploymentUndeployed
	priorVersion := 0
	if err == nil {
		fromStatus = existing.DeploymentStatus
		priorVersion = existing.DeploymentVersion
	}
	if err := uc.deps.Workflows.Upsert(ctx, spec); err != nil {
		return nil, fmt.Errorf("deploy: persist workflow: %w", err)
	}
	if err := uc.deps.Workflows.TransitionDeployment(ctx, spec.ID, "DEPLOY_STARTED", fromStatus, core.DeploymentDeploying, ""); err != nil {
		return nil, fmt.Errorf("deploy: transition to deploying: %w", err)
	}

	// Step 4: register in C1 and C3 in parallel (sequential here: memory-
	// backed stores have no partial-failure mode worth parallelizing for,
	// and it keeps rollback ordering simple and explicit).
	rows := make([]trigindex.Row, len(triggerSpecs))
	byType := make(map[string][]string)
	for i, ts := range triggerSpecs {
		rows[i] = trigindex.Row{
			TriggerType:   ts.TriggerType,
			IndexKey:      ts.IndexKey,
			TriggerConfig: ts.TriggerConfig,
			Status:        core.TriggerRowActive,
		}
		byType[ts.TriggerType] = append(byType[ts.TriggerType], ts.IndexKey)
	}

	if err := uc.deps.Index.Register(ctx, spec.ID, rows); err != nil {
		return uc.fail(ctx, spec.ID, "DEPLOY_FAILED", fmt.Errorf("deploy: register trigger index: %w", err))
	}

	var registeredTypes []string
	for triggerType, keys := range byType {
		d, ok := uc.deps.Dispatchers[triggerType]
		if !ok {
			_ = uc.deps.Index.Unregister(ctx, spec.ID)
			return uc.fail(ctx, spec.ID, "DEPLOY_FAILED",
				fmt.Errorf("deploy: no dispatcher registered for trigger type %q", triggerType))
		}
		if err := d.Register(ctx, spec.ID, triggerType, keys); err != nil {
			for _, rt := range registeredTypes {
				_ = uc.deps.Dispatchers[rt].Unregister(ctx, spec.ID)
			}
			_ = uc.deps.Index.Unregister(ctx, spec.ID)
			return uc.fail(ctx, spec.ID, "DEPLOY_FAILED", fmt.Errorf("deploy: register dispatcher %q: %w", triggerType, err))
		}
		registeredTypes = append(registeredTypes, triggerType)
	}

	// Step 5: transition to deployed.
	if err := uc.deps.Workflows.TransitionDeployment(
		ctx, spec.ID, "DEPLOY_COMPLETED", core.DeploymentDeploying, core.DeploymentDeployed, "",
	); err != nil {
		uc.rollbackRegistration(ctx, spec.ID, registeredTypes)
		return uc.fail(ctx, spec.ID, "DEPLOY_FAILED", fmt.Errorf("deploy: transition to deployed: %w", err))
	}

	version := priorVersion + 1
	log.Info("Workflow deployed", "workflow_id", spec.ID, "version", version, "triggers", len(triggerSpecs))
	return &DeploymentResult{WorkflowID: spec.ID, Status: core.DeploymentDeployed, Version: version}, nil
}

func (uc *DeployWorkflow) rollbackRegistration(ctx context.Context, workflowID string, registeredTypes []string) {
	for _, rt := range registeredTypes {
		_ = uc.deps.Dispatchers[rt].Unregister(ctx, workflowID)
	}
	_ = uc.deps.Index.Unregister(ctx, workflowID)
}

func (uc *DeployWorkflow) fail(ctx context.Context, workflowID, action string, cause error) (*DeploymentResult, error) {
	_ = uc.deps.Workflows.TransitionDeployment(ctx, workflowID, action, core.DeploymentDeploying, core.DeploymentFailed, cause.Error())
	return nil, cause
}

// resolve fills in provider-owned fields on ts.TriggerConfig and derives its
// index key, per trigger family (§4.4.2 step 3).
func (uc *DeployWorkflow) resolve(ctx context.Context, ownerID string, ts *workflow.TriggerSpec) error {
	switch ts.TriggerType {
	case "CRON":
		expr, _ := ts.TriggerConfig["schedule"].(string)
		ts.IndexKey = expr
	case "WEBHOOK":
		path, _ := ts.TriggerConfig["path"].(string)
		ts.IndexKey = path
	case "GITHUB":
		repo, _ := ts.TriggerConfig["repository"].(string)
		ts.IndexKey = repo
		installationID, err := uc.deps.Credentials.GitHubInstallationID(ctx, ownerID)
		if err != nil {
			return fmt.Errorf("deploy: resolve github installation: %w", err)
		}
		if installationID != "" {
			ts.TriggerConfig["github_app_installation_id"] = installationID
		}
	case "SLACK":
		workspaceID, err := uc.deps.Credentials.SlackWorkspace(ctx, ownerID)
		if err != nil {
			return fmt.Errorf("deploy: resolve slack workspace: %w", err)
		}
		if workspaceID != "" {
			ts.TriggerConfig["workspace_id"] = workspaceID
		}
		ts.IndexKey = workspaceID
		uc.resolveSlackChannels(ctx, workspaceID, ts)
	case "EMAIL", "MANUAL":
		ts.IndexKey = ""
	}
	return nil
}

func (uc *DeployWorkflow) resolveSlackChannels(ctx context.Context, workspaceID string, ts *workflow.TriggerSpec) {
	names := slackChannelNames(ts.TriggerConfig)
	if len(names) == 0 {
		return
	}
	ids := make([]string, 0, len(names))
	for _, name := range names {
		if id, ok := uc.deps.Credentials.ResolveSlackChannel(ctx, workspaceID, name); ok {
			ids = append(ids, id)
		} else {
			ids = append(ids, name)
		}
	}
	ts.TriggerConfig["channels"] = ids
}

func slackChannelNames(cfg map[string]any) []string {
	if raw, ok := cfg["channels"].([]any); ok {
		names := make([]string, 0, len(raw))
		for _, v := range raw {
			if s, ok := v.(string); ok {
				names = append(names, s)
			}
		}
		return names
	}
	if filter, ok := cfg["channel_filter"].(string); ok && filter != "" {
		parts := strings.Split(filter, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return nil
}
