package httpapi

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/orbitflow/orbitflow/engine/common"
	"github.com/orbitflow/orbitflow/engine/core"
	"github.com/orbitflow/orbitflow/engine/dispatch"
	"github.com/orbitflow/orbitflow/engine/exec"
	"github.com/orbitflow/orbitflow/engine/infra/pgstore"
	"github.com/orbitflow/orbitflow/engine/router"
	"github.com/orbitflow/orbitflow/engine/workflow"
	"github.com/orbitflow/orbitflow/pkg/logger"
)

// Service is the runtime glue between the HTTP handlers and the execution
// engine: it persists Execution/NodeExecution rows around an Engine.Run
// call, tracks in-flight cancellation, and reconstructs an in-memory
// *exec.Execution from storage for resume (the Engine itself only keeps a
// run's Execution in memory for the lifetime of the call).
type Service struct {
	deps Deps

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// NewService constructs a Service over deps. Dispatcher fields in deps may
// be filled in afterward via SetDispatchers, since each dispatcher's
// Invoker closes over this Service.
func NewService(deps Deps) *Service {
	return &Service{deps: deps, cancels: make(map[string]context.CancelFunc)}
}

// SetDispatchers attaches the manual/GitHub/Slack dispatchers once they've
// been constructed against this Service's Invoke method as their Invoker.
func (s *Service) SetDispatchers(
	manual *dispatch.ManualDispatcher,
	gh *dispatch.GitHubDispatcher,
	slack *dispatch.SlackDispatcher,
) {
	s.deps.Manual = manual
	s.deps.GitHub = gh
	s.deps.Slack = slack
}

// Invoke is the dispatch.Invoker every dispatcher fires into: it looks up
// the matched workflow's spec and runs it asynchronously, exactly as the
// async path of ExecuteWorkflow does.
func (s *Service) Invoke(ctx context.Context, match router.Match) {
	log := logger.FromContext(ctx)
	rec, err := s.deps.Workflows.Get(ctx, match.WorkflowID)
	if err != nil {
		log.Error("httpapi: invoke: load workflow", "workflow_id", match.WorkflowID, "error", err)
		return
	}
	if _, err := s.runAsync(context.WithoutCancel(ctx), &rec.Config, match.TriggerData); err != nil {
		log.Error("httpapi: invoke: run workflow", "workflow_id", match.WorkflowID, "error", err)
	}
}

// ExecuteWorkflow runs workflowID's deployed spec from triggerInfo (§6
// "execute_workflow"). Sync mode blocks until the run completes and
// returns the final Execution; async mode persists a NEW row and returns
// its id immediately, continuing the run in the background.
func (s *Service) ExecuteWorkflow(
	ctx context.Context,
	workflowID string,
	triggerInfo map[string]any,
	async bool,
) (*pgstore.Execution, error) {
	rec, err := s.deps.Workflows.Get(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	if async {
		return s.runAsync(context.WithoutCancel(ctx), &rec.Config, triggerInfo)
	}
	return s.runSync(ctx, &rec.Config, triggerInfo)
}

func (s *Service) runSync(
	ctx context.Context,
	cfg *workflow.Config,
	triggerInfo map[string]any,
) (*pgstore.Execution, error) {
	row := &pgstore.Execution{
		ID:          common.GenerateExecID(),
		WorkflowID:  cfg.ID,
		Status:      core.ExecNew,
		StartTime:   time.Now(),
		TriggerInfo: triggerInfo,
	}
	if err := s.deps.Executions.Create(ctx, row); err != nil {
		return nil, err
	}
	runCtx, cancel := s.track(ctx, row.ID)
	defer s.untrack(row.ID)
	defer cancel()

	execResult, runErr := s.deps.Engine.RunWithID(runCtx, row.ID, cfg, triggerInfo)
	return s.persist(context.WithoutCancel(ctx), row, execResult, runErr)
}

func (s *Service) runAsync(
	ctx context.Context,
	cfg *workflow.Config,
	triggerInfo map[string]any,
) (*pgstore.Execution, error) {
	row := &pgstore.Execution{
		ID:          common.GenerateExecID(),
		WorkflowID:  cfg.ID,
		Status:      core.ExecNew,
		StartTime:   time.Now(),
		TriggerInfo: triggerInfo,
	}
	if err := s.deps.Executions.Create(ctx, row); err != nil {
		return nil, err
	}

	runCtx, cancel := s.track(context.WithoutCancel(ctx), row.ID)
	go func() {
		defer cancel()
		defer s.untrack(row.ID)
		execResult, runErr := s.deps.Engine.RunWithID(runCtx, row.ID, cfg, triggerInfo)
		if _, err := s.persist(runCtx, row, execResult, runErr); err != nil {
			logger.FromContext(runCtx).Error("httpapi: persist async execution", "execution_id", row.ID, "error", err)
		}
	}()
	return row, nil
}

// persist writes the engine's final node states and execution status, and
// returns the row reflecting that outcome.
func (s *Service) persist(ctx context.Context, row *pgstore.Execution, result *exec.Execution, runErr error) (*pgstore.Execution, error) {
	if result == nil {
		row.Status = core.ExecError
		now := time.Now()
		row.EndTime = &now
		_ = s.deps.Executions.UpdateStatus(ctx, row.ID, row.Status, row.EndTime)
		return row, runErr
	}
	for nodeID, ne := range result.Nodes {
		pgNE := toPgNodeExecution(row.ID, nodeID, ne)
		if err := s.deps.Executions.UpsertNodeExecution(ctx, &pgNE); err != nil {
			logger.FromContext(ctx).Error("httpapi: upsert node execution", "node_id", nodeID, "error", err)
		}
	}
	row.Status = result.Status
	row.EndTime = &result.EndTime
	if err := s.deps.Executions.UpdateStatus(ctx, row.ID, row.Status, row.EndTime); err != nil {
		return row, err
	}
	return row, runErr
}

func toPgNodeExecution(executionID, nodeID string, ne *exec.NodeExecution) pgstore.NodeExecution {
	pgNE := pgstore.NodeExecution{
		ExecutionID:      executionID,
		NodeID:           nodeID,
		Phase:            ne.Phase,
		OutputParameters: ne.Outputs,
	}
	if !ne.StartedAt.IsZero() {
		pgNE.StartTime = &ne.StartedAt
	}
	if !ne.CompletedAt.IsZero() {
		pgNE.EndTime = &ne.CompletedAt
	}
	if ne.Error != nil {
		pgNE.ErrorDetails = map[string]any{"type": ne.Error.Type, "message": ne.Error.Message}
	}
	return pgNE
}

// GetExecution reconstructs an Execution view from persisted rows.
func (s *Service) GetExecution(ctx context.Context, id string) (*pgstore.Execution, []pgstore.NodeExecution, error) {
	row, err := s.deps.Executions.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	nodes, err := s.deps.Executions.NodeExecutionsFor(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return row, nodes, nil
}

// CancelExecution stops an in-flight run, if one is tracked under id, and
// marks the persisted row CANCELED regardless of whether anything was
// actually running (§6 "cancel_execution").
func (s *Service) CancelExecution(ctx context.Context, id string) error {
	s.mu.Lock()
	cancel, ok := s.cancels[id]
	s.mu.Unlock()
	if ok {
		cancel()
	}
	now := time.Now()
	return s.deps.Executions.UpdateStatus(ctx, id, core.ExecCanceled, &now)
}

// Resume completes a WAITING_HUMAN node with resolvedInput and re-runs the
// rest of the graph to completion (§6 "HIL resumption", Open Question #4).
func (s *Service) Resume(
	ctx context.Context,
	executionID, nodeID string,
	resolvedInput map[string]any,
) (*exec.Execution, error) {
	row, nodeRows, err := s.GetExecution(ctx, executionID)
	if err != nil {
		return nil, err
	}
	rec, err := s.deps.Workflows.Get(ctx, row.WorkflowID)
	if err != nil {
		return nil, err
	}
	prior := loadExecution(row, nodeRows)

	runCtx, cancel := s.track(ctx, executionID)
	defer s.untrack(executionID)
	defer cancel()

	result, err := s.deps.Engine.Resume(runCtx, &rec.Config, prior, nodeID, resolvedInput)
	if err != nil {
		return nil, err
	}
	if _, perr := s.persist(ctx, row, result, nil); perr != nil {
		return result, perr
	}
	return result, nil
}

// loadExecution rebuilds the in-memory shape Engine.Resume needs from the
// persisted Execution/NodeExecution rows: Phase and Outputs/OutputParameters
// share identical types, so no conversion beyond field copying is needed.
func loadExecution(row *pgstore.Execution, nodeRows []pgstore.NodeExecution) *exec.Execution {
	e := &exec.Execution{
		ID:         row.ID,
		WorkflowID: row.WorkflowID,
		Status:     row.Status,
		StartTime:  row.StartTime,
		Nodes:      make(map[string]*exec.NodeExecution, len(nodeRows)),
	}
	if row.EndTime != nil {
		e.EndTime = *row.EndTime
	}
	for _, n := range nodeRows {
		ne := &exec.NodeExecution{
			NodeID:  n.NodeID,
			Phase:   n.Phase,
			Outputs: n.OutputParameters,
		}
		if n.StartTime != nil {
			ne.StartedAt = *n.StartTime
		}
		if n.EndTime != nil {
			ne.CompletedAt = *n.EndTime
		}
		if n.ErrorDetails != nil {
			ne.Error = &exec.NodeError{
				Type:    fmt.Sprint(n.ErrorDetails["type"]),
				Message: fmt.Sprint(n.ErrorDetails["message"]),
			}
		}
		e.Nodes[n.NodeID] = ne
	}
	return e
}

func (s *Service) track(ctx context.Context, id string) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancels[id] = cancel
	s.mu.Unlock()
	return runCtx, cancel
}

func (s *Service) untrack(id string) {
	s.mu.Lock()
	delete(s.cancels, id)
	s.mu.Unlock()
}
