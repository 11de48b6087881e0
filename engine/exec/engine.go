package exec

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/orbitflow/orbitflow/engine/common"
	"github.com/orbitflow/orbitflow/engine/core"
	"github.com/orbitflow/orbitflow/engine/exec/logstream"
	"github.com/orbitflow/orbitflow/engine/graph"
	"github.com/orbitflow/orbitflow/engine/workflow"
	"github.com/orbitflow/orbitflow/pkg/logger"
)

// DefaultMaxConcurrentNodes is how many same-level nodes run at once when
// Engine.Concurrency is left unset (§5 "Scheduling model").
const DefaultMaxConcurrentNodes = 5

// Engine drives one workflow run end to end: build the graph, walk it level
// by level, invoke the registered Runner for each node, and propagate
// outputs along connections (§4.6.1).
type Engine struct {
	registry *Registry
	// Concurrency bounds how many same-level nodes run at once. 0 uses
	// DefaultMaxConcurrentNodes.
	Concurrency int
	// Logs is the optional C8 execution logger. A nil Logs disables
	// structured log entries and node metrics; the logger.Logger emission
	// in emitters.go happens regardless.
	Logs *logstream.Stream
}

// NewEngine builds an Engine dispatching node execution through registry,
// with same-level concurrency bounded to DefaultMaxConcurrentNodes.
func NewEngine(registry *Registry) *Engine {
	return &Engine{registry: registry, Concurrency: DefaultMaxConcurrentNodes}
}

// Run executes cfg from triggerData to completion (§4.6.1-§4.6.4), assigning
// a freshly generated execution id.
func (e *Engine) Run(ctx context.Context, cfg *workflow.Config, triggerData map[string]any) (*Execution, error) {
	return e.run(ctx, common.GenerateExecID(), cfg, triggerData)
}

// RunWithID executes cfg from triggerData to completion under a
// caller-supplied execution id, so a caller (the HTTP ingest layer's async
// execute_workflow) can persist a NEW-status row before the run starts and
// hand the id back to the client immediately.
func (e *Engine) RunWithID(
	ctx context.Context,
	id string,
	cfg *workflow.Config,
	triggerData map[string]any,
) (*Execution, error) {
	return e.run(ctx, id, cfg, triggerData)
}

func (e *Engine) run(ctx context.Context, id string, cfg *workflow.Config, triggerData map[string]any) (*Execution, error) {
	log := logger.FromContext(ctx)

	exec := &Execution{
		ID:         id,
		WorkflowID: cfg.ID,
		Status:     core.ExecRunning,
		StartTime:  time.Now(),
		Nodes:      make(map[string]*NodeExecution, len(cfg.Nodes)),
	}
	emitWorkflowStart(log, cfg, exec)
	if e.Logs != nil {
		e.Logs.WorkflowStarted(ctx, exec.ID, cfg.ID, cfg.Name, len(cfg.Nodes), triggerKind(triggerData))
	}

	g, err := graph.Build(cfg)
	if err != nil {
		exec.Status = core.ExecError
		exec.EndTime = time.Now()
		emitWorkflowComplete(log, exec)
		e.completeLogs(ctx, cfg, exec)
		return exec, fmt.Errorf("exec: %w", err)
	}

	rc := RunContext{ExecutionID: exec.ID, WorkflowID: cfg.ID, TriggerData: triggerData}
	st := &runState{pending: make(map[string]map[string]any)}

	levels := levelize(g)
	for _, level := range levels {
		grp, gctx := errgroup.WithContext(ctx)
		limit := e.Concurrency
		if limit <= 0 {
			limit = -1
		}
		grp.SetLimit(limit)

		for _, nodeID := range level {
			nodeID := nodeID
			grp.Go(func() error {
				e.runNode(gctx, log, cfg, g, exec, nodeID, st, rc)
				return nil
			})
		}
		_ = grp.Wait() // node failures are recorded on exec, never aborted here
	}

	exec.EndTime = time.Now()
	exec.Status = finalStatus(cfg, exec)
	emitWorkflowComplete(log, exec)
	e.completeLogs(ctx, cfg, exec)
	return exec, nil
}

// triggerKind extracts a human-readable trigger label from trigger data for
// the §4.8 "via <trigger>" start message, defaulting to "manual".
func triggerKind(triggerData map[string]any) string {
	if v, ok := triggerData["trigger_type"].(string); ok && v != "" {
		return v
	}
	return "manual"
}

// completeLogs records the workflow-complete entry on the C8 logger, with
// the §7 failure summary shape when the run did not finish COMPLETED.
func (e *Engine) completeLogs(ctx context.Context, cfg *workflow.Config, exec *Execution) {
	if e.Logs == nil {
		return
	}
	var summary map[string]any
	if exec.Status != core.ExecCompleted {
		var failed, succeeded []string
		for id, ne := range exec.Nodes {
			switch ne.Phase {
			case core.PhaseCompleted:
				succeeded = append(succeeded, id)
			case core.PhaseFailed, core.PhaseTimeout:
				failed = append(failed, id)
			}
		}
		summary = map[string]any{
			"error":            true,
			"error_type":       "execution_failure",
			"failed_nodes":     failed,
			"successful_nodes": succeeded,
			"error_summary":    fmt.Sprintf("%d node(s) failed", len(failed)),
		}
	}
	e.Logs.WorkflowComplete(ctx, exec.ID, cfg.ID, exec.Status.String(), exec.EndTime.Sub(exec.StartTime), summary)
}

// runState guards the mutable state shared by nodes running concurrently
// within the same level: the Execution's node table and the pending-inputs
// staging area (§4.6.2, §4.6.4).
type runState struct {
	mu      sync.Mutex
	pending map[string]map[string]any // nodeID -> port -> value
}

func (st *runState) setNode(exec *Execution, nodeID string, ne *NodeExecution) {
	st.mu.Lock()
	defer st.mu.Unlock()
	exec.Nodes[nodeID] = ne
}

func (st *runState) predecessorsCompleted(g *graph.Graph, exec *Execution, nodeID string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	for _, c := range g.Predecessors(nodeID) {
		ne, ok := exec.Nodes[c.FromNode]
		if !ok || ne.Phase != core.PhaseCompleted {
			return false
		}
	}
	return true
}

func (st *runState) inputsFor(node workflow.Node) map[string]any {
	st.mu.Lock()
	defer st.mu.Unlock()
	pending := st.pending[node.ID]
	inputs := make(map[string]any, len(node.InputParams)+len(pending))
	for k, v := range node.InputParams {
		inputs[k] = v
	}
	for port, v := range pending {
		inputs[port] = v
	}
	return inputs
}

func (st *runState) propagate(g *graph.Graph, nodeID string, outputs map[string]any) {
	for _, c := range g.Successors(nodeID) {
		source, ok := outputs[c.FromPort]
		if !ok {
			continue
		}
		value := source
		if c.ConversionFunction != "" {
			cfgT := ParseTransform(c.ConversionFunction)
			if transformed, err := ApplyTransform(cfgT, source); err == nil {
				value = transformed
			}
		}
		st.mu.Lock()
		if st.pending[c.ToNode] == nil {
			st.pending[c.ToNode] = make(map[string]any)
		}
		st.pending[c.ToNode][c.ToPort] = value
		st.mu.Unlock()
	}
}

// levelize groups g's topological order into levels: a node's level is one
// past the maximum level of its predecessors, so every node in a level has
// all its predecessors fully resolved in earlier levels and nodes within a
// level may run concurrently.
func levelize(g *graph.Graph) [][]string {
	level := make(map[string]int)
	var levels [][]string
	for _, id := range g.Order() {
		maxPred := -1
		for _, c := range g.Predecessors(id) {
			if l := level[c.FromNode]; l > maxPred {
				maxPred = l
			}
		}
		lvl := maxPred + 1
		level[id] = lvl
		for len(levels) <= lvl {
			levels = append(levels, nil)
		}
		levels[lvl] = append(levels[lvl], id)
	}
	return levels
}

func (e *Engine) runNode(
	ctx context.Context,
	log logger.Logger,
	cfg *workflow.Config,
	g *graph.Graph,
	exec *Execution,
	nodeID string,
	st *runState,
	rc RunContext,
) {
	node, _ := g.Node(nodeID)

	if !st.predecessorsCompleted(g, exec, nodeID) {
		st.setNode(exec, nodeID, &NodeExecution{NodeID: nodeID, Phase: core.PhaseFailed})
		return
	}

	inputs := st.inputsFor(node)

	ne := &NodeExecution{NodeID: nodeID, Phase: core.PhaseValidatingInputs, StartedAt: time.Now()}
	st.setNode(exec, nodeID, ne)
	emitNodeStart(log, node, inputs)
	if e.Logs != nil {
		e.Logs.NodeStarted(ctx, exec.ID, cfg.ID, node.ID, node.Name)
	}

	applyActionTypeDefault(&node)

	runner, err := e.registry.Resolve(node)
	if err != nil {
		e.failNode(ctx, log, exec, cfg, ne, node, err)
		return
	}

	timeout := time.Duration(cfg.Settings.EffectiveTimeout()) * time.Second
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ne.Phase = core.PhaseProcessing
	out, err := runner.Run(runCtx, node, inputs, rc)
	if err != nil {
		if runCtx.Err() != nil {
			ne.Phase = core.PhaseTimeout
			ne.Error = &NodeError{Type: "timeout", Message: runCtx.Err().Error()}
			emitNodeFailed(log, node, ne.Error)
			ne.CompletedAt = time.Now()
			if e.Logs != nil {
				e.Logs.NodeFailed(ctx, exec.ID, cfg.ID, node.ID, node.Name, string(node.Type), node.Subtype,
					ne.Error.Type, ne.Error.Message, ne.Duration())
			}
			return
		}
		e.failNode(ctx, log, exec, cfg, ne, node, err)
		return
	}

	if out.Waiting {
		ne.Phase = core.PhaseWaitingHuman
		ne.PendingID = out.Token
		emitHumanInteraction(log, node, out.Token)
		if e.Logs != nil {
			e.Logs.HumanInteraction(ctx, exec.ID, cfg.ID, node.ID, node.Name, out.Token)
		}
		return
	}

	outputs := out.Outputs
	if outputs == nil {
		outputs = map[string]any{}
	}
	ne.Outputs = outputs
	ne.Phase = core.PhaseCompleted
	ne.CompletedAt = time.Now()
	emitNodeComplete(log, node, ne.Duration())
	if e.Logs != nil {
		e.Logs.NodeCompleted(ctx, exec.ID, cfg.ID, node.ID, node.Name, string(node.Type), node.Subtype, ne.Duration())
	}

	st.propagate(g, nodeID, outputs)
}

func (e *Engine) failNode(
	ctx context.Context,
	log logger.Logger,
	exec *Execution,
	cfg *workflow.Config,
	ne *NodeExecution,
	node workflow.Node,
	err error,
) {
	ne.Phase = core.PhaseFailed
	ne.CompletedAt = time.Now()
	ne.Error = &NodeError{Type: classifyError(err), Message: core.RedactError(err)}
	emitNodeFailed(log, node, ne.Error)
	if e.Logs != nil {
		e.Logs.NodeFailed(ctx, exec.ID, cfg.ID, node.ID, node.Name, string(node.Type), node.Subtype,
			ne.Error.Type, ne.Error.Message, ne.Duration())
	}
}

// classifyError labels a runner's error by the §7 error taxonomy, defaulting
// to a generic "runner_error" for anything not one of the typed kinds.
func classifyError(err error) string {
	var validationErr *ValidationError
	var authErr *AuthError
	var temporaryErr *TemporaryError
	var engineErr *EngineError
	switch {
	case errors.As(err, &validationErr):
		return "validation_error"
	case errors.As(err, &authErr):
		return "auth_error"
	case errors.As(err, &temporaryErr):
		return "temporary_error"
	case errors.As(err, &engineErr):
		return "engine_error"
	default:
		return "runner_error"
	}
}

// applyActionTypeDefault fills in configurations.action_type for
// EXTERNAL_ACTION nodes that omit it (§4.6.3 step 2).
func applyActionTypeDefault(node *workflow.Node) {
	if node.Type != workflow.NodeExternalAction {
		return
	}
	if node.Configurations == nil {
		node.Configurations = make(map[string]any)
	}
	if at, ok := node.Configurations["action_type"]; ok && at != "" {
		return
	}
	node.Configurations["action_type"] = defaultActionType(node.Subtype)
}

// finalStatus determines the Execution's terminal status (§4.6.1 step 7):
// ERROR if any node FAILED or TIMED OUT, unless the workflow or that node's
// own configuration sets continue_on_failure (§4.6.7), in which case a
// failure in that node alone does not fail the run.
func finalStatus(cfg *workflow.Config, exec *Execution) core.ExecStatus {
	for id, ne := range exec.Nodes {
		if ne.Phase != core.PhaseFailed && ne.Phase != core.PhaseTimeout {
			continue
		}
		node, _ := cfg.NodeByID(id)
		if continueOnFailure(cfg, node) {
			continue
		}
		return core.ExecError
	}
	return core.ExecCompleted
}

// continueOnFailure resolves §4.6.7's precedence: a node-level
// configurations.continue_on_failure overrides the workflow-level setting;
// absent both, the default is to stop.
func continueOnFailure(cfg *workflow.Config, node workflow.Node) bool {
	if v, ok := node.Configurations["continue_on_failure"]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return cfg.Settings.ContinueOnFailure
}
