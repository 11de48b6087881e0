// Package exec implements the Execution Engine (C6): it drives one workflow
// run end-to-end over a graph.Graph, invoking node runners level by level
// and propagating outputs along connections.
package exec

import (
	"context"
	"fmt"
	"time"

	"github.com/orbitflow/orbitflow/engine/core"
	"github.com/orbitflow/orbitflow/engine/workflow"
)

// NodeError is the sanitized failure detail recorded on a FAILED NodeExecution.
type NodeError struct {
	Type    string
	Message string
}

// NodeExecution is the lifecycle record of a single node's run within an Execution.
type NodeExecution struct {
	NodeID      string
	Phase       core.NodePhase
	Outputs     map[string]any
	Error       *NodeError
	PendingID   string // opaque HIL resume token, set only in PhaseWaitingHuman
	StartedAt   time.Time
	CompletedAt time.Time
}

// Duration returns how long the node ran, zero if it hasn't completed.
func (n *NodeExecution) Duration() time.Duration {
	if n.CompletedAt.IsZero() {
		return 0
	}
	return n.CompletedAt.Sub(n.StartedAt)
}

// Execution is the lifecycle record of one workflow run.
type Execution struct {
	ID         string
	WorkflowID string
	Status     core.ExecStatus
	StartTime  time.Time
	EndTime    time.Time
	Nodes      map[string]*NodeExecution
}

// RunnerOutput is what a node Runner returns.
type RunnerOutput struct {
	// Outputs maps output port name to value. A runner that returns a bare
	// "main" key with no surrounding Outputs map is normalized to
	// {"main": value} by the engine before this is populated.
	Outputs map[string]any
	// Waiting is true for a HUMAN_IN_THE_LOOP node suspended pending
	// external resolution; Token is the opaque resume handle.
	Waiting bool
	Token   string
}

// RunContext carries per-run, read-only context into a Runner invocation.
type RunContext struct {
	ExecutionID string
	WorkflowID  string
	TriggerData map[string]any
}

// Runner executes one node. Implementations may be synchronous or
// cooperatively suspending (HUMAN_IN_THE_LOOP); suspending runners still
// return promptly with RunnerOutput.Waiting=true.
type Runner interface {
	Run(ctx context.Context, node workflow.Node, inputs map[string]any, rc RunContext) (RunnerOutput, error)
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, node workflow.Node, inputs map[string]any, rc RunContext) (RunnerOutput, error)

func (f RunnerFunc) Run(ctx context.Context, node workflow.Node, inputs map[string]any, rc RunContext) (RunnerOutput, error) {
	return f(ctx, node, inputs, rc)
}

// runnerKey composes the (type, subtype) pair the registry dispatches on.
type runnerKey struct {
	nodeType workflow.NodeType
	subtype  string
}

// Registry maps (node type, subtype) to a Runner.
type Registry struct {
	runners map[runnerKey]Runner
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{runners: make(map[runnerKey]Runner)}
}

// Register binds a Runner to (nodeType, subtype). An empty subtype matches
// every node of that type with no more specific registration.
func (r *Registry) Register(nodeType workflow.NodeType, subtype string, runner Runner) {
	r.runners[runnerKey{nodeType, subtype}] = runner
}

// Resolve looks up the runner for a node, falling back from (type, subtype)
// to (type, "") for a type-wide default.
func (r *Registry) Resolve(n workflow.Node) (Runner, error) {
	if runner, ok := r.runners[runnerKey{n.Type, n.Subtype}]; ok {
		return runner, nil
	}
	if runner, ok := r.runners[runnerKey{n.Type, ""}]; ok {
		return runner, nil
	}
	return nil, fmt.Errorf("exec: no runner registered for (%s, %s)", n.Type, n.Subtype)
}

// WrapMain wraps a runner's single result value under the "main" output
// port (§4.6.3). Runners that emit on more than one port (FLOW's branches)
// build their Outputs map directly instead of using this helper.
func WrapMain(result any) map[string]any {
	return map[string]any{"main": result}
}

// defaultActionType fills in configurations.action_type for EXTERNAL_ACTION
// nodes that omit it, by provider family (§4.6.3 step 2).
func defaultActionType(subtype string) string {
	switch subtype {
	case "SLACK":
		return "send_message"
	case "GITHUB":
		return "create_issue"
	case "GOOGLE_CALENDAR":
		return "create_event"
	case "NOTION":
		return "create_page"
	default:
		return "default_action"
	}
}
