package exec

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/orbitflow/orbitflow/engine/core"
	"github.com/orbitflow/orbitflow/engine/graph"
	"github.com/orbitflow/orbitflow/engine/workflow"
	"github.com/orbitflow/orbitflow/pkg/logger"
)

// Resume continues a run suspended at a HUMAN_IN_THE_LOOP node (§6 "HIL
// resumption", Open Question #4): it completes nodeID with resolvedInput as
// its output, propagates that output downstream, and re-walks the graph's
// levels, skipping every node already in PhaseCompleted. Nodes that were
// marked FAILED only because nodeID hadn't resolved yet are retried, since
// their predecessor is now complete.
func (e *Engine) Resume(
	ctx context.Context,
	cfg *workflow.Config,
	prior *Execution,
	nodeID string,
	resolvedInput map[string]any,
) (*Execution, error) {
	log := logger.FromContext(ctx)

	ne, ok := prior.Nodes[nodeID]
	if !ok {
		return nil, fmt.Errorf("exec: resume: execution %q has no record of node %q", prior.ID, nodeID)
	}
	if ne.Phase != core.PhaseWaitingHuman {
		return nil, fmt.Errorf("exec: resume: node %q is not waiting on human input (phase %s)", nodeID, ne.Phase)
	}

	g, err := graph.Build(cfg)
	if err != nil {
		return nil, fmt.Errorf("exec: resume: %w", err)
	}

	outputs := resolvedInput
	if outputs == nil {
		outputs = map[string]any{}
	}
	ne.Outputs = outputs
	ne.Phase = core.PhaseCompleted
	ne.CompletedAt = time.Now()
	ne.PendingID = ""
	prior.Status = core.ExecRunning

	rc := RunContext{ExecutionID: prior.ID, WorkflowID: cfg.ID}
	st := &runState{pending: make(map[string]map[string]any)}
	st.propagate(g, nodeID, outputs)

	for _, level := range levelize(g) {
		grp, gctx := errgroup.WithContext(ctx)
		limit := e.Concurrency
		if limit <= 0 {
			limit = -1
		}
		grp.SetLimit(limit)

		for _, id := range level {
			id := id
			if id == nodeID {
				continue
			}
			if existing, ok := prior.Nodes[id]; ok && existing.Phase == core.PhaseCompleted {
				continue
			}
			grp.Go(func() error {
				e.runNode(gctx, log, cfg, g, prior, id, st, rc)
				return nil
			})
		}
		_ = grp.Wait()
	}

	prior.EndTime = time.Now()
	prior.Status = finalStatus(cfg, prior)
	emitWorkflowComplete(log, prior)
	e.completeLogs(ctx, cfg, prior)
	return prior, nil
}
