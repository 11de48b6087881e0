package dispatch

import (
	"context"

	"github.com/orbitflow/orbitflow/engine/router"
)

// ManualDispatcher needs no registration: a manual trigger is invoked
// directly by API call against a known workflow_id, bypassing the router
// entirely (§4.3).
type ManualDispatcher struct {
	invoke Invoker
}

func NewManualDispatcher(invoke Invoker) *ManualDispatcher {
	return &ManualDispatcher{invoke: invoke}
}

func (d *ManualDispatcher) Register(_ context.Context, _, _ string, _ []string) error   { return nil }
func (d *ManualDispatcher) Unregister(_ context.Context, _ string) error                { return nil }

// Invoke fires a workflow directly, with the given trigger_data.
func (d *ManualDispatcher) Invoke(ctx context.Context, workflowID string, triggerData map[string]any) {
	d.invoke(ctx, router.Match{
		WorkflowID:  workflowID,
		TriggerType: "MANUAL",
		TriggerData: triggerData,
	})
}
