package dispatch

import (
	"context"
	"sync"

	"github.com/orbitflow/orbitflow/engine/router"
)

// EmailDispatcher has no ingress of its own: it is invoked by an external
// mail-ingest process and its scope is limited to matching (§4.3).
type EmailDispatcher struct {
	mu        sync.RWMutex
	workflows map[string]struct{}
	router    *router.Router
	invoke    Invoker
}

func NewEmailDispatcher(r *router.Router, invoke Invoker) *EmailDispatcher {
	return &EmailDispatcher{workflows: make(map[string]struct{}), router: r, invoke: invoke}
}

func (d *EmailDispatcher) Register(_ context.Context, workflowID, triggerType string, _ []string) error {
	if triggerType != "EMAIL" {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.workflows[workflowID] = struct{}{}
	return nil
}

func (d *EmailDispatcher) Unregister(_ context.Context, workflowID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.workflows, workflowID)
	return nil
}

// Dispatch matches an inbound email envelope against every registered EMAIL
// trigger.
func (d *EmailDispatcher) Dispatch(ctx context.Context, envelope map[string]any) (int, error) {
	matches, err := d.router.RouteEmail(ctx, envelope)
	if err != nil {
		return 0, err
	}
	for _, m := range matches {
		d.invoke(ctx, m)
	}
	return len(matches), nil
}
