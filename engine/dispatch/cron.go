package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/orbitflow/orbitflow/engine/router"
	"github.com/orbitflow/orbitflow/pkg/logger"
)

// CronDispatcher owns a cron.Cron scheduler that fires on every registered
// expression and, on fire, re-queries the router for that expression and
// invokes once per match (§4.3).
type CronDispatcher struct {
	mu      sync.Mutex
	cron    *cron.Cron
	router  *router.Router
	invoke  Invoker
	entries map[string][]cronEntry // workflowID -> entries it owns
}

type cronEntry struct {
	id   cron.EntryID
	expr string
}

// NewCronDispatcher constructs and starts a cron scheduler.
func NewCronDispatcher(r *router.Router, invoke Invoker) *CronDispatcher {
	d := &CronDispatcher{
		cron:    cron.New(cron.WithSeconds()),
		router:  r,
		invoke:  invoke,
		entries: make(map[string][]cronEntry),
	}
	d.cron.Start()
	return d
}

// Stop shuts the scheduler down, waiting for running jobs to finish.
func (d *CronDispatcher) Stop() context.Context {
	return d.cron.Stop()
}

// Register adds one cron job per cron-expression index key. A workflow with
// multiple CRON trigger nodes gets one job per distinct expression.
func (d *CronDispatcher) Register(ctx context.Context, workflowID, triggerType string, indexKeys []string) error {
	if triggerType != "CRON" {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	var added []cronEntry
	for _, expr := range indexKeys {
		expr := expr
		id, err := d.cron.AddFunc(expr, func() {
			d.fire(context.Background(), expr)
		})
		if err != nil {
			for _, e := range added {
				d.cron.Remove(e.id)
			}
			return fmt.Errorf("dispatch: invalid cron expression %q: %w", expr, err)
		}
		added = append(added, cronEntry{id: id, expr: expr})
	}
	d.entries[workflowID] = append(d.entries[workflowID], added...)
	return nil
}

// Unregister removes every cron job owned by workflowID.
func (d *CronDispatcher) Unregister(_ context.Context, workflowID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, e := range d.entries[workflowID] {
		d.cron.Remove(e.id)
	}
	delete(d.entries, workflowID)
	return nil
}

func (d *CronDispatcher) fire(ctx context.Context, expr string) {
	now := time.Now().UTC()
	matches, err := d.router.RouteCron(ctx, expr, "UTC", now.Format(time.RFC3339))
	if err != nil {
		logger.FromContext(ctx).Error("Cron routing failed", "error", err, "expression", expr)
		return
	}
	for _, m := range matches {
		d.invoke(ctx, m)
	}
}
