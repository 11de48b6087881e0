package dispatch

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/orbitflow/orbitflow/engine/router"
)

// normalizeWebhookPath lower-cases and ensures a single leading slash,
// matching §4.3's "normalized (leading slash, lowercase host-agnostic)".
func normalizeWebhookPath(path string) string {
	path = strings.ToLower(strings.TrimSpace(path))
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}

// WebhookDispatcher owns a path -> {workflow set} registry and forwards
// ingested HTTP requests to the router.
type WebhookDispatcher struct {
	mu     sync.RWMutex
	paths  map[string]map[string]struct{} // path -> workflowIDs
	router *router.Router
	invoke Invoker
}

func NewWebhookDispatcher(r *router.Router, invoke Invoker) *WebhookDispatcher {
	return &WebhookDispatcher{
		paths:  make(map[string]map[string]struct{}),
		router: r,
		invoke: invoke,
	}
}

func (d *WebhookDispatcher) Register(_ context.Context, workflowID, triggerType string, indexKeys []string) error {
	if triggerType != "WEBHOOK" {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, path := range indexKeys {
		path = normalizeWebhookPath(path)
		if path == "/" {
			return fmt.Errorf("dispatch: webhook path must be non-empty")
		}
		if d.paths[path] == nil {
			d.paths[path] = make(map[string]struct{})
		}
		d.paths[path][workflowID] = struct{}{}
	}
	return nil
}

func (d *WebhookDispatcher) Unregister(_ context.Context, workflowID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for path, set := range d.paths {
		delete(set, workflowID)
		if len(set) == 0 {
			delete(d.paths, path)
		}
	}
	return nil
}

// Registered reports whether any workflow owns path.
func (d *WebhookDispatcher) Registered(path string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.paths[normalizeWebhookPath(path)]
	return ok
}

// Dispatch is called by the HTTP layer once a request's signature and
// idempotency checks (A7) have passed.
func (d *WebhookDispatcher) Dispatch(ctx context.Context, path, method string, envelope map[string]any) (int, error) {
	matches, err := d.router.RouteWebhook(ctx, normalizeWebhookPath(path), method, envelope)
	if err != nil {
		return 0, err
	}
	for _, m := range matches {
		d.invoke(ctx, m)
	}
	return len(matches), nil
}
