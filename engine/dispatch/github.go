package dispatch

import (
	"context"
	"sync"

	"github.com/orbitflow/orbitflow/engine/router"
)

// GitHubDispatcher receives already signature-verified GitHub deliveries
// (HMAC-SHA256 verification happens in the A7 ingest layer) and forwards
// them to the router. It tracks which repositories (or, for account-wide
// triggers, the empty index key) have at least one registered workflow, so
// the HTTP layer can fast-reject deliveries for repos nobody listens to.
type GitHubDispatcher struct {
	mu     sync.RWMutex
	repos  map[string]map[string]struct{} // repoFullName (or "") -> workflowIDs
	router *router.Router
	invoke Invoker
}

func NewGitHubDispatcher(r *router.Router, invoke Invoker) *GitHubDispatcher {
	return &GitHubDispatcher{repos: make(map[string]map[string]struct{}), router: r, invoke: invoke}
}

func (d *GitHubDispatcher) Register(_ context.Context, workflowID, triggerType string, indexKeys []string) error {
	if triggerType != "GITHUB" {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, repo := range indexKeys {
		if d.repos[repo] == nil {
			d.repos[repo] = make(map[string]struct{})
		}
		d.repos[repo][workflowID] = struct{}{}
	}
	return nil
}

func (d *GitHubDispatcher) Unregister(_ context.Context, workflowID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for repo, set := range d.repos {
		delete(set, workflowID)
		if len(set) == 0 {
			delete(d.repos, repo)
		}
	}
	return nil
}

// Dispatch routes a verified GitHub delivery. The router itself matches
// both repo-scoped and account-wide ("" index key) triggers.
func (d *GitHubDispatcher) Dispatch(
	ctx context.Context,
	deliveryID, eventType, repoFullName string,
	payload map[string]any,
) (int, error) {
	matches, err := d.router.RouteGitHub(ctx, deliveryID, eventType, repoFullName, payload)
	if err != nil {
		return 0, err
	}
	for _, m := range matches {
		d.invoke(ctx, m)
	}
	return len(matches), nil
}
