package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/orbitflow/orbitflow/engine/router"
)

// SlackDispatcher receives Slack events already verified by the A7 ingest
// layer (base string v0:{timestamp}:{body}, HMAC-SHA256, 5-minute skew
// tolerance) and forwards them to the router. It answers the
// url_verification handshake directly.
type SlackDispatcher struct {
	mu          sync.RWMutex
	workspaces  map[string]map[string]struct{} // workspaceID -> workflowIDs
	router      *router.Router
	invoke      Invoker
}

func NewSlackDispatcher(r *router.Router, invoke Invoker) *SlackDispatcher {
	return &SlackDispatcher{workspaces: make(map[string]map[string]struct{}), router: r, invoke: invoke}
}

func (d *SlackDispatcher) Register(_ context.Context, workflowID, triggerType string, indexKeys []string) error {
	if triggerType != "SLACK" {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, ws := range indexKeys {
		if d.workspaces[ws] == nil {
			d.workspaces[ws] = make(map[string]struct{})
		}
		d.workspaces[ws][workflowID] = struct{}{}
	}
	return nil
}

func (d *SlackDispatcher) Unregister(_ context.Context, workflowID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for ws, set := range d.workspaces {
		delete(set, workflowID)
		if len(set) == 0 {
			delete(d.workspaces, ws)
		}
	}
	return nil
}

// HandleEvent answers the url_verification challenge directly, or routes a
// regular event. challenge is non-empty only for the former.
func (d *SlackDispatcher) HandleEvent(ctx context.Context, body map[string]any) (challenge string, routed int, err error) {
	if typ, _ := body["type"].(string); typ == "url_verification" {
		c, _ := body["challenge"].(string)
		return c, 0, nil
	}
	workspaceID, _ := body["team_id"].(string)
	event, _ := body["event"].(map[string]any)
	matches, err := d.router.RouteSlack(ctx, workspaceID, event)
	if err != nil {
		return "", 0, err
	}
	for _, m := range matches {
		d.invoke(ctx, m)
	}
	return "", len(matches), nil
}

// VerifySlackTimestamp rejects replayed requests whose timestamp drifts more
// than 5 minutes from now (§4.3).
func VerifySlackTimestamp(timestamp time.Time, now time.Time) bool {
	delta := now.Sub(timestamp)
	if delta < 0 {
		delta = -delta
	}
	return delta <= 5*time.Minute
}
