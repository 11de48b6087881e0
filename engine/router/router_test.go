package router

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitflow/orbitflow/engine/trigindex"
)

func TestRouter_RouteCron(t *testing.T) {
	idx := trigindex.NewMemStore()
	ctx := t.Context()
	require.NoError(t, idx.Register(ctx, "wf-1", []trigindex.Row{
		{TriggerType: "CRON", IndexKey: "*/5 * * * *"},
	}))
	r := New(idx, nil)

	matches, err := r.RouteCron(ctx, "*/5 * * * *", "UTC", "2026-07-31T00:00:00Z")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "wf-1", matches[0].WorkflowID)
	assert.Equal(t, "UTC", matches[0].TriggerData["timezone"])
}

func TestRouter_RouteWebhook_FiltersByMethod(t *testing.T) {
	idx := trigindex.NewMemStore()
	ctx := t.Context()
	require.NoError(t, idx.Register(ctx, "wf-1", []trigindex.Row{
		{TriggerType: "WEBHOOK", IndexKey: "/hooks/a", TriggerConfig: map[string]any{
			"allowed_methods": []any{"POST"},
		}},
	}))
	r := New(idx, nil)

	matches, err := r.RouteWebhook(ctx, "/hooks/a", "GET", map[string]any{})
	require.NoError(t, err)
	assert.Empty(t, matches)

	matches, err = r.RouteWebhook(ctx, "/hooks/a", "POST", map[string]any{"k": "v"})
	require.NoError(t, err)
	require.Len(t, matches, 1)
}

func TestRouter_RouteGitHub_RecordsAuditEvent(t *testing.T) {
	idx := trigindex.NewMemStore()
	ctx := t.Context()
	require.NoError(t, idx.Register(ctx, "wf-1", []trigindex.Row{
		{TriggerType: "GITHUB", IndexKey: "acme/widgets", TriggerConfig: map[string]any{
			"event_config": []any{"push"},
		}},
	}))
	var recorded bool
	r := New(idx, func(_ context.Context, deliveryID, eventType, repoFullName string, _ any) error {
		recorded = true
		assert.Equal(t, "d-1", deliveryID)
		assert.Equal(t, "push", eventType)
		assert.Equal(t, "acme/widgets", repoFullName)
		return nil
	})

	matches, err := r.RouteGitHub(ctx, "d-1", "push", "acme/widgets", map[string]any{"ref": "refs/heads/main"})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.True(t, recorded)
}

func TestRouter_RouteSlack_MatchesWorkspaceAgnosticTriggers(t *testing.T) {
	idx := trigindex.NewMemStore()
	ctx := t.Context()
	require.NoError(t, idx.Register(ctx, "wf-agnostic", []trigindex.Row{
		{TriggerType: "SLACK", IndexKey: ""},
	}))
	require.NoError(t, idx.Register(ctx, "wf-scoped", []trigindex.Row{
		{TriggerType: "SLACK", IndexKey: "T123"},
	}))
	r := New(idx, nil)

	matches, err := r.RouteSlack(ctx, "T123", map[string]any{"type": "message", "text": "hi"})
	require.NoError(t, err)
	ids := map[string]bool{}
	for _, m := range matches {
		ids[m.WorkflowID] = true
	}
	assert.True(t, ids["wf-agnostic"])
	assert.True(t, ids["wf-scoped"])
}
