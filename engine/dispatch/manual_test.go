package dispatch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitflow/orbitflow/engine/router"
)

func TestManualDispatcher_Invoke(t *testing.T) {
	var invoked []router.Match
	d := NewManualDispatcher(func(_ context.Context, m router.Match) {
		invoked = append(invoked, m)
	})

	d.Invoke(t.Context(), "wf-1", map[string]any{"reason": "operator retry"})

	require.Len(t, invoked, 1)
	assert.Equal(t, "wf-1", invoked[0].WorkflowID)
	assert.Equal(t, "MANUAL", invoked[0].TriggerType)
	assert.Equal(t, "operator retry", invoked[0].TriggerData["reason"])
}

func TestManualDispatcher_RegisterAndUnregisterAreNoOps(t *testing.T) {
	d := NewManualDispatcher(func(context.Context, router.Match) {})

	assert.NoError(t, d.Register(t.Context(), "wf-1", "MANUAL", []string{"ignored"}))
	assert.NoError(t, d.Unregister(t.Context(), "wf-1"))
}
