package runners

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitflow/orbitflow/engine/exec"
	"github.com/orbitflow/orbitflow/engine/workflow"
)

func TestTrigger(t *testing.T) {
	t.Run("Should emit the run's trigger_data as main output", func(t *testing.T) {
		r := Trigger()
		out, err := r.Run(t.Context(), workflow.Node{ID: "trigger"}, nil, exec.RunContext{
			TriggerData: map[string]any{"event": "ping"},
		})
		require.NoError(t, err)
		main := out.Outputs["main"].(map[string]any)
		assert.Equal(t, "ping", main["event"])
	})
}
