package runners

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitflow/orbitflow/engine/exec"
	"github.com/orbitflow/orbitflow/engine/workflow"
)

func TestHumanInTheLoop(t *testing.T) {
	t.Run("Should always suspend with an opaque resume token", func(t *testing.T) {
		r := HumanInTheLoop()
		node := workflow.Node{ID: "review", Type: workflow.NodeHumanInTheLoop}
		out, err := r.Run(t.Context(), node, nil, exec.RunContext{ExecutionID: "exec-1"})
		require.NoError(t, err)
		assert.True(t, out.Waiting)
		assert.True(t, strings.HasPrefix(out.Token, "exec-1:review:"))
	})

	t.Run("Should generate a distinct token per invocation", func(t *testing.T) {
		r := HumanInTheLoop()
		node := workflow.Node{ID: "review", Type: workflow.NodeHumanInTheLoop}
		out1, _ := r.Run(t.Context(), node, nil, exec.RunContext{ExecutionID: "exec-1"})
		out2, _ := r.Run(t.Context(), node, nil, exec.RunContext{ExecutionID: "exec-1"})
		assert.NotEqual(t, out1.Token, out2.Token)
	})
}
