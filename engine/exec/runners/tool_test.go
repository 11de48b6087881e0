package runners

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitflow/orbitflow/engine/exec"
	"github.com/orbitflow/orbitflow/engine/workflow"
)

func TestTool_InProcess(t *testing.T) {
	t.Run("Should dispatch to a registered in-process function by tool_name", func(t *testing.T) {
		deps := ToolDeps{Functions: map[string]ToolFunc{
			"lookup": func(_ context.Context, args map[string]any) (map[string]any, error) {
				return map[string]any{"found": args["id"]}, nil
			},
		}}
		r := Tool(deps)
		node := workflow.Node{ID: "t1", Type: workflow.NodeTool, Configurations: map[string]any{"tool_name": "lookup"}}
		out, err := r.Run(t.Context(), node, map[string]any{"main": map[string]any{"id": "42"}}, exec.RunContext{})
		require.NoError(t, err)
		assert.Equal(t, "42", out.Outputs["main"].(map[string]any)["found"])
	})

	t.Run("Should default tool_name to the node's name when unset", func(t *testing.T) {
		deps := ToolDeps{Functions: map[string]ToolFunc{
			"named-tool": func(_ context.Context, _ map[string]any) (map[string]any, error) {
				return map[string]any{"ran": true}, nil
			},
		}}
		r := Tool(deps)
		node := workflow.Node{ID: "t2", Name: "named-tool", Type: workflow.NodeTool}
		out, err := r.Run(t.Context(), node, nil, exec.RunContext{})
		require.NoError(t, err)
		assert.Equal(t, true, out.Outputs["main"].(map[string]any)["ran"])
	})

	t.Run("Should reject a tool_name with no registered function or MCP server", func(t *testing.T) {
		r := Tool(ToolDeps{})
		node := workflow.Node{ID: "t3", Type: workflow.NodeTool, Configurations: map[string]any{"tool_name": "missing"}}
		_, err := r.Run(t.Context(), node, nil, exec.RunContext{})
		require.Error(t, err)
		var verr *exec.ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("Should surface a function's error wrapped with the tool name", func(t *testing.T) {
		deps := ToolDeps{Functions: map[string]ToolFunc{
			"broken": func(_ context.Context, _ map[string]any) (map[string]any, error) {
				return nil, errors.New("boom")
			},
		}}
		r := Tool(deps)
		node := workflow.Node{ID: "t4", Type: workflow.NodeTool, Configurations: map[string]any{"tool_name": "broken"}}
		_, err := r.Run(t.Context(), node, nil, exec.RunContext{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "broken")
	})
}
