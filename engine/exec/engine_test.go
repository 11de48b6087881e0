package exec

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitflow/orbitflow/engine/core"
	"github.com/orbitflow/orbitflow/engine/exec/logstream"
	"github.com/orbitflow/orbitflow/engine/workflow"
)

func passthroughRunner() Runner {
	return RunnerFunc(func(_ context.Context, node workflow.Node, inputs map[string]any, _ RunContext) (RunnerOutput, error) {
		return RunnerOutput{Outputs: inputs}, nil
	})
}

func failingRunner(msg string) Runner {
	return RunnerFunc(func(_ context.Context, _ workflow.Node, _ map[string]any, _ RunContext) (RunnerOutput, error) {
		return RunnerOutput{}, errors.New(msg)
	})
}

func linearConfig() *workflow.Config {
	return &workflow.Config{
		ID:   "wf-linear",
		Name: "linear",
		Nodes: []workflow.Node{
			{ID: "trigger", Type: workflow.NodeTrigger},
			{ID: "step", Type: workflow.NodeAction, InputParams: map[string]any{"greeting": "hi"}},
		},
		Connections: []workflow.Connection{
			{FromNode: "trigger", FromPort: "main", ToNode: "step", ToPort: "main"},
		},
	}
}

func TestEngine_Run(t *testing.T) {
	t.Run("Should run every node to completion in a linear workflow", func(t *testing.T) {
		reg := NewRegistry()
		reg.Register(workflow.NodeTrigger, "", passthroughRunner())
		reg.Register(workflow.NodeAction, "", passthroughRunner())

		e := NewEngine(reg)
		exec, err := e.Run(t.Context(), linearConfig(), map[string]any{"event": "ping"})
		require.NoError(t, err)

		assert.Equal(t, core.ExecCompleted, exec.Status)
		require.Contains(t, exec.Nodes, "trigger")
		require.Contains(t, exec.Nodes, "step")
		assert.Equal(t, core.PhaseCompleted, exec.Nodes["trigger"].Phase)
		assert.Equal(t, core.PhaseCompleted, exec.Nodes["step"].Phase)
	})

	t.Run("Should propagate a predecessor's output into the successor's inputs", func(t *testing.T) {
		reg := NewRegistry()
		reg.Register(workflow.NodeTrigger, "", RunnerFunc(
			func(_ context.Context, _ workflow.Node, _ map[string]any, _ RunContext) (RunnerOutput, error) {
				return RunnerOutput{Outputs: map[string]any{"main": "from-trigger"}}, nil
			}))
		reg.Register(workflow.NodeAction, "", passthroughRunner())

		e := NewEngine(reg)
		exec, err := e.Run(t.Context(), linearConfig(), nil)
		require.NoError(t, err)

		stepOut := exec.Nodes["step"].Outputs
		assert.Equal(t, "from-trigger", stepOut["main"])
		assert.Equal(t, "hi", stepOut["greeting"])
	})

	t.Run("Should mark the execution ERROR when a node fails and continue_on_failure is unset", func(t *testing.T) {
		reg := NewRegistry()
		reg.Register(workflow.NodeTrigger, "", passthroughRunner())
		reg.Register(workflow.NodeAction, "", failingRunner("boom"))

		e := NewEngine(reg)
		exec, err := e.Run(t.Context(), linearConfig(), nil)
		require.NoError(t, err)

		assert.Equal(t, core.ExecError, exec.Status)
		assert.Equal(t, core.PhaseFailed, exec.Nodes["step"].Phase)
		assert.Equal(t, "boom", exec.Nodes["step"].Error.Message)
	})

	t.Run("Should stay COMPLETED when a failing node sets continue_on_failure", func(t *testing.T) {
		cfg := linearConfig()
		cfg.Nodes[1].Configurations = map[string]any{"continue_on_failure": true}

		reg := NewRegistry()
		reg.Register(workflow.NodeTrigger, "", passthroughRunner())
		reg.Register(workflow.NodeAction, "", failingRunner("boom"))

		e := NewEngine(reg)
		exec, err := e.Run(t.Context(), cfg, nil)
		require.NoError(t, err)

		assert.Equal(t, core.ExecCompleted, exec.Status)
	})

	t.Run("Should fail a node with no registered runner", func(t *testing.T) {
		reg := NewRegistry()
		reg.Register(workflow.NodeTrigger, "", passthroughRunner())

		e := NewEngine(reg)
		exec, err := e.Run(t.Context(), linearConfig(), nil)
		require.NoError(t, err)

		assert.Equal(t, core.PhaseFailed, exec.Nodes["step"].Phase)
		assert.Equal(t, core.ExecError, exec.Status)
	})

	t.Run("Should record WAITING_HUMAN and not fail the node for a suspending runner", func(t *testing.T) {
		reg := NewRegistry()
		reg.Register(workflow.NodeTrigger, "", passthroughRunner())
		reg.Register(workflow.NodeAction, "", RunnerFunc(
			func(_ context.Context, _ workflow.Node, _ map[string]any, _ RunContext) (RunnerOutput, error) {
				return RunnerOutput{Waiting: true, Token: "resume-123"}, nil
			}))

		e := NewEngine(reg)
		exec, err := e.Run(t.Context(), linearConfig(), nil)
		require.NoError(t, err)

		assert.Equal(t, core.PhaseWaitingHuman, exec.Nodes["step"].Phase)
		assert.Equal(t, "resume-123", exec.Nodes["step"].PendingID)
	})

	t.Run("Should auto-fill action_type for an EXTERNAL_ACTION node by provider family", func(t *testing.T) {
		var seen workflow.Node
		cfg := &workflow.Config{
			ID: "wf-ext",
			Nodes: []workflow.Node{
				{ID: "trigger", Type: workflow.NodeTrigger},
				{ID: "notify", Type: workflow.NodeExternalAction, Subtype: "SLACK"},
			},
			Connections: []workflow.Connection{
				{FromNode: "trigger", FromPort: "main", ToNode: "notify", ToPort: "main"},
			},
		}
		reg := NewRegistry()
		reg.Register(workflow.NodeTrigger, "", passthroughRunner())
		reg.Register(workflow.NodeExternalAction, "SLACK", RunnerFunc(
			func(_ context.Context, node workflow.Node, _ map[string]any, _ RunContext) (RunnerOutput, error) {
				seen = node
				return RunnerOutput{Outputs: WrapMain("sent")}, nil
			}))

		e := NewEngine(reg)
		_, err := e.Run(t.Context(), cfg, nil)
		require.NoError(t, err)
		assert.Equal(t, "send_message", seen.Configurations["action_type"])
	})

	t.Run("Should record workflow and node entries on the configured log stream", func(t *testing.T) {
		reg := NewRegistry()
		reg.Register(workflow.NodeTrigger, "", passthroughRunner())
		reg.Register(workflow.NodeAction, "", passthroughRunner())

		e := NewEngine(reg)
		stream := logstream.New(100, nil, nil)
		e.Logs = stream

		exec, err := e.Run(t.Context(), linearConfig(), nil)
		require.NoError(t, err)

		entries := stream.Query(logstream.Filter{ExecutionID: exec.ID})
		require.NotEmpty(t, entries)
		assert.Contains(t, entries[0].Message, "🚀 Started workflow 'linear'")
		assert.Contains(t, entries[len(entries)-1].Message, "✅ Finished workflow")
	})

	t.Run("Should record a failure summary on the log stream when a node fails", func(t *testing.T) {
		reg := NewRegistry()
		reg.Register(workflow.NodeTrigger, "", passthroughRunner())
		reg.Register(workflow.NodeAction, "", failingRunner("boom"))

		e := NewEngine(reg)
		stream := logstream.New(100, nil, nil)
		e.Logs = stream

		exec, err := e.Run(t.Context(), linearConfig(), nil)
		require.NoError(t, err)
		assert.Equal(t, core.ExecError, exec.Status)

		entries := stream.Query(logstream.Filter{ExecutionID: exec.ID, Level: "error"})
		require.Len(t, entries, 1)
		assert.Contains(t, entries[0].Message, "❌ Failed")
	})
}
