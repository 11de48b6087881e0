package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitflow/orbitflow/engine/workflow"
)

func diamondConfig() *workflow.Config {
	return &workflow.Config{
		ID:   "wf-diamond",
		Name: "diamond",
		Nodes: []workflow.Node{
			{ID: "trigger", Type: workflow.NodeTrigger},
			{ID: "left", Type: workflow.NodeAction},
			{ID: "right", Type: workflow.NodeAction},
			{ID: "join", Type: workflow.NodeAction},
		},
		Connections: []workflow.Connection{
			{FromNode: "trigger", FromPort: "main", ToNode: "left", ToPort: "main"},
			{FromNode: "trigger", FromPort: "main", ToNode: "right", ToPort: "main"},
			{FromNode: "left", FromPort: "main", ToNode: "join", ToPort: "main"},
			{FromNode: "right", FromPort: "main", ToNode: "join", ToPort: "main"},
		},
	}
}

func TestBuild_TopoOrder(t *testing.T) {
	t.Run("Should order a diamond graph with trigger first and join last", func(t *testing.T) {
		g, err := Build(diamondConfig())
		require.NoError(t, err)

		order := g.Order()
		require.Len(t, order, 4)
		assert.Equal(t, "trigger", order[0])
		assert.Equal(t, "join", order[3])
	})

	t.Run("Should exclude MEMORY nodes from the scheduled graph", func(t *testing.T) {
		cfg := diamondConfig()
		cfg.Nodes = append(cfg.Nodes, workflow.Node{ID: "mem-1", Type: workflow.NodeMemory})
		g, err := Build(cfg)
		require.NoError(t, err)

		_, ok := g.Node("mem-1")
		assert.False(t, ok)
		assert.NotContains(t, g.Order(), "mem-1")
	})

	t.Run("Should fail on a cycle", func(t *testing.T) {
		cfg := &workflow.Config{
			ID: "wf-cycle",
			Nodes: []workflow.Node{
				{ID: "a", Type: workflow.NodeTrigger},
				{ID: "b", Type: workflow.NodeAction},
			},
			Connections: []workflow.Connection{
				{FromNode: "a", FromPort: "main", ToNode: "b", ToPort: "main"},
				{FromNode: "b", FromPort: "main", ToNode: "a", ToPort: "main"},
			},
		}
		_, err := Build(cfg)
		assert.Error(t, err)
	})
}

func TestGraph_PredecessorsAndSuccessors(t *testing.T) {
	g, err := Build(diamondConfig())
	require.NoError(t, err)

	t.Run("Should report join's two predecessors", func(t *testing.T) {
		preds := g.Predecessors("join")
		require.Len(t, preds, 2)
		froms := []string{preds[0].FromNode, preds[1].FromNode}
		assert.ElementsMatch(t, []string{"left", "right"}, froms)
	})

	t.Run("Should report trigger's two successors", func(t *testing.T) {
		succs := g.Successors("trigger")
		require.Len(t, succs, 2)
		tos := []string{succs[0].ToNode, succs[1].ToNode}
		assert.ElementsMatch(t, []string{"left", "right"}, tos)
	})

	t.Run("Should return every connection between scheduled nodes", func(t *testing.T) {
		assert.Len(t, g.Connections(), 4)
	})
}
