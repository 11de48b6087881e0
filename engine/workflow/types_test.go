package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		ID:   "wf-1",
		Name: "joke-workflow",
		Nodes: []Node{
			{ID: "trigger", Type: NodeTrigger, Subtype: "CRON"},
			{ID: "ai", Type: NodeAIAgent, Subtype: "OPENAI_CHATGPT"},
			{ID: "mem", Type: NodeMemory, Subtype: "BUFFER"},
		},
		Connections: []Connection{
			{FromNode: "trigger", FromPort: "main", ToNode: "ai", ToPort: "main"},
		},
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Run("Should accept a valid workflow", func(t *testing.T) {
		require.NoError(t, validConfig().Validate())
	})

	t.Run("Should reject an empty node list", func(t *testing.T) {
		c := &Config{ID: "wf-1"}
		assert.ErrorContains(t, c.Validate(), "non-empty list")
	})

	t.Run("Should reject a workflow with no TRIGGER node", func(t *testing.T) {
		c := validConfig()
		c.Nodes = c.Nodes[1:]
		assert.ErrorContains(t, c.Validate(), "TRIGGER")
	})

	t.Run("Should reject duplicate node ids", func(t *testing.T) {
		c := validConfig()
		c.Nodes = append(c.Nodes, Node{ID: "trigger", Type: NodeAction})
		assert.ErrorContains(t, c.Validate(), "duplicate node id")
	})

	t.Run("Should reject an unknown node type", func(t *testing.T) {
		c := validConfig()
		c.Nodes[1].Type = "BOGUS"
		assert.ErrorContains(t, c.Validate(), "invalid type")
	})

	t.Run("Should reject a connection targeting a MEMORY node", func(t *testing.T) {
		c := validConfig()
		c.Connections = append(c.Connections, Connection{FromNode: "ai", FromPort: "main", ToNode: "mem", ToPort: "main"})
		assert.ErrorContains(t, c.Validate(), "MEMORY")
	})

	t.Run("Should reject a connection referencing an unknown node", func(t *testing.T) {
		c := validConfig()
		c.Connections = append(c.Connections, Connection{FromNode: "ai", FromPort: "main", ToNode: "ghost", ToPort: "main"})
		assert.ErrorContains(t, c.Validate(), "unknown to_node")
	})
}

func TestConfig_TriggerNodesAndLookup(t *testing.T) {
	c := validConfig()
	trigs := c.TriggerNodes()
	require.Len(t, trigs, 1)
	assert.Equal(t, "trigger", trigs[0].ID)

	n, ok := c.NodeByID("ai")
	require.True(t, ok)
	assert.Equal(t, NodeAIAgent, n.Type)

	_, ok = c.NodeByID("nope")
	assert.False(t, ok)
}

func TestSettings_EffectiveTimeout(t *testing.T) {
	t.Run("Should default to 3600 seconds when unset", func(t *testing.T) {
		assert.Equal(t, 3600, Settings{}.EffectiveTimeout())
	})
	t.Run("Should clamp to the minimum", func(t *testing.T) {
		assert.Equal(t, 60, Settings{TimeoutSeconds: 5}.EffectiveTimeout())
	})
	t.Run("Should clamp to the maximum", func(t *testing.T) {
		assert.Equal(t, 86400, Settings{TimeoutSeconds: 999999}.EffectiveTimeout())
	})
}
