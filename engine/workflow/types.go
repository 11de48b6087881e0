// Package workflow holds the Workflow/Node/Connection document model deployed
// workflows are built from, and the validation that guards §3's invariants.
package workflow

import (
	"fmt"

	"github.com/orbitflow/orbitflow/engine/core"
)

// NodeType is the coarse type of a graph node.
type NodeType string

const (
	NodeTrigger         NodeType = "TRIGGER"
	NodeAIAgent         NodeType = "AI_AGENT"
	NodeAction          NodeType = "ACTION"
	NodeExternalAction  NodeType = "EXTERNAL_ACTION"
	NodeFlow            NodeType = "FLOW"
	NodeHumanInTheLoop  NodeType = "HUMAN_IN_THE_LOOP"
	NodeTool            NodeType = "TOOL"
	NodeMemory          NodeType = "MEMORY"
)

func (t NodeType) Valid() bool {
	switch t {
	case NodeTrigger, NodeAIAgent, NodeAction, NodeExternalAction,
		NodeFlow, NodeHumanInTheLoop, NodeTool, NodeMemory:
		return true
	default:
		return false
	}
}

// Node is a single vertex of a workflow graph (§3).
type Node struct {
	ID             string         `json:"id"                        yaml:"id"`
	Name           string         `json:"name"                      yaml:"name"`
	Type           NodeType       `json:"type"                      yaml:"type"`
	Subtype        string         `json:"subtype,omitempty"         yaml:"subtype,omitempty"`
	Configurations map[string]any `json:"configurations,omitempty"  yaml:"configurations,omitempty"`
	InputParams    map[string]any `json:"input_params,omitempty"    yaml:"input_params,omitempty"`
	OutputParams   map[string]any `json:"output_params,omitempty"   yaml:"output_params,omitempty"`
	InputPorts     []string       `json:"input_ports,omitempty"     yaml:"input_ports,omitempty"`
	OutputPorts    []string       `json:"output_ports,omitempty"    yaml:"output_ports,omitempty"`
	AttachedNodes  []string       `json:"attached_nodes,omitempty"  yaml:"attached_nodes,omitempty"`
}

// Connection is a directed edge between two node ports (§3), optionally
// carrying a legacy opaque transform string parsed at deploy time (§4.6.5).
type Connection struct {
	FromNode           string `json:"from_node"                     yaml:"from_node"`
	FromPort           string `json:"from_port"                     yaml:"from_port"`
	ToNode             string `json:"to_node"                       yaml:"to_node"`
	ToPort             string `json:"to_port"                       yaml:"to_port"`
	ConversionFunction string `json:"conversion_function,omitempty" yaml:"conversion_function,omitempty"`
}

// Settings holds workflow-level execution settings (§5).
type Settings struct {
	ContinueOnFailure bool `json:"continue_on_failure,omitempty" yaml:"continue_on_failure,omitempty"`
	// TimeoutSeconds bounds the whole run; default 3600, valid range [60, 86400].
	TimeoutSeconds int `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

const (
	DefaultTimeoutSeconds = 3600
	MinTimeoutSeconds     = 60
	MaxTimeoutSeconds     = 86400
)

// EffectiveTimeout returns the workflow timeout with defaults and bounds applied.
func (s Settings) EffectiveTimeout() int {
	t := s.TimeoutSeconds
	if t == 0 {
		t = DefaultTimeoutSeconds
	}
	if t < MinTimeoutSeconds {
		t = MinTimeoutSeconds
	}
	if t > MaxTimeoutSeconds {
		t = MaxTimeoutSeconds
	}
	return t
}

// Metadata is free-form descriptive data attached to a Workflow (§3).
type Metadata struct {
	CreatedBy string   `json:"created_by,omitempty" yaml:"created_by,omitempty"`
	Tags      []string `json:"tags,omitempty"       yaml:"tags,omitempty"`
	Icon      string   `json:"icon,omitempty"       yaml:"icon,omitempty"`
}

// Config is an immutable-after-deploy Workflow document (§3).
type Config struct {
	ID          string       `json:"id"                    yaml:"id"`
	Version     string       `json:"version,omitempty"     yaml:"version,omitempty"`
	Name        string       `json:"name"                  yaml:"name"`
	Nodes       []Node       `json:"nodes"                 yaml:"nodes"`
	Connections []Connection `json:"connections,omitempty" yaml:"connections,omitempty"`
	Settings    Settings     `json:"settings,omitempty"    yaml:"settings,omitempty"`
	Metadata    Metadata     `json:"metadata,omitempty"    yaml:"metadata,omitempty"`
}

func (c *Config) Component() core.ComponentType { return core.ComponentWorkflow }

// TriggerNodes returns every node of type TRIGGER, in declaration order.
func (c *Config) TriggerNodes() []Node {
	var out []Node
	for _, n := range c.Nodes {
		if n.Type == NodeTrigger {
			out = append(out, n)
		}
	}
	return out
}

// NodeByID returns the node with the given id, or false if absent.
func (c *Config) NodeByID(id string) (Node, bool) {
	for _, n := range c.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// Validate checks the structural invariants of §3: a non-empty node list,
// at least one TRIGGER node, unique node ids, and connections that only
// reference existing node ids/ports, never targeting a MEMORY node.
func (c *Config) Validate() error {
	if len(c.Nodes) == 0 {
		return fmt.Errorf("workflow validation error: nodes must be a non-empty list")
	}
	seen := make(map[string]struct{}, len(c.Nodes))
	hasTrigger := false
	for i := range c.Nodes {
		n := &c.Nodes[i]
		if n.ID == "" {
			return fmt.Errorf("workflow validation error: node at index %d has empty id", i)
		}
		if _, dup := seen[n.ID]; dup {
			return fmt.Errorf("workflow validation error: duplicate node id %q", n.ID)
		}
		seen[n.ID] = struct{}{}
		if !n.Type.Valid() {
			return fmt.Errorf("workflow validation error: node %q has invalid type %q", n.ID, n.Type)
		}
		if n.Type == NodeTrigger {
			hasTrigger = true
		}
	}
	if !hasTrigger {
		return fmt.Errorf("workflow validation error: at least one node must have type TRIGGER")
	}
	for i := range c.Connections {
		conn := &c.Connections[i]
		if _, ok := seen[conn.FromNode]; !ok {
			return fmt.Errorf("workflow validation error: connection references unknown from_node %q", conn.FromNode)
		}
		to, ok := c.NodeByID(conn.ToNode)
		if !ok {
			return fmt.Errorf("workflow validation error: connection references unknown to_node %q", conn.ToNode)
		}
		if to.Type == NodeMemory {
			return fmt.Errorf("workflow validation error: connection may not target MEMORY node %q", conn.ToNode)
		}
	}
	return nil
}
