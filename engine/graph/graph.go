// Package graph builds the Workflow Graph (C5): the scheduling structure
// the execution engine iterates in topological order, built once per run.
package graph

import (
	"fmt"
	"sort"

	"github.com/orbitflow/orbitflow/engine/workflow"
)

// Graph is the scheduling view of a workflow document: MEMORY nodes
// filtered out (they are attached children, not scheduled vertices),
// adjacency derived from connections, and a precomputed topological order.
type Graph struct {
	nodes       map[string]workflow.Node
	order       []string
	connections []workflow.Connection
	out         map[string][]workflow.Connection // fromNode -> outgoing
	in          map[string][]workflow.Connection // toNode -> incoming
}

// Build constructs a Graph from cfg. It fails if cfg has a connection cycle
// among its non-MEMORY nodes.
func Build(cfg *workflow.Config) (*Graph, error) {
	g := &Graph{
		nodes: make(map[string]workflow.Node),
		out:   make(map[string][]workflow.Connection),
		in:    make(map[string][]workflow.Connection),
	}
	for _, n := range cfg.Nodes {
		if n.Type == workflow.NodeMemory {
			continue
		}
		g.nodes[n.ID] = n
	}
	for _, c := range cfg.Connections {
		if _, ok := g.nodes[c.FromNode]; !ok {
			continue
		}
		if _, ok := g.nodes[c.ToNode]; !ok {
			continue
		}
		g.connections = append(g.connections, c)
		g.out[c.FromNode] = append(g.out[c.FromNode], c)
		g.in[c.ToNode] = append(g.in[c.ToNode], c)
	}

	order, err := g.topoSort()
	if err != nil {
		return nil, err
	}
	g.order = order
	return g, nil
}

// topoSort runs Kahn's algorithm over the node set, breaking ties by node id
// so the resulting order is deterministic across runs of the same graph.
func (g *Graph) topoSort() ([]string, error) {
	inDegree := make(map[string]int, len(g.nodes))
	for id := range g.nodes {
		inDegree[id] = 0
	}
	for _, c := range g.connections {
		inDegree[c.ToNode]++
	}

	var ready []string
	for id, deg := range inDegree {
		if deg == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(g.nodes))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)

		var freed []string
		for _, c := range g.out[id] {
			inDegree[c.ToNode]--
			if inDegree[c.ToNode] == 0 {
				freed = append(freed, c.ToNode)
			}
		}
		sort.Strings(freed)
		ready = append(ready, freed...)
		sort.Strings(ready)
	}

	if len(order) != len(g.nodes) {
		return nil, fmt.Errorf("graph: cycle detected among workflow nodes")
	}
	return order, nil
}

// Order returns the node ids in topological order.
func (g *Graph) Order() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Node returns the node with the given id, excluding MEMORY nodes.
func (g *Graph) Node(id string) (workflow.Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Predecessors returns the incoming connections for a node, in declaration order.
func (g *Graph) Predecessors(nodeID string) []workflow.Connection {
	return g.in[nodeID]
}

// Successors returns the outgoing connections for a node, in declaration order.
func (g *Graph) Successors(nodeID string) []workflow.Connection {
	return g.out[nodeID]
}

// Connections returns every connection in the graph between scheduled nodes.
func (g *Graph) Connections() []workflow.Connection {
	out := make([]workflow.Connection, len(g.connections))
	copy(out, g.connections)
	return out
}
