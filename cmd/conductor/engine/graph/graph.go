package graph

import (
	"github.com/tidewave/conductor/common/models"
)

// Graph is the immutable execution view over a workflow. MEMORY nodes are
// attached children of their agents, not scheduled work, so they and any
// connection touching them are filtered out before ordering.
type Graph struct {
	nodes       map[string]*models.Node
	order       []string
	levels      [][]string
	connections []*models.Connection
	inbound     map[string][]*models.Connection
	successors  map[string][]string
}

// Build constructs the graph and computes the topological order. A cycle
// fails the build before any node runs.
func Build(wf *models.Workflow) (*Graph, error) {
	g := &Graph{
		nodes:      make(map[string]*models.Node),
		inbound:    make(map[string][]*models.Connection),
		successors: make(map[string][]string),
	}

	for _, node := range wf.Nodes {
		if node.Type == models.NodeTypeMemory {
			continue
		}
		g.nodes[node.ID] = node
	}

	for _, conn := range wf.Connections {
		if _, ok := g.nodes[conn.FromNode]; !ok {
			continue
		}
		if _, ok := g.nodes[conn.ToNode]; !ok {
			continue
		}
		g.connections = append(g.connections, conn)
		g.inbound[conn.ToNode] = append(g.inbound[conn.ToNode], conn)
		g.successors[conn.FromNode] = append(g.successors[conn.FromNode], conn.ToNode)
	}

	if err := g.sort(); err != nil {
		return nil, err
	}
	return g, nil
}

// sort runs Kahn's algorithm, also recording same-depth levels for
// concurrent scheduling
func (g *Graph) sort() error {
	indegree := make(map[string]int, len(g.nodes))
	for id := range g.nodes {
		indegree[id] = 0
	}
	for _, conn := range g.connections {
		indegree[conn.ToNode]++
	}

	var frontier []string
	for id, deg := range indegree {
		if deg == 0 {
			frontier = append(frontier, id)
		}
	}

	for len(frontier) > 0 {
		g.levels = append(g.levels, frontier)
		g.order = append(g.order, frontier...)

		var next []string
		for _, id := range frontier {
			for _, succ := range g.successors[id] {
				indegree[succ]--
				if indegree[succ] == 0 {
					next = append(next, succ)
				}
			}
		}
		frontier = next
	}

	if len(g.order) != len(g.nodes) {
		return &models.EngineError{Message: "workflow graph contains a cycle"}
	}
	return nil
}

// Node returns the node by id, or nil for filtered/unknown ids
func (g *Graph) Node(id string) *models.Node {
	return g.nodes[id]
}

// Order returns node ids in topological order
func (g *Graph) Order() []string {
	return g.order
}

// Levels returns topological levels; nodes in a level share no edges and
// may run concurrently
func (g *Graph) Levels() [][]string {
	return g.levels
}

// Size returns the number of schedulable nodes
func (g *Graph) Size() int {
	return len(g.nodes)
}

// Inbound returns the connections targeting a node
func (g *Graph) Inbound(id string) []*models.Connection {
	return g.inbound[id]
}

// Predecessors returns the distinct source nodes feeding a node
func (g *Graph) Predecessors(id string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, conn := range g.inbound[id] {
		if !seen[conn.FromNode] {
			seen[conn.FromNode] = true
			out = append(out, conn.FromNode)
		}
	}
	return out
}

// Successors returns the distinct nodes fed by a node
func (g *Graph) Successors(id string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, succ := range g.successors[id] {
		if !seen[succ] {
			seen[succ] = true
			out = append(out, succ)
		}
	}
	return out
}

// Connections returns every edge that survived filtering
func (g *Graph) Connections() []*models.Connection {
	return g.connections
}
