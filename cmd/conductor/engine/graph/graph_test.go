package graph

import (
	"errors"
	"testing"

	"github.com/tidewave/conductor/common/models"
)

func wfWith(nodes []*models.Node, conns []*models.Connection) *models.Workflow {
	return &models.Workflow{ID: "wf-1", Nodes: nodes, Connections: conns}
}

func node(id string, t models.NodeType) *models.Node {
	return &models.Node{ID: id, Type: t}
}

func conn(from, to string) *models.Connection {
	return &models.Connection{FromNode: from, FromPort: "main", ToNode: to, ToPort: "main"}
}

func TestBuild_TopologicalOrder(t *testing.T) {
	g, err := Build(wfWith(
		[]*models.Node{
			node("c", models.NodeTypeAction),
			node("a", models.NodeTypeTrigger),
			node("b", models.NodeTypeAIAgent),
		},
		[]*models.Connection{conn("a", "b"), conn("b", "c")},
	))
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	position := make(map[string]int)
	for i, id := range g.Order() {
		position[id] = i
	}
	if position["a"] > position["b"] || position["b"] > position["c"] {
		t.Errorf("order %v violates edges", g.Order())
	}
}

func TestBuild_CycleFails(t *testing.T) {
	_, err := Build(wfWith(
		[]*models.Node{node("a", models.NodeTypeTrigger), node("b", models.NodeTypeAIAgent)},
		[]*models.Connection{conn("a", "b"), conn("b", "a")},
	))
	if err == nil {
		t.Fatal("cycle should fail the build")
	}

	var engErr *models.EngineError
	if !errors.As(err, &engErr) {
		t.Errorf("expected EngineError, got %T", err)
	}
}

func TestBuild_MemoryNodesFiltered(t *testing.T) {
	g, err := Build(wfWith(
		[]*models.Node{
			node("t", models.NodeTypeTrigger),
			node("agent", models.NodeTypeAIAgent),
			node("mem", models.NodeTypeMemory),
		},
		[]*models.Connection{
			conn("t", "agent"),
			conn("agent", "mem"),
			conn("mem", "agent"),
		},
	))
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	if g.Size() != 2 {
		t.Errorf("memory node should be filtered, size = %d", g.Size())
	}
	if g.Node("mem") != nil {
		t.Errorf("memory node should not be addressable")
	}
	if len(g.Connections()) != 1 {
		t.Errorf("memory connections should be filtered, got %v", g.Connections())
	}
}

func TestLevels_ParallelBranches(t *testing.T) {
	g, err := Build(wfWith(
		[]*models.Node{
			node("t", models.NodeTypeTrigger),
			node("left", models.NodeTypeAIAgent),
			node("right", models.NodeTypeAIAgent),
			node("join", models.NodeTypeAction),
		},
		[]*models.Connection{
			conn("t", "left"),
			conn("t", "right"),
			conn("left", "join"),
			conn("right", "join"),
		},
	))
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	levels := g.Levels()
	if len(levels) != 3 {
		t.Fatalf("expected 3 levels, got %d: %v", len(levels), levels)
	}
	if len(levels[1]) != 2 {
		t.Errorf("branches should share a level, got %v", levels[1])
	}

	preds := g.Predecessors("join")
	if len(preds) != 2 {
		t.Errorf("join should have 2 predecessors, got %v", preds)
	}
	succs := g.Successors("t")
	if len(succs) != 2 {
		t.Errorf("trigger should have 2 successors, got %v", succs)
	}
}
