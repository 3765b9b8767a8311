package dag

import (
	"reflect"
	"testing"
)

func TestGraph_AddNodeAndEdge(t *testing.T) {
	g := NewGraph()

	g.AddNode("raw.events")
	g.AddNode("staging.events")
	g.AddNode("mart.daily")

	if g.NodeCount() != 3 {
		t.Errorf("expected 3 nodes, got %d", g.NodeCount())
	}

	g.AddEdge("raw.events", "staging.events")
	g.AddEdge("staging.events", "mart.daily")

	if g.EdgeCount() != 2 {
		t.Errorf("expected 2 edges, got %d", g.EdgeCount())
	}
}

func TestGraph_AddEdge_RegistersNodes(t *testing.T) {
	g := NewGraph()

	g.AddEdge("raw.a", "db.v")

	if !g.HasNode("raw.a") || !g.HasNode("db.v") {
		t.Error("expected edge endpoints to be registered")
	}
	if g.NodeCount() != 2 {
		t.Errorf("expected 2 nodes, got %d", g.NodeCount())
	}
}

func TestGraph_AddEdge_SelfEdge(t *testing.T) {
	// incremental jobs read the table they write; the edge is legal and
	// shows up as a cycle
	g := NewGraph()
	g.AddEdge("db.rolling", "db.rolling")

	if g.EdgeCount() != 1 {
		t.Errorf("expected 1 edge, got %d", g.EdgeCount())
	}
	hasCycle, path := g.HasCycle()
	if !hasCycle {
		t.Fatal("expected self-edge to be reported as a cycle")
	}
	if !reflect.DeepEqual(path, []string{"db.rolling", "db.rolling"}) {
		t.Errorf("unexpected cycle path: %v", path)
	}
}

func TestGraph_GetParentsAndChildren(t *testing.T) {
	g := NewGraph()

	// db.v is built from raw.a; mart.m is built from raw.a and db.v
	g.AddEdge("raw.a", "db.v")
	g.AddEdge("raw.a", "mart.m")
	g.AddEdge("db.v", "mart.m")

	parents := g.GetParents("mart.m")
	if len(parents) != 2 {
		t.Errorf("expected mart.m to have 2 parents, got %d", len(parents))
	}

	children := g.GetChildren("raw.a")
	if len(children) != 2 {
		t.Errorf("expected raw.a to have 2 children, got %d", len(children))
	}
}

func TestGraph_HasCycle_NoCycle(t *testing.T) {
	g := NewGraph()
	g.AddEdge("raw.a", "db.v")
	g.AddEdge("db.v", "mart.m")

	hasCycle, path := g.HasCycle()
	if hasCycle {
		t.Errorf("expected no cycle, but found: %v", path)
	}
}

func TestGraph_HasCycle_Diamond(t *testing.T) {
	// convergence is not a cycle
	g := NewGraph()
	g.AddEdge("raw.a", "db.left")
	g.AddEdge("raw.a", "db.right")
	g.AddEdge("db.left", "mart.m")
	g.AddEdge("db.right", "mart.m")

	if hasCycle, path := g.HasCycle(); hasCycle {
		t.Errorf("diamond flagged as cycle: %v", path)
	}
}

func TestGraph_HasCycle_WithCycle(t *testing.T) {
	g := NewGraph()
	g.AddEdge("db.a", "db.b")
	g.AddEdge("db.b", "db.c")
	g.AddEdge("db.c", "db.a")

	hasCycle, path := g.HasCycle()
	if !hasCycle {
		t.Fatal("expected cycle to be detected")
	}
	want := []string{"db.a", "db.b", "db.c", "db.a"}
	if !reflect.DeepEqual(path, want) {
		t.Errorf("expected cycle path %v, got %v", want, path)
	}
}

func TestGraph_Levels(t *testing.T) {
	g := NewGraph()

	// two raw feeds, one staging table each, one mart on top of both
	g.AddEdge("raw.clicks", "staging.clicks")
	g.AddEdge("raw.orders", "staging.orders")
	g.AddEdge("staging.clicks", "mart.summary")
	g.AddEdge("staging.orders", "mart.summary")

	levels, err := g.Levels()
	if err != nil {
		t.Fatalf("Levels failed: %v", err)
	}

	want := [][]string{
		{"raw.clicks", "raw.orders"},
		{"staging.clicks", "staging.orders"},
		{"mart.summary"},
	}
	if !reflect.DeepEqual(levels, want) {
		t.Errorf("unexpected levels:\n got %v\nwant %v", levels, want)
	}
}

func TestGraph_Levels_WithCycle(t *testing.T) {
	g := NewGraph()
	g.AddEdge("db.a", "db.b")
	g.AddEdge("db.b", "db.a")

	if _, err := g.Levels(); err == nil {
		t.Error("expected error for cyclic graph")
	}
}

func TestGraph_Levels_Empty(t *testing.T) {
	levels, err := NewGraph().Levels()
	if err != nil {
		t.Fatalf("Levels failed: %v", err)
	}
	if len(levels) != 0 {
		t.Errorf("expected no levels, got %v", levels)
	}
}

func TestGraph_GetRoots(t *testing.T) {
	g := NewGraph()
	g.AddEdge("raw.a", "mart.m")
	g.AddEdge("raw.b", "mart.m")

	roots := g.GetRoots()
	if !reflect.DeepEqual(roots, []string{"raw.a", "raw.b"}) {
		t.Errorf("unexpected roots: %v", roots)
	}
}

func TestGraph_GetLeaves(t *testing.T) {
	g := NewGraph()
	g.AddEdge("raw.a", "db.v")
	g.AddEdge("raw.a", "db.w")

	leaves := g.GetLeaves()
	if !reflect.DeepEqual(leaves, []string{"db.v", "db.w"}) {
		t.Errorf("unexpected leaves: %v", leaves)
	}
}

func TestGraph_Nodes_Sorted(t *testing.T) {
	g := NewGraph()
	g.AddNode("db.z")
	g.AddNode("db.a")
	g.AddNode("db.m")

	if got := g.Nodes(); !reflect.DeepEqual(got, []string{"db.a", "db.m", "db.z"}) {
		t.Errorf("expected sorted nodes, got %v", got)
	}
}

func TestGraph_DisconnectedComponents(t *testing.T) {
	g := NewGraph()
	g.AddEdge("raw.a", "db.v")
	g.AddEdge("raw.b", "db.w")

	if hasCycle, _ := g.HasCycle(); hasCycle {
		t.Error("expected no cycle across disconnected components")
	}
	levels, err := g.Levels()
	if err != nil {
		t.Fatalf("Levels failed: %v", err)
	}
	if len(levels) != 2 {
		t.Errorf("expected 2 levels, got %d", len(levels))
	}
}

func TestGraph_DuplicateEdges(t *testing.T) {
	g := NewGraph()
	g.AddEdge("raw.a", "db.v")
	g.AddEdge("raw.a", "db.v")

	if g.EdgeCount() != 1 {
		t.Errorf("expected 1 edge (no duplicates), got %d", g.EdgeCount())
	}
}
