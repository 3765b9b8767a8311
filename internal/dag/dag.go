// Package dag models the table dependency graph. Nodes are normalized table
// keys; an edge runs from a source table to a table produced from it. Cycles
// are representable on purpose: self-feeding incremental jobs and mutually
// derived tables occur in real corpora, and detection is the point.
package dag

import (
	"fmt"
	"sort"
)

// Graph is a directed graph over table keys.
type Graph struct {
	nodes    map[string]struct{}
	children map[string][]string // source -> tables produced from it
	parents  map[string][]string // table -> sources feeding it
}

// NewGraph creates a new empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:    make(map[string]struct{}),
		children: make(map[string][]string),
		parents:  make(map[string][]string),
	}
}

// AddNode adds a node to the graph. Adding an existing node is a no-op.
func (g *Graph) AddNode(id string) {
	if _, exists := g.nodes[id]; !exists {
		g.nodes[id] = struct{}{}
		g.children[id] = []string{}
		g.parents[id] = []string{}
	}
}

// AddEdge adds a directed edge from a source table to the table produced
// from it. Unknown endpoints are registered on the fly, duplicate edges are
// ignored and self-edges are legal.
func (g *Graph) AddEdge(sourceID, producedID string) {
	g.AddNode(sourceID)
	g.AddNode(producedID)

	if !contains(g.children[sourceID], producedID) {
		g.children[sourceID] = append(g.children[sourceID], producedID)
	}
	if !contains(g.parents[producedID], sourceID) {
		g.parents[producedID] = append(g.parents[producedID], sourceID)
	}
}

// HasNode reports whether the table is in the graph.
func (g *Graph) HasNode(id string) bool {
	_, exists := g.nodes[id]
	return exists
}

// GetParents returns the source tables feeding a table.
func (g *Graph) GetParents(id string) []string {
	return g.parents[id]
}

// GetChildren returns the tables produced from a table.
func (g *Graph) GetChildren(id string) []string {
	return g.children[id]
}

// Nodes returns all table keys, sorted for deterministic output.
func (g *Graph) Nodes() []string {
	nodes := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		nodes = append(nodes, id)
	}
	sort.Strings(nodes)
	return nodes
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int {
	count := 0
	for _, produced := range g.children {
		count += len(produced)
	}
	return count
}

// HasCycle returns true if the graph contains a directed cycle, along with
// one witness path. The search starts from the lexically smallest nodes so
// the reported path is stable across runs.
func (g *Graph) HasCycle() (bool, []string) {
	visited := make(map[string]bool)
	recStack := make(map[string]bool)
	path := make(map[string]string)

	var cyclePath []string

	var dfs func(id string) bool
	dfs = func(id string) bool {
		visited[id] = true
		recStack[id] = true

		for _, childID := range g.children[id] {
			if !visited[childID] {
				path[childID] = id
				if dfs(childID) {
					return true
				}
			} else if recStack[childID] {
				// found a cycle, reconstruct the path back to childID
				cyclePath = []string{childID}
				for curr := id; curr != childID; curr = path[curr] {
					cyclePath = append([]string{curr}, cyclePath...)
				}
				cyclePath = append([]string{childID}, cyclePath...)
				return true
			}
		}

		recStack[id] = false
		return false
	}

	for _, id := range g.Nodes() {
		if !visited[id] {
			if dfs(id) {
				return true, cyclePath
			}
		}
	}

	return false, nil
}

// Levels groups tables by derivation depth: level 0 holds tables fed by
// nothing, each following level holds tables whose deepest source sits one
// level below. Returns an error if the graph contains a cycle.
func (g *Graph) Levels() ([][]string, error) {
	if hasCycle, cyclePath := g.HasCycle(); hasCycle {
		return nil, fmt.Errorf("cycle detected: %v", cyclePath)
	}
	if len(g.nodes) == 0 {
		return nil, nil
	}

	assigned := make(map[string]int)

	var getLevel func(id string) int
	getLevel = func(id string) int {
		if level, ok := assigned[id]; ok {
			return level
		}

		parents := g.parents[id]
		if len(parents) == 0 {
			assigned[id] = 0
			return 0
		}

		maxParentLevel := 0
		for _, parentID := range parents {
			parentLevel := getLevel(parentID)
			if parentLevel > maxParentLevel {
				maxParentLevel = parentLevel
			}
		}

		level := maxParentLevel + 1
		assigned[id] = level
		return level
	}

	maxLevel := 0
	for id := range g.nodes {
		level := getLevel(id)
		if level > maxLevel {
			maxLevel = level
		}
	}

	levels := make([][]string, maxLevel+1)
	for id, level := range assigned {
		levels[level] = append(levels[level], id)
	}
	for i := range levels {
		sort.Strings(levels[i])
	}

	return levels, nil
}

// GetRoots returns tables nothing feeds into, sorted.
func (g *Graph) GetRoots() []string {
	var roots []string
	for id := range g.nodes {
		if len(g.parents[id]) == 0 {
			roots = append(roots, id)
		}
	}
	sort.Strings(roots)
	return roots
}

// GetLeaves returns tables nothing is produced from, sorted.
func (g *Graph) GetLeaves() []string {
	var leaves []string
	for id := range g.nodes {
		if len(g.children[id]) == 0 {
			leaves = append(leaves, id)
		}
	}
	sort.Strings(leaves)
	return leaves
}

// contains checks if a slice contains a string.
func contains(slice []string, str string) bool {
	for _, s := range slice {
		if s == str {
			return true
		}
	}
	return false
}
