// Package graph provides a small directed-graph abstraction used for
// problem dependency tracking: adjacency sets with reachability checks.
package graph

import "sort"

// Directed is a directed graph over string node ids. The zero value is
// not usable; call New. Not safe for concurrent use — callers serialize
// access per workspace.
type Directed struct {
	out map[string]map[string]struct{}
}

// New creates an empty directed graph.
func New() *Directed {
	return &Directed{out: make(map[string]map[string]struct{})}
}

// AddEdge inserts the edge from→to. Returns false if it already exists.
func (g *Directed) AddEdge(from, to string) bool {
	set, ok := g.out[from]
	if !ok {
		set = make(map[string]struct{})
		g.out[from] = set
	}
	if _, exists := set[to]; exists {
		return false
	}
	set[to] = struct{}{}
	return true
}

// RemoveEdge deletes the edge from→to. Returns false if it was absent.
func (g *Directed) RemoveEdge(from, to string) bool {
	set, ok := g.out[from]
	if !ok {
		return false
	}
	if _, exists := set[to]; !exists {
		return false
	}
	delete(set, to)
	if len(set) == 0 {
		delete(g.out, from)
	}
	return true
}

// HasEdge reports whether the edge from→to exists.
func (g *Directed) HasEdge(from, to string) bool {
	_, ok := g.out[from][to]
	return ok
}

// From returns the sorted successors of a node.
func (g *Directed) From(node string) []string {
	set := g.out[node]
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Reachable reports whether to can be reached from from by following
// edges, including the trivial case from == to. Iterative DFS so deep
// graphs cannot blow the stack.
func (g *Directed) Reachable(from, to string) bool {
	if from == to {
		return true
	}
	seen := map[string]struct{}{from: {}}
	stack := []string{from}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for next := range g.out[node] {
			if next == to {
				return true
			}
			if _, ok := seen[next]; ok {
				continue
			}
			seen[next] = struct{}{}
			stack = append(stack, next)
		}
	}
	return false
}

// WouldCycle reports whether adding from→to would create a cycle: true
// when from is already reachable from to along existing edges.
func (g *Directed) WouldCycle(from, to string) bool {
	return g.Reachable(to, from)
}
