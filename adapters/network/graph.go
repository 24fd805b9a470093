// Package network provides the adjacency-list graph behind network.View,
// the standard staff-network builders (complete, neighboring, crossing) and
// edge-list file IO.
package network

import (
	"fmt"
	"sort"

	"outbreaksim/domain/core"
	domain "outbreaksim/domain/network"
)

// Graph is a simple undirected graph over integer labels. Vertex and
// neighbor lists are kept sorted on every mutation, so reads never write and
// a Graph may be read from several goroutines once built.
type Graph struct {
	name     string
	vertices []int
	adj      map[int][]int
	edges    int
}

var _ domain.View = (*Graph)(nil)

// NewGraph creates an empty named graph.
func NewGraph(name string) *Graph {
	return &Graph{
		name: name,
		adj:  make(map[int][]int),
	}
}

func (g *Graph) Name() string { return g.name }

// SetName renames the graph.
func (g *Graph) SetName(name string) { g.name = name }

// Vertices returns the vertex labels in ascending order. The slice is a copy.
func (g *Graph) Vertices() []int {
	out := make([]int, len(g.vertices))
	copy(out, g.vertices)
	return out
}

// Neighbors returns the neighbors of v in ascending order, nil if v is unknown.
func (g *Graph) Neighbors(v int) []int {
	ns, ok := g.adj[v]
	if !ok {
		return nil
	}
	out := make([]int, len(ns))
	copy(out, ns)
	return out
}

func (g *Graph) HasVertex(v int) bool {
	_, ok := g.adj[v]
	return ok
}

// HasEdge reports whether u and v are adjacent.
func (g *Graph) HasEdge(u, v int) bool {
	return containsSorted(g.adj[u], v)
}

// Order is the number of vertices.
func (g *Graph) Order() int { return len(g.vertices) }

// Size is the number of edges.
func (g *Graph) Size() int { return g.edges }

// AddVertex inserts v. Adding an existing vertex is a no-op.
func (g *Graph) AddVertex(v int) error {
	if _, ok := g.adj[v]; ok {
		return nil
	}
	g.adj[v] = nil
	g.vertices = insertSorted(g.vertices, v)
	return nil
}

// AddEdge connects u and v, adding missing endpoints. Self-loops are
// rejected; adding an existing edge is a no-op.
func (g *Graph) AddEdge(u, v int) error {
	if u == v {
		return core.NewValidationError("edge", fmt.Sprintf("self-loop on vertex %d", u))
	}
	_ = g.AddVertex(u)
	_ = g.AddVertex(v)
	if containsSorted(g.adj[u], v) {
		return nil
	}
	g.adj[u] = insertSorted(g.adj[u], v)
	g.adj[v] = insertSorted(g.adj[v], u)
	g.edges++
	return nil
}

// AddEdges connects source to every target.
func (g *Graph) AddEdges(source int, targets []int) error {
	for _, t := range targets {
		if err := g.AddEdge(source, t); err != nil {
			return err
		}
	}
	return nil
}

// RemoveVertices deletes the given vertices and their incident edges.
func (g *Graph) RemoveVertices(vs ...int) {
	for _, v := range vs {
		ns, ok := g.adj[v]
		if !ok {
			continue
		}
		for _, n := range ns {
			g.adj[n] = removeSorted(g.adj[n], v)
			g.edges--
		}
		delete(g.adj, v)
		g.vertices = removeSorted(g.vertices, v)
	}
}

// Clone returns a deep copy.
func (g *Graph) Clone() domain.View {
	return g.clone()
}

func (g *Graph) clone() *Graph {
	c := &Graph{
		name:     g.name,
		vertices: append([]int(nil), g.vertices...),
		adj:      make(map[int][]int, len(g.adj)),
		edges:    g.edges,
	}
	for v, ns := range g.adj {
		c.adj[v] = append([]int(nil), ns...)
	}
	return c
}

// Edges returns every edge once as (u, v) with u < v, in ascending order.
func (g *Graph) Edges() [][2]int {
	out := make([][2]int, 0, g.edges)
	for _, u := range g.vertices {
		for _, v := range g.adj[u] {
			if u < v {
				out = append(out, [2]int{u, v})
			}
		}
	}
	return out
}

// RemapLabels returns a copy whose vertices are relabelled start, start+1,
// ... in ascending order of the current labels.
func (g *Graph) RemapLabels(start int) *Graph {
	mapping := make(map[int]int, len(g.vertices))
	for i, v := range g.vertices {
		mapping[v] = start + i
	}
	out := NewGraph(g.name)
	for _, v := range g.vertices {
		_ = out.AddVertex(mapping[v])
	}
	for _, e := range g.Edges() {
		_ = out.AddEdge(mapping[e[0]], mapping[e[1]])
	}
	return out
}

func (g *Graph) String() string {
	return fmt.Sprintf("%s: %d vertices, %d edges", g.name, len(g.vertices), g.edges)
}

func containsSorted(xs []int, x int) bool {
	i := sort.SearchInts(xs, x)
	return i < len(xs) && xs[i] == x
}

func insertSorted(xs []int, x int) []int {
	i := sort.SearchInts(xs, x)
	xs = append(xs, 0)
	copy(xs[i+1:], xs[i:])
	xs[i] = x
	return xs
}

func removeSorted(xs []int, x int) []int {
	i := sort.SearchInts(xs, x)
	if i < len(xs) && xs[i] == x {
		return append(xs[:i], xs[i+1:]...)
	}
	return xs
}
