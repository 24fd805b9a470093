// Package network defines the contact-network capability consumed by the
// simulation and detection engines. Concrete graphs live in adapters/network.
package network

// SourceVertex is the synthetic vertex that models community infection
// pressure. Real vertex labels must be >= MinVertexLabel.
const (
	SourceVertex   = 1
	MinVertexLabel = 2
)

// View is an undirected, unweighted contact network without self-loops or
// multi-edges.
type View interface {
	// Name identifies the network; simulation parameters carry it for matching.
	Name() string

	// Vertices returns all vertex labels in ascending order.
	Vertices() []int

	// Neighbors returns the neighbors of v in ascending order.
	Neighbors(v int) []int

	// HasVertex reports whether v is a vertex of the network.
	HasVertex(v int) bool

	// Order and Size count vertices and edges.
	Order() int
	Size() int

	AddVertex(v int) error
	AddEdge(u, v int) error

	// Clone returns an independent copy that can be mutated freely.
	Clone() View
}

// MinLabel returns the smallest vertex label of g, or 0 when g is empty.
func MinLabel(g View) int {
	vs := g.Vertices()
	if len(vs) == 0 {
		return 0
	}
	return vs[0]
}
