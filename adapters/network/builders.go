package network

import (
	"fmt"

	"outbreaksim/domain/core"
)

// Kind names a network family understood by Build.
type Kind string

const (
	KindComplete    Kind = "complete"
	KindNeighboring Kind = "neighboring"
	KindCrossing    Kind = "crossing"
	KindFile        Kind = "file"
)

// Spec describes a network to build. Degree is ignored for complete graphs;
// Path and Separator are only used for file networks.
type Spec struct {
	Kind       Kind   `yaml:"kind" validate:"required,oneof=complete neighboring crossing file"`
	Name       string `yaml:"name"`
	Size       int    `yaml:"size" validate:"gte=0"`
	Degree     int    `yaml:"degree" validate:"omitempty,gte=2"`
	StartLabel int    `yaml:"start_label" validate:"omitempty,gte=2"`
	Path       string `yaml:"path" validate:"required_if=Kind file"`
	Separator  string `yaml:"separator"`
}

// Build constructs the network described by spec. Labels start at
// spec.StartLabel (default 2, leaving 1 for the infection source). File
// networks are remapped to start at that label when their own labels are
// below it.
func Build(spec Spec) (*Graph, error) {
	start := spec.StartLabel
	if start == 0 {
		start = 2
	}

	var (
		g   *Graph
		err error
	)
	switch spec.Kind {
	case KindComplete:
		g, err = Complete(spec.Size, start)
	case KindNeighboring:
		g, err = Neighboring(spec.Size, spec.Degree, start)
	case KindCrossing:
		g, err = Crossing(spec.Size, spec.Degree, start)
	case KindFile:
		g, err = LoadFile(spec.Path, spec.Name, spec.Separator)
		if err == nil && g.Order() > 0 && g.vertices[0] < start {
			g = g.RemapLabels(start)
		}
	default:
		return nil, core.NewValidationError("kind", fmt.Sprintf("unknown network kind %q", spec.Kind))
	}
	if err != nil {
		return nil, err
	}
	if spec.Name != "" {
		g.SetName(spec.Name)
	}
	return g, nil
}

// Complete builds K_size with labels start..start+size-1, named
// "completegraph_staff<size>".
func Complete(size, start int) (*Graph, error) {
	if size < 1 {
		return nil, core.NewValidationError("size", fmt.Sprintf("must be positive, got %d", size))
	}
	if start < 0 {
		return nil, core.NewValidationError("start", fmt.Sprintf("must be non-negative, got %d", start))
	}
	g := NewGraph(fmt.Sprintf("completegraph_staff%d", size))
	for i := 0; i < size; i++ {
		_ = g.AddVertex(start + i)
	}
	for i := 0; i < size; i++ {
		for j := i + 1; j < size; j++ {
			_ = g.AddEdge(start+i, start+j)
		}
	}
	return g, nil
}

// Circulant builds the circulant graph C_size(offsets): vertex i is adjacent
// to i+j and i-j (mod size) for every offset j. Offsets must lie in
// [1, size/2].
func Circulant(name string, size int, offsets []int, start int) (*Graph, error) {
	if size < 1 {
		return nil, core.NewValidationError("size", fmt.Sprintf("must be positive, got %d", size))
	}
	if start < 0 {
		return nil, core.NewValidationError("start", fmt.Sprintf("must be non-negative, got %d", start))
	}
	for _, j := range offsets {
		if j < 1 || j > size/2 {
			return nil, core.NewValidationError("offsets", fmt.Sprintf("offset %d outside [1, %d]", j, size/2))
		}
	}

	g := NewGraph(name)
	for i := 0; i < size; i++ {
		_ = g.AddVertex(start + i)
	}
	for i := 0; i < size; i++ {
		for _, j := range offsets {
			_ = g.AddEdge(start+i, start+(i+j)%size)
		}
	}
	return g, nil
}

// Neighboring connects every staff member to the degree/2 colleagues on
// either side of a ring: offsets 1..degree/2.
func Neighboring(size, degree, start int) (*Graph, error) {
	m, err := halfDegree(size, degree)
	if err != nil {
		return nil, err
	}
	offsets := make([]int, m)
	for i := range offsets {
		offsets[i] = i + 1
	}
	return Circulant(fmt.Sprintf("neighboringgraph_staff%d_degree%d", size, degree), size, offsets, start)
}

// Crossing connects every staff member to the degree/2 colleagues furthest
// away on the ring: offsets floor(size/2-1) down to floor(size/2-1)-m+1.
func Crossing(size, degree, start int) (*Graph, error) {
	m, err := halfDegree(size, degree)
	if err != nil {
		return nil, err
	}
	far := size/2 - 1
	if far-m+1 < 1 {
		return nil, core.NewValidationError("degree", fmt.Sprintf("degree %d too large for a crossing graph on %d vertices", degree, size))
	}
	offsets := make([]int, m)
	for i := range offsets {
		offsets[i] = far - i
	}
	return Circulant(fmt.Sprintf("crossinggraph_staff%d_degree%d", size, degree), size, offsets, start)
}

func halfDegree(size, degree int) (int, error) {
	if degree < 2 || degree%2 != 0 {
		return 0, core.NewValidationError("degree", fmt.Sprintf("must be an even number >= 2, got %d", degree))
	}
	if degree >= size {
		return 0, core.NewValidationError("degree", fmt.Sprintf("degree %d must be below size %d", degree, size))
	}
	return degree / 2, nil
}
