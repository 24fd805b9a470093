package network

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outbreaksim/domain/core"
	domain "outbreaksim/domain/network"
)

func TestGraphBasics(t *testing.T) {
	g := NewGraph("tiny")
	require.NoError(t, g.AddEdge(5, 3))
	require.NoError(t, g.AddEdge(3, 4))
	require.NoError(t, g.AddEdge(3, 5)) // duplicate, ignored
	require.NoError(t, g.AddVertex(9))

	assert.Equal(t, []int{3, 4, 5, 9}, g.Vertices())
	assert.Equal(t, []int{4, 5}, g.Neighbors(3))
	assert.Equal(t, 2, g.Size())
	assert.True(t, g.HasEdge(5, 3))
	assert.False(t, g.HasEdge(4, 5))
	assert.Nil(t, g.Neighbors(42))
	assert.Equal(t, 3, domain.MinLabel(g))

	err := g.AddEdge(4, 4)
	assert.True(t, errors.Is(err, core.ErrValidation))
}

func TestGraphVerticesAreCopies(t *testing.T) {
	g := NewGraph("copy")
	require.NoError(t, g.AddEdge(2, 3))
	vs := g.Vertices()
	vs[0] = 100
	ns := g.Neighbors(2)
	ns[0] = 100
	assert.Equal(t, []int{2, 3}, g.Vertices())
	assert.Equal(t, []int{3}, g.Neighbors(2))
}

func TestGraphCloneIsIndependent(t *testing.T) {
	g, err := Complete(4, 2)
	require.NoError(t, err)

	c := g.Clone()
	require.NoError(t, c.AddVertex(domain.SourceVertex))
	for _, v := range g.Vertices() {
		require.NoError(t, c.AddEdge(domain.SourceVertex, v))
	}

	assert.False(t, g.HasVertex(domain.SourceVertex))
	assert.Equal(t, []int{3, 4, 5}, g.Neighbors(2))
	assert.Equal(t, []int{1, 3, 4, 5}, c.Neighbors(2))
}

func TestRemoveVertices(t *testing.T) {
	g, err := Complete(4, 2)
	require.NoError(t, err)
	g.RemoveVertices(3, 99)
	assert.Equal(t, []int{2, 4, 5}, g.Vertices())
	assert.Equal(t, 3, g.Size())
	assert.Equal(t, []int{4, 5}, g.Neighbors(2))
}

func TestComplete(t *testing.T) {
	g, err := Complete(20, 2)
	require.NoError(t, err)
	assert.Equal(t, "completegraph_staff20", g.Name())
	assert.Equal(t, 20, g.Order())
	assert.Equal(t, 190, g.Size())
	assert.Equal(t, 2, g.Vertices()[0])
	assert.Equal(t, 21, g.Vertices()[19])
	for _, v := range g.Vertices() {
		assert.Len(t, g.Neighbors(v), 19)
	}
}

func TestNeighboringAndCrossing(t *testing.T) {
	ng, err := Neighboring(100, 20, 2)
	require.NoError(t, err)
	assert.Equal(t, "neighboringgraph_staff100_degree20", ng.Name())
	for _, v := range ng.Vertices() {
		assert.Len(t, ng.Neighbors(v), 20, "vertex %d", v)
	}
	// Vertex 2 (index 0) sees indices 1..10 and 90..99.
	assert.True(t, ng.HasEdge(2, 12))
	assert.True(t, ng.HasEdge(2, 92))
	assert.False(t, ng.HasEdge(2, 13))

	cg, err := Crossing(100, 20, 2)
	require.NoError(t, err)
	assert.Equal(t, "crossinggraph_staff100_degree20", cg.Name())
	for _, v := range cg.Vertices() {
		assert.Len(t, cg.Neighbors(v), 20, "vertex %d", v)
	}
	// Offsets 49 down to 40: index 0 is adjacent to index 49 and 40, not 39.
	assert.True(t, cg.HasEdge(2, 51))
	assert.True(t, cg.HasEdge(2, 42))
	assert.False(t, cg.HasEdge(2, 41))
}

func TestBuilderValidation(t *testing.T) {
	_, err := Complete(0, 2)
	assert.True(t, errors.Is(err, core.ErrValidation))
	_, err = Neighboring(10, 3, 2)
	assert.True(t, errors.Is(err, core.ErrValidation))
	_, err = Neighboring(10, 10, 2)
	assert.True(t, errors.Is(err, core.ErrValidation))
	_, err = Crossing(7, 6, 2)
	assert.True(t, errors.Is(err, core.ErrValidation))
	_, err = Circulant("c", 10, []int{6}, 2)
	assert.True(t, errors.Is(err, core.ErrValidation))
	_, err = Build(Spec{Kind: "lattice", Size: 4})
	assert.True(t, errors.Is(err, core.ErrValidation))
}

func TestBuildDefaultsStartLabel(t *testing.T) {
	g, err := Build(Spec{Kind: KindComplete, Size: 5, Name: "staff"})
	require.NoError(t, err)
	assert.Equal(t, "staff", g.Name())
	assert.Equal(t, []int{2, 3, 4, 5, 6}, g.Vertices())
}

func TestLoadEdgeList(t *testing.T) {
	in := "# staff contacts\n2,3\n3 , 4\n\n4,4\n5,2\n"
	g, err := Load(strings.NewReader(in), "staff", ",")
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3, 4, 5}, g.Vertices())
	assert.Equal(t, 3, g.Size())
	assert.Equal(t, []int{3, 5}, g.Neighbors(2))

	_, err = Load(strings.NewReader("2\n"), "bad", ",")
	assert.True(t, errors.Is(err, core.ErrValidation))
	_, err = Load(strings.NewReader("2,x\n"), "bad", ",")
	assert.True(t, errors.Is(err, core.ErrValidation))
}

func TestWriteRoundTrip(t *testing.T) {
	g, err := Neighboring(12, 4, 2)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, g, false))
	back, err := Load(&buf, g.Name(), "")
	require.NoError(t, err)
	assert.Equal(t, g.Edges(), back.Edges())

	buf.Reset()
	require.NoError(t, Write(&buf, g, true))
	first := strings.SplitN(buf.String(), "\n", 2)[0]
	assert.Equal(t, "2: 3 4 12 13", first)
}

func TestBuildFromFileRemapsLowLabels(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ward.txt")
	require.NoError(t, os.WriteFile(path, []byte("0 1\n1 2\n"), 0o644))

	g, err := Build(Spec{Kind: KindFile, Path: path})
	require.NoError(t, err)
	assert.Equal(t, "ward", g.Name())
	assert.Equal(t, []int{2, 3, 4}, g.Vertices())
	assert.True(t, g.HasEdge(2, 3))
	assert.True(t, g.HasEdge(3, 4))

	out := filepath.Join(dir, "nested", "copy.txt")
	require.NoError(t, WriteFile(out, g, false))
	_, err = os.Stat(out)
	assert.NoError(t, err)
}
