package graphstore

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repotoire-go/repotoire/internal/graphmodel"
)

func TestMmapStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/graph.repomap"

	b := NewMmapBuilder()
	b.AddNode(graphmodel.Node{Kind: graphmodel.NodeFunction, QualifiedName: "pkg.Foo", FilePath: "pkg/foo.go", LineStart: 10, LineEnd: 20})
	b.AddNode(graphmodel.Node{Kind: graphmodel.NodeFunction, QualifiedName: "pkg.Bar", FilePath: "pkg/foo.go", LineStart: 22, LineEnd: 30})
	b.AddEdge(graphmodel.Edge{FromQualifiedName: "pkg.Foo", ToQualifiedName: "pkg.Bar", Kind: graphmodel.EdgeCalls})
	require.NoError(t, b.Write(path))

	s, err := OpenMmapStore(path)
	require.NoError(t, err)
	defer s.Close()

	n, ok := s.GetNode("pkg.Foo")
	require.True(t, ok)
	assert.Equal(t, "pkg/foo.go", n.FilePath)
	assert.Equal(t, 10, n.LineStart)

	fns := s.GetFunctionsInFile("pkg/foo.go")
	assert.Len(t, fns, 2)

	stats := s.Stats()
	assert.Equal(t, 2, stats.TotalNodes)
	assert.Equal(t, 1, stats.TotalEdges)
}

func TestMmapStoreRejectsBadMagic(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/bad.repomap"
	require.NoError(t, os.WriteFile(path, make([]byte, 64), 0o644))

	_, err := OpenMmapStore(path)
	assert.Error(t, err)
}
