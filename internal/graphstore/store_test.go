package graphstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/repotoire-go/repotoire/internal/graphmodel"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newFuncNode(qn, file string, complexity int) graphmodel.Node {
	return graphmodel.Node{
		Kind:          graphmodel.NodeFunction,
		QualifiedName: qn,
		Name:          qn,
		FilePath:      file,
		Properties:    graphmodel.Properties{"complexity": complexity},
	}
}

func TestMemStoreAddAndGetNode(t *testing.T) {
	s := NewMemStore()
	id := s.AddNode(newFuncNode("pkg.Foo", "pkg/foo.go", 3))
	assert.Equal(t, graphmodel.NodeID(0), id)

	n, ok := s.GetNode("pkg.Foo")
	require.True(t, ok)
	assert.Equal(t, "pkg/foo.go", n.FilePath)
}

func TestMemStoreAddNodeUpdatesInPlace(t *testing.T) {
	s := NewMemStore()
	s.AddNode(newFuncNode("pkg.Foo", "pkg/foo.go", 3))
	id := s.AddNode(newFuncNode("pkg.Foo", "pkg/foo.go", 9))

	n, ok := s.GetNodeByID(id)
	require.True(t, ok)
	assert.Equal(t, 9, n.Properties.Int("complexity", 0))

	stats := s.Stats()
	assert.Equal(t, 1, stats.TotalNodes)
}

func TestMemStoreUpdateNodeProperty(t *testing.T) {
	s := NewMemStore()
	s.AddNode(newFuncNode("pkg.Foo", "pkg/foo.go", 3))

	assert.True(t, s.UpdateNodeProperty("pkg.Foo", "param_count", 7))
	n, _ := s.GetNode("pkg.Foo")
	assert.Equal(t, 7, n.Properties.Int("param_count", 0))

	assert.False(t, s.UpdateNodeProperty("missing", "x", 1))
}

func TestMemStoreComplexAndLongParamFunctions(t *testing.T) {
	s := NewMemStore()
	s.AddNode(newFuncNode("pkg.Simple", "pkg/a.go", 2))
	s.AddNode(newFuncNode("pkg.Complex", "pkg/b.go", 15))

	complex := s.GetComplexFunctions(10)
	require.Len(t, complex, 1)
	assert.Equal(t, "pkg.Complex", complex[0].QualifiedName)
}

func TestMemStoreEdgesAndQueries(t *testing.T) {
	s := NewMemStore()
	s.AddNode(newFuncNode("pkg.A", "pkg/a.go", 1))
	s.AddNode(newFuncNode("pkg.B", "pkg/b.go", 1))

	require.NoError(t, s.AddEdge(graphmodel.Edge{
		FromQualifiedName: "pkg.A", ToQualifiedName: "pkg.B", Kind: graphmodel.EdgeCalls,
	}))

	callees := s.GetCallees("pkg.A")
	require.Len(t, callees, 1)
	assert.Equal(t, "pkg.B", callees[0].QualifiedName)

	callers := s.GetCallers("pkg.B")
	require.Len(t, callers, 1)
	assert.Equal(t, "pkg.A", callers[0].QualifiedName)

	assert.Equal(t, 1, s.CallFanOut("pkg.A"))
	assert.Equal(t, 1, s.CallFanIn("pkg.B"))
}

func TestFindImportCyclesExcludesTypeOnly(t *testing.T) {
	s := NewMemStore()
	for _, qn := range []string{"a", "b", "c"} {
		s.AddNode(newFuncNode(qn, qn+".go", 1))
	}
	require.NoError(t, s.AddEdgesBatch([]graphmodel.Edge{
		{FromQualifiedName: "a", ToQualifiedName: "b", Kind: graphmodel.EdgeImports},
		{FromQualifiedName: "b", ToQualifiedName: "c", Kind: graphmodel.EdgeImports},
		{FromQualifiedName: "c", ToQualifiedName: "a", Kind: graphmodel.EdgeImports, IsTypeOnly: true},
	}))

	cycles := s.FindImportCycles()
	assert.Empty(t, cycles, "cycle closed only by a type-only import is not a real cycle")
}

func TestFindImportCyclesDetectsRealCycle(t *testing.T) {
	s := NewMemStore()
	for _, qn := range []string{"a", "b", "c"} {
		s.AddNode(newFuncNode(qn, qn+".go", 1))
	}
	require.NoError(t, s.AddEdgesBatch([]graphmodel.Edge{
		{FromQualifiedName: "a", ToQualifiedName: "b", Kind: graphmodel.EdgeImports},
		{FromQualifiedName: "b", ToQualifiedName: "c", Kind: graphmodel.EdgeImports},
		{FromQualifiedName: "c", ToQualifiedName: "a", Kind: graphmodel.EdgeImports},
	}))

	cycles := s.FindImportCycles()
	require.Len(t, cycles, 1)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, cycles[0])
}

func TestFindMinimalCycle(t *testing.T) {
	s := NewMemStore()
	for _, qn := range []string{"a", "b", "c", "d"} {
		s.AddNode(newFuncNode(qn, qn+".go", 1))
	}
	require.NoError(t, s.AddEdgesBatch([]graphmodel.Edge{
		{FromQualifiedName: "a", ToQualifiedName: "b", Kind: graphmodel.EdgeCalls},
		{FromQualifiedName: "b", ToQualifiedName: "a", Kind: graphmodel.EdgeCalls},
		{FromQualifiedName: "a", ToQualifiedName: "c", Kind: graphmodel.EdgeCalls},
		{FromQualifiedName: "c", ToQualifiedName: "d", Kind: graphmodel.EdgeCalls},
		{FromQualifiedName: "d", ToQualifiedName: "a", Kind: graphmodel.EdgeCalls},
	}))

	cycle := s.FindMinimalCycle("a", graphmodel.EdgeCalls)
	assert.Len(t, cycle, 2, "the shorter a-b-a cycle should win over a-c-d-a")
}

func TestPersistedStoreSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/graph.snapshot"

	p := NewPersistedStore(path)
	p.AddNode(newFuncNode("pkg.A", "pkg/a.go", 4))
	p.AddNode(newFuncNode("pkg.B", "pkg/b.go", 1))
	require.NoError(t, p.AddEdge(graphmodel.Edge{
		FromQualifiedName: "pkg.A", ToQualifiedName: "pkg.B", Kind: graphmodel.EdgeCalls,
	}))
	require.NoError(t, p.Save())

	loaded := NewPersistedStore(path)
	require.NoError(t, loaded.Load())

	n, ok := loaded.GetNode("pkg.A")
	require.True(t, ok)
	assert.Equal(t, 4, n.Properties.Int("complexity", 0))
	assert.Len(t, loaded.GetCallees("pkg.A"), 1)
}

func TestCompactMemStoreDeduplicatesRepeatedStrings(t *testing.T) {
	s := NewCompactMemStore()

	s.AddNode(newFuncNode("pkg.Foo", "pkg/shared.go", 1))
	s.AddNode(newFuncNode("pkg.Bar", "pkg/shared.go", 2))
	require.NoError(t, s.AddEdge(graphmodel.Edge{
		FromQualifiedName: "pkg.Foo", ToQualifiedName: "pkg.Bar", Kind: graphmodel.EdgeCalls,
	}))

	foo, ok := s.GetNode("pkg.Foo")
	require.True(t, ok)
	bar, ok := s.GetNode("pkg.Bar")
	require.True(t, ok)

	assert.Equal(t, "pkg/shared.go", foo.FilePath)
	assert.Equal(t, "pkg/shared.go", bar.FilePath)
	// pkg.Foo, pkg/shared.go, and pkg.Bar are each interned once; the shared
	// file path and the edge's two endpoints reuse existing keys.
	assert.Equal(t, 3, s.compact.Len())

	assert.Len(t, s.GetCallees("pkg.Foo"), 1)
}

func TestNewMemStoreIsNotCompact(t *testing.T) {
	s := NewMemStore()
	assert.Nil(t, s.compact)
}
