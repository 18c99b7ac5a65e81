package builder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/repotoire-go/repotoire/internal/graphmodel"
	"github.com/repotoire-go/repotoire/internal/graphstore"
	"github.com/repotoire-go/repotoire/internal/parserapi"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func sampleFiles() []parserapi.ParsedFile {
	return []parserapi.ParsedFile{
		{
			Path:     "pkg/a.go",
			Language: "go",
			Functions: []parserapi.ParsedFunction{
				{Name: "Foo", QualifiedName: "pkg.Foo", LineStart: 1, LineEnd: 5, Calls: []string{"Bar"}},
			},
			Imports: []parserapi.ParsedImport{{Target: "pkg/b.go"}},
		},
		{
			Path:     "pkg/b.go",
			Language: "go",
			Functions: []parserapi.ParsedFunction{
				{Name: "Bar", QualifiedName: "pkg.Bar", LineStart: 1, LineEnd: 3},
			},
		},
	}
}

func TestBuildWholeRepoResolvesCalls(t *testing.T) {
	store := graphstore.NewMemStore()
	b := New(store, 2)

	stats, err := b.BuildWholeRepo(context.Background(), sampleFiles())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.FilesProcessed)
	assert.Equal(t, 1, stats.EdgesAdded)
	assert.Equal(t, 0, stats.UnresolvedCalls)

	callees := store.GetCallees("pkg.Foo")
	require.Len(t, callees, 1)
	assert.Equal(t, "pkg.Bar", callees[0].QualifiedName)
}

func TestBuildCountsUnresolvedCalls(t *testing.T) {
	store := graphstore.NewMemStore()
	b := New(store, 1)

	files := []parserapi.ParsedFile{{
		Path: "pkg/a.go",
		Functions: []parserapi.ParsedFunction{
			{Name: "Foo", QualifiedName: "pkg.Foo", Calls: []string{"DoesNotExist"}},
		},
	}}

	stats, err := b.BuildWholeRepo(context.Background(), files)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.UnresolvedCalls)
	assert.Equal(t, 0, stats.EdgesAdded)
}

func TestBuildStreamingMatchesWholeRepo(t *testing.T) {
	store := graphstore.NewMemStore()
	b := New(store, 1)

	ch := make(chan parserapi.ParsedFile)
	go func() {
		defer close(ch)
		for _, f := range sampleFiles() {
			ch <- f
		}
	}()

	stats, err := b.BuildStreaming(context.Background(), ch)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.FilesProcessed)
	assert.Equal(t, 1, stats.EdgesAdded)

	n, ok := store.GetNode("pkg.Bar")
	require.True(t, ok)
	assert.Equal(t, graphmodel.NodeFunction, n.Kind)
}

func TestBuildChunkedSameResultAsWholeRepo(t *testing.T) {
	store := graphstore.NewMemStore()
	b := New(store, 1)

	stats, err := b.BuildChunked(context.Background(), sampleFiles(), 1)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.FilesProcessed)
	assert.Equal(t, 1, stats.EdgesAdded)
}
