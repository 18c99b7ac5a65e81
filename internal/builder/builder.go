// Package builder turns parser output into graph nodes and edges. It
// supports three build modes with identical semantics and different memory
// profiles: whole-repo (collect everything, then link), chunked (same, but
// capped batch sizes), and streaming (link as files arrive, dropping each
// parsed file's AST before the next one is read).
package builder

import (
	"context"
	"path"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/repotoire-go/repotoire/internal/graphmodel"
	"github.com/repotoire-go/repotoire/internal/graphstore"
	"github.com/repotoire-go/repotoire/internal/parserapi"
)

// Default chunk sizes and mode crossover thresholds from the original
// engine's build-mode selection.
const (
	DefaultChunkSize        = 5000
	ChunkedCrossoverFiles    = 10000
	StreamingCrossoverFiles  = 2000
)

// Stats summarizes one build run for progress reporting and tests.
type Stats struct {
	FilesProcessed  int
	NodesAdded      int
	EdgesAdded      int
	UnresolvedCalls int
}

// Builder ingests ParsedFile records into a graphstore.Store.
type Builder struct {
	store   graphstore.Store
	workers int

	// pending holds calls that could not be resolved at ingest time because
	// their target node did not exist yet. Resolved in a final pass, the
	// same deferral streaming mode needs when a callee appears in a file
	// parsed after its caller.
	pendingMu       sync.Mutex
	pending         []pendingCall
	functionsByFile map[string][]string // file -> qualified names, for same-file resolution
	functionsByName map[string][]string // bare name -> qualified names, for fallback resolution
}

type pendingCall struct {
	fromQualifiedName string
	fromFile          string
	callName          string
}

// New creates a Builder writing into store, parallelizing per-file ingest
// across workers goroutines (workers <= 0 means unbounded).
func New(store graphstore.Store, workers int) *Builder {
	return &Builder{
		store:           store,
		workers:         workers,
		functionsByFile: make(map[string][]string),
		functionsByName: make(map[string][]string),
	}
}

// BuildWholeRepo ingests every file, then resolves calls once. Appropriate
// for repositories under the chunked crossover threshold.
func (b *Builder) BuildWholeRepo(ctx context.Context, files []parserapi.ParsedFile) (Stats, error) {
	return b.BuildChunked(ctx, files, len(files))
}

// BuildChunked ingests files in fixed-size batches, resolving calls once at
// the end — identical output to BuildWholeRepo, bounded peak memory.
func (b *Builder) BuildChunked(ctx context.Context, files []parserapi.ParsedFile, chunkSize int) (Stats, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	var stats Stats
	for start := 0; start < len(files); start += chunkSize {
		end := start + chunkSize
		if end > len(files) {
			end = len(files)
		}
		n, err := b.ingestBatch(ctx, files[start:end])
		if err != nil {
			return stats, err
		}
		stats.FilesProcessed += end - start
		stats.NodesAdded += n
	}
	resolved, unresolved := b.resolveCalls()
	stats.EdgesAdded += resolved
	stats.UnresolvedCalls = unresolved
	return stats, nil
}

// BuildStreaming ingests files one at a time from a channel, so no more
// than one parsed file's AST is held at once. Call resolution is still
// deferred to the end: a caller and callee can appear in either order in
// the stream.
func (b *Builder) BuildStreaming(ctx context.Context, files <-chan parserapi.ParsedFile) (Stats, error) {
	var stats Stats
	for {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		case f, ok := <-files:
			if !ok {
				resolved, unresolved := b.resolveCalls()
				stats.EdgesAdded += resolved
				stats.UnresolvedCalls = unresolved
				return stats, nil
			}
			n, err := b.ingestBatch(ctx, []parserapi.ParsedFile{f})
			if err != nil {
				return stats, err
			}
			stats.FilesProcessed++
			stats.NodesAdded += n
		}
	}
}

func (b *Builder) ingestBatch(ctx context.Context, files []parserapi.ParsedFile) (int, error) {
	g, _ := errgroup.WithContext(ctx)
	if b.workers > 0 {
		g.SetLimit(b.workers)
	}

	nodeCounts := make([]int, len(files))
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			nodeCounts[i] = b.ingestFile(f)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	total := 0
	for _, n := range nodeCounts {
		total += n
	}
	return total, nil
}

func (b *Builder) ingestFile(f parserapi.ParsedFile) int {
	nodes := 0

	fileQN := f.Path
	b.store.AddNode(graphmodel.Node{
		Kind:          graphmodel.NodeFile,
		QualifiedName: fileQN,
		Name:          path.Base(f.Path),
		FilePath:      f.Path,
	})
	nodes++

	for _, fn := range f.Functions {
		b.store.AddNode(graphmodel.Node{
			Kind:          graphmodel.NodeFunction,
			QualifiedName: fn.QualifiedName,
			Name:          fn.Name,
			FilePath:      f.Path,
			LineStart:     fn.LineStart,
			LineEnd:       fn.LineEnd,
			Properties:    graphmodel.Properties(fn.Properties),
		})
		nodes++
		_ = b.store.AddEdge(graphmodel.Edge{FromQualifiedName: fileQN, ToQualifiedName: fn.QualifiedName, Kind: graphmodel.EdgeContains})

		b.pendingMu.Lock()
		b.functionsByFile[f.Path] = append(b.functionsByFile[f.Path], fn.QualifiedName)
		b.functionsByName[fn.Name] = append(b.functionsByName[fn.Name], fn.QualifiedName)
		for _, call := range fn.Calls {
			b.pending = append(b.pending, pendingCall{fromQualifiedName: fn.QualifiedName, fromFile: f.Path, callName: call})
		}
		b.pendingMu.Unlock()
	}

	for _, cls := range f.Classes {
		b.store.AddNode(graphmodel.Node{
			Kind:          graphmodel.NodeClass,
			QualifiedName: cls.QualifiedName,
			Name:          cls.Name,
			FilePath:      f.Path,
			LineStart:     cls.LineStart,
			LineEnd:       cls.LineEnd,
			Properties:    graphmodel.Properties(cls.Properties),
		})
		nodes++
		_ = b.store.AddEdge(graphmodel.Edge{FromQualifiedName: fileQN, ToQualifiedName: cls.QualifiedName, Kind: graphmodel.EdgeContains})
		for _, parent := range cls.Parents {
			_ = b.store.AddEdge(graphmodel.Edge{FromQualifiedName: cls.QualifiedName, ToQualifiedName: parent, Kind: graphmodel.EdgeInherits})
		}
	}

	for _, imp := range f.Imports {
		_ = b.store.AddEdge(graphmodel.Edge{
			FromQualifiedName: fileQN,
			ToQualifiedName:   imp.Target,
			Kind:              graphmodel.EdgeImports,
			IsTypeOnly:        imp.IsTypeOnly,
		})
	}

	return nodes
}

// resolveCalls links every pending call to a callee qualified name, using
// same-file, then same-module, then first-lexicographic tie-breaks. Calls
// that resolve to no known function are discarded but counted.
func (b *Builder) resolveCalls() (resolved, unresolved int) {
	for _, call := range b.pending {
		target, ok := b.resolveCallTarget(call)
		if !ok {
			unresolved++
			continue
		}
		_ = b.store.AddEdge(graphmodel.Edge{FromQualifiedName: call.fromQualifiedName, ToQualifiedName: target, Kind: graphmodel.EdgeCalls})
		resolved++
	}
	return resolved, unresolved
}

func (b *Builder) resolveCallTarget(call pendingCall) (string, bool) {
	// Already a qualified name naming a known function.
	if _, ok := b.store.GetNode(call.callName); ok {
		return call.callName, true
	}

	candidates := b.functionsByName[call.callName]
	if len(candidates) == 0 {
		return "", false
	}
	if len(candidates) == 1 {
		return candidates[0], true
	}

	// Prefer same-file target.
	for _, qn := range b.functionsByFile[call.fromFile] {
		for _, c := range candidates {
			if c == qn {
				return c, true
			}
		}
	}

	// Then same-module (same directory).
	fromModule := path.Dir(call.fromFile)
	sorted := append([]string(nil), candidates...)
	sort.Strings(sorted)
	for _, c := range sorted {
		if node, ok := b.store.GetNode(c); ok && path.Dir(node.FilePath) == fromModule {
			return c, true
		}
	}

	// Then first lexicographically by qualified name.
	return sorted[0], true
}
