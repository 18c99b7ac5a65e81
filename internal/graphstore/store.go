// Package graphstore implements the code graph: a directed multigraph of
// files, functions, classes, and modules, queryable by detectors and the
// health scorer. There are three backends: an in-memory graph and a
// persisted-in-memory graph that snapshots to disk, both implementing the
// Store interface, and a read-only memory-mapped single-file format for very
// large repositories that serves only a subset of the queries.
//
// Every writer acquires the graph lock before the index lock, never the
// reverse, to rule out the deadlock and TOCTOU windows a mismatched lock
// order would otherwise open between concurrent AddNode/UpdateNodeProperty
// callers. Readers that only need the index (name resolution) take just
// the index lock; readers that walk edges take just the graph lock.
// A panic while either lock is held is never recovered — the store's
// invariants are not safe to continue past a partial mutation, so the
// panic is left to propagate and the process exits.
package graphstore

import (
	"fmt"
	"sync"

	"github.com/repotoire-go/repotoire/internal/graphmodel"
	"github.com/repotoire-go/repotoire/internal/intern"
)

// Store is the query and mutation contract every backend implements.
type Store interface {
	AddNode(n graphmodel.Node) graphmodel.NodeID
	AddNodesBatch(nodes []graphmodel.Node) []graphmodel.NodeID
	GetNode(qualifiedName string) (graphmodel.Node, bool)
	GetNodeByID(id graphmodel.NodeID) (graphmodel.Node, bool)
	UpdateNodeProperty(qualifiedName, key string, value any) bool
	UpdateNodeProperties(qualifiedName string, props graphmodel.Properties) bool
	GetNodesByKind(kind graphmodel.NodeKind) []graphmodel.Node
	GetFunctionsInFile(filePath string) []graphmodel.Node
	GetComplexFunctions(threshold int) []graphmodel.Node
	GetLongParamFunctions(threshold int) []graphmodel.Node

	AddEdge(e graphmodel.Edge) error
	AddEdgesBatch(edges []graphmodel.Edge) error
	GetEdgesByKind(kind graphmodel.EdgeKind) []graphmodel.Edge

	GetImports(qualifiedName string) []graphmodel.Edge
	GetCalls(qualifiedName string) []graphmodel.Edge
	GetInheritance(qualifiedName string) []graphmodel.Edge

	GetCallers(qualifiedName string) []graphmodel.Node
	GetCallees(qualifiedName string) []graphmodel.Node
	GetImporters(qualifiedName string) []graphmodel.Node
	GetParentClasses(qualifiedName string) []graphmodel.Node
	GetChildClasses(qualifiedName string) []graphmodel.Node

	FanIn(qualifiedName string) int
	FanOut(qualifiedName string) int
	CallFanIn(qualifiedName string) int
	CallFanOut(qualifiedName string) int

	Stats() Stats

	FindImportCycles() [][]string
	FindCallCycles() [][]string
	FindMinimalCycle(qualifiedName string, kind graphmodel.EdgeKind) []string
}

// Stats summarizes graph size for the health scorer's size factor and for
// progress reporting.
type Stats struct {
	TotalNodes     int
	TotalEdges     int
	TotalFiles     int
	TotalFunctions int
	TotalClasses   int
}

// adjacency indexes outgoing and incoming edges for one kind, keyed by the
// qualified names edges were added with — not by NodeID — so edges can be
// recorded before both endpoints are known (the builder links call targets
// in a second pass, after every file has been ingested).
type adjacency struct {
	out map[string][]graphmodel.Edge
	in  map[string][]graphmodel.Edge
}

func newAdjacency() *adjacency {
	return &adjacency{out: make(map[string][]graphmodel.Edge), in: make(map[string][]graphmodel.Edge)}
}

func (a *adjacency) add(e graphmodel.Edge) {
	a.out[e.FromQualifiedName] = append(a.out[e.FromQualifiedName], e)
	a.in[e.ToQualifiedName] = append(a.in[e.ToQualifiedName], e)
}

// MemStore is the in-memory graph backend: a sync.RWMutex-guarded node table
// plus a separate RWMutex-guarded qualified-name index, mirroring the
// original engine's split between its DiGraph lock and its name-to-index
// lock.
//
// In compact mode, every string-valued field that reaches AddNode/AddEdge is
// canonicalized through an interner before being stored: a repository's
// graph carries the same qualified name, file path, and package prefix
// across many nodes and edges, and interning collapses each distinct value
// to one backing allocation shared by every occurrence instead of one
// per-occurrence copy. The Store interface is unaffected — callers still
// get back the same strings — only the number of live string allocations
// behind them shrinks.
type MemStore struct {
	graphMu sync.RWMutex
	nodes   []graphmodel.Node
	byKind  map[graphmodel.NodeKind][]graphmodel.NodeID
	byFile  map[string][]graphmodel.NodeID
	edges   map[graphmodel.EdgeKind]*adjacency

	indexMu sync.RWMutex
	index   map[string]graphmodel.NodeID

	compact  *intern.Interner
	internMu sync.Mutex
}

func NewMemStore() *MemStore {
	return newMemStore(false)
}

// NewCompactMemStore builds a MemStore in compact mode (spec's "compact
// mode flag" at graph construction). Use it for large repositories where
// the same qualified-name and file-path strings recur across thousands of
// nodes and edges.
func NewCompactMemStore() *MemStore {
	return newMemStore(true)
}

func newMemStore(compact bool) *MemStore {
	s := &MemStore{
		nodes:  make([]graphmodel.Node, 0, 1024),
		byKind: make(map[graphmodel.NodeKind][]graphmodel.NodeID),
		byFile: make(map[string][]graphmodel.NodeID),
		edges: map[graphmodel.EdgeKind]*adjacency{
			graphmodel.EdgeContains: newAdjacency(),
			graphmodel.EdgeCalls:    newAdjacency(),
			graphmodel.EdgeImports:  newAdjacency(),
			graphmodel.EdgeInherits: newAdjacency(),
			graphmodel.EdgeUses:     newAdjacency(),
			graphmodel.EdgeModified: newAdjacency(),
		},
		index: make(map[string]graphmodel.NodeID),
	}
	if compact {
		s.compact = intern.New()
	}
	return s
}

// canon returns the interned, deduplicated copy of s in compact mode, or s
// unchanged otherwise.
func (s *MemStore) canon(str string) string {
	if s.compact == nil || str == "" {
		return str
	}
	s.internMu.Lock()
	defer s.internMu.Unlock()
	k := s.compact.Intern(str)
	canonical, _ := s.compact.Lookup(k)
	return canonical
}

func (s *MemStore) AddNode(n graphmodel.Node) graphmodel.NodeID {
	n.QualifiedName = s.canon(n.QualifiedName)
	n.Name = s.canon(n.Name)
	n.FilePath = s.canon(n.FilePath)

	s.graphMu.Lock()
	defer s.graphMu.Unlock()
	s.indexMu.Lock()
	defer s.indexMu.Unlock()

	if existing, ok := s.index[n.QualifiedName]; ok {
		// Update in place: the same qualified name re-ingested (incremental
		// rebuild of a changed file) replaces properties without disturbing
		// edges that reference it by name.
		n.ID = existing
		s.nodes[existing] = n
		return existing
	}

	id := graphmodel.NodeID(len(s.nodes))
	n.ID = id
	s.nodes = append(s.nodes, n)
	s.index[n.QualifiedName] = id
	s.byKind[n.Kind] = append(s.byKind[n.Kind], id)
	if n.FilePath != "" {
		s.byFile[n.FilePath] = append(s.byFile[n.FilePath], id)
	}
	return id
}

func (s *MemStore) AddNodesBatch(nodes []graphmodel.Node) []graphmodel.NodeID {
	ids := make([]graphmodel.NodeID, len(nodes))
	for i, n := range nodes {
		ids[i] = s.AddNode(n)
	}
	return ids
}

func (s *MemStore) GetNode(qualifiedName string) (graphmodel.Node, bool) {
	s.indexMu.RLock()
	id, ok := s.index[qualifiedName]
	s.indexMu.RUnlock()
	if !ok {
		return graphmodel.Node{}, false
	}
	return s.GetNodeByID(id)
}

func (s *MemStore) GetNodeByID(id graphmodel.NodeID) (graphmodel.Node, bool) {
	s.graphMu.RLock()
	defer s.graphMu.RUnlock()
	if int(id) >= len(s.nodes) {
		return graphmodel.Node{}, false
	}
	return s.nodes[id], true
}

func (s *MemStore) UpdateNodeProperty(qualifiedName, key string, value any) bool {
	return s.UpdateNodeProperties(qualifiedName, graphmodel.Properties{key: value})
}

func (s *MemStore) UpdateNodeProperties(qualifiedName string, props graphmodel.Properties) bool {
	// Lock the graph before the index to match every other writer's lock
	// order and avoid a TOCTOU window where the index says the node exists
	// but the graph slice has already been resized by a concurrent writer.
	s.graphMu.Lock()
	defer s.graphMu.Unlock()
	s.indexMu.RLock()
	id, ok := s.index[qualifiedName]
	s.indexMu.RUnlock()
	if !ok {
		return false
	}
	node := s.nodes[id]
	if node.Properties == nil {
		node.Properties = graphmodel.Properties{}
	}
	for k, v := range props {
		node.Properties[k] = v
	}
	s.nodes[id] = node
	return true
}

func (s *MemStore) GetNodesByKind(kind graphmodel.NodeKind) []graphmodel.Node {
	s.graphMu.RLock()
	defer s.graphMu.RUnlock()
	ids := s.byKind[kind]
	out := make([]graphmodel.Node, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.nodes[id])
	}
	return out
}

func (s *MemStore) GetFunctionsInFile(filePath string) []graphmodel.Node {
	s.graphMu.RLock()
	defer s.graphMu.RUnlock()
	ids := s.byFile[filePath]
	out := make([]graphmodel.Node, 0, len(ids))
	for _, id := range ids {
		if s.nodes[id].Kind == graphmodel.NodeFunction {
			out = append(out, s.nodes[id])
		}
	}
	return out
}

func (s *MemStore) GetComplexFunctions(threshold int) []graphmodel.Node {
	s.graphMu.RLock()
	defer s.graphMu.RUnlock()
	var out []graphmodel.Node
	for _, id := range s.byKind[graphmodel.NodeFunction] {
		n := s.nodes[id]
		if n.Properties.Int("complexity", 0) >= threshold {
			out = append(out, n)
		}
	}
	return out
}

func (s *MemStore) GetLongParamFunctions(threshold int) []graphmodel.Node {
	s.graphMu.RLock()
	defer s.graphMu.RUnlock()
	var out []graphmodel.Node
	for _, id := range s.byKind[graphmodel.NodeFunction] {
		n := s.nodes[id]
		if n.Properties.Int("param_count", 0) >= threshold {
			out = append(out, n)
		}
	}
	return out
}

func (s *MemStore) AddEdge(e graphmodel.Edge) error {
	e.FromQualifiedName = s.canon(e.FromQualifiedName)
	e.ToQualifiedName = s.canon(e.ToQualifiedName)

	s.graphMu.Lock()
	defer s.graphMu.Unlock()
	adj, ok := s.edges[e.Kind]
	if !ok {
		return fmt.Errorf("graphstore: unknown edge kind %q", e.Kind)
	}
	adj.add(e)
	return nil
}

func (s *MemStore) AddEdgesBatch(edges []graphmodel.Edge) error {
	for _, e := range edges {
		if err := s.AddEdge(e); err != nil {
			return err
		}
	}
	return nil
}

func (s *MemStore) GetEdgesByKind(kind graphmodel.EdgeKind) []graphmodel.Edge {
	s.graphMu.RLock()
	defer s.graphMu.RUnlock()
	adj, ok := s.edges[kind]
	if !ok {
		return nil
	}
	var out []graphmodel.Edge
	for _, edges := range adj.out {
		out = append(out, edges...)
	}
	return out
}

func (s *MemStore) GetImports(qualifiedName string) []graphmodel.Edge {
	return s.outEdges(graphmodel.EdgeImports, qualifiedName)
}

func (s *MemStore) GetCalls(qualifiedName string) []graphmodel.Edge {
	return s.outEdges(graphmodel.EdgeCalls, qualifiedName)
}

func (s *MemStore) GetInheritance(qualifiedName string) []graphmodel.Edge {
	return s.outEdges(graphmodel.EdgeInherits, qualifiedName)
}

func (s *MemStore) outEdges(kind graphmodel.EdgeKind, qualifiedName string) []graphmodel.Edge {
	s.graphMu.RLock()
	defer s.graphMu.RUnlock()
	adj, ok := s.edges[kind]
	if !ok {
		return nil
	}
	return append([]graphmodel.Edge(nil), adj.out[qualifiedName]...)
}

func (s *MemStore) nodesFromEdges(edges []graphmodel.Edge, names func(graphmodel.Edge) string) []graphmodel.Node {
	out := make([]graphmodel.Node, 0, len(edges))
	for _, e := range edges {
		if n, ok := s.GetNode(names(e)); ok {
			out = append(out, n)
		}
	}
	return out
}

func (s *MemStore) GetCallers(qualifiedName string) []graphmodel.Node {
	s.graphMu.RLock()
	edges := append([]graphmodel.Edge(nil), s.edges[graphmodel.EdgeCalls].in[qualifiedName]...)
	s.graphMu.RUnlock()
	return s.nodesFromEdges(edges, func(e graphmodel.Edge) string { return e.FromQualifiedName })
}

func (s *MemStore) GetCallees(qualifiedName string) []graphmodel.Node {
	edges := s.outEdges(graphmodel.EdgeCalls, qualifiedName)
	return s.nodesFromEdges(edges, func(e graphmodel.Edge) string { return e.ToQualifiedName })
}

func (s *MemStore) GetImporters(qualifiedName string) []graphmodel.Node {
	s.graphMu.RLock()
	edges := append([]graphmodel.Edge(nil), s.edges[graphmodel.EdgeImports].in[qualifiedName]...)
	s.graphMu.RUnlock()
	return s.nodesFromEdges(edges, func(e graphmodel.Edge) string { return e.FromQualifiedName })
}

func (s *MemStore) GetParentClasses(qualifiedName string) []graphmodel.Node {
	edges := s.outEdges(graphmodel.EdgeInherits, qualifiedName)
	return s.nodesFromEdges(edges, func(e graphmodel.Edge) string { return e.ToQualifiedName })
}

func (s *MemStore) GetChildClasses(qualifiedName string) []graphmodel.Node {
	s.graphMu.RLock()
	edges := append([]graphmodel.Edge(nil), s.edges[graphmodel.EdgeInherits].in[qualifiedName]...)
	s.graphMu.RUnlock()
	return s.nodesFromEdges(edges, func(e graphmodel.Edge) string { return e.FromQualifiedName })
}

func (s *MemStore) FanIn(qualifiedName string) int {
	s.graphMu.RLock()
	defer s.graphMu.RUnlock()
	return len(s.edges[graphmodel.EdgeImports].in[qualifiedName])
}

func (s *MemStore) FanOut(qualifiedName string) int {
	s.graphMu.RLock()
	defer s.graphMu.RUnlock()
	return len(s.edges[graphmodel.EdgeImports].out[qualifiedName])
}

func (s *MemStore) CallFanIn(qualifiedName string) int {
	s.graphMu.RLock()
	defer s.graphMu.RUnlock()
	return len(s.edges[graphmodel.EdgeCalls].in[qualifiedName])
}

func (s *MemStore) CallFanOut(qualifiedName string) int {
	s.graphMu.RLock()
	defer s.graphMu.RUnlock()
	return len(s.edges[graphmodel.EdgeCalls].out[qualifiedName])
}

func (s *MemStore) Stats() Stats {
	s.graphMu.RLock()
	defer s.graphMu.RUnlock()
	var totalEdges int
	for _, adj := range s.edges {
		for _, e := range adj.out {
			totalEdges += len(e)
		}
	}
	return Stats{
		TotalNodes:     len(s.nodes),
		TotalEdges:     totalEdges,
		TotalFiles:     len(s.byKind[graphmodel.NodeFile]),
		TotalFunctions: len(s.byKind[graphmodel.NodeFunction]),
		TotalClasses:   len(s.byKind[graphmodel.NodeClass]),
	}
}
