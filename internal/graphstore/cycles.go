package graphstore

import (
	"sort"

	"github.com/repotoire-go/repotoire/internal/graphmodel"
)

// tarjanSCC finds strongly connected components of size > 1 in the subgraph
// formed by the given adjacency, using Tarjan's algorithm. Self-loops are
// not reported as cycles (a component of size 1 with no self-edge is not a
// cycle either).
type tarjanState struct {
	index   map[string]int
	lowlink map[string]int
	onStack map[string]bool
	stack   []string
	counter int
	sccs    [][]string
	adj     map[string][]string
}

func tarjanSCC(adj map[string][]string) [][]string {
	st := &tarjanState{
		index:   make(map[string]int),
		lowlink: make(map[string]int),
		onStack: make(map[string]bool),
		adj:     adj,
	}
	nodes := make([]string, 0, len(adj))
	for n := range adj {
		nodes = append(nodes, n)
	}
	sort.Strings(nodes)
	for _, n := range nodes {
		if _, visited := st.index[n]; !visited {
			st.strongconnect(n)
		}
	}
	return st.sccs
}

func (st *tarjanState) strongconnect(v string) {
	st.index[v] = st.counter
	st.lowlink[v] = st.counter
	st.counter++
	st.stack = append(st.stack, v)
	st.onStack[v] = true

	neighbors := append([]string(nil), st.adj[v]...)
	sort.Strings(neighbors)
	for _, w := range neighbors {
		if _, visited := st.index[w]; !visited {
			st.strongconnect(w)
			if st.lowlink[w] < st.lowlink[v] {
				st.lowlink[v] = st.lowlink[w]
			}
		} else if st.onStack[w] {
			if st.index[w] < st.lowlink[v] {
				st.lowlink[v] = st.index[w]
			}
		}
	}

	if st.lowlink[v] == st.index[v] {
		var component []string
		for {
			n := len(st.stack) - 1
			w := st.stack[n]
			st.stack = st.stack[:n]
			st.onStack[w] = false
			component = append(component, w)
			if w == v {
				break
			}
		}
		if len(component) > 1 {
			sort.Strings(component)
			st.sccs = append(st.sccs, component)
		}
	}
}

// buildAdjacency projects a named edge kind into a plain string adjacency
// list, optionally excluding type-only import edges so the cycle detector
// matches import semantics (a cycle of type-only imports is not a real
// circular dependency).
func (s *MemStore) buildAdjacency(kind graphmodel.EdgeKind, excludeTypeOnly bool) map[string][]string {
	s.graphMu.RLock()
	defer s.graphMu.RUnlock()
	adj := s.edges[kind]
	out := make(map[string][]string)
	for from, edges := range adj.out {
		for _, e := range edges {
			if excludeTypeOnly && e.IsTypeOnly {
				continue
			}
			out[from] = append(out[from], e.ToQualifiedName)
			if _, ok := out[e.ToQualifiedName]; !ok {
				out[e.ToQualifiedName] = nil
			}
		}
	}
	return out
}

// FindImportCycles returns import cycles, excluding type-only imports,
// sorted by size descending then deduplicated.
func (s *MemStore) FindImportCycles() [][]string {
	return dedupeSortedBySize(tarjanSCC(s.buildAdjacency(graphmodel.EdgeImports, true)))
}

// FindCallCycles returns call-graph cycles (recursion through more than one
// function), sorted by size descending then deduplicated.
func (s *MemStore) FindCallCycles() [][]string {
	return dedupeSortedBySize(tarjanSCC(s.buildAdjacency(graphmodel.EdgeCalls, false)))
}

func dedupeSortedBySize(sccs [][]string) [][]string {
	sort.Slice(sccs, func(i, j int) bool { return len(sccs[i]) > len(sccs[j]) })
	seen := make(map[string]bool)
	out := make([][]string, 0, len(sccs))
	for _, c := range sccs {
		key := ""
		for _, n := range c {
			key += n + "\x00"
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}

// FindMinimalCycle returns the shortest cycle passing through qualifiedName
// in the given edge kind's graph, found by BFS from each of its direct
// successors back to it. Returns nil if the node is not part of any cycle.
func (s *MemStore) FindMinimalCycle(qualifiedName string, kind graphmodel.EdgeKind) []string {
	adj := s.buildAdjacency(kind, kind == graphmodel.EdgeImports)

	var best []string
	for _, start := range adj[qualifiedName] {
		path := bfsPath(adj, start, qualifiedName)
		if path == nil {
			continue
		}
		cycle := append([]string{qualifiedName}, path...)
		if best == nil || len(cycle) < len(best) {
			best = cycle
		}
	}
	return best
}

func bfsPath(adj map[string][]string, from, to string) []string {
	type queued struct {
		node string
		path []string
	}
	visited := map[string]bool{from: true}
	queue := []queued{{node: from, path: []string{from}}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.node == to {
			return cur.path
		}
		neighbors := append([]string(nil), adj[cur.node]...)
		sort.Strings(neighbors)
		for _, n := range neighbors {
			if visited[n] {
				continue
			}
			visited[n] = true
			next := append(append([]string(nil), cur.path...), n)
			queue = append(queue, queued{node: n, path: next})
		}
	}
	return nil
}
