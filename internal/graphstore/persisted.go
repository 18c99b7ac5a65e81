package graphstore

import (
	"bufio"
	"encoding/gob"
	"os"

	"github.com/repotoire-go/repotoire/internal/graphmodel"
	"github.com/repotoire-go/repotoire/internal/rerr"
)

// snapshot is the on-disk representation a PersistedStore saves and loads.
// The original engine keeps its graph in a redb table pair (nodes, edges);
// nothing in the retrieved dependency set provides an embedded KV store, so
// the snapshot format here is a single gob-encoded file — still a full
// save/load round trip, just without redb's transactional table API.
type snapshot struct {
	Nodes []graphmodel.Node
	Edges map[graphmodel.EdgeKind][]graphmodel.Edge
}

// PersistedStore wraps MemStore with Save/Load so repeated runs over an
// unchanged repository can skip re-parsing and re-linking entirely.
type PersistedStore struct {
	*MemStore
	path string
}

func NewPersistedStore(path string) *PersistedStore {
	return &PersistedStore{MemStore: NewMemStore(), path: path}
}

func (p *PersistedStore) Save() error {
	f, err := os.Create(p.path)
	if err != nil {
		return rerr.NewCacheWriteFailed(p.path, err)
	}
	defer f.Close()

	p.graphMu.RLock()
	snap := snapshot{
		Nodes: append([]graphmodel.Node(nil), p.nodes...),
		Edges: make(map[graphmodel.EdgeKind][]graphmodel.Edge, len(p.edges)),
	}
	for kind, adj := range p.edges {
		var edges []graphmodel.Edge
		for _, es := range adj.out {
			edges = append(edges, es...)
		}
		snap.Edges[kind] = edges
	}
	p.graphMu.RUnlock()

	w := bufio.NewWriter(f)
	if err := gob.NewEncoder(w).Encode(&snap); err != nil {
		return rerr.NewCacheWriteFailed(p.path, err)
	}
	return w.Flush()
}

func (p *PersistedStore) Load() error {
	f, err := os.Open(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return rerr.NewGraphCorrupt(p.path, "open failed", err)
	}
	defer f.Close()

	var snap snapshot
	if err := gob.NewDecoder(bufio.NewReader(f)).Decode(&snap); err != nil {
		return rerr.NewGraphCorrupt(p.path, "gob decode failed", err)
	}

	p.MemStore = NewMemStore()
	p.AddNodesBatch(snap.Nodes)
	for _, edges := range snap.Edges {
		if err := p.AddEdgesBatch(edges); err != nil {
			return rerr.NewGraphCorrupt(p.path, "edge replay failed", err)
		}
	}
	return nil
}
