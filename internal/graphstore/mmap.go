package graphstore

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sys/unix"

	"github.com/repotoire-go/repotoire/internal/graphmodel"
	"github.com/repotoire-go/repotoire/internal/rerr"
)

// Memory-mapped single-file graph format, used for repositories large
// enough that keeping the whole graph resident as Go structs (with their
// per-string heap allocations) is wasteful. The file is a fixed 64-byte
// header followed by a packed node table, a packed edge table, and a string
// table every name/path is interned into.
const (
	mmapMagic      = "REPOMMAP"
	mmapVersion    = 1
	mmapHeaderSize = 64

	diskNodeSize = 4 + 1 + 3 /*pad*/ + 4 + 4 + 4 + 4 + 4 + 4 // id, kind, pad, qnOff, qnLen, fileOff, fileLen, lineStart, lineEnd
	diskEdgeSize = 4 + 4 + 1 + 1 /*pad*/ + 2 /*pad*/        // fromIdx, toIdx, kind, isTypeOnly, pad
)

// MmapBuilder accumulates nodes, edges, and an interned string table, then
// writes them out in the fixed-layout format MmapStore reads back. Strings
// are deduped by content hash so a qualified name referenced by many edges
// is stored exactly once.
type MmapBuilder struct {
	strings    []byte
	internedAt map[uint64]uint32 // content hash -> offset, for dedup
	nodes      []graphmodel.Node
	qnIndex    map[string]uint32 // qualified name -> node index, for edge resolution
	edges      []graphmodel.Edge
}

func NewMmapBuilder() *MmapBuilder {
	return &MmapBuilder{
		internedAt: make(map[uint64]uint32),
		qnIndex:    make(map[string]uint32),
	}
}

// Intern returns the offset and length of s within the string table,
// appending it only if an identical string has not already been interned.
func (b *MmapBuilder) Intern(s string) (offset, length uint32) {
	h := xxhash.Sum64String(s)
	if off, ok := b.internedAt[h]; ok {
		return off, uint32(len(s))
	}
	off := uint32(len(b.strings))
	b.strings = append(b.strings, s...)
	b.internedAt[h] = off
	return off, uint32(len(s))
}

func (b *MmapBuilder) AddNode(n graphmodel.Node) {
	idx := uint32(len(b.nodes))
	b.qnIndex[n.QualifiedName] = idx
	b.nodes = append(b.nodes, n)
}

func (b *MmapBuilder) AddEdge(e graphmodel.Edge) {
	b.edges = append(b.edges, e)
}

func kindByte(k graphmodel.NodeKind) uint8 {
	switch k {
	case graphmodel.NodeFile:
		return 0
	case graphmodel.NodeFunction:
		return 1
	case graphmodel.NodeClass:
		return 2
	case graphmodel.NodeModule:
		return 3
	default:
		return 255
	}
}

func edgeKindByte(k graphmodel.EdgeKind) uint8 {
	switch k {
	case graphmodel.EdgeContains:
		return 0
	case graphmodel.EdgeCalls:
		return 1
	case graphmodel.EdgeImports:
		return 2
	case graphmodel.EdgeInherits:
		return 3
	case graphmodel.EdgeUses:
		return 4
	case graphmodel.EdgeModified:
		return 5
	default:
		return 255
	}
}

// Write serializes the builder into the mmap file format at path.
func (b *MmapBuilder) Write(path string) error {
	// Re-intern qualified names and file paths now so edges can be resolved
	// to node indices before any bytes are written.
	type nodeRec struct {
		kind               uint8
		qnOff, qnLen       uint32
		fileOff, fileLen   uint32
		lineStart, lineEnd int32
	}
	recs := make([]nodeRec, len(b.nodes))
	for i, n := range b.nodes {
		qnOff, qnLen := b.Intern(n.QualifiedName)
		fileOff, fileLen := b.Intern(n.FilePath)
		recs[i] = nodeRec{
			kind:      kindByte(n.Kind),
			qnOff:     qnOff, qnLen: qnLen,
			fileOff: fileOff, fileLen: fileLen,
			lineStart: int32(n.LineStart), lineEnd: int32(n.LineEnd),
		}
	}

	nodeTable := make([]byte, 0, len(recs)*diskNodeSize)
	for i, r := range recs {
		var buf [diskNodeSize]byte
		binary.LittleEndian.PutUint32(buf[0:4], uint32(i))
		buf[4] = r.kind
		binary.LittleEndian.PutUint32(buf[8:12], r.qnOff)
		binary.LittleEndian.PutUint32(buf[12:16], r.qnLen)
		binary.LittleEndian.PutUint32(buf[16:20], r.fileOff)
		binary.LittleEndian.PutUint32(buf[20:24], r.fileLen)
		binary.LittleEndian.PutUint32(buf[24:28], uint32(r.lineStart))
		binary.LittleEndian.PutUint32(buf[28:32], uint32(r.lineEnd))
		nodeTable = append(nodeTable, buf[:]...)
	}

	edgeTable := make([]byte, 0, len(b.edges)*diskEdgeSize)
	for _, e := range b.edges {
		fromIdx, fromOK := b.qnIndex[e.FromQualifiedName]
		toIdx, toOK := b.qnIndex[e.ToQualifiedName]
		if !fromOK || !toOK {
			continue // dangling reference to a node never added; skip
		}
		var buf [diskEdgeSize]byte
		binary.LittleEndian.PutUint32(buf[0:4], fromIdx)
		binary.LittleEndian.PutUint32(buf[4:8], toIdx)
		buf[8] = edgeKindByte(e.Kind)
		if e.IsTypeOnly {
			buf[9] = 1
		}
		edgeTable = append(edgeTable, buf[:]...)
	}

	header := make([]byte, mmapHeaderSize)
	copy(header[0:8], mmapMagic)
	binary.LittleEndian.PutUint32(header[8:12], mmapVersion)
	binary.LittleEndian.PutUint32(header[12:16], uint32(len(recs)))
	binary.LittleEndian.PutUint32(header[16:20], uint32(len(edgeTable)/diskEdgeSize))

	nodeTableOffset := uint64(mmapHeaderSize)
	edgeTableOffset := nodeTableOffset + uint64(len(nodeTable))
	stringTableOffset := edgeTableOffset + uint64(len(edgeTable))

	binary.LittleEndian.PutUint64(header[20:28], nodeTableOffset)
	binary.LittleEndian.PutUint64(header[28:36], edgeTableOffset)
	binary.LittleEndian.PutUint64(header[36:44], stringTableOffset)
	binary.LittleEndian.PutUint64(header[44:52], uint64(len(b.strings)))

	f, err := os.Create(path)
	if err != nil {
		return rerr.NewCacheWriteFailed(path, err)
	}
	defer f.Close()

	for _, chunk := range [][]byte{header, nodeTable, edgeTable, b.strings} {
		if _, err := f.Write(chunk); err != nil {
			return rerr.NewCacheWriteFailed(path, err)
		}
	}
	return nil
}

// MmapStore is a read-only graph backed by an mmap'd graph file. It offers
// GetNode, GetFunctionsInFile, and Stats, not the full Store interface. Only the
// two name-resolution indices (qualified name, file path) are rebuilt in
// RAM on open; node and edge data is read directly out of the mapped
// region on every query.
type MmapStore struct {
	data        []byte
	nodeCount   int
	edgeCount   int
	nodeTableAt int
	edgeTableAt int
	stringsAt   int

	qnToIdx    map[string]uint32
	fileToIdxs map[string][]uint32
}

func OpenMmapStore(path string) (*MmapStore, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, rerr.NewGraphCorrupt(path, "open failed", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, rerr.NewGraphCorrupt(path, "stat failed", err)
	}
	if info.Size() < mmapHeaderSize {
		return nil, rerr.NewGraphCorrupt(path, "file smaller than header", nil)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(info.Size()), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, rerr.NewGraphCorrupt(path, "mmap failed", err)
	}

	if string(data[0:8]) != mmapMagic {
		unix.Munmap(data)
		return nil, rerr.NewGraphCorrupt(path, "bad magic", nil)
	}
	version := binary.LittleEndian.Uint32(data[8:12])
	if version != mmapVersion {
		unix.Munmap(data)
		return nil, rerr.NewGraphCorrupt(path, fmt.Sprintf("unsupported version %d", version), nil)
	}

	nodeCount := int(binary.LittleEndian.Uint32(data[12:16]))
	edgeCount := int(binary.LittleEndian.Uint32(data[16:20]))
	nodeTableAt := int(binary.LittleEndian.Uint64(data[20:28]))
	edgeTableAt := int(binary.LittleEndian.Uint64(data[28:36]))
	stringsAt := int(binary.LittleEndian.Uint64(data[36:44]))

	s := &MmapStore{
		data: data, nodeCount: nodeCount, edgeCount: edgeCount,
		nodeTableAt: nodeTableAt, edgeTableAt: edgeTableAt, stringsAt: stringsAt,
		qnToIdx:    make(map[string]uint32, nodeCount),
		fileToIdxs: make(map[string][]uint32, nodeCount),
	}
	for i := 0; i < nodeCount; i++ {
		qn := s.nodeString(i, 8, 12)
		s.qnToIdx[qn] = uint32(i)
		file := s.nodeString(i, 16, 20)
		s.fileToIdxs[file] = append(s.fileToIdxs[file], uint32(i))
	}
	return s, nil
}

func (s *MmapStore) Close() error {
	if s.data == nil {
		return nil
	}
	err := unix.Munmap(s.data)
	s.data = nil
	return err
}

func (s *MmapStore) nodeRecordAt(i int) []byte {
	start := s.nodeTableAt + i*diskNodeSize
	return s.data[start : start+diskNodeSize]
}

func (s *MmapStore) nodeString(i int, offField, lenField int) string {
	rec := s.nodeRecordAt(i)
	off := binary.LittleEndian.Uint32(rec[offField : offField+4])
	length := binary.LittleEndian.Uint32(rec[lenField : lenField+4])
	start := s.stringsAt + int(off)
	return string(s.data[start : start+int(length)])
}

func (s *MmapStore) nodeAt(i int) graphmodel.Node {
	rec := s.nodeRecordAt(i)
	kind := rec[4]
	lineStart := int32(binary.LittleEndian.Uint32(rec[24:28]))
	lineEnd := int32(binary.LittleEndian.Uint32(rec[28:32]))
	var nk graphmodel.NodeKind
	switch kind {
	case 0:
		nk = graphmodel.NodeFile
	case 1:
		nk = graphmodel.NodeFunction
	case 2:
		nk = graphmodel.NodeClass
	case 3:
		nk = graphmodel.NodeModule
	}
	return graphmodel.Node{
		ID:            graphmodel.NodeID(i),
		Kind:          nk,
		QualifiedName: s.nodeString(i, 8, 12),
		FilePath:      s.nodeString(i, 16, 20),
		LineStart:     int(lineStart),
		LineEnd:       int(lineEnd),
	}
}

func (s *MmapStore) GetNode(qualifiedName string) (graphmodel.Node, bool) {
	idx, ok := s.qnToIdx[qualifiedName]
	if !ok {
		return graphmodel.Node{}, false
	}
	return s.nodeAt(int(idx)), true
}

func (s *MmapStore) GetFunctionsInFile(filePath string) []graphmodel.Node {
	idxs := s.fileToIdxs[filePath]
	out := make([]graphmodel.Node, 0, len(idxs))
	for _, idx := range idxs {
		n := s.nodeAt(int(idx))
		if n.Kind == graphmodel.NodeFunction {
			out = append(out, n)
		}
	}
	return out
}

func (s *MmapStore) Stats() Stats {
	stats := Stats{TotalNodes: s.nodeCount, TotalEdges: s.edgeCount}
	for i := 0; i < s.nodeCount; i++ {
		switch s.nodeAt(i).Kind {
		case graphmodel.NodeFile:
			stats.TotalFiles++
		case graphmodel.NodeFunction:
			stats.TotalFunctions++
		case graphmodel.NodeClass:
			stats.TotalClasses++
		}
	}
	return stats
}
