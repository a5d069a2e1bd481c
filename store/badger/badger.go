// Package badger adapts the core/store capability contracts (NodeStore,
// EdgeStore, ChunkStore) onto an embedded BadgerDB instance. It is the
// dependency-free default durable store: a single process directory,
// no external database to stand up.
//
// Key layout mirrors the teacher's single-byte-prefix convention:
//
//	0x01 + nodeID                      -> JSON(Node)
//	0x02 + edgeID                      -> JSON(Edge)
//	0x03 + label + 0x00 + nodeID       -> {}
//	0x04 + nodeID + 0x00 + edgeID      -> {}  (outgoing index)
//	0x05 + nodeID + 0x00 + edgeID      -> {}  (incoming index)
//	0x06 + relationType + 0x00 + edgeID -> {} (relation-type index)
//	0x07 + chunkID                     -> JSON(Chunk)
//	0x08 + nodeID + 0x00 + chunkID     -> {}  (chunk-by-linked-node index)
package badger

import (
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"github.com/arjunhale/ctxgraph/core/store"
)

var (
	_ store.NodeStore  = (*NodeStore)(nil)
	_ store.EdgeStore  = (*EdgeStore)(nil)
	_ store.ChunkStore = (*ChunkStore)(nil)
)

const (
	prefixNode             = byte(0x01)
	prefixEdge             = byte(0x02)
	prefixLabelIndex       = byte(0x03)
	prefixOutgoingIndex    = byte(0x04)
	prefixIncomingIndex    = byte(0x05)
	prefixRelationTypeIdx  = byte(0x06)
	prefixChunk            = byte(0x07)
	prefixChunkByLinkedIdx = byte(0x08)
)

// Store owns a single BadgerDB instance shared by its Nodes, Edges, and
// Chunks facets. The three facets are distinct types — not one type with
// every method — because the store.NodeStore/EdgeStore/ChunkStore
// contracts all name a Save/FindByID/DeleteByID/DeleteAll method and a
// single receiver can't implement all three at once (spec §6).
type Store struct {
	db  *badger.DB
	log *slog.Logger

	Nodes  *NodeStore
	Edges  *EdgeStore
	Chunks *ChunkStore
}

// Options configures a Store.
type Options struct {
	// Dir is the directory Badger persists to. Required unless InMemory.
	Dir string
	// InMemory runs Badger with no on-disk footprint, for tests.
	InMemory bool
	Logger   *slog.Logger
}

// Open creates or reopens a BadgerDB-backed Store at opts.Dir.
func Open(opts Options) (*Store, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	badgerOpts := badger.DefaultOptions(opts.Dir).WithLogger(nil)
	if opts.InMemory {
		badgerOpts = badgerOpts.WithInMemory(true)
	}

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db, log: log}
	s.Nodes = &NodeStore{db: db}
	s.Edges = &EdgeStore{db: db}
	s.Chunks = &ChunkStore{db: db}
	return s, nil
}

// OpenInMemory is a convenience wrapper for tests that need persistence
// semantics without touching disk.
func OpenInMemory() (*Store, error) {
	return Open(Options{InMemory: true})
}

// Close releases the underlying BadgerDB handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func nodeKey(id string) []byte { return append([]byte{prefixNode}, id...) }
func edgeKey(id string) []byte { return append([]byte{prefixEdge}, id...) }
func chunkKey(id string) []byte { return append([]byte{prefixChunk}, id...) }

func labelIndexKey(label, nodeID string) []byte {
	key := make([]byte, 0, 1+len(label)+1+len(nodeID))
	key = append(key, prefixLabelIndex)
	key = append(key, label...)
	key = append(key, 0x00)
	key = append(key, nodeID...)
	return key
}

func labelIndexPrefix(label string) []byte {
	key := make([]byte, 0, 1+len(label)+1)
	key = append(key, prefixLabelIndex)
	key = append(key, label...)
	key = append(key, 0x00)
	return key
}

func outgoingIndexKey(nodeID, edgeID string) []byte {
	key := make([]byte, 0, 1+len(nodeID)+1+len(edgeID))
	key = append(key, prefixOutgoingIndex)
	key = append(key, nodeID...)
	key = append(key, 0x00)
	key = append(key, edgeID...)
	return key
}

func outgoingIndexPrefix(nodeID string) []byte {
	key := make([]byte, 0, 1+len(nodeID)+1)
	key = append(key, prefixOutgoingIndex)
	key = append(key, nodeID...)
	key = append(key, 0x00)
	return key
}

func incomingIndexKey(nodeID, edgeID string) []byte {
	key := make([]byte, 0, 1+len(nodeID)+1+len(edgeID))
	key = append(key, prefixIncomingIndex)
	key = append(key, nodeID...)
	key = append(key, 0x00)
	key = append(key, edgeID...)
	return key
}

func incomingIndexPrefix(nodeID string) []byte {
	key := make([]byte, 0, 1+len(nodeID)+1)
	key = append(key, prefixIncomingIndex)
	key = append(key, nodeID...)
	key = append(key, 0x00)
	return key
}

func relationTypeIndexKey(relationType, edgeID string) []byte {
	key := make([]byte, 0, 1+len(relationType)+1+len(edgeID))
	key = append(key, prefixRelationTypeIdx)
	key = append(key, relationType...)
	key = append(key, 0x00)
	key = append(key, edgeID...)
	return key
}

func relationTypeIndexPrefix(relationType string) []byte {
	key := make([]byte, 0, 1+len(relationType)+1)
	key = append(key, prefixRelationTypeIdx)
	key = append(key, relationType...)
	key = append(key, 0x00)
	return key
}

func chunkByLinkedIndexKey(nodeID, chunkID string) []byte {
	key := make([]byte, 0, 1+len(nodeID)+1+len(chunkID))
	key = append(key, prefixChunkByLinkedIdx)
	key = append(key, nodeID...)
	key = append(key, 0x00)
	key = append(key, chunkID...)
	return key
}

func chunkByLinkedIndexPrefix(nodeID string) []byte {
	key := make([]byte, 0, 1+len(nodeID)+1)
	key = append(key, prefixChunkByLinkedIdx)
	key = append(key, nodeID...)
	key = append(key, 0x00)
	return key
}

// extractSuffix returns the bytes after the 0x00 separator of an indexed key
// built by one of the *IndexKey helpers above.
func extractSuffix(key []byte) string {
	for i := 1; i < len(key); i++ {
		if key[i] == 0x00 {
			return string(key[i+1:])
		}
	}
	return ""
}
