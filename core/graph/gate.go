package graph

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/arjunhale/ctxgraph/model"
)

// Gate wraps a Graph with the fair readers-writer policy the rest of the
// engine actually talks to (G3, spec §4.3). Any number of readers may hold
// shared access concurrently; a pending writer blocks new readers so a
// write cannot be starved. Every write is exclusive and atomic: readers
// observe either the pre- or post-write state, never a partial mutation.
//
// Gate is the only lock in the core. Traversal runs entirely inside one
// critical section and must never call back into the gate while holding
// it — compound writes (insert a node and its edges) take the write lock
// once and release on completion.
type Gate struct {
	mu    sync.RWMutex
	g     *Graph
	stamp atomic.Uint64

	// OptimisticReads enables the lock-free fast path for FindNode: a
	// stamp is observed, the lookup proceeds without the read lock, then
	// the stamp is revalidated. On mismatch the lookup retries under
	// shared access. Off by default per spec §4.3.
	OptimisticReads bool
}

// NewGate wraps g with the concurrency gate. A nil Graph gets a fresh one.
func NewGate(g *Graph) *Gate {
	if g == nil {
		g = New(slog.Default())
	}
	return &Gate{g: g}
}

// Read runs fn under a shared (read) lock. fn must not call back into the
// gate — reentrant locking is not supported and will deadlock.
func (gt *Gate) Read(fn func(g *Graph)) {
	gt.mu.RLock()
	defer gt.mu.RUnlock()
	fn(gt.g)
}

// Write runs fn under an exclusive (write) lock and bumps the gate's
// revision stamp before and after fn, so the stamp is odd while a write is
// in progress and any in-flight optimistic read is invalidated.
func (gt *Gate) Write(fn func(g *Graph)) {
	gt.mu.Lock()
	defer gt.mu.Unlock()
	gt.stamp.Add(1)
	fn(gt.g)
	gt.stamp.Add(1)
}

// FindNode looks up id. When OptimisticReads is enabled it first tries a
// lock-free path: read the stamp, look the node up against the unguarded
// Graph, then confirm the stamp has not changed. A writer racing the
// lookup invalidates the stamp and the call falls back to a normal shared
// read, so the result is always a consistent snapshot.
func (gt *Gate) FindNode(id uuid.UUID) (model.Node, bool) {
	if gt.OptimisticReads {
		before := gt.stamp.Load()
		if before%2 == 0 {
			n, ok := gt.g.FindNode(id)
			if gt.stamp.Load() == before {
				return n, ok
			}
		}
	}

	var n model.Node
	var ok bool
	gt.Read(func(g *Graph) {
		n, ok = g.FindNode(id)
	})
	return n, ok
}

// AddNode inserts n under an exclusive lock.
func (gt *Gate) AddNode(n model.Node) error {
	var err error
	gt.Write(func(g *Graph) { err = g.AddNode(n) })
	return err
}

// AddEdge inserts e under an exclusive lock.
func (gt *Gate) AddEdge(e model.Edge) error {
	var err error
	gt.Write(func(g *Graph) { err = g.AddEdge(e) })
	return err
}

// AddNodesAndEdges performs a compound write — every node, then every
// edge — inside a single exclusive critical section (spec §4.3).
func (gt *Gate) AddNodesAndEdges(nodes []model.Node, edges []model.Edge) error {
	var err error
	gt.Write(func(g *Graph) {
		for _, n := range nodes {
			if e := g.AddNode(n); e != nil && err == nil {
				err = e
			}
		}
		for _, e := range edges {
			if werr := g.AddEdge(e); werr != nil && err == nil {
				err = werr
			}
		}
	})
	return err
}

// RemoveNode removes id and its incident edges under an exclusive lock.
func (gt *Gate) RemoveNode(id uuid.UUID) {
	gt.Write(func(g *Graph) { g.RemoveNode(id) })
}

// RemoveEdge removes id under an exclusive lock.
func (gt *Gate) RemoveEdge(id uuid.UUID) {
	gt.Write(func(g *Graph) { g.RemoveEdge(id) })
}

// NodesByLabel is a read-locked passthrough to Graph.NodesByLabel.
func (gt *Gate) NodesByLabel(label string) []model.Node {
	var out []model.Node
	gt.Read(func(g *Graph) { out = g.NodesByLabel(label) })
	return out
}

// IncidentEdges is a read-locked passthrough to Graph.IncidentEdges.
func (gt *Gate) IncidentEdges(id uuid.UUID, dir model.Direction, relationType string) []model.Edge {
	var out []model.Edge
	gt.Read(func(g *Graph) { out = g.IncidentEdges(id, dir, relationType) })
	return out
}

// EdgeByID is a read-locked passthrough to Graph.EdgeByID.
func (gt *Gate) EdgeByID(id uuid.UUID) (model.Edge, bool) {
	var e model.Edge
	var ok bool
	gt.Read(func(g *Graph) { e, ok = g.EdgeByID(id) })
	return e, ok
}

// Neighbors is a read-locked passthrough to Graph.Neighbors.
func (gt *Gate) Neighbors(id uuid.UUID, depth int) []model.Node {
	var out []model.Node
	gt.Read(func(g *Graph) { out = g.Neighbors(id, depth) })
	return out
}

// NeighborsFiltered is a read-locked passthrough to Graph.NeighborsFiltered.
func (gt *Gate) NeighborsFiltered(id uuid.UUID, relationType string, dir model.Direction) []model.Node {
	var out []model.Node
	gt.Read(func(g *Graph) { out = g.NeighborsFiltered(id, relationType, dir) })
	return out
}

// ShortestPath is a read-locked passthrough to Graph.ShortestPath.
func (gt *Gate) ShortestPath(source, target uuid.UUID) model.PathRecord {
	var p model.PathRecord
	gt.Read(func(g *Graph) { p = g.ShortestPath(source, target) })
	return p
}

// AllPaths is a read-locked passthrough to Graph.AllPaths.
func (gt *Gate) AllPaths(source, target uuid.UUID, maxDepth int) []model.PathRecord {
	var out []model.PathRecord
	gt.Read(func(g *Graph) { out = g.AllPaths(source, target, maxDepth) })
	return out
}

// ExtractSubgraph is a read-locked passthrough to Graph.ExtractSubgraph.
func (gt *Gate) ExtractSubgraph(seedIDs []uuid.UUID, depth int) ([]model.Node, []model.Edge) {
	var nodes []model.Node
	var edges []model.Edge
	gt.Read(func(g *Graph) { nodes, edges = g.ExtractSubgraph(seedIDs, depth) })
	return nodes, edges
}

// NodeCount is a read-locked passthrough to Graph.NodeCount.
func (gt *Gate) NodeCount() int {
	var n int
	gt.Read(func(g *Graph) { n = g.NodeCount() })
	return n
}

// EdgeCount is a read-locked passthrough to Graph.EdgeCount.
func (gt *Gate) EdgeCount() int {
	var n int
	gt.Read(func(g *Graph) { n = g.EdgeCount() })
	return n
}
