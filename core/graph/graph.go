package graph

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/arjunhale/ctxgraph/model"
)

// Graph is the in-memory directed, weighted pseudograph (G2). It permits
// parallel edges and self-loops and owns every index over node and edge
// records. Graph itself performs no locking — Gate wraps it with the fair
// readers-writer policy the engine actually uses; Graph is exercised
// directly only by tests and by Gate's own critical sections.
type Graph struct {
	log *slog.Logger

	nodeByID   map[uuid.UUID]model.Node
	labelIndex map[string]map[uuid.UUID]struct{}
	edgeByID   map[uuid.UUID]model.Edge
	outEdges   map[uuid.UUID]map[uuid.UUID]struct{} // node id -> edge ids where node is source
	inEdges    map[uuid.UUID]map[uuid.UUID]struct{} // node id -> edge ids where node is target
}

// New returns an empty Graph. A nil logger is replaced with slog.Default().
func New(log *slog.Logger) *Graph {
	if log == nil {
		log = slog.Default()
	}
	return &Graph{
		log:        log,
		nodeByID:   make(map[uuid.UUID]model.Node),
		labelIndex: make(map[string]map[uuid.UUID]struct{}),
		edgeByID:   make(map[uuid.UUID]model.Edge),
		outEdges:   make(map[uuid.UUID]map[uuid.UUID]struct{}),
		inEdges:    make(map[uuid.UUID]map[uuid.UUID]struct{}),
	}
}

// AddNode inserts n, or replaces the existing record with the same id,
// removing the stale label-index entry first (spec §4.2).
func (g *Graph) AddNode(n model.Node) error {
	if n.ID == uuid.Nil {
		return model.NewError(model.ErrorKindInvalidInput, "add_node", errNodeField("id"))
	}
	if n.Label == "" {
		return model.NewError(model.ErrorKindInvalidInput, "add_node", errNodeField("label"))
	}

	if prev, ok := g.nodeByID[n.ID]; ok && prev.Label != n.Label {
		g.removeFromLabelIndex(prev.Label, n.ID)
	}

	g.nodeByID[n.ID] = n
	g.addToLabelIndex(n.Label, n.ID)
	return nil
}

func (g *Graph) addToLabelIndex(label string, id uuid.UUID) {
	set, ok := g.labelIndex[label]
	if !ok {
		set = make(map[uuid.UUID]struct{})
		g.labelIndex[label] = set
	}
	set[id] = struct{}{}
}

func (g *Graph) removeFromLabelIndex(label string, id uuid.UUID) {
	set, ok := g.labelIndex[label]
	if !ok {
		return
	}
	delete(set, id)
	if len(set) == 0 {
		delete(g.labelIndex, label)
	}
}

// stubNode creates an attribute-less vertex for the tolerant-ingestion rule
// (spec §4.2): add_edge referencing an unknown endpoint creates it rather
// than failing.
func (g *Graph) stubNode(id uuid.UUID) model.Node {
	n := model.Node{ID: id, Label: "", Properties: model.Properties{}}
	g.nodeByID[id] = n
	g.log.Warn("tolerant ingestion: created stub vertex for unknown edge endpoint", slog.String("node_id", id.String()))
	return n
}

// AddEdge inserts e. Either endpoint missing from the graph is created as a
// bare vertex with no attributes (tolerant ingestion, logged as a warning).
// Weight defaults to 1.0 if unset.
func (g *Graph) AddEdge(e model.Edge) error {
	if e.ID == uuid.Nil {
		return model.NewError(model.ErrorKindInvalidInput, "add_edge", errNodeField("id"))
	}
	if e.SourceID == uuid.Nil || e.TargetID == uuid.Nil {
		return model.NewError(model.ErrorKindInvalidInput, "add_edge", errNodeField("source_id/target_id"))
	}

	if _, ok := g.nodeByID[e.SourceID]; !ok {
		g.stubNode(e.SourceID)
	}
	if _, ok := g.nodeByID[e.TargetID]; !ok {
		g.stubNode(e.TargetID)
	}

	e.Weight = e.NormalizedWeight()
	g.edgeByID[e.ID] = e

	g.indexEdge(e.SourceID, e.ID, g.outEdges)
	g.indexEdge(e.TargetID, e.ID, g.inEdges)
	return nil
}

func (g *Graph) indexEdge(nodeID, edgeID uuid.UUID, index map[uuid.UUID]map[uuid.UUID]struct{}) {
	set, ok := index[nodeID]
	if !ok {
		set = make(map[uuid.UUID]struct{})
		index[nodeID] = set
	}
	set[edgeID] = struct{}{}
}

// RemoveNode removes n and every incident edge from every index (spec §4.2).
func (g *Graph) RemoveNode(id uuid.UUID) {
	n, ok := g.nodeByID[id]
	if !ok {
		return
	}

	for edgeID := range g.outEdges[id] {
		g.removeEdgeUnlocked(edgeID)
	}
	for edgeID := range g.inEdges[id] {
		g.removeEdgeUnlocked(edgeID)
	}
	delete(g.outEdges, id)
	delete(g.inEdges, id)

	g.removeFromLabelIndex(n.Label, id)
	delete(g.nodeByID, id)
}

// RemoveEdge removes the edge with the given id, if present.
func (g *Graph) RemoveEdge(id uuid.UUID) {
	g.removeEdgeUnlocked(id)
}

func (g *Graph) removeEdgeUnlocked(id uuid.UUID) {
	e, ok := g.edgeByID[id]
	if !ok {
		return
	}
	delete(g.edgeByID, id)
	if set, ok := g.outEdges[e.SourceID]; ok {
		delete(set, id)
	}
	if set, ok := g.inEdges[e.TargetID]; ok {
		delete(set, id)
	}
}

// FindNode returns the node with the given id, if present.
func (g *Graph) FindNode(id uuid.UUID) (model.Node, bool) {
	n, ok := g.nodeByID[id]
	return n, ok
}

// NodesByLabel returns every node with the given label, order unspecified.
func (g *Graph) NodesByLabel(label string) []model.Node {
	ids := g.labelIndex[label]
	out := make([]model.Node, 0, len(ids))
	for id := range ids {
		out = append(out, g.nodeByID[id])
	}
	return out
}

// IncidentEdges returns the edges incident to id in the given direction,
// optionally filtered by relation type. Self-loops appear for both IN and
// OUT direction queries (spec §4.2 edge cases).
func (g *Graph) IncidentEdges(id uuid.UUID, dir model.Direction, relationType string) []model.Edge {
	var out []model.Edge
	seen := make(map[uuid.UUID]struct{})

	add := func(edgeIDs map[uuid.UUID]struct{}) {
		for edgeID := range edgeIDs {
			if _, dup := seen[edgeID]; dup {
				continue
			}
			e, ok := g.edgeByID[edgeID]
			if !ok {
				continue
			}
			if relationType != "" && e.RelationType != relationType {
				continue
			}
			seen[edgeID] = struct{}{}
			out = append(out, e)
		}
	}

	if dir == model.DirectionOut || dir == model.DirectionBoth {
		add(g.outEdges[id])
	}
	if dir == model.DirectionIn || dir == model.DirectionBoth {
		add(g.inEdges[id])
	}
	return out
}

// EdgeByID returns the edge with the given id, if present in G2's index.
func (g *Graph) EdgeByID(id uuid.UUID) (model.Edge, bool) {
	e, ok := g.edgeByID[id]
	return e, ok
}

// NodeCount returns the number of distinct nodes currently indexed.
func (g *Graph) NodeCount() int { return len(g.nodeByID) }

// EdgeCount returns the number of distinct edges currently indexed.
func (g *Graph) EdgeCount() int { return len(g.edgeByID) }

func errNodeField(field string) error {
	return fmt.Errorf("%s is required", field)
}
