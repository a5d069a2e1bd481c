package graph

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arjunhale/ctxgraph/model"
)

func mustNode(t *testing.T, g *Graph, label string) model.Node {
	t.Helper()
	n := model.Node{ID: uuid.New(), Label: label}
	require.NoError(t, g.AddNode(n))
	return n
}

func mustEdge(t *testing.T, g *Graph, src, tgt uuid.UUID, relType string, weight float64) model.Edge {
	t.Helper()
	e := model.Edge{ID: uuid.New(), SourceID: src, TargetID: tgt, RelationType: relType, Weight: weight}
	require.NoError(t, g.AddEdge(e))
	return e
}

func TestGraph_Neighbors_DepthUnion(t *testing.T) {
	// spec §8 property 5: neighbors(n, d) == union of neighbors(n, k) for 1<=k<=d
	g := New(nil)
	a := mustNode(t, g, "A")
	b := mustNode(t, g, "B")
	c := mustNode(t, g, "C")
	mustEdge(t, g, a.ID, b.ID, "REL", 1)
	mustEdge(t, g, b.ID, c.ID, "REL", 1)

	n1 := g.Neighbors(a.ID, 1)
	n2 := g.Neighbors(a.ID, 2)

	ids1 := idSet(n1)
	ids2 := idSet(n2)

	assert.True(t, ids1[b.ID])
	assert.False(t, ids1[c.ID], "C is 2 hops away, not 1")
	assert.True(t, ids2[b.ID])
	assert.True(t, ids2[c.ID])
}

func idSet(nodes []model.Node) map[uuid.UUID]bool {
	out := make(map[uuid.UUID]bool, len(nodes))
	for _, n := range nodes {
		out[n.ID] = true
	}
	return out
}

func TestGraph_ShortestPath_MinimalWeight(t *testing.T) {
	// spec §8 property 4
	g := New(nil)
	s := mustNode(t, g, "S")
	mid := mustNode(t, g, "M")
	tgt := mustNode(t, g, "T")

	mustEdge(t, g, s.ID, tgt.ID, "DIRECT", 10)
	mustEdge(t, g, s.ID, mid.ID, "HOP1", 1)
	mustEdge(t, g, mid.ID, tgt.ID, "HOP2", 1)

	p := g.ShortestPath(s.ID, tgt.ID)
	require.True(t, p.Found())
	assert.Equal(t, 2.0, p.TotalWeight)
	assert.Equal(t, []uuid.UUID{s.ID, mid.ID, tgt.ID}, p.NodeIDs)
}

func TestGraph_ShortestPath_NoPath(t *testing.T) {
	g := New(nil)
	s := mustNode(t, g, "S")
	tgt := mustNode(t, g, "T")

	p := g.ShortestPath(s.ID, tgt.ID)
	assert.False(t, p.Found())
}

func TestGraph_ShortestPath_UnknownEndpoint(t *testing.T) {
	g := New(nil)
	s := mustNode(t, g, "S")

	p := g.ShortestPath(s.ID, uuid.New())
	assert.False(t, p.Found())
}

func TestGraph_AllPaths_RespectsMaxDepth(t *testing.T) {
	g := New(nil)
	a := mustNode(t, g, "A")
	b := mustNode(t, g, "B")
	c := mustNode(t, g, "C")
	mustEdge(t, g, a.ID, b.ID, "R", 1)
	mustEdge(t, g, b.ID, c.ID, "R", 1)

	paths := g.AllPaths(a.ID, c.ID, 1)
	assert.Empty(t, paths, "C is 2 hops away, unreachable within max_depth=1")

	paths = g.AllPaths(a.ID, c.ID, 2)
	require.Len(t, paths, 1)
	assert.Equal(t, []uuid.UUID{a.ID, b.ID, c.ID}, paths[0].NodeIDs)
}

func TestGraph_ExtractSubgraph(t *testing.T) {
	g := New(nil)
	a := mustNode(t, g, "A")
	b := mustNode(t, g, "B")
	c := mustNode(t, g, "C")
	outside := mustNode(t, g, "D")
	mustEdge(t, g, a.ID, b.ID, "R", 1)
	mustEdge(t, g, b.ID, c.ID, "R", 1)
	mustEdge(t, g, c.ID, outside.ID, "R", 1)

	nodes, edges := g.ExtractSubgraph([]uuid.UUID{a.ID}, 2)

	ids := idSet(nodes)
	assert.True(t, ids[a.ID])
	assert.True(t, ids[b.ID])
	assert.True(t, ids[c.ID])
	assert.False(t, ids[outside.ID], "D is 3 hops away, outside depth=2")
	assert.Len(t, edges, 2, "only edges with both endpoints in the subgraph are included")
}

func TestGraph_TolerantIngestion_StubVertex(t *testing.T) {
	g := New(nil)
	src := uuid.New()
	tgt := uuid.New()

	err := g.AddEdge(model.Edge{ID: uuid.New(), SourceID: src, TargetID: tgt, RelationType: "REL"})
	require.NoError(t, err)

	n, ok := g.FindNode(src)
	require.True(t, ok, "tolerant ingestion creates the missing endpoint as a stub vertex")
	assert.Equal(t, "", n.Label)
}

func TestGraph_SelfLoop(t *testing.T) {
	g := New(nil)
	a := mustNode(t, g, "A")
	e := mustEdge(t, g, a.ID, a.ID, "SELF", 1)

	out := g.IncidentEdges(a.ID, model.DirectionOut, "")
	in := g.IncidentEdges(a.ID, model.DirectionIn, "")

	assert.Contains(t, edgeIDs(out), e.ID)
	assert.Contains(t, edgeIDs(in), e.ID)
}

func edgeIDs(edges []model.Edge) []uuid.UUID {
	out := make([]uuid.UUID, len(edges))
	for i, e := range edges {
		out[i] = e.ID
	}
	return out
}
