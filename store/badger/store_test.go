package badger

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arjunhale/ctxgraph/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func drainNodes(t *testing.T, out <-chan model.Node, errc <-chan error) []model.Node {
	t.Helper()
	var nodes []model.Node
	for n := range out {
		nodes = append(nodes, n)
	}
	require.NoError(t, <-errc)
	return nodes
}

func drainEdges(t *testing.T, out <-chan model.Edge, errc <-chan error) []model.Edge {
	t.Helper()
	var edges []model.Edge
	for e := range out {
		edges = append(edges, e)
	}
	require.NoError(t, <-errc)
	return edges
}

func TestNodeStore_SaveAndFindByID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	n := model.Node{ID: uuid.New(), Label: "Patient", Properties: model.Properties{"name": "Alice"}}
	saved, err := s.Nodes.Save(ctx, n, false)
	require.NoError(t, err)
	assert.Equal(t, n.ID, saved.ID)

	found, ok, err := s.Nodes.FindByID(ctx, n.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Alice", found.Properties["name"])
}

func TestNodeStore_FindByLabel(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := model.Node{ID: uuid.New(), Label: "Patient"}
	b := model.Node{ID: uuid.New(), Label: "Patient"}
	c := model.Node{ID: uuid.New(), Label: "Doctor"}
	for _, n := range []model.Node{a, b, c} {
		_, err := s.Nodes.Save(ctx, n, false)
		require.NoError(t, err)
	}

	out, errc := s.Nodes.FindByLabel(ctx, "Patient")
	nodes := drainNodes(t, out, errc)
	assert.Len(t, nodes, 2)
}

func TestNodeStore_FindByLabel_EmptyStreamsEverything(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := s.Nodes.Save(ctx, model.Node{ID: uuid.New(), Label: "X"}, false)
		require.NoError(t, err)
	}

	out, errc := s.Nodes.FindByLabel(ctx, "")
	assert.Len(t, drainNodes(t, out, errc), 3)
}

func TestNodeStore_DeleteByID_RemovesLabelIndex(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	n := model.Node{ID: uuid.New(), Label: "Patient"}
	_, err := s.Nodes.Save(ctx, n, false)
	require.NoError(t, err)

	require.NoError(t, s.Nodes.DeleteByID(ctx, n.ID))

	_, ok, err := s.Nodes.FindByID(ctx, n.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	out, errc := s.Nodes.FindByLabel(ctx, "Patient")
	assert.Empty(t, drainNodes(t, out, errc))
}

func TestEdgeStore_SaveAndIndexes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := uuid.New()
	b := uuid.New()
	e := model.Edge{ID: uuid.New(), SourceID: a, TargetID: b, RelationType: "TREATS", Weight: 1}
	_, err := s.Edges.Save(ctx, e, false)
	require.NoError(t, err)

	out, errc := s.Edges.FindByNodeID(ctx, a)
	assert.Len(t, drainEdges(t, out, errc), 1)

	out, errc = s.Edges.FindByNodeID(ctx, b)
	assert.Len(t, drainEdges(t, out, errc), 1)

	out, errc = s.Edges.FindByRelationType(ctx, "TREATS")
	assert.Len(t, drainEdges(t, out, errc), 1)

	has, err := s.Edges.FindBySourceTargetType(ctx, a, b, "TREATS")
	require.NoError(t, err)
	assert.True(t, has)

	has, err = s.Edges.FindBySourceTargetType(ctx, a, b, "OTHER")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestEdgeStore_DeleteByNodeID_CascadesBothDirections(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a, b, c := uuid.New(), uuid.New(), uuid.New()
	_, err := s.Edges.Save(ctx, model.Edge{ID: uuid.New(), SourceID: a, TargetID: b, RelationType: "REL", Weight: 1}, false)
	require.NoError(t, err)
	_, err = s.Edges.Save(ctx, model.Edge{ID: uuid.New(), SourceID: c, TargetID: a, RelationType: "REL", Weight: 1}, false)
	require.NoError(t, err)

	require.NoError(t, s.Edges.DeleteByNodeID(ctx, a))

	out, errc := s.Edges.FindByNodeID(ctx, b)
	assert.Empty(t, drainEdges(t, out, errc))
	out, errc = s.Edges.FindByNodeID(ctx, c)
	assert.Empty(t, drainEdges(t, out, errc))
}

func TestChunkStore_FindTopKSimilar(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	near := model.Chunk{ID: uuid.New(), Content: "near", Embedding: []float32{1, 0}}
	far := model.Chunk{ID: uuid.New(), Content: "far", Embedding: []float32{0, 1}}
	for _, c := range []model.Chunk{near, far} {
		_, err := s.Chunks.Save(ctx, c)
		require.NoError(t, err)
	}

	scored, err := s.Chunks.FindTopKSimilar(ctx, []float32{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, scored, 1)
	assert.Equal(t, "near", scored[0].Chunk.Content)
	assert.InDelta(t, 1.0, scored[0].Score, 1e-9)
}

func TestChunkStore_FindByLinkedNodeID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	node := uuid.New()
	c := model.Chunk{ID: uuid.New(), Content: "linked", LinkedNodeID: &node}
	_, err := s.Chunks.Save(ctx, c)
	require.NoError(t, err)

	linked, err := s.Chunks.FindByLinkedNodeID(ctx, node)
	require.NoError(t, err)
	require.Len(t, linked, 1)

	require.NoError(t, s.Chunks.DeleteByLinkedNodeID(ctx, node))
	linked, err = s.Chunks.FindByLinkedNodeID(ctx, node)
	require.NoError(t, err)
	assert.Empty(t, linked)
}

func TestChunkStore_CosineSimilarityHelper(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 2, 3}, []float32{1, 2, 3}), 1e-9)
	assert.Equal(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0}))
	assert.Equal(t, 0.0, cosineSimilarity(nil, nil))
}
