package ctxgraph

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arjunhale/ctxgraph/model"
	"github.com/arjunhale/ctxgraph/store/badger"
)

// fakeEmbedder produces a deterministic embedding from text length, enough
// to exercise the semantic retrieval path without a real model.
type fakeEmbedder struct{ dim int }

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	out := make([]float32, f.dim)
	for i := range out {
		out[i] = float32((len(text) + i) % 7)
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i], _ = f.Embed(context.Background(), t)
	}
	return out, nil
}

func (f *fakeEmbedder) Dimension() int { return f.dim }

func initEngine(t *testing.T) (*Engine, *badger.Store) {
	t.Helper()
	s, err := badger.OpenInMemory()
	require.NoError(t, err, "failed to open in-memory badger store")
	t.Cleanup(func() { s.Close() })

	e, err := New(context.Background(), Options{
		Nodes:    s.Nodes,
		Edges:    s.Edges,
		Chunks:   s.Chunks,
		Embedder: &fakeEmbedder{dim: 8},
		RelationTypes: []model.RelationType{
			{Name: "MENTIONS", SourceLabel: "Document", TargetLabel: "Entity", Directed: true},
		},
	})
	require.NoError(t, err, "failed to create engine")
	require.NotNil(t, e)
	return e, s
}

func TestNew(t *testing.T) {
	e, _ := initEngine(t)
	assert.NotNil(t, e.Registry)
	assert.NotNil(t, e.Gate)
	assert.NotNil(t, e.Coordinator)
	assert.NotNil(t, e.Retriever)
	assert.NotNil(t, e.Assembler)
}

func TestEngine_UpsertNodeAndRetrieve(t *testing.T) {
	e, s := initEngine(t)
	ctx := context.Background()

	n := model.Node{
		ID:                  uuid.New(),
		Label:               "Entity",
		VectorizableContent: "Alice",
		Properties:          model.Properties{"name": "Alice"},
	}
	saved, err := e.UpsertNode(ctx, n, false)
	require.NoError(t, err)
	assert.Equal(t, n.ID, saved.ID)

	// A chunk carrying the query text and linked to the node, so R1's
	// embedding-based seed resolution has something to match against — the
	// coordinator never mirrors chunks, so this is written directly.
	embedder := &fakeEmbedder{dim: 8}
	vec, err := embedder.Embed(ctx, "Alice")
	require.NoError(t, err)
	_, err = s.Chunks.Save(ctx, model.Chunk{
		ID:           uuid.New(),
		Content:      "Alice",
		Embedding:    vec,
		LinkedNodeID: &n.ID,
	})
	require.NoError(t, err)

	req := model.RetrievalRequest{Query: "Alice"}.WithDefaults()
	result, err := e.Retrieve(ctx, req)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.False(t, result.Empty)
}

func TestEngine_UpsertEdgeAndDeleteNode(t *testing.T) {
	e, _ := initEngine(t)
	ctx := context.Background()

	a := model.Node{ID: uuid.New(), Label: "Entity", VectorizableContent: "A"}
	b := model.Node{ID: uuid.New(), Label: "Entity", VectorizableContent: "B"}
	_, err := e.UpsertNode(ctx, a, false)
	require.NoError(t, err)
	_, err = e.UpsertNode(ctx, b, false)
	require.NoError(t, err)

	edge := model.Edge{ID: uuid.New(), SourceID: a.ID, TargetID: b.ID, RelationType: "MENTIONS", Weight: 1}
	savedEdge, err := e.UpsertEdge(ctx, edge, false)
	require.NoError(t, err)
	assert.Equal(t, edge.ID, savedEdge.ID)

	neighbors := e.Coordinator.Neighbors(a.ID, 1)
	require.Len(t, neighbors, 1)
	assert.Equal(t, b.ID, neighbors[0].ID)

	require.NoError(t, e.DeleteNode(ctx, a.ID))
	_, found := e.Coordinator.FindNode(a.ID)
	assert.False(t, found, "expected node to be gone from the in-memory graph after delete")
}

func TestEngine_AssembleContext(t *testing.T) {
	e, s := initEngine(t)
	ctx := context.Background()

	n := model.Node{ID: uuid.New(), Label: "Entity", VectorizableContent: "Widget"}
	_, err := e.UpsertNode(ctx, n, false)
	require.NoError(t, err)

	embedder := &fakeEmbedder{dim: 8}
	vec, err := embedder.Embed(ctx, "Widget")
	require.NoError(t, err)
	_, err = s.Chunks.Save(ctx, model.Chunk{
		ID:           uuid.New(),
		Content:      "Widget",
		Embedding:    vec,
		LinkedNodeID: &n.ID,
	})
	require.NoError(t, err)

	req := model.RetrievalRequest{Query: "Widget"}.WithDefaults()
	result, err := e.Retrieve(ctx, req)
	require.NoError(t, err)

	text := e.AssembleContext(*result, 500)
	assert.NotEmpty(t, text)
}
