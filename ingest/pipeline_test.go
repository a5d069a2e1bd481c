package ingest

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arjunhale/ctxgraph/core/graph"
	"github.com/arjunhale/ctxgraph/core/store"
	"github.com/arjunhale/ctxgraph/model"
)

// Minimal in-memory doubles for the durable triple, same shape as
// core/store's own coordinator_test.go fakes — kept local since those are
// unexported to their package.

type fakeNodeStore struct {
	mu   sync.Mutex
	byID map[uuid.UUID]model.Node
}

func newFakeNodeStore() *fakeNodeStore { return &fakeNodeStore{byID: make(map[uuid.UUID]model.Node)} }

func (f *fakeNodeStore) Save(ctx context.Context, n model.Node, existing bool) (model.Node, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	f.byID[n.ID] = n
	return n, nil
}
func (f *fakeNodeStore) SaveAll(ctx context.Context, nodes []model.Node) ([]model.Node, error) {
	out := make([]model.Node, len(nodes))
	for i, n := range nodes {
		out[i], _ = f.Save(ctx, n, true)
	}
	return out, nil
}
func (f *fakeNodeStore) FindByID(ctx context.Context, id uuid.UUID) (model.Node, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.byID[id]
	return n, ok, nil
}
func (f *fakeNodeStore) FindByLabel(ctx context.Context, label string) (<-chan model.Node, <-chan error) {
	out := make(chan model.Node, len(f.byID))
	errCh := make(chan error, 1)
	f.mu.Lock()
	for _, n := range f.byID {
		if label == "" || n.Label == label {
			out <- n
		}
	}
	f.mu.Unlock()
	close(out)
	errCh <- nil
	close(errCh)
	return out, errCh
}
func (f *fakeNodeStore) DeleteByID(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byID, id)
	return nil
}
func (f *fakeNodeStore) DeleteAll(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID = make(map[uuid.UUID]model.Node)
	return nil
}

type fakeEdgeStore struct {
	mu   sync.Mutex
	byID map[uuid.UUID]model.Edge
}

func newFakeEdgeStore() *fakeEdgeStore { return &fakeEdgeStore{byID: make(map[uuid.UUID]model.Edge)} }

func (f *fakeEdgeStore) Save(ctx context.Context, e model.Edge, existing bool) (model.Edge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	f.byID[e.ID] = e
	return e, nil
}
func (f *fakeEdgeStore) SaveAll(ctx context.Context, edges []model.Edge) ([]model.Edge, error) {
	out := make([]model.Edge, len(edges))
	for i, e := range edges {
		out[i], _ = f.Save(ctx, e, true)
	}
	return out, nil
}
func (f *fakeEdgeStore) FindByID(ctx context.Context, id uuid.UUID) (model.Edge, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.byID[id]
	return e, ok, nil
}
func (f *fakeEdgeStore) FindByNodeID(ctx context.Context, id uuid.UUID) (<-chan model.Edge, <-chan error) {
	out := make(chan model.Edge, len(f.byID))
	errCh := make(chan error, 1)
	close(out)
	errCh <- nil
	close(errCh)
	return out, errCh
}
func (f *fakeEdgeStore) FindByRelationType(ctx context.Context, name string) (<-chan model.Edge, <-chan error) {
	out := make(chan model.Edge, len(f.byID))
	errCh := make(chan error, 1)
	close(out)
	errCh <- nil
	close(errCh)
	return out, errCh
}
func (f *fakeEdgeStore) FindBySourceTargetType(ctx context.Context, source, target uuid.UUID, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.byID {
		if e.SourceID == source && e.TargetID == target && e.RelationType == name {
			return true, nil
		}
	}
	return false, nil
}
func (f *fakeEdgeStore) DeleteByID(ctx context.Context, id uuid.UUID) error      { return nil }
func (f *fakeEdgeStore) DeleteByNodeID(ctx context.Context, id uuid.UUID) error { return nil }
func (f *fakeEdgeStore) DeleteAll(ctx context.Context) error                    { return nil }

type fakeChunkStore struct {
	mu    sync.Mutex
	saved []model.Chunk
}

func (f *fakeChunkStore) Save(ctx context.Context, c model.Chunk) (model.Chunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, c)
	return c, nil
}
func (f *fakeChunkStore) FindTopKSimilar(ctx context.Context, query []float32, k int) ([]model.ScoredChunk, error) {
	return nil, nil
}
func (f *fakeChunkStore) FindTopKSimilarWithLabel(ctx context.Context, query []float32, label string, k int) ([]model.ScoredChunk, error) {
	return nil, nil
}
func (f *fakeChunkStore) FindByLinkedNodeID(ctx context.Context, id uuid.UUID) ([]model.Chunk, error) {
	return nil, nil
}
func (f *fakeChunkStore) DeleteByLinkedNodeID(ctx context.Context, id uuid.UUID) error { return nil }
func (f *fakeChunkStore) DeleteAll(ctx context.Context) error                         { return nil }

type fakeEmbedder struct{ dim int }

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return make([]float32, f.dim), nil
}
func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, f.dim)
	}
	return out, nil
}
func (f *fakeEmbedder) Dimension() int { return f.dim }

func fakeEntityExtractor(byChunk map[string][]Candidate) EntityExtractFunc {
	return func(text string) ([]Candidate, error) { return byChunk[text], nil }
}

func newTestPipeline(t *testing.T, extractEntities EntityExtractFunc, extractRelations RelationExtractFunc) (*Pipeline, *fakeChunkStore) {
	t.Helper()
	gt := graph.NewGate(nil)
	chunks := &fakeChunkStore{}
	coordinator := store.New(gt, newFakeNodeStore(), newFakeEdgeStore(), chunks, nil)

	p := New(Options{
		Chunk:            ParagraphChunker(),
		Embedder:         &fakeEmbedder{dim: 4},
		ExtractEntities:  extractEntities,
		ExtractRelations: extractRelations,
		Coordinator:      coordinator,
		Chunks:           chunks,
	})
	p.NodeLabel = "Entity"
	return p, chunks
}

func TestPipeline_Ingest_ChunksOnly(t *testing.T) {
	p, chunks := newTestPipeline(t, nil, nil)

	result, err := p.Ingest(context.Background(), "First paragraph.\n\nSecond paragraph.")

	require.NoError(t, err)
	assert.Equal(t, 2, result.ChunksWritten)
	assert.Equal(t, 0, result.NodesWritten)
	assert.Len(t, chunks.saved, 2)
	assert.Len(t, chunks.saved[0].Embedding, 4)
}

func TestPipeline_Ingest_EntitiesAndRelations(t *testing.T) {
	text := "Alice met Bob."
	entities := fakeEntityExtractor(map[string][]Candidate{
		text: {
			{Name: "Alice", Type: "person", Confidence: 0.9},
			{Name: "Bob", Type: "person", Confidence: 0.8},
		},
	})
	relations := func(text string, found []Candidate) ([]RelationCandidate, error) {
		return []RelationCandidate{{SourceName: "Alice", TargetName: "Bob", RelationType: "MET", Weight: 1}}, nil
	}

	p, chunks := newTestPipeline(t, entities, relations)

	result, err := p.Ingest(context.Background(), text)

	require.NoError(t, err)
	assert.Equal(t, 1, result.ChunksWritten)
	assert.Equal(t, 2, result.NodesWritten)
	assert.Equal(t, 1, result.EdgesWritten)
	require.Len(t, chunks.saved, 1)
	assert.NotNil(t, chunks.saved[0].LinkedNodeID)
}

func TestPipeline_Ingest_DedupesEntitiesAcrossChunks(t *testing.T) {
	text := "Acme Corp.\n\nAcme Corp again."
	entities := fakeEntityExtractor(map[string][]Candidate{
		"Acme Corp.":       {{Name: "Acme Corp", Type: "organization"}},
		"Acme Corp again.": {{Name: "Acme Corp", Type: "organization"}},
	})

	p, _ := newTestPipeline(t, entities, nil)

	result, err := p.Ingest(context.Background(), text)

	require.NoError(t, err)
	assert.Equal(t, 1, result.NodesWritten, "the same entity name across chunks must collapse onto one node")
}
