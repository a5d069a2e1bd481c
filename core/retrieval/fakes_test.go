package retrieval

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/arjunhale/ctxgraph/model"
)

// fakeEmbedder and fakeChunkStore let R1/R3 tests exercise the semantic
// path without a real embedding model or database.
type fakeEmbedder struct {
	vector []float32
	fail   bool
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.fail {
		return nil, errors.New("embedder unavailable")
	}
	return f.vector, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vector
	}
	return out, nil
}

func (f *fakeEmbedder) Dimension() int { return len(f.vector) }

type fakeChunkStore struct {
	topK         []model.ScoredChunk
	byLinkedNode map[uuid.UUID][]model.Chunk
	fail         bool
}

func newFakeChunkStore() *fakeChunkStore {
	return &fakeChunkStore{byLinkedNode: make(map[uuid.UUID][]model.Chunk)}
}

func (f *fakeChunkStore) Save(ctx context.Context, c model.Chunk) (model.Chunk, error) { return c, nil }

func (f *fakeChunkStore) FindTopKSimilar(ctx context.Context, query []float32, k int) ([]model.ScoredChunk, error) {
	if f.fail {
		return nil, errors.New("chunk store unavailable")
	}
	if k < len(f.topK) {
		return f.topK[:k], nil
	}
	return f.topK, nil
}

func (f *fakeChunkStore) FindTopKSimilarWithLabel(ctx context.Context, query []float32, label string, k int) ([]model.ScoredChunk, error) {
	return f.FindTopKSimilar(ctx, query, k)
}

func (f *fakeChunkStore) FindByLinkedNodeID(ctx context.Context, id uuid.UUID) ([]model.Chunk, error) {
	return f.byLinkedNode[id], nil
}

func (f *fakeChunkStore) DeleteByLinkedNodeID(ctx context.Context, id uuid.UUID) error { return nil }
func (f *fakeChunkStore) DeleteAll(ctx context.Context) error                         { return nil }
