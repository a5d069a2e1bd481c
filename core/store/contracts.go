// Package store defines the capability contracts the core consumes for
// durable persistence (NodeStore, EdgeStore, ChunkStore, §6) and the
// dual-write coordinator (G4, §4.4) that bridges them to the in-memory
// graph.
package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/arjunhale/ctxgraph/model"
)

// NodeStore persists Node records. Save must preserve a caller-supplied id
// when existing is true, rather than generating a new one (spec §6).
type NodeStore interface {
	Save(ctx context.Context, n model.Node, existing bool) (model.Node, error)
	SaveAll(ctx context.Context, nodes []model.Node) ([]model.Node, error)
	FindByID(ctx context.Context, id uuid.UUID) (model.Node, bool, error)
	FindByLabel(ctx context.Context, label string) (<-chan model.Node, <-chan error)
	DeleteByID(ctx context.Context, id uuid.UUID) error
	DeleteAll(ctx context.Context) error
}

// EdgeStore persists Edge records.
type EdgeStore interface {
	Save(ctx context.Context, e model.Edge, existing bool) (model.Edge, error)
	SaveAll(ctx context.Context, edges []model.Edge) ([]model.Edge, error)
	FindByID(ctx context.Context, id uuid.UUID) (model.Edge, bool, error)
	FindByNodeID(ctx context.Context, id uuid.UUID) (<-chan model.Edge, <-chan error)
	FindByRelationType(ctx context.Context, name string) (<-chan model.Edge, <-chan error)
	FindBySourceTargetType(ctx context.Context, source, target uuid.UUID, name string) (bool, error)
	DeleteByID(ctx context.Context, id uuid.UUID) error
	DeleteByNodeID(ctx context.Context, id uuid.UUID) error
	DeleteAll(ctx context.Context) error
}

// ChunkStore persists Chunk records and serves cosine-similarity search over
// their embeddings.
type ChunkStore interface {
	Save(ctx context.Context, c model.Chunk) (model.Chunk, error)
	FindTopKSimilar(ctx context.Context, query []float32, k int) ([]model.ScoredChunk, error)
	FindTopKSimilarWithLabel(ctx context.Context, query []float32, label string, k int) ([]model.ScoredChunk, error)
	FindByLinkedNodeID(ctx context.Context, id uuid.UUID) ([]model.Chunk, error)
	DeleteByLinkedNodeID(ctx context.Context, id uuid.UUID) error
	DeleteAll(ctx context.Context) error
}

// Embedder converts text to fixed-dimension vectors. D is fixed per
// deployment and must match the ChunkStore's declared dimension (spec §6).
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}
