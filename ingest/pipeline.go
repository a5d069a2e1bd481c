package ingest

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/arjunhale/ctxgraph/core/store"
	"github.com/arjunhale/ctxgraph/model"
)

// Pipeline turns a raw document into Nodes, Edges, and Chunks and writes
// them through the dual-write coordinator (nodes/edges) and the chunk store
// (chunks have no in-memory mirror — spec §4.4 only bridges NodeStore/
// EdgeStore to G2). It is the adapted, graph-shaped descendant of the
// teacher's core/pipeline.Pipeline, which wrote entity/document/chunk rows
// straight to SQL handlers instead.
type Pipeline struct {
	log *slog.Logger

	chunk            ChunkFunc
	embedder         store.Embedder
	extractEntities  EntityExtractFunc
	extractRelations RelationExtractFunc

	coordinator *store.Coordinator
	chunks      store.ChunkStore

	// NodeLabel is the label given to a node minted from an extracted
	// entity whose Candidate.Type is empty; otherwise Candidate.Type
	// becomes the label.
	NodeLabel string
}

// Options configures a Pipeline. Chunk, Embedder, Coordinator, and Chunks
// are required; ExtractEntities/ExtractRelations may be nil, in which case
// Ingest only persists chunks (useful when a deployment wants semantic
// retrieval without graph extraction).
type Options struct {
	Chunk            ChunkFunc
	Embedder         store.Embedder
	ExtractEntities  EntityExtractFunc
	ExtractRelations RelationExtractFunc
	Coordinator      *store.Coordinator
	Chunks           store.ChunkStore
	Log              *slog.Logger
}

// New builds a Pipeline from opts.
func New(opts Options) *Pipeline {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{
		log:              log,
		chunk:            opts.Chunk,
		embedder:         opts.Embedder,
		extractEntities:  opts.ExtractEntities,
		extractRelations: opts.ExtractRelations,
		coordinator:      opts.Coordinator,
		chunks:           opts.Chunks,
	}
}

// Result summarizes what Ingest wrote.
type Result struct {
	ChunksWritten int
	NodesWritten  int
	EdgesWritten  int
}

// Ingest chunks text, embeds and persists each chunk, extracts entities and
// relations per chunk when extractors are configured, and writes the
// resulting nodes/edges through the coordinator. Entity names are deduped
// across the whole document (not just within a chunk) so two chunks
// mentioning "Acme Corp" collapse onto the same node.
func (p *Pipeline) Ingest(ctx context.Context, text string) (Result, error) {
	chunks, err := p.chunk(text)
	if err != nil {
		return Result{}, model.NewError(model.ErrorKindInvalidInput, "ingest: chunk", err)
	}

	var result Result
	nodeIDs := make(map[string]uuid.UUID) // "name|type" -> node id, document-scoped

	for _, c := range chunks {
		if p.embedder != nil {
			vec, err := p.embedder.Embed(ctx, c.Content)
			if err != nil {
				return result, model.NewError(model.ErrorKindEmbedderUnavailable, "ingest: embed chunk", err)
			}
			c.Embedding = vec
		}

		var entities []Candidate
		if p.extractEntities != nil {
			entities, err = p.extractEntities(c.Content)
			if err != nil {
				p.log.Warn("entity extraction failed, chunk kept without graph links",
					slog.String("error", err.Error()))
				entities = nil
			}
		}

		chunkNodeIDs, err := p.resolveEntities(ctx, entities, nodeIDs, &result)
		if err != nil {
			return result, err
		}
		if len(chunkNodeIDs) > 0 {
			c.LinkedNodeID = &chunkNodeIDs[0]
		}

		if p.extractRelations != nil && len(entities) > 0 {
			relations, err := p.extractRelations(c.Content, entities)
			if err != nil {
				p.log.Warn("relation extraction failed, nodes kept without new edges",
					slog.String("error", err.Error()))
				relations = nil
			}
			if err := p.writeRelations(ctx, relations, nodeIDs, &result); err != nil {
				return result, err
			}
		}

		if _, err := p.chunks.Save(ctx, c); err != nil {
			return result, model.NewError(model.ErrorKindStoreUnavailable, "ingest: save chunk", err)
		}
		result.ChunksWritten++
	}

	return result, nil
}

func (p *Pipeline) resolveEntities(ctx context.Context, entities []Candidate, nodeIDs map[string]uuid.UUID, result *Result) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(entities))
	for _, c := range entities {
		key := candidateKey(c)
		if id, ok := nodeIDs[key]; ok {
			ids = append(ids, id)
			continue
		}

		label := c.Type
		if label == "" {
			label = p.NodeLabel
		}
		n := model.Node{
			ID:                  uuid.New(),
			Label:               label,
			VectorizableContent: c.Name,
			Properties: model.Properties{
				"name":       c.Name,
				"confidence": c.Confidence,
			},
		}
		saved, err := p.coordinator.UpsertNode(ctx, n, false)
		if err != nil {
			return nil, model.NewError(model.ErrorKindStoreUnavailable, "ingest: upsert entity node", err)
		}
		nodeIDs[key] = saved.ID
		ids = append(ids, saved.ID)
		result.NodesWritten++
	}
	return ids, nil
}

func (p *Pipeline) writeRelations(ctx context.Context, relations []RelationCandidate, nodeIDs map[string]uuid.UUID, result *Result) error {
	for _, r := range relations {
		sourceID, sourceOK := nodeIDs[r.SourceName]
		targetID, targetOK := nodeIDs[r.TargetName]
		if !sourceOK || !targetOK || sourceID == targetID {
			continue
		}

		e := model.Edge{
			ID:           uuid.New(),
			SourceID:     sourceID,
			TargetID:     targetID,
			RelationType: r.RelationType,
			Weight:       r.Weight,
		}
		if _, err := p.coordinator.UpsertEdge(ctx, e, false); err != nil {
			return model.NewError(model.ErrorKindStoreUnavailable, "ingest: upsert relation edge", err)
		}
		result.EdgesWritten++
	}
	return nil
}

// candidateKey dedupes strictly by name: RelationCandidate carries bare
// names with no type information, so the node lookup on the relation side
// must use the same key a name-only match can produce.
func candidateKey(c Candidate) string {
	return c.Name
}
