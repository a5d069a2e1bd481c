package retrieval

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/arjunhale/ctxgraph/core/graph"
	"github.com/arjunhale/ctxgraph/core/store"
	"github.com/arjunhale/ctxgraph/model"
)

// Retriever implements R3, the hybrid retriever orchestrating seed
// resolution, structural expansion, and semantic retrieval into a single
// RetrievalResult (spec §4.7).
type Retriever struct {
	log      *slog.Logger
	gate     *graph.Gate
	resolver *Resolver
	executor *Executor
	chunks   store.ChunkStore
	embedder store.Embedder
}

// NewRetriever wires R1-R2 with the chunk store and embedder to build R3.
func NewRetriever(gt *graph.Gate, chunks store.ChunkStore, embedder store.Embedder, log *slog.Logger) *Retriever {
	if log == nil {
		log = slog.Default()
	}
	return &Retriever{
		log:      log,
		gate:     gt,
		resolver: NewResolver(gt, chunks, embedder, log),
		executor: NewExecutor(gt),
		chunks:   chunks,
		embedder: embedder,
	}
}

// Retrieve runs the full R3 pipeline for req (spec §4.7).
func (r *Retriever) Retrieve(ctx context.Context, req model.RetrievalRequest) (*model.RetrievalResult, error) {
	start := time.Now()
	req = req.WithDefaults()

	seeds, err := r.resolver.Resolve(ctx, req)
	if err != nil {
		r.log.Warn("seed resolution degraded", slog.String("error", err.Error()))
	}

	if ctx.Err() != nil {
		return nil, model.NewError(model.ErrorKindCancelled, "retrieve", ctx.Err())
	}

	structuralNodes, matchedPaths, structuralErr := r.runStructural(ctx, req, seeds.IDs())
	if ctx.Err() != nil {
		return nil, model.NewError(model.ErrorKindCancelled, "retrieve", ctx.Err())
	}

	semanticChunks, semanticErr := r.runSemantic(ctx, req)

	if structuralErr != nil && semanticErr != nil {
		return nil, structuralErr
	}

	nodes, chunks, edges, strategy := r.fuse(ctx, req, structuralNodes, semanticChunks, structuralErr, semanticErr)

	result := &model.RetrievalResult{
		Nodes:           nodes,
		Edges:           edges,
		Chunks:          chunks,
		MatchedPaths:    matchedPaths,
		Strategy:        strategy,
		RetrievalTimeMs: time.Since(start).Milliseconds(),
		Empty:           len(nodes) == 0 && len(chunks) == 0,
	}
	if structuralErr != nil {
		result.Warning = "structural expansion degraded: " + structuralErr.Error()
	} else if semanticErr != nil {
		result.Warning = "semantic retrieval degraded: " + semanticErr.Error()
	}
	if result.Empty {
		result.Strategy = model.StrategyEmpty
	}
	return result, nil
}

// runStructural executes stage 2: explicit patterns if the request carries
// a GraphQuery, else a default BOTH-direction expansion to traversal_depth.
func (r *Retriever) runStructural(ctx context.Context, req model.RetrievalRequest, seedIDs []uuid.UUID) ([]model.Node, []model.MatchedPath, error) {
	if len(seedIDs) == 0 {
		return nil, nil, nil
	}

	if patterns := req.Patterns(); len(patterns) > 0 {
		var matched []model.MatchedPath
		nodeSeen := make(map[uuid.UUID]struct{})
		var nodes []model.Node

		for _, p := range patterns {
			if ctx.Err() != nil {
				return nodes, matched, model.NewError(model.ErrorKindCancelled, "structural: pattern execution", ctx.Err())
			}
			paths := r.executor.Execute(p, seedIDs)
			matched = append(matched, paths...)
			for _, path := range paths {
				for _, id := range path.NodeIDs {
					if _, ok := nodeSeen[id]; ok {
						continue
					}
					if n, ok := r.gate.FindNode(id); ok {
						nodeSeen[id] = struct{}{}
						nodes = append(nodes, n)
					}
				}
			}
		}
		return nodes, matched, nil
	}

	nodes, _ := r.gate.ExtractSubgraph(seedIDs, req.TraversalDepth)
	return nodes, nil, nil
}

// runSemantic executes stage 3: embed the query and pull the top_k most
// similar chunks, independent of the structural path.
func (r *Retriever) runSemantic(ctx context.Context, req model.RetrievalRequest) ([]model.ScoredChunk, error) {
	if r.embedder == nil || r.chunks == nil || req.Query == "" {
		return nil, nil
	}

	vec, err := r.embedder.Embed(ctx, req.Query)
	if err != nil {
		return nil, model.NewError(model.ErrorKindEmbedderUnavailable, "semantic retrieval: embed", err)
	}
	if ctx.Err() != nil {
		return nil, model.NewError(model.ErrorKindCancelled, "semantic retrieval", ctx.Err())
	}

	chunks, err := r.chunks.FindTopKSimilar(ctx, vec, req.TopK)
	if err != nil {
		return nil, model.NewError(model.ErrorKindStoreUnavailable, "semantic retrieval: chunk search", err)
	}
	return chunks, nil
}

// fuse implements stage 4-5: union node/chunk sets, dedupe, cap at
// max_graph_nodes preserving union order, pull surviving edges, and tag the
// result's strategy (spec §4.7).
func (r *Retriever) fuse(ctx context.Context, req model.RetrievalRequest, structuralNodes []model.Node, semanticChunks []model.ScoredChunk, structuralErr, semanticErr error) ([]model.Node, []model.ScoredChunk, []model.Edge, model.Strategy) {
	nodeSeen := make(map[uuid.UUID]struct{})
	var nodes []model.Node
	addNode := func(n model.Node) {
		if _, ok := nodeSeen[n.ID]; ok {
			return
		}
		nodeSeen[n.ID] = struct{}{}
		nodes = append(nodes, n)
	}

	structuralContributed := structuralErr == nil && len(structuralNodes) > 0
	semanticContributed := semanticErr == nil && len(semanticChunks) > 0

	if structuralErr == nil {
		for _, n := range structuralNodes {
			addNode(n)
		}
	}

	sorted := append([]model.ScoredChunk(nil), semanticChunks...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })

	if semanticErr == nil {
		for _, sc := range sorted {
			if sc.Chunk.LinkedNodeID == nil {
				continue
			}
			if n, ok := r.gate.FindNode(*sc.Chunk.LinkedNodeID); ok {
				addNode(n)
			}
		}
	}

	if req.MaxGraphNodes > 0 && len(nodes) > req.MaxGraphNodes {
		nodes = nodes[:req.MaxGraphNodes]
	}

	var structuralChunks []model.ScoredChunk
	if structuralErr == nil && r.chunks != nil {
		for _, n := range structuralNodes {
			linked, err := r.chunks.FindByLinkedNodeID(ctx, n.ID)
			if err != nil {
				continue
			}
			for _, c := range linked {
				structuralChunks = append(structuralChunks, model.ScoredChunk{Chunk: c})
			}
		}
	}

	chunkSeen := make(map[uuid.UUID]struct{})
	var chunks []model.ScoredChunk
	for _, sc := range structuralChunks {
		if _, ok := chunkSeen[sc.Chunk.ID]; ok {
			continue
		}
		chunkSeen[sc.Chunk.ID] = struct{}{}
		chunks = append(chunks, sc)
	}
	if semanticErr == nil {
		for _, sc := range sorted {
			if _, ok := chunkSeen[sc.Chunk.ID]; ok {
				continue
			}
			chunkSeen[sc.Chunk.ID] = struct{}{}
			chunks = append(chunks, sc)
		}
	}

	survivors := make(map[uuid.UUID]struct{}, len(nodes))
	for _, n := range nodes {
		survivors[n.ID] = struct{}{}
	}
	edges := r.edgesAmong(survivors)

	strategy := model.StrategyEmpty
	switch {
	case structuralContributed && semanticContributed:
		strategy = model.StrategyHybrid
	case semanticContributed:
		strategy = model.StrategyVectorOnly
	case structuralContributed:
		strategy = model.StrategyGraphOnly
	}

	return nodes, chunks, edges, strategy
}

func (r *Retriever) edgesAmong(nodeIDs map[uuid.UUID]struct{}) []model.Edge {
	seen := make(map[uuid.UUID]struct{})
	var edges []model.Edge
	for id := range nodeIDs {
		for _, e := range r.gate.IncidentEdges(id, model.DirectionOut, "") {
			if _, ok := nodeIDs[e.TargetID]; !ok {
				continue
			}
			if _, ok := seen[e.ID]; ok {
				continue
			}
			seen[e.ID] = struct{}{}
			edges = append(edges, e)
		}
	}
	return edges
}
