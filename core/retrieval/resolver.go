// Package retrieval holds the entry-point resolver (R1), pattern executor
// (R2), and hybrid retriever (R3) that sit on top of the in-memory graph
// and the durable stores.
package retrieval

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/arjunhale/ctxgraph/core/graph"
	"github.com/arjunhale/ctxgraph/core/store"
	"github.com/arjunhale/ctxgraph/model"
)

// Resolver implements R1: turning a RetrievalRequest into an ordered set of
// candidate seed node ids (spec §4.5). It never invents ids — an empty
// result means no seed could be found, not an error.
type Resolver struct {
	log      *slog.Logger
	gate     *graph.Gate
	chunks   store.ChunkStore
	embedder store.Embedder
}

// NewResolver builds a Resolver. log may be nil.
func NewResolver(gt *graph.Gate, chunks store.ChunkStore, embedder store.Embedder, log *slog.Logger) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{log: log, gate: gt, chunks: chunks, embedder: embedder}
}

// Resolve runs the three-policy seed resolution of spec §4.5: property-match
// targets first, then embedding the target descriptions (or the whole
// query), then — only if still empty — embedding the raw query.
func (r *Resolver) Resolve(ctx context.Context, req model.RetrievalRequest) (*model.SeedSet, error) {
	req = req.WithDefaults()
	seeds := model.NewSeedSet()

	r.resolveByPropertyMatch(req.Targets(), seeds)

	for _, text := range embedTextsFor(req) {
		if err := r.resolveByEmbedding(ctx, text, req.TopK, seeds); err != nil {
			return seeds, err
		}
	}

	if seeds.Len() == 0 && req.Query != "" {
		if err := r.resolveByEmbedding(ctx, req.Query, req.TopK, seeds); err != nil {
			return seeds, err
		}
	}

	return seeds, nil
}

// embedTextsFor picks the texts policy 2 embeds: every target's description
// in turn, or, when there are no targets at all, the full query standing in
// for a single target.
func embedTextsFor(req model.RetrievalRequest) []string {
	targets := req.Targets()
	if len(targets) == 0 {
		return []string{req.Query}
	}
	texts := make([]string, 0, len(targets))
	for _, t := range targets {
		texts = append(texts, t.Description)
	}
	return texts
}

func (r *Resolver) resolveByPropertyMatch(targets []model.ResolutionTarget, seeds *model.SeedSet) {
	for _, t := range targets {
		if t.TypeHint == "" || t.PropertyMatch == nil {
			continue
		}
		for _, n := range r.gate.NodesByLabel(t.TypeHint) {
			if propertiesMatch(n.Properties, t.PropertyMatch) {
				seeds.Add(n.ID)
			}
		}
	}
}

func propertiesMatch(have, want model.Properties) bool {
	for k, v := range want {
		hv, ok := have[k]
		if !ok || !valuesEqual(hv, v) {
			return false
		}
	}
	return true
}

func valuesEqual(a, b interface{}) bool {
	return a == b
}

func (r *Resolver) resolveByEmbedding(ctx context.Context, text string, topK int, seeds *model.SeedSet) error {
	if text == "" || r.embedder == nil || r.chunks == nil {
		return nil
	}

	vec, err := r.embedder.Embed(ctx, text)
	if err != nil {
		return model.NewError(model.ErrorKindEmbedderUnavailable, "resolve: embed", err)
	}

	scored, err := r.chunks.FindTopKSimilar(ctx, vec, topK)
	if err != nil {
		return model.NewError(model.ErrorKindStoreUnavailable, "resolve: chunk search", err)
	}

	for _, sc := range scored {
		if sc.Chunk.LinkedNodeID != nil {
			seeds.Add(*sc.Chunk.LinkedNodeID)
		}
	}
	return nil
}

// ResolveWithSeeds builds a SeedSet directly from ids, without running
// Resolve, for callers that already hold explicit seed ids (e.g. a
// caller-supplied GraphQuery naming nodes directly) and just want them
// deduplicated and capped to the first maxGraphNodes entries of ids.
func ResolveWithSeeds(ids []uuid.UUID, maxGraphNodes int) *model.SeedSet {
	seeds := model.NewSeedSet()
	for i, id := range ids {
		if maxGraphNodes > 0 && i >= maxGraphNodes {
			break
		}
		seeds.Add(id)
	}
	return seeds
}
