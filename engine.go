// Package ctxgraph wires the core components — relation-type registry,
// in-memory graph, dual-write coordinator, hybrid retriever, and context
// assembler — into a single Engine, the package's one public entry point.
// This plays the role the teacher's Grapher played: one struct a caller
// constructs once and calls for the life of the process.
package ctxgraph

import (
	"context"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/arjunhale/ctxgraph/core/assembler"
	"github.com/arjunhale/ctxgraph/core/graph"
	"github.com/arjunhale/ctxgraph/core/retrieval"
	"github.com/arjunhale/ctxgraph/core/store"
	"github.com/arjunhale/ctxgraph/helper"
	"github.com/arjunhale/ctxgraph/model"
)

// Engine is the unified interface to the retrieval core: relation-type
// registry (G1), in-memory graph behind its concurrency gate (G2/G3),
// dual-write coordinator (G4) bridging to a durable NodeStore/EdgeStore/
// ChunkStore triple, the hybrid retriever (R1-R3), and the context
// assembler (A1).
type Engine struct {
	Registry    *graph.Registry
	Gate        *graph.Gate
	Coordinator *store.Coordinator
	Retriever   *retrieval.Retriever
	Assembler   *assembler.Assembler

	log *slog.Logger
}

// Options configures an Engine. Nodes/Edges/Chunks and Embedder are
// required; Logger defaults to a PrettyHandler-backed logger over stdout,
// matching the teacher's NewGrapher.
type Options struct {
	Nodes    store.NodeStore
	Edges    store.EdgeStore
	Chunks   store.ChunkStore
	Embedder store.Embedder
	Logger   *slog.Logger

	// RelationTypes registers the deployment's known relation types (G1)
	// at construction; additional types may be registered later via
	// Engine.Registry.Register.
	RelationTypes []model.RelationType
}

// New builds an Engine from opts and loads the durable corpus into the
// in-memory graph (spec §4.4 startup — mirrors the teacher's NewGrapher
// eagerly initializing every handler before returning).
func New(ctx context.Context, opts Options) (*Engine, error) {
	log := opts.Logger
	if log == nil {
		handlerOpts := helper.PrettyHandlerOptions{SlogOpts: slog.HandlerOptions{Level: slog.LevelInfo}}
		log = slog.New(helper.NewPrettyHandler(os.Stdout, handlerOpts))
	}

	registry := graph.NewRegistry()
	registry.Register(opts.RelationTypes...)

	gt := graph.NewGate(graph.New(log))
	coordinator := store.New(gt, opts.Nodes, opts.Edges, opts.Chunks, log)

	if err := coordinator.Load(ctx); err != nil {
		return nil, model.NewError(model.ErrorKindInternal, "engine: load graph", err)
	}

	retriever := retrieval.NewRetriever(gt, opts.Chunks, opts.Embedder, log)

	return &Engine{
		Registry:    registry,
		Gate:        gt,
		Coordinator: coordinator,
		Retriever:   retriever,
		Assembler:   assembler.New(),
		log:         log,
	}, nil
}

// Retrieve runs the hybrid retrieval pipeline (R3) for req.
func (e *Engine) Retrieve(ctx context.Context, req model.RetrievalRequest) (*model.RetrievalResult, error) {
	return e.Retriever.Retrieve(ctx, req)
}

// AssembleContext packs result into an LLM-ready payload bounded by
// maxTokens (A1).
func (e *Engine) AssembleContext(result model.RetrievalResult, maxTokens int) string {
	return e.Assembler.Assemble(result, maxTokens)
}

// UpsertNode persists n and updates the in-memory graph (G4).
func (e *Engine) UpsertNode(ctx context.Context, n model.Node, existing bool) (model.Node, error) {
	return e.Coordinator.UpsertNode(ctx, n, existing)
}

// UpsertEdge persists edge and updates the in-memory graph (G4).
func (e *Engine) UpsertEdge(ctx context.Context, edge model.Edge, existing bool) (model.Edge, error) {
	return e.Coordinator.UpsertEdge(ctx, edge, existing)
}

// DeleteNode removes id and its incident edges from both the durable store
// and the in-memory graph.
func (e *Engine) DeleteNode(ctx context.Context, id uuid.UUID) error {
	return e.Coordinator.DeleteNode(ctx, id)
}
