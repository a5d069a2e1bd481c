package store

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"github.com/arjunhale/ctxgraph/core/graph"
	"github.com/arjunhale/ctxgraph/model"
)

// Coordinator bridges the durable triple (NodeStore, EdgeStore, ChunkStore)
// with the in-memory graph (G4, spec §4.4). Every mutation is persisted
// before the in-memory mirror is updated; a persistence failure leaves the
// mirror untouched, while a post-persistence in-memory failure triggers a
// best-effort background re-sync — the durable store stays authoritative
// and no data is lost, at worst briefly stale reads.
type Coordinator struct {
	log    *slog.Logger
	gate   *graph.Gate
	nodes  NodeStore
	edges  EdgeStore
	chunks ChunkStore

	nodeBreaker  *gobreaker.CircuitBreaker
	edgeBreaker  *gobreaker.CircuitBreaker
	chunkBreaker *gobreaker.CircuitBreaker
}

// New builds a Coordinator over the given gate and durable stores. log may
// be nil, in which case slog.Default() is used.
func New(gt *graph.Gate, nodes NodeStore, edges EdgeStore, chunks ChunkStore, log *slog.Logger) *Coordinator {
	if log == nil {
		log = slog.Default()
	}
	return &Coordinator{
		log:          log,
		gate:         gt,
		nodes:        nodes,
		edges:        edges,
		chunks:       chunks,
		nodeBreaker:  newBreaker("node-store"),
		edgeBreaker:  newBreaker("edge-store"),
		chunkBreaker: newBreaker("chunk-store"),
	}
}

func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
}

// UpsertNode persists n (durable store first) then updates G2 with the same
// record. existing preserves n's id rather than letting the store mint one.
func (c *Coordinator) UpsertNode(ctx context.Context, n model.Node, existing bool) (model.Node, error) {
	res, err := c.nodeBreaker.Execute(func() (interface{}, error) {
		return c.nodes.Save(ctx, n, existing)
	})
	if err != nil {
		return model.Node{}, model.NewError(model.ErrorKindStoreUnavailable, "upsert_node: persist", err)
	}
	saved := res.(model.Node)

	if err := c.gate.AddNode(saved); err != nil {
		c.log.Error("in-memory mirror update failed after successful persist; triggering re-sync",
			slog.String("node_id", saved.ID.String()), slog.String("error", err.Error()))
		go c.resyncNode(context.WithoutCancel(ctx), saved.ID)
		return saved, nil
	}
	return saved, nil
}

// UpsertEdge persists e then updates G2, mirroring UpsertNode's contract.
func (c *Coordinator) UpsertEdge(ctx context.Context, e model.Edge, existing bool) (model.Edge, error) {
	res, err := c.edgeBreaker.Execute(func() (interface{}, error) {
		return c.edges.Save(ctx, e, existing)
	})
	if err != nil {
		return model.Edge{}, model.NewError(model.ErrorKindStoreUnavailable, "upsert_edge: persist", err)
	}
	saved := res.(model.Edge)

	if err := c.gate.AddEdge(saved); err != nil {
		c.log.Error("in-memory mirror update failed after successful persist; triggering re-sync",
			slog.String("edge_id", saved.ID.String()), slog.String("error", err.Error()))
		go c.resyncEdge(context.WithoutCancel(ctx), saved.ID)
		return saved, nil
	}
	return saved, nil
}

func (c *Coordinator) resyncNode(ctx context.Context, id uuid.UUID) {
	n, found, err := c.nodes.FindByID(ctx, id)
	if err != nil || !found {
		return
	}
	_ = c.gate.AddNode(n)
}

func (c *Coordinator) resyncEdge(ctx context.Context, id uuid.UUID) {
	e, found, err := c.edges.FindByID(ctx, id)
	if err != nil || !found {
		return
	}
	_ = c.gate.AddEdge(e)
}

// DeleteNode removes id from both the durable store and G2, cascading to
// incident edges in both places (spec §3 Lifecycle).
func (c *Coordinator) DeleteNode(ctx context.Context, id uuid.UUID) error {
	if _, err := c.nodeBreaker.Execute(func() (interface{}, error) {
		return nil, c.nodes.DeleteByID(ctx, id)
	}); err != nil {
		return model.NewError(model.ErrorKindStoreUnavailable, "delete_node: persist", err)
	}
	if _, err := c.edgeBreaker.Execute(func() (interface{}, error) {
		return nil, c.edges.DeleteByNodeID(ctx, id)
	}); err != nil {
		return model.NewError(model.ErrorKindStoreUnavailable, "delete_node: cascade edges", err)
	}
	c.gate.RemoveNode(id)
	return nil
}

// FindNode reads from G2 (spec §4.4 read contract).
func (c *Coordinator) FindNode(id uuid.UUID) (model.Node, bool) {
	return c.gate.FindNode(id)
}

// Neighbors reads from G2.
func (c *Coordinator) Neighbors(id uuid.UUID, depth int) []model.Node {
	return c.gate.Neighbors(id, depth)
}

// ExtractSubgraph reads from G2.
func (c *Coordinator) ExtractSubgraph(seedIDs []uuid.UUID, depth int) ([]model.Node, []model.Edge) {
	return c.gate.ExtractSubgraph(seedIDs, depth)
}

// IncidentEdges reads from G2 and falls back to EdgeStore only when G2 holds
// no matching edge for id (spec §4.4 read contract); the fallback applies the
// same direction and relation-type filters.
func (c *Coordinator) IncidentEdges(ctx context.Context, id uuid.UUID, dir model.Direction, relationType string) ([]model.Edge, error) {
	fromGraph := c.gate.IncidentEdges(id, dir, relationType)
	if len(fromGraph) > 0 {
		return fromGraph, nil
	}

	ch, errCh := c.edges.FindByNodeID(ctx, id)
	var out []model.Edge
	for e := range ch {
		if relationType != "" && e.RelationType != relationType {
			continue
		}
		if (dir == model.DirectionOut && e.SourceID != id) || (dir == model.DirectionIn && e.TargetID != id) {
			continue
		}
		out = append(out, e)
	}
	if err := <-errCh; err != nil {
		return nil, model.NewError(model.ErrorKindStoreUnavailable, "incident_edges: fallback", err)
	}
	return out, nil
}

// FindChunksSimilar always queries the ChunkStore (spec §4.4 read contract).
func (c *Coordinator) FindChunksSimilar(ctx context.Context, query []float32, k int) ([]model.ScoredChunk, error) {
	res, err := c.chunkBreaker.Execute(func() (interface{}, error) {
		return c.chunks.FindTopKSimilar(ctx, query, k)
	})
	if err != nil {
		return nil, model.NewError(model.ErrorKindStoreUnavailable, "find_chunks_similar", err)
	}
	return res.([]model.ScoredChunk), nil
}

// Load streams the full node corpus then the full edge corpus from the
// durable store into G2 (spec §4.4 startup). Order matters: loading edges
// before nodes would trip the tolerant-ingestion stub-vertex rule on every
// edge. Sequential and idempotent — re-running yields the same graph.
func (c *Coordinator) Load(ctx context.Context) error {
	// An empty label/relation-type selects every record — store
	// implementations treat FindByLabel("")/FindByRelationType("") as
	// "stream everything" rather than adding a separate bulk method.
	nodeCh, nodeErrCh := c.nodes.FindByLabel(ctx, "")
	var nodes []model.Node
	for n := range nodeCh {
		nodes = append(nodes, n)
	}
	if err := <-nodeErrCh; err != nil {
		return model.NewError(model.ErrorKindStoreUnavailable, "load: nodes", err)
	}
	for _, n := range nodes {
		if err := c.gate.AddNode(n); err != nil {
			return model.NewError(model.ErrorKindInternal, "load: add_node", err)
		}
	}

	edgeCh, edgeErrCh := c.edges.FindByRelationType(ctx, "")
	var edges []model.Edge
	for e := range edgeCh {
		edges = append(edges, e)
	}
	if err := <-edgeErrCh; err != nil {
		return model.NewError(model.ErrorKindStoreUnavailable, "load: edges", err)
	}
	for _, e := range edges {
		if err := c.gate.AddEdge(e); err != nil {
			return model.NewError(model.ErrorKindInternal, "load: add_edge", err)
		}
	}

	c.log.Info("loaded durable corpus into graph",
		slog.Int("nodes", len(nodes)), slog.Int("edges", len(edges)))
	return nil
}
