package graph

import (
	"container/heap"

	"github.com/google/uuid"

	"github.com/arjunhale/ctxgraph/model"
)

// Neighbors returns the set of distinct nodes within depth hops of id,
// excluding id itself. Direction is always BOTH; ties at equal depth keep
// BFS enqueuing order (spec §4.2).
func (g *Graph) Neighbors(id uuid.UUID, depth int) []model.Node {
	if depth <= 0 {
		return nil
	}
	if _, ok := g.nodeByID[id]; !ok {
		return nil
	}

	visited := map[uuid.UUID]struct{}{id: {}}
	var order []uuid.UUID
	frontier := []uuid.UUID{id}

	for d := 0; d < depth && len(frontier) > 0; d++ {
		var next []uuid.UUID
		for _, u := range frontier {
			for _, e := range g.IncidentEdges(u, model.DirectionBoth, "") {
				v, _ := e.OtherEndpoint(u)
				if _, seen := visited[v]; seen {
					continue
				}
				visited[v] = struct{}{}
				order = append(order, v)
				next = append(next, v)
			}
		}
		frontier = next
	}

	out := make([]model.Node, 0, len(order))
	for _, id := range order {
		if n, ok := g.nodeByID[id]; ok {
			out = append(out, n)
		}
	}
	return out
}

// NeighborsFiltered returns the 1-hop neighbors of id in the given
// direction, optionally restricted to a single relation type.
func (g *Graph) NeighborsFiltered(id uuid.UUID, relationType string, dir model.Direction) []model.Node {
	var out []model.Node
	seen := make(map[uuid.UUID]struct{})
	for _, e := range g.IncidentEdges(id, dir, relationType) {
		v, _ := e.OtherEndpoint(id)
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		if n, ok := g.nodeByID[v]; ok {
			out = append(out, n)
		}
	}
	return out
}

type pqItem struct {
	id   uuid.UUID
	dist float64
}

type pqStep struct {
	prevNode uuid.UUID
	prevEdge uuid.UUID
}

type priorityQueue []*pqItem

func (pq priorityQueue) Len() int            { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool  { return pq[i].dist < pq[j].dist }
func (pq priorityQueue) Swap(i, j int)       { pq[i], pq[j] = pq[j], pq[i] }
func (pq *priorityQueue) Push(x interface{}) { *pq = append(*pq, x.(*pqItem)) }
func (pq *priorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[:n-1]
	return item
}

// ShortestPath runs Dijkstra over OUT-direction edges (paths follow edge
// direction) and returns the minimum total-weight path from source to
// target. Returns an empty PathRecord if either endpoint is absent or no
// path exists (spec §4.2).
func (g *Graph) ShortestPath(source, target uuid.UUID) model.PathRecord {
	if _, ok := g.nodeByID[source]; !ok {
		return model.PathRecord{}
	}
	if _, ok := g.nodeByID[target]; !ok {
		return model.PathRecord{}
	}

	dist := map[uuid.UUID]float64{source: 0}
	cameFrom := make(map[uuid.UUID]pqStep)
	visited := make(map[uuid.UUID]struct{})

	pq := &priorityQueue{{id: source, dist: 0}}
	heap.Init(pq)

	for pq.Len() > 0 {
		cur := heap.Pop(pq).(*pqItem)
		if _, done := visited[cur.id]; done {
			continue
		}
		visited[cur.id] = struct{}{}

		if cur.id == target {
			break
		}

		for _, e := range g.IncidentEdges(cur.id, model.DirectionOut, "") {
			v := e.TargetID
			nd := cur.dist + e.NormalizedWeight()
			if existing, ok := dist[v]; !ok || nd < existing {
				dist[v] = nd
				cameFrom[v] = pqStep{prevNode: cur.id, prevEdge: e.ID}
				heap.Push(pq, &pqItem{id: v, dist: nd})
			}
		}
	}

	if _, ok := dist[target]; !ok {
		return model.PathRecord{}
	}
	if source == target {
		return model.PathRecord{NodeIDs: []uuid.UUID{source}, TotalWeight: 0, Length: 0}
	}

	var nodeIDs []uuid.UUID
	var relationTypes []string
	cur := target
	for cur != source {
		step, ok := cameFrom[cur]
		if !ok {
			return model.PathRecord{}
		}
		e := g.edgeByID[step.prevEdge]
		nodeIDs = append([]uuid.UUID{cur}, nodeIDs...)
		relationTypes = append([]string{e.RelationType}, relationTypes...)
		cur = step.prevNode
	}
	nodeIDs = append([]uuid.UUID{source}, nodeIDs...)

	return model.PathRecord{
		NodeIDs:       nodeIDs,
		RelationTypes: relationTypes,
		TotalWeight:   dist[target],
		Length:        len(relationTypes),
	}
}

// AllPaths returns every simple directed path from source to target with at
// most maxDepth edges, found by DFS with visited-set backtracking. No
// ordering guarantee beyond discovery order (spec §4.2).
func (g *Graph) AllPaths(source, target uuid.UUID, maxDepth int) []model.PathRecord {
	if _, ok := g.nodeByID[source]; !ok {
		return nil
	}
	if _, ok := g.nodeByID[target]; !ok {
		return nil
	}

	var results []model.PathRecord
	visited := map[uuid.UUID]struct{}{source: {}}

	var dfs func(cur uuid.UUID, nodeIDs []uuid.UUID, relationTypes []string, weight float64)
	dfs = func(cur uuid.UUID, nodeIDs []uuid.UUID, relationTypes []string, weight float64) {
		if cur == target && len(nodeIDs) > 1 {
			results = append(results, model.PathRecord{
				NodeIDs:       append([]uuid.UUID(nil), nodeIDs...),
				RelationTypes: append([]string(nil), relationTypes...),
				TotalWeight:   weight,
				Length:        len(relationTypes),
			})
		}
		if len(relationTypes) >= maxDepth {
			return
		}
		for _, e := range g.IncidentEdges(cur, model.DirectionOut, "") {
			if _, seen := visited[e.TargetID]; seen {
				continue
			}
			visited[e.TargetID] = struct{}{}
			dfs(e.TargetID, append(nodeIDs, e.TargetID), append(relationTypes, e.RelationType), weight+e.NormalizedWeight())
			delete(visited, e.TargetID)
		}
	}

	dfs(source, []uuid.UUID{source}, nil, 0)
	return results
}

// ExtractSubgraph returns the set of nodes reachable within depth hops
// (direction BOTH) of any seed id, plus every edge whose endpoints are both
// in that set (spec §4.2).
func (g *Graph) ExtractSubgraph(seedIDs []uuid.UUID, depth int) ([]model.Node, []model.Edge) {
	nodeSet := make(map[uuid.UUID]struct{})
	var nodes []model.Node

	addNode := func(id uuid.UUID) {
		if _, ok := nodeSet[id]; ok {
			return
		}
		if n, ok := g.nodeByID[id]; ok {
			nodeSet[id] = struct{}{}
			nodes = append(nodes, n)
		}
	}

	for _, seed := range seedIDs {
		addNode(seed)
		for _, n := range g.Neighbors(seed, depth) {
			addNode(n.ID)
		}
	}

	var edges []model.Edge
	seenEdge := make(map[uuid.UUID]struct{})
	for id := range nodeSet {
		for _, e := range g.IncidentEdges(id, model.DirectionOut, "") {
			if _, ok := nodeSet[e.TargetID]; !ok {
				continue
			}
			if _, ok := seenEdge[e.ID]; ok {
				continue
			}
			seenEdge[e.ID] = struct{}{}
			edges = append(edges, e)
		}
	}

	return nodes, edges
}
