package retrieval

import (
	"sort"

	"github.com/google/uuid"

	"github.com/arjunhale/ctxgraph/core/graph"
	"github.com/arjunhale/ctxgraph/model"
)

// Executor implements R2: running a GraphPattern's ordered traversal steps
// from a frontier of seed paths and scoring the survivors (spec §4.6).
type Executor struct {
	gate *graph.Gate
}

// NewExecutor builds an Executor over gt.
func NewExecutor(gt *graph.Gate) *Executor {
	return &Executor{gate: gt}
}

type candidatePath struct {
	nodeIDs       []uuid.UUID
	relationTypes []string
}

// Execute runs pattern from every seed id and returns the top-scoring
// MatchedPath records, ordered by score descending (spec §4.6).
func (x *Executor) Execute(pattern model.GraphPattern, seedIDs []uuid.UUID) []model.MatchedPath {
	frontier := make([]candidatePath, 0, len(seedIDs))
	for _, s := range seedIDs {
		frontier = append(frontier, candidatePath{nodeIDs: []uuid.UUID{s}})
	}

	for i, step := range pattern.Steps {
		var next []candidatePath
		constraints := pattern.ConstraintsFor(i)

		for _, p := range frontier {
			u := p.nodeIDs[len(p.nodeIDs)-1]
			for _, e := range x.gate.IncidentEdges(u, step.Direction, step.RelationType) {
				v, _ := otherEndpoint(e, u, step.Direction)

				node, ok := x.gate.FindNode(v)
				if !ok {
					continue
				}
				if !step.MatchesLabel(node.Label) {
					continue
				}
				if !satisfiesAll(node, constraints) {
					continue
				}

				next = append(next, candidatePath{
					nodeIDs:       append(append([]uuid.UUID(nil), p.nodeIDs...), v),
					relationTypes: append(append([]string(nil), p.relationTypes...), step.RelationType),
				})
			}
		}
		frontier = next
	}

	ranking := pattern.Ranking
	if ranking == "" {
		ranking = model.RankingPathLength
	}

	maxPaths := pattern.MaxPaths
	if maxPaths <= 0 {
		maxPaths = len(frontier)
	}

	matched := make([]model.MatchedPath, 0, len(frontier))
	for _, p := range frontier {
		matched = append(matched, model.MatchedPath{
			PatternID:     pattern.PatternID,
			NodeIDs:       p.nodeIDs,
			RelationTypes: p.relationTypes,
			Score:         x.score(p, ranking),
			Explanation:   explain(pattern, p),
		})
	}

	sort.SliceStable(matched, func(i, j int) bool { return matched[i].Score > matched[j].Score })
	if len(matched) > maxPaths {
		matched = matched[:maxPaths]
	}
	return matched
}

// otherEndpoint resolves the "other" node for an edge given the step's
// direction: target for OUTGOING, source for INCOMING, whichever end isn't
// u for BOTH (spec §4.6 step 2).
func otherEndpoint(e model.Edge, u uuid.UUID, dir model.Direction) (uuid.UUID, model.Direction) {
	switch dir {
	case model.DirectionOut:
		return e.TargetID, model.DirectionOut
	case model.DirectionIn:
		return e.SourceID, model.DirectionIn
	default:
		return e.OtherEndpoint(u)
	}
}

func (x *Executor) score(p candidatePath, ranking model.RankingStrategy) float64 {
	switch ranking {
	case model.RankingPathLength:
		return 1.0 / float64(len(p.nodeIDs))
	case model.RankingEdgeWeight:
		var sum float64
		for i := 0; i < len(p.nodeIDs)-1; i++ {
			sum += x.edgeWeightBetween(p.nodeIDs[i], p.nodeIDs[i+1])
		}
		return sum
	case model.RankingNodeCentrality:
		// Stub (spec §9 open question): all paths score equally; the
		// executor does not compute degree/betweenness centrality.
		return 1.0
	case model.RankingSemanticScore:
		// Stub, combined with vector scores downstream by R3.
		return 1.0
	case model.RankingHybrid:
		return 1.0 / float64(len(p.nodeIDs))
	default:
		return 1.0 / float64(len(p.nodeIDs))
	}
}

// edgeWeightBetween returns the weight of an edge between consecutive path
// nodes, treating absent weight data as 1.0 per spec §4.6.
func (x *Executor) edgeWeightBetween(a, b uuid.UUID) float64 {
	for _, e := range x.gate.IncidentEdges(a, model.DirectionBoth, "") {
		other, _ := e.OtherEndpoint(a)
		if other == b {
			return e.NormalizedWeight()
		}
	}
	return 1.0
}

func explain(pattern model.GraphPattern, p candidatePath) string {
	if pattern.Description != "" {
		return pattern.Description
	}
	return "matched " + pattern.PatternID
}

func satisfiesAll(n model.Node, constraints []model.Constraint) bool {
	for _, c := range constraints {
		if !satisfies(n, c) {
			return false
		}
	}
	return true
}

func satisfies(n model.Node, c model.Constraint) bool {
	switch c.Kind {
	case model.ConstraintLabelMatch:
		return n.Label == c.Label
	case model.ConstraintPropertyEquals:
		v, ok := n.Properties[c.Property]
		return ok && valuesEqual(v, c.Value)
	case model.ConstraintPropertyIn:
		v, ok := n.Properties[c.Property]
		if !ok {
			return false
		}
		for _, want := range c.Values {
			if valuesEqual(v, want) {
				return true
			}
		}
		return false
	case model.ConstraintPropertyRange:
		v, ok := n.Properties[c.Property]
		if !ok {
			return false
		}
		f, ok := toFloat(v)
		if !ok {
			return false
		}
		if c.Min != nil && f < *c.Min {
			return false
		}
		if c.Max != nil && f > *c.Max {
			return false
		}
		return true
	default:
		return true
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
