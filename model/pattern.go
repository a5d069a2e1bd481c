package model

import "github.com/google/uuid"

// RankingStrategy selects how the pattern executor (R2) scores matched paths
// (spec §4.6).
type RankingStrategy string

const (
	RankingPathLength     RankingStrategy = "PATH_LENGTH"
	RankingEdgeWeight     RankingStrategy = "EDGE_WEIGHT"
	RankingNodeCentrality RankingStrategy = "NODE_CENTRALITY"
	RankingSemanticScore  RankingStrategy = "SEMANTIC_SCORE"
	RankingHybrid         RankingStrategy = "HYBRID"
)

// WildcardLabel matches any node label in a TraversalStep or Constraint.
const WildcardLabel = "*"

// TraversalStep is one hop in a GraphPattern (spec §4.6). An empty
// RelationType means "any relation type"; TargetLabel of WildcardLabel (or
// empty) means "any label".
type TraversalStep struct {
	TargetLabel  string    `json:"target_label,omitempty"`
	RelationType string    `json:"relation_type,omitempty"`
	Direction    Direction `json:"direction"`
}

// MatchesLabel reports whether a candidate node label satisfies this step's
// TargetLabel constraint.
func (s TraversalStep) MatchesLabel(label string) bool {
	return s.TargetLabel == "" || s.TargetLabel == WildcardLabel || s.TargetLabel == label
}

// ConstraintKind is the predicate form a Constraint applies (spec §4.6).
type ConstraintKind string

const (
	ConstraintPropertyEquals ConstraintKind = "PROPERTY_EQUALS"
	ConstraintPropertyIn     ConstraintKind = "PROPERTY_IN"
	ConstraintPropertyRange  ConstraintKind = "PROPERTY_RANGE"
	ConstraintLabelMatch     ConstraintKind = "LABEL_MATCH"
)

// Constraint restricts the node admitted at a given step index of a
// GraphPattern.
type Constraint struct {
	StepIndex int            `json:"step_index"`
	Kind      ConstraintKind `json:"kind"`
	Property  string         `json:"property,omitempty"`
	Value     interface{}    `json:"value,omitempty"`
	Values    []interface{}  `json:"values,omitempty"`
	Min       *float64       `json:"min,omitempty"`
	Max       *float64       `json:"max,omitempty"`
	Label     string         `json:"label,omitempty"`
}

// GraphPattern is an ordered list of traversal steps with optional
// constraints, executed by R2 (spec §4.6).
type GraphPattern struct {
	PatternID   string           `json:"pattern_id"`
	Description string           `json:"description,omitempty"`
	Steps       []TraversalStep  `json:"steps"`
	Constraints []Constraint     `json:"constraints,omitempty"`
	Ranking     RankingStrategy  `json:"ranking,omitempty"`
	MaxPaths    int              `json:"max_paths,omitempty"`
}

// ConstraintsFor returns the constraints applying to step index i.
func (p GraphPattern) ConstraintsFor(i int) []Constraint {
	var out []Constraint
	for _, c := range p.Constraints {
		if c.StepIndex == i {
			out = append(out, c)
		}
	}
	return out
}

// MatchedPath is a walk through the graph satisfying every step and
// constraint of a GraphPattern (spec §4.6).
type MatchedPath struct {
	PatternID     string      `json:"pattern_id"`
	NodeIDs       []uuid.UUID `json:"node_ids"`
	RelationTypes []string    `json:"relation_types"`
	Score         float64     `json:"score"`
	Explanation   string      `json:"explanation,omitempty"`
}

// NodeCount is the number of nodes visited by the path, including the seed.
func (m MatchedPath) NodeCount() int { return len(m.NodeIDs) }
