package model

import "github.com/google/uuid"

// ResolutionTarget narrows entry-point resolution (R1) to a particular kind
// of seed node (spec §4.5/§6).
type ResolutionTarget struct {
	Description   string     `json:"description" validate:"required"`
	TypeHint      string     `json:"type_hint,omitempty"`
	PropertyMatch Properties `json:"property_match,omitempty"`
}

// GraphQuery carries the structural side of a RetrievalRequest: explicit
// resolution targets and/or patterns to execute (spec §4.7 stage 2).
type GraphQuery struct {
	Targets        []ResolutionTarget `json:"targets,omitempty"`
	Patterns       []GraphPattern     `json:"patterns,omitempty"`
	TraversalDepth int                `json:"traversal_depth,omitempty"`
}

// RetrievalRequest is the single request surface the core exposes (spec
// §6), bindable to HTTP, MCP, or in-process callers.
type RetrievalRequest struct {
	Query          string      `json:"query" validate:"required"`
	TopK           int         `json:"top_k,omitempty" validate:"omitempty,min=1"`
	TraversalDepth int         `json:"traversal_depth,omitempty" validate:"omitempty,min=0"`
	MaxGraphNodes  int         `json:"max_graph_nodes,omitempty" validate:"omitempty,min=1"`
	GraphQuery     *GraphQuery `json:"graph_query,omitempty"`
}

const (
	DefaultTopK           = 5
	DefaultTraversalDepth = 2
	DefaultMaxGraphNodes  = 50
)

// WithDefaults returns a copy of r with zero-valued fields replaced by the
// spec's defaults (§6).
func (r RetrievalRequest) WithDefaults() RetrievalRequest {
	out := r
	if out.TopK == 0 {
		out.TopK = DefaultTopK
	}
	if out.TraversalDepth == 0 {
		out.TraversalDepth = DefaultTraversalDepth
	}
	if out.MaxGraphNodes == 0 {
		out.MaxGraphNodes = DefaultMaxGraphNodes
	}
	return out
}

// Targets returns the resolution targets carried by the request's
// GraphQuery, or nil if none were supplied.
func (r RetrievalRequest) Targets() []ResolutionTarget {
	if r.GraphQuery == nil {
		return nil
	}
	return r.GraphQuery.Targets
}

// Patterns returns the patterns carried by the request's GraphQuery, or nil
// if none were supplied (R3 then expands the seeds in both directions to
// TraversalDepth instead).
func (r RetrievalRequest) Patterns() []GraphPattern {
	if r.GraphQuery == nil {
		return nil
	}
	return r.GraphQuery.Patterns
}

// SeedSet is a small ordered-unique collection of node ids, used by R1/R3 to
// merge seeds from multiple policies without reordering first occurrences.
type SeedSet struct {
	order []uuid.UUID
	seen  map[uuid.UUID]struct{}
}

// NewSeedSet returns an empty SeedSet ready to use.
func NewSeedSet() *SeedSet {
	return &SeedSet{seen: make(map[uuid.UUID]struct{})}
}

// Add inserts id if not already present, preserving first-seen order.
func (s *SeedSet) Add(id uuid.UUID) {
	if _, ok := s.seen[id]; ok {
		return
	}
	s.seen[id] = struct{}{}
	s.order = append(s.order, id)
}

// IDs returns the ids in first-seen order.
func (s *SeedSet) IDs() []uuid.UUID { return s.order }

// Len returns the number of distinct ids added.
func (s *SeedSet) Len() int { return len(s.order) }
