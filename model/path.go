package model

import "github.com/google/uuid"

// PathRecord is the result of G2's shortest_path / all_paths operations
// (spec §4.2): an ordered walk of node ids connected by relation types, with
// its total weight and hop count.
type PathRecord struct {
	NodeIDs       []uuid.UUID `json:"node_ids"`
	RelationTypes []string    `json:"relation_types"`
	TotalWeight   float64     `json:"total_weight"`
	Length        int         `json:"length"`
}

// Found reports whether the path is non-empty (i.e. a path was found; an
// empty PathRecord{} denotes "no path exists" per spec §4.2).
func (p PathRecord) Found() bool { return len(p.NodeIDs) > 0 }
