package model

import (
	"time"

	"github.com/google/uuid"
)

// Direction selects which incident edges a query considers relative to a
// node: outgoing only, incoming only, or both (spec §4.2/§4.6).
type Direction string

const (
	DirectionOut  Direction = "OUT"
	DirectionIn   Direction = "IN"
	DirectionBoth Direction = "BOTH"
)

// Edge is a directed, weighted, typed link between two nodes (spec §3).
//
// The graph permits multiple distinct edges between the same ordered
// endpoint pair, including self-loops; each such edge carries its own Id.
type Edge struct {
	ID           uuid.UUID  `json:"id"`
	RelationType string     `json:"relation_type"`
	SourceID     uuid.UUID  `json:"source_id"`
	TargetID     uuid.UUID  `json:"target_id"`
	Properties   Properties `json:"properties,omitempty"`
	Weight       float64    `json:"weight"`
	Created      time.Time  `json:"created"`
}

// Clone returns a value copy of e with an independent Properties map.
func (e Edge) Clone() Edge {
	c := e
	c.Properties = e.Properties.Clone()
	return c
}

// Validate checks the invariants spec §3 places on an Edge prior to
// insertion. RelationType registration is checked by the registry, not here
// — an edge naming an unregistered type is accepted and logged (spec §4.1).
func (e Edge) Validate() error {
	if e.ID == uuid.Nil {
		return NewError(ErrorKindInvalidInput, "validate edge", errRequired("id"))
	}
	if e.SourceID == uuid.Nil || e.TargetID == uuid.Nil {
		return NewError(ErrorKindInvalidInput, "validate edge", errRequired("source_id/target_id"))
	}
	if e.RelationType == "" {
		return NewError(ErrorKindInvalidInput, "validate edge", errRequired("relation_type"))
	}
	if e.Weight < 0 {
		return NewError(ErrorKindInvalidInput, "validate edge", errInvariant("weight must be non-negative"))
	}
	return nil
}

// NormalizedWeight returns e.Weight, defaulting to 1.0 when unset (zero
// value), per the default the in-memory graph applies on insertion.
func (e Edge) NormalizedWeight() float64 {
	if e.Weight == 0 {
		return 1.0
	}
	return e.Weight
}

// OtherEndpoint returns the endpoint of e that is not from, along with the
// direction from's perspective observed this edge under. Used by traversal
// to resolve the "other" node for a BOTH-direction incident edge.
func (e Edge) OtherEndpoint(from uuid.UUID) (uuid.UUID, Direction) {
	if e.SourceID == from {
		return e.TargetID, DirectionOut
	}
	return e.SourceID, DirectionIn
}
