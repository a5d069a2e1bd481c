package model

import (
	"time"

	"github.com/google/uuid"
)

// Node is a typed entity in the property graph (spec §3).
//
// Id is immutable once assigned; Label is domain-defined and must be
// non-empty. Two nodes sharing an Id refer to the same entity across every
// component — the in-memory graph (core/graph), the durable stores
// (core/store), and the retrieval layer (core/retrieval) all key on it.
type Node struct {
	ID                  uuid.UUID  `json:"id"`
	Label               string     `json:"label"`
	Properties          Properties `json:"properties,omitempty"`
	VectorizableContent string     `json:"vectorizable_content,omitempty"`
	Created             time.Time  `json:"created"`
	Updated             time.Time  `json:"updated"`
	Version             int        `json:"version"`
}

// Clone returns a value copy of n, including a deep copy of Properties, so
// that callers holding the returned Node cannot observe or mutate
// graph-internal state (spec §3 Ownership).
func (n Node) Clone() Node {
	c := n
	c.Properties = n.Properties.Clone()
	return c
}

// Validate checks the invariants spec §3 places on a Node prior to
// insertion: non-nil id, non-empty label, updated not preceding created.
func (n Node) Validate() error {
	if n.ID == uuid.Nil {
		return NewError(ErrorKindInvalidInput, "validate node", errRequired("id"))
	}
	if n.Label == "" {
		return NewError(ErrorKindInvalidInput, "validate node", errRequired("label"))
	}
	if !n.Updated.IsZero() && !n.Created.IsZero() && n.Updated.Before(n.Created) {
		return NewError(ErrorKindInvalidInput, "validate node", errInvariant("updated must not precede created"))
	}
	return nil
}
