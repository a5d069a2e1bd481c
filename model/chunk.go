package model

import (
	"time"

	"github.com/google/uuid"
)

// Chunk is a text fragment intended for semantic retrieval (spec §3).
// LinkedNodeID is a weak reference: it may point to a node that no longer
// exists, in which case lookups ignore it rather than failing.
type Chunk struct {
	ID           uuid.UUID  `json:"id"`
	Content      string     `json:"content"`
	Embedding    []float32  `json:"embedding,omitempty"`
	LinkedNodeID *uuid.UUID `json:"linked_node_id,omitempty"`
	Metadata     Properties `json:"metadata,omitempty"`
	Created      time.Time  `json:"created"`
}

// Clone returns a value copy of c with independent Embedding/Metadata.
func (c Chunk) Clone() Chunk {
	out := c
	out.Metadata = c.Metadata.Clone()
	if c.Embedding != nil {
		out.Embedding = append([]float32(nil), c.Embedding...)
	}
	if c.LinkedNodeID != nil {
		id := *c.LinkedNodeID
		out.LinkedNodeID = &id
	}
	return out
}

// Validate checks the invariants spec §3 places on a Chunk. dimension is the
// configured embedding dimension for the deployment; a value of 0 means no
// dimension has been fixed yet and the check is skipped.
func (c Chunk) Validate(dimension int) error {
	if c.ID == uuid.Nil {
		return NewError(ErrorKindInvalidInput, "validate chunk", errRequired("id"))
	}
	if dimension > 0 && len(c.Embedding) > 0 && len(c.Embedding) != dimension {
		return NewError(ErrorKindInvalidInput, "validate chunk", errInvariant("embedding dimension mismatch"))
	}
	return nil
}

// ScoredChunk pairs a Chunk with a similarity score from a ChunkStore query.
type ScoredChunk struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}
