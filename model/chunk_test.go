package model

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestChunk_Validate(t *testing.T) {
	t.Run("no dimension configured skips the check", func(t *testing.T) {
		c := Chunk{ID: uuid.New(), Embedding: []float32{1, 2, 3}}
		assert.NoError(t, c.Validate(0))
	})

	t.Run("matching dimension passes", func(t *testing.T) {
		c := Chunk{ID: uuid.New(), Embedding: []float32{1, 2, 3}}
		assert.NoError(t, c.Validate(3))
	})

	t.Run("mismatched dimension fails", func(t *testing.T) {
		c := Chunk{ID: uuid.New(), Embedding: []float32{1, 2}}
		assert.True(t, Is(c.Validate(3), ErrorKindInvalidInput))
	})

	t.Run("missing id fails", func(t *testing.T) {
		c := Chunk{}
		assert.True(t, Is(c.Validate(0), ErrorKindInvalidInput))
	})
}

func TestChunk_Clone(t *testing.T) {
	id := uuid.New()
	c := Chunk{
		ID:           uuid.New(),
		Embedding:    []float32{1, 2, 3},
		LinkedNodeID: &id,
		Metadata:     Properties{"source": "doc1"},
	}
	clone := c.Clone()
	clone.Embedding[0] = 99
	*clone.LinkedNodeID = uuid.New()
	clone.Metadata["source"] = "doc2"

	assert.Equal(t, float32(1), c.Embedding[0], "cloned embedding must be independent")
	assert.Equal(t, id, *c.LinkedNodeID, "cloned linked id must be independent")
	assert.Equal(t, "doc1", c.Metadata["source"], "cloned metadata must be independent")
}
