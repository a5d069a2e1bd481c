package model

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNode_Validate(t *testing.T) {
	t.Run("valid node passes", func(t *testing.T) {
		n := Node{ID: uuid.New(), Label: "Patient", Created: time.Now(), Updated: time.Now()}
		assert.NoError(t, n.Validate())
	})

	t.Run("missing id fails as InvalidInput", func(t *testing.T) {
		n := Node{Label: "Patient"}
		err := n.Validate()
		assert.True(t, Is(err, ErrorKindInvalidInput))
	})

	t.Run("missing label fails as InvalidInput", func(t *testing.T) {
		n := Node{ID: uuid.New()}
		err := n.Validate()
		assert.True(t, Is(err, ErrorKindInvalidInput))
	})

	t.Run("updated before created fails", func(t *testing.T) {
		now := time.Now()
		n := Node{ID: uuid.New(), Label: "Patient", Created: now, Updated: now.Add(-time.Hour)}
		err := n.Validate()
		assert.True(t, Is(err, ErrorKindInvalidInput))
	})
}

func TestNode_Clone(t *testing.T) {
	n := Node{
		ID:         uuid.New(),
		Label:      "Patient",
		Properties: Properties{"age": 42},
	}
	c := n.Clone()
	c.Properties["age"] = 99

	assert.Equal(t, 42, n.Properties["age"], "mutating the clone must not affect the original")
	assert.Equal(t, n.ID, c.ID)
	assert.Equal(t, n.Label, c.Label)
}
