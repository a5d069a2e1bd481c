package graph

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arjunhale/ctxgraph/model"
)

func TestGate_ConcurrentReadersAndWriters(t *testing.T) {
	// spec §8 property 7: node count after completion equals the number of
	// distinct ids inserted; no lost updates.
	gt := NewGate(nil)

	const writers = 8
	const nodesPerWriter = 50

	var wg sync.WaitGroup
	ids := make([][]uuid.UUID, writers)
	for w := 0; w < writers; w++ {
		ids[w] = make([]uuid.UUID, nodesPerWriter)
		for i := range ids[w] {
			ids[w][i] = uuid.New()
		}
	}

	stopReaders := make(chan struct{})
	var readerWg sync.WaitGroup
	for r := 0; r < 4; r++ {
		readerWg.Add(1)
		go func() {
			defer readerWg.Done()
			for {
				select {
				case <-stopReaders:
					return
				default:
					gt.NodeCount()
				}
			}
		}()
	}

	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for _, id := range ids[w] {
				require.NoError(t, gt.AddNode(model.Node{ID: id, Label: "N"}))
			}
		}(w)
	}
	wg.Wait()
	close(stopReaders)
	readerWg.Wait()

	assert.Equal(t, writers*nodesPerWriter, gt.NodeCount())
}

func TestGate_OptimisticRead_FallsBackOnRace(t *testing.T) {
	gt := NewGate(nil)
	gt.OptimisticReads = true

	id := uuid.New()
	require.NoError(t, gt.AddNode(model.Node{ID: id, Label: "A"}))

	n, ok := gt.FindNode(id)
	require.True(t, ok)
	assert.Equal(t, "A", n.Label)

	require.NoError(t, gt.AddNode(model.Node{ID: id, Label: "B"}))
	n, ok = gt.FindNode(id)
	require.True(t, ok)
	assert.Equal(t, "B", n.Label, "optimistic read must still observe a consistent post-write snapshot")
}

func TestGate_CompoundWrite(t *testing.T) {
	gt := NewGate(nil)
	a := model.Node{ID: uuid.New(), Label: "A"}
	b := model.Node{ID: uuid.New(), Label: "B"}
	e := model.Edge{ID: uuid.New(), SourceID: a.ID, TargetID: b.ID, RelationType: "REL"}

	require.NoError(t, gt.AddNodesAndEdges([]model.Node{a, b}, []model.Edge{e}))

	assert.Equal(t, 2, gt.NodeCount())
	assert.Equal(t, 1, gt.EdgeCount())
}
