package postgres

import (
	"context"
	"log"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"

	"github.com/arjunhale/ctxgraph/helper"
	"github.com/arjunhale/ctxgraph/model"
)

var dbPort string

// TestMain starts a single disposable Postgres container for the whole
// package, matching the teacher's sql/main_test.go pattern.
func TestMain(m *testing.M) {
	var teardown func(ctx context.Context, opts ...testcontainers.TerminateOption) error
	var err error
	teardown, dbPort, err = helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("error starting postgres container: %v", err)
	}

	code := m.Run()

	if teardown != nil {
		if err := teardown(context.Background()); err != nil {
			log.Fatalf("error tearing down postgres container: %v", err)
		}
	}

	if code != 0 {
		log.Fatalf("tests failed with code %d", code)
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	helper.SetTestDatabaseConfigEnvs(t, dbPort)
	cfg, err := helper.NewDatabaseConfiguration()
	require.NoError(t, err)

	s, err := Open(Options{Config: cfg, EmbeddingDim: 3})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.Nodes.DeleteAll(context.Background())
		_ = s.Edges.DeleteAll(context.Background())
		_ = s.Chunks.DeleteAll(context.Background())
		_ = s.Close()
	})
	return s
}

func drainNodes(t *testing.T, out <-chan model.Node, errc <-chan error) []model.Node {
	t.Helper()
	var nodes []model.Node
	for n := range out {
		nodes = append(nodes, n)
	}
	require.NoError(t, <-errc)
	return nodes
}

func TestNodeStore_SaveAndFindByID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	n := model.Node{ID: uuid.New(), Label: "Patient", Properties: model.Properties{"name": "Alice"}}
	saved, err := s.Nodes.Save(ctx, n, false)
	require.NoError(t, err)
	assert.Equal(t, n.ID, saved.ID)

	found, ok, err := s.Nodes.FindByID(ctx, n.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Alice", found.Properties["name"])
}

func TestNodeStore_FindByLabel(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, label := range []string{"Patient", "Patient", "Doctor"} {
		_, err := s.Nodes.Save(ctx, model.Node{ID: uuid.New(), Label: label}, false)
		require.NoError(t, err)
	}

	out, errc := s.Nodes.FindByLabel(ctx, "Patient")
	assert.Len(t, drainNodes(t, out, errc), 2)
}

func TestEdgeStore_SaveAndQueries(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a, b := uuid.New(), uuid.New()
	_, err := s.Nodes.Save(ctx, model.Node{ID: a, Label: "Patient"}, false)
	require.NoError(t, err)
	_, err = s.Nodes.Save(ctx, model.Node{ID: b, Label: "Doctor"}, false)
	require.NoError(t, err)

	e := model.Edge{ID: uuid.New(), SourceID: a, TargetID: b, RelationType: "TREATED_BY", Weight: 1}
	_, err = s.Edges.Save(ctx, e, false)
	require.NoError(t, err)

	has, err := s.Edges.FindBySourceTargetType(ctx, a, b, "TREATED_BY")
	require.NoError(t, err)
	assert.True(t, has)

	require.NoError(t, s.Edges.DeleteByNodeID(ctx, a))
	has, err = s.Edges.FindBySourceTargetType(ctx, a, b, "TREATED_BY")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestChunkStore_FindTopKSimilar(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	near := model.Chunk{ID: uuid.New(), Content: "near", Embedding: []float32{1, 0, 0}}
	far := model.Chunk{ID: uuid.New(), Content: "far", Embedding: []float32{0, 1, 0}}
	for _, c := range []model.Chunk{near, far} {
		_, err := s.Chunks.Save(ctx, c)
		require.NoError(t, err)
	}

	scored, err := s.Chunks.FindTopKSimilar(ctx, []float32{1, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, scored, 1)
	assert.Equal(t, "near", scored[0].Chunk.Content)
	assert.InDelta(t, 1.0, scored[0].Score, 1e-6)
}

func TestChunkStore_ChangeIndexType(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Chunks.ChangeIndexType(context.Background(), "hnsw", map[string]interface{}{"m": 8}))
	require.NoError(t, s.Chunks.ChangeIndexType(context.Background(), "ivfflat", map[string]interface{}{"lists": 10}))
	assert.Error(t, s.Chunks.ChangeIndexType(context.Background(), "bogus", nil))
}
