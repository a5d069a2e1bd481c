// Package postgres adapts the core/store capability contracts onto
// PostgreSQL with the pgvector extension, for deployments that already run
// Postgres and want the chunk similarity search pushed into the database
// rather than scanned in process (store/badger's tradeoff).
//
// Schema mirrors the teacher's database/ package: one table per record
// kind, a handler type per table wrapping a shared *helper.Database, raw
// parameterized SQL rather than stored procedures (the teacher's sql/
// package embeds .sql function files that were never present in this
// repository's history — see DESIGN.md).
package postgres

import (
	"context"
	"time"

	"github.com/arjunhale/ctxgraph/core/store"
	"github.com/arjunhale/ctxgraph/helper"
)

var (
	_ store.NodeStore  = (*NodeStore)(nil)
	_ store.EdgeStore  = (*EdgeStore)(nil)
	_ store.ChunkStore = (*ChunkStore)(nil)
)

const schemaSQL = `
CREATE EXTENSION IF NOT EXISTS vector;
CREATE EXTENSION IF NOT EXISTS "uuid-ossp";

CREATE TABLE IF NOT EXISTS nodes (
	id          uuid PRIMARY KEY,
	label       text NOT NULL,
	properties  jsonb NOT NULL DEFAULT '{}',
	created     timestamptz NOT NULL DEFAULT now(),
	updated     timestamptz NOT NULL DEFAULT now(),
	version     integer NOT NULL DEFAULT 1
);
CREATE INDEX IF NOT EXISTS idx_nodes_label ON nodes (label);

CREATE TABLE IF NOT EXISTS edges (
	id             uuid PRIMARY KEY,
	source_id      uuid NOT NULL,
	target_id      uuid NOT NULL,
	relation_type  text NOT NULL,
	properties     jsonb NOT NULL DEFAULT '{}',
	weight         double precision NOT NULL DEFAULT 1,
	created        timestamptz NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_edges_source ON edges (source_id);
CREATE INDEX IF NOT EXISTS idx_edges_target ON edges (target_id);
CREATE INDEX IF NOT EXISTS idx_edges_relation_type ON edges (relation_type);

CREATE TABLE IF NOT EXISTS chunks (
	id              uuid PRIMARY KEY,
	content         text NOT NULL,
	embedding       vector,
	linked_node_id  uuid,
	metadata        jsonb NOT NULL DEFAULT '{}',
	created         timestamptz NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_chunks_linked_node ON chunks (linked_node_id);
`

// Store owns a helper.Database connection shared by its Nodes, Edges, and
// Chunks facets. Three distinct facet types, not one type with every
// method, for the same reason store/badger splits them: the NodeStore/
// EdgeStore/ChunkStore contracts share method names with different
// signatures, so no single receiver can satisfy all three.
type Store struct {
	db *helper.Database

	Nodes  *NodeStore
	Edges  *EdgeStore
	Chunks *ChunkStore
}

// Options configures a Store.
type Options struct {
	Config       *helper.DatabaseConfiguration
	EmbeddingDim int
}

// Open connects to Postgres per opts.Config, ensures the pgvector/uuid-ossp
// extensions and schema exist, and returns a ready Store.
func Open(opts Options) (*Store, error) {
	db := helper.NewDatabase("ctxgraph", opts.Config, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := db.Instance.ExecContext(ctx, schemaSQL); err != nil {
		return nil, helper.NewError("postgres: create schema", err)
	}

	s := &Store{db: db}
	s.Nodes = &NodeStore{db: db}
	s.Edges = &EdgeStore{db: db}
	s.Chunks = &ChunkStore{db: db, dim: opts.EmbeddingDim}

	db.Logger.Info("postgres store ready", "embedding_dim", opts.EmbeddingDim)
	return s, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	if s.db == nil || s.db.Instance == nil {
		return nil
	}
	return s.db.Instance.Close()
}
