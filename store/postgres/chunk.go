package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/arjunhale/ctxgraph/helper"
	"github.com/arjunhale/ctxgraph/model"
)

// ChunkStore implements core/store.ChunkStore over Postgres with pgvector,
// pushing similarity search into the database instead of store/badger's
// brute-force in-process scan.
type ChunkStore struct {
	db  *helper.Database
	dim int
}

// Save upserts c.
func (s *ChunkStore) Save(ctx context.Context, c model.Chunk) (model.Chunk, error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if err := c.Validate(s.dim); err != nil {
		return model.Chunk{}, err
	}

	var vec interface{}
	if len(c.Embedding) > 0 {
		vec = pgvector.NewVector(c.Embedding)
	}

	var linked interface{}
	if c.LinkedNodeID != nil {
		linked = *c.LinkedNodeID
	}

	_, err := s.db.Instance.ExecContext(ctx, `
		INSERT INTO chunks (id, content, embedding, linked_node_id, metadata, created)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding,
			linked_node_id = EXCLUDED.linked_node_id,
			metadata = EXCLUDED.metadata
	`, c.ID, c.Content, vec, linked, c.Metadata)
	if err != nil {
		return model.Chunk{}, helper.NewError("postgres: save chunk", err)
	}
	return c, nil
}

// FindTopKSimilar returns the k chunks with highest cosine similarity to
// query, computed by pgvector's <=> distance operator.
func (s *ChunkStore) FindTopKSimilar(ctx context.Context, query []float32, k int) ([]model.ScoredChunk, error) {
	return s.FindTopKSimilarWithLabel(ctx, query, "", k)
}

// FindTopKSimilarWithLabel is FindTopKSimilar restricted to chunks whose
// metadata "label" field equals label, when label is non-empty.
func (s *ChunkStore) FindTopKSimilarWithLabel(ctx context.Context, query []float32, label string, k int) ([]model.ScoredChunk, error) {
	if k <= 0 {
		return nil, nil
	}

	vec := pgvector.NewVector(query)
	rows, err := s.db.Instance.QueryContext(ctx, `
		SELECT id, content, embedding, linked_node_id, metadata, created,
		       1 - (embedding <=> $1) AS score
		FROM chunks
		WHERE embedding IS NOT NULL
		  AND ($2 = '' OR metadata->>'label' = $2)
		ORDER BY embedding <=> $1
		LIMIT $3
	`, vec, label, k)
	if err != nil {
		return nil, helper.NewError("postgres: find top-k similar", err)
	}
	defer rows.Close()

	var scored []model.ScoredChunk
	for rows.Next() {
		var c model.Chunk
		var embedding pgvector.Vector
		var linked sql.NullString
		var score float64
		if err := rows.Scan(&c.ID, &c.Content, &embedding, &linked, &c.Metadata, &c.Created, &score); err != nil {
			return nil, helper.NewError("postgres: scan chunk", err)
		}
		c.Embedding = embedding.Slice()
		if linked.Valid {
			id, err := uuid.Parse(linked.String)
			if err == nil {
				c.LinkedNodeID = &id
			}
		}
		scored = append(scored, model.ScoredChunk{Chunk: c, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, helper.NewError("postgres: iterate chunks", err)
	}
	return scored, nil
}

// FindByLinkedNodeID returns every chunk linked to id.
func (s *ChunkStore) FindByLinkedNodeID(ctx context.Context, id uuid.UUID) ([]model.Chunk, error) {
	rows, err := s.db.Instance.QueryContext(ctx, `
		SELECT id, content, embedding, linked_node_id, metadata, created
		FROM chunks WHERE linked_node_id = $1
	`, id)
	if err != nil {
		return nil, helper.NewError("postgres: find chunks by linked node", err)
	}
	defer rows.Close()

	var chunks []model.Chunk
	for rows.Next() {
		var c model.Chunk
		var embedding pgvector.Vector
		var linked sql.NullString
		if err := rows.Scan(&c.ID, &c.Content, &embedding, &linked, &c.Metadata, &c.Created); err != nil {
			return nil, helper.NewError("postgres: scan chunk", err)
		}
		c.Embedding = embedding.Slice()
		if linked.Valid {
			nid, err := uuid.Parse(linked.String)
			if err == nil {
				c.LinkedNodeID = &nid
			}
		}
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, helper.NewError("postgres: iterate chunks", err)
	}
	return chunks, nil
}

// DeleteByLinkedNodeID removes every chunk linked to id.
func (s *ChunkStore) DeleteByLinkedNodeID(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.Instance.ExecContext(ctx, `DELETE FROM chunks WHERE linked_node_id = $1`, id); err != nil {
		return helper.NewError("postgres: delete chunks by linked node", err)
	}
	return nil
}

// DeleteAll truncates the chunks table.
func (s *ChunkStore) DeleteAll(ctx context.Context) error {
	if _, err := s.db.Instance.ExecContext(ctx, `TRUNCATE chunks`); err != nil {
		return helper.NewError("postgres: delete all chunks", err)
	}
	return nil
}

// ChangeIndexType switches the chunks table's vector index between HNSW and
// IVFFlat, matching the tuning knob the teacher exposed on its chunks
// handler.
//
//	indexType: "hnsw" or "ivfflat"
//	params: "m"/"ef_construction" for hnsw, "lists" for ivfflat
func (s *ChunkStore) ChangeIndexType(ctx context.Context, indexType string, params map[string]interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	if _, err := s.db.Instance.ExecContext(ctx, `DROP INDEX IF EXISTS idx_chunks_embedding;`); err != nil {
		return helper.NewError("postgres: drop index", err)
	}

	var createIndexSQL string
	switch indexType {
	case "hnsw":
		m, efConstruction := 16, 64
		if v, ok := params["m"].(int); ok {
			m = v
		}
		if v, ok := params["ef_construction"].(int); ok {
			efConstruction = v
		}
		createIndexSQL = fmt.Sprintf(
			`CREATE INDEX idx_chunks_embedding ON chunks USING hnsw (embedding vector_cosine_ops) WITH (m = %d, ef_construction = %d);`,
			m, efConstruction,
		)
	case "ivfflat":
		lists := 100
		if v, ok := params["lists"].(int); ok {
			lists = v
		}
		createIndexSQL = fmt.Sprintf(
			`CREATE INDEX idx_chunks_embedding ON chunks USING ivfflat (embedding vector_cosine_ops) WITH (lists = %d);`,
			lists,
		)
	default:
		return helper.NewError("postgres: change index type", fmt.Errorf("unsupported index type: %s (use 'hnsw' or 'ivfflat')", indexType))
	}

	if _, err := s.db.Instance.ExecContext(ctx, createIndexSQL); err != nil {
		return helper.NewError("postgres: create index", err)
	}

	s.db.Logger.Info("changed chunk vector index", "type", indexType, "params", params)
	return nil
}
