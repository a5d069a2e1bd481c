package badger

import (
	"context"
	"encoding/json"
	"math"
	"sort"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/arjunhale/ctxgraph/model"
)

// ChunkStore implements core/store.ChunkStore over a shared BadgerDB handle.
// Badger has no native vector index, so similarity search is a brute-force
// cosine scan over every stored chunk — acceptable for the embedded,
// dependency-free default store; store/postgres's pgvector index is the
// path for production-scale corpora.
type ChunkStore struct {
	db *badgerdb.DB
}

// Save persists c, assigning a fresh id if unset, and indexes it by
// linked node id when present.
func (s *ChunkStore) Save(ctx context.Context, c model.Chunk) (model.Chunk, error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}

	err := s.db.Update(func(txn *badgerdb.Txn) error {
		if old, ok, derr := getChunk(txn, c.ID); derr == nil && ok && old.LinkedNodeID != nil {
			if err := txn.Delete(chunkByLinkedIndexKey(old.LinkedNodeID.String(), c.ID.String())); err != nil {
				return err
			}
		}

		data, err := json.Marshal(c)
		if err != nil {
			return err
		}
		if err := txn.Set(chunkKey(c.ID.String()), data); err != nil {
			return err
		}
		if c.LinkedNodeID != nil {
			return txn.Set(chunkByLinkedIndexKey(c.LinkedNodeID.String(), c.ID.String()), []byte{})
		}
		return nil
	})
	if err != nil {
		return model.Chunk{}, model.NewError(model.ErrorKindStoreUnavailable, "badger: save chunk", err)
	}
	return c, nil
}

func getChunk(txn *badgerdb.Txn, id uuid.UUID) (model.Chunk, bool, error) {
	var c model.Chunk
	item, err := txn.Get(chunkKey(id.String()))
	if err == badgerdb.ErrKeyNotFound {
		return model.Chunk{}, false, nil
	}
	if err != nil {
		return model.Chunk{}, false, err
	}
	if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &c) }); err != nil {
		return model.Chunk{}, false, err
	}
	return c, true, nil
}

// FindTopKSimilar scans every stored chunk and returns the k with highest
// cosine similarity to query (spec §6). Chunks without an embedding are
// skipped.
func (s *ChunkStore) FindTopKSimilar(ctx context.Context, query []float32, k int) ([]model.ScoredChunk, error) {
	return s.FindTopKSimilarWithLabel(ctx, query, "", k)
}

// FindTopKSimilarWithLabel is FindTopKSimilar restricted to chunks whose
// metadata "label" field equals label, when label is non-empty.
func (s *ChunkStore) FindTopKSimilarWithLabel(ctx context.Context, query []float32, label string, k int) ([]model.ScoredChunk, error) {
	if k <= 0 {
		return nil, nil
	}

	var scored []model.ScoredChunk
	err := s.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()
		prefix := []byte{prefixChunk}
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var c model.Chunk
			if err := it.Item().Value(func(val []byte) error { return json.Unmarshal(val, &c) }); err != nil {
				continue
			}
			if len(c.Embedding) == 0 {
				continue
			}
			if label != "" {
				if v, ok := c.Metadata["label"]; !ok || v != label {
					continue
				}
			}
			scored = append(scored, model.ScoredChunk{Chunk: c, Score: cosineSimilarity(query, c.Embedding)})
		}
		return nil
	})
	if err != nil {
		return nil, model.NewError(model.ErrorKindStoreUnavailable, "badger: find top-k similar", err)
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

// cosineSimilarity returns the cosine similarity of a and b, 0 when either
// is zero-length or a zero vector.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// FindByLinkedNodeID returns every chunk whose LinkedNodeID equals id.
func (s *ChunkStore) FindByLinkedNodeID(ctx context.Context, id uuid.UUID) ([]model.Chunk, error) {
	var chunks []model.Chunk
	err := s.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		prefix := chunkByLinkedIndexPrefix(id.String())
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			chunkIDStr := extractSuffix(it.Item().Key())
			chunkID, err := uuid.Parse(chunkIDStr)
			if err != nil {
				continue
			}
			c, ok, err := getChunk(txn, chunkID)
			if err != nil || !ok {
				continue
			}
			chunks = append(chunks, c)
		}
		return nil
	})
	if err != nil {
		return nil, model.NewError(model.ErrorKindStoreUnavailable, "badger: find chunks by linked node", err)
	}
	return chunks, nil
}

// DeleteByLinkedNodeID removes every chunk linked to id.
func (s *ChunkStore) DeleteByLinkedNodeID(ctx context.Context, id uuid.UUID) error {
	err := s.db.Update(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		prefix := chunkByLinkedIndexPrefix(id.String())
		var chunkIDs []string
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			chunkIDs = append(chunkIDs, extractSuffix(it.Item().Key()))
		}
		it.Close()

		for _, chunkIDStr := range chunkIDs {
			chunkID, err := uuid.Parse(chunkIDStr)
			if err != nil {
				continue
			}
			if err := txn.Delete(chunkByLinkedIndexKey(id.String(), chunkIDStr)); err != nil {
				return err
			}
			if err := txn.Delete(chunkKey(chunkID.String())); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return model.NewError(model.ErrorKindStoreUnavailable, "badger: delete chunks by linked node", err)
	}
	return nil
}

// DeleteAll drops every chunk and its linked-node index entries.
func (s *ChunkStore) DeleteAll(ctx context.Context) error {
	if err := deletePrefix(s.db, prefixChunk); err != nil {
		return model.NewError(model.ErrorKindStoreUnavailable, "badger: delete all chunks", err)
	}
	if err := deletePrefix(s.db, prefixChunkByLinkedIdx); err != nil {
		return model.NewError(model.ErrorKindStoreUnavailable, "badger: delete all chunks", err)
	}
	return nil
}
