package badger

import (
	"context"
	"encoding/json"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/arjunhale/ctxgraph/model"
)

// EdgeStore implements core/store.EdgeStore over a shared BadgerDB handle.
type EdgeStore struct {
	db *badgerdb.DB
}

// Save persists e, maintaining the outgoing/incoming/relation-type indexes.
func (s *EdgeStore) Save(ctx context.Context, e model.Edge, existing bool) (model.Edge, error) {
	if !existing && e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if err := e.Validate(); err != nil {
		return model.Edge{}, err
	}

	err := s.db.Update(func(txn *badgerdb.Txn) error {
		return putEdge(txn, e)
	})
	if err != nil {
		return model.Edge{}, model.NewError(model.ErrorKindStoreUnavailable, "badger: save edge", err)
	}
	return e, nil
}

func putEdge(txn *badgerdb.Txn, e model.Edge) error {
	key := edgeKey(e.ID.String())

	if item, err := txn.Get(key); err == nil {
		var old model.Edge
		if derr := item.Value(func(val []byte) error { return json.Unmarshal(val, &old) }); derr == nil {
			if err := deleteEdgeIndexes(txn, old); err != nil {
				return err
			}
		}
	} else if err != badgerdb.ErrKeyNotFound {
		return err
	}

	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if err := txn.Set(key, data); err != nil {
		return err
	}
	return setEdgeIndexes(txn, e)
}

func setEdgeIndexes(txn *badgerdb.Txn, e model.Edge) error {
	if err := txn.Set(outgoingIndexKey(e.SourceID.String(), e.ID.String()), []byte{}); err != nil {
		return err
	}
	if err := txn.Set(incomingIndexKey(e.TargetID.String(), e.ID.String()), []byte{}); err != nil {
		return err
	}
	return txn.Set(relationTypeIndexKey(e.RelationType, e.ID.String()), []byte{})
}

func deleteEdgeIndexes(txn *badgerdb.Txn, e model.Edge) error {
	if err := txn.Delete(outgoingIndexKey(e.SourceID.String(), e.ID.String())); err != nil {
		return err
	}
	if err := txn.Delete(incomingIndexKey(e.TargetID.String(), e.ID.String())); err != nil {
		return err
	}
	return txn.Delete(relationTypeIndexKey(e.RelationType, e.ID.String()))
}

// SaveAll persists edges in a single transaction.
func (s *EdgeStore) SaveAll(ctx context.Context, edges []model.Edge) ([]model.Edge, error) {
	err := s.db.Update(func(txn *badgerdb.Txn) error {
		for i := range edges {
			if edges[i].ID == uuid.Nil {
				edges[i].ID = uuid.New()
			}
			if err := putEdge(txn, edges[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, model.NewError(model.ErrorKindStoreUnavailable, "badger: save all edges", err)
	}
	return edges, nil
}

// FindByID looks up an edge by id.
func (s *EdgeStore) FindByID(ctx context.Context, id uuid.UUID) (model.Edge, bool, error) {
	var e model.Edge
	found := false
	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(edgeKey(id.String()))
		if err == badgerdb.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error { return json.Unmarshal(val, &e) })
	})
	if err != nil {
		return model.Edge{}, false, model.NewError(model.ErrorKindStoreUnavailable, "badger: find edge", err)
	}
	return e, found, nil
}

// FindByNodeID streams every edge incident to id, either direction.
func (s *EdgeStore) FindByNodeID(ctx context.Context, id uuid.UUID) (<-chan model.Edge, <-chan error) {
	out := make(chan model.Edge)
	errc := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errc)

		err := s.db.View(func(txn *badgerdb.Txn) error {
			seen := make(map[string]struct{})
			for _, prefix := range [][]byte{outgoingIndexPrefix(id.String()), incomingIndexPrefix(id.String())} {
				opts := badgerdb.DefaultIteratorOptions
				opts.PrefetchValues = false
				it := txn.NewIterator(opts)
				for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
					edgeID := extractSuffix(it.Item().Key())
					if _, ok := seen[edgeID]; ok {
						continue
					}
					seen[edgeID] = struct{}{}
					item, err := txn.Get(edgeKey(edgeID))
					if err != nil {
						continue
					}
					var e model.Edge
					if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &e) }); err != nil {
						continue
					}
					select {
					case out <- e:
					case <-ctx.Done():
						it.Close()
						return ctx.Err()
					}
				}
				it.Close()
			}
			return nil
		})
		if err != nil && err != context.Canceled {
			errc <- model.NewError(model.ErrorKindStoreUnavailable, "badger: find edges by node", err)
		}
	}()

	return out, errc
}

// FindByRelationType streams every edge of name. An empty name is the
// "stream every edge" sentinel the coordinator's Load relies on (spec §4.4).
func (s *EdgeStore) FindByRelationType(ctx context.Context, name string) (<-chan model.Edge, <-chan error) {
	out := make(chan model.Edge)
	errc := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errc)

		err := s.db.View(func(txn *badgerdb.Txn) error {
			if name == "" {
				opts := badgerdb.DefaultIteratorOptions
				it := txn.NewIterator(opts)
				defer it.Close()
				prefix := []byte{prefixEdge}
				for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
					var e model.Edge
					if err := it.Item().Value(func(val []byte) error { return json.Unmarshal(val, &e) }); err != nil {
						continue
					}
					select {
					case out <- e:
					case <-ctx.Done():
						return ctx.Err()
					}
				}
				return nil
			}

			opts := badgerdb.DefaultIteratorOptions
			opts.PrefetchValues = false
			it := txn.NewIterator(opts)
			defer it.Close()
			prefix := relationTypeIndexPrefix(name)
			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				edgeID := extractSuffix(it.Item().Key())
				item, err := txn.Get(edgeKey(edgeID))
				if err != nil {
					continue
				}
				var e model.Edge
				if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &e) }); err != nil {
					continue
				}
				select {
				case out <- e:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return nil
		})
		if err != nil && err != context.Canceled {
			errc <- model.NewError(model.ErrorKindStoreUnavailable, "badger: find edges by relation type", err)
		}
	}()

	return out, errc
}

// FindBySourceTargetType reports whether an edge of name already links
// source to target, used to avoid duplicate-edge ingestion upstream.
func (s *EdgeStore) FindBySourceTargetType(ctx context.Context, source, target uuid.UUID, name string) (bool, error) {
	found := false
	err := s.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		prefix := outgoingIndexPrefix(source.String())
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			edgeID := extractSuffix(it.Item().Key())
			item, err := txn.Get(edgeKey(edgeID))
			if err != nil {
				continue
			}
			var e model.Edge
			if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &e) }); err != nil {
				continue
			}
			if e.TargetID == target && (name == "" || e.RelationType == name) {
				found = true
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return false, model.NewError(model.ErrorKindStoreUnavailable, "badger: find source/target/type", err)
	}
	return found, nil
}

// DeleteByID removes an edge and its indexes.
func (s *EdgeStore) DeleteByID(ctx context.Context, id uuid.UUID) error {
	err := s.db.Update(func(txn *badgerdb.Txn) error {
		return deleteEdgeInTxn(txn, id)
	})
	if err != nil {
		return model.NewError(model.ErrorKindStoreUnavailable, "badger: delete edge", err)
	}
	return nil
}

func deleteEdgeInTxn(txn *badgerdb.Txn, id uuid.UUID) error {
	key := edgeKey(id.String())
	item, err := txn.Get(key)
	if err == badgerdb.ErrKeyNotFound {
		return nil
	}
	if err != nil {
		return err
	}
	var e model.Edge
	if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &e) }); err != nil {
		return err
	}
	if err := deleteEdgeIndexes(txn, e); err != nil {
		return err
	}
	return txn.Delete(key)
}

// DeleteByNodeID removes every edge incident to id (spec §4.4 delete cascade).
func (s *EdgeStore) DeleteByNodeID(ctx context.Context, id uuid.UUID) error {
	err := s.db.Update(func(txn *badgerdb.Txn) error {
		seen := make(map[string]struct{})
		for _, prefix := range [][]byte{outgoingIndexPrefix(id.String()), incomingIndexPrefix(id.String())} {
			opts := badgerdb.DefaultIteratorOptions
			opts.PrefetchValues = false
			it := txn.NewIterator(opts)
			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				edgeID := extractSuffix(it.Item().Key())
				seen[edgeID] = struct{}{}
			}
			it.Close()
		}
		for edgeIDStr := range seen {
			id, err := uuid.Parse(edgeIDStr)
			if err != nil {
				continue
			}
			if err := deleteEdgeInTxn(txn, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return model.NewError(model.ErrorKindStoreUnavailable, "badger: delete edges by node", err)
	}
	return nil
}

// DeleteAll drops every edge and its indexes.
func (s *EdgeStore) DeleteAll(ctx context.Context) error {
	for _, prefix := range []byte{prefixEdge, prefixOutgoingIndex, prefixIncomingIndex, prefixRelationTypeIdx} {
		if err := deletePrefix(s.db, prefix); err != nil {
			return model.NewError(model.ErrorKindStoreUnavailable, "badger: delete all edges", err)
		}
	}
	return nil
}
