package badger

import (
	"context"
	"encoding/json"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/arjunhale/ctxgraph/model"
)

// NodeStore implements core/store.NodeStore over a shared BadgerDB handle.
type NodeStore struct {
	db *badgerdb.DB
}

// Save persists n. When existing is true, n.ID is preserved as-is
// (overwrite); otherwise a fresh id is assigned if n.ID is nil (spec §6).
func (s *NodeStore) Save(ctx context.Context, n model.Node, existing bool) (model.Node, error) {
	if !existing && n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if err := n.Validate(); err != nil {
		return model.Node{}, err
	}

	err := s.db.Update(func(txn *badgerdb.Txn) error {
		return putNode(txn, n)
	})
	if err != nil {
		return model.Node{}, model.NewError(model.ErrorKindStoreUnavailable, "badger: save node", err)
	}
	return n, nil
}

func putNode(txn *badgerdb.Txn, n model.Node) error {
	key := nodeKey(n.ID.String())

	if item, err := txn.Get(key); err == nil {
		var old model.Node
		if derr := item.Value(func(val []byte) error { return json.Unmarshal(val, &old) }); derr == nil && old.Label != n.Label {
			if err := txn.Delete(labelIndexKey(old.Label, old.ID.String())); err != nil {
				return err
			}
		}
	} else if err != badgerdb.ErrKeyNotFound {
		return err
	}

	data, err := json.Marshal(n)
	if err != nil {
		return err
	}
	if err := txn.Set(key, data); err != nil {
		return err
	}
	return txn.Set(labelIndexKey(n.Label, n.ID.String()), []byte{})
}

// SaveAll persists nodes in a single transaction.
func (s *NodeStore) SaveAll(ctx context.Context, nodes []model.Node) ([]model.Node, error) {
	err := s.db.Update(func(txn *badgerdb.Txn) error {
		for i := range nodes {
			if nodes[i].ID == uuid.Nil {
				nodes[i].ID = uuid.New()
			}
			if err := putNode(txn, nodes[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, model.NewError(model.ErrorKindStoreUnavailable, "badger: save all nodes", err)
	}
	return nodes, nil
}

// FindByID looks up a node by id.
func (s *NodeStore) FindByID(ctx context.Context, id uuid.UUID) (model.Node, bool, error) {
	var n model.Node
	found := false
	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(nodeKey(id.String()))
		if err == badgerdb.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error { return json.Unmarshal(val, &n) })
	})
	if err != nil {
		return model.Node{}, false, model.NewError(model.ErrorKindStoreUnavailable, "badger: find node", err)
	}
	return n, found, nil
}

// FindByLabel streams every node with label over the returned channel. An
// empty label is the "stream every node" sentinel the coordinator's Load
// relies on (spec §4.4).
func (s *NodeStore) FindByLabel(ctx context.Context, label string) (<-chan model.Node, <-chan error) {
	out := make(chan model.Node)
	errc := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errc)

		err := s.db.View(func(txn *badgerdb.Txn) error {
			if label == "" {
				opts := badgerdb.DefaultIteratorOptions
				it := txn.NewIterator(opts)
				defer it.Close()
				prefix := []byte{prefixNode}
				for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
					var n model.Node
					if err := it.Item().Value(func(val []byte) error { return json.Unmarshal(val, &n) }); err != nil {
						continue
					}
					select {
					case out <- n:
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
			prefix := labelIndexPrefix(label)
			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				id := extractSuffix(it.Item().Key())
				item, err := txn.Get(nodeKey(id))
				if err != nil {
					continue
				}
				var n model.Node
				if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &n) }); err != nil {
					continue
				}
				select {
				case out <- n:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return nil
		})
		if err != nil && err != context.Canceled {
			errc <- model.NewError(model.ErrorKindStoreUnavailable, "badger: find nodes by label", err)
		}
	}()

	return out, errc
}

// DeleteByID removes a node and its label index entry. Incident edges are
// the caller's responsibility (the coordinator cascades via EdgeStore).
func (s *NodeStore) DeleteByID(ctx context.Context, id uuid.UUID) error {
	err := s.db.Update(func(txn *badgerdb.Txn) error {
		key := nodeKey(id.String())
		item, err := txn.Get(key)
		if err == badgerdb.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		var n model.Node
		if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &n) }); err != nil {
			return err
		}
		if err := txn.Delete(labelIndexKey(n.Label, id.String())); err != nil {
			return err
		}
		return txn.Delete(key)
	})
	if err != nil {
		return model.NewError(model.ErrorKindStoreUnavailable, "badger: delete node", err)
	}
	return nil
}

// DeleteAll drops every node and label-index entry.
func (s *NodeStore) DeleteAll(ctx context.Context) error {
	if err := deletePrefix(s.db, prefixNode); err != nil {
		return model.NewError(model.ErrorKindStoreUnavailable, "badger: delete all nodes", err)
	}
	if err := deletePrefix(s.db, prefixLabelIndex); err != nil {
		return model.NewError(model.ErrorKindStoreUnavailable, "badger: delete all nodes", err)
	}
	return nil
}

func deletePrefix(db *badgerdb.DB, prefix byte) error {
	return db.Update(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		var keys [][]byte
		p := []byte{prefix}
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			keys = append(keys, append([]byte(nil), it.Item().Key()...))
		}
		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}
