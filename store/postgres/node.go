package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/arjunhale/ctxgraph/helper"
	"github.com/arjunhale/ctxgraph/model"
)

// NodeStore implements core/store.NodeStore over Postgres.
type NodeStore struct {
	db *helper.Database
}

// Save upserts n. Existing rows keep their id; a nil id on a non-existing
// save is assigned before the insert (spec §6).
func (s *NodeStore) Save(ctx context.Context, n model.Node, existing bool) (model.Node, error) {
	if !existing && n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if err := n.Validate(); err != nil {
		return model.Node{}, err
	}

	_, err := s.db.Instance.ExecContext(ctx, `
		INSERT INTO nodes (id, label, properties, created, updated, version)
		VALUES ($1, $2, $3, now(), now(), 1)
		ON CONFLICT (id) DO UPDATE SET
			label = EXCLUDED.label,
			properties = EXCLUDED.properties,
			updated = now(),
			version = nodes.version + 1
	`, n.ID, n.Label, n.Properties)
	if err != nil {
		return model.Node{}, helper.NewError("postgres: save node", err)
	}
	return n, nil
}

// SaveAll persists nodes one at a time inside a single transaction.
func (s *NodeStore) SaveAll(ctx context.Context, nodes []model.Node) ([]model.Node, error) {
	tx, err := s.db.Instance.BeginTx(ctx, nil)
	if err != nil {
		return nil, helper.NewError("postgres: save all nodes", err)
	}
	defer tx.Rollback()

	for i := range nodes {
		if nodes[i].ID == uuid.Nil {
			nodes[i].ID = uuid.New()
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO nodes (id, label, properties, created, updated, version)
			VALUES ($1, $2, $3, now(), now(), 1)
			ON CONFLICT (id) DO UPDATE SET
				label = EXCLUDED.label,
				properties = EXCLUDED.properties,
				updated = now(),
				version = nodes.version + 1
		`, nodes[i].ID, nodes[i].Label, nodes[i].Properties); err != nil {
			return nil, helper.NewError("postgres: save all nodes", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, helper.NewError("postgres: save all nodes", err)
	}
	return nodes, nil
}

// FindByID looks up a node by id.
func (s *NodeStore) FindByID(ctx context.Context, id uuid.UUID) (model.Node, bool, error) {
	var n model.Node
	row := s.db.Instance.QueryRowContext(ctx, `
		SELECT id, label, properties, created, updated, version FROM nodes WHERE id = $1
	`, id)

	err := row.Scan(&n.ID, &n.Label, &n.Properties, &n.Created, &n.Updated, &n.Version)
	if err == sql.ErrNoRows {
		return model.Node{}, false, nil
	}
	if err != nil {
		return model.Node{}, false, helper.NewError("postgres: find node", err)
	}
	return n, true, nil
}

// FindByLabel streams every node with label. An empty label streams every
// node (the coordinator's Load sentinel, spec §4.4).
func (s *NodeStore) FindByLabel(ctx context.Context, label string) (<-chan model.Node, <-chan error) {
	out := make(chan model.Node)
	errc := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errc)

		var rows *sql.Rows
		var err error
		if label == "" {
			rows, err = s.db.Instance.QueryContext(ctx, `SELECT id, label, properties, created, updated, version FROM nodes`)
		} else {
			rows, err = s.db.Instance.QueryContext(ctx, `SELECT id, label, properties, created, updated, version FROM nodes WHERE label = $1`, label)
		}
		if err != nil {
			errc <- helper.NewError("postgres: find nodes by label", err)
			return
		}
		defer rows.Close()

		for rows.Next() {
			var n model.Node
			if err := rows.Scan(&n.ID, &n.Label, &n.Properties, &n.Created, &n.Updated, &n.Version); err != nil {
				errc <- helper.NewError("postgres: scan node", err)
				return
			}
			select {
			case out <- n:
			case <-ctx.Done():
				return
			}
		}
		if err := rows.Err(); err != nil {
			errc <- helper.NewError("postgres: iterate nodes", err)
		}
	}()

	return out, errc
}

// DeleteByID removes a node. Incident edges are the caller's responsibility.
func (s *NodeStore) DeleteByID(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.Instance.ExecContext(ctx, `DELETE FROM nodes WHERE id = $1`, id); err != nil {
		return helper.NewError("postgres: delete node", err)
	}
	return nil
}

// DeleteAll truncates the nodes table.
func (s *NodeStore) DeleteAll(ctx context.Context) error {
	if _, err := s.db.Instance.ExecContext(ctx, `TRUNCATE nodes`); err != nil {
		return helper.NewError("postgres: delete all nodes", err)
	}
	return nil
}
