package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/arjunhale/ctxgraph/helper"
	"github.com/arjunhale/ctxgraph/model"
)

// EdgeStore implements core/store.EdgeStore over Postgres.
type EdgeStore struct {
	db *helper.Database
}

// Save upserts e.
func (s *EdgeStore) Save(ctx context.Context, e model.Edge, existing bool) (model.Edge, error) {
	if !existing && e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if err := e.Validate(); err != nil {
		return model.Edge{}, err
	}

	_, err := s.db.Instance.ExecContext(ctx, `
		INSERT INTO edges (id, source_id, target_id, relation_type, properties, weight, created)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (id) DO UPDATE SET
			source_id = EXCLUDED.source_id,
			target_id = EXCLUDED.target_id,
			relation_type = EXCLUDED.relation_type,
			properties = EXCLUDED.properties,
			weight = EXCLUDED.weight
	`, e.ID, e.SourceID, e.TargetID, e.RelationType, e.Properties, e.NormalizedWeight())
	if err != nil {
		return model.Edge{}, helper.NewError("postgres: save edge", err)
	}
	return e, nil
}

// SaveAll persists edges inside a single transaction.
func (s *EdgeStore) SaveAll(ctx context.Context, edges []model.Edge) ([]model.Edge, error) {
	tx, err := s.db.Instance.BeginTx(ctx, nil)
	if err != nil {
		return nil, helper.NewError("postgres: save all edges", err)
	}
	defer tx.Rollback()

	for i := range edges {
		if edges[i].ID == uuid.Nil {
			edges[i].ID = uuid.New()
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO edges (id, source_id, target_id, relation_type, properties, weight, created)
			VALUES ($1, $2, $3, $4, $5, $6, now())
			ON CONFLICT (id) DO UPDATE SET
				source_id = EXCLUDED.source_id,
				target_id = EXCLUDED.target_id,
				relation_type = EXCLUDED.relation_type,
				properties = EXCLUDED.properties,
				weight = EXCLUDED.weight
		`, edges[i].ID, edges[i].SourceID, edges[i].TargetID, edges[i].RelationType, edges[i].Properties, edges[i].NormalizedWeight()); err != nil {
			return nil, helper.NewError("postgres: save all edges", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, helper.NewError("postgres: save all edges", err)
	}
	return edges, nil
}

// FindByID looks up an edge by id.
func (s *EdgeStore) FindByID(ctx context.Context, id uuid.UUID) (model.Edge, bool, error) {
	var e model.Edge
	row := s.db.Instance.QueryRowContext(ctx, `
		SELECT id, source_id, target_id, relation_type, properties, weight, created FROM edges WHERE id = $1
	`, id)

	err := row.Scan(&e.ID, &e.SourceID, &e.TargetID, &e.RelationType, &e.Properties, &e.Weight, &e.Created)
	if err == sql.ErrNoRows {
		return model.Edge{}, false, nil
	}
	if err != nil {
		return model.Edge{}, false, helper.NewError("postgres: find edge", err)
	}
	return e, true, nil
}

func (s *EdgeStore) stream(ctx context.Context, query string, args ...interface{}) (<-chan model.Edge, <-chan error) {
	out := make(chan model.Edge)
	errc := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errc)

		rows, err := s.db.Instance.QueryContext(ctx, query, args...)
		if err != nil {
			errc <- helper.NewError("postgres: find edges", err)
			return
		}
		defer rows.Close()

		for rows.Next() {
			var e model.Edge
			if err := rows.Scan(&e.ID, &e.SourceID, &e.TargetID, &e.RelationType, &e.Properties, &e.Weight, &e.Created); err != nil {
				errc <- helper.NewError("postgres: scan edge", err)
				return
			}
			select {
			case out <- e:
			case <-ctx.Done():
				return
			}
		}
		if err := rows.Err(); err != nil {
			errc <- helper.NewError("postgres: iterate edges", err)
		}
	}()

	return out, errc
}

// FindByNodeID streams every edge incident to id, either direction.
func (s *EdgeStore) FindByNodeID(ctx context.Context, id uuid.UUID) (<-chan model.Edge, <-chan error) {
	return s.stream(ctx, `
		SELECT id, source_id, target_id, relation_type, properties, weight, created
		FROM edges WHERE source_id = $1 OR target_id = $1
	`, id)
}

// FindByRelationType streams every edge of name; empty name streams every
// edge (the coordinator's Load sentinel, spec §4.4).
func (s *EdgeStore) FindByRelationType(ctx context.Context, name string) (<-chan model.Edge, <-chan error) {
	if name == "" {
		return s.stream(ctx, `SELECT id, source_id, target_id, relation_type, properties, weight, created FROM edges`)
	}
	return s.stream(ctx, `
		SELECT id, source_id, target_id, relation_type, properties, weight, created
		FROM edges WHERE relation_type = $1
	`, name)
}

// FindBySourceTargetType reports whether an edge of name already links
// source to target.
func (s *EdgeStore) FindBySourceTargetType(ctx context.Context, source, target uuid.UUID, name string) (bool, error) {
	var found bool
	err := s.db.Instance.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM edges
			WHERE source_id = $1 AND target_id = $2 AND ($3 = '' OR relation_type = $3)
		)
	`, source, target, name).Scan(&found)
	if err != nil {
		return false, helper.NewError("postgres: find source/target/type", err)
	}
	return found, nil
}

// DeleteByID removes an edge.
func (s *EdgeStore) DeleteByID(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.Instance.ExecContext(ctx, `DELETE FROM edges WHERE id = $1`, id); err != nil {
		return helper.NewError("postgres: delete edge", err)
	}
	return nil
}

// DeleteByNodeID removes every edge incident to id (spec §4.4 delete cascade).
func (s *EdgeStore) DeleteByNodeID(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.Instance.ExecContext(ctx, `DELETE FROM edges WHERE source_id = $1 OR target_id = $1`, id); err != nil {
		return helper.NewError("postgres: delete edges by node", err)
	}
	return nil
}

// DeleteAll truncates the edges table.
func (s *EdgeStore) DeleteAll(ctx context.Context) error {
	if _, err := s.db.Instance.ExecContext(ctx, `TRUNCATE edges`); err != nil {
		return helper.NewError("postgres: delete all edges", err)
	}
	return nil
}
