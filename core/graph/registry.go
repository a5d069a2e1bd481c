// Package graph holds the in-memory property graph: the relation-type
// registry (G1), the graph itself (G2), its concurrency gate (G3), and the
// traversal primitives built on top of it.
package graph

import (
	"sync"

	"github.com/arjunhale/ctxgraph/model"
)

// Registry is the process-wide relation-type registry (G1). It is advisory
// metadata, mutable only at initialisation in practice, but safe for
// concurrent lookup alongside late registration.
type Registry struct {
	mu    sync.RWMutex
	byName map[string]model.RelationType
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]model.RelationType)}
}

// Register adds or replaces the given relation types, keyed by name.
// Idempotent: registering the same name twice simply replaces the entry.
func (r *Registry) Register(types ...model.RelationType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range types {
		r.byName[t.Name] = t
	}
}

// Lookup returns the relation type registered under name, if any.
func (r *Registry) Lookup(name string) (model.RelationType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byName[name]
	return t, ok
}

// IsRegistered reports whether name has been registered.
func (r *Registry) IsRegistered(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}

// All returns every registered relation type, order unspecified.
func (r *Registry) All() []model.RelationType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.RelationType, 0, len(r.byName))
	for _, t := range r.byName {
		out = append(out, t)
	}
	return out
}
