package main

import (
	"fmt"

	"github.com/arjunhale/ctxgraph/core/store"
	"github.com/arjunhale/ctxgraph/embedder/local"
	"github.com/arjunhale/ctxgraph/embedder/openai"
	"github.com/arjunhale/ctxgraph/helper"
	badgerstore "github.com/arjunhale/ctxgraph/store/badger"
	postgresstore "github.com/arjunhale/ctxgraph/store/postgres"
)

// closer is satisfied by both store/badger.Store and store/postgres.Store;
// main closes whichever backend it opened on shutdown.
type closer interface {
	Close() error
}

// openStore builds the durable triple from cfg.Store, returning the three
// facets plus a handle to close them.
func openStore(cfg Config) (store.NodeStore, store.EdgeStore, store.ChunkStore, closer, error) {
	switch cfg.Store.Backend {
	case "badger", "":
		s, err := badgerstore.Open(badgerstore.Options{Dir: cfg.Store.Dir})
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("open badger store: %w", err)
		}
		return s.Nodes, s.Edges, s.Chunks, s, nil

	case "postgres":
		dbCfg, err := helper.NewDatabaseConfiguration()
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("load database configuration: %w", err)
		}
		s, err := postgresstore.Open(postgresstore.Options{Config: dbCfg, EmbeddingDim: cfg.EmbeddingDim})
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("open postgres store: %w", err)
		}
		return s.Nodes, s.Edges, s.Chunks, s, nil

	default:
		return nil, nil, nil, nil, fmt.Errorf("unknown store backend %q (want badger or postgres)", cfg.Store.Backend)
	}
}

// openEmbedder builds the embedder from cfg.Embedder. The returned close
// func is a no-op for embedders that own no external resource.
func openEmbedder(cfg Config, openAIAPIKey string) (store.Embedder, func() error, error) {
	switch cfg.Embedder.Backend {
	case "local", "":
		e, err := local.New(cfg.Embedder.Model)
		if err != nil {
			return nil, nil, fmt.Errorf("open local embedder: %w", err)
		}
		return e, e.Close, nil

	case "openai":
		if openAIAPIKey == "" {
			return nil, nil, fmt.Errorf("openai embedder requires --openai-api-key or OPENAI_API_KEY")
		}
		e, err := openai.New(openAIAPIKey, cfg.Embedder.Model)
		if err != nil {
			return nil, nil, fmt.Errorf("open openai embedder: %w", err)
		}
		return e, func() error { return nil }, nil

	default:
		return nil, nil, fmt.Errorf("unknown embedder backend %q (want local or openai)", cfg.Embedder.Backend)
	}
}
