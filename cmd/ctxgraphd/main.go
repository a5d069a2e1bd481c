// Command ctxgraphd runs the context-retrieval engine as a standalone
// process: ingest documents into the graph/vector store, query it for
// assembled LLM context, or keep a store open for other processes to share.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/arjunhale/ctxgraph"
	"github.com/arjunhale/ctxgraph/core/store"
	"github.com/arjunhale/ctxgraph/ingest"
	"github.com/arjunhale/ctxgraph/model"
)

var (
	configPath   string
	storeBackend string
	storeDir     string
	embedBackend string
	embedModel   string
	openAIAPIKey string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ctxgraphd",
		Short: "Context-retrieval engine: typed property graph plus vector index",
	}

	root.PersistentFlags().StringVar(&configPath, "config", "ctxgraphd.yaml", "path to config file")
	root.PersistentFlags().StringVar(&storeBackend, "store-backend", "", "override store backend (badger or postgres)")
	root.PersistentFlags().StringVar(&storeDir, "store-dir", "", "override badger data directory")
	root.PersistentFlags().StringVar(&embedBackend, "embedder-backend", "", "override embedder backend (local or openai)")
	root.PersistentFlags().StringVar(&embedModel, "embedder-model", "", "override embedder model name")
	root.PersistentFlags().StringVar(&openAIAPIKey, "openai-api-key", os.Getenv("OPENAI_API_KEY"), "OpenAI API key, for --embedder-backend openai")

	root.AddCommand(newServeCmd(), newIngestCmd(), newQueryCmd())
	return root
}

// loadConfig reads the config file and applies flag overrides on top of it.
func loadConfig() (Config, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	if storeBackend != "" {
		cfg.Store.Backend = storeBackend
	}
	if storeDir != "" {
		cfg.Store.Dir = storeDir
	}
	if embedBackend != "" {
		cfg.Embedder.Backend = embedBackend
	}
	if embedModel != "" {
		cfg.Embedder.Model = embedModel
	}
	return cfg, nil
}

// openResult bundles the engine with the store/embedder facets the ingest
// command needs directly (the coordinator bridges nodes/edges into the
// in-memory graph but never chunks or embedding, so callers that need those
// hold their own references rather than reaching through Engine).
type openResult struct {
	Engine   *ctxgraph.Engine
	Chunks   store.ChunkStore
	Embedder store.Embedder
	Shutdown func()
}

// openEngine wires a store, an embedder, and an Engine from the effective
// config, returning a shutdown func that releases every opened resource in
// reverse order.
func openEngine(ctx context.Context) (*openResult, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	nodes, edges, chunks, storeCloser, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	embedder, closeEmbedder, err := openEmbedder(cfg, openAIAPIKey)
	if err != nil {
		storeCloser.Close()
		return nil, err
	}

	engine, err := ctxgraph.New(ctx, ctxgraph.Options{
		Nodes:    nodes,
		Edges:    edges,
		Chunks:   chunks,
		Embedder: embedder,
	})
	if err != nil {
		closeEmbedder()
		storeCloser.Close()
		return nil, fmt.Errorf("start engine: %w", err)
	}

	shutdown := func() {
		if err := closeEmbedder(); err != nil {
			slog.Warn("embedder close failed", slog.String("error", err.Error()))
		}
		if err := storeCloser.Close(); err != nil {
			slog.Warn("store close failed", slog.String("error", err.Error()))
		}
	}
	return &openResult{Engine: engine, Chunks: chunks, Embedder: embedder, Shutdown: shutdown}, nil
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Open the store and hold it open until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			opened, err := openEngine(ctx)
			if err != nil {
				return err
			}
			defer opened.Shutdown()

			slog.Info("ctxgraphd ready")
			<-ctx.Done()
			slog.Info("ctxgraphd shutting down")
			return nil
		},
	}
}

func newIngestCmd() *cobra.Command {
	var (
		chunkMode   string
		maxSentence int
		nodeLabel   string
	)

	cmd := &cobra.Command{
		Use:   "ingest [file...]",
		Short: "Chunk, embed, and extract entities/relations from text files into the store",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			opened, err := openEngine(ctx)
			if err != nil {
				return err
			}
			defer opened.Shutdown()

			chunker := ingest.ParagraphChunker()
			if chunkMode == "sentence" {
				chunker = ingest.SentenceChunker(maxSentence)
			}

			pipeline := ingest.New(ingest.Options{
				Chunk:       chunker,
				Embedder:    opened.Embedder,
				Coordinator: opened.Engine.Coordinator,
				Chunks:      opened.Chunks,
			})
			pipeline.NodeLabel = nodeLabel

			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("read %s: %w", path, err)
				}

				result, err := pipeline.Ingest(ctx, string(data))
				if err != nil {
					return fmt.Errorf("ingest %s: %w", path, err)
				}
				fmt.Printf("%s: %d chunks, %d nodes, %d edges\n", path, result.ChunksWritten, result.NodesWritten, result.EdgesWritten)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&chunkMode, "chunk-mode", "paragraph", "chunking strategy: paragraph or sentence")
	cmd.Flags().IntVar(&maxSentence, "max-sentences", 5, "sentences per chunk when --chunk-mode=sentence")
	cmd.Flags().StringVar(&nodeLabel, "node-label", "Entity", "label applied to nodes minted from extracted entities")
	return cmd
}

func newQueryCmd() *cobra.Command {
	var (
		topK           int
		traversalDepth int
		maxGraphNodes  int
		maxTokens      int
		asJSON         bool
	)

	cmd := &cobra.Command{
		Use:   "query <text>",
		Short: "Run hybrid retrieval and print the assembled context",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			opened, err := openEngine(ctx)
			if err != nil {
				return err
			}
			defer opened.Shutdown()

			req := model.RetrievalRequest{
				Query:          args[0],
				TopK:           topK,
				TraversalDepth: traversalDepth,
				MaxGraphNodes:  maxGraphNodes,
			}.WithDefaults()

			result, err := opened.Engine.Retrieve(ctx, req)
			if err != nil {
				return fmt.Errorf("retrieve: %w", err)
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}

			fmt.Println(opened.Engine.AssembleContext(*result, maxTokens))
			return nil
		},
	}

	cmd.Flags().IntVar(&topK, "top-k", 0, "number of semantic matches to retrieve (default from request defaults)")
	cmd.Flags().IntVar(&traversalDepth, "depth", 0, "graph traversal depth (default from request defaults)")
	cmd.Flags().IntVar(&maxGraphNodes, "max-nodes", 0, "cap on admitted graph nodes (default from request defaults)")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", 2000, "token budget for the assembled context payload")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw retrieval result as JSON instead of assembled text")
	return cmd
}
