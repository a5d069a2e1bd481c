// Package local implements core/store.Embedder with an in-process
// sentence-transformer model via hugot, the no-external-service embedder
// the teacher's default pipeline used.
package local

import (
	"context"
	"fmt"

	"github.com/knights-analytics/hugot"

	"github.com/arjunhale/ctxgraph/core/store"
	"github.com/arjunhale/ctxgraph/helper"
	"github.com/arjunhale/ctxgraph/model"
)

var _ store.Embedder = (*Embedder)(nil)

// DefaultModel produces 384-dimensional embeddings.
const DefaultModel = "sentence-transformers/all-MiniLM-L6-v2"

const defaultDimension = 384

// Embedder runs a hugot feature-extraction pipeline locally.
type Embedder struct {
	session  *hugot.Session
	pipeline *hugot.FeatureExtractionPipeline
	dim      int
}

// New downloads modelName (DefaultModel if empty) if needed and builds a
// ready-to-use local Embedder.
func New(modelName string) (*Embedder, error) {
	if modelName == "" {
		modelName = DefaultModel
	}

	modelPath, err := helper.PrepareModel(modelName, "onnx/model.onnx")
	if err != nil {
		return nil, fmt.Errorf("local embedder: prepare model: %w", err)
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("local embedder: create session: %w", err)
	}

	config := hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      "ctxgraph-embedder",
	}
	pipe, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("local embedder: create pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("local embedder: create pipeline: %w", err)
	}

	return &Embedder{session: session, pipeline: pipe, dim: defaultDimension}, nil
}

// Embed converts text to its embedding vector.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch runs the pipeline over every text in one call.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	result, err := e.pipeline.RunPipeline(texts)
	if err != nil {
		return nil, model.NewError(model.ErrorKindEmbedderUnavailable, "local: run pipeline", err)
	}
	if len(result.Embeddings) != len(texts) {
		return nil, model.NewError(model.ErrorKindEmbedderUnavailable, "local: run pipeline",
			fmt.Errorf("expected %d embeddings, got %d", len(texts), len(result.Embeddings)))
	}
	return result.Embeddings, nil
}

// Dimension returns 384, the embedding size of DefaultModel. The value is
// fixed and is not derived from the model that was actually loaded.
func (e *Embedder) Dimension() int {
	return e.dim
}

// Close releases the underlying hugot session.
func (e *Embedder) Close() error {
	return e.session.Destroy()
}
