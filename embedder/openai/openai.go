// Package openai implements core/store.Embedder against the OpenAI
// embeddings API, with a circuit breaker guarding every call the way the
// pack's HTTP middleware guards outbound requests.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/sony/gobreaker"

	"github.com/arjunhale/ctxgraph/core/store"
	"github.com/arjunhale/ctxgraph/model"
)

// DefaultModel is used when New is called with an empty model name.
const DefaultModel = oai.EmbeddingModelTextEmbedding3Small

var _ store.Embedder = (*Embedder)(nil)

// Embedder implements core/store.Embedder against the OpenAI API.
type Embedder struct {
	client oai.Client
	model  string
	dim    int
	cb     *gobreaker.CircuitBreaker
}

// Option configures an Embedder.
type Option func(*Embedder)

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(e *Embedder) {
		e.client = oai.NewClient(option.WithHTTPClient(&http.Client{Timeout: d}))
	}
}

// New constructs an Embedder calling model (DefaultModel if empty) with
// apiKey. Every call is routed through a circuit breaker that opens after
// repeated failures so a degraded OpenAI endpoint fails fast instead of
// hanging every retrieval request (spec §7 EmbedderUnavailable).
func New(apiKey, model string, opts ...Option) (*Embedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai embedder: apiKey must not be empty")
	}
	if model == "" {
		model = DefaultModel
	}

	e := &Embedder{
		client: oai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
		dim:    modelDimensions(model),
	}
	for _, o := range opts {
		o(e)
	}

	e.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openai-embedder",
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 5 && float64(counts.TotalFailures)/float64(counts.Requests) >= 0.5
		},
	})

	return e, nil
}

// Embed converts text to its embedding vector.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := e.cb.Execute(func() (any, error) {
		resp, err := e.client.Embeddings.New(ctx, oai.EmbeddingNewParams{
			Model: e.model,
			Input: oai.EmbeddingNewParamsInputUnion{OfString: param.NewOpt(text)},
		})
		if err != nil {
			return nil, err
		}
		if len(resp.Data) == 0 {
			return nil, fmt.Errorf("openai embedder: empty response")
		}
		return float64ToFloat32(resp.Data[0].Embedding), nil
	})
	if err != nil {
		return nil, model.NewError(model.ErrorKindEmbedderUnavailable, "openai: embed", err)
	}
	return out.([]float32), nil
}

// EmbedBatch converts multiple texts in a single request.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out, err := e.cb.Execute(func() (any, error) {
		resp, err := e.client.Embeddings.New(ctx, oai.EmbeddingNewParams{
			Model: e.model,
			Input: oai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		})
		if err != nil {
			return nil, err
		}
		if len(resp.Data) != len(texts) {
			return nil, fmt.Errorf("openai embedder: expected %d embeddings, got %d", len(texts), len(resp.Data))
		}
		result := make([][]float32, len(texts))
		for _, d := range resp.Data {
			if int(d.Index) >= len(texts) {
				return nil, fmt.Errorf("openai embedder: unexpected index %d", d.Index)
			}
			result[d.Index] = float64ToFloat32(d.Embedding)
		}
		return result, nil
	})
	if err != nil {
		return nil, model.NewError(model.ErrorKindEmbedderUnavailable, "openai: embed batch", err)
	}
	return out.([][]float32), nil
}

// Dimension returns the fixed embedding size for the configured model.
func (e *Embedder) Dimension() int {
	return e.dim
}

func modelDimensions(model string) int {
	lower := strings.ToLower(model)
	switch {
	case strings.Contains(lower, "text-embedding-3-large"):
		return 3072
	case strings.Contains(lower, "text-embedding-3-small"):
		return 1536
	case strings.Contains(lower, "text-embedding-ada-002"):
		return 1536
	default:
		return 1536
	}
}

func float64ToFloat32(in []float64) []float32 {
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = float32(v)
	}
	return out
}
