package assembler

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arjunhale/ctxgraph/model"
)

func TestAssembler_S4_TokenBudget(t *testing.T) {
	// spec §8 scenario S4: 3 chunks of 200/200/2000 chars, max_tokens=120.
	// Expect header + first chunk only.
	result := model.RetrievalResult{
		Strategy:        model.StrategyVectorOnly,
		RetrievalTimeMs: 5,
		Chunks: []model.ScoredChunk{
			{Chunk: model.Chunk{ID: uuid.New(), Content: strings.Repeat("a", 200)}, Score: 0.9},
			{Chunk: model.Chunk{ID: uuid.New(), Content: strings.Repeat("b", 200)}, Score: 0.8},
			{Chunk: model.Chunk{ID: uuid.New(), Content: strings.Repeat("c", 2000)}, Score: 0.7},
		},
	}

	payload := New().Assemble(result, 120)
	assert.LessOrEqual(t, EstimateTokens(payload), 120)
	assert.Contains(t, payload, "aaaa")
	assert.NotContains(t, payload, "bbbb")
	assert.NotContains(t, payload, "cccc")
}

func TestAssembler_HeaderAloneWhenOverBudget(t *testing.T) {
	result := model.RetrievalResult{
		Strategy:        model.StrategyGraphOnly,
		RetrievalTimeMs: 1,
		Chunks: []model.ScoredChunk{
			{Chunk: model.Chunk{ID: uuid.New(), Content: strings.Repeat("x", 500)}},
		},
	}

	payload := New().Assemble(result, 1)
	assert.Contains(t, payload, "graph-only")
	assert.NotContains(t, payload, "xxxx")
}

func TestAssembler_NoContextFoundSentinel(t *testing.T) {
	result := model.RetrievalResult{Strategy: model.StrategyEmpty, RetrievalTimeMs: 0}

	payload := New().Assemble(result, 1000)
	assert.Contains(t, payload, NoContextFound)
}

func TestAssembler_EdgesOnlyBetweenAdmittedNodes(t *testing.T) {
	a := model.Node{ID: uuid.New(), Label: "A"}
	b := model.Node{ID: uuid.New(), Label: "B"}
	excluded := model.Node{ID: uuid.New(), Label: "C"}

	result := model.RetrievalResult{
		Strategy: model.StrategyGraphOnly,
		Nodes:    []model.Node{a, b},
		Edges: []model.Edge{
			{ID: uuid.New(), SourceID: a.ID, TargetID: b.ID, RelationType: "REL"},
			{ID: uuid.New(), SourceID: a.ID, TargetID: excluded.ID, RelationType: "REL"},
		},
	}

	payload := New().Assemble(result, 10000)
	require.Contains(t, payload, a.ID.String())
	require.Contains(t, payload, b.ID.String())
	assert.NotContains(t, payload, excluded.ID.String())
}

func TestAssembler_SkipsEmptySectionsCleanly(t *testing.T) {
	result := model.RetrievalResult{
		Strategy: model.StrategyVectorOnly,
		Chunks: []model.ScoredChunk{
			{Chunk: model.Chunk{ID: uuid.New(), Content: "hello"}},
		},
	}

	payload := New().Assemble(result, 10000)
	assert.Contains(t, payload, "## chunks")
	assert.NotContains(t, payload, "## nodes")
	assert.NotContains(t, payload, "## edges")
}

func TestEstimateTokens_LinearModel(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("abcd"))
	assert.Equal(t, 2, EstimateTokens("abcde"))
}
