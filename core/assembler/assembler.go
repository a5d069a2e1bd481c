// Package assembler implements A1, the context assembler that packs a
// RetrievalResult into a single UTF-8 text payload bounded by a token
// budget for handoff to an LLM prompt.
package assembler

import (
	"fmt"
	"math"
	"strings"

	"github.com/arjunhale/ctxgraph/model"
)

// NoContextFound is emitted when nothing beyond the header fits the budget.
const NoContextFound = "no context found"

// Assembler packs a model.RetrievalResult into a bounded text payload
// (spec §4.8). It holds no state and is safe for concurrent use.
type Assembler struct{}

// New returns an Assembler.
func New() *Assembler {
	return &Assembler{}
}

// EstimateTokens approximates token count with the fixed linear model
// tokens ≈ ceil(char_count / 4). Precise tokenisation is a downstream
// concern this package deliberately does not take on.
func EstimateTokens(s string) int {
	if s == "" {
		return 0
	}
	return int(math.Ceil(float64(len(s)) / 4.0))
}

// Assemble packs result into a payload no larger than maxTokens estimated
// tokens, following the strict priority order of spec §4.8: header, then
// semantic chunks in order, then an admitted-node section, then an edge
// section restricted to admitted endpoints. Every section is skipped
// cleanly when empty; a section is only ever appended whole — the
// assembler never truncates the middle of a chunk.
func (a *Assembler) Assemble(result model.RetrievalResult, maxTokens int) string {
	header := buildHeader(result)
	if EstimateTokens(header) > maxTokens {
		return header
	}

	var b strings.Builder
	b.WriteString(header)
	budget := maxTokens - EstimateTokens(header)

	admitted := make(map[string]struct{})
	chunkBody, chunkTokens := packChunks(result.Chunks, budget)
	if chunkBody != "" {
		b.WriteString(chunkBody)
		budget -= chunkTokens
	}

	nodeBody, nodeTokens := packNodes(result.Nodes, budget, admitted)
	if nodeBody != "" {
		b.WriteString(nodeBody)
		budget -= nodeTokens
	}

	edgeBody, _ := packEdges(result.Edges, budget, admitted)
	if edgeBody != "" {
		b.WriteString(edgeBody)
	}

	if b.String() == header {
		return header + NoContextFound + "\n"
	}
	return b.String()
}

func buildHeader(result model.RetrievalResult) string {
	return fmt.Sprintf("# strategy: %s\n# retrieval_time_ms: %d\n\n", result.Strategy, result.RetrievalTimeMs)
}

// packChunks appends chunks in the order provided, stopping the moment the
// next chunk would exceed budget. Each chunk contributes an id line, its
// content, and a metadata footer (spec §4.8 step 2).
func packChunks(chunks []model.ScoredChunk, budget int) (string, int) {
	const label = "## chunks\n"
	labelCost := EstimateTokens(label)
	if len(chunks) == 0 || budget <= labelCost {
		return "", 0
	}
	budget -= labelCost

	var b strings.Builder
	used := 0
	wrote := false
	for _, sc := range chunks {
		piece := formatChunk(sc)
		cost := EstimateTokens(piece)
		if used+cost > budget {
			break
		}
		b.WriteString(piece)
		used += cost
		wrote = true
	}
	if !wrote {
		return "", 0
	}
	return label + b.String(), used + labelCost
}

func formatChunk(sc model.ScoredChunk) string {
	footer := formatMetadata(sc.Chunk.Metadata)
	return fmt.Sprintf("[chunk %s] (score=%.4f)\n%s\n%s\n", sc.Chunk.ID, sc.Score, sc.Chunk.Content, footer)
}

func formatMetadata(props model.Properties) string {
	if len(props) == 0 {
		return "{}"
	}
	var parts []string
	for k, v := range props {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	return strings.Join(parts, " ")
}

// packNodes appends the node section in the order provided, tracking which
// node ids were admitted for the later edge section (spec §4.8 step 3).
func packNodes(nodes []model.Node, budget int, admitted map[string]struct{}) (string, int) {
	const label = "## nodes\n"
	labelCost := EstimateTokens(label)
	if len(nodes) == 0 || budget <= labelCost {
		return "", 0
	}
	budget -= labelCost

	var b strings.Builder
	used := 0
	wrote := false
	for _, n := range nodes {
		piece := formatNode(n)
		cost := EstimateTokens(piece)
		if used+cost > budget {
			break
		}
		b.WriteString(piece)
		used += cost
		admitted[n.ID.String()] = struct{}{}
		wrote = true
	}
	if !wrote {
		return "", 0
	}
	return label + b.String(), used + labelCost
}

func formatNode(n model.Node) string {
	return fmt.Sprintf("[node %s] label=%s %s\n", n.ID, n.Label, formatMetadata(n.Properties))
}

// packEdges lists only edges whose source and target were both admitted
// into the node section (spec §4.8 step 4).
func packEdges(edges []model.Edge, budget int, admitted map[string]struct{}) (string, int) {
	const label = "## edges\n"
	labelCost := EstimateTokens(label)
	if len(edges) == 0 || budget <= labelCost {
		return "", 0
	}
	budget -= labelCost

	var b strings.Builder
	used := 0
	wrote := false
	for _, e := range edges {
		_, srcOK := admitted[e.SourceID.String()]
		_, tgtOK := admitted[e.TargetID.String()]
		if !srcOK || !tgtOK {
			continue
		}
		piece := formatEdge(e)
		cost := EstimateTokens(piece)
		if used+cost > budget {
			break
		}
		b.WriteString(piece)
		used += cost
		wrote = true
	}
	if !wrote {
		return "", 0
	}
	return label + b.String(), used + labelCost
}

func formatEdge(e model.Edge) string {
	return fmt.Sprintf("[edge %s] %s -%s-> %s\n", e.ID, e.SourceID, e.RelationType, e.TargetID)
}
