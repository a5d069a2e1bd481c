// Package ingest turns raw text into graph-shaped records — Chunks, Nodes,
// and Edges — and writes them through the dual-write coordinator and the
// chunk store. It is a supplement, not core: spec §1 excludes document
// parsing, chunking, and embedding generation from the retrieval engine
// itself. ingest/ exists to give the core components real data to retrieve
// over, adapted from the teacher's core/pipeline chunk/entity/relation
// extraction functions.
package ingest

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/arjunhale/ctxgraph/model"
)

// ChunkFunc splits text into content-bearing chunks. Unlike the teacher's
// ChunkWithPath (positional, ltree-rooted), a chunk here carries no path —
// this repository's graph has no hierarchical column to anchor one to.
type ChunkFunc func(text string) ([]model.Chunk, error)

// SentenceChunker groups consecutive sentences, at most maxSentencesPerChunk
// per chunk, the same boundary rule as the teacher's SentenceChunker.
func SentenceChunker(maxSentencesPerChunk int) ChunkFunc {
	return func(text string) ([]model.Chunk, error) {
		if maxSentencesPerChunk <= 0 {
			return nil, fmt.Errorf("ingest: max sentences per chunk must be positive")
		}
		sentences := splitSentences(text)
		if len(sentences) == 0 {
			return nil, nil
		}

		var chunks []model.Chunk
		var current []string
		flush := func() {
			if len(current) == 0 {
				return
			}
			chunks = append(chunks, newChunk(strings.Join(current, " "), "sentence", len(current)))
			current = nil
		}
		for _, s := range sentences {
			current = append(current, s)
			if len(current) >= maxSentencesPerChunk {
				flush()
			}
		}
		flush()
		return chunks, nil
	}
}

// ParagraphChunker splits text on blank lines, one chunk per non-empty
// paragraph, mirroring the teacher's ParagraphChunker.
func ParagraphChunker() ChunkFunc {
	return func(text string) ([]model.Chunk, error) {
		var chunks []model.Chunk
		for _, para := range strings.Split(text, "\n\n") {
			para = strings.TrimSpace(para)
			if para == "" {
				continue
			}
			chunks = append(chunks, newChunk(para, "paragraph", 1))
		}
		return chunks, nil
	}
}

func newChunk(content, method string, numSentences int) model.Chunk {
	return model.Chunk{
		ID:      uuid.New(),
		Content: content,
		Metadata: model.Properties{
			"chunking_method": method,
			"num_sentences":   numSentences,
		},
	}
}

// splitSentences is the teacher's punctuation-marker sentence splitter:
// cheap and wrong on abbreviations, but good enough to find chunk
// boundaries without pulling in a sentence-segmentation model.
func splitSentences(text string) []string {
	text = strings.ReplaceAll(text, "! ", "!|")
	text = strings.ReplaceAll(text, "? ", "?|")
	text = strings.ReplaceAll(text, ". ", ".|")

	var out []string
	for _, s := range strings.Split(text, "|") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
