package model

// Strategy is the retriever's post-hoc label for what data paths actually
// contributed to a RetrievalResult (spec §4.7, GLOSSARY).
type Strategy string

const (
	StrategyHybrid     Strategy = "hybrid"
	StrategyVectorOnly Strategy = "vector-only"
	StrategyGraphOnly  Strategy = "graph-only"
	StrategyEmpty      Strategy = "empty"
)

// RetrievalResult is the output of Engine.Retrieve (spec §6).
type RetrievalResult struct {
	Nodes           []Node        `json:"nodes"`
	Edges           []Edge        `json:"edges"`
	Chunks          []ScoredChunk `json:"chunks"`
	MatchedPaths    []MatchedPath `json:"matched_paths"`
	Strategy        Strategy      `json:"strategy"`
	RetrievalTimeMs int64         `json:"retrieval_time_ms"`
	Empty           bool          `json:"empty"`
	Warning         string        `json:"warning,omitempty"`
}

// EmptyResult returns the sentinel result for a query that produced nothing
// (spec §4.7 stage 5 — strategy "empty").
func EmptyResult(elapsedMs int64) RetrievalResult {
	return RetrievalResult{
		Strategy:        StrategyEmpty,
		RetrievalTimeMs: elapsedMs,
		Empty:           true,
	}
}
