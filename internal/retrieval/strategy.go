// Package retrieval implements the four RetrievalStrategies (spec §4.2):
// PARALLEL_V1, REWRITE_V1, RAG_FUSION, and ADAPTIVE's escalation ladder.
package retrieval

import (
	"context"
	"sort"

	"github.com/norrsken-ai/svarmotor/internal/types"
)

// Result is the common output contract: search(query, k, must_include) ->
// {results, metrics}.
type Result struct {
	Results []types.SearchResult
	Metrics types.RetrievalMetrics
}

// Strategy is implemented by each retrieval algorithm.
type Strategy interface {
	Search(ctx context.Context, query string, k int, mustInclude []string) (Result, error)
}

// normalizeTo01 rescales a raw similarity score into [0,1] assuming the
// vector store already returns cosine similarity in [-1,1].
func normalizeTo01(raw float64) float64 {
	v := (raw + 1) / 2
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func sortByScoreDesc(results []types.SearchResult) {
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
}
