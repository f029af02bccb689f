package retrieval

import (
	"context"
	"fmt"
	"time"

	"github.com/norrsken-ai/svarmotor/internal/types"
	"github.com/norrsken-ai/svarmotor/internal/types/interfaces"
)

// ParallelStrategy embeds the query once and retrieves top-K = 3k with no
// fusion (spec §4.2 PARALLEL_V1).
type ParallelStrategy struct {
	Embedder interfaces.EmbeddingProvider
	Store    interfaces.VectorStore
}

// NewParallelStrategy constructs a PARALLEL_V1 strategy.
func NewParallelStrategy(embedder interfaces.EmbeddingProvider, store interfaces.VectorStore) *ParallelStrategy {
	return &ParallelStrategy{Embedder: embedder, Store: store}
}

func (s *ParallelStrategy) Search(ctx context.Context, query string, k int, mustInclude []string) (Result, error) {
	start := time.Now()

	vector, err := s.Embedder.Embed(ctx, query)
	if err != nil {
		return Result{}, fmt.Errorf("embed query: %w", err)
	}

	hits, err := s.Store.Search(ctx, vector, k*3, nil)
	if err != nil {
		return Result{}, fmt.Errorf("vector search: %w", err)
	}

	results := make([]types.SearchResult, 0, len(hits))
	for _, h := range hits {
		results = append(results, hitToResult(h, "parallel_v1"))
	}
	if len(results) > k {
		results = results[:k]
	}

	topScore := 0.0
	if len(results) > 0 {
		topScore = results[0].Score
	}

	return Result{
		Results: results,
		Metrics: types.RetrievalMetrics{
			Strategy:   types.StrategyParallelV1,
			TopScore:   topScore,
			LatencyMS:  time.Since(start).Milliseconds(),
			NumResults: len(results),
		},
	}, nil
}
