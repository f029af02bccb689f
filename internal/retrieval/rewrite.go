package retrieval

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/norrsken-ai/svarmotor/internal/logger"
	"github.com/norrsken-ai/svarmotor/internal/types"
	"github.com/norrsken-ai/svarmotor/internal/types/interfaces"
)

const (
	rewriteParaphraseCount = 3
	rewriteTimeout         = 3 * time.Second
)

// RewriteStrategy paraphrases the query N times, retrieves each in
// parallel, and merges by document id keeping the max score (spec §4.2
// REWRITE_V1). It falls back to PARALLEL_V1 with rewrite_failed=true when
// paraphrasing fails or exceeds its timeout budget.
type RewriteStrategy struct {
	Embedder interfaces.EmbeddingProvider
	Store    interfaces.VectorStore
	Rewriter interfaces.RewriteModel
	fallback *ParallelStrategy
}

// NewRewriteStrategy constructs a REWRITE_V1 strategy.
func NewRewriteStrategy(embedder interfaces.EmbeddingProvider, store interfaces.VectorStore, rewriter interfaces.RewriteModel) *RewriteStrategy {
	return &RewriteStrategy{
		Embedder: embedder,
		Store:    store,
		Rewriter: rewriter,
		fallback: NewParallelStrategy(embedder, store),
	}
}

func (s *RewriteStrategy) Search(ctx context.Context, query string, k int, mustInclude []string) (Result, error) {
	start := time.Now()

	queries, err := s.paraphrase(ctx, query)
	if err != nil {
		logger.Warnf(ctx, "rewrite paraphrase failed, falling back to parallel_v1: %v", err)
		return s.fallbackResult(ctx, query, k, start)
	}

	perQuery, err := s.retrieveAll(ctx, queries, k)
	if err != nil {
		logger.Warnf(ctx, "rewrite retrieval failed, falling back to parallel_v1: %v", err)
		return s.fallbackResult(ctx, query, k, start)
	}

	merged := mergeByMaxScore(perQuery, "rewrite_v1")
	if len(merged) > k {
		merged = merged[:k]
	}

	topScore := 0.0
	if len(merged) > 0 {
		topScore = merged[0].Score
	}

	return Result{
		Results: merged,
		Metrics: types.RetrievalMetrics{
			Strategy:   types.StrategyRewriteV1,
			TopScore:   topScore,
			LatencyMS:  time.Since(start).Milliseconds(),
			NumResults: len(merged),
		},
	}, nil
}

func (s *RewriteStrategy) paraphrase(ctx context.Context, query string) ([]string, error) {
	rctx, cancel := context.WithTimeout(ctx, rewriteTimeout)
	defer cancel()

	paraphrases, err := s.Rewriter.Paraphrase(rctx, query, rewriteParaphraseCount)
	if err != nil {
		return nil, err
	}
	return append([]string{query}, paraphrases...), nil
}

// retrieveAll embeds and retrieves each query concurrently, bounded by the
// number of queries (already small and N-bounded at the call site).
func (s *RewriteStrategy) retrieveAll(ctx context.Context, queries []string, k int) ([][]types.SearchResult, error) {
	perQuery := make([][]types.SearchResult, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	var mu sync.Mutex
	for i, q := range queries {
		i, q := i, q
		g.Go(func() error {
			vector, err := s.Embedder.Embed(gctx, q)
			if err != nil {
				return fmt.Errorf("embed paraphrase %q: %w", q, err)
			}
			hits, err := s.Store.Search(gctx, vector, k, nil)
			if err != nil {
				return fmt.Errorf("search paraphrase %q: %w", q, err)
			}
			results := make([]types.SearchResult, 0, len(hits))
			for _, h := range hits {
				results = append(results, hitToResult(h, "rewrite_v1"))
			}
			mu.Lock()
			perQuery[i] = results
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return perQuery, nil
}

func (s *RewriteStrategy) fallbackResult(ctx context.Context, query string, k int, start time.Time) (Result, error) {
	result, err := s.fallback.Search(ctx, query, k, nil)
	if err != nil {
		return Result{}, err
	}
	result.Metrics.Strategy = types.StrategyRewriteV1
	result.Metrics.RewriteFailed = true
	result.Metrics.LatencyMS = time.Since(start).Milliseconds()
	return result, nil
}

// mergeByMaxScore merges ranked lists by document id, keeping each
// document's maximum observed score across the lists.
func mergeByMaxScore(lists [][]types.SearchResult, retrieverTag string) []types.SearchResult {
	best := make(map[string]types.SearchResult)
	order := make([]string, 0)
	for _, list := range lists {
		for _, r := range list {
			existing, ok := best[r.ID]
			if !ok {
				order = append(order, r.ID)
				r.RetrieverTag = retrieverTag
				best[r.ID] = r
				continue
			}
			if r.Score > existing.Score {
				r.RetrieverTag = retrieverTag
				best[r.ID] = r
			}
		}
	}

	merged := make([]types.SearchResult, 0, len(order))
	for _, id := range order {
		merged = append(merged, best[id])
	}
	sortByScoreDesc(merged)
	return merged
}
