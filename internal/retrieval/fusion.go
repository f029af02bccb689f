package retrieval

import (
	"context"
	"time"

	"github.com/norrsken-ai/svarmotor/internal/types"
	"github.com/norrsken-ai/svarmotor/internal/types/interfaces"
	"github.com/norrsken-ai/svarmotor/internal/vectorstore"
)

// rrfConstant is the literal RRF constant from spec §4.2 ("c = 60").
const rrfConstant = 60.0

// FusionStrategy paraphrases the query, retrieves each paraphrase in
// parallel, and fuses the ranked lists with Reciprocal Rank Fusion (spec
// §4.2 RAG_FUSION). When KeywordIndex is non-nil and KeywordFusionEnabled
// is set, a BM25 leg is folded into the same RRF sum as one more rank_q(d)
// term (SPEC_FULL.md §4.2 keyword-fusion supplement; default off).
type FusionStrategy struct {
	rewrite              *RewriteStrategy
	KeywordIndex         *vectorstore.KeywordIndex
	KeywordFusionEnabled bool
}

// NewFusionStrategy constructs a RAG_FUSION strategy.
func NewFusionStrategy(embedder interfaces.EmbeddingProvider, store interfaces.VectorStore, rewriter interfaces.RewriteModel) *FusionStrategy {
	return &FusionStrategy{rewrite: NewRewriteStrategy(embedder, store, rewriter)}
}

// SearchN is the RAG_FUSION step with an explicit paraphrase count, used by
// the ADAPTIVE ladder's steps A, B and C which vary num_queries/k multiplier.
func (s *FusionStrategy) SearchN(ctx context.Context, query string, k, numQueries int, mustInclude []string) (Result, error) {
	start := time.Now()

	queries, err := s.paraphraseN(ctx, query, numQueries)
	rewriteFailed := false
	if err != nil {
		queries = []string{query}
		rewriteFailed = true
	}

	perQuery, err := s.rewrite.retrieveAll(ctx, queries, k)
	if err != nil {
		result, fbErr := s.rewrite.fallbackResult(ctx, query, k, start)
		if fbErr != nil {
			return Result{}, fbErr
		}
		return result, nil
	}

	if s.KeywordFusionEnabled && s.KeywordIndex != nil {
		if kwHits, kwErr := s.KeywordIndex.Search(ctx, query, k); kwErr == nil {
			perQuery = append(perQuery, keywordHitsToResults(kwHits))
		}
	}

	fused, fusionGain, overlapRatio := reciprocalRankFusion(perQuery, k)

	topScore := 0.0
	if len(fused) > 0 {
		topScore = fused[0].Score
	}

	return Result{
		Results: fused,
		Metrics: types.RetrievalMetrics{
			Strategy:      types.StrategyRAGFusion,
			TopScore:      topScore,
			LatencyMS:     time.Since(start).Milliseconds(),
			NumResults:    len(fused),
			FusionGain:    &fusionGain,
			OverlapRatio:  &overlapRatio,
			RewriteFailed: rewriteFailed,
		},
	}, nil
}

func (s *FusionStrategy) Search(ctx context.Context, query string, k int, mustInclude []string) (Result, error) {
	return s.SearchN(ctx, query, k, rewriteParaphraseCount, mustInclude)
}

func (s *FusionStrategy) paraphraseN(ctx context.Context, query string, n int) ([]string, error) {
	rctx, cancel := context.WithTimeout(ctx, rewriteTimeout)
	defer cancel()

	paraphrases, err := s.rewrite.Rewriter.Paraphrase(rctx, query, n)
	if err != nil {
		return nil, err
	}
	return append([]string{query}, paraphrases...), nil
}

func keywordHitsToResults(hits []vectorstore.KeywordHit) []types.SearchResult {
	out := make([]types.SearchResult, 0, len(hits))
	for _, h := range hits {
		out = append(out, types.SearchResult{
			ID:           h.ID,
			Text:         h.Content,
			Score:        h.Score,
			RetrieverTag: "rag_fusion_bm25",
		})
	}
	return out
}

// reciprocalRankFusion folds each ranked list into a single RRF sum
// (fused_score = Σ 1/(c+rank)), plus the fusion_gain and overlap_ratio
// diagnostics (spec §4.2). lists[0] is always the original, unparaphrased
// query's ranked list, used as the fusion_gain baseline.
func reciprocalRankFusion(lists [][]types.SearchResult, k int) (results []types.SearchResult, fusionGain, overlapRatio float64) {
	scores := make(map[string]float64)
	sample := make(map[string]types.SearchResult)
	topKSets := make([]map[string]bool, 0, len(lists))

	for _, list := range lists {
		topK := list
		if len(topK) > k {
			topK = topK[:k]
		}
		idSet := make(map[string]bool, len(topK))
		for rank, r := range topK {
			idSet[r.ID] = true
			scores[r.ID] += 1.0 / (rrfConstant + float64(rank+1))
			if _, ok := sample[r.ID]; !ok {
				sample[r.ID] = r
			}
		}
		topKSets = append(topKSets, idSet)
	}

	fused := make([]types.SearchResult, 0, len(scores))
	for id, score := range scores {
		r := sample[id]
		r.Score = score
		r.RetrieverTag = "rag_fusion"
		fused = append(fused, r)
	}
	sortByScoreDesc(fused)
	if len(fused) > k {
		fused = fused[:k]
	}

	var topNaiveScore float64
	if len(lists) > 0 && len(lists[0]) > 0 {
		topNaiveScore = lists[0][0].Score
	}
	var topFusedScore float64
	if len(fused) > 0 {
		topFusedScore = fused[0].Score
	}
	fusionGain = topFusedScore - topNaiveScore

	overlapRatio = computeOverlapRatio(topKSets, k)

	normalizeFusedScores(fused)
	return fused, fusionGain, overlapRatio
}

// computeOverlapRatio is |intersection of top-k sets across queries| / k.
func computeOverlapRatio(sets []map[string]bool, k int) float64 {
	if len(sets) == 0 || k <= 0 {
		return 0
	}
	intersection := 0
	for id := range sets[0] {
		inAll := true
		for _, s := range sets[1:] {
			if !s[id] {
				inAll = false
				break
			}
		}
		if inAll {
			intersection++
		}
	}
	return float64(intersection) / float64(k)
}

// normalizeFusedScores rescales RRF sums into [0,1] by the maximum observed
// sum, so downstream SearchResult.score satisfies the spec §3 invariant.
func normalizeFusedScores(results []types.SearchResult) {
	if len(results) == 0 {
		return
	}
	max := results[0].Score
	if max <= 0 {
		return
	}
	for i := range results {
		results[i].Score = clamp01(results[i].Score / max)
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
