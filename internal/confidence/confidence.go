// Package confidence computes the adaptive-retrieval confidence signals
// (spec §4.4) as a pure function of a retrieval pass's results.
package confidence

import (
	"strings"

	"github.com/norrsken-ai/svarmotor/internal/types"
)

const (
	tierHighThreshold   = 0.7
	tierMediumThreshold = 0.5
	tierLowThreshold    = 0.3

	titlePrefixLen = 40
)

// FusionMetrics carries the retrieval strategy's own fusion diagnostics,
// already clamped to [0,1] where applicable.
type FusionMetrics struct {
	FusionGainNormalized float64
	OverlapRatio         float64
}

// Calculate derives ConfidenceSignals from one retrieval pass's results, the
// must-include requirement, and the strategy's fusion metrics.
func Calculate(results []types.SearchResult, mustInclude []string, fusion FusionMetrics, k int) types.ConfidenceSignals {
	signals := types.ConfidenceSignals{
		OverlapRatio: clamp01(fusion.OverlapRatio),
	}

	if len(results) == 0 {
		signals.MustIncludeHitRate = mustIncludeHitRate(nil, mustInclude)
		signals.OverallConfidence = overallConfidence(signals, clamp01(fusion.FusionGainNormalized), 0, k)
		signals.ConfidenceTier = tierFor(signals.OverallConfidence)
		return signals
	}

	signals.TopScore = clamp01(results[0].Score)
	signals.Margin = margin(results)
	signals.MustIncludeHitRate = mustIncludeHitRate(results, mustInclude)
	signals.FusionGain = clamp01(fusion.FusionGainNormalized)
	signals.NearDuplicateRatio = nearDuplicateRatio(results)
	signals.UniqueSources = uniqueSources(results)

	signals.OverallConfidence = overallConfidence(signals, signals.FusionGain, signals.UniqueSources, k)
	signals.ConfidenceTier = tierFor(signals.OverallConfidence)
	return signals
}

// margin is (top1-top2) normalized by (top1-topN); a single-result pass
// degenerates to margin = top1 (spec §4.4).
func margin(results []types.SearchResult) float64 {
	if len(results) == 1 {
		return clamp01(results[0].Score)
	}
	top1 := results[0].Score
	top2 := results[1].Score
	topN := results[len(results)-1].Score

	denom := top1 - topN
	if denom <= 0 {
		return 0
	}
	return clamp01((top1 - top2) / denom)
}

// mustIncludeHitRate is the fraction of required tokens that appear
// case-insensitively in any retrieved text|title|snippet. Empty requirement
// hits 1.0 by definition.
func mustIncludeHitRate(results []types.SearchResult, mustInclude []string) float64 {
	if len(mustInclude) == 0 {
		return 1.0
	}

	haystack := make([]string, 0, len(results)*3)
	for _, r := range results {
		haystack = append(haystack, strings.ToLower(r.Text), strings.ToLower(r.Title), strings.ToLower(r.Snippet))
	}

	var hits int
	for _, token := range mustInclude {
		needle := strings.ToLower(token)
		for _, h := range haystack {
			if strings.Contains(h, needle) {
				hits++
				break
			}
		}
	}
	return float64(hits) / float64(len(mustInclude))
}

// nearDuplicateRatio is the fraction of results sharing an identical
// title-prefix (first 40 chars) with some higher-ranked result.
func nearDuplicateRatio(results []types.SearchResult) float64 {
	if len(results) <= 1 {
		return 0
	}
	seenPrefixes := make(map[string]bool, len(results))
	var duplicates int
	for _, r := range results {
		prefix := titlePrefix(r.Title)
		if seenPrefixes[prefix] {
			duplicates++
		} else {
			seenPrefixes[prefix] = true
		}
	}
	return float64(duplicates) / float64(len(results))
}

func titlePrefix(title string) string {
	if len(title) <= titlePrefixLen {
		return title
	}
	return title[:titlePrefixLen]
}

// uniqueSources counts distinct (doc_type, source) pairs.
func uniqueSources(results []types.SearchResult) int {
	seen := make(map[string]bool, len(results))
	for _, r := range results {
		seen[r.DocType+"\x00"+r.Source] = true
	}
	return len(seen)
}

func overallConfidence(s types.ConfidenceSignals, fusionGainNormalized float64, uniqueSources, k int) float64 {
	uniqueRatio := 0.0
	if k > 0 {
		uniqueRatio = clamp01(float64(uniqueSources) / float64(k))
	}
	return 0.30*clamp01(s.MustIncludeHitRate) +
		0.25*clamp01(s.TopScore) +
		0.15*clamp01(s.Margin) +
		0.10*clamp01(fusionGainNormalized) +
		0.10*(1-clamp01(s.NearDuplicateRatio)) +
		0.10*uniqueRatio
}

func tierFor(confidence float64) types.ConfidenceTier {
	switch {
	case confidence >= tierHighThreshold:
		return types.ConfidenceHigh
	case confidence >= tierMediumThreshold:
		return types.ConfidenceMedium
	case confidence >= tierLowThreshold:
		return types.ConfidenceLow
	default:
		return types.ConfidenceVeryLow
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
