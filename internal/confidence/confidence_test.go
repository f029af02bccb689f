package confidence

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/norrsken-ai/svarmotor/internal/types"
)

func TestCalculateEmptyResults(t *testing.T) {
	s := Calculate(nil, nil, FusionMetrics{}, 10)
	assert.Equal(t, 0.0, s.TopScore)
	assert.Equal(t, 1.0, s.MustIncludeHitRate, "empty must_include hits 1.0 by definition")
	assert.Equal(t, types.ConfidenceLow, s.ConfidenceTier)
}

func TestCalculateSingleResultMarginEqualsTopScore(t *testing.T) {
	results := []types.SearchResult{{Title: "Socialtjanstlagen 5 kap", Score: 0.9}}
	s := Calculate(results, nil, FusionMetrics{}, 10)
	assert.Equal(t, 0.9, s.TopScore)
	assert.Equal(t, 0.9, s.Margin)
}

func TestCalculateMustIncludeHitRate(t *testing.T) {
	results := []types.SearchResult{
		{Title: "Beslut", Text: "Enligt 5 kap. 3 paragraf SoL galler foljande", Score: 0.8},
		{Title: "Annat", Text: "Ovidkommande text", Score: 0.4},
	}
	s := Calculate(results, []string{"5 kap. 3", "nonexistent"}, FusionMetrics{}, 10)
	assert.InDelta(t, 0.5, s.MustIncludeHitRate, 1e-9, "only one of two required tokens appears")
}

func TestCalculateNearDuplicateRatio(t *testing.T) {
	longTitle := "Det har ar en mycket lang rubrik som delar prefix mellan tva resultat"
	results := []types.SearchResult{
		{Title: longTitle, Score: 0.9},
		{Title: longTitle, Score: 0.7},
		{Title: "Helt annan rubrik utan delat prefix alls", Score: 0.5},
	}
	s := Calculate(results, nil, FusionMetrics{}, 10)
	assert.InDelta(t, 1.0/3.0, s.NearDuplicateRatio, 1e-9)
}

func TestCalculateUniqueSourcesAndTierBoundaries(t *testing.T) {
	results := []types.SearchResult{
		{Title: "A", Score: 1.0, DocType: "beslut", Source: "kommun-a"},
		{Title: "B", Score: 1.0, DocType: "beslut", Source: "kommun-b"},
	}
	s := Calculate(results, nil, FusionMetrics{FusionGainNormalized: 1.0}, 2)
	assert.Equal(t, 2, s.UniqueSources)
	assert.Equal(t, types.ConfidenceHigh, s.ConfidenceTier)
}

func TestCalculateClampsOutOfRangeInputs(t *testing.T) {
	results := []types.SearchResult{{Title: "X", Score: 1.5}}
	s := Calculate(results, nil, FusionMetrics{FusionGainNormalized: 2.0, OverlapRatio: -1.0}, 1)
	assert.Equal(t, 1.0, s.TopScore, "score above 1 must clamp")
	assert.Equal(t, 0.0, s.OverlapRatio, "negative overlap ratio must clamp")
	assert.LessOrEqual(t, s.OverallConfidence, 1.0)
}

func TestTierBoundaries(t *testing.T) {
	assert.Equal(t, types.ConfidenceHigh, tierFor(0.7))
	assert.Equal(t, types.ConfidenceMedium, tierFor(0.5))
	assert.Equal(t, types.ConfidenceLow, tierFor(0.3))
	assert.Equal(t, types.ConfidenceVeryLow, tierFor(0.29999))
}
