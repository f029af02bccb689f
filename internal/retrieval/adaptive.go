package retrieval

import (
	"context"
	"time"

	"github.com/norrsken-ai/svarmotor/internal/confidence"
	"github.com/norrsken-ai/svarmotor/internal/types"
)

// Thresholds overrides the escalation triggers of spec §4.2/§6.6
// (adaptive_thresholds). Zero-valued fields fall back to the spec defaults.
type Thresholds struct {
	MinTopScore           float64
	MinMargin             float64
	MinMustIncludeHitRate float64
	MaxNearDuplicateRatio float64
}

func (t Thresholds) withDefaults() Thresholds {
	if t.MinTopScore == 0 {
		t.MinTopScore = 0.3
	}
	if t.MinMargin == 0 {
		t.MinMargin = 0.05
	}
	if t.MinMustIncludeHitRate == 0 {
		t.MinMustIncludeHitRate = 0.5
	}
	if t.MaxNearDuplicateRatio == 0 {
		t.MaxNearDuplicateRatio = 0.7
	}
	return t
}

type ladderStep struct {
	name       string
	numQueries int
	kMult      float64
}

// ladder is the fixed A->B->C escalation ladder of spec §4.2; step D is the
// refusal path and carries no retrieval of its own.
var ladder = []ladderStep{
	{name: "A", numQueries: 2, kMult: 1.0},
	{name: "B", numQueries: 2, kMult: 2.0},
	{name: "C", numQueries: 3, kMult: 2.0},
}

// AdaptiveStrategy runs the finite A->B->C->D escalation ladder (spec §4.2
// ADAPTIVE), re-running RAG_FUSION with widening fan-out until confidence is
// acceptable or the ladder is exhausted.
type AdaptiveStrategy struct {
	fusion     *FusionStrategy
	thresholds Thresholds
}

// NewAdaptiveStrategy constructs an ADAPTIVE strategy over the given fusion
// strategy (shared with RAG_FUSION so both reuse the same rewrite/embed/
// store wiring).
func NewAdaptiveStrategy(fusion *FusionStrategy, thresholds Thresholds) *AdaptiveStrategy {
	return &AdaptiveStrategy{fusion: fusion, thresholds: thresholds.withDefaults()}
}

// StepOutcome is one rung of the escalation ladder, kept for audit/testing.
type StepOutcome struct {
	Step    string
	Result  Result
	Signals types.ConfidenceSignals
}

// AdaptiveResult is the ADAPTIVE strategy's detailed outcome, carrying the
// escalation path the orchestrator's RAGMetrics needs (spec §8: "escalation
// path is a monotone prefix of [A,B,C,D]").
type AdaptiveResult struct {
	Result            Result
	EscalationPath    []string
	FinalStep         string
	FallbackTriggered bool
	Steps             []StepOutcome
}

// Search implements the common Strategy contract, discarding the escalation
// bookkeeping SearchDetailed exposes.
func (s *AdaptiveStrategy) Search(ctx context.Context, query string, k int, mustInclude []string) (Result, error) {
	detailed, err := s.SearchDetailed(ctx, query, k, mustInclude)
	if err != nil {
		return Result{}, err
	}
	return detailed.Result, nil
}

// SearchDetailed runs the escalation ladder and returns the winning step's
// result alongside the full path walked.
func (s *AdaptiveStrategy) SearchDetailed(ctx context.Context, query string, k int, mustInclude []string) (AdaptiveResult, error) {
	start := time.Now()

	var (
		path      []string
		steps     []StepOutcome
		bestStep  *StepOutcome
		bestScore = -1.0
	)

	for _, step := range ladder {
		stepK := int(float64(k) * step.kMult)
		if stepK < k {
			stepK = k
		}

		result, err := s.fusion.SearchN(ctx, query, stepK, step.numQueries, mustInclude)
		if err != nil {
			// RetrievalError on a ladder rung: mark it failed and try the
			// next step rather than aborting the whole request (spec §7).
			path = append(path, step.name)
			continue
		}
		result.Metrics.Strategy = types.StrategyAdaptive

		signals := confidence.Calculate(result.Results, mustInclude, confidence.FusionMetrics{
			FusionGainNormalized: clamp01(derefOr(result.Metrics.FusionGain, 0)),
			OverlapRatio:         derefOr(result.Metrics.OverlapRatio, 0),
		}, stepK)

		outcome := StepOutcome{Step: step.name, Result: result, Signals: signals}
		steps = append(steps, outcome)
		path = append(path, step.name)

		// Tie-break: a later step only displaces the best prior step when it
		// strictly exceeds its confidence (spec §4.2).
		if signals.OverallConfidence > bestScore {
			bestScore = signals.OverallConfidence
			picked := outcome
			bestStep = &picked
		}

		if !escalate(signals, s.thresholds) {
			return AdaptiveResult{
				Result:         withLatency(outcome.Result, start),
				EscalationPath: path,
				FinalStep:      step.name,
				Steps:          steps,
			}, nil
		}
	}

	// Ladder exhausted without acceptable confidence: step D is the refusal
	// path. The best-scoring prior step is still returned for diagnostics,
	// but FallbackTriggered tells the orchestrator to refuse.
	path = append(path, "D")
	result := Result{Metrics: types.RetrievalMetrics{Strategy: types.StrategyAdaptive}}
	if bestStep != nil {
		result = bestStep.Result
	}
	return AdaptiveResult{
		Result:            withLatency(result, start),
		EscalationPath:    path,
		FinalStep:         "D",
		FallbackTriggered: true,
		Steps:             steps,
	}, nil
}

func escalate(signals types.ConfidenceSignals, t Thresholds) bool {
	return signals.TopScore < t.MinTopScore ||
		signals.Margin < t.MinMargin ||
		signals.MustIncludeHitRate < t.MinMustIncludeHitRate ||
		signals.NearDuplicateRatio > t.MaxNearDuplicateRatio
}

func withLatency(r Result, start time.Time) Result {
	r.Metrics.LatencyMS = time.Since(start).Milliseconds()
	return r
}

func derefOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}

// ensure AdaptiveStrategy satisfies the common Strategy contract used by the
// orchestrator's tag->implementation map.
var _ Strategy = (*AdaptiveStrategy)(nil)
