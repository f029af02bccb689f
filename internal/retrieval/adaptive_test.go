package retrieval

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/norrsken-ai/svarmotor/internal/types"
	"github.com/norrsken-ai/svarmotor/internal/types/interfaces"
)

// fakeRoundRewriter bumps a shared round counter on every Paraphrase call,
// so the fake store below can tell step A's retrieval apart from step B's.
type fakeRoundRewriter struct {
	round *int32
}

func (r *fakeRoundRewriter) Paraphrase(ctx context.Context, query string, n int) ([]string, error) {
	atomic.AddInt32(r.round, 1)
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = fmt.Sprintf("%s::paraphrase-%d", query, i)
	}
	return out, nil
}

func (r *fakeRoundRewriter) Decontextualize(ctx context.Context, question string, history []types.HistoryMessage) (string, error) {
	return question, nil
}

// fakeRoundEmbedder encodes the current round plus a per-text hash, so the
// fake store can vary its behavior by round without seeing the query text.
type fakeRoundEmbedder struct {
	round *int32
}

func (e *fakeRoundEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(text))
	return []float32{float32(atomic.LoadInt32(e.round)), float32(h.Sum32())}, nil
}

// fakeRoundStore ties every result within round 1 (step A) so the resulting
// fusion has zero margin, and reinforces a fixed, clearly-ranked document
// set from round 2 onward (step B) so margin comfortably clears threshold.
type fakeRoundStore struct{}

func (s *fakeRoundStore) Search(ctx context.Context, vector []float32, k int, filters map[string]interface{}) ([]interfaces.VectorHit, error) {
	round := int(vector[0])
	if round <= 1 {
		id := fmt.Sprintf("uniq-%v", vector[1])
		return []interfaces.VectorHit{{ID: id, Score: 0.5, Payload: map[string]interface{}{"title": id}}}, nil
	}
	return []interfaces.VectorHit{
		{ID: "shared-0", Score: 0.9, Payload: map[string]interface{}{"title": "Shared Doc 0"}},
		{ID: "shared-1", Score: 0.6, Payload: map[string]interface{}{"title": "Shared Doc 1"}},
		{ID: "shared-2", Score: 0.3, Payload: map[string]interface{}{"title": "Shared Doc 2"}},
	}, nil
}

func newAdaptiveFixture() *AdaptiveStrategy {
	round := new(int32)
	fusion := NewFusionStrategy(&fakeRoundEmbedder{round: round}, &fakeRoundStore{}, &fakeRoundRewriter{round: round})
	return NewAdaptiveStrategy(fusion, Thresholds{})
}

func TestAdaptiveEscalatesPastLowConfidenceStepThenStops(t *testing.T) {
	s := newAdaptiveFixture()

	result, err := s.SearchDetailed(context.Background(), "vad galler enligt socialtjanstlagen", 10, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B"}, result.EscalationPath, "escalation path must be a monotone prefix of [A,B,C,D]")
	assert.Equal(t, "B", result.FinalStep)
	assert.False(t, result.FallbackTriggered)
	require.Len(t, result.Steps, 2)
	assert.InDelta(t, 0.0, result.Steps[0].Signals.Margin, 1e-9, "step A's tied fusion scores must yield zero margin")
	assert.Greater(t, result.Steps[1].Signals.Margin, 0.05)
}

func TestAdaptiveSearchImplementsStrategyContract(t *testing.T) {
	s := newAdaptiveFixture()
	result, err := s.Search(context.Background(), "en fraga", 10, nil)
	require.NoError(t, err)
	assert.Equal(t, types.StrategyAdaptive, result.Metrics.Strategy)
}

func TestAdaptiveExhaustsLadderAndTriggersFallback(t *testing.T) {
	round := new(int32)
	embedder := &fakeRoundEmbedder{round: round}
	alwaysTiedStore := tiedStoreFunc(func(vector []float32) []interfaces.VectorHit {
		id := fmt.Sprintf("uniq-%v-%v", vector[0], vector[1])
		return []interfaces.VectorHit{{ID: id, Score: 0.5, Payload: map[string]interface{}{"title": id}}}
	})
	fusion := NewFusionStrategy(embedder, alwaysTiedStore, &fakeRoundRewriter{round: round})
	s := NewAdaptiveStrategy(fusion, Thresholds{})

	result, err := s.SearchDetailed(context.Background(), "en oklar fraga", 10, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B", "C", "D"}, result.EscalationPath)
	assert.Equal(t, "D", result.FinalStep)
	assert.True(t, result.FallbackTriggered)
	assert.LessOrEqual(t, len(result.EscalationPath), 4, "total escalations must stay within the fixed A->B->C->D ladder")
}

type tiedStoreFunc func(vector []float32) []interfaces.VectorHit

func (f tiedStoreFunc) Search(ctx context.Context, vector []float32, k int, filters map[string]interface{}) ([]interfaces.VectorHit, error) {
	return f(vector), nil
}
