package queryproc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/norrsken-ai/svarmotor/internal/cache"
	"github.com/norrsken-ai/svarmotor/internal/types"
)

type fakeRewriter struct {
	decontextualizeFn func(ctx context.Context, question string, history []types.HistoryMessage) (string, error)
}

func (f *fakeRewriter) Paraphrase(ctx context.Context, query string, n int) ([]string, error) {
	return nil, errors.New("not used by queryproc tests")
}

func (f *fakeRewriter) Decontextualize(ctx context.Context, question string, history []types.HistoryMessage) (string, error) {
	return f.decontextualizeFn(ctx, question, history)
}

func TestClassifyGreetingIsChat(t *testing.T) {
	p := New(nil)
	assert.Equal(t, types.ModeChat, p.Classify("Hej!"))
	assert.Equal(t, types.ModeChat, p.Classify("God morgon"))
}

func TestClassifyGreetingWithQuestionIsNotChat(t *testing.T) {
	p := New(nil)
	mode := p.Classify("Hej, vad galler enligt socialtjanstlagen 5 kap?")
	assert.NotEqual(t, types.ModeChat, mode)
}

func TestClassifyFactualWithSourceIsEvidence(t *testing.T) {
	p := New(nil)
	assert.Equal(t, types.ModeEvidence, p.Classify("Vad ar folkmangden i Sverige enligt SCB?"))
}

func TestClassifyOpinionAboutLawIsEvidence(t *testing.T) {
	p := New(nil)
	// Objectivity (spec §8 scenario 3): an opinion question about a tax
	// change must still be answered under EVIDENCE's citation discipline.
	assert.Equal(t, types.ModeEvidence, p.Classify("Ar den nya skatteforandringen rattvis?"))
}

func TestClassifyOpenEndedOpinionIsAssist(t *testing.T) {
	p := New(nil)
	assert.Equal(t, types.ModeAssist, p.Classify("Tycker du choklad ar gott?"))
}

func TestModeConfigMatchesSpecBudgets(t *testing.T) {
	p := New(nil)
	chat := p.ModeConfig(types.ModeChat)
	assert.Equal(t, 0.7, chat.Temperature)
	assert.Equal(t, 512, chat.MaxTokens)

	assist := p.ModeConfig(types.ModeAssist)
	assert.Equal(t, 0.4, assist.Temperature)
	assert.Equal(t, 1024, assist.MaxTokens)

	evidence := p.ModeConfig(types.ModeEvidence)
	assert.LessOrEqual(t, evidence.Temperature, 0.3)
	assert.Equal(t, 1536, evidence.MaxTokens)
}

func TestEvidenceLevelThresholds(t *testing.T) {
	assert.Equal(t, types.EvidenceHigh, EvidenceLevel(0.9, 2))
	assert.Equal(t, types.EvidenceMedium, EvidenceLevel(0.9, 1), "high needs >=2 relevant sources too")
	assert.Equal(t, types.EvidenceMedium, EvidenceLevel(0.65, 0))
	assert.Equal(t, types.EvidenceLow, EvidenceLevel(0.35, 0))
	assert.Equal(t, types.EvidenceNone, EvidenceLevel(0.1, 0))
}

func TestNeedsDecontextualizationRequiresHistoryAndDeixis(t *testing.T) {
	assert.False(t, NeedsDecontextualization("Vad galler det?", nil))
	history := []types.HistoryMessage{{Role: "user", Content: "Beratta om socialtjanstlagen"}}
	assert.True(t, NeedsDecontextualization("Vad galler det?", history))
	assert.False(t, NeedsDecontextualization("Vad ar folkmangden i Sverige?", history))
}

func TestDecontextualizeRewritesWhenTriggered(t *testing.T) {
	rewriter := &fakeRewriter{
		decontextualizeFn: func(ctx context.Context, question string, history []types.HistoryMessage) (string, error) {
			return "Vad galler enligt socialtjanstlagen?", nil
		},
	}
	p := New(rewriter)
	history := []types.HistoryMessage{{Role: "user", Content: "Beratta om socialtjanstlagen"}}

	rewritten, ran := p.Decontextualize(context.Background(), "Vad galler det?", history, time.Second, "")
	assert.True(t, ran)
	assert.Equal(t, "Vad galler enligt socialtjanstlagen?", rewritten)
}

func TestDecontextualizeFailsClosedOnError(t *testing.T) {
	rewriter := &fakeRewriter{
		decontextualizeFn: func(ctx context.Context, question string, history []types.HistoryMessage) (string, error) {
			return "", errors.New("llm unavailable")
		},
	}
	p := New(rewriter)
	history := []types.HistoryMessage{{Role: "user", Content: "Beratta om socialtjanstlagen"}}

	original := "Vad galler det?"
	rewritten, ran := p.Decontextualize(context.Background(), original, history, time.Second, "")
	assert.False(t, ran)
	assert.Equal(t, original, rewritten)
}

func TestDecontextualizeSkippedWithoutHistory(t *testing.T) {
	p := New(&fakeRewriter{decontextualizeFn: func(ctx context.Context, question string, history []types.HistoryMessage) (string, error) {
		t.Fatal("should not be called without history")
		return "", nil
	}})
	rewritten, ran := p.Decontextualize(context.Background(), "Vad galler det?", nil, time.Second, "")
	assert.False(t, ran)
	assert.Equal(t, "Vad galler det?", rewritten)
	require.NotNil(t, p)
}

func TestDecontextualizeSkipsRewriterOnCacheHit(t *testing.T) {
	mr := miniredis.RunT(t)
	c := cache.New(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}), time.Minute)
	history := []types.HistoryMessage{{Role: "user", Content: "Beratta om socialtjanstlagen"}}
	c.SetDecontextualized(context.Background(), "sess-1", "Vad galler det?", "Vad galler enligt socialtjanstlagen (cached)?")

	p := New(&fakeRewriter{decontextualizeFn: func(ctx context.Context, question string, history []types.HistoryMessage) (string, error) {
		t.Fatal("should not call rewriter on cache hit")
		return "", nil
	}}).WithCache(c)

	rewritten, ran := p.Decontextualize(context.Background(), "Vad galler det?", history, time.Second, "sess-1")
	assert.True(t, ran)
	assert.Equal(t, "Vad galler enligt socialtjanstlagen (cached)?", rewritten)
}

func TestDecontextualizePopulatesCacheOnMiss(t *testing.T) {
	mr := miniredis.RunT(t)
	c := cache.New(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}), time.Minute)
	history := []types.HistoryMessage{{Role: "user", Content: "Beratta om socialtjanstlagen"}}

	rewriter := &fakeRewriter{decontextualizeFn: func(ctx context.Context, question string, history []types.HistoryMessage) (string, error) {
		return "Vad galler enligt socialtjanstlagen?", nil
	}}
	p := New(rewriter).WithCache(c)

	rewritten, ran := p.Decontextualize(context.Background(), "Vad galler det?", history, time.Second, "sess-2")
	require.True(t, ran)
	require.Equal(t, "Vad galler enligt socialtjanstlagen?", rewritten)

	cached, ok := c.GetDecontextualized(context.Background(), "sess-2", "Vad galler det?")
	require.True(t, ok)
	assert.Equal(t, "Vad galler enligt socialtjanstlagen?", cached)
}
