package grader

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/norrsken-ai/svarmotor/internal/cache"
	"github.com/norrsken-ai/svarmotor/internal/types"
)

type fakeGraderModel struct {
	gradeFn     func(ctx context.Context, question string, doc types.SearchResult) (types.GradeResult, error)
	reflectFn   func(ctx context.Context, question string, docs []types.SearchResult) (types.CriticReflection, error)
	inFlight    int32
	maxInFlight int32
}

func (f *fakeGraderModel) Grade(ctx context.Context, question string, doc types.SearchResult) (types.GradeResult, error) {
	cur := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		max := atomic.LoadInt32(&f.maxInFlight)
		if cur <= max || atomic.CompareAndSwapInt32(&f.maxInFlight, max, cur) {
			break
		}
	}
	return f.gradeFn(ctx, question, doc)
}

func (f *fakeGraderModel) Reflect(ctx context.Context, question string, docs []types.SearchResult) (types.CriticReflection, error) {
	return f.reflectFn(ctx, question, docs)
}

func TestGradeDisabledPassesThrough(t *testing.T) {
	s, err := New(&fakeGraderModel{}, Config{Enabled: false})
	require.NoError(t, err)
	defer s.Close()

	docs := []types.SearchResult{{ID: "a"}, {ID: "b"}}
	result, err := s.Grade(context.Background(), "question", docs)
	require.NoError(t, err)
	assert.Equal(t, docs, result.Kept)
	assert.False(t, result.Refuse)
}

func TestGradeFiltersByThreshold(t *testing.T) {
	model := &fakeGraderModel{
		gradeFn: func(ctx context.Context, question string, doc types.SearchResult) (types.GradeResult, error) {
			switch doc.ID {
			case "relevant":
				return types.GradeResult{Relevant: true, Score: 0.9}, nil
			default:
				return types.GradeResult{Relevant: false, Score: 0.1}, nil
			}
		},
	}
	s, err := New(model, Config{Enabled: true, Threshold: 0.3})
	require.NoError(t, err)
	defer s.Close()

	docs := []types.SearchResult{{ID: "relevant"}, {ID: "irrelevant"}}
	result, err := s.Grade(context.Background(), "question", docs)
	require.NoError(t, err)
	require.Len(t, result.Kept, 1)
	assert.Equal(t, "relevant", result.Kept[0].ID)
	assert.False(t, result.Refuse)
}

func TestGradeRefusesWhenNoneRelevant(t *testing.T) {
	model := &fakeGraderModel{
		gradeFn: func(ctx context.Context, question string, doc types.SearchResult) (types.GradeResult, error) {
			return types.GradeResult{Relevant: false, Score: 0.0}, nil
		},
	}
	s, err := New(model, Config{Enabled: true, Threshold: 0.3})
	require.NoError(t, err)
	defer s.Close()

	docs := []types.SearchResult{{ID: "a"}, {ID: "b"}}
	result, err := s.Grade(context.Background(), "question", docs)
	require.NoError(t, err)
	assert.True(t, result.Refuse)
	assert.Empty(t, result.Kept)
}

func TestGradeHonorsInFlightBound(t *testing.T) {
	model := &fakeGraderModel{
		gradeFn: func(ctx context.Context, question string, doc types.SearchResult) (types.GradeResult, error) {
			return types.GradeResult{Relevant: true, Score: 0.9}, nil
		},
	}
	s, err := New(model, Config{Enabled: true, Threshold: 0.3, InFlight: 2})
	require.NoError(t, err)
	defer s.Close()

	docs := make([]types.SearchResult, 20)
	for i := range docs {
		docs[i] = types.SearchResult{ID: "doc"}
	}
	_, err = s.Grade(context.Background(), "question", docs)
	require.NoError(t, err)
	assert.LessOrEqual(t, model.maxInFlight, int32(2), "grading must never exceed the configured in-flight bound")
}

func TestGradeSkipsReflectionWhenDisabled(t *testing.T) {
	called := false
	model := &fakeGraderModel{
		gradeFn: func(ctx context.Context, question string, doc types.SearchResult) (types.GradeResult, error) {
			return types.GradeResult{Relevant: true, Score: 0.9}, nil
		},
		reflectFn: func(ctx context.Context, question string, docs []types.SearchResult) (types.CriticReflection, error) {
			called = true
			return types.CriticReflection{HasSufficientEvidence: true}, nil
		},
	}
	s, err := New(model, Config{Enabled: true, Threshold: 0.3, ReflectionOn: false})
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Grade(context.Background(), "question", []types.SearchResult{{ID: "a"}})
	require.NoError(t, err)
	assert.False(t, called)
}

func TestGradeRefusesOnInsufficientEvidence(t *testing.T) {
	model := &fakeGraderModel{
		gradeFn: func(ctx context.Context, question string, doc types.SearchResult) (types.GradeResult, error) {
			return types.GradeResult{Relevant: true, Score: 0.9}, nil
		},
		reflectFn: func(ctx context.Context, question string, docs []types.SearchResult) (types.CriticReflection, error) {
			return types.CriticReflection{HasSufficientEvidence: false}, nil
		},
	}
	s, err := New(model, Config{Enabled: true, Threshold: 0.3, ReflectionOn: true})
	require.NoError(t, err)
	defer s.Close()

	result, err := s.Grade(context.Background(), "question", []types.SearchResult{{ID: "a"}})
	require.NoError(t, err)
	assert.True(t, result.Refuse)
}

func TestGradeContinuesPastPerDocumentError(t *testing.T) {
	model := &fakeGraderModel{
		gradeFn: func(ctx context.Context, question string, doc types.SearchResult) (types.GradeResult, error) {
			if doc.ID == "broken" {
				return types.GradeResult{}, errors.New("judge unavailable")
			}
			return types.GradeResult{Relevant: true, Score: 0.9}, nil
		},
	}
	s, err := New(model, Config{Enabled: true, Threshold: 0.3})
	require.NoError(t, err)
	defer s.Close()

	docs := []types.SearchResult{{ID: "broken"}, {ID: "ok"}}
	result, err := s.Grade(context.Background(), "question", docs)
	require.NoError(t, err)
	require.Len(t, result.Kept, 1)
	assert.Equal(t, "ok", result.Kept[0].ID)
}

func TestGradeSkipsModelCallOnCacheHit(t *testing.T) {
	mr := miniredis.RunT(t)
	c := cache.New(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}), time.Minute)
	c.SetGrade(context.Background(), "question", "a", types.GradeResult{Relevant: true, Score: 0.8})

	var calls int32
	model := &fakeGraderModel{
		gradeFn: func(ctx context.Context, question string, doc types.SearchResult) (types.GradeResult, error) {
			atomic.AddInt32(&calls, 1)
			return types.GradeResult{Relevant: false, Score: 0.0}, nil
		},
	}
	s, err := New(model, Config{Enabled: true, Threshold: 0.3})
	require.NoError(t, err)
	defer s.Close()
	s = s.WithCache(c)

	result, err := s.Grade(context.Background(), "question", []types.SearchResult{{ID: "a"}})
	require.NoError(t, err)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls), "cache hit must skip the judge call")
	require.Len(t, result.Kept, 1)
}

func TestGradePopulatesCacheOnMiss(t *testing.T) {
	mr := miniredis.RunT(t)
	c := cache.New(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}), time.Minute)

	model := &fakeGraderModel{
		gradeFn: func(ctx context.Context, question string, doc types.SearchResult) (types.GradeResult, error) {
			return types.GradeResult{Relevant: true, Score: 0.7}, nil
		},
	}
	s, err := New(model, Config{Enabled: true, Threshold: 0.3})
	require.NoError(t, err)
	defer s.Close()
	s = s.WithCache(c)

	_, err = s.Grade(context.Background(), "question", []types.SearchResult{{ID: "a"}})
	require.NoError(t, err)

	cached, ok := c.GetGrade(context.Background(), "question", "a")
	require.True(t, ok)
	assert.Equal(t, 0.7, cached.Score)
}
