package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/norrsken-ai/svarmotor/internal/types"
)

func setupTestCache(t *testing.T) *Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	return New(client, time.Minute)
}

func TestDecontextualizedCacheRoundTrip(t *testing.T) {
	c := setupTestCache(t)
	ctx := context.Background()

	_, ok := c.GetDecontextualized(ctx, "sess-1", "Vad galler?")
	assert.False(t, ok, "miss before population")

	c.SetDecontextualized(ctx, "sess-1", "Vad galler?", "Vad galler enligt 5 kap. 3 paragraf socialtjanstlagen?")

	rewritten, ok := c.GetDecontextualized(ctx, "sess-1", "Vad galler?")
	require.True(t, ok)
	assert.Equal(t, "Vad galler enligt 5 kap. 3 paragraf socialtjanstlagen?", rewritten)
}

func TestDecontextualizedCacheIsolatesSessions(t *testing.T) {
	c := setupTestCache(t)
	ctx := context.Background()

	c.SetDecontextualized(ctx, "sess-1", "fraga", "sess-1 answer")
	_, ok := c.GetDecontextualized(ctx, "sess-2", "fraga")
	assert.False(t, ok, "decontextualization cache must not leak across sessions")
}

func TestGradeCacheRoundTrip(t *testing.T) {
	c := setupTestCache(t)
	ctx := context.Background()

	result := types.GradeResult{Relevant: true, Confidence: 0.82}
	c.SetGrade(ctx, "fraga", "chunk-1", result)

	got, ok := c.GetGrade(ctx, "fraga", "chunk-1")
	require.True(t, ok)
	assert.Equal(t, result, got)
}
