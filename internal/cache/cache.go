// Package cache provides a Redis-backed read-through cache for two
// pipeline-internal artifacts that are expensive to recompute but safe to
// treat as read-mostly: decontextualized queries and grader verdicts
// (spec §5). This is the core's own cache population, distinct from the
// ingest-path corpus writes the single-writer discipline protects.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/norrsken-ai/svarmotor/internal/logger"
	"github.com/norrsken-ai/svarmotor/internal/types"
)

// Cache wraps a Redis client with typed helpers for the two artifacts the
// orchestrator reads through.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New constructs a Cache against an already-configured Redis client.
func New(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Cache{client: client, ttl: ttl}
}

func decontextKey(sessionID, question string) string {
	return fmt.Sprintf("decontext:%s:%x", sessionID, hashString(question))
}

func graderKey(question, chunkID string) string {
	return fmt.Sprintf("grade:%x:%s", hashString(question), chunkID)
}

// GetDecontextualized returns a cached rewritten query for a session/question pair.
func (c *Cache) GetDecontextualized(ctx context.Context, sessionID, question string) (string, bool) {
	val, err := c.client.Get(ctx, decontextKey(sessionID, question)).Result()
	if err != nil {
		if err != redis.Nil {
			logger.Warnf(ctx, "cache get decontextualized failed: %v", err)
		}
		return "", false
	}
	return val, true
}

// SetDecontextualized populates the decontextualization cache.
func (c *Cache) SetDecontextualized(ctx context.Context, sessionID, question, rewritten string) {
	if err := c.client.Set(ctx, decontextKey(sessionID, question), rewritten, c.ttl).Err(); err != nil {
		logger.Warnf(ctx, "cache set decontextualized failed: %v", err)
	}
}

// GetGrade returns a cached grader verdict for a (question, chunk) pair.
func (c *Cache) GetGrade(ctx context.Context, question, chunkID string) (types.GradeResult, bool) {
	raw, err := c.client.Get(ctx, graderKey(question, chunkID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Warnf(ctx, "cache get grade failed: %v", err)
		}
		return types.GradeResult{}, false
	}
	var result types.GradeResult
	if err := json.Unmarshal(raw, &result); err != nil {
		logger.Warnf(ctx, "cache decode grade failed: %v", err)
		return types.GradeResult{}, false
	}
	return result, true
}

// SetGrade populates the grader verdict cache.
func (c *Cache) SetGrade(ctx context.Context, question, chunkID string, result types.GradeResult) {
	raw, err := json.Marshal(result)
	if err != nil {
		logger.Warnf(ctx, "cache encode grade failed: %v", err)
		return
	}
	if err := c.client.Set(ctx, graderKey(question, chunkID), raw, c.ttl).Err(); err != nil {
		logger.Warnf(ctx, "cache set grade failed: %v", err)
	}
}

func hashString(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}
