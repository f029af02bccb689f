package vectorstore

import (
	"context"
	"math"
	"sort"

	"github.com/norrsken-ai/svarmotor/internal/types/interfaces"
)

type memoryEntry struct {
	id      string
	vector  []float32
	payload map[string]interface{}
}

// MemoryStore is an in-process VectorStore fixture for tests: exact cosine
// search over vectors held in a slice, no network calls.
type MemoryStore struct {
	entries []memoryEntry
}

// NewMemoryStore constructs an empty in-memory vector store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Add inserts one vector with its payload.
func (m *MemoryStore) Add(id string, vector []float32, payload map[string]interface{}) {
	m.entries = append(m.entries, memoryEntry{id: id, vector: vector, payload: payload})
}

// Search returns the top-k entries by cosine similarity, honoring equality filters.
func (m *MemoryStore) Search(ctx context.Context, vector []float32, k int, filters map[string]interface{}) ([]interfaces.VectorHit, error) {
	type scored struct {
		hit   interfaces.VectorHit
		score float64
	}
	var candidates []scored
	for _, e := range m.entries {
		if !matchesFilters(e.payload, filters) {
			continue
		}
		candidates = append(candidates, scored{
			hit:   interfaces.VectorHit{ID: e.id, Payload: e.payload},
			score: cosineSimilarity(vector, e.vector),
		})
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
	if k > 0 && len(candidates) > k {
		candidates = candidates[:k]
	}

	out := make([]interfaces.VectorHit, len(candidates))
	for i, c := range candidates {
		hit := c.hit
		hit.Score = c.score
		out[i] = hit
	}
	return out, nil
}

func matchesFilters(payload map[string]interface{}, filters map[string]interface{}) bool {
	for k, v := range filters {
		if payload[k] != v {
			return false
		}
	}
	return true
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
