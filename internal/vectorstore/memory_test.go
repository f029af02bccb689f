package vectorstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreSearchRanksBySimilarity(t *testing.T) {
	store := NewMemoryStore()
	store.Add("a", []float32{1, 0, 0}, map[string]interface{}{"lang": "sv"})
	store.Add("b", []float32{0, 1, 0}, map[string]interface{}{"lang": "sv"})
	store.Add("c", []float32{0.9, 0.1, 0}, map[string]interface{}{"lang": "sv"})

	hits, err := store.Search(context.Background(), []float32{1, 0, 0}, 2, nil)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "a", hits[0].ID)
	assert.Equal(t, "c", hits[1].ID)
	assert.Greater(t, hits[0].Score, hits[1].Score)
}

func TestMemoryStoreSearchAppliesFilters(t *testing.T) {
	store := NewMemoryStore()
	store.Add("sv-doc", []float32{1, 0}, map[string]interface{}{"lang": "sv"})
	store.Add("en-doc", []float32{1, 0}, map[string]interface{}{"lang": "en"})

	hits, err := store.Search(context.Background(), []float32{1, 0}, 10, map[string]interface{}{"lang": "sv"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "sv-doc", hits[0].ID)
}

func TestMemoryStoreSearchEmptyStore(t *testing.T) {
	store := NewMemoryStore()
	hits, err := store.Search(context.Background(), []float32{1, 0}, 5, nil)
	require.NoError(t, err)
	assert.Empty(t, hits)
}
