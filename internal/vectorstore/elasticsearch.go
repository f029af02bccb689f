package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	elasticsearch "github.com/elastic/go-elasticsearch/v8"

	"github.com/norrsken-ai/svarmotor/internal/logger"
)

// KeywordHit is one BM25 match from the lexical index, shaped for fusion
// with dense ANN results inside the RAG_FUSION strategy (spec §9 supplement).
type KeywordHit struct {
	ID      string
	Content string
	Score   float64
}

// KeywordIndex performs BM25 full-text search over a document-chunk index,
// giving RAG_FUSION's lexical leg a real keyword backend instead of a
// substring heuristic.
type KeywordIndex struct {
	client *elasticsearch.Client
	index  string
}

// NewKeywordIndex connects to an Elasticsearch cluster bound to one index.
func NewKeywordIndex(addresses []string, index string) (*KeywordIndex, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: addresses})
	if err != nil {
		return nil, fmt.Errorf("connect elasticsearch: %w", err)
	}
	return &KeywordIndex{client: client, index: index}, nil
}

// IndexChunk upserts one chunk's content into the keyword index.
func (k *KeywordIndex) IndexChunk(ctx context.Context, id, content string) error {
	body, err := json.Marshal(map[string]interface{}{"content": content})
	if err != nil {
		return fmt.Errorf("marshal chunk body: %w", err)
	}
	res, err := k.client.Index(
		k.index,
		bytes.NewReader(body),
		k.client.Index.WithDocumentID(id),
		k.client.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("index chunk %s: %w", id, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index chunk %s: %s", id, res.String())
	}
	return nil
}

// Search returns the top-k BM25 matches for query.
func (k *KeywordIndex) Search(ctx context.Context, query string, topK int) ([]KeywordHit, error) {
	reqBody, err := json.Marshal(map[string]interface{}{
		"size": topK,
		"query": map[string]interface{}{
			"match": map[string]interface{}{"content": query},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	res, err := k.client.Search(
		k.client.Search.WithContext(ctx),
		k.client.Search.WithIndex(k.index),
		k.client.Search.WithBody(bytes.NewReader(reqBody)),
	)
	if err != nil {
		logger.Errorf(ctx, "elasticsearch search on %s failed: %v", k.index, err)
		return nil, fmt.Errorf("elasticsearch search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch search error: %s", res.String())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID     string          `json:"_id"`
				Score  float64         `json:"_score"`
				Source json.RawMessage `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode elasticsearch response: %w", err)
	}

	hits := make([]KeywordHit, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		var src struct {
			Content string `json:"content"`
		}
		_ = json.Unmarshal(h.Source, &src)
		hits = append(hits, KeywordHit{ID: h.ID, Content: src.Content, Score: h.Score})
	}
	return hits, nil
}
