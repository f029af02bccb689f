// Package rerank implements the Reranker port (spec §4.5, §6.3) against an
// HTTP cross-encoder service, generalized from the teacher's Jina-specific
// client into any endpoint speaking the {query, documents} -> {results}
// rerank wire shape (Cohere/Jina-compatible rerank APIs).
package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/norrsken-ai/svarmotor/internal/logger"
	"github.com/norrsken-ai/svarmotor/internal/types/interfaces"
)

// Config configures an HTTP cross-encoder reranker.
type Config struct {
	ModelName string
	APIKey    string
	BaseURL   string
	Timeout   time.Duration
}

// HTTPReranker calls a remote cross-encoder rerank endpoint.
type HTTPReranker struct {
	modelName string
	apiKey    string
	baseURL   string
	client    *http.Client
}

// NewHTTPReranker constructs a reranker against an OpenAI/Jina-style rerank API.
func NewHTTPReranker(cfg Config) *HTTPReranker {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPReranker{
		modelName: cfg.ModelName,
		apiKey:    cfg.APIKey,
		baseURL:   cfg.BaseURL,
		client:    &http.Client{Timeout: timeout},
	}
}

type rerankRequest struct {
	Model           string   `json:"model"`
	Query           string   `json:"query"`
	Documents       []string `json:"documents"`
	ReturnDocuments bool     `json:"return_documents,omitempty"`
}

type rerankResponse struct {
	Results []interfaces.RankResult `json:"results"`
}

// Rerank cross-encodes query against each document and returns fresh scores.
func (r *HTTPReranker) Rerank(ctx context.Context, query string, documents []string) ([]interfaces.RankResult, error) {
	if len(documents) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(rerankRequest{
		Model:           r.modelName,
		Query:           query,
		Documents:       documents,
		ReturnDocuments: false,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.apiKey)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read rerank response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		logger.Errorf(ctx, "rerank API error: status %s, body %s", resp.Status, string(respBody))
		return nil, fmt.Errorf("rerank API error: status %s", resp.Status)
	}

	var parsed rerankResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal rerank response: %w", err)
	}
	return parsed.Results, nil
}

func (r *HTTPReranker) GetModelName() string { return r.modelName }

// PassthroughReranker returns documents in their original order with a
// uniform score, satisfying the spec §4.5 requirement that a disabled or
// failed reranker degrades to pass-through rather than blocking the pipeline.
type PassthroughReranker struct{}

// NewPassthroughReranker constructs a no-op reranker.
func NewPassthroughReranker() *PassthroughReranker { return &PassthroughReranker{} }

func (p *PassthroughReranker) Rerank(ctx context.Context, query string, documents []string) ([]interfaces.RankResult, error) {
	results := make([]interfaces.RankResult, len(documents))
	for i, d := range documents {
		results[i] = interfaces.RankResult{Index: i, Document: d, Score: 1.0 - float64(i)*1e-6}
	}
	return results, nil
}

func (p *PassthroughReranker) GetModelName() string { return "passthrough" }
