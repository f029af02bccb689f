// Package interfaces declares the narrow ports the orchestration core
// consumes from external collaborators (spec §6.3-§6.5), and the two
// internal service seams the pipeline packages share.
package interfaces

import (
	"context"

	"github.com/norrsken-ai/svarmotor/internal/types"
)

// StreamStats is reported on the final element of a chat_stream iterator.
type StreamStats struct {
	TokensGenerated int
	ModelUsed       string
	StartTime       int64
	EndTime         int64
}

// ChatMessage is one turn sent to the LLM.
type ChatMessage struct {
	Role    string
	Content string
}

// ChatParams configures a single generation call.
type ChatParams struct {
	Temperature float64
	MaxTokens   int
}

// StreamToken is one element of a chat_stream iteration.
type StreamToken struct {
	Token string
	Stats *StreamStats // non-nil only on the final element
	Err   error
}

// LLMGateway is the single-prompt/streaming chat port (spec §6.3).
type LLMGateway interface {
	Chat(ctx context.Context, system string, messages []ChatMessage, params ChatParams) (string, error)
	ChatStream(ctx context.Context, system string, messages []ChatMessage, params ChatParams) (<-chan StreamToken, error)
}

// VectorHit is one raw result from the vector store (spec §6.4).
type VectorHit struct {
	ID      string
	Payload map[string]interface{}
	Score   float64
}

// VectorStore is the k-NN search port (spec §6.4).
type VectorStore interface {
	Search(ctx context.Context, vector []float32, k int, filters map[string]interface{}) ([]VectorHit, error)
}

// EmbeddingProvider turns text into a dense unit-norm vector (spec §6.5).
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Reranker cross-encodes (query, document) pairs into a fresh relevance score.
type Reranker interface {
	Rerank(ctx context.Context, query string, documents []string) ([]RankResult, error)
}

// RankResult is one document's rerank verdict.
type RankResult struct {
	Index    int
	Document string
	Score    float64
}

// GraderModel asks an LLM judge whether a document is relevant to a question.
// It is the LLM-facing seam GraderService is built on; kept distinct from
// LLMGateway so tests can fake grading independently of generation.
type GraderModel interface {
	Grade(ctx context.Context, question string, doc types.SearchResult) (types.GradeResult, error)
	Reflect(ctx context.Context, question string, docs []types.SearchResult) (types.CriticReflection, error)
}

// CriticModel is the LLM-facing seam CriticService is built on.
type CriticModel interface {
	Revise(ctx context.Context, candidateJSON string, feedback string) (string, error)
}

// RewriteModel is the LLM-facing seam query rewriting/decontextualization use.
type RewriteModel interface {
	Paraphrase(ctx context.Context, query string, n int) ([]string, error)
	Decontextualize(ctx context.Context, question string, history []types.HistoryMessage) (string, error)
}
