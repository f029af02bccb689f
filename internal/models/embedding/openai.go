package embedding

import (
	"context"
	"fmt"
	"math"

	openai "github.com/sashabaranov/go-openai"

	"github.com/norrsken-ai/svarmotor/internal/logger"
)

// OpenAIEmbedder embeds text through any OpenAI-compatible embeddings API.
type OpenAIEmbedder struct {
	client     *openai.Client
	modelName  string
	dimensions int
}

// NewOpenAIEmbedder constructs an embedder against baseURL using apiKey.
func NewOpenAIEmbedder(apiKey, baseURL, modelName string, dimensions int) *OpenAIEmbedder {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIEmbedder{
		client:     openai.NewClientWithConfig(cfg),
		modelName:  modelName,
		dimensions: dimensions,
	}
}

// Embed converts a single text into a unit-norm vector.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.BatchEmbed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("embedding API returned no vectors")
	}
	return vecs[0], nil
}

// BatchEmbed converts multiple texts into unit-norm vectors in one request.
func (e *OpenAIEmbedder) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	req := openai.EmbeddingRequestStrings{
		Input: texts,
		Model: openai.EmbeddingModel(e.modelName),
	}
	resp, err := e.client.CreateEmbeddings(ctx, req)
	if err != nil {
		logger.Errorf(ctx, "embedding request to %s failed: %v", e.modelName, err)
		return nil, fmt.Errorf("create embeddings: %w", err)
	}

	out := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		out[i] = normalizeUnit(d.Embedding)
	}
	return out, nil
}

func (e *OpenAIEmbedder) GetModelName() string { return e.modelName }
func (e *OpenAIEmbedder) GetDimensions() int    { return e.dimensions }

// normalizeUnit rescales v to unit length; the vector store's cosine
// similarity assumes unit-norm inputs (spec §6.5).
func normalizeUnit(v []float32) []float32 {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	if sumSq == 0 {
		return v
	}
	norm := math.Sqrt(sumSq)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}
