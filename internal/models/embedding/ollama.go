package embedding

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	ollamaapi "github.com/ollama/ollama/api"

	"github.com/norrsken-ai/svarmotor/internal/logger"
)

const defaultOllamaBaseURL = "http://localhost:11434"

// OllamaEmbedder embeds text through a locally-running Ollama instance.
type OllamaEmbedder struct {
	client     *ollamaapi.Client
	modelName  string
	dimensions int
}

// NewOllamaEmbedder constructs an embedder against a local Ollama server.
func NewOllamaEmbedder(baseURL, modelName string, dimensions int) *OllamaEmbedder {
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		parsed, _ = url.Parse(defaultOllamaBaseURL)
	}
	return &OllamaEmbedder{
		client:     ollamaapi.NewClient(parsed, http.DefaultClient),
		modelName:  modelName,
		dimensions: dimensions,
	}
}

// Embed converts a single text into a unit-norm vector.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.BatchEmbed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("ollama embedding returned no vectors")
	}
	return vecs[0], nil
}

// BatchEmbed converts multiple texts into unit-norm vectors.
func (e *OllamaEmbedder) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	req := &ollamaapi.EmbedRequest{Model: e.modelName, Input: texts}
	resp, err := e.client.Embed(ctx, req)
	if err != nil {
		logger.Errorf(ctx, "ollama embed request to %s failed: %v", e.modelName, err)
		return nil, fmt.Errorf("ollama embed: %w", err)
	}

	out := make([][]float32, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		out[i] = normalizeUnit(emb)
	}
	return out, nil
}

func (e *OllamaEmbedder) GetModelName() string { return e.modelName }
func (e *OllamaEmbedder) GetDimensions() int    { return e.dimensions }
