// Package embedding adapts search queries and document chunks into dense
// vectors, selecting a backend by provider the way the teacher's
// NewEmbedder factory routes by types.ModelSource and provider.DetectProvider.
// Unlike the teacher, backends are constructed with explicit arguments only
// (Design Note 9: no hidden global container lookups inside model code).
package embedding

import (
	"context"
	"fmt"

	"github.com/norrsken-ai/svarmotor/internal/models/provider"
	"github.com/norrsken-ai/svarmotor/internal/types"
)

// Embedder converts text to unit-norm dense vectors (spec §6.5).
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	BatchEmbed(ctx context.Context, texts []string) ([][]float32, error)
	GetModelName() string
	GetDimensions() int
}

// Config configures an Embedder instance.
type Config struct {
	Source     types.ModelSource
	Provider   string
	BaseURL    string
	ModelName  string
	APIKey     string
	Dimensions int
}

// NewEmbedder builds an Embedder for the configured source/provider.
func NewEmbedder(cfg Config) (Embedder, error) {
	switch cfg.Source {
	case types.ModelSourceLocal:
		return NewOllamaEmbedder(cfg.BaseURL, cfg.ModelName, cfg.Dimensions), nil
	case types.ModelSourceRemote:
		providerName := provider.ProviderName(cfg.Provider)
		if providerName == "" {
			providerName = provider.DetectProvider(cfg.BaseURL)
		}
		baseURL := cfg.BaseURL
		if baseURL == "" {
			if p, ok := provider.Get(providerName); ok {
				baseURL = p.Info().GetDefaultURL(types.ModelTypeEmbedding)
			}
		}
		if baseURL == "" {
			baseURL = provider.OpenAIBaseURL
		}
		return NewOpenAIEmbedder(cfg.APIKey, baseURL, cfg.ModelName, cfg.Dimensions), nil
	default:
		return nil, fmt.Errorf("unsupported embedder source: %s", cfg.Source)
	}
}
