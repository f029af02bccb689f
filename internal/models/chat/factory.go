package chat

import (
	"fmt"

	"github.com/norrsken-ai/svarmotor/internal/models/provider"
	"github.com/norrsken-ai/svarmotor/internal/types"
)

// Config configures a Chat backend instance.
type Config struct {
	Source    types.ModelSource
	Provider  string
	BaseURL   string
	ModelName string
	APIKey    string
}

// New builds a Chat backend for the configured source/provider, mirroring
// the routing embedding.NewEmbedder uses (spec §6.3, Design Note 9: explicit
// construction only, no global container lookups).
func New(cfg Config) (Chat, error) {
	switch cfg.Source {
	case types.ModelSourceLocal:
		return NewOllamaChat(cfg.BaseURL, cfg.ModelName), nil
	case types.ModelSourceRemote:
		providerName := provider.ProviderName(cfg.Provider)
		if providerName == "" {
			providerName = provider.DetectProvider(cfg.BaseURL)
		}
		baseURL := cfg.BaseURL
		if baseURL == "" {
			if p, ok := provider.Get(providerName); ok {
				baseURL = p.Info().GetDefaultURL(types.ModelTypeKnowledgeQA)
			}
		}
		if baseURL == "" {
			baseURL = provider.OpenAIBaseURL
		}
		return NewOpenAIChat(cfg.APIKey, baseURL, cfg.ModelName), nil
	default:
		return nil, fmt.Errorf("unsupported chat source: %s", cfg.Source)
	}
}
