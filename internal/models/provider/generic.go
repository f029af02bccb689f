package provider

import (
	"fmt"

	"github.com/norrsken-ai/svarmotor/internal/types"
)

// GenericProvider implements Provider for any OpenAI-compatible endpoint.
type GenericProvider struct{}

func init() { Register(&GenericProvider{}) }

func (p *GenericProvider) Info() ProviderInfo {
	return ProviderInfo{
		Name:         ProviderGeneric,
		DisplayName:  "Generic (OpenAI-compatible)",
		Description:  "Any OpenAI-compatible chat/embedding endpoint",
		DefaultURLs:  map[types.ModelType]string{},
		ModelTypes:   []types.ModelType{types.ModelTypeKnowledgeQA, types.ModelTypeEmbedding, types.ModelTypeRerank},
		RequiresAuth: false,
	}
}

func (p *GenericProvider) ValidateConfig(cfg *Config) error {
	if cfg.BaseURL == "" {
		return fmt.Errorf("base URL is required for generic provider")
	}
	if cfg.ModelName == "" {
		return fmt.Errorf("model name is required")
	}
	return nil
}
