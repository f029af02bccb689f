package provider

import (
	"fmt"

	"github.com/norrsken-ai/svarmotor/internal/types"
)

const OpenAIBaseURL = "https://api.openai.com/v1"

// OpenAIProvider implements Provider for OpenAI's hosted API.
type OpenAIProvider struct{}

func init() { Register(&OpenAIProvider{}) }

// Info returns OpenAI provider metadata.
func (p *OpenAIProvider) Info() ProviderInfo {
	return ProviderInfo{
		Name:        ProviderOpenAI,
		DisplayName: "OpenAI",
		Description: "gpt-4o, gpt-4o-mini, text-embedding-3-*",
		DefaultURLs: map[types.ModelType]string{
			types.ModelTypeKnowledgeQA: OpenAIBaseURL,
			types.ModelTypeEmbedding:   OpenAIBaseURL,
		},
		ModelTypes:   []types.ModelType{types.ModelTypeKnowledgeQA, types.ModelTypeEmbedding},
		RequiresAuth: true,
	}
}

// ValidateConfig checks that an API key and model name are present.
func (p *OpenAIProvider) ValidateConfig(cfg *Config) error {
	if cfg.APIKey == "" {
		return fmt.Errorf("API key is required for OpenAI provider")
	}
	if cfg.ModelName == "" {
		return fmt.Errorf("model name is required")
	}
	return nil
}
