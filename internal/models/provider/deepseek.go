package provider

import (
	"fmt"

	"github.com/norrsken-ai/svarmotor/internal/types"
)

const DeepSeekBaseURL = "https://api.deepseek.com/v1"

// DeepSeekProvider implements Provider for DeepSeek's hosted API.
type DeepSeekProvider struct{}

func init() { Register(&DeepSeekProvider{}) }

func (p *DeepSeekProvider) Info() ProviderInfo {
	return ProviderInfo{
		Name:        ProviderDeepSeek,
		DisplayName: "DeepSeek",
		Description: "deepseek-chat, deepseek-reasoner",
		DefaultURLs: map[types.ModelType]string{
			types.ModelTypeKnowledgeQA: DeepSeekBaseURL,
		},
		ModelTypes:   []types.ModelType{types.ModelTypeKnowledgeQA},
		RequiresAuth: true,
	}
}

func (p *DeepSeekProvider) ValidateConfig(cfg *Config) error {
	if cfg.APIKey == "" {
		return fmt.Errorf("API key is required for DeepSeek provider")
	}
	if cfg.ModelName == "" {
		return fmt.Errorf("model name is required")
	}
	return nil
}
