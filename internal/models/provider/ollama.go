package provider

import (
	"fmt"

	"github.com/norrsken-ai/svarmotor/internal/types"
)

const OllamaBaseURL = "http://localhost:11434"

// OllamaProvider implements Provider for a locally-run Ollama instance.
type OllamaProvider struct{}

func init() { Register(&OllamaProvider{}) }

func (p *OllamaProvider) Info() ProviderInfo {
	return ProviderInfo{
		Name:        ProviderOllama,
		DisplayName: "Ollama (local)",
		Description: "locally-hosted chat and embedding models",
		DefaultURLs: map[types.ModelType]string{
			types.ModelTypeKnowledgeQA: OllamaBaseURL,
			types.ModelTypeEmbedding:   OllamaBaseURL,
		},
		ModelTypes:   []types.ModelType{types.ModelTypeKnowledgeQA, types.ModelTypeEmbedding},
		RequiresAuth: false,
	}
}

func (p *OllamaProvider) ValidateConfig(cfg *Config) error {
	if cfg.ModelName == "" {
		return fmt.Errorf("model name is required for Ollama provider")
	}
	return nil
}
