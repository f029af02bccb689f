package provider

import (
	"testing"

	"github.com/norrsken-ai/svarmotor/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderRegistry(t *testing.T) {
	t.Run("default providers registered", func(t *testing.T) {
		providers := List()
		assert.NotEmpty(t, providers, "should have registered providers")

		for _, name := range []ProviderName{ProviderOpenAI, ProviderDeepSeek, ProviderOllama, ProviderGeneric} {
			p, ok := Get(name)
			assert.True(t, ok, "provider %s should be registered", name)
			assert.NotNil(t, p, "provider %s should not be nil", name)
		}
	})

	t.Run("GetOrDefault fallback", func(t *testing.T) {
		p := GetOrDefault("nonexistent")
		require.NotNil(t, p)
		assert.Equal(t, ProviderGeneric, p.Info().Name)
	})
}

func TestDetectProvider(t *testing.T) {
	tests := []struct {
		url      string
		expected ProviderName
	}{
		{"https://api.openai.com/v1", ProviderOpenAI},
		{"https://api.deepseek.com/v1", ProviderDeepSeek},
		{"http://localhost:11434/v1", ProviderOllama},
		{"https://custom-endpoint.example.com/v1", ProviderGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetectProvider(tt.url))
		})
	}
}

func TestOpenAIProviderValidation(t *testing.T) {
	p := &OpenAIProvider{}

	t.Run("valid config", func(t *testing.T) {
		err := p.ValidateConfig(&Config{APIKey: "sk-test", ModelName: "gpt-4o"})
		assert.NoError(t, err)
	})

	t.Run("missing API key", func(t *testing.T) {
		err := p.ValidateConfig(&Config{ModelName: "gpt-4o"})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "API key")
	})

	t.Run("missing model name", func(t *testing.T) {
		err := p.ValidateConfig(&Config{APIKey: "sk-test"})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "model name")
	})
}

func TestGenericProviderValidation(t *testing.T) {
	p := &GenericProvider{}

	t.Run("valid config", func(t *testing.T) {
		err := p.ValidateConfig(&Config{BaseURL: "https://example.com/v1", ModelName: "local-model"})
		assert.NoError(t, err)
	})

	t.Run("missing base URL", func(t *testing.T) {
		err := p.ValidateConfig(&Config{ModelName: "local-model"})
		assert.Error(t, err)
	})
}

func TestListByModelType(t *testing.T) {
	t.Run("chat models", func(t *testing.T) {
		providers := ListByModelType(types.ModelTypeKnowledgeQA)
		assert.NotEmpty(t, providers)
	})

	t.Run("embedding models", func(t *testing.T) {
		providers := ListByModelType(types.ModelTypeEmbedding)
		assert.NotEmpty(t, providers)
	})
}
