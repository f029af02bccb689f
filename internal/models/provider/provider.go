// Package provider is a small registry of LLM backend providers, adapted
// from the teacher's provider.go/openai.go/generic.go files: each provider
// describes itself via Info() and validates its own Config, and is looked
// up either by name or by sniffing a base URL.
package provider

import (
	"strings"
	"sync"

	"github.com/norrsken-ai/svarmotor/internal/types"
)

// ProviderName identifies one backend provider.
type ProviderName string

const (
	ProviderOpenAI    ProviderName = "openai"
	ProviderDeepSeek  ProviderName = "deepseek"
	ProviderOllama    ProviderName = "ollama"
	ProviderGeneric   ProviderName = "generic"
)

// Config is the configuration handed to a provider's ValidateConfig.
type Config struct {
	APIKey    string
	BaseURL   string
	ModelName string
}

// ProviderInfo is a provider's static metadata.
type ProviderInfo struct {
	Name         ProviderName
	DisplayName  string
	Description  string
	DefaultURLs  map[types.ModelType]string
	ModelTypes   []types.ModelType
	RequiresAuth bool
}

// GetDefaultURL returns the default base URL for a model type, or "".
func (i ProviderInfo) GetDefaultURL(mt types.ModelType) string {
	return i.DefaultURLs[mt]
}

// Provider is one backend's self-description and config validator.
type Provider interface {
	Info() ProviderInfo
	ValidateConfig(cfg *Config) error
}

var (
	mu        sync.RWMutex
	providers = map[ProviderName]Provider{}
)

// Register adds a provider to the global registry. Called from each
// provider file's init().
func Register(p Provider) {
	mu.Lock()
	defer mu.Unlock()
	providers[p.Info().Name] = p
}

// Get looks up a provider by name.
func Get(name ProviderName) (Provider, bool) {
	mu.RLock()
	defer mu.RUnlock()
	p, ok := providers[name]
	return p, ok
}

// GetOrDefault looks up a provider by name, falling back to the generic
// OpenAI-compatible provider when the name is unknown.
func GetOrDefault(name ProviderName) Provider {
	if p, ok := Get(name); ok {
		return p
	}
	p, _ := Get(ProviderGeneric)
	return p
}

// List returns every registered provider.
func List() []Provider {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Provider, 0, len(providers))
	for _, p := range providers {
		out = append(out, p)
	}
	return out
}

// ListByModelType returns providers whose ModelTypes include mt.
func ListByModelType(mt types.ModelType) []ProviderInfo {
	mu.RLock()
	defer mu.RUnlock()
	var out []ProviderInfo
	for _, p := range providers {
		info := p.Info()
		for _, t := range info.ModelTypes {
			if t == mt {
				out = append(out, info)
				break
			}
		}
	}
	return out
}

// DetectProvider guesses a provider name from a base URL, mirroring the
// teacher's DetectProvider routing used when config.Provider is unset.
func DetectProvider(baseURL string) ProviderName {
	url := strings.ToLower(baseURL)
	switch {
	case strings.Contains(url, "api.openai.com"):
		return ProviderOpenAI
	case strings.Contains(url, "api.deepseek.com"):
		return ProviderDeepSeek
	case strings.Contains(url, "localhost:11434"), strings.Contains(url, "/ollama"):
		return ProviderOllama
	default:
		return ProviderGeneric
	}
}
