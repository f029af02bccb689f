package rerank

import "github.com/norrsken-ai/svarmotor/internal/types/interfaces"

// FactoryConfig selects and configures a Reranker implementation.
type FactoryConfig struct {
	Enabled   bool
	ModelName string
	APIKey    string
	BaseURL   string
}

// New builds the configured Reranker, falling back to a pass-through when
// reranking is disabled (spec §4.5).
func New(cfg FactoryConfig) interfaces.Reranker {
	if !cfg.Enabled {
		return NewPassthroughReranker()
	}
	return NewHTTPReranker(Config{ModelName: cfg.ModelName, APIKey: cfg.APIKey, BaseURL: cfg.BaseURL})
}
