// Package config loads the process-wide configuration (spec §6.6) with
// viper, mirroring the *config.Config pointer threaded through the teacher's
// handlers and pipeline plugins.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ModelConfig names and locates one backing model (chat, embedding, rerank).
type ModelConfig struct {
	Provider   string `mapstructure:"provider"`
	Source     string `mapstructure:"source"` // "local" | "remote"
	BaseURL    string `mapstructure:"base_url"`
	APIKey     string `mapstructure:"api_key"`
	ModelName  string `mapstructure:"model_name"`
	Dimensions int    `mapstructure:"dimensions"`
}

// CriticConfig configures the critic->revise loop (spec §4.7, §6.6).
type CriticConfig struct {
	Enabled      bool `mapstructure:"enabled"`
	MaxRevisions int  `mapstructure:"max_revisions"`
}

// CRAGConfig configures the grader filter (spec §4.3, §6.6).
type CRAGConfig struct {
	Enabled             bool    `mapstructure:"enabled"`
	EnableSelfReflection bool   `mapstructure:"enable_self_reflection"`
	GradeThreshold      float64 `mapstructure:"grade_threshold"`
}

// AdaptiveThresholds overrides the escalation triggers of spec §4.2.
type AdaptiveThresholds struct {
	MinTopScore           float64 `mapstructure:"min_top_score"`
	MinMargin             float64 `mapstructure:"min_margin"`
	MinMustIncludeHitRate float64 `mapstructure:"min_must_include_hit_rate"`
	MaxNearDuplicateRatio float64 `mapstructure:"max_near_duplicate_ratio"`
}

// RerankConfig configures the optional cross-encoder rerank stage.
type RerankConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// GuardrailConfig configures terminology normalization (spec §4.8).
// TerminologyMap replaces a disallowed term with its approved equivalent;
// DenyList names terms whose presence forces a REFUSED verdict regardless
// of substitution.
type GuardrailConfig struct {
	TerminologyMap map[string]string `mapstructure:"terminology_map"`
	DenyList       []string          `mapstructure:"deny_list"`
}

// TimeoutConfig holds the per-request budgets of spec §5.
type TimeoutConfig struct {
	Decontextualize time.Duration `mapstructure:"decontextualize"`
	RetrievalQuery  time.Duration `mapstructure:"retrieval_query"`
	Grader          time.Duration `mapstructure:"grader"`
	Generation      time.Duration `mapstructure:"generation"`
	InterTokenStall time.Duration `mapstructure:"inter_token_stall"`
	Critique        time.Duration `mapstructure:"critique"`
	Revise          time.Duration `mapstructure:"revise"`
	TotalRequest    time.Duration `mapstructure:"total_request"`
}

// ConcurrencyConfig holds the fan-out caps of spec §5.
type ConcurrencyConfig struct {
	// RetrievalFanOutCap is not read by internal/retrieval, which starts one
	// goroutine per sub-query.
	RetrievalFanOutCap int `mapstructure:"retrieval_fan_out_cap"`
	GraderInFlightCap  int `mapstructure:"grader_in_flight_cap"`
}

// VectorDatabaseConfig selects and configures the VectorStore backend.
type VectorDatabaseConfig struct {
	Driver string `mapstructure:"driver"` // "qdrant" | "pgvector" | "memory"
	DSN    string `mapstructure:"dsn"`
}

// KeywordFusionConfig enables the Elasticsearch BM25 leg of RAG_FUSION
// (SPEC_FULL.md §4.2 supplement). Disabled by default.
type KeywordFusionConfig struct {
	Enabled   bool     `mapstructure:"enabled"`
	Addresses []string `mapstructure:"addresses"`
	Index     string   `mapstructure:"index"`
}

// Config is the process-wide, recognized configuration surface (spec §6.6).
type Config struct {
	Server struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"server"`

	LogLevel  string `mapstructure:"log_level"`
	LogJSON   bool   `mapstructure:"log_json"`

	ChatModel      ModelConfig `mapstructure:"chat_model"`
	EmbeddingModel ModelConfig `mapstructure:"embedding_model"`
	RerankModel    ModelConfig `mapstructure:"rerank_model"`

	EvidenceRefusalTemplate string `mapstructure:"evidence_refusal_template"`
	StructuredOutputEnabled bool   `mapstructure:"structured_output_enabled"`

	Critic    CriticConfig       `mapstructure:"critic"`
	CRAG      CRAGConfig         `mapstructure:"crag"`
	Rerank    RerankConfig       `mapstructure:"rerank"`
	Adaptive  AdaptiveThresholds `mapstructure:"adaptive_thresholds"`
	Guardrail GuardrailConfig    `mapstructure:"guardrail"`

	Timeouts    TimeoutConfig     `mapstructure:"timeouts"`
	Concurrency ConcurrencyConfig `mapstructure:"concurrency"`

	VectorDatabase VectorDatabaseConfig `mapstructure:"vector_database"`
	KeywordFusion  KeywordFusionConfig  `mapstructure:"keyword_fusion"`

	Redis struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"redis"`

	Audit struct {
		Enabled bool   `mapstructure:"enabled"`
		DSN     string `mapstructure:"dsn"`
	} `mapstructure:"audit"`

	Telemetry struct {
		Enabled    bool   `mapstructure:"enabled"`
		OTLPTarget string `mapstructure:"otlp_target"`
	} `mapstructure:"telemetry"`
}

// Default returns the configuration defaults matching spec §4.1/§4.2/§4.4/§5.
func Default() *Config {
	cfg := &Config{}
	cfg.Server.Addr = ":8080"
	cfg.LogLevel = "info"
	cfg.EvidenceRefusalTemplate = "Det finns inte tillräckligt underlag i de tillgängliga källorna för att besvara frågan."
	cfg.StructuredOutputEnabled = true
	cfg.Critic.Enabled = true
	cfg.Critic.MaxRevisions = 2
	cfg.CRAG.Enabled = true
	cfg.CRAG.GradeThreshold = 0.3
	cfg.Rerank.Enabled = false
	cfg.Adaptive.MinTopScore = 0.3
	cfg.Adaptive.MinMargin = 0.05
	cfg.Adaptive.MinMustIncludeHitRate = 0.5
	cfg.Adaptive.MaxNearDuplicateRatio = 0.7
	cfg.Timeouts.Decontextualize = 3 * time.Second
	cfg.Timeouts.RetrievalQuery = 10 * time.Second
	cfg.Timeouts.Grader = 20 * time.Second
	cfg.Timeouts.Generation = 60 * time.Second
	cfg.Timeouts.InterTokenStall = 5 * time.Second
	cfg.Timeouts.Critique = 10 * time.Second
	cfg.Timeouts.Revise = 15 * time.Second
	cfg.Timeouts.TotalRequest = 120 * time.Second
	cfg.Concurrency.RetrievalFanOutCap = 8
	cfg.Concurrency.GraderInFlightCap = 8
	cfg.VectorDatabase.Driver = "memory"
	cfg.Guardrail.TerminologyMap = map[string]string{
		"invandrare":  "person med utländsk bakgrund",
		"tiggare":     "person som tigger",
		"normalt":     "vanligt förekommande",
	}
	cfg.Guardrail.DenyList = []string{"rasras", "throwaway-slur"}
	return cfg
}

// Load reads configuration from the given YAML file (if any), environment
// variables (SVARMOTOR_ prefix, nested keys joined with underscores), and
// falls back to Default() for anything unset. An environment variable takes
// effect only for a key the YAML file also sets; keys absent from the file
// (or every key, when no file is given) are not read from the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetEnvPrefix("SVARMOTOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}
