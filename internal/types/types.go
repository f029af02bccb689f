// Package types holds the data model shared across the retrieval, generation,
// and critique stages of the answer pipeline.
package types

import "time"

// ModelType identifies what a model provider is used for.
type ModelType string

const (
	ModelTypeKnowledgeQA ModelType = "knowledge_qa"
	ModelTypeEmbedding   ModelType = "embedding"
	ModelTypeRerank      ModelType = "rerank"
)

// ModelSource identifies whether a model runs locally or behind a remote API.
type ModelSource string

const (
	ModelSourceLocal  ModelSource = "local"
	ModelSourceRemote ModelSource = "remote"
)

// ResponseMode controls how strictly a generated answer must cite sources.
type ResponseMode string

const (
	ModeChat     ResponseMode = "CHAT"
	ModeAssist   ResponseMode = "ASSIST"
	ModeEvidence ResponseMode = "EVIDENCE"
)

// RetrievalStrategyTag selects which retrieval algorithm handles a query.
type RetrievalStrategyTag string

const (
	StrategyParallelV1 RetrievalStrategyTag = "parallel_v1"
	StrategyRewriteV1  RetrievalStrategyTag = "rewrite_v1"
	StrategyRAGFusion  RetrievalStrategyTag = "rag_fusion"
	StrategyAdaptive   RetrievalStrategyTag = "adaptive"
)

// EvidenceLevel grades retrieval quality for the caller-visible response.
type EvidenceLevel string

const (
	EvidenceHigh   EvidenceLevel = "HIGH"
	EvidenceMedium EvidenceLevel = "MEDIUM"
	EvidenceLow    EvidenceLevel = "LOW"
	EvidenceNone   EvidenceLevel = "NONE"
)

// ConfidenceTier buckets an ConfidenceSignals.OverallConfidence value.
type ConfidenceTier string

const (
	ConfidenceHigh    ConfidenceTier = "high"
	ConfidenceMedium  ConfidenceTier = "medium"
	ConfidenceLow     ConfidenceTier = "low"
	ConfidenceVeryLow ConfidenceTier = "very_low"
)

// HistoryMessage is one turn of prior conversation, supplied by the caller.
type HistoryMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Question is the immutable input to a single request.
type Question struct {
	Text     string
	ModeHint ResponseMode
	History  []HistoryMessage
}

// SearchResult is one retrieved chunk, surfaced to both the prompt builder
// and (pruned) to the caller.
type SearchResult struct {
	ID           string
	Title        string
	Snippet      string
	Text         string // full chunk text, used for prompt construction; never exposed whole
	Score        float64
	Source       string
	DocType      string
	Date         time.Time
	RetrieverTag string
}

// RetrievalMetrics is per-retrieval telemetry; diagnostic only, never exposed.
type RetrievalMetrics struct {
	Strategy      RetrievalStrategyTag
	TopScore      float64
	LatencyMS     int64
	NumResults    int
	FusionGain    *float64
	OverlapRatio  *float64
	RewriteFailed bool
}

// GradeResult is the CRAG judge's per-document relevance verdict.
type GradeResult struct {
	DocID      string
	Relevant   bool
	Score      float64
	Confidence float64
	Reason     string
	LatencyMS  int64
}

// Citation is one entry in a StructuredAnswer's kallor ("sources") list.
type Citation struct {
	DocID   string `json:"doc_id"`
	ChunkID string `json:"chunk_id"`
	Citat   string `json:"citat"`
	Loc     string `json:"loc,omitempty"`
}

// StructuredAnswer is the validated, schema-shaped LLM output.
//
// Arbetsanteckning is the LLM's internal scratch field. It MUST NEVER be
// serialized to a caller-facing response; StripInternalNote removes it.
type StructuredAnswer struct {
	Mode             ResponseMode `json:"mode"`
	SaknasUnderlag   bool         `json:"saknas_underlag"`
	Svar             string       `json:"svar"`
	Kallor           []Citation   `json:"kallor"`
	FaktaUtanKalla   []string     `json:"fakta_utan_kalla"`
	Arbetsanteckning string       `json:"arbetsanteckning,omitempty"`
}

// StripInternalNote returns a copy with Arbetsanteckning cleared. Any field
// name starting with "_" is an internal-only convention enforced by the
// structured-output parser before this type ever exists, so no further
// filtering is needed here.
func (s StructuredAnswer) StripInternalNote() StructuredAnswer {
	s.Arbetsanteckning = ""
	return s
}

// CriticResult is the critic's verdict on a candidate answer.
type CriticResult struct {
	OK        bool
	Errors    []string
	Remedy    string
	LatencyMS int64
}

// CriticReflection is the optional CRAG self-reflection artifact.
type CriticReflection struct {
	ThoughtProcess           string
	HasSufficientEvidence    bool
	MissingEvidence          []string
	CitationPlan             []string
	ConstitutionalCompliance bool
	Confidence               float64
}

// GuardrailStatus is the terminal verdict of terminology normalization.
type GuardrailStatus string

const (
	GuardrailUnchanged GuardrailStatus = "UNCHANGED"
	GuardrailCorrected GuardrailStatus = "CORRECTED"
	GuardrailRefused   GuardrailStatus = "REFUSED"
)

// Correction records one terminology substitution the guardrail made.
type Correction struct {
	Original    string `json:"original"`
	Replacement string `json:"replacement"`
}

// GuardrailResult is the terminal rewrite of the visible answer.
type GuardrailResult struct {
	Status        GuardrailStatus
	CorrectedText string
	Corrections   []Correction
}

// ConfidenceSignals are the inputs and output of the adaptive-retrieval
// confidence calculation (spec §4.4).
type ConfidenceSignals struct {
	TopScore           float64
	Margin             float64
	MustIncludeHitRate float64
	FusionGain         float64
	OverlapRatio       float64
	NearDuplicateRatio float64
	UniqueSources      int
	OverallConfidence  float64
	ConfidenceTier     ConfidenceTier
}

// SourceView is the caller-visible projection of a SearchResult (spec §6.1).
type SourceView struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score"`
	DocType string  `json:"doc_type"`
	Source  string  `json:"source"`
}

// RAGResult is the value returned to the caller (spec §6.1), plus internal
// fields used only for testing and audit logging (json:"-").
type RAGResult struct {
	Answer         string        `json:"answer"`
	Sources        []SourceView  `json:"sources"`
	Mode           ResponseMode  `json:"mode"`
	SaknasUnderlag bool          `json:"saknas_underlag"`
	EvidenceLevel  EvidenceLevel `json:"evidence_level"`

	Metrics RAGMetrics `json:"-"`
}

// RAGMetrics is diagnostic-only bookkeeping, never serialized to the caller.
type RAGMetrics struct {
	EscalationPath      []string
	FinalStep           string
	FallbackTriggered   bool
	CriticRevisionCount int
	TotalTimeMS         int64
}

// SSEEventType enumerates the wire event kinds of spec §4.10.
type SSEEventType string

const (
	SSEMetadata         SSEEventType = "metadata"
	SSEDecontextualized SSEEventType = "decontextualized"
	SSEToken            SSEEventType = "token"
	SSECorrections      SSEEventType = "corrections"
	SSEDone             SSEEventType = "done"
	SSEError            SSEEventType = "error"
)

// SSEEvent is one line of the streaming feed.
type SSEEvent struct {
	Type SSEEventType `json:"type"`
	Data interface{}  `json:"data"`
}

// MetadataPayload is the payload of the first, mandatory metadata event.
type MetadataPayload struct {
	Mode          ResponseMode  `json:"mode"`
	Sources       []SourceView  `json:"sources"`
	EvidenceLevel EvidenceLevel `json:"evidence_level"`
}

// DecontextualizedPayload carries the standalone rewrite of the question.
type DecontextualizedPayload struct {
	Text string `json:"text"`
}

// TokenPayload carries one streamed token of the answer.
type TokenPayload struct {
	Token string `json:"token"`
}

// CorrectionsPayload carries guardrail corrections applied to the answer.
type CorrectionsPayload struct {
	Corrections   []Correction `json:"corrections"`
	CorrectedText string       `json:"corrected_text"`
}

// DonePayload is the terminal success event payload.
type DonePayload struct {
	TotalTimeMS int64 `json:"total_time_ms"`
}

// ErrorPayload is the terminal failure event payload.
type ErrorPayload struct {
	Message string `json:"message"`
}
