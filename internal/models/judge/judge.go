// Package judge implements the three LLM-facing seams the orchestration
// core drives for judgement rather than free-form generation (spec §4.3
// GraderService, §4.7 CriticService.Revise, §4.1/§4.2 query rewriting):
// interfaces.GraderModel, interfaces.CriticModel, and interfaces.RewriteModel,
// all built on the same chat.Chat backend ProcessQuery/StreamQuery generate
// against. Each call asks for a small JSON object and parses it with
// structured.ExtractJSON, the same tolerant-of-prose extractor the main
// answer pipeline uses, since an LLM judge is just as prone to wrapping its
// verdict in a code fence or a sentence of preamble as the answering model.
package judge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/norrsken-ai/svarmotor/internal/models/chat"
	"github.com/norrsken-ai/svarmotor/internal/structured"
	"github.com/norrsken-ai/svarmotor/internal/types"
	"github.com/norrsken-ai/svarmotor/internal/types/interfaces"
)

const judgeSystemPrompt = "Du är en noggrann svensk bedömare. Svara ENDAST med ett giltigt JSON-objekt, utan kodblock eller förklarande text."

// Model wraps a chat.Chat backend as interfaces.GraderModel,
// interfaces.CriticModel, and interfaces.RewriteModel. A single low-
// temperature backend call handles grading, self-reflection, revision, and
// query rewriting/decontextualization: all four are short, deterministic
// JSON-judgement tasks, not open-ended generation, so they share one
// configuration (spec §4.1 mode_config vs. judge calls are deliberately
// distinct: judge calls never vary by ResponseMode).
type Model struct {
	backend chat.Chat
}

// New wraps backend as a judge.Model.
func New(backend chat.Chat) *Model {
	return &Model{backend: backend}
}

const judgeTemperature = 0.0

func (m *Model) call(ctx context.Context, system, prompt string, maxTokens int) (string, error) {
	raw, err := m.backend.Chat(ctx, system, []chat.Message{{Role: "user", Content: prompt}},
		chat.Options{Temperature: judgeTemperature, MaxTokens: maxTokens})
	if err != nil {
		return "", fmt.Errorf("judge: backend call failed: %w", err)
	}
	return structured.ExtractJSON(raw)
}

// gradeResponse is the wire shape asked of the LLM for Grade; DocID and
// LatencyMS are filled in by the caller (grader.Service), not the model.
type gradeResponse struct {
	Relevant   bool    `json:"relevant"`
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// Grade asks whether doc is relevant to question (spec §4.3).
func (m *Model) Grade(ctx context.Context, question string, doc types.SearchResult) (types.GradeResult, error) {
	prompt := fmt.Sprintf(
		"Fråga: %s\n\nDokument (id=%s, källa=%s):\n%s\n\n"+
			"Bedöm om dokumentet är relevant för att besvara frågan. "+
			"Svara med JSON: {\"relevant\": bool, \"score\": 0..1, \"confidence\": 0..1, \"reason\": string}.",
		question, doc.ID, doc.Source, doc.Text)

	body, err := m.call(ctx, judgeSystemPrompt, prompt, 256)
	if err != nil {
		return types.GradeResult{}, err
	}

	var parsed gradeResponse
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		return types.GradeResult{}, fmt.Errorf("judge: grade response not valid JSON: %w", err)
	}
	return types.GradeResult{
		Relevant:   parsed.Relevant,
		Score:      clamp01(parsed.Score),
		Confidence: clamp01(parsed.Confidence),
		Reason:     parsed.Reason,
	}, nil
}

// reflectResponse is the wire shape asked of the LLM for Reflect.
type reflectResponse struct {
	ThoughtProcess           string   `json:"thought_process"`
	HasSufficientEvidence    bool     `json:"has_sufficient_evidence"`
	MissingEvidence          []string `json:"missing_evidence"`
	CitationPlan             []string `json:"citation_plan"`
	ConstitutionalCompliance bool     `json:"constitutional_compliance"`
	Confidence               float64  `json:"confidence"`
}

// Reflect asks whether the retained document set is sufficient to answer
// question, the optional CRAG self-reflection gate (spec §4.3).
func (m *Model) Reflect(ctx context.Context, question string, docs []types.SearchResult) (types.CriticReflection, error) {
	var b strings.Builder
	for i, d := range docs {
		fmt.Fprintf(&b, "[%d] (id=%s) %s\n", i+1, d.ID, d.Text)
	}
	prompt := fmt.Sprintf(
		"Fråga: %s\n\nBehållna dokument:\n%s\n\n"+
			"Bedöm om dokumenten räcker för att besvara frågan korrekt och fullständigt utan spekulation. "+
			"Svara med JSON: {\"thought_process\": string, \"has_sufficient_evidence\": bool, "+
			"\"missing_evidence\": [string], \"citation_plan\": [string], "+
			"\"constitutional_compliance\": bool, \"confidence\": 0..1}.",
		question, b.String())

	body, err := m.call(ctx, judgeSystemPrompt, prompt, 512)
	if err != nil {
		return types.CriticReflection{}, err
	}

	var parsed reflectResponse
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		return types.CriticReflection{}, fmt.Errorf("judge: reflect response not valid JSON: %w", err)
	}
	return types.CriticReflection{
		ThoughtProcess:           parsed.ThoughtProcess,
		HasSufficientEvidence:    parsed.HasSufficientEvidence,
		MissingEvidence:          parsed.MissingEvidence,
		CitationPlan:             parsed.CitationPlan,
		ConstitutionalCompliance: parsed.ConstitutionalCompliance,
		Confidence:               clamp01(parsed.Confidence),
	}, nil
}

// Revise asks the backend to repair candidateJSON given feedback from the
// critic (spec §4.7). The orchestrator re-parses and re-validates the
// result; Revise itself makes no correctness guarantee.
func (m *Model) Revise(ctx context.Context, candidateJSON, feedback string) (string, error) {
	prompt := fmt.Sprintf(
		"Föregående JSON-svar:\n%s\n\n"+
			"Granskningsfel: %s\n\n"+
			"Rätta svaret så att det följer schemat och åtgärdar felen ovan. "+
			"Svara med ENDAST det rättade JSON-objektet, samma schema som tidigare.",
		candidateJSON, feedback)

	schema := structured.Schema()
	system := judgeSystemPrompt + "\n\nSchema:\n" + string(schema)

	raw, err := m.backend.Chat(ctx, system, []chat.Message{{Role: "user", Content: prompt}},
		chat.Options{Temperature: judgeTemperature, MaxTokens: 1536})
	if err != nil {
		return "", fmt.Errorf("judge: revise backend call failed: %w", err)
	}
	return structured.ExtractJSON(raw)
}

// paraphraseResponse is the wire shape asked of the LLM for Paraphrase.
type paraphraseResponse struct {
	Paraphrases []string `json:"paraphrases"`
}

// Paraphrase asks for n alternative phrasings of query (spec §4.2
// REWRITE_V1 step 1, RAG_FUSION's reuse of the same step).
func (m *Model) Paraphrase(ctx context.Context, query string, n int) ([]string, error) {
	prompt := fmt.Sprintf(
		"Fråga: %s\n\nSkriv %d alternativa omformuleringar av frågan som bevarar dess betydelse "+
			"men varierar ordval och perspektiv, lämpliga för sökning i ett dokumentarkiv. "+
			"Svara med JSON: {\"paraphrases\": [string, ...]} med exakt %d element.",
		query, n, n)

	body, err := m.call(ctx, judgeSystemPrompt, prompt, 512)
	if err != nil {
		return nil, err
	}

	var parsed paraphraseResponse
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		return nil, fmt.Errorf("judge: paraphrase response not valid JSON: %w", err)
	}
	if len(parsed.Paraphrases) == 0 {
		return nil, fmt.Errorf("judge: paraphrase response had no entries")
	}
	return parsed.Paraphrases, nil
}

// decontextResponse is the wire shape asked of the LLM for Decontextualize.
type decontextResponse struct {
	StandaloneQuestion string `json:"standalone_question"`
}

// Decontextualize asks the backend to rewrite question as a standalone
// query given the prior turns (spec §4.1). queryproc.Processor fails closed
// (keeps the original text) on any error this returns.
func (m *Model) Decontextualize(ctx context.Context, question string, history []types.HistoryMessage) (string, error) {
	var b strings.Builder
	for _, h := range history {
		fmt.Fprintf(&b, "%s: %s\n", h.Role, h.Content)
	}
	prompt := fmt.Sprintf(
		"Tidigare konversation:\n%s\n\nSenaste fråga: %s\n\n"+
			"Skriv om den senaste frågan så att den står för sig själv utan att behöva "+
			"konversationshistoriken, och bevara dess ursprungliga betydelse och språk. "+
			"Svara med JSON: {\"standalone_question\": string}.",
		b.String(), question)

	body, err := m.call(ctx, judgeSystemPrompt, prompt, 256)
	if err != nil {
		return "", err
	}

	var parsed decontextResponse
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		return "", fmt.Errorf("judge: decontextualize response not valid JSON: %w", err)
	}
	if strings.TrimSpace(parsed.StandaloneQuestion) == "" {
		return "", fmt.Errorf("judge: decontextualize response was empty")
	}
	return parsed.StandaloneQuestion, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

var _ interfaces.GraderModel = (*Model)(nil)
var _ interfaces.CriticModel = (*Model)(nil)
var _ interfaces.RewriteModel = (*Model)(nil)
