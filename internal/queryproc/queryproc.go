// Package queryproc classifies a question into a ResponseMode, derives its
// generation config, performs conversational decontextualization, and grades
// the post-retrieval evidence level (spec §4.1).
package queryproc

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/norrsken-ai/svarmotor/internal/cache"
	"github.com/norrsken-ai/svarmotor/internal/logger"
	"github.com/norrsken-ai/svarmotor/internal/types"
	"github.com/norrsken-ai/svarmotor/internal/types/interfaces"
	"github.com/norrsken-ai/svarmotor/internal/utils"
)

// ModeConfig is the generation configuration a ResponseMode selects
// (spec §4.1).
type ModeConfig struct {
	Temperature    float64
	MaxTokens      int
	SystemPromptID string
}

var modeConfigs = map[types.ResponseMode]ModeConfig{
	types.ModeChat:     {Temperature: 0.7, MaxTokens: 512, SystemPromptID: "chat_system"},
	types.ModeAssist:   {Temperature: 0.4, MaxTokens: 1024, SystemPromptID: "assist_system"},
	types.ModeEvidence: {Temperature: 0.3, MaxTokens: 1536, SystemPromptID: "evidence_system"},
}

// Processor implements the QueryProcessor component.
type Processor struct {
	rewriter interfaces.RewriteModel
	cache    *cache.Cache
}

// New constructs a Processor. rewriter may be nil if decontextualization is
// never needed (e.g. a deployment that never passes history).
func New(rewriter interfaces.RewriteModel) *Processor {
	return &Processor{rewriter: rewriter}
}

// WithCache attaches a read-through cache for decontextualized queries
// (spec §5), keyed per sessionID so that rewrites from one conversation
// never leak into another's history. Returns p for chaining at construction
// time.
func (p *Processor) WithCache(c *cache.Cache) *Processor {
	p.cache = c
	return p
}

var (
	greetingWords = []string{"hej", "hejsan", "tja", "tjena", "hallå", "god morgon", "god dag", "god kväll", "godkväll", "morsning"}

	questionWords = []string{"vad", "vem", "var", "när", "hur", "varför", "vilken", "vilket", "vilka"}

	// evidenceMarkers flag a factual, statistical, legal, or regulatory
	// request (spec §4.1 EVIDENCE). Policy/fiscal nouns are included because
	// the objectivity invariant (spec §8 scenario 3) requires even an
	// opinion-shaped question about a law or proposal to be answered under
	// EVIDENCE's citation discipline, not ASSIST's looser tone.
	evidenceMarkers = []string{
		"lag", "paragraf", "§", "kap.", "förordning", "proposition", "förslag",
		"statistik", "procent", "folkmängd", "antal", "scb", "skatt", "val",
		"riksdag", "riksdagsval", "myndighet", "föreskrift",
	}

	opinionMarkers = []string{"tycker", "rättvis", "orättvis", "bra", "dåligt", "åsikt", "anser"}

	sfsNumberPattern = regexp.MustCompile(`\d{4}:\d+`)

	// deicticMarkers flag a question that only makes sense read against
	// prior conversation turns (spec §4.1 decontextualization trigger).
	deicticMarkers = []string{"den", "det", "de", "den där", "samma", "vad sägs om", "och det", "och den", "där", "detta", "denna"}
)

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

func isGreeting(lower string) bool {
	if !containsAny(lower, greetingWords) {
		return false
	}
	if containsAny(lower, questionWords) {
		return false
	}
	if hasEvidenceSignal(lower) {
		return false
	}
	// A greeting with attached informational content ("Hej, vad gäller
	// enligt socialtjänstlagen?") is not CHAT — only pure pleasantries are.
	return len(strings.Fields(lower)) <= 6
}

func hasEvidenceSignal(lower string) bool {
	return containsAny(lower, evidenceMarkers) || sfsNumberPattern.MatchString(lower)
}

func hasOpinionSignal(lower string) bool {
	return containsAny(lower, opinionMarkers)
}

func hasQuestionWord(lower string) bool {
	return containsAny(lower, questionWords)
}

// Classify assigns a ResponseMode to a question (spec §4.1).
func (p *Processor) Classify(text string) types.ResponseMode {
	lower := strings.ToLower(strings.TrimSpace(text))

	if isGreeting(lower) {
		return types.ModeChat
	}
	if hasEvidenceSignal(lower) {
		return types.ModeEvidence
	}
	if hasOpinionSignal(lower) {
		return types.ModeAssist
	}
	if hasQuestionWord(lower) {
		return types.ModeAssist
	}
	return types.ModeAssist
}

// ModeConfig returns the generation config for a classified mode.
func (p *Processor) ModeConfig(mode types.ResponseMode) ModeConfig {
	if cfg, ok := modeConfigs[mode]; ok {
		return cfg
	}
	return modeConfigs[types.ModeAssist]
}

// EvidenceLevel grades retrieval quality from the top score and the number
// of retained relevant sources (spec §4.1). This is the sole authority over
// evidence_level; no config override may set it directly (SPEC_FULL.md §9
// Open Question 1).
func EvidenceLevel(topScore float64, relevantSources int) types.EvidenceLevel {
	switch {
	case topScore >= 0.85 && relevantSources >= 2:
		return types.EvidenceHigh
	case topScore >= 0.6:
		return types.EvidenceMedium
	case topScore >= 0.3:
		return types.EvidenceLow
	default:
		return types.EvidenceNone
	}
}

// MustInclude surfaces the tokens retrieval is expected to turn up for this
// question: SFS numbers ("2018:218") are the concrete, checkable case spec
// §4.2/glossary names for must_include, so every distinct match in the
// (decontextualized) query becomes a required token for
// ConfidenceSignals.MustIncludeHitRate.
func MustInclude(text string) []string {
	matches := sfsNumberPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	return out
}

// NeedsDecontextualization reports whether the question contains a deictic
// reference that only resolves against prior history (spec §4.1).
func NeedsDecontextualization(text string, history []types.HistoryMessage) bool {
	if len(history) == 0 {
		return false
	}
	lower := strings.ToLower(text)
	for _, marker := range deicticMarkers {
		if containsWord(lower, marker) {
			return true
		}
	}
	return false
}

func containsWord(haystack, word string) bool {
	if !strings.Contains(word, " ") {
		for _, f := range strings.Fields(haystack) {
			if strings.Trim(f, ".,?!:;") == word {
				return true
			}
		}
		return false
	}
	return strings.Contains(haystack, word)
}

// Decontextualize rewrites text into a standalone question when history is
// present and a deictic reference is detected, failing closed to the
// original text on any LLM error or timeout (spec §4.1). The returned bool
// reports whether a rewrite was actually produced, which gates the
// `decontextualized` SSE event (spec §4.10). sessionID scopes the optional
// rewrite cache (WithCache); an empty sessionID simply never hits the cache.
func (p *Processor) Decontextualize(ctx context.Context, text string, history []types.HistoryMessage, timeout time.Duration, sessionID string) (string, bool) {
	if !NeedsDecontextualization(text, history) || p.rewriter == nil {
		return text, false
	}

	if p.cache != nil && sessionID != "" {
		if cached, ok := p.cache.GetDecontextualized(ctx, sessionID, text); ok {
			return cached, true
		}
	}

	dctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	rewritten, err := p.rewriter.Decontextualize(dctx, text, history)
	if err != nil {
		logger.Warnf(ctx, "decontextualization failed for question %q, using original: %v", utils.SanitizeForLog(text), err)
		return text, false
	}
	rewritten = strings.TrimSpace(rewritten)
	if rewritten == "" {
		return text, false
	}
	if p.cache != nil && sessionID != "" {
		p.cache.SetDecontextualized(ctx, sessionID, text, rewritten)
	}
	return rewritten, true
}
