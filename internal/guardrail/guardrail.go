// Package guardrail implements GuardrailService: a terminology-normalization
// rewrite applied to the visible answer text, with a deny-list escape hatch
// to a forced refusal (spec §4.8).
package guardrail

import (
	"sort"
	"strings"

	"github.com/norrsken-ai/svarmotor/internal/config"
	"github.com/norrsken-ai/svarmotor/internal/types"
)

// Service implements GuardrailService over a configured terminology map and
// deny-list (spec §6.6 guardrail config).
type Service struct {
	terminology map[string]string
	denyList    []string
	terms       []string // terminology keys, longest first, for greedy matching
}

// New constructs a Service from the process configuration.
func New(cfg config.GuardrailConfig) *Service {
	terms := make([]string, 0, len(cfg.TerminologyMap))
	for term := range cfg.TerminologyMap {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool { return len(terms[i]) > len(terms[j]) })

	return &Service{
		terminology: cfg.TerminologyMap,
		denyList:    cfg.DenyList,
		terms:       terms,
	}
}

// Validate applies terminology normalization to svar and checks the
// deny-list. It never touches citations, structure, or kallor (spec §4.8:
// "post-processing rewrite applied to svar only").
func (s *Service) Validate(svar string) types.GuardrailResult {
	lower := strings.ToLower(svar)
	for _, term := range s.denyList {
		if strings.Contains(lower, strings.ToLower(term)) {
			return types.GuardrailResult{Status: types.GuardrailRefused, CorrectedText: svar}
		}
	}

	corrected := svar
	var corrections []types.Correction
	for _, term := range s.terms {
		replacement := s.terminology[term]
		if idx := indexCaseInsensitive(corrected, term); idx >= 0 {
			corrected = replaceCaseInsensitive(corrected, term, replacement)
			corrections = append(corrections, types.Correction{Original: term, Replacement: replacement})
		}
	}

	if len(corrections) == 0 {
		return types.GuardrailResult{Status: types.GuardrailUnchanged, CorrectedText: svar}
	}
	return types.GuardrailResult{Status: types.GuardrailCorrected, CorrectedText: corrected, Corrections: corrections}
}

func indexCaseInsensitive(haystack, needle string) int {
	return strings.Index(strings.ToLower(haystack), strings.ToLower(needle))
}

// replaceCaseInsensitive replaces every case-insensitive occurrence of
// needle in haystack with replacement, preserving the surrounding text
// exactly.
func replaceCaseInsensitive(haystack, needle, replacement string) string {
	lowerNeedle := strings.ToLower(needle)

	var b strings.Builder
	rest := haystack
	lowerRest := strings.ToLower(haystack)

	for {
		idx := strings.Index(lowerRest, lowerNeedle)
		if idx < 0 {
			b.WriteString(rest)
			break
		}
		b.WriteString(rest[:idx])
		b.WriteString(replacement)
		rest = rest[idx+len(needle):]
		lowerRest = lowerRest[idx+len(needle):]
	}
	return b.String()
}
