// Package critic implements CriticService: a rule-based critique of a
// candidate StructuredAnswer plus an LLM-backed revision step, bounding the
// orchestrator's revise loop (spec §4.7).
package critic

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/norrsken-ai/svarmotor/internal/structured"
	"github.com/norrsken-ai/svarmotor/internal/types"
	"github.com/norrsken-ai/svarmotor/internal/types/interfaces"
)

// opinionMarkers are forbidden in EVIDENCE mode (spec §4.7 check 4): an
// evidence-grade answer states facts, not verdicts.
var opinionMarkers = []string{"bra", "dåligt", "rättvis", "orättvis", "åsikt", "tycker"}

// speculationMarkers are forbidden whenever saknas_underlag=true (spec §4.7
// check 5): a refusal must not hedge with a guess dressed as likely fact.
var speculationMarkers = []string{"kommer att", "troligen", "förmodligen", "sannolikt"}

var citationPattern = regexp.MustCompile(`\[(\d+)\]`)

// Service implements CriticService.
type Service struct {
	model interfaces.CriticModel
}

// New constructs a Service. model may be nil if Revise is never called
// (e.g. critic_revise_enabled=false, spec §6.6).
func New(model interfaces.CriticModel) *Service {
	return &Service{model: model}
}

// Critique runs the five ordered checks of spec §4.7 against a parsed
// candidate. sources is the SearchResult set the answer was generated
// against, used to verify every cited chunk_id is real (spec §3).
func (s *Service) Critique(candidateJSON string, mode types.ResponseMode, sources []types.SearchResult) types.CriticResult {
	start := time.Now()

	answer, err := structured.Parse(candidateJSON)
	if err != nil {
		return result(start, false, fmt.Sprintf("check 1 (schema): %v", err), "re-emit valid JSON conforming to the StructuredAnswer schema")
	}

	if answer.Mode != mode {
		return result(start, false, fmt.Sprintf("check 2 (mode): got %q, want %q", answer.Mode, mode), fmt.Sprintf("set mode to %q", mode))
	}

	if mode == types.ModeEvidence && !answer.SaknasUnderlag {
		if errMsg := checkEvidenceCitations(answer, sources); errMsg != "" {
			return result(start, false, "check 3 (citations): "+errMsg, "add a [n] citation for every factual sentence and remove any fakta_utan_kalla entries")
		}
	}

	if mode == types.ModeEvidence {
		if marker, ok := findMarker(answer.Svar, opinionMarkers); ok {
			return result(start, false, fmt.Sprintf("check 4 (opinion marker): %q found in svar", marker), "restate without evaluative language")
		}
	}

	if answer.SaknasUnderlag {
		if marker, ok := findMarker(answer.Svar, speculationMarkers); ok {
			return result(start, false, fmt.Sprintf("check 5 (speculation marker): %q found in svar", marker), "remove speculative language; state only that no basis was found")
		}
	}

	return result(start, true, "", "")
}

func checkEvidenceCitations(answer types.StructuredAnswer, sources []types.SearchResult) string {
	if len(answer.Kallor) == 0 {
		return "saknas_underlag=false requires a non-empty kallor"
	}
	if len(answer.FaktaUtanKalla) > 0 {
		return "fakta_utan_kalla must be empty when saknas_underlag=false"
	}

	validIDs := make(map[string]bool, len(sources))
	for _, src := range sources {
		validIDs[src.ID] = true
	}
	for _, c := range answer.Kallor {
		if !validIDs[c.ChunkID] && !validIDs[c.DocID] {
			return fmt.Sprintf("kallor entry %q does not correspond to any retrieved SearchResult", c.ChunkID)
		}
	}

	for _, sentence := range splitSentences(answer.Svar) {
		if strings.TrimSpace(sentence) == "" {
			continue
		}
		matches := citationPattern.FindAllStringSubmatch(sentence, -1)
		if len(matches) == 0 {
			return fmt.Sprintf("sentence %q has no [n] citation", strings.TrimSpace(sentence))
		}
		for _, m := range matches {
			n := 0
			fmt.Sscanf(m[1], "%d", &n)
			if n < 1 || n > len(answer.Kallor) {
				return fmt.Sprintf("citation [%s] has no matching kallor entry", m[1])
			}
		}
	}

	return ""
}

func splitSentences(text string) []string {
	replacer := strings.NewReplacer("! ", ".\x00", "? ", ".\x00", ". ", ".\x00", "\n", ".\x00")
	return strings.Split(replacer.Replace(text), "\x00")
}

func findMarker(text string, markers []string) (string, bool) {
	lower := strings.ToLower(text)
	for _, m := range markers {
		if strings.Contains(lower, m) {
			return m, true
		}
	}
	return "", false
}

func result(start time.Time, ok bool, errMsg, remedy string) types.CriticResult {
	r := types.CriticResult{OK: ok, Remedy: remedy, LatencyMS: time.Since(start).Milliseconds()}
	if errMsg != "" {
		r.Errors = []string{errMsg}
	}
	return r
}

// Revise asks the backing CriticModel to repair a candidate given the prior
// critique's feedback (spec §4.7 "revise"). The orchestrator re-parses and
// re-validates the result before re-critiquing it.
func (s *Service) Revise(ctx context.Context, candidateJSON string, critique types.CriticResult) (string, error) {
	if s.model == nil {
		return "", fmt.Errorf("critic: no CriticModel configured, cannot revise")
	}
	feedback := critique.Remedy
	if len(critique.Errors) > 0 {
		feedback = strings.Join(critique.Errors, "; ") + ". " + feedback
	}
	return s.model.Revise(ctx, candidateJSON, feedback)
}
