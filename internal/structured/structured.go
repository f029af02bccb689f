// Package structured parses and validates the LLM's JSON-shaped answer
// against the StructuredAnswer schema, and enforces the internal-field
// leakage invariant before anything reaches a caller (spec §4.6).
package structured

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/norrsken-ai/svarmotor/internal/types"
	"github.com/norrsken-ai/svarmotor/internal/utils"
)

// ParseError reports why a candidate LLM string could not be turned into a
// StructuredAnswer. The orchestrator retries once with a stricter
// instruction on the first ParseError and forces refusal on the second
// (spec §4.6).
type ParseError struct {
	Raw    string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("structured: %s", e.Reason)
}

// MalformedError reports a candidate that parsed as valid JSON but failed
// the security invariant of spec §4.6: an internal field leaked into the
// visible answer, or the declared mode disagrees with the classified mode.
// The orchestrator treats this the same as a parse failure: refusal.
type MalformedError struct {
	Reason string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("structured: malformed output: %s", e.Reason)
}

var (
	schemaOnce sync.Once
	schema     json.RawMessage
)

// Schema returns the JSON schema for StructuredAnswer, generated once from
// the type definition (utils.GenerateSchema[T] pattern, spec §4.6 "validates
// against schema").
func Schema() json.RawMessage {
	schemaOnce.Do(func() {
		schema = utils.GenerateSchema[types.StructuredAnswer]()
	})
	return schema
}

// ExtractJSON locates the first top-level JSON object in raw, tolerating a
// markdown code fence or leading prose around it (spec §4.6: "must accept
// JSON wrapped in code fences or leading prose by locating the first { and
// matching braces"). It returns the exact substring spanning the matched
// braces, accounting for braces inside quoted strings.
func ExtractJSON(raw string) (string, error) {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return "", &ParseError{Raw: raw, Reason: "no opening brace found"}
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(raw); i++ {
		c := raw[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return raw[start : i+1], nil
			}
		}
	}

	return "", &ParseError{Raw: raw, Reason: "unbalanced braces"}
}

// Parse extracts and unmarshals a StructuredAnswer from a raw LLM response.
func Parse(raw string) (types.StructuredAnswer, error) {
	var answer types.StructuredAnswer

	candidate, err := ExtractJSON(raw)
	if err != nil {
		return answer, err
	}

	if err := json.Unmarshal([]byte(candidate), &answer); err != nil {
		return answer, &ParseError{Raw: raw, Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}

	return answer, nil
}

// leakTerms are internal-only field names that must never appear inside a
// caller-visible text field. Their presence there, as opposed to their
// legitimate presence as the arbetsanteckning field itself, signals a
// prompt-injection attempt to smuggle internal state into the visible
// answer (spec §4.6 security invariant).
var leakTerms = []string{"arbetsanteckning", "fakta_utan_kalla"}

// Validate enforces spec §4.6's security invariant: a declared mode that
// disagrees with the classified mode, or literal leakage of an internal
// field name into any visible text field, makes the candidate malformed.
// expectedMode is the mode QueryProcessor.Classify assigned to the
// question; only CHAT wraps its own StructuredAnswer directly, so
// everything reaching Validate must match what the pipeline asked for.
func Validate(answer types.StructuredAnswer, expectedMode types.ResponseMode) error {
	if answer.Mode != expectedMode {
		return &MalformedError{Reason: fmt.Sprintf("mode %q does not match classified mode %q", answer.Mode, expectedMode)}
	}

	if containsLeak(answer.Svar) {
		return &MalformedError{Reason: "internal field name leaked into svar"}
	}
	for _, c := range answer.Kallor {
		if containsLeak(c.Citat) || containsLeak(c.Loc) {
			return &MalformedError{Reason: "internal field name leaked into a citation"}
		}
	}
	for _, f := range answer.FaktaUtanKalla {
		if containsLeak(f) {
			return &MalformedError{Reason: "internal field name leaked into fakta_utan_kalla"}
		}
	}

	return nil
}

func containsLeak(s string) bool {
	lower := strings.ToLower(s)
	for _, term := range leakTerms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

// Strip returns answer with all internal-only state removed: the
// arbetsanteckning scratch field (spec §3) and nothing else, since
// StructuredAnswer has no other internal fields to strip (spec §4.6
// "strip_internal_note returns a copy without arbetsanteckning and any
// field whose name starts with _").
func Strip(answer types.StructuredAnswer) types.StructuredAnswer {
	return answer.StripInternalNote()
}

// ParseAndValidate is the full §4.6 contract in one call: extract, parse,
// then validate against the classified mode.
func ParseAndValidate(raw string, expectedMode types.ResponseMode) (types.StructuredAnswer, error) {
	answer, err := Parse(raw)
	if err != nil {
		return answer, err
	}
	if err := Validate(answer, expectedMode); err != nil {
		return answer, err
	}
	return answer, nil
}
