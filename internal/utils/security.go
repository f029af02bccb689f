package utils

import (
	"html"
	"regexp"
	"strings"
)

// scriptPatterns catch the markup an LLM answer should never be allowed to
// carry into a caller's browser: a prompt-injected source chunk or a
// jailbroken completion could otherwise smuggle an executable tag or event
// handler into svar before it reaches the HTTP/SSE response.
var scriptPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<script[^>]*>.*?</script>`),
	regexp.MustCompile(`(?i)<iframe[^>]*>.*?</iframe>`),
	regexp.MustCompile(`(?i)<object[^>]*>.*?</object>`),
	regexp.MustCompile(`(?i)<embed[^>]*>.*?</embed>`),
	regexp.MustCompile(`(?i)<embed[^>]*>`),
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)on(load|error|click|mouseover|focus|blur)\s*=`),
}

// CleanMarkdown strips the script-like patterns above from input, leaving
// ordinary Markdown and citation markers such as "[1]" untouched.
func CleanMarkdown(input string) string {
	if input == "" {
		return ""
	}
	cleaned := input
	for _, pattern := range scriptPatterns {
		cleaned = pattern.ReplaceAllString(cleaned, "")
	}
	return cleaned
}

// SanitizeForDisplay prepares a generated answer for the caller-visible
// response: it strips script-like markup, then HTML-escapes what remains.
// The orchestrator never applies this to the literal evidence_refusal_template,
// which must reach the caller byte-for-byte (spec §8).
func SanitizeForDisplay(input string) string {
	if input == "" {
		return ""
	}
	return html.EscapeString(CleanMarkdown(input))
}

// SanitizeForLog neutralizes log injection: it replaces newlines and tabs
// with spaces and drops remaining control characters, so that free-form
// request text (a question, a retrieval strategy tag) cannot forge
// additional log lines when interpolated into a log message.
func SanitizeForLog(input string) string {
	if input == "" {
		return ""
	}
	sanitized := strings.ReplaceAll(input, "\n", " ")
	sanitized = strings.ReplaceAll(sanitized, "\r", " ")
	sanitized = strings.ReplaceAll(sanitized, "\t", " ")

	var b strings.Builder
	for _, r := range sanitized {
		if r >= 32 || r == ' ' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SanitizeForLogArray applies SanitizeForLog to every element of input.
func SanitizeForLogArray(input []string) []string {
	if len(input) == 0 {
		return []string{}
	}
	sanitized := make([]string, 0, len(input))
	for _, item := range input {
		sanitized = append(sanitized, SanitizeForLog(item))
	}
	return sanitized
}
