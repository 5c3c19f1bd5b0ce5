// Package normalize turns the free-form reply of an LLM translation
// service into a clean translation string. LLM output has no fixed
// schema and frequently wraps the translation in descriptor prefixes,
// quotes, markup, or explanatory lines; every filter here is a
// documented heuristic applied defensively.
package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrInvalidResponse marks a reply that is empty or not text.
	ErrInvalidResponse = errors.New("invalid response")

	// ErrEmptyAfterCleaning marks a reply that reduced to nothing but
	// prefix, markup, or meta-commentary noise.
	ErrEmptyAfterCleaning = errors.New("response empty after cleaning")
)

// FormatError reports a structural violation of the chat-completion
// response envelope. Cause distinguishes which layer was missing.
type FormatError struct {
	Cause string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid response format: %s", e.Cause)
}

// Structural causes for FormatError.
const (
	CauseMissingChoices = "missing choices"
	CauseBadChoices     = "choices is not an array"
	CauseEmptyChoices   = "empty choices array"
	CauseMissingMessage = "choice has no message"
	CauseMissingContent = "message has no content"
)

// descriptorPrefixes are stripped case-insensitively from the start
// of a reply, at most one per cleaning. Longer prefixes first so the
// most specific match wins.
var descriptorPrefixes = []string{
	"here is the translation:",
	"the translation is:",
	"translated text:",
	"translation:",
	"output:",
	"result:",
	"answer:",
}

// metaLinePatterns identify whole lines of model commentary. Start
// anchors are used where practical; the unanchored phrases are known
// to misfire on ordinary prose containing them; that trade-off is
// deliberate and covered by the test corpus.
var metaLinePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^explanation\s*:`),
	regexp.MustCompile(`(?i)^note\s*:`),
	regexp.MustCompile(`(?i)^literally\s*:`),
	regexp.MustCompile(`(?i)^in [a-z]+\s*:`),
	regexp.MustCompile(`(?i)\bthis means\b`),
	regexp.MustCompile(`(?i)\bthis translates to\b`),
	regexp.MustCompile(`(?i)here'?s the translation`),
	regexp.MustCompile(`(?i)\bthe translation (?:is|would be)\b`),
}

// reMarkupTag matches markup-tag-like substrings. A leading letter is
// required so inequalities like "a < b" survive.
var reMarkupTag = regexp.MustCompile(`</?[a-zA-Z][^>]*>`)

// quoteRunes are the characters whose presence in the source text
// disables quote-pair stripping: quoting that mirrors the source is
// meaningful, not an artifact.
const quoteRunes = `"'«»“”‘’`

// Clean normalizes a raw service reply against the original source
// text. It fails with ErrInvalidResponse for empty input and
// ErrEmptyAfterCleaning when nothing survives the filters.
func Clean(raw, original string) (string, error) {
	cleaned, _, err := CleanReport(raw, original)
	return cleaned, err
}

// CleanReport is Clean plus the non-fatal "suspiciously long"
// diagnostic: suspicious is true when the cleaned reply exceeds five
// times the source length. It never blocks the result.
func CleanReport(raw, original string) (cleaned string, suspicious bool, err error) {
	if strings.TrimSpace(raw) == "" {
		return "", false, ErrInvalidResponse
	}

	cleaned = strings.TrimSpace(raw)
	cleaned = stripDescriptorPrefix(cleaned)
	cleaned = stripQuotePair(cleaned, original)
	cleaned = dropMetaLines(cleaned)
	cleaned = reMarkupTag.ReplaceAllString(cleaned, "")
	cleaned = strings.TrimSpace(cleaned)

	if cleaned == "" {
		return "", false, ErrEmptyAfterCleaning
	}

	suspicious = len([]rune(cleaned)) > 5*len([]rune(original))
	return cleaned, suspicious, nil
}

// stripDescriptorPrefix removes at most one known descriptor prefix
// from the start of text, case-insensitively.
func stripDescriptorPrefix(text string) string {
	lower := strings.ToLower(text)
	for _, p := range descriptorPrefixes {
		if strings.HasPrefix(lower, p) {
			return strings.TrimSpace(text[len(p):])
		}
	}
	return text
}

// stripQuotePair removes one matching pair of outer quotes, but only
// when the original text itself contains no quote characters;
// otherwise the quoting may be meaningful content.
func stripQuotePair(text, original string) string {
	if strings.ContainsAny(original, quoteRunes) {
		return text
	}
	runes := []rune(text)
	n := len(runes)
	if n < 2 {
		return text
	}
	first, last := runes[0], runes[n-1]
	if (first == '"' && last == '"') ||
		(first == '\'' && last == '\'') ||
		(first == '«' && last == '»') ||
		(first == '“' && last == '”') ||
		(first == '‘' && last == '’') {
		return strings.TrimSpace(string(runes[1 : n-1]))
	}
	return text
}

// dropMetaLines removes every line matching a meta-commentary pattern.
func dropMetaLines(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if isMetaLine(strings.TrimSpace(line)) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

func isMetaLine(line string) bool {
	if line == "" {
		return false
	}
	for _, re := range metaLinePatterns {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

// Extract validates the chat-completion envelope of a raw service
// reply (a non-empty choices array whose first element carries a
// message with textual content) and feeds that content to Clean.
// Each structural violation fails with a distinct *FormatError cause.
func Extract(raw []byte, original string) (string, error) {
	var envelope struct {
		Choices *json.RawMessage `json:"choices"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return "", &FormatError{Cause: CauseBadChoices}
	}
	if envelope.Choices == nil {
		return "", &FormatError{Cause: CauseMissingChoices}
	}

	var choices []struct {
		Message *struct {
			Content *string `json:"content"`
		} `json:"message"`
	}
	if err := json.Unmarshal(*envelope.Choices, &choices); err != nil {
		return "", &FormatError{Cause: CauseBadChoices}
	}
	if len(choices) == 0 {
		return "", &FormatError{Cause: CauseEmptyChoices}
	}

	// Only the first choice is used.
	first := choices[0]
	if first.Message == nil {
		return "", &FormatError{Cause: CauseMissingMessage}
	}
	if first.Message.Content == nil {
		return "", &FormatError{Cause: CauseMissingContent}
	}

	return Clean(*first.Message.Content, original)
}
