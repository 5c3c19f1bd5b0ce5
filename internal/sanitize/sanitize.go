// Package sanitize validates and normalizes translation request
// inputs before they reach a backend.
package sanitize

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

const (
	// MaxTextLength is the hard cap on sanitized request text.
	MaxTextLength = 5000

	// MaxContextLength is the hard cap on sanitized context windows.
	MaxContextLength = 1000
)

var ErrEmptyText = errors.New("text is empty after sanitization")

// reLangCode accepts language codes and plain language names
// ("de", "pt-BR", "Swiss German").
var reLangCode = regexp.MustCompile(`^[a-zA-Z][\w\s-]*$`)

var reSpaceRun = regexp.MustCompile(`\s+`)

// Text removes non-printable characters, collapses whitespace runs to
// single spaces, trims, and enforces max. Tabs and newlines are
// tolerated on input (they collapse like any other whitespace).
func Text(s string, max int) (string, error) {
	if s == "" {
		return "", ErrEmptyText
	}

	var sb strings.Builder
	for _, r := range s {
		if unicode.IsPrint(r) || r == '\n' || r == '\t' {
			sb.WriteRune(r)
		}
	}

	cleaned := strings.TrimSpace(reSpaceRun.ReplaceAllString(sb.String(), " "))
	if cleaned == "" {
		return "", ErrEmptyText
	}
	if max > 0 && len([]rune(cleaned)) > max {
		return "", fmt.Errorf("text exceeds maximum length of %d characters", max)
	}
	return cleaned, nil
}

// Context sanitizes an optional context window. It is best-effort:
// any failure yields "" rather than an error, since context only
// disambiguates and is never required.
func Context(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	cleaned, err := Text(s, MaxContextLength)
	if err != nil {
		return ""
	}
	return cleaned
}

// LanguageCode validates the shape of code and, when supported is
// non-empty, its membership in the supported set.
func LanguageCode(code string, supported []string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return errors.New("language code must be a non-empty string")
	}
	if !reLangCode.MatchString(code) {
		return fmt.Errorf("invalid language code format: %q", code)
	}
	if len(supported) == 0 {
		return nil
	}
	for _, s := range supported {
		if strings.EqualFold(s, code) {
			return nil
		}
	}
	return fmt.Errorf("unsupported language: %q (supported: %s)", code, strings.Join(supported, ", "))
}

// Request validates a whole translation request, returning the
// sanitized text and context.
func Request(text, sourceLang, targetLang, context string, supported []string, maxTextLen int) (string, string, error) {
	cleaned, err := Text(text, maxTextLen)
	if err != nil {
		return "", "", err
	}
	if err := LanguageCode(sourceLang, supported); err != nil {
		return "", "", err
	}
	if err := LanguageCode(targetLang, supported); err != nil {
		return "", "", err
	}
	if strings.EqualFold(sourceLang, targetLang) {
		return "", "", errors.New("source and target languages must be different")
	}
	return cleaned, Context(context), nil
}
