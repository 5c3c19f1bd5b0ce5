// Package excerpt derives a bounded context window around a located
// span from its enclosing block, aligned to sentence boundaries where
// possible. The window disambiguates short translation targets; its
// sentence alignment is best-effort, never guaranteed.
package excerpt

import (
	"strings"
	"unicode"

	"github.com/pagetran/pagetran/internal/dom"
	"github.com/pagetran/pagetran/internal/locator"
)

// Extract returns up to windowChars characters of rendered text
// surrounding span within its nearest block-like container:
//
//  1. Ascend to the block ancestor (immediate parent as fallback).
//  2. Flatten it to rendered text.
//  3. Find the span text; when whitespace normalization hides it,
//     fall back to the first windowChars characters.
//  4. Clip a half-window on each side of the occurrence.
//  5. Shift the window start past a sentence end (.!? + whitespace)
//     occurring in its first quarter, to avoid opening mid-sentence.
//  6. Shift the window end back to a sentence end in its last quarter.
//  7. Trim.
//
// The function is pure; a caller with context disabled simply does
// not invoke it.
func Extract(span *locator.Span, windowChars int) string {
	if span == nil || windowChars <= 0 {
		return ""
	}

	container := dom.BlockAncestor(span.Source)
	if container == nil {
		container = span.Source
	}
	full := []rune(dom.RenderedText(container))
	if len(full) <= windowChars {
		return strings.TrimSpace(string(full))
	}

	target := []rune(span.Text)
	offset := runeIndex(full, target)
	if offset < 0 {
		return strings.TrimSpace(string(full[:windowChars]))
	}

	half := windowChars / 2
	start := max(0, offset-half)
	end := min(len(full), offset+len(target)+half)

	window := full[start:end]
	quarter := len(window) / 4

	// Never let sentence alignment eat into the located text itself.
	textStart := offset - start
	textEnd := textStart + len(target)

	if cut := sentenceEndWithin(window, 0, min(quarter, textStart)); cut >= 0 {
		window = window[cut:]
		textStart -= cut
		textEnd -= cut
	}
	if cut := lastSentenceEndWithin(window, max(len(window)-quarter, textEnd)); cut >= 0 {
		window = window[:cut]
	}

	return strings.TrimSpace(string(window))
}

// runeIndex returns the first occurrence of needle in haystack, as a
// rune offset, or -1.
func runeIndex(haystack, needle []rune) int {
	i := strings.Index(string(haystack), string(needle))
	if i < 0 {
		return -1
	}
	return len([]rune(string(haystack)[:i]))
}

// sentenceEndWithin scans window[lo:hi] for the first sentence-ending
// punctuation followed by whitespace and returns the offset just past
// that whitespace, or -1.
func sentenceEndWithin(window []rune, lo, hi int) int {
	for i := lo; i < hi && i+1 < len(window); i++ {
		if isSentenceEnd(window[i]) && unicode.IsSpace(window[i+1]) {
			return i + 2
		}
	}
	return -1
}

// lastSentenceEndWithin scans window[lo:] for the last sentence-ending
// punctuation followed by whitespace (or end of window) and returns
// the offset just past the punctuation, or -1.
func lastSentenceEndWithin(window []rune, lo int) int {
	for i := len(window) - 1; i >= lo && i >= 0; i-- {
		if !isSentenceEnd(window[i]) {
			continue
		}
		if i+1 == len(window) || unicode.IsSpace(window[i+1]) {
			return i + 1
		}
	}
	return -1
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
