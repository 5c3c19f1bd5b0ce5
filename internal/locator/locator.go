// Package locator resolves the text span a user interaction targets:
// either the word under a point, found by expanding over a fixed
// boundary character class, or the current selection verbatim.
package locator

import (
	"strings"
	"unicode"

	"github.com/pagetran/pagetran/internal/dom"
	"golang.org/x/net/html"
)

// Span is a located translation target: the text itself, the range
// anchoring it, and the text node that owns the range start.
type Span struct {
	Text   string
	Range  *dom.Range
	Source *html.Node
}

// boundaryRunes delimit words in addition to Unicode whitespace.
// These are punctuation heuristics, not linguistic segmentation.
const boundaryRunes = ".,!?;:()[]{}\"'«»“”‘’‹›„‚"

// isBoundary reports whether r ends a word.
func isBoundary(r rune) bool {
	return unicode.IsSpace(r) || strings.ContainsRune(boundaryRunes, r)
}

// WordAt locates the word under the document coordinates (x, y) using
// the document's layout engine. It returns dom.ErrNoLayout when the
// document has none, and (nil, nil) without an error when the point
// hits no usable text.
func WordAt(doc *dom.Document, x, y int) (*Span, error) {
	layout := doc.Layout()
	if layout == nil {
		return nil, dom.ErrNoLayout
	}

	node, offset, ok := layout.CaretAtPoint(x, y)
	if !ok || node == nil || node.Type != html.TextNode {
		return nil, nil
	}

	runes := []rune(node.Data)
	if len(runes) == 0 {
		return nil, nil
	}
	if offset >= len(runes) {
		offset = len(runes) - 1
	}
	if isBoundary(runes[offset]) {
		return nil, nil
	}

	start := offset
	for start > 0 && !isBoundary(runes[start-1]) {
		start--
	}
	end := offset + 1
	for end < len(runes) && !isBoundary(runes[end]) {
		end++
	}

	text := strings.TrimSpace(string(runes[start:end]))
	if text == "" {
		return nil, nil
	}

	return &Span{
		Text: text,
		Range: &dom.Range{
			StartNode:   node,
			StartOffset: start,
			EndNode:     node,
			EndOffset:   end,
		},
		Source: node,
	}, nil
}

// FromSelection returns the span for a non-collapsed selection. The
// selection's own range is used directly, with no boundary detection,
// and its text is trimmed with internal whitespace (including line
// breaks across elements) preserved. Collapsed or empty selections
// yield nil.
func FromSelection(sel *dom.Range) *Span {
	if sel.Collapsed() {
		return nil
	}
	text := strings.TrimSpace(sel.Text())
	if text == "" {
		return nil
	}
	return &Span{Text: text, Range: sel, Source: sel.StartNode}
}
