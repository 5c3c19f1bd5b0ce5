// Package dom provides the document substrate the translation engine
// operates on: a parsed HTML tree, structural ranges over its text
// nodes, rendered-text flattening, block-ancestor resolution, and the
// layout hook that maps points to text positions.
package dom

import (
	"errors"
	"io"
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

// ErrNoLayout is returned when an operation needs point-to-text
// geometry but the document has no layout engine attached.
var ErrNoLayout = errors.New("document has no layout engine")

// Rect is an axis-aligned rectangle in document coordinates.
type Rect struct {
	X, Y, W, H int
}

// Contains reports whether the point (x, y) lies inside the rectangle.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}

// Layout maps between document coordinates and text positions. It is
// the platform primitive a browser exposes as caretPositionFromPoint
// and Range.getBoundingClientRect.
type Layout interface {
	// CaretAtPoint returns the text node and rune offset under the
	// given document coordinates, or ok=false when the point does not
	// hit rendered text.
	CaretAtPoint(x, y int) (node *html.Node, offset int, ok bool)

	// RangeRect returns the bounding rectangle of r in document
	// coordinates, or ok=false when r contains no rendered text.
	RangeRect(r *Range) (rect Rect, ok bool)
}

// Document wraps a parsed HTML tree together with its optional layout
// engine and current user selection.
type Document struct {
	Root *html.Node

	layout    Layout
	selection *Range
}

// Parse reads and parses an HTML document.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	return &Document{Root: root}, nil
}

// ParseString parses an HTML document from a string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// SetLayout attaches a layout engine. A nil layout detaches it.
func (d *Document) SetLayout(l Layout) { d.layout = l }

// Layout returns the attached layout engine, or nil.
func (d *Document) Layout() Layout { return d.layout }

// Refresher is implemented by layout engines that can recompute
// geometry after DOM mutation.
type Refresher interface {
	Refresh(root *html.Node)
}

// Relayout asks the layout engine to recompute geometry. A nil or
// non-refreshing layout is left alone.
func (d *Document) Relayout() {
	if r, ok := d.layout.(Refresher); ok {
		r.Refresh(d.Body())
	}
}

// Select records r as the current user selection. Collapsed or nil
// ranges clear the selection.
func (d *Document) Select(r *Range) {
	if r == nil || r.Collapsed() {
		d.selection = nil
		return
	}
	d.selection = r
}

// Selection returns the current non-collapsed user selection, or nil.
func (d *Document) Selection() *Range { return d.selection }

// ClearSelection removes the current selection.
func (d *Document) ClearSelection() { d.selection = nil }

// Body returns the <body> element, or the root when the tree has none.
func (d *Document) Body() *html.Node {
	var body *html.Node
	Walk(d.Root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "body" {
			body = n
			return false
		}
		return true
	})
	if body == nil {
		return d.Root
	}
	return body
}

// FindText returns a range over the first text node containing s, or
// nil when no single text node contains it.
func (d *Document) FindText(s string) *Range {
	if s == "" {
		return nil
	}
	var found *Range
	Walk(d.Root, func(n *html.Node) bool {
		if n.Type != html.TextNode {
			return true
		}
		if i := strings.Index(n.Data, s); i >= 0 {
			start := len([]rune(n.Data[:i]))
			found = &Range{
				StartNode:   n,
				StartOffset: start,
				EndNode:     n,
				EndOffset:   start + len([]rune(s)),
			}
			return false
		}
		return true
	})
	return found
}

// Range is a half-open structural handle over document text: it spans
// from rune StartOffset in StartNode up to (excluding) rune EndOffset
// in EndNode. Both endpoints anchor text nodes.
type Range struct {
	StartNode   *html.Node
	StartOffset int
	EndNode     *html.Node
	EndOffset   int
}

// Collapsed reports whether the range spans no text.
func (r *Range) Collapsed() bool {
	if r == nil {
		return true
	}
	return r.StartNode == r.EndNode && r.StartOffset >= r.EndOffset
}

// Equal reports whether two ranges have identical endpoints.
func (r *Range) Equal(o *Range) bool {
	if r == nil || o == nil {
		return r == o
	}
	return r.StartNode == o.StartNode && r.StartOffset == o.StartOffset &&
		r.EndNode == o.EndNode && r.EndOffset == o.EndOffset
}

// SingleNode reports whether both endpoints anchor the same text node.
func (r *Range) SingleNode() bool {
	return r != nil && r.StartNode == r.EndNode
}

// Text returns the raw text the range spans, in document order.
// Multi-node ranges concatenate the covered slices of every text node
// between the endpoints.
func (r *Range) Text() string {
	if r == nil || r.StartNode == nil || r.EndNode == nil {
		return ""
	}
	if r.SingleNode() {
		runes := []rune(r.StartNode.Data)
		return string(runes[clamp(r.StartOffset, 0, len(runes)):clamp(r.EndOffset, 0, len(runes))])
	}

	var sb strings.Builder
	started := false
	root := commonRoot(r.StartNode, r.EndNode)
	Walk(root, func(n *html.Node) bool {
		if n.Type != html.TextNode {
			return true
		}
		switch n {
		case r.StartNode:
			started = true
			runes := []rune(n.Data)
			sb.WriteString(string(runes[clamp(r.StartOffset, 0, len(runes)):]))
		case r.EndNode:
			if started {
				runes := []rune(n.Data)
				sb.WriteString(string(runes[:clamp(r.EndOffset, 0, len(runes))]))
			}
			return false
		default:
			if started {
				sb.WriteString(n.Data)
			}
		}
		return true
	})
	return sb.String()
}

// Walk visits n and its subtree in document order. The visitor returns
// false to stop the walk.
func Walk(n *html.Node, visit func(*html.Node) bool) bool {
	if n == nil {
		return true
	}
	if !visit(n) {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !Walk(c, visit) {
			return false
		}
	}
	return true
}

// blockTags are the elements treated as block-like containers when
// ascending from a text node: paragraphs, list items, table cells,
// headings, and sectioning content.
var blockTags = map[string]bool{
	"p": true, "li": true, "td": true, "th": true,
	"blockquote": true, "pre": true, "dd": true, "dt": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"article": true, "section": true, "aside": true, "main": true,
	"figcaption": true, "caption": true, "div": true, "body": true,
}

// skipTags are elements whose text content is never rendered.
var skipTags = map[string]bool{
	"script": true, "style": true, "noscript": true, "template": true,
}

// BlockAncestor ascends from n to the nearest block-like container.
// When no block element encloses n it falls back to the immediate
// parent element, and finally to n itself.
func BlockAncestor(n *html.Node) *html.Node {
	if n == nil {
		return nil
	}
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && blockTags[p.Data] {
			return p
		}
	}
	if n.Parent != nil {
		return n.Parent
	}
	return n
}

// RenderedText flattens the subtree under n to the text a browser
// would lay out: script/style content dropped, whitespace runs
// collapsed to single spaces, block boundaries separated by a space,
// result trimmed.
func RenderedText(n *html.Node) string {
	var sb strings.Builder
	renderText(n, &sb)
	return strings.TrimSpace(sb.String())
}

func renderText(n *html.Node, sb *strings.Builder) {
	if n == nil {
		return
	}
	if n.Type == html.ElementNode && skipTags[n.Data] {
		return
	}
	if n.Type == html.TextNode {
		appendCollapsed(sb, n.Data)
		return
	}
	block := n.Type == html.ElementNode && blockTags[n.Data]
	if block {
		padSpace(sb)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		renderText(c, sb)
	}
	if block {
		padSpace(sb)
	}
}

// appendCollapsed writes s with whitespace runs collapsed to single
// spaces, merging with any space already at the end of sb.
func appendCollapsed(sb *strings.Builder, s string) {
	inSpace := strings.HasSuffix(sb.String(), " ")
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !inSpace {
				sb.WriteByte(' ')
				inSpace = true
			}
			continue
		}
		sb.WriteRune(r)
		inSpace = false
	}
}

func padSpace(sb *strings.Builder) {
	s := sb.String()
	if s != "" && !strings.HasSuffix(s, " ") {
		sb.WriteByte(' ')
	}
}

// Element creates a detached element node with optional attributes
// given as alternating key/value strings.
func Element(tag string, attrs ...string) *html.Node {
	n := &html.Node{Type: html.ElementNode, Data: tag}
	for i := 0; i+1 < len(attrs); i += 2 {
		n.Attr = append(n.Attr, html.Attribute{Key: attrs[i], Val: attrs[i+1]})
	}
	return n
}

// Text creates a detached text node.
func Text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

// Attr returns the value of the named attribute on n, or "".
func Attr(n *html.Node, key string) string {
	if n == nil {
		return ""
	}
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// Contains reports whether root's subtree includes n (inclusive).
func Contains(root, n *html.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p == root {
			return true
		}
	}
	return false
}

// commonRoot returns the deepest node containing both a and b, or a's
// document root when they share none.
func commonRoot(a, b *html.Node) *html.Node {
	seen := map[*html.Node]bool{}
	for p := a; p != nil; p = p.Parent {
		seen[p] = true
	}
	for p := b; p != nil; p = p.Parent {
		if seen[p] {
			return p
		}
	}
	for p := a; p != nil; p = p.Parent {
		if p.Parent == nil {
			return p
		}
	}
	return a
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
