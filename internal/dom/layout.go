package dom

import (
	"unicode"

	"golang.org/x/net/html"
)

// GridLayout is a deterministic monospace layout model: the rendered
// text of the document body flows left to right on a fixed-width
// character grid, one grid cell per rune, one row per line. It stands
// in for a real renderer so caret lookup and range geometry work
// headlessly.
//
// The grid is computed once from the tree it is given; DOM mutation
// after construction is not reflected. Callers that mutate the tree
// (overlay wrapping) must take any geometry they need first.
type GridLayout struct {
	width int
	cells []gridCell
}

// gridCell maps one rendered rune back to its source text node.
type gridCell struct {
	node   *html.Node
	offset int // rune offset within node
}

// NewGridLayout lays out the rendered text under root on a grid of
// the given character width. Width values below 1 fall back to 80.
func NewGridLayout(root *html.Node, width int) *GridLayout {
	if width < 1 {
		width = 80
	}
	l := &GridLayout{width: width}
	l.flow(root, &flowState{})
	return l
}

// Refresh relays the grid out after DOM mutation.
func (l *GridLayout) Refresh(root *html.Node) {
	l.cells = l.cells[:0]
	l.flow(root, &flowState{})
}

type flowState struct {
	inSpace bool
}

func (l *GridLayout) flow(n *html.Node, st *flowState) {
	if n == nil {
		return
	}
	if n.Type == html.ElementNode && (skipTags[n.Data] || Attr(n, "data-floating") != "") {
		// Absolutely-positioned overlay elements are out of flow.
		return
	}
	if n.Type == html.TextNode {
		for i, r := range []rune(n.Data) {
			if unicode.IsSpace(r) {
				if !st.inSpace && len(l.cells) > 0 {
					l.cells = append(l.cells, gridCell{node: n, offset: i})
					st.inSpace = true
				}
				continue
			}
			l.cells = append(l.cells, gridCell{node: n, offset: i})
			st.inSpace = false
		}
		return
	}
	block := n.Type == html.ElementNode && blockTags[n.Data]
	if block {
		st.inSpace = true // suppress leading whitespace of the block
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		l.flow(c, st)
	}
	if block {
		st.inSpace = true
	}
}

// CaretAtPoint implements Layout. The x coordinate is the column and
// y the row of the grid; points past the laid-out text miss.
func (l *GridLayout) CaretAtPoint(x, y int) (*html.Node, int, bool) {
	if x < 0 || y < 0 || x >= l.width {
		return nil, 0, false
	}
	i := y*l.width + x
	if i >= len(l.cells) {
		return nil, 0, false
	}
	c := l.cells[i]
	return c.node, c.offset, true
}

// RangeRect implements Layout: the bounding rectangle of the grid
// cells the range covers. Ranges that wrap across rows span the full
// grid width.
func (l *GridLayout) RangeRect(r *Range) (Rect, bool) {
	first, last := -1, -1
	for i, c := range l.cells {
		if first < 0 && c.node == r.StartNode && c.offset >= r.StartOffset {
			first = i
		}
		if c.node == r.EndNode && c.offset < r.EndOffset {
			last = i
		}
	}
	if first < 0 || last < first {
		return Rect{}, false
	}
	row0, row1 := first/l.width, last/l.width
	if row0 == row1 {
		return Rect{X: first % l.width, Y: row0, W: last - first + 1, H: 1}, true
	}
	return Rect{X: 0, Y: row0, W: l.width, H: row1 - row0 + 1}, true
}

// PositionOf returns the grid coordinates of the rune at the given
// text node and offset, or ok=false when that rune was not rendered
// (collapsed whitespace, unrendered subtree).
func (l *GridLayout) PositionOf(node *html.Node, offset int) (x, y int, ok bool) {
	for i, c := range l.cells {
		if c.node == node && c.offset == offset {
			return i % l.width, i / l.width, true
		}
	}
	return 0, 0, false
}
