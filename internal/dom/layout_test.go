package dom

import "testing"

func TestGridCaretAtPoint(t *testing.T) {
	doc := mustParse(t, "<p>Das ist ein Haus.</p>")
	grid := NewGridLayout(doc.Body(), 80)

	tests := []struct {
		name       string
		x, y       int
		wantOffset int
		wantOK     bool
	}{
		{name: "first rune", x: 0, y: 0, wantOffset: 0, wantOK: true},
		{name: "inside word", x: 13, y: 0, wantOffset: 13, wantOK: true},
		{name: "last rune", x: 16, y: 0, wantOffset: 16, wantOK: true},
		{name: "past end of text", x: 17, y: 0, wantOK: false},
		{name: "below text", x: 0, y: 5, wantOK: false},
		{name: "negative", x: -1, y: 0, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node, offset, ok := grid.CaretAtPoint(tt.x, tt.y)
			if ok != tt.wantOK {
				t.Fatalf("CaretAtPoint(%d, %d) ok = %v, want %v", tt.x, tt.y, ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if node == nil || node.Data != "Das ist ein Haus." {
				t.Errorf("CaretAtPoint hit node %v, want paragraph text", node)
			}
			if offset != tt.wantOffset {
				t.Errorf("CaretAtPoint offset = %d, want %d", offset, tt.wantOffset)
			}
		})
	}
}

func TestGridWrapsRows(t *testing.T) {
	doc := mustParse(t, "<p>Das ist ein Haus.</p>")
	grid := NewGridLayout(doc.Body(), 10)

	// Rune 12 ('H') flows to row 1, column 2.
	node, offset, ok := grid.CaretAtPoint(2, 1)
	if !ok {
		t.Fatal("CaretAtPoint(2, 1) missed")
	}
	if offset != 12 {
		t.Errorf("offset = %d, want 12", offset)
	}
	if x, y, ok := grid.PositionOf(node, 12); !ok || x != 2 || y != 1 {
		t.Errorf("PositionOf round trip = (%d, %d, %v), want (2, 1, true)", x, y, ok)
	}
}

func TestGridRangeRect(t *testing.T) {
	doc := mustParse(t, "<p>Das ist ein Haus.</p>")

	t.Run("single row", func(t *testing.T) {
		grid := NewGridLayout(doc.Body(), 80)
		rect, ok := grid.RangeRect(doc.FindText("Haus"))
		if !ok {
			t.Fatal("RangeRect missed")
		}
		want := Rect{X: 12, Y: 0, W: 4, H: 1}
		if rect != want {
			t.Errorf("RangeRect = %+v, want %+v", rect, want)
		}
	})

	t.Run("spanning rows covers full width", func(t *testing.T) {
		grid := NewGridLayout(doc.Body(), 10)
		rect, ok := grid.RangeRect(doc.FindText("ist ein Haus"))
		if !ok {
			t.Fatal("RangeRect missed")
		}
		want := Rect{X: 0, Y: 0, W: 10, H: 2}
		if rect != want {
			t.Errorf("RangeRect = %+v, want %+v", rect, want)
		}
	})
}

func TestGridSkipsFloatingElements(t *testing.T) {
	doc := mustParse(t, "<p>Hello</p>")
	body := doc.Body()

	float := Element("div", "class", "pagetran-tooltip", "data-floating", "1")
	float.AppendChild(Text("Bonjour"))
	body.AppendChild(float)

	grid := NewGridLayout(body, 80)
	if _, _, ok := grid.CaretAtPoint(5, 0); ok {
		t.Error("floating overlay text should not occupy grid cells")
	}
	node, _, ok := grid.CaretAtPoint(4, 0)
	if !ok || node.Data != "Hello" {
		t.Errorf("in-flow text misplaced: node = %v, ok = %v", node, ok)
	}
}

func TestGridRefresh(t *testing.T) {
	doc := mustParse(t, "<p>Hello world</p>")
	body := doc.Body()
	grid := NewGridLayout(body, 80)
	doc.SetLayout(grid)

	r := doc.FindText("world")
	node := r.StartNode
	node.Data = "Hello"

	doc.Relayout()
	if _, _, ok := grid.CaretAtPoint(6, 0); ok {
		t.Error("grid still maps cells past the shortened text")
	}
	if _, _, ok := grid.CaretAtPoint(4, 0); !ok {
		t.Error("grid lost the remaining text after refresh")
	}
}

func TestRectContains(t *testing.T) {
	r := Rect{X: 2, Y: 1, W: 3, H: 1}
	if !r.Contains(2, 1) || !r.Contains(4, 1) {
		t.Error("points inside the rect reported outside")
	}
	if r.Contains(5, 1) || r.Contains(2, 2) || r.Contains(1, 1) {
		t.Error("points outside the rect reported inside")
	}
}
