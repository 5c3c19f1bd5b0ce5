package overlay

import (
	"testing"
	"time"

	"golang.org/x/net/html"

	"github.com/pagetran/pagetran/internal/dom"
)

func newDoc(t *testing.T, src string) *dom.Document {
	t.Helper()
	doc, err := dom.ParseString(src)
	if err != nil {
		t.Fatalf("ParseString failed: %v", err)
	}
	doc.SetLayout(dom.NewGridLayout(doc.Body(), 80))
	return doc
}

func childSequence(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, c)
	}
	return out
}

func TestInlineWrapAndUnwrap(t *testing.T) {
	doc := newDoc(t, "<p>Das ist ein Haus.</p>")
	m := New(doc, nil)

	anchor := doc.FindText("Haus")
	para := anchor.StartNode.Parent
	origChildren := childSequence(para)
	origData := anchor.StartNode.Data

	e := m.ShowInline("house", anchor)
	if e == nil {
		t.Fatal("ShowInline returned nil")
	}
	if !e.Wrapped() {
		t.Fatal("single-text-node anchor should wrap, not fall back")
	}
	if e.State != StateDisplayed {
		t.Errorf("entry state = %v, want StateDisplayed", e.State)
	}

	// The paragraph now carries lead text, wrapper, and tail; total
	// rendered text is the original plus the translation.
	if got := dom.RenderedText(para); got != "Das ist ein Haushouse." {
		t.Errorf("wrapped rendered text = %q", got)
	}
	if anchor.StartNode.Data != "Das ist ein " {
		t.Errorf("lead slice = %q, want %q", anchor.StartNode.Data, "Das ist ein ")
	}

	m.Dismiss(e)

	if e.State != StateDismissed {
		t.Errorf("state after dismiss = %v, want StateDismissed", e.State)
	}
	if e.wrapper != nil || e.element != nil || e.anchor != nil {
		t.Error("dismissed entry still holds DOM references")
	}

	// The anchored content moved back in place. The split pieces stay
	// separate text nodes, so compare content and order, not identity.
	after := childSequence(para)
	var joined string
	for _, c := range after {
		if c.Type != html.TextNode {
			t.Fatalf("non-text child %v left after unwrap", c)
		}
		joined += c.Data
	}
	if joined != origData {
		t.Errorf("text after unwrap = %q, want %q", joined, origData)
	}
	if after[0] != origChildren[0] {
		t.Error("lead node is not the original text node")
	}
	if got := dom.RenderedText(para); got != "Das ist ein Haus." {
		t.Errorf("rendered text after unwrap = %q", got)
	}
	if len(m.Active()) != 0 {
		t.Errorf("active entries after dismiss = %d, want 0", len(m.Active()))
	}
}

func TestOverlaysSharingOriginTextNode(t *testing.T) {
	// Two inline entries in one paragraph: the second wrap lands
	// inside the tail node created by the first. Dismissal in
	// insertion order must not duplicate host content or detach the
	// second entry's anchor.
	doc := newDoc(t, "<p>Das ist ein Haus.</p>")
	m := New(doc, nil)
	body := doc.Body()

	first := m.ShowInline("the", doc.FindText("Das"))
	if first == nil || !first.Wrapped() {
		t.Fatal("first entry did not wrap")
	}
	doc.Relayout()

	second := m.ShowInline("house", doc.FindText("Haus"))
	if second == nil || !second.Wrapped() {
		t.Fatal("second entry did not wrap")
	}
	doc.Relayout()

	if got := dom.RenderedText(body); got != "Dasthe ist ein Haushouse." {
		t.Fatalf("rendered text with both shown = %q", got)
	}

	m.Dismiss(first)
	doc.Relayout()

	if got := dom.RenderedText(body); got != "Das ist ein Haushouse." {
		t.Errorf("rendered text after first dismiss = %q", got)
	}
	if second.State != StateDisplayed {
		t.Error("second entry dismissed along with the first")
	}
	if !dom.Contains(body, second.wrapper) {
		t.Error("second entry's wrapper detached from the document")
	}

	m.Dismiss(second)
	doc.Relayout()

	if got := dom.RenderedText(body); got != "Das ist ein Haus." {
		t.Errorf("rendered text after both dismissed = %q", got)
	}
	if len(m.Active()) != 0 {
		t.Errorf("active entries = %d, want 0", len(m.Active()))
	}
}

func TestOverlaysSharingOriginDismissedInReverse(t *testing.T) {
	doc := newDoc(t, "<p>Das ist ein Haus.</p>")
	m := New(doc, nil)
	body := doc.Body()

	first := m.ShowInline("the", doc.FindText("Das"))
	doc.Relayout()
	second := m.ShowInline("house", doc.FindText("Haus"))
	doc.Relayout()
	if first == nil || second == nil {
		t.Fatal("entries not shown")
	}

	m.Dismiss(second)
	doc.Relayout()
	if got := dom.RenderedText(body); got != "Dasthe ist ein Haus." {
		t.Errorf("rendered text after second dismiss = %q", got)
	}

	m.Dismiss(first)
	doc.Relayout()
	if got := dom.RenderedText(body); got != "Das ist ein Haus." {
		t.Errorf("rendered text after both dismissed = %q", got)
	}
}

func TestInlineToggle(t *testing.T) {
	doc := newDoc(t, "<p>Das ist ein Haus.</p>")
	m := New(doc, nil)

	anchor := doc.FindText("Haus")
	if e := m.ShowInline("house", anchor); e == nil {
		t.Fatal("first ShowInline returned nil")
	}
	if e := m.ShowInline("house", anchor); e != nil {
		t.Errorf("second ShowInline at same anchor = %v, want nil (toggle off)", e)
	}
	if n := len(m.Active()); n != 0 {
		t.Errorf("active entries after toggle = %d, want 0", n)
	}
	if got := dom.RenderedText(doc.Body()); got != "Das ist ein Haus." {
		t.Errorf("document text after toggle = %q", got)
	}
}

func TestInlineAtMatchesInsideWrapper(t *testing.T) {
	doc := newDoc(t, "<p>Das ist ein Haus.</p>")
	m := New(doc, nil)

	anchor := doc.FindText("Haus")
	e := m.ShowInline("house", anchor)
	if e == nil {
		t.Fatal("ShowInline returned nil")
	}

	// A later lookup resolves into the wrapper's own text node, not the
	// original anchor.
	inner := e.wrapper.FirstChild
	if inner == nil || inner.Type != html.TextNode {
		t.Fatal("wrapper lacks its text child")
	}
	r := &dom.Range{StartNode: inner, StartOffset: 0, EndNode: inner, EndOffset: 4}
	if got := m.InlineAt(r); got != e {
		t.Errorf("InlineAt inside wrapper = %v, want the wrapping entry", got)
	}
}

func TestInlineFallbackForMultiElementRange(t *testing.T) {
	doc := newDoc(t, "<p><b>Hal</b>lo Welt</p>")
	m := New(doc, nil)

	first := doc.FindText("Hal")
	second := doc.FindText("lo Welt")
	anchor := &dom.Range{
		StartNode:   first.StartNode,
		StartOffset: 0,
		EndNode:     second.StartNode,
		EndOffset:   2,
	}

	e := m.ShowInline("hello", anchor)
	if e == nil {
		t.Fatal("ShowInline returned nil")
	}
	if e.Wrapped() {
		t.Error("multi-element range must use the floating fallback")
	}
	if e.element == nil || e.element.Parent == nil {
		t.Error("fallback element not attached to the document")
	}
	if dom.Attr(e.element, "data-floating") == "" {
		t.Error("fallback element must be marked out of flow")
	}

	// No host content was altered.
	if got := dom.RenderedText(doc.Body().FirstChild); got != "Hallo Welt" {
		t.Errorf("paragraph text with fallback shown = %q", got)
	}

	m.Dismiss(e)
	if got := len(childSequence(doc.Body())); got != 1 {
		t.Errorf("body children after dismiss = %d, want 1", got)
	}
}

func TestTooltipSingleton(t *testing.T) {
	doc := newDoc(t, "<p>Das ist ein Haus.</p>")
	m := New(doc, nil)

	first := m.ShowTooltip("one", 2, 0)
	second := m.ShowTooltip("two", 10, 0)

	if first.State != StateDismissed {
		t.Error("showing a second tooltip must dismiss the first")
	}
	if m.Tooltip() != second {
		t.Error("manager does not track the new tooltip")
	}
	if n := len(m.Active()); n != 1 {
		t.Errorf("active entries = %d, want 1", n)
	}
}

func TestTooltipDismissal(t *testing.T) {
	t.Run("outside click", func(t *testing.T) {
		doc := newDoc(t, "<p>Das ist ein Haus.</p>")
		m := New(doc, nil)
		e := m.ShowTooltip("house", 12, 0)

		if consumed := m.HandleClick(60, 10); consumed {
			t.Error("outside click must not be consumed")
		}
		if e.State != StateDismissed {
			t.Error("outside click should dismiss the tooltip")
		}
	})

	t.Run("click on tooltip consumed", func(t *testing.T) {
		doc := newDoc(t, "<p>Das ist ein Haus.</p>")
		m := New(doc, nil)
		e := m.ShowTooltip("house", 12, 0)

		r := e.Rect()
		if consumed := m.HandleClick(r.X, r.Y); !consumed {
			t.Error("click on the tooltip must be consumed")
		}
		if e.State != StateDismissed {
			t.Error("click on the tooltip should toggle it off")
		}
	})

	t.Run("scroll", func(t *testing.T) {
		doc := newDoc(t, "<p>Das ist ein Haus.</p>")
		m := New(doc, nil)
		e := m.ShowTooltip("house", 12, 0)

		m.HandleScroll()
		if e.State != StateDismissed {
			t.Error("scroll should dismiss the tooltip")
		}
	})
}

func TestObserverCountReturnsToZero(t *testing.T) {
	doc := newDoc(t, "<p>Das ist ein Haus.</p>")
	m := New(doc, nil)

	for i := 0; i < 3; i++ {
		e := m.ShowTooltip("house", 12, 0)
		p := m.ShowPopover("note", 0, 2)
		m.Dismiss(e)
		m.Dismiss(p)
	}
	if n := m.ObserverCount(); n != 0 {
		t.Errorf("observers after dismissals = %d, want 0", n)
	}
}

func TestToastExpiry(t *testing.T) {
	doc := newDoc(t, "<p>Das ist ein Haus.</p>")
	m := New(doc, nil)

	base := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	m.SetClock(func() time.Time { return base })

	e := m.Toast("Translation failed", "error", 4*time.Second)

	m.ExpireToasts(base.Add(3 * time.Second))
	if e.State == StateDismissed {
		t.Error("toast expired before its deadline")
	}

	m.ExpireToasts(base.Add(4 * time.Second))
	if e.State != StateDismissed {
		t.Error("toast survived past its deadline")
	}
}

func TestDismissAll(t *testing.T) {
	doc := newDoc(t, "<p>Das ist ein Haus.</p>")
	m := New(doc, nil)

	m.ShowTooltip("one", 2, 0)
	m.ShowInline("house", doc.FindText("Haus"))
	m.Toast("hi", "info", time.Minute)

	m.DismissAll()

	if n := len(m.Active()); n != 0 {
		t.Errorf("active entries after DismissAll = %d, want 0", n)
	}
	if n := m.ObserverCount(); n != 0 {
		t.Errorf("observers after DismissAll = %d, want 0", n)
	}
	if got := dom.RenderedText(doc.Body()); got != "Das ist ein Haus." {
		t.Errorf("document text after DismissAll = %q", got)
	}
}

func TestDismissIdempotent(t *testing.T) {
	doc := newDoc(t, "<p>Das ist ein Haus.</p>")
	m := New(doc, nil)

	e := m.ShowInline("house", doc.FindText("Haus"))
	m.Dismiss(e)
	m.Dismiss(e) // second dismissal must not corrupt the restored tree

	if got := dom.RenderedText(doc.Body()); got != "Das ist ein Haus." {
		t.Errorf("document text after double dismiss = %q", got)
	}
}
