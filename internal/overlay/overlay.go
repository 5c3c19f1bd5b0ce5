// Package overlay creates, tracks, and tears down the transient
// visual elements that present translations inside the document:
// tooltips near the interaction point, inline entries anchored to a
// wrapped range (with an absolutely-positioned fallback when wrapping
// is structurally impossible), popovers, and auto-expiring toasts.
//
// The manager exclusively owns every node it creates. Host-page nodes
// are touched only for the lifetime of a wrap operation, and the
// unwrap protocol is lossless: no original content is lost,
// duplicated, or reordered.
package overlay

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/pagetran/pagetran/internal/dom"
)

// Kind identifies the overlay variant.
type Kind int

const (
	KindTooltip Kind = iota
	KindInline
	KindPopover
	KindToast
)

func (k Kind) String() string {
	switch k {
	case KindTooltip:
		return "tooltip"
	case KindInline:
		return "inline"
	case KindPopover:
		return "popover"
	case KindToast:
		return "toast"
	}
	return "unknown"
}

// State is the entry lifecycle: Created → Displayed → Dismissed.
// Dismissed is terminal.
type State int

const (
	StateCreated State = iota
	StateDisplayed
	StateDismissed
)

// anchorTolerance is the pixel slack when matching an interaction
// against an existing fallback-positioned inline entry.
const anchorTolerance = 4

// Entry is one tracked overlay. After dismissal an entry keeps its
// ID, kind, and state but holds no live references into the document.
type Entry struct {
	ID      string
	Kind    Kind
	State   State
	Content string

	// element is the node presenting the translation: the floating
	// overlay for rect-anchored entries, the in-flow child inside the
	// wrapper for wrapped ones.
	element *html.Node
	rect    dom.Rect

	// Wrap bookkeeping for inline entries anchored via a wrapper.
	wrapped bool
	anchor  *dom.Range
	wrapper *html.Node

	deadline  time.Time
	observers []observerID
}

// Wrapped reports whether the entry anchors via a wrapper element
// (as opposed to the absolute-positioning fallback).
func (e *Entry) Wrapped() bool { return e.wrapped }

// Rect returns the document-coordinate rectangle of a rect-anchored
// entry.
func (e *Entry) Rect() dom.Rect { return e.rect }

// Manager owns all overlay entries of one document.
type Manager struct {
	doc *dom.Document
	log *zap.Logger
	now func() time.Time

	entries   []*Entry
	tooltip   *Entry
	observers map[observerID]*observer
	nextObsID observerID
}

type observerID int

type eventKind int

const (
	eventClick eventKind = iota
	eventScroll
)

// observer is one removable dismissal listener. Click observers
// receive the interaction coordinates.
type observer struct {
	event eventKind
	fn    func(x, y int)
}

// New creates a manager for doc. A nil logger is replaced by a nop.
func New(doc *dom.Document, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		doc:       doc,
		log:       logger,
		now:       time.Now,
		observers: map[observerID]*observer{},
	}
}

// SetClock replaces the time source used for toast deadlines.
func (m *Manager) SetClock(now func() time.Time) { m.now = now }

// Active returns the currently tracked (non-dismissed) entries.
func (m *Manager) Active() []*Entry { return m.entries }

// Tooltip returns the displayed tooltip, or nil. At most one tooltip
// is displayed at any time.
func (m *Manager) Tooltip() *Entry { return m.tooltip }

// ShowTooltip displays text near the interaction point, dismissing
// any tooltip already on screen first. Outside-click and scroll
// observers are registered and removed again on dismissal.
func (m *Manager) ShowTooltip(text string, x, y int) *Entry {
	if m.tooltip != nil {
		m.Dismiss(m.tooltip)
	}

	e := &Entry{
		ID:      uuid.New().String(),
		Kind:    KindTooltip,
		State:   StateCreated,
		Content: text,
		rect:    dom.Rect{X: x, Y: y + 1, W: len([]rune(text)) + 2, H: 1},
	}
	e.element = m.buildFloating("pagetran-tooltip", text)
	m.doc.Body().AppendChild(e.element)

	e.observers = append(e.observers,
		m.addObserver(eventClick, func(cx, cy int) {
			if !e.rect.Contains(cx, cy) {
				m.Dismiss(e)
			}
		}),
		m.addObserver(eventScroll, func(int, int) { m.Dismiss(e) }),
	)

	e.State = StateDisplayed
	m.entries = append(m.entries, e)
	m.tooltip = e
	m.log.Debug("tooltip shown", zap.String("id", e.ID))
	return e
}

// ShowPopover displays text at a fixed point. Unlike tooltips,
// popovers do not displace each other; like tooltips they dismiss on
// outside click and scroll.
func (m *Manager) ShowPopover(text string, x, y int) *Entry {
	e := &Entry{
		ID:      uuid.New().String(),
		Kind:    KindPopover,
		State:   StateCreated,
		Content: text,
		rect:    dom.Rect{X: x, Y: y + 1, W: len([]rune(text)) + 2, H: 1},
	}
	e.element = m.buildFloating("pagetran-popover", text)
	m.doc.Body().AppendChild(e.element)

	e.observers = append(e.observers,
		m.addObserver(eventClick, func(cx, cy int) {
			if !e.rect.Contains(cx, cy) {
				m.Dismiss(e)
			}
		}),
		m.addObserver(eventScroll, func(int, int) { m.Dismiss(e) }),
	)

	e.State = StateDisplayed
	m.entries = append(m.entries, e)
	return e
}

// ShowInline anchors text to anchor in document flow. Showing again
// at an anchor matching an existing inline entry toggles that entry
// off instead of duplicating it, and returns nil.
//
// The primary strategy wraps the anchored content in a new container
// element. When the range spans multiple elements there is no single
// contiguous insertion point, so it falls back to an
// absolutely-positioned element anchored to the range's rectangle in
// document coordinates, so it tracks scrolling correctly.
func (m *Manager) ShowInline(text string, anchor *dom.Range) *Entry {
	if existing := m.InlineAt(anchor); existing != nil {
		m.Dismiss(existing)
		return nil
	}

	e := &Entry{
		ID:      uuid.New().String(),
		Kind:    KindInline,
		State:   StateCreated,
		Content: text,
		anchor:  anchor,
	}

	if m.wrap(e, anchor, text) {
		e.wrapped = true
	} else {
		// Structural fallback: absolute positioning at the range's
		// document rectangle, taken before any mutation.
		if layout := m.doc.Layout(); layout != nil {
			if rect, ok := layout.RangeRect(anchor); ok {
				e.rect = dom.Rect{X: rect.X, Y: rect.Y + rect.H, W: len([]rune(text)) + 2, H: 1}
			}
		}
		e.element = m.buildFloating("pagetran-inline pagetran-floating", text)
		m.doc.Body().AppendChild(e.element)
		m.log.Debug("inline wrap impossible, using floating fallback", zap.String("id", e.ID))
	}

	e.State = StateDisplayed
	m.entries = append(m.entries, e)
	return e
}

// InlineAt returns the active inline entry whose anchor matches r:
// exact range equality for wrapped entries, rectangle proximity
// within anchorTolerance for fallback entries.
func (m *Manager) InlineAt(r *dom.Range) *Entry {
	if r == nil {
		return nil
	}
	for _, e := range m.entries {
		if e.Kind != KindInline {
			continue
		}
		if e.anchor.Equal(r) {
			return e
		}
		// A click resolved inside the wrapped content (including the
		// translation child) targets the same anchor.
		if e.wrapped && e.wrapper != nil && dom.Contains(e.wrapper, r.StartNode) {
			return e
		}
		if !e.wrapped {
			if layout := m.doc.Layout(); layout != nil {
				if rect, ok := layout.RangeRect(r); ok && near(rect, e.rect) {
					return e
				}
			}
		}
	}
	return nil
}

// Toast displays a transient status message. Toasts stack without
// deduplication, auto-dismiss once their duration elapses (see
// ExpireToasts), and carry no DOM-restoration obligation.
func (m *Manager) Toast(message, severity string, duration time.Duration) *Entry {
	e := &Entry{
		ID:       uuid.New().String(),
		Kind:     KindToast,
		State:    StateCreated,
		Content:  message,
		deadline: m.now().Add(duration),
	}
	e.element = m.buildFloating("pagetran-toast pagetran-toast-"+severity, message)
	m.doc.Body().AppendChild(e.element)
	e.State = StateDisplayed
	m.entries = append(m.entries, e)
	return e
}

// ExpireToasts dismisses every toast whose deadline has passed.
func (m *Manager) ExpireToasts(now time.Time) {
	for _, e := range m.snapshot() {
		if e.Kind == KindToast && !e.deadline.After(now) {
			m.Dismiss(e)
		}
	}
}

// Dismiss transitions e to Dismissed, removing its observers and
// every node the manager created for it. For wrapped entries the
// anchored content moves back to the wrapper's position in the
// parent; dismissing an already-dismissed entry is a no-op.
func (m *Manager) Dismiss(e *Entry) {
	if e == nil || e.State == StateDismissed {
		return
	}

	for _, id := range e.observers {
		m.removeObserver(id)
	}
	e.observers = nil

	if e.wrapped {
		m.unwrap(e)
	} else if e.element != nil {
		detach(e.element)
	}

	// A dismissed entry holds no live DOM references.
	e.element = nil
	e.wrapper = nil
	e.anchor = nil
	e.State = StateDismissed

	if m.tooltip == e {
		m.tooltip = nil
	}
	m.remove(e)
	m.log.Debug("overlay dismissed", zap.String("id", e.ID), zap.Stringer("kind", e.Kind))
}

// DismissAll dismisses every tracked entry. Invoked on mode
// deactivation and the explicit clear command.
func (m *Manager) DismissAll() {
	for _, e := range m.snapshot() {
		m.Dismiss(e)
	}
}

// HandleClick routes a click at document coordinates (x, y). When the
// click lands on an overlay element the entry is toggled off and the
// click is consumed (reported true) so callers do not start a new
// translation from it. Otherwise outside-click observers fire.
func (m *Manager) HandleClick(x, y int) (consumed bool) {
	for _, e := range m.snapshot() {
		if e.element != nil && e.rect.Contains(x, y) {
			m.Dismiss(e)
			return true
		}
	}
	for _, o := range m.observerSnapshot(eventClick) {
		o.fn(x, y)
	}
	return false
}

// HandleScroll fires the scroll observers of every displayed entry.
func (m *Manager) HandleScroll() {
	for _, o := range m.observerSnapshot(eventScroll) {
		o.fn(0, 0)
	}
}

// --- wrap / unwrap protocol ---

// wrap encloses the anchored content in a new wrapper element holding
// the original text plus the overlay child. Wrapping is only possible
// when the range endpoints share a single text node; anything wider
// spans element structure and has no contiguous insertion point.
func (m *Manager) wrap(e *Entry, r *dom.Range, text string) bool {
	if r == nil || !r.SingleNode() || r.StartNode.Type != html.TextNode {
		return false
	}
	node := r.StartNode
	if node.Parent == nil {
		return false
	}

	runes := []rune(node.Data)
	if r.StartOffset < 0 || r.EndOffset > len(runes) || r.StartOffset >= r.EndOffset {
		return false
	}

	before := string(runes[:r.StartOffset])
	mid := string(runes[r.StartOffset:r.EndOffset])
	after := string(runes[r.EndOffset:])

	inner := m.buildElement("pagetran-inline", text)
	wrapper := dom.Element("span", "class", "pagetran-wrap", "data-overlay-id", e.ID)
	wrapper.AppendChild(dom.Text(mid))
	wrapper.AppendChild(inner)

	// The original node keeps the leading slice; the wrapper and a
	// tail node carrying the trailing slice are inserted after it.
	// Total text is unchanged.
	e.wrapper = wrapper
	e.element = inner

	node.Data = before
	parent := node.Parent
	parent.InsertBefore(wrapper, node.NextSibling)
	parent.InsertBefore(dom.Text(after), wrapper.NextSibling)
	return true
}

// unwrap reverses wrap against the current tree state: the wrapper's
// non-overlay children move back to the wrapper's position in the
// parent, then the wrapper goes away with the overlay child still
// inside it. The lead and tail nodes created by wrap stay where they
// are, so content wrapped inside them later (another entry sharing
// the origin text node) is untouched. The split pieces remain
// separate text nodes; content and document order are unchanged.
func (m *Manager) unwrap(e *Entry) {
	w := e.wrapper
	if w == nil || w.Parent == nil {
		return
	}
	parent := w.Parent
	for c := w.FirstChild; c != nil; {
		next := c.NextSibling
		if c != e.element {
			w.RemoveChild(c)
			parent.InsertBefore(c, w)
		}
		c = next
	}
	detach(w)
}

// --- internals ---

// buildElement creates an in-flow overlay element.
func (m *Manager) buildElement(class, text string) *html.Node {
	el := dom.Element("span", "class", class)
	el.AppendChild(dom.Text(text))
	return el
}

// buildFloating creates an out-of-flow overlay element; layout
// engines exclude it from text flow via the data-floating marker.
func (m *Manager) buildFloating(class, text string) *html.Node {
	el := dom.Element("span", "class", class, "data-floating", "1")
	el.AppendChild(dom.Text(text))
	return el
}

func (m *Manager) addObserver(ev eventKind, fn func(x, y int)) observerID {
	m.nextObsID++
	id := m.nextObsID
	m.observers[id] = &observer{event: ev, fn: fn}
	return id
}

func (m *Manager) removeObserver(id observerID) {
	delete(m.observers, id)
}

// ObserverCount reports the number of registered observers; dismissal
// must always return it to zero for the dismissed entry's share.
func (m *Manager) ObserverCount() int { return len(m.observers) }

func (m *Manager) observerSnapshot(ev eventKind) []*observer {
	out := make([]*observer, 0, len(m.observers))
	for _, o := range m.observers {
		if o.event == ev {
			out = append(out, o)
		}
	}
	return out
}

func (m *Manager) snapshot() []*Entry {
	out := make([]*Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

func (m *Manager) remove(e *Entry) {
	for i, cur := range m.entries {
		if cur == e {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			return
		}
	}
}

func detach(n *html.Node) {
	if n != nil && n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

func near(a, b dom.Rect) bool {
	return abs(a.X-b.X) <= anchorTolerance && abs(a.Y+a.H-b.Y) <= anchorTolerance
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
