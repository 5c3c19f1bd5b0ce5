// Package session orchestrates one translation interaction end to
// end: resolve the target span, extract context, dispatch the
// translation request, and present or discard the result. A Session
// owns all mutable interaction state: the active flag, the overlay
// manager, the settings snapshot, and the request generation counter
// used as the stale-result guard.
package session

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/pagetran/pagetran/internal/dom"
	"github.com/pagetran/pagetran/internal/excerpt"
	"github.com/pagetran/pagetran/internal/locator"
	"github.com/pagetran/pagetran/internal/overlay"
	"github.com/pagetran/pagetran/internal/settings"
	"github.com/pagetran/pagetran/internal/translator"
)

// NotificationSink receives user-facing status and error feedback.
type NotificationSink interface {
	Show(message, kind string)
}

// LanguageDetector resolves the "auto" source language. Optional.
type LanguageDetector interface {
	DetectISO(text string) (string, bool)
}

// Session drives the translation flow for one document.
type Session struct {
	doc      *dom.Document
	overlays *overlay.Manager
	service  translator.Service
	settings settings.Provider
	notify   NotificationSink
	detector LanguageDetector
	log      *zap.Logger
	now      func() time.Time

	active       bool
	generation   uint64
	lastDispatch time.Time
}

// New creates a session. notify may be nil (feedback is then routed
// to toasts on the session's own overlay manager); a nil logger is
// replaced by a nop.
func New(doc *dom.Document, svc translator.Service, provider settings.Provider, notify NotificationSink, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Session{
		doc:      doc,
		overlays: overlay.New(doc, logger),
		service:  svc,
		settings: provider,
		notify:   notify,
		log:      logger,
		now:      time.Now,
	}
	if s.notify == nil {
		s.notify = &toastSink{s: s}
	}
	return s
}

// SetDetector wires a language detector for "auto" source mode.
func (s *Session) SetDetector(d LanguageDetector) { s.detector = d }

// SetClock replaces the time source (tests).
func (s *Session) SetClock(now func() time.Time) {
	s.now = now
	s.overlays.SetClock(now)
}

// Overlays exposes the session's overlay manager.
func (s *Session) Overlays() *overlay.Manager { return s.overlays }

// Active reports whether translation mode is on.
func (s *Session) Active() bool { return s.active }

// Activate turns translation mode on.
func (s *Session) Activate() { s.active = true }

// Deactivate turns translation mode off, tears down every overlay,
// and invalidates any in-flight result.
func (s *Session) Deactivate() {
	s.active = false
	s.generation++
	s.overlays.DismissAll()
	s.doc.Relayout()
}

// Toggle flips translation mode.
func (s *Session) Toggle() {
	if s.active {
		s.Deactivate()
	} else {
		s.Activate()
	}
}

// ClearOverlays dismisses every overlay without leaving translation
// mode. In-flight results are invalidated.
func (s *Session) ClearOverlays() {
	s.generation++
	s.overlays.DismissAll()
	s.doc.Relayout()
}

// SettingsChanged applies a live configuration change. Disabling the
// engine deactivates the session immediately.
func (s *Session) SettingsChanged(key string, value any) error {
	setter, ok := s.settings.(settings.Setter)
	if !ok {
		return nil
	}
	if err := setter.Set(key, value); err != nil {
		return err
	}
	if !s.settings.Get().Enabled && s.active {
		s.Deactivate()
	}
	return nil
}

// HandleScroll routes a document scroll: scroll-dismissable overlays
// go down and expired toasts are reaped.
func (s *Session) HandleScroll() {
	s.overlays.HandleScroll()
	s.overlays.ExpireToasts(s.now())
}

// HandleClick routes a click at document coordinates. This is the
// qualifying interaction of the whole flow:
//
//  1. Inactive mode: ignore.
//  2. Clicks on existing overlays are consumed by overlay handling.
//  3. An inline overlay at the resolved anchor toggles off; no
//     request is made.
//  4. A selection takes precedence over point-based word lookup;
//     when neither resolves the click is silently ignored.
//  5. Oversized spans are silently ignored.
//  6. Context is extracted when context mode is on.
//  7. Exactly one request is dispatched, throttled to one per
//     minimum interval.
//  8. Success renders per display mode; failure is routed to the
//     notification sink. Results arriving after deactivation or
//     dismissal are discarded.
func (s *Session) HandleClick(ctx context.Context, x, y int) {
	if !s.active {
		return
	}
	s.overlays.ExpireToasts(s.now())
	if s.overlays.HandleClick(x, y) {
		return
	}

	cfg := s.settings.Get()
	if !cfg.Enabled {
		return
	}

	span := s.resolveSpan(x, y)
	if span == nil {
		return
	}

	if existing := s.overlays.InlineAt(span.Range); existing != nil {
		s.overlays.Dismiss(existing)
		s.doc.Relayout()
		return
	}

	if len([]rune(span.Text)) > cfg.MaxTextLength {
		s.log.Debug("span exceeds maximum length, ignoring",
			zap.Int("len", len([]rune(span.Text))),
			zap.Int("max", cfg.MaxTextLength))
		return
	}

	// Dropped, not queued: rapid repeat interactions inside the
	// spacing window never dispatch.
	if s.now().Sub(s.lastDispatch) < cfg.MinRequestInterval {
		return
	}

	contextText := ""
	if cfg.ContextMode {
		contextText = excerpt.Extract(span, cfg.ContextWindowChars)
	}

	req := translator.Request{
		Text:       span.Text,
		SourceLang: s.resolveSourceLang(cfg, span.Text, contextText),
		TargetLang: cfg.TargetLang,
		Context:    contextText,
	}

	s.lastDispatch = s.now()
	gen := s.generation

	reqCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
	defer cancel()
	res, err := s.service.Translate(reqCtx, req)

	// Stale-result guard: the session may have been deactivated or
	// cleared while the request was in flight.
	if gen != s.generation || !s.active {
		s.log.Debug("discarding stale translation result")
		return
	}

	if err != nil {
		s.fail(err)
		return
	}

	s.present(cfg, res.Translation, span, x, y)
}

// resolveSpan applies the selection-over-point precedence.
func (s *Session) resolveSpan(x, y int) *locator.Span {
	if sel := s.doc.Selection(); sel != nil {
		if span := locator.FromSelection(sel); span != nil {
			return span
		}
	}
	span, err := locator.WordAt(s.doc, x, y)
	if err != nil {
		// No point-to-text primitive: nothing to locate, and an
		// accidental click must not be disruptive.
		s.log.Warn("point lookup unsupported", zap.Error(err))
		return nil
	}
	return span
}

func (s *Session) resolveSourceLang(cfg settings.Snapshot, text, contextText string) string {
	if cfg.SourceLang != "auto" || s.detector == nil {
		return cfg.SourceLang
	}
	sample := contextText
	if sample == "" {
		sample = text
	}
	if detected, ok := s.detector.DetectISO(sample); ok {
		return detected
	}
	return cfg.SourceLang
}

// present renders a successful translation per the display mode.
func (s *Session) present(cfg settings.Snapshot, translation string, span *locator.Span, x, y int) {
	switch cfg.DisplayMode {
	case settings.DisplayInline:
		s.overlays.ShowInline(translation, span.Range)
		// Wrapping splits a text node, so grid geometry is stale.
		s.doc.Relayout()
	default:
		s.overlays.ShowTooltip(translation, x, y)
	}
}

// fail routes a translation failure to the notification sink.
// Specific causes are kept for diagnostics, never shown verbatim.
func (s *Session) fail(err error) {
	s.log.Warn("translation failed", zap.Error(err))
	switch {
	case translator.IsTimeout(err):
		s.notify.Show("Translation request timed out", "error")
	case translator.IsUnreachable(err):
		s.notify.Show("Cannot reach translation server", "error")
	default:
		s.notify.Show("Translation failed", "error")
	}
}

// toastSink is the default notification sink: toasts on the
// session's own overlay manager.
type toastSink struct {
	s *Session
}

func (t *toastSink) Show(message, kind string) {
	t.s.overlays.Toast(message, kind, t.s.settings.Get().ToastDuration)
}
