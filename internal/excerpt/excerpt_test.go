package excerpt

import (
	"strings"
	"testing"

	"github.com/pagetran/pagetran/internal/dom"
	"github.com/pagetran/pagetran/internal/locator"
)

func spanFor(t *testing.T, src, text string) *locator.Span {
	t.Helper()
	doc, err := dom.ParseString(src)
	if err != nil {
		t.Fatalf("ParseString failed: %v", err)
	}
	r := doc.FindText(text)
	if r == nil {
		t.Fatalf("text %q not found in document", text)
	}
	span := locator.FromSelection(r)
	if span == nil {
		t.Fatalf("no span for %q", text)
	}
	return span
}

func TestExtractShortContainer(t *testing.T) {
	// A container shorter than the window is returned whole.
	span := spanFor(t, "<p>Das ist ein Haus in Berlin.</p>", "Haus")
	got := Extract(span, 200)
	want := "Das ist ein Haus in Berlin."
	if got != want {
		t.Errorf("Extract = %q, want %q", got, want)
	}
}

func TestExtractSentenceAlignment(t *testing.T) {
	src := "<p>Alpha beta. Gamma delta TARGET epsilon zeta. Eta theta.</p>"
	span := spanFor(t, src, "TARGET")

	got := Extract(span, 30)
	want := "Gamma delta TARGET epsilon zeta."
	if got != want {
		t.Errorf("Extract = %q, want %q", got, want)
	}
}

func TestExtractAlwaysContainsSpanText(t *testing.T) {
	tests := []struct {
		name   string
		html   string
		text   string
		window int
	}{
		{
			name:   "target at container start",
			html:   "<p>Hi. TARGET follows with many more words afterwards to pad the text well past the window.</p>",
			text:   "TARGET",
			window: 30,
		},
		{
			name:   "target at container end",
			html:   "<p>Many words come first and keep on coming for quite a while before the TARGET.</p>",
			text:   "TARGET",
			window: 30,
		},
		{
			name:   "tiny window",
			html:   "<p>Alpha beta gamma TARGET delta epsilon zeta eta theta iota kappa.</p>",
			text:   "TARGET",
			window: 8,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			span := spanFor(t, tt.html, tt.text)
			got := Extract(span, tt.window)
			if !strings.Contains(got, tt.text) {
				t.Errorf("Extract = %q, does not contain %q", got, tt.text)
			}
			if max := tt.window + len(tt.text); len([]rune(got)) > max {
				t.Errorf("Extract length %d exceeds window plus target (%d)", len([]rune(got)), max)
			}
		})
	}
}

func TestExtractWhitespaceNormalized(t *testing.T) {
	src := "<p>Das ist\n\t ein <b>Haus</b> in Berlin.</p>"
	span := spanFor(t, src, "Haus")
	got := Extract(span, 200)
	want := "Das ist ein Haus in Berlin."
	if got != want {
		t.Errorf("Extract = %q, want %q", got, want)
	}
}

func TestExtractTextNotFoundFallsBack(t *testing.T) {
	// Selection text that whitespace collapsing hides falls back to
	// the head of the container.
	base := spanFor(t, "<p>"+strings.Repeat("word ", 30)+"end.</p>", "end")
	span := &locator.Span{Text: "not in container", Range: base.Range, Source: base.Source}

	got := Extract(span, 20)
	if got == "" {
		t.Fatal("Extract fallback returned empty string")
	}
	if !strings.HasPrefix(got, "word word") {
		t.Errorf("Extract fallback = %q, want head of container", got)
	}
	if len([]rune(got)) > 20 {
		t.Errorf("Extract fallback length %d exceeds window 20", len([]rune(got)))
	}
}

func TestExtractDegenerateInputs(t *testing.T) {
	span := spanFor(t, "<p>Hello world</p>", "world")
	if got := Extract(nil, 100); got != "" {
		t.Errorf("Extract(nil) = %q, want empty", got)
	}
	if got := Extract(span, 0); got != "" {
		t.Errorf("Extract with zero window = %q, want empty", got)
	}
}
