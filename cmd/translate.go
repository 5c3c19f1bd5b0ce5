/*
Copyright © 2026 The pagetran authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/PuerkitoBio/goquery"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/pagetran/pagetran/internal/detector"
	"github.com/pagetran/pagetran/internal/dom"
	"github.com/pagetran/pagetran/internal/session"
	"github.com/pagetran/pagetran/internal/settings"
	"github.com/pagetran/pagetran/internal/store"
	"github.com/pagetran/pagetran/internal/translator"
)

var (
	inputFile  string
	outputFile string

	selectText  string
	cssSelector string
	textOffset  int
	clickX      int
	clickY      int
	gridWidth   int

	sourceLang  string
	targetLang  string
	displayMode string
	noContext   bool
	noCache     bool
	useGoogle   bool
	credentials string
	endpoint    string
	model       string
)

var translateCmd = &cobra.Command{
	Use:   "translate",
	Short: "Translate a span of a rendered HTML document",
	Long: `Translate a word or selection inside an HTML document and anchor the
result as an overlay.

The target is chosen one of three ways:
  --select "some text"        select the first occurrence of the text
  --selector "p.intro"        click inside the first matching element,
                              --offset runes into its text
  --x / --y                   click at raw grid coordinates

The document is laid out on a monospace character grid of --width
columns; coordinates are grid columns and rows.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(inputFile)
		if err != nil {
			return fmt.Errorf("failed to read input file: %w", err)
		}

		doc, err := dom.ParseString(string(raw))
		if err != nil {
			return fmt.Errorf("failed to parse document: %w", err)
		}
		doc.SetLayout(dom.NewGridLayout(doc.Body(), gridWidth))

		provider, err := loadSettings()
		if err != nil {
			return err
		}
		cfg := provider.Get()

		logger := newLogger()
		svc, cleanup, err := buildService(cfg, logger)
		if err != nil {
			return err
		}
		defer cleanup()

		sess := session.New(doc, svc, provider, &stderrSink{}, logger)
		if cfg.SourceLang == "auto" && !useGoogle {
			sess.SetDetector(detector.New())
		}
		sess.Activate()

		x, y := clickX, clickY
		switch {
		case selectText != "":
			r := doc.FindText(selectText)
			if r == nil {
				return fmt.Errorf("text %q not found in document", selectText)
			}
			doc.Select(r)
		case cssSelector != "":
			x, y, err = pointForSelector(doc, cssSelector, textOffset)
			if err != nil {
				return err
			}
		}

		sess.HandleClick(context.Background(), x, y)

		entries := sess.Overlays().Active()
		if len(entries) == 0 {
			return fmt.Errorf("no translation produced")
		}
		for _, e := range entries {
			fmt.Println(e.Content)
		}

		if outputFile != "" {
			f, err := os.Create(outputFile)
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			defer f.Close()
			if err := html.Render(f, doc.Root); err != nil {
				return fmt.Errorf("failed to render annotated document: %w", err)
			}
		}
		return nil
	},
}

// loadSettings reads the config file and layers the CLI flags on top.
func loadSettings() (settings.Provider, error) {
	file, err := settings.Load(configPath)
	if err != nil {
		return nil, err
	}
	p := &settings.Static{S: file.Get()}
	if sourceLang != "" {
		p.S.SourceLang = sourceLang
	}
	if targetLang != "" {
		p.S.TargetLang = targetLang
	}
	if displayMode != "" {
		p.S.DisplayMode = displayMode
	}
	if noContext {
		p.S.ContextMode = false
	}
	if noCache {
		p.S.UseCache = false
	}
	if endpoint != "" {
		p.S.Endpoint = endpoint
	}
	if model != "" {
		p.S.Model = model
	}
	if err := p.S.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// buildService assembles the translation backend per configuration:
// Google Cloud or an OpenAI-compatible endpoint, optionally behind
// the persistent cache.
func buildService(cfg settings.Snapshot, logger *zap.Logger) (translator.Service, func(), error) {
	var svc translator.Service
	if useGoogle {
		svc = translator.NewGoogleService(credentials)
	} else {
		svc = translator.NewOpenAIService(cfg.Endpoint, cfg.Model, logger)
	}

	cleanup := func() {}
	if cfg.UseCache {
		db, err := store.New(cfg.CachePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open cache: %w", err)
		}
		cleanup = func() { db.Close() }
		svc = translator.NewCached(svc, db, logger)
	}
	return svc, cleanup, nil
}

// pointForSelector resolves a CSS selector to grid coordinates
// `offset` runes into the first matching element's text.
func pointForSelector(doc *dom.Document, selector string, offset int) (int, int, error) {
	gq := goquery.NewDocumentFromNode(doc.Root)
	sel := gq.Find(selector)
	if sel.Length() == 0 {
		return 0, 0, fmt.Errorf("selector %q matched nothing", selector)
	}

	var textNode *html.Node
	dom.Walk(sel.Get(0), func(n *html.Node) bool {
		if n.Type == html.TextNode && len(n.Data) > 0 {
			textNode = n
			return false
		}
		return true
	})
	if textNode == nil {
		return 0, 0, fmt.Errorf("selector %q matched an element without text", selector)
	}

	layout, ok := doc.Layout().(*dom.GridLayout)
	if !ok {
		return 0, 0, fmt.Errorf("document has no grid layout")
	}
	x, y, ok := layout.PositionOf(textNode, offset)
	if !ok {
		return 0, 0, fmt.Errorf("offset %d is not rendered text", offset)
	}
	return x, y, nil
}

// stderrSink prints user-facing notifications to stderr.
type stderrSink struct{}

func (*stderrSink) Show(message, kind string) {
	fmt.Fprintf(os.Stderr, "[%s] %s\n", kind, message)
}

func init() {
	rootCmd.AddCommand(translateCmd)

	translateCmd.Flags().StringVarP(&inputFile, "input", "i", "", "Input HTML file (required)")
	translateCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Write the annotated document here")

	translateCmd.Flags().StringVar(&selectText, "select", "", "Select the first occurrence of this text")
	translateCmd.Flags().StringVar(&cssSelector, "selector", "", "Click inside the first element matching this CSS selector")
	translateCmd.Flags().IntVar(&textOffset, "offset", 0, "Rune offset into the selected element's text")
	translateCmd.Flags().IntVar(&clickX, "x", 0, "Click column")
	translateCmd.Flags().IntVar(&clickY, "y", 0, "Click row")
	translateCmd.Flags().IntVar(&gridWidth, "width", 80, "Grid layout width in columns")

	translateCmd.Flags().StringVarP(&sourceLang, "source", "s", "", "Source language (default from config; \"auto\" detects)")
	translateCmd.Flags().StringVarP(&targetLang, "target", "t", "", "Target language (default from config)")
	translateCmd.Flags().StringVar(&displayMode, "display", "", "Display mode: tooltip or inline")
	translateCmd.Flags().BoolVar(&noContext, "no-context", false, "Disable context extraction")
	translateCmd.Flags().BoolVar(&noCache, "no-cache", false, "Disable the translation cache")
	translateCmd.Flags().BoolVar(&useGoogle, "google", false, "Use Google Cloud Translation instead of the LLM backend")
	translateCmd.Flags().StringVarP(&credentials, "credentials", "c", "", "Path to Google Cloud credentials")
	translateCmd.Flags().StringVar(&endpoint, "endpoint", "", "OpenAI-compatible chat-completion endpoint")
	translateCmd.Flags().StringVar(&model, "model", "", "Model name")

	translateCmd.MarkFlagRequired("input")
}
