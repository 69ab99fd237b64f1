// Package compile runs the full deck pipeline: parse, transform every slide,
// aggregate template stylesheets and render the final document.
package compile

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/deckbuilder/internal/deck"
	"git.home.luguber.info/inful/deckbuilder/internal/observability"
	"git.home.luguber.info/inful/deckbuilder/internal/registry"
	"git.home.luguber.info/inful/deckbuilder/internal/render"
	"git.home.luguber.info/inful/deckbuilder/internal/transform"
)

// Options control the output document surface.
type Options struct {
	// IncludeTheme forwards the theme header toggle to the renderer.
	IncludeTheme bool
	// Extra header entries appended after the fixed metadata fields.
	Extra []render.HeaderField
}

// DefaultOptions mirrors the renderer defaults.
func DefaultOptions() Options {
	return Options{IncludeTheme: true}
}

// Compiler wires the pipeline stages together.
type Compiler struct {
	Registry *registry.Registry
	Icons    transform.IconResolver
	Refs     transform.CitationFormatter
}

// Compile turns deck source text into the final document.
func (c *Compiler) Compile(ctx context.Context, source []byte, opts Options) (string, error) {
	ctx = observability.WithDeckID(ctx, uuid.NewString()[:8])

	parseCtx := observability.WithStage(ctx, "parse")
	pres, err := deck.Parse(source)
	if err != nil {
		observability.ErrorContext(parseCtx, "Deck parse failed", slog.Any("error", err))
		return "", err
	}
	observability.DebugContext(parseCtx, "Deck parsed",
		slog.String("title", pres.Meta.Title), slog.Int("slides", len(pres.Slides)))

	transformCtx := observability.WithStage(ctx, "transform")
	tr := &transform.Transformer{Registry: c.Registry, Icons: c.Icons, Refs: c.Refs}
	bodies, err := tr.All(transformCtx, pres)
	if err != nil {
		observability.ErrorContext(transformCtx, "Slide transform failed", slog.Any("error", err))
		return "", fmt.Errorf("transform slides: %w", err)
	}

	renderOpts := render.Options{
		IncludeTheme: opts.IncludeTheme,
		Extra:        opts.Extra,
		Stylesheet:   c.aggregateStylesheet(pres),
		Notes:        slideNotes(pres),
	}
	doc := render.Render(bodies, pres.Meta, renderOpts)

	observability.InfoContext(observability.WithStage(ctx, "render"), "Deck compiled",
		slog.Int("slides", len(bodies)), slog.Int("bytes", len(doc)))
	return doc, nil
}

// aggregateStylesheet collects the CSS fragments of the templates the deck
// actually uses, once per template, in first-use order.
func (c *Compiler) aggregateStylesheet(pres *deck.Presentation) string {
	seen := map[string]bool{}
	var fragments []string
	for _, s := range pres.Slides {
		if s.Template == deck.RawTemplate || seen[s.Template] {
			continue
		}
		seen[s.Template] = true
		def := c.Registry.Get(s.Template)
		if def == nil || def.CSS == "" {
			continue
		}
		fragments = append(fragments, strings.TrimRight(def.CSS, "\n"))
	}
	return strings.Join(fragments, "\n\n")
}

func slideNotes(pres *deck.Presentation) []string {
	notes := make([]string, len(pres.Slides))
	for i, s := range pres.Slides {
		notes[i] = s.Notes
	}
	return notes
}
