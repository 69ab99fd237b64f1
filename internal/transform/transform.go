// Package transform expands slides through their templates into rendered
// markup bodies.
//
// The template engine is synchronous while icon resolution and citation
// formatting are inherently asynchronous. The two are reconciled with a
// two-phase placeholder protocol: during the rendering pass the helpers
// exposed to templates only record requests and return opaque numbered
// placeholder tokens; afterwards every recorded request is resolved through
// the collaborators and the tokens are substituted textually. The engine
// therefore never blocks, and no async machinery leaks into the template
// language.
package transform

import (
	"context"
	"fmt"
	"strings"

	"git.home.luguber.info/inful/deckbuilder/internal/deck"
	"git.home.luguber.info/inful/deckbuilder/internal/engine"
	"git.home.luguber.info/inful/deckbuilder/internal/registry"
)

// IconOptions are the rendering options a template may pass to the icon
// helper.
type IconOptions struct {
	Size  int
	Color string
	Class string
}

// IconResolver resolves an icon name to markup. Implementations may block
// and may fail; failures are fatal to the enclosing document.
type IconResolver interface {
	Render(ctx context.Context, name string, opts IconOptions) (string, error)
}

// CitationFormatter formats citations. FormatInline and ExpandCitations must
// not fail just because an id is unknown; the contract is a bracketed-id
// fallback per citation.
type CitationFormatter interface {
	FormatInline(ctx context.Context, id string) (string, error)
	ExpandCitations(ctx context.Context, text string) (string, error)
}

// Transformer drives per-slide template expansion.
//
// It holds no per-slide state: all transient request bookkeeping lives in a
// fresh pendingOps per slide, so slides are independently transformable.
type Transformer struct {
	Registry *registry.Registry
	Icons    IconResolver
	Refs     CitationFormatter
}

// All transforms every slide in presentation order and returns the rendered
// bodies in the same order. The first failing slide aborts the document.
func (t *Transformer) All(ctx context.Context, pres *deck.Presentation) ([]string, error) {
	bodies := make([]string, 0, len(pres.Slides))
	for i := range pres.Slides {
		body, err := t.Slide(ctx, pres, i)
		if err != nil {
			return nil, err
		}
		bodies = append(bodies, body)
	}
	return bodies, nil
}

// Slide transforms the slide at index and returns its rendered body.
func (t *Transformer) Slide(ctx context.Context, pres *deck.Presentation, index int) (string, error) {
	slide := pres.Slides[index]

	// Raw slides bypass everything: no schema check, no engine, no class
	// directive, no trimming.
	if slide.Template == deck.RawTemplate {
		return slide.Raw, nil
	}

	def := t.Registry.Get(slide.Template)
	if def == nil {
		return "", &Error{Kind: KindTemplateNotFound, Slide: index, Template: slide.Template}
	}

	if res := def.Validate(slide.Content); !res.Valid {
		return "", &Error{Kind: KindContentValidation, Slide: index, Template: slide.Template, Fields: res.Errors}
	}

	pending := newPendingOps()
	rendered, err := engine.Render(def.Output, renderContext(slide, pres, index, pending))
	if err != nil {
		return "", fmt.Errorf("slide %d: render template %q: %w", index, slide.Template, err)
	}

	resolved, err := t.resolve(ctx, pending)
	if err != nil {
		return "", fmt.Errorf("slide %d: %w", index, err)
	}
	for token, value := range resolved {
		rendered = strings.ReplaceAll(rendered, token, value)
	}

	body := strings.TrimSpace(rendered)
	if slide.Class != "" {
		body = "<!-- _class: " + slide.Class + " -->\n\n" + body
	}
	return body, nil
}

// renderContext builds the engine context for one slide: the content map, a
// restricted meta view, positional info and the two placeholder-generating
// helper objects.
func renderContext(slide deck.Slide, pres *deck.Presentation, index int, pending *pendingOps) engine.Context {
	return engine.Context{
		"content": slide.Content,
		"meta": map[string]any{
			"title":  pres.Meta.Title,
			"author": pres.Meta.Author,
			"theme":  pres.Meta.Theme,
		},
		"index": index,
		"total": len(pres.Slides),
		"icons": map[string]any{
			"render": engine.Func(func(args []any, opts map[string]any) string {
				return pending.addIcon(stringArg(args, 0), iconOptions(opts))
			}),
		},
		"refs": map[string]any{
			"cite": engine.Func(func(args []any, _ map[string]any) string {
				return pending.addCite(stringArg(args, 0))
			}),
			"expand": engine.Func(func(args []any, _ map[string]any) string {
				return pending.addExpand(stringArg(args, 0))
			}),
		},
	}
}

func stringArg(args []any, i int) string {
	if i >= len(args) || args[i] == nil {
		return ""
	}
	if s, ok := args[i].(string); ok {
		return s
	}
	return fmt.Sprint(args[i])
}

func iconOptions(opts map[string]any) IconOptions {
	var out IconOptions
	switch n := opts["size"].(type) {
	case int:
		out.Size = n
	case float64:
		out.Size = int(n)
	}
	if s, ok := opts["color"].(string); ok {
		out.Color = s
	}
	if s, ok := opts["class"].(string); ok {
		out.Class = s
	}
	return out
}
