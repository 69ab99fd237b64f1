package transform

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/deckbuilder/internal/deck"
	"git.home.luguber.info/inful/deckbuilder/internal/registry"
)

type iconCall struct {
	name string
	opts IconOptions
}

// fakeIcons numbers every call so tests can tell independent resolutions
// apart.
type fakeIcons struct {
	mu    sync.Mutex
	calls []iconCall
	err   error
}

func (f *fakeIcons) Render(_ context.Context, name string, opts IconOptions) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.calls = append(f.calls, iconCall{name: name, opts: opts})
	return fmt.Sprintf("<icon name=%q call=%d/>", name, len(f.calls)), nil
}

// fakeRefs knows a single id and falls back to bracketed ids otherwise,
// matching the citation formatter contract.
type fakeRefs struct {
	err error
}

func (f *fakeRefs) FormatInline(_ context.Context, id string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if id == "smith2019" {
		return "(Smith, 2019)", nil
	}
	return "[" + id + "]", nil
}

func (f *fakeRefs) ExpandCitations(_ context.Context, text string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "expanded(" + text + ")", nil
}

func testRegistry(t *testing.T, decls ...string) *registry.Registry {
	t.Helper()
	r := registry.New()
	for _, d := range decls {
		_, err := r.LoadFromText([]byte(d))
		require.NoError(t, err)
	}
	return r
}

func pres(meta deck.Meta, slides ...deck.Slide) *deck.Presentation {
	return &deck.Presentation{Meta: meta, Slides: slides}
}

func TestSlide_RawTemplate_ReturnsRawCompletelyUnmodified(t *testing.T) {
	tr := &Transformer{Registry: registry.New()}
	p := pres(deck.Meta{Title: "T"}, deck.Slide{
		Template: "raw",
		Raw:      "  spaced body  \n",
		Class:    "lead",
		Content:  map[string]any{"ignored": true},
	})

	body, err := tr.Slide(context.Background(), p, 0)
	require.NoError(t, err)
	require.Equal(t, "  spaced body  \n", body)
	require.NotContains(t, body, "_class")
}

func TestSlide_RawTemplate_MissingRawYieldsEmpty(t *testing.T) {
	tr := &Transformer{Registry: registry.New()}
	p := pres(deck.Meta{Title: "T"}, deck.Slide{Template: "raw"})

	body, err := tr.Slide(context.Background(), p, 0)
	require.NoError(t, err)
	require.Equal(t, "", body)
}

func TestSlide_UnknownTemplate_TemplateNotFoundWithName(t *testing.T) {
	tr := &Transformer{Registry: registry.New()}
	p := pres(deck.Meta{Title: "T"}, deck.Slide{Template: "nosuch", Content: map[string]any{}})

	_, err := tr.Slide(context.Background(), p, 0)
	require.Error(t, err)

	var terr *Error
	require.ErrorAs(t, err, &terr)
	require.Equal(t, KindTemplateNotFound, terr.Kind)
	require.Contains(t, err.Error(), "nosuch")
}

func TestSlide_ContentValidationFailure_CarriesFieldErrors(t *testing.T) {
	reg := testRegistry(t, `name: title
schema:
  type: object
  required: [title]
  properties:
    title: {type: string}
output: "# {{ content.title }}"
`)
	tr := &Transformer{Registry: reg}
	p := pres(deck.Meta{Title: "T"}, deck.Slide{Template: "title", Content: map[string]any{}})

	_, err := tr.Slide(context.Background(), p, 0)
	var terr *Error
	require.ErrorAs(t, err, &terr)
	require.Equal(t, KindContentValidation, terr.Kind)
	require.NotEmpty(t, terr.Fields)
	require.Contains(t, terr.Fields[0], "title")
}

func TestSlide_RendersTemplateWithContentAndMeta(t *testing.T) {
	reg := testRegistry(t, `name: head
output: "# {{ content.title }} by {{ meta.author }} ({{ index }}/{{ total }})"
`)
	tr := &Transformer{Registry: reg}
	p := pres(deck.Meta{Title: "Deck", Author: "Jane"},
		deck.Slide{Template: "head", Content: map[string]any{"title": "Hello"}},
		deck.Slide{Template: "raw"},
	)

	body, err := tr.Slide(context.Background(), p, 0)
	require.NoError(t, err)
	require.Equal(t, "# Hello by Jane (0/2)", body)
}

func TestSlide_MetaViewIsRestricted(t *testing.T) {
	// date is deliberately not part of the template-visible meta view.
	reg := testRegistry(t, `name: m
output: "[{{ meta.title }}|{{ meta.theme }}|{{ meta.date }}]"
`)
	tr := &Transformer{Registry: reg}
	p := pres(deck.Meta{Title: "T", Date: "2026-01-01", Theme: "dark"},
		deck.Slide{Template: "m", Content: map[string]any{}})

	body, err := tr.Slide(context.Background(), p, 0)
	require.NoError(t, err)
	require.Equal(t, "[T|dark|]", body)
}

func TestSlide_IdenticalIconRequests_ResolveIndependently(t *testing.T) {
	reg := testRegistry(t, `name: icons
output: '{{ icons.render("star") }} and {{ icons.render("star") }}'
`)
	icons := &fakeIcons{}
	tr := &Transformer{Registry: reg, Icons: icons}
	p := pres(deck.Meta{Title: "T"}, deck.Slide{Template: "icons", Content: map[string]any{}})

	body, err := tr.Slide(context.Background(), p, 0)
	require.NoError(t, err)
	require.Len(t, icons.calls, 2)
	require.Contains(t, body, `call=1`)
	require.Contains(t, body, `call=2`)
	require.NotContains(t, body, "@@pending:")
}

func TestSlide_IconOptionsArePassedThrough(t *testing.T) {
	reg := testRegistry(t, `name: icons
output: '{{ icons.render("rocket", size=32, color="red", class="big") }}'
`)
	icons := &fakeIcons{}
	tr := &Transformer{Registry: reg, Icons: icons}
	p := pres(deck.Meta{Title: "T"}, deck.Slide{Template: "icons", Content: map[string]any{}})

	_, err := tr.Slide(context.Background(), p, 0)
	require.NoError(t, err)
	require.Equal(t, []iconCall{{
		name: "rocket",
		opts: IconOptions{Size: 32, Color: "red", Class: "big"},
	}}, icons.calls)
}

func TestSlide_UnknownCitation_FallsBackWithoutAborting(t *testing.T) {
	reg := testRegistry(t, `name: q
output: 'cite {{ refs.cite("who2021") }}'
`)
	tr := &Transformer{Registry: reg, Refs: &fakeRefs{}}
	p := pres(deck.Meta{Title: "T"}, deck.Slide{Template: "q", Content: map[string]any{}})

	body, err := tr.Slide(context.Background(), p, 0)
	require.NoError(t, err)
	require.Equal(t, "cite [who2021]", body)
}

func TestSlide_ExpandCitations_UsesExpandNamespace(t *testing.T) {
	reg := testRegistry(t, `name: p
output: '{{ refs.expand(content.text) }} / {{ refs.cite("smith2019") }}'
`)
	tr := &Transformer{Registry: reg, Refs: &fakeRefs{}}
	p := pres(deck.Meta{Title: "T"},
		deck.Slide{Template: "p", Content: map[string]any{"text": "see [@a]"}})

	body, err := tr.Slide(context.Background(), p, 0)
	require.NoError(t, err)
	require.Equal(t, "expanded(see [@a]) / (Smith, 2019)", body)
}

func TestSlide_IconResolverFailure_IsFatal(t *testing.T) {
	reg := testRegistry(t, `name: icons
output: '{{ icons.render("x") }}'
`)
	tr := &Transformer{Registry: reg, Icons: &fakeIcons{err: errors.New("fetch failed")}}
	p := pres(deck.Meta{Title: "T"}, deck.Slide{Template: "icons", Content: map[string]any{}})

	_, err := tr.Slide(context.Background(), p, 0)
	require.Error(t, err)
	require.Contains(t, err.Error(), "fetch failed")
}

func TestSlide_IconRequestWithoutResolver_Fails(t *testing.T) {
	reg := testRegistry(t, `name: icons
output: '{{ icons.render("x") }}'
`)
	tr := &Transformer{Registry: reg}
	p := pres(deck.Meta{Title: "T"}, deck.Slide{Template: "icons", Content: map[string]any{}})

	_, err := tr.Slide(context.Background(), p, 0)
	require.Error(t, err)
	require.Contains(t, err.Error(), "no icon resolver")
}

func TestSlide_ClassDirective_PrependedBeforeTrimmedBody(t *testing.T) {
	reg := testRegistry(t, `name: t
output: "  body  "
`)
	tr := &Transformer{Registry: reg}
	p := pres(deck.Meta{Title: "T"}, deck.Slide{Template: "t", Class: "lead", Content: map[string]any{}})

	body, err := tr.Slide(context.Background(), p, 0)
	require.NoError(t, err)
	require.Equal(t, "<!-- _class: lead -->\n\nbody", body)
}

func TestAll_PreservesPresentationOrder(t *testing.T) {
	reg := testRegistry(t, `name: n
output: "slide {{ index }}"
`)
	tr := &Transformer{Registry: reg}
	p := pres(deck.Meta{Title: "T"},
		deck.Slide{Template: "n", Content: map[string]any{}},
		deck.Slide{Template: "raw", Raw: "raw body"},
		deck.Slide{Template: "n", Content: map[string]any{}},
	)

	bodies, err := tr.All(context.Background(), p)
	require.NoError(t, err)
	require.Equal(t, []string{"slide 0", "raw body", "slide 2"}, bodies)
}

func TestAll_FirstFailureAbortsDocument(t *testing.T) {
	tr := &Transformer{Registry: registry.New()}
	p := pres(deck.Meta{Title: "T"},
		deck.Slide{Template: "raw", Raw: "ok"},
		deck.Slide{Template: "missing", Content: map[string]any{}},
	)

	_, err := tr.All(context.Background(), p)
	var terr *Error
	require.ErrorAs(t, err, &terr)
	require.Equal(t, 1, terr.Slide)
}
