// Package cite provides the built-in citation formatter, backed by a local
// YAML bibliography.
//
// Unknown ids never fail a call: every citation falls back to its bracketed
// id, so a single stale reference cannot take down a whole deck. Integration
// with an external reference manager is out of scope; anything implementing
// transform.CitationFormatter can replace this.
package cite

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/deckbuilder/internal/transform"
)

// Entry is one bibliography record.
type Entry struct {
	Author string `yaml:"author"`
	Title  string `yaml:"title"`
	Year   int    `yaml:"year"`
	URL    string `yaml:"url"`
}

// Formatter formats citations against a loaded bibliography.
type Formatter struct {
	style   string
	entries map[string]Entry
}

var _ transform.CitationFormatter = (*Formatter)(nil)

// New returns a formatter with an empty bibliography.
func New(style string) *Formatter {
	return &Formatter{style: style, entries: map[string]Entry{}}
}

// LoadBibliography merges a YAML bibliography (id to entry map) into the
// formatter.
func (f *Formatter) LoadBibliography(data []byte) error {
	var entries map[string]Entry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parse bibliography: %w", err)
	}
	for id, e := range entries {
		f.entries[id] = e
	}
	return nil
}

// FormatInline renders one citation. Unknown ids yield the bracketed-id
// fallback, never an error.
func (f *Formatter) FormatInline(_ context.Context, id string) (string, error) {
	id = strings.TrimSpace(id)
	entry, ok := f.entries[id]
	if !ok {
		return fallback(id), nil
	}
	return "(" + f.fragment(entry) + ")", nil
}

// citationGroup matches bracket groups like [@smith2019] or [@a; @b].
var citationGroup = regexp.MustCompile(`\[@([^\[\]]+)\]`)

// ExpandCitations replaces every citation-bracket group in text. Each id is
// formatted independently with the same unknown-id fallback, so one unknown
// id never fails the call.
func (f *Formatter) ExpandCitations(_ context.Context, text string) (string, error) {
	out := citationGroup.ReplaceAllStringFunc(text, func(group string) string {
		inner := citationGroup.FindStringSubmatch(group)[1]
		parts := strings.Split(inner, ";")
		formatted := make([]string, 0, len(parts))
		for _, part := range parts {
			id := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(part), "@"))
			if entry, ok := f.entries[id]; ok {
				formatted = append(formatted, "("+f.fragment(entry)+")")
			} else {
				formatted = append(formatted, fallback(id))
			}
		}
		return strings.Join(formatted, "; ")
	})
	return out, nil
}

// fragment renders the style-dependent inline core of a citation.
func (f *Formatter) fragment(e Entry) string {
	author := e.Author
	if author == "" {
		author = e.Title
	}
	if e.Year == 0 {
		return author
	}
	// Styles beyond author-year would hook in here; apa is the default and
	// the only built-in one.
	return fmt.Sprintf("%s, %d", author, e.Year)
}

func fallback(id string) string {
	return "[" + id + "]"
}
