// Package deck defines the presentation data model and parses deck source
// documents into it.
//
// A deck source is a YAML document with a meta block and an ordered list of
// slides, each bound to a named template. Parsing validates the document
// shape and applies field defaults; the result is owned by the caller and
// never mutated by this package afterwards.
package deck

// Default values applied during parsing.
const (
	DefaultTheme          = "default"
	DefaultReferenceStyle = "apa"
)

// RawTemplate is the reserved template name that bypasses schema validation
// and template expansion: the slide's Raw field supplies the body verbatim.
const RawTemplate = "raw"

// Presentation is a fully parsed deck: metadata plus slides in source order.
type Presentation struct {
	Meta   Meta
	Slides []Slide
}

// Meta carries deck-level metadata for the output header.
type Meta struct {
	Title      string
	Author     string
	Date       string
	Theme      string
	References ReferencesConfig
}

// ReferencesConfig controls citation formatting for the deck.
type ReferencesConfig struct {
	Enabled bool
	Style   string
}

// Slide is one content unit bound to exactly one template.
//
// Content is an open string-keyed map: only the fields declared by the
// bound template's schema are type-checked, everything else passes through
// untouched.
type Slide struct {
	Template string
	Content  map[string]any
	Class    string
	Notes    string
	Raw      string
}
