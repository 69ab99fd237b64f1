package deck

import (
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/deckbuilder/internal/schema"
)

// presentationSchema is the fixed shape every deck source must satisfy.
// Slide content itself is an open object; the bound template's own schema
// checks it later, during transformation.
var presentationSchema = &schema.Schema{
	Type:     "object",
	Required: []string{"meta"},
	Properties: map[string]*schema.Schema{
		"meta": {
			Type:     "object",
			Required: []string{"title"},
			Properties: map[string]*schema.Schema{
				"title":  {Type: "string", Pattern: `\S`},
				"author": {Type: "string"},
				"date":   {Type: "string"},
				"theme":  {Type: "string"},
				"references": {
					Type: "object",
					Properties: map[string]*schema.Schema{
						"enabled": {Type: "boolean"},
						"style":   {Type: "string"},
					},
				},
			},
		},
		"slides": {
			Type: "array",
			Items: &schema.Schema{
				Type:     "object",
				Required: []string{"template"},
				Properties: map[string]*schema.Schema{
					"template": {Type: "string", Pattern: `\S`},
					"content":  {Type: "object"},
					"class":    {Type: "string"},
					"notes":    {Type: "string"},
					"raw":      {Type: "string"},
				},
			},
		},
	},
}

var checkPresentation = func() schema.CheckFunc {
	chk, err := schema.Compile(presentationSchema)
	if err != nil {
		panic("deck: presentation schema does not compile: " + err.Error())
	}
	return chk
}()

// Parse turns deck source text into a validated Presentation with defaults
// applied.
//
// Malformed YAML (including tab indentation) yields a KindSyntax error;
// well-formed documents that do not match the presentation shape yield
// KindValidation with per-field detail.
func Parse(data []byte) (*Presentation, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, syntaxError("parse deck source", err)
	}

	if res := checkPresentation(raw); !res.Valid {
		return nil, validationError("deck document is invalid", res.Errors)
	}

	var doc rawDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		// Shape already validated; a decode failure here means a field
		// had a YAML type the schema vocabulary cannot express.
		return nil, validationError("deck document is invalid", []string{err.Error()})
	}
	return doc.toPresentation(), nil
}

// ParseWithLines is Parse plus, for each slide entry, its 1-based line number
// in the source text.
//
// Line information does not survive schema defaulting, so it is captured from
// a separate walk of the raw document tree.
func ParseWithLines(data []byte) (*Presentation, []int, error) {
	pres, err := Parse(data)
	if err != nil {
		return nil, nil, err
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		// Parse already succeeded on the same bytes.
		return nil, nil, syntaxError("parse deck source", err)
	}
	return pres, slideLines(&root), nil
}

// slideLines walks the document node to the slides sequence and collects the
// starting line of every entry.
func slideLines(root *yaml.Node) []int {
	doc := root
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		doc = doc.Content[0]
	}
	if doc.Kind != yaml.MappingNode {
		return []int{}
	}

	for i := 0; i+1 < len(doc.Content); i += 2 {
		key, value := doc.Content[i], doc.Content[i+1]
		if key.Value != "slides" || value.Kind != yaml.SequenceNode {
			continue
		}
		lines := make([]int, 0, len(value.Content))
		for _, item := range value.Content {
			lines = append(lines, item.Line)
		}
		return lines
	}
	return []int{}
}

type rawDocument struct {
	Meta struct {
		Title      string `yaml:"title"`
		Author     string `yaml:"author"`
		Date       string `yaml:"date"`
		Theme      string `yaml:"theme"`
		References *struct {
			Enabled *bool  `yaml:"enabled"`
			Style   string `yaml:"style"`
		} `yaml:"references"`
	} `yaml:"meta"`
	Slides []struct {
		Template string         `yaml:"template"`
		Content  map[string]any `yaml:"content"`
		Class    string         `yaml:"class"`
		Notes    string         `yaml:"notes"`
		Raw      string         `yaml:"raw"`
	} `yaml:"slides"`
}

func (d *rawDocument) toPresentation() *Presentation {
	meta := Meta{
		Title:  d.Meta.Title,
		Author: d.Meta.Author,
		Date:   d.Meta.Date,
		Theme:  d.Meta.Theme,
		References: ReferencesConfig{
			Enabled: true,
			Style:   DefaultReferenceStyle,
		},
	}
	if meta.Theme == "" {
		meta.Theme = DefaultTheme
	}
	if refs := d.Meta.References; refs != nil {
		if refs.Enabled != nil {
			meta.References.Enabled = *refs.Enabled
		}
		if refs.Style != "" {
			meta.References.Style = refs.Style
		}
	}

	slides := make([]Slide, 0, len(d.Slides))
	for _, s := range d.Slides {
		content := s.Content
		if content == nil {
			content = map[string]any{}
		}
		slides = append(slides, Slide{
			Template: s.Template,
			Content:  content,
			Class:    s.Class,
			Notes:    s.Notes,
			Raw:      s.Raw,
		})
	}
	return &Presentation{Meta: meta, Slides: slides}
}
