// Package registry holds named slide template definitions and loads them
// from template source trees.
//
// The registry is populated once during startup (built-in tree first, then
// an optional custom tree) and is read-only afterwards, so lookups are safe
// for concurrent use without locking. Registration is last-write-wins by
// name, which is exactly what gives a custom tree override priority.
package registry

import (
	"sort"

	"git.home.luguber.info/inful/deckbuilder/internal/schema"
)

// Definition is one named template: a content schema, the output template
// text and an optional stylesheet fragment.
type Definition struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Category    string         `yaml:"category"`
	Schema      *schema.Schema `yaml:"schema"`
	Output      string         `yaml:"output"`
	Example     string         `yaml:"example"`
	CSS         string         `yaml:"css"`

	check schema.CheckFunc
}

// Validate checks slide content against the template's compiled schema.
func (d *Definition) Validate(content any) schema.Result {
	if d.check == nil {
		return schema.Result{Valid: true, Errors: []string{}}
	}
	return d.check(content)
}

// Registry maps template names to definitions.
type Registry struct {
	defs map[string]*Definition
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{defs: map[string]*Definition{}}
}

// Register adds a definition, replacing any existing one with the same name.
func (r *Registry) Register(def *Definition) {
	r.defs[def.Name] = def
}

// Get returns the definition for name, or nil when unknown.
func (r *Registry) Get(name string) *Definition {
	return r.defs[name]
}

// List returns all definitions sorted by name.
func (r *Registry) List() []*Definition {
	out := make([]*Definition, 0, len(r.defs))
	for _, def := range r.defs {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ListByCategory returns the definitions in the given category, sorted by
// name.
func (r *Registry) ListByCategory(category string) []*Definition {
	var out []*Definition
	for _, def := range r.List() {
		if def.Category == category {
			out = append(out, def)
		}
	}
	return out
}
