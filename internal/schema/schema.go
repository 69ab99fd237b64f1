// Package schema compiles a restricted JSON-Schema subset into executable
// content validators.
//
// Template authors declare the shape of slide content with a small schema
// vocabulary (type, required, properties, items, pattern, enum, minItems,
// maxItems, oneOf). Compile turns such a declaration into a CheckFunc that
// reports every failure with a dotted, path-qualified message.
package schema

// Schema is one node of the restricted subset. Nodes nest through
// Properties, Items and OneOf.
//
// A nil *Schema accepts any value. A node without a type is treated as an
// object, matching how template schemas are written in practice.
type Schema struct {
	Type       string             `yaml:"type" json:"type"`
	Required   []string           `yaml:"required" json:"required"`
	Properties map[string]*Schema `yaml:"properties" json:"properties"`
	Items      *Schema            `yaml:"items" json:"items"`
	Pattern    string             `yaml:"pattern" json:"pattern"`
	Enum       []any              `yaml:"enum" json:"enum"`
	MinItems   *int               `yaml:"minItems" json:"minItems"`
	MaxItems   *int               `yaml:"maxItems" json:"maxItems"`
	OneOf      []*Schema          `yaml:"oneOf" json:"oneOf"`
}

// Result is the outcome of checking one value against a compiled schema.
// Errors is empty (never nil) when Valid is true.
type Result struct {
	Valid  bool
	Errors []string
}

// CheckFunc validates a value and reports all failures found.
type CheckFunc func(value any) Result
