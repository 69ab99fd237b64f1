// Package engine implements the slide template language: a single-pass,
// synchronous string renderer with interpolation, conditionals, loops and a
// small filter set.
//
// The language is deliberately tiny. Output statements are `{{ expr }}`,
// control tags are `{% if %}`, `{% else %}`, `{% endif %}`, `{% for x in seq %}`
// and `{% endfor %}`. Expressions are dotted paths, literals or helper calls,
// optionally piped through filters (`default`, `trim`, `escape`, `length`,
// `markdown`).
//
// Undefined references resolve to the empty string, never to an error.
// Helper functions injected through the context return strings that are
// spliced into the output verbatim: the output target mixes raw HTML and
// Markdown, so escaping is the caller's choice, never the engine's.
package engine

import (
	"bytes"
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
)

// Context is the data a template renders against. Values may be plain data
// (strings, numbers, bools, maps, slices) or Func helpers, including helpers
// nested inside maps (`icons.render`).
type Context map[string]any

// Func is a callable exposed to templates. Positional arguments arrive in
// args; `key=value` keyword arguments are collected into opts.
type Func func(args []any, opts map[string]any) string

// Render executes templateText against ctx in one synchronous pass.
//
// The only errors are template-syntax errors (unclosed tags, unknown
// filters); data problems such as missing keys render as empty strings.
func Render(templateText string, ctx Context) (string, error) {
	nodes, err := parseTemplate(templateText)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	st := &state{ctx: ctx}
	if err := execNodes(&b, nodes, st); err != nil {
		return "", err
	}
	return b.String(), nil
}

// state carries the context plus the loop-variable scope chain.
type state struct {
	ctx    Context
	scopes []map[string]any
}

func (s *state) push(name string, value any) {
	s.scopes = append(s.scopes, map[string]any{name: value})
}

func (s *state) pop() {
	s.scopes = s.scopes[:len(s.scopes)-1]
}

// lookupRoot resolves the first path segment: innermost loop scope first,
// then the context.
func (s *state) lookupRoot(name string) any {
	for i := len(s.scopes) - 1; i >= 0; i-- {
		if v, ok := s.scopes[i][name]; ok {
			return v
		}
	}
	return s.ctx[name]
}

func execNodes(b *strings.Builder, nodes []node, st *state) error {
	for _, n := range nodes {
		if err := n.exec(b, st); err != nil {
			return err
		}
	}
	return nil
}

// stringify renders a resolved value for interpolation output.
func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}

// truthy decides conditionals: nil, false, empty strings, zero numbers and
// empty collections are false.
func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	case int:
		return val != 0
	case int64:
		return val != 0
	case float64:
		return val != 0
	case []any:
		return len(val) > 0
	case []string:
		return len(val) > 0
	case map[string]any:
		return len(val) > 0
	default:
		return true
	}
}

// sequence coerces a resolved value for iteration. Non-sequences iterate
// zero times.
func sequence(v any) []any {
	switch seq := v.(type) {
	case []any:
		return seq
	case []string:
		out := make([]any, len(seq))
		for i, e := range seq {
			out[i] = e
		}
		return out
	default:
		return nil
	}
}

// applyFilter runs one filter from the pipeline.
func applyFilter(name string, value any, args []any) (any, error) {
	switch name {
	case "default":
		if value == nil || value == "" {
			if len(args) > 0 {
				return args[0], nil
			}
			return "", nil
		}
		return value, nil
	case "trim":
		return strings.TrimSpace(stringify(value)), nil
	case "escape":
		return html.EscapeString(stringify(value)), nil
	case "length":
		switch val := value.(type) {
		case string:
			return len([]rune(val)), nil
		case []any:
			return len(val), nil
		case []string:
			return len(val), nil
		case map[string]any:
			return len(val), nil
		default:
			return 0, nil
		}
	case "markdown":
		var buf bytes.Buffer
		if err := goldmark.Convert([]byte(stringify(value)), &buf); err != nil {
			return nil, fmt.Errorf("markdown filter: %w", err)
		}
		return strings.TrimRight(buf.String(), "\n"), nil
	default:
		return nil, fmt.Errorf("unknown filter %q", name)
	}
}
