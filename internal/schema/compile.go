package schema

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
)

// Compile builds a validator from a schema declaration.
//
// Regular expressions are compiled eagerly so a broken pattern surfaces at
// template-load time, not when the first slide is validated.
func Compile(s *Schema) (CheckFunc, error) {
	chk, err := compileNode(s)
	if err != nil {
		return nil, err
	}
	return func(value any) Result {
		errs := chk(value, "")
		if len(errs) > 0 {
			return Result{Valid: false, Errors: errs}
		}
		return Result{Valid: true, Errors: []string{}}
	}, nil
}

// nodeCheck validates a value at a dotted path and returns all failures.
type nodeCheck func(value any, path string) []string

func compileNode(s *Schema) (nodeCheck, error) {
	if s == nil {
		return acceptAny, nil
	}

	if len(s.OneOf) > 0 {
		return compileOneOf(s.OneOf)
	}

	typ := s.Type
	if typ == "" {
		typ = "object"
	}

	switch typ {
	case "string":
		return compileString(s)
	case "number":
		return compileNumber, nil
	case "integer":
		return compileInteger, nil
	case "boolean":
		return compileBoolean, nil
	case "array":
		return compileArray(s)
	case "object":
		return compileObject(s)
	default:
		return nil, fmt.Errorf("unsupported schema type %q", typ)
	}
}

func acceptAny(any, string) []string { return nil }

// compileOneOf treats the members as a union. A single-member oneOf collapses
// to that member; otherwise a value is accepted when any member accepts it.
func compileOneOf(members []*Schema) (nodeCheck, error) {
	checks := make([]nodeCheck, 0, len(members))
	for _, m := range members {
		chk, err := compileNode(m)
		if err != nil {
			return nil, err
		}
		checks = append(checks, chk)
	}
	if len(checks) == 1 {
		return checks[0], nil
	}
	return func(value any, path string) []string {
		for _, chk := range checks {
			if len(chk(value, path)) == 0 {
				return nil
			}
		}
		return []string{errorAt(path, "value does not match any allowed variant")}
	}, nil
}

// compileString validates membership when an enum is declared; a pattern is
// only consulted when no enum is present.
func compileString(s *Schema) (nodeCheck, error) {
	if len(s.Enum) > 0 {
		enum := s.Enum
		return func(value any, path string) []string {
			for _, allowed := range enum {
				if value == allowed {
					return nil
				}
			}
			return []string{errorAt(path, fmt.Sprintf("value %v is not one of the allowed values", value))}
		}, nil
	}

	var re *regexp.Regexp
	if s.Pattern != "" {
		var err error
		re, err = regexp.Compile(s.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", s.Pattern, err)
		}
	}
	return func(value any, path string) []string {
		str, ok := value.(string)
		if !ok {
			return []string{errorAt(path, "expected string, got "+typeName(value))}
		}
		if re != nil && !re.MatchString(str) {
			return []string{errorAt(path, fmt.Sprintf("value %q does not match pattern %q", str, re.String()))}
		}
		return nil
	}, nil
}

func compileNumber(value any, path string) []string {
	if _, ok := asFloat(value); !ok {
		return []string{errorAt(path, "expected number, got "+typeName(value))}
	}
	return nil
}

func compileInteger(value any, path string) []string {
	f, ok := asFloat(value)
	if !ok {
		return []string{errorAt(path, "expected integer, got "+typeName(value))}
	}
	if f != math.Trunc(f) {
		return []string{errorAt(path, fmt.Sprintf("expected integer, got fractional number %v", value))}
	}
	return nil
}

func compileBoolean(value any, path string) []string {
	if _, ok := value.(bool); !ok {
		return []string{errorAt(path, "expected boolean, got "+typeName(value))}
	}
	return nil
}

// compileArray checks element count bounds and validates every element
// against the items schema. Without an items schema any element is accepted.
func compileArray(s *Schema) (nodeCheck, error) {
	itemChk, err := compileNode(s.Items)
	if err != nil {
		return nil, err
	}
	if s.Items == nil {
		itemChk = acceptAny
	}
	minItems, maxItems := s.MinItems, s.MaxItems

	return func(value any, path string) []string {
		seq, ok := asSlice(value)
		if !ok {
			return []string{errorAt(path, "expected array, got "+typeName(value))}
		}
		var errs []string
		if minItems != nil && len(seq) < *minItems {
			errs = append(errs, errorAt(path, fmt.Sprintf("array has %d items, expected at least %d", len(seq), *minItems)))
		}
		if maxItems != nil && len(seq) > *maxItems {
			errs = append(errs, errorAt(path, fmt.Sprintf("array has %d items, expected at most %d", len(seq), *maxItems)))
		}
		for i, elem := range seq {
			errs = append(errs, itemChk(elem, joinPath(path, strconv.Itoa(i)))...)
		}
		return errs
	}, nil
}

// compileObject enforces required keys and validates declared properties.
// Undeclared keys always pass: templates evolve independently of content
// authors, so extra fields are not an error.
func compileObject(s *Schema) (nodeCheck, error) {
	props := make(map[string]nodeCheck, len(s.Properties))
	for name, sub := range s.Properties {
		chk, err := compileNode(sub)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", name, err)
		}
		props[name] = chk
	}
	required := s.Required

	return func(value any, path string) []string {
		obj, ok := asStringMap(value)
		if !ok {
			return []string{errorAt(path, "expected object, got "+typeName(value))}
		}
		var errs []string
		for _, key := range required {
			if _, present := obj[key]; !present {
				errs = append(errs, errorAt(joinPath(path, key), "required property missing"))
			}
		}
		for key, chk := range props {
			fieldValue, present := obj[key]
			if !present {
				continue
			}
			errs = append(errs, chk(fieldValue, joinPath(path, key))...)
		}
		return errs
	}, nil
}

func joinPath(base, segment string) string {
	if base == "" {
		return segment
	}
	return base + "." + segment
}

func errorAt(path, msg string) string {
	if path == "" {
		return msg
	}
	return path + ": " + msg
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func asSlice(v any) ([]any, bool) {
	switch s := v.(type) {
	case []any:
		return s, true
	case []string:
		out := make([]any, len(s))
		for i, e := range s {
			out[i] = e
		}
		return out, true
	default:
		return nil, false
	}
}

func asStringMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[fmt.Sprint(k)] = val
		}
		return out, true
	default:
		return nil, false
	}
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case int, int64, uint64, float32, float64:
		return "number"
	case []any, []string:
		return "array"
	case map[string]any, map[any]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
