package deck

import (
	"fmt"
	"strings"
)

// Kind classifies parse-boundary failures.
type Kind string

const (
	// KindSyntax means the source text is not well-formed YAML.
	KindSyntax Kind = "syntax"
	// KindValidation means the document is well-formed but does not match
	// the presentation shape (for example a missing meta.title).
	KindValidation Kind = "validation"
)

// Error is a structured parse error carrying its category, an optional
// underlying cause (syntax) and per-field detail (validation).
type Error struct {
	Kind    Kind
	Message string
	Fields  []string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	case len(e.Fields) > 0:
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Message, strings.Join(e.Fields, "; "))
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
}

func (e *Error) Unwrap() error { return e.Err }

func syntaxError(msg string, cause error) *Error {
	return &Error{Kind: KindSyntax, Message: msg, Err: cause}
}

func validationError(msg string, fields []string) *Error {
	return &Error{Kind: KindValidation, Message: msg, Fields: fields}
}
