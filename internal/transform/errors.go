package transform

import (
	"fmt"
	"strings"
)

// Kind classifies transform-boundary failures.
type Kind string

const (
	// KindTemplateNotFound means a slide referenced an unregistered
	// template. This aborts the whole document: slide ordinals are
	// meaningful and a partial deck is not a valid artifact.
	KindTemplateNotFound Kind = "template-not-found"
	// KindContentValidation means slide content failed the bound
	// template's schema.
	KindContentValidation Kind = "content-validation"
)

// Error is a structured transform error for one slide.
type Error struct {
	Kind     Kind
	Slide    int
	Template string
	Fields   []string
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindTemplateNotFound:
		return fmt.Sprintf("slide %d: template %q not found", e.Slide, e.Template)
	case KindContentValidation:
		return fmt.Sprintf("slide %d: content does not match template %q: %s",
			e.Slide, e.Template, strings.Join(e.Fields, "; "))
	default:
		return fmt.Sprintf("slide %d: template %q: transform failed", e.Slide, e.Template)
	}
}
