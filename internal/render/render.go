// Package render assembles transformed slide bodies and deck metadata into
// the final flat document consumed by the downstream slide toolchain.
package render

import (
	"fmt"
	"strconv"
	"strings"

	"git.home.luguber.info/inful/deckbuilder/internal/deck"
)

// HeaderField is one caller-supplied extra header entry. Order is preserved.
type HeaderField struct {
	Key   string
	Value any
}

// Options control header composition and note embedding.
type Options struct {
	// IncludeTheme emits the theme header line when meta.Theme is
	// non-empty. DefaultOptions turns it on.
	IncludeTheme bool
	// Extra header entries, emitted after the fixed fields in given order.
	Extra []HeaderField
	// Stylesheet is the aggregated CSS for the deck; when non-empty it is
	// emitted as an indented style block.
	Stylesheet string
	// Notes holds the speaker note for each slide index; blank notes are
	// skipped.
	Notes []string
}

// DefaultOptions returns the standard rendering options.
func DefaultOptions() Options {
	return Options{IncludeTheme: true}
}

// Render builds the output document: a metadata header block followed by the
// slide bodies.
//
// The first body follows the header with no separator; every subsequent body
// is preceded by a separator line. A non-blank speaker note is appended after
// its slide's body as a comment block. Zero slides yield exactly the header
// block.
func Render(bodies []string, meta deck.Meta, opts Options) string {
	var b strings.Builder

	b.WriteString("---\n")
	writeField(&b, "title", meta.Title)
	if meta.Author != "" {
		writeField(&b, "author", meta.Author)
	}
	if meta.Date != "" {
		writeField(&b, "date", meta.Date)
	}
	if opts.IncludeTheme && meta.Theme != "" {
		writeField(&b, "theme", meta.Theme)
	}
	for _, f := range opts.Extra {
		writeField(&b, f.Key, f.Value)
	}
	if opts.Stylesheet != "" {
		b.WriteString("style: |\n")
		for _, line := range strings.Split(strings.TrimRight(opts.Stylesheet, "\n"), "\n") {
			b.WriteString("  ")
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	b.WriteString("---\n")

	for i, body := range bodies {
		if i == 0 {
			b.WriteString("\n")
		} else {
			b.WriteString("\n---\n\n")
		}
		b.WriteString(body)
		b.WriteString("\n")

		if i < len(opts.Notes) {
			if note := strings.TrimSpace(opts.Notes[i]); note != "" {
				b.WriteString("\n<!--\n")
				b.WriteString(note)
				b.WriteString("\n-->\n")
			}
		}
	}
	return b.String()
}

func writeField(b *strings.Builder, key string, value any) {
	b.WriteString(key)
	b.WriteString(": ")
	b.WriteString(encodeValue(value))
	b.WriteString("\n")
}

// encodeValue renders a header value. Strings containing YAML-significant
// characters are double-quoted with inner quotes escaped; everything else is
// emitted bare.
func encodeValue(v any) string {
	switch val := v.(type) {
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case string:
		if strings.ContainsAny(val, ":#[]{}|>") {
			return `"` + strings.ReplaceAll(val, `"`, `\"`) + `"`
		}
		return val
	default:
		return fmt.Sprint(val)
	}
}
