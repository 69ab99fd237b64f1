// Package icons provides the built-in icon resolver: an I/O-free
// implementation that renders Iconify-style span markup.
//
// On-disk icon fetching and caching is a separate concern and lives outside
// this module; anything implementing transform.IconResolver can be plugged
// in instead.
package icons

import (
	"context"
	"fmt"
	"strings"

	"git.home.luguber.info/inful/deckbuilder/internal/transform"
)

// Inline renders icon references as Iconify spans. The downstream toolchain
// (or a browser runtime) turns them into actual glyphs.
type Inline struct{}

var _ transform.IconResolver = Inline{}

// Render produces the markup for one icon occurrence.
func (Inline) Render(_ context.Context, name string, opts transform.IconOptions) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("icon name is empty")
	}
	if strings.ContainsAny(name, " \t\n\"<>") {
		return "", fmt.Errorf("invalid icon name %q", name)
	}

	var b strings.Builder
	b.WriteString(`<span class="iconify`)
	if opts.Class != "" {
		b.WriteString(" ")
		b.WriteString(opts.Class)
	}
	b.WriteString(`" data-icon="`)
	b.WriteString(name)
	b.WriteString(`"`)
	if opts.Size > 0 {
		fmt.Fprintf(&b, ` data-width="%d"`, opts.Size)
	}
	if opts.Color != "" {
		fmt.Fprintf(&b, ` style="color: %s;"`, opts.Color)
	}
	b.WriteString(`></span>`)
	return b.String(), nil
}
