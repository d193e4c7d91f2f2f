// Package htmldiff renders pairs of text files as HTML diff fragments:
// classic context diffs, unified diffs, and side-by-side tables with
// intra-line change highlighting.
//
// All renderers escape content exactly once and wrap each output line in a
// span (or table cell) whose class is targeted by the page stylesheets.
package htmldiff

import (
	"net/url"
	"strings"
)

// htmlEscaper rewrites the three characters that would otherwise be parsed
// as markup. Replacement happens in a single pass over the input, so
// entities produced by one rule are never rescanned by another.
var htmlEscaper = strings.NewReplacer("&", "&amp;", ">", "&gt;", "<", "&lt;")

// Escape returns s with &, > and < replaced by their HTML entities.
func Escape(s string) string {
	return htmlEscaper.Replace(s)
}

// PathHref percent-encodes path for use in an href attribute, leaving the
// slash separators intact.
func PathHref(path string) string {
	u := url.URL{Path: path}
	return u.EscapedPath()
}

// Request carries the inputs for one file comparison. Lines are stored
// without trailing newlines. Names and dates appear verbatim in the diff
// headers.
type Request struct {
	FromLines []string
	ToLines   []string
	FromName  string
	ToName    string
	FromDate  string
	ToDate    string
	Context   int // common lines kept around each change
	Wrap      int // side-by-side wrap column, 0 disables wrapping
}

// writeSpan emits one diff output line wrapped in a classed span. The
// newline sits inside the span, keeping the <pre> flow of the page intact.
func writeSpan(b *strings.Builder, class, line string) {
	b.WriteString(`<span class="`)
	b.WriteString(class)
	b.WriteString(`">`)
	b.WriteString(Escape(line))
	b.WriteString("\n</span>")
}
