// Package template assembles the report's HTML pages. Diff and row
// fragments arrive pre-escaped as template.HTML from pure builder functions;
// embedded shells supply the surrounding document structure.
package template

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/diffreport/diffreport/pkg/comparer/htmldiff"
)

//go:embed index.tmpl diffpage.tmpl sdiffpage.tmpl sourcepage.tmpl
var shellFS embed.FS

// IndexData feeds one index page shell. All fragment fields are pre-escaped.
type IndexData struct {
	Title        string
	Styles       template.CSS
	HeaderInfo   template.HTML
	CommentsInfo template.HTML
	SummaryInfo  template.HTML
	IndexDiv     template.HTML
	DataRows     template.HTML
	FooterInfo   template.HTML
}

type pageData struct {
	Title  string
	Styles template.CSS
	Body   template.HTML
}

type sourceData struct {
	Title   string
	Content template.HTML
}

// Renderer executes the embedded page shells.
type Renderer struct {
	shells *template.Template
}

// NewRenderer parses the embedded shells.
func NewRenderer() (*Renderer, error) {
	shells, err := template.ParseFS(shellFS, "*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse embedded page shells: %w", err)
	}
	return &Renderer{shells: shells}, nil
}

// IndexPage writes one report index page.
func (r *Renderer) IndexPage(w io.Writer, data IndexData) error {
	if data.Styles == "" {
		data.Styles = indexStyles
	}
	if err := r.shells.ExecuteTemplate(w, "index.tmpl", data); err != nil {
		return fmt.Errorf("index page rendering failed: %w", err)
	}
	return nil
}

// ContextDiffPage wraps a context diff fragment in its page shell.
func (r *Renderer) ContextDiffPage(w io.Writer, title, body string) error {
	return r.diffPage(w, "diffpage.tmpl", title, cdiffStyles, body)
}

// UnifiedDiffPage wraps a unified diff fragment in its page shell.
func (r *Renderer) UnifiedDiffPage(w io.Writer, title, body string) error {
	return r.diffPage(w, "diffpage.tmpl", title, udiffStyles, body)
}

// SideBySidePage wraps a side-by-side diff table in its page shell.
func (r *Renderer) SideBySidePage(w io.Writer, title, body string) error {
	return r.diffPage(w, "sdiffpage.tmpl", title, sdiffStyles, body)
}

func (r *Renderer) diffPage(w io.Writer, shell, title string, styles template.CSS, body string) error {
	data := pageData{Title: title, Styles: styles, Body: template.HTML(body)}
	if err := r.shells.ExecuteTemplate(w, shell, data); err != nil {
		return fmt.Errorf("diff page rendering failed for %q: %w", title, err)
	}
	return nil
}

// SourcePage writes a source view: the file content escaped inside one
// preformatted block, titled with the source path.
func (r *Renderer) SourcePage(w io.Writer, path, content string) error {
	data := sourceData{Title: path, Content: template.HTML(htmldiff.Escape(content))}
	if err := r.shells.ExecuteTemplate(w, "sourcepage.tmpl", data); err != nil {
		return fmt.Errorf("source page rendering failed for %q: %w", path, err)
	}
	return nil
}
