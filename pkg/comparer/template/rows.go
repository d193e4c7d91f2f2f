package template

import (
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/diffreport/diffreport/pkg/comparer/htmldiff"
)

// RowClass selects the index table row style for one compared path.
type RowClass string

const (
	RowChanged   RowClass = "diff"
	RowUnchanged RowClass = "same"
	RowDeleted   RowClass = "deleted"
	RowAdded     RowClass = "added"
)

// Row holds the typed values behind one index table row. Href is the
// URL-path-escaped form of Path; artifact flags control which cells render
// links instead of "-".
type Row struct {
	Path     string
	Href     string
	Class    RowClass
	Changed  int
	Deleted  int
	Added    int
	Language string

	OldSource bool
	NewSource bool
	Cdiff     bool
	Udiff     bool
	Sdiff     bool
	Fdiff     bool
}

func linkCell(b *strings.Builder, href, title, text string) {
	b.WriteString(`        <td><a href="` + htmldiff.Escape(href) + `" title="` + title + `">` + text + "</a></td>\n")
}

func dashCell(b *strings.Builder) {
	b.WriteString("        <td>-</td>\n")
}

// DataRow renders one index table row.
func DataRow(r Row) template.HTML {
	var b strings.Builder
	b.WriteString(`    <tr class="` + string(r.Class) + "\">\n")
	b.WriteString("        <td>" + htmldiff.Escape(r.Path) + "</td>\n")

	if r.Class == RowChanged {
		fmt.Fprintf(&b, "        <td><abbr title=\"Changed/Deleted/Added\">%d/%d/%d</abbr></td>\n",
			r.Changed, r.Deleted, r.Added)
	} else {
		b.WriteString("        <td>-/-/-</td>\n")
	}

	b.WriteString("        <td>" + htmldiff.Escape(r.Language) + "</td>\n")

	if r.Cdiff {
		linkCell(&b, r.Href+".cdiff.html", "context diff", "Cdiff")
	} else {
		dashCell(&b)
	}
	if r.Udiff {
		linkCell(&b, r.Href+".udiff.html", "unified diff", "Udiff")
	} else {
		dashCell(&b)
	}
	if r.Sdiff {
		linkCell(&b, r.Href+".sdiff.html", "side-by-side context diff", "Sdiff")
	} else {
		dashCell(&b)
	}
	if r.Fdiff {
		linkCell(&b, r.Href+".fdiff.html", "side-by-side full diff", "Fdiff")
	} else {
		dashCell(&b)
	}

	if r.OldSource {
		linkCell(&b, r.Href+"-.html", "old file", "Old")
	} else {
		dashCell(&b)
	}
	if r.NewSource {
		linkCell(&b, r.Href+".html", "new file", "New")
	} else {
		dashCell(&b)
	}

	b.WriteString("    </tr>\n")
	return template.HTML(b.String())
}

// DataTable wraps concatenated row fragments in the index data table with
// its header row.
func DataTable(rows template.HTML) template.HTML {
	var b strings.Builder
	b.WriteString(`<table id="summary_table" cellspacing="1" border="1" nowrap="nowrap">
    <tr class="table_header">
        <th>Filename</th>
        <th><abbr title="Changed/Deleted/Added">C/D/A</abbr> Summary</th>
        <th>Language</th>
        <th colspan="4">Diffs</th>
        <th colspan="2">Sources</th>
    </tr>
`)
	b.WriteString(string(rows))
	b.WriteString("    </table>")
	return template.HTML(b.String())
}

// HeaderInfo renders the page heading.
func HeaderInfo(title string) template.HTML {
	return template.HTML("<h1>" + htmldiff.Escape(title) + "</h1>")
}

// CommentsInfo renders the comments block.
func CommentsInfo(comments string) template.HTML {
	var b strings.Builder
	b.WriteString("<p><b>Comments:</b></p>\n")
	b.WriteString(`    <pre class="comments">` + htmldiff.Escape(comments) + "</pre>")
	return template.HTML(b.String())
}

// SummaryInfo renders the global file-change totals table.
func SummaryInfo(changed, deleted, added int) template.HTML {
	var b strings.Builder
	b.WriteString("<p><b>Summary of file changes:</b></p>\n")
	b.WriteString("    <table id=\"summary\">\n        <tr>\n")
	fmt.Fprintf(&b, "            <td class=\"diff\">%d Changed</td>\n", changed)
	fmt.Fprintf(&b, "            <td class=\"deleted\">%d Deleted</td>\n", deleted)
	fmt.Fprintf(&b, "            <td class=\"added\">%d Added</td>\n", added)
	b.WriteString("        </tr>\n    </table><br>")
	return template.HTML(b.String())
}

// NavDiv renders the page navigation list, one link per index page. Empty
// for single-page reports.
func NavDiv(pages int) template.HTML {
	if pages <= 1 {
		return ""
	}
	var b strings.Builder
	b.WriteString("<div><ul>\n")
	for i := 0; i < pages; i++ {
		fmt.Fprintf(&b, "    <li><a href='index%04d.html'>%04d</a></li>\n", i, i)
	}
	b.WriteString("    </ul></div>")
	return template.HTML(b.String())
}

// FooterInfo renders the generation footer.
func FooterInfo(tool string, at time.Time) template.HTML {
	return template.HTML(fmt.Sprintf(`<i id="footer_info">Generated by %s at %s</i>`,
		htmldiff.Escape(tool), at.Format("Mon Jan 02 15:04:05 MST 2006")))
}
