package htmldiff

import (
	"strconv"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

const tabSize = 8

// rowKind classifies one side of a side-by-side row.
type rowKind int

const (
	kindBlank rowKind = iota // filler opposite an unpaired line
	kindContext
	kindAdded
	kindDeleted
	kindChanged
)

type sbsSide struct {
	num  int // 1-based line number, 0 for filler and continuation rows
	text string
	kind rowKind
}

type sbsRow struct {
	left, right sbsSide
	elision     bool
	wrapped     bool
}

func (r sbsRow) changed() bool {
	return r.left.kind == kindDeleted || r.left.kind == kindChanged ||
		r.right.kind == kindAdded || r.right.kind == kindChanged
}

// SideBySide renders req as an HTML table aligning old and new lines, with
// character-level highlighting of the regions that differ inside changed
// pairs, followed by a color legend. With full set the whole files are
// shown; otherwise only rows within the context distance of a change
// survive, with elision markers in the gaps.
func SideBySide(req Request, full bool) string {
	rows := buildRows(req)
	if !full {
		rows = windowRows(rows, req.Context)
	}
	rows = wrapRows(rows, req.Wrap)

	var b strings.Builder
	b.WriteString("<table class=\"diff\">\n<thead><tr>")
	b.WriteString(`<th class="lnum"></th><th>` + Escape(req.FromName) + "</th>")
	b.WriteString(`<th class="lnum"></th><th>` + Escape(req.ToName) + "</th>")
	b.WriteString("</tr></thead>\n<tbody>\n")

	if len(rows) == 0 {
		msg := "No Differences Found"
		if full {
			msg = "Empty File"
		}
		b.WriteString(`<tr><td class="lnum"></td><td>&nbsp;` + msg + `&nbsp;</td><td class="lnum"></td><td></td></tr>` + "\n")
	}

	dmp := diffmatchpatch.New()
	for _, row := range rows {
		writeRow(&b, dmp, row)
	}
	b.WriteString("</tbody>\n</table>\n")
	writeLegend(&b)
	return b.String()
}

func buildRows(req Request) []sbsRow {
	from := expandAll(req.FromLines)
	to := expandAll(req.ToLines)

	var rows []sbsRow
	for _, op := range Opcodes(req.FromLines, req.ToLines) {
		switch op.Tag {
		case OpEqual:
			for k := 0; k < op.I2-op.I1; k++ {
				rows = append(rows, sbsRow{
					left:  sbsSide{op.I1 + k + 1, from[op.I1+k], kindContext},
					right: sbsSide{op.J1 + k + 1, to[op.J1+k], kindContext},
				})
			}
		case OpDelete:
			rows = append(rows, deletedRows(from, op.I1, op.I2)...)
		case OpInsert:
			rows = append(rows, addedRows(to, op.J1, op.J2)...)
		case OpReplace:
			n := min(op.I2-op.I1, op.J2-op.J1)
			for k := 0; k < n; k++ {
				rows = append(rows, sbsRow{
					left:  sbsSide{op.I1 + k + 1, from[op.I1+k], kindChanged},
					right: sbsSide{op.J1 + k + 1, to[op.J1+k], kindChanged},
				})
			}
			rows = append(rows, deletedRows(from, op.I1+n, op.I2)...)
			rows = append(rows, addedRows(to, op.J1+n, op.J2)...)
		}
	}
	return rows
}

func deletedRows(from []string, lo, hi int) []sbsRow {
	rows := make([]sbsRow, 0, hi-lo)
	for i := lo; i < hi; i++ {
		rows = append(rows, sbsRow{
			left:  sbsSide{i + 1, from[i], kindDeleted},
			right: sbsSide{kind: kindBlank},
		})
	}
	return rows
}

func addedRows(to []string, lo, hi int) []sbsRow {
	rows := make([]sbsRow, 0, hi-lo)
	for j := lo; j < hi; j++ {
		rows = append(rows, sbsRow{
			left:  sbsSide{kind: kindBlank},
			right: sbsSide{j + 1, to[j], kindAdded},
		})
	}
	return rows
}

// windowRows keeps rows within n of a change and marks each gap with a
// single elision row. No changes at all leaves nothing to show.
func windowRows(rows []sbsRow, n int) []sbsRow {
	if n < 0 {
		n = 0
	}
	keep := make([]bool, len(rows))
	any := false
	for i, row := range rows {
		if !row.changed() {
			continue
		}
		any = true
		for k := max(0, i-n); k <= min(len(rows)-1, i+n); k++ {
			keep[k] = true
		}
	}
	if !any {
		return nil
	}

	var out []sbsRow
	prev := -1
	for i, row := range rows {
		if !keep[i] {
			continue
		}
		if (prev == -1 && i > 0) || (prev >= 0 && i > prev+1) {
			out = append(out, sbsRow{elision: true})
		}
		out = append(out, row)
		prev = i
	}
	if prev < len(rows)-1 {
		out = append(out, sbsRow{elision: true})
	}
	return out
}

// wrapRows splits rows whose text exceeds the wrap column into continuation
// rows. Continuations carry no line number. A wrap of 0 disables splitting.
func wrapRows(rows []sbsRow, wrap int) []sbsRow {
	if wrap <= 0 {
		return rows
	}
	var out []sbsRow
	for _, row := range rows {
		if row.elision {
			out = append(out, row)
			continue
		}
		lefts := chunkText(row.left.text, wrap)
		rights := chunkText(row.right.text, wrap)
		n := max(len(lefts), len(rights))
		if n <= 1 {
			out = append(out, row)
			continue
		}
		for k := 0; k < n; k++ {
			out = append(out, sbsRow{
				left:    continuationSide(row.left, lefts, k),
				right:   continuationSide(row.right, rights, k),
				wrapped: true,
			})
		}
	}
	return out
}

func continuationSide(side sbsSide, chunks []string, k int) sbsSide {
	if k >= len(chunks) {
		return sbsSide{kind: kindBlank}
	}
	s := sbsSide{text: chunks[k], kind: side.kind}
	if k == 0 {
		s.num = side.num
	}
	return s
}

func chunkText(s string, width int) []string {
	r := []rune(s)
	if len(r) <= width {
		return []string{s}
	}
	var chunks []string
	for len(r) > width {
		chunks = append(chunks, string(r[:width]))
		r = r[width:]
	}
	return append(chunks, string(r))
}

func expandAll(lines []string) []string {
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = expandTabs(line)
	}
	return out
}

// expandTabs replaces tabs with spaces up to the next tab stop so column
// positions survive the HTML rendering.
func expandTabs(s string) string {
	if !strings.Contains(s, "\t") {
		return s
	}
	var b strings.Builder
	col := 0
	for _, r := range s {
		if r == '\t' {
			n := tabSize - col%tabSize
			b.WriteString(strings.Repeat(" ", n))
			col += n
			continue
		}
		b.WriteRune(r)
		col++
	}
	return b.String()
}

func writeRow(b *strings.Builder, dmp *diffmatchpatch.DiffMatchPatch, row sbsRow) {
	if row.elision {
		b.WriteString(`<tr class="skip"><td class="lnum"></td><td>...</td><td class="lnum"></td><td>...</td></tr>` + "\n")
		return
	}
	var leftHTML, rightHTML string
	if row.left.kind == kindChanged && row.right.kind == kindChanged && !row.wrapped {
		leftHTML, rightHTML = intralineCells(dmp, row.left.text, row.right.text)
	} else {
		leftHTML = sideHTML(row.left)
		rightHTML = sideHTML(row.right)
	}
	b.WriteString("<tr>")
	writeCell(b, row.left.num, leftHTML)
	writeCell(b, row.right.num, rightHTML)
	b.WriteString("</tr>\n")
}

func writeCell(b *strings.Builder, num int, html string) {
	b.WriteString(`<td class="lnum">`)
	if num > 0 {
		b.WriteString(strconv.Itoa(num))
	}
	b.WriteString("</td><td>")
	b.WriteString(html)
	b.WriteString("</td>")
}

func sideHTML(side sbsSide) string {
	switch side.kind {
	case kindAdded:
		return `<span class="add">` + Escape(side.text) + `</span>`
	case kindDeleted:
		return `<span class="sub">` + Escape(side.text) + `</span>`
	case kindChanged:
		return `<span class="chg">` + Escape(side.text) + `</span>`
	default:
		return Escape(side.text)
	}
}

// intralineCells diffs a changed line pair at the character level and marks
// only the regions that differ, keeping the common runs unhighlighted.
func intralineCells(dmp *diffmatchpatch.DiffMatchPatch, oldText, newText string) (string, string) {
	diffs := dmp.DiffMain(oldText, newText, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	var l, r strings.Builder
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			l.WriteString(Escape(d.Text))
			r.WriteString(Escape(d.Text))
		case diffmatchpatch.DiffDelete:
			l.WriteString(`<span class="chg">`)
			l.WriteString(Escape(d.Text))
			l.WriteString(`</span>`)
		case diffmatchpatch.DiffInsert:
			r.WriteString(`<span class="chg">`)
			r.WriteString(Escape(d.Text))
			r.WriteString(`</span>`)
		}
	}
	return l.String(), r.String()
}

func writeLegend(b *strings.Builder) {
	b.WriteString(`<table class="legend">
<tr><th>Legend</th></tr>
<tr><td><span class="add">&nbsp;Added&nbsp;</span></td></tr>
<tr><td><span class="chg">&nbsp;Changed&nbsp;</span></td></tr>
<tr><td><span class="sub">&nbsp;Deleted&nbsp;</span></td></tr>
</table>
`)
}
