package htmldiff

import (
	"fmt"
	"strings"
)

// Unified renders the unified diff for req as a fragment of span-wrapped
// lines. The changes shown match what Context reports for the same request,
// so callers take the totals from there. Identical inputs yield an empty
// fragment.
func Unified(req Request) string {
	groups := GroupOpcodes(Opcodes(req.FromLines, req.ToLines), req.Context)
	if len(groups) == 0 {
		return ""
	}

	var b strings.Builder
	writeSpan(&b, "fromtitle", fmt.Sprintf("--- %s\t%s", req.FromName, req.FromDate))
	writeSpan(&b, "totitle", fmt.Sprintf("+++ %s\t%s", req.ToName, req.ToDate))

	for _, group := range groups {
		first, last := group[0], group[len(group)-1]
		b.WriteString("<hr>")
		writeSpan(&b, "head", fmt.Sprintf("@@ -%s +%s @@",
			formatRangeUnified(first.I1, last.I2),
			formatRangeUnified(first.J1, last.J2)))

		for _, op := range group {
			if op.Tag == OpEqual {
				for _, line := range req.FromLines[op.I1:op.I2] {
					writeSpan(&b, "same", " "+line)
				}
				continue
			}
			if op.Tag != OpInsert {
				for _, line := range req.FromLines[op.I1:op.I2] {
					writeSpan(&b, "old", "-"+line)
				}
			}
			if op.Tag != OpDelete {
				for _, line := range req.ToLines[op.J1:op.J2] {
					writeSpan(&b, "new", "+"+line)
				}
			}
		}
	}
	return b.String()
}

// formatRangeUnified renders a start/length pair in unified diff notation,
// omitting the length when it is exactly one.
func formatRangeUnified(start, stop int) string {
	beginning := start + 1
	length := stop - start
	if length == 1 {
		return fmt.Sprintf("%d", beginning)
	}
	if length == 0 {
		beginning--
	}
	return fmt.Sprintf("%d,%d", beginning, length)
}
