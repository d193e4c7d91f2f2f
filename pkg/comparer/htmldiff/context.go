package htmldiff

import (
	"fmt"
	"strings"
)

// Summary totals the line changes a context diff reports: lines marked
// changed in the new half of replace runs, deleted lines, and added lines.
type Summary struct {
	Changed int
	Deleted int
	Added   int
}

// IsZero reports whether no changes were counted.
func (s Summary) IsZero() bool {
	return s.Changed == 0 && s.Deleted == 0 && s.Added == 0
}

// Context renders the classic context diff for req as a fragment of
// span-wrapped lines and returns the change totals. Identical inputs yield
// an empty fragment and a zero summary.
func Context(req Request) (Summary, string) {
	var sum Summary
	groups := GroupOpcodes(Opcodes(req.FromLines, req.ToLines), req.Context)
	if len(groups) == 0 {
		return sum, ""
	}

	var b strings.Builder
	writeSpan(&b, "fromtitle", fmt.Sprintf("*** %s\t%s", req.FromName, req.FromDate))
	writeSpan(&b, "totitle", fmt.Sprintf("--- %s\t%s", req.ToName, req.ToDate))

	for _, group := range groups {
		b.WriteString("<hr>")
		first, last := group[0], group[len(group)-1]

		writeSpan(&b, "fromtitle", fmt.Sprintf("*** %s ****", formatRangeContext(first.I1, last.I2)))
		if groupHasTag(group, OpReplace, OpDelete) {
			for _, op := range group {
				if op.Tag == OpInsert {
					continue
				}
				class, prefix := oldHalfStyle(op.Tag)
				for _, line := range req.FromLines[op.I1:op.I2] {
					writeSpan(&b, class, prefix+line)
				}
			}
		}

		writeSpan(&b, "totitle", fmt.Sprintf("--- %s ----", formatRangeContext(first.J1, last.J2)))
		if groupHasTag(group, OpReplace, OpInsert) {
			for _, op := range group {
				if op.Tag == OpDelete {
					continue
				}
				class, prefix := newHalfStyle(op.Tag)
				for _, line := range req.ToLines[op.J1:op.J2] {
					writeSpan(&b, class, prefix+line)
				}
			}
		}

		for _, op := range group {
			switch op.Tag {
			case OpReplace:
				sum.Changed += op.J2 - op.J1
			case OpDelete:
				sum.Deleted += op.I2 - op.I1
			case OpInsert:
				sum.Added += op.J2 - op.J1
			}
		}
	}
	return sum, b.String()
}

func oldHalfStyle(tag OpTag) (class, prefix string) {
	switch tag {
	case OpEqual:
		return "same", "  "
	case OpReplace:
		return "change", "! "
	default:
		return "delete", "- "
	}
}

func newHalfStyle(tag OpTag) (class, prefix string) {
	switch tag {
	case OpEqual:
		return "same", "  "
	case OpReplace:
		return "change", "! "
	default:
		return "insert", "+ "
	}
}

func groupHasTag(group []OpCode, tags ...OpTag) bool {
	for _, op := range group {
		for _, t := range tags {
			if op.Tag == t {
				return true
			}
		}
	}
	return false
}

// formatRangeContext renders a 1-based inclusive range in context diff
// notation, collapsing single-line and empty ranges to one number.
func formatRangeContext(start, stop int) string {
	beginning := start + 1
	length := stop - start
	if length == 0 {
		beginning--
	}
	if length <= 1 {
		return fmt.Sprintf("%d", beginning)
	}
	return fmt.Sprintf("%d,%d", beginning, beginning+length-1)
}
