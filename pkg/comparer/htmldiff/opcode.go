package htmldiff

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// OpTag identifies the kind of edit an OpCode describes.
type OpTag string

const (
	OpEqual   OpTag = "equal"
	OpDelete  OpTag = "delete"
	OpInsert  OpTag = "insert"
	OpReplace OpTag = "replace"
)

// OpCode describes one edit run: from[I1:I2] relates to to[J1:J2]. For
// OpDelete the J range is empty, for OpInsert the I range is empty, and for
// OpReplace both ranges are non-empty.
type OpCode struct {
	Tag            OpTag
	I1, I2, J1, J2 int
}

// Opcodes computes the line-level edit script between from and to. Lines
// are mapped to characters so the diff runs over whole lines, then the
// resulting runs are translated back into index ranges. An adjacent
// delete/insert pair merges into a single replace run.
func Opcodes(from, to []string) []OpCode {
	dmp := diffmatchpatch.New()
	c1, c2, lineArray := dmp.DiffLinesToChars(joinLines(from), joinLines(to))
	diffs := dmp.DiffMain(c1, c2, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	ops := make([]OpCode, 0, len(diffs))
	i, j := 0, 0
	for _, d := range diffs {
		n := countLines(d.Text)
		if n == 0 {
			continue
		}
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			ops = append(ops, OpCode{OpEqual, i, i + n, j, j + n})
			i += n
			j += n
		case diffmatchpatch.DiffDelete:
			ops = append(ops, OpCode{OpDelete, i, i + n, j, j})
			i += n
		case diffmatchpatch.DiffInsert:
			ops = append(ops, OpCode{OpInsert, i, i, j, j + n})
			j += n
		}
	}
	return mergeReplaces(ops)
}

func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	var b strings.Builder
	for _, line := range lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

func countLines(text string) int {
	if text == "" {
		return 0
	}
	n := strings.Count(text, "\n")
	if !strings.HasSuffix(text, "\n") {
		n++
	}
	return n
}

func mergeReplaces(ops []OpCode) []OpCode {
	merged := make([]OpCode, 0, len(ops))
	for _, op := range ops {
		if n := len(merged); n > 0 {
			last := &merged[n-1]
			if (last.Tag == OpDelete && op.Tag == OpInsert) ||
				(last.Tag == OpInsert && op.Tag == OpDelete) {
				last.Tag = OpReplace
				if op.Tag == OpInsert {
					last.J1, last.J2 = op.J1, op.J2
				} else {
					last.I1, last.I2 = op.I1, op.I2
				}
				continue
			}
		}
		merged = append(merged, op)
	}
	return merged
}

// GroupOpcodes windows ops down to the runs that touch a change, keeping n
// common lines on each side, the grouping used by context and unified
// output. Identical inputs produce no groups.
func GroupOpcodes(ops []OpCode, n int) [][]OpCode {
	if len(ops) == 0 {
		return nil
	}
	if n < 0 {
		n = 0
	}
	codes := make([]OpCode, len(ops))
	copy(codes, ops)
	if c := &codes[0]; c.Tag == OpEqual {
		c.I1 = max(c.I1, c.I2-n)
		c.J1 = max(c.J1, c.J2-n)
	}
	if c := &codes[len(codes)-1]; c.Tag == OpEqual {
		c.I2 = min(c.I2, c.I1+n)
		c.J2 = min(c.J2, c.J1+n)
	}

	var groups [][]OpCode
	var group []OpCode
	for _, c := range codes {
		if c.Tag == OpEqual && c.I2-c.I1 > 2*n {
			group = append(group, OpCode{OpEqual, c.I1, min(c.I2, c.I1+n), c.J1, min(c.J2, c.J1+n)})
			groups = append(groups, group)
			group = []OpCode{{OpEqual, max(c.I1, c.I2-n), c.I2, max(c.J1, c.J2-n), c.J2}}
			continue
		}
		group = append(group, c)
	}
	if len(group) > 0 && !(len(group) == 1 && group[0].Tag == OpEqual) {
		groups = append(groups, group)
	}
	return groups
}
