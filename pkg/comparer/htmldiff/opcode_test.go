package htmldiff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpcodes(t *testing.T) {
	t.Run("identical inputs yield one equal run", func(t *testing.T) {
		lines := []string{"a", "b", "c"}
		ops := Opcodes(lines, lines)
		require.Len(t, ops, 1)
		assert.Equal(t, OpCode{OpEqual, 0, 3, 0, 3}, ops[0])
	})

	t.Run("both empty yields no runs", func(t *testing.T) {
		assert.Empty(t, Opcodes(nil, nil))
	})

	t.Run("pure insertion", func(t *testing.T) {
		ops := Opcodes([]string{"a"}, []string{"a", "b"})
		require.Len(t, ops, 2)
		assert.Equal(t, OpCode{OpEqual, 0, 1, 0, 1}, ops[0])
		assert.Equal(t, OpCode{OpInsert, 1, 1, 1, 2}, ops[1])
	})

	t.Run("pure deletion", func(t *testing.T) {
		ops := Opcodes([]string{"a", "b"}, []string{"a"})
		require.Len(t, ops, 2)
		assert.Equal(t, OpCode{OpEqual, 0, 1, 0, 1}, ops[0])
		assert.Equal(t, OpCode{OpDelete, 1, 2, 1, 1}, ops[1])
	})

	t.Run("adjacent delete and insert merge into replace", func(t *testing.T) {
		ops := Opcodes([]string{"x"}, []string{"y"})
		require.Len(t, ops, 1)
		assert.Equal(t, OpCode{OpReplace, 0, 1, 0, 1}, ops[0])
	})

	t.Run("replace with uneven halves", func(t *testing.T) {
		ops := Opcodes(
			[]string{"a", "old", "z"},
			[]string{"a", "new1", "new2", "z"},
		)
		require.Len(t, ops, 3)
		assert.Equal(t, OpCode{OpReplace, 1, 2, 1, 3}, ops[1])
	})

	t.Run("empty old side is a single insert", func(t *testing.T) {
		ops := Opcodes(nil, []string{"a", "b"})
		require.Len(t, ops, 1)
		assert.Equal(t, OpCode{OpInsert, 0, 0, 0, 2}, ops[0])
	})
}

func TestGroupOpcodes(t *testing.T) {
	t.Run("no opcodes produce no groups", func(t *testing.T) {
		assert.Nil(t, GroupOpcodes(nil, 3))
	})

	t.Run("single equal run produces no groups", func(t *testing.T) {
		ops := []OpCode{{OpEqual, 0, 10, 0, 10}}
		assert.Nil(t, GroupOpcodes(ops, 3))
	})

	t.Run("leading and trailing context trimmed", func(t *testing.T) {
		ops := []OpCode{
			{OpEqual, 0, 10, 0, 10},
			{OpReplace, 10, 11, 10, 11},
			{OpEqual, 11, 20, 11, 20},
		}
		groups := GroupOpcodes(ops, 2)
		require.Len(t, groups, 1)
		group := groups[0]
		require.Len(t, group, 3)
		assert.Equal(t, OpCode{OpEqual, 8, 10, 8, 10}, group[0])
		assert.Equal(t, OpCode{OpReplace, 10, 11, 10, 11}, group[1])
		assert.Equal(t, OpCode{OpEqual, 11, 13, 11, 13}, group[2])
	})

	t.Run("distant changes split into separate groups", func(t *testing.T) {
		ops := []OpCode{
			{OpDelete, 0, 1, 0, 0},
			{OpEqual, 1, 50, 0, 49},
			{OpInsert, 50, 50, 49, 50},
		}
		groups := GroupOpcodes(ops, 3)
		require.Len(t, groups, 2)
		assert.Equal(t, OpDelete, groups[0][0].Tag)
		assert.Equal(t, OpCode{OpEqual, 1, 4, 0, 3}, groups[0][1])
		assert.Equal(t, OpCode{OpEqual, 47, 50, 46, 49}, groups[1][0])
		assert.Equal(t, OpInsert, groups[1][1].Tag)
	})

	t.Run("zero context keeps only changed runs", func(t *testing.T) {
		ops := []OpCode{
			{OpEqual, 0, 5, 0, 5},
			{OpReplace, 5, 6, 5, 6},
			{OpEqual, 6, 9, 6, 9},
		}
		groups := GroupOpcodes(ops, 0)
		require.Len(t, groups, 1)
		require.Len(t, groups[0], 3)
		assert.Equal(t, OpCode{OpEqual, 5, 5, 5, 5}, groups[0][0])
		assert.Equal(t, OpCode{OpEqual, 6, 6, 6, 6}, groups[0][2])
	})
}
