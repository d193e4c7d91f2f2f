package htmldiff

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextIdenticalInputs(t *testing.T) {
	lines := []string{"a", "b", "c"}
	sum, body := Context(Request{FromLines: lines, ToLines: lines, Context: 3})

	assert.True(t, sum.IsZero())
	assert.Empty(t, body)
}

func TestContextSingleInsertion(t *testing.T) {
	req := Request{
		FromLines: []string{"a", "b", "c"},
		ToLines:   []string{"a", "b", "x", "c"},
		FromName:  "old/f.c",
		ToName:    "new/f.c",
		FromDate:  "Mon Jan  2 15:04:05 2006",
		ToDate:    "Mon Jan  2 15:04:06 2006",
		Context:   3,
	}
	sum, body := Context(req)

	assert.Equal(t, Summary{Changed: 0, Deleted: 0, Added: 1}, sum)
	assert.Equal(t, 1, strings.Count(body, `<span class="insert">`))
	assert.Zero(t, strings.Count(body, `<span class="delete">`))
	assert.Zero(t, strings.Count(body, `<span class="change">`))

	assert.Contains(t, body, "*** old/f.c\tMon Jan  2 15:04:05 2006")
	assert.Contains(t, body, "--- new/f.c\tMon Jan  2 15:04:06 2006")
	assert.Contains(t, body, "<hr>")
	assert.Contains(t, body, "*** 1,3 ****")
	assert.Contains(t, body, "--- 1,4 ----")
	assert.Contains(t, body, `<span class="insert">+ x`)
}

func TestContextReplaceCountsNewHalf(t *testing.T) {
	req := Request{
		FromLines: []string{"a", "old", "z"},
		ToLines:   []string{"a", "new1", "new2", "z"},
		Context:   3,
	}
	sum, body := Context(req)

	assert.Equal(t, Summary{Changed: 2, Deleted: 0, Added: 0}, sum)
	// One changed line in the old half, two in the new half.
	assert.Equal(t, 3, strings.Count(body, `<span class="change">`))
}

func TestContextOmitsUnchangedHalf(t *testing.T) {
	// A pure insertion renders no old-half body lines, only the range header.
	req := Request{
		FromLines: []string{"a"},
		ToLines:   []string{"a", "b"},
		Context:   0,
	}
	sum, body := Context(req)

	require.Equal(t, Summary{Added: 1}, sum)
	assert.NotContains(t, body, `<span class="same">`)
	assert.Contains(t, body, "*** 1 ****")
	assert.Contains(t, body, "--- 2 ----")
}

func TestContextInsertionAtStartOfEmptyFile(t *testing.T) {
	sum, body := Context(Request{ToLines: []string{"a"}, Context: 3})

	assert.Equal(t, Summary{Added: 1}, sum)
	assert.Contains(t, body, "*** 0 ****")
	assert.Contains(t, body, "--- 1 ----")
}

func TestContextEscapesContent(t *testing.T) {
	req := Request{
		FromLines: []string{"x"},
		ToLines:   []string{"<b>&amp;</b>"},
		FromName:  "a<b",
		ToName:    "c&d",
		Context:   3,
	}
	_, body := Context(req)

	assert.Contains(t, body, "a&lt;b")
	assert.Contains(t, body, "c&amp;d")
	assert.Contains(t, body, "&lt;b&gt;&amp;amp;&lt;/b&gt;")
	assert.NotContains(t, body, "<b>")
}

func TestFormatRangeContext(t *testing.T) {
	testCases := []struct {
		start, stop int
		expected    string
	}{
		{0, 0, "0"},
		{0, 1, "1"},
		{0, 3, "1,3"},
		{5, 9, "6,9"},
		{7, 7, "7"},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.expected, formatRangeContext(tc.start, tc.stop))
	}
}
