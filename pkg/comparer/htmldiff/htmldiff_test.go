package htmldiff

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscape(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain text untouched", "hello world", "hello world"},
		{"all three characters", "a<b & c>d", "a&lt;b &amp; c&gt;d"},
		{"existing entity escaped once more", "&gt;", "&amp;gt;"},
		{"quotes left alone", `say "hi"`, `say "hi"`},
		{"empty", "", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Escape(tc.input))
		})
	}
}

func TestPathHref(t *testing.T) {
	testCases := []struct {
		name     string
		path     string
		expected string
	}{
		{"plain path untouched", "dir/file.c", "dir/file.c"},
		{"spaces encoded", "my dir/my file.c", "my%20dir/my%20file.c"},
		{"percent encoded", "a%b.c", "a%25b.c"},
		{"slashes kept", "a/b/c", "a/b/c"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, PathHref(tc.path))
		})
	}
}

func TestMakeTitle(t *testing.T) {
	longPath := strings.Repeat("a", 43) + "/file.c"

	testCases := []struct {
		name     string
		pathname string
		width    int
		expected string
	}{
		{"empty pathname", "", 10, "None"},
		{"zero width disables abbreviation", "/some/long/path.c", 0, "/some/long/path.c"},
		{"negative width disables abbreviation", "/some/long/path.c", -1, "/some/long/path.c"},
		{"short path untouched", "a/b.c", 10, "a/b.c"},
		{"long path keeps ellipsis plus tail", longPath, 10, ".../file.c"},
		{"tiny width keeps bare tail", "abcdef", 3, "def"},
		{"width equal to length untouched", "abc", 3, "abc"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := MakeTitle(tc.pathname, tc.width)
			assert.Equal(t, tc.expected, got)
			if tc.width > 0 {
				assert.LessOrEqual(t, len([]rune(got)), max(tc.width, len([]rune("None"))))
			}
		})
	}
}
