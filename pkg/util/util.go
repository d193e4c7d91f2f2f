// Package util provides small path helpers shared by the comparer and CLI.
package util

import "strings"

// StripPathComponents removes the first count slash-separated components from
// path, the same way patch(1) interprets its -p flag. Consecutive slashes
// count as a single separator, so "/foo/bar" strips to "bar" with count 2.
// If the path has fewer components than count, the final component survives.
func StripPathComponents(path string, count int) string {
	cur := 0
	for ; count > 0; count-- {
		idx := strings.Index(path[cur:], "/")
		if idx < 0 {
			break
		}
		cur += idx
		for cur < len(path) && path[cur] == '/' {
			cur++
		}
	}
	return path[cur:]
}
