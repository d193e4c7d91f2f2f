package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// WriteTree materializes entries under root. Keys are slash-separated
// relative paths; a key ending in "/" creates an empty directory, anything
// else a file holding the value.
func WriteTree(t *testing.T, root string, entries map[string]string) {
	t.Helper()
	for rel, content := range entries {
		full := filepath.Join(root, filepath.FromSlash(rel))
		if strings.HasSuffix(rel, "/") {
			require.NoError(t, os.MkdirAll(full, 0o755))
			continue
		}
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
}
