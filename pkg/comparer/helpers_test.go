package comparer

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// newTestLogger returns a debug-level handler whose output is dumped when
// the test fails.
func newTestLogger(t *testing.T) slog.Handler {
	t.Helper()
	buf := &bytes.Buffer{}
	t.Cleanup(func() {
		if t.Failed() && buf.Len() > 0 {
			t.Logf("logs:\n%s", buf.String())
		}
	})
	return slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})
}

// createTree materializes entries under root. Keys ending in "/" create
// directories; everything else creates a file with the value as content.
func createTree(t *testing.T, root string, entries map[string]string) {
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

// recordingHooks captures every hook invocation for assertions.
type recordingHooks struct {
	mu         sync.Mutex
	discovered []string
	statuses   map[string][]string
	reports    []Report
}

func (h *recordingHooks) OnPathDiscovered(path string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.discovered = append(h.discovered, path)
	return nil
}

func (h *recordingHooks) OnPathStatusUpdate(path string, status Status, message string, _ time.Duration) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.statuses == nil {
		h.statuses = make(map[string][]string)
	}
	h.statuses[path] = append(h.statuses[path], string(status)+":"+message)
	return nil
}

func (h *recordingHooks) OnRunComplete(report Report) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.reports = append(h.reports, report)
	return nil
}

// lastStatus returns the final status:message recorded for path, or "".
func (h *recordingHooks) lastStatus(path string) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	updates := h.statuses[path]
	if len(updates) == 0 {
		return ""
	}
	return updates[len(updates)-1]
}

func (h *recordingHooks) discoveredPaths() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.discovered))
	copy(out, h.discovered)
	return out
}

// baseOptions builds a minimal valid Options for directory comparisons.
// The cache is off so tests stay deterministic unless they opt in.
func baseOptions(t *testing.T, oldPath, newPath, outputPath string) (*Options, *recordingHooks) {
	t.Helper()
	hooks := &recordingHooks{}
	return &Options{
		OldPath:      oldPath,
		NewPath:      newPath,
		OutputPath:   outputPath,
		ContextLines: 3,
		PageSize:     DefaultPageSize,
		Concurrency:  2,
		EventHooks:   hooks,
		Logger:       newTestLogger(t),
	}, hooks
}

// stubGitClient serves canned changed-file lists and HEAD hashes.
type stubGitClient struct {
	files   []string
	listErr error
	head    string
	headErr error
}

func (s *stubGitClient) GetChangedFiles(string, GitListMode, string) ([]string, error) {
	return s.files, s.listErr
}

func (s *stubGitClient) ResolveHead(string) (string, error) {
	return s.head, s.headErr
}

// stubTextconvRunner returns fixed output, or an error, for every rule.
type stubTextconvRunner struct {
	mu     sync.Mutex
	output []byte
	err    error
	calls  int
}

func (s *stubTextconvRunner) Run(context.Context, TextconvRule, string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.output, nil
}

// countingDigestCache records lookup and store traffic around an in-memory
// index.
type countingDigestCache struct {
	mu      sync.Mutex
	entries map[string]string
	lookups int
	hits    int
	stores  int
}

func newCountingDigestCache() *countingDigestCache {
	return &countingDigestCache{entries: make(map[string]string)}
}

func digestKey(path string, size int64, modTime time.Time) string {
	return path + "|" + modTime.UTC().Format(time.RFC3339Nano) + "|" + strconv.FormatInt(size, 10)
}

func (c *countingDigestCache) Load(string) error { return nil }

func (c *countingDigestCache) Lookup(path string, size int64, modTime time.Time) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lookups++
	digest, ok := c.entries[digestKey(path, size, modTime)]
	if ok {
		c.hits++
	}
	return digest, ok
}

func (c *countingDigestCache) Store(path string, size int64, modTime time.Time, digest string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stores++
	c.entries[digestKey(path, size, modTime)] = digest
}

func (c *countingDigestCache) Persist(string) error { return nil }
