package runner

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diffreport/diffreport/pkg/comparer"
)

// writeScript drops an executable POSIX shell script into a temp dir. The
// invoked command receives the converted file path as its first argument.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script tests are not supported on windows")
	}
	scriptPath := filepath.Join(t.TempDir(), "textconv.sh")
	require.NoError(t, os.WriteFile(scriptPath, []byte("#!/bin/sh\n"+body), 0o755))
	return scriptPath
}

func writeInput(t *testing.T, content string) string {
	t.Helper()
	inputPath := filepath.Join(t.TempDir(), "input.bin")
	require.NoError(t, os.WriteFile(inputPath, []byte(content), 0o644))
	return inputPath
}

func newTestRunner(buf *bytes.Buffer) comparer.TextconvRunner {
	var handler slog.Handler
	if buf != nil {
		handler = slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		handler = slog.NewTextHandler(io.Discard, nil)
	}
	return NewExecTextconvRunner(handler)
}

func TestExecTextconvRunner_Run(t *testing.T) {
	t.Run("returns command stdout", func(t *testing.T) {
		r := newTestRunner(nil)
		script := writeScript(t, `cat "$1"`+"\n")
		inputPath := writeInput(t, "binary payload rendered as text\n")

		rule := comparer.TextconvRule{Pattern: "*.bin", Command: []string{script}}
		out, err := r.Run(context.Background(), rule, inputPath)
		require.NoError(t, err)
		assert.Equal(t, "binary payload rendered as text\n", string(out))
	})

	t.Run("appends the file path after configured arguments", func(t *testing.T) {
		r := newTestRunner(nil)
		script := writeScript(t, `echo "$1|$2"`+"\n")
		inputPath := writeInput(t, "x")

		rule := comparer.TextconvRule{Pattern: "*.bin", Command: []string{script, "--layout"}}
		out, err := r.Run(context.Background(), rule, inputPath)
		require.NoError(t, err)
		assert.Equal(t, "--layout|"+inputPath+"\n", string(out))
	})

	t.Run("captures stderr without failing the run", func(t *testing.T) {
		logBuf := &bytes.Buffer{}
		r := newTestRunner(logBuf)
		script := writeScript(t, "echo converted\necho grumble >&2\n")
		inputPath := writeInput(t, "x")

		rule := comparer.TextconvRule{Pattern: "*.bin", Command: []string{script}}
		out, err := r.Run(context.Background(), rule, inputPath)
		require.NoError(t, err)
		assert.Equal(t, "converted\n", string(out))
		assert.Contains(t, logBuf.String(), "grumble")
	})

	t.Run("reports non-zero exit", func(t *testing.T) {
		logBuf := &bytes.Buffer{}
		r := newTestRunner(logBuf)
		script := writeScript(t, "echo broken >&2\nexit 3\n")
		inputPath := writeInput(t, "x")

		rule := comparer.TextconvRule{Pattern: "*.bin", Command: []string{script}}
		_, err := r.Run(context.Background(), rule, inputPath)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "exited with code 3")
		assert.Contains(t, logBuf.String(), "broken")
	})

	t.Run("reports a missing executable", func(t *testing.T) {
		r := newTestRunner(nil)
		inputPath := writeInput(t, "x")

		rule := comparer.TextconvRule{Pattern: "*.bin", Command: []string{filepath.Join(t.TempDir(), "missing-tool")}}
		_, err := r.Run(context.Background(), rule, inputPath)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "starting textconv command")
	})

	t.Run("rejects an empty command", func(t *testing.T) {
		r := newTestRunner(nil)

		rule := comparer.TextconvRule{Pattern: "*.bin"}
		_, err := r.Run(context.Background(), rule, "whatever")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "empty command")
	})

	t.Run("honors context deadline", func(t *testing.T) {
		r := newTestRunner(nil)
		script := writeScript(t, "sleep 5\n")
		inputPath := writeInput(t, "x")

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		rule := comparer.TextconvRule{Pattern: "*.bin", Command: []string{script}}
		_, err := r.Run(ctx, rule, inputPath)
		require.Error(t, err)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("truncates oversized output", func(t *testing.T) {
		logBuf := &bytes.Buffer{}
		r := newTestRunner(logBuf)
		script := writeScript(t, "head -c 11000000 /dev/zero\n")
		inputPath := writeInput(t, "x")

		rule := comparer.TextconvRule{Pattern: "*.bin", Command: []string{script}}
		out, err := r.Run(context.Background(), rule, inputPath)
		require.NoError(t, err)
		assert.Len(t, out, int(comparer.TextconvMaxOutput))
		assert.Contains(t, logBuf.String(), "truncated")
	})
}

func TestNewExecTextconvRunner_NilHandler(t *testing.T) {
	r := NewExecTextconvRunner(nil)
	require.NotNil(t, r)

	script := writeScript(t, "echo ok\n")
	out, err := r.Run(context.Background(), comparer.TextconvRule{Pattern: "*", Command: []string{script}}, writeInput(t, "x"))
	require.NoError(t, err)
	assert.Equal(t, "ok\n", string(out))
}
