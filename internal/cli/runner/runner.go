// Package runner executes textconv filters as external processes.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/diffreport/diffreport/pkg/comparer"
)

// runTimeout bounds a single textconv invocation.
const runTimeout = 60 * time.Second

// execTextconvRunner implements comparer.TextconvRunner with os/exec.
type execTextconvRunner struct {
	logger *slog.Logger
}

// NewExecTextconvRunner returns a TextconvRunner that runs each rule's
// command as a child process, with the file path appended as the last
// argument.
func NewExecTextconvRunner(loggerHandler slog.Handler) comparer.TextconvRunner {
	if loggerHandler == nil {
		loggerHandler = slog.NewTextHandler(io.Discard, nil)
	}
	logger := slog.New(loggerHandler).With(slog.String("component", "textconvRunner"))
	return &execTextconvRunner{logger: logger}
}

// Run executes rule.Command with filePath appended and returns the command's
// stdout, truncated at comparer.TextconvMaxOutput bytes. A cancelled context,
// a failure to start, or a non-zero exit is reported as an error; the caller
// decides what to do with the file then.
func (r *execTextconvRunner) Run(ctx context.Context, rule comparer.TextconvRule, filePath string) ([]byte, error) {
	logArgs := []any{
		slog.String("pattern", rule.Pattern),
		slog.String("path", filePath),
	}

	if len(rule.Command) == 0 {
		return nil, fmt.Errorf("textconv rule %q has an empty command", rule.Pattern)
	}

	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	argv := append(append([]string{}, rule.Command...), filePath)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)

	var stderrBuf bytes.Buffer
	cmd.Stderr = &stderrBuf

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("creating stdout pipe for %s: %w", argv[0], err)
	}

	if err := cmd.Start(); err != nil {
		r.logger.Error("textconv command failed to start", append(logArgs, slog.String("command", strings.Join(argv, " ")), slog.Any("error", err))...)
		return nil, fmt.Errorf("starting textconv command %s: %w", argv[0], err)
	}
	r.logger.Debug("textconv command started", append(logArgs, slog.String("command", strings.Join(argv, " ")))...)

	var stdoutBuf bytes.Buffer
	written, readErr := io.Copy(&stdoutBuf, io.LimitReader(stdoutPipe, comparer.TextconvMaxOutput))
	if readErr == nil && written >= comparer.TextconvMaxOutput {
		r.logger.Warn("textconv output truncated", append(logArgs, slog.Int64("limitBytes", comparer.TextconvMaxOutput))...)
		_, _ = io.Copy(io.Discard, stdoutPipe)
	}

	waitErr := cmd.Wait()
	stderr := strings.TrimSpace(stderrBuf.String())

	if ctxErr := ctx.Err(); ctxErr != nil {
		r.logger.Warn("textconv command cancelled or timed out", append(logArgs, slog.Any("error", ctxErr))...)
		return nil, fmt.Errorf("textconv command %s: %w", argv[0], ctxErr)
	}
	if waitErr != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		if stderr != "" {
			logArgs = append(logArgs, slog.String("stderr", stderr))
		}
		r.logger.Warn("textconv command failed", append(logArgs, slog.Int("exitCode", exitCode), slog.Any("error", waitErr))...)
		return nil, fmt.Errorf("textconv command %s exited with code %d: %w", argv[0], exitCode, waitErr)
	}
	if readErr != nil {
		return nil, fmt.Errorf("reading textconv output of %s: %w", argv[0], readErr)
	}

	if stderr != "" {
		r.logger.Debug("textconv command wrote to stderr", append(logArgs, slog.String("stderr", stderr))...)
	}
	r.logger.Debug("textconv command finished", append(logArgs, slog.Int("outputBytes", stdoutBuf.Len()))...)
	return stdoutBuf.Bytes(), nil
}
