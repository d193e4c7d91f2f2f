//go:build !gogit

package git

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/diffreport/diffreport/pkg/comparer"
)

// commandTimeout bounds every spawned git command.
const commandTimeout = 60 * time.Second

// ExecGitClient implements comparer.GitClient by running the git executable.
type ExecGitClient struct {
	logger *slog.Logger
}

// NewClient returns the backend selected at build time, here the exec one.
func NewClient(loggerHandler slog.Handler) comparer.GitClient {
	if loggerHandler == nil {
		loggerHandler = slog.NewTextHandler(io.Discard, nil)
	}
	logger := slog.New(loggerHandler).With(slog.String("component", "gitClient"), slog.String("backend", "exec"))
	logger.Debug("using exec backend for git operations")
	return &ExecGitClient{logger: logger}
}

// runGit executes one git command in repoPath and returns trimmed stdout and
// stderr. Command failures come back unwrapped; callers decide how to
// classify them.
func (c *ExecGitClient) runGit(repoPath string, args ...string) (string, string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = repoPath
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	stdoutStr := strings.TrimSpace(stdout.String())
	stderrStr := strings.TrimSpace(stderr.String())
	if runErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return stdoutStr, stderrStr, fmt.Errorf("git %s in %s: %w", strings.Join(args, " "), repoPath, ctxErr)
		}
		return stdoutStr, stderrStr, fmt.Errorf("git %s in %s: %w (stderr: %s)", strings.Join(args, " "), repoPath, runErr, stderrStr)
	}
	return stdoutStr, stderrStr, nil
}

// GetChangedFiles lists repository paths changed according to mode. The
// diffOnly mode parses porcelain status and keeps staged, unstaged and
// untracked entries; the since mode diffs ref...HEAD.
func (c *ExecGitClient) GetChangedFiles(repoPath string, mode comparer.GitListMode, ref string) ([]string, error) {
	logArgs := []any{slog.String("repo", repoPath), slog.String("mode", string(mode)), slog.String("ref", ref)}
	c.logger.Debug("listing changed files", logArgs...)

	info, err := os.Stat(repoPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, Errorf("repository path does not exist: %s", repoPath)
		}
		return nil, Errorf("accessing repository path %s: %w", repoPath, err)
	}
	if !info.IsDir() {
		return nil, Errorf("repository path is not a directory: %s", repoPath)
	}

	switch mode {
	case comparer.GitListDiffOnly:
		stdout, stderr, err := c.runGit(repoPath, "status", "--porcelain=v1")
		if err != nil {
			c.logger.Error("git status failed", append(logArgs, slog.String("stderr", stderr), slog.Any("error", err))...)
			return nil, Errorf("git status: %w", err)
		}
		return parsePorcelain(stdout), nil

	case comparer.GitListSince:
		if ref == "" {
			return nil, Errorf("since mode requires a non-empty reference")
		}
		stdout, stderr, err := c.runGit(repoPath, "diff", "--name-only", ref+"...HEAD")
		if err != nil {
			if strings.Contains(stderr, "unknown revision") || strings.Contains(stderr, "bad revision") {
				c.logger.Error("invalid git reference", append(logArgs, slog.String("stderr", stderr))...)
				return nil, Errorf("invalid git reference %q", ref)
			}
			c.logger.Error("git diff failed", append(logArgs, slog.String("stderr", stderr), slog.Any("error", err))...)
			return nil, Errorf("git diff since %q: %w", ref, err)
		}
		var files []string
		for _, line := range strings.Split(stdout, "\n") {
			line = strings.Trim(strings.TrimSpace(line), `"`)
			if line != "" {
				files = append(files, filepath.ToSlash(line))
			}
		}
		return files, nil

	default:
		return nil, Errorf("unsupported git list mode: %s", mode)
	}
}

// ResolveHead returns the abbreviated HEAD commit hash of the repository at
// repoPath.
func (c *ExecGitClient) ResolveHead(repoPath string) (string, error) {
	stdout, stderr, err := c.runGit(repoPath, "rev-parse", "--short", "HEAD")
	if err != nil {
		c.logger.Debug("could not resolve HEAD", slog.String("repo", repoPath), slog.String("stderr", stderr), slog.Any("error", err))
		return "", Errorf("resolving HEAD in %s: %w", repoPath, err)
	}
	return stdout, nil
}

// parsePorcelain extracts final path names from porcelain v1 status lines.
// Ignored entries (!!) are dropped; renames keep the new name.
func parsePorcelain(out string) []string {
	var files []string
	for _, line := range strings.Split(out, "\n") {
		if len(line) <= 3 {
			continue
		}
		if strings.HasPrefix(line, "!!") {
			continue
		}
		rest := line[3:]
		if _, after, ok := strings.Cut(rest, " -> "); ok {
			rest = after
		}
		rest = strings.Trim(strings.TrimSpace(rest), `"`)
		if rest != "" {
			files = append(files, filepath.ToSlash(rest))
		}
	}
	return files
}
