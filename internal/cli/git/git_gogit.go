//go:build gogit

package git

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/diffreport/diffreport/pkg/comparer"
)

const patchTimeout = 60 * time.Second

// GoGitClient implements comparer.GitClient with the go-git library, for
// environments without a git executable.
type GoGitClient struct {
	logger *slog.Logger
}

// NewClient returns the backend selected at build time, here the go-git one.
func NewClient(loggerHandler slog.Handler) comparer.GitClient {
	if loggerHandler == nil {
		loggerHandler = slog.NewTextHandler(io.Discard, nil)
	}
	logger := slog.New(loggerHandler).With(slog.String("component", "gitClient"), slog.String("backend", "go-git"))
	logger.Debug("using go-git backend for git operations")
	return &GoGitClient{logger: logger}
}

func (c *GoGitClient) openRepo(repoPath string) (*gogit.Repository, error) {
	absRepoPath, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, Errorf("resolving repository path %s: %w", repoPath, err)
	}
	repo, err := gogit.PlainOpenWithOptions(absRepoPath, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, gogit.ErrRepositoryNotExists) {
			return nil, Errorf("no repository found at or above %s", absRepoPath)
		}
		return nil, Errorf("opening repository at %s: %w", absRepoPath, err)
	}
	return repo, nil
}

// GetChangedFiles lists repository paths changed according to mode. The
// diffOnly mode reads worktree status and keeps staged, unstaged and
// untracked entries; the since mode diffs the resolved ref against HEAD.
func (c *GoGitClient) GetChangedFiles(repoPath string, mode comparer.GitListMode, ref string) ([]string, error) {
	logArgs := []any{slog.String("repo", repoPath), slog.String("mode", string(mode)), slog.String("ref", ref)}
	c.logger.Debug("listing changed files", logArgs...)

	repo, err := c.openRepo(repoPath)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})

	switch mode {
	case comparer.GitListDiffOnly:
		worktree, err := repo.Worktree()
		if err != nil {
			return nil, Errorf("reading worktree of %s: %w", repoPath, err)
		}
		status, err := worktree.Status()
		if err != nil {
			return nil, Errorf("reading status of %s: %w", repoPath, err)
		}
		for path, st := range status {
			if st.Staging == gogit.Unmodified && st.Worktree == gogit.Unmodified {
				continue
			}
			seen[filepath.ToSlash(path)] = struct{}{}
		}

	case comparer.GitListSince:
		if ref == "" {
			return nil, Errorf("since mode requires a non-empty reference")
		}
		headRef, err := repo.Head()
		if err != nil {
			if errors.Is(err, plumbing.ErrReferenceNotFound) {
				c.logger.Warn("repository has no HEAD, treating as empty", logArgs...)
				return nil, nil
			}
			return nil, Errorf("reading HEAD of %s: %w", repoPath, err)
		}
		headCommit, err := repo.CommitObject(headRef.Hash())
		if err != nil {
			return nil, Errorf("loading HEAD commit of %s: %w", repoPath, err)
		}

		sinceHash, err := repo.ResolveRevision(plumbing.Revision(ref))
		if err != nil {
			if errors.Is(err, plumbing.ErrReferenceNotFound) || errors.Is(err, plumbing.ErrObjectNotFound) {
				return nil, Errorf("invalid git reference %q", ref)
			}
			return nil, Errorf("resolving git reference %q: %w", ref, err)
		}
		sinceCommit, err := repo.CommitObject(*sinceHash)
		if err != nil {
			return nil, Errorf("loading commit for reference %q: %w", ref, err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), patchTimeout)
		defer cancel()
		patch, err := sinceCommit.PatchContext(ctx, headCommit)
		if err != nil {
			return nil, Errorf("diffing %q against HEAD in %s: %w", ref, repoPath, err)
		}
		for _, filePatch := range patch.FilePatches() {
			from, to := filePatch.Files()
			if to != nil {
				seen[filepath.ToSlash(to.Path())] = struct{}{}
			} else if from != nil {
				seen[filepath.ToSlash(from.Path())] = struct{}{}
			}
		}

	default:
		return nil, Errorf("unsupported git list mode: %s", mode)
	}

	files := make([]string, 0, len(seen))
	for path := range seen {
		files = append(files, path)
	}
	c.logger.Debug("changed files listed", append(logArgs, slog.Int("count", len(files)))...)
	return files, nil
}

// ResolveHead returns the abbreviated HEAD commit hash of the repository at
// repoPath.
func (c *GoGitClient) ResolveHead(repoPath string) (string, error) {
	repo, err := c.openRepo(repoPath)
	if err != nil {
		return "", err
	}
	headRef, err := repo.Head()
	if err != nil {
		return "", Errorf("reading HEAD of %s: %w", repoPath, err)
	}
	hash := headRef.Hash().String()
	if len(hash) > 7 {
		hash = hash[:7]
	}
	return hash, nil
}
