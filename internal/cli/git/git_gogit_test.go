//go:build gogit

package git

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diffreport/diffreport/pkg/comparer"
)

func testSignature() *object.Signature {
	return &object.Signature{Name: "Test User", Email: "test@example.com", When: time.Now()}
}

func commitFile(t *testing.T, repoPath string, wt *gogit.Worktree, name, content, message string) plumbing.Hash {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(repoPath, name), []byte(content), 0o644))
	_, err := wt.Add(name)
	require.NoError(t, err)
	hash, err := wt.Commit(message, &gogit.CommitOptions{Author: testSignature()})
	require.NoError(t, err)
	return hash
}

// initTestRepo builds a repository with two commits: C1 adds README.md, C2
// adds main.go. It returns the worktree path, the worktree, and both hashes.
func initTestRepo(t *testing.T) (string, *gogit.Worktree, plumbing.Hash, plumbing.Hash) {
	t.Helper()
	repoPath, err := filepath.Abs(t.TempDir())
	require.NoError(t, err)

	repo, err := gogit.PlainInit(repoPath, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	first := commitFile(t, repoPath, wt, "README.md", "# readme\n", "add readme")
	second := commitFile(t, repoPath, wt, "main.go", "package main\n\nfunc main() {}\n", "add main.go")
	return repoPath, wt, first, second
}

func newTestClient(t *testing.T) comparer.GitClient {
	t.Helper()
	client := NewClient(slog.NewTextHandler(io.Discard, nil))
	require.NotNil(t, client)
	return client
}

func TestGoGitClient_GetChangedFiles(t *testing.T) {
	t.Run("diff only with staged unstaged and untracked", func(t *testing.T) {
		client := newTestClient(t)
		repoPath, wt, _, _ := initTestRepo(t)

		require.NoError(t, os.WriteFile(filepath.Join(repoPath, "main.go"), []byte("package main\n"), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(repoPath, "staged.txt"), []byte("staged\n"), 0o644))
		_, err := wt.Add("staged.txt")
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(repoPath, "untracked.txt"), []byte("untracked\n"), 0o644))

		files, err := client.GetChangedFiles(repoPath, comparer.GitListDiffOnly, "")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"main.go", "staged.txt", "untracked.txt"}, files)
	})

	t.Run("diff only with staged deletion", func(t *testing.T) {
		client := newTestClient(t)
		repoPath, wt, _, _ := initTestRepo(t)

		_, err := wt.Remove("main.go")
		require.NoError(t, err)

		files, err := client.GetChangedFiles(repoPath, comparer.GitListDiffOnly, "")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"main.go"}, files)
	})

	t.Run("diff only with clean worktree", func(t *testing.T) {
		client := newTestClient(t)
		repoPath, _, _, _ := initTestRepo(t)

		files, err := client.GetChangedFiles(repoPath, comparer.GitListDiffOnly, "")
		require.NoError(t, err)
		assert.Empty(t, files)
	})

	t.Run("since first commit", func(t *testing.T) {
		client := newTestClient(t)
		repoPath, _, first, _ := initTestRepo(t)

		files, err := client.GetChangedFiles(repoPath, comparer.GitListSince, first.String())
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"main.go"}, files)
	})

	t.Run("since covers deletions and additions", func(t *testing.T) {
		client := newTestClient(t)
		repoPath, wt, _, second := initTestRepo(t)

		_, err := wt.Remove("main.go")
		require.NoError(t, err)
		commitFile(t, repoPath, wt, "notes.txt", "notes\n", "replace main.go with notes")

		files, err := client.GetChangedFiles(repoPath, comparer.GitListSince, second.String())
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"main.go", "notes.txt"}, files)
	})

	t.Run("since with invalid reference", func(t *testing.T) {
		client := newTestClient(t)
		repoPath, _, _, _ := initTestRepo(t)

		_, err := client.GetChangedFiles(repoPath, comparer.GitListSince, "no-such-ref")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrGitOperation)
		assert.Contains(t, err.Error(), `invalid git reference "no-such-ref"`)
	})

	t.Run("since with empty reference", func(t *testing.T) {
		client := newTestClient(t)
		repoPath, _, _, _ := initTestRepo(t)

		_, err := client.GetChangedFiles(repoPath, comparer.GitListSince, "")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrGitOperation)
		assert.Contains(t, err.Error(), "requires a non-empty reference")
	})

	t.Run("path outside any repository", func(t *testing.T) {
		client := newTestClient(t)

		_, err := client.GetChangedFiles(t.TempDir(), comparer.GitListDiffOnly, "")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrGitOperation)
		assert.Contains(t, err.Error(), "no repository found")
	})

	t.Run("unsupported list mode", func(t *testing.T) {
		client := newTestClient(t)
		repoPath, _, _, _ := initTestRepo(t)

		_, err := client.GetChangedFiles(repoPath, comparer.GitListMode("rebase"), "")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrGitOperation)
		assert.Contains(t, err.Error(), "unsupported git list mode")
	})
}

func TestGoGitClient_ResolveHead(t *testing.T) {
	t.Run("returns abbreviated hash", func(t *testing.T) {
		client := newTestClient(t)
		repoPath, _, _, second := initTestRepo(t)

		got, err := client.ResolveHead(repoPath)
		require.NoError(t, err)
		assert.Equal(t, second.String()[:7], got)
	})

	t.Run("fails on a repository without commits", func(t *testing.T) {
		client := newTestClient(t)
		repoPath := t.TempDir()
		_, err := gogit.PlainInit(repoPath, false)
		require.NoError(t, err)

		_, err = client.ResolveHead(repoPath)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrGitOperation)
	})
}
