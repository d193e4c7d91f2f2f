// Package testutil provides shared testify mocks for the comparer's
// dependency interfaces, plus small fixture helpers for building file trees
// in tests.
package testutil

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/diffreport/diffreport/pkg/comparer"
)

var (
	_ comparer.Hooks          = (*MockHooks)(nil)
	_ comparer.GitClient      = (*MockGitClient)(nil)
	_ comparer.TextconvRunner = (*MockTextconvRunner)(nil)
)

// MockHooks mocks comparer.Hooks. Hook methods are called concurrently from
// worker goroutines, which testify's mock handles internally; any extra state
// a test layers on top needs its own synchronization.
type MockHooks struct {
	mock.Mock
}

func (m *MockHooks) OnPathDiscovered(path string) error {
	args := m.Called(path)
	return args.Error(0)
}

func (m *MockHooks) OnPathStatusUpdate(path string, status comparer.Status, message string, duration time.Duration) error {
	args := m.Called(path, status, message, duration)
	return args.Error(0)
}

func (m *MockHooks) OnRunComplete(report comparer.Report) error {
	args := m.Called(report)
	return args.Error(0)
}

// MockGitClient mocks comparer.GitClient.
type MockGitClient struct {
	mock.Mock
}

func (m *MockGitClient) GetChangedFiles(repoPath string, mode comparer.GitListMode, ref string) ([]string, error) {
	args := m.Called(repoPath, mode, ref)
	files, _ := args.Get(0).([]string)
	return files, args.Error(1)
}

func (m *MockGitClient) ResolveHead(repoPath string) (string, error) {
	args := m.Called(repoPath)
	hash, _ := args.Get(0).(string)
	return hash, args.Error(1)
}

// MockTextconvRunner mocks comparer.TextconvRunner.
type MockTextconvRunner struct {
	mock.Mock
}

func (m *MockTextconvRunner) Run(ctx context.Context, rule comparer.TextconvRule, filePath string) ([]byte, error) {
	args := m.Called(ctx, rule, filePath)
	out, _ := args.Get(0).([]byte)
	return out, args.Error(1)
}
