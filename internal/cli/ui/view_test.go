package ui

import (
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diffreport/diffreport/pkg/comparer"
)

func newViewModel(t *testing.T) *Model {
	t.Helper()
	m := newTestModel(80, 25)
	items := []listItem{
		{path: "src/changed.go", status: comparer.StatusChanged, message: "Changed/Deleted/Added: 3/1/2"},
		{path: "src/added.go", status: comparer.StatusAdded, message: "New file"},
		{path: "src/pending.go", status: comparer.StatusPending},
	}
	m.fileItems = items
	listItems := make([]list.Item, len(items))
	for i, it := range items {
		listItems[i] = it
	}
	m.list.SetItems(listItems)
	m.summary = Summary{
		TotalScanned: 3,
		Changed:      1,
		Added:        1,
		StartTime:    time.Now().Add(-2 * time.Second),
	}
	m.phaseMessage = "Comparing..."
	return m
}

func TestView_Initializing(t *testing.T) {
	m := NewModel("test")
	assert.Contains(t, m.View(), "Initializing...")
}

func TestView_Quitting(t *testing.T) {
	m := newViewModel(t)
	m.quitting = true
	assert.Equal(t, "Aborted.\n", m.View())
}

func TestView_BasicLayout(t *testing.T) {
	m := newViewModel(t)
	view := m.View()

	assert.Contains(t, view, "diffreport vtest")
	assert.Contains(t, view, "Comparing...")

	assert.Contains(t, view, "src/changed.go")
	assert.Contains(t, view, "src/added.go")
	assert.Contains(t, view, "src/pending.go")
	assert.Contains(t, view, "[~]")
	assert.Contains(t, view, "[+]")
	assert.Contains(t, view, "Changed/Deleted/Added: 3/1/2")

	assert.Contains(t, view, "Changed: 1")
	assert.Contains(t, view, "Scanned: 3")
	assert.Contains(t, view, "Elapsed:")
	assert.Contains(t, view, "q: quit")
}

func TestView_CompletePhaseHidesSpinner(t *testing.T) {
	m := newViewModel(t)
	m.phaseMessage = "Complete"
	m.done = true

	view := m.View()
	assert.NotContains(t, view, "Comparing...")
	assert.Contains(t, view, "diffreport vtest")
}

func TestView_FatalError(t *testing.T) {
	m := newViewModel(t)
	m.fatalError = "Fatal: permission denied (src/secret.go)"

	view := m.View()
	assert.Contains(t, view, "Fatal: permission denied (src/secret.go)")
}

func TestView_FooterCounts(t *testing.T) {
	m := newViewModel(t)
	m.summary = Summary{
		TotalScanned: 42,
		Changed:      10,
		Deleted:      5,
		Added:        7,
		Unchanged:    15,
		Skipped:      4,
		Failed:       1,
		StartTime:    time.Now(),
	}

	view := m.View()
	assert.Contains(t, view, "Changed: 10")
	assert.Contains(t, view, "Deleted: 5")
	assert.Contains(t, view, "Added: 7")
	assert.Contains(t, view, "Unchanged: 15")
	assert.Contains(t, view, "Skipped: 4")
	assert.Contains(t, view, "Failed: 1")
	assert.Contains(t, view, "Scanned: 42")
}

func TestView_NarrowTerminal(t *testing.T) {
	m := newTestModel(20, 6)
	m.phaseMessage = "Scanning..."

	view := m.View()
	require.NotEmpty(t, view)
	assert.Contains(t, view, "diffreport vtest")
}
