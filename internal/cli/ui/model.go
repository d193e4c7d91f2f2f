// Package ui renders live comparison progress as a bubbletea application:
// a spinner and phase line while paths are enumerated, a scrollable list of
// per-path outcomes, and a summary footer.
package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/diffreport/diffreport/internal/cli/hooks"
	"github.com/diffreport/diffreport/pkg/comparer"
)

const (
	listHeightMargin = 4

	// refreshInterval batches list rebuilds; rebuilding on every status
	// message would thrash the renderer on large trees.
	refreshInterval = 80 * time.Millisecond
)

// Model is the bubbletea model for a comparison run. All mutation happens on
// the bubbletea event loop; hook events arrive as messages via Program.Send.
type Model struct {
	list    list.Model
	spinner spinner.Model
	version string

	width       int
	height      int
	initialized bool

	fileItems []listItem
	itemMap   map[string]int
	listDirty bool

	summary      Summary
	phaseMessage string
	fatalError   string
	quitting     bool
	done         bool
}

// listItem is one row of the path list.
type listItem struct {
	path     string
	status   comparer.Status
	message  string
	duration time.Duration
}

// Summary mirrors the footer counters during the run.
type Summary struct {
	TotalScanned int
	Changed      int
	Deleted      int
	Added        int
	Unchanged    int
	Skipped      int
	Failed       int
	StartTime    time.Time
}

// refreshTickMsg drives the periodic list rebuild.
type refreshTickMsg struct{}

// NewModel builds the initial model. The version appears in the header.
func NewModel(version string) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(colorStatusComparing)

	delegate := list.NewDefaultDelegate()
	delegate.SetSpacing(0)
	delegate.ShowDescription = true
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(colorSelectedFg).
		Background(colorSelectedBg).
		Bold(true).
		Padding(0, 0, 0, 1)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(colorSelectedDescFg).
		Background(colorSelectedBg).
		Padding(0, 0, 0, 1)
	delegate.Styles.NormalTitle = delegate.Styles.NormalTitle.
		Foreground(colorNormalFg).Padding(0, 0, 0, 1)
	delegate.Styles.NormalDesc = delegate.Styles.NormalDesc.
		Foreground(colorNormalDescFg).Padding(0, 0, 0, 1)

	l := list.New([]list.Item{}, delegate, 0, 0)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetShowTitle(false)
	l.SetShowFilter(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()

	return Model{
		list:         l,
		spinner:      s,
		version:      version,
		summary:      Summary{StartTime: time.Now()},
		phaseMessage: "Initializing...",
		fileItems:    make([]listItem, 0, 256),
		itemMap:      make(map[string]int),
	}
}

func refreshTick() tea.Cmd {
	return tea.Tick(refreshInterval, func(time.Time) tea.Msg { return refreshTickMsg{} })
}

// Init starts the spinner and the list refresh loop.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, refreshTick())
}

// Update handles terminal events and the hook messages published by the
// comparison engine.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		listHeight := m.height - listHeightMargin
		if listHeight < 1 {
			listHeight = 1
		}
		m.list.SetSize(m.width, listHeight)
		m.initialized = true

	case tea.KeyMsg:
		if m.quitting {
			return m, nil
		}
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}
		var listCmd tea.Cmd
		m.list, listCmd = m.list.Update(msg)
		cmds = append(cmds, listCmd)

	case spinner.TickMsg:
		if m.quitting || m.done {
			return m, nil
		}
		var spinnerCmd tea.Cmd
		m.spinner, spinnerCmd = m.spinner.Update(msg)
		cmds = append(cmds, spinnerCmd)

	case hooks.PathDiscoveredMsg:
		if _, exists := m.itemMap[msg.Path]; !exists {
			m.fileItems = append(m.fileItems, listItem{path: msg.Path, status: comparer.StatusPending})
			m.itemMap[msg.Path] = len(m.fileItems) - 1
			m.summary.TotalScanned++
			m.listDirty = true
		}
		if !m.quitting && (m.phaseMessage == "" || m.phaseMessage == "Initializing...") {
			m.phaseMessage = "Scanning..."
		}

	case hooks.PathStatusUpdateMsg:
		m.applyStatusUpdate(msg)
		if !m.quitting && msg.Status == comparer.StatusComparing && m.phaseMessage != "Comparing..." {
			m.phaseMessage = "Comparing..."
		}

	case hooks.RunCompleteMsg:
		m.finish(msg.Report)
		cmds = append(cmds, m.rebuildList(), tea.Quit)

	case refreshTickMsg:
		if m.done {
			return m, nil
		}
		if m.listDirty {
			cmds = append(cmds, m.rebuildList())
		}
		cmds = append(cmds, refreshTick())
	}

	return m, tea.Batch(cmds...)
}

// applyStatusUpdate folds one status message into the item list and the
// summary counters.
func (m *Model) applyStatusUpdate(msg hooks.PathStatusUpdateMsg) {
	idx, known := m.itemMap[msg.Path]
	if !known {
		m.fileItems = append(m.fileItems, listItem{
			path:     msg.Path,
			status:   msg.Status,
			message:  msg.Message,
			duration: msg.Duration,
		})
		m.itemMap[msg.Path] = len(m.fileItems) - 1
		m.summary.TotalScanned++
		if isFinalStatus(msg.Status) {
			m.bumpCount(msg.Status, 1)
		}
		m.listDirty = true
		return
	}

	item := &m.fileItems[idx]
	wasFinal := isFinalStatus(item.status)
	nowFinal := isFinalStatus(msg.Status)
	switch {
	case nowFinal && !wasFinal:
		m.bumpCount(msg.Status, 1)
	case nowFinal && wasFinal && item.status != msg.Status:
		m.bumpCount(item.status, -1)
		m.bumpCount(msg.Status, 1)
	case !nowFinal && wasFinal:
		m.bumpCount(item.status, -1)
	}
	item.status = msg.Status
	item.message = msg.Message
	if msg.Duration > 0 {
		item.duration = msg.Duration
	}
	m.listDirty = true
}

// finish applies the authoritative report counts and stops the run display.
func (m *Model) finish(report comparer.Report) {
	m.phaseMessage = "Complete"
	m.done = true
	m.summary.TotalScanned = report.Summary.TotalScanned
	m.summary.Changed = report.Summary.Totals.Changed
	m.summary.Deleted = report.Summary.Totals.Deleted
	m.summary.Added = report.Summary.Totals.Added
	m.summary.Unchanged = report.Summary.UnchangedCount
	m.summary.Skipped = report.Summary.SkippedCount
	m.summary.Failed = report.Summary.ErrorCount
	if report.Summary.FatalErrorOccurred {
		m.fatalError = "Run halted by a fatal error."
		for _, e := range report.Errors {
			if e.IsFatal {
				m.fatalError = fmt.Sprintf("Fatal: %s (%s)", e.Error, e.Path)
				break
			}
		}
	}
}

// Aborted reports whether the user quit before the run completed.
func (m *Model) Aborted() bool {
	return m.quitting && !m.done
}

// rebuildList pushes the current items into the list component.
func (m *Model) rebuildList() tea.Cmd {
	items := make([]list.Item, len(m.fileItems))
	for i, item := range m.fileItems {
		items[i] = item
	}
	m.listDirty = false
	return m.list.SetItems(items)
}

// View renders the header, path list, optional fatal error line and the
// summary footer.
func (m *Model) View() string {
	if m.quitting {
		return "Aborted.\n"
	}
	if !m.initialized {
		return "Initializing..."
	}

	headerLeft := fmt.Sprintf("diffreport v%s", m.version)
	headerRight := m.phaseMessage
	if m.phaseMessage != "Complete" && m.phaseMessage != "Initializing..." {
		headerRight = m.spinner.View() + " " + m.phaseMessage
	}
	headerPad := ""
	if w := m.width - lipgloss.Width(headerLeft) - lipgloss.Width(headerRight); w > 0 {
		headerPad = lipgloss.PlaceHorizontal(w, lipgloss.Center, " ")
	}
	header := headerStyle.Width(m.width).Render(lipgloss.JoinHorizontal(lipgloss.Top, headerLeft, headerPad, headerRight))

	elapsed := time.Since(m.summary.StartTime).Round(time.Millisecond)
	footerLeft := fmt.Sprintf(
		"Changed: %d | Deleted: %d | Added: %d | Unchanged: %d | Skipped: %d | Failed: %d | Scanned: %d | Elapsed: %s",
		m.summary.Changed,
		m.summary.Deleted,
		m.summary.Added,
		m.summary.Unchanged,
		m.summary.Skipped,
		m.summary.Failed,
		m.summary.TotalScanned,
		elapsed,
	)
	footerRight := "q: quit"
	footerPad := ""
	if w := m.width - lipgloss.Width(footerLeft) - lipgloss.Width(footerRight); w > 0 {
		footerPad = lipgloss.PlaceHorizontal(w, lipgloss.Center, " ")
	}
	footer := footerStyle.Width(m.width).Render(lipgloss.JoinHorizontal(lipgloss.Bottom, footerLeft, footerPad, footerRight))

	errorView := ""
	if m.fatalError != "" {
		errorView = statusStyleFailed.Render(m.fatalError) + "\n"
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.list.View(),
		errorView,
		footer,
	)
}

// isFinalStatus reports whether a status is terminal for a path.
func isFinalStatus(status comparer.Status) bool {
	switch status {
	case comparer.StatusChanged, comparer.StatusUnchanged, comparer.StatusAdded,
		comparer.StatusDeleted, comparer.StatusSkipped, comparer.StatusFailed:
		return true
	}
	return false
}

func (m *Model) bumpCount(status comparer.Status, delta int) {
	switch status {
	case comparer.StatusChanged:
		m.summary.Changed += delta
	case comparer.StatusDeleted:
		m.summary.Deleted += delta
	case comparer.StatusAdded:
		m.summary.Added += delta
	case comparer.StatusUnchanged:
		m.summary.Unchanged += delta
	case comparer.StatusSkipped:
		m.summary.Skipped += delta
	case comparer.StatusFailed:
		m.summary.Failed += delta
	}
}

// FilterValue implements list.Item.
func (i listItem) FilterValue() string { return i.path }

// Title implements list.DefaultItem.
func (i listItem) Title() string { return i.path }

// Description implements list.DefaultItem: a styled status marker plus the
// engine's message, falling back to the duration.
func (i listItem) Description() string {
	var style lipgloss.Style
	marker := " "
	switch i.status {
	case comparer.StatusChanged:
		style = statusStyleChanged
		marker = "~"
	case comparer.StatusAdded:
		style = statusStyleAdded
		marker = "+"
	case comparer.StatusDeleted:
		style = statusStyleDeleted
		marker = "-"
	case comparer.StatusUnchanged:
		style = statusStyleUnchanged
		marker = "="
	case comparer.StatusSkipped:
		style = statusStyleSkipped
		marker = "S"
	case comparer.StatusFailed:
		style = statusStyleFailed
		marker = "✗"
	case comparer.StatusComparing:
		style = statusStyleComparing
		marker = "…"
	default:
		style = statusStylePending
	}

	details := i.message
	if details == "" && i.duration > 0 {
		details = formatDuration(i.duration)
	}
	return fmt.Sprintf("%s %s", style.Render("["+marker+"]"), details)
}

// formatDuration renders a duration at a precision matching its magnitude.
func formatDuration(d time.Duration) string {
	switch {
	case d == 0:
		return ""
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	default:
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
}

const (
	colorHeaderFg = lipgloss.Color("252")
	colorHeaderBg = lipgloss.Color("62")

	colorFooterFg = lipgloss.Color("252")
	colorFooterBg = lipgloss.Color("56")

	colorNormalFg     = lipgloss.Color("250")
	colorNormalDescFg = lipgloss.Color("244")

	colorSelectedFg     = lipgloss.Color("255")
	colorSelectedBg     = lipgloss.Color("56")
	colorSelectedDescFg = lipgloss.Color("248")

	colorStatusChanged   = lipgloss.Color("214")
	colorStatusAdded     = lipgloss.Color("40")
	colorStatusDeleted   = lipgloss.Color("196")
	colorStatusUnchanged = lipgloss.Color("244")
	colorStatusSkipped   = lipgloss.Color("39")
	colorStatusFailed    = lipgloss.Color("196")
	colorStatusPending   = lipgloss.Color("244")
	colorStatusComparing = lipgloss.Color("205")
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorHeaderFg).
			Background(colorHeaderBg).
			Padding(0, 1)

	footerStyle = lipgloss.NewStyle().
			Foreground(colorFooterFg).
			Background(colorFooterBg).
			Padding(0, 1)

	statusStyleChanged   = lipgloss.NewStyle().Foreground(colorStatusChanged)
	statusStyleAdded     = lipgloss.NewStyle().Foreground(colorStatusAdded)
	statusStyleDeleted   = lipgloss.NewStyle().Foreground(colorStatusDeleted)
	statusStyleUnchanged = lipgloss.NewStyle().Foreground(colorStatusUnchanged)
	statusStyleSkipped   = lipgloss.NewStyle().Foreground(colorStatusSkipped)
	statusStyleFailed    = lipgloss.NewStyle().Foreground(colorStatusFailed)
	statusStylePending   = lipgloss.NewStyle().Foreground(colorStatusPending)
	statusStyleComparing = lipgloss.NewStyle().Foreground(colorStatusComparing)
)
