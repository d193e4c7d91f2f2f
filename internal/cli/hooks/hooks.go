// Package hooks bridges comparer events to the CLI's output layer: the
// bubbletea TUI, the plain progress listing, or structured verbose logs.
package hooks

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/diffreport/diffreport/pkg/comparer"
)

// PathDiscoveredMsg signals that the enumerator found a comparable path.
type PathDiscoveredMsg struct{ Path string }

// PathStatusUpdateMsg signals a change in a path's comparison status.
type PathStatusUpdateMsg struct {
	Path     string
	Status   comparer.Status
	Message  string
	Duration time.Duration
}

// RunCompleteMsg carries the final report once the whole run is done.
type RunCompleteMsg struct{ Report comparer.Report }

// TUIProgram is the slice of *tea.Program the hooks need.
type TUIProgram interface {
	Send(msg tea.Msg)
}

// noOpTUIProgram drops every message.
type noOpTUIProgram struct{}

func (n *noOpTUIProgram) Send(msg tea.Msg) {}

// CLIHooks implements comparer.Hooks. In TUI mode events become bubbletea
// messages; in verbose mode they become log records; otherwise they are
// written as the classic progress listing, one line per settled path.
type CLIHooks struct {
	logger     *slog.Logger
	tuiEnabled bool
	verbose    bool
	tui        TUIProgram

	mu           sync.Mutex
	progressOut  io.Writer
	discovered   int
	totalPrinted bool
}

// NewCLIHooks builds the event bridge. Pass nil for tui when no TUI is
// running and nil for progressOut to write the plain listing to stderr.
func NewCLIHooks(logger *slog.Logger, tuiEnabled, verbose bool, tui TUIProgram, progressOut io.Writer) comparer.Hooks {
	if tui == nil {
		tui = &noOpTUIProgram{}
	}
	if progressOut == nil {
		progressOut = os.Stderr
	}
	return &CLIHooks{
		logger:      logger,
		tuiEnabled:  tuiEnabled,
		verbose:     verbose,
		tui:         tui,
		progressOut: progressOut,
	}
}

// OnPathDiscovered counts enumerated paths so the plain listing can report
// the total before the first status line.
func (h *CLIHooks) OnPathDiscovered(path string) error {
	h.mu.Lock()
	h.discovered++
	h.mu.Unlock()

	if h.tuiEnabled {
		h.tui.Send(PathDiscoveredMsg{Path: path})
	} else if h.verbose {
		h.logger.Debug("path discovered", slog.String("path", path))
	}
	return nil
}

// OnPathStatusUpdate routes a status change to the active output mode. Safe
// for concurrent use; workers report from multiple goroutines.
func (h *CLIHooks) OnPathStatusUpdate(path string, status comparer.Status, message string, duration time.Duration) error {
	if h.tuiEnabled {
		h.tui.Send(PathStatusUpdateMsg{Path: path, Status: status, Message: message, Duration: duration})
		return nil
	}

	if h.verbose {
		h.logVerbose(path, status, message, duration)
		return nil
	}

	h.mu.Lock()
	if !h.totalPrinted {
		h.totalPrinted = true
		fmt.Fprintf(h.progressOut, "total %d files to check\n", h.discovered)
	}
	switch status {
	case comparer.StatusChanged, comparer.StatusAdded, comparer.StatusDeleted, comparer.StatusSkipped, comparer.StatusFailed:
		if message != "" {
			fmt.Fprintf(h.progressOut, "  * %-40s | %s\n", path, message)
		} else {
			fmt.Fprintf(h.progressOut, "  * %-40s |\n", path)
		}
	}
	h.mu.Unlock()

	if status == comparer.StatusFailed {
		h.logger.Error("path processing failed", slog.String("path", path), slog.String("error", message))
	}
	return nil
}

func (h *CLIHooks) logVerbose(path string, status comparer.Status, message string, duration time.Duration) {
	level := slog.LevelDebug
	logMsg := "path status updated"
	attrs := []any{
		slog.String("path", path),
		slog.String("status", string(status)),
	}
	if duration > 0 {
		attrs = append(attrs, slog.Duration("duration", duration))
	}
	if message != "" {
		key := "message"
		if status == comparer.StatusFailed {
			key = "error"
		}
		attrs = append(attrs, slog.String(key, message))
	}

	switch status {
	case comparer.StatusChanged, comparer.StatusUnchanged, comparer.StatusAdded, comparer.StatusDeleted, comparer.StatusSkipped:
		level = slog.LevelInfo
	case comparer.StatusFailed:
		level = slog.LevelError
		logMsg = "path processing failed"
	}
	h.logger.Log(nil, level, logMsg, attrs...)
}

// OnRunComplete forwards the final report to the TUI. The plain listing
// still reports the enumeration total when no path produced a line.
func (h *CLIHooks) OnRunComplete(report comparer.Report) error {
	if h.tuiEnabled {
		h.tui.Send(RunCompleteMsg{Report: report})
		return nil
	}
	if !h.verbose {
		h.mu.Lock()
		if !h.totalPrinted {
			h.totalPrinted = true
			fmt.Fprintf(h.progressOut, "total %d files to check\n", h.discovered)
		}
		h.mu.Unlock()
	}
	return nil
}
