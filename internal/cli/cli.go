// Package cli orchestrates a full run on behalf of the root command: the
// interactive overwrite confirmation, construction of the optional
// dependencies (git client, textconv runner) and the choice between the
// progress TUI and plain log output.
package cli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/diffreport/diffreport/internal/cli/git"
	"github.com/diffreport/diffreport/internal/cli/hooks"
	"github.com/diffreport/diffreport/internal/cli/runner"
	"github.com/diffreport/diffreport/internal/cli/ui"
	"github.com/diffreport/diffreport/pkg/comparer"
)

// ErrAborted is returned when the user quits the TUI before the run finished.
var ErrAborted = errors.New("run aborted")

// Run executes a comparison with the validated options. It wires the stdin
// path list, confirms overwriting an existing destination, builds the
// dependencies the options call for and runs the comparer under either the
// TUI or plain progress output.
func Run(ctx context.Context, opts comparer.Options, logger *slog.Logger) error {
	if opts.FileListPath == "-" {
		opts.FileListReader = os.Stdin
	}

	if err := confirmOverwrite(&opts, os.Stdin, os.Stderr); err != nil {
		return err
	}

	if opts.GitClient == nil && (opts.GitListMode != comparer.GitListNone || opts.GitMetadataEnabled) {
		opts.GitClient = git.NewClient(opts.Logger)
	}
	if opts.TextconvRunner == nil && len(opts.TextconvRules) > 0 {
		opts.TextconvRunner = runner.NewExecTextconvRunner(opts.Logger)
	}

	// The TUI needs stderr on a terminal for rendering and stdin free for
	// keystrokes, which rules out runs fed a path list on stdin. Callers
	// that inject their own hooks take over progress reporting entirely.
	useTui := opts.EventHooks == nil && opts.TuiEnabled && opts.FileListPath != "-" &&
		term.IsTerminal(int(os.Stderr.Fd()))

	var (
		report comparer.Report
		err    error
	)
	if useTui {
		report, err = runWithTui(ctx, &opts)
	} else {
		if opts.EventHooks == nil {
			opts.EventHooks = hooks.NewCLIHooks(logger, false, opts.Verbose, nil, nil)
		}
		report, err = comparer.Run(ctx, &opts)
	}
	if err != nil {
		logger.Error("run failed", slog.String("error", err.Error()))
		return err
	}

	logger.Info("report written",
		slog.String("output", report.Summary.OutputPath),
		slog.Int("scanned", report.Summary.TotalScanned),
		slog.Int("changed", report.Summary.Totals.Changed),
		slog.Int("deleted", report.Summary.Totals.Deleted),
		slog.Int("added", report.Summary.Totals.Added),
		slog.Int("unchanged", report.Summary.UnchangedCount),
		slog.Int("skipped", report.Summary.SkippedCount),
		slog.Int("errors", report.Summary.ErrorCount),
		slog.Int("pages", report.Summary.PagesWritten))
	if report.Summary.ErrorCount > 0 {
		logger.Warn("some paths could not be processed",
			slog.Int("errors", report.Summary.ErrorCount))
	}
	return nil
}

// confirmOverwrite guards an existing output destination. A "yes" answer
// flips ForceOverwrite so the comparer's own conflict check passes; "no"
// aborts. When the path list comes from stdin there is no way to read an
// answer, so the run refuses outright.
func confirmOverwrite(opts *comparer.Options, in io.Reader, out io.Writer) error {
	if opts.ForceOverwrite {
		return nil
	}
	if _, err := os.Stat(opts.OutputPath); err != nil {
		return nil
	}
	if opts.FileListPath == "-" {
		return fmt.Errorf("%w: %s: the path list comes from stdin, pass --yes to allow overwriting",
			comparer.ErrOutputConflict, opts.OutputPath)
	}

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprintf(out, "`%s' exists, are you sure you want to overwrite it (yes/no)? ", opts.OutputPath)
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return fmt.Errorf("%w: %s", comparer.ErrOutputConflict, opts.OutputPath)
		}
		switch strings.TrimSpace(scanner.Text()) {
		case "yes":
			opts.ForceOverwrite = true
			return nil
		case "no":
			return fmt.Errorf("%w: %s", comparer.ErrOutputConflict, opts.OutputPath)
		}
	}
}

// runWithTui runs the comparer in a goroutine feeding events to a bubbletea
// program that owns the terminal until the run completes or the user quits.
// Logging competes with the TUI for stderr, so it is buffered and flushed
// once the terminal is released.
func runWithTui(ctx context.Context, opts *comparer.Options) (comparer.Report, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var logBuf bytes.Buffer
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	bufHandler := slog.NewTextHandler(&logBuf, &slog.HandlerOptions{Level: level})
	opts.Logger = bufHandler
	tuiLogger := slog.New(bufHandler)

	model := ui.NewModel(opts.AppVersion)
	program := tea.NewProgram(&model, tea.WithOutput(os.Stderr))
	opts.EventHooks = hooks.NewCLIHooks(tuiLogger, true, false, program, nil)

	type runResult struct {
		report comparer.Report
		err    error
	}
	results := make(chan runResult, 1)
	go func() {
		report, err := comparer.Run(runCtx, opts)
		results <- runResult{report: report, err: err}
	}()

	finalModel, tuiErr := program.Run()
	aborted := false
	if m, ok := finalModel.(*ui.Model); ok {
		aborted = m.Aborted()
	}
	if aborted || tuiErr != nil {
		cancel()
	}
	res := <-results

	if logBuf.Len() > 0 {
		_, _ = io.Copy(os.Stderr, &logBuf)
	}

	if res.err != nil && !errors.Is(res.err, context.Canceled) {
		return res.report, res.err
	}
	if tuiErr != nil {
		return res.report, fmt.Errorf("progress display failed: %w", tuiErr)
	}
	if aborted {
		return res.report, ErrAborted
	}
	return res.report, res.err
}
