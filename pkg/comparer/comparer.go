// Package comparer compares two files or two directory trees and writes a
// static HTML report: per-file context, unified, and side-by-side diffs,
// rendered source views, and paginated index pages linking it all together.
package comparer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/diffreport/diffreport/pkg/comparer/cache"
	"github.com/diffreport/diffreport/pkg/comparer/encoding"
	"github.com/diffreport/diffreport/pkg/comparer/htmldiff"
	"github.com/diffreport/diffreport/pkg/comparer/language"
	"github.com/diffreport/diffreport/pkg/comparer/template"
)

// Run compares opts.OldPath against opts.NewPath and writes the report to
// opts.OutputPath. Two regular files produce a single side-by-side page;
// two directories produce the full per-file artifact tree with index pages.
// Anything else fails the precondition check.
func Run(ctx context.Context, opts *Options) (Report, error) {
	if err := normalizeOptions(opts); err != nil {
		return Report{}, err
	}
	logger := slog.New(opts.Logger).With(slog.String("component", "comparer"))

	oldInfo, err := os.Stat(opts.OldPath)
	if err != nil {
		return Report{}, fmt.Errorf("%w: %s: %w", ErrPrecondition, opts.OldPath, err)
	}
	newInfo, err := os.Stat(opts.NewPath)
	if err != nil {
		return Report{}, fmt.Errorf("%w: %s: %w", ErrPrecondition, opts.NewPath, err)
	}

	switch {
	case oldInfo.Mode().IsRegular() && newInfo.Mode().IsRegular():
		return runFileMode(ctx, opts, logger)
	case oldInfo.IsDir() && newInfo.IsDir():
		if err := checkOutputConflict(opts); err != nil {
			return Report{}, err
		}
		engine, err := NewEngine(ctx, opts)
		if err != nil {
			return Report{}, err
		}
		return engine.Run()
	default:
		return Report{}, fmt.Errorf("%w: %s and %s are of different type, aborted",
			ErrPrecondition, opts.OldPath, opts.NewPath)
	}
}

// normalizeOptions validates opts and fills defaults for the fields the
// engine needs settled. It is idempotent.
func normalizeOptions(opts *Options) error {
	if opts == nil {
		return fmt.Errorf("%w: options must not be nil", ErrConfigValidation)
	}
	if opts.Logger == nil {
		return fmt.Errorf("%w: a logger handler is required", ErrConfigValidation)
	}
	if opts.OldPath == "" || opts.NewPath == "" {
		return fmt.Errorf("%w: both comparison paths are required", ErrConfigValidation)
	}
	if opts.OutputPath == "" {
		return fmt.Errorf("%w: an output path is required", ErrConfigValidation)
	}
	if opts.Concurrency < 0 {
		return fmt.Errorf("%w: concurrency must not be negative", ErrConfigValidation)
	}
	if opts.ContextLines < 0 {
		return fmt.Errorf("%w: context line count must not be negative", ErrConfigValidation)
	}
	if opts.WrapColumn < 0 {
		return fmt.Errorf("%w: wrap column must not be negative", ErrConfigValidation)
	}
	if opts.StripLevel < 0 {
		return fmt.Errorf("%w: strip level must not be negative", ErrConfigValidation)
	}

	if opts.EventHooks == nil {
		opts.EventHooks = &NoOpHooks{}
	}
	if opts.AppVersion == "" {
		opts.AppVersion = "dev"
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	switch opts.OnErrorMode {
	case "":
		opts.OnErrorMode = DefaultOnErrorMode
	case OnErrorStop, OnErrorContinue:
	default:
		return fmt.Errorf("%w: unknown onError mode %q", ErrConfigValidation, opts.OnErrorMode)
	}
	switch opts.CacheFormat {
	case "":
		opts.CacheFormat = cache.DefaultFormat
	case cache.FormatGob, cache.FormatJSON:
	default:
		return fmt.Errorf("%w: unknown cache format %q", ErrConfigValidation, opts.CacheFormat)
	}
	switch opts.GitListMode {
	case "":
		opts.GitListMode = GitListNone
	case GitListNone, GitListDiffOnly, GitListSince:
	default:
		return fmt.Errorf("%w: unknown git list mode %q", ErrConfigValidation, opts.GitListMode)
	}
	return nil
}

// checkOutputConflict rejects an existing output destination unless
// overwriting was confirmed.
func checkOutputConflict(opts *Options) error {
	if opts.ForceOverwrite {
		return nil
	}
	if _, err := os.Stat(opts.OutputPath); err == nil {
		return fmt.Errorf("%w: %s already exists", ErrOutputConflict, opts.OutputPath)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s: %w", ErrStatFailed, opts.OutputPath, err)
	}
	return nil
}

// deriveTitle builds the report title from the configured title or the two
// root names, annotated with git HEAD hashes when enabled.
func deriveTitle(opts *Options, logger *slog.Logger) string {
	if opts.Title != "" {
		return opts.Title
	}
	return labelForRoot(opts, logger, opts.OldPath) + " vs " + labelForRoot(opts, logger, opts.NewPath)
}

func labelForRoot(opts *Options, logger *slog.Logger, root string) string {
	if !opts.GitMetadataEnabled || opts.GitClient == nil {
		return root
	}
	hash, err := opts.GitClient.ResolveHead(root)
	if err != nil || hash == "" {
		logger.Debug("no git metadata for root", slog.String("root", root))
		return root
	}
	return fmt.Sprintf("%s (%s)", root, hash)
}

// runFileMode renders a single side-by-side page for a pair of regular
// files. The output path names the page itself, not a directory.
func runFileMode(ctx context.Context, opts *Options, logger *slog.Logger) (Report, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}
	if err := checkOutputConflict(opts); err != nil {
		return Report{}, err
	}
	if err := opts.EventHooks.OnPathDiscovered(opts.NewPath); err != nil {
		logger.Warn("OnPathDiscovered hook failed", slog.String("error", err.Error()))
	}

	renderer, err := template.NewRenderer()
	if err != nil {
		return Report{}, fmt.Errorf("initializing templates: %w", err)
	}
	encHandler := opts.EncodingHandler
	if encHandler == nil {
		encHandler = encoding.NewHandler(opts.DefaultEncoding)
	}

	oldData, err := os.ReadFile(opts.OldPath)
	if err != nil {
		return Report{}, fmt.Errorf("%w: %s: %w", ErrReadFailed, opts.OldPath, err)
	}
	newData, err := os.ReadFile(opts.NewPath)
	if err != nil {
		return Report{}, fmt.Errorf("%w: %s: %w", ErrReadFailed, opts.NewPath, err)
	}
	oldText, err := decodeBytes(oldData, opts.OldPath, encHandler)
	if err != nil {
		return Report{}, err
	}
	newText, err := decodeBytes(newData, opts.NewPath, encHandler)
	if err != nil {
		return Report{}, err
	}

	req := htmldiff.Request{
		FromLines: splitLines(oldText),
		ToLines:   splitLines(newText),
		FromName:  htmldiff.MakeTitle(opts.OldPath, opts.WrapColumn),
		ToName:    htmldiff.MakeTitle(opts.NewPath, opts.WrapColumn),
		Context:   opts.ContextLines,
		Wrap:      opts.WrapColumn,
	}
	full := !opts.ContextOnly
	body := htmldiff.SideBySide(req, full)
	summary, _ := htmldiff.Context(req)

	title := deriveTitle(opts, logger)
	if err := ensureParentDir(opts.OutputPath); err != nil {
		return Report{}, err
	}
	f, err := os.Create(opts.OutputPath)
	if err != nil {
		return Report{}, fmt.Errorf("%w: %s: %w", ErrWriteFailed, opts.OutputPath, err)
	}
	if err := renderer.SideBySidePage(f, title, body); err != nil {
		f.Close()
		return Report{}, fmt.Errorf("%w: %s: %w", ErrWriteFailed, opts.OutputPath, err)
	}
	if err := f.Close(); err != nil {
		return Report{}, fmt.Errorf("%w: %s: %w", ErrWriteFailed, opts.OutputPath, err)
	}

	rec := EntryRecord{
		Path:         opts.NewPath,
		LinesChanged: summary.Changed,
		LinesDeleted: summary.Deleted,
		LinesAdded:   summary.Added,
		DurationMs:   time.Since(start).Milliseconds(),
	}
	if summary.IsZero() {
		rec.Classification = ClassUnchanged
	} else {
		rec.Classification = ClassChanged
	}
	if full {
		rec.Artifacts.Fdiff = true
	} else {
		rec.Artifacts.Sdiff = true
	}
	detector := opts.LanguageDetector
	if detector == nil {
		detector = language.NewEnryDetector(opts.LanguageMappingsOverride)
	}
	if lang, _, langErr := detector.Detect(newData, opts.NewPath); langErr == nil {
		rec.Language = lang
	}

	var totals GlobalSummary
	totals.Add(rec.Classification)
	unchanged := 0
	if rec.Classification == ClassUnchanged {
		unchanged = 1
	}

	report := Report{
		Summary: ReportSummary{
			OldPath:         opts.OldPath,
			NewPath:         opts.NewPath,
			OutputPath:      opts.OutputPath,
			Title:           title,
			ProfileUsed:     opts.ProfileName,
			ConfigFilePath:  opts.ConfigFilePath,
			TotalScanned:    1,
			Totals:          totals,
			UnchangedCount:  unchanged,
			DurationSeconds: time.Since(start).Seconds(),
			CacheEnabled:    false,
			Concurrency:     1,
			Timestamp:       time.Now(),
		},
		Entries: []EntryRecord{rec},
	}

	if err := opts.EventHooks.OnPathStatusUpdate(opts.NewPath,
		StatusForClassification(rec.Classification), statusMessage(rec), time.Since(start)); err != nil {
		logger.Warn("status hook failed", slog.String("error", err.Error()))
	}
	if err := opts.EventHooks.OnRunComplete(report); err != nil {
		logger.Warn("run completion hook failed", slog.String("error", err.Error()))
	}
	logger.Info("file comparison complete",
		slog.String("output", opts.OutputPath),
		slog.Int("changed", summary.Changed),
		slog.Int("deleted", summary.Deleted),
		slog.Int("added", summary.Added))
	return report, nil
}

func decodeBytes(data []byte, path string, encHandler encoding.Handler) (string, error) {
	utf8Content, _, _, err := encHandler.DetectAndDecode(data)
	if err != nil {
		return "", fmt.Errorf("%w: decode %s: %w", ErrReadFailed, path, err)
	}
	return string(utf8Content), nil
}
