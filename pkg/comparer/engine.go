package comparer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/diffreport/diffreport/pkg/comparer/cache"
	"github.com/diffreport/diffreport/pkg/comparer/encoding"
	"github.com/diffreport/diffreport/pkg/comparer/htmldiff"
	"github.com/diffreport/diffreport/pkg/comparer/template"
)

// Engine orchestrates a directory comparison: enumeration, concurrent
// classification and artifact generation, aggregation, and index pages.
type Engine struct {
	opts       *Options
	logger     *slog.Logger
	hooks      Hooks
	renderer   *template.Renderer
	digest     cache.DigestCache
	classifier *classifier
	processor  *entryProcessor
	enumerator *enumerator

	ctx        context.Context
	cancelFunc context.CancelFunc

	concurrency   int
	cachePath     string
	totalScanned  int
	reportTitle   string
	fatalOccurred atomic.Bool
	agg           reportAggregator
}

// pathResult carries one worker's outcome back to the aggregation loop.
// Exactly one of record, skipped, or err is set.
type pathResult struct {
	path     string
	record   *EntryRecord
	skipped  *SkippedInfo
	err      error
	duration time.Duration
}

// NewEngine validates opts, defaults its injectable dependencies, and
// prepares a directory-mode run. The returned engine runs once.
func NewEngine(ctx context.Context, opts *Options) (*Engine, error) {
	if err := normalizeOptions(opts); err != nil {
		return nil, err
	}
	logger := slog.New(opts.Logger).With(slog.String("component", "engine"))

	renderer, err := template.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("initializing templates: %w", err)
	}

	if opts.EncodingHandler == nil {
		opts.EncodingHandler = encoding.NewHandler(opts.DefaultEncoding)
	}

	var digest cache.DigestCache
	switch {
	case !opts.CacheEnabled:
		digest = cache.NoOpDigestCache{}
	case opts.DigestCache != nil:
		digest = opts.DigestCache
	default:
		digest = cache.NewFileDigestCache(opts.Logger, opts.AppVersion, opts.CacheFormat)
	}
	opts.DigestCache = digest

	enum, err := newEnumerator(opts, opts.Logger)
	if err != nil {
		return nil, err
	}

	concurrency := opts.Concurrency
	if concurrency == 0 {
		concurrency = runtime.NumCPU()
	}

	cachePath := opts.CacheFilePath
	if cachePath == "" {
		cachePath = filepath.Join(opts.OutputPath, cache.FileName)
	}

	engineCtx, cancel := context.WithCancel(ctx)
	return &Engine{
		opts:        opts,
		logger:      logger,
		hooks:       opts.EventHooks,
		renderer:    renderer,
		digest:      digest,
		classifier:  newClassifier(opts, opts.Logger),
		processor:   newEntryProcessor(opts, opts.Logger, renderer, opts.EncodingHandler),
		enumerator:  enum,
		ctx:         engineCtx,
		cancelFunc:  cancel,
		concurrency: concurrency,
		cachePath:   cachePath,
	}, nil
}

// Run executes the comparison and returns the final report. On a fatal
// error the report describes the partial run and the error is non-nil.
func (e *Engine) Run() (report Report, runErr error) {
	start := time.Now()
	defer e.cancelFunc()
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("panic during run", slog.Any("panic", r))
			runErr = fmt.Errorf("internal panic: %v", r)
			report = e.buildReport(0, time.Since(start))
			report.Summary.FatalErrorOccurred = true
		}
	}()

	e.prepareCache()
	defer func() {
		if err := e.digest.Persist(e.cachePath); err != nil {
			e.logger.Warn("could not persist digest cache", slog.String("error", err.Error()))
		}
	}()

	paths, err := e.enumerator.Paths(e.ctx)
	if err != nil {
		return e.finishFailed(start), err
	}
	e.totalScanned = len(paths)

	e.runWorkers(paths)

	if fatalErr := e.agg.firstFatal(); fatalErr != nil {
		return e.finishFailed(start), fatalErr
	}
	if err := e.ctx.Err(); err != nil {
		return e.finishFailed(start), err
	}

	pagesWritten, err := e.writePages()
	if err != nil {
		return e.finishFailed(start), err
	}
	if pagesWritten == 0 {
		e.logger.Info("nothing to show, no report written")
	}

	report = e.buildReport(pagesWritten, time.Since(start))
	e.logger.Info("run complete",
		slog.Int("scanned", report.Summary.TotalScanned),
		slog.Int("changed", report.Summary.Totals.Changed),
		slog.Int("deleted", report.Summary.Totals.Deleted),
		slog.Int("added", report.Summary.Totals.Added),
		slog.Int("skipped", report.Summary.SkippedCount),
		slog.Int("pages", pagesWritten),
		slog.Duration("duration", time.Since(start)))
	e.fireRunComplete(report)
	return report, nil
}

// finishFailed builds the partial report for an aborted run and fires the
// completion hook so observers still see the final state.
func (e *Engine) finishFailed(start time.Time) Report {
	report := e.buildReport(0, time.Since(start))
	report.Summary.FatalErrorOccurred = true
	e.fireRunComplete(report)
	return report
}

func (e *Engine) prepareCache() {
	if !e.opts.CacheEnabled {
		return
	}
	if e.opts.ClearCache {
		if err := os.Remove(e.cachePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			e.logger.Warn("could not clear digest cache", slog.String("error", err.Error()))
		}
		return
	}
	if err := e.digest.Load(e.cachePath); err != nil {
		e.logger.Warn("could not load digest cache", slog.String("error", err.Error()))
	}
}

// runWorkers fans the path set out over the worker pool and aggregates the
// results in path order.
func (e *Engine) runWorkers(paths []string) {
	pathChan := make(chan string, e.concurrency)
	resultsChan := make(chan pathResult, e.concurrency)

	var wg sync.WaitGroup
	for i := 0; i < e.concurrency; i++ {
		wg.Add(1)
		go e.worker(&wg, pathChan, resultsChan)
	}

	go func() {
		defer close(pathChan)
		for _, rel := range paths {
			select {
			case <-e.ctx.Done():
				return
			case pathChan <- rel:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	for res := range resultsChan {
		e.aggregate(res)
	}
}

func (e *Engine) worker(wg *sync.WaitGroup, pathChan <-chan string, resultsChan chan<- pathResult) {
	defer wg.Done()
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("worker panic", slog.Any("panic", r))
			resultsChan <- pathResult{err: fmt.Errorf("internal panic: %v", r)}
		}
	}()
	for {
		select {
		case <-e.ctx.Done():
			return
		case rel, ok := <-pathChan:
			if !ok {
				return
			}
			resultsChan <- e.processPath(rel)
		}
	}
}

func (e *Engine) processPath(rel string) pathResult {
	start := time.Now()
	e.fireStatus(rel, StatusComparing, "", 0)

	st, err := e.classifier.Classify(e.ctx, rel)
	if err != nil {
		return pathResult{path: rel, err: err, duration: time.Since(start)}
	}
	if st.class == ClassSkipped {
		return pathResult{
			path:     rel,
			skipped:  &SkippedInfo{Path: rel, Reason: st.skipReason, Details: st.skipDetails},
			duration: time.Since(start),
		}
	}

	rec, err := e.processor.Process(e.ctx, st)
	if err != nil {
		return pathResult{path: rel, err: err, duration: time.Since(start)}
	}
	rec.DurationMs = time.Since(start).Milliseconds()
	return pathResult{path: rel, record: &rec, duration: time.Since(start)}
}

func (e *Engine) aggregate(res pathResult) {
	switch {
	case res.err != nil:
		if errors.Is(res.err, context.Canceled) && e.fatalOccurred.Load() {
			return
		}
		isFatal := e.opts.OnErrorMode != OnErrorContinue
		e.agg.addError(ErrorInfo{Path: res.path, Error: res.err.Error(), IsFatal: isFatal}, res.err)
		e.fireStatus(res.path, StatusFailed, res.err.Error(), res.duration)
		e.logger.Error("path processing failed",
			slog.String("path", res.path), slog.String("error", res.err.Error()))
		if isFatal && e.fatalOccurred.CompareAndSwap(false, true) {
			e.cancelFunc()
		}
	case res.skipped != nil:
		e.agg.addSkipped(*res.skipped)
		e.fireStatus(res.path, StatusSkipped, res.skipped.Details, res.duration)
		e.logger.Debug("path skipped",
			slog.String("path", res.path), slog.String("reason", string(res.skipped.Reason)))
	case res.record != nil:
		e.agg.addRecord(*res.record)
		e.fireStatus(res.path, StatusForClassification(res.record.Classification),
			statusMessage(*res.record), res.duration)
	}
}

func (e *Engine) fireStatus(path string, status Status, message string, duration time.Duration) {
	if err := e.hooks.OnPathStatusUpdate(path, status, message, duration); err != nil {
		e.logger.Warn("status hook failed",
			slog.String("path", path), slog.String("error", err.Error()))
	}
}

func (e *Engine) fireRunComplete(report Report) {
	if err := e.hooks.OnRunComplete(report); err != nil {
		e.logger.Warn("run completion hook failed", slog.String("error", err.Error()))
	}
}

// statusMessage mirrors the per-path progress wording of the classic tool.
func statusMessage(rec EntryRecord) string {
	switch rec.Classification {
	case ClassDeleted:
		return "File removed"
	case ClassAdded:
		return "New file"
	default:
		return fmt.Sprintf("Changed/Deleted/Added: %d/%d/%d",
			rec.LinesChanged, rec.LinesDeleted, rec.LinesAdded)
	}
}

// writePages renders the index page set from the aggregated records.
// Returns the number of pages written; zero means nothing to show.
func (e *Engine) writePages() (int, error) {
	records, _, _ := e.agg.snapshot()
	if len(records) == 0 {
		return 0, nil
	}

	rows := make([]template.HTML, 0, len(records))
	for _, rec := range records {
		rows = append(rows, template.DataRow(rowForRecord(rec)))
	}

	pageSize := e.opts.PageSize
	pageCount := (len(rows) + pageSize - 1) / pageSize

	if err := os.MkdirAll(e.opts.OutputPath, 0o755); err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrMkdirFailed, e.opts.OutputPath, err)
	}

	title := e.title()
	totals := e.agg.totals()
	nav := template.NavDiv(pageCount)
	header := template.HeaderInfo(title)
	comments := template.CommentsInfo(e.opts.Comments)
	summaryInfo := template.SummaryInfo(totals.Changed, totals.Deleted, totals.Added)
	footer := template.FooterInfo(ToolName, time.Now())

	for page := 0; page < pageCount; page++ {
		lo := page * pageSize
		hi := min(lo+pageSize, len(rows))
		var joined strings.Builder
		for _, row := range rows[lo:hi] {
			joined.WriteString(string(row))
		}

		name := IndexSingleName
		if pageCount > 1 {
			name = fmt.Sprintf(IndexPageFormat, page)
		}
		target := filepath.Join(e.opts.OutputPath, name)
		if err := e.writeIndexFile(target, template.IndexData{
			Title:        title,
			HeaderInfo:   header,
			CommentsInfo: comments,
			SummaryInfo:  summaryInfo,
			IndexDiv:     nav,
			DataRows:     template.DataTable(template.HTML(joined.String())),
			FooterInfo:   footer,
		}); err != nil {
			return 0, err
		}
	}
	return pageCount, nil
}

// title derives the report title on first use, so git HEAD resolution runs
// at most once per root.
func (e *Engine) title() string {
	if e.reportTitle == "" {
		e.reportTitle = deriveTitle(e.opts, e.logger)
	}
	return e.reportTitle
}

func (e *Engine) writeIndexFile(target string, data template.IndexData) error {
	f, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWriteFailed, target, err)
	}
	if err := e.renderer.IndexPage(f, data); err != nil {
		f.Close()
		return fmt.Errorf("%w: %s: %w", ErrWriteFailed, target, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWriteFailed, target, err)
	}
	return nil
}

// rowForRecord maps a record to its index row. Unchanged rows keep their
// source links but never link diffs.
func rowForRecord(rec EntryRecord) template.Row {
	row := template.Row{
		Path:     rec.Path,
		Href:     htmldiff.PathHref(rec.Path),
		Changed:  rec.LinesChanged,
		Deleted:  rec.LinesDeleted,
		Added:    rec.LinesAdded,
		Language: rec.Language,
	}
	switch rec.Classification {
	case ClassChanged:
		row.Class = template.RowChanged
		row.Cdiff = rec.Artifacts.Cdiff
		row.Udiff = rec.Artifacts.Udiff
		row.Sdiff = rec.Artifacts.Sdiff
		row.Fdiff = rec.Artifacts.Fdiff
		row.OldSource = rec.Artifacts.OldSource
		row.NewSource = rec.Artifacts.NewSource
	case ClassUnchanged:
		row.Class = template.RowUnchanged
		row.OldSource = rec.Artifacts.OldSource
		row.NewSource = rec.Artifacts.NewSource
	case ClassDeleted:
		row.Class = template.RowDeleted
		row.OldSource = rec.Artifacts.OldSource
	case ClassAdded:
		row.Class = template.RowAdded
		row.NewSource = rec.Artifacts.NewSource
	}
	return row
}

func (e *Engine) buildReport(pagesWritten int, elapsed time.Duration) Report {
	records, skipped, errs := e.agg.snapshot()
	totals := e.agg.totals()

	unchanged := 0
	for _, rec := range records {
		if rec.Classification == ClassUnchanged {
			unchanged++
		}
	}

	return Report{
		Summary: ReportSummary{
			OldPath:         e.opts.OldPath,
			NewPath:         e.opts.NewPath,
			OutputPath:      e.opts.OutputPath,
			Title:           e.title(),
			ProfileUsed:     e.opts.ProfileName,
			ConfigFilePath:  e.opts.ConfigFilePath,
			TotalScanned:    e.totalScanned,
			Totals:          totals,
			UnchangedCount:  unchanged,
			SkippedCount:    len(skipped),
			ErrorCount:      len(errs),
			PagesWritten:    pagesWritten,
			DurationSeconds: elapsed.Seconds(),
			CacheEnabled:    e.opts.CacheEnabled,
			Concurrency:     e.concurrency,
			Timestamp:       time.Now(),
		},
		Entries: records,
		Skipped: skipped,
		Errors:  errs,
	}
}

// reportAggregator collects worker results under a lock and hands out
// sorted copies.
type reportAggregator struct {
	mu       sync.Mutex
	records  []EntryRecord
	skipped  []SkippedInfo
	errors   []ErrorInfo
	fatalErr error
}

func (a *reportAggregator) addRecord(rec EntryRecord) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append(a.records, rec)
}

func (a *reportAggregator) addSkipped(info SkippedInfo) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.skipped = append(a.skipped, info)
}

func (a *reportAggregator) addError(info ErrorInfo, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.errors = append(a.errors, info)
	if info.IsFatal && a.fatalErr == nil {
		a.fatalErr = err
	}
}

func (a *reportAggregator) firstFatal() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.fatalErr
}

func (a *reportAggregator) totals() GlobalSummary {
	a.mu.Lock()
	defer a.mu.Unlock()
	var totals GlobalSummary
	for _, rec := range a.records {
		totals.Add(rec.Classification)
	}
	return totals
}

// snapshot returns path-sorted copies of the collected results.
func (a *reportAggregator) snapshot() ([]EntryRecord, []SkippedInfo, []ErrorInfo) {
	a.mu.Lock()
	defer a.mu.Unlock()

	records := make([]EntryRecord, len(a.records))
	copy(records, a.records)
	sort.Slice(records, func(i, j int) bool { return records[i].Path < records[j].Path })

	skipped := make([]SkippedInfo, len(a.skipped))
	copy(skipped, a.skipped)
	sort.Slice(skipped, func(i, j int) bool { return skipped[i].Path < skipped[j].Path })

	errs := make([]ErrorInfo, len(a.errors))
	copy(errs, a.errors)
	sort.Slice(errs, func(i, j int) bool { return errs[i].Path < errs[j].Path })

	return records, skipped, errs
}
