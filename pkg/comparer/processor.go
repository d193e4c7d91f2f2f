package comparer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/diffreport/diffreport/pkg/comparer/encoding"
	"github.com/diffreport/diffreport/pkg/comparer/htmldiff"
	"github.com/diffreport/diffreport/pkg/comparer/language"
	"github.com/diffreport/diffreport/pkg/comparer/template"
)

// entryProcessor turns a classified pair into report artifacts: source
// views for added and deleted files, and the four diff renderings for
// changed candidates.
type entryProcessor struct {
	opts     *Options
	renderer *template.Renderer
	language language.Detector
	encoding encoding.Handler
	logger   *slog.Logger
}

func newEntryProcessor(opts *Options, loggerHandler slog.Handler, renderer *template.Renderer, encHandler encoding.Handler) *entryProcessor {
	detector := opts.LanguageDetector
	if detector == nil {
		detector = language.NewEnryDetector(opts.LanguageMappingsOverride)
	}
	return &entryProcessor{
		opts:     opts,
		renderer: renderer,
		language: detector,
		encoding: encHandler,
		logger:   slog.New(loggerHandler).With(slog.String("component", "processor")),
	}
}

// Process writes the artifacts for one classified pair and returns its
// populated record. Skipped pairs never reach here.
func (p *entryProcessor) Process(ctx context.Context, st *pairState) (EntryRecord, error) {
	rec := EntryRecord{Path: st.rel, Classification: st.class}
	if err := ctx.Err(); err != nil {
		return rec, err
	}

	switch st.class {
	case ClassDeleted:
		return rec, p.processOneSided(st, &st.old, &rec)
	case ClassAdded:
		return rec, p.processOneSided(st, &st.new, &rec)
	case ClassChanged:
		return rec, p.processPair(st, &rec)
	default:
		return rec, fmt.Errorf("cannot process classification %q for %s", st.class, st.rel)
	}
}

// processOneSided renders the surviving side's source view when it is text.
// A binary survivor (with binary inclusion on) gets a row but no artifact.
func (p *entryProcessor) processOneSided(st *pairState, side *sideState, rec *EntryRecord) error {
	if !side.text() {
		return nil
	}
	if err := side.ensureLoaded(); err != nil {
		return err
	}
	text, err := p.decodeText(side)
	if err != nil {
		return err
	}
	rec.Language = p.detectLanguage(side.data, st.rel)

	target := p.targetFor(st.rel)
	if err := ensureParentDir(target); err != nil {
		return err
	}
	if st.class == ClassDeleted {
		if err := p.writePage(target+SuffixOldSource, func(w io.Writer) error {
			return p.renderer.SourcePage(w, side.path, text)
		}); err != nil {
			return err
		}
		rec.Artifacts.OldSource = true
		return nil
	}
	if err := p.writePage(target+SuffixNewSource, func(w io.Writer) error {
		return p.renderer.SourcePage(w, side.path, text)
	}); err != nil {
		return err
	}
	rec.Artifacts.NewSource = true
	return nil
}

// processPair renders all four diff artifacts plus any text source views,
// and resolves the candidate to unchanged when no line differs.
func (p *entryProcessor) processPair(st *pairState, rec *EntryRecord) error {
	oldText, err := p.decodeText(&st.old)
	if err != nil {
		return err
	}
	newText, err := p.decodeText(&st.new)
	if err != nil {
		return err
	}
	rec.Language = p.detectLanguage(st.new.data, st.rel)

	req := htmldiff.Request{
		FromLines: splitLines(oldText),
		ToLines:   splitLines(newText),
		FromName:  st.old.path,
		ToName:    st.new.path,
		FromDate:  st.old.modTime.Format(time.ANSIC),
		ToDate:    st.new.modTime.Format(time.ANSIC),
		Context:   p.opts.ContextLines,
		Wrap:      p.opts.WrapColumn,
	}

	summary, contextBody := htmldiff.Context(req)
	rec.LinesChanged = summary.Changed
	rec.LinesDeleted = summary.Deleted
	rec.LinesAdded = summary.Added
	if summary.IsZero() {
		rec.Classification = ClassUnchanged
	}

	target := p.targetFor(st.rel)
	if err := ensureParentDir(target); err != nil {
		return err
	}

	pairLabel := fmt.Sprintf("%s and %s", st.old.path, st.new.path)
	if err := p.writePage(target+SuffixCdiff, func(w io.Writer) error {
		return p.renderer.ContextDiffPage(w, "Cdiff of "+pairLabel, contextBody)
	}); err != nil {
		return err
	}
	rec.Artifacts.Cdiff = true

	if err := p.writePage(target+SuffixUdiff, func(w io.Writer) error {
		return p.renderer.UnifiedDiffPage(w, "Udiff of "+pairLabel, htmldiff.Unified(req))
	}); err != nil {
		return err
	}
	rec.Artifacts.Udiff = true

	if err := p.writePage(target+SuffixSdiff, func(w io.Writer) error {
		return p.renderer.SideBySidePage(w, "Sdiff of "+pairLabel, htmldiff.SideBySide(req, false))
	}); err != nil {
		return err
	}
	rec.Artifacts.Sdiff = true

	if err := p.writePage(target+SuffixFdiff, func(w io.Writer) error {
		return p.renderer.SideBySidePage(w, "Fdiff of "+pairLabel, htmldiff.SideBySide(req, true))
	}); err != nil {
		return err
	}
	rec.Artifacts.Fdiff = true

	if st.old.text() {
		if err := p.writePage(target+SuffixOldSource, func(w io.Writer) error {
			return p.renderer.SourcePage(w, st.old.path, oldText)
		}); err != nil {
			return err
		}
		rec.Artifacts.OldSource = true
	}
	if st.new.text() {
		if err := p.writePage(target+SuffixNewSource, func(w io.Writer) error {
			return p.renderer.SourcePage(w, st.new.path, newText)
		}); err != nil {
			return err
		}
		rec.Artifacts.NewSource = true
	}
	return nil
}

func (p *entryProcessor) targetFor(rel string) string {
	return filepath.Join(p.opts.OutputPath, filepath.FromSlash(rel))
}

// decodeText converts a side's raw bytes to UTF-8 text. Textconv output is
// taken as UTF-8 already.
func (p *entryProcessor) decodeText(side *sideState) (string, error) {
	if side.converted {
		return string(side.data), nil
	}
	utf8Content, encodingName, certain, err := p.encoding.DetectAndDecode(side.data)
	if err != nil {
		return "", fmt.Errorf("%w: decode %s: %w", ErrReadFailed, side.path, err)
	}
	if !certain {
		p.logger.Debug("encoding detection uncertain",
			slog.String("path", side.path), slog.String("encoding", encodingName))
	}
	return string(utf8Content), nil
}

func (p *entryProcessor) detectLanguage(content []byte, rel string) string {
	lang, _, err := p.language.Detect(content, rel)
	if err != nil {
		p.logger.Debug("language detection failed",
			slog.String("path", rel), slog.String("error", err.Error()))
		return ""
	}
	return lang
}

// splitLines normalizes line endings and splits text into lines without
// terminators. A trailing newline does not produce a final empty line.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	lines := strings.Split(text, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func ensureParentDir(target string) error {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrMkdirFailed, dir, err)
	}
	return nil
}

// writePage creates path and streams one rendered page into it.
func (p *entryProcessor) writePage(path string, render func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWriteFailed, path, err)
	}
	if err := render(f); err != nil {
		f.Close()
		return fmt.Errorf("%w: %s: %w", ErrWriteFailed, path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWriteFailed, path, err)
	}
	return nil
}
