package comparer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/diffreport/diffreport/pkg/comparer/cache"
	"github.com/diffreport/diffreport/pkg/comparer/encoding"
)

// sniffPrefixLen bounds the bytes read for text/binary sniffing when the
// full file has not been loaded yet.
const sniffPrefixLen = 8192

// sideState captures one side of a compared pair: its stat result, its
// text/binary nature, and (once needed) its raw content.
type sideState struct {
	path      string
	exists    bool
	isDir     bool
	isRegular bool
	isBinary  bool
	size      int64
	modTime   time.Time
	data      []byte
	loaded    bool
	converted bool
}

// text reports whether the side holds diffable text, either natively or
// through a textconv filter.
func (s *sideState) text() bool {
	return s.exists && s.isRegular && !s.isBinary
}

// ensureLoaded reads the side's full content if it has not been read yet.
// Converted sides already carry filter output and are never re-read.
func (s *sideState) ensureLoaded() error {
	if s.loaded {
		return nil
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrReadFailed, s.path, err)
	}
	s.data = data
	s.loaded = true
	return nil
}

// pairState is the classified outcome for one relative path, carrying both
// sides' state so the processor can render artifacts without re-statting.
type pairState struct {
	rel         string
	old         sideState
	new         sideState
	class       Classification
	skipReason  SkipReason
	skipDetails string
}

// classifier decides what each relative path is: added, deleted, a diff
// candidate, or skipped, and why.
type classifier struct {
	opts        *Options
	encoding    encoding.Handler
	digestCache cache.DigestCache
	runner      TextconvRunner
	logger      *slog.Logger
}

func newClassifier(opts *Options, loggerHandler slog.Handler) *classifier {
	encHandler := opts.EncodingHandler
	if encHandler == nil {
		encHandler = encoding.NewHandler(opts.DefaultEncoding)
	}
	digestCache := opts.DigestCache
	if digestCache == nil {
		digestCache = cache.NoOpDigestCache{}
	}
	return &classifier{
		opts:        opts,
		encoding:    encHandler,
		digestCache: digestCache,
		runner:      opts.TextconvRunner,
		logger:      slog.New(loggerHandler).With(slog.String("component", "classifier")),
	}
}

// Classify resolves both sides of rel and applies the decision table.
// Returned errors are per-path I/O failures; absence of a side is never an
// error.
func (c *classifier) Classify(ctx context.Context, rel string) (*pairState, error) {
	st := &pairState{rel: rel}

	var err error
	if st.old, err = c.resolveSide(ctx, rel, filepath.Join(c.opts.OldPath, filepath.FromSlash(rel))); err != nil {
		return nil, err
	}
	if st.new, err = c.resolveSide(ctx, rel, filepath.Join(c.opts.NewPath, filepath.FromSlash(rel))); err != nil {
		return nil, err
	}

	switch {
	case st.old.exists && !st.new.exists:
		c.classifyOneSided(st, &st.old, ClassDeleted, "File removed")
	case !st.old.exists && st.new.exists:
		c.classifyOneSided(st, &st.new, ClassAdded, "New file")
	case st.old.exists && st.new.exists:
		if err := c.classifyPair(st); err != nil {
			return nil, err
		}
	default:
		st.class = ClassSkipped
		st.skipReason = SkipReasonNotFound
		st.skipDetails = "Not found"
	}
	return st, nil
}

// classifyOneSided handles paths present on exactly one side. The survivor's
// nature decides between a real add/delete and a skip.
func (c *classifier) classifyOneSided(st *pairState, side *sideState, class Classification, verb string) {
	switch {
	case side.isDir:
		st.class = ClassSkipped
		st.skipReason = SkipReasonDir
		st.skipDetails = verb + " (skipped dir)"
	case !side.isRegular:
		st.class = ClassSkipped
		st.skipReason = SkipReasonSpecial
		st.skipDetails = verb + " (skipped special)"
	case side.isBinary && !c.opts.IncludeBinary:
		st.class = ClassSkipped
		st.skipReason = SkipReasonBinary
		st.skipDetails = verb + " (skipped binary)"
	default:
		st.class = class
	}
}

// classifyPair handles paths present on both sides.
func (c *classifier) classifyPair(st *pairState) error {
	switch {
	case (st.old.isBinary || st.new.isBinary) && !c.opts.IncludeBinary:
		st.class = ClassSkipped
		st.skipReason = SkipReasonBinary
		st.skipDetails = "(skipped binary)"
		return nil
	case st.old.isDir || st.new.isDir:
		st.class = ClassSkipped
		st.skipReason = SkipReasonDir
		st.skipDetails = "(skipped dir)"
		return nil
	case !st.old.isRegular || !st.new.isRegular:
		st.class = ClassSkipped
		st.skipReason = SkipReasonSpecial
		st.skipDetails = "(skipped special)"
		return nil
	}

	if !c.opts.ShowCommon {
		same, err := c.identical(&st.old, &st.new)
		if err != nil {
			return err
		}
		if same {
			st.class = ClassSkipped
			st.skipReason = SkipReasonIdentical
			st.skipDetails = "identical"
			return nil
		}
	}

	// Diff candidate. The processor downgrades it to unchanged when the
	// rendered diff has no changed lines.
	if err := st.old.ensureLoaded(); err != nil {
		return err
	}
	if err := st.new.ensureLoaded(); err != nil {
		return err
	}
	st.class = ClassChanged
	return nil
}

// identical reports whether both sides hold the same bytes, using cached
// content digests to avoid re-reading files whose size and mtime have not
// moved since the previous run.
func (c *classifier) identical(oldSide, newSide *sideState) (bool, error) {
	if oldSide.size != newSide.size {
		return false, nil
	}
	oldDigest, err := c.digestFor(oldSide)
	if err != nil {
		return false, err
	}
	newDigest, err := c.digestFor(newSide)
	if err != nil {
		return false, err
	}
	return oldDigest == newDigest, nil
}

func (c *classifier) digestFor(side *sideState) (string, error) {
	if !c.opts.IgnoreCacheRead && !side.converted {
		if digest, ok := c.digestCache.Lookup(side.path, side.size, side.modTime); ok {
			return digest, nil
		}
	}
	if err := side.ensureLoaded(); err != nil {
		return "", err
	}
	digest := cache.HashContent(side.data)
	if !side.converted {
		c.digestCache.Store(side.path, side.size, side.modTime, digest)
	}
	return digest, nil
}

// resolveSide stats one side and, for regular files, settles its
// text/binary nature, running a matching textconv filter on binaries.
func (c *classifier) resolveSide(ctx context.Context, rel, fullPath string) (sideState, error) {
	side := sideState{path: fullPath}

	info, err := os.Stat(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return side, nil
		}
		return side, fmt.Errorf("%w: %s: %w", ErrStatFailed, fullPath, err)
	}
	side.exists = true
	side.isDir = info.IsDir()
	side.isRegular = info.Mode().IsRegular()
	side.size = info.Size()
	side.modTime = info.ModTime()

	if !side.isRegular {
		return side, nil
	}
	if err := c.sniffSide(&side); err != nil {
		return side, err
	}
	if side.isBinary {
		c.tryTextconv(ctx, rel, &side)
	}
	return side, nil
}

// sniffSide loads enough of the file to tell text from binary. Small files
// are read whole so later stages can reuse the bytes.
func (c *classifier) sniffSide(side *sideState) error {
	if side.size <= sniffPrefixLen {
		if err := side.ensureLoaded(); err != nil {
			// The path can vanish between stat and read. Treat the side as
			// binary so it is skipped instead of half-rendered.
			c.logger.Warn("could not read file for sniffing, treating as binary",
				slog.String("path", side.path), slog.String("error", err.Error()))
			side.isBinary = true
			return nil
		}
		side.isBinary = c.encoding.IsBinary(side.data)
		return nil
	}

	prefix, err := readPrefix(side.path, sniffPrefixLen)
	if err != nil {
		c.logger.Warn("could not read file for sniffing, treating as binary",
			slog.String("path", side.path), slog.String("error", err.Error()))
		side.isBinary = true
		return nil
	}
	side.isBinary = c.encoding.IsBinary(prefix)
	return nil
}

func readPrefix(filePath string, n int) ([]byte, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	buf := make([]byte, n)
	read, err := io.ReadFull(f, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, err
	}
	return buf[:read], nil
}

// tryTextconv runs the first matching textconv rule against a binary side.
// On success the side becomes text carrying the filter's output; on failure
// it stays binary.
func (c *classifier) tryTextconv(ctx context.Context, rel string, side *sideState) {
	if c.runner == nil || len(c.opts.TextconvRules) == 0 {
		return
	}
	rule := matchTextconvRule(c.opts.TextconvRules, rel)
	if rule == nil {
		return
	}
	out, err := c.runner.Run(ctx, *rule, side.path)
	if err != nil {
		c.logger.Warn("textconv filter failed, keeping file as binary",
			slog.String("path", side.path),
			slog.String("pattern", rule.Pattern),
			slog.String("error", err.Error()))
		return
	}
	side.data = out
	side.loaded = true
	side.converted = true
	side.isBinary = false
}

// matchTextconvRule returns the first rule whose glob matches the relative
// path or its base name.
func matchTextconvRule(rules []TextconvRule, rel string) *TextconvRule {
	base := path.Base(rel)
	for i := range rules {
		r := &rules[i]
		if ok, err := path.Match(r.Pattern, rel); err == nil && ok {
			return r
		}
		if ok, err := path.Match(r.Pattern, base); err == nil && ok {
			return r
		}
	}
	return nil
}
