package comparer

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/diffreport/diffreport/pkg/util"
)

// enumerator produces the set of relative paths to compare, from a two-root
// walk, an explicit list, or a git changed-file query.
type enumerator struct {
	opts    *Options
	hooks   Hooks
	logger  *slog.Logger
	dirRes  []*regexp.Regexp
	fileRes []*regexp.Regexp
}

func newEnumerator(opts *Options, loggerHandler slog.Handler) (*enumerator, error) {
	logger := slog.New(loggerHandler).With(slog.String("component", "enumerator"))

	dirPatterns := opts.IgnoreDirPatterns
	if dirPatterns == nil {
		dirPatterns = DefaultIgnoreDirPatterns()
	}
	filePatterns := opts.IgnoreFilePatterns
	if filePatterns == nil {
		filePatterns = DefaultIgnoreFilePatterns()
	}

	dirRes, err := compileAnchored(dirPatterns)
	if err != nil {
		return nil, fmt.Errorf("%w: ignore-dir pattern: %w", ErrConfigValidation, err)
	}
	fileRes, err := compileAnchored(filePatterns)
	if err != nil {
		return nil, fmt.Errorf("%w: ignore-file pattern: %w", ErrConfigValidation, err)
	}

	return &enumerator{
		opts:    opts,
		hooks:   opts.EventHooks,
		logger:  logger,
		dirRes:  dirRes,
		fileRes: fileRes,
	}, nil
}

// compileAnchored compiles patterns wrapped as ^(?:pat), so each pattern
// matches at the start of the name without needing its own anchor.
func compileAnchored(patterns []string) ([]*regexp.Regexp, error) {
	res := make([]*regexp.Regexp, 0, len(patterns))
	for _, pat := range patterns {
		re, err := regexp.Compile("^(?:" + pat + ")")
		if err != nil {
			return nil, fmt.Errorf("compile %q: %w", pat, err)
		}
		res = append(res, re)
	}
	return res, nil
}

func (e *enumerator) ignoreDir(name string) bool {
	for _, re := range e.dirRes {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

func (e *enumerator) ignoreFile(name string) bool {
	for _, re := range e.fileRes {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// Paths returns the sorted, deduplicated set of relative paths to compare.
func (e *enumerator) Paths(ctx context.Context) ([]string, error) {
	var (
		paths []string
		err   error
	)
	switch {
	case e.opts.GitListMode != "" && e.opts.GitListMode != GitListNone:
		paths, err = e.gitPaths()
	case e.opts.FileListPath != "":
		paths, err = e.listPaths()
	default:
		paths, err = e.walkPaths(ctx)
	}
	if err != nil {
		return nil, err
	}

	paths = dedupeSorted(paths)
	e.logger.Debug("enumeration complete", slog.Int("count", len(paths)))
	for _, p := range paths {
		if hookErr := e.hooks.OnPathDiscovered(p); hookErr != nil {
			e.logger.Warn("OnPathDiscovered hook failed",
				slog.String("path", p), slog.String("error", hookErr.Error()))
		}
	}
	return paths, nil
}

func dedupeSorted(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	out := paths[:0]
	for _, p := range paths {
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func (e *enumerator) gitPaths() ([]string, error) {
	if e.opts.GitClient == nil {
		return nil, fmt.Errorf("%w: git list mode %q requires a GitClient", ErrConfigValidation, e.opts.GitListMode)
	}
	files, err := e.opts.GitClient.GetChangedFiles(e.opts.NewPath, e.opts.GitListMode, e.opts.GitConfig.SinceRef)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrListSource, err)
	}
	e.logger.Debug("path set from git", slog.String("mode", string(e.opts.GitListMode)), slog.Int("count", len(files)))
	return files, nil
}

// listPaths reads newline-separated paths from the configured list source,
// stripping leading components like patch(1) -p.
func (e *enumerator) listPaths() ([]string, error) {
	var src io.Reader
	if e.opts.FileListPath == "-" {
		if e.opts.FileListReader == nil {
			return nil, fmt.Errorf("%w: list source %q requires a reader", ErrConfigValidation, e.opts.FileListPath)
		}
		src = e.opts.FileListReader
	} else {
		file, err := os.Open(e.opts.FileListPath)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrListSource, e.opts.FileListPath, err)
		}
		defer file.Close()
		src = file
	}

	var paths []string
	scanner := bufio.NewScanner(src)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t\r\n")
		line = util.StripPathComponents(line, e.opts.StripLevel)
		if line == "" {
			continue
		}
		paths = append(paths, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrListSource, e.opts.FileListPath, err)
	}
	e.logger.Debug("path set from list", slog.String("source", e.opts.FileListPath), slog.Int("count", len(paths)))
	return paths, nil
}

// walkPaths walks both roots independently and unions the results, so a
// path present in only one tree still appears exactly once.
func (e *enumerator) walkPaths(ctx context.Context) ([]string, error) {
	oldPaths, err := e.grabDir(ctx, e.opts.OldPath)
	if err != nil {
		return nil, err
	}
	newPaths, err := e.grabDir(ctx, e.opts.NewPath)
	if err != nil {
		return nil, err
	}
	return append(oldPaths, newPaths...), nil
}

// grabDir lists the files under root, pruning ignored directories before
// descending into them.
func (e *enumerator) grabDir(ctx context.Context, root string) ([]string, error) {
	var paths []string
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			e.logger.Warn("error accessing path during walk",
				slog.String("path", path), slog.String("error", err.Error()))
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if path == root {
			return nil
		}
		name := d.Name()
		if d.IsDir() {
			if e.ignoreDir(name) {
				e.logger.Debug("directory pruned", slog.String("path", path))
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			// Follow the link only to decide whether it names a directory,
			// which a walk never descends into.
			if info, statErr := os.Stat(path); statErr == nil && info.IsDir() {
				return nil
			}
		}
		if e.ignoreFile(name) {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			e.logger.Warn("could not compute relative path",
				slog.String("path", path), slog.String("error", relErr.Error()))
			return nil
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}
	return paths, nil
}
