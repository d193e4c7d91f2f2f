package comparer

// Default configuration values, used when setting up Viper defaults during
// configuration loading.
const (
	// DefaultContextLines is the number of unchanged lines shown around each
	// hunk in context, unified, and windowed side-by-side output.
	DefaultContextLines = 3
	// DefaultPageSize is the maximum number of file rows per index page.
	DefaultPageSize = 1000
	// DefaultWrapColumn is the side-by-side wrap column. 0 disables wrapping.
	DefaultWrapColumn = 0
	// DefaultConcurrency determines the default number of workers. 0 means
	// runtime.NumCPU().
	DefaultConcurrency = 0
	// DefaultOnErrorMode aborts the run on the first per-path failure, since a
	// partial report misrepresents the comparison.
	DefaultOnErrorMode = OnErrorStop
	// DefaultCacheEnabled is the default state for the digest cache.
	DefaultCacheEnabled = true
	// DefaultTuiEnabled is the default state for the progress TUI.
	DefaultTuiEnabled = true
	// DefaultGitSinceRef is the default reference for --git-since.
	DefaultGitSinceRef = "main"
	// DefaultVerbose is the default state for debug logging.
	DefaultVerbose = false
)

// DefaultIgnoreDirPatterns lists the directory names pruned during tree
// walks when no explicit patterns are configured. Matched as regular
// expressions against the bare directory name.
func DefaultIgnoreDirPatterns() []string {
	return []string{`^CVS$`, `^SCCS$`, `^\.svn$`, `^\.repo$`, `^\.git$`}
}

// DefaultIgnoreFilePatterns lists the file names excluded during tree walks
// when no explicit patterns are configured.
func DefaultIgnoreFilePatterns() []string {
	return []string{`.*\.o$`, `.*\.swp$`, `.*\.bak$`, `.*\.old$`, `.*~$`, `^\.cvsignore$`}
}

// ToolName appears in the index page footer.
const ToolName = "diffreport"

// Output artifact name suffixes, appended to each compared relative path
// under the output directory.
const (
	SuffixOldSource = "-.html"
	SuffixNewSource = ".html"
	SuffixCdiff     = ".cdiff.html"
	SuffixUdiff     = ".udiff.html"
	SuffixSdiff     = ".sdiff.html"
	SuffixFdiff     = ".fdiff.html"
)

// Index page naming. A single-page report is written as IndexSingleName; a
// multi-page report numbers every page with IndexPageFormat.
const (
	IndexSingleName = "index.html"
	IndexPageFormat = "index%04d.html"
)

// TextconvMaxOutput caps the bytes read back from a textconv command.
const TextconvMaxOutput = 10 << 20
