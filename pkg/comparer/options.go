package comparer

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/diffreport/diffreport/pkg/comparer/cache"
	"github.com/diffreport/diffreport/pkg/comparer/encoding"
	"github.com/diffreport/diffreport/pkg/comparer/language"
)

// GitConfig holds settings related to git-backed path lists.
type GitConfig struct {
	DiffOnly bool   `mapstructure:"diffOnly"`
	SinceRef string `mapstructure:"sinceRef"`
}

// TextconvRule converts files matching Pattern to text through Command
// before classification. Patterns are shell globs tried against the relative
// path first, then its base name.
type TextconvRule struct {
	Pattern string
	Command []string
}

// Hooks defines callbacks for status updates during a comparison run.
// Implementations MUST be safe for concurrent use, methods may be called
// from multiple workers.
type Hooks interface {
	OnPathDiscovered(path string) error
	OnPathStatusUpdate(path string, status Status, message string, duration time.Duration) error
	OnRunComplete(report Report) error
}

// NoOpHooks is a do-nothing Hooks implementation.
type NoOpHooks struct{}

func (h *NoOpHooks) OnPathDiscovered(path string) error { return nil }

func (h *NoOpHooks) OnPathStatusUpdate(path string, status Status, message string, duration time.Duration) error {
	return nil
}

func (h *NoOpHooks) OnRunComplete(report Report) error { return nil }

// GitClient supplies git-derived inputs: changed-file lists that replace
// tree walking, and HEAD hashes for report header annotation.
type GitClient interface {
	// GetChangedFiles lists paths changed in the repository at repoPath.
	// mode is "diffOnly" (working tree vs HEAD) or "since" (ref..HEAD).
	GetChangedFiles(repoPath string, mode GitListMode, ref string) ([]string, error)

	// ResolveHead returns the abbreviated HEAD commit hash of the
	// repository at repoPath, or an error if it is not a repository.
	ResolveHead(repoPath string) (string, error)
}

// TextconvRunner executes a textconv command against a file and returns the
// converted text.
type TextconvRunner interface {
	Run(ctx context.Context, rule TextconvRule, filePath string) ([]byte, error)
}

// Options holds all configuration for a comparison run.
type Options struct {
	// Core inputs. OldPath and NewPath must both be regular files or both
	// be directories. OutputPath is a directory in directory mode and a
	// single HTML file path in file mode.
	OldPath    string `mapstructure:"-"`
	NewPath    string `mapstructure:"-"`
	OutputPath string `mapstructure:"output"`

	// AppVersion is used for cache validation. Populated by the caller.
	AppVersion string `mapstructure:"-"`

	// Behavior and control.
	ConfigFilePath string      `mapstructure:"-"`
	ProfileName    string      `mapstructure:"-"`
	ForceOverwrite bool        `mapstructure:"yes"`
	Verbose        bool        `mapstructure:"verbose"`
	TuiEnabled     bool        `mapstructure:"tui"`
	OnErrorMode    OnErrorMode `mapstructure:"onError"`

	// Performance and caching.
	Concurrency     int    `mapstructure:"concurrency"`
	CacheEnabled    bool   `mapstructure:"cache"`
	CacheFormat     string `mapstructure:"cacheFormat"`
	IgnoreCacheRead bool   `mapstructure:"-"` // set by --no-cache
	ClearCache      bool   `mapstructure:"-"` // set by --clear-cache
	CacheFilePath   string `mapstructure:"-"` // resolved path to cache file

	// Path set selection. FileListPath names an explicit list file ("-"
	// selects FileListReader); StripLevel components are removed from the
	// front of each listed path.
	FileListPath   string    `mapstructure:"filelist"`
	FileListReader io.Reader `mapstructure:"-"`
	StripLevel     int       `mapstructure:"striplevel"`

	IgnoreDirPatterns  []string `mapstructure:"ignoreDirs"`
	IgnoreFilePatterns []string `mapstructure:"ignoreFiles"`

	// Rendering controls.
	ContextLines int    `mapstructure:"lines"`
	WrapColumn   int    `mapstructure:"wrap"`
	Title        string `mapstructure:"title"`
	Comments     string `mapstructure:"comments"`
	PageSize     int    `mapstructure:"pager"`

	// Inclusion controls.
	IncludeBinary bool `mapstructure:"includeBinary"`
	ShowCommon    bool `mapstructure:"showCommon"`

	// ContextOnly windows the single-file side-by-side report instead of
	// rendering the whole file.
	ContextOnly bool `mapstructure:"context"`

	// Content interpretation.
	DefaultEncoding          string            `mapstructure:"defaultEncoding"`
	LanguageMappingsOverride map[string]string `mapstructure:"languageMappings"`
	TextconvSpecs            []string          `mapstructure:"textconv"`
	TextconvRules            []TextconvRule    `mapstructure:"-"` // parsed from TextconvSpecs

	// Git integration.
	GitConfig          GitConfig   `mapstructure:"git"`
	GitListMode        GitListMode `mapstructure:"-"` // derived from GitConfig and flags
	GitMetadataEnabled bool        `mapstructure:"gitMetadata"`

	// Injected dependencies.
	EventHooks       Hooks             `mapstructure:"-"` // required
	Logger           slog.Handler      `mapstructure:"-"` // required
	GitClient        GitClient         `mapstructure:"-"` // optional
	TextconvRunner   TextconvRunner    `mapstructure:"-"` // optional
	DigestCache      cache.DigestCache `mapstructure:"-"` // optional
	LanguageDetector language.Detector `mapstructure:"-"` // optional
	EncodingHandler  encoding.Handler  `mapstructure:"-"` // optional
}
