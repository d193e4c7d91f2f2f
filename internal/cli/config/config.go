// Package config assembles comparer.Options from layered sources: built-in
// defaults, an optional YAML config file, an optional named profile inside
// that file, DIFFREPORT_* environment variables, and explicit command-line
// flags, in ascending priority.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/diffreport/diffreport/pkg/comparer"
	"github.com/diffreport/diffreport/pkg/comparer/cache"
)

const (
	// EnvPrefix namespaces environment overrides, e.g. DIFFREPORT_CONCURRENCY.
	EnvPrefix = "DIFFREPORT"

	// DefaultConfigName is the base name of the config file searched in ".",
	// "~/.config/diffreport" and "~/.diffreport".
	DefaultConfigName = "diffreport"
)

// flagKeys maps flag names to viper keys for flags that take part in layered
// merging. Flags with inverse or replace-the-default semantics (--no-cache,
// --no-tui, --ignore-dir, --git-since, --comment-file) are applied after
// unmarshalling instead, so their absence leaves the lower layers intact.
var flagKeys = map[string]string{
	"output":         "output",
	"filelist":       "filelist",
	"strip":          "striplevel",
	"lines":          "lines",
	"wrap":           "wrap",
	"title":          "title",
	"comments":       "comments",
	"page-size":      "pager",
	"include-binary": "includeBinary",
	"show-common":    "showCommon",
	"context":        "context",
	"yes":            "yes",
	"on-error":       "onError",
	"concurrency":    "concurrency",
	"git-diff-only":  "git.diffOnly",
	"git-metadata":   "gitMetadata",
	"textconv":       "textconv",
	"verbose":        "verbose",
}

// LoadAndValidate merges all configuration layers, validates the result and
// returns the options together with the logger every component should use.
// The flag set is the fully parsed command flag set; cfgFile and profileName
// come from the --config and --profile flags.
func LoadAndValidate(cfgFile, profileName, appVersion string, flags *pflag.FlagSet) (comparer.Options, *slog.Logger, error) {
	// Errors raised before the real logger exists go through this one.
	bootLogger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	if flags == nil {
		flags = pflag.NewFlagSet(DefaultConfigName, pflag.ContinueOnError)
	}

	v := viper.New()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", DefaultConfigName))
			v.AddConfigPath(filepath.Join(home, "."+DefaultConfigName))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			bootLogger.Error("Could not read configuration file", slog.String("path", cfgFile), slog.String("error", err.Error()))
			return comparer.Options{}, nil, fmt.Errorf("%w: reading config file: %w", comparer.ErrConfigValidation, err)
		}
	}

	if profileName != "" {
		profileKey := "profiles." + profileName
		if !v.IsSet(profileKey) {
			bootLogger.Error("Profile not found in configuration", slog.String("profile", profileName), slog.String("config", v.ConfigFileUsed()))
			return comparer.Options{}, nil, fmt.Errorf("%w: profile %q not found in config file", comparer.ErrConfigValidation, profileName)
		}
		if sub := v.Sub(profileKey); sub != nil {
			if err := v.MergeConfigMap(sub.AllSettings()); err != nil {
				return comparer.Options{}, nil, fmt.Errorf("%w: merging profile %q: %w", comparer.ErrConfigValidation, profileName, err)
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	for name, key := range flagKeys {
		if f := flags.Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return comparer.Options{}, nil, fmt.Errorf("%w: binding flag --%s: %w", comparer.ErrConfigValidation, name, err)
			}
		}
	}

	var opts comparer.Options
	if err := v.Unmarshal(&opts); err != nil {
		bootLogger.Error("Could not decode configuration", slog.String("error", err.Error()))
		return comparer.Options{}, nil, fmt.Errorf("%w: decoding configuration: %w", comparer.ErrConfigValidation, err)
	}

	opts.AppVersion = appVersion
	opts.ConfigFilePath = v.ConfigFileUsed()
	opts.ProfileName = profileName

	if err := applyFlagOverrides(&opts, flags); err != nil {
		return comparer.Options{}, nil, err
	}
	if err := validateAndDerive(&opts, flags); err != nil {
		return comparer.Options{}, nil, err
	}

	if opts.Verbose {
		opts.TuiEnabled = false
	}

	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	opts.Logger = handler

	logger := slog.New(handler)
	logger.Debug("Configuration resolved",
		slog.String("config", opts.ConfigFilePath),
		slog.String("profile", opts.ProfileName),
		slog.String("output", opts.OutputPath))
	return opts, logger, nil
}

// setDefaults registers the base layer. Keys without a registered default
// (ignoreDirs, ignoreFiles, languageMappings, textconv) stay nil when no
// other layer sets them; the comparer treats nil ignore patterns as "use the
// built-in sets" and an empty non-nil slice as "ignore nothing".
func setDefaults(v *viper.Viper) {
	v.SetDefault("output", "")
	v.SetDefault("filelist", "")
	v.SetDefault("striplevel", 0)
	v.SetDefault("lines", comparer.DefaultContextLines)
	v.SetDefault("wrap", comparer.DefaultWrapColumn)
	v.SetDefault("title", "")
	v.SetDefault("comments", "")
	v.SetDefault("pager", comparer.DefaultPageSize)
	v.SetDefault("includeBinary", false)
	v.SetDefault("showCommon", false)
	v.SetDefault("context", false)
	v.SetDefault("yes", false)
	v.SetDefault("onError", string(comparer.DefaultOnErrorMode))
	v.SetDefault("concurrency", comparer.DefaultConcurrency)
	v.SetDefault("cache", comparer.DefaultCacheEnabled)
	v.SetDefault("cacheFormat", cache.DefaultFormat)
	v.SetDefault("tui", comparer.DefaultTuiEnabled)
	v.SetDefault("verbose", comparer.DefaultVerbose)
	v.SetDefault("defaultEncoding", "")
	v.SetDefault("gitMetadata", false)
	v.SetDefault("git.diffOnly", false)
	v.SetDefault("git.sinceRef", comparer.DefaultGitSinceRef)
}

// applyFlagOverrides handles the flags excluded from flagKeys. Each one only
// takes effect when explicitly set, so config-file values survive otherwise.
func applyFlagOverrides(opts *comparer.Options, flags *pflag.FlagSet) error {
	if flags.Changed("ignore-dir") {
		opts.IgnoreDirPatterns, _ = flags.GetStringArray("ignore-dir")
	}
	if flags.Changed("ignore-file") {
		opts.IgnoreFilePatterns, _ = flags.GetStringArray("ignore-file")
	}
	if noCache, _ := flags.GetBool("no-cache"); noCache {
		opts.IgnoreCacheRead = true
	}
	if clearCache, _ := flags.GetBool("clear-cache"); clearCache {
		opts.ClearCache = true
	}
	if noTui, _ := flags.GetBool("no-tui"); noTui {
		opts.TuiEnabled = false
	}

	// Inline comments beat a comment file, which beats the config key.
	if flags.Changed("comment-file") && !flags.Changed("comments") {
		path, _ := flags.GetString("comment-file")
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("%w: reading comment file %s: %w", comparer.ErrConfigValidation, path, err)
		}
		opts.Comments = string(data)
	}

	// --git-since selects the since list mode; its ref, when non-empty, beats
	// the git.sinceRef config value. The config key alone never enables the
	// mode, it only changes which ref the flag defaults to.
	if flags.Changed("git-since") {
		if ref, _ := flags.GetString("git-since"); ref != "" {
			opts.GitConfig.SinceRef = ref
		}
		opts.GitListMode = comparer.GitListSince
	}
	return nil
}

// validateAndDerive checks user-facing constraints early, with friendlier
// messages than the comparer's own validation, and derives the git list mode
// and textconv rules.
func validateAndDerive(opts *comparer.Options, flags *pflag.FlagSet) error {
	if opts.OutputPath == "" {
		return fmt.Errorf("%w: an output path is required (--output or the output config key)", comparer.ErrConfigValidation)
	}
	if opts.ContextLines < 0 {
		return fmt.Errorf("%w: context line count must not be negative", comparer.ErrConfigValidation)
	}
	if opts.WrapColumn < 0 {
		return fmt.Errorf("%w: wrap column must not be negative", comparer.ErrConfigValidation)
	}
	if opts.StripLevel < 0 {
		return fmt.Errorf("%w: strip level must not be negative", comparer.ErrConfigValidation)
	}
	if opts.Concurrency < 0 {
		return fmt.Errorf("%w: concurrency must not be negative", comparer.ErrConfigValidation)
	}
	if opts.PageSize < 0 {
		return fmt.Errorf("%w: page size must not be negative", comparer.ErrConfigValidation)
	}

	if !isValidEnumValue(opts.OnErrorMode, []comparer.OnErrorMode{comparer.OnErrorStop, comparer.OnErrorContinue}) {
		return fmt.Errorf("%w: unknown onError mode %q (use %q or %q)", comparer.ErrConfigValidation, opts.OnErrorMode, comparer.OnErrorStop, comparer.OnErrorContinue)
	}
	if !isValidEnumValue(opts.CacheFormat, []string{cache.FormatGob, cache.FormatJSON}) {
		return fmt.Errorf("%w: unknown cache format %q (use %q or %q)", comparer.ErrConfigValidation, opts.CacheFormat, cache.FormatGob, cache.FormatJSON)
	}

	for _, pattern := range opts.IgnoreDirPatterns {
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("%w: invalid ignore-dir pattern %q: %w", comparer.ErrConfigValidation, pattern, err)
		}
	}
	for _, pattern := range opts.IgnoreFilePatterns {
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("%w: invalid ignore-file pattern %q: %w", comparer.ErrConfigValidation, pattern, err)
		}
	}

	rules, err := parseTextconvSpecs(opts.TextconvSpecs)
	if err != nil {
		return err
	}
	opts.TextconvRules = rules

	if opts.GitConfig.DiffOnly {
		if opts.GitListMode == comparer.GitListSince {
			return fmt.Errorf("%w: --git-since and --git-diff-only are mutually exclusive", comparer.ErrConfigValidation)
		}
		opts.GitListMode = comparer.GitListDiffOnly
	}
	if opts.GitListMode == "" {
		opts.GitListMode = comparer.GitListNone
	}
	if opts.GitListMode != comparer.GitListNone && flags.Changed("filelist") {
		return fmt.Errorf("%w: --filelist cannot be combined with a git-backed path list", comparer.ErrConfigValidation)
	}
	return nil
}

// parseTextconvSpecs turns PATTERN=CMD specs into rules. The command part is
// split on whitespace into an argv; the matched file path is appended by the
// runner at execution time.
func parseTextconvSpecs(specs []string) ([]comparer.TextconvRule, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	rules := make([]comparer.TextconvRule, 0, len(specs))
	for _, spec := range specs {
		pattern, command, ok := strings.Cut(spec, "=")
		if !ok || pattern == "" || strings.TrimSpace(command) == "" {
			return nil, fmt.Errorf("%w: textconv spec %q must have the form PATTERN=COMMAND", comparer.ErrConfigValidation, spec)
		}
		rules = append(rules, comparer.TextconvRule{
			Pattern: pattern,
			Command: strings.Fields(command),
		})
	}
	return rules, nil
}

func isValidEnumValue[T ~string](value T, allowed []T) bool {
	return slices.Contains(allowed, value)
}
