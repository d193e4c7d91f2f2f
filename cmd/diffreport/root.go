package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/diffreport/diffreport/internal/cli"
	"github.com/diffreport/diffreport/internal/cli/config"
	"github.com/diffreport/diffreport/pkg/comparer"
)

var (
	// Set at build time via -ldflags.
	version = "dev"
	commit  = "none"
	date    = "unknown"

	cfgFile     string
	profileName string
)

var rootCmd = &cobra.Command{
	Use:   "diffreport [flags] OLD NEW",
	Short: "Compares two files or directory trees into a navigable HTML report.",
	Long: `diffreport compares two files or two directory trees and writes a static
HTML report: per-file source views, context, unified and side-by-side diffs,
and paginated index pages tying everything together.

The compared paths come from a recursive walk of both trees by default, from
an explicit list (--filelist), or from git (--git-diff-only, --git-since).
Given two regular files instead of directories, a single side-by-side page
is written to the output path.`,
	Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	Args:         cobra.ExactArgs(2),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		opts, logger, err := config.LoadAndValidate(cfgFile, profileName, version, cmd.Flags())
		if err != nil {
			return err
		}
		opts.OldPath = args[0]
		opts.NewPath = args[1]

		err = cli.Run(ctx, opts, logger)
		if errors.Is(err, cli.ErrAborted) {
			// The TUI already reported the abort; keep only the exit code.
			cmd.SilenceErrors = true
		}
		return err
	},
}

// Execute runs the root command and returns its error for main to turn into
// the exit code. Cobra already printed the error by then.
func Execute() error {
	rootCmd.SetVersionTemplate(`{{.Name}} version {{.Version}}` + "\n")
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Configuration file path (default: search ., ~/.config/diffreport, ~/.diffreport)")
	rootCmd.PersistentFlags().StringVar(&profileName, "profile", "", "Configuration profile to apply on top of the file's top level")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging (disables the TUI)")

	rootCmd.Flags().StringP("output", "o", "", "Output directory for the report, or the output file when comparing two files")
	rootCmd.Flags().StringP("filelist", "f", "", "File containing the paths to compare, one per line ('-' reads stdin)")
	rootCmd.Flags().IntP("strip", "p", 0, "Strip this many leading components from listed paths")
	rootCmd.Flags().IntP("lines", "n", comparer.DefaultContextLines, "Context lines in context and unified diffs")
	rootCmd.Flags().IntP("wrap", "w", comparer.DefaultWrapColumn, "Wrap side-by-side columns at this width (0 disables wrapping)")
	rootCmd.Flags().StringP("title", "t", "", "Report title (default: \"OLD vs NEW\")")
	rootCmd.Flags().StringP("comments", "m", "", "Comment text shown on every index page")
	rootCmd.Flags().StringP("comment-file", "F", "", "File whose content is shown as comments (--comments takes precedence)")
	rootCmd.Flags().IntP("page-size", "P", comparer.DefaultPageSize, "Maximum rows per index page")
	rootCmd.Flags().BoolP("include-binary", "b", false, "Treat binary files as diff candidates instead of skipping them")
	rootCmd.Flags().Bool("show-common", false, "Include byte-identical files in the report")
	rootCmd.Flags().BoolP("context", "c", false, "Context-windowed side-by-side output when comparing two files")
	rootCmd.Flags().BoolP("yes", "y", false, "Overwrite an existing output destination without prompting")
	rootCmd.Flags().StringArray("ignore-dir", nil, "Regexp of directory names to skip, replaces the default set (repeatable)")
	rootCmd.Flags().StringArray("ignore-file", nil, "Regexp of file names to skip, replaces the default set (repeatable)")
	rootCmd.Flags().String("git-since", "", "Compare only paths changed since this git reference")
	rootCmd.Flags().Bool("git-diff-only", false, "Compare only paths with uncommitted changes in the git worktree")
	rootCmd.Flags().Bool("git-metadata", false, "Annotate the report title with git HEAD hashes")
	rootCmd.Flags().StringArray("textconv", nil, "Convert matching binary files to text, as PATTERN=COMMAND (repeatable)")
	rootCmd.Flags().String("on-error", string(comparer.DefaultOnErrorMode), `Behavior on per-file errors ("stop" or "continue")`)
	rootCmd.Flags().Int("concurrency", comparer.DefaultConcurrency, "Number of parallel workers (0 for all CPU cores)")
	rootCmd.Flags().Bool("no-cache", false, "Ignore digest cache reads (the cache is still written)")
	rootCmd.Flags().Bool("clear-cache", false, "Delete the digest cache file before starting")
	rootCmd.Flags().Bool("no-tui", false, "Disable the progress TUI even on a terminal")
}
