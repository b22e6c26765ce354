package main

import (
	"fmt"
	"io"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/nettybun/styletakeout"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Build, then re-extract changed sources until interrupted",
	Long: `Run a full build, then watch the project root. Changed sources are
re-extracted into the same session so class names stay stable, and the
stylesheet is rewritten after each rebuild. The stylesheet is flushed
once more on exit.`,
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		return loadConfig(cmd)
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runWatch(cmd)
	},
}

func init() {
	f := watchCmd.Flags()
	addBuildFlags(f)
	f.Duration("debounce", styletakeout.DefaultConfig().WatchDebounce, "Quiet period before rebuilding")
	f.Bool("completion-heuristic", true, "Flush when the completion line is printed")
	f.String("completion-prefix", styletakeout.DefaultCompletionPrefix, "Output prefix that marks a finished rebuild")
}

func runWatch(cmd *cobra.Command) error {
	ctx := cmd.Context()
	logger := configureLogger(cmd.ErrOrStderr())

	rc := reporterConfig()
	out := cmd.OutOrStdout()
	if rc.Quiet {
		out = io.Discard
	}
	reporter := styletakeout.NewReporter(out, rc)

	cfg := buildConfig()
	cfg.Logger = logger
	cfg.OnFlush = reporter.PrintFlush

	builder, err := styletakeout.NewBuilder(cfg)
	if err != nil {
		return err
	}

	// The initial build reports its flush through OnFlush
	result, err := builder.Build(ctx)
	if result == nil {
		return err
	}
	reporter.PrintIssues(result.Issues)
	reporter.PrintSummary(*result)

	watcher, err := styletakeout.NewWatcher(builder, out)
	if err != nil {
		return fmt.Errorf("watch failed: %w", err)
	}
	watcher.OnRebuild(func(result *styletakeout.BuildResult, err error) {
		if result == nil {
			logger.Error("rebuild failed", "error", err)
			return
		}
		reporter.PrintIssues(result.Issues)
		reporter.PrintSummary(*result)
	})
	watcher.Start(ctx)
	logger.Info("watching", "root", cfg.Root, "includes", cfg.Includes)

	<-ctx.Done()

	var errs error
	if err := watcher.Stop(); err != nil {
		errs = multierror.Append(errs, err)
	}
	if _, err := builder.Session().FlushOnExit(); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("flush on exit: %w", err))
	}
	return errs
}
