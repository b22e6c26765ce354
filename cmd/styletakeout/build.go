package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/nettybun/styletakeout"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Extract styles from all sources and write the stylesheet",
	Long: `Scan the configured sources, move every css, injectGlobal and decl
template literal into the output stylesheet and write the rewritten sources
to the output directory.`,
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		return loadConfig(cmd)
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runBuild(cmd)
	},
}

func init() {
	addBuildFlags(buildCmd.Flags())
}

// addBuildFlags registers the flags shared by the root command, build and watch
func addBuildFlags(f *pflag.FlagSet) {
	defaults := styletakeout.DefaultConfig()

	f.StringSlice("include", defaults.Includes, "Source file patterns, relative to --root")
	f.String("root", defaults.Root, "Project root")
	f.String("out-dir", "", "Directory for rewritten sources (empty = extract only)")
	f.Int("jobs", 0, "Files parsed in parallel (0 = one per CPU)")
	f.String("class-prefix", defaults.ClassPrefix, "Prefix for generated class names")
	f.Bool("class-use-enclosing-folder", defaults.ClassUseEnclosingFolder, "Name index files after their folder")
	f.String("output-file", defaults.OutputFile, "Stylesheet path")
	f.Bool("beautify", defaults.Beautify, "Pretty-print the stylesheet")
	f.String("variables-root", defaults.VariablesRoot, "Identifier that exposes the variables tree")
	f.String("output-format", "", "Output format: issues|summary|json")
	f.Bool("print-lines", true, "Show source lines with issues")
	f.Bool("print-linter-name", true, "Show (styletakeout) suffix on issues")
}

func runBuild(cmd *cobra.Command) error {
	cfg := buildConfig()
	cfg.Logger = configureLogger(cmd.ErrOrStderr())

	result, err := styletakeout.Build(cmd.Context(), cfg)
	if result == nil {
		return err
	}

	rc := reporterConfig()
	outputFormat := getStringWithFallback("output-format", "output.format", "")
	format := styletakeout.DetermineOutputFormat(outputFormat, rc.Quiet)

	if !rc.Quiet {
		styletakeout.WriteOutput(cmd.OutOrStdout(), result, format, rc)
	}

	// Issues were already printed; keep the error line short
	if n := result.ErrorCount(); n > 0 {
		return fmt.Errorf("%d of %d files failed", n, result.FilesScanned)
	}
	return err
}
