package main

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "styletakeout",
	Short: "Extract CSS-in-JS template literals into a single stylesheet",
	Long: `Compile-time CSS-in-JS extraction.
Every css, injectGlobal and decl template literal in your sources is moved
into one stylesheet, and each css site is replaced by a class name string.`,
	// Default behavior: run build when no subcommand is given.
	// We must call loadConfig here because PreRunE of buildCmd
	// is not triggered when delegating via rootCmd.RunE.
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := loadConfig(cmd); err != nil {
			return err
		}
		return runBuild(cmd)
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Global persistent flags (inherited by all subcommands)
	pf := rootCmd.PersistentFlags()
	pf.BoolP("verbose", "v", false, "Enable debug logging")
	pf.Bool("quiet", false, "Suppress all output (exit code only)")
	pf.Bool("color", false, "Force color output")
	pf.Bool("timing", false, "Log how long each file and flush took")
	pf.String("config", defaultConfigFile, "Config file path")
	pf.String("log-file", "", "Write diagnostic logs to a rotating file instead of stderr")
	pf.String("log-level", "", "Diagnostic log level: debug|info|warn|error (default: warn)")

	addBuildFlags(rootCmd.Flags())

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(mapCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(completionCmd)
	rootCmd.AddCommand(versionCmd)
}
