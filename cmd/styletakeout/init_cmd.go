package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a default .styletakeout.yaml config file",
	Long:  `Create a .styletakeout.yaml configuration file in the current directory with sensible defaults.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		force, _ := cmd.Flags().GetBool("force")

		if _, err := os.Stat(defaultConfigFile); err == nil && !force {
			return fmt.Errorf("%s already exists (use --force to overwrite)", defaultConfigFile)
		}

		if err := os.WriteFile(defaultConfigFile, []byte(defaultConfig), 0o644); err != nil {
			return fmt.Errorf("writing config file: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", defaultConfigFile)
		return nil
	},
}

const defaultConfig = `# styletakeout configuration
# Every key can also be set as STYLETAKEOUT_<KEY>; use __ for nesting,
# e.g. STYLETAKEOUT_BUILD__OUT_DIR=dist

# Class names are <class-prefix><short name>:<line>:<column>
class-prefix: css-
class-use-enclosing-folder: true   # src/button/index.tsx -> button+0
output-file: build/takeout.css

# true | false | formatter options
beautify:
  indent: "  "
  openbrace: end-of-line           # end-of-line | separate-line
  autosemicolon: true

# Reachable from templates as ${decl.colors.primary}
variables-root: decl
variables:
  colors:
    primary: "#4f46e5"
  size:
    sm: 4px
    md: 8px

build:
  root: .
  include:
    - "src/**/*.{js,jsx,mjs,cjs,ts,tsx,mts,cts}"
  out-dir: dist
  jobs: 0                          # 0 = one per CPU

watch:
  debounce: 100ms

# Lines printed to the host that mean "a run finished"
completion:
  enabled: true
  match-prefix: Successfully compiled

output:
  format: issues                   # issues | summary | json
  print-lines: true
  print-linter-name: true

log:
  level: warn
  file: ""                         # rotate logs here instead of stderr
  max-size: 10                     # megabytes
  max-backups: 3
  max-age: 28                      # days
  compress: true

timing: false
quiet: false
`

func init() {
	initCmd.Flags().Bool("force", false, "Overwrite existing config file")
}
