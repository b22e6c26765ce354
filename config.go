package styletakeout

import (
	"log/slog"
	"path/filepath"
	"time"

	"github.com/nettybun/styletakeout/internal/csscompile"
	"github.com/nettybun/styletakeout/internal/source"
	"github.com/nettybun/styletakeout/internal/takeout"
)

// Config holds build configuration
type Config struct {
	Root     string   // Project root; Includes and relative paths resolve against it
	Includes []string // Source globs: "src/**/*.{js,jsx,ts,tsx}"
	OutDir   string   // Rewritten sources are written here; empty extracts only
	Jobs     int      // Files parsed in parallel (0 = one per CPU)

	ClassPrefix             string                   // "css-"
	ClassUseEnclosingFolder bool                     // button/index.tsx -> button+0
	OutputFile              string                   // "build/takeout.css"
	Beautify                bool                     // Pretty-print extracted CSS
	BeautifyOptions         csscompile.Options       // Indent, brace placement, auto semicolons
	Variables               map[string]any           // Tree referenced as ${decl.colors.blue}
	VariablesRoot           string                   // "decl"
	Completion              takeout.CompletionSignal // Host output meaning "run finished"
	Tags                    source.Tags              // nil = css, injectGlobal, decl, d

	Quiet         bool          // No console output besides errors
	Timing        bool          // Log durations
	UseColors     bool          // Force colored output
	WatchDebounce time.Duration // Quiet period before the watcher rebuilds

	Logger  *slog.Logger
	OnFlush func(takeout.FlushResult)
}

// DefaultConfig returns the stock configuration
func DefaultConfig() Config {
	engine := takeout.DefaultConfig()
	return Config{
		Root:                    ".",
		Includes:                []string{"src/**/*.{js,jsx,mjs,cjs,ts,tsx,mts,cts}"},
		ClassPrefix:             engine.ClassPrefix,
		ClassUseEnclosingFolder: engine.ClassUseEnclosingFolder,
		OutputFile:              engine.OutputFile,
		Beautify:                true,
		BeautifyOptions:         csscompile.DefaultOptions(),
		VariablesRoot:           engine.VariablesRoot,
		Completion:              engine.Completion,
		WatchDebounce:           100 * time.Millisecond,
	}
}

// resolve makes p relative to the project root unless it is absolute
func (c Config) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Root, p)
}

// OutputPath is where the stylesheet is written
func (c Config) OutputPath() string {
	return c.resolve(c.OutputFile)
}

// NewSession wires the CSS compiler and formatter into an extraction session
func NewSession(cfg Config) (*takeout.Session, error) {
	engine := takeout.Config{
		ClassPrefix:             cfg.ClassPrefix,
		ClassUseEnclosingFolder: cfg.ClassUseEnclosingFolder,
		OutputFile:              cfg.OutputPath(),
		Timing:                  cfg.Timing,
		Completion:              cfg.Completion,
		Variables:               cfg.Variables,
		VariablesRoot:           cfg.VariablesRoot,
		Preprocessor:            takeout.PreprocessorFunc(csscompile.Compile),
		OnFlush:                 cfg.OnFlush,
		Logger:                  cfg.Logger,
	}
	if cfg.Beautify {
		opts := cfg.BeautifyOptions
		engine.Formatter = takeout.FormatterFunc(func(css string) string {
			return csscompile.Beautify(css, opts)
		})
	}
	return takeout.NewSession(engine)
}
